package versioning

// Populated through ldflags at build time.
var (
	Commit    string
	Branch    string
	BuildTime string
)
