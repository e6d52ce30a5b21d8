package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
)

type LoggerConfig struct {
	LogLevel      hclog.Level `json:"logLevel"`
	JSONLogFormat bool        `json:"jsonLogFormat"`
	AppendFile    bool        `json:"appendFile"`
	LogFilePath   string      `json:"logFilePath"`
	Name          string      `json:"-"`
}

// NewLogger creates a hclog logger writing to stdout and, when LogFilePath is
// set, to the log file as well.
func NewLogger(config LoggerConfig) (hclog.Logger, error) {
	var output io.Writer = os.Stdout

	if config.LogFilePath != "" {
		if err := os.MkdirAll(filepath.Dir(config.LogFilePath), 0770); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		fileFlags := os.O_CREATE | os.O_WRONLY
		if config.AppendFile {
			fileFlags |= os.O_APPEND
		} else {
			fileFlags |= os.O_TRUNC
		}

		logFile, err := os.OpenFile(config.LogFilePath, fileFlags, 0660)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", config.LogFilePath, err)
		}

		output = io.MultiWriter(os.Stdout, logFile)
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       config.Name,
		Level:      config.LogLevel,
		JSONFormat: config.JSONLogFormat,
		Output:     output,
	}), nil
}
