//go:build gorules

package gorules

import (
	"github.com/quasilyte/go-ruleguard/dsl"
)

//doc:summary Detects a deferred Lock where an Unlock was almost certainly intended
//doc:tags    diagnostic
func deferUnlock(m dsl.Matcher) {
	m.Match(`defer $mu.RLock()`).Report("maybe defer $mu.RUnlock() was intended?")
	m.Match(`defer $mu.Lock()`).Report("maybe defer $mu.Unlock() was intended?")
}

//doc:summary Detects comparing an error by string instead of errors.Is
//doc:tags    style
func errCompare(m dsl.Matcher) {
	m.Match(`$err.Error() == $s`).
		Where(m["err"].Type.Is("error") && m["s"].Const).
		Report("compare errors with errors.Is instead of matching the message")
}
