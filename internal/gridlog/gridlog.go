// Package gridlog defines the narrow logging interface the engine depends
// on. The concrete sink (e.g. a rotating file writer) is an external
// collaborator per spec §1 and is never implemented here.
package gridlog

import "fmt"

// Logger is a minimal, printf-style append-only sink. Grounded on the
// teacher's server/testing/mock.MockLogger shape, which itself stands in
// for the production log collaborator.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Nop is a Logger that discards everything; it is the default for headless
// construction when no collaborator is supplied.
type Nop struct{}

func (Nop) Printf(string, ...interface{}) {}

// Func adapts a plain function to the Logger interface.
type Func func(format string, args ...interface{})

func (f Func) Printf(format string, args ...interface{}) { f(format, args...) }

// Prefixed wraps a Logger, prepending a static tag to every message.
func Prefixed(l Logger, tag string) Logger {
	return Func(func(format string, args ...interface{}) {
		l.Printf("[%s] %s", tag, fmt.Sprintf(format, args...))
	})
}
