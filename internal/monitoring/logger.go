// Package monitoring holds the process-wide diagnostic log streams.
//
// Three streams are kept apart so normal runs stay quiet:
//   - ops: actionable warnings, errors, dropped data
//   - diag: day-to-day diagnostics and tuning context
//   - trace: per-tick and per-batch telemetry
//
// Every stream starts disabled except ops, which writes to stderr.
package monitoring

import (
	"io"
	"log"
	"os"
	"sync/atomic"
)

type streams struct {
	ops, diag, trace *log.Logger
}

var current atomic.Pointer[streams]

func init() {
	SetLogWriters(os.Stderr, nil, nil)
}

// SetLogWriters configures the three streams. Pass nil to disable one.
func SetLogWriters(ops, diag, trace io.Writer) {
	current.Store(&streams{
		ops:   newLogger(ops),
		diag:  newLogger(diag),
		trace: newLogger(trace),
	})
}

// SetLegacyLogger routes all streams to a single writer, or disables them
// all when w is nil.
func SetLegacyLogger(w io.Writer) {
	SetLogWriters(w, w, w)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "", log.LstdFlags|log.Lmicroseconds)
}

// Opsf logs to the ops stream.
func Opsf(format string, args ...interface{}) {
	if l := current.Load().ops; l != nil {
		l.Printf(format, args...)
	}
}

// Diagf logs to the diag stream.
func Diagf(format string, args ...interface{}) {
	if l := current.Load().diag; l != nil {
		l.Printf(format, args...)
	}
}

// Tracef logs to the trace stream.
func Tracef(format string, args ...interface{}) {
	if l := current.Load().trace; l != nil {
		l.Printf(format, args...)
	}
}
