package errors

import (
	"log"
	"os"

	"github.com/go-logr/logr"
	"github.com/go-logr/stdr"
)

// LogHandler is an ErrorHandler that writes errors through a logr.Logger.
// The zero value logs to stderr.
type LogHandler struct {
	// Logger receives the errors. A zero Logger falls back to stderr.
	Logger logr.Logger
	// Verbose adds stack traces to the output.
	Verbose bool
}

func (h *LogHandler) logger() logr.Logger {
	if h.Logger.GetSink() == nil {
		return stdr.New(log.New(os.Stderr, "", log.LstdFlags))
	}
	return h.Logger
}

// HandleError logs err. Recovered panics carry their value under "panic".
func (h *LogHandler) HandleError(err *EngineError) {
	if err == nil {
		return
	}
	kv := []any{"op", err.Op, "kind", err.Kind.String()}
	if err.Entity != "" {
		kv = append(kv, "entity", err.Entity)
	}
	msg := "reflow error"
	if v, ok := Panicked(err); ok {
		msg = "reflow panic"
		kv = append(kv, "panic", v)
	}
	if h.Verbose && err.StackTrace != "" {
		kv = append(kv, "stack", err.StackTrace)
	}
	h.logger().Error(err.Err, msg, kv...)
}
