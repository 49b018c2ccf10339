package errors

import (
	"runtime"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

type handlerRef struct {
	h ErrorHandler
}

var current atomic.Pointer[handlerRef]

// SetHandler installs h as the process-wide error handler. Passing nil
// restores the default, a LogHandler writing to stderr.
func SetHandler(h ErrorHandler) {
	if h == nil {
		current.Store(nil)
		return
	}
	current.Store(&handlerRef{h: h})
}

// Handler returns the installed error handler.
func Handler() ErrorHandler {
	if ref := current.Load(); ref != nil {
		return ref.h
	}
	return defaultHandler
}

var defaultHandler = &LogHandler{}

// Report hands err to the installed handler, stamping it if needed.
func Report(err *EngineError) {
	if err == nil {
		return
	}
	if err.Timestamp.IsZero() {
		err.Timestamp = time.Now()
	}
	Handler().HandleError(err)
}

// Catch runs fn. If fn panics the panic is reported and also returned, so
// callers that aggregate failures see it.
func Catch(op string, kind ErrorKind, entity string, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			reported := FromPanic(op, kind, entity, r)
			Report(reported)
			err = reported
		}
	}()
	fn()
	return nil
}

// CaptureStack returns the current call stack, skipping CaptureStack and
// its caller.
func CaptureStack() string {
	var pcs [32]uintptr
	n := runtime.Callers(3, pcs[:])
	if n == 0 {
		return ""
	}

	var sb strings.Builder
	frames := runtime.CallersFrames(pcs[:n])
	for {
		f, more := frames.Next()
		sb.WriteString(f.Function)
		sb.WriteString("\n\t")
		sb.WriteString(f.File)
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(f.Line))
		sb.WriteByte('\n')
		if !more {
			return sb.String()
		}
	}
}
