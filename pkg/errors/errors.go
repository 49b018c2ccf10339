// Package errors provides structured error reporting for the reflow engine.
//
// Stale handles are not errors: lookups report ok=false. This package is for
// the failures that cannot be returned to a caller, such as an effect that
// panics in the middle of a flush or a widget capability that panics during
// a frame. Recovered panics are reported as an EngineError whose Err is a
// *PanicError.
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindInit indicates the engine could not be started.
	KindInit
	// KindConfig indicates an invalid configuration.
	KindConfig
	// KindEffect indicates a failure inside an effect callback.
	KindEffect
	// KindCycle indicates a flush that did not settle.
	KindCycle
	// KindWidget indicates a failure inside a widget capability.
	KindWidget
	// KindDispatch indicates a failure inside a dispatched callback.
	KindDispatch
)

func (k ErrorKind) String() string {
	switch k {
	case KindInit:
		return "init"
	case KindConfig:
		return "config"
	case KindEffect:
		return "effect"
	case KindCycle:
		return "cycle"
	case KindWidget:
		return "widget"
	case KindDispatch:
		return "dispatch"
	default:
		return "unknown"
	}
}

// EngineError is a failure in one engine operation.
type EngineError struct {
	// Op is the operation that failed, e.g. "engine.Paint".
	Op   string
	Kind ErrorKind
	Err  error
	// Entity names the widget or effect involved, if any.
	Entity string
	// StackTrace is set for recovered panics.
	StackTrace string
	Timestamp  time.Time
}

func (e *EngineError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s [%s] %s: %v", e.Op, e.Kind, e.Entity, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// PanicError holds the value a recovered panic was raised with.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

// Panicked reports whether err was produced by a recovered panic and
// returns the panic value.
func Panicked(err error) (any, bool) {
	var p *PanicError
	if stderrors.As(err, &p) {
		return p.Value, true
	}
	return nil, false
}

// FromPanic builds the error reported for a panic recovered in op. It must
// be called from the deferred function that recovered, so the stack trace
// starts at the panic site.
func FromPanic(op string, kind ErrorKind, entity string, value any) *EngineError {
	return &EngineError{
		Op:         op,
		Kind:       kind,
		Err:        &PanicError{Value: value},
		Entity:     entity,
		StackTrace: CaptureStack(),
		Timestamp:  time.Now(),
	}
}

// ErrorHandler receives errors reported by the engine.
type ErrorHandler interface {
	HandleError(err *EngineError)
}

// HandlerFunc adapts a function to ErrorHandler.
type HandlerFunc func(err *EngineError)

// HandleError calls f(err).
func (f HandlerFunc) HandleError(err *EngineError) {
	f(err)
}
