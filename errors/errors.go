package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseValidate Phase = "validate" // input and option validation
	PhaseResolve  Phase = "resolve"  // asset location
	PhaseWorker   Phase = "worker"   // worker lifecycle
	PhaseDispatch Phase = "dispatch" // bridge dispatch
	PhaseCodec    Phase = "codec"    // module loading and invocation
	PhaseProtocol Phase = "protocol" // message framing and correlation
)

// Kind categorizes the error
type Kind string

const (
	KindInvalidInput   Kind = "invalid_input"
	KindOutOfRange     Kind = "out_of_range"
	KindAborted        Kind = "aborted"
	KindWorkerCreation Kind = "worker_creation"
	KindWorkerTimeout  Kind = "worker_timeout"
	KindWorkerStart    Kind = "worker_start"
	KindCodecFailure   Kind = "codec_failure"
	KindMessage        Kind = "message"
	KindTerminated     Kind = "terminated"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
)

// Error is the structured error type used throughout the library
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Codec  string
	Op     string
	Detail string
	Path   []string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Codec != "" {
		b.WriteString(" codec ")
		b.WriteString(e.Codec)
		if e.Op != "" {
			b.WriteByte('/')
			b.WriteString(e.Op)
		}
	} else if e.Op != "" {
		b.WriteString(" op ")
		b.WriteString(e.Op)
	}

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// StdIs re-exports the standard errors.Is so callers of this package do not
// need a second import under an alias.
func StdIs(err, target error) bool {
	return stderrors.Is(err, target)
}

// StdAs re-exports the standard errors.As.
func StdAs(err error, target any) bool {
	return stderrors.As(err, target)
}

// IsAborted reports whether err is a cancellation observed at a checkpoint,
// anywhere in the chain. An aborted cause keeps its meaning through wrapping.
func IsAborted(err error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindAborted {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Codec sets the codec name
func (b *Builder) Codec(name string) *Builder {
	b.err.Codec = name
	return b
}

// Op sets the operation tag
func (b *Builder) Op(op string) *Builder {
	b.err.Op = op
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// InvalidInput creates a validation error with a free-form detail message
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// OutOfRange creates a numeric range violation for an option field
func OutOfRange(field string, value any, lo, hi int) *Error {
	return &Error{
		Phase:  PhaseValidate,
		Kind:   KindOutOfRange,
		Path:   []string{field},
		Value:  value,
		Detail: fmt.Sprintf("%s must be in [%d, %d], got %v", field, lo, hi, value),
	}
}

// Aborted creates a cancellation error observed at a checkpoint
func Aborted(phase Phase, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAborted,
		Cause:  cause,
		Detail: "operation aborted",
	}
}

// WorkerCreation creates a worker spawn failure listing every attempted
// asset candidate
func WorkerCreation(codec string, attempts []string, cause error) *Error {
	detail := "unable to create worker"
	if len(attempts) > 0 {
		detail = fmt.Sprintf("unable to create worker, attempted: %s", strings.Join(attempts, ", "))
	}
	return &Error{
		Phase:  PhaseWorker,
		Kind:   KindWorkerCreation,
		Codec:  codec,
		Cause:  cause,
		Detail: detail,
	}
}

// WorkerTimeout creates a readiness handshake timeout error
func WorkerTimeout(timeout time.Duration) *Error {
	return &Error{
		Phase:  PhaseWorker,
		Kind:   KindWorkerTimeout,
		Detail: fmt.Sprintf("worker did not signal ready within %s", timeout),
	}
}

// WorkerStart creates an error for a worker that reported an initialization
// fault before signalling ready
func WorkerStart(codec string, cause error) *Error {
	return &Error{
		Phase:  PhaseWorker,
		Kind:   KindWorkerStart,
		Codec:  codec,
		Cause:  cause,
		Detail: "worker failed during startup",
	}
}

// CodecFailure creates an error for a module call that produced no result
func CodecFailure(codec, op string) *Error {
	return &Error{
		Phase:  PhaseCodec,
		Kind:   KindCodecFailure,
		Codec:  codec,
		Op:     op,
		Detail: "module returned no result",
	}
}

// Remote rebuilds a worker-side failure from the error string carried in a
// response envelope. The original type information does not cross the
// channel; only the message does.
func Remote(codec, op, message string) *Error {
	return &Error{
		Phase:  PhaseCodec,
		Kind:   KindCodecFailure,
		Codec:  codec,
		Op:     op,
		Detail: message,
	}
}

// Message creates a malformed or unroutable message error
func Message(detail string) *Error {
	return &Error{
		Phase:  PhaseProtocol,
		Kind:   KindMessage,
		Detail: detail,
	}
}

// Terminated creates an error for use of a released resource
func Terminated(component string) *Error {
	return &Error{
		Phase:  PhaseWorker,
		Kind:   KindTerminated,
		Detail: fmt.Sprintf("%s has been terminated", component),
	}
}

// NotFound creates a not-found error for a named asset or export
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// NotInitialized creates an error for use of an uninitialized component
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// Wrap creates an error wrapping a cause with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Cause:  cause,
		Detail: detail,
	}
}
