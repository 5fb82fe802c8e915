package rowstream

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrHeaderNotWritten is returned when a row is written before the header.
	ErrHeaderNotWritten = errors.New("stream header has not been written")
	// ErrHeaderWritten is returned when the header is written twice.
	ErrHeaderWritten = errors.New("stream header has already been written")
	// ErrStreamSealed is returned when writing to a closed stream.
	ErrStreamSealed = errors.New("stream is sealed")
	// ErrFieldCount is returned when a row doesn't match its schema.
	ErrFieldCount = errors.New("field count mismatch")
)

// FailureKind classifies the errors that end a bridge run.
type FailureKind int

const (
	// SetupFailure: the sink could not be provisioned, the schema could not
	// be resolved or the pipeline could not be started.
	SetupFailure FailureKind = iota + 1
	// EncodingFailure: the header or a row could not be written, a row did
	// not match the schema, or the stream could not be sealed.
	EncodingFailure
	// ListenerAttachFailure: the target step has no running copies.
	ListenerAttachFailure
)

func (k FailureKind) String() string {
	switch k {
	case SetupFailure:
		return "setup failure"
	case EncodingFailure:
		return "encoding failure"
	case ListenerAttachFailure:
		return "listener attach failure"
	default:
		return fmt.Sprintf("FailureKind(%d)", int(k))
	}
}

// Failure is the error returned by Bridge.Run. Partially written streams of a
// failed run must be treated as invalid.
type Failure struct {
	Kind FailureKind
	Step string
	Err  error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("%s on step %q", f.Kind, f.Step)
	}
	return fmt.Sprintf("%s on step %q: %v", f.Kind, f.Step, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error { return f.Err }

// IsFailure reports whether err is, or wraps, a Failure of the given kind.
func IsFailure(err error, kind FailureKind) bool {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind == kind
	}
	return false
}

func newFailure(kind FailureKind, step string, err error) *Failure {
	return &Failure{Kind: kind, Step: step, Err: err}
}
