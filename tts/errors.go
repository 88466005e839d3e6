package tts

import (
	"errors"
	"fmt"

	"github.com/dgnsrekt/hum/tts/hume"
)

// Common errors for the speech pipeline.
var (
	ErrMissingAPIKey       = errors.New("api key is not set")
	ErrEmptyText           = errors.New("utterance text is empty")
	ErrEmptyVoiceName      = errors.New("voice name is empty")
	ErrMissingGenerationID = errors.New("generation id is empty")
	ErrVoiceNotFound       = errors.New("voice not found")
	ErrClientClosed        = errors.New("client has been closed")
	ErrNoGenerations       = errors.New("response carried no generations")
)

// Kind classifies a failure by the pipeline stage that produced it. Every
// failure resolves the affected utterance; none of them aborts the client.
type Kind int

const (
	// KindPrecondition is a request rejected before anything was sent.
	KindPrecondition Kind = iota
	// KindTransport is an HTTP or connectivity failure, including non-2xx
	// replies from the service.
	KindTransport
	// KindDecode is a malformed or undecodable response payload.
	KindDecode
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error wraps a pipeline failure with its stage and whatever wire evidence
// was captured. Use errors.As to recover it, errors.Is for the sentinel
// underneath.
type Error struct {
	Kind Kind
	Op   string
	Err  error

	// Wire evidence, populated for transport failures that carried a reply.
	Status       int
	RequestBody  string
	ResponseBody string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s (status %d): %v", e.Kind, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

func preconditionErr(op string, err error) *Error {
	return &Error{Kind: KindPrecondition, Op: op, Err: err}
}

// transportErr lifts wire evidence out of service errors so callers can see
// exactly what was exchanged.
func transportErr(op string, err error) *Error {
	e := &Error{Kind: KindTransport, Op: op, Err: err}
	var apiErr *hume.APIError
	if errors.As(err, &apiErr) {
		e.Status = apiErr.StatusCode
		e.RequestBody = apiErr.RequestBody
		e.ResponseBody = apiErr.ResponseBody
	}
	return e
}

func decodeErr(op string, err error) *Error {
	return &Error{Kind: KindDecode, Op: op, Err: err}
}
