package tts

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/dgnsrekt/hum/tts/hume"
)

// TestKind_String tests the String() method for Kind.
func TestKind_String(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected string
	}{
		{KindPrecondition, "precondition"},
		{KindTransport, "transport"},
		{KindDecode, "decode"},
		{Kind(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.expected {
				t.Errorf("Kind.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

// TestError_UnwrapsSentinel tests that sentinel errors stay reachable
// through errors.Is and the wrapper through errors.As.
func TestError_UnwrapsSentinel(t *testing.T) {
	err := preconditionErr("speak", ErrEmptyText)

	if !errors.Is(err, ErrEmptyText) {
		t.Error("errors.Is should find ErrEmptyText")
	}

	var e *Error
	if !errors.As(err, &e) {
		t.Fatal("errors.As should recover *Error")
	}
	if e.Kind != KindPrecondition {
		t.Errorf("Kind = %v, want precondition", e.Kind)
	}
	if e.Op != "speak" {
		t.Errorf("Op = %q, want speak", e.Op)
	}
}

// TestError_Message tests the rendered error string with and without a
// captured HTTP status.
func TestError_Message(t *testing.T) {
	plain := decodeErr("synthesize", ErrNoGenerations)
	msg := plain.Error()
	if !strings.Contains(msg, "decode") || !strings.Contains(msg, "synthesize") {
		t.Errorf("message %q missing kind or op", msg)
	}
	if strings.Contains(msg, "status") {
		t.Errorf("message %q mentions a status that was never set", msg)
	}

	withStatus := &Error{Kind: KindTransport, Op: "synthesize", Err: errors.New("boom"), Status: 502}
	msg = withStatus.Error()
	if !strings.Contains(msg, "status 502") {
		t.Errorf("message %q missing status", msg)
	}
}

// TestTransportErr_LiftsAPIEvidence tests that wire evidence captured by
// the API client surfaces on the classified error.
func TestTransportErr_LiftsAPIEvidence(t *testing.T) {
	apiErr := &hume.APIError{
		Op:           "synthesize",
		StatusCode:   429,
		Status:       "429 Too Many Requests",
		RequestBody:  `{"utterances":[]}`,
		ResponseBody: `{"message":"slow down"}`,
	}
	wrapped := fmt.Errorf("request failed: %w", apiErr)

	err := transportErr("synthesize", wrapped)

	if err.Kind != KindTransport {
		t.Errorf("Kind = %v, want transport", err.Kind)
	}
	if err.Status != 429 {
		t.Errorf("Status = %d, want 429", err.Status)
	}
	if err.RequestBody != apiErr.RequestBody {
		t.Errorf("RequestBody = %q, want %q", err.RequestBody, apiErr.RequestBody)
	}
	if err.ResponseBody != apiErr.ResponseBody {
		t.Errorf("ResponseBody = %q, want %q", err.ResponseBody, apiErr.ResponseBody)
	}

	var recovered *hume.APIError
	if !errors.As(err, &recovered) {
		t.Error("errors.As should still reach the underlying APIError")
	}
}

// TestTransportErr_PlainError tests classification of connectivity errors
// that carry no HTTP reply.
func TestTransportErr_PlainError(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := transportErr("synthesize", cause)

	if err.Status != 0 {
		t.Errorf("Status = %d, want 0", err.Status)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}
