// Package apierr implements the error taxonomy from spec.md §7, so the
// session state machine can translate any failure into one of a fixed set
// of kinds and a recovery hint.
package apierr

import "fmt"

// Kind is one of the error taxonomy buckets from spec.md §7.
type Kind string

const (
	KindTransportFatal Kind = "transport"
	KindProtocol       Kind = "protocol"
	KindDecoder        Kind = "decoder"
	KindAPI            Kind = "api"
	KindCapability     Kind = "capability"
)

// Hint is the recovery hint surfaced to observers: "recover" re-enables UI
// paths, "fatal" tears down the session and re-shows the connecting modal.
type Hint string

const (
	HintRecover Hint = "recover"
	HintFatal   Hint = "fatal"
)

// Error is a taxonomy-tagged error carrying the origin prefix used for
// user-visible diagnostic lines ("Server:", "WebRTC:", "Decoder:").
type Error struct {
	Kind   Kind
	Hint   Hint
	Origin string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Origin, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Origin, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, hint Hint, origin string, err error) *Error {
	return &Error{Kind: kind, Hint: hint, Origin: origin, Err: err}
}

func Fatal(kind Kind, origin string, err error) *Error {
	return New(kind, HintFatal, origin, err)
}

func Recoverable(kind Kind, origin string, err error) *Error {
	return New(kind, HintRecover, origin, err)
}
