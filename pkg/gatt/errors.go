package gatt

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientData is matched by every *InsufficientDataError.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrOutOfDomain is matched by every *EncodeError.
	ErrOutOfDomain = errors.New("value out of domain")
	// ErrNoCodec is recorded on parse results for UUIDs without a registered codec.
	ErrNoCodec = errors.New("no codec registered")
)

// InsufficientDataError is the fatal length-gate failure: the payload violates
// the declared length constraints and no decoding was attempted.
type InsufficientDataError struct {
	Info        Info
	Length      int
	Constraints LengthConstraints
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data for %s: got %d bytes, need %s", e.Info.Label(), e.Length, e.Constraints)
}

// Is allows errors.Is(err, ErrInsufficientData)
func (e *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

// EncodeError reports a value an encoder refused. Encoders fail closed and
// never clamp.
type EncodeError struct {
	Info   Info
	Field  string
	Value  any
	Reason string
	Err    error
}

func (e *EncodeError) Error() string {
	target := e.Info.Label()
	if e.Field != "" {
		target = fmt.Sprintf("%s field %q", target, e.Field)
	}
	msg := fmt.Sprintf("cannot encode %v as %s", e.Value, target)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is allows errors.Is(err, ErrOutOfDomain)
func (e *EncodeError) Is(target error) bool {
	return target == ErrOutOfDomain
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}
