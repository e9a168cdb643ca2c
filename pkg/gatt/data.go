package gatt

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// ParseFieldError records one field that could not be decoded cleanly.
// Offset is -1 when the position is not known.
type ParseFieldError struct {
	Field    string `json:"field"`
	Reason   string `json:"reason"`
	Offset   int    `json:"offset"`
	RawSlice []byte `json:"raw_slice,omitempty"`
}

// FieldError builds a ParseFieldError without position information.
func FieldError(field, reason string) ParseFieldError {
	return ParseFieldError{Field: field, Reason: reason, Offset: -1}
}

// FieldErrorAt builds a ParseFieldError pointing at raw[offset:offset+n]
// (clipped to the buffer).
func FieldErrorAt(field string, raw []byte, offset, n int, reason string) ParseFieldError {
	fe := ParseFieldError{Field: field, Reason: reason, Offset: offset}
	if offset >= 0 && offset < len(raw) {
		end := offset + n
		if end > len(raw) {
			end = len(raw)
		}
		fe.RawSlice = append([]byte(nil), raw[offset:end]...)
	}
	return fe
}

func (e ParseFieldError) Error() string {
	if e.Offset < 0 {
		return fmt.Sprintf("field %s: %s", e.Field, e.Reason)
	}
	if len(e.RawSlice) > 0 {
		return fmt.Sprintf("field %s at offset %d (%s): %s", e.Field, e.Offset, strings.ToUpper(hex.EncodeToString(e.RawSlice)), e.Reason)
	}
	return fmt.Sprintf("field %s at offset %d: %s", e.Field, e.Offset, e.Reason)
}

// CharacteristicData is the result of one parse call. It is created fresh for
// every call and never cached.
//
// ParseSuccess is false when the length gate refused the payload (Err is set,
// Value is nil) or when at least one field error was recorded (Value holds the
// best-effort decode).
type CharacteristicData struct {
	Info         Info                     `json:"info"`
	Value        any                      `json:"value"`
	Raw          []byte                   `json:"raw"`
	ParseSuccess bool                     `json:"parse_success"`
	FieldErrors  []ParseFieldError        `json:"field_errors"`
	ParseTrace   []string                 `json:"parse_trace"`
	Properties   Properties               `json:"properties"`
	Descriptors  map[UUID]*DescriptorData `json:"descriptors,omitempty"`
	Err          error                    `json:"-"`
	ErrorMessage string                   `json:"error,omitempty"`
}

// UUID is shorthand for d.Info.UUID.
func (d *CharacteristicData) UUID() UUID {
	return d.Info.UUID
}

// Tracef appends a diagnostic line to the parse trace.
func (d *CharacteristicData) Tracef(format string, args ...any) {
	d.ParseTrace = append(d.ParseTrace, fmt.Sprintf(format, args...))
}

// Fail marks the result as a fatal failure.
func (d *CharacteristicData) Fail(err error) {
	d.ParseSuccess = false
	d.Value = nil
	d.Err = err
	d.ErrorMessage = err.Error()
}

// DescriptorData is the result of parsing one descriptor value.
type DescriptorData struct {
	Info         Info              `json:"info"`
	Value        any               `json:"value"`
	Raw          []byte            `json:"raw"`
	ParseSuccess bool              `json:"parse_success"`
	FieldErrors  []ParseFieldError `json:"field_errors"`
	Err          error             `json:"-"`
	ErrorMessage string            `json:"error,omitempty"`
}

// Fail marks the descriptor result as a fatal failure.
func (d *DescriptorData) Fail(err error) {
	d.ParseSuccess = false
	d.Value = nil
	d.Err = err
	d.ErrorMessage = err.Error()
}

// ValueAs returns the decoded value of d as T.
func ValueAs[T any](d *CharacteristicData) (T, bool) {
	var zero T
	if d == nil || d.Value == nil {
		return zero, false
	}
	v, ok := d.Value.(T)
	return v, ok
}

// DescriptorValueAs returns the decoded value of d as T.
func DescriptorValueAs[T any](d *DescriptorData) (T, bool) {
	var zero T
	if d == nil || d.Value == nil {
		return zero, false
	}
	v, ok := d.Value.(T)
	return v, ok
}
