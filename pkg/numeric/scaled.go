package numeric

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrOutOfRange is matched by every RangeError.
	ErrOutOfRange = errors.New("value out of range")
	// ErrUnknown reports that a raw value is the characteristic's "unknown" sentinel.
	ErrUnknown = errors.New("value unknown")
)

// RangeError describes a value that cannot be represented by a numeric format.
type RangeError struct {
	Format string
	Value  float64
	Min    float64
	Max    float64
	Reason string
}

func (e *RangeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %g: %s", e.Format, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %g outside [%g, %g]", e.Format, e.Value, e.Min, e.Max)
}

// Is allows errors.Is(err, ErrOutOfRange)
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// Scale is a fixed-point codec: physical = raw*Resolution + Offset.
//
// Min and Max bound the physical value. When HasUnknown is set, Unknown is the
// raw sentinel meaning "value not known" and never counts as a number.
type Scale struct {
	Name       string
	Resolution float64
	Offset     float64
	Min        float64
	Max        float64
	Bits       int
	Signed     bool
	HasUnknown bool
	Unknown    int64
}

// rawBounds returns the integer range the container can hold.
func (s Scale) rawBounds() (int64, int64) {
	if s.Signed {
		return -(int64(1) << uint(s.Bits-1)), int64(1)<<uint(s.Bits-1) - 1
	}
	if s.Bits >= 63 {
		return 0, math.MaxInt64
	}
	return 0, int64(1)<<uint(s.Bits) - 1
}

// inRange allows half a resolution step of slack so values produced by Decode
// at the bounds always re-encode.
func (s Scale) inRange(v float64) bool {
	return v >= s.Min-s.Resolution/2 && v <= s.Max+s.Resolution/2
}

// Decode converts a raw integer to its physical value.
//
// It returns ErrUnknown for the unknown sentinel. For a raw value whose
// physical value falls outside [Min, Max] it returns the value together with a
// *RangeError so callers can record the problem and keep the number.
func (s Scale) Decode(raw int64) (float64, error) {
	if s.HasUnknown && raw == s.Unknown {
		return 0, ErrUnknown
	}
	v := float64(raw)*s.Resolution + s.Offset
	if !s.inRange(v) {
		return v, &RangeError{Format: s.Name, Value: v, Min: s.Min, Max: s.Max}
	}
	return v, nil
}

// Encode converts a physical value to its raw integer. It rejects NaN and any
// value outside [Min, Max]; it never clamps.
func (s Scale) Encode(v float64) (int64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &RangeError{Format: s.Name, Value: v, Reason: "not a finite number"}
	}
	if !s.inRange(v) {
		return 0, &RangeError{Format: s.Name, Value: v, Min: s.Min, Max: s.Max}
	}
	raw := int64(math.Round((v - s.Offset) / s.Resolution))
	lo, hi := s.rawBounds()
	if raw < lo || raw > hi {
		return 0, &RangeError{Format: s.Name, Value: v, Reason: fmt.Sprintf("raw %d does not fit %d bits", raw, s.Bits)}
	}
	if s.HasUnknown && raw == s.Unknown {
		return 0, &RangeError{Format: s.Name, Value: v, Reason: "collides with the unknown sentinel"}
	}
	return raw, nil
}

// EncodeUnknown returns the unknown sentinel, or an error when the format has none.
func (s Scale) EncodeUnknown() (int64, error) {
	if !s.HasUnknown {
		return 0, &RangeError{Format: s.Name, Value: math.NaN(), Reason: "format has no unknown sentinel"}
	}
	return s.Unknown, nil
}
