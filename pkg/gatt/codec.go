package gatt

import (
	"fmt"
)

// LengthConstraints declares the payload lengths a codec accepts.
//
// Expected > 0 pins an exact length. Otherwise Min is the lower bound and
// Max, when non-zero, the upper bound. A zero value accepts anything,
// including an empty payload.
type LengthConstraints struct {
	Min      int `json:"min"`
	Max      int `json:"max,omitempty"`
	Expected int `json:"expected,omitempty"`
}

// Fixed requires exactly n bytes.
func Fixed(n int) LengthConstraints {
	return LengthConstraints{Min: n, Max: n, Expected: n}
}

// Variable accepts min..max bytes; max 0 means unbounded.
func Variable(min, max int) LengthConstraints {
	return LengthConstraints{Min: min, Max: max}
}

// AllowsVariable reports whether more than one length is accepted.
func (c LengthConstraints) AllowsVariable() bool {
	return c.Expected == 0 && (c.Max == 0 || c.Max != c.Min)
}

// Accepts reports whether a payload of n bytes passes the gate.
func (c LengthConstraints) Accepts(n int) bool {
	if c.Expected > 0 {
		return n == c.Expected
	}
	if n < c.Min {
		return false
	}
	return c.Max == 0 || n <= c.Max
}

func (c LengthConstraints) String() string {
	switch {
	case c.Expected > 0:
		return fmt.Sprintf("exactly %d", c.Expected)
	case c.Max == 0:
		return fmt.Sprintf("at least %d", c.Min)
	default:
		return fmt.Sprintf("%d..%d", c.Min, c.Max)
	}
}

// Check runs the length gate for the codec described by info.
func (c LengthConstraints) Check(info Info, raw []byte) error {
	if c.Accepts(len(raw)) {
		return nil
	}
	return &InsufficientDataError{Info: info, Length: len(raw), Constraints: c}
}

// Codec is the contract every characteristic and descriptor codec satisfies.
//
// Decode is only ever called on payloads that passed Constraints().Check.
// It never panics on payload content: anything malformed past the gate is
// reported as a ParseFieldError and decoding continues with the remaining
// fields. ctx may be nil.
//
// Encode validates its input and fails closed with an *EncodeError.
type Codec interface {
	Info() Info
	Constraints() LengthConstraints
	Decode(raw []byte, ctx *Context) (any, []ParseFieldError)
	Encode(value any) ([]byte, error)
}

// TypedCodec is the statically typed form codecs are written in. Erase
// turns it into a Codec.
type TypedCodec[T any] interface {
	Info() Info
	Constraints() LengthConstraints
	DecodeValue(raw []byte, ctx *Context) (T, []ParseFieldError)
	EncodeValue(value T) ([]byte, error)
}

// Dependent is implemented by codecs that read other characteristics from
// the context. Batch parsing orders dependencies first. A missing dependency
// is never an error: the codec decodes without it and the translator notes
// the gap in the parse trace.
type Dependent interface {
	RequiredDependencies() []UUID
	OptionalDependencies() []UUID
}

// PropertyDeclarer is implemented by codecs that know the properties the
// characteristic is mandated to expose.
type PropertyDeclarer interface {
	DeclaredProperties() Properties
}

// ServiceDefinition describes a service and the characteristics it
// aggregates.
type ServiceDefinition interface {
	Info() Info
	Required() []UUID
	Optional() []UUID
}

// Erase adapts a TypedCodec to the Codec contract. Optional interfaces
// (Dependent, PropertyDeclarer) implemented by c stay visible on the result.
func Erase[T any](c TypedCodec[T]) Codec {
	base := erased[T]{typed: c}
	dep, isDep := c.(Dependent)
	props, hasProps := c.(PropertyDeclarer)
	switch {
	case isDep && hasProps:
		return struct {
			erased[T]
			Dependent
			PropertyDeclarer
		}{base, dep, props}
	case isDep:
		return struct {
			erased[T]
			Dependent
		}{base, dep}
	case hasProps:
		return struct {
			erased[T]
			PropertyDeclarer
		}{base, props}
	default:
		return base
	}
}

type erased[T any] struct {
	typed TypedCodec[T]
}

func (e erased[T]) Info() Info                     { return e.typed.Info() }
func (e erased[T]) Constraints() LengthConstraints { return e.typed.Constraints() }

func (e erased[T]) Decode(raw []byte, ctx *Context) (any, []ParseFieldError) {
	return e.typed.DecodeValue(raw, ctx)
}

func (e erased[T]) Encode(value any) ([]byte, error) {
	switch v := value.(type) {
	case T:
		return e.typed.EncodeValue(v)
	case *T:
		if v != nil {
			return e.typed.EncodeValue(*v)
		}
	}
	var want T
	return nil, &EncodeError{
		Info:   e.typed.Info(),
		Value:  value,
		Reason: fmt.Sprintf("expected %T, got %T", want, value),
	}
}

// Unwrap returns the typed codec behind an erased one.
func Unwrap[T any](c Codec) (TypedCodec[T], bool) {
	if e, ok := c.(interface{ typedCodec() TypedCodec[T] }); ok {
		return e.typedCodec(), true
	}
	return nil, false
}

func (e erased[T]) typedCodec() TypedCodec[T] { return e.typed }

// Decode runs the length gate and, when it passes, the codec. It is the
// single entry point used by the translator; a gate failure returns the
// *InsufficientDataError and a nil value.
func Decode(c Codec, raw []byte, ctx *Context) (any, []ParseFieldError, error) {
	if err := c.Constraints().Check(c.Info(), raw); err != nil {
		return nil, nil, err
	}
	value, fieldErrs := c.Decode(raw, ctx)
	return value, fieldErrs, nil
}

// Encode encodes value with c and verifies the result against the codec's
// own length constraints.
func Encode(c Codec, value any) ([]byte, error) {
	out, err := c.Encode(value)
	if err != nil {
		return nil, err
	}
	if !c.Constraints().Accepts(len(out)) {
		return nil, &EncodeError{
			Info:   c.Info(),
			Value:  value,
			Reason: fmt.Sprintf("encoded %d bytes, need %s", len(out), c.Constraints()),
		}
	}
	return out, nil
}
