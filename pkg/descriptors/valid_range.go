package descriptors

import (
	"encoding/binary"
	"fmt"

	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/numeric"
)

// ValidRange represents the Valid Range descriptor (0x2906). Min and Max are
// always the raw halves; Lower and Upper are set when a sibling Presentation
// Format gives the value an integer layout.
type ValidRange struct {
	Min   []byte   `json:"min"`
	Max   []byte   `json:"max"`
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Contains reports whether v lies within the typed bounds. It is true when
// the bounds are unknown.
func (r ValidRange) Contains(v float64) bool {
	if r.Lower == nil || r.Upper == nil {
		return true
	}
	return v >= *r.Lower && v <= *r.Upper
}

// ValidRangeCodec splits the value into min and max halves. The layout
// depends on the characteristic value format, which comes from the
// Presentation Format descriptor of the same characteristic when present.
type ValidRangeCodec struct{}

func (ValidRangeCodec) Info() gatt.Info                     { return validRangeInfo }
func (ValidRangeCodec) Constraints() gatt.LengthConstraints { return gatt.Variable(2, 0) }

func (ValidRangeCodec) RequiredDependencies() []gatt.UUID { return nil }

func (ValidRangeCodec) OptionalDependencies() []gatt.UUID {
	return []gatt.UUID{presentationFormatInfo.UUID}
}

func (ValidRangeCodec) DecodeValue(raw []byte, ctx *gatt.Context) (ValidRange, []gatt.ParseFieldError) {
	pf, hasFormat := presentationFormat(ctx)
	width, signed, typed := pf.Format.integerLayout()

	if !hasFormat || !typed {
		// for odd lengths the extra byte goes to max
		return splitAt(raw, len(raw)/2), nil
	}
	if len(raw) != 2*width {
		return splitAt(raw, len(raw)/2), []gatt.ParseFieldError{
			gatt.FieldErrorAt("range", raw, 0, len(raw), fmt.Sprintf("%s range needs %d bytes, got %d", pf.Format, 2*width, len(raw))),
		}
	}

	r := splitAt(raw, width)
	lower := pf.Scale(readInt(r.Min, signed))
	upper := pf.Scale(readInt(r.Max, signed))
	r.Lower, r.Upper = &lower, &upper
	if lower > upper {
		return r, []gatt.ParseFieldError{
			gatt.FieldErrorAt("range", raw, 0, len(raw), fmt.Sprintf("lower bound %g above upper bound %g", lower, upper)),
		}
	}
	return r, nil
}

func (ValidRangeCodec) EncodeValue(r ValidRange) ([]byte, error) {
	if len(r.Min) == 0 || len(r.Max) == 0 {
		return nil, &gatt.EncodeError{Info: validRangeInfo, Field: "range", Value: r, Reason: "min and max are required"}
	}
	out := make([]byte, 0, len(r.Min)+len(r.Max))
	out = append(out, r.Min...)
	return append(out, r.Max...), nil
}

func splitAt(raw []byte, mid int) ValidRange {
	return ValidRange{
		Min: append([]byte(nil), raw[:mid]...),
		Max: append([]byte(nil), raw[mid:]...),
	}
}

func presentationFormat(ctx *gatt.Context) (PresentationFormat, bool) {
	d, ok := ctx.Descriptor(presentationFormatInfo.UUID)
	if !ok || !d.ParseSuccess {
		return PresentationFormat{}, false
	}
	return gatt.DescriptorValueAs[PresentationFormat](d)
}

// readInt reads a little-endian integer of len(b) bytes (1 to 4).
func readInt(b []byte, signed bool) int64 {
	var v uint64
	switch len(b) {
	case 1:
		v = uint64(b[0])
	case 2:
		v = uint64(binary.LittleEndian.Uint16(b))
	case 3:
		v = uint64(numeric.Uint24(b))
	default:
		v = uint64(binary.LittleEndian.Uint32(b))
	}
	if signed {
		return numeric.SignExtend(v, 8*len(b))
	}
	return int64(v)
}
