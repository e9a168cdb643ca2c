// Package numeric implements the numeric encodings used by GATT payloads:
// IEEE-11073 SFLOAT (16-bit) and FLOAT (32-bit) medical floats, scaled
// fixed-point integers, and odd-width little-endian integers.
package numeric

import (
	"fmt"
	"math"

	"github.com/srg/gattkit/pkg/bits"
)

// Special classifies a medical float. Every value other than Finite is a
// reserved sentinel carrying no number.
type Special uint8

const (
	Finite Special = iota
	NaN
	NRes
	PositiveInfinity
	NegativeInfinity
	Reserved
)

func (s Special) String() string {
	switch s {
	case Finite:
		return "finite"
	case NaN:
		return "NaN"
	case NRes:
		return "NRes"
	case PositiveInfinity:
		return "+INFINITY"
	case NegativeInfinity:
		return "-INFINITY"
	case Reserved:
		return "reserved"
	default:
		return fmt.Sprintf("Special(%d)", uint8(s))
	}
}

// MedFloat is a decoded IEEE-11073 value. Value is meaningful only when
// Special is Finite.
type MedFloat struct {
	Value   float64 `json:"value"`
	Special Special `json:"special"`
}

// NoValue is the "unknown" outcome. It always encodes to the NaN sentinel.
func NoValue() MedFloat {
	return MedFloat{Special: NaN}
}

// FiniteValue wraps a plain number.
func FiniteValue(v float64) MedFloat {
	return MedFloat{Value: v}
}

// IsFinite reports whether m carries a number.
func (m MedFloat) IsFinite() bool {
	return m.Special == Finite
}

// Float64 returns the number and true, or 0 and false for sentinels.
func (m MedFloat) Float64() (float64, bool) {
	if m.Special != Finite {
		return 0, false
	}
	return m.Value, true
}

func (m MedFloat) String() string {
	if m.Special != Finite {
		return m.Special.String()
	}
	return fmt.Sprintf("%g", m.Value)
}

// medFormat describes one of the two IEEE-11073 layouts.
type medFormat struct {
	name         string
	mantissaBits int
	exponentBits int
	minExponent  int
	maxExponent  int
	maxMantissa  int64 // largest zero-exponent magnitude not colliding with a sentinel
	nan          uint32
	nres         uint32
	posInf       uint32
	negInf       uint32
	reserved     uint32
}

var sfloatFormat = medFormat{
	name:         "SFLOAT",
	mantissaBits: 12,
	exponentBits: 4,
	minExponent:  -8,
	maxExponent:  7,
	maxMantissa:  0x07FD,
	nan:          0x07FF,
	nres:         0x0800,
	posInf:       0x07FE,
	negInf:       0x0802,
	reserved:     0x0801,
}

var floatFormat = medFormat{
	name:         "FLOAT",
	mantissaBits: 24,
	exponentBits: 8,
	minExponent:  -128,
	maxExponent:  127,
	maxMantissa:  0x007FFFFD,
	nan:          0x007FFFFF,
	nres:         0x00800000,
	posInf:       0x007FFFFE,
	negInf:       0x00800002,
	reserved:     0x00800001,
}

// Sentinel raw values.
const (
	SFloatNaN              uint16 = 0x07FF
	SFloatNRes             uint16 = 0x0800
	SFloatPositiveInfinity uint16 = 0x07FE
	SFloatNegativeInfinity uint16 = 0x0802
	SFloatReserved         uint16 = 0x0801

	FloatNaN              uint32 = 0x007FFFFF
	FloatNRes             uint32 = 0x00800000
	FloatPositiveInfinity uint32 = 0x007FFFFE
	FloatNegativeInfinity uint32 = 0x00800002
	FloatReserved         uint32 = 0x00800001
)

// Sentinels are defined with a zero exponent, so they are matched against the
// whole raw word.
func (f medFormat) decode(raw uint32) MedFloat {
	switch raw {
	case f.nan:
		return MedFloat{Special: NaN}
	case f.nres:
		return MedFloat{Special: NRes}
	case f.posInf:
		return MedFloat{Special: PositiveInfinity}
	case f.negInf:
		return MedFloat{Special: NegativeInfinity}
	case f.reserved:
		return MedFloat{Special: Reserved}
	}

	mantissa := SignExtend(uint64(bits.Extract(raw, 0, f.mantissaBits)), f.mantissaBits)
	exponent := SignExtend(uint64(bits.Extract(raw, f.mantissaBits, f.exponentBits)), f.exponentBits)
	return MedFloat{Value: scalePow10(mantissa, int(exponent))}
}

func (f medFormat) encode(m MedFloat) (uint32, error) {
	switch m.Special {
	case NaN:
		return f.nan, nil
	case NRes:
		return f.nres, nil
	case PositiveInfinity:
		return f.posInf, nil
	case NegativeInfinity:
		return f.negInf, nil
	case Finite:
	default:
		return 0, &RangeError{Format: f.name, Reason: fmt.Sprintf("cannot encode %s", m.Special)}
	}

	v := m.Value
	switch {
	case math.IsNaN(v):
		return f.nan, nil
	case math.IsInf(v, 1):
		return f.posInf, nil
	case math.IsInf(v, -1):
		return f.negInf, nil
	}

	if v == 0 {
		return 0, nil
	}

	// The smallest exponent whose mantissa fits gives the finest resolution.
	for exp := f.minExponent; exp <= f.maxExponent; exp++ {
		mantissa := math.Round(unscalePow10(v, exp))
		if !f.fits(mantissa, exp) {
			continue
		}
		raw := bits.Set(uint32(0), uint32(int64(mantissa))&bits.Mask[uint32](0, f.mantissaBits), 0, f.mantissaBits)
		raw = bits.Set(raw, uint32(int64(exp))&bits.Mask[uint32](0, f.exponentBits), f.mantissaBits, f.exponentBits)
		return raw, nil
	}
	return 0, &RangeError{Format: f.name, Value: v, Reason: "magnitude exceeds representable range"}
}

// fits reports whether mantissa is encodable with exp. Sentinels only exist
// with a zero exponent, so other exponents may use the full two's complement
// range.
func (f medFormat) fits(mantissa float64, exp int) bool {
	if exp == 0 {
		return math.Abs(mantissa) <= float64(f.maxMantissa)
	}
	limit := float64(int64(1) << uint(f.mantissaBits-1))
	return mantissa >= -limit && mantissa <= limit-1
}

// scalePow10 computes mantissa * 10^exp. Dividing by an exact power of ten
// keeps results like 366e-1 at the nearest float to 36.6.
func scalePow10(mantissa int64, exp int) float64 {
	if exp < 0 {
		return float64(mantissa) / math.Pow10(-exp)
	}
	return float64(mantissa) * math.Pow10(exp)
}

func unscalePow10(v float64, exp int) float64 {
	if exp < 0 {
		return v * math.Pow10(-exp)
	}
	return v / math.Pow10(exp)
}

// DecodeSFloat decodes a 16-bit IEEE-11073 SFLOAT.
func DecodeSFloat(raw uint16) MedFloat {
	return sfloatFormat.decode(uint32(raw))
}

// EncodeSFloat encodes m as an SFLOAT. Sentinels map to their reserved
// patterns; a finite value is rejected if it cannot be represented.
func EncodeSFloat(m MedFloat) (uint16, error) {
	raw, err := sfloatFormat.encode(m)
	return uint16(raw), err
}

// DecodeFloat decodes a 32-bit IEEE-11073 FLOAT.
func DecodeFloat(raw uint32) MedFloat {
	return floatFormat.decode(raw)
}

// EncodeFloat encodes m as a FLOAT.
func EncodeFloat(m MedFloat) (uint32, error) {
	return floatFormat.encode(m)
}

// SFloatResolution returns the resolution EncodeSFloat achieves for v, which
// bounds the round-trip error.
func SFloatResolution(v float64) float64 {
	return sfloatFormat.resolution(v)
}

// FloatResolution returns the resolution EncodeFloat achieves for v.
func FloatResolution(v float64) float64 {
	return floatFormat.resolution(v)
}

func (f medFormat) resolution(v float64) float64 {
	for exp := f.minExponent; exp <= f.maxExponent; exp++ {
		if f.fits(math.Round(unscalePow10(v, exp)), exp) {
			return math.Pow10(exp)
		}
	}
	return math.Inf(1)
}
