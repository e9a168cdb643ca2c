package descriptors

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/srg/gattkit/internal/bledb"
	"github.com/srg/gattkit/pkg/gatt"
)

// NamespaceSIG is the Bluetooth SIG description namespace.
const NamespaceSIG = 0x01

// UserDescriptionCodec is the Characteristic User Description descriptor
// (0x2901): a UTF-8 string that may be NUL-terminated.
type UserDescriptionCodec struct{}

func (UserDescriptionCodec) Info() gatt.Info                     { return userDescriptionInfo }
func (UserDescriptionCodec) Constraints() gatt.LengthConstraints { return gatt.Variable(0, 512) }

func (UserDescriptionCodec) DecodeValue(raw []byte, _ *gatt.Context) (string, []gatt.ParseFieldError) {
	str := strings.TrimRight(string(raw), "\x00")
	if utf8.ValidString(str) {
		return str, nil
	}
	return strings.ToValidUTF8(str, "�"), []gatt.ParseFieldError{
		gatt.FieldError("description", "invalid UTF-8 in user description"),
	}
}

func (UserDescriptionCodec) EncodeValue(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, &gatt.EncodeError{Info: userDescriptionInfo, Field: "description", Value: s, Reason: "not valid UTF-8"}
	}
	return []byte(s), nil
}

// PresentationFormat represents the Characteristic Presentation Format descriptor (0x2904)
type PresentationFormat struct {
	Format Format `json:"format"`
	// Exponent applies to integer formats: value = raw * 10^Exponent
	Exponent    int8   `json:"exponent"`
	Unit        uint16 `json:"unit"`
	UnitSymbol  string `json:"unit_symbol,omitempty"`
	Namespace   uint8  `json:"namespace"`
	Description uint16 `json:"description"`
}

// Scale applies the exponent to a raw integer.
func (p PresentationFormat) Scale(raw int64) float64 {
	return float64(raw) * math.Pow10(int(p.Exponent))
}

// PresentationFormatCodec decodes the 7-byte layout:
// Format(1), Exponent(1), Unit(2), Namespace(1), Description(2).
type PresentationFormatCodec struct{}

func (PresentationFormatCodec) Info() gatt.Info                     { return presentationFormatInfo }
func (PresentationFormatCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(7) }

func (PresentationFormatCodec) DecodeValue(raw []byte, _ *gatt.Context) (PresentationFormat, []gatt.ParseFieldError) {
	p := PresentationFormat{
		Format:      Format(raw[0]),
		Exponent:    int8(raw[1]),
		Unit:        binary.LittleEndian.Uint16(raw[2:4]),
		Namespace:   raw[4],
		Description: binary.LittleEndian.Uint16(raw[5:7]),
	}
	p.UnitSymbol = bledb.LookupUnit(p.Unit)

	var errs []gatt.ParseFieldError
	if !p.Format.Known() {
		errs = append(errs, gatt.FieldErrorAt("format", raw, 0, 1, fmt.Sprintf("reserved format 0x%02X", raw[0])))
	}
	return p, errs
}

func (PresentationFormatCodec) EncodeValue(p PresentationFormat) ([]byte, error) {
	if !p.Format.Known() {
		return nil, &gatt.EncodeError{Info: presentationFormatInfo, Field: "format", Value: uint8(p.Format), Reason: "reserved format"}
	}
	out := make([]byte, 7)
	out[0] = byte(p.Format)
	out[1] = byte(p.Exponent)
	binary.LittleEndian.PutUint16(out[2:4], p.Unit)
	out[4] = p.Namespace
	binary.LittleEndian.PutUint16(out[5:7], p.Description)
	return out, nil
}

// AggregateFormat represents the Characteristic Aggregate Format descriptor
// (0x2905): the attribute handles of the Presentation Format descriptors
// that together describe the value.
type AggregateFormat struct {
	Handles []uint16 `json:"handles"`
}

// AggregateFormatCodec is a list of little-endian uint16 handles.
type AggregateFormatCodec struct{}

func (AggregateFormatCodec) Info() gatt.Info                     { return aggregateFormatInfo }
func (AggregateFormatCodec) Constraints() gatt.LengthConstraints { return gatt.Variable(2, 0) }

func (AggregateFormatCodec) DecodeValue(raw []byte, _ *gatt.Context) (AggregateFormat, []gatt.ParseFieldError) {
	var a AggregateFormat
	for off := 0; off+2 <= len(raw); off += 2 {
		a.Handles = append(a.Handles, binary.LittleEndian.Uint16(raw[off:]))
	}
	if len(raw)%2 != 0 {
		return a, []gatt.ParseFieldError{
			gatt.FieldErrorAt("handles", raw, len(raw)-1, 1, "odd trailing byte in handle list"),
		}
	}
	return a, nil
}

func (AggregateFormatCodec) EncodeValue(a AggregateFormat) ([]byte, error) {
	out := make([]byte, 0, 2*len(a.Handles))
	for _, h := range a.Handles {
		out = binary.LittleEndian.AppendUint16(out, h)
	}
	return out, nil
}
