package descriptors

import "fmt"

// Format is the Characteristic Presentation Format "format" field.
type Format uint8

// Format types for PresentationFormat.Format
const (
	FormatBoolean  Format = 0x01
	FormatUint2    Format = 0x02
	FormatUint4    Format = 0x03
	FormatUint8    Format = 0x04
	FormatUint12   Format = 0x05
	FormatUint16   Format = 0x06
	FormatUint24   Format = 0x07
	FormatUint32   Format = 0x08
	FormatUint48   Format = 0x09
	FormatUint64   Format = 0x0A
	FormatUint128  Format = 0x0B
	FormatSint8    Format = 0x0C
	FormatSint12   Format = 0x0D
	FormatSint16   Format = 0x0E
	FormatSint24   Format = 0x0F
	FormatSint32   Format = 0x10
	FormatSint48   Format = 0x11
	FormatSint64   Format = 0x12
	FormatSint128  Format = 0x13
	FormatFloat32  Format = 0x14
	FormatFloat64  Format = 0x15
	FormatSFloat16 Format = 0x16
	FormatFloat16  Format = 0x17
	FormatDuint16  Format = 0x18
	FormatUTF8     Format = 0x19
	FormatUTF16    Format = 0x1A
	FormatStruct   Format = 0x1B
	FormatMedFloat Format = 0x1C
)

var formatNames = map[Format]string{
	FormatBoolean:  "boolean",
	FormatUint2:    "uint2",
	FormatUint4:    "uint4",
	FormatUint8:    "uint8",
	FormatUint12:   "uint12",
	FormatUint16:   "uint16",
	FormatUint24:   "uint24",
	FormatUint32:   "uint32",
	FormatUint48:   "uint48",
	FormatUint64:   "uint64",
	FormatUint128:  "uint128",
	FormatSint8:    "sint8",
	FormatSint12:   "sint12",
	FormatSint16:   "sint16",
	FormatSint24:   "sint24",
	FormatSint32:   "sint32",
	FormatSint48:   "sint48",
	FormatSint64:   "sint64",
	FormatSint128:  "sint128",
	FormatFloat32:  "float32",
	FormatFloat64:  "float64",
	FormatSFloat16: "medfloat16",
	FormatFloat16:  "float16",
	FormatDuint16:  "duint16",
	FormatUTF8:     "utf8s",
	FormatUTF16:    "utf16s",
	FormatStruct:   "struct",
	FormatMedFloat: "medfloat32",
}

// Known reports whether f is an assigned format code.
func (f Format) Known() bool {
	_, ok := formatNames[f]
	return ok
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("reserved(0x%02X)", uint8(f))
}

// MarshalText renders the format name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// integerLayout returns the byte width and signedness of the whole-byte
// integer formats. ok is false for every other format.
func (f Format) integerLayout() (width int, signed, ok bool) {
	switch f {
	case FormatUint8:
		return 1, false, true
	case FormatUint16:
		return 2, false, true
	case FormatUint24:
		return 3, false, true
	case FormatUint32:
		return 4, false, true
	case FormatSint8:
		return 1, true, true
	case FormatSint16:
		return 2, true, true
	case FormatSint24:
		return 3, true, true
	case FormatSint32:
		return 4, true, true
	}
	return 0, false, false
}
