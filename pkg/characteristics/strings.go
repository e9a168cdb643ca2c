package characteristics

import (
	"strings"
	"unicode/utf8"

	"github.com/srg/gattkit/pkg/gatt"
)

// maxAttributeLength is the largest attribute value ATT allows.
const maxAttributeLength = 512

// UTF8Codec decodes utf8s characteristics. Trailing NULs some peripherals
// pad with are dropped; invalid sequences are replaced with U+FFFD and
// reported as a field error.
type UTF8Codec struct {
	info   gatt.Info
	maxLen int
}

// NewDeviceName is the GAP Device Name codec (at most 248 bytes).
func NewDeviceName() UTF8Codec { return UTF8Codec{info: info(0x2A00), maxLen: 248} }

// NewManufacturerName is the Manufacturer Name String codec.
func NewManufacturerName() UTF8Codec { return UTF8Codec{info: info(0x2A29), maxLen: maxAttributeLength} }

// NewModelNumber is the Model Number String codec.
func NewModelNumber() UTF8Codec { return UTF8Codec{info: info(0x2A24), maxLen: maxAttributeLength} }

// NewSerialNumber is the Serial Number String codec.
func NewSerialNumber() UTF8Codec { return UTF8Codec{info: info(0x2A25), maxLen: maxAttributeLength} }

// NewFirmwareRevision is the Firmware Revision String codec.
func NewFirmwareRevision() UTF8Codec { return UTF8Codec{info: info(0x2A26), maxLen: maxAttributeLength} }

func (c UTF8Codec) Info() gatt.Info { return c.info }

func (c UTF8Codec) Constraints() gatt.LengthConstraints { return gatt.Variable(0, c.maxLen) }

func (c UTF8Codec) DeclaredProperties() gatt.Properties { return gatt.PropRead }

func (c UTF8Codec) DecodeValue(raw []byte, _ *gatt.Context) (string, []gatt.ParseFieldError) {
	trimmed := strings.TrimRight(string(raw), "\x00")
	if utf8.ValidString(trimmed) {
		return trimmed, nil
	}
	offset := 0
	for offset < len(trimmed) {
		r, size := utf8.DecodeRuneInString(trimmed[offset:])
		if r == utf8.RuneError && size <= 1 {
			break
		}
		offset += size
	}
	return strings.ToValidUTF8(trimmed, "�"), []gatt.ParseFieldError{
		gatt.FieldErrorAt("text", raw, offset, 1, "invalid UTF-8 sequence"),
	}
}

func (c UTF8Codec) EncodeValue(s string) ([]byte, error) {
	if !utf8.ValidString(s) {
		return nil, &gatt.EncodeError{Info: c.info, Field: "text", Value: s, Reason: "not valid UTF-8"}
	}
	if len(s) > c.maxLen {
		return nil, &gatt.EncodeError{Info: c.info, Field: "text", Value: s, Reason: "longer than the characteristic allows"}
	}
	return []byte(s), nil
}
