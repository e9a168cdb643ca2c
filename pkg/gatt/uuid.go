package gatt

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// UUID is a 128-bit GATT attribute identity in big-endian order.
// 16- and 32-bit SIG UUIDs are stored expanded over the Bluetooth base UUID
// 00000000-0000-1000-8000-00805F9B34FB, so equality is always on the full form.
type UUID [16]byte

// sigBaseTail holds bytes 4..15 of the Bluetooth base UUID.
var sigBaseTail = [12]byte{0x00, 0x00, 0x10, 0x00, 0x80, 0x00, 0x00, 0x80, 0x5F, 0x9B, 0x34, 0xFB}

// UUID16 expands a 16-bit SIG UUID.
func UUID16(short uint16) UUID {
	return UUID32(uint32(short))
}

// UUID32 expands a 32-bit SIG UUID.
func UUID32(v uint32) UUID {
	var u UUID
	binary.BigEndian.PutUint32(u[0:4], v)
	copy(u[4:], sigBaseTail[:])
	return u
}

// ParseUUID accepts 16-bit ("2A19", "0x2a19"), 32-bit and 128-bit forms,
// with or without dashes, braces or a "urn:uuid:" prefix, in any case.
func ParseUUID(s string) (UUID, error) {
	cleaned := strings.TrimSpace(s)
	cleaned = strings.TrimPrefix(strings.TrimPrefix(cleaned, "urn:uuid:"), "URN:UUID:")
	cleaned = strings.Trim(cleaned, "{}")
	if strings.HasPrefix(cleaned, "0x") || strings.HasPrefix(cleaned, "0X") {
		cleaned = cleaned[2:]
	}
	cleaned = strings.ReplaceAll(cleaned, "-", "")

	switch len(cleaned) {
	case 4:
		v, err := strconv.ParseUint(cleaned, 16, 16)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid 16-bit UUID %q: %w", s, err)
		}
		return UUID16(uint16(v)), nil
	case 8:
		v, err := strconv.ParseUint(cleaned, 16, 32)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid 32-bit UUID %q: %w", s, err)
		}
		return UUID32(uint32(v)), nil
	case 32:
		parsed, err := uuid.Parse(cleaned)
		if err != nil {
			return UUID{}, fmt.Errorf("invalid 128-bit UUID %q: %w", s, err)
		}
		return UUID(parsed), nil
	default:
		return UUID{}, fmt.Errorf("invalid UUID %q: unsupported length %d", s, len(cleaned))
	}
}

// MustParseUUID is ParseUUID that panics on error. Intended for tables of constants.
func MustParseUUID(s string) UUID {
	u, err := ParseUUID(s)
	if err != nil {
		panic(err)
	}
	return u
}

// NormalizeUUID returns the canonical form of s (uppercase hex, no dashes,
// full 128 bits), or "" if s is not a UUID.
func NormalizeUUID(s string) string {
	u, err := ParseUUID(s)
	if err != nil {
		return ""
	}
	return u.String()
}

// IsZero reports whether u is the all-zero UUID.
func (u UUID) IsZero() bool {
	return u == UUID{}
}

// IsSIG reports whether u lies on the Bluetooth base UUID (16- or 32-bit form).
func (u UUID) IsSIG() bool {
	return [12]byte(u[4:]) == sigBaseTail
}

// Short returns the 16-bit form of a SIG UUID.
func (u UUID) Short() (uint16, bool) {
	if !u.IsSIG() || u[0] != 0 || u[1] != 0 {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

// String returns the canonical normalized form: 32 uppercase hex digits.
func (u UUID) String() string {
	return strings.ToUpper(hex.EncodeToString(u[:]))
}

// ShortString returns "2A19" for 16-bit SIG UUIDs and String() otherwise.
func (u UUID) ShortString() string {
	if short, ok := u.Short(); ok {
		return fmt.Sprintf("%04X", short)
	}
	return u.String()
}

// Dashed returns the 8-4-4-4-12 uppercase form.
func (u UUID) Dashed() string {
	return strings.ToUpper(uuid.UUID(u).String())
}

// MarshalText implements encoding.TextMarshaler.
func (u UUID) MarshalText() ([]byte, error) {
	return []byte(u.ShortString()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (u *UUID) UnmarshalText(text []byte) error {
	parsed, err := ParseUUID(string(text))
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
