package characteristics

import (
	"encoding/binary"
	"fmt"

	"github.com/srg/gattkit/internal/bledb"
	"github.com/srg/gattkit/pkg/gatt"
)

var appearanceInfo = info(0x2A01)

// Appearance is the decoded GAP Appearance value.
type Appearance struct {
	Code        uint16 `json:"code"`
	Category    string `json:"category,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
}

func (a Appearance) String() string {
	switch {
	case a.Subcategory != "":
		return fmt.Sprintf("%s (%s)", a.Subcategory, a.Category)
	case a.Category != "":
		return a.Category
	default:
		return fmt.Sprintf("0x%04X", a.Code)
	}
}

// AppearanceCodec decodes the 16-bit appearance value and names it.
// Unassigned categories keep their code and are reported as a field error.
type AppearanceCodec struct{}

func (AppearanceCodec) Info() gatt.Info                     { return appearanceInfo }
func (AppearanceCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(2) }
func (AppearanceCodec) DeclaredProperties() gatt.Properties { return gatt.PropRead }

func (AppearanceCodec) DecodeValue(raw []byte, _ *gatt.Context) (Appearance, []gatt.ParseFieldError) {
	code := binary.LittleEndian.Uint16(raw)
	category, sub, known := bledb.LookupAppearance(code)
	out := Appearance{Code: code, Category: category, Subcategory: sub}
	if category == "" {
		return out, []gatt.ParseFieldError{
			gatt.FieldErrorAt("category", raw, 0, 2, fmt.Sprintf("unassigned appearance category %d", code>>6)),
		}
	}
	if !known {
		return out, []gatt.ParseFieldError{
			gatt.FieldErrorAt("subcategory", raw, 0, 1, fmt.Sprintf("unassigned %s subcategory %d", category, code&0x3F)),
		}
	}
	return out, nil
}

// EncodeValue writes Code; the names are informational only.
func (AppearanceCodec) EncodeValue(a Appearance) ([]byte, error) {
	return binary.LittleEndian.AppendUint16(nil, a.Code), nil
}
