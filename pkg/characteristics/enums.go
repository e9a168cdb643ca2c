package characteristics

import (
	"fmt"

	"github.com/srg/gattkit/pkg/gatt"
)

var (
	bodySensorLocationInfo = info(0x2A38)
	temperatureTypeInfo    = info(0x2A1D)
)

// BodySensorLocation is the heart-rate sensor position.
type BodySensorLocation uint8

const (
	LocationOther BodySensorLocation = iota
	LocationChest
	LocationWrist
	LocationFinger
	LocationHand
	LocationEarLobe
	LocationFoot
	// LocationUnknown is what a reserved code decodes to. It is not encodable.
	LocationUnknown BodySensorLocation = 0xFF
)

var bodySensorLocationNames = map[BodySensorLocation]string{
	LocationOther:   "Other",
	LocationChest:   "Chest",
	LocationWrist:   "Wrist",
	LocationFinger:  "Finger",
	LocationHand:    "Hand",
	LocationEarLobe: "Ear Lobe",
	LocationFoot:    "Foot",
	LocationUnknown: "Unknown",
}

func (l BodySensorLocation) String() string {
	if name, ok := bodySensorLocationNames[l]; ok {
		return name
	}
	return fmt.Sprintf("Reserved(%d)", uint8(l))
}

// MarshalText renders the location name.
func (l BodySensorLocation) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// BodySensorLocationCodec is the Body Sensor Location characteristic.
type BodySensorLocationCodec struct{}

func (BodySensorLocationCodec) Info() gatt.Info                     { return bodySensorLocationInfo }
func (BodySensorLocationCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(1) }
func (BodySensorLocationCodec) DeclaredProperties() gatt.Properties { return gatt.PropRead }

func (BodySensorLocationCodec) DecodeValue(raw []byte, _ *gatt.Context) (BodySensorLocation, []gatt.ParseFieldError) {
	loc := BodySensorLocation(raw[0])
	if loc > LocationFoot {
		return LocationUnknown, []gatt.ParseFieldError{
			gatt.FieldErrorAt("location", raw, 0, 1, fmt.Sprintf("reserved location code %d", raw[0])),
		}
	}
	return loc, nil
}

func (BodySensorLocationCodec) EncodeValue(loc BodySensorLocation) ([]byte, error) {
	if loc > LocationFoot {
		return nil, &gatt.EncodeError{Info: bodySensorLocationInfo, Field: "location", Value: loc, Reason: "reserved location code"}
	}
	return []byte{byte(loc)}, nil
}

// TemperatureType is where a temperature was taken. Zero is reserved and
// doubles as "not given".
type TemperatureType uint8

const (
	TemperatureTypeNone TemperatureType = iota
	TemperatureTypeArmpit
	TemperatureTypeBody
	TemperatureTypeEar
	TemperatureTypeFinger
	TemperatureTypeGastroIntestinal
	TemperatureTypeMouth
	TemperatureTypeRectum
	TemperatureTypeToe
	TemperatureTypeTympanum
)

var temperatureTypeNames = []string{
	"", "Armpit", "Body (general)", "Ear (usually earlobe)", "Finger", "Gastro-intestinal Tract",
	"Mouth", "Rectum", "Toe", "Tympanum (ear drum)",
}

func (t TemperatureType) valid() bool {
	return t >= TemperatureTypeArmpit && t <= TemperatureTypeTympanum
}

func (t TemperatureType) String() string {
	if t.valid() {
		return temperatureTypeNames[t]
	}
	return fmt.Sprintf("Reserved(%d)", uint8(t))
}

// MarshalText renders the type name.
func (t TemperatureType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func decodeTemperatureType(raw []byte, offset int) (TemperatureType, []gatt.ParseFieldError) {
	t := TemperatureType(raw[offset])
	if !t.valid() {
		return TemperatureTypeNone, []gatt.ParseFieldError{
			gatt.FieldErrorAt("temperature_type", raw, offset, 1, fmt.Sprintf("reserved temperature type %d", raw[offset])),
		}
	}
	return t, nil
}

// TemperatureTypeCodec is the Temperature Type characteristic.
type TemperatureTypeCodec struct{}

func (TemperatureTypeCodec) Info() gatt.Info                     { return temperatureTypeInfo }
func (TemperatureTypeCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(1) }

func (TemperatureTypeCodec) DecodeValue(raw []byte, _ *gatt.Context) (TemperatureType, []gatt.ParseFieldError) {
	return decodeTemperatureType(raw, 0)
}

func (TemperatureTypeCodec) EncodeValue(t TemperatureType) ([]byte, error) {
	if !t.valid() {
		return nil, &gatt.EncodeError{Info: temperatureTypeInfo, Field: "temperature_type", Value: uint8(t), Reason: "reserved temperature type"}
	}
	return []byte{byte(t)}, nil
}
