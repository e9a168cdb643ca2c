package characteristics

import (
	"fmt"

	"github.com/srg/gattkit/pkg/gatt"
)

var batteryLevelInfo = info(0x2A19)

// BatteryLevelCodec decodes the 0-100 % battery level.
// Levels above 100 are prohibited and decode as 0 with a field error.
type BatteryLevelCodec struct{}

func (BatteryLevelCodec) Info() gatt.Info                     { return batteryLevelInfo }
func (BatteryLevelCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(1) }
func (BatteryLevelCodec) DeclaredProperties() gatt.Properties { return gatt.PropRead | gatt.PropNotify }

func (BatteryLevelCodec) DecodeValue(raw []byte, _ *gatt.Context) (uint8, []gatt.ParseFieldError) {
	if raw[0] > 100 {
		return 0, []gatt.ParseFieldError{
			gatt.FieldErrorAt("level", raw, 0, 1, fmt.Sprintf("%d %% exceeds 100 %%", raw[0])),
		}
	}
	return raw[0], nil
}

func (BatteryLevelCodec) EncodeValue(level uint8) ([]byte, error) {
	if level > 100 {
		return nil, &gatt.EncodeError{Info: batteryLevelInfo, Field: "level", Value: level, Reason: "must be 0..100"}
	}
	return []byte{level}, nil
}
