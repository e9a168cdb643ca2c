package characteristics

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/numeric"
)

// Reading is a scaled fixed-point measurement. Known is false when the
// peripheral sent the characteristic's "unknown" sentinel.
type Reading struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
	Known bool    `json:"known"`
}

// UnknownReading is the value that encodes as the sentinel.
func UnknownReading() Reading {
	return Reading{}
}

func (r Reading) String() string {
	if !r.Known {
		return "unknown"
	}
	if r.Unit == "" {
		return fmt.Sprintf("%g", r.Value)
	}
	return fmt.Sprintf("%g %s", r.Value, r.Unit)
}

// ScaledCodec decodes a single little-endian integer through a numeric.Scale.
type ScaledCodec struct {
	info  gatt.Info
	scale numeric.Scale
}

// NewTemperature is the Temperature characteristic: sint16, 0.01 °C,
// 0x8000 unknown.
func NewTemperature() ScaledCodec {
	return ScaledCodec{info: info(0x2A6E), scale: numeric.Scale{
		Name: "temperature", Resolution: 0.01, Min: -273.15, Max: 327.67,
		Bits: 16, Signed: true, HasUnknown: true, Unknown: -0x8000,
	}}
}

// NewHumidity is the Humidity characteristic: uint16, 0.01 %, 0xFFFF unknown.
func NewHumidity() ScaledCodec {
	return ScaledCodec{info: info(0x2A6F), scale: numeric.Scale{
		Name: "humidity", Resolution: 0.01, Min: 0, Max: 100,
		Bits: 16, HasUnknown: true, Unknown: 0xFFFF,
	}}
}

// NewElectricCurrent is the Electric Current characteristic: uint16, 0.01 A,
// 0xFFFF unknown.
func NewElectricCurrent() ScaledCodec {
	return ScaledCodec{info: info(0x2AEE), scale: numeric.Scale{
		Name: "electric_current", Resolution: 0.01, Min: 0, Max: 655.34,
		Bits: 16, HasUnknown: true, Unknown: 0xFFFF,
	}}
}

// NewPressure is the Pressure characteristic: uint32, 0.1 Pa, no sentinel.
func NewPressure() ScaledCodec {
	return ScaledCodec{info: info(0x2A6D), scale: numeric.Scale{
		Name: "pressure", Resolution: 0.1, Min: 0, Max: float64(math.MaxUint32) / 10,
		Bits: 32,
	}}
}

func (c ScaledCodec) Info() gatt.Info { return c.info }

func (c ScaledCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(c.scale.Bits / 8) }

func (c ScaledCodec) DeclaredProperties() gatt.Properties { return gatt.PropRead | gatt.PropNotify }

// Scale exposes the fixed-point parameters.
func (c ScaledCodec) Scale() numeric.Scale { return c.scale }

func (c ScaledCodec) rawValue(raw []byte) int64 {
	switch c.scale.Bits {
	case 8:
		if c.scale.Signed {
			return int64(int8(raw[0]))
		}
		return int64(raw[0])
	case 16:
		v := binary.LittleEndian.Uint16(raw)
		if c.scale.Signed {
			return int64(int16(v))
		}
		return int64(v)
	case 24:
		if c.scale.Signed {
			return int64(numeric.Int24(raw))
		}
		return int64(numeric.Uint24(raw))
	default:
		v := binary.LittleEndian.Uint32(raw)
		if c.scale.Signed {
			return int64(int32(v))
		}
		return int64(v)
	}
}

func (c ScaledCodec) putRaw(v int64) []byte {
	out := make([]byte, c.scale.Bits/8)
	switch c.scale.Bits {
	case 8:
		out[0] = byte(v)
	case 16:
		binary.LittleEndian.PutUint16(out, uint16(v))
	case 24:
		numeric.PutUint24(out, uint32(v))
	default:
		binary.LittleEndian.PutUint32(out, uint32(v))
	}
	return out
}

func (c ScaledCodec) DecodeValue(raw []byte, _ *gatt.Context) (Reading, []gatt.ParseFieldError) {
	v, err := c.scale.Decode(c.rawValue(raw))
	switch {
	case err == nil:
		return Reading{Value: v, Unit: c.info.Unit, Known: true}, nil
	case errors.Is(err, numeric.ErrUnknown):
		return Reading{Unit: c.info.Unit}, nil
	default:
		return Reading{Unit: c.info.Unit}, []gatt.ParseFieldError{
			gatt.FieldErrorAt(c.scale.Name, raw, 0, len(raw), err.Error()),
		}
	}
}

func (c ScaledCodec) EncodeValue(r Reading) ([]byte, error) {
	var (
		v   int64
		err error
	)
	if r.Known {
		v, err = c.scale.Encode(r.Value)
	} else {
		v, err = c.scale.EncodeUnknown()
	}
	if err != nil {
		return nil, &gatt.EncodeError{Info: c.info, Field: c.scale.Name, Value: r, Err: err}
	}
	return c.putRaw(v), nil
}
