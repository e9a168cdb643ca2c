package characteristics

import (
	"github.com/srg/gattkit/pkg/bits"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/numeric"
)

var temperatureMeasurementInfo = info(0x2A1C)

const (
	tmFlagFahrenheit = 0
	tmFlagTimestamp  = 1
	tmFlagType       = 2
)

// TemperatureUnit is the unit a Temperature Measurement is expressed in.
type TemperatureUnit uint8

const (
	Celsius TemperatureUnit = iota
	Fahrenheit
)

func (u TemperatureUnit) String() string {
	if u == Fahrenheit {
		return "°F"
	}
	return "°C"
}

// MarshalText renders the unit symbol.
func (u TemperatureUnit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// TemperatureMeasurement is the decoded 2A1C indication.
type TemperatureMeasurement struct {
	Value     numeric.MedFloat `json:"value"`
	Unit      TemperatureUnit  `json:"unit"`
	Timestamp *DateTime        `json:"timestamp,omitempty"`
	// Type comes from the payload when present, otherwise from a Temperature
	// Type characteristic in the same batch.
	Type TemperatureType `json:"type,omitempty"`
}

// TemperatureMeasurementCodec is the Temperature Measurement characteristic
// (IEEE-11073 FLOAT value).
type TemperatureMeasurementCodec struct{}

func (TemperatureMeasurementCodec) Info() gatt.Info { return temperatureMeasurementInfo }

func (TemperatureMeasurementCodec) Constraints() gatt.LengthConstraints {
	return gatt.Variable(5, 13)
}

func (TemperatureMeasurementCodec) DeclaredProperties() gatt.Properties { return gatt.PropIndicate }

func (TemperatureMeasurementCodec) RequiredDependencies() []gatt.UUID { return nil }

func (TemperatureMeasurementCodec) OptionalDependencies() []gatt.UUID {
	return []gatt.UUID{temperatureTypeInfo.UUID}
}

func (TemperatureMeasurementCodec) DecodeValue(raw []byte, ctx *gatt.Context) (TemperatureMeasurement, []gatt.ParseFieldError) {
	r := newFieldReader(raw)
	flags, _ := r.uint8("flags")

	var m TemperatureMeasurement
	m.Value, _ = r.float("temperature")
	if bits.Test(flags, tmFlagFahrenheit) {
		m.Unit = Fahrenheit
	}

	if bits.Test(flags, tmFlagTimestamp) {
		start := r.off
		if _, ok := r.take("timestamp", 7); ok {
			ts, errs := decodeDateTime(raw, start, "timestamp.")
			m.Timestamp = &ts
			r.errs = append(r.errs, errs...)
		}
	}

	if bits.Test(flags, tmFlagType) {
		start := r.off
		if _, ok := r.take("temperature_type", 1); ok {
			t, errs := decodeTemperatureType(raw, start)
			m.Type = t
			r.errs = append(r.errs, errs...)
		}
	} else if t, ok := gatt.DependencyValue[TemperatureType](ctx, temperatureTypeInfo.UUID); ok {
		m.Type = t
	}
	r.trailing()

	return m, r.errs
}

func (TemperatureMeasurementCodec) EncodeValue(m TemperatureMeasurement) ([]byte, error) {
	var flags uint8
	flags = bits.Assign(flags, tmFlagFahrenheit, m.Unit == Fahrenheit)
	flags = bits.Assign(flags, tmFlagTimestamp, m.Timestamp != nil)
	flags = bits.Assign(flags, tmFlagType, m.Type != TemperatureTypeNone)

	w := &fieldWriter{}
	w.uint8(flags)
	if err := w.float(temperatureMeasurementInfo, "temperature", m.Value); err != nil {
		return nil, err
	}
	if m.Timestamp != nil {
		ts, err := encodeDateTime(temperatureMeasurementInfo, "timestamp.", *m.Timestamp)
		if err != nil {
			return nil, err
		}
		w.buf = append(w.buf, ts...)
	}
	if m.Type != TemperatureTypeNone {
		if !m.Type.valid() {
			return nil, &gatt.EncodeError{Info: temperatureMeasurementInfo, Field: "temperature_type", Value: uint8(m.Type), Reason: "reserved temperature type"}
		}
		w.uint8(uint8(m.Type))
	}
	return w.bytes(), nil
}
