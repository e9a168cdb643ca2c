package characteristics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/numeric"
)

// decode runs the full length gate + codec path and requires the gate to pass.
func decode[T any](t *testing.T, codec gatt.TypedCodec[T], raw []byte, ctx *gatt.Context) (T, []gatt.ParseFieldError) {
	t.Helper()
	value, fieldErrs, err := gatt.Decode(gatt.Erase(codec), raw, ctx)
	require.NoError(t, err)
	return value.(T), fieldErrs
}

func fieldNames(errs []gatt.ParseFieldError) []string {
	var names []string
	for _, e := range errs {
		names = append(names, e.Field)
	}
	return names
}

func ptr[T any](v T) *T { return &v }

func TestRegistrationsTable(t *testing.T) {
	seen := make(map[gatt.UUID]bool)
	names := make(map[Name]bool)
	for _, reg := range Registrations() {
		require.False(t, seen[reg.UUID], "duplicate UUID %s", reg.UUID.ShortString())
		require.False(t, names[reg.Name], "duplicate name %s", reg.Name)
		seen[reg.UUID] = true
		names[reg.Name] = true

		codec := reg.New()
		require.NotNil(t, codec)
		assert.Equal(t, reg.UUID, codec.Info().UUID)
		assert.Equal(t, gatt.KindCharacteristic, codec.Info().Kind)
		assert.Contains(t, codec.Info().ID, string(reg.Name), "enum name follows the SIG identifier")
	}

	r := NewRegistry(nil)
	bp, ok := r.CreateInstance(gatt.UUID16(0x2A35))
	require.True(t, ok)
	dep, ok := bp.(gatt.Dependent)
	require.True(t, ok, "blood pressure measurement declares its feature dependency")
	assert.Equal(t, []gatt.UUID{gatt.UUID16(0x2A49)}, dep.RequiredDependencies())
}

func TestBatteryLevel(t *testing.T) {
	// GOAL: Verify the 1-byte battery level gate, the 0..100 domain, and fail-closed encoding
	//
	// TEST SCENARIO: 0 bytes → gate error; 0x64 → 100; 0x65 → field error; encode 101 → rejected
	codec := gatt.Erase[uint8](BatteryLevelCodec{})

	_, _, err := gatt.Decode(codec, []byte{}, nil)
	assert.ErrorIs(t, err, gatt.ErrInsufficientData)
	_, _, err = gatt.Decode(codec, []byte{1, 2}, nil)
	assert.ErrorIs(t, err, gatt.ErrInsufficientData)

	level, errs := decode[uint8](t, BatteryLevelCodec{}, []byte{0x64}, nil)
	assert.Equal(t, uint8(100), level)
	assert.Empty(t, errs)

	level, errs = decode[uint8](t, BatteryLevelCodec{}, []byte{0x65}, nil)
	assert.Equal(t, uint8(0), level)
	assert.Equal(t, []string{"level"}, fieldNames(errs))

	_, err = gatt.Encode(codec, uint8(101))
	assert.ErrorIs(t, err, gatt.ErrOutOfDomain)

	for v := 0; v <= 100; v++ {
		raw, err := BatteryLevelCodec{}.EncodeValue(uint8(v))
		require.NoError(t, err)
		back, errs := decode[uint8](t, BatteryLevelCodec{}, raw, nil)
		require.Empty(t, errs)
		require.Equal(t, uint8(v), back)
	}
}

func TestHeartRateMeasurement(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		expected HeartRateMeasurement
		errs     []string
	}{
		{
			name:     "uint8 heart rate only",
			raw:      []byte{0x00, 0x48},
			expected: HeartRateMeasurement{HeartRate: 72},
		},
		{
			name:     "uint16 heart rate with contact detected",
			raw:      []byte{0x07, 0x2C, 0x01},
			expected: HeartRateMeasurement{HeartRate: 300, SensorContact: ContactDetected},
		},
		{
			name:     "energy expended",
			raw:      []byte{0x08, 0x48, 0x10, 0x00},
			expected: HeartRateMeasurement{HeartRate: 72, EnergyExpended: ptr[uint16](16)},
		},
		{
			name:     "rr intervals",
			raw:      []byte{0x16, 0x48, 0x00, 0x04, 0x00, 0x02},
			expected: HeartRateMeasurement{HeartRate: 72, SensorContact: ContactDetected, RRIntervals: []float64{1.0, 0.5}},
		},
		{
			name:     "uint16 flag with truncated value",
			raw:      []byte{0x01, 0x48},
			expected: HeartRateMeasurement{},
			errs:     []string{"heart_rate"},
		},
		{
			name:     "truncated energy keeps heart rate",
			raw:      []byte{0x08, 0x48, 0x10},
			expected: HeartRateMeasurement{HeartRate: 72},
			errs:     []string{"energy_expended"},
		},
		{
			name:     "odd rr byte",
			raw:      []byte{0x10, 0x48, 0x00, 0x04, 0x01},
			expected: HeartRateMeasurement{HeartRate: 72, RRIntervals: []float64{1.0}},
			errs:     []string{"rr_interval"},
		},
		{
			name:     "trailing bytes without rr flag",
			raw:      []byte{0x00, 0x48, 0xAA},
			expected: HeartRateMeasurement{HeartRate: 72},
			errs:     []string{"trailing"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := decode[HeartRateMeasurement](t, HeartRateMeasurementCodec{}, tt.raw, nil)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.errs, fieldNames(errs))
		})
	}

	t.Run("location from context", func(t *testing.T) {
		ctx := &gatt.Context{}
		ctx.WithCharacteristic(&gatt.CharacteristicData{
			Info:         bodySensorLocationInfo,
			Value:        LocationChest,
			ParseSuccess: true,
		})
		got, errs := decode[HeartRateMeasurement](t, HeartRateMeasurementCodec{}, []byte{0x00, 0x48}, ctx)
		assert.Empty(t, errs)
		require.NotNil(t, got.Location)
		assert.Equal(t, LocationChest, *got.Location)
	})

	t.Run("round trip", func(t *testing.T) {
		in := HeartRateMeasurement{
			HeartRate:      312,
			SensorContact:  ContactNotDetected,
			EnergyExpended: ptr[uint16](900),
			RRIntervals:    []float64{0.75, 0.8125},
		}
		raw, err := HeartRateMeasurementCodec{}.EncodeValue(in)
		require.NoError(t, err)
		out, errs := decode[HeartRateMeasurement](t, HeartRateMeasurementCodec{}, raw, nil)
		assert.Empty(t, errs)
		assert.Equal(t, in, out)

		_, err = HeartRateMeasurementCodec{}.EncodeValue(HeartRateMeasurement{HeartRate: 60, RRIntervals: []float64{-1}})
		assert.ErrorIs(t, err, gatt.ErrOutOfDomain)
	})
}

func TestTemperatureMeasurement(t *testing.T) {
	// 36.6 as FLOAT: mantissa 366, exponent -1
	body := []byte{0x6E, 0x01, 0x00, 0xFF}

	t.Run("celsius value only", func(t *testing.T) {
		got, errs := decode[TemperatureMeasurement](t, TemperatureMeasurementCodec{}, append([]byte{0x00}, body...), nil)
		assert.Empty(t, errs)
		v, ok := got.Value.Float64()
		require.True(t, ok)
		assert.InDelta(t, 36.6, v, 1e-9)
		assert.Equal(t, Celsius, got.Unit)
		assert.Nil(t, got.Timestamp)
	})

	t.Run("timestamp and type", func(t *testing.T) {
		raw := append([]byte{0x07}, body...)
		raw = append(raw, 0xE8, 0x07, 10, 17, 8, 15, 0, byte(TemperatureTypeEar))
		got, errs := decode[TemperatureMeasurement](t, TemperatureMeasurementCodec{}, raw, nil)
		assert.Empty(t, errs)
		assert.Equal(t, Fahrenheit, got.Unit)
		require.NotNil(t, got.Timestamp)
		assert.Equal(t, "2024-10-17 08:15:00", got.Timestamp.String())
		assert.Equal(t, TemperatureTypeEar, got.Type)
	})

	t.Run("nan sentinel", func(t *testing.T) {
		got, errs := decode[TemperatureMeasurement](t, TemperatureMeasurementCodec{}, []byte{0x00, 0xFF, 0xFF, 0x7F, 0x00}, nil)
		assert.Empty(t, errs)
		assert.Equal(t, numeric.NaN, got.Value.Special)
	})

	t.Run("reserved value", func(t *testing.T) {
		got, errs := decode[TemperatureMeasurement](t, TemperatureMeasurementCodec{}, []byte{0x00, 0x01, 0x00, 0x80, 0x00}, nil)
		require.Equal(t, []string{"temperature"}, fieldNames(errs))
		assert.Contains(t, errs[0].Error(), "reserved FLOAT value")
		assert.Equal(t, numeric.NaN, got.Value.Special)

		_, err := TemperatureMeasurementCodec{}.EncodeValue(got)
		assert.NoError(t, err, "decoded output encodes again")
	})

	t.Run("type from context when absent in payload", func(t *testing.T) {
		ctx := &gatt.Context{}
		ctx.WithCharacteristic(&gatt.CharacteristicData{Info: temperatureTypeInfo, Value: TemperatureTypeMouth, ParseSuccess: true})
		got, _ := decode[TemperatureMeasurement](t, TemperatureMeasurementCodec{}, append([]byte{0x00}, body...), ctx)
		assert.Equal(t, TemperatureTypeMouth, got.Type)
	})

	t.Run("reserved type", func(t *testing.T) {
		raw := append(append([]byte{0x04}, body...), 0x0A)
		got, errs := decode[TemperatureMeasurement](t, TemperatureMeasurementCodec{}, raw, nil)
		assert.Equal(t, []string{"temperature_type"}, fieldNames(errs))
		assert.Equal(t, TemperatureTypeNone, got.Type)
	})

	t.Run("round trip", func(t *testing.T) {
		ts := DateTimeFrom(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
		in := TemperatureMeasurement{Value: numeric.FiniteValue(98.6), Unit: Fahrenheit, Timestamp: &ts, Type: TemperatureTypeFinger}
		raw, err := TemperatureMeasurementCodec{}.EncodeValue(in)
		require.NoError(t, err)
		assert.Len(t, raw, 13)
		out, errs := decode[TemperatureMeasurement](t, TemperatureMeasurementCodec{}, raw, nil)
		assert.Empty(t, errs)
		v, _ := out.Value.Float64()
		assert.InDelta(t, 98.6, v, 1e-9)
		assert.Equal(t, in.Timestamp, out.Timestamp)
		assert.Equal(t, in.Type, out.Type)
	})
}

func TestBloodPressureMeasurement(t *testing.T) {
	// flags: status present; 120 / 80 / 93 mmHg; status: body movement detected
	raw := []byte{0x10, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00, 0x01, 0x00}

	feature := func(f BloodPressureFeature) *gatt.Context {
		ctx := &gatt.Context{}
		ctx.WithCharacteristic(&gatt.CharacteristicData{Info: bloodPressureFeatureInfo, Value: f, ParseSuccess: true})
		return ctx
	}

	t.Run("without feature", func(t *testing.T) {
		got, errs := decode[BloodPressureMeasurement](t, BloodPressureMeasurementCodec{}, raw, nil)
		assert.Empty(t, errs)
		v, _ := got.Systolic.Float64()
		assert.Equal(t, 120.0, v)
		v, _ = got.Diastolic.Float64()
		assert.Equal(t, 80.0, v)
		v, _ = got.MeanArterialPressure.Float64()
		assert.Equal(t, 93.0, v)
		require.NotNil(t, got.Status)
		assert.False(t, got.Status.FeatureKnown)
		assert.Equal(t, ptr(true), got.Status.BodyMovement)
		assert.Equal(t, ptr(false), got.Status.CuffTooLoose)
	})

	t.Run("supported status bit", func(t *testing.T) {
		got, errs := decode[BloodPressureMeasurement](t, BloodPressureMeasurementCodec{}, raw, feature(FeatureBodyMovement))
		assert.Empty(t, errs)
		assert.True(t, got.Status.FeatureKnown)
		assert.Equal(t, ptr(true), got.Status.BodyMovement)
		assert.Nil(t, got.Status.CuffTooLoose, "unsupported checks are not reported")
	})

	t.Run("status bit the feature does not declare", func(t *testing.T) {
		got, errs := decode[BloodPressureMeasurement](t, BloodPressureMeasurementCodec{}, raw, feature(FeatureCuffFit))
		assert.Equal(t, []string{"status.body_movement"}, fieldNames(errs))
		assert.Nil(t, got.Status.BodyMovement)
		assert.Equal(t, ptr(false), got.Status.CuffTooLoose)
	})

	t.Run("failed feature is ignored", func(t *testing.T) {
		ctx := &gatt.Context{}
		ctx.WithCharacteristic(&gatt.CharacteristicData{Info: bloodPressureFeatureInfo, Value: FeatureCuffFit})
		got, errs := decode[BloodPressureMeasurement](t, BloodPressureMeasurementCodec{}, raw, ctx)
		assert.Empty(t, errs)
		assert.False(t, got.Status.FeatureKnown)
	})

	t.Run("truncated optional block", func(t *testing.T) {
		// pulse rate flagged but only one byte left
		got, errs := decode[BloodPressureMeasurement](t, BloodPressureMeasurementCodec{}, []byte{0x04, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00, 0x48}, nil)
		assert.Equal(t, []string{"pulse_rate"}, fieldNames(errs))
		assert.Nil(t, got.PulseRate)
		v, _ := got.Systolic.Float64()
		assert.Equal(t, 120.0, v)
	})

	reserved := []struct {
		name   string
		raw    []byte
		fields []string
	}{
		{
			name:   "reserved systolic",
			raw:    []byte{0x00, 0x01, 0x08, 0x50, 0x00, 0x5A, 0x00},
			fields: []string{"systolic"},
		},
		{
			name:   "reserved pulse rate",
			raw:    []byte{0x04, 0x78, 0x00, 0x50, 0x00, 0x5D, 0x00, 0x01, 0x08},
			fields: []string{"pulse_rate"},
		},
	}
	for _, tt := range reserved {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := decode[BloodPressureMeasurement](t, BloodPressureMeasurementCodec{}, tt.raw, nil)
			require.Equal(t, tt.fields, fieldNames(errs))
			assert.Contains(t, errs[0].Error(), "reserved SFLOAT value")
			assert.NotEqual(t, numeric.Reserved, got.Systolic.Special)
			assert.Nil(t, got.PulseRate)
			v, _ := got.Diastolic.Float64()
			assert.Equal(t, 80.0, v)

			_, err := BloodPressureMeasurementCodec{}.EncodeValue(got)
			assert.NoError(t, err, "decoded output encodes again")
		})
	}

	t.Run("round trip", func(t *testing.T) {
		ts := DateTimeFrom(time.Date(2024, 10, 17, 9, 0, 0, 0, time.UTC))
		in := BloodPressureMeasurement{
			Systolic:             numeric.FiniteValue(16.1),
			Diastolic:            numeric.FiniteValue(10.7),
			MeanArterialPressure: numeric.NoValue(),
			Unit:                 KPa,
			Timestamp:            &ts,
			PulseRate:            ptr(numeric.FiniteValue(64)),
			UserID:               ptr[uint8](0xFF),
			Status:               &MeasurementStatus{Raw: 0x0004},
		}
		raw, err := BloodPressureMeasurementCodec{}.EncodeValue(in)
		require.NoError(t, err)
		assert.Len(t, raw, 19)

		out, errs := decode[BloodPressureMeasurement](t, BloodPressureMeasurementCodec{}, raw, feature(FeatureIrregularPulse))
		assert.Empty(t, errs)
		v, _ := out.Systolic.Float64()
		assert.InDelta(t, 16.1, v, 1e-9)
		assert.Equal(t, numeric.NaN, out.MeanArterialPressure.Special)
		assert.Equal(t, KPa, out.Unit)
		assert.Equal(t, ptr(true), out.Status.IrregularPulse)
		assert.Equal(t, uint8(0xFF), *out.UserID)
	})
}

func TestBloodPressureFeature(t *testing.T) {
	f, errs := decode[BloodPressureFeature](t, BloodPressureFeatureCodec{}, []byte{0x05, 0x00}, nil)
	assert.Empty(t, errs)
	assert.True(t, f.Supports(FeatureBodyMovement|FeatureIrregularPulse))
	assert.False(t, f.Supports(FeatureCuffFit))

	f, errs = decode[BloodPressureFeature](t, BloodPressureFeatureCodec{}, []byte{0x41, 0x00}, nil)
	assert.Equal(t, []string{"features"}, fieldNames(errs))
	assert.Equal(t, FeatureBodyMovement, f)

	_, err := BloodPressureFeatureCodec{}.EncodeValue(0x0040)
	assert.ErrorIs(t, err, gatt.ErrOutOfDomain)
}

func TestReadings(t *testing.T) {
	tests := []struct {
		name     string
		codec    ScaledCodec
		raw      []byte
		expected Reading
		errs     []string
	}{
		{"temperature", NewTemperature(), []byte{0x0A, 0x09}, Reading{Value: 23.14, Unit: "°C", Known: true}, nil},
		{"negative temperature", NewTemperature(), []byte{0x18, 0xFC}, Reading{Value: -10, Unit: "°C", Known: true}, nil},
		{"temperature unknown", NewTemperature(), []byte{0x00, 0x80}, Reading{Unit: "°C"}, nil},
		{"temperature below absolute zero", NewTemperature(), []byte{0xD0, 0x8A}, Reading{Unit: "°C"}, []string{"temperature"}},
		{"humidity", NewHumidity(), []byte{0x88, 0x13}, Reading{Value: 50, Unit: "%", Known: true}, nil},
		{"humidity over 100", NewHumidity(), []byte{0x11, 0x27}, Reading{Unit: "%"}, []string{"humidity"}},
		{"electric current", NewElectricCurrent(), []byte{0xE8, 0x03}, Reading{Value: 10, Unit: "A", Known: true}, nil},
		{"electric current unknown", NewElectricCurrent(), []byte{0xFF, 0xFF}, Reading{Unit: "A"}, nil},
		{"pressure", NewPressure(), []byte{0x02, 0x76, 0x0F, 0x00}, Reading{Value: 101325, Unit: "Pa", Known: true}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := decode[Reading](t, tt.codec, tt.raw, nil)
			assert.Equal(t, tt.errs, fieldNames(errs))
			assert.Equal(t, tt.expected.Known, got.Known)
			assert.Equal(t, tt.expected.Unit, got.Unit)
			assert.InDelta(t, tt.expected.Value, got.Value, 1e-9)
		})
	}

	t.Run("encode fails closed", func(t *testing.T) {
		_, err := NewHumidity().EncodeValue(Reading{Value: 100.5, Known: true})
		assert.ErrorIs(t, err, gatt.ErrOutOfDomain)
		_, err = NewPressure().EncodeValue(UnknownReading())
		assert.ErrorIs(t, err, gatt.ErrOutOfDomain, "pressure has no unknown sentinel")

		raw, err := NewElectricCurrent().EncodeValue(UnknownReading())
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xFF}, raw)
	})

	t.Run("round trip at 0.01 resolution", func(t *testing.T) {
		codec := NewElectricCurrent()
		for _, v := range []float64{0, 0.01, 1.5, 327.68, 655.34} {
			raw, err := codec.EncodeValue(Reading{Value: v, Known: true})
			require.NoError(t, err)
			back, errs := decode[Reading](t, codec, raw, nil)
			require.Empty(t, errs)
			assert.InDelta(t, v, back.Value, 0.005)
		}
	})
}

func TestDateTime(t *testing.T) {
	got, errs := decode[DateTime](t, DateTimeCodec{}, []byte{0xE8, 0x07, 10, 17, 12, 30, 5}, nil)
	assert.Empty(t, errs)
	ts, ok := got.Time()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 17, 12, 30, 5, 0, time.UTC), ts)

	got, errs = decode[DateTime](t, DateTimeCodec{}, []byte{0x00, 0x00, 13, 0, 24, 0, 0}, nil)
	assert.Equal(t, []string{"month", "hours"}, fieldNames(errs))
	assert.Equal(t, DateTime{}, got)
	_, ok = got.Time()
	assert.False(t, ok)

	_, err := DateTimeCodec{}.EncodeValue(DateTime{Year: 2024, Month: 2, Day: 1, Minutes: 60})
	assert.ErrorIs(t, err, gatt.ErrOutOfDomain)
}

func TestEnumsAndText(t *testing.T) {
	loc, errs := decode[BodySensorLocation](t, BodySensorLocationCodec{}, []byte{0x01}, nil)
	assert.Empty(t, errs)
	assert.Equal(t, LocationChest, loc)

	loc, errs = decode[BodySensorLocation](t, BodySensorLocationCodec{}, []byte{0x07}, nil)
	assert.Equal(t, []string{"location"}, fieldNames(errs))
	assert.Equal(t, LocationUnknown, loc)
	_, err := BodySensorLocationCodec{}.EncodeValue(LocationUnknown)
	assert.ErrorIs(t, err, gatt.ErrOutOfDomain)

	app, errs := decode[Appearance](t, AppearanceCodec{}, []byte{0x41, 0x03}, nil)
	assert.Empty(t, errs)
	assert.Equal(t, "Heart Rate Belt (Heart Rate Sensor)", app.String())

	name, errs := decode[string](t, NewDeviceName(), []byte("Polar H10\x00\x00"), nil)
	assert.Empty(t, errs)
	assert.Equal(t, "Polar H10", name)

	name, errs = decode[string](t, NewManufacturerName(), []byte{'A', 0xFF, 'B'}, nil)
	require.Len(t, errs, 1)
	assert.Equal(t, 1, errs[0].Offset)
	assert.Equal(t, "A�B", name)

	empty, errs := decode[string](t, NewDeviceName(), nil, nil)
	assert.Empty(t, errs)
	assert.Equal(t, "", empty)

	_, err = NewDeviceName().EncodeValue(string(make([]byte, 249)))
	assert.ErrorIs(t, err, gatt.ErrOutOfDomain)
}
