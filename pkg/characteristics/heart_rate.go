package characteristics

import (
	"fmt"
	"math"

	"github.com/srg/gattkit/pkg/bits"
	"github.com/srg/gattkit/pkg/gatt"
)

var heartRateMeasurementInfo = info(0x2A37)

// Heart Rate Measurement flag bits.
const (
	hrFlagUint16         = 0
	hrFlagContactStart   = 1
	hrFlagContactWidth   = 2
	hrFlagEnergyExpended = 3
	hrFlagRRIntervals    = 4

	// RR-intervals are in units of 1/1024 s.
	rrResolution = 1.0 / 1024
)

// SensorContact is the two-bit sensor contact status.
type SensorContact uint8

const (
	ContactNotSupported SensorContact = iota
	contactNotSupportedAlt
	ContactNotDetected
	ContactDetected
)

func (c SensorContact) String() string {
	switch c {
	case ContactNotDetected:
		return "not detected"
	case ContactDetected:
		return "detected"
	default:
		return "not supported"
	}
}

// MarshalText renders the status.
func (c SensorContact) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// HeartRateMeasurement is the decoded 2A37 notification.
type HeartRateMeasurement struct {
	HeartRate     uint16        `json:"heart_rate"`
	SensorContact SensorContact `json:"sensor_contact"`
	// EnergyExpended is in kilojoules; nil when not present.
	EnergyExpended *uint16 `json:"energy_expended,omitempty"`
	// RRIntervals are in seconds.
	RRIntervals []float64 `json:"rr_intervals,omitempty"`
	// Location is filled from a Body Sensor Location read in the same batch.
	Location *BodySensorLocation `json:"location,omitempty"`
}

// HeartRateMeasurementCodec is the Heart Rate Measurement characteristic.
// Body Sensor Location is an optional dependency.
type HeartRateMeasurementCodec struct{}

func (HeartRateMeasurementCodec) Info() gatt.Info { return heartRateMeasurementInfo }

func (HeartRateMeasurementCodec) Constraints() gatt.LengthConstraints {
	return gatt.Variable(2, 0)
}

func (HeartRateMeasurementCodec) DeclaredProperties() gatt.Properties { return gatt.PropNotify }

func (HeartRateMeasurementCodec) RequiredDependencies() []gatt.UUID { return nil }

func (HeartRateMeasurementCodec) OptionalDependencies() []gatt.UUID {
	return []gatt.UUID{bodySensorLocationInfo.UUID}
}

func (HeartRateMeasurementCodec) DecodeValue(raw []byte, ctx *gatt.Context) (HeartRateMeasurement, []gatt.ParseFieldError) {
	r := newFieldReader(raw)
	flags, _ := r.uint8("flags")

	var m HeartRateMeasurement
	if bits.Test(flags, hrFlagUint16) {
		m.HeartRate, _ = r.uint16("heart_rate")
	} else {
		hr, _ := r.uint8("heart_rate")
		m.HeartRate = uint16(hr)
	}
	m.SensorContact = SensorContact(bits.Extract(flags, hrFlagContactStart, hrFlagContactWidth))
	if m.SensorContact == contactNotSupportedAlt {
		m.SensorContact = ContactNotSupported
	}

	if bits.Test(flags, hrFlagEnergyExpended) {
		if energy, ok := r.uint16("energy_expended"); ok {
			m.EnergyExpended = &energy
		}
	}

	if bits.Test(flags, hrFlagRRIntervals) {
		for r.remaining() >= 2 {
			rr, _ := r.uint16("rr_interval")
			m.RRIntervals = append(m.RRIntervals, float64(rr)*rrResolution)
		}
		if r.remaining() == 1 {
			r.fail("rr_interval", r.off, 1, "odd trailing byte in RR-interval list")
			r.off = len(raw)
		}
	}
	r.trailing()

	if loc, ok := gatt.DependencyValue[BodySensorLocation](ctx, bodySensorLocationInfo.UUID); ok {
		m.Location = &loc
	}
	return m, r.errs
}

func (HeartRateMeasurementCodec) EncodeValue(m HeartRateMeasurement) ([]byte, error) {
	var flags uint8
	if m.HeartRate > math.MaxUint8 {
		flags = bits.SetBit(flags, hrFlagUint16)
	}
	switch m.SensorContact {
	case ContactNotSupported, ContactNotDetected, ContactDetected:
		flags = bits.Set(flags, uint8(m.SensorContact), hrFlagContactStart, hrFlagContactWidth)
	default:
		return nil, &gatt.EncodeError{Info: heartRateMeasurementInfo, Field: "sensor_contact", Value: m.SensorContact, Reason: "unknown contact status"}
	}
	flags = bits.Assign(flags, hrFlagEnergyExpended, m.EnergyExpended != nil)
	flags = bits.Assign(flags, hrFlagRRIntervals, len(m.RRIntervals) > 0)

	w := &fieldWriter{}
	w.uint8(flags)
	if bits.Test(flags, hrFlagUint16) {
		w.uint16(m.HeartRate)
	} else {
		w.uint8(uint8(m.HeartRate))
	}
	if m.EnergyExpended != nil {
		w.uint16(*m.EnergyExpended)
	}
	for i, rr := range m.RRIntervals {
		units := math.Round(rr / rrResolution)
		if math.IsNaN(units) || units < 0 || units > math.MaxUint16 {
			return nil, &gatt.EncodeError{
				Info:   heartRateMeasurementInfo,
				Field:  fmt.Sprintf("rr_intervals[%d]", i),
				Value:  rr,
				Reason: "must be 0..63.999 s",
			}
		}
		w.uint16(uint16(units))
	}
	return w.bytes(), nil
}
