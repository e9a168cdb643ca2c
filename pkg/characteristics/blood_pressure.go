package characteristics

import (
	"encoding/binary"
	"fmt"

	"github.com/srg/gattkit/pkg/bits"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/numeric"
)

var (
	bloodPressureFeatureInfo     = info(0x2A49)
	bloodPressureMeasurementInfo = info(0x2A35)
)

// BloodPressureFeature lists the measurement-status checks a monitor supports.
type BloodPressureFeature uint16

const (
	FeatureBodyMovement BloodPressureFeature = 1 << iota
	FeatureCuffFit
	FeatureIrregularPulse
	FeaturePulseRateRange
	FeatureMeasurementPosition
	FeatureMultipleBond
)

// Supports reports whether every bit of f2 is set.
func (f BloodPressureFeature) Supports(f2 BloodPressureFeature) bool {
	return f&f2 == f2
}

// BloodPressureFeatureCodec is the Blood Pressure Feature characteristic.
type BloodPressureFeatureCodec struct{}

func (BloodPressureFeatureCodec) Info() gatt.Info                     { return bloodPressureFeatureInfo }
func (BloodPressureFeatureCodec) Constraints() gatt.LengthConstraints { return gatt.Fixed(2) }
func (BloodPressureFeatureCodec) DeclaredProperties() gatt.Properties { return gatt.PropRead }

func (BloodPressureFeatureCodec) DecodeValue(raw []byte, _ *gatt.Context) (BloodPressureFeature, []gatt.ParseFieldError) {
	v := binary.LittleEndian.Uint16(raw)
	if reserved := bits.Extract(v, 6, 10); reserved != 0 {
		return BloodPressureFeature(bits.Extract(v, 0, 6)), []gatt.ParseFieldError{
			gatt.FieldErrorAt("features", raw, 0, 2, fmt.Sprintf("reserved feature bits set: 0x%03X", reserved)),
		}
	}
	return BloodPressureFeature(v), nil
}

func (BloodPressureFeatureCodec) EncodeValue(f BloodPressureFeature) ([]byte, error) {
	if bits.Extract(uint16(f), 6, 10) != 0 {
		return nil, &gatt.EncodeError{Info: bloodPressureFeatureInfo, Field: "features", Value: uint16(f), Reason: "reserved feature bits set"}
	}
	return binary.LittleEndian.AppendUint16(nil, uint16(f)), nil
}

// Blood Pressure Measurement flag bits.
const (
	bpFlagKPa       = 0
	bpFlagTimestamp = 1
	bpFlagPulseRate = 2
	bpFlagUserID    = 3
	bpFlagStatus    = 4
)

// PressureUnit is the unit of the compound pressure value.
type PressureUnit uint8

const (
	MmHg PressureUnit = iota
	KPa
)

func (u PressureUnit) String() string {
	if u == KPa {
		return "kPa"
	}
	return "mmHg"
}

// MarshalText renders the unit.
func (u PressureUnit) MarshalText() ([]byte, error) {
	return []byte(u.String()), nil
}

// PulseRateRange is the two-bit pulse rate range detection result.
type PulseRateRange uint8

const (
	PulseRateWithinRange PulseRateRange = iota
	PulseRateExceedsUpper
	PulseRateBelowLower
)

// MeasurementStatus is the decoded status word. Only checks the monitor
// declares in its Blood Pressure Feature are reported; without the feature
// value every check is reported as sent.
type MeasurementStatus struct {
	Raw              uint16          `json:"raw"`
	FeatureKnown     bool            `json:"feature_known"`
	BodyMovement     *bool           `json:"body_movement,omitempty"`
	CuffTooLoose     *bool           `json:"cuff_too_loose,omitempty"`
	IrregularPulse   *bool           `json:"irregular_pulse,omitempty"`
	PulseRateRange   *PulseRateRange `json:"pulse_rate_range,omitempty"`
	ImproperPosition *bool           `json:"improper_position,omitempty"`
}

// BloodPressureMeasurement is the decoded 2A35 indication.
type BloodPressureMeasurement struct {
	Systolic             numeric.MedFloat  `json:"systolic"`
	Diastolic            numeric.MedFloat  `json:"diastolic"`
	MeanArterialPressure numeric.MedFloat  `json:"mean_arterial_pressure"`
	Unit                 PressureUnit      `json:"unit"`
	Timestamp            *DateTime         `json:"timestamp,omitempty"`
	PulseRate            *numeric.MedFloat `json:"pulse_rate,omitempty"`
	// UserID 0xFF means "unknown user".
	UserID *uint8             `json:"user_id,omitempty"`
	Status *MeasurementStatus `json:"status,omitempty"`
}

// BloodPressureMeasurementCodec is the Blood Pressure Measurement
// characteristic. It reads Blood Pressure Feature from the context to decide
// which status bits are meaningful.
type BloodPressureMeasurementCodec struct{}

func (BloodPressureMeasurementCodec) Info() gatt.Info { return bloodPressureMeasurementInfo }

func (BloodPressureMeasurementCodec) Constraints() gatt.LengthConstraints {
	return gatt.Variable(7, 19)
}

func (BloodPressureMeasurementCodec) DeclaredProperties() gatt.Properties { return gatt.PropIndicate }

func (BloodPressureMeasurementCodec) RequiredDependencies() []gatt.UUID {
	return []gatt.UUID{bloodPressureFeatureInfo.UUID}
}

func (BloodPressureMeasurementCodec) OptionalDependencies() []gatt.UUID { return nil }

func (BloodPressureMeasurementCodec) DecodeValue(raw []byte, ctx *gatt.Context) (BloodPressureMeasurement, []gatt.ParseFieldError) {
	r := newFieldReader(raw)
	flags, _ := r.uint8("flags")

	var m BloodPressureMeasurement
	if bits.Test(flags, bpFlagKPa) {
		m.Unit = KPa
	}
	m.Systolic, _ = r.sfloat("systolic")
	m.Diastolic, _ = r.sfloat("diastolic")
	m.MeanArterialPressure, _ = r.sfloat("mean_arterial_pressure")

	if bits.Test(flags, bpFlagTimestamp) {
		start := r.off
		if _, ok := r.take("timestamp", 7); ok {
			ts, errs := decodeDateTime(raw, start, "timestamp.")
			m.Timestamp = &ts
			r.errs = append(r.errs, errs...)
		}
	}
	if bits.Test(flags, bpFlagPulseRate) {
		if pr, ok := r.sfloat("pulse_rate"); ok {
			m.PulseRate = &pr
		}
	}
	if bits.Test(flags, bpFlagUserID) {
		if id, ok := r.uint8("user_id"); ok {
			m.UserID = &id
		}
	}
	if bits.Test(flags, bpFlagStatus) {
		start := r.off
		if status, ok := r.uint16("status"); ok {
			feature, known := gatt.DependencyValue[BloodPressureFeature](ctx, bloodPressureFeatureInfo.UUID)
			m.Status = decodeMeasurementStatus(r, start, status, feature, known)
		}
	}
	r.trailing()

	return m, r.errs
}

func decodeMeasurementStatus(r *fieldReader, offset int, status uint16, feature BloodPressureFeature, known bool) *MeasurementStatus {
	s := &MeasurementStatus{Raw: status, FeatureKnown: known}
	supported := func(f BloodPressureFeature, name string, set bool) bool {
		if !known || feature.Supports(f) {
			return true
		}
		if set {
			r.fail("status."+name, offset, 2, "reported but not declared in Blood Pressure Feature")
		}
		return false
	}
	flag := func(bit int) *bool {
		v := bits.Test(status, bit)
		return &v
	}

	if supported(FeatureBodyMovement, "body_movement", bits.Test(status, 0)) {
		s.BodyMovement = flag(0)
	}
	if supported(FeatureCuffFit, "cuff_fit", bits.Test(status, 1)) {
		s.CuffTooLoose = flag(1)
	}
	if supported(FeatureIrregularPulse, "irregular_pulse", bits.Test(status, 2)) {
		s.IrregularPulse = flag(2)
	}
	rangeBits := bits.Extract(status, 3, 2)
	if supported(FeaturePulseRateRange, "pulse_rate_range", rangeBits != 0) {
		if rangeBits == 3 {
			r.fail("status.pulse_rate_range", offset, 2, "reserved pulse rate range value 3")
		} else {
			prr := PulseRateRange(rangeBits)
			s.PulseRateRange = &prr
		}
	}
	if supported(FeatureMeasurementPosition, "measurement_position", bits.Test(status, 5)) {
		s.ImproperPosition = flag(5)
	}
	if reserved := bits.Extract(status, 6, 10); reserved != 0 {
		r.fail("status", offset, 2, fmt.Sprintf("reserved status bits set: 0x%03X", reserved))
	}
	return s
}

func (BloodPressureMeasurementCodec) EncodeValue(m BloodPressureMeasurement) ([]byte, error) {
	var flags uint8
	flags = bits.Assign(flags, bpFlagKPa, m.Unit == KPa)
	flags = bits.Assign(flags, bpFlagTimestamp, m.Timestamp != nil)
	flags = bits.Assign(flags, bpFlagPulseRate, m.PulseRate != nil)
	flags = bits.Assign(flags, bpFlagUserID, m.UserID != nil)
	flags = bits.Assign(flags, bpFlagStatus, m.Status != nil)

	w := &fieldWriter{}
	w.uint8(flags)
	for _, f := range []struct {
		name  string
		value numeric.MedFloat
	}{
		{"systolic", m.Systolic},
		{"diastolic", m.Diastolic},
		{"mean_arterial_pressure", m.MeanArterialPressure},
	} {
		if err := w.sfloat(bloodPressureMeasurementInfo, f.name, f.value); err != nil {
			return nil, err
		}
	}
	if m.Timestamp != nil {
		ts, err := encodeDateTime(bloodPressureMeasurementInfo, "timestamp.", *m.Timestamp)
		if err != nil {
			return nil, err
		}
		w.buf = append(w.buf, ts...)
	}
	if m.PulseRate != nil {
		if err := w.sfloat(bloodPressureMeasurementInfo, "pulse_rate", *m.PulseRate); err != nil {
			return nil, err
		}
	}
	if m.UserID != nil {
		w.uint8(*m.UserID)
	}
	if m.Status != nil {
		if bits.Extract(m.Status.Raw, 6, 10) != 0 || bits.Extract(m.Status.Raw, 3, 2) == 3 {
			return nil, &gatt.EncodeError{Info: bloodPressureMeasurementInfo, Field: "status", Value: m.Status.Raw, Reason: "reserved status bits set"}
		}
		w.uint16(m.Status.Raw)
	}
	return w.bytes(), nil
}
