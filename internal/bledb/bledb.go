// Package bledb holds the baseline Bluetooth SIG assigned numbers the
// registries are seeded with.
//
// The tables are a curated subset of the SIG assigned numbers: every
// characteristic with a codec in this module, the services and descriptors
// those characteristics live under, and the units they are expressed in.
package bledb

import "github.com/srg/gattkit/pkg/gatt"

// DataVersion identifies the assigned numbers revision the tables follow.
const DataVersion = "2024-10"

type entry struct {
	uuid      uint16
	name      string
	id        string
	unit      string
	valueType gatt.ValueType
	aliases   []string
}

var characteristics = []entry{
	{0x2A00, "Device Name", "org.bluetooth.characteristic.gap.device_name", "", gatt.ValueUTF8, nil},
	{0x2A01, "Appearance", "org.bluetooth.characteristic.gap.appearance", "", gatt.ValueUint16, nil},
	{0x2A04, "Peripheral Preferred Connection Parameters", "org.bluetooth.characteristic.gap.peripheral_preferred_connection_parameters", "", gatt.ValueStruct, nil},
	{0x2A05, "Service Changed", "org.bluetooth.characteristic.gatt.service_changed", "", gatt.ValueStruct, nil},
	{0x2A08, "Date Time", "org.bluetooth.characteristic.date_time", "", gatt.ValueStruct, nil},
	{0x2A19, "Battery Level", "org.bluetooth.characteristic.battery_level", "%", gatt.ValueUint8, []string{"battery"}},
	{0x2A1C, "Temperature Measurement", "org.bluetooth.characteristic.temperature_measurement", "°C", gatt.ValueStruct, nil},
	{0x2A1D, "Temperature Type", "org.bluetooth.characteristic.temperature_type", "", gatt.ValueUint8, nil},
	{0x2A23, "System ID", "org.bluetooth.characteristic.system_id", "", gatt.ValueBytes, nil},
	{0x2A24, "Model Number String", "org.bluetooth.characteristic.model_number_string", "", gatt.ValueUTF8, []string{"model"}},
	{0x2A25, "Serial Number String", "org.bluetooth.characteristic.serial_number_string", "", gatt.ValueUTF8, []string{"serial"}},
	{0x2A26, "Firmware Revision String", "org.bluetooth.characteristic.firmware_revision_string", "", gatt.ValueUTF8, []string{"firmware"}},
	{0x2A27, "Hardware Revision String", "org.bluetooth.characteristic.hardware_revision_string", "", gatt.ValueUTF8, nil},
	{0x2A28, "Software Revision String", "org.bluetooth.characteristic.software_revision_string", "", gatt.ValueUTF8, nil},
	{0x2A29, "Manufacturer Name String", "org.bluetooth.characteristic.manufacturer_name_string", "", gatt.ValueUTF8, []string{"manufacturer"}},
	{0x2A35, "Blood Pressure Measurement", "org.bluetooth.characteristic.blood_pressure_measurement", "mmHg", gatt.ValueStruct, nil},
	{0x2A36, "Intermediate Cuff Pressure", "org.bluetooth.characteristic.intermediate_cuff_pressure", "mmHg", gatt.ValueStruct, nil},
	{0x2A37, "Heart Rate Measurement", "org.bluetooth.characteristic.heart_rate_measurement", "bpm", gatt.ValueStruct, []string{"heart rate"}},
	{0x2A38, "Body Sensor Location", "org.bluetooth.characteristic.body_sensor_location", "", gatt.ValueUint8, nil},
	{0x2A39, "Heart Rate Control Point", "org.bluetooth.characteristic.heart_rate_control_point", "", gatt.ValueUint8, nil},
	{0x2A49, "Blood Pressure Feature", "org.bluetooth.characteristic.blood_pressure_feature", "", gatt.ValueUint16, nil},
	{0x2A6D, "Pressure", "org.bluetooth.characteristic.pressure", "Pa", gatt.ValueUint32, nil},
	{0x2A6E, "Temperature", "org.bluetooth.characteristic.temperature", "°C", gatt.ValueSint16, nil},
	{0x2A6F, "Humidity", "org.bluetooth.characteristic.humidity", "%", gatt.ValueUint16, nil},
	{0x2AEE, "Electric Current", "org.bluetooth.characteristic.electric_current", "A", gatt.ValueUint16, []string{"current"}},
}

var services = []entry{
	{0x1800, "Generic Access", "org.bluetooth.service.generic_access", "", "", []string{"GAP"}},
	{0x1801, "Generic Attribute", "org.bluetooth.service.generic_attribute", "", "", []string{"GATT"}},
	{0x1809, "Health Thermometer", "org.bluetooth.service.health_thermometer", "", "", nil},
	{0x180A, "Device Information", "org.bluetooth.service.device_information", "", "", []string{"DIS"}},
	{0x180D, "Heart Rate", "org.bluetooth.service.heart_rate", "", "", nil},
	{0x180F, "Battery Service", "org.bluetooth.service.battery_service", "", "", []string{"battery"}},
	{0x1810, "Blood Pressure", "org.bluetooth.service.blood_pressure", "", "", nil},
	{0x181A, "Environmental Sensing", "org.bluetooth.service.environmental_sensing", "", "", nil},
}

var descriptors = []entry{
	{0x2900, "Characteristic Extended Properties", "org.bluetooth.descriptor.gatt.characteristic_extended_properties", "", gatt.ValueUint16, nil},
	{0x2901, "Characteristic User Description", "org.bluetooth.descriptor.gatt.characteristic_user_description", "", gatt.ValueUTF8, []string{"Characteristic User Descriptor"}},
	{0x2902, "Client Characteristic Configuration", "org.bluetooth.descriptor.gatt.client_characteristic_configuration", "", gatt.ValueUint16, []string{"CCCD"}},
	{0x2903, "Server Characteristic Configuration", "org.bluetooth.descriptor.gatt.server_characteristic_configuration", "", gatt.ValueUint16, []string{"SCCD"}},
	{0x2904, "Characteristic Presentation Format", "org.bluetooth.descriptor.gatt.characteristic_presentation_format", "", gatt.ValueStruct, nil},
	{0x2905, "Characteristic Aggregate Format", "org.bluetooth.descriptor.gatt.characteristic_aggregate_format", "", gatt.ValueBytes, nil},
	{0x2906, "Valid Range", "org.bluetooth.descriptor.valid_range", "", gatt.ValueBytes, nil},
}

var units = []entry{
	{0x2700, "unitless", "org.bluetooth.unit.unitless", "", "", nil},
	{0x2703, "time (second)", "org.bluetooth.unit.time.second", "s", "", nil},
	{0x2704, "electric current (ampere)", "org.bluetooth.unit.electric_current.ampere", "A", "", nil},
	{0x2705, "thermodynamic temperature (kelvin)", "org.bluetooth.unit.thermodynamic_temperature.kelvin", "K", "", nil},
	{0x2724, "pressure (pascal)", "org.bluetooth.unit.pressure.pascal", "Pa", "", nil},
	{0x272F, "Celsius temperature (degree Celsius)", "org.bluetooth.unit.thermodynamic_temperature.degree_celsius", "°C", "", nil},
	{0x2781, "pressure (millimetre of mercury)", "org.bluetooth.unit.pressure.millimetre_of_mercury", "mmHg", "", nil},
	{0x27A7, "period (beats per minute)", "org.bluetooth.unit.period.beats_per_minute", "bpm", "", nil},
	{0x27AD, "percentage", "org.bluetooth.unit.percentage", "%", "", nil},
}

func (e entry) info(kind gatt.Kind) gatt.Info {
	return gatt.Info{
		UUID:      gatt.UUID16(e.uuid),
		Name:      e.name,
		ID:        e.id,
		Kind:      kind,
		Unit:      e.unit,
		ValueType: e.valueType,
		Aliases:   append([]string(nil), e.aliases...),
	}
}

func infos(entries []entry, kind gatt.Kind) []gatt.Info {
	out := make([]gatt.Info, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.info(kind))
	}
	return out
}

// Characteristics returns the baseline characteristic records.
func Characteristics() []gatt.Info { return infos(characteristics, gatt.KindCharacteristic) }

// Services returns the baseline service records.
func Services() []gatt.Info { return infos(services, gatt.KindService) }

// Descriptors returns the baseline descriptor records.
func Descriptors() []gatt.Info { return infos(descriptors, gatt.KindDescriptor) }

// Units returns the baseline unit records.
func Units() []gatt.Info { return infos(units, gatt.KindUnit) }

// All returns every baseline record. A fresh slice is built on each call so
// callers may keep it.
func All() []gatt.Info {
	all := make([]gatt.Info, 0, len(characteristics)+len(services)+len(descriptors)+len(units))
	all = append(all, Characteristics()...)
	all = append(all, Services()...)
	all = append(all, Descriptors()...)
	all = append(all, Units()...)
	return all
}

func lookup(entries []entry, uuid string) string {
	u, err := gatt.ParseUUID(uuid)
	if err != nil {
		return ""
	}
	short, ok := u.Short()
	if !ok {
		return ""
	}
	for _, e := range entries {
		if e.uuid == short {
			return e.name
		}
	}
	return ""
}

// LookupService returns the service name for uuid in any accepted form, or "".
func LookupService(uuid string) string { return lookup(services, uuid) }

// LookupCharacteristic returns the characteristic name for uuid, or "".
func LookupCharacteristic(uuid string) string { return lookup(characteristics, uuid) }

// LookupDescriptor returns the descriptor name for uuid, or "".
func LookupDescriptor(uuid string) string { return lookup(descriptors, uuid) }

// LookupUnit returns the unit symbol for a unit UUID, or "".
func LookupUnit(uuid uint16) string {
	for _, e := range units {
		if e.uuid == uuid {
			return e.unit
		}
	}
	return ""
}

// Lookup searches every table in characteristic, service, descriptor, unit order.
func Lookup(uuid string) string {
	for _, table := range [][]entry{characteristics, services, descriptors, units} {
		if name := lookup(table, uuid); name != "" {
			return name
		}
	}
	return ""
}

// MustInfo returns the baseline record for a 16-bit UUID of the given kind.
// It panics when the record is missing; codec tables call it at init time.
func MustInfo(kind gatt.Kind, short uint16) gatt.Info {
	var table []entry
	switch kind {
	case gatt.KindCharacteristic:
		table = characteristics
	case gatt.KindService:
		table = services
	case gatt.KindDescriptor:
		table = descriptors
	case gatt.KindUnit:
		table = units
	}
	for _, e := range table {
		if e.uuid == short {
			return e.info(kind)
		}
	}
	panic("bledb: no " + kind.String() + " " + gatt.UUID16(short).ShortString())
}
