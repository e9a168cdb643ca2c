// Package characteristics holds the built-in characteristic codecs and the
// explicit table that registers them.
//
// Every codec is a small struct implementing gatt.TypedCodec for its value
// type. Registrations returns the table the class registry is seeded with;
// nothing here registers itself as a side effect of being imported.
package characteristics

import (
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/internal/bledb"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/registry"
)

// Name is the closed enum of built-in characteristics.
type Name string

const (
	NameDeviceName               Name = "device_name"
	NameAppearance               Name = "appearance"
	NameDateTime                 Name = "date_time"
	NameBatteryLevel             Name = "battery_level"
	NameTemperatureMeasurement   Name = "temperature_measurement"
	NameTemperatureType          Name = "temperature_type"
	NameManufacturerName         Name = "manufacturer_name_string"
	NameModelNumber              Name = "model_number_string"
	NameSerialNumber             Name = "serial_number_string"
	NameFirmwareRevision         Name = "firmware_revision_string"
	NameBloodPressureMeasurement Name = "blood_pressure_measurement"
	NameHeartRateMeasurement     Name = "heart_rate_measurement"
	NameBodySensorLocation       Name = "body_sensor_location"
	NameBloodPressureFeature     Name = "blood_pressure_feature"
	NamePressure                 Name = "pressure"
	NameTemperature              Name = "temperature"
	NameHumidity                 Name = "humidity"
	NameElectricCurrent          Name = "electric_current"
)

// Registration is one row of the characteristic class table.
type Registration = registry.Registration[Name, gatt.Codec]

// Registry is the class registry type for characteristics.
type Registry = registry.ClassRegistry[Name, gatt.Codec]

func entry[T any](name Name, newCodec func() gatt.TypedCodec[T]) Registration {
	c := newCodec()
	return Registration{
		UUID: c.Info().UUID,
		Name: name,
		New:  func() gatt.Codec { return gatt.Erase(newCodec()) },
	}
}

// Registrations returns the built-in characteristic table in UUID order.
func Registrations() []Registration {
	return []Registration{
		entry(NameDeviceName, func() gatt.TypedCodec[string] { return NewDeviceName() }),
		entry(NameAppearance, func() gatt.TypedCodec[Appearance] { return AppearanceCodec{} }),
		entry(NameDateTime, func() gatt.TypedCodec[DateTime] { return DateTimeCodec{} }),
		entry(NameBatteryLevel, func() gatt.TypedCodec[uint8] { return BatteryLevelCodec{} }),
		entry(NameTemperatureMeasurement, func() gatt.TypedCodec[TemperatureMeasurement] { return TemperatureMeasurementCodec{} }),
		entry(NameTemperatureType, func() gatt.TypedCodec[TemperatureType] { return TemperatureTypeCodec{} }),
		entry(NameModelNumber, func() gatt.TypedCodec[string] { return NewModelNumber() }),
		entry(NameSerialNumber, func() gatt.TypedCodec[string] { return NewSerialNumber() }),
		entry(NameFirmwareRevision, func() gatt.TypedCodec[string] { return NewFirmwareRevision() }),
		entry(NameManufacturerName, func() gatt.TypedCodec[string] { return NewManufacturerName() }),
		entry(NameBloodPressureMeasurement, func() gatt.TypedCodec[BloodPressureMeasurement] { return BloodPressureMeasurementCodec{} }),
		entry(NameHeartRateMeasurement, func() gatt.TypedCodec[HeartRateMeasurement] { return HeartRateMeasurementCodec{} }),
		entry(NameBodySensorLocation, func() gatt.TypedCodec[BodySensorLocation] { return BodySensorLocationCodec{} }),
		entry(NameBloodPressureFeature, func() gatt.TypedCodec[BloodPressureFeature] { return BloodPressureFeatureCodec{} }),
		entry(NamePressure, func() gatt.TypedCodec[Reading] { return NewPressure() }),
		entry(NameTemperature, func() gatt.TypedCodec[Reading] { return NewTemperature() }),
		entry(NameHumidity, func() gatt.TypedCodec[Reading] { return NewHumidity() }),
		entry(NameElectricCurrent, func() gatt.TypedCodec[Reading] { return NewElectricCurrent() }),
	}
}

// NewRegistry builds a characteristic class registry seeded with Registrations.
func NewRegistry(logger *logrus.Logger) *Registry {
	return registry.NewClassRegistry[Name, gatt.Codec]("characteristic", Registrations, logger)
}

func info(short uint16) gatt.Info {
	return bledb.MustInfo(gatt.KindCharacteristic, short)
}
