// Package services declares the built-in GATT service definitions: which
// characteristics a service must expose and which it may expose.
package services

import (
	"slices"

	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/internal/bledb"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/registry"
)

// Name is the closed enum of built-in services.
type Name string

const (
	NameGenericAccess        Name = "generic_access"
	NameGenericAttribute     Name = "generic_attribute"
	NameHealthThermometer    Name = "health_thermometer"
	NameDeviceInformation    Name = "device_information"
	NameHeartRate            Name = "heart_rate"
	NameBatteryService       Name = "battery_service"
	NameBloodPressure        Name = "blood_pressure"
	NameEnvironmentalSensing Name = "environmental_sensing"
)

// Definition is a static gatt.ServiceDefinition.
type Definition struct {
	info     gatt.Info
	required []gatt.UUID
	optional []gatt.UUID
}

func (d Definition) Info() gatt.Info { return d.info }

func (d Definition) Required() []gatt.UUID { return slices.Clone(d.required) }

func (d Definition) Optional() []gatt.UUID { return slices.Clone(d.optional) }

func define(short uint16, required, optional []uint16) Definition {
	return Definition{
		info:     bledb.MustInfo(gatt.KindService, short),
		required: uuids(required),
		optional: uuids(optional),
	}
}

func uuids(shorts []uint16) []gatt.UUID {
	out := make([]gatt.UUID, 0, len(shorts))
	for _, s := range shorts {
		out = append(out, gatt.UUID16(s))
	}
	return out
}

// Registration is one row of the service class table.
type Registration = registry.Registration[Name, gatt.ServiceDefinition]

// Registry is the class registry type for services.
type Registry = registry.ClassRegistry[Name, gatt.ServiceDefinition]

func entry(name Name, def Definition) Registration {
	return Registration{
		UUID: def.info.UUID,
		Name: name,
		New:  func() gatt.ServiceDefinition { return def },
	}
}

// Registrations returns the built-in service table.
func Registrations() []Registration {
	return []Registration{
		entry(NameGenericAccess, define(0x1800, []uint16{0x2A00, 0x2A01}, []uint16{0x2A04})),
		entry(NameGenericAttribute, define(0x1801, nil, []uint16{0x2A05})),
		entry(NameHealthThermometer, define(0x1809, []uint16{0x2A1C}, []uint16{0x2A1D})),
		entry(NameDeviceInformation, define(0x180A, nil, []uint16{0x2A29, 0x2A24, 0x2A25, 0x2A27, 0x2A26, 0x2A28, 0x2A23})),
		entry(NameHeartRate, define(0x180D, []uint16{0x2A37}, []uint16{0x2A38, 0x2A39})),
		entry(NameBatteryService, define(0x180F, []uint16{0x2A19}, nil)),
		entry(NameBloodPressure, define(0x1810, []uint16{0x2A35, 0x2A49}, []uint16{0x2A36})),
		entry(NameEnvironmentalSensing, define(0x181A, nil, []uint16{0x2A6D, 0x2A6E, 0x2A6F})),
	}
}

// NewRegistry builds a service class registry seeded with Registrations.
func NewRegistry(logger *logrus.Logger) *Registry {
	return registry.NewClassRegistry[Name, gatt.ServiceDefinition]("service", Registrations, logger)
}

// Validation is the outcome of checking a discovered service against its
// definition.
type Validation struct {
	Service gatt.Info `json:"service"`
	// Missing lists required characteristics that were not present.
	Missing []gatt.UUID `json:"missing,omitempty"`
	// Extra lists present characteristics the definition does not mention.
	Extra []gatt.UUID `json:"extra,omitempty"`
}

// Complete reports whether every required characteristic was present.
func (v Validation) Complete() bool {
	return len(v.Missing) == 0
}

// Validate compares the characteristics found on a peripheral with def.
// Extra characteristics do not make the service incomplete.
func Validate(def gatt.ServiceDefinition, present []gatt.UUID) Validation {
	v := Validation{Service: def.Info()}
	required := def.Required()
	known := append(required, def.Optional()...)

	for _, u := range required {
		if !slices.Contains(present, u) {
			v.Missing = append(v.Missing, u)
		}
	}
	for _, u := range present {
		if !slices.Contains(known, u) && !slices.Contains(v.Extra, u) {
			v.Extra = append(v.Extra, u)
		}
	}
	return v
}
