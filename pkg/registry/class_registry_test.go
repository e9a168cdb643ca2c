package registry

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/srg/gattkit/pkg/gatt"
)

type testName string

const (
	nameBattery testName = "battery_level"
	nameHeart   testName = "heart_rate_measurement"
)

type impl struct{ label string }

// ClassRegistryTestSuite covers baseline discovery, overrides and cache control
type ClassRegistryTestSuite struct {
	suite.Suite
	discoveries atomic.Int32
	registry    *ClassRegistry[testName, *impl]
}

func (suite *ClassRegistryTestSuite) SetupTest() {
	suite.discoveries.Store(0)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	suite.registry = NewClassRegistry("characteristic", func() []Registration[testName, *impl] {
		suite.discoveries.Add(1)
		return []Registration[testName, *impl]{
			{UUID: gatt.UUID16(0x2A19), Name: nameBattery, New: func() *impl { return &impl{label: "baseline battery"} }},
			{UUID: gatt.UUID16(0x2A37), Name: nameHeart, New: func() *impl { return &impl{label: "baseline heart"} }},
		}
	}, logger)
}

func (suite *ClassRegistryTestSuite) label(u gatt.UUID) string {
	inst, ok := suite.registry.CreateInstance(u)
	if !ok {
		return ""
	}
	return inst.label
}

func (suite *ClassRegistryTestSuite) TestLookups() {
	suite.Equal("baseline battery", suite.label(gatt.UUID16(0x2A19)))

	factory, ok := suite.registry.ClassByEnum(nameHeart)
	suite.Require().True(ok)
	suite.Equal("baseline heart", factory().label)

	u, ok := suite.registry.UUIDByEnum(nameHeart)
	suite.True(ok)
	suite.Equal(gatt.UUID16(0x2A37), u)

	_, ok = suite.registry.ClassByEnum("nope")
	suite.False(ok)
	inst, ok := suite.registry.CreateInstance(gatt.UUID16(0x2A1A))
	suite.False(ok)
	suite.Nil(inst)

	first, _ := suite.registry.CreateInstance(gatt.UUID16(0x2A19))
	second, _ := suite.registry.CreateInstance(gatt.UUID16(0x2A19))
	suite.NotSame(first, second, "every call builds a fresh instance")

	suite.Equal(int32(1), suite.discoveries.Load())
}

func (suite *ClassRegistryTestSuite) TestOverrideProtection() {
	// GOAL: Verify baseline bindings are protected and restored after unregister
	//
	// TEST SCENARIO: Register over 2A19 without override → conflict → with override → replaced → unregister → baseline back
	battery := gatt.UUID16(0x2A19)
	custom := func() *impl { return &impl{label: "custom battery"} }

	err := suite.registry.RegisterClass(battery, custom, false)
	suite.Require().Error(err)
	suite.True(errors.Is(err, ErrRegistryConflict))
	suite.Contains(err.Error(), "battery_level")
	suite.Equal("baseline battery", suite.label(battery))

	suite.Require().NoError(suite.registry.RegisterClass(battery, custom, true))
	suite.Equal("custom battery", suite.label(battery))

	factory, ok := suite.registry.ClassByEnum(nameBattery)
	suite.Require().True(ok)
	suite.Equal("custom battery", factory().label, "enum lookups follow the override")

	suite.True(suite.registry.UnregisterClass(battery))
	suite.Equal("baseline battery", suite.label(battery))

	suite.False(suite.registry.UnregisterClass(battery), "baseline bindings are not removable")
	suite.Equal("baseline battery", suite.label(battery))
	suite.True(suite.registry.IsBaseline(battery))
}

func (suite *ClassRegistryTestSuite) TestCustomOnly() {
	vendor := gatt.MustParseUUID("6e400003-b5a3-f393-e0a9-e50e24dcca9e")

	suite.Require().NoError(suite.registry.RegisterClass(vendor, func() *impl { return &impl{label: "v1"} }, false))
	suite.Require().NoError(suite.registry.RegisterClass(vendor, func() *impl { return &impl{label: "v2"} }, false))
	suite.Equal("v2", suite.label(vendor))
	suite.False(suite.registry.IsBaseline(vendor))
	suite.Equal([]gatt.UUID{gatt.UUID16(0x2A19), gatt.UUID16(0x2A37), vendor}, suite.registry.UUIDs())

	suite.True(suite.registry.UnregisterClass(vendor))
	suite.Equal("", suite.label(vendor))

	suite.Error(suite.registry.RegisterClass(vendor, nil, false))
}

func (suite *ClassRegistryTestSuite) TestClearCache() {
	// GOAL: Verify discovery is cached until ClearCache, and custom entries survive it
	//
	// TEST SCENARIO: Lookup twice → one discovery → ClearCache → lookup → second discovery
	vendor := gatt.MustParseUUID("6e400003-b5a3-f393-e0a9-e50e24dcca9e")
	suite.Require().NoError(suite.registry.RegisterClass(vendor, func() *impl { return &impl{label: "vendor"} }, false))

	suite.label(gatt.UUID16(0x2A19))
	suite.label(gatt.UUID16(0x2A37))
	suite.Equal(int32(1), suite.discoveries.Load())

	suite.registry.ClearCache()
	suite.Equal(int32(1), suite.discoveries.Load(), "clearing does not rediscover eagerly")
	suite.Equal("baseline battery", suite.label(gatt.UUID16(0x2A19)))
	suite.Equal(int32(2), suite.discoveries.Load())
	suite.Equal("vendor", suite.label(vendor))

	suite.registry.ResetCustom()
	suite.Equal("", suite.label(vendor))
}

func TestDuplicateBaselineRegistrationPanics(t *testing.T) {
	registry := NewClassRegistry("descriptor", func() []Registration[testName, *impl] {
		factory := func() *impl { return &impl{} }
		return []Registration[testName, *impl]{
			{UUID: gatt.UUID16(0x2902), New: factory},
			{UUID: gatt.UUID16(0x2902), New: factory},
		}
	}, nil)

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate baseline registration")
		}
	}()
	registry.IsBaseline(gatt.UUID16(0x2902))
}

func TestClassRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(ClassRegistryTestSuite))
}
