package registry

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"

	"github.com/srg/gattkit/pkg/gatt"
)

var (
	batteryLevel = gatt.Info{
		UUID:      gatt.UUID16(0x2A19),
		Name:      "Battery Level",
		ID:        "org.bluetooth.characteristic.battery_level",
		Kind:      gatt.KindCharacteristic,
		Unit:      "%",
		ValueType: gatt.ValueUint8,
		Aliases:   []string{"battery"},
	}
	heartRate = gatt.Info{
		UUID: gatt.UUID16(0x180D),
		Name: "Heart Rate",
		ID:   "org.bluetooth.service.heart_rate",
		Kind: gatt.KindService,
	}
	vendorUUID = gatt.MustParseUUID("6e400003-b5a3-f393-e0a9-e50e24dcca9e")
)

// UUIDRegistryTestSuite covers lookup, lazy loading and runtime overlays
type UUIDRegistryTestSuite struct {
	suite.Suite
	loads    atomic.Int32
	registry *UUIDRegistry
}

func (suite *UUIDRegistryTestSuite) SetupTest() {
	suite.loads.Store(0)
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	suite.registry = NewUUIDRegistry(func() []gatt.Info {
		suite.loads.Add(1)
		return []gatt.Info{batteryLevel, heartRate}
	}, logger)
}

func (suite *UUIDRegistryTestSuite) TestGetInfo() {
	// GOAL: Verify every identifier form resolves to the same canonical record
	//
	// TEST SCENARIO: Look up by UUID forms, name, ID, short ID and synonym → all return Battery Level
	identifiers := []string{
		"2A19",
		"0x2a19",
		"00002a19-0000-1000-8000-00805f9b34fb",
		"00002A1900001000800000805F9B34FB",
		"Battery Level",
		"battery level",
		"  BATTERY   LEVEL ",
		"org.bluetooth.characteristic.battery_level",
		"battery_level",
		"battery",
	}
	for _, id := range identifiers {
		suite.Run(id, func() {
			info, ok := suite.registry.GetInfo(id)
			suite.True(ok)
			suite.Equal(batteryLevel, info)
		})
	}

	suite.Run("Miss", func() {
		_, ok := suite.registry.GetInfo("2A1A")
		suite.False(ok)
		_, ok = suite.registry.GetInfo("no such thing")
		suite.False(ok)
		_, ok = suite.registry.GetInfo("")
		suite.False(ok)
	})

	suite.Run("KindFilter", func() {
		_, ok := suite.registry.InfoOfKind(heartRate.UUID, gatt.KindService)
		suite.True(ok)
		_, ok = suite.registry.InfoOfKind(heartRate.UUID, gatt.KindCharacteristic)
		suite.False(ok)
	})
}

func (suite *UUIDRegistryTestSuite) TestLazyLoadRunsOnce() {
	// GOAL: Verify concurrent first lookups trigger exactly one load and all see a complete table
	//
	// TEST SCENARIO: 32 goroutines call GetInfo at once → loader called once → every call hits
	suite.Equal(int32(0), suite.loads.Load(), "constructor must not load")

	var wg sync.WaitGroup
	var misses atomic.Int32
	start := make(chan struct{})
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, ok := suite.registry.GetInfo("Heart Rate"); !ok {
				misses.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	suite.Equal(int32(1), suite.loads.Load())
	suite.Equal(int32(0), misses.Load())
}

func (suite *UUIDRegistryTestSuite) TestRuntimeEntries() {
	suite.Run("BaselineConflict", func() {
		// GOAL: Verify replacing a baseline record without override is refused
		//
		// TEST SCENARIO: Register over 2A19 without override → RegistryConflictError → baseline untouched
		renamed := batteryLevel
		renamed.Name = "Pack Charge"

		err := suite.registry.RegisterRuntimeEntry(renamed, false)
		suite.Require().Error(err)
		suite.True(errors.Is(err, ErrRegistryConflict))
		var conflict *RegistryConflictError
		suite.Require().ErrorAs(err, &conflict)
		suite.Equal("Battery Level", conflict.Existing)

		info, _ := suite.registry.Info(batteryLevel.UUID)
		suite.Equal("Battery Level", info.Name)
	})

	suite.Run("OverrideAndRestore", func() {
		// GOAL: Verify override replaces and removal restores the baseline, aliases included
		//
		// TEST SCENARIO: Override 2A19 → visible by UUID and new alias → remove → baseline and old alias back
		renamed := batteryLevel
		renamed.Name = "Pack Charge"
		renamed.Aliases = []string{"soc"}

		suite.Require().NoError(suite.registry.RegisterRuntimeEntry(renamed, true))
		info, _ := suite.registry.GetInfo("2A19")
		suite.Equal("Pack Charge", info.Name)
		info, ok := suite.registry.GetInfo("soc")
		suite.True(ok)
		suite.Equal("Pack Charge", info.Name)
		info, ok = suite.registry.GetInfo("battery")
		suite.True(ok, "baseline alias still resolves to the UUID")
		suite.Equal("Pack Charge", info.Name)

		suite.True(suite.registry.RemoveRuntimeOverride(batteryLevel.UUID))
		info, ok = suite.registry.GetInfo("2A19")
		suite.True(ok)
		suite.Equal(batteryLevel, info)
		_, ok = suite.registry.GetInfo("soc")
		suite.False(ok)

		suite.False(suite.registry.RemoveRuntimeOverride(batteryLevel.UUID), "nothing left to remove")
	})

	suite.Run("StackedCustomEntries", func() {
		// GOAL: Verify removal restores the prior custom value, then deletes the key
		//
		// TEST SCENARIO: Register vendor v1, re-register v2 → remove → v1 → remove → miss
		v1 := gatt.Info{UUID: vendorUUID, Name: "Vendor TX", Kind: gatt.KindCharacteristic}
		v2 := gatt.Info{UUID: vendorUUID, Name: "Vendor TX v2", Kind: gatt.KindCharacteristic}

		suite.Require().NoError(suite.registry.RegisterRuntimeEntry(v1, false))
		suite.Require().NoError(suite.registry.RegisterRuntimeEntry(v2, false))
		info, _ := suite.registry.GetInfo("vendor tx v2")
		suite.Equal(v2, info)

		suite.True(suite.registry.RemoveRuntimeOverride(vendorUUID))
		info, ok := suite.registry.Info(vendorUUID)
		suite.True(ok)
		suite.Equal(v1, info)
		_, ok = suite.registry.GetInfo("vendor tx v2")
		suite.False(ok)

		suite.True(suite.registry.RemoveRuntimeOverride(vendorUUID))
		_, ok = suite.registry.Info(vendorUUID)
		suite.False(ok)
	})

	suite.Run("Entries", func() {
		custom := gatt.Info{UUID: vendorUUID, Name: "Vendor TX", Kind: gatt.KindCharacteristic}
		suite.Require().NoError(suite.registry.RegisterRuntimeEntry(custom, false))
		defer suite.registry.RemoveRuntimeOverride(vendorUUID)

		chars := suite.registry.Entries(gatt.KindCharacteristic)
		suite.Equal([]gatt.Info{batteryLevel, custom}, chars)
		suite.Len(suite.registry.Entries(gatt.KindUnknown), 3)
	})
}

func (suite *UUIDRegistryTestSuite) TestDuplicateBaselineFirstWins() {
	registry := NewUUIDRegistry(func() []gatt.Info {
		dup := batteryLevel
		dup.Name = "Shadow"
		return []gatt.Info{batteryLevel, dup, {Name: "no uuid"}}
	}, nil)

	info, ok := registry.Info(batteryLevel.UUID)
	suite.True(ok)
	suite.Equal("Battery Level", info.Name)
	suite.Len(registry.Entries(gatt.KindUnknown), 1)
}

func TestUUIDRegistryTestSuite(t *testing.T) {
	suite.Run(t, new(UUIDRegistryTestSuite))
}
