package scanner_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	suitelib "github.com/stretchr/testify/suite"

	"github.com/srg/gattkit/internal/testutils"
	"github.com/srg/gattkit/pkg/connection"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/scanner"
)

type ScannerTestSuite struct {
	suitelib.Suite

	dev1, dev2, dev3 gatt.DeviceInfo
	manager          *testutils.FakeManager
}

func (suite *ScannerTestSuite) SetupTest() {
	suite.dev1 = gatt.DeviceInfo{
		Address:     "AA:BB:CC:DD:EE:FF",
		Name:        "Test Device 1",
		RSSI:        -45,
		Services:    []gatt.UUID{gatt.UUID16(0x180F), gatt.UUID16(0x1800)},
		ServiceData: map[gatt.UUID][]byte{gatt.UUID16(0x180F): {0x57}},
	}
	suite.dev2 = gatt.DeviceInfo{
		Address:  "11:22:33:44:55:66",
		Name:     "Test Device 2",
		RSSI:     -67,
		Services: []gatt.UUID{gatt.UUID16(0x1801)},
	}
	// A third device that won't match most test conditions
	suite.dev3 = gatt.DeviceInfo{
		Address:  "99:88:77:66:55:44",
		Name:     "Test Device 3",
		RSSI:     -80,
		Services: []gatt.UUID{gatt.UUID16(0x1802)},
	}

	suite.manager = testutils.NewFakeManager().WithAdvertisements(suite.dev1, suite.dev2, suite.dev3)
}

func (suite *ScannerTestSuite) TestNewScanner() {
	suite.Run("creates scanner with provided logger", func() {
		s, err := scanner.NewScanner(suite.manager, testutils.NewTestLogger(suite.T()))

		suite.NoError(err)
		suite.NotNil(s)
	})

	suite.Run("creates scanner with nil logger", func() {
		s, err := scanner.NewScanner(suite.manager, nil)

		suite.NoError(err)
		suite.NotNil(s)
	})

	suite.Run("rejects nil manager", func() {
		s, err := scanner.NewScanner(nil, nil)

		suite.Error(err)
		suite.Nil(s)
	})
}

func (suite *ScannerTestSuite) TestDefaultScanOptions() {
	opts := scanner.DefaultScanOptions()

	suite.NotNil(opts)
	suite.Equal(10*time.Second, opts.Duration)
	suite.Nil(opts.ServiceUUIDs)
	suite.Nil(opts.AllowList)
	suite.Nil(opts.BlockList)
}

func (suite *ScannerTestSuite) TestScannerFiltering() {
	tests := []struct {
		name        string
		scanOptions *scanner.ScanOptions
		expected    string
	}{
		{
			name:        "includes all device with no filters",
			scanOptions: &scanner.ScanOptions{},
			expected: `[
				{"address": "11:22:33:44:55:66", "name": "Test Device 2", "rssi": -67, "services": ["1801"]},
				{"address": "99:88:77:66:55:44", "name": "Test Device 3", "rssi": -80, "services": ["1802"]},
				{"address": "AA:BB:CC:DD:EE:FF", "name": "Test Device 1", "rssi": -45, "services": ["180F", "1800"], "service_data": {"180F": "Vw=="}}
			]`,
		},
		{
			name:        "excludes device on block list",
			scanOptions: &scanner.ScanOptions{BlockList: []string{"AA:BB:CC:DD:EE:FF"}},
			expected: `[
				{"address": "11:22:33:44:55:66", "name": "Test Device 2", "rssi": -67, "services": ["1801"]},
				{"address": "99:88:77:66:55:44", "name": "Test Device 3", "rssi": -80, "services": ["1802"]}
			]`,
		},
		{
			name:        "includes device with matching service UUID",
			scanOptions: &scanner.ScanOptions{ServiceUUIDs: []gatt.UUID{gatt.UUID16(0x180F)}},
			expected: `[
				{"address": "AA:BB:CC:DD:EE:FF", "name": "Test Device 1", "rssi": -45, "services": ["180F", "1800"], "service_data": {"180F": "Vw=="}}
			]`,
		},
		{
			name:        "excludes device without matching service UUID",
			scanOptions: &scanner.ScanOptions{ServiceUUIDs: []gatt.UUID{gatt.UUID16(0x1234)}},
			expected:    `[]`,
		},
		{
			name:        "includes device on allow list",
			scanOptions: &scanner.ScanOptions{AllowList: []string{"AA:BB:CC:DD:EE:FF"}},
			expected: `[
				{"address": "AA:BB:CC:DD:EE:FF", "name": "Test Device 1", "rssi": -45, "services": ["180F", "1800"], "service_data": {"180F": "Vw=="}}
			]`,
		},
		{
			name:        "excludes device not on allow list",
			scanOptions: &scanner.ScanOptions{AllowList: []string{"FF:EE:DD:CC:BB:AA"}},
			expected:    `[]`,
		},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			s, err := scanner.NewScanner(suite.manager, testutils.NewTestLogger(suite.T()))
			require.NoError(suite.T(), err)

			tt.scanOptions.Duration = 20 * time.Millisecond
			devices, err := s.Scan(context.Background(), tt.scanOptions, nil)
			require.NoError(suite.T(), err, "Scan should complete without error")
			require.NotNil(suite.T(), devices, "Devices map should not be nil")
			suite.Len(s.Devices(), len(devices))

			testutils.NewJSONAsserter(suite.T()).AssertValue(s.Devices(), tt.expected)
		})
	}
}

func (suite *ScannerTestSuite) TestScanMergesRepeatedAdvertisements() {
	// GOAL: Verify a scan response updates the device instead of replacing it
	//
	// TEST SCENARIO: advertisement with name and services → scan response with only RSSI and service data → merged record, one new and one updated event
	manager := testutils.NewFakeManager().WithAdvertisements(
		gatt.DeviceInfo{Address: "AA:BB:CC:DD:EE:FF", Name: "Thermo", RSSI: -70, Services: []gatt.UUID{gatt.UUID16(0x1809)}},
		gatt.DeviceInfo{Address: "AA:BB:CC:DD:EE:FF", RSSI: -52, ServiceData: map[gatt.UUID][]byte{gatt.UUID16(0x180F): {0x40}}},
	)
	s, err := scanner.NewScanner(manager, testutils.NewTestLogger(suite.T()))
	suite.Require().NoError(err)

	devices, err := s.Scan(context.Background(), &scanner.ScanOptions{Duration: 20 * time.Millisecond}, nil)
	suite.Require().NoError(err)
	suite.Require().Len(devices, 1)

	testutils.NewJSONAsserter(suite.T()).AssertValue(devices["AA:BB:CC:DD:EE:FF"], `{
		"address": "AA:BB:CC:DD:EE:FF",
		"name": "Thermo",
		"rssi": -52,
		"services": ["1809"],
		"service_data": {"180F": "QA=="}
	}`)

	first := <-s.Events()
	second := <-s.Events()
	suite.Equal(scanner.EventNew, first.Type)
	suite.Equal(scanner.EventUpdated, second.Type)
	suite.Equal("Thermo", second.DeviceInfo.Name)
}

func (suite *ScannerTestSuite) TestEventsDropOldest() {
	// GOAL: Verify a slow events consumer never blocks discovery
	//
	// TEST SCENARIO: more advertisements than the buffer holds → scan completes → the newest event is still queued
	var adverts []gatt.DeviceInfo
	for i := 0; i < scanner.DefaultEventBuffer+10; i++ {
		adverts = append(adverts, gatt.DeviceInfo{Address: "AA:BB:CC:DD:EE:FF", RSSI: -i})
	}
	s, err := scanner.NewScanner(testutils.NewFakeManager().WithAdvertisements(adverts...), nil)
	suite.Require().NoError(err)

	_, err = s.Scan(context.Background(), &scanner.ScanOptions{Duration: 20 * time.Millisecond}, nil)
	suite.Require().NoError(err)

	suite.Len(s.Events(), scanner.DefaultEventBuffer)
	var last scanner.DeviceEvent
	for len(s.Events()) > 0 {
		last = <-s.Events()
	}
	suite.Equal(-(scanner.DefaultEventBuffer + 9), last.DeviceInfo.RSSI)
}

func (suite *ScannerTestSuite) TestProgressPhases() {
	var phases []string
	s, err := scanner.NewScanner(suite.manager, nil)
	suite.Require().NoError(err)

	_, err = s.Scan(context.Background(), &scanner.ScanOptions{Duration: 10 * time.Millisecond}, func(phase string) {
		phases = append(phases, phase)
	})
	suite.Require().NoError(err)
	suite.Equal([]string{"Scanning", "Processing results"}, phases)
}

func (suite *ScannerTestSuite) TestScanError() {
	s, err := scanner.NewScanner(failingScan{FakeManager: testutils.NewFakeManager()}, nil)
	suite.Require().NoError(err)

	_, err = s.Scan(context.Background(), nil, nil)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "scan failed: adapter powered off")
}

type failingScan struct {
	*testutils.FakeManager
}

func (failingScan) Scan(context.Context, connection.ScanHandler) error {
	return errors.New("adapter powered off")
}

// TestScannerTestSuite runs the test suite using testify/suite
func TestScannerTestSuite(t *testing.T) {
	suitelib.Run(t, new(ScannerTestSuite))
}
