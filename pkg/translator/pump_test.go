package translator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/srg/gattkit/internal/testutils"
	"github.com/srg/gattkit/pkg/catalog"
	"github.com/srg/gattkit/pkg/config"
	"github.com/srg/gattkit/pkg/gatt"
)

type PumpTestSuite struct {
	suite.Suite
	hook    *testutils.CaptureHook
	pairing *PairingBuffer[string]
	levels  []uint8
}

func (s *PumpTestSuite) SetupTest() {
	logger := testutils.NewTestLogger(s.T())
	s.hook = &testutils.CaptureHook{}
	logger.AddHook(s.hook)
	s.levels = nil

	tr := New(WithLogger(logger), WithCatalog(catalog.New(nil)))
	pairing, err := NewPairingBuffer(tr, []gatt.UUID{batteryLevel},
		func(gatt.UUID, *gatt.CharacteristicData) string { return "peripheral" },
		func(_ string, results *Results) {
			d, _ := results.Get(batteryLevel)
			level, _ := gatt.ValueAs[uint8](d)
			s.levels = append(s.levels, level)
		})
	s.Require().NoError(err)
	s.pairing = pairing
}

func (s *PumpTestSuite) TestLifecycle() {
	// GOAL: Verify the pump follows its start/stop state machine
	//
	// TEST SCENARIO: start → second start refused → stop → stop again is a no-op → restart works
	s.Run("StartStop", func() {
		pump, err := NewPump(s.pairing, 16)
		s.Require().NoError(err)
		s.Equal(PumpStateNotRunning, pump.State())

		s.Require().NoError(pump.Start(context.Background()))
		s.Equal(PumpStateRunning, pump.State())

		err = pump.Start(context.Background())
		s.Require().Error(err)
		s.Contains(err.Error(), "already running")

		s.NoError(pump.Stop())
		s.Equal(PumpStateNotRunning, pump.State())
		s.NoError(pump.Stop())

		s.Require().NoError(pump.Start(context.Background()))
		s.NoError(pump.Stop())
	})

	// GOAL: Verify the consumer exits when its context is cancelled
	//
	// TEST SCENARIO: start with cancellable context → cancel → state returns to not running
	s.Run("ContextCancel", func() {
		pump, err := NewPump(s.pairing, 16)
		s.Require().NoError(err)

		ctx, cancel := context.WithCancel(context.Background())
		s.Require().NoError(pump.Start(ctx))
		cancel()

		s.Eventually(func() bool {
			return pump.State() == PumpStateNotRunning
		}, time.Second, 5*time.Millisecond)
		s.NoError(pump.Stop())
	})
}

func (s *PumpTestSuite) TestConcurrentStartStop() {
	// GOAL: Verify Start and Stop racing from several goroutines never panic or hang
	//
	// TEST SCENARIO: 8 goroutines alternate Start and Stop 50 times each → final Stop leaves the pump not running
	pump, err := NewPump(s.pairing, 16)
	s.Require().NoError(err)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 50 {
				_ = pump.Start(context.Background())
				_ = pump.Stop()
			}
		}()
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(10 * time.Second):
		s.FailNow("start/stop did not finish")
	}

	s.NoError(pump.Stop())
	s.Equal(PumpStateNotRunning, pump.State())
}

func (s *PumpTestSuite) TestDelivery() {
	// GOAL: Verify notifications queued before Start are delivered on the final drain
	//
	// TEST SCENARIO: push three values → start → stop → all three paired in order
	s.Run("DrainOnStop", func() {
		s.levels = nil
		pump, err := NewPump(s.pairing, 16)
		s.Require().NoError(err)

		for _, level := range []byte{10, 20, 30} {
			s.Require().NoError(pump.Push(batteryLevel, []byte{level}))
		}
		s.Require().NoError(pump.Start(context.Background()))
		s.Require().NoError(pump.Stop())

		s.Equal([]uint8{10, 20, 30}, s.levels)
		s.Equal(int64(3), pump.Metrics().Ingested)
	})

	// GOAL: Verify the pump copies payloads and serves as a notification callback
	//
	// TEST SCENARIO: handler receives a buffer → caller reuses the buffer → paired value is the original
	s.Run("Handler", func() {
		s.levels = nil
		pump, err := NewPump(s.pairing, 16)
		s.Require().NoError(err)

		handler := pump.Handler(batteryLevel)
		buf := []byte{87}
		handler(buf)
		buf[0] = 0

		s.Require().NoError(pump.Start(context.Background()))
		s.Require().NoError(pump.Stop())
		s.Equal([]uint8{87}, s.levels)
	})

	// GOAL: Verify concurrent producers are serialized into the pairing buffer
	//
	// TEST SCENARIO: 8 goroutines push 50 values each while running → stop → every value paired once
	s.Run("ConcurrentProducers", func() {
		s.levels = nil
		pump, err := NewPump(s.pairing, 1024)
		s.Require().NoError(err)
		s.Require().NoError(pump.Start(context.Background()))

		const producers, perProducer = 8, 50
		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				handler := pump.Handler(batteryLevel)
				for i := 0; i < perProducer; i++ {
					handler([]byte{byte(i)})
				}
			}()
		}
		wg.Wait()
		s.Require().NoError(pump.Stop())

		metrics := pump.Metrics()
		s.Equal(int64(producers*perProducer), metrics.Ingested)
		s.Equal(int64(0), metrics.Overwritten)
		s.Equal(int64(0), metrics.Errors)
		s.Len(s.levels, producers*perProducer)
	})
}

func (s *PumpTestSuite) TestOverflow() {
	// GOAL: Verify a full ring buffer drops the oldest notifications instead of blocking
	//
	// TEST SCENARIO: push far beyond capacity without a consumer → overwrites counted and logged → newest values still delivered
	pump, err := NewPump(s.pairing, 4)
	s.Require().NoError(err)

	const pushed = 64
	for i := 0; i < pushed; i++ {
		s.Require().NoError(pump.Push(batteryLevel, []byte{byte(i)}))
	}

	metrics := pump.Metrics()
	s.Greater(metrics.Overwritten, int64(0))
	s.Contains(s.hook.Messages(logrus.WarnLevel), "Pump buffer overflow, dropped oldest notifications")

	s.Require().NoError(pump.Start(context.Background()))
	s.Require().NoError(pump.Stop())

	s.Greater(pump.Metrics().Ingested, int64(0))
	s.Less(pump.Metrics().Ingested, int64(pushed))
	s.Require().NotEmpty(s.levels)
	s.Equal(uint8(pushed-1), s.levels[len(s.levels)-1], "the newest notification survives")
}

func TestPumpTestSuite(t *testing.T) {
	suite.Run(t, new(PumpTestSuite))
}

func TestNewPumpValidation(t *testing.T) {
	pairing, err := NewPairingBuffer(newTestTranslator(t), []gatt.UUID{batteryLevel},
		func(gatt.UUID, *gatt.CharacteristicData) int { return 0 },
		func(int, *Results) {})
	require.NoError(t, err)

	tests := []struct {
		name    string
		pairing *PairingBuffer[int]
		size    uint32
		wantErr string
	}{
		{name: "nil pairing buffer", pairing: nil, size: 8, wantErr: "pairing buffer cannot be nil"},
		{name: "zero size", pairing: pairing, size: 0, wantErr: "buffer size must be > 0"},
		{name: "oversized", pairing: pairing, size: MaxPumpBufferSize + 1, wantErr: "exceeds maximum"},
		{name: "valid", pairing: pairing, size: 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pump, err := NewPump(tt.pairing, tt.size)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, pump)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, PumpStateNotRunning, pump.State())
		})
	}
}

func TestNewPumpFromConfig(t *testing.T) {
	pairing, err := NewPairingBuffer(newTestTranslator(t), []gatt.UUID{batteryLevel},
		func(gatt.UUID, *gatt.CharacteristicData) int { return 0 },
		func(int, *Results) {})
	require.NoError(t, err)

	pump, err := NewPumpFromConfig(pairing, nil)
	require.NoError(t, err)
	assert.NotNil(t, pump)

	cfg := config.DefaultConfig()
	cfg.PumpBufferSize = 0
	_, err = NewPumpFromConfig(pairing, cfg)
	assert.Error(t, err)
}
