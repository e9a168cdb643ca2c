package translator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hedzr/go-ringbuf/v2/mpmc"
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/internal/groutine"
	"github.com/srg/gattkit/pkg/config"
	"github.com/srg/gattkit/pkg/gatt"
)

// Notification is one raw value received from a peripheral.
type Notification struct {
	UUID gatt.UUID
	Raw  []byte
}

// PumpMetrics provides lock-free counters for a Pump.
// All fields use atomic operations for thread-safe access
type PumpMetrics struct {
	Ingested    int64 // notifications handed to the pairing buffer
	Overwritten int64 // notifications lost to ring buffer overflow
	Errors      int64 // enqueue or dequeue failures
}

func (m *PumpMetrics) incIngested() {
	atomic.AddInt64(&m.Ingested, 1)
}

func (m *PumpMetrics) incErrors() {
	atomic.AddInt64(&m.Errors, 1)
}

func (m *PumpMetrics) addOverwritten(n uint32) {
	atomic.AddInt64(&m.Overwritten, int64(n))
}

func (m *PumpMetrics) snapshot() PumpMetrics {
	return PumpMetrics{
		Ingested:    atomic.LoadInt64(&m.Ingested),
		Overwritten: atomic.LoadInt64(&m.Overwritten),
		Errors:      atomic.LoadInt64(&m.Errors),
	}
}

const (
	// PumpStateNotRunning is the state before Start and after Stop.
	PumpStateNotRunning uint32 = iota
	// PumpStateRunning means the consumer goroutine is draining the buffer.
	PumpStateRunning
	// PumpStateStopping means Stop is waiting for the final drain.
	PumpStateStopping

	// MaxPumpBufferSize guards against accidental misconfiguration.
	MaxPumpBufferSize uint32 = 1024 * 1024
)

// Pump is the thread-safe front of a PairingBuffer. Any number of goroutines,
// typically transport notification callbacks, Push into an overlapped ring
// buffer; one consumer goroutine feeds the pairing buffer. When producers
// outrun the consumer the oldest notifications are overwritten and counted
// in PumpMetrics.Overwritten.
//
// While the pump runs, the pairing buffer must not be used directly.
type Pump[K comparable] struct {
	pairing *PairingBuffer[K]
	buffer  mpmc.RichOverlappedRingBuffer[Notification]
	wake    chan struct{}
	stop    chan struct{}
	done    <-chan struct{}
	metrics PumpMetrics
	state   uint32
	logger  *logrus.Logger

	// lifecycle serializes Start and Stop, so Stop never sees a running
	// state before stop and done are assigned.
	lifecycle sync.Mutex
}

// NewPump creates a pump with room for size notifications in flight.
func NewPump[K comparable](pairing *PairingBuffer[K], size uint32) (*Pump[K], error) {
	if pairing == nil {
		return nil, errors.New("pairing buffer cannot be nil")
	}
	if size == 0 {
		return nil, errors.New("buffer size must be > 0")
	}
	if size > MaxPumpBufferSize {
		return nil, fmt.Errorf("buffer size %d exceeds maximum %d", size, MaxPumpBufferSize)
	}

	return &Pump[K]{
		pairing: pairing,
		buffer:  mpmc.NewOverlappedRingBuffer[Notification](size),
		wake:    make(chan struct{}, 1),
		logger:  pairing.logger,
		state:   PumpStateNotRunning,
	}, nil
}

// NewPumpFromConfig creates a pump sized by cfg.PumpBufferSize.
func NewPumpFromConfig[K comparable](pairing *PairingBuffer[K], cfg *config.Config) (*Pump[K], error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return NewPump(pairing, cfg.PumpBufferSize)
}

// Start launches the consumer goroutine. It stops on Stop or when ctx is
// done, draining whatever is still buffered first.
func (p *Pump[K]) Start(ctx context.Context) error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if !atomic.CompareAndSwapUint32(&p.state, PumpStateNotRunning, PumpStateRunning) {
		switch state := atomic.LoadUint32(&p.state); state {
		case PumpStateRunning:
			return fmt.Errorf("pump is already running")
		case PumpStateStopping:
			return fmt.Errorf("pump is stopping, wait for it to finish")
		default:
			return fmt.Errorf("pump is in unknown state %d", state)
		}
	}

	// fresh channels per start cycle
	p.stop = make(chan struct{})
	stop := p.stop
	p.done = groutine.Go(ctx, "gatt-pump", func(ctx context.Context) {
		defer atomic.StoreUint32(&p.state, PumpStateNotRunning)
		p.run(ctx, stop)
	})
	return nil
}

func (p *Pump[K]) run(ctx context.Context, stop <-chan struct{}) {
	p.logger.WithField("goroutine", groutine.GetName(ctx)).Debug("Pump started")
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case <-stop:
			p.drain()
			return
		case <-p.wake:
			p.drain()
		}
	}
}

func (p *Pump[K]) drain() {
	for !p.buffer.IsEmpty() {
		n, err := p.buffer.Dequeue()
		if err != nil {
			p.metrics.incErrors()
			p.logger.WithError(err).Warn("Pump dequeue failed")
			return
		}
		p.pairing.Ingest(n.UUID, n.Raw)
		p.metrics.incIngested()
	}
}

// Push queues one notification. It never blocks; on overflow the oldest
// queued notification is dropped.
func (p *Pump[K]) Push(u gatt.UUID, raw []byte) error {
	overwrites, err := p.buffer.EnqueueM(Notification{UUID: u, Raw: bytes.Clone(raw)})
	if err != nil {
		p.metrics.incErrors()
		return fmt.Errorf("failed to queue notification for %s: %w", u.ShortString(), err)
	}
	if overwrites > 0 {
		p.metrics.addOverwritten(overwrites)
		p.logger.WithFields(logrus.Fields{
			"uuid":        u.ShortString(),
			"overwritten": overwrites,
		}).Warn("Pump buffer overflow, dropped oldest notifications")
	}

	select {
	case p.wake <- struct{}{}:
	default:
	}
	return nil
}

// Handler returns a notification callback bound to u, suitable for
// connection.Manager.StartNotify.
func (p *Pump[K]) Handler(u gatt.UUID) func([]byte) {
	return func(data []byte) {
		if err := p.Push(u, data); err != nil {
			p.logger.WithError(err).Warn("Dropped notification")
		}
	}
}

// Stop signals the consumer, waits for the final drain and returns. Stopping
// a pump that is not running is a no-op.
func (p *Pump[K]) Stop() error {
	p.lifecycle.Lock()
	defer p.lifecycle.Unlock()

	if !atomic.CompareAndSwapUint32(&p.state, PumpStateRunning, PumpStateStopping) {
		switch state := atomic.LoadUint32(&p.state); state {
		case PumpStateNotRunning:
			return nil
		case PumpStateStopping:
		default:
			return fmt.Errorf("pump is in unknown state %d", state)
		}
	} else {
		close(p.stop)
	}

	select {
	case <-p.done:
		return nil
	case <-time.After(5 * time.Second):
		<-p.done
		return fmt.Errorf("stop completed but exceeded 5s timeout (possible slow pair callback)")
	}
}

// Metrics returns a copy of the current counters.
func (p *Pump[K]) Metrics() PumpMetrics {
	return p.metrics.snapshot()
}

// State returns the current lifecycle state.
func (p *Pump[K]) State() uint32 {
	return atomic.LoadUint32(&p.state)
}
