package testutils

import (
	"context"
	"fmt"
	"sync"

	"github.com/srg/gattkit/pkg/connection"
	"github.com/srg/gattkit/pkg/gatt"
)

// FakeManager is an in-memory connection.Manager. Configure it with the
// With* methods before use; it is safe for concurrent use afterwards.
type FakeManager struct {
	mu          sync.Mutex
	address     string
	connected   bool
	connectErr  error
	rssi        int
	values      map[gatt.UUID][]byte
	descriptors map[gatt.UUID]map[gatt.UUID][]byte
	readErrs    map[gatt.UUID]error
	handlers    map[gatt.UUID]connection.NotificationHandler
	adverts     []gatt.DeviceInfo
	writes      []FakeWrite
}

// FakeWrite records one characteristic write.
type FakeWrite struct {
	UUID         gatt.UUID
	Data         []byte
	WithResponse bool
}

var _ connection.Manager = (*FakeManager)(nil)

func NewFakeManager() *FakeManager {
	return &FakeManager{
		values:      make(map[gatt.UUID][]byte),
		descriptors: make(map[gatt.UUID]map[gatt.UUID][]byte),
		readErrs:    make(map[gatt.UUID]error),
		handlers:    make(map[gatt.UUID]connection.NotificationHandler),
	}
}

func (f *FakeManager) WithCharacteristic(u gatt.UUID, value []byte) *FakeManager {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[u] = value
	return f
}

func (f *FakeManager) WithDescriptor(char, desc gatt.UUID, value []byte) *FakeManager {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.descriptors[char] == nil {
		f.descriptors[char] = make(map[gatt.UUID][]byte)
	}
	f.descriptors[char][desc] = value
	return f
}

// WithReadError makes reads of u fail with err.
func (f *FakeManager) WithReadError(u gatt.UUID, err error) *FakeManager {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readErrs[u] = err
	return f
}

func (f *FakeManager) WithConnectError(err error) *FakeManager {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectErr = err
	return f
}

func (f *FakeManager) WithRSSI(rssi int) *FakeManager {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rssi = rssi
	return f
}

// WithAdvertisements sets what Scan reports, in order.
func (f *FakeManager) WithAdvertisements(infos ...gatt.DeviceInfo) *FakeManager {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.adverts = append(f.adverts, infos...)
	return f
}

func (f *FakeManager) Connect(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connectErr != nil {
		return f.connectErr
	}
	if f.connected {
		return connection.ErrAlreadyConnected
	}
	f.address = address
	f.connected = true
	return nil
}

func (f *FakeManager) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.handlers = make(map[gatt.UUID]connection.NotificationHandler)
	return nil
}

func (f *FakeManager) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Address returns the address of the last successful Connect.
func (f *FakeManager) Address() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.address
}

func (f *FakeManager) Pair(context.Context) error   { return connection.ErrUnsupported }
func (f *FakeManager) Unpair(context.Context) error { return connection.ErrUnsupported }

func (f *FakeManager) ReadCharacteristic(_ context.Context, char gatt.UUID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, connection.ErrNotConnected
	}
	if err := f.readErrs[char]; err != nil {
		return nil, err
	}
	v, ok := f.values[char]
	if !ok {
		return nil, &connection.NotFoundError{Resource: "characteristic", UUIDs: []gatt.UUID{char}}
	}
	return append([]byte(nil), v...), nil
}

func (f *FakeManager) WriteCharacteristic(_ context.Context, char gatt.UUID, data []byte, withResponse bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return connection.ErrNotConnected
	}
	if _, ok := f.values[char]; !ok {
		return &connection.NotFoundError{Resource: "characteristic", UUIDs: []gatt.UUID{char}}
	}
	f.values[char] = append([]byte(nil), data...)
	f.writes = append(f.writes, FakeWrite{UUID: char, Data: append([]byte(nil), data...), WithResponse: withResponse})
	return nil
}

// Writes returns the characteristic writes seen so far.
func (f *FakeManager) Writes() []FakeWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]FakeWrite(nil), f.writes...)
}

func (f *FakeManager) ReadDescriptor(_ context.Context, char, desc gatt.UUID) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return nil, connection.ErrNotConnected
	}
	v, ok := f.descriptors[char][desc]
	if !ok {
		return nil, &connection.NotFoundError{Resource: "descriptor", UUIDs: []gatt.UUID{char, desc}}
	}
	return append([]byte(nil), v...), nil
}

func (f *FakeManager) WriteDescriptor(_ context.Context, char, desc gatt.UUID, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return connection.ErrNotConnected
	}
	if _, ok := f.descriptors[char][desc]; !ok {
		return &connection.NotFoundError{Resource: "descriptor", UUIDs: []gatt.UUID{char, desc}}
	}
	f.descriptors[char][desc] = append([]byte(nil), data...)
	return nil
}

func (f *FakeManager) StartNotify(char gatt.UUID, handler connection.NotificationHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return connection.ErrNotConnected
	}
	if _, ok := f.handlers[char]; ok {
		return fmt.Errorf("characteristic %s is already subscribed", char.ShortString())
	}
	f.handlers[char] = handler
	return nil
}

func (f *FakeManager) StopNotify(char gatt.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.handlers, char)
	return nil
}

// Notify delivers data to the handler subscribed to char. It reports false
// when nothing is subscribed.
func (f *FakeManager) Notify(char gatt.UUID, data []byte) bool {
	f.mu.Lock()
	handler, ok := f.handlers[char]
	f.mu.Unlock()
	if !ok {
		return false
	}
	handler(data)
	return true
}

func (f *FakeManager) ReadRSSI(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.connected {
		return 0, connection.ErrNotConnected
	}
	return f.rssi, nil
}

// Scan reports every configured advertisement, then waits for ctx.
func (f *FakeManager) Scan(ctx context.Context, handler connection.ScanHandler) error {
	f.mu.Lock()
	adverts := append([]gatt.DeviceInfo(nil), f.adverts...)
	f.mu.Unlock()

	for _, info := range adverts {
		if ctx.Err() != nil {
			return nil
		}
		handler(info)
	}
	<-ctx.Done()
	return nil
}
