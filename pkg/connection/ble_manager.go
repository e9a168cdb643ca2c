package connection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-ble/ble"
	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/pkg/gatt"
)

// DeviceFactory creates the platform HCI device, for example
// darwin.NewDevice or linux.NewDevice.
type DeviceFactory func() (ble.Device, error)

// BLEManager is a Manager backed by go-ble.
type BLEManager struct {
	newDevice DeviceFactory
	opts      ConnectOptions
	logger    *logrus.Logger

	connMutex  sync.RWMutex
	writeMutex sync.Mutex
	device     ble.Device
	client     ble.Client
	profile    *ble.Profile

	// subscriptions maps a characteristic to whether it was subscribed as an
	// indication.
	subscriptions map[gatt.UUID]bool
}

// NewBLEManager creates a manager that opens its device with newDevice on
// first use. opts may be nil.
func NewBLEManager(newDevice DeviceFactory, opts *ConnectOptions, logger *logrus.Logger) *BLEManager {
	if logger == nil {
		logger = logrus.New()
	}
	options := ConnectOptions{}
	defaults.SetDefaults(&options)
	if opts != nil {
		options = *opts
		if options.ConnectTimeout <= 0 {
			defaults.SetDefaults(&options)
		}
	}

	return &BLEManager{
		newDevice:     newDevice,
		opts:          options,
		logger:        logger,
		subscriptions: make(map[gatt.UUID]bool),
	}
}

// ensureDevice must be called with connMutex held for writing.
func (m *BLEManager) ensureDevice() (ble.Device, error) {
	if m.device != nil {
		return m.device, nil
	}
	if m.newDevice == nil {
		return nil, &ConnectionError{State: NotInitialized, Msg: "no BLE device factory"}
	}
	dev, err := m.newDevice()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}
	m.device = dev
	return dev, nil
}

// Connect dials address and discovers its GATT profile.
func (m *BLEManager) Connect(ctx context.Context, address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("failed connect to device: device address is not set")
	}

	m.connMutex.Lock()
	defer m.connMutex.Unlock()

	if m.client != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyConnected, m.client.Addr().String())
	}

	dev, err := m.ensureDevice()
	if err != nil {
		return err
	}

	m.logger.WithField("address", address).Info("Connecting to BLE device...")

	connCtx, cancel := context.WithTimeout(ctx, m.opts.ConnectTimeout)
	defer cancel()

	client, err := dev.Dial(connCtx, ble.NewAddr(address))
	if err != nil {
		return fmt.Errorf("failed to connect to device with address %q: %w", address, NormalizeError(err))
	}

	profile, err := client.DiscoverProfile(true)
	if err != nil {
		if cerr := client.CancelConnection(); cerr != nil {
			m.logger.WithError(cerr).Warn("Failed to cancel connection after discovery error")
		}
		return fmt.Errorf("failed to discover profile: %w", NormalizeError(err))
	}

	m.client = client
	m.profile = profile
	m.logger.WithFields(logrus.Fields{
		"address":  address,
		"services": len(profile.Services),
	}).Info("BLE device connected")
	return nil
}

// Disconnect drops all subscriptions and closes the connection. It is a
// no-op when not connected.
func (m *BLEManager) Disconnect() error {
	m.connMutex.Lock()
	defer m.connMutex.Unlock()

	if m.client == nil {
		return nil
	}

	if len(m.subscriptions) > 0 {
		if err := m.client.ClearSubscriptions(); err != nil {
			m.logger.WithError(err).Warn("Failed to clear subscriptions during disconnect")
		}
		m.subscriptions = make(map[gatt.UUID]bool)
	}

	err := m.client.CancelConnection()
	m.client = nil
	m.profile = nil

	if err != nil {
		m.logger.WithError(err).Warn("BLE device disconnected with errors")
		return NormalizeError(err)
	}
	m.logger.Info("BLE device disconnected")
	return nil
}

func (m *BLEManager) IsConnected() bool {
	m.connMutex.RLock()
	defer m.connMutex.RUnlock()
	return m.client != nil
}

// Pair is not available through go-ble; bonding is left to the OS.
func (m *BLEManager) Pair(context.Context) error {
	return fmt.Errorf("pair: %w", ErrUnsupported)
}

// Unpair is not available through go-ble.
func (m *BLEManager) Unpair(context.Context) error {
	return fmt.Errorf("unpair: %w", ErrUnsupported)
}

// characteristic must be called with connMutex held.
func (m *BLEManager) characteristic(u gatt.UUID) (*ble.Characteristic, error) {
	if m.client == nil {
		return nil, ErrNotConnected
	}
	target := u.BLE()
	for _, svc := range m.profile.Services {
		for _, c := range svc.Characteristics {
			if c.UUID.Equal(target) {
				return c, nil
			}
		}
	}
	return nil, &NotFoundError{Resource: "characteristic", UUIDs: []gatt.UUID{u}}
}

// descriptor must be called with connMutex held.
func (m *BLEManager) descriptor(char, desc gatt.UUID) (*ble.Descriptor, error) {
	c, err := m.characteristic(char)
	if err != nil {
		return nil, err
	}
	target := desc.BLE()
	for _, d := range c.Descriptors {
		if d.UUID.Equal(target) {
			return d, nil
		}
	}
	return nil, &NotFoundError{Resource: "descriptor", UUIDs: []gatt.UUID{char, desc}}
}

// call runs a blocking go-ble operation, giving up when ctx is done. The
// operation itself keeps running until the stack answers.
func call[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, NormalizeError(r.err)
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
}

func (m *BLEManager) ReadCharacteristic(ctx context.Context, char gatt.UUID) ([]byte, error) {
	m.connMutex.RLock()
	defer m.connMutex.RUnlock()

	c, err := m.characteristic(char)
	if err != nil {
		return nil, err
	}
	client := m.client
	return call(ctx, func() ([]byte, error) {
		return client.ReadCharacteristic(c)
	})
}

func (m *BLEManager) WriteCharacteristic(ctx context.Context, char gatt.UUID, data []byte, withResponse bool) error {
	m.connMutex.RLock()
	defer m.connMutex.RUnlock()

	c, err := m.characteristic(char)
	if err != nil {
		return err
	}

	m.writeMutex.Lock()
	defer m.writeMutex.Unlock()

	client := m.client
	_, err = call(ctx, func() (struct{}, error) {
		return struct{}{}, client.WriteCharacteristic(c, data, !withResponse)
	})
	return err
}

func (m *BLEManager) ReadDescriptor(ctx context.Context, char, desc gatt.UUID) ([]byte, error) {
	m.connMutex.RLock()
	defer m.connMutex.RUnlock()

	d, err := m.descriptor(char, desc)
	if err != nil {
		return nil, err
	}
	client := m.client
	return call(ctx, func() ([]byte, error) {
		return client.ReadDescriptor(d)
	})
}

func (m *BLEManager) WriteDescriptor(ctx context.Context, char, desc gatt.UUID, data []byte) error {
	m.connMutex.RLock()
	defer m.connMutex.RUnlock()

	d, err := m.descriptor(char, desc)
	if err != nil {
		return err
	}

	m.writeMutex.Lock()
	defer m.writeMutex.Unlock()

	client := m.client
	_, err = call(ctx, func() (struct{}, error) {
		return struct{}{}, client.WriteDescriptor(d, data)
	})
	return err
}

// StartNotify subscribes to char, preferring notifications over indications
// when the characteristic supports both.
func (m *BLEManager) StartNotify(char gatt.UUID, handler NotificationHandler) error {
	if handler == nil {
		return errors.New("notification handler cannot be nil")
	}

	m.connMutex.Lock()
	defer m.connMutex.Unlock()

	c, err := m.characteristic(char)
	if err != nil {
		return err
	}
	if _, ok := m.subscriptions[char]; ok {
		return fmt.Errorf("characteristic %s is already subscribed", char.ShortString())
	}

	var indicate bool
	switch {
	case c.Property&ble.CharNotify != 0:
	case c.Property&ble.CharIndicate != 0:
		indicate = true
	default:
		return fmt.Errorf("characteristic %s supports neither notify nor indicate: %w", char.ShortString(), ErrUnsupported)
	}

	if err := m.client.Subscribe(c, indicate, func(data []byte) { handler(data) }); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", char.ShortString(), NormalizeError(err))
	}
	m.subscriptions[char] = indicate

	m.logger.WithFields(logrus.Fields{
		"uuid":     char.ShortString(),
		"indicate": indicate,
	}).Debug("Subscribed to characteristic")
	return nil
}

// StopNotify unsubscribes from char. It is a no-op when char is not
// subscribed.
func (m *BLEManager) StopNotify(char gatt.UUID) error {
	m.connMutex.Lock()
	defer m.connMutex.Unlock()

	indicate, ok := m.subscriptions[char]
	if !ok {
		return nil
	}
	c, err := m.characteristic(char)
	if err != nil {
		return err
	}
	if err := m.client.Unsubscribe(c, indicate); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", char.ShortString(), NormalizeError(err))
	}
	delete(m.subscriptions, char)
	return nil
}

func (m *BLEManager) ReadRSSI(ctx context.Context) (int, error) {
	m.connMutex.RLock()
	defer m.connMutex.RUnlock()

	if m.client == nil {
		return 0, ErrNotConnected
	}
	client := m.client
	return call(ctx, func() (int, error) {
		return client.ReadRSSI(), nil
	})
}

// Scan reports advertisements until ctx is done. Reaching the deadline or
// cancelling ctx ends the scan without an error.
func (m *BLEManager) Scan(ctx context.Context, handler ScanHandler) error {
	if handler == nil {
		return errors.New("scan handler cannot be nil")
	}

	m.connMutex.Lock()
	dev, err := m.ensureDevice()
	m.connMutex.Unlock()
	if err != nil {
		return err
	}

	err = dev.Scan(ctx, m.opts.AllowDuplicates, func(a ble.Advertisement) {
		handler(deviceInfo(a, m.logger))
	})
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("scan failed: %w", NormalizeError(err))
	}
	return nil
}

func deviceInfo(a ble.Advertisement, logger *logrus.Logger) gatt.DeviceInfo {
	info := gatt.DeviceInfo{
		Name:             a.LocalName(),
		RSSI:             a.RSSI(),
		ManufacturerData: a.ManufacturerData(),
	}
	if addr := a.Addr(); addr != nil {
		info.Address = addr.String()
	}

	for _, su := range a.Services() {
		u, err := gatt.FromBLE(su)
		if err != nil {
			logger.WithError(err).WithField("address", info.Address).Debug("Skipping advertised service with invalid UUID")
			continue
		}
		info.Services = append(info.Services, u)
	}

	for _, sd := range a.ServiceData() {
		u, err := gatt.FromBLE(sd.UUID)
		if err != nil {
			logger.WithError(err).WithField("address", info.Address).Debug("Skipping service data with invalid UUID")
			continue
		}
		if info.ServiceData == nil {
			info.ServiceData = make(map[gatt.UUID][]byte)
		}
		info.ServiceData[u] = sd.Data
	}
	return info
}
