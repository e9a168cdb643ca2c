// Package scanner collects advertisement-level DeviceInfo for peripherals in
// range. The result seeds gatt.Context.DeviceInfo for later translation.
package scanner

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/pkg/connection"
	"github.com/srg/gattkit/pkg/gatt"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// DeviceEventType marks if the device was newly discovered or updated
type DeviceEventType int

const (
	EventNew DeviceEventType = iota
	EventUpdated
)

type DeviceEvent struct {
	Type       DeviceEventType
	DeviceInfo gatt.DeviceInfo
}

// DefaultEventBuffer is how many events Events holds before the oldest are
// dropped.
const DefaultEventBuffer = 100

// Scanner handles BLE device discovery
type Scanner struct {
	manager connection.Manager
	devices *hashmap.Map[string, gatt.DeviceInfo]
	events  chan DeviceEvent
	logger  *logrus.Logger
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	// Duration of zero scans until ctx is done.
	Duration     time.Duration
	ServiceUUIDs []gatt.UUID
	AllowList    []string
	BlockList    []string
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration: 10 * time.Second,
	}
}

// NewScanner creates a scanner that discovers through manager.
func NewScanner(manager connection.Manager, logger *logrus.Logger) (*Scanner, error) {
	if manager == nil {
		return nil, fmt.Errorf("connection manager cannot be nil")
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Scanner{
		manager: manager,
		devices: hashmap.New[string, gatt.DeviceInfo](),
		events:  make(chan DeviceEvent, DefaultEventBuffer),
		logger:  logger,
	}, nil
}

// Scan performs BLE discovery with provided options and returns every
// matching device keyed by address.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) (map[string]gatt.DeviceInfo, error) {
	s.devices = hashmap.New[string, gatt.DeviceInfo]()

	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {}
	}

	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	s.logger.WithField("duration", opts.Duration).Info("Starting BLE scan...")
	progressCallback("Scanning")

	err := s.manager.Scan(ctx, func(info gatt.DeviceInfo) {
		s.handleAdvertisement(info, opts)
	})
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	s.logger.WithField("device_count", s.devices.Len()).Info("BLE scan completed")
	progressCallback("Processing results")

	devices := make(map[string]gatt.DeviceInfo, s.devices.Len())
	s.devices.Range(func(key string, value gatt.DeviceInfo) bool {
		devices[key] = value
		return true
	})
	return devices, nil
}

// handleAdvertisement updates existing or adds a new device
func (s *Scanner) handleAdvertisement(info gatt.DeviceInfo, opts *ScanOptions) {
	if info.Address == "" {
		return
	}

	prev, existing := s.devices.Get(info.Address)
	if !existing && !shouldIncludeDevice(info, opts) {
		return
	}

	event := DeviceEvent{Type: EventNew, DeviceInfo: info}
	if existing {
		event.Type = EventUpdated
		event.DeviceInfo = merge(prev, info)
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":  info.Name,
			"address": info.Address,
			"rssi":    info.RSSI,
		}).Info("Discovered new device")
	}
	s.devices.Set(info.Address, event.DeviceInfo)

	s.forceSend(event)
}

// forceSend drops the oldest queued event when the buffer is full.
func (s *Scanner) forceSend(event DeviceEvent) {
	for {
		select {
		case s.events <- event:
			return
		default:
		}
		select {
		case <-s.events:
		default:
		}
	}
}

// merge folds a newer advertisement into what is known about a device.
// Scan responses often carry only some fields, so empty ones keep the
// previous value.
func merge(prev, next gatt.DeviceInfo) gatt.DeviceInfo {
	out := prev
	out.RSSI = next.RSSI
	if next.Name != "" {
		out.Name = next.Name
	}
	if len(next.ManufacturerData) > 0 {
		out.ManufacturerData = next.ManufacturerData
	}
	for _, u := range next.Services {
		if !slices.Contains(out.Services, u) {
			out.Services = append(out.Services, u)
		}
	}
	if len(next.ServiceData) > 0 {
		sd := make(map[gatt.UUID][]byte, len(prev.ServiceData)+len(next.ServiceData))
		for k, v := range prev.ServiceData {
			sd[k] = v
		}
		for k, v := range next.ServiceData {
			sd[k] = v
		}
		out.ServiceData = sd
	}
	return out
}

// shouldIncludeDevice applies to allow/block/service filters. A service
// matches when it is advertised or carries service data.
func shouldIncludeDevice(info gatt.DeviceInfo, opts *ScanOptions) bool {
	if slices.Contains(opts.BlockList, info.Address) {
		return false
	}

	if len(opts.AllowList) > 0 && !slices.Contains(opts.AllowList, info.Address) {
		return false
	}

	if len(opts.ServiceUUIDs) > 0 {
		for _, required := range opts.ServiceUUIDs {
			if slices.Contains(info.Services, required) {
				return true
			}
			if _, ok := info.ServiceData[required]; ok {
				return true
			}
		}
		return false
	}

	return true
}

// Devices returns a snapshot of the devices discovered by the last scan.
func (s *Scanner) Devices() []gatt.DeviceInfo {
	devs := make([]gatt.DeviceInfo, 0, s.devices.Len())
	s.devices.Range(func(_ string, value gatt.DeviceInfo) bool {
		devs = append(devs, value)
		return true
	})
	slices.SortFunc(devs, func(a, b gatt.DeviceInfo) int {
		return strings.Compare(a.Address, b.Address)
	})
	return devs
}

// Events return a read-only channel of device events
func (s *Scanner) Events() <-chan DeviceEvent {
	return s.events
}
