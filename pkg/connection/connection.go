// Package connection describes the transport a translator consumer owns.
//
// The translator never calls a Manager. Applications use one to obtain raw
// characteristic and descriptor values and feed them to
// translator.ParseCharacteristic, ParseCharacteristics or a Pump.
package connection

import (
	"context"
	"time"

	"github.com/srg/gattkit/pkg/gatt"
)

// NotificationHandler receives the raw value of one notification or
// indication. It runs on a transport goroutine.
type NotificationHandler func(data []byte)

// ScanHandler receives one advertisement seen during a scan.
type ScanHandler func(info gatt.DeviceInfo)

// Manager is a connection to one peripheral.
type Manager interface {
	Connect(ctx context.Context, address string) error
	Disconnect() error
	IsConnected() bool

	Pair(ctx context.Context) error
	Unpair(ctx context.Context) error

	ReadCharacteristic(ctx context.Context, char gatt.UUID) ([]byte, error)
	WriteCharacteristic(ctx context.Context, char gatt.UUID, data []byte, withResponse bool) error
	ReadDescriptor(ctx context.Context, char, desc gatt.UUID) ([]byte, error)
	WriteDescriptor(ctx context.Context, char, desc gatt.UUID, data []byte) error

	StartNotify(char gatt.UUID, handler NotificationHandler) error
	StopNotify(char gatt.UUID) error

	ReadRSSI(ctx context.Context) (int, error)
	Scan(ctx context.Context, handler ScanHandler) error
}

// ConnectOptions configures a BLEManager.
type ConnectOptions struct {
	ConnectTimeout time.Duration `default:"30s"`
	// AllowDuplicates reports every advertisement during Scan, not only the
	// first per address.
	AllowDuplicates bool
}
