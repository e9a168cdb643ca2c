// Package inspector reads a peripheral's characteristics over a
// connection.Manager and hands the raw values to the translator as one batch.
package inspector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"

	"github.com/srg/gattkit/pkg/connection"
	"github.com/srg/gattkit/pkg/gatt"
	"github.com/srg/gattkit/pkg/translator"
)

// ProgressCallback is called when the inspection phase changes
type ProgressCallback func(phase string)

// InspectOptions defines options for inspecting a BLE device
type InspectOptions struct {
	ConnectTimeout time.Duration `default:"30s"`
}

// InspectCallback processes a connected device and produces output of type R
type InspectCallback[R any] func(ctx context.Context, m connection.Manager) (R, error)

// InspectDevice connects m to address, runs callback and disconnects again,
// whatever the callback returns.
func InspectDevice[R any](ctx context.Context, m connection.Manager, address string, opts *InspectOptions, logger *logrus.Logger, progressCallback ProgressCallback, callback InspectCallback[R]) (R, error) {
	var zero R
	if opts == nil {
		opts = &InspectOptions{}
	}
	if opts.ConnectTimeout <= 0 {
		defaults.SetDefaults(opts)
	}
	if logger == nil {
		logger = logrus.New()
	}
	if progressCallback == nil {
		progressCallback = func(string) {}
	}

	progressCallback("Connecting")

	connCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout)
	err := m.Connect(connCtx, address)
	cancel()
	if err != nil {
		progressCallback("Failed")
		return zero, err
	}

	progressCallback("Connected")

	defer func() {
		if err := m.Disconnect(); err != nil {
			logger.WithError(err).Error("failed to disconnect device")
		}
	}()

	progressCallback("Processing results")
	return callback(ctx, m)
}

// ReadOptions selects what ReadAndTranslate reads.
type ReadOptions struct {
	Characteristics []gatt.UUID
	// Descriptors lists, per characteristic, the descriptors to read with it.
	Descriptors map[gatt.UUID][]gatt.UUID
	DeviceInfo  *gatt.DeviceInfo
}

// ReadAndTranslate reads every requested characteristic and its descriptors
// and parses them as one batch, so dependent codecs see their dependencies.
// Characteristics or descriptors the peripheral lacks are skipped; any other
// read error aborts.
func ReadAndTranslate(ctx context.Context, m connection.Manager, tr *translator.Translator, opts ReadOptions) (*translator.Results, error) {
	if tr == nil {
		return nil, errors.New("translator cannot be nil")
	}
	logger := tr.Logger()

	entries := make([]translator.BatchEntry, 0, len(opts.Characteristics))
	descs := make(translator.DescriptorValues)

	for _, u := range opts.Characteristics {
		raw, err := m.ReadCharacteristic(ctx, u)
		if err != nil {
			var notFound *connection.NotFoundError
			if errors.As(err, &notFound) {
				logger.WithField("uuid", u.ShortString()).Warn("Characteristic not present, skipping")
				continue
			}
			return nil, fmt.Errorf("failed to read characteristic %s: %w", u.ShortString(), err)
		}
		entries = append(entries, translator.BatchEntry{UUID: u, Raw: raw})

		for _, d := range opts.Descriptors[u] {
			value, err := m.ReadDescriptor(ctx, u, d)
			if err != nil {
				var notFound *connection.NotFoundError
				if errors.As(err, &notFound) {
					logger.WithFields(logrus.Fields{
						"uuid":       u.ShortString(),
						"descriptor": d.ShortString(),
					}).Debug("Descriptor not present, skipping")
					continue
				}
				return nil, fmt.Errorf("failed to read descriptor %s of %s: %w", d.ShortString(), u.ShortString(), err)
			}
			if descs[u] == nil {
				descs[u] = make(map[gatt.UUID][]byte)
			}
			descs[u][d] = value
		}
	}

	logger.WithField("characteristics", len(entries)).Debug("Read characteristics, translating")
	return tr.ParseCharacteristicsWith(&gatt.Context{DeviceInfo: opts.DeviceInfo}, translator.NewBatch(entries...), descs), nil
}

// InspectAndTranslate connects to address, reads and translates what opts
// selects, and disconnects.
func InspectAndTranslate(ctx context.Context, m connection.Manager, address string, tr *translator.Translator, opts ReadOptions, inspectOpts *InspectOptions, progressCallback ProgressCallback) (*translator.Results, error) {
	var logger *logrus.Logger
	if tr != nil {
		logger = tr.Logger()
	}
	return InspectDevice(ctx, m, address, inspectOpts, logger, progressCallback,
		func(ctx context.Context, m connection.Manager) (*translator.Results, error) {
			return ReadAndTranslate(ctx, m, tr, opts)
		})
}
