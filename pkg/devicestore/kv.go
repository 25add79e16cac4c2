/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
// Package devicestore keeps provisioned devices in a JetStream key-value
// bucket so the host knows its phones after a restart.
package devicestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/provisioning"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// KVStore stores each device's newest record under its encoded device id,
// in the radio wire format.
type KVStore struct {
	kv     jetstream.KeyValue
	logger logger.Logger
}

// NewKVStore creates the bucket if needed.
func NewKVStore(ctx context.Context, nc *nats.Conn, cfg models.StoreConfig, log logger.Logger) (*KVStore, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      cfg.Bucket,
		Description: "webcamd provisioned devices",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open device bucket %s: %w", cfg.Bucket, err)
	}

	return &KVStore{kv: kv, logger: log}, nil
}

// device ids are free-form; KV keys are not.
func key(deviceID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(deviceID))
}

// Save keeps rec unless the stored record for the device is as new or newer.
func (s *KVStore) Save(ctx context.Context, rec models.ProvisioningRecord) error {
	k := key(rec.DeviceID)

	entry, err := s.kv.Get(ctx, k)

	switch {
	case errors.Is(err, jetstream.ErrKeyNotFound):
	case err != nil:
		return fmt.Errorf("failed to read device %s: %w", rec.DeviceID, err)
	default:
		if stored, err := provisioning.DecodeRecord(entry.Value()); err == nil && stored.Version >= rec.Version {
			return nil
		}
	}

	if _, err := s.kv.Put(ctx, k, provisioning.EncodeRecord(&rec)); err != nil {
		return fmt.Errorf("failed to store device %s: %w", rec.DeviceID, err)
	}

	s.logger.Debug().Str("device_id", rec.DeviceID).Uint64("version", rec.Version).Msg("Stored device")

	return nil
}

// Forget removes the device. Forgetting an unknown device is not an error.
func (s *KVStore) Forget(ctx context.Context, deviceID string) error {
	err := s.kv.Delete(ctx, key(deviceID))
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to forget device %s: %w", deviceID, err)
	}

	return nil
}

// List returns every stored record. Entries that no longer decode are
// skipped with a warning.
func (s *KVStore) List(ctx context.Context) ([]models.ProvisioningRecord, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	defer func() { _ = lister.Stop() }()

	var keys []string
	for k := range lister.Keys() {
		keys = append(keys, k)
	}

	records := make([]models.ProvisioningRecord, 0, len(keys))

	for _, k := range keys {
		entry, err := s.kv.Get(ctx, k)
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("failed to read device key %s: %w", k, err)
		}

		rec, err := provisioning.DecodeRecord(entry.Value())
		if err != nil {
			s.logger.Warn().Err(err).Str("key", k).Msg("Skipping unreadable stored device")
			continue
		}

		records = append(records, *rec)
	}

	return records, nil
}
