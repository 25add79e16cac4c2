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

package provisioning

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/metrics"
	"github.com/carverauto/webcamdirect/pkg/models"
)

// Channel turns radio writes into validated provisioning records.
type Channel struct {
	radio   Radio
	config  models.ProvisioningConfig
	adv     Advertisement
	logger  logger.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

// NewChannel builds a provisioning channel. connectionType is "ap" when the
// host runs its own access point for the direct transport, "wlan" otherwise.
func NewChannel(radio Radio, cfg models.ProvisioningConfig, connectionType string, log logger.Logger, rec *metrics.Recorder) *Channel {
	return &Channel{
		radio:  radio,
		config: cfg,
		adv: Advertisement{
			HostID:         cfg.HostID,
			HostName:       cfg.HostName,
			ConnectionType: connectionType,
		},
		logger:  log,
		metrics: rec,
		now:     time.Now,
	}
}

// Advertise makes the host discoverable.
func (c *Channel) Advertise(ctx context.Context) error {
	if err := c.radio.Advertise(ctx, EncodeAdvertisement(c.adv)); err != nil {
		return fmt.Errorf("advertise: %w", err)
	}

	c.logger.Info().
		Str("host_name", c.adv.HostName).
		Str("connection_type", c.adv.ConnectionType).
		Msg("Advertising host for provisioning")

	return nil
}

// Listen subscribes to the radio and yields one record per completed
// exchange until ctx is done. Nothing is subscribed before Listen is called,
// and calling it again after the channel closes starts a fresh subscription.
// Malformed payloads are logged and dropped.
func (c *Channel) Listen(ctx context.Context) <-chan models.ProvisioningRecord {
	out := make(chan models.ProvisioningRecord)

	go func() {
		defer close(out)

		writes, err := c.radio.Writes(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				c.logger.Error().Err(err).Msg("Failed to subscribe to radio writes")
			}

			return
		}

		reasm := NewReassembler(c.config.MaxPayload)

		for {
			select {
			case <-ctx.Done():
				return
			case w, ok := <-writes:
				if !ok {
					return
				}

				rec, ok := c.handleWrite(ctx, reasm, w)
				if !ok {
					continue
				}

				select {
				case out <- *rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

func (c *Channel) handleWrite(ctx context.Context, reasm *Reassembler, w RadioWrite) (*models.ProvisioningRecord, bool) {
	if w.Disconnected {
		reasm.Discard(w.Address)
		return nil, false
	}

	payload, complete, err := reasm.Feed(w.Address, w.Data)
	if err != nil {
		c.drop(ctx, w.Address, "chunk", err)
		return nil, false
	}

	if !complete {
		return nil, false
	}

	rec, err := DecodeRecord(payload)
	if err != nil {
		c.drop(ctx, w.Address, "record", err)
		return nil, false
	}

	rec.RadioAddress = w.Address
	rec.ReceivedAt = c.now()

	c.logger.Debug().
		Str("device_id", rec.DeviceID).
		Uint64("version", rec.Version).
		Int("cameras", len(rec.Cameras)).
		Msg("Received provisioning record")

	return rec, true
}

func (c *Channel) drop(ctx context.Context, address, stage string, err error) {
	c.logger.Warn().
		Err(err).
		Str("radio_address", address).
		Str("stage", stage).
		Msg("Dropping malformed provisioning payload")

	c.metrics.ProvisioningMalformed(ctx, stage)
}
