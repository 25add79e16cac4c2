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

package session

import (
	"slices"
	"time"

	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/cenkalti/backoff/v5"
)

// CapabilitySelector decides which cameras of a device are mirrored.
type CapabilitySelector interface {
	Select(rec models.ProvisioningRecord) []models.CameraCapability
}

// SelectorFunc adapts a function to CapabilitySelector.
type SelectorFunc func(rec models.ProvisioningRecord) []models.CameraCapability

func (f SelectorFunc) Select(rec models.ProvisioningRecord) []models.CameraCapability { return f(rec) }

// ConfigSelector mirrors the named cameras, or all of them when none are
// named, up to an optional maximum.
type ConfigSelector struct {
	Cameras    []string
	MaxCameras int
}

func NewConfigSelector(cfg models.SessionConfig) ConfigSelector {
	return ConfigSelector{Cameras: cfg.Cameras, MaxCameras: cfg.MaxCameras}
}

func (s ConfigSelector) Select(rec models.ProvisioningRecord) []models.CameraCapability {
	selected := make([]models.CameraCapability, 0, len(rec.Cameras))

	for _, cam := range rec.Cameras {
		if len(s.Cameras) > 0 && !slices.Contains(s.Cameras, cam.Name) {
			continue
		}

		selected = append(selected, cam)

		if s.MaxCameras > 0 && len(selected) == s.MaxCameras {
			break
		}
	}

	return selected
}

// newBackoff doubles from base up to limit, without jitter.
func newBackoff(base, limit time.Duration) *backoff.ExponentialBackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         limit,
	}
	b.Reset()

	return b
}
