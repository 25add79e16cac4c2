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

package models

import (
	"fmt"
	"time"
)

// VideoMode is one resolution/frame-rate option a camera can produce.
type VideoMode struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
	FPS    uint32 `json:"fps"`
}

func (m VideoMode) Pixels() uint64 {
	return uint64(m.Width) * uint64(m.Height)
}

// Better orders modes by pixel count, then frame rate.
func (m VideoMode) Better(o VideoMode) bool {
	if m.Pixels() != o.Pixels() {
		return m.Pixels() > o.Pixels()
	}

	return m.FPS > o.FPS
}

func (m VideoMode) IsZero() bool {
	return m.Width == 0 || m.Height == 0 || m.FPS == 0
}

func (m VideoMode) String() string {
	return fmt.Sprintf("%dx%d@%d", m.Width, m.Height, m.FPS)
}

// CameraCapability describes one camera a phone offers to mirror.
type CameraCapability struct {
	Name   string      `json:"name"`
	Modes  []VideoMode `json:"modes"`
	Codecs []string    `json:"codecs,omitempty"`
}

// Largest returns the biggest advertised mode, used as the pool capability hint.
func (c CameraCapability) Largest() VideoMode {
	var best VideoMode

	for _, m := range c.Modes {
		if m.Better(best) {
			best = m
		}
	}

	return best
}

// TransportKind names a network path class.
type TransportKind string

const (
	// TransportDirect is the peer-to-peer link to the host access point.
	TransportDirect TransportKind = "direct"
	// TransportLAN is the shared local network fallback.
	TransportLAN TransportKind = "lan"
)

type DirectHint struct {
	SSID       string `json:"ssid,omitempty"`
	Passphrase string `json:"passphrase,omitempty"`
	Address    string `json:"address"`
}

type LANHint struct {
	Address string `json:"address"`
}

// TransportHints carries the addresses the phone listens on per transport.
type TransportHints struct {
	Direct *DirectHint `json:"direct,omitempty"`
	LAN    *LANHint    `json:"lan,omitempty"`
}

// Address returns the endpoint hinted for kind.
func (h TransportHints) Address(kind TransportKind) (string, bool) {
	switch kind {
	case TransportDirect:
		if h.Direct != nil && h.Direct.Address != "" {
			return h.Direct.Address, true
		}
	case TransportLAN:
		if h.LAN != nil && h.LAN.Address != "" {
			return h.LAN.Address, true
		}
	}

	return "", false
}

// ProvisioningRecord is the bootstrap data exchanged over the radio link. A
// newer record for the same device supersedes, never merges with, the old one.
type ProvisioningRecord struct {
	DeviceID    string             `json:"device_id"`
	DisplayName string             `json:"display_name"`
	Cameras     []CameraCapability `json:"cameras"`
	Hints       TransportHints     `json:"hints"`
	Version     uint64             `json:"version"`

	RadioAddress string    `json:"radio_address,omitempty"`
	ReceivedAt   time.Time `json:"received_at"`
}

// Camera looks up a capability by name.
func (r *ProvisioningRecord) Camera(name string) (CameraCapability, bool) {
	for _, c := range r.Cameras {
		if c.Name == name {
			return c, true
		}
	}

	return CameraCapability{}, false
}

// Supersedes reports whether r should replace old.
func (r *ProvisioningRecord) Supersedes(old *ProvisioningRecord) bool {
	return old == nil || r.Version > old.Version
}

// StreamLabel is the human readable name given to a camera's virtual device.
func StreamLabel(displayName, camera string) string {
	return fmt.Sprintf("%s: %s", displayName, camera)
}
