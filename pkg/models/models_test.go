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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDuration_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Duration
		wantErr  bool
	}{
		{name: "string duration", input: `"5s"`, expected: Duration(5 * time.Second)},
		{name: "numeric duration (nanoseconds)", input: `5000000000`, expected: Duration(5 * time.Second)},
		{name: "invalid duration string", input: `"soon"`, wantErr: true},
		{name: "invalid type", input: `true`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration

			err := json.Unmarshal([]byte(tt.input), &d)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.expected, d)
		})
	}
}

func TestVideoModeOrdering(t *testing.T) {
	hd := VideoMode{Width: 1280, Height: 720, FPS: 30}
	hd60 := VideoMode{Width: 1280, Height: 720, FPS: 60}
	fhd := VideoMode{Width: 1920, Height: 1080, FPS: 15}

	assert.True(t, fhd.Better(hd60))
	assert.True(t, hd60.Better(hd))
	assert.False(t, hd.Better(hd))

	camera := CameraCapability{Name: "back", Modes: []VideoMode{hd, fhd, hd60}}
	assert.Equal(t, fhd, camera.Largest())
	assert.Equal(t, "1920x1080@15", fhd.String())
}

func TestTransportHintsAddress(t *testing.T) {
	hints := TransportHints{LAN: &LANHint{Address: "192.168.1.20:8765"}}

	_, ok := hints.Address(TransportDirect)
	assert.False(t, ok)

	addr, ok := hints.Address(TransportLAN)
	assert.True(t, ok)
	assert.Equal(t, "192.168.1.20:8765", addr)
}

func TestRecordSupersedes(t *testing.T) {
	old := &ProvisioningRecord{DeviceID: "p", Version: 3}

	assert.True(t, (&ProvisioningRecord{Version: 4}).Supersedes(old))
	assert.False(t, (&ProvisioningRecord{Version: 3}).Supersedes(old))
	assert.True(t, (&ProvisioningRecord{Version: 1}).Supersedes(nil))
}

func TestSessionStateText(t *testing.T) {
	out, err := json.Marshal(struct {
		S SessionState `json:"s"`
	}{StateNegotiatingTransport})
	require.NoError(t, err)
	assert.JSONEq(t, `{"s":"negotiating-transport"}`, string(out))
	assert.Equal(t, "unknown", SessionState(42).String())
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(fmt.Errorf("negotiate: %w", context.Canceled)))
	assert.True(t, IsCancelled(ErrCancelled))
	assert.False(t, IsCancelled(ErrTransportFailed))
	assert.False(t, IsCancelled(errors.New("other")))
}

func TestConfigValidateDefaults(t *testing.T) {
	var cfg Config
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 4, cfg.Pool.Size)
	assert.Equal(t, "/dev/v4l2loopback", cfg.Pool.ControlNode)
	assert.Equal(t, []TransportKind{TransportDirect, TransportLAN}, cfg.Transport.Preference)
	assert.InDelta(t, 0.4, cfg.Transport.FallbackAfter, 1e-9)
	assert.Equal(t, int64(64<<10), cfg.Transport.MaxMessageBytes)
	assert.Equal(t, 2, cfg.Pipeline.MaxRestarts)
	assert.Equal(t, 5000, cfg.Provisioning.MaxPayload)
	assert.Equal(t, "webcamd-devices", cfg.Store.Bucket)
	assert.False(t, cfg.Store.Restore)
	assert.NotNil(t, cfg.Logging)
}

func TestConfigValidateRejects(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "pool too large", cfg: Config{Pool: PoolConfig{Size: 65}}, want: errInvalidPoolSize},
		{name: "duplicate transport", cfg: Config{Transport: TransportConfig{
			Preference: []TransportKind{TransportLAN, TransportLAN},
		}}, want: errInvalidPreference},
		{name: "fallback fraction", cfg: Config{Transport: TransportConfig{FallbackAfter: 1.5}}, want: errInvalidFallbackAfter},
		{name: "geometry", cfg: Config{Pool: PoolConfig{MinWidth: 5000}}, want: errInvalidGeometry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.cfg.Validate(), tt.want)
		})
	}
}
