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
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
)

var (
	errInvalidPoolSize      = errors.New("pool size must be between 1 and 64")
	errInvalidFallbackAfter = errors.New("fallback_after must be within (0, 1]")
	errInvalidPreference    = errors.New("transport preference must list distinct known transports")
	errInvalidGeometry      = errors.New("pool min geometry exceeds max geometry")
	errInvalidMaxPayload    = errors.New("provisioning max_payload must be positive")
)

const maxLoopbackNodes = 64

// Config is the daemon configuration.
type Config struct {
	Logging      *logger.Config     `json:"logging,omitempty"`
	Pool         PoolConfig         `json:"pool"`
	Transport    TransportConfig    `json:"transport"`
	Media        MediaConfig        `json:"media"`
	Pipeline     PipelineConfig     `json:"pipeline"`
	Session      SessionConfig      `json:"session"`
	Provisioning ProvisioningConfig `json:"provisioning"`
	NATS         NATSConfig         `json:"nats"`
	Events       EventsConfig       `json:"events"`
	Store        StoreConfig        `json:"store"`
	API          APIConfig          `json:"api"`
	Metrics      MetricsConfig      `json:"metrics"`
}

// PoolConfig sizes the virtual camera pool and the geometry of its nodes.
type PoolConfig struct {
	Size        int    `json:"size"`
	NamePrefix  string `json:"name_prefix"`
	ControlNode string `json:"control_node"`
	MinWidth    uint32 `json:"min_width"`
	MaxWidth    uint32 `json:"max_width"`
	MinHeight   uint32 `json:"min_height"`
	MaxHeight   uint32 `json:"max_height"`
	MaxBuffers  int32  `json:"max_buffers"`
	MaxOpeners  int32  `json:"max_openers"`
}

type TransportConfig struct {
	Preference []TransportKind `json:"preference"`
	Deadline   Duration        `json:"deadline"`
	// FallbackAfter is the fraction of Deadline after which the fallback
	// attempt starts alongside the preferred one.
	FallbackAfter     float64  `json:"fallback_after"`
	Port              int      `json:"port"`
	Path              string   `json:"path"`
	DirectBindAddress string   `json:"direct_bind_address,omitempty"`
	PingInterval      Duration `json:"ping_interval"`
	MaxMessageBytes   int64    `json:"max_message_bytes"`
}

type MediaConfig struct {
	Codecs           []string `json:"codecs"`
	MaxWidth         uint32   `json:"max_width"`
	MaxHeight        uint32   `json:"max_height"`
	MaxFPS           uint32   `json:"max_fps"`
	OfferTimeout     Duration `json:"offer_timeout"`
	CandidateTimeout Duration `json:"candidate_timeout"`
	ICEServers       []string `json:"ice_servers,omitempty"`
}

type PipelineConfig struct {
	MaxRestarts        int      `json:"max_restarts"`
	StallTimeout       Duration `json:"stall_timeout"`
	FrameEventInterval Duration `json:"frame_event_interval"`
	FFmpegPath         string   `json:"ffmpeg_path"`
	PixelFormat        string   `json:"pixel_format"`
}

type SessionConfig struct {
	MaxAttempts    int      `json:"max_attempts"`
	BaseBackoff    Duration `json:"base_backoff"`
	MaxBackoff     Duration `json:"max_backoff"`
	StaleAfter     Duration `json:"stale_after"`
	PollInterval   Duration `json:"poll_interval"`
	CameraAttempts int      `json:"camera_attempts"`
	// Cameras restricts mirroring to the named cameras; empty mirrors all.
	Cameras    []string `json:"cameras,omitempty"`
	MaxCameras int      `json:"max_cameras,omitempty"`
}

type ProvisioningConfig struct {
	SubjectPrefix string `json:"subject_prefix"`
	MaxPayload    int    `json:"max_payload"`
	MTU           int    `json:"mtu"`
	HostID        string `json:"host_id"`
	HostName      string `json:"host_name"`
}

// NATSConfig is optional; an empty URL disables the radio bridge and event publishing.
type NATSConfig struct {
	URL  string         `json:"url,omitempty"`
	Name string         `json:"name,omitempty"`
	TLS  *NATSTLSConfig `json:"tls,omitempty"`
}

// NATSTLSConfig enables mutual TLS towards the NATS server.
type NATSTLSConfig struct {
	CAFile     string `json:"ca_file"`
	CertFile   string `json:"cert_file"`
	KeyFile    string `json:"key_file"`
	ServerName string `json:"server_name,omitempty"`
}

type EventsConfig struct {
	Stream  string `json:"stream"`
	Subject string `json:"subject"`
	Source  string `json:"source"`
}

// StoreConfig names the JetStream key-value bucket holding known devices.
// Restore reconnects every stored device at startup.
type StoreConfig struct {
	Bucket  string `json:"bucket"`
	Restore bool   `json:"restore"`
}

// MetricsConfig enables OTLP metric export when Endpoint is set.
type MetricsConfig struct {
	Endpoint string            `json:"endpoint,omitempty"`
	Insecure bool              `json:"insecure,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Interval Duration          `json:"interval,omitempty"`
}

type APIConfig struct {
	ListenAddr string `json:"listen_addr"`
}

// Validate fills defaults and rejects inconsistent settings.
func (c *Config) Validate() error {
	if c.Logging == nil {
		c.Logging = logger.DefaultConfig()
	}

	return errors.Join(
		c.Pool.validate(),
		c.Transport.validate(),
		c.Media.validate(),
		c.Pipeline.validate(),
		c.Session.validate(),
		c.Provisioning.validate(),
		c.Events.validate(),
		c.Store.validate(),
		c.API.validate(),
	)
}

func (p *PoolConfig) validate() error {
	if p.Size == 0 {
		p.Size = 4
	}

	if p.Size < 0 || p.Size > maxLoopbackNodes {
		return fmt.Errorf("%w: %d", errInvalidPoolSize, p.Size)
	}

	setDefault(&p.NamePrefix, "webcamdirect")
	setDefault(&p.ControlNode, "/dev/v4l2loopback")
	setDefault(&p.MinWidth, 100)
	setDefault(&p.MinHeight, 100)
	setDefault(&p.MaxWidth, 4000)
	setDefault(&p.MaxHeight, 4000)
	setDefault(&p.MaxBuffers, 2)
	setDefault(&p.MaxOpeners, 9)

	if p.MinWidth > p.MaxWidth || p.MinHeight > p.MaxHeight {
		return errInvalidGeometry
	}

	return nil
}

func (t *TransportConfig) validate() error {
	if len(t.Preference) == 0 {
		t.Preference = []TransportKind{TransportDirect, TransportLAN}
	}

	seen := make(map[TransportKind]bool, len(t.Preference))

	for _, k := range t.Preference {
		if (k != TransportDirect && k != TransportLAN) || seen[k] {
			return fmt.Errorf("%w: %v", errInvalidPreference, t.Preference)
		}

		seen[k] = true
	}

	setDefault(&t.Deadline, Duration(10*time.Second))
	setDefault(&t.FallbackAfter, 0.4)
	setDefault(&t.Port, 8765)
	setDefault(&t.Path, "/signal")
	setDefault(&t.PingInterval, Duration(2*time.Second))
	setDefault(&t.MaxMessageBytes, 64<<10)

	if t.FallbackAfter <= 0 || t.FallbackAfter > 1 {
		return fmt.Errorf("%w: %v", errInvalidFallbackAfter, t.FallbackAfter)
	}

	return nil
}

func (m *MediaConfig) validate() error {
	if len(m.Codecs) == 0 {
		m.Codecs = []string{"H264", "VP8"}
	}

	setDefault(&m.MaxWidth, 1920)
	setDefault(&m.MaxHeight, 1080)
	setDefault(&m.MaxFPS, 30)
	setDefault(&m.OfferTimeout, Duration(10*time.Second))
	setDefault(&m.CandidateTimeout, Duration(10*time.Second))

	return nil
}

func (p *PipelineConfig) validate() error {
	setDefault(&p.MaxRestarts, 2)
	setDefault(&p.StallTimeout, Duration(5*time.Second))
	setDefault(&p.FrameEventInterval, Duration(time.Second))
	setDefault(&p.FFmpegPath, "ffmpeg")
	setDefault(&p.PixelFormat, "yuv420p")

	return nil
}

func (s *SessionConfig) validate() error {
	setDefault(&s.MaxAttempts, 5)
	setDefault(&s.BaseBackoff, Duration(time.Second))
	setDefault(&s.MaxBackoff, Duration(30*time.Second))
	setDefault(&s.StaleAfter, Duration(6*time.Second))
	setDefault(&s.PollInterval, Duration(time.Second))
	setDefault(&s.CameraAttempts, 3)

	return nil
}

func (p *ProvisioningConfig) validate() error {
	setDefault(&p.SubjectPrefix, "webcamd.radio")
	setDefault(&p.MaxPayload, 5000)
	setDefault(&p.MTU, 185)
	setDefault(&p.HostName, "webcamdirect")

	if p.MaxPayload < 0 {
		return errInvalidMaxPayload
	}

	return nil
}

func (s *StoreConfig) validate() error {
	setDefault(&s.Bucket, "webcamd-devices")

	return nil
}

func (e *EventsConfig) validate() error {
	setDefault(&e.Stream, "WEBCAMD_EVENTS")
	setDefault(&e.Subject, "webcamd.events")
	setDefault(&e.Source, "webcamd")

	return nil
}

func (a *APIConfig) validate() error {
	setDefault(&a.ListenAddr, "127.0.0.1:8088")

	return nil
}

func setDefault[T comparable](field *T, value T) {
	var zero T
	if *field == zero {
		*field = value
	}
}
