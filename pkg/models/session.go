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
	"time"
)

// SessionState is a node of the per-device session lifecycle.
type SessionState int

const (
	StateIdle SessionState = iota
	StateProvisioned
	StateNegotiatingTransport
	StateTransportReady
	StateNegotiatingMedia
	StateStreaming
	StateDegraded
	StateReconnecting
	StateClosed
)

var sessionStateNames = [...]string{
	StateIdle:                 "idle",
	StateProvisioned:          "provisioned",
	StateNegotiatingTransport: "negotiating-transport",
	StateTransportReady:       "transport-ready",
	StateNegotiatingMedia:     "negotiating-media",
	StateStreaming:            "streaming",
	StateDegraded:             "degraded",
	StateReconnecting:         "reconnecting",
	StateClosed:               "closed",
}

func (s SessionState) String() string {
	if s < 0 || int(s) >= len(sessionStateNames) {
		return "unknown"
	}

	return sessionStateNames[s]
}

func (s SessionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// StreamStatus is the externally reported condition of one camera.
type StreamStatus string

const (
	StreamNegotiating StreamStatus = "negotiating"
	StreamActive      StreamStatus = "active"
	StreamRebuilding  StreamStatus = "rebuilding"
	StreamFailed      StreamStatus = "failed"
	StreamExhausted   StreamStatus = "exhausted"
	StreamStopped     StreamStatus = "stopped"
)

// StreamSummary is a snapshot of one camera of a session.
type StreamSummary struct {
	Camera            string       `json:"camera"`
	Status            StreamStatus `json:"status"`
	Mode              VideoMode    `json:"mode"`
	Codec             string       `json:"codec,omitempty"`
	DeviceIndex       int          `json:"device_index"`
	DevicePath        string       `json:"device_path,omitempty"`
	ConsecutiveErrors int          `json:"consecutive_errors"`
	LastFrame         time.Time    `json:"last_frame,omitempty"`
	LastError         string       `json:"last_error,omitempty"`
}

// SessionSummary is what listSessions reports per device.
type SessionSummary struct {
	DeviceID     string          `json:"device_id"`
	DisplayName  string          `json:"display_name"`
	State        SessionState    `json:"state"`
	Transport    TransportKind   `json:"transport,omitempty"`
	Version      uint64          `json:"version"`
	Attempts     int             `json:"attempts"`
	LastActivity time.Time       `json:"last_activity,omitempty"`
	Streams      []StreamSummary `json:"streams"`
	LastError    string          `json:"last_error,omitempty"`
}

// SessionEventType classifies events published to subscribers.
type SessionEventType string

const (
	EventStateChanged    SessionEventType = "state-changed"
	EventStreamStarted   SessionEventType = "stream-started"
	EventStreamStopped   SessionEventType = "stream-stopped"
	EventStreamFailed    SessionEventType = "stream-failed"
	EventCameraExhausted SessionEventType = "camera-exhausted"
	EventCameraFailed    SessionEventType = "camera-failed"
	EventStreamHealth    SessionEventType = "stream-health"
)

// SessionEvent is emitted by orchestrators to the host process.
type SessionEvent struct {
	Type     SessionEventType `json:"type"`
	DeviceID string           `json:"device_id"`
	From     SessionState     `json:"from"`
	To       SessionState     `json:"to"`
	Camera   string           `json:"camera,omitempty"`
	Reason   string           `json:"reason,omitempty"`
	Time     time.Time        `json:"time"`
}
