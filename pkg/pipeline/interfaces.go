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

// Package pipeline turns a negotiated RTP source into frames on a virtual
// device and supervises the graph doing the conversion.
package pipeline

//go:generate mockgen -destination=mock_pipeline.go -package=pipeline github.com/carverauto/webcamdirect/pkg/pipeline Source,Graph,GraphFactory

import (
	"context"
	"time"

	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/pion/rtp"
)

// Source is the receiving end of one negotiated camera track.
type Source interface {
	// Codec is the negotiated codec name, e.g. "H264".
	Codec() string
	ReadRTP() (*rtp.Packet, error)
	RequestKeyframe() error
}

// GraphSpec describes one decode and conversion graph.
type GraphSpec struct {
	Camera      string
	Codec       string
	Mode        models.VideoMode
	DevicePath  string
	PixelFormat string
}

// Graph consumes encoded access units and writes converted frames to the
// device. Errors reports asynchronous decode or device failures.
type Graph interface {
	WriteFrame(frame []byte, timestamp uint32) error
	Errors() <-chan error
	// Close flushes and releases the device before returning.
	Close() error
}

type GraphFactory interface {
	Build(ctx context.Context, spec GraphSpec) (Graph, error)
}

// HealthKind classifies a HealthEvent.
type HealthKind string

const (
	HealthFrame       HealthKind = "frame"
	HealthDecodeError HealthKind = "decode-error"
	HealthStall       HealthKind = "stall"
	HealthRestarted   HealthKind = "restarted"
	HealthFailed      HealthKind = "failed"
)

// HealthEvent is emitted by a running pipeline. Frame events are rate limited.
type HealthEvent struct {
	Kind              HealthKind
	Camera            string
	Frames            uint64
	ConsecutiveErrors int
	Err               error
	Time              time.Time
}
