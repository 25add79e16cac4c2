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

// Package media negotiates one real-time stream per camera over a session's
// signaling channel and hands the established track to the pipeline.
package media

//go:generate mockgen -destination=mock_media.go -package=media github.com/carverauto/webcamdirect/pkg/media Engine,PeerSession,DevicePool

import (
	"context"

	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/pipeline"
	"github.com/carverauto/webcamdirect/pkg/vdevice"
	"github.com/pion/webrtc/v4"
)

// Engine creates answering peers.
type Engine interface {
	NewPeer(ctx context.Context, camera string) (PeerSession, error)
}

// PeerSession is the answering side of one camera's real-time session.
type PeerSession interface {
	// Answer applies the remote offer and returns the local answer SDP.
	Answer(offer string) (string, error)
	AddCandidate(candidate webrtc.ICECandidateInit) error
	// LocalCandidates is closed once gathering completes.
	LocalCandidates() <-chan webrtc.ICECandidateInit
	Connected() <-chan struct{}
	Failed() <-chan struct{}
	// Track yields the remote video track once it arrives.
	Track() <-chan pipeline.Source
	Close() error
}

// DevicePool is the part of the virtual device pool negotiation needs.
type DevicePool interface {
	Acquire(label string, hint models.VideoMode) (vdevice.VirtualDevice, error)
	Release(dev vdevice.VirtualDevice) bool
}

// PipelineStarter starts the pipeline for a negotiated stream.
type PipelineStarter interface {
	Start(ctx context.Context, spec pipeline.Spec) (*pipeline.Handle, error)
}
