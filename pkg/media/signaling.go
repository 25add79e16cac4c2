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

package media

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/transport"
	"github.com/pion/webrtc/v4"
)

// MessageType names a signaling envelope.
type MessageType string

const (
	MsgRequest        MessageType = "request"
	MsgOffer          MessageType = "offer"
	MsgAnswer         MessageType = "answer"
	MsgCandidate      MessageType = "candidate"
	MsgCandidatesDone MessageType = "candidates-done"
	MsgReject         MessageType = "reject"
	MsgStop           MessageType = "stop"
	MsgKeepalive      MessageType = "keepalive"
)

const (
	routeBuffer       = 32
	unsolicitedBuffer = 8
)

var (
	errCameraBusy   = errors.New("camera already has an open signaling route")
	errSignalClosed = errors.New("signaling closed")
)

// Envelope is one JSON signaling message exchanged over the channel.
type Envelope struct {
	Type      MessageType              `json:"type"`
	Camera    string                   `json:"camera,omitempty"`
	Mode      *models.VideoMode        `json:"mode,omitempty"`
	Codec     string                   `json:"codec,omitempty"`
	SDP       string                   `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit `json:"candidate,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
}

// Signaling demultiplexes envelopes from one channel to per-camera routes so
// several cameras of a device negotiate concurrently.
type Signaling struct {
	ch     transport.Channel
	logger logger.Logger

	mu     sync.Mutex
	routes map[string]chan Envelope

	unsolicited chan Envelope
	done        chan struct{}
	closeOnce   sync.Once
}

func NewSignaling(ch transport.Channel, log logger.Logger) *Signaling {
	s := &Signaling{
		ch:          ch,
		logger:      log,
		routes:      make(map[string]chan Envelope),
		unsolicited: make(chan Envelope, unsolicitedBuffer),
		done:        make(chan struct{}),
	}

	go s.pump()

	return s
}

// Unsolicited yields stop and reject envelopes for cameras with no open
// route, i.e. the phone ending a stream that is already running.
func (s *Signaling) Unsolicited() <-chan Envelope { return s.unsolicited }

// Done is closed when the underlying channel is gone or Close was called.
func (s *Signaling) Done() <-chan struct{} { return s.done }

func (s *Signaling) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Signaling) pump() {
	for {
		select {
		case <-s.done:
			return
		case <-s.ch.Done():
			s.Close()

			return
		case raw := <-s.ch.Receive():
			s.dispatch(raw)
		}
	}
}

func (s *Signaling) dispatch(raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.logger.Warn().Err(err).Int("bytes", len(raw)).Msg("Dropping undecodable signaling message")

		return
	}

	if env.Type == MsgKeepalive {
		return
	}

	s.mu.Lock()
	route := s.routes[env.Camera]
	s.mu.Unlock()

	if route == nil {
		if env.Type == MsgStop || env.Type == MsgReject {
			select {
			case s.unsolicited <- env:
			default:
			}

			return
		}

		s.logger.Debug().Str("camera", env.Camera).Str("type", string(env.Type)).Msg("No route for signaling message")

		return
	}

	select {
	case route <- env:
	default:
		s.logger.Warn().Str("camera", env.Camera).Str("type", string(env.Type)).Msg("Signaling route full, message dropped")
	}
}

// Open registers the route for camera. Only one route per camera may be open.
func (s *Signaling) Open(camera string) (*Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.routes[camera]; ok {
		return nil, errCameraBusy
	}

	in := make(chan Envelope, routeBuffer)
	s.routes[camera] = in

	return &Route{s: s, camera: camera, in: in}, nil
}

// Send stamps env with camera and writes it.
func (s *Signaling) Send(ctx context.Context, camera string, env Envelope) error {
	select {
	case <-s.done:
		return errSignalClosed
	default:
	}

	env.Camera = camera

	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}

	return s.ch.Send(ctx, raw)
}

// Keepalive sends an application-level keepalive.
func (s *Signaling) Keepalive(ctx context.Context) error {
	return s.Send(ctx, "", Envelope{Type: MsgKeepalive})
}

// Route is the per-camera view of Signaling.
type Route struct {
	s         *Signaling
	camera    string
	in        chan Envelope
	closeOnce sync.Once
}

func (r *Route) Recv() <-chan Envelope { return r.in }

func (r *Route) Done() <-chan struct{} { return r.s.done }

func (r *Route) Send(ctx context.Context, env Envelope) error {
	return r.s.Send(ctx, r.camera, env)
}

// Close unregisters the route. Later messages for the camera are unsolicited.
func (r *Route) Close() {
	r.closeOnce.Do(func() {
		r.s.mu.Lock()
		delete(r.s.routes, r.camera)
		r.s.mu.Unlock()
	})
}
