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
	"strings"
	"sync"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/pipeline"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
)

const candidateBuffer = 32

// PionEngine answers camera offers with pion/webrtc peer connections.
type PionEngine struct {
	config webrtc.Configuration
	logger logger.Logger
}

func NewPionEngine(cfg models.MediaConfig, log logger.Logger) *PionEngine {
	conf := webrtc.Configuration{}
	if len(cfg.ICEServers) > 0 {
		conf.ICEServers = []webrtc.ICEServer{{URLs: cfg.ICEServers}}
	}

	return &PionEngine{config: conf, logger: log}
}

func (e *PionEngine) NewPeer(_ context.Context, camera string) (PeerSession, error) {
	pc, err := webrtc.NewPeerConnection(e.config)
	if err != nil {
		return nil, err
	}

	p := &pionPeer{
		pc:         pc,
		camera:     camera,
		logger:     e.logger,
		candidates: make(chan webrtc.ICECandidateInit, candidateBuffer),
		connected:  make(chan struct{}),
		failed:     make(chan struct{}),
		track:      make(chan pipeline.Source, 1),
	}

	pc.OnICECandidate(p.onCandidate)
	pc.OnTrack(p.onTrack)
	pc.OnConnectionStateChange(p.onState)

	return p, nil
}

type pionPeer struct {
	pc     *webrtc.PeerConnection
	camera string
	logger logger.Logger

	mu            sync.Mutex
	candidates    chan webrtc.ICECandidateInit
	gatherDone    bool
	connected     chan struct{}
	connectedOnce sync.Once
	failed        chan struct{}
	failedOnce    sync.Once
	track         chan pipeline.Source
}

func (p *pionPeer) onCandidate(c *webrtc.ICECandidate) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gatherDone {
		return
	}

	if c == nil {
		p.gatherDone = true
		close(p.candidates)

		return
	}

	select {
	case p.candidates <- c.ToJSON():
	default:
		p.logger.Warn().Str("camera", p.camera).Msg("Local candidate buffer full, candidate dropped")
	}
}

func (p *pionPeer) onTrack(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	if tr.Kind() != webrtc.RTPCodecTypeVideo {
		return
	}

	select {
	case p.track <- &pionSource{pc: p.pc, track: tr}:
	default:
	}
}

func (p *pionPeer) onState(state webrtc.PeerConnectionState) {
	p.logger.Debug().Str("camera", p.camera).Str("state", state.String()).Msg("Peer connection state")

	switch state { //nolint:exhaustive // only terminal and connected states matter
	case webrtc.PeerConnectionStateConnected:
		p.connectedOnce.Do(func() { close(p.connected) })
	case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateClosed:
		p.failedOnce.Do(func() { close(p.failed) })
	}
}

func (p *pionPeer) Answer(offer string) (string, error) {
	if err := p.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer}); err != nil {
		return "", err
	}

	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return "", err
	}

	if err := p.pc.SetLocalDescription(answer); err != nil {
		return "", err
	}

	return answer.SDP, nil
}

func (p *pionPeer) AddCandidate(c webrtc.ICECandidateInit) error {
	return p.pc.AddICECandidate(c)
}

func (p *pionPeer) LocalCandidates() <-chan webrtc.ICECandidateInit { return p.candidates }

func (p *pionPeer) Connected() <-chan struct{} { return p.connected }

func (p *pionPeer) Failed() <-chan struct{} { return p.failed }

func (p *pionPeer) Track() <-chan pipeline.Source { return p.track }

func (p *pionPeer) Close() error {
	return p.pc.Close()
}

// pionSource adapts a remote track to the pipeline.
type pionSource struct {
	pc    *webrtc.PeerConnection
	track *webrtc.TrackRemote
}

func (s *pionSource) Codec() string {
	return strings.ToUpper(strings.TrimPrefix(s.track.Codec().MimeType, "video/"))
}

func (s *pionSource) ReadRTP() (*rtp.Packet, error) {
	pkt, _, err := s.track.ReadRTP()

	return pkt, err
}

// RequestKeyframe sends a picture loss indication so the phone emits an IDR.
func (s *pionSource) RequestKeyframe() error {
	return s.pc.WriteRTCP([]rtcp.Packet{
		&rtcp.PictureLossIndication{MediaSSRC: uint32(s.track.SSRC())},
	})
}
