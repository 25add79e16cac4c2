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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/metrics"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/pipeline"
	"github.com/carverauto/webcamdirect/pkg/vdevice"
)

const stopNoticeTimeout = time.Second

// FailedError reports why one camera could not be negotiated.
type FailedError struct {
	Camera string
	Reason error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("media negotiation for camera %q: %v", e.Camera, e.Reason)
}

func (e *FailedError) Unwrap() []error {
	return []error{models.ErrMediaNegotiationFailed, e.Reason}
}

// Request is one camera to negotiate.
type Request struct {
	DisplayName string
	Camera      models.CameraCapability
}

// Stream is an established camera stream bound to a virtual device.
type Stream struct {
	Camera   string
	Mode     models.VideoMode
	Codec    string
	Device   vdevice.VirtualDevice
	Pipeline *pipeline.Handle

	peer      PeerSession
	pool      DevicePool
	closeOnce sync.Once
}

// Close stops the pipeline, which flushes the device, then closes the peer
// and returns the device to the pool. Safe to call repeatedly.
func (s *Stream) Close() {
	s.closeOnce.Do(func() {
		s.Pipeline.Stop()
		_ = s.peer.Close()
		s.pool.Release(s.Device)
	})
}

// Negotiator runs the per-camera offer/answer and candidate exchange.
type Negotiator struct {
	engine    Engine
	pool      DevicePool
	pipelines PipelineStarter
	cfg       models.MediaConfig
	logger    logger.Logger
	metrics   *metrics.Recorder
}

func NewNegotiator(engine Engine, pool DevicePool, pipelines PipelineStarter, cfg models.MediaConfig,
	log logger.Logger, rec *metrics.Recorder) *Negotiator {
	return &Negotiator{
		engine:    engine,
		pool:      pool,
		pipelines: pipelines,
		cfg:       cfg,
		logger:    log,
		metrics:   rec,
	}
}

func (n *Negotiator) limits() Limits {
	return Limits{MaxWidth: n.cfg.MaxWidth, MaxHeight: n.cfg.MaxHeight, MaxFPS: n.cfg.MaxFPS}
}

// Negotiate establishes one camera stream. ctx bounds the negotiation and
// the lifetime of the started pipeline. On any failure every resource taken
// so far is released. Errors wrap ErrMediaNegotiationFailed, ErrPipeline,
// ErrDeviceExhausted or ErrCancelled.
func (n *Negotiator) Negotiate(ctx context.Context, sig *Signaling, req Request) (*Stream, error) {
	start := time.Now()

	stream, err := n.negotiate(ctx, sig, req)

	outcome := "ok"

	switch {
	case err == nil:
	case models.IsCancelled(err):
		outcome = "cancelled"
	default:
		outcome = "failed"
	}

	n.metrics.MediaNegotiation(ctx, time.Since(start), outcome)

	return stream, err
}

func (n *Negotiator) negotiate(ctx context.Context, sig *Signaling, req Request) (*Stream, error) {
	camera := req.Camera.Name

	mode, err := SelectMode(req.Camera.Modes, n.limits())
	if err != nil {
		return nil, &FailedError{Camera: camera, Reason: err}
	}

	codec, err := SelectCodec(req.Camera.Codecs, n.cfg.Codecs)
	if err != nil {
		return nil, &FailedError{Camera: camera, Reason: err}
	}

	dev, err := n.pool.Acquire(models.StreamLabel(req.DisplayName, camera), mode)
	if err != nil {
		return nil, err
	}

	var (
		peer      PeerSession
		requested bool
		done      bool
	)

	route, err := sig.Open(camera)
	if err != nil {
		n.pool.Release(dev)

		return nil, &FailedError{Camera: camera, Reason: err}
	}
	defer route.Close()

	defer func() {
		if done {
			return
		}

		if peer != nil {
			_ = peer.Close()
		}

		n.pool.Release(dev)

		if requested {
			n.notifyStop(ctx, route, "negotiation aborted")
		}
	}()

	log := logger.Wrap(n.logger.With().Str("camera", camera).Str("mode", mode.String()).Str("codec", codec).Logger())

	if err := route.Send(ctx, Envelope{Type: MsgRequest, Mode: &mode, Codec: codec}); err != nil {
		return nil, n.failure(ctx, camera, err)
	}

	requested = true

	offer, err := n.awaitOffer(ctx, route)
	if err != nil {
		return nil, n.failure(ctx, camera, err)
	}

	if err := checkOffer(offer, codec); err != nil {
		_ = route.Send(ctx, Envelope{Type: MsgReject, Reason: err.Error()})
		requested = false

		return nil, &FailedError{Camera: camera, Reason: err}
	}

	peer, err = n.engine.NewPeer(ctx, camera)
	if err != nil {
		return nil, n.failure(ctx, camera, err)
	}

	answer, err := peer.Answer(offer)
	if err != nil {
		return nil, n.failure(ctx, camera, err)
	}

	if err := route.Send(ctx, Envelope{Type: MsgAnswer, SDP: answer}); err != nil {
		return nil, n.failure(ctx, camera, err)
	}

	src, err := n.exchange(ctx, route, peer, log)
	if err != nil {
		return nil, n.failure(ctx, camera, err)
	}

	handle, err := n.pipelines.Start(ctx, pipeline.Spec{
		Camera:     camera,
		Source:     src,
		DevicePath: dev.Path,
		Mode:       mode,
		Codec:      codec,
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, cancelled(camera)
		}

		return nil, err
	}

	done = true

	log.Info().Str("device", dev.Path).Msg("Camera stream established")

	return &Stream{
		Camera:   camera,
		Mode:     mode,
		Codec:    codec,
		Device:   dev,
		Pipeline: handle,
		peer:     peer,
		pool:     n.pool,
	}, nil
}

func cancelled(camera string) error {
	return fmt.Errorf("media negotiation for camera %q: %w", camera, models.ErrCancelled)
}

// failure maps err onto the taxonomy, preferring cancellation when ctx is done.
func (n *Negotiator) failure(ctx context.Context, camera string, err error) error {
	if ctx.Err() != nil {
		return cancelled(camera)
	}

	return &FailedError{Camera: camera, Reason: err}
}

// notifyStop tells the phone to stop a stream it may have started, even when
// ctx is already cancelled.
func (n *Negotiator) notifyStop(ctx context.Context, route *Route, reason string) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopNoticeTimeout)
	defer cancel()

	if err := route.Send(sendCtx, Envelope{Type: MsgStop, Reason: reason}); err != nil {
		n.logger.Debug().Err(err).Str("camera", route.camera).Msg("Stop notice not delivered")
	}
}

func (n *Negotiator) awaitOffer(ctx context.Context, route *Route) (string, error) {
	timer := time.NewTimer(n.cfg.OfferTimeout.Std())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-route.Done():
			return "", ErrChannelLost
		case <-timer.C:
			return "", ErrOfferTimeout
		case env := <-route.Recv():
			switch env.Type { //nolint:exhaustive // other messages are ignored before the offer
			case MsgOffer:
				if env.SDP == "" {
					return "", errMalformedOffer
				}

				return env.SDP, nil
			case MsgReject, MsgStop:
				return "", fmt.Errorf("%w: %s", ErrRemoteRejected, env.Reason)
			}
		}
	}
}

// exchange trickles candidates both ways until the peer is connected and the
// remote track has arrived.
func (n *Negotiator) exchange(ctx context.Context, route *Route, peer PeerSession, log logger.Logger) (pipeline.Source, error) {
	timer := time.NewTimer(n.cfg.CandidateTimeout.Std())
	defer timer.Stop()

	var src pipeline.Source

	local := peer.LocalCandidates()
	connected := peer.Connected()
	track := peer.Track()

	for src == nil || connected != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-route.Done():
			return nil, ErrChannelLost
		case <-timer.C:
			return nil, ErrCandidateTimeout
		case <-peer.Failed():
			return nil, ErrPeerFailed
		case <-connected:
			connected = nil
		case s := <-track:
			src = s
			track = nil
		case c, ok := <-local:
			env := Envelope{Type: MsgCandidatesDone}
			if ok {
				env = Envelope{Type: MsgCandidate, Candidate: &c}
			} else {
				local = nil
			}

			if err := route.Send(ctx, env); err != nil {
				return nil, err
			}
		case env := <-route.Recv():
			switch env.Type { //nolint:exhaustive // other messages are ignored during the exchange
			case MsgCandidate:
				if env.Candidate == nil {
					continue
				}

				if err := peer.AddCandidate(*env.Candidate); err != nil {
					log.Warn().Err(err).Msg("Remote candidate rejected")
				}
			case MsgReject, MsgStop:
				return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, env.Reason)
			}
		}
	}

	return src, nil
}

// IsRetryable reports whether a negotiation error may succeed on a later
// attempt. Missing codecs or modes will not change without a new record.
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrNoCompatibleCodec) && !errors.Is(err, ErrNoCompatibleMode) && !models.IsCancelled(err)
}
