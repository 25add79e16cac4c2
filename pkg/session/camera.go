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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/carverauto/webcamdirect/pkg/media"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/pipeline"
	"github.com/cenkalti/backoff/v5"
)

// camera is the loop-owned record of one selected camera.
type camera struct {
	capability     models.CameraCapability
	status         models.StreamStatus
	stream         *media.Stream
	pending        bool
	rebuildPending bool
	failures       int
	rebuild        *backoff.ExponentialBackOff
	consecutive    int
	lastFrame      time.Time
	lastErr        error
}

func (c *camera) summary() models.StreamSummary {
	s := models.StreamSummary{
		Camera:            c.capability.Name,
		Status:            c.status,
		ConsecutiveErrors: c.consecutive,
		LastFrame:         c.lastFrame,
		DeviceIndex:       -1,
	}

	if c.stream != nil {
		s.Mode = c.stream.Mode
		s.Codec = c.stream.Codec
		s.DeviceIndex = c.stream.Device.Index
		s.DevicePath = c.stream.Device.Path
	}

	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}

	return s
}

func (o *Orchestrator) startMedia() {
	selected := o.deps.Selector.Select(o.record)
	if len(selected) == 0 {
		o.teardown("no camera selected for mirroring")

		return
	}

	o.cameras = make(map[string]*camera, len(selected))
	o.order = o.order[:0]

	o.transition(models.StateNegotiatingMedia, fmt.Sprintf("%d cameras selected", len(selected)))

	for _, capability := range selected {
		if _, dup := o.cameras[capability.Name]; dup {
			o.log.Warn().Str("camera", capability.Name).Msg("Camera selected twice, keeping the first")

			continue
		}

		c := &camera{
			capability: capability,
			rebuild:    newBackoff(o.deps.Config.BaseBackoff.Std(), o.deps.Config.MaxBackoff.Std()),
		}
		o.cameras[capability.Name] = c
		o.order = append(o.order, capability.Name)
		o.startCamera(c)
	}
}

// startCamera negotiates one camera in its own task, retrying with backoff.
// Exhaustion and incompatibility end the task at once.
func (o *Orchestrator) startCamera(c *camera) {
	c.status = models.StreamNegotiating
	c.pending = true
	c.rebuildPending = false

	gen, ctx, sig := o.gen, o.connCtx, o.sig
	name := c.capability.Name
	req := media.Request{DisplayName: o.record.DisplayName, Camera: c.capability}
	attempts := max(o.deps.Config.CameraAttempts, 1)

	o.spawn(func() {
		stream, err := backoff.Retry(ctx, func() (*media.Stream, error) {
			s, err := o.deps.Media.Negotiate(ctx, sig, req)
			if err == nil {
				return s, nil
			}

			if errors.Is(err, models.ErrDeviceExhausted) || !media.IsRetryable(err) {
				return nil, backoff.Permanent(err)
			}

			return nil, err
		},
			backoff.WithBackOff(newBackoff(o.deps.Config.BaseBackoff.Std(), o.deps.Config.MaxBackoff.Std())),
			backoff.WithMaxTries(uint(attempts)), //nolint:gosec // bounded by config validation
			backoff.WithNotify(func(err error, next time.Duration) {
				o.log.Warn().Err(err).Str("camera", name).Dur("retry_in", next).Msg("Camera negotiation failed")
			}),
		)

		if !o.post(cameraDone{gen: gen, camera: name, stream: stream, err: err}) && stream != nil {
			stream.Close()
		}
	})
}

func (o *Orchestrator) onCamera(r cameraDone) {
	c := o.cameras[r.camera]
	if r.gen != o.gen || c == nil || o.sig == nil {
		if r.stream != nil {
			r.stream.Close()
		}

		return
	}

	c.pending = false

	if r.err != nil {
		c.lastErr = r.err

		switch {
		case models.IsCancelled(r.err):
			c.status = models.StreamStopped
		case errors.Is(r.err, models.ErrDeviceExhausted):
			c.status = models.StreamExhausted
			o.log.Info().Str("camera", r.camera).Msg("No free virtual device, camera queued")
			o.emit(models.SessionEvent{Type: models.EventCameraExhausted, Camera: r.camera, Reason: r.err.Error()})
		default:
			c.status = models.StreamFailed
			o.lastErr = r.err
			o.log.Warn().Err(r.err).Str("camera", r.camera).Msg("Camera could not be negotiated")
			o.emit(models.SessionEvent{Type: models.EventCameraFailed, Camera: r.camera, Reason: r.err.Error()})
		}

		o.recover("camera " + r.camera + " not rebuilt")
		o.settle()

		return
	}

	c.stream = r.stream
	c.status = models.StreamActive
	c.consecutive = 0
	c.lastErr = nil
	o.streamed = true

	o.emit(models.SessionEvent{
		Type:   models.EventStreamStarted,
		Camera: r.camera,
		Reason: fmt.Sprintf("%s %s on %s", r.stream.Codec, r.stream.Mode, r.stream.Device.Path),
	})
	o.watchStream(r.camera, r.stream)

	switch o.state { //nolint:exhaustive // other states are unaffected by a new stream
	case models.StateNegotiatingMedia, models.StateTransportReady:
		o.transition(models.StateStreaming, "camera "+r.camera+" streaming")
	case models.StateDegraded:
		o.recover("camera " + r.camera + " rebuilt")
	}
}

func (o *Orchestrator) watchStream(name string, stream *media.Stream) {
	gen := o.gen

	o.spawn(func() {
		for ev := range stream.Pipeline.Events() {
			o.post(streamHealth{gen: gen, camera: name, stream: stream, ev: ev})
		}

		if !o.post(streamEnded{gen: gen, camera: name, stream: stream, err: stream.Pipeline.Err()}) {
			stream.Close()
		}
	})
}

func (o *Orchestrator) current(gen uint64, name string, stream *media.Stream) *camera {
	c := o.cameras[name]
	if gen != o.gen || c == nil || c.stream != stream {
		return nil
	}

	return c
}

func (o *Orchestrator) onHealth(h streamHealth) {
	c := o.current(h.gen, h.camera, h.stream)
	if c == nil {
		return
	}

	c.consecutive = h.ev.ConsecutiveErrors

	switch h.ev.Kind {
	case pipeline.HealthFrame:
		c.lastFrame = h.ev.Time
		if c.status == models.StreamRebuilding {
			c.status = models.StreamActive
		}
	case pipeline.HealthDecodeError:
		c.status = models.StreamRebuilding
		c.lastErr = h.ev.Err
		o.emit(models.SessionEvent{Type: models.EventStreamHealth, Camera: h.camera, Reason: string(h.ev.Kind) + ": " + h.ev.Err.Error()})
	case pipeline.HealthStall, pipeline.HealthRestarted:
		o.emit(models.SessionEvent{Type: models.EventStreamHealth, Camera: h.camera, Reason: string(h.ev.Kind)})
	case pipeline.HealthFailed:
		c.lastErr = h.ev.Err
	}
}

func (o *Orchestrator) onStreamEnded(e streamEnded) {
	c := o.current(e.gen, e.camera, e.stream)
	if c == nil {
		e.stream.Close()

		return
	}

	e.stream.Close()
	c.stream = nil

	if e.err == nil {
		c.status = models.StreamStopped
		o.emit(models.SessionEvent{Type: models.EventStreamStopped, Camera: e.camera})
		o.settle()

		return
	}

	c.status = models.StreamFailed
	c.lastErr = e.err
	c.failures++
	o.lastErr = e.err

	o.log.Warn().Err(e.err).Str("camera", e.camera).Int("failures", c.failures).Msg("Camera stream failed")
	o.emit(models.SessionEvent{Type: models.EventStreamFailed, Camera: e.camera, Reason: e.err.Error()})

	if o.state == models.StateStreaming {
		o.transition(models.StateDegraded, "camera "+e.camera+" failed")
	}

	if c.failures <= o.deps.Config.CameraAttempts {
		c.rebuildPending = true
		gen, name := o.gen, e.camera
		time.AfterFunc(c.rebuild.NextBackOff(), func() { o.post(cameraRebuild{gen: gen, camera: name}) })

		return
	}

	o.recover("camera " + e.camera + " given up")
	o.settle()
}

func (o *Orchestrator) onRebuild(r cameraRebuild) {
	c := o.cameras[r.camera]
	if r.gen != o.gen || c == nil || o.sig == nil || !c.rebuildPending || c.stream != nil || c.pending {
		return
	}

	o.startCamera(c)
}

func (o *Orchestrator) onRemoteStop(r remoteStop) {
	c := o.cameras[r.env.Camera]
	if r.gen != o.gen || c == nil || c.stream == nil {
		return
	}

	c.stream.Close()
	c.stream = nil
	c.status = models.StreamStopped

	o.log.Info().Str("camera", r.env.Camera).Str("reason", r.env.Reason).Msg("Phone stopped camera stream")
	o.emit(models.SessionEvent{Type: models.EventStreamStopped, Camera: r.env.Camera, Reason: r.env.Reason})
	o.settle()
}

// retryExhausted restarts cameras that were refused a device.
func (o *Orchestrator) retryExhausted() {
	if o.sig == nil {
		return
	}

	for _, name := range o.order {
		if c := o.cameras[name]; c.status == models.StreamExhausted && !c.pending {
			o.startCamera(c)
		}
	}

	if o.state == models.StateTransportReady && o.count(isPending) > 0 {
		o.transition(models.StateNegotiatingMedia, "retrying queued cameras")
	}
}

func isActive(c *camera) bool  { return c.stream != nil }
func isPending(c *camera) bool { return c.pending || c.rebuildPending }
func isQueued(c *camera) bool  { return c.status == models.StreamExhausted }

func (o *Orchestrator) count(pred func(*camera) bool) int {
	n := 0

	for _, c := range o.cameras {
		if pred(c) {
			n++
		}
	}

	return n
}

// settle runs after a camera ends without a stream. With nothing streaming
// and nothing in flight the session falls back to TransportReady, or closes
// when no camera ever streamed.
func (o *Orchestrator) settle() {
	if o.count(isActive) > 0 || o.count(isPending) > 0 {
		return
	}

	if !o.streamed && o.count(isQueued) == 0 {
		reason := "no camera could be streamed"
		if o.lastErr != nil {
			reason += ": " + o.lastErr.Error()
		}

		o.teardown(reason)

		return
	}

	if o.state == models.StateDegraded && o.stale {
		return
	}

	o.transition(models.StateTransportReady, "no active camera streams")
}

// recover returns a degraded session to Streaming once traffic is fresh, a
// stream is running and no failed stream awaits its rebuild.
func (o *Orchestrator) recover(reason string) {
	if o.state != models.StateDegraded || o.stale {
		return
	}

	if o.count(isActive) == 0 || o.count(func(c *camera) bool { return c.rebuildPending }) > 0 {
		return
	}

	o.transition(models.StateStreaming, reason)
}

// checkLiveness runs once per poll interval.
func (o *Orchestrator) checkLiveness() {
	if o.channel == nil {
		return
	}

	idle := time.Since(o.channel.LastActivity())
	stale := idle > o.deps.Config.StaleAfter.Std()

	wasStale := o.stale
	o.stale = stale

	if stale && o.state == models.StateStreaming {
		o.transition(models.StateDegraded, fmt.Sprintf("no traffic for %s", idle.Round(time.Millisecond)))
	}

	if !stale && wasStale {
		o.recover("traffic resumed")
	}

	sig, ctx, timeout := o.sig, o.connCtx, o.deps.Config.PollInterval.Std()

	o.spawn(func() {
		sendCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		_ = sig.Keepalive(sendCtx)
	})
}
