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
	"fmt"
	"sync"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/media"
	"github.com/carverauto/webcamdirect/pkg/metrics"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/pipeline"
	"github.com/carverauto/webcamdirect/pkg/transport"
	"github.com/cenkalti/backoff/v5"
)

const eventQueueSize = 64

// Deps are the collaborators shared by every orchestrator.
type Deps struct {
	Transport TransportNegotiator
	Media     MediaNegotiator
	Devices   DeviceWatcher
	Selector  CapabilitySelector
	Config    models.SessionConfig
	Logger    logger.Logger
	Metrics   *metrics.Recorder
	// Store, when set, keeps every accepted record so known devices survive
	// a host restart.
	Store DeviceStore
	// Emit receives every event of the session. It must not block.
	Emit func(models.SessionEvent)
}

// Events consumed by the orchestrator loop. Results carry the connection
// generation they were started under; results from an older generation only
// have their resources released.
type (
	recordArrived struct{ rec models.ProvisioningRecord }
	transportDone struct {
		gen uint64
		ch  transport.Channel
		err error
	}
	retryDue   struct{ gen uint64 }
	cameraDone struct {
		gen    uint64
		camera string
		stream *media.Stream
		err    error
	}
	cameraRebuild struct {
		gen    uint64
		camera string
	}
	streamHealth struct {
		gen    uint64
		camera string
		stream *media.Stream
		ev     pipeline.HealthEvent
	}
	streamEnded struct {
		gen    uint64
		camera string
		stream *media.Stream
		err    error
	}
	channelLost struct {
		gen uint64
		err error
	}
	remoteStop struct {
		gen uint64
		env media.Envelope
	}
	closeRequested struct{ reason string }
)

// Orchestrator is the state machine of one device. All state below the
// summary is owned by the run loop; other goroutines talk to it through post.
type Orchestrator struct {
	deviceID string
	deps     Deps
	log      logger.Logger

	events   chan any
	stopping chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	wg       sync.WaitGroup

	mu      sync.RWMutex
	summary models.SessionSummary

	ctx        context.Context
	state      models.SessionState
	record     models.ProvisioningRecord
	gen        uint64
	attempts   int
	retry      *backoff.ExponentialBackOff
	retryTimer *time.Timer
	opCancel   context.CancelFunc

	channel    transport.Channel
	sig        *media.Signaling
	connCtx    context.Context
	connCancel context.CancelFunc
	cameras    map[string]*camera
	order      []string
	streamed   bool
	stale      bool
	lastErr    error
}

func newOrchestrator(deviceID string, deps Deps) *Orchestrator {
	o := &Orchestrator{
		deviceID: deviceID,
		deps:     deps,
		log:      logger.ForDevice(deps.Logger, deviceID),
		events:   make(chan any, eventQueueSize),
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
		retry:    newBackoff(deps.Config.BaseBackoff.Std(), deps.Config.MaxBackoff.Std()),
		cameras:  make(map[string]*camera),
	}
	o.summary = models.SessionSummary{DeviceID: deviceID, State: models.StateIdle, Streams: []models.StreamSummary{}}

	return o
}

func (o *Orchestrator) DeviceID() string { return o.deviceID }

// Done is closed once the session reached Closed and released everything.
func (o *Orchestrator) Done() <-chan struct{} { return o.done }

func (o *Orchestrator) Summary() models.SessionSummary {
	o.mu.RLock()
	defer o.mu.RUnlock()

	s := o.summary
	s.Streams = append([]models.StreamSummary(nil), o.summary.Streams...)

	return s
}

func (o *Orchestrator) State() models.SessionState {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.summary.State
}

// Deliver queues a provisioning record. It reports false once the session is
// shutting down.
func (o *Orchestrator) Deliver(rec models.ProvisioningRecord) bool {
	return o.post(recordArrived{rec: rec})
}

// Close tears the session down and waits until it is Closed. Calling it again,
// or after the session closed on its own, returns immediately.
func (o *Orchestrator) Close(ctx context.Context, reason string) error {
	o.post(closeRequested{reason: reason})

	select {
	case <-o.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) stopped() bool {
	select {
	case <-o.stopping:
		return true
	default:
		return false
	}
}

func (o *Orchestrator) post(ev any) bool {
	select {
	case <-o.stopping:
		return false
	default:
	}

	select {
	case o.events <- ev:
		return true
	case <-o.stopping:
		return false
	}
}

func (o *Orchestrator) spawn(fn func()) {
	o.wg.Add(1)

	go func() {
		defer o.wg.Done()
		fn()
	}()
}

// run is the session loop. after, when set, is waited on first so a device
// never has two live loops.
func (o *Orchestrator) run(ctx context.Context, after <-chan struct{}) {
	defer close(o.done)

	if after != nil {
		select {
		case <-after:
		case <-ctx.Done():
			o.stopOnce.Do(func() { close(o.stopping) })
			o.transition(models.StateClosed, "shutdown")
			o.publishSummary()

			return
		}
	}

	o.ctx = ctx

	ticker := time.NewTicker(o.deps.Config.PollInterval.Std())
	defer ticker.Stop()

	var freed <-chan struct{}

	if o.deps.Devices != nil {
		ch, unwatch := o.deps.Devices.Watch()
		defer unwatch()

		freed = ch
	}

	for o.state != models.StateClosed {
		select {
		case <-ctx.Done():
			o.teardown("shutdown")
		case <-ticker.C:
			o.checkLiveness()
		case <-freed:
			o.retryExhausted()
		case ev := <-o.events:
			o.handle(ev)
		}

		o.publishSummary()
	}
}

func (o *Orchestrator) handle(ev any) {
	switch e := ev.(type) {
	case recordArrived:
		o.onRecord(e.rec)
	case transportDone:
		o.onTransport(e)
	case retryDue:
		if e.gen == o.gen && o.state == models.StateProvisioned {
			o.startTransport()
		}
	case cameraDone:
		o.onCamera(e)
	case cameraRebuild:
		o.onRebuild(e)
	case streamHealth:
		o.onHealth(e)
	case streamEnded:
		o.onStreamEnded(e)
	case channelLost:
		o.onChannelLost(e)
	case remoteStop:
		o.onRemoteStop(e)
	case closeRequested:
		o.teardown(e.reason)
	}
}

func (o *Orchestrator) onRecord(rec models.ProvisioningRecord) {
	if o.state != models.StateIdle && !rec.Supersedes(&o.record) {
		o.log.Debug().
			Uint64("version", rec.Version).
			Uint64("current", o.record.Version).
			Msg("Ignoring provisioning record that does not supersede the current one")

		return
	}

	o.record = rec

	switch o.state { //nolint:exhaustive // connected states keep the record for the next reconnect
	case models.StateIdle:
		o.transition(models.StateProvisioned, "record received")
		o.startTransport()
	case models.StateProvisioned, models.StateNegotiatingTransport, models.StateReconnecting:
		o.abortTransport()
		o.resetRetries()
		o.transition(models.StateProvisioned, fmt.Sprintf("superseded by version %d", rec.Version))
		o.startTransport()
	case models.StateClosed:
	default:
		o.log.Info().Uint64("version", rec.Version).Msg("Newer provisioning record cached for the next reconnect")
	}
}

func (o *Orchestrator) resetRetries() {
	o.attempts = 0
	o.retry.Reset()
}

func (o *Orchestrator) abortTransport() {
	if o.opCancel != nil {
		o.opCancel()
		o.opCancel = nil
	}

	if o.retryTimer != nil {
		o.retryTimer.Stop()
		o.retryTimer = nil
	}
}

func (o *Orchestrator) startTransport() {
	o.gen++
	o.attempts++

	gen := o.gen
	hints := o.record.Hints

	ctx, cancel := context.WithCancel(o.ctx)
	o.opCancel = cancel

	o.transition(models.StateNegotiatingTransport, fmt.Sprintf("attempt %d", o.attempts))

	o.spawn(func() {
		ch, err := o.deps.Transport.Negotiate(ctx, hints)
		if !o.post(transportDone{gen: gen, ch: ch, err: err}) && ch != nil {
			_ = ch.Close()
		}
	})
}

func (o *Orchestrator) onTransport(r transportDone) {
	if r.gen != o.gen || o.state != models.StateNegotiatingTransport {
		if r.ch != nil {
			_ = r.ch.Close()
		}

		return
	}

	if o.opCancel != nil {
		o.opCancel()
		o.opCancel = nil
	}

	if r.err != nil {
		o.lastErr = r.err

		if o.attempts >= o.deps.Config.MaxAttempts {
			o.teardown(fmt.Sprintf("transport failed after %d attempts: %v", o.attempts, r.err))

			return
		}

		delay := o.retry.NextBackOff()

		o.log.Warn().Err(r.err).Int("attempt", o.attempts).Dur("retry_in", delay).Msg("Transport negotiation failed")
		o.transition(models.StateProvisioned, r.err.Error())

		gen := o.gen
		o.retryTimer = time.AfterFunc(delay, func() { o.post(retryDue{gen: gen}) })

		return
	}

	o.connect(r.ch)
}

func (o *Orchestrator) connect(ch transport.Channel) {
	o.resetRetries()

	o.channel = ch
	o.connCtx, o.connCancel = context.WithCancel(o.ctx)
	o.sig = media.NewSignaling(ch, o.log)
	o.streamed = false
	o.stale = false

	o.transition(models.StateTransportReady, "connected over "+string(ch.Kind()))

	gen, sig, connCtx := o.gen, o.sig, o.connCtx

	o.spawn(func() {
		select {
		case <-sig.Done():
			o.post(channelLost{gen: gen, err: ch.Err()})
		case <-connCtx.Done():
		}
	})

	o.spawn(func() {
		for {
			select {
			case env := <-sig.Unsolicited():
				o.post(remoteStop{gen: gen, env: env})
			case <-sig.Done():
				return
			case <-connCtx.Done():
				return
			}
		}
	})

	o.startMedia()
}

func (o *Orchestrator) onChannelLost(e channelLost) {
	if e.gen != o.gen || o.channel == nil {
		return
	}

	reason := "transport disconnected"
	if e.err != nil {
		o.lastErr = e.err
		reason = e.err.Error()
	}

	if o.state == models.StateStreaming {
		o.transition(models.StateDegraded, reason)
	}

	o.disconnect()
	o.transition(models.StateReconnecting, reason)
	o.resetRetries()
	o.startTransport()
}

// disconnect stops every stream, releasing its device, and then closes the
// channel.
func (o *Orchestrator) disconnect() {
	if o.connCancel != nil {
		o.connCancel()
		o.connCancel = nil
	}

	for _, name := range o.order {
		c := o.cameras[name]
		if c.stream != nil {
			c.stream.Close()
			c.stream = nil
			o.emit(models.SessionEvent{Type: models.EventStreamStopped, Camera: name})
		}

		c.pending = false
		c.rebuildPending = false

		if c.status != models.StreamFailed && c.status != models.StreamExhausted {
			c.status = models.StreamStopped
		}
	}

	if o.sig != nil {
		o.sig.Close()
		o.sig = nil
	}

	if o.channel != nil {
		_ = o.channel.Close()
		o.channel = nil
	}
}

// teardown moves the session to Closed. Every stream's device is released
// before the channel is closed, and no goroutine of the session survives it.
func (o *Orchestrator) teardown(reason string) {
	if o.state == models.StateClosed {
		return
	}

	o.stopOnce.Do(func() { close(o.stopping) })
	o.abortTransport()
	o.disconnect()
	o.wg.Wait()
	o.drain()

	o.transition(models.StateClosed, reason)
}

// drain releases resources carried by events that will never be handled.
func (o *Orchestrator) drain() {
	for {
		select {
		case ev := <-o.events:
			switch e := ev.(type) {
			case transportDone:
				if e.ch != nil {
					_ = e.ch.Close()
				}
			case cameraDone:
				if e.stream != nil {
					e.stream.Close()
				}
			case streamEnded:
				e.stream.Close()
			}
		default:
			return
		}
	}
}

func (o *Orchestrator) transition(to models.SessionState, reason string) {
	from := o.state
	if from == to {
		return
	}

	o.state = to

	ctx := o.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	o.deps.Metrics.Transition(ctx, from.String(), to.String())

	log := o.log.Info()
	if to == models.StateClosed && o.lastErr != nil && !models.IsCancelled(o.lastErr) {
		log = o.log.Warn().AnErr("last_error", o.lastErr)
	}

	log.Str("from", from.String()).Str("to", to.String()).Str("reason", reason).Msg("Session state changed")

	o.emit(models.SessionEvent{Type: models.EventStateChanged, From: from, To: to, Reason: reason})
}

func (o *Orchestrator) emit(ev models.SessionEvent) {
	if o.deps.Emit == nil {
		return
	}

	ev.DeviceID = o.deviceID
	ev.Time = time.Now()

	if ev.Type != models.EventStateChanged {
		ev.From = o.state
		ev.To = o.state
	}

	o.deps.Emit(ev)
}

func (o *Orchestrator) publishSummary() {
	s := models.SessionSummary{
		DeviceID:    o.deviceID,
		DisplayName: o.record.DisplayName,
		State:       o.state,
		Version:     o.record.Version,
		Attempts:    o.attempts,
		Streams:     make([]models.StreamSummary, 0, len(o.order)),
	}

	if o.channel != nil {
		s.Transport = o.channel.Kind()
		s.LastActivity = o.channel.LastActivity()
	}

	if o.lastErr != nil {
		s.LastError = o.lastErr.Error()
	}

	for _, name := range o.order {
		s.Streams = append(s.Streams, o.cameras[name].summary())
	}

	o.mu.Lock()
	o.summary = s
	o.mu.Unlock()
}
