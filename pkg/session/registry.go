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
	"sort"
	"sync"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/provisioning"
	"golang.org/x/sync/errgroup"
)

const (
	sinkQueueSize      = 256
	defaultSubscribers = 64
	storeTimeout       = 5 * time.Second
)

var (
	ErrUnknownDevice  = errors.New("unknown device")
	ErrRegistryClosed = errors.New("session registry closed")
	errMissingID      = errors.New("provisioning record without device id")
)

// Registry owns the orchestrators, at most one live instance per device.
// Closed sessions stay listed until the device is removed or rediscovered.
type Registry struct {
	deps   Deps
	sink   EventSink
	logger logger.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*Orchestrator
	closed   bool

	subMu   sync.Mutex
	subs    map[int]chan models.SessionEvent
	nextSub int

	sinkQueue chan models.SessionEvent
	sinkDone  chan struct{}
}

// NewRegistry creates a registry whose sessions live until ctx is cancelled
// or Shutdown is called. sink may be nil.
func NewRegistry(ctx context.Context, deps Deps, sink EventSink) *Registry {
	ctx, cancel := context.WithCancel(ctx)

	r := &Registry{
		deps:      deps,
		sink:      sink,
		logger:    deps.Logger,
		ctx:       ctx,
		cancel:    cancel,
		sessions:  make(map[string]*Orchestrator),
		subs:      make(map[int]chan models.SessionEvent),
		sinkQueue: make(chan models.SessionEvent, sinkQueueSize),
		sinkDone:  make(chan struct{}),
	}
	r.deps.Emit = r.broadcast

	go r.forward()

	return r
}

// AddDevice validates rec and routes it to the device's live session, or
// starts a new one. The record is delivered outside the registry lock so a
// busy session never stalls other devices.
func (r *Registry) AddDevice(rec models.ProvisioningRecord) error {
	if rec.DeviceID == "" {
		return errMissingID
	}

	if err := provisioning.Validate(&rec); err != nil {
		return err
	}

	for {
		r.mu.Lock()

		if r.closed {
			r.mu.Unlock()

			return ErrRegistryClosed
		}

		prev, ok := r.sessions[rec.DeviceID]
		if ok && !prev.stopped() {
			r.mu.Unlock()

			if prev.Deliver(rec) {
				r.remember(rec)

				return nil
			}

			// The session began closing; replace it on the next pass.
			continue
		}

		var after <-chan struct{}
		if ok {
			after = prev.Done()
		}

		o := newOrchestrator(rec.DeviceID, r.deps)
		o.Deliver(rec)
		r.sessions[rec.DeviceID] = o
		r.mu.Unlock()

		r.logger.Info().Str("device_id", rec.DeviceID).Uint64("version", rec.Version).Msg("Session created")

		go o.run(r.ctx, after)

		r.remember(rec)

		return nil
	}
}

func (r *Registry) remember(rec models.ProvisioningRecord) {
	if r.deps.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(r.ctx, storeTimeout)
	defer cancel()

	if err := r.deps.Store.Save(ctx, rec); err != nil {
		r.logger.Warn().Err(err).Str("device_id", rec.DeviceID).Msg("Failed to store device")
	}
}

func (r *Registry) forget(deviceID string) {
	if r.deps.Store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), storeTimeout)
	defer cancel()

	if err := r.deps.Store.Forget(ctx, deviceID); err != nil {
		r.logger.Warn().Err(err).Str("device_id", deviceID).Msg("Failed to forget device")
	}
}

// RemoveDevice closes the device's session and forgets the device.
func (r *Registry) RemoveDevice(ctx context.Context, deviceID string) error {
	r.mu.Lock()
	o, ok := r.sessions[deviceID]
	r.mu.Unlock()

	if !ok {
		return ErrUnknownDevice
	}

	if err := o.Close(ctx, "device removed"); err != nil {
		return err
	}

	r.mu.Lock()
	if r.sessions[deviceID] == o {
		delete(r.sessions, deviceID)
	}
	r.mu.Unlock()

	r.forget(deviceID)

	return nil
}

// ListSessions returns a summary per known device, ordered by device id.
func (r *Registry) ListSessions() []models.SessionSummary {
	r.mu.Lock()
	sessions := make([]*Orchestrator, 0, len(r.sessions))

	for _, o := range r.sessions {
		sessions = append(sessions, o)
	}
	r.mu.Unlock()

	out := make([]models.SessionSummary, 0, len(sessions))
	for _, o := range sessions {
		out = append(out, o.Summary())
	}

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })

	return out
}

func (r *Registry) Session(deviceID string) (models.SessionSummary, bool) {
	r.mu.Lock()
	o, ok := r.sessions[deviceID]
	r.mu.Unlock()

	if !ok {
		return models.SessionSummary{}, false
	}

	return o.Summary(), true
}

// Subscribe returns a channel of session events. Events are dropped for a
// subscriber that falls behind by more than buffer events.
func (r *Registry) Subscribe(buffer int) (<-chan models.SessionEvent, func()) {
	if buffer <= 0 {
		buffer = defaultSubscribers
	}

	ch := make(chan models.SessionEvent, buffer)

	r.subMu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = ch
	r.subMu.Unlock()

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			r.subMu.Lock()
			delete(r.subs, id)
			r.subMu.Unlock()
		})
	}
}

func (r *Registry) broadcast(ev models.SessionEvent) {
	r.subMu.Lock()
	for _, ch := range r.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	r.subMu.Unlock()

	if r.sink == nil {
		return
	}

	select {
	case r.sinkQueue <- ev:
	default:
		r.logger.Warn().Str("device_id", ev.DeviceID).Str("type", string(ev.Type)).Msg("Event sink backlog full, event dropped")
	}
}

func (r *Registry) forward() {
	defer close(r.sinkDone)

	for {
		select {
		case ev := <-r.sinkQueue:
			r.publish(ev)
		case <-r.ctx.Done():
			for {
				select {
				case ev := <-r.sinkQueue:
					r.publish(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Registry) publish(ev models.SessionEvent) {
	if r.sink == nil {
		return
	}

	if err := r.sink.Publish(context.WithoutCancel(r.ctx), ev); err != nil {
		r.logger.Warn().Err(err).Str("device_id", ev.DeviceID).Msg("Failed to publish session event")
	}
}

// Run feeds provisioning records into the registry until ctx is done or the
// record stream ends.
func (r *Registry) Run(ctx context.Context, records <-chan models.ProvisioningRecord) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case rec, ok := <-records:
			if !ok {
				return nil
			}

			if err := r.AddDevice(rec); err != nil {
				if errors.Is(err, ErrRegistryClosed) {
					return err
				}

				r.logger.Warn().Err(err).Msg("Provisioning record rejected")
			}
		}
	}
}

// Shutdown closes every session concurrently and waits for them.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true

	sessions := make([]*Orchestrator, 0, len(r.sessions))
	for _, o := range r.sessions {
		sessions = append(sessions, o)
	}
	r.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)

	for _, o := range sessions {
		g.Go(func() error {
			return o.Close(gctx, "host shutdown")
		})
	}

	err := g.Wait()

	r.cancel()
	<-r.sinkDone

	return err
}
