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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/metrics"
	"github.com/carverauto/webcamdirect/pkg/models"
)

const (
	eventBuffer = 16
	frameBuffer = 4
)

var (
	errSourceEnded   = errors.New("media source ended")
	errRetriesSpent  = errors.New("restart budget exhausted")
	errMissingDevice = errors.New("missing device path")
)

// Error is a pipeline failure for one camera.
type Error struct {
	Camera string
	Reason error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline for camera %q: %v", e.Camera, e.Reason)
}

func (e *Error) Unwrap() []error {
	return []error{models.ErrPipeline, e.Reason}
}

// Spec is what Start needs to bind a source to a device.
type Spec struct {
	Camera     string
	Source     Source
	DevicePath string
	Mode       models.VideoMode
	Codec      string
}

// Manager starts supervised pipelines.
type Manager struct {
	factory GraphFactory
	cfg     models.PipelineConfig
	logger  logger.Logger
	metrics *metrics.Recorder
}

func NewManager(factory GraphFactory, cfg models.PipelineConfig, log logger.Logger, rec *metrics.Recorder) *Manager {
	return &Manager{factory: factory, cfg: cfg, logger: log, metrics: rec}
}

// Start builds the graph and begins pumping frames. The pipeline runs until
// Stop, ctx cancellation, or an unrecoverable failure.
func (m *Manager) Start(ctx context.Context, spec Spec) (*Handle, error) {
	if spec.DevicePath == "" {
		return nil, &Error{Camera: spec.Camera, Reason: errMissingDevice}
	}

	asm, err := newAssembler(spec.Codec)
	if err != nil {
		return nil, &Error{Camera: spec.Camera, Reason: err}
	}

	runCtx, cancel := context.WithCancel(ctx)

	graphSpec := GraphSpec{
		Camera:      spec.Camera,
		Codec:       spec.Codec,
		Mode:        spec.Mode,
		DevicePath:  spec.DevicePath,
		PixelFormat: m.cfg.PixelFormat,
	}

	graph, err := m.factory.Build(runCtx, graphSpec)
	if err != nil {
		cancel()

		return nil, &Error{Camera: spec.Camera, Reason: err}
	}

	h := &Handle{
		camera: spec.Camera,
		events: make(chan HealthEvent, eventBuffer),
		done:   make(chan struct{}),
		cancel: cancel,
	}

	frames := make(chan accessUnit, frameBuffer)
	srcErr := make(chan error, 1)

	s := &supervisor{
		m:         m,
		h:         h,
		spec:      spec,
		graphSpec: graphSpec,
		graph:     graph,
	}

	go h.read(runCtx, spec.Source, asm, frames, srcErr, m.logger)
	go s.run(runCtx, frames, srcErr)

	if err := spec.Source.RequestKeyframe(); err != nil {
		m.logger.Debug().Err(err).Str("camera", spec.Camera).Msg("Initial keyframe request failed")
	}

	m.logger.Info().
		Str("camera", spec.Camera).
		Str("device", spec.DevicePath).
		Str("codec", spec.Codec).
		Str("mode", spec.Mode.String()).
		Msg("Pipeline started")

	return h, nil
}

// Handle is a running pipeline.
type Handle struct {
	camera    string
	events    chan HealthEvent
	done      chan struct{}
	cancel    context.CancelFunc
	stopOnce  sync.Once
	frames    atomic.Uint64
	lastFrame atomic.Int64

	mu  sync.Mutex
	err error
}

// Events is closed once the pipeline has stopped.
func (h *Handle) Events() <-chan HealthEvent { return h.events }

func (h *Handle) Done() <-chan struct{} { return h.done }

// Err is the terminal failure, nil after a clean Stop.
func (h *Handle) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.err
}

func (h *Handle) Frames() uint64 { return h.frames.Load() }

func (h *Handle) LastFrame() time.Time {
	ns := h.lastFrame.Load()
	if ns == 0 {
		return time.Time{}
	}

	return time.Unix(0, ns)
}

// Stop cancels the pipeline and waits until the graph has been closed. Safe
// to call any number of times from any goroutine.
func (h *Handle) Stop() {
	h.stopOnce.Do(h.cancel)
	<-h.done
}

func (h *Handle) read(ctx context.Context, src Source, asm *assembler, out chan<- accessUnit, srcErr chan<- error, log logger.Logger) {
	for {
		pkt, err := src.ReadRTP()
		if err != nil {
			if ctx.Err() == nil {
				srcErr <- err
			}

			return
		}

		au, err := asm.push(pkt)
		if err != nil {
			log.Debug().Err(err).Str("camera", h.camera).Msg("Dropping malformed RTP payload")

			continue
		}

		if au == nil {
			continue
		}

		select {
		case out <- *au:
		case <-ctx.Done():
			return
		}
	}
}

func (h *Handle) emit(ctx context.Context, ev HealthEvent) {
	ev.Camera = h.camera
	ev.Time = time.Now()

	select {
	case h.events <- ev:
	case <-ctx.Done():
	}
}

func (h *Handle) offer(ev HealthEvent) {
	ev.Camera = h.camera
	ev.Time = time.Now()

	select {
	case h.events <- ev:
	default:
	}
}

type supervisor struct {
	m         *Manager
	h         *Handle
	spec      Spec
	graphSpec GraphSpec
	graph     Graph

	consecutive int
	lastErr     time.Time
	lastEvent   time.Time
	stalled     bool
}

func (s *supervisor) run(ctx context.Context, frames <-chan accessUnit, srcErr <-chan error) {
	defer close(s.h.done)
	defer close(s.h.events)
	defer s.closeGraph()

	stallAfter := s.m.cfg.StallTimeout.Std()

	stall := time.NewTimer(stallAfter)
	defer stall.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case err := <-srcErr:
			s.fail(ctx, fmt.Errorf("%w: %w", errSourceEnded, err))

			return

		case err := <-s.graph.Errors():
			if !s.fault(ctx, err) {
				return
			}

		case au := <-frames:
			if err := s.graph.WriteFrame(au.data, au.timestamp); err != nil {
				if !s.fault(ctx, err) {
					return
				}

				continue
			}

			s.delivered(stallAfter)
			stall.Reset(stallAfter)

		case <-stall.C:
			if !s.stalled {
				s.stalled = true
				s.h.offer(HealthEvent{Kind: HealthStall, Frames: s.h.Frames()})
				s.m.logger.Warn().Str("camera", s.spec.Camera).Dur("after", stallAfter).Msg("Pipeline stalled")
			}

			_ = s.spec.Source.RequestKeyframe()

			stall.Reset(stallAfter)
		}
	}
}

func (s *supervisor) delivered(healthyAfter time.Duration) {
	now := time.Now()
	n := s.h.frames.Add(1)
	s.h.lastFrame.Store(now.UnixNano())
	s.stalled = false

	if s.consecutive > 0 && now.Sub(s.lastErr) >= healthyAfter {
		s.consecutive = 0
	}

	if now.Sub(s.lastEvent) >= s.m.cfg.FrameEventInterval.Std() {
		s.lastEvent = now
		s.h.offer(HealthEvent{Kind: HealthFrame, Frames: n, ConsecutiveErrors: s.consecutive})
	}
}

// fault handles a decode or device error. It rebuilds the graph until the
// restart budget is spent and reports whether the pipeline is still running.
func (s *supervisor) fault(ctx context.Context, cause error) bool {
	for {
		s.consecutive++
		s.lastErr = time.Now()

		s.h.emit(ctx, HealthEvent{Kind: HealthDecodeError, Err: cause, ConsecutiveErrors: s.consecutive, Frames: s.h.Frames()})

		if s.consecutive > s.m.cfg.MaxRestarts {
			s.fail(ctx, fmt.Errorf("%w after %d consecutive errors: %w", errRetriesSpent, s.consecutive, cause))

			return false
		}

		s.closeGraph()

		graph, err := s.m.factory.Build(ctx, s.graphSpec)
		if err == nil {
			s.graph = graph
			s.m.metrics.PipelineRestart(ctx, s.spec.Camera)
			s.m.logger.Warn().Err(cause).
				Str("camera", s.spec.Camera).
				Int("consecutive_errors", s.consecutive).
				Msg("Pipeline rebuilt")
			s.h.emit(ctx, HealthEvent{Kind: HealthRestarted, ConsecutiveErrors: s.consecutive, Frames: s.h.Frames()})
			_ = s.spec.Source.RequestKeyframe()

			return true
		}

		if ctx.Err() != nil {
			return false
		}

		cause = err
	}
}

func (s *supervisor) fail(ctx context.Context, reason error) {
	err := &Error{Camera: s.spec.Camera, Reason: reason}

	s.h.mu.Lock()
	s.h.err = err
	s.h.mu.Unlock()

	s.m.logger.Error().Err(err).Str("camera", s.spec.Camera).Msg("Pipeline failed")
	s.h.emit(ctx, HealthEvent{Kind: HealthFailed, Err: err, ConsecutiveErrors: s.consecutive, Frames: s.h.Frames()})
}

func (s *supervisor) closeGraph() {
	if s.graph == nil {
		return
	}

	if err := s.graph.Close(); err != nil {
		s.m.logger.Warn().Err(err).Str("camera", s.spec.Camera).Msg("Closing pipeline graph failed")
	}

	s.graph = nil
}
