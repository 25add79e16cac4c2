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

// Package metrics holds the OpenTelemetry instruments of the session daemon.
package metrics

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	meterName = "github.com/carverauto/webcamdirect"

	metricSessionTransitions = "webcamd_session_transitions_total"
	metricTransportAttempts  = "webcamd_transport_attempts_total"
	metricPoolExhausted      = "webcamd_pool_exhausted_total"
	metricProvisioningDrops  = "webcamd_provisioning_malformed_total"
	metricPipelineRestarts   = "webcamd_pipeline_restarts_total"
	metricMediaNegotiation   = "webcamd_media_negotiation_seconds"
)

// Recorder groups the instruments. A nil *Recorder records nothing.
type Recorder struct {
	transitions       metric.Int64Counter
	transportAttempts metric.Int64Counter
	exhausted         metric.Int64Counter
	malformed         metric.Int64Counter
	restarts          metric.Int64Counter
	negotiation       metric.Float64Histogram
}

var (
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	defaultOnce sync.Once
	//nolint:gochecknoglobals // metrics instruments are shared across the process intentionally
	defaultRecorder *Recorder
)

// Default returns the recorder bound to the global meter provider.
func Default() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewRecorder(otel.Meter(meterName))
	})

	return defaultRecorder
}

// NewRecorder creates the instruments on meter. Instrument errors are routed to
// the otel error handler and leave the instrument unset.
func NewRecorder(meter metric.Meter) *Recorder {
	r := &Recorder{}

	var err error

	if r.transitions, err = meter.Int64Counter(metricSessionTransitions,
		metric.WithDescription("Session state machine transitions")); err != nil {
		otel.Handle(err)
	}

	if r.transportAttempts, err = meter.Int64Counter(metricTransportAttempts,
		metric.WithDescription("Transport connection attempts by kind and outcome")); err != nil {
		otel.Handle(err)
	}

	if r.exhausted, err = meter.Int64Counter(metricPoolExhausted,
		metric.WithDescription("Virtual device acquisitions refused because the pool was exhausted")); err != nil {
		otel.Handle(err)
	}

	if r.malformed, err = meter.Int64Counter(metricProvisioningDrops,
		metric.WithDescription("Provisioning payloads dropped as malformed")); err != nil {
		otel.Handle(err)
	}

	if r.restarts, err = meter.Int64Counter(metricPipelineRestarts,
		metric.WithDescription("Pipeline graph rebuilds after decode or device errors")); err != nil {
		otel.Handle(err)
	}

	if r.negotiation, err = meter.Float64Histogram(metricMediaNegotiation,
		metric.WithDescription("Duration of per-camera media negotiation"),
		metric.WithUnit("s")); err != nil {
		otel.Handle(err)
	}

	return r
}

func (r *Recorder) Transition(ctx context.Context, from, to string) {
	if r == nil || r.transitions == nil {
		return
	}

	r.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

func (r *Recorder) TransportAttempt(ctx context.Context, kind, outcome string) {
	if r == nil || r.transportAttempts == nil {
		return
	}

	r.transportAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("outcome", outcome),
	))
}

func (r *Recorder) PoolExhausted(ctx context.Context) {
	if r == nil || r.exhausted == nil {
		return
	}

	r.exhausted.Add(ctx, 1)
}

func (r *Recorder) ProvisioningMalformed(ctx context.Context, reason string) {
	if r == nil || r.malformed == nil {
		return
	}

	r.malformed.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (r *Recorder) PipelineRestart(ctx context.Context, camera string) {
	if r == nil || r.restarts == nil {
		return
	}

	r.restarts.Add(ctx, 1, metric.WithAttributes(attribute.String("camera", camera)))
}

func (r *Recorder) MediaNegotiation(ctx context.Context, d time.Duration, outcome string) {
	if r == nil || r.negotiation == nil {
		return
	}

	r.negotiation.Record(ctx, d.Seconds(), metric.WithAttributes(attribute.String("outcome", outcome)))
}
