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

package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/metrics"
	"github.com/carverauto/webcamdirect/pkg/models"
)

var (
	errNoHints          = errors.New("no usable transport hints")
	errDeadlineExceeded = errors.New("deadline exceeded")
	errAllFailed        = errors.New("all transports failed")
)

// AttemptError records why one transport attempt failed.
type AttemptError struct {
	Kind models.TransportKind
	Err  error
}

func (e AttemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e AttemptError) Unwrap() error { return e.Err }

// FailedError is the TransportFailed outcome of a negotiation.
type FailedError struct {
	Reason   error
	Attempts []AttemptError
}

func (e *FailedError) Error() string {
	if len(e.Attempts) == 0 {
		return fmt.Sprintf("%v: %v", models.ErrTransportFailed, e.Reason)
	}

	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}

	return fmt.Sprintf("%v: %v (%s)", models.ErrTransportFailed, e.Reason, strings.Join(parts, "; "))
}

func (e *FailedError) Unwrap() []error {
	errs := []error{models.ErrTransportFailed, e.Reason}
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}

	return errs
}

type attempt struct {
	kind    models.TransportKind
	address string
	cancel  context.CancelFunc
}

type attemptResult struct {
	idx int
	ch  Channel
	err error
}

// Negotiator races the configured transports for one phone.
type Negotiator struct {
	dialer  Dialer
	config  models.TransportConfig
	logger  logger.Logger
	metrics *metrics.Recorder
}

func NewNegotiator(dialer Dialer, cfg models.TransportConfig, log logger.Logger, rec *metrics.Recorder) *Negotiator {
	return &Negotiator{dialer: dialer, config: cfg, logger: log, metrics: rec}
}

// Negotiate uses the configured deadline.
func (n *Negotiator) Negotiate(ctx context.Context, hints models.TransportHints) (Channel, error) {
	return n.NegotiateWithin(ctx, hints, n.config.Deadline.Std())
}

// NegotiateWithin dials the preferred transport first. If it has not
// connected after FallbackAfter of the deadline, or fails earlier, the next
// transport starts concurrently. The first to connect wins and every other
// attempt is cancelled; a loser that connects anyway is closed.
func (n *Negotiator) NegotiateWithin(ctx context.Context, hints models.TransportHints, deadline time.Duration) (Channel, error) {
	plan := n.plan(hints)
	if len(plan) == 0 {
		return nil, &FailedError{Reason: errNoHints}
	}

	runCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	results := make(chan attemptResult, len(plan))
	started, pending := 0, 0

	start := func() {
		a := &plan[started]

		var attemptCtx context.Context
		attemptCtx, a.cancel = context.WithCancel(runCtx)

		idx := started
		started++
		pending++

		n.logger.Debug().Str("transport", string(a.kind)).Str("address", a.address).Msg("Starting transport attempt")

		go func() {
			ch, err := n.dialer.Dial(attemptCtx, a.kind, a.address)
			results <- attemptResult{idx: idx, ch: ch, err: err}
		}()
	}

	cancelAll := func() {
		for i := 0; i < started; i++ {
			plan[i].cancel()
		}
	}

	start()

	var fallback <-chan time.Time

	if len(plan) > 1 {
		timer := time.NewTimer(time.Duration(float64(deadline) * n.config.FallbackAfter))
		defer timer.Stop()

		fallback = timer.C
	}

	var failures []AttemptError

	for {
		select {
		case <-fallback:
			fallback = nil

			if started < len(plan) {
				n.logger.Debug().Str("transport", string(plan[0].kind)).Msg("Preferred transport slow, starting fallback")
				start()
			}

		case r := <-results:
			pending--
			kind := plan[r.idx].kind

			if r.err == nil {
				n.metrics.TransportAttempt(ctx, string(kind), "connected")
				cancelAll()
				go drain(results, pending)

				n.logger.Info().Str("transport", string(kind)).Msg("Transport negotiated")

				return r.ch, nil
			}

			outcome := "failed"
			if errors.Is(r.err, context.Canceled) || errors.Is(r.err, context.DeadlineExceeded) {
				outcome = "cancelled"
			}

			n.metrics.TransportAttempt(ctx, string(kind), outcome)
			failures = append(failures, AttemptError{Kind: kind, Err: r.err})

			if runCtx.Err() != nil {
				cancelAll()
				go drain(results, pending)

				return nil, expired(ctx, failures)
			}

			if started < len(plan) {
				fallback = nil
				start()

				continue
			}

			if pending == 0 {
				return nil, &FailedError{Reason: errAllFailed, Attempts: failures}
			}

		case <-runCtx.Done():
			cancelAll()
			go drain(results, pending)

			return nil, expired(ctx, failures)
		}
	}
}

// expired reports a race ended by the deadline or by the caller.
func expired(ctx context.Context, failures []AttemptError) error {
	if ctx.Err() != nil {
		return fmt.Errorf("%w: transport negotiation: %w", models.ErrCancelled, ctx.Err())
	}

	return &FailedError{Reason: errDeadlineExceeded, Attempts: failures}
}

// plan orders the hinted transports by preference.
func (n *Negotiator) plan(hints models.TransportHints) []attempt {
	var out []attempt

	for _, kind := range n.config.Preference {
		if addr, ok := hints.Address(kind); ok {
			out = append(out, attempt{kind: kind, address: addr})
		}
	}

	return out
}

// drain closes channels from attempts that connected after the race was decided.
func drain(results <-chan attemptResult, pending int) {
	for ; pending > 0; pending-- {
		if r := <-results; r.err == nil && r.ch != nil {
			_ = r.ch.Close()
		}
	}
}
