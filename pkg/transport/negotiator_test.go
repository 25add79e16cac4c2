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
	"sync"
	"testing"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var errRefused = errors.New("connection refused")

type dialScript struct {
	delay     time.Duration
	err       error
	ignoreCtx bool
}

type fakeDialer struct {
	mu        sync.Mutex
	script    map[models.TransportKind]dialScript
	dialed    []models.TransportKind
	cancelled map[models.TransportKind]bool
	opened    map[models.TransportKind]Channel
}

func newFakeDialer(script map[models.TransportKind]dialScript) *fakeDialer {
	return &fakeDialer{
		script:    script,
		cancelled: make(map[models.TransportKind]bool),
		opened:    make(map[models.TransportKind]Channel),
	}
}

func (f *fakeDialer) Dial(ctx context.Context, kind models.TransportKind, _ string) (Channel, error) {
	f.mu.Lock()
	f.dialed = append(f.dialed, kind)
	s := f.script[kind]
	f.mu.Unlock()

	wait := ctx.Done()
	if s.ignoreCtx {
		wait = nil
	}

	select {
	case <-time.After(s.delay):
	case <-wait:
		f.mu.Lock()
		f.cancelled[kind] = true
		f.mu.Unlock()

		return nil, ctx.Err()
	}

	if s.err != nil {
		return nil, s.err
	}

	local, _ := NewPipe(kind)

	f.mu.Lock()
	f.opened[kind] = local
	f.mu.Unlock()

	return local, nil
}

func (f *fakeDialer) wasCancelled(kind models.TransportKind) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.cancelled[kind]
}

func (f *fakeDialer) channel(kind models.TransportKind) Channel {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.opened[kind]
}

func (f *fakeDialer) dialCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.dialed)
}

var bothHints = models.TransportHints{
	Direct: &models.DirectHint{Address: "10.42.0.2:8765"},
	LAN:    &models.LANHint{Address: "192.168.1.40:8765"},
}

func negotiatorConfig(deadline time.Duration) models.TransportConfig {
	return models.TransportConfig{
		Preference:    []models.TransportKind{models.TransportDirect, models.TransportLAN},
		Deadline:      models.Duration(deadline),
		FallbackAfter: 0.3,
	}
}

func TestNegotiatePreferredWins(t *testing.T) {
	dialer := newFakeDialer(map[models.TransportKind]dialScript{
		models.TransportDirect: {delay: 5 * time.Millisecond},
		models.TransportLAN:    {delay: 5 * time.Millisecond},
	})

	n := NewNegotiator(dialer, negotiatorConfig(time.Second), logger.NewTestLogger(), nil)

	ch, err := n.Negotiate(context.Background(), bothHints)
	require.NoError(t, err)
	assert.Equal(t, models.TransportDirect, ch.Kind())
	assert.Equal(t, 1, dialer.dialCount(), "fallback never started")
}

func TestNegotiateFallbackWinsAndCancelsPreferred(t *testing.T) {
	dialer := newFakeDialer(map[models.TransportKind]dialScript{
		models.TransportDirect: {delay: time.Hour},
		models.TransportLAN:    {delay: 10 * time.Millisecond},
	})

	n := NewNegotiator(dialer, negotiatorConfig(500*time.Millisecond), logger.NewTestLogger(), nil)

	began := time.Now()
	ch, err := n.Negotiate(context.Background(), bothHints)
	require.NoError(t, err)

	assert.Equal(t, models.TransportLAN, ch.Kind())
	assert.GreaterOrEqual(t, time.Since(began), 150*time.Millisecond, "fallback waits for its sub-deadline")
	require.Eventually(t, func() bool { return dialer.wasCancelled(models.TransportDirect) }, time.Second, 5*time.Millisecond)
	assert.Nil(t, dialer.channel(models.TransportDirect))
}

func TestNegotiatePreferredFailsEarlyStartsFallbackImmediately(t *testing.T) {
	dialer := newFakeDialer(map[models.TransportKind]dialScript{
		models.TransportDirect: {err: errRefused},
		models.TransportLAN:    {},
	})

	n := NewNegotiator(dialer, negotiatorConfig(2*time.Second), logger.NewTestLogger(), nil)

	began := time.Now()
	ch, err := n.Negotiate(context.Background(), bothHints)
	require.NoError(t, err)

	assert.Equal(t, models.TransportLAN, ch.Kind())
	assert.Less(t, time.Since(began), 500*time.Millisecond)
}

func TestNegotiateLateLoserIsClosed(t *testing.T) {
	dialer := newFakeDialer(map[models.TransportKind]dialScript{
		models.TransportDirect: {delay: 200 * time.Millisecond, ignoreCtx: true},
		models.TransportLAN:    {delay: 0},
	})

	cfg := negotiatorConfig(time.Second)
	cfg.FallbackAfter = 0.05

	n := NewNegotiator(dialer, cfg, logger.NewTestLogger(), nil)

	ch, err := n.Negotiate(context.Background(), bothHints)
	require.NoError(t, err)
	require.Equal(t, models.TransportLAN, ch.Kind())

	require.Eventually(t, func() bool { return dialer.channel(models.TransportDirect) != nil }, time.Second, 5*time.Millisecond)

	select {
	case <-dialer.channel(models.TransportDirect).Done():
	case <-time.After(time.Second):
		t.Fatal("late direct channel left open")
	}

	select {
	case <-ch.Done():
		t.Fatal("winner must stay open")
	default:
	}
}

func TestNegotiateBothFail(t *testing.T) {
	dialer := newFakeDialer(map[models.TransportKind]dialScript{
		models.TransportDirect: {err: errRefused},
		models.TransportLAN:    {err: errRefused},
	})

	n := NewNegotiator(dialer, negotiatorConfig(time.Second), logger.NewTestLogger(), nil)

	_, err := n.Negotiate(context.Background(), bothHints)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrTransportFailed)
	assert.ErrorIs(t, err, errAllFailed)
	assert.ErrorIs(t, err, errRefused)

	var failed *FailedError
	require.ErrorAs(t, err, &failed)
	assert.Len(t, failed.Attempts, 2)
}

func TestNegotiateDeadline(t *testing.T) {
	dialer := newFakeDialer(map[models.TransportKind]dialScript{
		models.TransportDirect: {delay: time.Hour},
		models.TransportLAN:    {delay: time.Hour},
	})

	n := NewNegotiator(dialer, negotiatorConfig(100*time.Millisecond), logger.NewTestLogger(), nil)

	_, err := n.Negotiate(context.Background(), bothHints)
	assert.ErrorIs(t, err, models.ErrTransportFailed)
	assert.ErrorIs(t, err, errDeadlineExceeded)
	assert.False(t, models.IsCancelled(err))
}

func TestNegotiateCancelled(t *testing.T) {
	dialer := newFakeDialer(map[models.TransportKind]dialScript{
		models.TransportDirect: {delay: time.Hour},
	})

	n := NewNegotiator(dialer, negotiatorConfig(time.Minute), logger.NewTestLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := n.Negotiate(ctx, bothHints)
	assert.ErrorIs(t, err, models.ErrCancelled)
	assert.True(t, models.IsCancelled(err))
}

func TestNegotiateNoHints(t *testing.T) {
	n := NewNegotiator(newFakeDialer(nil), negotiatorConfig(time.Second), logger.NewTestLogger(), nil)

	_, err := n.Negotiate(context.Background(), models.TransportHints{})
	assert.ErrorIs(t, err, errNoHints)
	assert.ErrorIs(t, err, models.ErrTransportFailed)
}

func TestNegotiateOnlyHintedTransports(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)

	local, _ := NewPipe(models.TransportLAN)
	dialer.EXPECT().Dial(gomock.Any(), models.TransportLAN, "192.168.1.40:8765").Return(local, nil)

	n := NewNegotiator(dialer, negotiatorConfig(time.Second), logger.NewTestLogger(), nil)

	ch, err := n.Negotiate(context.Background(), models.TransportHints{LAN: bothHints.LAN})
	require.NoError(t, err)
	assert.Equal(t, models.TransportLAN, ch.Kind())
}

func TestNegotiateHonoursPreferenceOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	dialer := NewMockDialer(ctrl)

	local, _ := NewPipe(models.TransportLAN)
	dialer.EXPECT().Dial(gomock.Any(), models.TransportLAN, gomock.Any()).Return(local, nil)

	cfg := negotiatorConfig(time.Second)
	cfg.Preference = []models.TransportKind{models.TransportLAN, models.TransportDirect}

	ch, err := NewNegotiator(dialer, cfg, logger.NewTestLogger(), nil).Negotiate(context.Background(), bothHints)
	require.NoError(t, err)
	assert.Equal(t, models.TransportLAN, ch.Kind())
}
