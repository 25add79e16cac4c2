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
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/media"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/pipeline"
	"github.com/carverauto/webcamdirect/pkg/transport"
	"github.com/carverauto/webcamdirect/pkg/vdevice"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	phoneLAN  = "192.168.1.40:8765"
	h264Offer = "v=0\r\n" +
		"o=- 4611731400430051336 2 IN IP4 127.0.0.1\r\n" +
		"s=-\r\n" +
		"t=0 0\r\n" +
		"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
		"c=IN IP4 0.0.0.0\r\n" +
		"a=rtpmap:96 H264/90000\r\n" +
		"a=sendonly\r\n"
)

type blockingSource struct {
	done chan struct{}
	once sync.Once
}

func (s *blockingSource) Codec() string          { return "H264" }
func (s *blockingSource) RequestKeyframe() error { return nil }

func (s *blockingSource) ReadRTP() (*rtp.Packet, error) {
	<-s.done

	return nil, io.EOF
}

func (s *blockingSource) close() { s.once.Do(func() { close(s.done) }) }

// fakePeer connects once the phone's first candidate is applied.
type fakePeer struct {
	camera    string
	local     chan webrtc.ICECandidateInit
	connected chan struct{}
	failed    chan struct{}
	track     chan pipeline.Source
	source    *blockingSource
	connect   sync.Once
	closed    atomic.Bool
}

func newFakePeer(camera string) *fakePeer {
	p := &fakePeer{
		camera:    camera,
		local:     make(chan webrtc.ICECandidateInit, 1),
		connected: make(chan struct{}),
		failed:    make(chan struct{}),
		track:     make(chan pipeline.Source, 1),
		source:    &blockingSource{done: make(chan struct{})},
	}
	p.local <- webrtc.ICECandidateInit{Candidate: "candidate:1 1 udp 2130706431 10.42.0.1 5000 typ host"}
	close(p.local)

	return p
}

func (p *fakePeer) Answer(string) (string, error) { return "v=0\r\n", nil }

func (p *fakePeer) AddCandidate(webrtc.ICECandidateInit) error {
	p.connect.Do(func() {
		close(p.connected)
		p.track <- p.source
	})

	return nil
}

func (p *fakePeer) LocalCandidates() <-chan webrtc.ICECandidateInit { return p.local }
func (p *fakePeer) Connected() <-chan struct{}                      { return p.connected }
func (p *fakePeer) Failed() <-chan struct{}                         { return p.failed }
func (p *fakePeer) Track() <-chan pipeline.Source                   { return p.track }

func (p *fakePeer) Close() error {
	p.closed.Store(true)
	p.source.close()

	return nil
}

type testGraph struct {
	errs   chan error
	closed atomic.Bool
}

func (g *testGraph) WriteFrame([]byte, uint32) error { return nil }
func (g *testGraph) Errors() <-chan error            { return g.errs }

func (g *testGraph) Close() error {
	g.closed.Store(true)

	return nil
}

// graphFactory keeps every graph it built, per device path.
type graphFactory struct {
	mu     sync.Mutex
	byPath map[string][]*testGraph
}

func newGraphFactory() *graphFactory {
	return &graphFactory{byPath: make(map[string][]*testGraph)}
}

func (f *graphFactory) Build(_ context.Context, spec pipeline.GraphSpec) (pipeline.Graph, error) {
	g := &testGraph{errs: make(chan error, 1)}

	f.mu.Lock()
	f.byPath[spec.DevicePath] = append(f.byPath[spec.DevicePath], g)
	f.mu.Unlock()

	return g, nil
}

func (f *graphFactory) built(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.byPath[path])
}

func (f *graphFactory) latest(path string) *testGraph {
	f.mu.Lock()
	defer f.mu.Unlock()

	graphs := f.byPath[path]
	if len(graphs) == 0 {
		return nil
	}

	return graphs[len(graphs)-1]
}

// fakePhone plays the phone side of the signaling protocol.
type fakePhone struct {
	ch       transport.Channel
	reject   atomic.Bool
	quiet    atomic.Bool
	lastSent atomic.Int64

	mu   sync.Mutex
	seen []media.Envelope
}

func (p *fakePhone) serve() {
	for {
		select {
		case raw := <-p.ch.Receive():
			var env media.Envelope
			if err := json.Unmarshal(raw, &env); err != nil {
				continue
			}

			p.mu.Lock()
			p.seen = append(p.seen, env)
			p.mu.Unlock()

			p.handle(env)
		case <-p.ch.Done():
			return
		}
	}
}

func (p *fakePhone) handle(env media.Envelope) {
	switch env.Type { //nolint:exhaustive // the phone reacts to a few messages only
	case media.MsgRequest:
		if p.reject.Load() {
			p.send(media.Envelope{Type: media.MsgReject, Camera: env.Camera, Reason: "camera in use"})

			return
		}

		p.send(media.Envelope{Type: media.MsgOffer, Camera: env.Camera, SDP: h264Offer})
	case media.MsgAnswer:
		p.send(media.Envelope{
			Type:      media.MsgCandidate,
			Camera:    env.Camera,
			Candidate: &webrtc.ICECandidateInit{Candidate: "candidate:2 1 udp 1 192.168.1.40 6000 typ host"},
		})
		p.send(media.Envelope{Type: media.MsgCandidatesDone, Camera: env.Camera})
	case media.MsgKeepalive:
		if !p.quiet.Load() {
			p.send(media.Envelope{Type: media.MsgKeepalive})
		}
	}
}

func (p *fakePhone) send(env media.Envelope) {
	raw, err := json.Marshal(env)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if p.ch.Send(ctx, raw) == nil {
		p.lastSent.Store(time.Now().UnixNano())
	}
}

func (p *fakePhone) stop(camera, reason string) {
	p.send(media.Envelope{Type: media.MsgStop, Camera: camera, Reason: reason})
}

func (p *fakePhone) requests(camera string) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0

	for _, env := range p.seen {
		if env.Type == media.MsgRequest && env.Camera == camera {
			n++
		}
	}

	return n
}

type dial struct {
	kind    models.TransportKind
	address string
	at      time.Time
}

// phoneDialer connects to a fakePhone unless told to fail or hold an address.
type phoneDialer struct {
	reject atomic.Bool

	mu        sync.Mutex
	fail      map[models.TransportKind]error
	hold      map[string]bool
	dials     []dial
	cancelled []string
	phones    []*fakePhone
}

func newPhoneDialer() *phoneDialer {
	return &phoneDialer{
		fail: make(map[models.TransportKind]error),
		hold: make(map[string]bool),
	}
}

func (d *phoneDialer) Dial(ctx context.Context, kind models.TransportKind, address string) (transport.Channel, error) {
	d.mu.Lock()
	d.dials = append(d.dials, dial{kind: kind, address: address, at: time.Now()})
	err := d.fail[kind]
	hold := d.hold[address]
	d.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if hold {
		<-ctx.Done()

		d.mu.Lock()
		d.cancelled = append(d.cancelled, address)
		d.mu.Unlock()

		return nil, ctx.Err()
	}

	host, remote := transport.NewPipe(kind)
	p := &fakePhone{ch: remote}
	p.reject.Store(d.reject.Load())

	d.mu.Lock()
	d.phones = append(d.phones, p)
	d.mu.Unlock()

	go p.serve()

	return host, nil
}

func (d *phoneDialer) setFail(kind models.TransportKind, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err == nil {
		delete(d.fail, kind)

		return
	}

	d.fail[kind] = err
}

func (d *phoneDialer) setHold(address string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.hold[address] = true
}

func (d *phoneDialer) dialsTo(address string) []dial {
	d.mu.Lock()
	defer d.mu.Unlock()

	var out []dial

	for _, dl := range d.dials {
		if dl.address == address {
			out = append(out, dl)
		}
	}

	return out
}

func (d *phoneDialer) wasCancelled(address string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, a := range d.cancelled {
		if a == address {
			return true
		}
	}

	return false
}

func (d *phoneDialer) phoneCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.phones)
}

func (d *phoneDialer) lastPhone() *fakePhone {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.phones) == 0 {
		return nil
	}

	return d.phones[len(d.phones)-1]
}

type harness struct {
	t        *testing.T
	pool     *vdevice.Pool
	graphs   *graphFactory
	dialer   *phoneDialer
	registry *Registry
	events   <-chan models.SessionEvent

	mu    sync.Mutex
	peers []*fakePeer
}

func sessionConfig() models.SessionConfig {
	return models.SessionConfig{
		MaxAttempts:    3,
		BaseBackoff:    models.Duration(10 * time.Millisecond),
		MaxBackoff:     models.Duration(200 * time.Millisecond),
		StaleAfter:     models.Duration(5 * time.Second),
		PollInterval:   models.Duration(50 * time.Millisecond),
		CameraAttempts: 2,
	}
}

// newHarness wires a registry over the real negotiators, pipeline manager
// and device pool. Only the phone, its peers and the ffmpeg graphs are fake.
func newHarness(t *testing.T, poolSize int, cfg models.SessionConfig, opts ...func(*Deps)) *harness {
	t.Helper()

	log := logger.NewTestLogger()

	pool, err := vdevice.NewPool(context.Background(), vdevice.NewMemoryController(10), models.PoolConfig{
		Size:       poolSize,
		NamePrefix: "webcamdirect",
		MinWidth:   100,
		MaxWidth:   4000,
		MinHeight:  100,
		MaxHeight:  4000,
		MaxBuffers: 2,
		MaxOpeners: 9,
	}, log, nil)
	require.NoError(t, err)

	h := &harness{t: t, pool: pool, graphs: newGraphFactory(), dialer: newPhoneDialer()}

	ctrl := gomock.NewController(t)
	engine := media.NewMockEngine(ctrl)
	engine.EXPECT().NewPeer(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, camera string) (media.PeerSession, error) {
			p := newFakePeer(camera)

			h.mu.Lock()
			h.peers = append(h.peers, p)
			h.mu.Unlock()

			return p, nil
		}).AnyTimes()

	pipelines := pipeline.NewManager(h.graphs, models.PipelineConfig{
		MaxRestarts:        2,
		StallTimeout:       models.Duration(time.Hour),
		FrameEventInterval: models.Duration(time.Second),
	}, log, nil)

	mediaNeg := media.NewNegotiator(engine, pool, pipelines, models.MediaConfig{
		Codecs:           []string{"H264", "VP8"},
		MaxWidth:         1920,
		MaxHeight:        1080,
		MaxFPS:           30,
		OfferTimeout:     models.Duration(time.Second),
		CandidateTimeout: models.Duration(time.Second),
	}, log, nil)

	transportNeg := transport.NewNegotiator(h.dialer, models.TransportConfig{
		Preference:    []models.TransportKind{models.TransportDirect, models.TransportLAN},
		Deadline:      models.Duration(time.Second),
		FallbackAfter: 0.3,
	}, log, nil)

	deps := Deps{
		Transport: transportNeg,
		Media:     mediaNeg,
		Devices:   pool,
		Selector:  ConfigSelector{},
		Config:    cfg,
		Logger:    log,
	}

	for _, opt := range opts {
		opt(&deps)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.registry = NewRegistry(ctx, deps, nil)

	events, unsubscribe := h.registry.Subscribe(1024)
	h.events = events

	t.Cleanup(func() {
		unsubscribe()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		_ = h.registry.Shutdown(shutdownCtx)

		cancel()
		_ = pool.Close()
	})

	return h
}

func record(id string, version uint64, cameras ...string) models.ProvisioningRecord {
	caps := make([]models.CameraCapability, 0, len(cameras))
	for _, name := range cameras {
		caps = append(caps, models.CameraCapability{
			Name:   name,
			Modes:  []models.VideoMode{{Width: 1280, Height: 720, FPS: 30}},
			Codecs: []string{"H264"},
		})
	}

	return models.ProvisioningRecord{
		DeviceID:    id,
		DisplayName: "Pixel 9",
		Cameras:     caps,
		Hints:       models.TransportHints{LAN: &models.LANHint{Address: phoneLAN}},
		Version:     version,
	}
}

func (h *harness) summary(id string) models.SessionSummary {
	h.t.Helper()

	s, ok := h.registry.Session(id)
	require.True(h.t, ok, "session %s not registered", id)

	return s
}

func (h *harness) waitState(id string, state models.SessionState) models.SessionSummary {
	h.t.Helper()

	var s models.SessionSummary

	require.Eventually(h.t, func() bool {
		s, _ = h.registry.Session(id)

		return s.State == state
	}, 5*time.Second, 5*time.Millisecond, "session %s never reached %s", id, state)

	return s
}

func (h *harness) waitEvent(match func(models.SessionEvent) bool) models.SessionEvent {
	h.t.Helper()

	timeout := time.After(5 * time.Second)

	for {
		select {
		case ev := <-h.events:
			if match(ev) {
				return ev
			}
		case <-timeout:
			h.t.Fatal("expected session event was not observed")

			return models.SessionEvent{}
		}
	}
}

func (h *harness) closedPeers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0

	for _, p := range h.peers {
		if p.closed.Load() {
			n++
		}
	}

	return n
}

func (h *harness) peerCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.peers)
}

func entered(state models.SessionState) func(models.SessionEvent) bool {
	return func(ev models.SessionEvent) bool {
		return ev.Type == models.EventStateChanged && ev.To == state
	}
}

func ofType(typ models.SessionEventType, camera string) func(models.SessionEvent) bool {
	return func(ev models.SessionEvent) bool {
		return ev.Type == typ && ev.Camera == camera
	}
}

func streamOf(t *testing.T, s models.SessionSummary, camera string) models.StreamSummary {
	t.Helper()

	for _, st := range s.Streams {
		if st.Camera == camera {
			return st
		}
	}

	t.Fatalf("no stream for camera %s", camera)

	return models.StreamSummary{}
}
