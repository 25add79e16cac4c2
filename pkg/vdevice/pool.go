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

package vdevice

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/metrics"
	"github.com/carverauto/webcamdirect/pkg/models"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrExhausted is returned when no free node can serve an acquisition.
	ErrExhausted = fmt.Errorf("%w: no free virtual device", models.ErrDeviceExhausted)
	// ErrPoolClosed is returned by Acquire after Close.
	ErrPoolClosed = errors.New("virtual device pool closed")
)

// VirtualDevice is a lease on one pool node. The lease generation makes a
// stale handle harmless: releasing it after the node was handed to someone
// else does nothing.
type VirtualDevice struct {
	Index int
	Path  string
	Label string
	lease uint64
}

// Lease exposes the generation so callers can tell two handles apart.
func (d VirtualDevice) Lease() uint64 { return d.lease }

type slot struct {
	node      Node
	maxWidth  uint32
	maxHeight uint32
	lease     uint64
	label     string
}

func (s *slot) free() bool { return s.lease == 0 }

func (s *slot) fits(hint models.VideoMode) bool {
	return hint.Width <= s.maxWidth && hint.Height <= s.maxHeight
}

// Stats is a snapshot of pool occupancy.
type Stats struct {
	Size  int `json:"size"`
	InUse int `json:"in_use"`
}

// Pool hands out loopback nodes first-fit by kernel index. All nodes are
// created up front so the set never changes while sessions run.
type Pool struct {
	mu        sync.Mutex
	ctrl      Controller
	slots     []*slot
	nextLease uint64
	closed    bool
	watchers  map[chan struct{}]struct{}

	logger  logger.Logger
	metrics *metrics.Recorder
}

// NewPool creates cfg.Size nodes. On partial failure every created node is destroyed.
func NewPool(ctx context.Context, ctrl Controller, cfg models.PoolConfig, log logger.Logger, rec *metrics.Recorder) (*Pool, error) {
	nodes := make([]Node, cfg.Size)

	g, _ := errgroup.WithContext(ctx)

	for i := range nodes {
		g.Go(func() error {
			node, err := ctrl.Create(NodeSpec{
				Label:      fmt.Sprintf("%s %d", cfg.NamePrefix, i),
				MinWidth:   cfg.MinWidth,
				MaxWidth:   cfg.MaxWidth,
				MinHeight:  cfg.MinHeight,
				MaxHeight:  cfg.MaxHeight,
				MaxBuffers: cfg.MaxBuffers,
				MaxOpeners: cfg.MaxOpeners,
			})
			if err != nil {
				return err
			}

			nodes[i] = node

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		for _, n := range nodes {
			if n.Path != "" {
				_ = ctrl.Destroy(n)
			}
		}

		return nil, fmt.Errorf("create virtual device pool: %w", err)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Index < nodes[j].Index })

	p := &Pool{
		ctrl:     ctrl,
		slots:    make([]*slot, len(nodes)),
		watchers: make(map[chan struct{}]struct{}),
		logger:   log,
		metrics:  rec,
	}

	for i, n := range nodes {
		p.slots[i] = &slot{node: n, maxWidth: cfg.MaxWidth, maxHeight: cfg.MaxHeight}
	}

	log.Info().Int("size", len(nodes)).Msg("Virtual device pool ready")

	return p, nil
}

// Acquire leases the lowest-index free node able to carry hint. A zero hint
// matches any node. Exhaustion wraps models.ErrDeviceExhausted.
func (p *Pool) Acquire(label string, hint models.VideoMode) (VirtualDevice, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return VirtualDevice{}, ErrPoolClosed
	}

	for _, s := range p.slots {
		if !s.free() || !s.fits(hint) {
			continue
		}

		p.nextLease++
		s.lease = p.nextLease
		s.label = label

		p.logger.Debug().
			Int("index", s.node.Index).
			Str("label", label).
			Msg("Acquired virtual device")

		return VirtualDevice{Index: s.node.Index, Path: s.node.Path, Label: label, lease: s.lease}, nil
	}

	p.metrics.PoolExhausted(context.Background())

	return VirtualDevice{}, ErrExhausted
}

// Release returns dev to the pool. Releasing a free node or a stale lease is
// a no-op; the result reports whether this call actually freed the node.
func (p *Pool) Release(dev VirtualDevice) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.slots {
		if s.node.Index != dev.Index {
			continue
		}

		if s.free() || s.lease != dev.lease {
			return false
		}

		s.lease = 0
		s.label = ""

		p.logger.Debug().Int("index", dev.Index).Str("label", dev.Label).Msg("Released virtual device")
		p.notifyLocked()

		return true
	}

	return false
}

// Watch returns a channel signalled after every effective release, so a
// caller holding exhausted requests knows when to retry. The returned func
// stops the watch.
func (p *Pool) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	p.mu.Lock()
	p.watchers[ch] = struct{}{}
	p.mu.Unlock()

	return ch, func() {
		p.mu.Lock()
		delete(p.watchers, ch)
		p.mu.Unlock()
	}
}

func (p *Pool) notifyLocked() {
	for ch := range p.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	st := Stats{Size: len(p.slots)}

	for _, s := range p.slots {
		if !s.free() {
			st.InUse++
		}
	}

	return st
}

// Close destroys every node. Leases still held are logged; their owners
// must already have stopped writing. Nodes removed behind the pool's back
// (module unloaded, manual delete) are skipped.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.closed = true

	for _, s := range p.slots {
		if !s.free() {
			p.logger.Warn().Int("index", s.node.Index).Str("label", s.label).Msg("Destroying leased virtual device")
		}
	}

	slots := p.slots
	p.mu.Unlock()

	var g errgroup.Group

	for _, s := range slots {
		g.Go(func() error {
			if !p.ctrl.Exists(s.node) {
				p.logger.Warn().Int("index", s.node.Index).Str("path", s.node.Path).Msg("Virtual device already removed")

				return nil
			}

			return p.ctrl.Destroy(s.node)
		})
	}

	return g.Wait()
}
