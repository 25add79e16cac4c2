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
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/webcamdirect/pkg/models"
)

// pipeEnd is one side of an in-process Channel pair.
type pipeEnd struct {
	kind models.TransportKind
	recv chan []byte
	peer *pipeEnd

	done      chan struct{}
	closeOnce sync.Once
	err       atomic.Value
	last      atomic.Int64
}

// NewPipe returns two connected in-process channels. Closing either end
// closes both, as a dropped connection would.
func NewPipe(kind models.TransportKind) (Channel, Channel) {
	a := newPipeEnd(kind)
	b := newPipeEnd(kind)
	a.peer, b.peer = b, a

	return a, b
}

func newPipeEnd(kind models.TransportKind) *pipeEnd {
	p := &pipeEnd{
		kind: kind,
		recv: make(chan []byte, receiveBuffer),
		done: make(chan struct{}),
	}
	p.last.Store(time.Now().UnixNano())

	return p
}

func (p *pipeEnd) Kind() models.TransportKind { return p.kind }
func (p *pipeEnd) Receive() <-chan []byte     { return p.recv }
func (p *pipeEnd) Done() <-chan struct{}      { return p.done }

func (p *pipeEnd) Err() error {
	if err, ok := p.err.Load().(error); ok {
		return err
	}

	return nil
}

func (p *pipeEnd) LastActivity() time.Time {
	return time.Unix(0, p.last.Load())
}

func (p *pipeEnd) Send(ctx context.Context, msg []byte) error {
	select {
	case <-p.done:
		return p.Err()
	default:
	}

	buf := append([]byte(nil), msg...)

	select {
	case p.peer.recv <- buf:
		p.peer.last.Store(time.Now().UnixNano())
		return nil
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *pipeEnd) Close() error {
	p.shutdown(ErrChannelClosed)
	p.peer.shutdown(ErrChannelClosed)

	return nil
}

func (p *pipeEnd) shutdown(err error) {
	p.closeOnce.Do(func() {
		p.err.Store(err)
		close(p.done)
	})
}
