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

//go:generate mockgen -destination=mock_transport.go -package=transport github.com/carverauto/webcamdirect/pkg/transport Channel,Dialer

// Package transport establishes the signaling channel to a phone, preferring
// the direct link and racing the LAN fallback against it.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/carverauto/webcamdirect/pkg/models"
)

// ErrChannelClosed is the terminal error of a channel closed locally.
var ErrChannelClosed = errors.New("channel closed")

// Channel is an ordered, reliable, bidirectional message stream, independent
// of the transport that produced it.
type Channel interface {
	Kind() models.TransportKind
	// Send writes one message. It blocks until written or ctx is done.
	Send(ctx context.Context, msg []byte) error
	// Receive yields inbound messages in order. It is never closed; watch Done.
	Receive() <-chan []byte
	// Done is closed once the channel is unusable.
	Done() <-chan struct{}
	// Err reports why Done was closed.
	Err() error
	// LastActivity is the time inbound traffic, including keepalive replies, was last seen.
	LastActivity() time.Time
	Close() error
}

// Dialer connects one transport kind to an address.
type Dialer interface {
	Dial(ctx context.Context, kind models.TransportKind, address string) (Channel, error)
}
