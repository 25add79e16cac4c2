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
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 5 * time.Second
	defaultReadLimit    = 64 << 10
	receiveBuffer       = 32
)

// wsChannel adapts a websocket connection to Channel.
type wsChannel struct {
	kind models.TransportKind
	conn *websocket.Conn
	log  logger.Logger

	recv chan []byte
	done chan struct{}

	closeOnce sync.Once
	errMu     sync.Mutex
	err       error

	writeMu sync.Mutex
	last    atomic.Int64
}

// NewWebSocketChannel wraps conn and starts its reader and keepalive loops.
// A peer message larger than readLimit bytes closes the channel; zero picks
// the default limit.
func NewWebSocketChannel(
	conn *websocket.Conn, kind models.TransportKind, pingInterval time.Duration, readLimit int64, log logger.Logger,
) Channel {
	c := &wsChannel{
		kind: kind,
		conn: conn,
		log:  log,
		recv: make(chan []byte, receiveBuffer),
		done: make(chan struct{}),
	}

	if readLimit <= 0 {
		readLimit = defaultReadLimit
	}

	conn.SetReadLimit(readLimit)

	c.touch()
	conn.SetPongHandler(func(string) error {
		c.touch()
		return nil
	})

	go c.readPump()

	if pingInterval > 0 {
		go c.keepalive(pingInterval)
	}

	return c
}

func (c *wsChannel) Kind() models.TransportKind { return c.kind }
func (c *wsChannel) Receive() <-chan []byte     { return c.recv }
func (c *wsChannel) Done() <-chan struct{}      { return c.done }

func (c *wsChannel) Err() error {
	c.errMu.Lock()
	defer c.errMu.Unlock()

	return c.err
}

func (c *wsChannel) LastActivity() time.Time {
	return time.Unix(0, c.last.Load())
}

func (c *wsChannel) touch() {
	c.last.Store(time.Now().UnixNano())
}

func (c *wsChannel) Send(ctx context.Context, msg []byte) error {
	select {
	case <-c.done:
		return c.Err()
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(defaultWriteTimeout)
	}

	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
		c.fail(err)
		return fmt.Errorf("%w: send: %w", models.ErrTransportFailed, err)
	}

	return nil
}

func (c *wsChannel) Close() error {
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.writeMu.Unlock()

	c.fail(ErrChannelClosed)

	return nil
}

func (c *wsChannel) fail(err error) {
	c.closeOnce.Do(func() {
		c.errMu.Lock()
		c.err = err
		c.errMu.Unlock()

		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *wsChannel) readPump() {
	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				err = fmt.Errorf("%w: peer closed", ErrChannelClosed)
			}

			c.fail(err)

			return
		}

		c.touch()

		if mt != websocket.TextMessage && mt != websocket.BinaryMessage {
			continue
		}

		select {
		case c.recv <- data:
		case <-c.done:
			return
		}
	}
}

func (c *wsChannel) keepalive(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(interval))
			c.writeMu.Unlock()

			if err != nil {
				c.log.Debug().Err(err).Str("transport", string(c.kind)).Msg("Keepalive ping failed")
				c.fail(err)

				return
			}
		}
	}
}

// WebSocketDialer dials the phone's signaling endpoint. Direct connections
// can be pinned to the host's access point address.
type WebSocketDialer struct {
	config models.TransportConfig
	log    logger.Logger
}

func NewWebSocketDialer(cfg models.TransportConfig, log logger.Logger) *WebSocketDialer {
	return &WebSocketDialer{config: cfg, log: log}
}

var errBindAddress = errors.New("invalid direct bind address")

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, kind models.TransportKind, address string) (Channel, error) {
	netDialer := &net.Dialer{}

	if kind == models.TransportDirect && d.config.DirectBindAddress != "" {
		ip := net.ParseIP(d.config.DirectBindAddress)
		if ip == nil {
			return nil, fmt.Errorf("%w: %q", errBindAddress, d.config.DirectBindAddress)
		}

		netDialer.LocalAddr = &net.TCPAddr{IP: ip}
	}

	wsDialer := websocket.Dialer{
		NetDialContext:   netDialer.DialContext,
		HandshakeTimeout: d.config.Deadline.Std(),
	}

	target := d.endpoint(address)

	conn, resp, err := wsDialer.DialContext(ctx, target, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", kind, target, err)
	}

	d.log.Debug().Str("transport", string(kind)).Str("endpoint", target).Msg("Transport connected")

	return NewWebSocketChannel(conn, kind, d.config.PingInterval.Std(), d.config.MaxMessageBytes, d.log), nil
}

func (d *WebSocketDialer) endpoint(address string) string {
	if _, _, err := net.SplitHostPort(address); err != nil {
		address = net.JoinHostPort(address, fmt.Sprint(d.config.Port))
	}

	u := url.URL{Scheme: "ws", Host: address, Path: d.config.Path}

	return u.String()
}
