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

package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/gorilla/websocket"
)

const (
	eventBuffer  = 64
	writeTimeout = 5 * time.Second
)

// StreamMessage is one frame of the event stream.
type StreamMessage struct {
	Type      string               `json:"type"` // "event" or "ping"
	Event     *models.SessionEvent `json:"event,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

// handleEvents streams session events over a WebSocket. The optional
// "device" query parameter limits the stream to one device.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	device := r.URL.Query().Get("device")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Failed to upgrade to WebSocket")

		return
	}

	defer conn.Close()

	events, unsubscribe := s.registry.Subscribe(eventBuffer)
	defer unsubscribe()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go s.handleClientMessages(ctx, conn, cancel)

	s.logger.Info().Str("remote_addr", r.RemoteAddr).Str("device", device).Msg("Event stream opened")

	if err := s.streamEvents(ctx, conn, events, device); err != nil {
		s.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Event stream ended")
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, events <-chan models.SessionEvent, device string) error {
	ticker := time.NewTicker(s.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := writeMessage(conn, StreamMessage{Type: "ping", Timestamp: time.Now()}); err != nil {
				return fmt.Errorf("ping failed: %w", err)
			}
		case ev, ok := <-events:
			if !ok {
				return nil
			}

			if device != "" && ev.DeviceID != device {
				continue
			}

			if err := writeMessage(conn, StreamMessage{Type: "event", Event: &ev, Timestamp: time.Now()}); err != nil {
				return fmt.Errorf("event write failed: %w", err)
			}
		}
	}
}

// handleClientMessages drains the client side so close frames are seen and
// cancels the stream when the client goes away.
func (s *Server) handleClientMessages(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ctx.Err() == nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("Event stream client read failed")
			}

			return
		}
	}
}

func writeMessage(conn *websocket.Conn, msg StreamMessage) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return conn.WriteJSON(msg)
}
