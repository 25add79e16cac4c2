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
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/provisioning"
	"github.com/carverauto/webcamdirect/pkg/session"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

const (
	defaultReadTimeout  = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
	defaultRemoveWait   = 10 * time.Second
	defaultPingInterval = 30 * time.Second
	maxRecordBytes      = 64 << 10

	contentTypeProtobuf = "application/x-protobuf"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// DeviceAccepted acknowledges a provisioning record.
type DeviceAccepted struct {
	DeviceID string `json:"device_id"`
	Version  uint64 `json:"version"`
}

// Server is the host API server.
type Server struct {
	registry     SessionRegistry
	router       *mux.Router
	logger       logger.Logger
	addr         string
	pingInterval time.Duration
	removeWait   time.Duration
	upgrader     websocket.Upgrader
	srv          *http.Server
}

// NewServer creates the API server for registry.
func NewServer(registry SessionRegistry, cfg models.APIConfig, log logger.Logger, options ...func(*Server)) *Server {
	s := &Server{
		registry:     registry,
		router:       mux.NewRouter(),
		logger:       log,
		addr:         cfg.ListenAddr,
		pingInterval: defaultPingInterval,
		removeWait:   defaultRemoveWait,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithPingInterval sets how often the event stream sends keepalive pings.
func WithPingInterval(d time.Duration) func(*Server) {
	return func(s *Server) {
		s.pingInterval = d
	}
}

// WithRemoveTimeout bounds how long DELETE waits for a session to close.
func WithRemoveTimeout(d time.Duration) func(*Server) {
	return func(s *Server) {
		s.removeWait = d
	}
}

func (s *Server) setupRoutes() {
	s.router.Use(s.logRequests)

	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/sessions", s.handleListSessions).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.handleGetSession).Methods(http.MethodGet)
	api.HandleFunc("/devices", s.handleAddDevice).Methods(http.MethodPost)
	api.HandleFunc("/devices/{id}", s.handleRemoveDevice).Methods(http.MethodDelete)
	api.HandleFunc("/events", s.handleEvents).Methods(http.MethodGet)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("API request")
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until ctx is done, then shuts the listener down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.srv = &http.Server{
		Addr:        s.addr,
		Handler:     s.router,
		ReadTimeout: defaultReadTimeout,
		IdleTimeout: defaultIdleTimeout,
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)

	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("Host API listening")
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("host API: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultReadTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("host API shutdown: %w", err)
	}

	return nil
}

func (s *Server) handleListSessions(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, s.registry.ListSessions(), s.logger)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	summary, ok := s.registry.Session(id)
	if !ok {
		writeError(w, fmt.Sprintf("no session for device %q", id), http.StatusNotFound)

		return
	}

	writeJSONResponse(w, http.StatusOK, summary, s.logger)
}

// handleAddDevice accepts a provisioning record either in its radio wire
// format (application/x-protobuf) or as JSON.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRecordBytes))
	if err != nil {
		writeError(w, "request body too large or unreadable", http.StatusRequestEntityTooLarge)

		return
	}

	rec, err := decodeRecord(r.Header.Get("Content-Type"), body)
	if err != nil {
		s.logger.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Rejected provisioning record")
		writeError(w, err.Error(), http.StatusBadRequest)

		return
	}

	if rec.ReceivedAt.IsZero() {
		rec.ReceivedAt = time.Now()
	}

	if err := s.registry.AddDevice(*rec); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, session.ErrRegistryClosed) {
			status = http.StatusServiceUnavailable
		}

		writeError(w, err.Error(), status)

		return
	}

	writeJSONResponse(w, http.StatusAccepted, DeviceAccepted{DeviceID: rec.DeviceID, Version: rec.Version}, s.logger)
}

func decodeRecord(contentType string, body []byte) (*models.ProvisioningRecord, error) {
	mediaType, _, _ := mime.ParseMediaType(contentType)

	if mediaType == contentTypeProtobuf {
		return provisioning.DecodeRecord(body)
	}

	var rec models.ProvisioningRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrProvisioningMalformed, err)
	}

	if err := provisioning.Validate(&rec); err != nil {
		return nil, err
	}

	return &rec, nil
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	ctx, cancel := context.WithTimeout(r.Context(), s.removeWait)
	defer cancel()

	err := s.registry.RemoveDevice(ctx, id)

	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, session.ErrUnknownDevice):
		writeError(w, fmt.Sprintf("no session for device %q", id), http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, "session did not close in time", http.StatusGatewayTimeout)
	default:
		writeError(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSONResponse(w http.ResponseWriter, status int, data interface{}, log logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Error encoding response")
	}
}

func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(ErrorResponse{Message: message, Status: statusCode}); err != nil {
		http.Error(w, "Failed to encode error response", http.StatusInternalServerError)
	}
}
