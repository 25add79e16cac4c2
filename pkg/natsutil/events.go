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

package natsutil

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const eventTypePrefix = "com.carverauto.webcamdirect.session."

var errEmptySubject = errors.New("event subject is empty")

type streamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// EventPublisher publishes session events as CloudEvents to a JetStream stream.
type EventPublisher struct {
	js      streamPublisher
	subject string
	source  string
	logger  logger.Logger
}

// NewEventPublisher publishes under subject, e.g. "webcamd.events".
func NewEventPublisher(js streamPublisher, cfg models.EventsConfig, log logger.Logger) *EventPublisher {
	return &EventPublisher{js: js, subject: cfg.Subject, source: cfg.Source, logger: log}
}

// CreateEventPublisher makes sure the events stream exists and covers the
// configured subject, then returns a publisher bound to it.
func CreateEventPublisher(ctx context.Context, nc *nats.Conn, cfg models.EventsConfig, log logger.Logger) (*EventPublisher, error) {
	if cfg.Subject == "" {
		return nil, errEmptySubject
	}

	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if err := ensureStream(ctx, js, cfg.Stream, cfg.Subject+".>", log); err != nil {
		return nil, err
	}

	return NewEventPublisher(js, cfg, log), nil
}

func ensureStream(ctx context.Context, js jetstream.JetStream, name, subject string, log logger.Logger) error {
	stream, err := js.Stream(ctx, name)
	if errors.Is(err, jetstream.ErrStreamNotFound) {
		if _, err := js.CreateStream(ctx, jetstream.StreamConfig{Name: name, Subjects: []string{subject}}); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", name, err)
		}

		log.Info().Str("stream", name).Str("subject", subject).Msg("Created NATS JetStream stream")

		return nil
	}

	if err != nil {
		return fmt.Errorf("failed to get stream %s: %w", name, err)
	}

	cfg := stream.CachedInfo().Config
	subjects := ensureSubjectList(append([]string(nil), cfg.Subjects...), subject)

	if len(subjects) == len(cfg.Subjects) {
		return nil
	}

	cfg.Subjects = subjects

	if _, err := js.UpdateStream(ctx, cfg); err != nil {
		return fmt.Errorf("failed to add subject %s to stream %s: %w", subject, name, err)
	}

	return nil
}

// ensureSubjectList appends subject unless an existing pattern already covers it.
func ensureSubjectList(subjects []string, subject string) []string {
	for _, pattern := range subjects {
		if matchesSubject(pattern, subject) {
			return subjects
		}
	}

	return append(subjects, subject)
}

func matchesSubject(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")

	for i, tok := range pt {
		if tok == ">" {
			return len(st) > i
		}

		if i >= len(st) {
			return false
		}

		if tok != "*" && tok != st[i] {
			return false
		}
	}

	return len(pt) == len(st)
}

// Subject is "<prefix>.<device>.<event type>" with the device id reduced to a
// single subject token.
func Subject(prefix string, ev models.SessionEvent) string {
	return prefix + "." + subjectToken(ev.DeviceID) + "." + string(ev.Type)
}

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}

	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\r', '\n':
			return '_'
		default:
			return r
		}
	}, s)
}

func (p *EventPublisher) cloudEvent(ev models.SessionEvent) models.CloudEvent {
	ts := ev.Time

	return models.CloudEvent{
		SpecVersion:     "1.0",
		ID:              uuid.New().String(),
		Source:          p.source,
		Type:            eventTypePrefix + string(ev.Type),
		DataContentType: "application/json",
		Subject:         Subject(p.subject, ev),
		Time:            &ts,
		Data:            ev,
	}
}

// Publish sends ev; the CloudEvent id doubles as the JetStream dedup id.
func (p *EventPublisher) Publish(ctx context.Context, ev models.SessionEvent) error {
	event := p.cloudEvent(ev)

	eventBytes, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal session event: %w", err)
	}

	ack, err := p.js.Publish(ctx, event.Subject, eventBytes, jetstream.WithMsgID(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish session event: %w", err)
	}

	p.logger.Debug().
		Str("id", event.ID).
		Str("subject", event.Subject).
		Uint64("seq", ack.Sequence).
		Msg("Published session event")

	return nil
}
