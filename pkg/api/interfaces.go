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

// Package api serves the host HTTP API: session summaries, device add and
// remove, and a WebSocket stream of session events.
package api

//go:generate mockgen -destination=mock_api.go -package=api github.com/carverauto/webcamdirect/pkg/api SessionRegistry

import (
	"context"

	"github.com/carverauto/webcamdirect/pkg/models"
)

// SessionRegistry is the part of session.Registry the API drives.
type SessionRegistry interface {
	AddDevice(rec models.ProvisioningRecord) error
	RemoveDevice(ctx context.Context, deviceID string) error
	ListSessions() []models.SessionSummary
	Session(deviceID string) (models.SessionSummary, bool)
	Subscribe(buffer int) (<-chan models.SessionEvent, func())
}
