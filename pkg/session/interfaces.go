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

// Package session runs one state machine per phone, taking it from a
// provisioning record to camera streams on virtual devices and back down.
package session

//go:generate mockgen -destination=mock_session.go -package=session github.com/carverauto/webcamdirect/pkg/session TransportNegotiator,DeviceWatcher,EventSink,DeviceStore

import (
	"context"

	"github.com/carverauto/webcamdirect/pkg/media"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/transport"
)

// TransportNegotiator produces a connected channel from transport hints.
type TransportNegotiator interface {
	Negotiate(ctx context.Context, hints models.TransportHints) (transport.Channel, error)
}

// MediaNegotiator establishes one camera stream over a session's signaling.
type MediaNegotiator interface {
	Negotiate(ctx context.Context, sig *media.Signaling, req media.Request) (*media.Stream, error)
}

// DeviceWatcher signals when virtual devices are returned to the pool.
type DeviceWatcher interface {
	Watch() (<-chan struct{}, func())
}

// EventSink receives every session event. Publish must not block for long;
// it is called from session loops.
type EventSink interface {
	Publish(ctx context.Context, ev models.SessionEvent) error
}

// DeviceStore remembers provisioned devices across host restarts.
type DeviceStore interface {
	Save(ctx context.Context, rec models.ProvisioningRecord) error
	Forget(ctx context.Context, deviceID string) error
}
