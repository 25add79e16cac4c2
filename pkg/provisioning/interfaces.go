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

//go:generate mockgen -destination=mock_radio.go -package=provisioning github.com/carverauto/webcamdirect/pkg/provisioning Radio

// Package provisioning receives bootstrap records from phones over the
// short-range radio link.
package provisioning

import "context"

// RadioWrite is one characteristic write from a connected phone.
type RadioWrite struct {
	Address      string
	Data         []byte
	Disconnected bool
}

// Radio is the boundary to the external short-range radio stack.
type Radio interface {
	// Advertise makes the host discoverable with the given payload.
	Advertise(ctx context.Context, payload []byte) error
	// Writes streams characteristic writes until ctx is done.
	Writes(ctx context.Context) (<-chan RadioWrite, error)
}
