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

package models

import (
	"context"
	"errors"
)

// Failure classes shared by every component. Component errors wrap exactly
// one of these so callers can branch with errors.Is.
var (
	ErrProvisioningMalformed  = errors.New("provisioning record malformed")
	ErrTransportFailed        = errors.New("transport failed")
	ErrMediaNegotiationFailed = errors.New("media negotiation failed")
	ErrPipeline               = errors.New("pipeline error")
	ErrDeviceExhausted        = errors.New("virtual device pool exhausted")
	ErrCancelled              = errors.New("cancelled")
)

// IsCancelled reports whether err stems from teardown rather than a fault.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
