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

package session

import (
	"testing"
	"time"

	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestConfigSelector(t *testing.T) {
	rec := record("pixel", 1, "back", "front", "wide")

	names := func(caps []models.CameraCapability) []string {
		out := make([]string, 0, len(caps))
		for _, c := range caps {
			out = append(out, c.Name)
		}

		return out
	}

	tests := []struct {
		name string
		cfg  models.SessionConfig
		want []string
	}{
		{name: "all cameras", want: []string{"back", "front", "wide"}},
		{name: "named cameras", cfg: models.SessionConfig{Cameras: []string{"wide", "back"}}, want: []string{"back", "wide"}},
		{name: "capped", cfg: models.SessionConfig{MaxCameras: 2}, want: []string{"back", "front"}},
		{name: "named and capped", cfg: models.SessionConfig{Cameras: []string{"front", "wide"}, MaxCameras: 1}, want: []string{"front"}},
		{name: "unknown camera", cfg: models.SessionConfig{Cameras: []string{"macro"}}, want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(NewConfigSelector(tt.cfg).Select(rec)))
		})
	}
}

func TestBackoffDoublesUpToLimit(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 350*time.Millisecond)

	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 200*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 350*time.Millisecond, b.NextBackOff())
	assert.Equal(t, 350*time.Millisecond, b.NextBackOff())

	b.Reset()
	assert.Equal(t, 100*time.Millisecond, b.NextBackOff())
}
