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
package main

import (
	"context"
	"testing"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/vdevice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPoolWithMemoryControlNode(t *testing.T) {
	pool, err := newPool(context.Background(), models.PoolConfig{
		Size:        2,
		NamePrefix:  "webcamdirect",
		ControlNode: vdevice.MemoryControlNode,
		MaxWidth:    4000,
		MaxHeight:   4000,
	}, logger.NewTestLogger(), nil)
	require.NoError(t, err)

	t.Cleanup(func() { _ = pool.Close() })

	assert.Equal(t, vdevice.Stats{Size: 2}, pool.Stats())
}

func TestConnectionType(t *testing.T) {
	assert.Equal(t, "wlan", connectionType(models.TransportConfig{}))
	assert.Equal(t, "ap", connectionType(models.TransportConfig{DirectBindAddress: "192.168.49.1"}))
}
