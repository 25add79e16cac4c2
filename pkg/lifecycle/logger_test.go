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

package lifecycle

import (
	"testing"

	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComponentLogger(t *testing.T) {
	log, err := CreateComponentLogger("pool", &logger.Config{Level: "debug", Output: "stderr"})
	require.NoError(t, err)

	assert.Equal(t, zerolog.DebugLevel, log.WithComponent("child").GetLevel())

	log.SetDebug(false)
	assert.Equal(t, zerolog.InfoLevel, log.WithComponent("child").GetLevel())
}

func TestCreateComponentLoggerRejectsBadLevel(t *testing.T) {
	_, err := CreateComponentLogger("pool", &logger.Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestCreateComponentLoggerDefaults(t *testing.T) {
	t.Setenv("WEBCAMD_LOG_LEVEL", "warn")
	t.Setenv("WEBCAMD_DEBUG", "")

	log, err := CreateComponentLogger("webcamd", nil)
	require.NoError(t, err)

	assert.Equal(t, zerolog.WarnLevel, log.WithComponent("child").GetLevel())
}
