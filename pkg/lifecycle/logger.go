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
// Package lifecycle builds the process-level pieces shared by daemon entrypoints.
package lifecycle

import (
	"github.com/carverauto/webcamdirect/pkg/logger"
)

// CreateComponentLogger creates the root logger of a daemon. Every entry
// carries the component name; a nil config falls back to logger.DefaultConfig.
func CreateComponentLogger(component string, config *logger.Config) (logger.Logger, error) {
	if config == nil {
		config = logger.DefaultConfig()
	}

	zlog, err := logger.New(config, config.Writer())
	if err != nil {
		return nil, err
	}

	return logger.Wrap(zlog.With().Str("component", component).Logger()), nil
}
