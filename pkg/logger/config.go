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
package logger

import (
	"os"
	"strconv"
	"strings"
)

const envPrefix = "WEBCAMD_"

// Config controls output, verbosity and timestamp layout of a logger.
type Config struct {
	Level      string `json:"level"`
	Debug      bool   `json:"debug"`
	Output     string `json:"output"`
	TimeFormat string `json:"time_format"`
}

// DefaultConfig is used when the daemon config has no logging section.
// WEBCAMD_LOG_LEVEL, WEBCAMD_DEBUG, WEBCAMD_LOG_OUTPUT and
// WEBCAMD_LOG_TIME_FORMAT override the built-in values.
func DefaultConfig() *Config {
	return &Config{
		Level:      env("LOG_LEVEL", "info"),
		Debug:      envBool("DEBUG"),
		Output:     env("LOG_OUTPUT", "stdout"),
		TimeFormat: env("LOG_TIME_FORMAT", ""),
	}
}

func env(key, fallback string) string {
	if value := os.Getenv(envPrefix + key); value != "" {
		return value
	}

	return fallback
}

func envBool(key string) bool {
	value := strings.ToLower(os.Getenv(envPrefix + key))

	switch value {
	case "yes", "on":
		return true
	}

	b, _ := strconv.ParseBool(value)

	return b
}
