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

package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)

	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}

	return out
}

func TestRecorderCounts(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec := NewRecorder(provider.Meter("test"))

	ctx := context.Background()
	rec.Transition(ctx, "idle", "provisioned")
	rec.Transition(ctx, "provisioned", "negotiating-transport")
	rec.PoolExhausted(ctx)
	rec.MediaNegotiation(ctx, 150*time.Millisecond, "ok")

	data := collect(t, reader)

	sum, ok := data[metricSessionTransitions].(metricdata.Sum[int64])
	require.True(t, ok)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	assert.Equal(t, int64(2), total)

	exhausted, ok := data[metricPoolExhausted].(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, exhausted.DataPoints, 1)
	assert.Equal(t, int64(1), exhausted.DataPoints[0].Value)

	_, ok = data[metricMediaNegotiation].(metricdata.Histogram[float64])
	assert.True(t, ok)
}

func TestNilRecorderIsSafe(t *testing.T) {
	var rec *Recorder

	assert.NotPanics(t, func() {
		rec.Transition(context.Background(), "a", "b")
		rec.PipelineRestart(context.Background(), "back")
	})
}

func TestInitializeMetricsDisabled(t *testing.T) {
	_, err := InitializeMetrics(context.Background(), ExportConfig{})
	assert.ErrorIs(t, err, ErrOTelMetricsDisabled)
}
