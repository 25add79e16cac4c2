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
// Package main runs webcamd, the host side of the phone-as-webcam system.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/carverauto/webcamdirect/pkg/api"
	"github.com/carverauto/webcamdirect/pkg/config"
	"github.com/carverauto/webcamdirect/pkg/devicestore"
	"github.com/carverauto/webcamdirect/pkg/lifecycle"
	"github.com/carverauto/webcamdirect/pkg/logger"
	"github.com/carverauto/webcamdirect/pkg/media"
	"github.com/carverauto/webcamdirect/pkg/metrics"
	"github.com/carverauto/webcamdirect/pkg/models"
	"github.com/carverauto/webcamdirect/pkg/natsutil"
	"github.com/carverauto/webcamdirect/pkg/pipeline"
	"github.com/carverauto/webcamdirect/pkg/provisioning"
	"github.com/carverauto/webcamdirect/pkg/session"
	"github.com/carverauto/webcamdirect/pkg/transport"
	"github.com/carverauto/webcamdirect/pkg/vdevice"
	"github.com/carverauto/webcamdirect/pkg/version"
)

const shutdownTimeout = 10 * time.Second

var errFailedToLoadConfig = errors.New("failed to load config")

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "/etc/webcamdirect/webcamd.json", "Path to webcamd config file")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg models.Config

	if err := config.NewConfig(nil).LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		return fmt.Errorf("%w: %w", errFailedToLoadConfig, err)
	}

	mainLogger, err := lifecycle.CreateComponentLogger("webcamd", cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	mainLogger.Info().Str("version", version.GetFullVersion()).Msg("Starting webcamd")

	shutdownMetrics := setupMetrics(ctx, cfg.Metrics, mainLogger)
	defer shutdownMetrics()

	rec := metrics.Default()

	pool, err := newPool(ctx, cfg.Pool, mainLogger, rec)
	if err != nil {
		return err
	}

	defer func() {
		if err := pool.Close(); err != nil {
			mainLogger.Warn().Err(err).Msg("Failed to close virtual device pool")
		}
	}()

	var nc *nats.Conn

	if cfg.NATS.URL != "" {
		nc, err = natsutil.Connect(cfg.NATS, mainLogger)
		if err != nil {
			return err
		}

		defer nc.Close()
	}

	var sink session.EventSink

	if nc != nil {
		publisher, err := natsutil.CreateEventPublisher(ctx, nc, cfg.Events, mainLogger)
		if err != nil {
			return err
		}

		sink = publisher
	}

	pipelines := pipeline.NewManager(pipeline.NewFFmpegFactory(cfg.Pipeline, mainLogger), cfg.Pipeline, mainLogger, rec)

	deps := session.Deps{
		Transport: transport.NewNegotiator(transport.NewWebSocketDialer(cfg.Transport, mainLogger), cfg.Transport, mainLogger, rec),
		Media:     media.NewNegotiator(media.NewPionEngine(cfg.Media, mainLogger), pool, pipelines, cfg.Media, mainLogger, rec),
		Devices:   pool,
		Selector:  session.NewConfigSelector(cfg.Session),
		Config:    cfg.Session,
		Logger:    mainLogger,
		Metrics:   rec,
	}

	var store *devicestore.KVStore

	if nc != nil {
		store, err = devicestore.NewKVStore(ctx, nc, cfg.Store, mainLogger)
		if err != nil {
			return err
		}

		deps.Store = store
	}

	registry := session.NewRegistry(ctx, deps, sink)

	if store != nil && cfg.Store.Restore {
		restoreDevices(ctx, store, registry, mainLogger)
	}

	server := api.NewServer(registry, cfg.API, mainLogger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return server.Start(gctx) })

	if nc != nil {
		channel := provisioning.NewChannel(provisioning.NewNATSRadio(nc, cfg.Provisioning.SubjectPrefix),
			cfg.Provisioning, connectionType(cfg.Transport), mainLogger, rec)

		g.Go(func() error {
			if err := channel.Advertise(gctx); err != nil {
				return err
			}

			err := registry.Run(gctx, channel.Listen(gctx))
			if errors.Is(err, context.Canceled) {
				return nil
			}

			return err
		})
	} else {
		mainLogger.Info().Msg("NATS not configured, devices are provisioned through the host API only")
	}

	runErr := g.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := registry.Shutdown(shutdownCtx); err != nil {
		mainLogger.Warn().Err(err).Msg("Sessions did not close cleanly")
	}

	mainLogger.Info().Msg("webcamd stopped")

	return runErr
}

func newPool(ctx context.Context, cfg models.PoolConfig, log logger.Logger, rec *metrics.Recorder) (*vdevice.Pool, error) {
	var ctrl vdevice.Controller

	if cfg.ControlNode == vdevice.MemoryControlNode {
		ctrl = vdevice.NewMemoryController(0)
	} else {
		loopback, err := vdevice.NewLoopbackController(cfg.ControlNode)
		if err != nil {
			return nil, err
		}

		ctrl = loopback
	}

	return vdevice.NewPool(ctx, ctrl, cfg, log, rec)
}

func setupMetrics(ctx context.Context, cfg models.MetricsConfig, log logger.Logger) func() {
	provider, err := metrics.InitializeMetrics(ctx, metrics.ExportConfig{
		ServiceName:    "webcamd",
		ServiceVersion: version.GetVersion(),
		Endpoint:       cfg.Endpoint,
		Insecure:       cfg.Insecure,
		Headers:        cfg.Headers,
		ExportInterval: time.Duration(cfg.Interval),
	})
	if errors.Is(err, metrics.ErrOTelMetricsDisabled) {
		return func() {}
	}

	if err != nil {
		log.Warn().Err(err).Msg("Metrics export disabled")

		return func() {}
	}

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := provider.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("Failed to flush metrics")
		}
	}
}

// restoreDevices reopens sessions for the phones provisioned before the last
// shutdown.
func restoreDevices(ctx context.Context, store *devicestore.KVStore, registry *session.Registry, log logger.Logger) {
	records, err := store.List(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load stored devices")

		return
	}

	for _, rec := range records {
		if err := registry.AddDevice(rec); err != nil {
			log.Warn().Err(err).Str("device_id", rec.DeviceID).Msg("Failed to restore device")
		}
	}

	log.Info().Int("devices", len(records)).Msg("Restored stored devices")
}

// connectionType tells the phone whether to join the host's access point.
func connectionType(cfg models.TransportConfig) string {
	if cfg.DirectBindAddress != "" {
		return "ap"
	}

	return "wlan"
}
