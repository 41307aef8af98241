// Command virtualdevices bridges a fleet of virtual devices between an
// MQTT broker and the host device bus.
//
// The fleet is defined by a YAML document edited by the external
// configuration tool; SIGHUP reloads it without a restart.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nerrad567/virtual-devices-core/internal/engine"
	"github.com/nerrad567/virtual-devices-core/internal/fleet"
	"github.com/nerrad567/virtual-devices-core/internal/history"
	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/config"
	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/database"
	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/logging"
	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/virtual-devices-core/internal/registry"
)

// version is set at build time via -ldflags.
var version = "dev"

// defaultConfigPath is used when VIRTDEV_CONFIG is not set.
const defaultConfigPath = "./config.yaml"

// pruneInterval is how often expired history entries are deleted.
const pruneInterval = 6 * time.Hour

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logging.Default().Error("service failed", "error", err)
		os.Exit(1)
	}
}

// getConfigPath returns the configuration file path, preferring the
// VIRTDEV_CONFIG environment variable.
func getConfigPath() string {
	if path := os.Getenv("VIRTDEV_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

func run(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	log := logging.New(cfg.Logging, version)
	log.Info("starting virtual devices service", "version", version)

	// Fleet store and initial document. A malformed document is the one
	// fatal error at startup; everything after this degrades gracefully.
	store := fleet.NewStore(cfg.Fleet.Path, cfg.DebounceWindow())
	store.SetLogger(log.With("component", "fleet"))
	store.SetOnSaveError(func(err error) {
		log.Warn("fleet persistence failing, changes will not survive a restart", "error", err)
	})
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("final fleet flush failed", "error", err)
		}
	}()

	doc, err := store.Load()
	if err != nil {
		return fmt.Errorf("loading fleet document: %w", err)
	}

	// MQTT bridge.
	bridge, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT broker: %w", err)
	}
	bridge.SetLogger(log.With("component", "mqtt"))
	defer func() {
		if err := bridge.Close(); err != nil {
			log.Error("mqtt disconnect failed", "error", err)
		}
	}()

	bridge.SetOnDisconnect(func(err error) {
		log.Warn("mqtt connection lost, reconnecting", "error", err)
	})
	bridge.SetOnConnect(func() {
		log.Info("mqtt connected", "pending_commands", bridge.PendingCommands())
	})

	// Host-bus registry.
	bus := registry.New()
	bus.SetLogger(log.With("component", "registry"))

	// Sync engine.
	eng := engine.New(bridge, bus, store, byte(cfg.MQTT.QoS)) //nolint:gosec // QoS validated to 0..2
	eng.SetLogger(log.With("component", "engine"))

	// Optional history store.
	var recorder *history.Recorder
	if cfg.History.Enabled {
		db, err := database.Open(database.Config{
			Path:        cfg.History.Path,
			WALMode:     cfg.History.WALMode,
			BusyTimeout: cfg.History.BusyTimeout,
		})
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				log.Error("closing history database failed", "error", err)
			}
		}()

		recorder, err = history.New(db)
		if err != nil {
			return fmt.Errorf("initializing history store: %w", err)
		}
		eng.SetHistory(recorder)
		log.Info("history store enabled", "path", db.Path())
	}

	// Optional InfluxDB export.
	if cfg.InfluxDB.Enabled {
		sink, err := influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			// Telemetry export is never worth refusing to start over.
			log.Warn("influxdb unavailable, telemetry export disabled", "error", err)
		} else {
			sink.SetOnError(func(err error) {
				log.Warn("influxdb write failed", "error", err)
			})
			defer func() {
				if err := sink.Close(); err != nil {
					log.Error("closing influxdb failed", "error", err)
				}
			}()
			eng.SetTelemetrySink(sink)
			log.Info("influxdb export enabled", "url", cfg.InfluxDB.URL)
		}
	}

	// Wire GUI writes from the host bus into the engine and start.
	bus.SetWriteFunc(eng.WriteProperty)
	bus.SetMetadataFunc(eng.EditMetadata)

	if err := eng.Start(doc); err != nil {
		return fmt.Errorf("starting sync engine: %w", err)
	}
	defer func() {
		if err := eng.Close(); err != nil {
			log.Error("engine shutdown failed", "error", err)
		}
	}()

	if err := bridge.HealthCheck(ctx); err != nil {
		log.Warn("mqtt health check failed after startup", "error", err)
	}

	log.Info("service ready",
		"devices", len(doc.Devices),
		"subscriptions", bridge.SubscriptionCount(),
	)

	return mainLoop(ctx, log, store, eng, recorder, cfg)
}

// mainLoop blocks until shutdown, handling SIGHUP reloads and periodic
// history pruning.
func mainLoop(
	ctx context.Context,
	log *logging.Logger,
	store *fleet.Store,
	eng *engine.Engine,
	recorder *history.Recorder,
	cfg *config.Config,
) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return nil

		case <-hup:
			log.Info("reload requested")
			doc, err := store.Load()
			if err != nil {
				// Keep running on the previous fleet.
				log.Error("reload failed, previous fleet stays live", "error", err)
				continue
			}
			if err := eng.Reload(doc); err != nil {
				if errors.Is(err, engine.ErrClosed) {
					return nil
				}
				log.Error("reload rejected", "error", err)
				continue
			}
			log.Info("reload complete", "devices", len(doc.Devices))

		case <-prune.C:
			if recorder == nil {
				continue
			}
			cutoff := time.Now().Add(-cfg.HistoryRetention())
			n, err := recorder.Prune(cutoff)
			if err != nil {
				log.Warn("history prune failed", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("history pruned", "deleted", n)
			}
		}
	}
}
