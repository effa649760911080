package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/nerrad567/gray-logic-automation/internal/automation"
	"github.com/nerrad567/gray-logic-automation/internal/bridge"
	"github.com/nerrad567/gray-logic-automation/internal/event"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-automation/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-automation/internal/item"
	"github.com/nerrad567/gray-logic-automation/internal/monitor"
	"github.com/nerrad567/gray-logic-automation/internal/scheduler"
	"github.com/nerrad567/gray-logic-automation/internal/script"
	"github.com/nerrad567/gray-logic-automation/migrations"
)

const (
	// shutdownTimeout bounds the whole stop sequence after a signal.
	shutdownTimeout = 30 * time.Second

	healthInterval = time.Minute
	healthTimeout  = 5 * time.Second
	healthOwner    = scheduler.Owner("health")
)

const meterName = "github.com/nerrad567/gray-logic-automation"

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the automation core and run until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, logging.New(cfg.Logging, version))
		},
	}
}

// loadConfig reads the file named by --config or GRAYLOGIC_CONFIG. When
// neither is set and the default file is absent, built-in defaults apply.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flagValue, _ := cmd.Flags().GetString("config")
	path := config.ResolvePath(flagValue)

	cfg, err := config.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) && path == config.DefaultPath {
		return config.Default(), nil
	}
	return cfg, err
}

func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck,gosec // Already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// run wires the core together, blocks until ctx is cancelled and then
// stops everything in reverse order.
func run(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	log.Info("starting automation core", "site", cfg.Site.ID)
	for _, w := range cfg.Warnings {
		log.Error("configuration warning", "warning", w)
	}

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("closing database", "error", closeErr)
		}
	}()
	log.Info("database ready", "path", db.Path())
	health := map[string]healthChecker{"database": db}

	items := item.NewRegistry(item.NewSQLiteRepository(db.DB))
	items.SetLogger(log.Component("item"))
	if err := items.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading items: %w", err)
	}
	log.Info("items loaded", "count", items.GetItemCount())

	// ─── Scheduler and event bus ───

	jobs := scheduler.New(log.Component("scheduler"))
	if err := jobs.Activate(scheduler.Config{
		MinPoolSize:        cfg.Scheduler.MinPoolSize,
		MaxPoolSize:        cfg.Scheduler.MaxPoolSize,
		KeepAlive:          cfg.GetKeepAlive(),
		BackgroundPoolSize: cfg.Scheduler.BackgroundPoolSize,
	}); err != nil {
		return fmt.Errorf("activating scheduler: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if stopErr := jobs.Deactivate(stopCtx); stopErr != nil {
			log.Error("deactivating scheduler", "error", stopErr)
		}
	}()

	meter := otel.Meter(meterName)
	bus := event.NewBus(jobs, log.Component("event"), event.WithMeter(meter))
	if err := bus.SubscribeState(item.NewUpdater(items, log.Component("item"))); err != nil {
		return fmt.Errorf("subscribing item updater: %w", err)
	}

	// ─── Monitoring ───

	if cfg.Monitor.EventLog {
		if err := subscribeBoth(bus, monitor.NewEventLogger(log.Component("events"))); err != nil {
			return err
		}
	}

	influx, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("influxdb disabled")
	case err != nil:
		log.Warn("influxdb unavailable, state history disabled", "error", err)
	default:
		defer func() {
			influx.Flush()
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("closing influxdb", "error", closeErr)
			}
		}()
		influx.SetOnError(func(writeErr error) {
			log.Error("influxdb write failed", "error", writeErr)
		})
		if err := bus.SubscribeState(monitor.NewRecorder(influx, log.Component("recorder"))); err != nil {
			return fmt.Errorf("subscribing recorder: %w", err)
		}
		health["influxdb"] = influx
		log.Info("influxdb connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	// ─── MQTT bridge ───

	if cfg.MQTT.Enabled {
		broker, stop, err := startBridge(cfg.MQTT, bus, items, log)
		if err != nil {
			return err
		}
		defer stop()
		health["mqtt"] = broker
	} else {
		log.Info("mqtt disabled")
	}

	if err := jobs.SubmitRepeating(healthOwner, checkHealth(health, log), healthInterval); err != nil {
		return fmt.Errorf("scheduling health checks: %w", err)
	}
	defer jobs.CancelJobs(healthOwner)

	// ─── Rule engine ───

	models := automation.NewModelRegistry(automation.NewSQLiteRepository(db.DB))
	models.SetLogger(log.Component("automation"))
	if err := models.RefreshCache(ctx); err != nil {
		return fmt.Errorf("loading rule models: %w", err)
	}
	if cfg.Automation.Enabled && cfg.Automation.ModelsDir != "" {
		loaded, loadErr := models.LoadDir(ctx, cfg.Automation.ModelsDir)
		if loadErr != nil {
			log.Error("some rule models failed to load", "dir", cfg.Automation.ModelsDir, "error", loadErr)
		}
		log.Info("rule models loaded", "dir", cfg.Automation.ModelsDir, "count", loaded)
	}

	engineLog := log.Component("automation")
	engine, err := automation.NewEngine(automation.Options{
		Enabled:     cfg.Automation.Enabled,
		RuleTimeout: cfg.GetRuleTimeout(),
		Items:       items,
		Models:      models,
		Triggers:    automation.NewTriggerManager(),
		Scripts:     script.NewEngine(log.Component("script")),
		Context:     automation.NewDefaultContextProvider(bus, items, engineLog),
		Commands:    bus,
		Jobs:        jobs,
		Logger:      engineLog,
		Meter:       meter,
	})
	if err != nil {
		return fmt.Errorf("creating rule engine: %w", err)
	}
	if err := engine.Activate(ctx); err != nil {
		return fmt.Errorf("activating rule engine: %w", err)
	}

	log.Info("automation core started", "rules_enabled", cfg.Automation.Enabled)
	<-ctx.Done()
	log.Info("shutting down")

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Shutdown rules run before the deferred stops so they can still
	// post events and reach the broker.
	if err := engine.Deactivate(stopCtx); err != nil {
		log.Error("deactivating rule engine", "error", err)
	}

	log.Info("automation core stopped")
	return nil
}

// startBridge connects to the broker and attaches the bridge to the bus.
// The returned func detaches and disconnects.
func startBridge(cfg config.MQTTConfig, bus *event.Bus, items *item.Registry, log *logging.Logger) (*mqtt.Client, func(), error) {
	broker, err := mqtt.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to mqtt: %w", err)
	}
	mqttLog := log.Component("mqtt")
	broker.SetLogger(mqttLog)
	broker.SetOnConnect(func() {
		mqttLog.Info("mqtt connected", "broker", cfg.Broker.Host)
	})

	br := bridge.New(broker, bus, items, broker.QoS(), log.Component("bridge"))
	if err := br.Start(); err != nil {
		broker.Close() //nolint:errcheck,gosec // Already failing
		return nil, nil, fmt.Errorf("starting mqtt bridge: %w", err)
	}
	if err := subscribeBoth(bus, br); err != nil {
		br.Stop()      //nolint:errcheck,gosec // Already failing
		broker.Close() //nolint:errcheck,gosec // Already failing
		return nil, nil, err
	}
	log.Info("mqtt bridge started", "broker", cfg.Broker.Host, "port", cfg.Broker.Port)

	return broker, func() {
		bus.UnsubscribeCommand(br)
		bus.UnsubscribeState(br)
		if stopErr := br.Stop(); stopErr != nil {
			log.Error("stopping mqtt bridge", "error", stopErr)
		}
		if closeErr := broker.Close(); closeErr != nil {
			log.Error("closing mqtt", "error", closeErr)
		}
	}, nil
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// checkHealth returns a job that probes each component and logs failures.
func checkHealth(checks map[string]healthChecker, log *logging.Logger) scheduler.Job {
	return func(ctx context.Context) {
		for name, c := range checks {
			checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
			err := c.HealthCheck(checkCtx)
			cancel()
			if err != nil {
				log.Warn("health check failed", "component", name, "error", err)
			}
		}
	}
}

type eventSubscriber interface {
	event.CommandSubscriber
	event.StateSubscriber
}

func subscribeBoth(bus *event.Bus, s eventSubscriber) error {
	if err := bus.SubscribeCommand(s); err != nil {
		return fmt.Errorf("subscribing %T: %w", s, err)
	}
	if err := bus.SubscribeState(s); err != nil {
		return fmt.Errorf("subscribing %T: %w", s, err)
	}
	return nil
}
