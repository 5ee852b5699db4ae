// Theatre Core keeps a home theater's video processor, display, audio
// processor and media player consistent with whatever is playing.
//
// It listens to device state over MQTT, evaluates its rules once per event
// and issues the resulting commands. A small HTTP API reports status and
// accepts manual light output changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerrad567/theatre-core/internal/api"
	"github.com/nerrad567/theatre-core/internal/audit"
	"github.com/nerrad567/theatre-core/internal/controller"
	"github.com/nerrad567/theatre-core/internal/infrastructure/config"
	"github.com/nerrad567/theatre-core/internal/infrastructure/database"
	"github.com/nerrad567/theatre-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/theatre-core/internal/infrastructure/logging"
	"github.com/nerrad567/theatre-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/theatre-core/internal/metrics"
	"github.com/nerrad567/theatre-core/internal/supervisor"
	"github.com/nerrad567/theatre-core/internal/theatre"
	"github.com/nerrad567/theatre-core/migrations"
)

// Version information, set at build time via ldflags.
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var err error
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		err = runMigrate(ctx, os.Args[2:], os.Stdout)
	} else {
		err = run(ctx)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires the controller and blocks until ctx is cancelled or the
// controller stops on its own.
//
// Parameters:
//   - ctx: Cancelled on SIGINT or SIGTERM
//
// Returns:
//   - error: nil on a signalled shutdown, otherwise what stopped the controller
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting theatre core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version).With("theatre", cfg.Theatre.ID)
	log.Info("configuration loaded", "path", configPath, "level", cfg.Logging.Level)

	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	log.Info("database ready", "path", db.Path())

	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	mqttClient.SetLogger(log)
	mqttClient.SetOnConnect(func() { log.Info("MQTT reconnected") })
	mqttClient.SetOnDisconnect(func(err error) { log.Warn("MQTT disconnected", "error", err) })
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	m := metrics.New()

	devices, err := connectDevices(cfg, mqttClient, m, log)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := devices.Close(); closeErr != nil {
			log.Error("error closing device clients", "error", closeErr)
		}
	}()

	observers := controller.MultiObserver{m}

	var repo *audit.SQLiteRepository
	if cfg.Controller.AuditEnabled {
		repo = audit.NewSQLiteRepository(db.DB)
		observers = append(observers, audit.NewRecorder(repo, log))
		log.Info("rule audit enabled")
	}

	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		observers = append(observers, influxdb.NewObserver(influxClient, audit.SourceName))
		log.Info("InfluxDB connected", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	}

	services, err := buildServices(cfg, log)
	if err != nil {
		return err
	}

	deps := theatre.Deps{
		VideoProcessor: devices.video,
		Display:        devices.display,
		AudioProcessor: devices.audio,
		MediaPlayer:    devices.player,
		Observer:       observers,
		Logger:         log,
	}
	if services.poller != nil {
		deps.MediaCenter = services.poller
	}
	if services.movies != nil {
		deps.Movies = services.movies
	}
	if services.htpc != nil {
		deps.HTPC = services.htpc
	}

	ctrl, err := theatre.New(deps, theatre.Options{
		ActionTimeout:   cfg.Controller.ActionTimeout,
		ShutdownTimeout: cfg.Controller.ShutdownTimeout,
		SettleDelay:     cfg.HTPC.SettleDelay,
	})
	if err != nil {
		return fmt.Errorf("creating controller: %w", err)
	}
	if err := m.RegisterQueueDepth(ctrl.QueueLen); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	tree := supervisor.New(log.Logger, supervisor.Config{ShutdownTimeout: cfg.Controller.ShutdownTimeout})
	tree.AddCore(supervisor.NewTerminal("controller", ctrl.Run))
	if services.poller != nil {
		tree.AddDevice(services.poller)
	}

	if cfg.API.Enabled {
		apiDeps := api.Deps{
			Config:     cfg.API,
			Logger:     log,
			Controller: ctrl,
			Metrics:    m.Handler(),
			Checks: map[string]api.HealthChecker{
				"database": db,
				"mqtt":     mqttClient,
			},
			Version: version,
		}
		if repo != nil {
			apiDeps.Executions = repo
		}
		if influxClient != nil {
			apiDeps.Checks["influxdb"] = influxClient
		}
		srv, err := api.New(apiDeps)
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		tree.AddAPI(srv)
		log.Info("API enabled", "addr", srv.Addr())
	}

	log.Info("initialisation complete")
	err = tree.Serve(ctx)

	if report, reportErr := tree.UnstoppedServiceReport(); reportErr == nil && len(report) > 0 {
		log.Warn("services did not stop in time", "services", report)
	}
	if err == nil || (ctx.Err() != nil && errors.Is(err, ctx.Err())) {
		log.Info("theatre core stopped")
		return nil
	}
	return fmt.Errorf("controller stopped: %w", err)
}

// getConfigPath returns THEATRE_CONFIG if set, otherwise the default path.
func getConfigPath() string {
	if path := os.Getenv("THEATRE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
