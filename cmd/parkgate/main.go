// Parkgate Core - parking lot access control backend.
//
// Parkgate is the server side of an ESP32-based parking system: it ingests
// gate events over MQTT, maintains the card catalogue and slot state in
// SQLite, computes parking fees, and serves the admin dashboard over a REST
// API with a live WebSocket feed.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/tomasz-karas/parkgate-core/migrations"

	"github.com/tomasz-karas/parkgate-core/internal/api"
	"github.com/tomasz-karas/parkgate-core/internal/audit"
	"github.com/tomasz-karas/parkgate-core/internal/auth"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/config"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/database"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/influxdb"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/logging"
	"github.com/tomasz-karas/parkgate-core/internal/infrastructure/mqtt"
	"github.com/tomasz-karas/parkgate-core/internal/ingest"
	"github.com/tomasz-karas/parkgate-core/internal/parking"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the application logic, separated from main for testability.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo,maintidx // linear startup sequence
	log := logging.Default()
	log.Info("starting Parkgate Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Database and schema.
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Repositories.
	users := auth.NewUserRepository(db.DB)
	cards := parking.NewCardRepository(db.DB)
	slots := parking.NewSlotRepository(db.DB)
	logs := parking.NewLogRepository(db.DB)
	pricing := parking.NewPricingRepository(db.DB,
		cfg.Parking.HourlyRate, cfg.Parking.DailyMaxRate, cfg.Parking.GracePeriodMinutes)
	stats := parking.NewStatsRepository(db.DB)
	events := audit.NewSQLiteRepository(db.DB)

	// First-boot seeding: slot rows and the initial admin account.
	if seedErr := slots.Seed(ctx, cfg.Parking.TotalSlots); seedErr != nil {
		return fmt.Errorf("seeding slots: %w", seedErr)
	}
	if _, seedErr := auth.SeedAdmin(ctx, users, cfg.Admin, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	recordEvent(ctx, events, log, &audit.SystemEvent{
		EventType:   audit.EventBackendStarted,
		Description: "backend started",
		Metadata:    map[string]any{"version": version},
	})
	defer recordEvent(context.Background(), events, log, &audit.SystemEvent{
		EventType:   audit.EventBackendStopped,
		Description: "backend stopped",
	})

	// MQTT broker. The gate keeps operating standalone when the broker is
	// unreachable, so a failed connect degrades the backend to API-only
	// instead of refusing to start.
	var mqttClient *mqtt.Client
	mqttClient, err = mqtt.Connect(cfg.MQTT)
	if err != nil {
		log.Warn("MQTT unavailable, continuing without the gate controller link",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"error", err,
		)
		mqttClient = nil
	} else {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT connection established")
			recordEvent(ctx, events, log, &audit.SystemEvent{
				EventType:   audit.EventBrokerConnected,
				Description: "broker connection established",
			})
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
			recordEvent(ctx, events, log, &audit.SystemEvent{
				EventType:   audit.EventBrokerLost,
				Severity:    audit.SeverityWarning,
				Description: "broker connection lost",
				Metadata:    map[string]any{"error": fmt.Sprint(err)},
			})
		})
	}

	// InfluxDB telemetry (optional).
	influxClient, err := influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		log.Info("InfluxDB disabled")
		influxClient = nil
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	}

	// WebSocket hub, shared between the ingest listeners and the API server.
	hub := api.NewHub(cfg.WebSocket, log)
	hubCtx, hubCancel := context.WithCancel(context.Background())
	defer hubCancel()
	go hub.Run(hubCtx)

	// Event ingestion and the command channel, only with a broker link.
	var commander *ingest.Commander
	var ingestor *ingest.Ingestor
	if mqttClient != nil {
		qos := byte(cfg.MQTT.QoS) //nolint:gosec // validated 0..2 by config

		commander = ingest.NewCommander(mqttClient, qos)

		recorder := parking.NewRecorder(db.DB, pricing)
		ingestor = ingest.NewIngestor(mqttClient, recorder, qos, log)
		ingestor.AddListener("websocket", func(n ingest.Notification) {
			hub.Broadcast("event."+n.Kind, n)
		})
		if influxClient != nil {
			ingestor.AddListener("telemetry", telemetryListener(influxClient, cfg.Parking.TotalSlots))
		}

		if startErr := ingestor.Start(ctx); startErr != nil {
			return fmt.Errorf("starting event ingestion: %w", startErr)
		}
		defer ingestor.Wait()
		log.Info("event ingestion started", "qos", cfg.MQTT.QoS)

		// Push the whitelist so a controller that rebooted while the backend
		// was down catches up immediately. An empty push is still a push:
		// the controller's whitelist must mirror the database.
		if active, listErr := cards.List(ctx, true); listErr != nil {
			log.Warn("failed to load active cards for startup sync", "error", listErr)
		} else if syncErr := commander.SyncWhitelist(active); syncErr != nil {
			log.Warn("startup whitelist sync failed", "cards", len(active), "error", syncErr)
		} else {
			log.Info("whitelist synced to controller", "cards", len(active))
			recordEvent(ctx, events, log, &audit.SystemEvent{
				EventType:   audit.EventWhitelistSynced,
				Description: "whitelist pushed on startup",
				Metadata:    map[string]any{"cards": len(active)},
			})
		}
	}

	// HTTP API and WebSocket server.
	deps := api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Security:    cfg.Security,
		Logger:      log,
		Users:       users,
		Cards:       cards,
		Slots:       slots,
		Logs:        logs,
		Pricing:     pricing,
		Stats:       stats,
		Events:      events,
		MQTT:        mqttClient,
		ExternalHub: hub,
		Version:     version,
	}
	if commander != nil {
		deps.Commander = commander
	}

	server, err := api.New(deps)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port))

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// API server, ingest worker, InfluxDB, MQTT, database.

	log.Info("Parkgate Core stopped")
	return nil
}

// telemetryListener forwards applied gate events to InfluxDB.
func telemetryListener(influx *influxdb.Client, totalSlots int) ingest.Listener {
	return func(n ingest.Notification) {
		switch n.Kind {
		case ingest.KindEntry, ingest.KindExit:
			influx.WriteGateEvent(n.Kind, n.Gate, n.Status, n.CardUID, n.SlotID)
			if n.Kind == ingest.KindExit && n.Fee > 0 {
				influx.WriteRevenue(n.SlotID, n.DurationMinutes, n.Fee)
			}
		case ingest.KindSystem:
			influx.WriteOccupancy(totalSlots-n.AvailableSlots, totalSlots)
		}
	}
}

// recordEvent writes an audit event, best effort.
func recordEvent(ctx context.Context, events audit.Repository, log *logging.Logger, ev *audit.SystemEvent) {
	if err := events.Record(ctx, ev); err != nil {
		log.Warn("failed to record audit event", "type", ev.EventType, "error", err)
	}
}

// getConfigPath returns the configuration file path.
// Uses PARKGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PARKGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the infrastructure connections that are up.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
