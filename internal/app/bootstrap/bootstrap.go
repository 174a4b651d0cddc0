package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	gamificationengine "divan/contexts/loyalty/gamification-engine"
	postgresadapter "divan/contexts/loyalty/gamification-engine/adapters/postgres"
	"divan/contexts/loyalty/gamification-engine/application/workers"
	"divan/contexts/loyalty/gamification-engine/domain/entities"
	"divan/internal/platform/config"
	"divan/internal/platform/db"
	"divan/internal/platform/httpserver"
	"divan/internal/platform/messaging"
	"divan/internal/shared/events"
)

// Package bootstrap is the composition root.
// Keep construction/wiring here so module code stays framework-agnostic.

type APIApp struct {
	server   *httpserver.Server
	postgres *db.Postgres
	logger   *slog.Logger
}

type WorkerApp struct {
	postgres      *db.Postgres
	sweeper       workers.PermanenceSweeper
	bus           *messaging.Bus
	sweepInterval time.Duration
	logger        *slog.Logger
}

func buildModule(cfg config.Config, pg *db.Postgres, bus *messaging.Bus, logger *slog.Logger) (gamificationengine.Module, error) {
	policy := entities.DefaultPermanencePolicy
	policy.MonthlyBonusEnabled = cfg.EnableMonthlyBonus

	repo := postgresadapter.NewRepository(pg.DB, entities.DefaultLevels, logger)
	if err := repo.AutoMigrate(); err != nil {
		return gamificationengine.Module{}, err
	}
	return gamificationengine.NewModule(gamificationengine.Dependencies{
		Repository: repo,
		Notifier: messaging.NotificationPublisher{
			Bus:           bus,
			SourceService: cfg.ServiceName,
		},
		Clock:        postgresadapter.SystemClock{},
		Levels:       entities.DefaultLevels,
		Policy:       policy,
		AdminChatIDs: cfg.AdminChatIDs,
		Logger:       logger,
	}), nil
}

func BuildAPI() (*APIApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "api")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	module, err := buildModule(cfg, pg, bus, logger)
	if err != nil {
		return nil, err
	}
	server := httpserver.New(module, logger, normalizeAddr(cfg.HTTPPort))
	return &APIApp{
		server:   server,
		postgres: pg,
		logger:   logger,
	}, nil
}

func BuildWorker() (*WorkerApp, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := slog.Default().With("service", cfg.ServiceName, "process", "worker")
	if strings.TrimSpace(cfg.PostgresDSN) == "" {
		return nil, errors.New("POSTGRES_DSN is required")
	}

	pg, err := db.Connect(cfg.PostgresDSN)
	if err != nil {
		return nil, err
	}

	bus, err := messaging.NewBus(cfg.KafkaBrokers, logger)
	if err != nil {
		return nil, err
	}

	module, err := buildModule(cfg, pg, bus, logger)
	if err != nil {
		return nil, err
	}
	return &WorkerApp{
		postgres:      pg,
		sweeper:       module.Sweeper,
		bus:           bus,
		sweepInterval: cfg.SweepInterval,
		logger:        logger,
	}, nil
}

func (a *APIApp) Run(_ context.Context) error {
	if a.logger != nil {
		a.logger.Info("api app started",
			"event", "bootstrap_api_started",
			"module", "internal/app/bootstrap",
			"layer", "platform",
		)
	}
	return a.server.Start()
}

func (a *APIApp) Close() error {
	if a.postgres != nil {
		return a.postgres.Close()
	}
	return nil
}

func (w *WorkerApp) Run(ctx context.Context) error {
	// Notification delivery sink: the chat transport is out of process, so the
	// worker records what it would have sent.
	if err := w.bus.Subscribe(ctx, events.TopicUserNotifications, "loyalty-notifications-cg",
		func(_ context.Context, event events.Envelope) error {
			w.logger.Info("notification delivered",
				"event", "notification_delivered",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"entity_id", event.EntityID,
				"event_id", event.EventID,
			)
			return nil
		}); err != nil {
		return err
	}

	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.logger.Info("worker app started",
		"event", "bootstrap_worker_started",
		"module", "internal/app/bootstrap",
		"layer", "platform",
		"sweep_interval", w.sweepInterval.String(),
	)

	for {
		if err := w.sweeper.RunOnce(ctx); err != nil {
			w.logger.Error("permanence sweep failed",
				"event", "bootstrap_sweep_failed",
				"module", "internal/app/bootstrap",
				"layer", "platform",
				"error", err.Error(),
			)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *WorkerApp) Close() error {
	if w.postgres != nil {
		return w.postgres.Close()
	}
	return nil
}

func normalizeAddr(port string) string {
	value := strings.TrimSpace(port)
	if value == "" {
		return ":8080"
	}
	if strings.HasPrefix(value, ":") {
		return value
	}
	return ":" + value
}
