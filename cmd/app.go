package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"aromabot/pkg/advisor"
	"aromabot/pkg/bus"
	"aromabot/pkg/config"
	"aromabot/pkg/dispatch"
	"aromabot/pkg/gateway"
	"aromabot/pkg/logger"
	"aromabot/pkg/oils"
	"aromabot/pkg/provider"
	"aromabot/pkg/router"
	"aromabot/pkg/store"
	"aromabot/pkg/subscription"
)

// app holds the services shared by the gateway and the console.
type app struct {
	cfg           *config.Config
	log           *slog.Logger
	db            *store.DB
	client        provider.Client
	events        *bus.MessageBus
	catalog       *oils.Service
	subscriptions *subscription.Service
	dispatcher    *dispatch.Dispatcher
}

func newApp(ctx context.Context, cfg *config.Config, channelName string, log *slog.Logger) (*app, error) {
	appLog := logger.Component(log, "cmd.app")

	taxonomy, err := router.LoadTaxonomy(cfg.Router.TaxonomyPath)
	if err != nil {
		return nil, fmt.Errorf("load taxonomy: %w", err)
	}

	db, err := store.Open(ctx, cfg.Store.Path, log)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	seeded, err := db.EnsureSeeded(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("seed oil catalog: %w", err)
	}
	if seeded > 0 {
		appLog.Info("Seeded oil catalog", "oils", seeded)
	}

	client, err := provider.New(cfg)
	if err != nil {
		appLog.Warn("AI provider unavailable, recommendations will use fallback text", "provider", cfg.AI.Provider, "error", err)
		client = nil
	}

	adv, err := advisor.New(client, cfg.AI, log)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize advisor: %w", err)
	}

	events := bus.NewMessageBus()
	catalog := oils.NewService(db)
	subscriptions := subscription.NewService(db, cfg.Subscriptions, log)

	dispatcher, err := dispatch.New(dispatch.Deps{
		Channel:       channelName,
		Router:        router.New(taxonomy),
		Catalog:       catalog,
		Advisor:       adv,
		Subscriptions: subscriptions,
		Interactions:  db,
		Events:        events,
		Logger:        log,
	})
	if err != nil {
		events.Close()
		db.Close()
		return nil, err
	}

	return &app{
		cfg:           cfg,
		log:           appLog,
		db:            db,
		client:        client,
		events:        events,
		catalog:       catalog,
		subscriptions: subscriptions,
		dispatcher:    dispatcher,
	}, nil
}

func (a *app) Close() {
	a.events.Close()
	if err := a.db.Close(); err != nil {
		a.log.Warn("Failed to close store", "error", err)
	}
}

// healthChecker returns the provider as a gateway health checker, or nil when
// no provider could be built.
func (a *app) healthChecker() gateway.HealthChecker {
	if a.client == nil {
		return nil
	}
	return a.client
}
