package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"aromabot/pkg/channel"
	"aromabot/pkg/channel/telegram"
	"aromabot/pkg/config"
	"aromabot/pkg/gateway"
	"aromabot/pkg/logger"
	"aromabot/pkg/subscription"

	"github.com/spf13/cobra"
)

const telegramChannelName = "telegram"

var gatewayCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Run the bot",
	Long:  "Runs AromaBot on the enabled channels with the daily tip scheduler and health endpoints.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)
		log := slog.Default().With("component", "cmd.gateway")

		if err := cfg.Validate(); err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		tg, err := telegramAdapter(cfg, log)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		adapters, err := enabledAdapters(tg)
		if err != nil {
			log.Error("Gateway configuration invalid", "error", err)
			return
		}

		runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		services, err := newApp(runCtx, cfg, telegramChannelName, log)
		if err != nil {
			log.Error("Failed to initialize services", "error", err)
			return
		}
		defer services.Close()

		var scheduler gateway.Scheduler
		if tg != nil {
			tipScheduler, err := subscription.NewScheduler(cfg.Subscriptions, services.db, services.catalog, tg, services.events, log)
			if err != nil {
				log.Error("Failed to initialize subscription scheduler", "error", err)
				return
			}
			scheduler = tipScheduler
		}

		svc, err := gateway.NewService(gateway.Deps{
			Config:    cfg,
			Adapters:  adapters,
			Handler:   services.dispatcher.Handle,
			Provider:  services.healthChecker(),
			Store:     services.db,
			Scheduler: scheduler,
			Events:    services.events,
			Logger:    log,
		})
		if err != nil {
			log.Error("Failed to initialize gateway service", "error", err)
			return
		}

		log.Info("Gateway started",
			"channels", enabledChannelNames(adapters),
			"environment", cfg.Environment,
			"provider", cfg.AI.Provider,
			"model", cfg.AI.Model,
		)
		if err := svc.Run(runCtx); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Error("Gateway runtime failed", "error", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(gatewayCmd)
}

// telegramAdapter returns nil without error when telegram is disabled.
func telegramAdapter(cfg *config.Config, log *slog.Logger) (*telegram.Adapter, error) {
	if !cfg.Channels.Telegram.Enabled {
		return nil, nil
	}

	adapter, err := telegram.NewAdapter(cfg.Channels.Telegram, log)
	if err != nil {
		return nil, fmt.Errorf("configure %s channel: %w", telegramChannelName, err)
	}

	return adapter, nil
}

func enabledAdapters(tg *telegram.Adapter) ([]channel.Adapter, error) {
	adapters := make([]channel.Adapter, 0, 1)

	if tg != nil {
		adapters = append(adapters, tg)
	}

	if len(adapters) == 0 {
		return nil, errors.New("no channels are enabled")
	}

	return adapters, nil
}

func enabledChannelNames(adapters []channel.Adapter) string {
	names := make([]string, 0, len(adapters))
	for _, adapter := range adapters {
		names = append(names, adapter.Name())
	}

	return strings.Join(names, ",")
}
