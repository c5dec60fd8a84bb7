package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/user"

	"aromabot/pkg/config"
	"aromabot/pkg/logger"
	"aromabot/pkg/ui/console"

	"github.com/spf13/cobra"
)

var consoleCmd = &cobra.Command{
	Use:   "console",
	Short: "Chat with the bot in the terminal",
	Long:  "Starts an interactive console that sends typed messages through the same dispatcher the Telegram channel uses. Type !payload to press a button.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		// Log lines would tear the full-screen UI; only errors get through.
		cfg.Logging.Level = "error"
		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		slog.SetDefault(appLogger)

		ctx := cmd.Context()
		services, err := newApp(ctx, cfg, "console", appLogger)
		if err != nil {
			fmt.Printf("failed to initialize services: %v\n", err)
			return
		}
		defer services.Close()

		oils, err := services.db.CountOils(ctx)
		if err != nil {
			fmt.Printf("failed to read oil catalog: %v\n", err)
			return
		}

		info := console.Info{
			UserName: consoleUserName(),
			Provider: cfg.AI.Provider,
			Model:    cfg.AI.Model,
			Oils:     oils,
		}
		if err := console.Run(ctx, services.dispatcher.Handle, info); err != nil {
			fmt.Printf("console failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(consoleCmd)
}

func consoleUserName() string {
	if current, err := user.Current(); err == nil {
		if current.Name != "" {
			return current.Name
		}
		return current.Username
	}
	return os.Getenv("USER")
}
