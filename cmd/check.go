package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"aromabot/pkg/config"
	"aromabot/pkg/provider"
	"aromabot/pkg/store"

	"github.com/spf13/cobra"
)

const checkTimeout = 10 * time.Second

type checkResult struct {
	Name   string
	OK     bool
	Detail string
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Diagnose configuration, store and provider",
	Long:  "Validates the configuration, reports which secrets are set, and checks the store and the AI provider.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()

		results := runChecks(ctx, cfg)
		printChecks(cmd.OutOrStdout(), results)
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runChecks(ctx context.Context, cfg *config.Config) []checkResult {
	results := []checkResult{checkConfig(cfg)}
	results = append(results, checkSecrets(cfg)...)
	results = append(results, checkStore(ctx, cfg.Store.Path))
	results = append(results, checkProvider(ctx, cfg))
	return results
}

func checkConfig(cfg *config.Config) checkResult {
	if err := cfg.Validate(); err != nil {
		return checkResult{Name: "config", Detail: err.Error()}
	}
	return checkResult{Name: "config", OK: true, Detail: "environment " + cfg.Environment}
}

func checkSecrets(cfg *config.Config) []checkResult {
	secrets := []checkResult{secretResult("telegram token", cfg.Channels.Telegram.Token, cfg.Channels.Telegram.Enabled)}

	switch strings.ToLower(strings.TrimSpace(cfg.AI.Provider)) {
	case "openai", "fantasy":
		secrets = append(secrets, envSecretResult(cfg.Providers.OpenAI.APIKeyEnv, "OPENAI_API_KEY"))
	case "anthropic":
		secrets = append(secrets, envSecretResult(cfg.Providers.Anthropic.APIKeyEnv, "ANTHROPIC_API_KEY"))
	case "opencode":
		if env := strings.TrimSpace(cfg.Providers.OpenCode.PasswordEnv); env != "" {
			secrets = append(secrets, envSecretResult(env, env))
		}
	}

	return secrets
}

func envSecretResult(env string, fallback string) checkResult {
	env = strings.TrimSpace(env)
	if env == "" {
		env = fallback
	}
	return secretResult(env, os.Getenv(env), true)
}

func secretResult(name string, value string, required bool) checkResult {
	value = strings.TrimSpace(value)
	if value == "" {
		return checkResult{Name: name, OK: !required, Detail: "not set"}
	}
	return checkResult{Name: name, OK: true, Detail: maskSecret(value)}
}

// maskSecret keeps only the first and last four characters of long values.
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:4] + "****" + value[len(value)-4:]
}

func checkStore(ctx context.Context, path string) checkResult {
	db, err := store.Open(ctx, path, nil)
	if err != nil {
		return checkResult{Name: "store", Detail: err.Error()}
	}
	defer db.Close()

	if err := db.Ping(ctx); err != nil {
		return checkResult{Name: "store", Detail: err.Error()}
	}
	count, err := db.CountOils(ctx)
	if err != nil {
		return checkResult{Name: "store", Detail: err.Error()}
	}

	return checkResult{Name: "store", OK: true, Detail: fmt.Sprintf("%s, %d oils", path, count)}
}

func checkProvider(ctx context.Context, cfg *config.Config) checkResult {
	name := "provider " + cfg.AI.Provider

	client, err := provider.New(cfg)
	if err != nil {
		return checkResult{Name: name, Detail: err.Error()}
	}
	if err := client.Health(ctx); err != nil {
		return checkResult{Name: name, Detail: err.Error()}
	}

	return checkResult{Name: name, OK: true, Detail: "model " + cfg.AI.Model}
}

func printChecks(w io.Writer, results []checkResult) {
	for _, result := range results {
		mark := "✅"
		if !result.OK {
			mark = "❌"
		}
		fmt.Fprintf(w, "%s %-18s %s\n", mark, result.Name, result.Detail)
	}
}
