package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	envConfigPath        = "AROMABOT_CONFIG"
	envTelegramBotToken  = "TELEGRAM_BOT_TOKEN"
	envTelegramAllowFrom = "TELEGRAM_ALLOW_FROM"
	envDBPath            = "AROMABOT_DB_PATH"
	envPort              = "PORT"
	envProvider          = "AROMABOT_PROVIDER"
	envModel             = "AROMABOT_MODEL"
	envEnvironment       = "AROMABOT_ENV"
	envNodeEnvironment   = "NODE_ENV"
)

const (
	DefaultProvider       = "openai"
	DefaultModel          = "gpt-3.5-turbo"
	DefaultDBPath         = "./aromabot.db"
	DefaultGatewayHost    = "0.0.0.0"
	DefaultGatewayPort    = 3000
	DefaultNotifyTime     = "09:00"
	DefaultNotifySchedule = "* * * * *"
	DefaultTimezone       = "Europe/Moscow"
	DefaultEnvironment    = "development"
)

// DefaultTimeOptions are the notification times offered to subscribers.
var DefaultTimeOptions = []string{"07:00", "08:00", "09:00", "10:00", "12:00", "15:00", "18:00", "20:00", "21:00"}

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Environment   string              `json:"environment,omitempty"`
	Channels      ChannelsConfig      `json:"channels"`
	AI            AIConfig            `json:"ai"`
	Providers     ProvidersConfig     `json:"providers"`
	Store         StoreConfig         `json:"store"`
	Subscriptions SubscriptionsConfig `json:"subscriptions"`
	Router        RouterConfig        `json:"router,omitempty"`
	Gateway       GatewayConfig       `json:"gateway"`
	Logging       LoggingConfig       `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// AIConfig selects the completion backend and its generation settings.
type AIConfig struct {
	Provider              string  `json:"provider"`
	Model                 string  `json:"model"`
	MaxTokens             int     `json:"max_tokens"`
	Temperature           float64 `json:"temperature"`
	MusicMaxTokens        int     `json:"music_max_tokens"`
	MusicTemperature      float64 `json:"music_temperature"`
	RequestTimeoutSeconds int     `json:"request_timeout_seconds"`
}

// ProvidersConfig stores per-provider connection settings.
type ProvidersConfig struct {
	OpenAI    OpenAIProviderConfig    `json:"openai"`
	Anthropic AnthropicProviderConfig `json:"anthropic"`
	OpenCode  OpenCodeProviderConfig  `json:"opencode"`
}

// OpenAIProviderConfig configures the OpenAI provider client.
type OpenAIProviderConfig struct {
	APIKeyEnv    string `json:"api_key_env"`
	BaseURL      string `json:"base_url"`
	Organization string `json:"organization"`
	Project      string `json:"project"`
}

// AnthropicProviderConfig configures the Anthropic provider client.
type AnthropicProviderConfig struct {
	APIKeyEnv string `json:"api_key_env"`
	BaseURL   string `json:"base_url"`
}

// OpenCodeProviderConfig configures the OpenCode provider client.
type OpenCodeProviderConfig struct {
	BaseURL     string `json:"base_url"`
	Username    string `json:"username"`
	PasswordEnv string `json:"password_env"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures Telegram channel integration.
type TelegramConfig struct {
	Enabled   bool     `json:"enabled"`
	Token     string   `json:"token"`
	Proxy     string   `json:"proxy"`
	AllowFrom []string `json:"allow_from"`
}

// StoreConfig points at the SQLite database file.
type StoreConfig struct {
	Path string `json:"path"`
}

// SubscriptionsConfig controls daily tip delivery.
type SubscriptionsConfig struct {
	DefaultTime string   `json:"default_time"`
	Timezone    string   `json:"timezone"`
	TimeOptions []string `json:"time_options"`
	Schedule    string   `json:"schedule"`
}

// RouterConfig overrides the embedded keyword taxonomy.
type RouterConfig struct {
	TaxonomyPath string `json:"taxonomy_path,omitempty"`
}

// GatewayConfig configures HTTP gateway bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	return &Config{
		Environment: DefaultEnvironment,
		Channels: ChannelsConfig{
			Telegram: TelegramConfig{Enabled: true},
		},
		AI: AIConfig{
			Provider:              DefaultProvider,
			Model:                 DefaultModel,
			MaxTokens:             1000,
			Temperature:           0.7,
			MusicMaxTokens:        800,
			MusicTemperature:      0.8,
			RequestTimeoutSeconds: 60,
		},
		Providers: ProvidersConfig{
			OpenAI:    OpenAIProviderConfig{APIKeyEnv: "OPENAI_API_KEY"},
			Anthropic: AnthropicProviderConfig{APIKeyEnv: "ANTHROPIC_API_KEY"},
			OpenCode:  OpenCodeProviderConfig{BaseURL: "http://127.0.0.1:4096"},
		},
		Store: StoreConfig{Path: DefaultDBPath},
		Subscriptions: SubscriptionsConfig{
			DefaultTime: DefaultNotifyTime,
			Timezone:    DefaultTimezone,
			TimeOptions: slices.Clone(DefaultTimeOptions),
			Schedule:    DefaultNotifySchedule,
		},
		Gateway: GatewayConfig{Host: DefaultGatewayHost, Port: DefaultGatewayPort},
	}
}

// LoadConfig loads .env, resolves config.json on top of the defaults, and
// applies environment overrides.
func LoadConfig() (*Config, error) {
	// A missing .env is normal in production.
	_ = godotenv.Load()

	cfg := Default()

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(content, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides injects selected env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if token := strings.TrimSpace(os.Getenv(envTelegramBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}

	if rawAllowFrom := strings.TrimSpace(os.Getenv(envTelegramAllowFrom)); rawAllowFrom != "" {
		cfg.Channels.Telegram.AllowFrom = parseCSV(rawAllowFrom)
	}

	if path := strings.TrimSpace(os.Getenv(envDBPath)); path != "" {
		cfg.Store.Path = path
	}

	if rawPort := strings.TrimSpace(os.Getenv(envPort)); rawPort != "" {
		if port, err := strconv.Atoi(rawPort); err == nil {
			cfg.Gateway.Port = port
		}
	}

	if provider := strings.TrimSpace(os.Getenv(envProvider)); provider != "" {
		cfg.AI.Provider = provider
	}

	if model := strings.TrimSpace(os.Getenv(envModel)); model != "" {
		cfg.AI.Model = model
	}

	if environment := firstEnv(envEnvironment, envNodeEnvironment); environment != "" {
		cfg.Environment = environment
	}
}

// Validate checks the configuration for invalid or missing values.
func (c *Config) Validate() error {
	var errs []error

	if c.Channels.Telegram.Enabled && strings.TrimSpace(c.Channels.Telegram.Token) == "" {
		errs = append(errs, errors.New("channels.telegram.token is required when telegram is enabled"))
	}

	switch strings.ToLower(strings.TrimSpace(c.AI.Provider)) {
	case "openai", "anthropic", "fantasy", "opencode":
	default:
		errs = append(errs, fmt.Errorf("ai.provider %q is not supported", c.AI.Provider))
	}
	if strings.TrimSpace(c.AI.Model) == "" {
		errs = append(errs, errors.New("ai.model is required"))
	}
	if c.AI.MaxTokens < 0 || c.AI.MusicMaxTokens < 0 {
		errs = append(errs, errors.New("ai max token limits must be non-negative"))
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 || c.AI.MusicTemperature < 0 || c.AI.MusicTemperature > 2 {
		errs = append(errs, errors.New("ai temperatures must be between 0 and 2"))
	}
	if c.AI.RequestTimeoutSeconds < 0 {
		errs = append(errs, errors.New("ai.request_timeout_seconds must be non-negative"))
	}

	if strings.TrimSpace(c.Store.Path) == "" {
		errs = append(errs, errors.New("store.path is required"))
	}

	if len(c.Subscriptions.TimeOptions) == 0 {
		errs = append(errs, errors.New("subscriptions.time_options must not be empty"))
	}
	for _, option := range c.Subscriptions.TimeOptions {
		if !ValidClock(option) {
			errs = append(errs, fmt.Errorf("subscriptions.time_options: %q is not HH:MM", option))
		}
	}
	if !ValidClock(c.Subscriptions.DefaultTime) {
		errs = append(errs, fmt.Errorf("subscriptions.default_time: %q is not HH:MM", c.Subscriptions.DefaultTime))
	}

	if c.Gateway.Port < 0 || c.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port %d is out of range", c.Gateway.Port))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	return nil
}

// ValidClock reports whether value is a 24h HH:MM time.
func ValidClock(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}

	hours, err := strconv.Atoi(value[:2])
	if err != nil || hours < 0 || hours > 23 {
		return false
	}
	minutes, err := strconv.Atoi(value[3:])
	if err != nil || minutes < 0 || minutes > 59 {
		return false
	}

	return true
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}

	return ""
}

// parseCSV splits comma-separated values and returns a trimmed compact slice.
func parseCSV(input string) []string {
	parts := strings.Split(input, ",")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		clean = append(clean, trimmed)
	}

	return slices.Clip(clean)
}

// findConfigPath resolves the active config file location.
//
// Precedence is AROMABOT_CONFIG first, then cwd-local fallback paths. An
// empty path with a nil error means no file exists and defaults apply.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv(envConfigPath)); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("%s does not point to a file: %s", envConfigPath, value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
