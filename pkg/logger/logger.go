package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	charmLog "github.com/charmbracelet/log"

	"aromabot/pkg/config"
)

const (
	defaultFormat = "text"
	defaultLevel  = "info"

	envFormat      = "AROMABOT_LOG_FORMAT"
	envLevel       = "AROMABOT_LOG_LEVEL"
	envLegacyLevel = "LOG_LEVEL"
	envAddSource   = "AROMABOT_LOG_ADD_SOURCE"
)

var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

// options is the logging config after environment overrides.
type options struct {
	format    string
	level     slog.Level
	addSource bool
}

// New builds the process logger. Environment variables override cfg.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	return newWithWriter(cfg, os.Stderr)
}

// Component derives a child logger tagged with the component name. A nil
// base falls back to slog.Default.
func Component(base *slog.Logger, name string) *slog.Logger {
	if base == nil {
		base = slog.Default()
	}

	return base.With(componentAttrID, name)
}

func newWithWriter(cfg config.LoggingConfig, writer io.Writer) (*slog.Logger, error) {
	opts, err := resolveOptions(cfg)
	if err != nil {
		return nil, err
	}

	if opts.format == "json" {
		return slog.New(&entryHandler{
			level:     opts.level,
			addSource: opts.addSource,
			writer:    writer,
			mu:        &sync.Mutex{},
		}), nil
	}

	// charm levels share slog's numeric values.
	return slog.New(charmLog.NewWithOptions(writer, charmLog.Options{
		Level:           charmLog.Level(opts.level),
		ReportTimestamp: true,
		ReportCaller:    opts.addSource,
		Formatter:       charmLog.TextFormatter,
	})), nil
}

func resolveOptions(cfg config.LoggingConfig) (options, error) {
	format := firstNonBlank(envValue(envFormat), cfg.Format, defaultFormat)
	format = strings.ToLower(format)
	if format != "json" && format != "text" {
		return options{}, fmt.Errorf("unsupported log format %q", format)
	}

	levelText := strings.ToLower(firstNonBlank(envValue(envLevel, envLegacyLevel), cfg.Level, defaultLevel))
	level, ok := levelNames[levelText]
	if !ok {
		return options{}, fmt.Errorf("unsupported log level %q", levelText)
	}

	addSource := cfg.AddSource
	if env := envValue(envAddSource); env != "" {
		addSource = parseBool(env)
	}

	return options{format: format, level: level, addSource: addSource}, nil
}

// envValue returns the first non-blank variable among keys.
func envValue(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}

	return ""
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}

	return ""
}

func parseBool(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
