package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

var (
	ErrConfigFileNotFound    = errors.New("could not find config file in any config path")
	ErrConfigVersionMissing  = errors.New("config file is missing version field")
	ErrConfigVersionMismatch = errors.New("config file version mismatch")
	ErrInvalidConfig         = errors.New("invalid config value")
)

// RepositoryVersion is the repository version tag for config file references.
const RepositoryVersion = "v0.3.0"

// Current version of the config files.
const (
	CurrentCommonVersion = 1
	CurrentBotVersion    = 1
)

// EnvPrefix is the prefix of environment variables that override config keys.
// Nested keys are separated by a double underscore.
const EnvPrefix = "LINKGUARD_"

// Config represents the entire application configuration.
type Config struct {
	Common CommonConfig `koanf:"common"`
	Bot    BotConfig    `koanf:"bot"`
}

// CommonConfig contains configuration shared by every command.
type CommonConfig struct {
	// Version of the common config.
	Version int     `koanf:"version"`
	Debug   Debug   `koanf:"debug"`
	Redis   Redis   `koanf:"redis"`
	Health  Health  `koanf:"health"`
	Tracing Tracing `koanf:"tracing"`
}

// BotConfig contains moderation bot specific configuration.
type BotConfig struct {
	// Version of the bot config.
	Version    int        `koanf:"version"`
	Session    Session    `koanf:"session"`
	Moderation Moderation `koanf:"moderation"`
	Reconnect  Reconnect  `koanf:"reconnect"`
	Audit      Audit      `koanf:"audit"`
}

// Debug contains debug-related configuration.
type Debug struct {
	// Log level (debug, info, warn, error).
	LogLevel string `koanf:"log_level"`
	// Maximum log sessions to keep.
	MaxLogsToKeep int `koanf:"max_logs_to_keep"`
	// Maximum lines per log file.
	MaxLogLines int `koanf:"max_log_lines"`
	// Mirror log output to stderr.
	Console bool `koanf:"console"`
}

// Redis contains Redis connection configuration.
type Redis struct {
	// Connect to Redis at all.
	Enabled bool `koanf:"enabled"`
	// Redis hostname.
	Host string `koanf:"host"`
	// Redis port.
	Port int `koanf:"port"`
	// Redis username.
	Username string `koanf:"username"`
	// Redis password.
	Password string `koanf:"password"`
}

// Health contains the liveness endpoint configuration.
type Health struct {
	// Serve the liveness and metrics endpoint.
	Enabled bool `koanf:"enabled"`
	// Listen host.
	Host string `koanf:"host"`
	// Listen port.
	Port int `koanf:"port"`
}

// Tracing contains OpenTelemetry export configuration.
type Tracing struct {
	// Export spans and error logs to Uptrace.
	Enabled bool `koanf:"enabled"`
	// Uptrace project DSN.
	DSN string `koanf:"dsn"`
}

// Session contains the device session store configuration.
type Session struct {
	// Database dialect (sqlite or postgres).
	Dialect string `koanf:"dialect"`
	// Database address or DSN.
	Address string `koanf:"address"`
}

// Moderation contains link moderation policy configuration.
type Moderation struct {
	// Violation count at which a sender is removed.
	MaxViolations int `koanf:"max_violations"`
	// How violations are counted (global or group).
	ViolationScope string `koanf:"violation_scope"`
	// Maximum groups kept in the admin cache.
	AdminCacheSize int `koanf:"admin_cache_size"`
	// Lifetime of cached admin lists in seconds, 0 for no expiry.
	AdminCacheTTL int `koanf:"admin_cache_ttl"`
	// Message sent to a group after the bot is promoted.
	IntroMessage string `koanf:"intro_message"`
}

// Reconnect contains the reconnect policy after a dropped connection.
type Reconnect struct {
	// Initial delay in milliseconds, 0 with max_interval 0 reconnects immediately.
	InitialInterval int `koanf:"initial_interval"`
	// Maximum delay in milliseconds.
	MaxInterval int `koanf:"max_interval"`
}

// Audit contains moderation audit stream configuration.
type Audit struct {
	// Append moderation actions to a Redis stream.
	Enabled bool `koanf:"enabled"`
	// Stream key.
	Stream string `koanf:"stream"`
	// Approximate maximum stream length.
	MaxLen int64 `koanf:"max_len"`
}

// defaults are applied before any config file is read.
var defaults = map[string]any{
	"common.debug.log_level":          "info",
	"common.debug.max_logs_to_keep":   10,
	"common.debug.max_log_lines":      100000,
	"common.debug.console":            true,
	"common.redis.host":               "localhost",
	"common.redis.port":               6379,
	"common.health.host":              "0.0.0.0",
	"common.health.port":              8080,
	"bot.session.dialect":             "sqlite",
	"bot.session.address":             "file:session.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	"bot.moderation.max_violations":   2,
	"bot.moderation.violation_scope":  "global",
	"bot.moderation.admin_cache_size": 1024,
	"bot.moderation.intro_message":    DefaultIntroMessage,
	"bot.audit.stream":                "linkguard:audit",
	"bot.audit.max_len":               10000,
}

// DefaultConfigPaths lists the directories searched for config files.
func DefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	return []string{
		".linkguard",
		homeDir + "/.linkguard/config",
		"/etc/linkguard/config",
		"/app/config",
		"config",
		".",
	}, nil
}

// LoadConfig loads the configuration from the default search paths.
// Returns the config along with the used config directory.
func LoadConfig() (*Config, string, error) {
	paths, err := DefaultConfigPaths()
	if err != nil {
		return nil, "", err
	}

	return LoadConfigFrom(paths)
}

// LoadConfigFrom loads common.toml and bot.toml from the first path holding
// each of them, then applies environment overrides.
func LoadConfigFrom(configPaths []string) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, "", fmt.Errorf("error loading config defaults: %w", err)
	}

	var usedConfigPath string

	for _, configName := range []string{"common", "bot"} {
		configLoaded := false

		for _, path := range configPaths {
			configPath := fmt.Sprintf("%s/%s.toml", path, configName)

			sub := koanf.New(".")
			if err := sub.Load(file.Provider(configPath), toml.Parser()); err != nil {
				continue
			}

			if err := k.MergeAt(sub, configName); err != nil {
				return nil, "", fmt.Errorf("error merging %s: %w", configPath, err)
			}

			configLoaded = true

			if usedConfigPath == "" {
				usedConfigPath = path
			}

			break
		}

		if !configLoaded {
			return nil, "", fmt.Errorf("%w: %s.toml", ErrConfigFileNotFound, configName)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("error loading environment overrides: %w", err)
	}

	var config Config
	if err := k.Unmarshal("", &config); err != nil {
		return nil, "", fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Check versions for each config file
	if err := checkConfigVersion("common", config.Common.Version, CurrentCommonVersion); err != nil {
		return nil, "", err
	}

	if err := checkConfigVersion("bot", config.Bot.Version, CurrentBotVersion); err != nil {
		return nil, "", err
	}

	if err := config.Validate(); err != nil {
		return nil, "", err
	}

	return &config, usedConfigPath, nil
}

// Validate checks values that would otherwise fail at runtime.
func (c *Config) Validate() error {
	if c.Bot.Moderation.MaxViolations < 1 {
		return fmt.Errorf("%w: bot.moderation.max_violations must be at least 1", ErrInvalidConfig)
	}

	switch c.Bot.Moderation.ViolationScope {
	case "global", "group":
	default:
		return fmt.Errorf("%w: bot.moderation.violation_scope %q", ErrInvalidConfig, c.Bot.Moderation.ViolationScope)
	}

	switch c.Bot.Session.Dialect {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("%w: bot.session.dialect %q", ErrInvalidConfig, c.Bot.Session.Dialect)
	}

	if c.Common.Tracing.Enabled && c.Common.Tracing.DSN == "" {
		return fmt.Errorf("%w: common.tracing.enabled requires common.tracing.dsn", ErrInvalidConfig)
	}

	if c.Bot.Audit.Enabled && !c.Common.Redis.Enabled {
		return fmt.Errorf("%w: bot.audit.enabled requires common.redis.enabled", ErrInvalidConfig)
	}

	if c.Bot.Reconnect.InitialInterval < 0 || c.Bot.Reconnect.MaxInterval < 0 {
		return fmt.Errorf("%w: reconnect intervals must not be negative", ErrInvalidConfig)
	}

	return nil
}

// envKey maps LINKGUARD_BOT__MODERATION__MAX_VIOLATIONS to bot.moderation.max_violations.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
}

// checkConfigVersion checks if the config file version is correct.
func checkConfigVersion(name string, current, expected int) error {
	if current == 0 {
		return fmt.Errorf("%w: %s.toml", ErrConfigVersionMissing, name)
	}

	if current != expected {
		return fmt.Errorf(
			"%w: %s.toml (got: %d, expected: %d)\n"+
				"Please update your config file from: https://github.com/ailab/linkguard/tree/%s/config/%s.toml",
			ErrConfigVersionMismatch,
			name,
			current,
			expected,
			RepositoryVersion,
			name,
		)
	}

	return nil
}
