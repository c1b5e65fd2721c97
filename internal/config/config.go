// Package config loads the settings of the gatewayclient command from a YAML file, with
// environment variables taking precedence for secrets.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvBotToken overrides the bot token found in the configuration file.
const EnvBotToken = "DISCORD_TOKEN"

var ErrMissingBotToken = errors.New("bot token is missing, set " + EnvBotToken + " or bot_token")

type REST struct {
	BaseURL   string `yaml:"base_url"`
	UserAgent string `yaml:"user_agent"`
	// MaxFailures consecutive server errors open the circuit breaker. Zero keeps the default.
	MaxFailures  uint32        `yaml:"max_failures"`
	BreakerReset time.Duration `yaml:"breaker_reset"`
}

type Config struct {
	BotToken             string        `yaml:"bot_token"`
	GatewayURL           string        `yaml:"gateway_url"`
	Intents              uint64        `yaml:"intents"`
	GuildEvents          []string      `yaml:"guild_events"`
	DirectMessageEvents  []string      `yaml:"direct_message_events"`
	Compress             bool          `yaml:"compress"`
	LargeThreshold       uint8         `yaml:"large_threshold"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	LogLevel             string        `yaml:"log_level"`
	ShutdownTimeout      time.Duration `yaml:"shutdown_timeout"`
	// AlertChannelID receives a message for every warning or error logged, when set.
	AlertChannelID string `yaml:"alert_channel_id"`
	REST           REST   `yaml:"rest"`
}

// Default returns the configuration used for any setting the file leaves out.
func Default() *Config {
	return &Config{
		LargeThreshold:  50,
		LogLevel:        "info",
		ShutdownTimeout: 5 * time.Second,
		REST: REST{
			BreakerReset: 30 * time.Second,
		},
	}
}

// Load reads the YAML file at path on top of Default. An empty path only applies the
// defaults and the environment.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if token := os.Getenv(EnvBotToken); token != "" {
		cfg.BotToken = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.Intents > 0 && (len(c.GuildEvents) > 0 || len(c.DirectMessageEvents) > 0) {
		return errors.New("intents can not be combined with guild_events or direct_message_events")
	}
	if c.MaxReconnectAttempts < 0 {
		return fmt.Errorf("max_reconnect_attempts must be positive, got %d", c.MaxReconnectAttempts)
	}
	return nil
}
