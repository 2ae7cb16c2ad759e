package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and parses configuration from a file. ${ENV_VAR} references are
// expanded before parsing so secrets stay out of the file.
func Load(configPath string) (*Config, error) {
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", configPath, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with --config flag", absPath)
	}

	expanded := envVarPattern.ReplaceAllStringFunc(string(data), func(match string) string {
		name := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(name)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Service.Name == "" {
		cfg.Service.Name = "taiga-relay"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "INFO"
	}
	if cfg.Webhook.Listen == "" {
		cfg.Webhook.Listen = "127.0.0.1:8089"
	}
	if cfg.State.Path == "" {
		cfg.State.Path = "relay.db"
	}
}

func validate(cfg *Config) error {
	if cfg.Network == "" {
		return fmt.Errorf("network must be set")
	}

	switch cfg.Messenger.Type {
	case "slack":
		if cfg.Messenger.WebhookURL == "" {
			return fmt.Errorf("messenger.webhook_url must be set for slack")
		}
		if len(cfg.Messenger.Channels) == 0 {
			return fmt.Errorf("messenger.channels must list at least one channel")
		}
	case "discord":
		if len(cfg.Messenger.ChannelWebhooks) == 0 {
			return fmt.Errorf("messenger.channel_webhooks must map at least one channel")
		}
	case "":
		return fmt.Errorf("messenger.type must be set")
	default:
		return fmt.Errorf("unsupported messenger.type %q (want slack or discord)", cfg.Messenger.Type)
	}

	if cfg.API.Enabled {
		if cfg.API.Listen == "" {
			return fmt.Errorf("api.listen must be set when the API is enabled")
		}
		if cfg.API.Token == "" {
			return fmt.Errorf("api.token must be set when the API is enabled")
		}
	}
	return nil
}
