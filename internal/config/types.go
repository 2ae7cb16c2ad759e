// Package config loads and validates the relay's YAML configuration.
package config

// Config represents the complete taiga-relay configuration.
type Config struct {
	Service   ServiceConfig   `yaml:"service"`
	Network   string          `yaml:"network"`
	State     StateConfig     `yaml:"state"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	API       APIConfig       `yaml:"api,omitempty"`
	Messenger MessengerConfig `yaml:"messenger"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// StateConfig defines where the settings store lives.
type StateConfig struct {
	Path string `yaml:"path"`
}

// WebhookConfig defines the inbound webhook HTTP server.
type WebhookConfig struct {
	Listen string `yaml:"listen"`
	// MaxBodySize accepts "1MB", "512KB" or a plain byte count.
	MaxBodySize string `yaml:"max_body_size,omitempty"`
}

// APIConfig defines the admin HTTP API server.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	// Token is the bearer token granting the elevated capability needed
	// for subscription management.
	Token string `yaml:"token"`
}

// MessengerConfig selects and configures the outbound chat transport.
type MessengerConfig struct {
	// Type is "slack" or "discord".
	Type string `yaml:"type"`

	// WebhookURL is the incoming-webhook endpoint (slack).
	WebhookURL string `yaml:"webhook_url,omitempty"`

	// Channels are the channels served through WebhookURL (slack).
	Channels []string `yaml:"channels,omitempty"`

	// ChannelWebhooks maps channel name to its webhook URL (discord).
	ChannelWebhooks map[string]string `yaml:"channel_webhooks,omitempty"`
}
