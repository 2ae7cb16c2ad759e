package webhook

import (
	"testing"

	"github.com/taiga-contrib/relay/internal/config"
)

func TestFromGlobalConfig(t *testing.T) {
	cfg := &config.Config{Network: "libera"}
	cfg.Webhook.Listen = "127.0.0.1:8089"
	cfg.Webhook.MaxBodySize = "2MB"

	got, err := FromGlobalConfig(cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Listen != "127.0.0.1:8089" {
		t.Errorf("unexpected listen: %q", got.Listen)
	}
	if got.Network != "libera" {
		t.Errorf("unexpected network: %q", got.Network)
	}
	if got.MaxBodySize != 2*1024*1024 {
		t.Errorf("unexpected max body size: %d", got.MaxBodySize)
	}
}

func TestFromGlobalConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{"missing listen", func(c *config.Config) { c.Webhook.Listen = "" }},
		{"missing network", func(c *config.Config) { c.Network = "" }},
		{"bad body size", func(c *config.Config) { c.Webhook.MaxBodySize = "lots" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Network: "libera"}
			cfg.Webhook.Listen = "127.0.0.1:8089"
			tt.modify(cfg)

			if _, err := FromGlobalConfig(cfg); err == nil {
				t.Error("expected error")
			}
		})
	}

	if _, err := FromGlobalConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestParseMaxBodySize(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"", DefaultMaxBodySize, false},
		{"1048576", 1048576, false},
		{"512KB", 512 * 1024, false},
		{"1MB", 1024 * 1024, false},
		{"1GB", 1024 * 1024 * 1024, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"huge", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMaxBodySize(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseMaxBodySize(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseMaxBodySize(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}
