package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/taiga-contrib/relay/internal/api"
	"github.com/taiga-contrib/relay/internal/config"
	"github.com/taiga-contrib/relay/internal/events"
	"github.com/taiga-contrib/relay/internal/format"
	"github.com/taiga-contrib/relay/internal/lock"
	"github.com/taiga-contrib/relay/internal/log"
	"github.com/taiga-contrib/relay/internal/messenger"
	"github.com/taiga-contrib/relay/internal/messenger/discord"
	"github.com/taiga-contrib/relay/internal/messenger/slack"
	"github.com/taiga-contrib/relay/internal/route"
	"github.com/taiga-contrib/relay/internal/settings"
	"github.com/taiga-contrib/relay/internal/storage"
	"github.com/taiga-contrib/relay/internal/subscription"
	"github.com/taiga-contrib/relay/internal/tui"
	"github.com/taiga-contrib/relay/internal/webhook"
)

var (
	version   = "0.1.0-dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	os.Exit(runCLI(os.Args[1:]))
}

func runCLI(cliArgs []string) int {
	if len(cliArgs) < 1 {
		printUsage()
		return 1
	}

	cmd := cliArgs[0]
	args := cliArgs[1:]

	switch cmd {
	case "start":
		return runStart(args)
	case "watch":
		return runWatch(args)
	case "version", "--version":
		return runVersion(args)
	case "help", "--help", "-h":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		return 1
	}
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel)
	logger := log.WithComponent("main")
	logger.Info("taiga-relay starting", "version", version, "config", *configPath)

	instanceLock, err := lock.Acquire(cfg.State.Path + ".lock")
	if err != nil {
		logger.Error("failed to acquire instance lock (another relay may be running)", "error", err)
		return 1
	}
	defer instanceLock.Release()

	ctx := context.Background()
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	st := settings.NewStore(db)
	registry := subscription.NewRegistry(st)
	formatter := format.New(st)
	router := route.New(registry)
	hub := events.NewHub(256)

	m, err := buildMessenger(cfg)
	if err != nil {
		logger.Error("failed to configure messenger", "type", cfg.Messenger.Type, "error", err)
		return 1
	}
	logger.Info("messenger configured", "type", cfg.Messenger.Type, "channels", len(m.Joined()))

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhook server", "error", err)
		return 1
	}

	webhookServer := webhook.New(webhookConfig, st, router, formatter, m, hub, log.WithComponent("webhook"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 2)

	go func() {
		if err := webhookServer.Start(ctx); err != nil && err != context.Canceled {
			errCh <- fmt.Errorf("webhook: %w", err)
		}
	}()
	logger.Info("webhook server enabled", "listen", webhookConfig.Listen, "network", webhookConfig.Network)

	if cfg.API.Enabled {
		apiConfig := api.Config{
			Listen:  cfg.API.Listen,
			Token:   cfg.API.Token,
			Network: cfg.Network,
		}
		apiServer := api.New(apiConfig, registry, m.Joined, hub, log.WithComponent("api"))
		go func() {
			if err := apiServer.Start(ctx); err != nil && err != context.Canceled {
				errCh <- fmt.Errorf("api: %w", err)
			}
		}()
		logger.Info("API server enabled", "listen", cfg.API.Listen)
	}

	logger.Info("taiga-relay running (press Ctrl+C to stop)")

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	case err := <-errCh:
		logger.Error("component failed", "error", err)
		cancel()
		return 1
	}

	logger.Info("taiga-relay stopped")
	return 0
}

// buildMessenger instantiates the configured chat backend.
func buildMessenger(cfg *config.Config) (messenger.Messenger, error) {
	switch cfg.Messenger.Type {
	case "slack":
		return slack.New(cfg.Messenger.WebhookURL, cfg.Messenger.Channels), nil
	case "discord":
		return discord.New(cfg.Messenger.ChannelWebhooks), nil
	default:
		return nil, fmt.Errorf("unsupported messenger type %q", cfg.Messenger.Type)
	}
}

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	apiURL := fs.String("api-url", "http://localhost:8090", "Relay API URL")
	token := fs.String("token", os.Getenv("TAIGA_RELAY_TOKEN"), "API bearer token")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	if *token == "" {
		fmt.Fprintln(os.Stderr, "Error: API token required. Use --token or TAIGA_RELAY_TOKEN env var.")
		return 1
	}

	m := tui.NewWatch(*apiURL, *token)
	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "TUI error: %v\n", err)
		return 1
	}
	return 0
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(args []string) int {
	fs := flag.NewFlagSet("version", flag.ContinueOnError)
	jsonOut := fs.Bool("json", false, "Output version metadata as JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	info := currentVersionInfo()

	if *jsonOut {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render version JSON: %v\n", err)
			return 1
		}
		fmt.Println(string(data))
		return 0
	}

	fmt.Printf("taiga-relay %s\n", info.Version)
	fmt.Printf("commit: %s\n", info.Commit)
	fmt.Printf("built_at: %s\n", info.BuildTime)
	return 0
}

func currentVersionInfo() versionInfo {
	info := versionInfo{
		Version:   strings.TrimSpace(version),
		Commit:    "unknown",
		BuildTime: "unknown",
	}

	if info.Version == "" {
		info.Version = "0.0.0-dev"
	}

	resolvedCommit := strings.TrimSpace(gitCommit)
	if resolvedCommit == "" || resolvedCommit == "unknown" {
		resolvedCommit = strings.TrimSpace(readBuildSetting("vcs.revision"))
	}
	if resolvedCommit != "" {
		info.Commit = shortenCommit(resolvedCommit)
	}

	resolvedBuildTime := strings.TrimSpace(buildDate)
	if resolvedBuildTime == "" || resolvedBuildTime == "unknown" {
		resolvedBuildTime = strings.TrimSpace(readBuildSetting("vcs.time"))
	}
	if normalizedBuildTime, ok := normalizeBuildTimeUTC(resolvedBuildTime); ok {
		info.BuildTime = normalizedBuildTime
	}

	return info
}

func shortenCommit(commit string) string {
	if len(commit) <= 12 {
		return commit
	}
	return commit[:12]
}

func normalizeBuildTimeUTC(raw string) (string, bool) {
	if raw == "" || raw == "unknown" {
		return "", false
	}

	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", false
	}

	return t.UTC().Format(time.RFC3339), true
}

func readBuildSetting(key string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == key {
			return setting.Value
		}
	}
	return ""
}

func printUsage() {
	fmt.Print(`taiga-relay - Taiga webhook to chat relay

Usage:
  taiga-relay <command> [flags]

Commands:
  start     Start the relay service in foreground
  watch     Real-time delivery monitoring TUI
  version   Show version information
  help      Show this help message

Start Flags:
  --config PATH    Configuration file (default: config.yaml)

Watch Flags:
  --api-url URL    Relay API URL (default: http://localhost:8090)
  --token KEY      API bearer token (or TAIGA_RELAY_TOKEN env var)

Use 'taiga-relay <command> --help' for command-specific flags.
`)
}
