// Package discord delivers notifications through Discord channel webhooks.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/taiga-contrib/relay/internal/messenger"
)

// Messenger posts messages to per-channel Discord webhooks. Discord scopes
// an incoming webhook to one channel, so the joined set is the key set of
// the webhook map.
type Messenger struct {
	webhooks   map[string]string
	httpClient *http.Client
}

func New(webhooks map[string]string) *Messenger {
	return &Messenger{
		webhooks:   webhooks,
		httpClient: http.DefaultClient,
	}
}

type discordMessage struct {
	Content string `json:"content"`
}

func (m *Messenger) Send(ctx context.Context, channel, text string) error {
	url, ok := m.webhooks[channel]
	if !ok || url == "" {
		return fmt.Errorf("channel %q: %w", channel, messenger.ErrNotConfigured)
	}

	body, err := json.Marshal(discordMessage{Content: stripIRCBold(text)})
	if err != nil {
		return fmt.Errorf("discord marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("discord API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (m *Messenger) Joined() []string {
	out := make([]string, 0, len(m.webhooks))
	for channel := range m.webhooks {
		out = append(out, channel)
	}
	return out
}

// stripIRCBold converts \x02-delimited bold from the stock templates into
// Discord's **bold** markdown.
func stripIRCBold(text string) string {
	if strings.Count(text, "\x02")%2 == 0 {
		return strings.ReplaceAll(text, "\x02", "**")
	}
	return strings.ReplaceAll(text, "\x02", "")
}
