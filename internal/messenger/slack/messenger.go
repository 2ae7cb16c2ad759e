// Package slack delivers notifications through a Slack incoming webhook.
package slack

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

// Messenger posts messages to a Slack incoming webhook, overriding the
// target channel per message.
type Messenger struct {
	webhookURL string
	channels   []string
	httpClient *http.Client
}

func New(webhookURL string, channels []string) *Messenger {
	return &Messenger{
		webhookURL: webhookURL,
		channels:   channels,
		httpClient: http.DefaultClient,
	}
}

type slackMessage struct {
	Channel string `json:"channel,omitempty"`
	Text    string `json:"text"`
}

func (m *Messenger) Send(ctx context.Context, channel, text string) error {
	if m.webhookURL == "" {
		return messenger.ErrNotConfigured
	}

	msg := slackMessage{
		Channel: channel,
		Text:    stripIRCBold(text),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("slack marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("slack send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("slack API %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func (m *Messenger) Joined() []string {
	out := make([]string, len(m.channels))
	copy(out, m.channels)
	return out
}

// stripIRCBold converts \x02-delimited bold from the stock templates into
// Slack's *bold* markup.
func stripIRCBold(text string) string {
	if strings.Count(text, "\x02")%2 == 0 {
		return strings.ReplaceAll(text, "\x02", "*")
	}
	return strings.ReplaceAll(text, "\x02", "")
}
