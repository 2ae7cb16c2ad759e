// Package route matches parsed events against channel subscriptions and
// assembles the per-channel rendering context.
package route

import (
	"context"
	"log/slog"

	"github.com/taiga-contrib/relay/internal/event"
	"github.com/taiga-contrib/relay/internal/log"
	"github.com/taiga-contrib/relay/internal/subscription"
)

// Notification is one (channel, rendering context) pair produced by routing.
type Notification struct {
	Channel string
	// TemplateKey is the message template to render for this event.
	TemplateKey string
	// Context carries the fields templates resolve against: project, user,
	// url, the kind-specific payload, and change details when present.
	Context map[string]any
}

// Lister is the subscription lookup the router consults per channel.
type Lister interface {
	List(ctx context.Context, channel string) ([]subscription.Subscription, error)
}

type Router struct {
	registry Lister
	logger   *slog.Logger
}

func New(registry Lister) *Router {
	return &Router{
		registry: registry,
		logger:   log.WithComponent("route"),
	}
}

// Route fans the event out to every joined channel subscribed to its
// project. Each matching channel gets a context built from its own stored
// slug and base URL, so the same event renders differently per channel.
// A channel whose subscription list can't be read is skipped, not fatal.
func (r *Router) Route(ctx context.Context, ev *event.Event, joined []string) []Notification {
	var out []Notification
	for _, channel := range joined {
		subs, err := r.registry.List(ctx, channel)
		if err != nil {
			r.logger.Error("subscription lookup failed", "channel", channel, "error", err)
			continue
		}
		for _, sub := range subs {
			if sub.ProjectID != ev.ProjectID {
				continue
			}
			out = append(out, Notification{
				Channel:     channel,
				TemplateKey: ev.TemplateKey(),
				Context:     BuildContext(ev, sub),
			})
			break
		}
	}
	return out
}

// BuildContext assembles the rendering context for one subscription.
// project.name is the channel's slug, not anything from the payload: two
// channels subscribed to the same project may name it differently.
func BuildContext(ev *event.Event, sub subscription.Subscription) map[string]any {
	userName := ""
	if owner, ok := ev.Data["owner"].(map[string]any); ok {
		userName = event.Stringify(owner["name"])
	}

	renderCtx := map[string]any{
		"project": map[string]any{
			"id":   ev.ProjectID,
			"name": sub.Slug,
		},
		ev.Kind.String(): ev.Data,
		"user": map[string]any{
			"name": userName,
		},
		"url": ev.DeepLink(sub.BaseURL),
	}
	if ev.Change != nil {
		renderCtx["change"] = ev.Change
	}
	return renderCtx
}
