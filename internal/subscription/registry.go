// Package subscription manages each channel's registered Taiga projects.
package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/taiga-contrib/relay/internal/settings"
)

// projectsKey is the channel setting under which the project map is stored,
// a JSON object of project id -> {slug, url}.
const projectsKey = "projects"

var (
	// ErrAlreadyExists is returned by Add when the project id is already
	// registered in the channel.
	ErrAlreadyExists = errors.New("project already registered")
	// ErrNotFound is returned by Remove when the project id is not
	// registered in the channel.
	ErrNotFound = errors.New("project not registered")
)

// Subscription is one project's registration within one channel. The same
// project may be registered in several channels, each with its own slug and
// base URL.
type Subscription struct {
	Channel   string `json:"-"`
	ProjectID string `json:"-"`
	Slug      string `json:"slug"`
	BaseURL   string `json:"url"`
}

type Registry struct {
	settings *settings.Store
}

func NewRegistry(st *settings.Store) *Registry {
	return &Registry{settings: st}
}

// List returns the channel's subscriptions, sorted by project id for stable
// output. A channel with nothing registered yields an empty slice.
func (r *Registry) List(ctx context.Context, channel string) ([]Subscription, error) {
	raw, err := r.settings.String(ctx, channel, projectsKey, "{}")
	if err != nil {
		return nil, err
	}

	stored, err := decodeProjects(raw)
	if err != nil {
		return nil, fmt.Errorf("channel %q: %w", channel, err)
	}

	subs := make([]Subscription, 0, len(stored))
	for id, entry := range stored {
		subs = append(subs, Subscription{
			Channel:   channel,
			ProjectID: id,
			Slug:      entry.Slug,
			BaseURL:   entry.BaseURL,
		})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].ProjectID < subs[j].ProjectID })
	return subs, nil
}

// Add registers a project in the channel. The existence check and the write
// happen inside one settings transaction, so concurrent adds cannot clobber
// each other.
func (r *Registry) Add(ctx context.Context, channel, projectID, slug, baseURL string) error {
	if projectID == "" || slug == "" || baseURL == "" {
		return fmt.Errorf("project id, slug and url must not be empty")
	}

	return r.settings.Update(ctx, channel, projectsKey, func(cur string, ok bool) (string, error) {
		if !ok {
			cur = "{}"
		}
		stored, err := decodeProjects(cur)
		if err != nil {
			return "", fmt.Errorf("channel %q: %w", channel, err)
		}
		if _, exists := stored[projectID]; exists {
			return "", fmt.Errorf("project %q in channel %q: %w", projectID, channel, ErrAlreadyExists)
		}
		stored[projectID] = Subscription{Slug: slug, BaseURL: baseURL}
		return encodeProjects(stored)
	})
}

// Remove deletes a project registration from the channel.
func (r *Registry) Remove(ctx context.Context, channel, projectID string) error {
	return r.settings.Update(ctx, channel, projectsKey, func(cur string, ok bool) (string, error) {
		if !ok {
			cur = "{}"
		}
		stored, err := decodeProjects(cur)
		if err != nil {
			return "", fmt.Errorf("channel %q: %w", channel, err)
		}
		if _, exists := stored[projectID]; !exists {
			return "", fmt.Errorf("project %q in channel %q: %w", projectID, channel, ErrNotFound)
		}
		delete(stored, projectID)
		return encodeProjects(stored)
	})
}

func decodeProjects(raw string) (map[string]Subscription, error) {
	if raw == "" {
		raw = "{}"
	}
	var stored map[string]Subscription
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode stored projects: %w", err)
	}
	if stored == nil {
		stored = map[string]Subscription{}
	}
	return stored, nil
}

func encodeProjects(stored map[string]Subscription) (string, error) {
	b, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode projects: %w", err)
	}
	return string(b), nil
}
