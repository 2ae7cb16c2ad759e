package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/taiga-contrib/relay/internal/events"
	"github.com/taiga-contrib/relay/internal/subscription"
)

// mockStore implements SubscriptionStore for testing.
type mockStore struct {
	listFunc   func(ctx context.Context, channel string) ([]subscription.Subscription, error)
	addFunc    func(ctx context.Context, channel, projectID, slug, baseURL string) error
	removeFunc func(ctx context.Context, channel, projectID string) error
}

func (m *mockStore) List(ctx context.Context, channel string) ([]subscription.Subscription, error) {
	if m.listFunc == nil {
		return nil, nil
	}
	return m.listFunc(ctx, channel)
}

func (m *mockStore) Add(ctx context.Context, channel, projectID, slug, baseURL string) error {
	if m.addFunc == nil {
		return nil
	}
	return m.addFunc(ctx, channel, projectID, slug, baseURL)
}

func (m *mockStore) Remove(ctx context.Context, channel, projectID string) error {
	if m.removeFunc == nil {
		return nil
	}
	return m.removeFunc(ctx, channel, projectID)
}

const testToken = "test-token-123"

func newTestServer(store *mockStore) *Server {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	config := Config{
		Listen:  "localhost:8090",
		Token:   testToken,
		Network: "libera",
	}
	hub := events.NewHub(10)
	joined := func() []string { return []string{"#dev", "#ops"} }
	return New(config, store, joined, hub, logger)
}

func doRequest(srv *Server, method, path string, body io.Reader, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&mockStore{})

	rec := doRequest(srv, http.MethodGet, "/healthz", nil, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
	if resp.Network != "libera" {
		t.Errorf("expected network libera, got %q", resp.Network)
	}
	if resp.Channels != 2 {
		t.Errorf("expected 2 channels, got %d", resp.Channels)
	}
}

func TestAuthRequired(t *testing.T) {
	srv := newTestServer(&mockStore{})

	tests := []struct {
		name  string
		token string
	}{
		{"no token", ""},
		{"wrong token", "not-the-token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodGet, "/healthz", nil, tt.token)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401, got %d", rec.Code)
			}
		})
	}
}

func TestListProjects(t *testing.T) {
	store := &mockStore{
		listFunc: func(ctx context.Context, channel string) ([]subscription.Subscription, error) {
			if channel != "#dev" {
				t.Errorf("expected channel #dev, got %q", channel)
			}
			return []subscription.Subscription{
				{Channel: "#dev", ProjectID: "42", Slug: "acme", BaseURL: "https://tree.taiga.io"},
			}, nil
		},
	}
	srv := newTestServer(store)

	rec := doRequest(srv, http.MethodGet, "/channels/%23dev/projects", nil, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ProjectListResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Channel != "#dev" {
		t.Errorf("expected channel #dev, got %q", resp.Channel)
	}
	if len(resp.Projects) != 1 || resp.Projects[0].Slug != "acme" {
		t.Errorf("unexpected projects: %+v", resp.Projects)
	}
}

func TestListProjectsEmpty(t *testing.T) {
	srv := newTestServer(&mockStore{})

	rec := doRequest(srv, http.MethodGet, "/channels/%23dev/projects", nil, testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"projects":[]`) {
		t.Errorf("expected empty projects array, got %s", rec.Body.String())
	}
}

func TestAddProject(t *testing.T) {
	added := false
	store := &mockStore{
		addFunc: func(ctx context.Context, channel, projectID, slug, baseURL string) error {
			added = true
			if channel != "#dev" || projectID != "42" || slug != "acme" {
				t.Errorf("unexpected add: %q %q %q", channel, projectID, slug)
			}
			return nil
		},
	}
	srv := newTestServer(store)

	body := bytes.NewBufferString(`{"project_id":"42","slug":"acme","url":"https://tree.taiga.io"}`)
	rec := doRequest(srv, http.MethodPost, "/channels/%23dev/projects", body, testToken)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if !added {
		t.Error("expected Add to be called")
	}

	// A subscription.added event should be published.
	snapshot := srv.hub.SnapshotSince(0)
	if len(snapshot) != 1 || snapshot[0].Type != events.TypeSubscriptionAdded {
		t.Errorf("expected one subscription.added event, got %+v", snapshot)
	}
}

func TestAddProjectDuplicate(t *testing.T) {
	store := &mockStore{
		addFunc: func(ctx context.Context, channel, projectID, slug, baseURL string) error {
			return subscription.ErrAlreadyExists
		},
	}
	srv := newTestServer(store)

	body := bytes.NewBufferString(`{"project_id":"42","slug":"acme","url":"https://tree.taiga.io"}`)
	rec := doRequest(srv, http.MethodPost, "/channels/%23dev/projects", body, testToken)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestAddProjectInvalidBody(t *testing.T) {
	srv := newTestServer(&mockStore{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed JSON", `{not json`},
		{"missing project_id", `{"slug":"acme","url":"https://x"}`},
		{"missing slug", `{"project_id":"42","url":"https://x"}`},
		{"missing url", `{"project_id":"42","slug":"acme"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/channels/%23dev/projects", strings.NewReader(tt.body), testToken)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestRemoveProject(t *testing.T) {
	removed := false
	store := &mockStore{
		removeFunc: func(ctx context.Context, channel, projectID string) error {
			removed = true
			if channel != "#dev" || projectID != "42" {
				t.Errorf("unexpected remove: %q %q", channel, projectID)
			}
			return nil
		},
	}
	srv := newTestServer(store)

	rec := doRequest(srv, http.MethodDelete, "/channels/%23dev/projects/42", nil, testToken)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if !removed {
		t.Error("expected Remove to be called")
	}

	snapshot := srv.hub.SnapshotSince(0)
	if len(snapshot) != 1 || snapshot[0].Type != events.TypeSubscriptionRemoved {
		t.Errorf("expected one subscription.removed event, got %+v", snapshot)
	}
}

func TestRemoveProjectNotFound(t *testing.T) {
	store := &mockStore{
		removeFunc: func(ctx context.Context, channel, projectID string) error {
			return subscription.ErrNotFound
		},
	}
	srv := newTestServer(store)

	rec := doRequest(srv, http.MethodDelete, "/channels/%23dev/projects/99", nil, testToken)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestEventsSnapshotFraming(t *testing.T) {
	srv := newTestServer(&mockStore{})
	srv.hub.Publish(events.TypeDeliverySent, map[string]any{"channel": "#dev"})

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	ctx, cancel := context.WithCancel(req.Context())
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.setupRoutes().ServeHTTP(rec, req)
		close(done)
	}()

	// The snapshot is written before the handler blocks on the
	// subscription channel, so cancelling after publish is enough.
	cancel()
	<-done

	body := rec.Body.String()
	if !strings.Contains(body, "event: delivery.sent") {
		t.Errorf("expected delivery.sent frame, got %q", body)
	}
	if !strings.Contains(body, "id: 1") {
		t.Errorf("expected id line, got %q", body)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected text/event-stream, got %q", ct)
	}
}

func TestParseLastEventID(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"5", 5},
		{"-1", 0},
		{"junk", 0},
	}
	for _, tt := range tests {
		if got := parseLastEventID(tt.in); got != tt.want {
			t.Errorf("parseLastEventID(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
