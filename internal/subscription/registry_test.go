package subscription

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/taiga-contrib/relay/internal/settings"
	"github.com/taiga-contrib/relay/internal/storage"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewRegistry(settings.NewStore(db))
}

func TestListEmptyChannel(t *testing.T) {
	r := newTestRegistry(t)

	subs, err := r.List(context.Background(), "#empty")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("List = %v, want empty", subs)
	}
}

func TestAddAndList(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if err := r.Add(ctx, "#taiga", "5", "acme", "https://t/project/acme"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(ctx, "#taiga", "12", "widgets", "https://t/project/widgets"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	subs, err := r.List(ctx, "#taiga")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("len(subs) = %d, want 2", len(subs))
	}
	// Sorted by project id.
	if subs[0].ProjectID != "12" || subs[1].ProjectID != "5" {
		t.Errorf("order = %q, %q", subs[0].ProjectID, subs[1].ProjectID)
	}
	if subs[1].Slug != "acme" || subs[1].BaseURL != "https://t/project/acme" {
		t.Errorf("subscription = %+v", subs[1])
	}
	if subs[1].Channel != "#taiga" {
		t.Errorf("Channel = %q", subs[1].Channel)
	}
}

func TestAddDuplicate(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if err := r.Add(ctx, "#taiga", "5", "acme", "https://t/project/acme"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	err := r.Add(ctx, "#taiga", "5", "other", "https://t/project/other")
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Add error = %v, want ErrAlreadyExists", err)
	}

	// The failed add must not have touched the stored subscription.
	subs, _ := r.List(ctx, "#taiga")
	if len(subs) != 1 || subs[0].Slug != "acme" {
		t.Errorf("subs after failed add = %+v", subs)
	}
}

func TestSameProjectAcrossChannels(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	// No cross-channel uniqueness: each channel keeps its own slug/url.
	if err := r.Add(ctx, "#dev", "5", "acme", "https://t/project/acme"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Add(ctx, "#ops", "5", "acme-ops", "https://other/project/acme-ops"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	devSubs, _ := r.List(ctx, "#dev")
	opsSubs, _ := r.List(ctx, "#ops")
	if devSubs[0].Slug != "acme" || opsSubs[0].Slug != "acme-ops" {
		t.Errorf("slugs = %q, %q", devSubs[0].Slug, opsSubs[0].Slug)
	}
}

func TestRemove(t *testing.T) {
	r := newTestRegistry(t)
	ctx := context.Background()

	if err := r.Add(ctx, "#taiga", "5", "acme", "https://t/project/acme"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := r.Remove(ctx, "#taiga", "5"); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	subs, _ := r.List(ctx, "#taiga")
	if len(subs) != 0 {
		t.Errorf("subs after remove = %+v", subs)
	}
}

func TestRemoveNotRegistered(t *testing.T) {
	r := newTestRegistry(t)

	err := r.Remove(context.Background(), "#taiga", "5")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Remove error = %v, want ErrNotFound", err)
	}
}
