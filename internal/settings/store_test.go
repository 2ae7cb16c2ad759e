package settings

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/taiga-contrib/relay/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func TestGetUnset(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.Get(ctx, "#taiga", "secret-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("unset key should report ok=false")
	}
}

func TestSetAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "#taiga", "secret-key", "hunter2"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	value, ok, err := s.Get(ctx, "#taiga", "secret-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || value != "hunter2" {
		t.Errorf("Get = (%q, %v), want (hunter2, true)", value, ok)
	}

	// Overwrite.
	if err := s.Set(ctx, "#taiga", "secret-key", "changed"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, _, _ = s.Get(ctx, "#taiga", "secret-key")
	if value != "changed" {
		t.Errorf("value after overwrite = %q, want %q", value, "changed")
	}
}

func TestChannelsAreIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Set(ctx, "#dev", "secret-key", "a"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set(ctx, "#ops", "secret-key", "b"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, _ := s.String(ctx, "#dev", "secret-key", "")
	if got != "a" {
		t.Errorf("#dev secret = %q, want a", got)
	}
	got, _ = s.String(ctx, "#ops", "secret-key", "")
	if got != "b" {
		t.Errorf("#ops secret = %q, want b", got)
	}
}

func TestStringFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	got, err := s.String(ctx, "#taiga", "format.issue-created", "default template")
	if err != nil {
		t.Fatalf("String: %v", err)
	}
	if got != "default template" {
		t.Errorf("String = %q, want fallback", got)
	}
}

func TestBool(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Unset -> fallback (verify-signature defaults to true).
	got, err := s.Bool(ctx, "#taiga", "verify-signature", true)
	if err != nil {
		t.Fatalf("Bool: %v", err)
	}
	if !got {
		t.Error("unset bool should return fallback true")
	}

	if err := s.Set(ctx, "#taiga", "verify-signature", "false"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ = s.Bool(ctx, "#taiga", "verify-signature", true)
	if got {
		t.Error("stored false should win over fallback")
	}

	// Garbage stored value falls back.
	if err := s.Set(ctx, "#taiga", "verify-signature", "maybe"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ = s.Bool(ctx, "#taiga", "verify-signature", true)
	if !got {
		t.Error("unparsable bool should return fallback")
	}
}

func TestUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Update(ctx, "#taiga", "projects", func(cur string, ok bool) (string, error) {
		if ok {
			t.Error("first update should see no stored value")
		}
		return `{"5":{"slug":"acme"}}`, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	err = s.Update(ctx, "#taiga", "projects", func(cur string, ok bool) (string, error) {
		if !ok || cur != `{"5":{"slug":"acme"}}` {
			t.Errorf("second update saw (%q, %v)", cur, ok)
		}
		return cur, nil
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
}

func TestUpdateAborted(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	sentinel := errors.New("no thanks")
	err := s.Update(ctx, "#taiga", "projects", func(cur string, ok bool) (string, error) {
		return "should not be written", sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("Update error = %v, want sentinel", err)
	}

	_, ok, _ := s.Get(ctx, "#taiga", "projects")
	if ok {
		t.Error("aborted update must not write")
	}
}
