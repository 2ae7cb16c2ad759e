package events

import (
	"encoding/json"
	"testing"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(8)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.Publish(TypeDeliverySent, map[string]any{"channel": "#dev"})

	ev := <-ch
	if ev.Type != TypeDeliverySent {
		t.Errorf("Type = %q", ev.Type)
	}
	var data map[string]any
	if err := json.Unmarshal(ev.Data, &data); err != nil {
		t.Fatalf("bad data: %v", err)
	}
	if data["channel"] != "#dev" {
		t.Errorf("data = %v", data)
	}
}

func TestSnapshotSince(t *testing.T) {
	h := NewHub(4)
	for i := 0; i < 3; i++ {
		h.Publish(TypeWebhookIgnored, nil)
	}

	all := h.SnapshotSince(0)
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}

	tail := h.SnapshotSince(all[1].ID)
	if len(tail) != 1 || tail[0].ID != all[2].ID {
		t.Errorf("tail = %v", tail)
	}
}

func TestRingOverwritesOldest(t *testing.T) {
	h := NewHub(2)
	for i := 0; i < 5; i++ {
		h.Publish(TypeDeliverySent, nil)
	}

	snap := h.SnapshotSince(0)
	if len(snap) != 2 {
		t.Fatalf("len = %d, want 2", len(snap))
	}
	if snap[0].ID != 4 || snap[1].ID != 5 {
		t.Errorf("ids = %d, %d", snap[0].ID, snap[1].ID)
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(4)
	_, cancel := h.Subscribe()
	defer cancel()

	// Channel buffer is 32; overflow it without reading.
	for i := 0; i < 100; i++ {
		h.Publish(TypeDeliverySent, nil)
	}
	// Reaching here without deadlock is the assertion.
}
