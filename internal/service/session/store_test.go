package session_test

import (
	"context"
	"testing"

	"github.com/kasaops/kasa-backend/internal/model/ussd"
	"github.com/kasaops/kasa-backend/internal/service/session"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := session.NewMemoryStore()
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("absent session: ok=%v err=%v", ok, err)
	}

	state := ussd.SessionState{
		Flow: ussd.FlowRegistration,
		Step: ussd.StepLocation,
		Name: "Alice",
	}
	if err := store.Set(ctx, "s1", state); err != nil {
		t.Fatalf("Set err: %v", err)
	}

	got, ok, err := store.Get(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got != state {
		t.Fatalf("state mismatch: got %+v want %+v", got, state)
	}

	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear err: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "s1"); ok {
		t.Fatal("cleared session still present")
	}

	// Clearing an absent session stays a no-op.
	if err := store.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear absent err: %v", err)
	}
}
