package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/kasaops/kasa-backend/internal/model/ussd"
	"github.com/kasaops/kasa-backend/internal/service/session"
)

func newRedisStore(t *testing.T) (*session.RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return session.NewRedisStore(client, time.Minute), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, _ := newRedisStore(t)
	ctx := context.Background()

	if _, ok, err := store.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("absent session: ok=%v err=%v", ok, err)
	}

	state := ussd.SessionState{
		Flow:     ussd.FlowRegistration,
		Step:     ussd.StepConfirmation,
		Name:     "Alice",
		Location: "Nairobi",
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
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	if err := store.Set(ctx, "s1", ussd.SessionState{Flow: ussd.FlowRegistration, Step: ussd.StepName}); err != nil {
		t.Fatalf("Set err: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	// Expiry behaves exactly like Clear: back to the menu root.
	if _, ok, err := store.Get(ctx, "s1"); err != nil || ok {
		t.Fatalf("expired session: ok=%v err=%v", ok, err)
	}
}
