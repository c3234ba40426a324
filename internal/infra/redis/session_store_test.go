package redis

import (
	"context"
	"testing"
	"time"

	"abbrev-quiz-service/internal/game"
	miniredis "github.com/alicebob/miniredis/v2"
)

func TestSessionStoreSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	store := NewSessionStore(newClient(mr), time.Minute)

	store.Add(game.NewSession(game.Config{ID: "s-1", Category: "Medical"}))
	if !mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be set")
	}
	if v, _ := mr.Get("quiz:session:s-1"); v != "Medical" {
		t.Fatalf("expected category as marker value, got %q", v)
	}
	if _, ok := store.Get("s-1"); !ok {
		t.Fatalf("expected session present")
	}

	store.Delete("s-1")
	if mr.Exists("quiz:session:s-1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestKVStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	kv := NewKVStore(newClient(mr))

	if _, ok, err := kv.Get(ctx, "p1", "userSettings"); ok || err != nil {
		t.Fatalf("expected miss without error, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "p1", "highscore_Medical", "7"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, ok, err := kv.Get(ctx, "p1", "highscore_Medical"); err != nil || !ok || v != "7" {
		t.Fatalf("unexpected get %q %v %v", v, ok, err)
	}
	if !mr.Exists("quiz:player:p1:highscore_Medical") {
		t.Fatalf("expected namespaced key")
	}
}
