package redis

import (
	"context"
	"testing"
	"time"
)

func TestIdempotencyStore_ReserveNewKey(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "txengine:")
	ctx := context.Background()

	reserved, cached, err := store.Reserve(ctx, "upload-1", time.Minute)
	if err != nil || !reserved || cached != nil {
		t.Fatalf("unexpected result: reserved=%v cached=%v err=%v", reserved, cached, err)
	}

	val, err := client.Get(ctx, "txengine:idempotency:upload-1").Result()
	if err != nil || val != pendingMarker {
		t.Fatalf("expected placeholder lock, got val=%s err=%v", val, err)
	}
}

func TestIdempotencyStore_ReserveInFlight(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("first reserve failed: %v", err)
	}

	reserved, cached, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil {
		t.Fatalf("second reserve failed: %v", err)
	}
	if reserved || cached != nil {
		t.Fatalf("expected in-flight result, got reserved=%v cached=%s", reserved, cached)
	}
}

func TestIdempotencyStore_CompleteThenReserveReturnsCached(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := store.Complete(ctx, "key", []byte("done"), time.Minute); err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	reserved, cached, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || reserved || string(cached) != "done" {
		t.Fatalf("expected cached response, got reserved=%v cached=%s err=%v", reserved, cached, err)
	}
}

func TestIdempotencyStore_Release(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := store.Release(ctx, "key"); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	reserved, _, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || !reserved {
		t.Fatalf("expected key to be claimable after release, got reserved=%v err=%v", reserved, err)
	}
}

func TestIdempotencyStore_TTL(t *testing.T) {
	client, mr := newTestRedisClient(t)
	defer mr.Close()
	defer client.Close()

	store := NewIdempotencyStore(client, "")
	ctx := context.Background()

	if _, _, err := store.Reserve(ctx, "key", time.Minute); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	reserved, _, err := store.Reserve(ctx, "key", time.Minute)
	if err != nil || !reserved {
		t.Fatalf("expected expired key to be claimable, got reserved=%v err=%v", reserved, err)
	}
}
