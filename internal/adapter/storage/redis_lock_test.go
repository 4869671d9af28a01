package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func getRedisClient(t *testing.T) *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	return client
}

func TestRedisLocker_AcquireRelease(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := "test_lock:acquire-release"
	client.Del(ctx, key)

	locker := NewRedisLocker(client)

	token, ok, err := locker.AcquireIfAbsent(ctx, key, 10*time.Second)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if !ok || token == "" {
		t.Fatalf("expected first acquire to succeed with a token, got ok=%v token=%q", ok, token)
	}

	_, ok, err = locker.AcquireIfAbsent(ctx, key, 10*time.Second)
	if err != nil {
		t.Fatalf("contended acquire failed: %v", err)
	}
	if ok {
		t.Error("expected contended acquire to fail while lock is held")
	}

	if err := locker.Release(ctx, key, token); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	token, ok, err = locker.AcquireIfAbsent(ctx, key, 10*time.Second)
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	if !ok {
		t.Error("expected acquire to succeed after release")
	}
	locker.Release(ctx, key, token)
}

func TestRedisLocker_ForeignTokenNotReleased(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := "test_lock:not-mine"
	client.Set(ctx, key, "someone-else", 10*time.Second)
	defer client.Del(ctx, key)

	locker := NewRedisLocker(client)
	if err := locker.Release(ctx, key, "not-the-holder"); err != nil {
		t.Fatalf("release with a foreign token must be a no-op: %v", err)
	}
	if err := locker.Release(ctx, key, ""); err != nil {
		t.Fatalf("release with an empty token must be a no-op: %v", err)
	}

	val, err := client.Get(ctx, key).Result()
	if err != nil || val != "someone-else" {
		t.Errorf("foreign lock was disturbed: val=%q err=%v", val, err)
	}
}

func TestRedisLocker_ExpiredLeaseNotReleased(t *testing.T) {
	client := getRedisClient(t)
	defer client.Close()

	ctx := context.Background()
	key := "test_lock:expired"
	client.Del(ctx, key)

	// One locker shared by both acquisitions, as in a single server process
	// handling two requests. The stale token must not be able to free the
	// re-acquired lease even though both came from the same locker.
	locker := NewRedisLocker(client)

	stale, ok, err := locker.AcquireIfAbsent(ctx, key, 100*time.Millisecond)
	if err != nil || !ok {
		t.Fatalf("acquire failed: ok=%v err=%v", ok, err)
	}

	// Let the lease lapse, then take the lock again.
	time.Sleep(150 * time.Millisecond)
	fresh, ok, err := locker.AcquireIfAbsent(ctx, key, 10*time.Second)
	if err != nil || !ok {
		t.Fatalf("takeover acquire failed: ok=%v err=%v", ok, err)
	}
	if fresh == stale {
		t.Fatal("re-acquisition reused the stale token")
	}

	// The stale holder's release must not delete the new holder's lock.
	if err := locker.Release(ctx, key, stale); err != nil {
		t.Fatalf("stale release failed: %v", err)
	}
	if exists, _ := client.Exists(ctx, key).Result(); exists != 1 {
		t.Error("stale holder released a lock it no longer owned")
	}

	if err := locker.Release(ctx, key, fresh); err != nil {
		t.Fatalf("release failed: %v", err)
	}
	if exists, _ := client.Exists(ctx, key).Result(); exists != 0 {
		t.Error("current holder failed to release its own lock")
	}
}
