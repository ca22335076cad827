package memcache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := New(time.Minute)

	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	value := []byte("payload")
	if err := c.Set(ctx, "k", value, 60); err != nil {
		t.Fatal(err)
	}
	value[0] = 'X'

	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("stored value changed with the caller's slice: %q", got)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected miss after delete, got %v", err)
	}
}

func TestCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := New(time.Minute)
	c.cache.Set("short", []byte("x"), time.Millisecond)

	time.Sleep(5 * time.Millisecond)
	if _, err := c.Get(ctx, "short"); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected expired entry to miss, got %v", err)
	}
}
