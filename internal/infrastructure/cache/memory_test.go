package cache

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/verdictapp/backend/internal/domain"
)

func newTestCache(t *testing.T) *MemoryCache {
	t.Helper()
	cache := NewMemoryCache(time.Minute)
	t.Cleanup(func() { _ = cache.Close() })
	return cache
}

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value []byte
		ttl   time.Duration
	}{
		{
			name:  "store and retrieve bytes",
			key:   "candidates:1:upc:012345678905",
			value: []byte(`[{"id":1,"name":"Oat Milk"}]`),
			ttl:   time.Minute,
		},
		{
			name:  "store empty value",
			key:   "candidates:1:name:milk",
			value: []byte{},
			ttl:   time.Minute,
		},
		{
			name:  "store with short TTL",
			key:   "recalls:milk:25",
			value: []byte(`[]`),
			ttl:   time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			if tt.ttl < 10*time.Millisecond {
				time.Sleep(10 * time.Millisecond)
				if _, err := cache.Get(ctx, tt.key); err != domain.ErrCacheMiss {
					t.Errorf("Expected cache miss after expiration, got error = %v", err)
				}
				return
			}

			got, err := cache.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !bytes.Equal(got, tt.value) {
				t.Errorf("Get() = %s, want %s", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_SetCopiesValue(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	value := []byte("original")
	if err := cache.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	copy(value, "mutated!")

	got, err := cache.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "original" {
		t.Errorf("Get() = %s, want original", got)
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := newTestCache(t)

	_, err := cache.Get(context.Background(), "non-existent-key")
	if err != domain.ErrCacheMiss {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); err != domain.ErrCacheMiss {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Exists(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	exists, err := cache.Exists(ctx, "exists-test")
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v; want false, nil for non-existent key", exists, err)
	}

	if err := cache.Set(ctx, "exists-test", []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	exists, err = cache.Exists(ctx, "exists-test")
	if err != nil || !exists {
		t.Errorf("Exists() = %v, %v; want true, nil after setting value", exists, err)
	}

	if err := cache.Set(ctx, "short-ttl", []byte("value"), time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	exists, err = cache.Exists(ctx, "short-ttl")
	if err != nil || exists {
		t.Errorf("Exists() = %v, %v; want false, nil after expiration", exists, err)
	}
}

func TestMemoryCache_RemoveExpired(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	_ = cache.Set(ctx, "live", []byte("1"), time.Minute)
	_ = cache.Set(ctx, "dead", []byte("2"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	cache.removeExpired()

	if size := cache.Size(); size != 1 {
		t.Errorf("Size() = %d, want 1 after cleanup", size)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := cache.Set(ctx, fmt.Sprintf("key-%d", i), []byte{byte(i)}, time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}
	if size := cache.Size(); size != 5 {
		t.Fatalf("Size() = %d, want 5 before clear", size)
	}

	cache.Clear()

	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d, want 0 after clear", size)
	}
}

func TestMemoryCache_Close(t *testing.T) {
	cache := NewMemoryCache(time.Millisecond)

	if err := cache.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := newTestCache(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", id)
			if err := cache.Set(ctx, key, []byte(key), time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
		}(i)
	}
	wg.Wait()
}
