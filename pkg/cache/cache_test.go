package cache

import (
	"context"
	"testing"
	"time"
)

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	if err := mc.Set(ctx, "obj", []payload{{"mvrv", 2.3}}, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got []payload
	if err := mc.Get(ctx, "obj", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Name != "mvrv" || got[0].Value != 2.3 {
		t.Fatalf("unexpected value %+v", got)
	}

	_ = mc.Set(ctx, "str", "raw", time.Minute)
	var s string
	if err := mc.Get(ctx, "str", &s); err != nil || s != "raw" {
		t.Fatalf("string round trip: %q %v", s, err)
	}
}

func TestMemoryCacheMissAndExpiry(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	var v payload
	if err := mc.Get(ctx, "missing", &v); !IsMiss(err) {
		t.Fatalf("expected miss, got %v", err)
	}

	_ = mc.Set(ctx, "short", payload{}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if err := mc.Get(ctx, "short", &v); !IsMiss(err) {
		t.Fatalf("expected expired miss, got %v", err)
	}
	if ok, _ := mc.Exists(ctx, "short"); ok {
		t.Fatal("expired key reported as existing")
	}
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache(WithMemoryMaxSize(2))
	defer mc.Close()

	_ = mc.Set(ctx, "a", 1, time.Minute)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "b", 2, time.Minute)
	time.Sleep(time.Millisecond)
	var n int
	_ = mc.Get(ctx, "a", &n)
	time.Sleep(time.Millisecond)
	_ = mc.Set(ctx, "c", 3, time.Minute)

	if ok, _ := mc.Exists(ctx, "b"); ok {
		t.Fatal("b should have been evicted")
	}
	for _, k := range []string{"a", "c"} {
		if ok, _ := mc.Exists(ctx, k); !ok {
			t.Fatalf("%s should remain", k)
		}
	}
}

func TestMemoryCacheIncrementAndLock(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for i := int64(1); i <= 3; i++ {
		n, err := mc.Increment(ctx, "hits")
		if err != nil || n != i {
			t.Fatalf("increment %d: %d %v", i, n, err)
		}
	}

	ok, _ := mc.TryLock(ctx, "refresh", time.Minute)
	if !ok {
		t.Fatal("first lock should succeed")
	}
	if ok, _ := mc.TryLock(ctx, "refresh", time.Minute); ok {
		t.Fatal("second lock should fail")
	}
	_ = mc.Unlock(ctx, "refresh")
	if ok, _ := mc.TryLock(ctx, "refresh", time.Minute); !ok {
		t.Fatal("lock after unlock should succeed")
	}
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	_ = mc.Set(ctx, "source:mempool", 1, time.Minute)
	_ = mc.Set(ctx, "source:onchain", 1, time.Minute)
	_ = mc.Set(ctx, "score:latest", 1, time.Minute)

	if err := mc.DeleteByPattern(ctx, "source:*"); err != nil {
		t.Fatalf("delete by pattern: %v", err)
	}
	if ok, _ := mc.Exists(ctx, "source:mempool", "source:onchain"); ok {
		t.Fatal("source keys should be gone")
	}
	if ok, _ := mc.Exists(ctx, "score:latest"); !ok {
		t.Fatal("unrelated key removed")
	}
}

func TestLayeredCacheReadsThrough(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryCache()
	lc := NewLayeredCache(remote)
	defer lc.Close()

	_ = remote.Set(ctx, "k", payload{"nupl", 0.45}, time.Minute)

	var got payload
	if err := lc.Get(ctx, "k", &got); err != nil || got.Name != "nupl" {
		t.Fatalf("read through: %+v %v", got, err)
	}

	_ = remote.Delete(ctx, "k")
	got = payload{}
	if err := lc.Get(ctx, "k", &got); err != nil || got.Value != 0.45 {
		t.Fatalf("L1 should still serve the value: %+v %v", got, err)
	}

	if err := lc.Set(ctx, "w", "x", time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var s string
	if err := remote.Get(ctx, "w", &s); err != nil || s != "x" {
		t.Fatalf("write-through missing: %q %v", s, err)
	}
}

func TestGenerateKey(t *testing.T) {
	if got := GenerateKey("cyclescope", "source", "mempool"); got != "cyclescope:source:mempool" {
		t.Fatalf("GenerateKey = %q", got)
	}
	if got := GenerateKey("solo"); got != "solo" {
		t.Fatalf("GenerateKey = %q", got)
	}
}

func TestMemoryCacheCleanupSweepsExpired(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(5 * time.Millisecond))
	defer mc.Close()
	_ = mc.Set(context.Background(), "source:sentiment", "x", time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mc.mutex.Lock()
		n := len(mc.data)
		mc.mutex.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("expired entry never swept")
}

func TestMemoryCacheIgnoresZeroCleanup(t *testing.T) {
	mc := NewMemoryCache(WithMemoryCleanup(0))
	defer mc.Close()
	if err := mc.Set(context.Background(), "k", "v", time.Minute); err != nil {
		t.Fatal(err)
	}
}
