package cache

import (
	"context"
	"encoding/binary"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/getcharzp/go-sam/engine"
	"github.com/getcharzp/go-sam/segment"
	"github.com/redis/go-redis/v9"
)

func testResult(t *testing.T) *segment.EncodeResult {
	t.Helper()
	emb, err := engine.NewTensor([]int64{1, 2, 2, 2}, []float32{0, 1.5, -2, 3.25, 4, 5, 6, -7.125})
	if err != nil {
		t.Fatal(err)
	}
	res, err := segment.RestoreEncodeResult(emb, segment.Size{Width: 640, Height: 480})
	if err != nil {
		t.Fatal(err)
	}
	return res
}

func assertSameResult(t *testing.T, got, want *segment.EncodeResult) {
	t.Helper()
	if got == nil {
		t.Fatal("expected a cached result")
	}
	if got.OriginalSize() != want.OriginalSize() {
		t.Errorf("size = %v, want %v", got.OriginalSize(), want.OriginalSize())
	}
	g, w := got.Embedding(), want.Embedding()
	if len(g.Shape) != len(w.Shape) || len(g.Data) != len(w.Data) {
		t.Fatalf("embedding %v/%d, want %v/%d", g.Shape, len(g.Data), w.Shape, len(w.Data))
	}
	for i := range w.Data {
		if g.Data[i] != w.Data[i] {
			t.Fatalf("data[%d] = %v, want %v", i, g.Data[i], w.Data[i])
		}
	}
}

func TestUnmarshal_Invalid(t *testing.T) {
	if _, err := Unmarshal([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short buffer")
	}

	b, err := Marshal(testResult(t))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Unmarshal(b[:len(b)-2]); err == nil {
		t.Error("expected error for truncated data")
	}
	if _, err := Unmarshal(b[:len(b)-4]); err == nil {
		t.Error("expected error for data/shape mismatch")
	}

	// 维度乘积溢出后不能与空数据匹配
	overflow := make([]byte, 12+2*8)
	binary.LittleEndian.PutUint32(overflow[0:], 4)
	binary.LittleEndian.PutUint32(overflow[4:], 4)
	binary.LittleEndian.PutUint32(overflow[8:], 2)
	binary.LittleEndian.PutUint64(overflow[12:], 1<<32)
	binary.LittleEndian.PutUint64(overflow[20:], 1<<32)
	if _, err := Unmarshal(overflow); err == nil {
		t.Error("expected error for overflowing shape")
	}
}

func TestRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	store := NewRedis(&redis.Options{Addr: mr.Addr()}, time.Hour)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	got, err := store.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("miss = (%v, %v), want (nil, nil)", got, err)
	}

	want := testResult(t)
	if err := store.Set(ctx, "abc", want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if !mr.Exists(Key("abc")) {
		t.Fatalf("key %q not written", Key("abc"))
	}
	if ttl := mr.TTL(Key("abc")); ttl != time.Hour {
		t.Errorf("ttl = %v, want 1h", ttl)
	}

	got, err = store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assertSameResult(t, got, want)
}

func TestMemory(t *testing.T) {
	store := NewMemory(2)
	ctx := context.Background()
	res := testResult(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Set(ctx, id, res); err != nil {
			t.Fatal(err)
		}
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d, want 2", store.Len())
	}
	if got, _ := store.Get(ctx, "a"); got != nil {
		t.Error("oldest entry should be evicted")
	}
	if got, _ := store.Get(ctx, "c"); got != res {
		t.Error("latest entry should be cached")
	}

	// 覆盖写入不改变淘汰顺序
	if err := store.Set(ctx, "b", res); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 2 {
		t.Errorf("Len = %d after overwrite, want 2", store.Len())
	}

	_ = store.Close()
	if store.Len() != 0 {
		t.Error("Close should drop all entries")
	}
}
