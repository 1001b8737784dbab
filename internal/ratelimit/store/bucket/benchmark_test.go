package bucket

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// BenchmarkAllow measures single-threaded throughput on one hot key.
func BenchmarkAllow(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	for b.Loop() {
		_, _ = store.Allow(ctx, "ip:bench:read", 1000, time.Minute)
	}
}

// BenchmarkAllow_Parallel measures contention on the store mutex.
func BenchmarkAllow_Parallel(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_, _ = store.Allow(ctx, "ip:bench:read", 1000, time.Minute)
		}
	})
}

// BenchmarkAllow_ManyClients spreads requests over many client IPs.
func BenchmarkAllow_ManyClients(b *testing.B) {
	store := NewInMemoryBucketStore()
	ctx := context.Background()

	for i := 0; b.Loop(); i++ {
		key := fmt.Sprintf("ip:10.0.%d.%d:start", (i/256)%256, i%256)
		_, _ = store.Allow(ctx, key, 100, time.Minute)
	}
}
