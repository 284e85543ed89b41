package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		rps      float64
		burst    int
		calls    int
		wantPass int
	}{
		{name: "burst allows initial requests", rps: 1, burst: 3, calls: 3, wantPass: 3},
		{name: "exceeding burst blocks", rps: 1, burst: 2, calls: 5, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(tt.rps, tt.burst)
			defer rl.Stop()

			passed := 0
			for i := 0; i < tt.calls; i++ {
				if rl.Allow("test") {
					passed++
				}
			}

			if passed != tt.wantPass {
				t.Errorf("Allow() passed %d, want %d", passed, tt.wantPass)
			}
		})
	}
}

func TestKeyedRateLimiter_KeysAreIndependent(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	if !rl.Allow("usr-a") {
		t.Fatal("first request for usr-a denied")
	}
	if rl.Allow("usr-a") {
		t.Error("second request for usr-a allowed past burst")
	}
	if !rl.Allow("usr-b") {
		t.Error("usr-b throttled by usr-a's bucket")
	}
}

func TestKeyedRateLimiter_Wait(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	if err := rl.Wait(context.Background(), "k"); err != nil {
		t.Fatalf("Wait() on full bucket: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx, "k"); err == nil {
		t.Error("Wait() on empty bucket returned nil before deadline")
	}
}

func TestKeyedRateLimiter_SweepEvictsIdleKeys(t *testing.T) {
	rl := New(1, 1, WithIdleTTL(time.Minute))
	defer rl.Stop()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("old")
	now = now.Add(2 * time.Minute)
	rl.Allow("fresh")

	if got := rl.sweep(); got != 1 {
		t.Errorf("sweep() evicted %d, want 1", got)
	}
	if rl.Len() != 1 {
		t.Errorf("Len() = %d, want 1", rl.Len())
	}

	// An evicted key starts over with a full burst.
	if !rl.Allow("old") {
		t.Error("evicted key did not get a fresh bucket")
	}
}

func TestKeyedRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	rl.Stop()
}
