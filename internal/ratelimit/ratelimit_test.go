package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

// manualLimiter has no background eviction, so the clock can be swapped freely.
func manualLimiter(t *testing.T, limit rate.Limit, burst int, idleTTL time.Duration) (*KeyedRateLimiter, *time.Time) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newLimiter(limit, burst, 0)
	rl.idleTTL = idleTTL
	rl.now = func() time.Time { return now }
	t.Cleanup(rl.Stop)
	return rl, &now
}

func TestAllow_BucketPerClient(t *testing.T) {
	tests := []struct {
		name  string
		burst int
		calls []string
		want  []bool
	}{
		{
			name:  "burst then limited",
			burst: 2,
			calls: []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"},
			want:  []bool{true, true, false},
		},
		{
			name:  "second client has its own bucket",
			burst: 1,
			calls: []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"},
			want:  []bool{true, false, true},
		},
		{
			name:  "zero burst never admits",
			burst: 0,
			calls: []string{"10.0.0.1"},
			want:  []bool{false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := PerInterval(1, time.Hour, tt.burst)
			defer rl.Stop()

			got := make([]bool, 0, len(tt.calls))
			for _, key := range tt.calls {
				got = append(got, rl.Allow(key))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPerInterval_RefillRate(t *testing.T) {
	tests := []struct {
		count    int
		interval time.Duration
		want     rate.Limit
	}{
		{count: 120, interval: time.Minute, want: rate.Every(500 * time.Millisecond)},
		{count: 60, interval: time.Minute, want: rate.Every(time.Second)},
		{count: 0, interval: time.Minute, want: rate.Every(time.Minute)},
	}

	for _, tt := range tests {
		rl := PerInterval(tt.count, tt.interval, 1)
		assert.InDelta(t, float64(tt.want), float64(rl.limit), 1e-9, "count=%d", tt.count)
		rl.Stop()
	}
}

func TestWait_PacesAndHonoursContext(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	require.NoError(t, rl.Wait(context.Background(), "api.example"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, rl.Wait(ctx, "api.example"))

	// Other hosts are paced independently.
	assert.NoError(t, rl.Wait(context.Background(), "other.example"))
}

func TestEvictIdle_UsesLastSeen(t *testing.T) {
	rl, now := manualLimiter(t, rate.Every(time.Hour), 1, 10*time.Minute)

	rl.Allow("stale")
	*now = now.Add(9 * time.Minute)
	rl.Allow("recent")
	*now = now.Add(2 * time.Minute)

	// "stale" was last seen 11 minutes ago, "recent" 2 minutes ago.
	assert.Equal(t, 1, rl.evictIdle(now.Add(-rl.idleTTL)))
	assert.Equal(t, 1, rl.Len())

	assert.False(t, rl.Allow("recent"), "surviving bucket keeps its spent tokens")
	assert.True(t, rl.Allow("stale"), "evicted key starts with a full burst")
}

func TestEvictIdle_TouchRefreshesKey(t *testing.T) {
	rl, now := manualLimiter(t, rate.Every(time.Hour), 1, 10*time.Minute)

	rl.Allow("client")
	*now = now.Add(8 * time.Minute)
	rl.Allow("client")
	*now = now.Add(8 * time.Minute)

	assert.Zero(t, rl.evictIdle(now.Add(-rl.idleTTL)))
	assert.Equal(t, 1, rl.Len())
}

func TestCleanup_EvictsInBackground(t *testing.T) {
	rl := newLimiter(rate.Every(time.Hour), 1, 20*time.Millisecond)
	defer rl.Stop()

	rl.Allow("client")
	require.Equal(t, 1, rl.Len())

	assert.Eventually(t, func() bool { return rl.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestStop_Idempotent(t *testing.T) {
	rl := New(1, 1)
	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Shutdown()
		rl.Stop()
	})
}
