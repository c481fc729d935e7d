package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestBreakerAdmitsSingleProbe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(1, 0.5, time.Minute)
	b.now = clock.now
	ctx := context.Background()

	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))

	clock.t = clock.t.Add(time.Minute)
	require.True(t, b.Allow(ctx))
	require.Equal(t, HalfOpen, b.State())
	require.False(t, b.Allow(ctx), "second caller must wait for the probe")

	b.Report(ctx, false)
	require.Equal(t, Open, b.State())
	require.False(t, b.Allow(ctx))
}

func TestBreakerWindowForgetsOldFailures(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(4, 0.5, 10*time.Second)
	b.now = clock.now
	ctx := context.Background()

	b.Report(ctx, false)
	b.Report(ctx, false)
	b.Report(ctx, true)

	clock.t = clock.t.Add(11 * time.Second)
	b.Report(ctx, false)
	b.Report(ctx, true)
	b.Report(ctx, true)
	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())
}
