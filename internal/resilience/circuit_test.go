package resilience

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensOnFailureRatio(t *testing.T) {
	cases := []struct {
		name        string
		minRequests int
		ratio       float64
		outcomes    []bool
		want        State
	}{
		{name: "below minimum volume", minRequests: 3, ratio: 0.5, outcomes: []bool{false, false}, want: Closed},
		{name: "ratio reached", minRequests: 3, ratio: 0.5, outcomes: []bool{true, false, false}, want: Open},
		{name: "ratio not reached", minRequests: 4, ratio: 0.5, outcomes: []bool{true, true, true, false}, want: Closed},
		{name: "single failure with defaults", minRequests: 0, ratio: 0, outcomes: []bool{false}, want: Open},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBreaker(tc.minRequests, tc.ratio, time.Minute)
			for _, ok := range tc.outcomes {
				b.Report(context.Background(), ok)
			}
			require.Equal(t, tc.want, b.State())
		})
	}
}

func TestBreakerRecoversAfterSuccessfulProbe(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(2, 0.5, 50*time.Millisecond).WithTarget("xendit_recover")
	b.now = clock.now
	ctx := context.Background()

	b.Report(ctx, false)
	b.Report(ctx, false)
	require.False(t, b.Allow(ctx))

	clock.t = clock.t.Add(50 * time.Millisecond)
	require.True(t, b.Allow(ctx))
	b.Report(ctx, true)
	require.Equal(t, Closed, b.State())
	require.True(t, b.Allow(ctx))
	require.True(t, b.Allow(ctx))
}

func TestBreakerTransitionMetricsAndLogs(t *testing.T) {
	const target = "promo_validator_metrics"
	var buf bytes.Buffer
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	b := NewBreaker(1, 0.5, time.Second).WithTarget(target).WithLogger(zerolog.New(&buf))
	b.now = clock.now
	ctx := context.Background()

	b.Report(ctx, false)
	require.Equal(t, 1.0, testutil.ToFloat64(BreakerState.WithLabelValues(target)))

	clock.t = clock.t.Add(time.Second)
	require.True(t, b.Allow(ctx))
	require.Equal(t, 2.0, testutil.ToFloat64(BreakerState.WithLabelValues(target)))

	b.Report(ctx, true)
	require.Equal(t, 0.0, testutil.ToFloat64(BreakerState.WithLabelValues(target)))
	require.Equal(t, 1.0, testutil.ToFloat64(BreakerOpenedTotal.WithLabelValues(target)))
	for _, step := range [][2]string{{"closed", "open"}, {"open", "half_open"}, {"half_open", "closed"}} {
		require.Equal(t, 1.0, testutil.ToFloat64(BreakerTransitions.WithLabelValues(target, step[0], step[1])), step)
	}
	require.Equal(t, 3, bytes.Count(buf.Bytes(), []byte(`"message":"breaker_transition"`)))
	require.Contains(t, buf.String(), `"to_state":"half_open"`)
}

func TestBackoff(t *testing.T) {
	base := 100 * time.Millisecond
	require.Equal(t, base, Backoff(base, 1, 0))
	require.Equal(t, base, Backoff(base, 0, 0))
	require.Equal(t, 4*base, Backoff(base, 3, 0))
	require.Equal(t, 100*time.Millisecond, Backoff(0, 1, 0))

	for range 20 {
		d := Backoff(base, 2, 0.2)
		require.GreaterOrEqual(t, d, 160*time.Millisecond)
		require.LessOrEqual(t, d, 240*time.Millisecond)
	}
}
