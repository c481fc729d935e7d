package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langganan-pricing/internal/health"
)

func probe(name string, err error) health.Probe {
	return health.Probe{Name: name, Check: func(context.Context) error { return err }}
}

func ready(t *testing.T, h health.Handler) (int, health.Report) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.Ready(rr, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	var report health.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	return rr.Code, report
}

func TestLive(t *testing.T) {
	rr := httptest.NewRecorder()
	health.Handler{}.Live(rr, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "ok", rr.Body.String())
}

func TestReadyAllProbesPass(t *testing.T) {
	code, report := ready(t, health.Handler{Probes: []health.Probe{probe("db", nil), probe("redis", nil)}})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "ok", report.Status)
	require.Equal(t, map[string]string{"db": "ok", "redis": "ok"}, report.Checks)
}

func TestReadyReportsFailingProbe(t *testing.T) {
	code, report := ready(t, health.Handler{Probes: []health.Probe{probe("db", errors.New("db down")), probe("redis", nil)}})
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, "degraded", report.Status)
	require.Equal(t, "db down", report.Checks["db"])
	require.Equal(t, "ok", report.Checks["redis"])
}

func TestReadyProbeTimeout(t *testing.T) {
	slow := health.Probe{Name: "pricing", Timeout: 10 * time.Millisecond, Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	start := time.Now()
	code, report := ready(t, health.Handler{Probes: []health.Probe{slow}})
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, http.StatusServiceUnavailable, code)
	require.Equal(t, context.DeadlineExceeded.Error(), report.Checks["pricing"])
}
