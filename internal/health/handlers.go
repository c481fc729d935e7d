package health

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/langganan-pricing/internal/common"
)

const defaultProbeTimeout = 500 * time.Millisecond

// Probe checks one dependency. Check receives a context bounded by Timeout.
type Probe struct {
	Name    string
	Timeout time.Duration
	Check   func(ctx context.Context) error
}

// Report is the readiness payload.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

var accepting atomic.Bool

func init() { accepting.Store(true) }

// SetReady toggles whether the process accepts traffic. The API flips it off
// when graceful shutdown starts so load balancers drain it first.
func SetReady(ready bool) { accepting.Store(ready) }

// Handler serves the liveness and readiness endpoints.
type Handler struct {
	Probes []Probe
}

// Live always answers 200 while the process runs.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready runs every probe concurrently and answers 503 when any fails or the
// process is draining.
func (h Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if !accepting.Load() {
		common.JSON(w, http.StatusServiceUnavailable, Report{Status: "draining"})
		return
	}
	if len(h.Probes) == 0 {
		common.JSONError(w, http.StatusServiceUnavailable, "NOT_READY", "no readiness probes configured", nil)
		return
	}

	results := make([]string, len(h.Probes))
	var g errgroup.Group
	for i, p := range h.Probes {
		g.Go(func() error {
			results[i] = run(r.Context(), p)
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: "ok", Checks: make(map[string]string, len(h.Probes))}
	code := http.StatusOK
	for i, p := range h.Probes {
		report.Checks[p.Name] = results[i]
		if results[i] != "ok" {
			report.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	common.JSON(w, code, report)
}

func run(ctx context.Context, p Probe) string {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = defaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := p.Check(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
