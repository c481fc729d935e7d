package promo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

// DefaultQuietPeriod is the debounce window between edits and validation.
const DefaultQuietPeriod = 450 * time.Millisecond

// ErrStale is returned by ApplyNow when a newer validation was issued while
// the call was in flight. Its result was discarded.
var ErrStale = errors.New("promo: result superseded by a newer validation")

// Revalidator keeps the applied promo in sync with a changing code and
// subtotal. Edits are coalesced over a quiet period. Every validation carries
// a generation token and only the latest issued generation may publish.
type Revalidator struct {
	applier  Applier
	quiet    time.Duration
	onResult func(Outcome, error)

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	gen      uint64
	timer    *time.Timer
	code     string
	subtotal int64
	current  Outcome
	stopped  bool
}

// NewRevalidator builds a revalidator. onResult, when set, receives every
// published outcome and every collaborator failure of the latest generation.
func NewRevalidator(applier Applier, quiet time.Duration, onResult func(Outcome, error)) *Revalidator {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Revalidator{
		applier:  applier,
		quiet:    quiet,
		onResult: onResult,
		ctx:      ctx,
		cancel:   cancel,
		current:  NoPromo(0),
	}
}

// Update records the latest code and subtotal and schedules a validation
// after the quiet period. Repeated calls with identical input are ignored.
func (r *Revalidator) Update(code string, subtotal int64) {
	code = strings.TrimSpace(code)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped || (code == r.code && subtotal == r.subtotal) {
		return
	}
	r.code, r.subtotal = code, subtotal
	token := r.issueLocked()
	r.timer = time.AfterFunc(r.quiet, func() {
		_, _ = r.run(r.ctx, token, code, subtotal)
	})
}

// ApplyNow validates immediately, cancelling any pending debounced run.
func (r *Revalidator) ApplyNow(ctx context.Context, code string, subtotal int64) (Outcome, error) {
	code = strings.TrimSpace(code)
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return Outcome{}, context.Canceled
	}
	r.code, r.subtotal = code, subtotal
	token := r.issueLocked()
	r.mu.Unlock()
	return r.run(ctx, token, code, subtotal)
}

// Current returns the latest published outcome.
func (r *Revalidator) Current() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Stop cancels pending and in-flight validations. Later results are dropped.
func (r *Revalidator) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	r.gen++
	if r.timer != nil {
		r.timer.Stop()
	}
	r.cancel()
}

func (r *Revalidator) issueLocked() uint64 {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.gen++
	return r.gen
}

func (r *Revalidator) run(ctx context.Context, token uint64, code string, subtotal int64) (Outcome, error) {
	out, err := r.applier.Apply(ctx, code, subtotal)

	r.mu.Lock()
	if token != r.gen {
		r.mu.Unlock()
		return out, ErrStale
	}
	if err == nil {
		r.current = out
	}
	r.mu.Unlock()

	if r.onResult != nil {
		r.onResult(out, err)
	}
	return out, err
}
