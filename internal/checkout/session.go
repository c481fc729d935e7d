package checkout

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/langganan-pricing/internal/common"
	"github.com/noah-isme/langganan-pricing/internal/pricing"
	"github.com/noah-isme/langganan-pricing/internal/promo"
)

// Session tracks a customer editing a selection. The price is resolved on
// every edit while promo validation is debounced through a Revalidator.
type Session struct {
	svc   *Service
	reval *promo.Revalidator

	mu      sync.Mutex
	gen     uint64
	input   Input
	quote   pricing.Quote
	touched time.Time
}

// SessionState is a snapshot of a session.
type SessionState struct {
	Result
	PromoPending bool `json:"promoPending"`
}

// Update re-prices the selection and schedules promo re-validation. Only the
// most recent edit is published: an update whose pricing finishes after a
// newer edit was submitted fails with ErrSuperseded and leaves the session
// untouched.
func (s *Session) Update(ctx context.Context, in Input) (SessionState, error) {
	s.mu.Lock()
	s.gen++
	token := s.gen
	s.touched = time.Now()
	s.mu.Unlock()

	q, err := s.svc.Price(ctx, in)

	s.mu.Lock()
	if token != s.gen {
		s.mu.Unlock()
		return SessionState{}, supersededError()
	}
	if err != nil {
		s.mu.Unlock()
		return SessionState{}, err
	}
	s.input, s.quote, s.touched = in, q, time.Now()
	// Held under mu so revalidation is scheduled in edit order.
	if q.Available() {
		s.reval.Update(in.PromoCode, q.Total)
	}
	s.mu.Unlock()
	return s.State(), nil
}

func supersededError() *common.AppError {
	return common.NewAppError(common.CodeConflict, "selection changed while pricing, the newer edit wins", http.StatusConflict, ErrSuperseded)
}

// Apply validates the current promo code immediately.
func (s *Session) Apply(ctx context.Context) (SessionState, error) {
	s.mu.Lock()
	in, q := s.input, s.quote
	s.touched = time.Now()
	s.mu.Unlock()
	if q.Available() {
		if _, err := s.reval.ApplyNow(ctx, in.PromoCode, q.Total); err != nil && !errors.Is(err, promo.ErrStale) {
			return SessionState{}, promoError(err)
		}
	}
	return s.State(), nil
}

// State returns the latest quote combined with the latest published promo.
func (s *Session) State() SessionState {
	s.mu.Lock()
	in, q := s.input, s.quote
	s.mu.Unlock()
	code := strings.TrimSpace(in.PromoCode)
	current := s.reval.Current()
	pending := q.Available() && code != "" && (current.Code != code || current.Subtotal != q.Total)
	if current.Code != code {
		current = promo.NoPromo(q.Total)
	}
	return SessionState{Result: s.svc.ResultWith(q, current), PromoPending: pending}
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// Sessions owns the live sessions keyed by client-chosen id.
type Sessions struct {
	Svc     *Service
	Quiet   time.Duration
	IdleTTL time.Duration

	mu    sync.Mutex
	items map[string]*Session
}

// Get returns the session for id, creating it on first use.
func (m *Sessions) Get(id string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items == nil {
		m.items = make(map[string]*Session)
	}
	if sess, ok := m.items[id]; ok {
		return sess
	}
	sess := &Session{
		svc:     m.Svc,
		reval:   promo.NewRevalidator(m.Svc.Promo, m.Quiet, nil),
		quote:   pricing.Quote{Source: pricing.SourceUnavailable},
		touched: time.Now(),
	}
	m.items[id] = sess
	return sess
}

// Lookup returns an existing session.
func (m *Sessions) Lookup(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.items[id]
	return sess, ok
}

// Close stops and forgets the session.
func (m *Sessions) Close(id string) bool {
	m.mu.Lock()
	sess, ok := m.items[id]
	delete(m.items, id)
	m.mu.Unlock()
	if ok {
		sess.reval.Stop()
	}
	return ok
}

// Sweep closes sessions idle for longer than IdleTTL and reports how many.
func (m *Sessions) Sweep(now time.Time) int {
	ttl := m.IdleTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	m.mu.Lock()
	var stale []string
	for id, sess := range m.items {
		if now.Sub(sess.idleSince()) > ttl {
			stale = append(stale, id)
		}
	}
	m.mu.Unlock()
	for _, id := range stale {
		m.Close(id)
	}
	return len(stale)
}

// Run sweeps idle sessions until ctx is done.
func (m *Sessions) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.Sweep(now)
		}
	}
}
