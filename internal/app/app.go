package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/noah-isme/langganan-pricing/internal/catalog"
	"github.com/noah-isme/langganan-pricing/internal/checkout"
	"github.com/noah-isme/langganan-pricing/internal/common"
	"github.com/noah-isme/langganan-pricing/internal/config"
	"github.com/noah-isme/langganan-pricing/internal/draft"
	"github.com/noah-isme/langganan-pricing/internal/health"
	"github.com/noah-isme/langganan-pricing/internal/money"
	"github.com/noah-isme/langganan-pricing/internal/obs"
	"github.com/noah-isme/langganan-pricing/internal/payment"
	"github.com/noah-isme/langganan-pricing/internal/promo"
	"github.com/noah-isme/langganan-pricing/internal/ratelimit"
	"github.com/noah-isme/langganan-pricing/internal/resilience"
	"github.com/noah-isme/langganan-pricing/internal/security"
)

// Dependencies enumerates the shared infrastructure the API is assembled from.
type Dependencies struct {
	Config *config.Config
	Logger zerolog.Logger
	DB     *pgxpool.Pool
	Redis  *redis.Client

	// Pricing replaces the Postgres pricing tables when set.
	Pricing catalog.Source
	// Validator replaces the configured promo validator when set.
	Validator promo.Validator

	HTTPMetrics *obs.HTTPMetrics
	Tracing     bool
	Metrics     bool
}

// App holds the assembled services and the HTTP router.
type App struct {
	Pricing  catalog.CachedSource
	Checkout *checkout.Service
	Sessions *checkout.Sessions
	Drafts   *draft.Store
	Router   http.Handler
}

// New wires the pricing services and mounts every route.
func New(deps Dependencies) (*App, error) {
	cfg := deps.Config
	if cfg == nil {
		return nil, errors.New("app: config is required")
	}
	if deps.Redis == nil {
		return nil, errors.New("app: redis client is required")
	}
	logger := deps.Logger

	source := deps.Pricing
	if source == nil {
		if deps.DB == nil {
			return nil, errors.New("app: database pool is required")
		}
		source = catalog.PGStore{Q: deps.DB}
	}
	pricingCache := catalog.CachedSource{
		Next:   source,
		Cache:  catalog.NewCache(deps.Redis, cfg.PricingCacheTTL),
		Logger: logger.With().Str("component", "pricing_cache").Logger(),
	}

	validator := deps.Validator
	if validator == nil {
		validator = newValidator(cfg, deps.DB, logger)
	}
	applier := promo.Applier{Validator: validator, Logger: logger.With().Str("component", "promo").Logger()}

	provider, err := newProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	tag, err := language.Parse(cfg.CurrencyLocale)
	if err != nil {
		logger.Warn().Err(err).Str("locale", cfg.CurrencyLocale).Msg("unknown currency locale, using id-ID")
		tag = language.Indonesian
	}

	svc := &checkout.Service{
		Source:             pricingCache,
		Promo:              applier,
		Payments:           provider,
		Formatter:          money.NewFormatter(tag, cfg.CurrencyCode),
		Currency:           cfg.CurrencyCode,
		InvoiceDuration:    cfg.PaymentInvoiceDuration,
		SuccessRedirectURL: cfg.PaymentSuccessRedirectURL,
		FailureRedirectURL: cfg.PaymentFailureRedirectURL,
		Logger:             logger.With().Str("component", "checkout").Logger(),
	}
	sessions := &checkout.Sessions{Svc: svc, Quiet: cfg.PromoDebounce, IdleTTL: 30 * time.Minute}

	promoLimiter, err := ratelimit.New(deps.Redis, "rl:promo", cfg.PromoRateLimit)
	if err != nil {
		return nil, err
	}

	a := &App{
		Pricing:  pricingCache,
		Checkout: svc,
		Sessions: sessions,
		Drafts:   draft.NewStore(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{EnableHSTS: cfg.AppEnv == "production"}.Middleware)
	r.Use(security.BodyLimit{Max: security.DefaultBodyLimit}.Middleware)
	if deps.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if deps.HTTPMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: deps.HTTPMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key"},
		ExposedHeaders:   []string{"Idempotent-Replayed", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if deps.Metrics {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Probes: readinessProbes(deps.DB, deps.Redis)}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	checkoutHandler := &checkout.Handler{Svc: svc, Sessions: sessions}
	promoHandler := &promo.Handler{Applier: applier}
	limit := ratelimit.Handler{
		Limiter: promoLimiter,
		Key:     ratelimit.ByClientIP,
		OnError: func(err error) { logger.Warn().Err(err).Msg("promo rate limiter unavailable") },
	}
	draftHandler := &draft.Handler{Store: a.Drafts, Source: pricingCache, Logger: logger.With().Str("component", "draft").Logger()}
	cacheAdmin := catalog.AdminHandler{Cache: pricingCache}

	r.Route("/api/v1", func(v chi.Router) {
		v.Route("/checkout", func(c chi.Router) { checkoutHandler.Routes(c, idem.Middleware) })
		v.Route("/promo", func(p chi.Router) { promoHandler.Routes(p, limit.Middleware) })
		v.Route("/admin", func(admin chi.Router) {
			draftHandler.Routes(admin)
			admin.Post("/pricing-cache/invalidate", cacheAdmin.Invalidate)
		})
	})

	a.Router = r
	return a, nil
}

// Run sweeps idle checkout sessions until ctx is done.
func (a *App) Run(ctx context.Context) {
	a.Sessions.Run(ctx, time.Minute)
}

func newValidator(cfg *config.Config, db *pgxpool.Pool, logger zerolog.Logger) promo.Validator {
	if cfg.PromoValidatorURL != "" {
		return &promo.HTTPValidator{
			URL:    cfg.PromoValidatorURL,
			Token:  cfg.PromoValidatorKey,
			Client: resilience.NewHTTPClient("promo_validator", cfg.OutboundTimeout, newBreaker(cfg, logger)),
		}
	}
	v := &promo.PGValidator{Logger: logger.With().Str("component", "promo_rules").Logger()}
	if db != nil {
		v.Q = db
	}
	return v
}

func newProvider(cfg *config.Config, logger zerolog.Logger) (payment.Provider, error) {
	switch cfg.PaymentProvider {
	case config.PaymentProviderXendit:
		return payment.Xendit{
			SecretKey: cfg.XenditSecretKey,
			BaseURL:   cfg.XenditBaseURL,
			HTTP:      resilience.NewHTTPClient("xendit", cfg.OutboundTimeout, newBreaker(cfg, logger)),
		}, nil
	case config.PaymentProviderStub, "":
		return payment.Stub{}, nil
	default:
		return nil, errors.New("app: unsupported payment provider " + cfg.PaymentProvider)
	}
}

func newBreaker(cfg *config.Config, logger zerolog.Logger) *resilience.Breaker {
	return resilience.NewBreaker(cfg.CircuitMinRequests, cfg.CircuitFailureRate, cfg.CircuitOpenFor).WithLogger(logger)
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

func readinessProbes(db *pgxpool.Pool, rdb *redis.Client) []health.Probe {
	return []health.Probe{
		{Name: "db", Timeout: 500 * time.Millisecond, Check: func(ctx context.Context) error {
			if db == nil {
				return errors.New("database not configured")
			}
			return db.Ping(ctx)
		}},
		{Name: "redis", Timeout: 300 * time.Millisecond, Check: func(ctx context.Context) error {
			if rdb == nil {
				return errors.New("redis not configured")
			}
			return rdb.Ping(ctx).Err()
		}},
	}
}
