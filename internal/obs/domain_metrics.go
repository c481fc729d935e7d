package obs

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// PricingQuotesTotal counts resolved quotes by pricing source.
	PricingQuotesTotal *prometheus.CounterVec
	// PricingQuoteLatency records end-to-end quote latency in milliseconds,
	// including collaborator fetches.
	PricingQuoteLatency prometheus.Histogram
	// PromoValidationsTotal counts promo validation outcomes.
	PromoValidationsTotal *prometheus.CounterVec
	// PaymentInvoiceTotal counts invoice creation attempts.
	PaymentInvoiceTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers pricing collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		PricingQuotesTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_quotes_total",
			Help:      "Count of resolved quotes by pricing source.",
		}, []string{"source"}))
		PricingQuoteLatency = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pricing_quote_duration_ms",
			Help:      "Quote latency in milliseconds.",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		}))
		PromoValidationsTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "promo_validations_total",
			Help:      "Count of promo validation outcomes.",
		}, []string{"result"}))
		PaymentInvoiceTotal = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_invoice_total",
			Help:      "Count of payment invoice creation outcomes.",
		}, []string{"provider", "result"}))
	})
}

// ObserveQuote records a resolved quote. It is a no-op before registration.
func ObserveQuote(source string, took time.Duration) {
	if PricingQuotesTotal != nil {
		PricingQuotesTotal.WithLabelValues(source).Inc()
	}
	if PricingQuoteLatency != nil {
		PricingQuoteLatency.Observe(DurationMillis(took))
	}
}

// ObservePromo records a promo validation result: applied, invalid or error.
func ObservePromo(result string) {
	if PromoValidationsTotal != nil {
		PromoValidationsTotal.WithLabelValues(result).Inc()
	}
}

// ObserveInvoice records an invoice creation result.
func ObserveInvoice(provider, result string) {
	if PaymentInvoiceTotal != nil {
		PaymentInvoiceTotal.WithLabelValues(provider, result).Inc()
	}
}
