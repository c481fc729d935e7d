package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/langganan-pricing/internal/catalog"
	"github.com/noah-isme/langganan-pricing/internal/common"
	"github.com/noah-isme/langganan-pricing/internal/money"
	"github.com/noah-isme/langganan-pricing/internal/obs"
	"github.com/noah-isme/langganan-pricing/internal/payment"
	"github.com/noah-isme/langganan-pricing/internal/pricing"
	"github.com/noah-isme/langganan-pricing/internal/promo"
)

var (
	// ErrPriceUnavailable is returned when an invoice is requested for a
	// selection that has no computable price.
	ErrPriceUnavailable = errors.New("checkout: price unavailable")
	// ErrNothingToPay is returned when the discounted amount is zero.
	ErrNothingToPay = errors.New("checkout: nothing to pay")
	// ErrSuperseded is returned by a session update overtaken by a newer edit.
	ErrSuperseded = errors.New("checkout: superseded by a newer edit")
)

// Input describes one customer selection.
type Input struct {
	Domain             string            `json:"domain" validate:"required,fqdn"`
	PackageID          string            `json:"packageId" validate:"required"`
	DurationYears      int               `json:"durationYears" validate:"gte=0,lte=10"`
	PackageAddOns      pricing.Selection `json:"packageAddOns" validate:"max=100,dive,gte=0,lte=1000"`
	SubscriptionAddOns pricing.Selection `json:"subscriptionAddOns" validate:"max=100,dive,gte=0,lte=1000"`
	PromoCode          string            `json:"promoCode" validate:"max=64"`
}

// Formatted carries display strings for the amounts of a Result.
type Formatted struct {
	Subtotal string `json:"subtotal"`
	AddOns   string `json:"addOns"`
	Gross    string `json:"gross"`
	Discount string `json:"discount"`
	Final    string `json:"final"`
}

// Result is a fully resolved checkout quote. Final is nil when no pricing
// source can serve the selection.
type Result struct {
	Currency  string        `json:"currency"`
	Quote     pricing.Quote `json:"quote"`
	Promo     promo.Outcome `json:"promo"`
	Final     *money.Money  `json:"final"`
	Formatted Formatted     `json:"formatted"`
}

// Available reports whether Result carries a payable amount.
func (r Result) Available() bool { return r.Final != nil }

// Service is the authoritative calculator used at checkout.
type Service struct {
	Source             catalog.Source
	Promo              promo.Applier
	Payments           payment.Provider
	Formatter          money.Formatter
	Currency           string
	InvoiceDuration    time.Duration
	SuccessRedirectURL string
	FailureRedirectURL string
	Logger             zerolog.Logger
}

type inputs struct {
	discounts    []pricing.DurationDiscountRow
	plans        []pricing.LegacyPlanRow
	base         pricing.BasePrices
	packageAdds  []pricing.AddOn
	subscription []pricing.AddOn
}

// loadInputs fetches every pricing table concurrently, one request each.
func (s *Service) loadInputs(ctx context.Context, in Input) (inputs, error) {
	var out inputs
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.discounts, err = s.Source.DurationDiscounts(gctx, in.PackageID)
		return wrapFetch("duration discounts", err)
	})
	g.Go(func() (err error) {
		out.plans, err = s.Source.LegacyPlans(gctx)
		return wrapFetch("legacy plans", err)
	})
	g.Go(func() (err error) {
		out.base, err = s.Source.BasePrices(gctx, in.Domain, in.PackageID)
		return wrapFetch("base prices", err)
	})
	if len(in.PackageAddOns) > 0 {
		g.Go(func() (err error) {
			out.packageAdds, err = s.Source.AddOns(gctx, catalog.ScopePackage)
			return wrapFetch("package add-ons", err)
		})
	}
	if len(in.SubscriptionAddOns) > 0 {
		g.Go(func() (err error) {
			out.subscription, err = s.Source.AddOns(gctx, catalog.ScopeSubscription)
			return wrapFetch("subscription add-ons", err)
		})
	}
	if err := g.Wait(); err != nil {
		return inputs{}, err
	}
	return out, nil
}

func wrapFetch(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("checkout: fetch %s: %w", what, err)
}

// Price resolves the pre-promo quote for in.
func (s *Service) Price(ctx context.Context, in Input) (pricing.Quote, error) {
	if s == nil || s.Source == nil {
		return pricing.Quote{}, errors.New("checkout service not configured")
	}
	if err := errors.Join(in.PackageAddOns.Validate(), in.SubscriptionAddOns.Validate()); err != nil {
		return pricing.Quote{}, addOnError(err)
	}
	start := time.Now()
	data, err := s.loadInputs(ctx, in)
	if err != nil {
		s.Logger.Error().Err(err).Str("package_id", in.PackageID).Msg("load pricing inputs")
		return pricing.Quote{}, common.Upstream("pricing data unavailable", err)
	}
	addOns, err := pricing.SumAddOns(data.packageAdds, in.PackageAddOns, data.subscription, in.SubscriptionAddOns)
	if err != nil {
		s.Logger.Warn().Err(err).Str("package_id", in.PackageID).Msg("add-on total rejected")
		return pricing.Quote{}, addOnError(err)
	}
	q := pricing.Resolve(pricing.Request{
		DurationYears: in.DurationYears,
		Discounts:     data.discounts,
		LegacyPlans:   data.plans,
		Base:          data.base,
		AddOnsTotal:   addOns,
	})
	obs.ObserveQuote(string(q.Source), time.Since(start))
	s.Logger.Debug().
		Str("package_id", in.PackageID).
		Str("source", string(q.Source)).
		Int("years", in.DurationYears).
		Int64("total", q.Total).
		Msg("quote resolved")
	return q, nil
}

func addOnError(err error) *common.AppError {
	return common.NewAppError(common.CodeValidation, "add-on selection out of range", http.StatusUnprocessableEntity, err)
}

// Quote resolves price, add-ons and promo for in.
func (s *Service) Quote(ctx context.Context, in Input) (Result, error) {
	q, err := s.Price(ctx, in)
	if err != nil {
		return Result{}, err
	}
	if !q.Available() {
		return s.result(q, promo.Outcome{}), nil
	}
	outcome, err := s.Promo.Apply(ctx, in.PromoCode, q.Total)
	if err != nil {
		return Result{}, promoError(err)
	}
	return s.result(q, outcome), nil
}

// ResultWith combines a resolved quote with an already validated promo.
func (s *Service) ResultWith(q pricing.Quote, outcome promo.Outcome) Result {
	return s.result(q, outcome)
}

func (s *Service) result(q pricing.Quote, outcome promo.Outcome) Result {
	if q.Available() && outcome.Subtotal != q.Total {
		// outcome was validated for a different amount
		outcome = promo.NoPromo(q.Total)
	}
	res := Result{Currency: s.currency(), Quote: q, Promo: outcome}
	if q.Available() {
		final := outcome.Final
		res.Final = &final
	}
	res.Formatted = Formatted{
		Subtotal: s.format(q.Available(), q.Subtotal),
		AddOns:   s.Formatter.Format(q.AddOnsTotal),
		Gross:    s.format(q.Available(), q.Total),
		Discount: s.Formatter.Format(outcome.Result.DiscountAmount),
		Final:    s.Formatter.FormatOptional(res.Final),
	}
	return res
}

func (s *Service) format(available bool, amount money.Money) string {
	if !available {
		return money.Placeholder
	}
	return s.Formatter.Format(amount)
}

func (s *Service) currency() string {
	if c := strings.TrimSpace(s.Currency); c != "" {
		return strings.ToUpper(c)
	}
	return "IDR"
}

// InvoiceInput is a selection plus payer details.
type InvoiceInput struct {
	Input
	PayerEmail string `json:"payerEmail" validate:"omitempty,email"`
}

// InvoiceResult pairs the charged quote with the created invoice.
type InvoiceResult struct {
	Result
	Invoice payment.Invoice `json:"invoice"`
}

// CreateInvoice re-resolves the price and opens a payment invoice for the
// final amount.
func (s *Service) CreateInvoice(ctx context.Context, in InvoiceInput) (InvoiceResult, error) {
	if s.Payments == nil {
		return InvoiceResult{}, errors.New("checkout: payment provider not configured")
	}
	res, err := s.Quote(ctx, in.Input)
	if err != nil {
		return InvoiceResult{}, err
	}
	if !res.Available() {
		return InvoiceResult{}, common.NewAppError(common.CodePriceUnavailable, "no price is available for this selection", http.StatusUnprocessableEntity, ErrPriceUnavailable)
	}
	if *res.Final <= 0 {
		return InvoiceResult{}, common.NewAppError("NOTHING_TO_PAY", "the discounted total is zero", http.StatusUnprocessableEntity, ErrNothingToPay)
	}

	provider := s.Payments.Name()
	metadata := map[string]string{
		"package_id":     in.PackageID,
		"domain":         strings.ToLower(strings.TrimSpace(in.Domain)),
		"duration_years": fmt.Sprint(in.DurationYears),
		"pricing_source": string(res.Quote.Source),
	}
	if res.Promo.Applied() && res.Promo.Promo != nil {
		metadata["promo_code"] = res.Promo.Promo.Code
	}
	inv, err := s.Payments.CreateInvoice(ctx, payment.InvoiceRequest{
		ExternalID:         payment.NewExternalID(in.PackageID),
		Amount:             *res.Final,
		Currency:           res.Currency,
		Description:        fmt.Sprintf("%s subscription, %d year(s)", strings.ToLower(strings.TrimSpace(in.Domain)), in.DurationYears),
		PayerEmail:         in.PayerEmail,
		SuccessRedirectURL: s.SuccessRedirectURL,
		FailureRedirectURL: s.FailureRedirectURL,
		Duration:           s.InvoiceDuration,
		Metadata:           metadata,
	})
	if err != nil {
		obs.ObserveInvoice(provider, "error")
		s.Logger.Error().Err(err).Str("provider", provider).Str("package_id", in.PackageID).Msg("create invoice")
		if errors.Is(err, payment.ErrUnauthorized) {
			return InvoiceResult{}, common.Reauthenticate(err)
		}
		return InvoiceResult{}, common.Upstream("payment provider unavailable", err)
	}
	obs.ObserveInvoice(provider, "ok")
	s.Logger.Info().Str("provider", provider).Str("external_id", inv.ExternalID).Int64("amount", *res.Final).Msg("invoice created")
	return InvoiceResult{Result: res, Invoice: inv}, nil
}

func promoError(err error) error {
	if errors.Is(err, promo.ErrUnauthorized) {
		return common.Reauthenticate(err)
	}
	return common.Upstream("promo validation unavailable", err)
}
