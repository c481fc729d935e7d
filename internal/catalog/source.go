package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/noah-isme/langganan-pricing/internal/pricing"
)

// Scope selects one of the two add-on catalogs.
type Scope string

const (
	ScopePackage      Scope = "package"
	ScopeSubscription Scope = "subscription"
)

// ErrUnknownScope is returned for add-on scopes other than package or subscription.
var ErrUnknownScope = errors.New("catalog: unknown add-on scope")

// ParseScope validates a scope name.
func ParseScope(v string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(v))) {
	case ScopePackage:
		return ScopePackage, nil
	case ScopeSubscription:
		return ScopeSubscription, nil
	default:
		return "", ErrUnknownScope
	}
}

// Source provides the pricing tables the engine consumes.
type Source interface {
	DurationDiscounts(ctx context.Context, packageID string) ([]pricing.DurationDiscountRow, error)
	LegacyPlans(ctx context.Context) ([]pricing.LegacyPlanRow, error)
	BasePrices(ctx context.Context, domain, packageID string) (pricing.BasePrices, error)
	AddOns(ctx context.Context, scope Scope) ([]pricing.AddOn, error)
}

// DomainExtension returns the lowercased domain name without its first label,
// including the leading dot, e.g. ".co.id" for "toko.co.id" and ".toko.com"
// for "www.toko.com". It returns "" when the name has no dot. Every candidate
// from DomainSuffixes is a suffix of it, so it keys cached base prices.
func DomainExtension(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimSuffix(d, ".")
	idx := strings.Index(d, ".")
	if idx < 0 || idx == len(d)-1 {
		return ""
	}
	return d[idx:]
}

// DomainSuffixes lists the extensions a domain could be priced under, longest
// first: ".toko.co.id", ".co.id", ".id" for "www.toko.co.id". The longest
// configured extension wins.
func DomainSuffixes(domain string) []string {
	ext := DomainExtension(domain)
	var out []string
	for ext != "" {
		out = append(out, ext)
		idx := strings.Index(ext[1:], ".")
		if idx < 0 {
			break
		}
		ext = ext[idx+1:]
	}
	return out
}
