package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// MaxQuantity is the largest quantity accepted for a single add-on.
const MaxQuantity = 1000

var (
	// ErrInvalidQuantity reports a fractional, negative or oversized quantity.
	ErrInvalidQuantity = errors.New("pricing: invalid add-on quantity")
	// ErrAddOnOverflow reports an add-on total that does not fit in Money.
	ErrAddOnOverflow = errors.New("pricing: add-on total overflows")
)

// Selection maps add-on IDs to the selected quantity. JSON accepts either
// booleans (true means one) or whole numbers between 0 and MaxQuantity.
type Selection map[string]int

// Select returns a selection with quantity one for every id.
func Select(ids ...string) Selection {
	sel := make(Selection, len(ids))
	for _, id := range ids {
		sel[id] = 1
	}
	return sel
}

// Quantity returns the selected quantity for id, zero when not selected.
func (s Selection) Quantity(id string) int {
	if s == nil {
		return 0
	}
	q := s[id]
	if q < 0 {
		return 0
	}
	return q
}

// UnmarshalJSON decodes boolean and numeric selection maps.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Selection, len(raw))
	for id, value := range raw {
		text := strings.TrimSpace(string(value))
		switch text {
		case "true":
			out[id] = 1
			continue
		case "false", "null":
			continue
		}
		var qty float64
		if err := json.Unmarshal(value, &qty); err != nil {
			return fmt.Errorf("selection %q: %w", id, err)
		}
		if qty != math.Trunc(qty) || qty < 0 || qty > MaxQuantity {
			return fmt.Errorf("selection %q: %w: %s", id, ErrInvalidQuantity, text)
		}
		if qty > 0 {
			out[id] = int(qty)
		}
	}
	*s = out
	return nil
}

// Validate rejects quantities outside [0, MaxQuantity]. Selections decoded
// from JSON are already bounded; this covers selections built in code.
func (s Selection) Validate() error {
	for id, qty := range s {
		if qty < 0 || qty > MaxQuantity {
			return fmt.Errorf("selection %q: %w: %d", id, ErrInvalidQuantity, qty)
		}
	}
	return nil
}

// SumCatalog totals active, selected add-ons of one catalog. It fails with
// ErrAddOnOverflow instead of wrapping when the total exceeds Money.
func SumCatalog(catalog []AddOn, sel Selection) (Money, error) {
	if err := sel.Validate(); err != nil {
		return 0, err
	}
	var total Money
	for _, addOn := range catalog {
		if !addOn.IsActive || addOn.PriceAmount <= 0 {
			continue
		}
		qty := Money(sel.Quantity(addOn.ID))
		if qty == 0 {
			continue
		}
		if addOn.PriceAmount > (math.MaxInt64-total)/qty {
			return 0, fmt.Errorf("%w: add-on %q", ErrAddOnOverflow, addOn.ID)
		}
		total += addOn.PriceAmount * qty
	}
	return total, nil
}

// SumAddOns adds the package-scoped and subscription-scoped catalog totals.
// Catalogs are not deduplicated against each other.
func SumAddOns(packageCatalog []AddOn, packageSel Selection, subscriptionCatalog []AddOn, subscriptionSel Selection) (Money, error) {
	pkg, err := SumCatalog(packageCatalog, packageSel)
	if err != nil {
		return 0, err
	}
	sub, err := SumCatalog(subscriptionCatalog, subscriptionSel)
	if err != nil {
		return 0, err
	}
	if sub > math.MaxInt64-pkg {
		return 0, ErrAddOnOverflow
	}
	return pkg + sub, nil
}
