package promo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/noah-isme/langganan-pricing/internal/money"
	"github.com/noah-isme/langganan-pricing/internal/resilience"
)

// HTTPValidator delegates validation to a remote endpoint that answers
// {"ok":false} or {"ok":true,"promo":{...},"discountAmount":n}.
type HTTPValidator struct {
	URL    string
	Token  string
	Client *resilience.HTTPClient
}

type validateRequest struct {
	Code     string `json:"code"`
	Subtotal int64  `json:"subtotal"`
}

type validateResponse struct {
	OK             bool        `json:"ok"`
	Promo          *Promo      `json:"promo"`
	DiscountAmount json.Number `json:"discountAmount"`
}

// Validate implements Validator.
func (v *HTTPValidator) Validate(ctx context.Context, code string, subtotal int64) (Validation, error) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return Validation{}, ErrCodeRequired
	}
	payload, err := json.Marshal(validateRequest{Code: trimmed, Subtotal: subtotal})
	if err != nil {
		return Validation{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.URL, bytes.NewReader(payload))
	if err != nil {
		return Validation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if v.Token != "" {
		req.Header.Set("Authorization", "Bearer "+v.Token)
	}
	resp, err := v.Client.Do(ctx, req)
	if err != nil {
		return Validation{}, fmt.Errorf("promo: validate: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Validation{}, ErrUnauthorized
	case resp.StatusCode == http.StatusNotFound:
		return Validation{}, nil
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Validation{}, fmt.Errorf("promo: validate: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out validateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Validation{}, fmt.Errorf("promo: decode response: %w", err)
	}
	if !out.OK {
		return Validation{}, nil
	}
	return Validation{
		OK:             true,
		Promo:          out.Promo,
		DiscountAmount: money.Round(money.Coerce(out.DiscountAmount)),
	}, nil
}
