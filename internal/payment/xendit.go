package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/noah-isme/langganan-pricing/internal/resilience"
)

// Xendit creates hosted invoices through the Xendit v2 invoice API.
type Xendit struct {
	SecretKey string
	BaseURL   string
	HTTP      *resilience.HTTPClient
}

type xenditInvoiceRequest struct {
	ExternalID         string            `json:"external_id"`
	Amount             int64             `json:"amount"`
	Description        string            `json:"description,omitempty"`
	InvoiceDuration    int64             `json:"invoice_duration,omitempty"`
	Currency           string            `json:"currency,omitempty"`
	PayerEmail         string            `json:"payer_email,omitempty"`
	SuccessRedirectURL string            `json:"success_redirect_url,omitempty"`
	FailureRedirectURL string            `json:"failure_redirect_url,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
}

type xenditInvoiceResponse struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"external_id"`
	Status     string    `json:"status"`
	InvoiceURL string    `json:"invoice_url"`
	ExpiryDate time.Time `json:"expiry_date"`
}

type xenditError struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
}

// Name implements Provider.
func (Xendit) Name() string { return "xendit" }

// CreateInvoice implements Provider.
func (x Xendit) CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error) {
	if err := req.validate(); err != nil {
		return Invoice{}, err
	}
	body, err := json.Marshal(xenditInvoiceRequest{
		ExternalID:         req.ExternalID,
		Amount:             req.Amount,
		Description:        req.Description,
		InvoiceDuration:    int64(req.Duration / time.Second),
		Currency:           strings.ToUpper(req.Currency),
		PayerEmail:         req.PayerEmail,
		SuccessRedirectURL: req.SuccessRedirectURL,
		FailureRedirectURL: req.FailureRedirectURL,
		Metadata:           req.Metadata,
	})
	if err != nil {
		return Invoice{}, err
	}
	host := strings.TrimRight(strings.TrimSpace(x.BaseURL), "/")
	if host == "" {
		host = "https://api.xendit.co"
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, host+"/v2/invoices", bytes.NewReader(body))
	if err != nil {
		return Invoice{}, err
	}
	httpReq.SetBasicAuth(x.SecretKey, "")
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := x.HTTP.Do(ctx, httpReq)
	if err != nil {
		return Invoice{}, fmt.Errorf("payment: xendit create invoice: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Invoice{}, ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		var xe xenditError
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if json.Unmarshal(raw, &xe) == nil && xe.ErrorCode != "" {
			return Invoice{}, fmt.Errorf("payment: xendit %s: %s", xe.ErrorCode, xe.Message)
		}
		return Invoice{}, fmt.Errorf("payment: xendit status %d", resp.StatusCode)
	}

	var out xenditInvoiceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Invoice{}, fmt.Errorf("payment: decode xendit invoice: %w", err)
	}
	if out.InvoiceURL == "" {
		return Invoice{}, fmt.Errorf("payment: xendit invoice %s has no url", out.ID)
	}
	return Invoice{
		ID:         out.ID,
		ExternalID: out.ExternalID,
		InvoiceURL: out.InvoiceURL,
		Status:     out.Status,
		ExpiresAt:  out.ExpiryDate,
	}, nil
}
