package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrUnauthorized signals that the gateway rejected our credentials.
	ErrUnauthorized = errors.New("payment: unauthorized")
	// ErrInvalidAmount is returned for non-positive invoice amounts.
	ErrInvalidAmount = errors.New("payment: invoice amount must be positive")
)

// InvoiceRequest carries everything needed to open a hosted invoice. Amount is
// in the currency's major unit.
type InvoiceRequest struct {
	ExternalID         string
	Amount             int64
	Currency           string
	Description        string
	PayerEmail         string
	SuccessRedirectURL string
	FailureRedirectURL string
	Duration           time.Duration
	Metadata           map[string]string
}

// Invoice is the provider answer. InvoiceURL is where the customer pays.
type Invoice struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	InvoiceURL string    `json:"invoiceUrl"`
	Status     string    `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// Provider abstracts invoice creation with an upstream payment gateway.
type Provider interface {
	Name() string
	CreateInvoice(ctx context.Context, req InvoiceRequest) (Invoice, error)
}

// NewExternalID returns a unique merchant reference for an invoice.
func NewExternalID(packageID string) string {
	prefix := strings.TrimSpace(packageID)
	if prefix == "" {
		prefix = "sub"
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

func (r InvoiceRequest) validate() error {
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.ExternalID) == "" {
		return errors.New("payment: external id is required")
	}
	return nil
}

// Stub issues deterministic invoices without contacting a gateway. It is the
// default outside production.
type Stub struct {
	BaseURL string
	Now     func() time.Time
}

// Name implements Provider.
func (Stub) Name() string { return "stub" }

// CreateInvoice implements Provider.
func (s Stub) CreateInvoice(_ context.Context, req InvoiceRequest) (Invoice, error) {
	if err := req.validate(); err != nil {
		return Invoice{}, err
	}
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	duration := req.Duration
	if duration <= 0 {
		duration = 24 * time.Hour
	}
	host := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if host == "" {
		host = "https://checkout-stub.local"
	}
	return Invoice{
		ID:         "stub-" + req.ExternalID,
		ExternalID: req.ExternalID,
		InvoiceURL: fmt.Sprintf("%s/invoices/%s?amount=%d", host, req.ExternalID, req.Amount),
		Status:     "PENDING",
		ExpiresAt:  now.Add(duration).UTC(),
	}, nil
}
