package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/langganan-pricing/internal/resilience"
)

func TestStubCreateInvoice(t *testing.T) {
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	inv, err := Stub{Now: func() time.Time { return now }}.CreateInvoice(context.Background(), InvoiceRequest{ExternalID: "pkg-1-abc", Amount: 2_160_000})
	require.NoError(t, err)
	require.Equal(t, "https://checkout-stub.local/invoices/pkg-1-abc?amount=2160000", inv.InvoiceURL)
	require.Equal(t, now.Add(24*time.Hour), inv.ExpiresAt)

	_, err = Stub{}.CreateInvoice(context.Background(), InvoiceRequest{ExternalID: "x", Amount: 0})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestNewExternalID(t *testing.T) {
	id := NewExternalID(" pkg-1 ")
	require.True(t, strings.HasPrefix(id, "pkg-1-"))
	require.NotEqual(t, id, NewExternalID("pkg-1"))
	require.True(t, strings.HasPrefix(NewExternalID(""), "sub-"))
}

func TestXenditCreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "xnd_test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error_code":"INVALID_API_KEY","message":"bad key"}`))
			return
		}
		require.Equal(t, "/v2/invoices", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body["amount"].(float64) == 13 {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error_code":"MINIMUM_AMOUNT","message":"too small"}`))
			return
		}
		require.EqualValues(t, 86400, body["invoice_duration"])
		require.Equal(t, "IDR", body["currency"])
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"inv_1","external_id":"` + body["external_id"].(string) + `","status":"PENDING","invoice_url":"https://checkout.xendit.co/web/inv_1","expiry_date":"2025-03-02T08:00:00Z"}`))
	}))
	t.Cleanup(srv.Close)

	x := Xendit{SecretKey: "xnd_test", BaseURL: srv.URL, HTTP: resilience.NewHTTPClient("xendit_test", time.Second, nil)}
	req := InvoiceRequest{ExternalID: "pkg-1-abc", Amount: 550, Currency: "idr", Duration: 24 * time.Hour}

	inv, err := x.CreateInvoice(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "https://checkout.xendit.co/web/inv_1", inv.InvoiceURL)
	require.Equal(t, "pkg-1-abc", inv.ExternalID)

	req.Amount = 13
	_, err = x.CreateInvoice(context.Background(), req)
	require.ErrorContains(t, err, "MINIMUM_AMOUNT")

	x.SecretKey = "wrong"
	req.Amount = 550
	_, err = x.CreateInvoice(context.Background(), req)
	require.ErrorIs(t, err, ErrUnauthorized)
}
