package promo

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func serveValidate(t *testing.T, v Validator, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	h := &Handler{Applier: Applier{Validator: v}}
	r.Route("/api/v1/promo", func(pr chi.Router) { h.Routes(pr, nil) })
	req := httptest.NewRequest(http.MethodPost, "/api/v1/promo/validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestValidateHandler(t *testing.T) {
	rr := serveValidate(t, &fixedValidator{ok: true, discount: 30}, `{"code":"HEMAT","subtotal":100}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Data Outcome `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.True(t, body.Data.Applied())
	require.EqualValues(t, 70, body.Data.Final)

	rr = serveValidate(t, &fixedValidator{}, `{"code":"NOPE","subtotal":100}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), NoticeInvalid)
}

func TestValidateHandlerErrors(t *testing.T) {
	rr := serveValidate(t, &fixedValidator{}, `{"code":"","subtotal":100}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = serveValidate(t, &fixedValidator{err: ErrUnauthorized}, `{"code":"HEMAT","subtotal":100}`)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	require.Contains(t, rr.Body.String(), "REAUTHENTICATE")

	rr = serveValidate(t, &fixedValidator{err: errors.New("timeout")}, `{"code":"HEMAT","subtotal":100}`)
	require.Equal(t, http.StatusBadGateway, rr.Code)
}
