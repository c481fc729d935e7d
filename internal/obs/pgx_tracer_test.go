package obs_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/noah-isme/langganan-pricing/internal/obs"
)

func TestPGXTracerSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var tracer obs.PGXTracer
	query := func(sql string, err error) {
		ctx := tracer.TraceQueryStart(context.Background(), nil, pgx.TraceQueryStartData{SQL: sql})
		tracer.TraceQueryEnd(ctx, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 2"), Err: err})
	}
	query("select *\n  from legacy_plans", nil)
	query("select price from domain_prices where extension = $1", pgx.ErrNoRows)
	query("select 1", errors.New("conn reset"))

	spans := recorder.Ended()
	require.Len(t, spans, 3)
	require.Equal(t, "pgx SELECT", spans[0].Name())
	var text string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == "db.query.text" {
			text = kv.Value.AsString()
		}
	}
	require.Equal(t, "select * from legacy_plans", text)
	require.Equal(t, codes.Unset, spans[1].Status().Code)
	require.Equal(t, codes.Error, spans[2].Status().Code)
}
