package tracing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWrapHTTPClientInjectsTraceparent(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(orig)
	SetPropagator()

	var traceparent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceparent = r.Header.Get("traceparent")
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := WrapHTTPClient(srv.Client())
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, srv.URL+"/snap/v1/transactions", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	resp.Body.Close()

	if traceparent == "" {
		t.Fatalf("expected traceparent header on outbound request")
	}
	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 client span, got %d", len(spans))
	}
	if spans[0].Name() != "HTTP POST /snap/v1/transactions" {
		t.Fatalf("unexpected span name %q", spans[0].Name())
	}
}

func TestSafeAttributesDropsSecrets(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("order_id", "DONATION-1"),
		attribute.String("signature_key", "abc"),
		attribute.String("midtrans.server_key", "abc"),
	)
	if len(attrs) != 1 || attrs[0].Key != "order_id" {
		t.Fatalf("expected only order_id to survive, got %v", attrs)
	}
}

func TestStartRecordsErrorByType(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	orig := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	defer otel.SetTracerProvider(orig)

	_, span := Start(context.Background(), "payment.ingest_webhook",
		attribute.String("payment.provider", "midtrans"),
		attribute.String("midtrans.server_key", "SB-Mid-server-xyz"),
	)
	End(span, errors.New("invalid_signature"))

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	for _, attr := range spans[0].Attributes() {
		if attr.Key == "midtrans.server_key" {
			t.Fatalf("expected server key attribute dropped")
		}
	}
	events := spans[0].Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 error event, got %d", len(events))
	}
	if spans[0].Status().Code != codes.Error {
		t.Fatalf("expected error status, got %v", spans[0].Status().Code)
	}
}
