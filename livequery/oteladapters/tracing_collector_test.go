package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/technoplato/sharing-instant-sub003/livequery/oteladapters"
)

func Test_NewTracingCollector_Construction(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	assert.NotNil(t, collector, "NewTracingCollector should return non-nil collector")
}

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	tracer := provider.Tracer("test")

	collector := oteladapters.NewTracingCollector(tracer)

	attrs := map[string]string{
		"namespace": "todos",
		"key_hash":  "sha256:abc",
	}

	ctx, spanCtx := collector.StartSpan(context.Background(), "livequery.subscribe", attrs)

	assert.NotNil(t, ctx, "Context should not be nil")
	assert.NotNil(t, spanCtx, "SpanContext should not be nil")

	collector.FinishSpan(spanCtx, "success", map[string]string{"observers": "2"})

	spans := exporter.GetSpans()
	require.Len(t, spans, 1, "Expected exactly one span")

	span := spans[0]
	assert.Equal(t, "livequery.subscribe", span.Name, "Span name should match")
	assert.Equal(t, codes.Ok, span.Status.Code, "Span status should be Ok")

	assertSpanHasAttribute(t, span, "namespace", "todos")
	assertSpanHasAttribute(t, span, "key_hash", "sha256:abc")
	assertSpanHasAttribute(t, span, "observers", "2")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	tests := []struct {
		status       string
		expectedCode codes.Code
	}{
		{status: "ok", expectedCode: codes.Ok},
		{status: "completed", expectedCode: codes.Ok},
		{status: "error", expectedCode: codes.Error},
		{status: "failed", expectedCode: codes.Error},
		{status: "cancelled", expectedCode: codes.Error},
		{status: "timeout", expectedCode: codes.Error},
		{status: "superseded", expectedCode: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			exporter := tracetest.NewInMemoryExporter()
			provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
			collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

			_, spanCtx := collector.StartSpan(context.Background(), "livequery.load", nil)
			collector.FinishSpan(spanCtx, tt.status, nil)

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.expectedCode, spans[0].Status.Code)
		})
	}
}

func Test_TracingCollector_UnknownStatus_BecomesAttribute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

	_, spanCtx := collector.StartSpan(context.Background(), "livequery.load", nil)
	collector.FinishSpan(spanCtx, "shrug", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	assert.Equal(t, codes.Unset, spans[0].Status.Code, "Unknown status should leave the code unset")
	assertSpanHasAttribute(t, spans[0], "status", "shrug")
}

func Test_OTelSpanContext_AddAttribute(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := trace.NewTracerProvider(trace.WithSyncer(exporter))
	collector := oteladapters.NewTracingCollector(provider.Tracer("test"))

	_, spanCtx := collector.StartSpan(context.Background(), "livequery.load", nil)
	spanCtx.AddAttribute("load_reason", "refresh")
	collector.FinishSpan(spanCtx, "ok", nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "load_reason", "refresh")
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, value string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) {
			assert.Equal(t, value, attr.Value.AsString(), "Attribute %s should have expected value", key)
			return
		}
	}

	t.Errorf("Attribute %s not found on span %s", key, span.Name)
}
