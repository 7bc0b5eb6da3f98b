package tracing

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/t0mer/wa-llm-exporter/errors"
)

// Span attribute keys
const (
	AttrScrapeID  = attribute.Key("exporter.scrape_id")
	AttrCollector = attribute.Key("exporter.collector")
	AttrSamples   = attribute.Key("exporter.samples")
	AttrErrorType = attribute.Key("exporter.error_type")
)

// StartScrapeSpan starts the root span of one scrape
func StartScrapeSpan(ctx context.Context, tracer trace.Tracer, scrapeID string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "scrape",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(AttrScrapeID.String(scrapeID)),
	)
}

// StartCollectorSpan starts the span of one collector run
func StartCollectorSpan(ctx context.Context, tracer trace.Tracer, collector string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "collect "+collector,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(AttrCollector.String(collector)),
	)
}

// EndSpan finishes a span, recording error status and kind if applicable
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(AttrErrorType.String(errors.KindOf(err).String()))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
