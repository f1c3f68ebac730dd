package apm

import (
	"context"
	"math/big"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/multiprice-oracle/internal/apperror"
)

// Attribute keys shared by oracle spans.
const (
	KeyBlock     = attribute.Key("chain.block")
	KeyErrorCode = attribute.Key("error.code")
)

// Tracer starts spans for one instrumentation scope.
type Tracer interface {
	Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span)
}

// Span is the subset of trace.Span the oracle records on.
type Span interface {
	SetAttributes(attrs ...attribute.KeyValue)
	SetBlock(number *big.Int)
	// Finish marks the span by err: ok when nil, otherwise error status
	// plus the error code. It does not end the span.
	Finish(err error)
	End()
	SpanContext() trace.SpanContext
}

type otelTracer struct {
	tracer trace.Tracer
}

// NewTracer returns a Tracer backed by the global provider.
func NewTracer(name string) Tracer {
	return &otelTracer{tracer: otel.Tracer(name)}
}

func (t *otelTracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, &otelSpan{span: span}
}

type otelSpan struct {
	span trace.Span
}

func (s *otelSpan) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

func (s *otelSpan) SetBlock(number *big.Int) {
	if number == nil {
		return
	}
	s.span.SetAttributes(KeyBlock.String(number.String()))
}

func (s *otelSpan) Finish(err error) {
	if err == nil {
		s.span.SetStatus(codes.Ok, "")
		return
	}
	s.span.RecordError(err)
	s.span.SetAttributes(KeyErrorCode.String(string(apperror.GetCode(err))))
	s.span.SetStatus(codes.Error, err.Error())
}

func (s *otelSpan) End() {
	s.span.End()
}

func (s *otelSpan) SpanContext() trace.SpanContext {
	return s.span.SpanContext()
}
