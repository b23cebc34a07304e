package http

import (
	"context"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/abdul-hamid-achik/hitwire/packages/http"

// WithTracerProvider records one client span per Execute. The global
// provider is used when unset.
func WithTracerProvider(tp trace.TracerProvider) ClientOption {
	return func(c *Client) {
		c.tracer = tp.Tracer(tracerName)
	}
}

// WithPropagator sets how the span context is written into request headers.
// The global propagator is used when unset.
func WithPropagator(p propagation.TextMapPropagator) ClientOption {
	return func(c *Client) {
		c.propagator = p
	}
}

func (c *Client) startSpan(ctx context.Context, method string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.request.method", method)),
	)
}

func (c *Client) injectTrace(ctx context.Context, req *http.Request) {
	c.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("url.full", req.URL.String()))
}

func endSpan(span trace.Span, status int, err error) {
	defer span.End()
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= 400:
		span.SetStatus(codes.Error, "HTTP "+strconv.Itoa(status))
	}
}

func defaultTracing(c *Client) {
	if c.tracer == nil {
		c.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	if c.propagator == nil {
		c.propagator = otel.GetTextMapPropagator()
	}
}
