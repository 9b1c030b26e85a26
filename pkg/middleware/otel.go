package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/waypoint-dev/waypoint/v2/pkg/route"
)

// Default tracer name for navigation spans.
const defaultTracerName = "waypoint"

// OTelConfig configures the OpenTelemetry middleware.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "waypoint").
	TracerName string

	// IncludeRoute includes the route pattern in spans.
	// Enabled by default.
	IncludeRoute bool

	// Filter determines which navigations to trace.
	// Return true to trace the navigation, false to skip.
	// If nil, all navigations are traced.
	Filter func(mc *route.MiddlewareContext) bool

	// AttributeExtractor extracts custom attributes from the context.
	// Called for each traced navigation.
	AttributeExtractor func(mc *route.MiddlewareContext) []attribute.KeyValue

	// tracer is the resolved tracer instance.
	tracer trace.Tracer
}

// OTelOption configures the OpenTelemetry middleware.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeRoute enables/disables including the route pattern in spans.
func WithIncludeRoute(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeRoute = include
	}
}

// WithNavigationFilter sets a filter function for navigations.
func WithNavigationFilter(filter func(mc *route.MiddlewareContext) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(mc *route.MiddlewareContext) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// defaultOTelConfig returns the default OpenTelemetry configuration.
func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName:   defaultTracerName,
		IncludeRoute: true,
	}
}

type otelMiddleware struct {
	config OTelConfig
}

// OpenTelemetry creates middleware that emits a span for every completed
// navigation.
//
// The span is created when the navigation completes, backdated to the
// attempt's start time, so its duration covers the full pipeline run.
// Aborted navigations produce no span.
//
// Example:
//
//	navigator := nav.New(registry,
//	    nav.WithMiddleware(
//	        middleware.OpenTelemetry(
//	            middleware.WithTracerName("my-app"),
//	        ),
//	    ),
//	)
//
// The tracer uses the global OpenTelemetry tracer provider. Configure it
// in your main() before constructing the navigator:
//
//	tp := sdktrace.NewTracerProvider(
//	    sdktrace.WithBatcher(exporter),
//	    sdktrace.WithResource(resource.NewWithAttributes(
//	        semconv.SchemaURL,
//	        semconv.ServiceName("my-app"),
//	    )),
//	)
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) route.Middleware {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}

	// Resolve tracer from global provider
	config.tracer = otel.Tracer(config.TracerName)

	return &otelMiddleware{config: config}
}

func (m *otelMiddleware) Name() string  { return "otel" }
func (m *otelMiddleware) Priority() int { return 80 }

func (m *otelMiddleware) Handle(ctx context.Context, mc *route.MiddlewareContext) (route.MiddlewareResult, error) {
	return route.Next(), nil
}

func (m *otelMiddleware) AfterNavigation(ctx context.Context, mc *route.MiddlewareContext) {
	if m.config.Filter != nil && !m.config.Filter(mc) {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("waypoint.path", mc.Target.Path),
		attribute.String("waypoint.attempt_id", mc.AttemptID),
	}

	if m.config.IncludeRoute {
		attrs = append(attrs, attribute.String("waypoint.route", mc.Target.Pattern))
	}

	if mc.Current != nil {
		attrs = append(attrs, attribute.String("waypoint.from", mc.Current.Path))
	}

	if m.config.AttributeExtractor != nil {
		attrs = append(attrs, m.config.AttributeExtractor(mc)...)
	}

	_, span := m.config.tracer.Start(
		ctx,
		spanName(mc),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(mc.StartTime),
	)
	span.SetStatus(codes.Ok, "")
	span.End()
}

// spanName creates a span name from the navigation target. The pattern
// keeps span names bounded; the concrete path goes in attributes.
func spanName(mc *route.MiddlewareContext) string {
	pattern := mc.Target.Pattern
	if pattern == "" {
		pattern = "/"
	}
	return "navigate " + pattern
}
