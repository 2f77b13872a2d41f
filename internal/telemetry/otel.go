// Package telemetry wraps OpenTelemetry span creation for the
// registry's four externally-observable operations: register, search,
// feedback, and the auto-review sweep.
package telemetry

import (
	"context"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Config holds telemetry configuration, read from TelemetryConfig at
// bootstrap.
type Config struct {
	Enabled  bool
	Exporter string // "otlp", "stdout", or "none"
	Endpoint string
	Insecure bool
}

// Provider manages OpenTelemetry tracing for the registry process.
type Provider struct {
	config   Config
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
}

// NewProvider creates a telemetry provider. Disabled or unconfigured
// providers still return a usable no-op tracer.
func NewProvider(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{config: cfg, tracer: otel.Tracer("registry")}, nil
	}

	slog.Info("creating trace exporter", "type", cfg.Exporter)

	var exporter sdktrace.SpanExporter
	var err error
	switch cfg.Exporter {
	case "otlp":
		exporter, err = createOTLPExporter(cfg)
		if err != nil {
			return nil, err
		}
		slog.Info("otlp exporter initialized", "endpoint", cfg.Endpoint)
	case "stdout":
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		slog.Info("stdout trace exporter initialized")
	default:
		return &Provider{config: cfg, tracer: otel.Tracer("registry")}, nil
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)

	return &Provider{config: cfg, tracer: tp.Tracer("registry"), provider: tp}, nil
}

func createOTLPExporter(cfg Config) (sdktrace.SpanExporter, error) {
	ctx := context.Background()

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	return otlptracegrpc.New(ctx, opts...)
}

// Tracer returns the tracer for creating spans.
func (p *Provider) Tracer() trace.Tracer {
	return p.tracer
}

// Shutdown gracefully shuts down the trace provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.provider != nil {
		return p.provider.Shutdown(ctx)
	}
	return nil
}

// Enabled returns whether telemetry export is active.
func (p *Provider) Enabled() bool {
	return p.config.Enabled && p.provider != nil
}

// Span attribute names.
const (
	AttrCallerID   = "registry.caller.id"
	AttrAgentID    = "registry.agent.id"
	AttrCallerType = "registry.caller.type"
	AttrResultCount = "registry.search.result_count"
	AttrScore      = "registry.search.top_score"
	AttrStatusFrom = "registry.quarantine.status_from"
	AttrStatusTo   = "registry.quarantine.status_to"
)

// StartSearchSpan starts a span around one POST /search handling.
func (p *Provider) StartSearchSpan(ctx context.Context, callerID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "registry.search",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(AttrCallerID, callerID)),
	)
}

// EndSearchSpan closes a search span with its result count.
func (p *Provider) EndSearchSpan(span trace.Span, resultCount int, topScore float64, err error) {
	span.SetAttributes(
		attribute.Int(AttrResultCount, resultCount),
		attribute.Float64(AttrScore, topScore),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// StartFeedbackSpan starts a span around one POST /feedback handling.
func (p *Provider) StartFeedbackSpan(ctx context.Context, agentID, callerID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "registry.feedback",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String(AttrAgentID, agentID),
			attribute.String(AttrCallerID, callerID),
		),
	)
}

// StartRegisterSpan starts a span around one POST /register handling.
func (p *Provider) StartRegisterSpan(ctx context.Context, callerID string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "registry.register",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String(AttrCallerID, callerID)),
	)
}

// RecordStatusTransition adds a status-change event to the active
// auto-review span.
func (p *Provider) RecordStatusTransition(ctx context.Context, agentID, from, to string) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent("agent.status_transition",
		trace.WithAttributes(
			attribute.String(AttrAgentID, agentID),
			attribute.String(AttrStatusFrom, from),
			attribute.String(AttrStatusTo, to),
		),
	)
}

// StartAutoReviewSpan starts a span around one auto-review sweep.
func (p *Provider) StartAutoReviewSpan(ctx context.Context) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "registry.auto_review", trace.WithSpanKind(trace.SpanKindInternal))
}

// EndAutoReviewSpan closes an auto-review span with the sweep summary.
func (p *Provider) EndAutoReviewSpan(span trace.Span, quarantined, reactivated, banned int, err error) {
	span.SetAttributes(
		attribute.Int("registry.auto_review.quarantined", quarantined),
		attribute.Int("registry.auto_review.reactivated", reactivated),
		attribute.Int("registry.auto_review.banned", banned),
	)
	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// DefaultConfig returns telemetry disabled.
func DefaultConfig() Config {
	return Config{Enabled: false, Exporter: "none"}
}

// ConfigFromEnv builds a Config from OTEL_EXPORTER_OTLP_ENDPOINT /
// OTEL_EXPORTER_OTLP_INSECURE, mirroring the registry's config layer.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		cfg.Enabled = true
		cfg.Exporter = "otlp"
		cfg.Endpoint = endpoint
		cfg.Insecure = os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true"
	}

	return cfg
}

// NoopProvider returns a provider that records nothing, for tests.
func NoopProvider() *Provider {
	return &Provider{config: Config{Enabled: false}, tracer: otel.Tracer("registry-noop")}
}

// ContextWithTimeout creates a context with timeout for shutdown.
func ContextWithTimeout(timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), timeout)
}
