// Package telemetry carries the teacher's pkg/observability style forward:
// an slog.Handler that injects OpenTelemetry trace context into every log
// record, and a Tracer/Meter/Logger bundle threaded through graph.Open so
// every suspension-point operation (ref read/write, blob/tree/commit
// read/write, ancestry walk) can emit a span and a structured log line.
//
// warp is a library, not a long-running process: it never builds an SDK
// TracerProvider or MeterProvider, or talks to an OTLP collector. Callers
// hand in whatever trace.Tracer and metric.Meter their own process already
// set up (via otel.Tracer/otel.Meter or an SDK provider); Default provides
// no-op handles for callers with no telemetry backend at all.
package telemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	noopmetric "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"
)

const (
	attrTraceID   = "trace_id"
	attrSpanID    = "span_id"
	attrComponent = "component"

	tracerName = "warp"
	meterName  = "warp"
)

// TracingHandler is an slog.Handler that injects OpenTelemetry trace context
// (trace_id, span_id) into every log record. The component attribute is
// pre-attached at construction so it stays at the top level even when
// groups are used.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner, injecting trace context and a component
// attribute identifying the emitting package (e.g. "graph", "checkpoint").
func NewTracingHandler(inner slog.Handler, component string) *TracingHandler {
	return &TracingHandler{
		inner: inner.WithAttrs([]slog.Attr{slog.String(attrComponent, component)}),
	}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle adds trace context attributes from the span in ctx, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	sc := trace.SpanContextFromContext(ctx)
	if sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	if err := th.inner.Handle(ctx, record); err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes on the
// inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a new TracingHandler with a group prefix on the inner
// handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}

// Handles bundles the telemetry handles graph.Open threads through the rest
// of warp: a Tracer for suspension-point spans, a Meter for instruments, and
// a component-scoped Logger.
type Handles struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger *slog.Logger
}

// Default returns Handles backed by no-op tracer/meter providers and
// slog.Default(), wrapped with NewTracingHandler so the no-op case still
// logs in the same shape a wired case would (minus trace/span ids, since a
// no-op tracer never produces a valid span context).
func Default(component string) Handles {
	return New(nil, nil, nil, component)
}

// New builds Handles from caller-supplied tracer/meter/logger, substituting
// no-op/default implementations for any nil argument.
func New(tracer trace.Tracer, meter metric.Meter, logger *slog.Logger, component string) Handles {
	if tracer == nil {
		tracer = nooptrace.NewTracerProvider().Tracer(tracerName)
	}

	if meter == nil {
		meter = noopmetric.NewMeterProvider().Meter(meterName)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return Handles{
		Tracer: tracer,
		Meter:  meter,
		Logger: slog.New(NewTracingHandler(logger.Handler(), component)),
	}
}

// StartSpan starts a span named name on h.Tracer, returning the derived
// context and span. Callers must defer span.End().
func (h Handles) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return h.Tracer.Start(ctx, name)
}
