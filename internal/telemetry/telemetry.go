// Package telemetry exports hotspot lifecycles as OpenTelemetry spans.
package telemetry

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweeney/hotspot-projector/internal/hotspot"
)

// InstrumentationName identifies spans created by this package.
const InstrumentationName = "github.com/sweeney/hotspot-projector/internal/telemetry"

// Span and attribute names.
const (
	SpanActivation = "hotspot.activation"
	SpanDwell      = "hotspot.dwell"

	AttrHotspotID = attribute.Key("hotspot.id")
	AttrSession   = attribute.Key("hotspot.session")
	AttrOutcome   = attribute.Key("hotspot.outcome")
)

// Outcomes recorded on finished spans.
const (
	OutcomeActivated = "activated"
	OutcomeCancelled = "cancelled"
	OutcomeReleased  = "released"
	OutcomeForced    = "forced"
)

// Setup installs a global tracer provider exporting to endpoint over OTLP/HTTP.
// An empty endpoint disables tracing and returns a no-op shutdown.
func Setup(ctx context.Context, endpoint, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }
	if endpoint == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(endpoint))
	if err != nil {
		return noop, fmt.Errorf("otlp exporter: %w", err)
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noop, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer is a hotspot listener that records one activation span per press
// and one dwell span per completed activation.
type Tracer struct {
	tracer  trace.Tracer
	session string

	mu         sync.Mutex
	activation map[int]trace.Span
	dwell      map[int]trace.Span
}

// NewTracer creates a Tracer using tp. A nil tp uses the global provider.
func NewTracer(tp trace.TracerProvider, session string) *Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Tracer{
		tracer:     tp.Tracer(InstrumentationName),
		session:    session,
		activation: make(map[int]trace.Span),
		dwell:      make(map[int]trace.Span),
	}
}

func (t *Tracer) start(name string, id int) trace.Span {
	_, span := t.tracer.Start(context.Background(), name,
		trace.WithAttributes(AttrHotspotID.Int(id), AttrSession.String(t.session)))
	return span
}

func (t *Tracer) HotspotActivating(args hotspot.HotspotArgs) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.activation[args.ID]; ok {
		old.End()
	}
	t.activation[args.ID] = t.start(SpanActivation, args.ID)
}

func (t *Tracer) HotspotActivated(args hotspot.HotspotArgs) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.activation[args.ID]; ok {
		finish(span, OutcomeActivated, codes.Ok, "")
		delete(t.activation, args.ID)
	}
	t.dwell[args.ID] = t.start(SpanDwell, args.ID)
}

func (t *Tracer) HotspotDeactivating(args hotspot.HotspotArgs) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.dwell[args.ID]; ok {
		span.AddEvent("deactivating")
	}
}

func (t *Tracer) HotspotForcefullyDeactivated(args hotspot.HotspotArgs) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if span, ok := t.dwell[args.ID]; ok {
		finish(span, OutcomeForced, codes.Unset, "")
		delete(t.dwell, args.ID)
	}
}

func (t *Tracer) HotspotSettled(args hotspot.HotspotArgs, state hotspot.State) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if state == hotspot.StateActive {
		if span, ok := t.dwell[args.ID]; ok {
			span.AddEvent("repressed")
		}
		return
	}
	if span, ok := t.activation[args.ID]; ok {
		finish(span, OutcomeCancelled, codes.Error, "released before activation completed")
		delete(t.activation, args.ID)
	}
	if span, ok := t.dwell[args.ID]; ok {
		finish(span, OutcomeReleased, codes.Unset, "")
		delete(t.dwell, args.ID)
	}
}

// Close ends any span still open.
func (t *Tracer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, span := range t.activation {
		span.End()
		delete(t.activation, id)
	}
	for id, span := range t.dwell {
		span.End()
		delete(t.dwell, id)
	}
}

func finish(span trace.Span, outcome string, code codes.Code, desc string) {
	span.SetAttributes(AttrOutcome.String(outcome))
	if code != codes.Unset {
		span.SetStatus(code, desc)
	}
	span.End()
}
