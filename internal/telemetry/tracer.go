package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// noopTracer backs every Start* call on a nil *Tracer, so callers that hold
// an optional Tracer never need a nil check before starting a span.
var noopTracer = noop.NewTracerProvider().Tracer("chatcore/noop")

// Tracer issues spans for the broker's control loop and the bridge's
// reactor callbacks. Build one with New; a zero value, like a nil *Tracer,
// issues only no-op spans.
type Tracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
	config   Config
}

// New builds a Tracer from cfg, registering an OTel TracerProvider as the
// global one. A nil cfg falls back to DefaultConfig (tracing disabled).
func New(ctx context.Context, cfg *Config) (*Tracer, error) {
	resolved := DefaultConfig()
	if cfg != nil {
		resolved = *cfg
	}
	resolved = resolved.withDefaults()

	var opts []sdktrace.TracerProviderOption

	res, err := resource.New(ctx,
		resource.WithAttributes(
			attribute.String("service.name", resolved.ServiceName),
			attribute.String("service.version", resolved.ServiceVersion),
			attribute.String("deployment.environment", resolved.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}
	opts = append(opts, sdktrace.WithResource(res))
	opts = append(opts, sdktrace.WithSampler(sdktrace.TraceIDRatioBased(resolved.SampleRate)))

	switch resolved.ExporterType {
	case ExporterNone:
		// No batcher registered: every span is started and dropped on end.
	case ExporterStdout:
		exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("telemetry: build stdout exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
	default:
		return nil, fmt.Errorf("telemetry: unsupported exporter type %q", resolved.ExporterType)
	}

	provider := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(provider)

	return &Tracer{
		provider: provider,
		tracer:   provider.Tracer(resolved.ServiceName),
		config:   resolved,
	}, nil
}

// Shutdown flushes and releases the underlying provider. Safe to call on a
// nil Tracer.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t == nil || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

func (t *Tracer) otelTracer() trace.Tracer {
	if t == nil || t.tracer == nil {
		return noopTracer
	}
	return t.tracer
}

// StartBrokerDispatch spans one control-loop iteration of the pub/sub
// broker: a single AddTopic/RemoveTopic message being applied. Safe
// to call on a nil *Tracer, which yields a no-op span.
func (t *Tracer) StartBrokerDispatch(ctx context.Context, op string, topic string) (context.Context, trace.Span) {
	return t.otelTracer().Start(ctx, "pubsub.dispatch",
		trace.WithAttributes(
			attribute.String("pubsub.op", op),
			attribute.String("pubsub.topic", topic),
		),
	)
}

// StartReactorCallback spans one invocation of a chatbridge reactor
// callback (OnSubscribe/OnUnsubscribe) for the named room. Safe to call on
// a nil *Tracer.
func (t *Tracer) StartReactorCallback(ctx context.Context, callback string, room string) (context.Context, trace.Span) {
	return t.otelTracer().Start(ctx, "chatbridge.reactor."+callback,
		trace.WithAttributes(attribute.String("chatbridge.room", room)),
	)
}

// StartNotifyDispatch spans the delivery of one Postgres NOTIFY payload to
// its target room's subscribers. Safe to call on a nil *Tracer.
func (t *Tracer) StartNotifyDispatch(ctx context.Context, room string, sequenceID int64) (context.Context, trace.Span) {
	return t.otelTracer().Start(ctx, "chatbridge.notify",
		trace.WithAttributes(
			attribute.String("chatbridge.room", room),
			attribute.Int64("chatbridge.sequence_id", sequenceID),
		),
	)
}
