package observability

import (
	"context"
	"time"

	"coachapp/internal/config"
	contextutils "coachapp/internal/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// InitMetrics initializes an SDK MeterProvider exporting over OTLP
func InitMetrics(cfg *config.OpenTelemetryConfig) (result0 *metric.MeterProvider, err error) {
	ctx := context.Background()

	res, err := newResource(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var exporter metric.Exporter
	switch cfg.Protocol {
	case "grpc":
		opts := []otlpmetricgrpc.Option{
			otlpmetricgrpc.WithEndpoint(cfg.Endpoint),
			otlpmetricgrpc.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exporter, err = otlpmetricgrpc.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp grpc metric exporter: %w", err)
		}
	case "http":
		opts := []otlpmetrichttp.Option{
			otlpmetrichttp.WithEndpoint(cfg.Endpoint),
			otlpmetrichttp.WithHeaders(cfg.Headers),
		}
		if cfg.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exporter, err = otlpmetrichttp.New(ctx, opts...)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to create otlp http metric exporter: %w", err)
		}
	default:
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "unsupported otel protocol: %s", cfg.Protocol)
	}

	return metric.NewMeterProvider(
		metric.WithReader(metric.NewPeriodicReader(exporter)),
		metric.WithResource(res),
	), nil
}

// CoachMetrics holds the domain instruments. A nil *CoachMetrics records nothing.
type CoachMetrics struct {
	roadmapsGenerated  otelmetric.Int64Counter
	progressUpdates    otelmetric.Int64Counter
	directivesEmitted  otelmetric.Int64Counter
	generationDuration otelmetric.Float64Histogram
}

// NewCoachMetrics registers the coach instruments on the given meter provider,
// falling back to the global provider when mp is nil.
func NewCoachMetrics(mp otelmetric.MeterProvider) (*CoachMetrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(tracerName)

	roadmaps, err := meter.Int64Counter("coach.roadmaps.generated",
		otelmetric.WithDescription("Weekly roadmaps persisted"))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create roadmap counter")
	}
	updates, err := meter.Int64Counter("coach.progress.updates",
		otelmetric.WithDescription("Progress record writes"))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create progress counter")
	}
	directives, err := meter.Int64Counter("coach.directives.emitted",
		otelmetric.WithDescription("Adaptation directives emitted"))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create directive counter")
	}
	duration, err := meter.Float64Histogram("coach.roadmap.generation.duration",
		otelmetric.WithUnit("ms"),
		otelmetric.WithDescription("Time spent generating one roadmap"))
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to create generation histogram")
	}

	return &CoachMetrics{
		roadmapsGenerated:  roadmaps,
		progressUpdates:    updates,
		directivesEmitted:  directives,
		generationDuration: duration,
	}, nil
}

// RecordRoadmapGenerated counts one persisted roadmap and its generation time
func (m *CoachMetrics) RecordRoadmapGenerated(ctx context.Context, track string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("exam.track", track))
	m.roadmapsGenerated.Add(ctx, 1, attrs)
	m.generationDuration.Record(ctx, float64(elapsed.Microseconds())/1000.0, attrs)
}

// RecordProgressUpdate counts a progress write by its source
func (m *CoachMetrics) RecordProgressUpdate(ctx context.Context, source string) {
	if m == nil {
		return
	}
	m.progressUpdates.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("progress.source", source)))
}

// RecordDirective counts an emitted adaptation directive by type
func (m *CoachMetrics) RecordDirective(ctx context.Context, directiveType string) {
	if m == nil {
		return
	}
	m.directivesEmitted.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("directive.type", directiveType)))
}
