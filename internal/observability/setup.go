package observability

import (
	"context"
	"errors"
	"os"

	"coachapp/internal/config"

	autosdk "go.opentelemetry.io/auto/sdk"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap/zapcore"
)

// Telemetry bundles the providers created by SetupObservability
type Telemetry struct {
	TracerProvider trace.TracerProvider
	MeterProvider  *metric.MeterProvider
	Logger         *Logger
	Metrics        *CoachMetrics
}

// Shutdown flushes and stops whichever providers were started
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if s, ok := t.TracerProvider.(interface{ Shutdown(context.Context) error }); ok {
		errs = append(errs, s.Shutdown(ctx))
	}
	if t.MeterProvider != nil {
		errs = append(errs, t.MeterProvider.Shutdown(ctx))
	}
	if t.Logger != nil {
		// stdout sync errors are expected on some terminals
		_ = t.Logger.Sync()
	}
	return errors.Join(errs...)
}

// SetupObservability initializes tracing, metrics, and logging for a service
func SetupObservability(cfg *config.OpenTelemetryConfig, serviceName string, level zapcore.Level) (*Telemetry, error) {
	if serviceName != "" {
		cfg.ServiceName = serviceName
	}

	if err := os.Setenv("OTEL_SERVICE_NAME", cfg.ServiceName); err != nil {
		return nil, err
	}
	if err := os.Setenv("OTEL_SERVICE_VERSION", cfg.ServiceVersion); err != nil {
		return nil, err
	}

	t := &Telemetry{Logger: NewLoggerWithLevel(cfg, level)}

	if cfg.EnableTracing {
		if cfg.UseAutoSDK {
			t.TracerProvider = autosdk.TracerProvider()
			t.Logger.Info(context.Background(), "Tracing enabled with Auto SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		} else {
			tp, err := InitStandardTracing(cfg)
			if err != nil {
				return nil, err
			}
			t.TracerProvider = tp
			t.Logger.Info(context.Background(), "Tracing enabled with standard SDK", map[string]interface{}{"service_name": cfg.ServiceName})
		}
		otel.SetTracerProvider(t.TracerProvider)

		if err := InitTracing(cfg); err != nil {
			return nil, err
		}
		InitGlobalTracer()
	}

	if cfg.EnableMetrics {
		mp, err := InitMetrics(cfg)
		if err != nil {
			return nil, err
		}
		otel.SetMeterProvider(mp)
		t.MeterProvider = mp
	}

	metrics, err := NewCoachMetrics(nil)
	if err != nil {
		return nil, err
	}
	t.Metrics = metrics

	return t, nil
}
