package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "coach-app"

var globalTracer trace.Tracer

// InitGlobalTracer initializes the global tracer for the application.
func InitGlobalTracer() {
	globalTracer = otel.Tracer(tracerName)
}

// GetGlobalTracer returns the global tracer instance for the application.
func GetGlobalTracer() trace.Tracer {
	if globalTracer == nil {
		globalTracer = otel.Tracer(tracerName)
	}
	return globalTracer
}

// TraceFunction starts a new span named "<service>.<function>".
func TraceFunction(ctx context.Context, serviceName, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return GetGlobalTracer().Start(ctx, fmt.Sprintf("%s.%s", serviceName, functionName), trace.WithAttributes(attributes...))
}

// TraceUserFunction starts a new span for a profile service function.
func TraceUserFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "user", functionName, attributes...)
}

// TraceCatalogFunction starts a new span for a catalog function.
func TraceCatalogFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "catalog", functionName, attributes...)
}

// TraceProgressFunction starts a new span for a progress store function.
func TraceProgressFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "progress", functionName, attributes...)
}

// TraceRoadmapFunction starts a new span for a roadmap function.
func TraceRoadmapFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "roadmap", functionName, attributes...)
}

// TraceInteractionFunction starts a new span for an interaction ingestion function.
func TraceInteractionFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "interaction", functionName, attributes...)
}

// TraceWorkerFunction starts a new span for a worker function.
func TraceWorkerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "worker", functionName, attributes...)
}

// TraceHandlerFunction starts a new span for a handler function.
func TraceHandlerFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "handler", functionName, attributes...)
}

// TraceDatabaseFunction starts a new span for a database function.
func TraceDatabaseFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "database", functionName, attributes...)
}

// TraceEmailFunction starts a new span for an email function.
func TraceEmailFunction(ctx context.Context, functionName string, attributes ...attribute.KeyValue) (context.Context, trace.Span) {
	return TraceFunction(ctx, "email", functionName, attributes...)
}

// AttributeUserID returns a tracing attribute for a user ID.
func AttributeUserID(id int) attribute.KeyValue {
	return attribute.Int("user.id", id)
}

// AttributeTopicID returns a tracing attribute for a topic ID.
func AttributeTopicID(id string) attribute.KeyValue {
	return attribute.String("topic.id", id)
}

// AttributeSubjectID returns a tracing attribute for a subject ID.
func AttributeSubjectID(id string) attribute.KeyValue {
	return attribute.String("subject.id", id)
}

// AttributeExamTrack returns a tracing attribute for an exam track.
func AttributeExamTrack(track string) attribute.KeyValue {
	return attribute.String("exam.track", track)
}

// AttributeRoadmapID returns a tracing attribute for a roadmap ID.
func AttributeRoadmapID(id string) attribute.KeyValue {
	return attribute.String("roadmap.id", id)
}

// AttributeWeekOffset returns a tracing attribute for a week offset.
func AttributeWeekOffset(offset int) attribute.KeyValue {
	return attribute.Int("roadmap.week_offset", offset)
}
