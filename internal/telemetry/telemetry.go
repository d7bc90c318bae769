package telemetry

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/Sachin-Buluswar/DebateAI-sub002/internal/recovery"
)

// Init initializes OpenTelemetry metrics with a stdout exporter.
// Returns the meter and a cleanup function flushing pending exports.
func Init(ctx context.Context) (metric.Meter, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("debate-orchestrator"),
			semconv.ServiceVersion("1.0.0"),
		),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create resource: %w", err)
	}

	exporter, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(30*time.Second)),
		),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	meter := mp.Meter("debate-orchestrator")

	cleanup := func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mp.Shutdown(shutdownCtx)
	}

	return meter, cleanup, nil
}

// Recorder is the observability sink for recovery outcomes, breaker
// transitions and crossfire broadcast latency.
type Recorder struct {
	recoveryOutcomes   metric.Int64Counter
	breakerTransitions metric.Int64Counter
	crossfireLatency   metric.Float64Histogram
}

// NewRecorder registers the engine's instruments on the meter.
func NewRecorder(meter metric.Meter) (*Recorder, error) {
	outcomes, err := meter.Int64Counter("recovery.outcomes",
		metric.WithDescription("Outcomes of guarded external calls"))
	if err != nil {
		return nil, err
	}
	transitions, err := meter.Int64Counter("recovery.breaker.transitions",
		metric.WithDescription("Circuit breaker state transitions"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("crossfire.broadcast.latency",
		metric.WithDescription("Time from crossfire message receipt to broadcast"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &Recorder{
		recoveryOutcomes:   outcomes,
		breakerTransitions: transitions,
		crossfireLatency:   latency,
	}, nil
}

// ReportOutcome implements recovery.Reporter.
func (r *Recorder) ReportOutcome(operation string, outcome recovery.Outcome, attempts int, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", operation),
		attribute.String("outcome", string(outcome)),
		attribute.Int("attempts", attempts),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("degraded", true))
	}
	r.recoveryOutcomes.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}

// ReportBreakerTransition implements recovery.Reporter.
func (r *Recorder) ReportBreakerTransition(operation string, from, to recovery.BreakerState) {
	r.breakerTransitions.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("from", from.String()),
		attribute.String("to", to.String()),
	))
}

// RecordCrossfireLatency records one send-to-broadcast latency sample.
func (r *Recorder) RecordCrossfireLatency(sessionID string, latency time.Duration) {
	r.crossfireLatency.Record(context.Background(), float64(latency.Microseconds())/1000.0,
		metric.WithAttributes(attribute.String("session_id", sessionID)))
}
