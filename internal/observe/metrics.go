// Package observe holds the OpenTelemetry metrics and tracing used across
// the pipeline. Metrics are exported for Prometheus scraping by
// InitProvider; tests should build their own Metrics with NewMetrics and a
// ManualReader.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const meterName = "github.com/yoockh/podcaster"

type Metrics struct {
	// StepDuration tracks Initialize, Extend and Finalize. Attributes:
	//   step, status
	StepDuration metric.Float64Histogram

	// ProviderDuration tracks external calls. Attributes: kind (stt, llm,
	// tts), task, model
	ProviderDuration metric.Float64Histogram

	// ProviderErrors counts failed external calls. Attributes: kind, task
	ProviderErrors metric.Int64Counter

	// TurnsGenerated counts turns appended to sessions. Attribute: step
	TurnsGenerated metric.Int64Counter

	// ClipsSkipped counts turns whose audio could not be synthesized or
	// decoded.
	ClipsSkipped metric.Int64Counter

	// HTTPRequestDuration attributes: method, route, status
	HTTPRequestDuration metric.Float64Histogram
}

// Podcast steps and their external calls run from seconds to many minutes.
var stepBuckets = []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600, 1200}

var callBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 300}

func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.StepDuration, err = m.Float64Histogram("podcaster.step.duration",
		metric.WithDescription("Duration of a pipeline step."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stepBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderDuration, err = m.Float64Histogram("podcaster.provider.duration",
		metric.WithDescription("Latency of transcription, generation and synthesis calls."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(callBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("podcaster.provider.errors",
		metric.WithDescription("Failed external calls."),
	); err != nil {
		return nil, err
	}
	if met.TurnsGenerated, err = m.Int64Counter("podcaster.turns.generated",
		metric.WithDescription("Dialogue turns appended to sessions."),
	); err != nil {
		return nil, err
	}
	if met.ClipsSkipped, err = m.Int64Counter("podcaster.clips.skipped",
		metric.WithDescription("Turns left out of the final audio."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("podcaster.http.request.duration",
		metric.WithDescription("HTTP request processing time."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stepBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// NopMetrics records nothing.
func NopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider())
	return m
}

// RecordStep records one step outcome.
func (m *Metrics) RecordStep(ctx context.Context, step string, took time.Duration, err error) {
	m.StepDuration.Record(ctx, took.Seconds(), metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", status(err)),
	))
}

// RecordCall records one external call and counts it as an error when err
// is non-nil.
func (m *Metrics) RecordCall(ctx context.Context, kind, task, model string, took time.Duration, err error) {
	m.ProviderDuration.Record(ctx, took.Seconds(), metric.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("task", task),
		attribute.String("model", model),
	))
	if err != nil {
		m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("task", task),
		))
	}
}

func (m *Metrics) AddTurns(ctx context.Context, step string, n int) {
	if n <= 0 {
		return
	}
	m.TurnsGenerated.Add(ctx, int64(n), metric.WithAttributes(attribute.String("step", step)))
}

func (m *Metrics) AddSkippedClips(ctx context.Context, n int) {
	if n <= 0 {
		return
	}
	m.ClipsSkipped.Add(ctx, int64(n))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
