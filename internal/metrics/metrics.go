// Package metrics records relay metrics through OpenTelemetry.
// Use a Provider's Recorder for OTel metrics or Noop{} when disabled.
package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Search outcomes used as the "outcome" attribute.
const (
	OutcomeFound    = "found"
	OutcomeNoPath   = "no_path"
	OutcomeTimedOut = "timed_out"
	OutcomeInvalid  = "invalid_input"
)

// Recorder records relay metrics.
type Recorder interface {
	// RecordSearch records one pathfinder call.
	RecordSearch(ctx context.Context, outcome, heuristic string, expandedNodes int, duration time.Duration)

	// RecordDispatch records one call to the robot controller.
	RecordDispatch(ctx context.Context, kind string, err error)

	// RecordTranscription records one speech relay call.
	RecordTranscription(ctx context.Context, duration time.Duration, err error)
}

// OTel implements Recorder using OpenTelemetry instruments.
type OTel struct {
	searches          metric.Int64Counter
	searchLatency     metric.Float64Histogram
	expandedNodes     metric.Int64Histogram
	dispatches        metric.Int64Counter
	dispatchErrors    metric.Int64Counter
	transcriptions    metric.Int64Counter
	transcribeLatency metric.Float64Histogram
}

// New creates the instruments on meter. A nil meter uses the global provider.
func New(meter metric.Meter) (*OTel, error) {
	if meter == nil {
		meter = otel.Meter("roboroute")
	}

	searches, err := meter.Int64Counter("roboroute.search.count",
		metric.WithDescription("Number of pathfinder calls"),
	)
	if err != nil {
		return nil, err
	}

	searchLatency, err := meter.Float64Histogram("roboroute.search.latency_ms",
		metric.WithDescription("Pathfinder latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	expandedNodes, err := meter.Int64Histogram("roboroute.search.expanded_nodes",
		metric.WithDescription("Cells expanded per pathfinder call"),
	)
	if err != nil {
		return nil, err
	}

	dispatches, err := meter.Int64Counter("roboroute.robot.dispatches",
		metric.WithDescription("Number of robot controller calls"),
	)
	if err != nil {
		return nil, err
	}

	dispatchErrors, err := meter.Int64Counter("roboroute.robot.errors",
		metric.WithDescription("Number of failed robot controller calls"),
	)
	if err != nil {
		return nil, err
	}

	transcriptions, err := meter.Int64Counter("roboroute.speech.transcriptions",
		metric.WithDescription("Number of transcription requests"),
	)
	if err != nil {
		return nil, err
	}

	transcribeLatency, err := meter.Float64Histogram("roboroute.speech.latency_ms",
		metric.WithDescription("Transcription latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &OTel{
		searches:          searches,
		searchLatency:     searchLatency,
		expandedNodes:     expandedNodes,
		dispatches:        dispatches,
		dispatchErrors:    dispatchErrors,
		transcriptions:    transcriptions,
		transcribeLatency: transcribeLatency,
	}, nil
}

// RecordSearch records one pathfinder call.
func (m *OTel) RecordSearch(ctx context.Context, outcome, heuristic string, expandedNodes int, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("heuristic", heuristic),
	)
	m.searches.Add(ctx, 1, attrs)
	m.searchLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.expandedNodes.Record(ctx, int64(expandedNodes), attrs)
}

// RecordDispatch records one call to the robot controller.
func (m *OTel) RecordDispatch(ctx context.Context, kind string, err error) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	m.dispatches.Add(ctx, 1, attrs)
	if err != nil {
		m.dispatchErrors.Add(ctx, 1, attrs)
	}
}

// RecordTranscription records one speech relay call.
func (m *OTel) RecordTranscription(ctx context.Context, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.Bool("success", err == nil))
	m.transcriptions.Add(ctx, 1, attrs)
	m.transcribeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// Noop is a Recorder that does nothing.
type Noop struct{}

var (
	_ Recorder = (*OTel)(nil)
	_ Recorder = Noop{}
)

func (Noop) RecordSearch(context.Context, string, string, int, time.Duration) {}
func (Noop) RecordDispatch(context.Context, string, error)                   {}
func (Noop) RecordTranscription(context.Context, time.Duration, error)       {}
