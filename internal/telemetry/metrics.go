package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the pipeline instruments. Built against the global meter
// provider, so they are no-ops unless Setup installed a real one.
type Metrics struct {
	Frames      metric.Int64Counter
	AudioBytes  metric.Int64Counter
	Partials    metric.Int64Counter
	Finals      metric.Int64Counter
	RecognizeMS metric.Float64Histogram
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("vosk-cli/session")

	frames, err := meter.Int64Counter("transcribe.frames",
		metric.WithDescription("Audio blocks consumed from the input source"))
	if err != nil {
		return nil, err
	}
	audioBytes, err := meter.Int64Counter("transcribe.audio_bytes",
		metric.WithDescription("PCM bytes fed to the recognizer"))
	if err != nil {
		return nil, err
	}
	partials, err := meter.Int64Counter("transcribe.partials",
		metric.WithDescription("Partial hypotheses emitted"))
	if err != nil {
		return nil, err
	}
	finals, err := meter.Int64Counter("transcribe.finals",
		metric.WithDescription("Final sentences emitted"))
	if err != nil {
		return nil, err
	}
	recognizeMS, err := meter.Float64Histogram("transcribe.recognize_ms",
		metric.WithDescription("Recognizer latency per audio block in milliseconds"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		Frames:      frames,
		AudioBytes:  audioBytes,
		Partials:    partials,
		Finals:      finals,
		RecognizeMS: recognizeMS,
	}, nil
}

// ObserveBlock records one consumed block and the recognizer latency.
func (m *Metrics) ObserveBlock(ctx context.Context, bytes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Frames.Add(ctx, 1)
	m.AudioBytes.Add(ctx, int64(bytes))
	m.RecognizeMS.Record(ctx, float64(elapsed.Microseconds())/1000)
}
