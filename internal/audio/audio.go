// Package audio provides microphone and WAV file sources producing int16
// little-endian mono PCM blocks, plus a WAV recorder for captured audio.
package audio

import "context"

// Source delivers fixed-size blocks of int16 little-endian mono PCM. The
// returned channel closes when the source ends or the context is cancelled;
// Err reports any failure that terminated the stream early.
type Source interface {
	Start(ctx context.Context) (<-chan []byte, error)
	SampleRate() int
	Err() error
	Close() error
}

// BytesPerSample is the width of one int16 PCM sample on the wire.
const BytesPerSample = 2
