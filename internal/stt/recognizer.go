package stt

import (
	"context"
	"fmt"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

// Word is a single recognized word with timing relative to stream start.
type Word struct {
	Text       string
	Start      float64
	End        float64
	Confidence float64
}

// Result captures recognizer output for one audio block. A partial result
// carries the current hypothesis for the in-flight utterance; a final result
// closes the utterance.
type Result struct {
	Text       string
	Partial    bool
	Confidence float64
	Words      []Word
}

// Recognizer abstracts streaming STT backends. Accept consumes one block of
// int16 little-endian mono PCM and returns either a partial or a final
// result. Flush forces a final result for any buffered trailing audio.
type Recognizer interface {
	Accept(ctx context.Context, pcm []byte) (Result, error)
	Flush(ctx context.Context) (Result, error)
	Close() error
}

// New builds the configured recognizer backend against a resolved model
// directory and capture sample rate.
func New(cfg config.RecognizerConfig, modelPath string, sampleRate int) (Recognizer, error) {
	switch cfg.Backend {
	case "vosk":
		return newVoskRecognizer(cfg, modelPath, sampleRate)
	case "exec":
		return NewExecRecognizer(cfg, sampleRate)
	case "mock":
		return NewMockRecognizer(), nil
	default:
		return nil, fmt.Errorf("unknown recognizer backend %q", cfg.Backend)
	}
}
