package stt

import (
	"context"
	"fmt"
)

type mockRecognizer struct {
	bytes int
}

// NewMockRecognizer returns a recognizer that reports buffered byte counts
// instead of real text. Useful for dry runs without a model.
func NewMockRecognizer() Recognizer {
	return &mockRecognizer{}
}

func (m *mockRecognizer) Accept(_ context.Context, pcm []byte) (Result, error) {
	m.bytes += len(pcm)
	return Result{Text: fmt.Sprintf("[partial length=%d]", m.bytes), Partial: true}, nil
}

func (m *mockRecognizer) Flush(_ context.Context) (Result, error) {
	text := fmt.Sprintf("[final length=%d]", m.bytes)
	m.bytes = 0
	return Result{Text: text}, nil
}

func (m *mockRecognizer) Close() error {
	return nil
}
