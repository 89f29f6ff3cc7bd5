package stt

import (
	"context"
	"encoding/binary"
	"testing"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

func execConfig() config.RecognizerConfig {
	return config.RecognizerConfig{
		Backend:      "exec",
		Command:      "transcribe --model /tmp/model",
		SilenceGapMS: 100,
		SilenceLevel: 0.01,
	}
}

// block builds 100ms of constant-amplitude PCM at 16kHz.
func block(amplitude int16) []byte {
	const samples = 1600
	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(amplitude))
	}
	return pcm
}

func newTestExecRecognizer(t *testing.T) (*execRecognizer, *int) {
	t.Helper()
	rec, err := NewExecRecognizer(execConfig(), 16000)
	if err != nil {
		t.Fatalf("create exec recognizer: %v", err)
	}
	er := rec.(*execRecognizer)
	calls := 0
	er.runner = func(_ context.Context, wavPath string) (execResult, error) {
		calls++
		if wavPath == "" {
			t.Fatal("expected wav path")
		}
		return execResult{Text: "hello from exec", Confidence: 0.9}, nil
	}
	return er, &calls
}

func TestExecRecognizerSegmentsOnSilence(t *testing.T) {
	rec, calls := newTestExecRecognizer(t)

	// Speech block keeps the utterance open.
	res, err := rec.Accept(context.Background(), block(8000))
	if err != nil {
		t.Fatalf("accept speech: %v", err)
	}
	if !res.Partial {
		t.Fatal("expected partial while utterance is open")
	}

	// One silent block (100ms) crosses the configured gap.
	res, err = rec.Accept(context.Background(), block(0))
	if err != nil {
		t.Fatalf("accept silence: %v", err)
	}
	if res.Partial {
		t.Fatal("expected final after silence gap")
	}
	if res.Text != "hello from exec" || res.Confidence != 0.9 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if *calls != 1 {
		t.Fatalf("expected 1 command invocation, got %d", *calls)
	}
}

func TestExecRecognizerSilenceOnlyNeverRuns(t *testing.T) {
	rec, calls := newTestExecRecognizer(t)

	for i := 0; i < 5; i++ {
		res, err := rec.Accept(context.Background(), block(0))
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if !res.Partial {
			t.Fatal("expected partial for silence-only stream")
		}
	}
	res, err := rec.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if res.Text != "" {
		t.Fatalf("expected empty flush, got %q", res.Text)
	}
	if *calls != 0 {
		t.Fatalf("expected no command invocations, got %d", *calls)
	}
}

func TestExecRecognizerFlushTranscribesTrailingSpeech(t *testing.T) {
	rec, calls := newTestExecRecognizer(t)

	if _, err := rec.Accept(context.Background(), block(8000)); err != nil {
		t.Fatalf("accept: %v", err)
	}
	res, err := rec.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if res.Partial || res.Text != "hello from exec" {
		t.Fatalf("unexpected flush result: %+v", res)
	}
	if *calls != 1 {
		t.Fatalf("expected 1 command invocation, got %d", *calls)
	}
}

func TestNewExecRecognizerRejectsEmptyCommand(t *testing.T) {
	cfg := execConfig()
	cfg.Command = "   "
	if _, err := NewExecRecognizer(cfg, 16000); err == nil {
		t.Fatal("expected error for empty command")
	}
}

func TestMockRecognizer(t *testing.T) {
	rec := NewMockRecognizer()
	res, err := rec.Accept(context.Background(), make([]byte, 64))
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if !res.Partial {
		t.Fatal("expected partial from mock accept")
	}
	res, err = rec.Flush(context.Background())
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if res.Partial {
		t.Fatal("expected final from mock flush")
	}
}
