//go:build !novosk

package stt

import (
	"context"
	"fmt"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

// voskRecognizer wraps the Kaldi recognizer from libvosk. The bindings are
// not safe for concurrent use; the session feeds blocks sequentially so no
// extra locking is needed here.
type voskRecognizer struct {
	model *vosk.VoskModel
	rec   *vosk.VoskRecognizer
}

func init() {
	// Kaldi is extremely chatty on stderr by default.
	vosk.SetLogLevel(-1)
}

func newVoskRecognizer(cfg config.RecognizerConfig, modelPath string, sampleRate int) (Recognizer, error) {
	model, err := vosk.NewModel(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load vosk model %q: %w", modelPath, err)
	}

	rec, err := vosk.NewRecognizer(model, float64(sampleRate))
	if err != nil {
		model.Free()
		return nil, fmt.Errorf("create vosk recognizer: %w", err)
	}

	if cfg.Words {
		rec.SetWords(1)
	}
	if cfg.MaxAlternatives > 0 {
		rec.SetMaxAlternatives(cfg.MaxAlternatives)
	}

	return &voskRecognizer{model: model, rec: rec}, nil
}

func (r *voskRecognizer) Accept(ctx context.Context, pcm []byte) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if r.rec.AcceptWaveform(pcm) != 0 {
		return parseFinal(r.rec.Result())
	}
	return parsePartial(r.rec.PartialResult())
}

func (r *voskRecognizer) Flush(ctx context.Context) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return parseFinal(r.rec.FinalResult())
}

func (r *voskRecognizer) Close() error {
	r.rec.Free()
	r.model.Free()
	return nil
}
