package stt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"os/exec"

	shellwords "github.com/mattn/go-shellwords"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/audio"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

// execRecognizer shells out to an external transcriber once per utterance.
// Unlike the vosk backend it cannot produce rolling partial hypotheses, so
// Accept buffers audio and emits a final result when a configured stretch of
// silence closes the utterance.
type execRecognizer struct {
	cmd        []string
	cfg        config.RecognizerConfig
	sampleRate int

	buffer    []byte
	silenceMS float64
	hasSpeech bool

	// runner is swapped in tests to avoid spawning processes.
	runner func(ctx context.Context, wavPath string) (execResult, error)
}

type execResult struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

func NewExecRecognizer(cfg config.RecognizerConfig, sampleRate int) (Recognizer, error) {
	parser := shellwords.NewParser()
	args, err := parser.Parse(cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("recognizer command is empty")
	}
	r := &execRecognizer{cmd: args, cfg: cfg, sampleRate: sampleRate}
	r.runner = r.run
	return r, nil
}

func (r *execRecognizer) Accept(ctx context.Context, pcm []byte) (Result, error) {
	r.buffer = append(r.buffer, pcm...)

	level := rmsLevel(pcm)
	blockMS := float64(len(pcm)/audio.BytesPerSample) * 1000 / float64(r.sampleRate)
	if level < r.cfg.SilenceLevel {
		r.silenceMS += blockMS
	} else {
		r.silenceMS = 0
		r.hasSpeech = true
	}

	if r.hasSpeech && r.cfg.SilenceGapMS > 0 && r.silenceMS >= float64(r.cfg.SilenceGapMS) {
		return r.transcribeBuffer(ctx)
	}
	return Result{Partial: true}, nil
}

func (r *execRecognizer) Flush(ctx context.Context) (Result, error) {
	if !r.hasSpeech {
		r.buffer = nil
		return Result{}, nil
	}
	return r.transcribeBuffer(ctx)
}

func (r *execRecognizer) Close() error {
	r.buffer = nil
	return nil
}

func (r *execRecognizer) transcribeBuffer(ctx context.Context) (Result, error) {
	pcm := r.buffer
	r.buffer = nil
	r.silenceMS = 0
	r.hasSpeech = false

	file, err := os.CreateTemp("", "vosk_cli_*.wav")
	if err != nil {
		return Result{}, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(file.Name())
	defer file.Close()

	if err := audio.WritePCM(file, pcm, r.sampleRate, 1); err != nil {
		return Result{}, err
	}

	resp, err := r.runner(ctx, file.Name())
	if err != nil {
		return Result{}, err
	}
	return Result{Text: resp.Text, Confidence: resp.Confidence}, nil
}

func (r *execRecognizer) run(ctx context.Context, wavPath string) (execResult, error) {
	args := append([]string{}, r.cmd[1:]...)
	args = append(args, "--audio", wavPath)

	command := exec.CommandContext(ctx, r.cmd[0], args...)
	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	if err := command.Run(); err != nil {
		return execResult{}, fmt.Errorf("recognizer command failed: %w: %s", err, stderr.String())
	}

	var resp execResult
	if err := json.Unmarshal(stdout.Bytes(), &resp); err != nil {
		return execResult{}, fmt.Errorf("decode recognizer response: %w", err)
	}
	return resp, nil
}

// rmsLevel computes the root-mean-square level of an int16 PCM block,
// normalized to [0,1].
func rmsLevel(pcm []byte) float64 {
	n := len(pcm) / audio.BytesPerSample
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		s := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += s * s
	}
	return math.Sqrt(sum/float64(n)) / 32768
}
