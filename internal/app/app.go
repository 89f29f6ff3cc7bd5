// Package app assembles the transcription pipeline from configuration:
// model resolution, audio source, recognizer backend, and the optional bus,
// history, recording, and telemetry subsystems.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/audio"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/bus"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/history"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/model"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/session"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/stt"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/telemetry"
)

// Pipeline is a fully wired transcription session plus everything that has
// to be torn down with it.
type Pipeline struct {
	Session    *session.Session
	ModelLabel string
	SampleRate int
	BlockSize  int

	log     *slog.Logger
	closers []func()
}

// ListInputDevices renders the device table for the -l flag. It owns the
// PortAudio runtime for the duration of the call.
func ListInputDevices() (string, error) {
	if err := audio.Init(); err != nil {
		return "", err
	}
	defer audio.Terminate()

	devices, err := audio.ListDevices()
	if err != nil {
		return "", err
	}
	return audio.FormatDevices(devices), nil
}

// Build wires the pipeline. wavFile switches the input from microphone to
// file playback. Callers must Close the pipeline after the session ends.
func Build(ctx context.Context, cfg config.Config, wavFile string, log *slog.Logger) (*Pipeline, error) {
	p := &Pipeline{log: log, BlockSize: cfg.Audio.BlockSize}
	ok := false
	defer func() {
		if !ok {
			p.Close()
		}
	}()

	telemetryShutdown, err := telemetry.Setup(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("setup telemetry: %w", err)
	}
	p.closers = append(p.closers, func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetryShutdown(shutdownCtx); err != nil {
			log.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	})

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	source, err := p.buildSource(cfg, wavFile, log)
	if err != nil {
		return nil, err
	}
	p.SampleRate = source.SampleRate()

	modelDir, label, err := p.resolveModel(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	p.ModelLabel = label

	recognizer, err := stt.New(cfg.Recognizer, modelDir, p.SampleRate)
	if err != nil {
		return nil, fmt.Errorf("create recognizer: %w", err)
	}
	p.closers = append(p.closers, func() {
		if err := recognizer.Close(); err != nil {
			log.Warn("recognizer close error", slog.String("error", err.Error()))
		}
	})

	publisher, err := p.buildBus(cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := history.Open(ctx, cfg.History, log)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}
	p.closers = append(p.closers, func() {
		if err := store.Close(); err != nil {
			log.Warn("history close error", slog.String("error", err.Error()))
		}
	})

	var recorder session.Recorder
	if cfg.Session.RecordPath != "" {
		rec, err := audio.NewRecorder(cfg.Session.RecordPath, p.SampleRate, cfg.Audio.Channels)
		if err != nil {
			return nil, fmt.Errorf("create recorder: %w", err)
		}
		p.closers = append(p.closers, func() {
			if err := rec.Close(); err != nil {
				log.Warn("recorder close error", slog.String("error", err.Error()))
			}
		})
		recorder = rec
	}

	p.Session = session.New(session.Options{
		Model:         label,
		Source:        source,
		Recognizer:    recognizer,
		Publisher:     publisher,
		History:       store,
		Recorder:      recorder,
		Metrics:       metrics,
		MinConfidence: cfg.Session.MinConfidence,
	}, log)

	ok = true
	return p, nil
}

func (p *Pipeline) buildSource(cfg config.Config, wavFile string, log *slog.Logger) (audio.Source, error) {
	if wavFile != "" {
		src, err := audio.NewFileSource(wavFile, cfg.Audio.BlockSize)
		if err != nil {
			return nil, err
		}
		p.closers = append(p.closers, func() {
			if err := src.Close(); err != nil {
				log.Warn("wav source close error", slog.String("error", err.Error()))
			}
		})
		log.Info("transcribing wav file",
			slog.String("file", wavFile),
			slog.Int("sample_rate", src.SampleRate()))
		return src, nil
	}

	if err := audio.Init(); err != nil {
		return nil, err
	}
	p.closers = append(p.closers, audio.Terminate)

	devices, err := audio.ListDevices()
	if err != nil {
		return nil, err
	}
	device, err := audio.MatchDevice(devices, cfg.Audio.Device)
	if err != nil {
		return nil, err
	}
	log.Info("using input device", slog.Int("index", device.Index), slog.String("name", device.Name))

	capture, err := audio.NewCapture(device, cfg.Audio.SampleRate, cfg.Audio.BlockSize, log)
	if err != nil {
		return nil, err
	}
	p.closers = append(p.closers, func() {
		if err := capture.Close(); err != nil {
			log.Warn("capture close error", slog.String("error", err.Error()))
		}
	})
	return capture, nil
}

// resolveModel returns the local model directory for the vosk backend. The
// exec and mock backends need no model on disk.
func (p *Pipeline) resolveModel(ctx context.Context, cfg config.Config, log *slog.Logger) (string, string, error) {
	selector := cfg.Model.Path
	if selector == "" {
		selector = cfg.Model.Name
	}
	if cfg.Recognizer.Backend != "vosk" {
		return "", selector, nil
	}

	mgr := model.NewManager(cfg.Model, log)
	dir, err := mgr.Resolve(ctx, selector)
	if err != nil {
		return "", "", fmt.Errorf("resolve model %q: %w", selector, err)
	}
	return dir, selector, nil
}

func (p *Pipeline) buildBus(cfg config.Config, log *slog.Logger) (session.Publisher, error) {
	if !cfg.Bus.Enabled {
		return nil, nil
	}

	embedded, err := bus.StartEmbedded(cfg.Bus, log)
	if err != nil {
		return nil, fmt.Errorf("start embedded bus: %w", err)
	}
	if embedded != nil {
		p.closers = append(p.closers, embedded.Shutdown)
	}

	client, err := bus.Connect(cfg.Bus, log)
	if err != nil {
		return nil, fmt.Errorf("connect to bus: %w", err)
	}
	p.closers = append(p.closers, client.Close)
	return client, nil
}

// Close tears everything down in reverse wiring order.
func (p *Pipeline) Close() {
	for i := len(p.closers) - 1; i >= 0; i-- {
		p.closers[i]()
	}
	p.closers = nil
}
