// Package session runs the live transcription pipeline: audio blocks in,
// partial and final transcript events out, with optional fan-out to NATS,
// history persistence, and WAV recording.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/audio"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/bus"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/history"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/stt"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/telemetry"
)

// Event is one transcript update. Partials carry the in-flight hypothesis;
// finals close a sentence and advance Seq.
type Event struct {
	SessionID  string
	Seq        int64
	Text       string
	Partial    bool
	Confidence float64
	Words      []stt.Word
	Timestamp  time.Time
}

// Publisher fans events out to subscribers. *bus.Client satisfies it.
type Publisher interface {
	PublishTranscript(bus.Transcript) error
}

// Historian persists final sentences. *history.Store satisfies it.
type Historian interface {
	AppendSession(ctx context.Context, sessionID, model string, sampleRate int) error
	AppendTranscript(ctx context.Context, e history.Entry) error
}

// Recorder appends raw capture audio. *audio.Recorder satisfies it.
type Recorder interface {
	Append(pcm []byte) error
}

// Options carries the pipeline dependencies. Publisher, History, Recorder,
// and Metrics are optional.
type Options struct {
	SessionID     string
	Model         string
	Source        audio.Source
	Recognizer    stt.Recognizer
	Publisher     Publisher
	History       Historian
	Recorder      Recorder
	Metrics       *telemetry.Metrics
	MinConfidence float64
}

type Session struct {
	opts   Options
	log    *slog.Logger
	events chan Event

	seq         int64
	lastPartial string
	clock       func() time.Time
}

func New(opts Options, log *slog.Logger) *Session {
	if opts.SessionID == "" {
		opts.SessionID = fmt.Sprintf("sess-%s", time.Now().UTC().Format("20060102-150405.000"))
	}
	return &Session{
		opts:   opts,
		log:    log,
		events: make(chan Event, 32),
		clock:  time.Now,
	}
}

func (s *Session) ID() string {
	return s.opts.SessionID
}

// Events is the transcript stream. Closed when Run returns.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Run drives the pipeline until the source ends or ctx is cancelled. On
// cancellation the recognizer is flushed so trailing speech still produces
// a final sentence.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.events)

	if s.opts.History != nil {
		if err := s.opts.History.AppendSession(ctx, s.opts.SessionID, s.opts.Model, s.opts.Source.SampleRate()); err != nil {
			s.log.Warn("failed to record session", slog.String("error", err.Error()))
		}
	}

	frames, err := s.opts.Source.Start(ctx)
	if err != nil {
		return fmt.Errorf("start audio source: %w", err)
	}

	for block := range frames {
		start := s.clock()
		res, err := s.opts.Recognizer.Accept(ctx, block)
		if s.opts.Metrics != nil {
			s.opts.Metrics.ObserveBlock(ctx, len(block), s.clock().Sub(start))
		}
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			return fmt.Errorf("recognize audio block: %w", err)
		}

		if s.opts.Recorder != nil {
			if err := s.opts.Recorder.Append(block); err != nil {
				s.log.Warn("recording failed, disabling", slog.String("error", err.Error()))
				s.opts.Recorder = nil
			}
		}

		s.emit(ctx, res)
	}

	if err := s.opts.Source.Err(); err != nil {
		return err
	}

	// The source is gone; flush whatever the recognizer still holds.
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := s.opts.Recognizer.Flush(flushCtx)
	if err != nil {
		s.log.Warn("flush failed", slog.String("error", err.Error()))
		return nil
	}
	res.Partial = false
	s.emit(flushCtx, res)
	return nil
}

// emit filters and forwards one recognizer result. Empty finals are
// dropped, as are repeated identical partials; an empty partial passes once
// to clear the live-input display after a sentence completes.
func (s *Session) emit(ctx context.Context, res stt.Result) {
	if res.Partial {
		if res.Text == s.lastPartial {
			return
		}
		s.lastPartial = res.Text
	} else {
		s.lastPartial = ""
		if res.Text == "" {
			return
		}
		if s.opts.MinConfidence > 0 && res.Confidence > 0 && res.Confidence < s.opts.MinConfidence {
			s.log.Debug("dropping low-confidence sentence",
				slog.String("text", res.Text),
				slog.Float64("confidence", res.Confidence))
			return
		}
		s.seq++
	}

	evt := Event{
		SessionID:  s.opts.SessionID,
		Seq:        s.seq,
		Text:       res.Text,
		Partial:    res.Partial,
		Confidence: res.Confidence,
		Words:      res.Words,
		Timestamp:  s.clock(),
	}

	if s.opts.Metrics != nil {
		if evt.Partial {
			s.opts.Metrics.Partials.Add(ctx, 1)
		} else {
			s.opts.Metrics.Finals.Add(ctx, 1)
		}
	}

	if s.opts.Publisher != nil {
		err := s.opts.Publisher.PublishTranscript(bus.Transcript{
			SessionID:  evt.SessionID,
			Seq:        evt.Seq,
			Text:       evt.Text,
			Partial:    evt.Partial,
			Timestamp:  evt.Timestamp.UTC(),
			Confidence: evt.Confidence,
		})
		if err != nil {
			s.log.Warn("failed to publish transcript", slog.String("error", err.Error()))
		}
	}

	if !evt.Partial && s.opts.History != nil {
		err := s.opts.History.AppendTranscript(ctx, history.Entry{
			SessionID:  evt.SessionID,
			Seq:        evt.Seq,
			Text:       evt.Text,
			Confidence: evt.Confidence,
			Words:      encodeWords(evt.Words),
			CreatedAt:  evt.Timestamp.UTC(),
		})
		if err != nil {
			s.log.Warn("failed to persist transcript", slog.String("error", err.Error()))
		}
	}

	select {
	case s.events <- evt:
	case <-ctx.Done():
	}
}
