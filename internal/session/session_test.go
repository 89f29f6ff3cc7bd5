package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/bus"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/history"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/stt"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeSource struct {
	blocks [][]byte
	rate   int
	err    error
}

func (f *fakeSource) Start(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for _, b := range f.blocks {
			select {
			case ch <- b:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func (f *fakeSource) SampleRate() int { return f.rate }
func (f *fakeSource) Err() error      { return f.err }
func (f *fakeSource) Close() error    { return nil }

// scriptedRecognizer replays a fixed result sequence, one per block.
type scriptedRecognizer struct {
	results []stt.Result
	flush   stt.Result
	pos     int
}

func (r *scriptedRecognizer) Accept(_ context.Context, _ []byte) (stt.Result, error) {
	if r.pos >= len(r.results) {
		return stt.Result{Partial: true}, nil
	}
	res := r.results[r.pos]
	r.pos++
	return res, nil
}

func (r *scriptedRecognizer) Flush(_ context.Context) (stt.Result, error) {
	return r.flush, nil
}

func (r *scriptedRecognizer) Close() error { return nil }

type fakePublisher struct {
	published []bus.Transcript
}

func (p *fakePublisher) PublishTranscript(t bus.Transcript) error {
	p.published = append(p.published, t)
	return nil
}

type fakeHistorian struct {
	sessions []string
	entries  []history.Entry
}

func (h *fakeHistorian) AppendSession(_ context.Context, sessionID, _ string, _ int) error {
	h.sessions = append(h.sessions, sessionID)
	return nil
}

func (h *fakeHistorian) AppendTranscript(_ context.Context, e history.Entry) error {
	h.entries = append(h.entries, e)
	return nil
}

type fakeRecorder struct {
	bytes int
}

func (r *fakeRecorder) Append(pcm []byte) error {
	r.bytes += len(pcm)
	return nil
}

func blocks(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = make([]byte, 320)
	}
	return out
}

func collect(t *testing.T, s *Session) []Event {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()

	var events []Event
	for evt := range s.Events() {
		events = append(events, evt)
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	return events
}

func TestSessionEmitsFinalsWithSequence(t *testing.T) {
	rec := &scriptedRecognizer{
		results: []stt.Result{
			{Partial: true, Text: "he"},
			{Partial: true, Text: "he"}, // duplicate, must be suppressed
			{Text: ""},                  // empty final, must be dropped
			{Text: "hello world", Confidence: 0.9},
			{Partial: true, Text: "wor"},
		},
		flush: stt.Result{Text: "world", Confidence: 0.8},
	}
	s := New(Options{
		Source:     &fakeSource{blocks: blocks(5), rate: 16000},
		Recognizer: rec,
		Model:      "en-us",
	}, newLogger())

	events := collect(t, s)

	want := []struct {
		text    string
		partial bool
		seq     int64
	}{
		{"he", true, 0},
		{"hello world", false, 1},
		{"wor", true, 1},
		{"world", false, 2},
	}
	if len(events) != len(want) {
		t.Fatalf("expected %d events, got %d: %+v", len(want), len(events), events)
	}
	for i, w := range want {
		if events[i].Text != w.text || events[i].Partial != w.partial || events[i].Seq != w.seq {
			t.Fatalf("event %d: expected %+v, got %+v", i, w, events[i])
		}
	}
	for _, evt := range events {
		if evt.Timestamp.IsZero() {
			t.Fatal("expected timestamps on events")
		}
		if evt.SessionID == "" {
			t.Fatal("expected generated session id")
		}
	}
}

func TestSessionFanOut(t *testing.T) {
	pub := &fakePublisher{}
	hist := &fakeHistorian{}
	recd := &fakeRecorder{}

	s := New(Options{
		SessionID: "test-session",
		Model:     "en-us",
		Source:    &fakeSource{blocks: blocks(2), rate: 16000},
		Recognizer: &scriptedRecognizer{
			results: []stt.Result{
				{Partial: true, Text: "hi"},
				{Text: "hi there", Confidence: 0.95},
			},
		},
		Publisher: pub,
		History:   hist,
		Recorder:  recd,
	}, newLogger())

	events := collect(t, s)
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	// Publisher sees partials and finals.
	if len(pub.published) != 2 {
		t.Fatalf("expected 2 published transcripts, got %d", len(pub.published))
	}
	if !pub.published[0].Partial || pub.published[1].Partial {
		t.Fatalf("unexpected publish order: %+v", pub.published)
	}

	// History sees finals only.
	if len(hist.sessions) != 1 || hist.sessions[0] != "test-session" {
		t.Fatalf("expected session registered, got %v", hist.sessions)
	}
	if len(hist.entries) != 1 || hist.entries[0].Text != "hi there" {
		t.Fatalf("unexpected history entries: %+v", hist.entries)
	}

	// Recorder got both raw blocks.
	if recd.bytes != 2*320 {
		t.Fatalf("expected 640 recorded bytes, got %d", recd.bytes)
	}
}

func TestSessionMinConfidenceFilter(t *testing.T) {
	s := New(Options{
		Source: &fakeSource{blocks: blocks(2), rate: 16000},
		Recognizer: &scriptedRecognizer{
			results: []stt.Result{
				{Text: "mumble", Confidence: 0.2},
				{Text: "clear sentence", Confidence: 0.9},
			},
		},
		MinConfidence: 0.5,
	}, newLogger())

	events := collect(t, s)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d: %+v", len(events), events)
	}
	if events[0].Text != "clear sentence" || events[0].Seq != 1 {
		t.Fatalf("unexpected event: %+v", events[0])
	}
}

func TestSessionSourceErrorPropagates(t *testing.T) {
	wantErr := errors.New("device unplugged")
	s := New(Options{
		Source:     &fakeSource{blocks: blocks(1), rate: 16000, err: wantErr},
		Recognizer: &scriptedRecognizer{},
	}, newLogger())

	done := make(chan error, 1)
	go func() { done <- s.Run(context.Background()) }()
	for range s.Events() {
	}
	if err := <-done; !errors.Is(err, wantErr) {
		t.Fatalf("expected source error, got %v", err)
	}
}
