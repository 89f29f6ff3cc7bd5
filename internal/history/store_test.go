package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestOpenEphemeral(t *testing.T) {
	cfg := config.HistoryConfig{RetentionMode: "ephemeral"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if err := s.AppendTranscript(context.Background(), Entry{SessionID: "s", Text: "hi"}); err != nil {
		t.Fatalf("ephemeral append should be a no-op: %v", err)
	}
	entries, err := s.ListSession(context.Background(), "s", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected no entries in ephemeral mode, got %v", entries)
	}
}

func TestAppendAndList(t *testing.T) {
	cfg := config.HistoryConfig{Path: filepath.Join(t.TempDir(), "transcripts.db"), RetentionMode: "session"}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	sessionID := "session-123"
	if err := s.AppendSession(context.Background(), sessionID, "en-us", 16000); err != nil {
		t.Fatalf("append session: %v", err)
	}
	for i, text := range []string{"first sentence", "second sentence"} {
		err := s.AppendTranscript(context.Background(), Entry{
			SessionID:  sessionID,
			Seq:        int64(i + 1),
			Text:       text,
			Confidence: 0.9,
		})
		if err != nil {
			t.Fatalf("append transcript: %v", err)
		}
	}

	entries, err := s.ListSession(context.Background(), sessionID, 10)
	if err != nil {
		t.Fatalf("list transcripts: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Seq != 1 || entries[0].Text != "first sentence" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Seq != 2 {
		t.Fatalf("expected ascending sequence, got %+v", entries[1])
	}
}

func TestPruneByDaysAndSessions(t *testing.T) {
	cfg := config.HistoryConfig{
		Path:          filepath.Join(t.TempDir(), "transcripts.db"),
		RetentionMode: "persistent",
		RetentionDays: 1,
		MaxSessions:   1,
	}
	s, err := Open(context.Background(), cfg, newLogger())
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	s.clock = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	if err := s.AppendSession(context.Background(), "old-session", "en-us", 16000); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := s.AppendTranscript(context.Background(), Entry{SessionID: "old-session", Seq: 1, Text: "stale"}); err != nil {
		t.Fatalf("append transcript: %v", err)
	}

	s.clock = func() time.Time { return time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC) }
	if err := s.AppendSession(context.Background(), "new-session", "en-us", 16000); err != nil {
		t.Fatalf("append session: %v", err)
	}
	if err := s.Prune(context.Background()); err != nil {
		t.Fatalf("prune: %v", err)
	}

	entries, err := s.ListSession(context.Background(), "old-session", 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected old session pruned, got %d entries", len(entries))
	}
}
