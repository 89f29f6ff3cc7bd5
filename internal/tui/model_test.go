package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/session"
)

func testParams() Params {
	return Params{Model: "en-us", SampleRate: 16000, BlockSize: 8000}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("unexpected model type %T", next)
	}
	return model
}

func TestPartialUpdatesLiveInput(t *testing.T) {
	m := NewModel(testParams(), nil)
	m = update(t, m, eventMsg(session.Event{Partial: true, Text: "the quick bro"}))
	if m.partial != "the quick bro" {
		t.Fatalf("expected partial set, got %q", m.partial)
	}
	if len(m.sentences) != 0 {
		t.Fatalf("partial must not append to log, got %v", m.sentences)
	}
}

func TestFinalAppendsAndClearsPartial(t *testing.T) {
	m := NewModel(testParams(), nil)
	m = update(t, m, eventMsg(session.Event{Partial: true, Text: "hello wor"}))
	m = update(t, m, eventMsg(session.Event{
		Text:      "hello world",
		Timestamp: time.Date(2025, 6, 1, 10, 30, 0, 0, time.UTC),
	}))

	if m.partial != "" {
		t.Fatalf("expected partial cleared, got %q", m.partial)
	}
	if len(m.sentences) != 1 {
		t.Fatalf("expected 1 sentence, got %d", len(m.sentences))
	}
	if !strings.Contains(m.sentences[0], "10:30:00") || !strings.Contains(m.sentences[0], "hello world") {
		t.Fatalf("unexpected sentence format: %q", m.sentences[0])
	}
}

func TestLogCappedAtMaxSentences(t *testing.T) {
	m := NewModel(testParams(), nil)
	for i := 0; i < maxSentences+10; i++ {
		m = update(t, m, eventMsg(session.Event{
			Text:      fmt.Sprintf("sentence %d", i),
			Timestamp: time.Now(),
		}))
	}
	if len(m.sentences) != maxSentences {
		t.Fatalf("expected log capped at %d, got %d", maxSentences, len(m.sentences))
	}
	if !strings.Contains(m.sentences[len(m.sentences)-1], "sentence 39") {
		t.Fatalf("expected newest sentence kept, got %q", m.sentences[len(m.sentences)-1])
	}
	if strings.Contains(m.sentences[0], "sentence 9 ") {
		t.Fatalf("expected oldest sentences dropped, got %q", m.sentences[0])
	}
}

func TestQuitKeys(t *testing.T) {
	m := NewModel(testParams(), nil)
	for _, key := range []string{"q", "ctrl+c", "esc"} {
		var msg tea.Msg
		switch key {
		case "q":
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("expected quit command for %s", key)
		}
	}
}

func TestClosedChannelQuits(t *testing.T) {
	m := NewModel(testParams(), nil)
	next, cmd := m.Update(closedMsg{})
	if cmd == nil {
		t.Fatal("expected quit command when events close")
	}
	if !next.(Model).done {
		t.Fatal("expected done flag set")
	}
}

func TestViewContainsPanels(t *testing.T) {
	m := NewModel(testParams(), nil)
	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	m = update(t, m, eventMsg(session.Event{Text: "first line", Timestamp: time.Now()}))
	m = update(t, m, eventMsg(session.Event{Partial: true, Text: "in flight"}))

	view := m.View()
	for _, want := range []string{"Vosk Live Demo", "Sentence log", "Live input", "Parameters", "first line", "in flight", "Model: en-us"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q", want)
		}
	}
}
