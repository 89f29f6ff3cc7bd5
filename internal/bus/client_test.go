package bus

import (
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestPublishTranscriptRoundTrip(t *testing.T) {
	srv, err := StartEmbedded(config.BusConfig{Embedded: true, Port: -1}, newLogger())
	if err != nil {
		t.Fatalf("start embedded server: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	cfg := config.BusConfig{
		Servers:        []string{srv.ClientURL()},
		ConnectTimeout: 2000,
		SubjectPrefix:  "transcript",
	}
	client, err := Connect(cfg, newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	if !client.Healthy() {
		t.Fatal("expected healthy client")
	}

	sub, err := client.conn.SubscribeSync("transcript.final")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	want := Transcript{
		SessionID: "s1",
		Seq:       1,
		Text:      "hello world",
		Timestamp: time.Now().UTC(),
	}
	if err := client.PublishTranscript(want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	var got Transcript
	if err := json.Unmarshal(msg.Data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Text != want.Text || got.Seq != want.Seq || got.Partial {
		t.Fatalf("unexpected transcript: %+v", got)
	}
}

func TestPublishPartialUsesPartialSubject(t *testing.T) {
	srv, err := StartEmbedded(config.BusConfig{Embedded: true, Port: -1}, newLogger())
	if err != nil {
		t.Fatalf("start embedded server: %v", err)
	}
	t.Cleanup(srv.Shutdown)

	client, err := Connect(config.BusConfig{
		Servers:        []string{srv.ClientURL()},
		ConnectTimeout: 2000,
		SubjectPrefix:  "transcript",
	}, newLogger())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(client.Close)

	sub, err := client.conn.SubscribeSync("transcript.partial")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := client.PublishTranscript(Transcript{Text: "hel", Partial: true}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if _, err := sub.NextMsg(2 * time.Second); err != nil {
		t.Fatalf("receive: %v", err)
	}
}

func TestConnectRejectsEmptyServers(t *testing.T) {
	if _, err := Connect(config.BusConfig{}, newLogger()); err == nil {
		t.Fatal("expected error for empty server list")
	}
}
