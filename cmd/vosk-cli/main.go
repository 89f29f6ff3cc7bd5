package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/app"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/session"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/telemetry"
)

var version = "0.1.0-dev"

func main() {
	flags := app.RegisterFlags(flag.CommandLine)
	flag.Parse()

	if flags.ShowVersion {
		fmt.Println(version)
		return
	}

	if flags.ListDevices {
		table, err := app.ListInputDevices()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		fmt.Print(table)
		return
	}

	cfg, err := config.Load(flags.ConfigPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	flags.Apply(&cfg)

	logger := telemetry.NewLogger(cfg.Telemetry.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, flags.WAVFile, logger); err != nil {
		logger.Error("transcription failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, wavFile string, logger *slog.Logger) error {
	pipeline, err := app.Build(ctx, cfg, wavFile, logger)
	if err != nil {
		return err
	}
	defer pipeline.Close()

	logger.Info("session started",
		slog.String("session_id", pipeline.Session.ID()),
		slog.String("model", pipeline.ModelLabel),
		slog.Int("sample_rate", pipeline.SampleRate),
		slog.Int("block_size", pipeline.BlockSize))

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Session.Run(ctx)
	}()

	printEvents(pipeline.Session.Events())

	err = <-done
	if err != nil && ctx.Err() != nil {
		// Ctrl-C is the normal way out of a live session.
		err = nil
	}
	logger.Info("session finished", slog.String("session_id", pipeline.Session.ID()))
	return err
}

// printEvents renders the transcript stream to stdout. On a terminal the
// in-flight partial is rewritten in place; finals always land on their own
// timestamped line.
func printEvents(events <-chan session.Event) {
	tty := isTerminal(os.Stdout)
	partialShown := false

	for evt := range events {
		if evt.Partial {
			if !tty {
				continue
			}
			fmt.Printf("\r\x1b[2K%s", evt.Text)
			partialShown = evt.Text != ""
			continue
		}
		if partialShown {
			fmt.Print("\r\x1b[2K")
			partialShown = false
		}
		fmt.Printf("[%s]: %s\n", evt.Timestamp.Format("15:04:05"), evt.Text)
	}
	if partialShown {
		fmt.Println()
	}
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
