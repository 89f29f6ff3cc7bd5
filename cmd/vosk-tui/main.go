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
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/telemetry"
	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/tui"
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

	// Quitting the TUI cancels the session; a session error tears down the
	// TUI through the closed event channel.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- pipeline.Session.Run(runCtx)
	}()

	params := tui.Params{
		Model:      pipeline.ModelLabel,
		SampleRate: pipeline.SampleRate,
		BlockSize:  pipeline.BlockSize,
	}
	uiErr := tui.Run(runCtx, params, pipeline.Session.Events())
	cancel()

	err = exitError(ctx, <-done, uiErr)
	logger.Info("session finished", slog.String("session_id", pipeline.Session.ID()))
	return err
}

// exitError folds the session and UI results into the process error.
// Cancellation of the parent context is the Ctrl-C path and not a failure;
// quitting the TUI cancels only runCtx, so a mid-session failure still
// surfaces after the TUI tears down.
func exitError(ctx context.Context, sessionErr, uiErr error) error {
	if sessionErr != nil && ctx.Err() == nil {
		return sessionErr
	}
	return uiErr
}
