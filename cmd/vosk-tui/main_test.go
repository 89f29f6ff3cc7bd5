package main

import (
	"context"
	"errors"
	"testing"
)

func TestExitErrorReportsSessionFailure(t *testing.T) {
	sessionErr := errors.New("read input stream: device gone")

	if err := exitError(context.Background(), sessionErr, nil); !errors.Is(err, sessionErr) {
		t.Fatalf("expected session error to surface, got %v", err)
	}
}

func TestExitErrorSwallowsErrorOnInterrupt(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := exitError(ctx, errors.New("recognize audio block: context canceled"), nil); err != nil {
		t.Fatalf("expected nil after interrupt, got %v", err)
	}
}

func TestExitErrorFallsBackToUIError(t *testing.T) {
	uiErr := errors.New("render failed")

	if err := exitError(context.Background(), nil, uiErr); !errors.Is(err, uiErr) {
		t.Fatalf("expected ui error, got %v", err)
	}
}
