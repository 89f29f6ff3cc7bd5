//go:build novosk

package stt

import (
	"fmt"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/config"
)

func newVoskRecognizer(_ config.RecognizerConfig, _ string, _ int) (Recognizer, error) {
	return nil, fmt.Errorf("vosk support is disabled in this build")
}
