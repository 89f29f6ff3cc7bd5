package session

import (
	"encoding/json"

	"github.com/Cymru-Breizh-Agile-Cymru-Project/vosk-cli/internal/stt"
)

type wordRecord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

// encodeWords serializes word-level timing for history storage. Returns nil
// when word output is disabled.
func encodeWords(words []stt.Word) []byte {
	if len(words) == 0 {
		return nil
	}
	records := make([]wordRecord, 0, len(words))
	for _, w := range words {
		records = append(records, wordRecord{Word: w.Text, Start: w.Start, End: w.End, Conf: w.Confidence})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil
	}
	return data
}
