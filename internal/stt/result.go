package stt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Wire shapes produced by the Kaldi recognizer inside libvosk.
type voskWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Conf  float64 `json:"conf"`
}

type voskAlternative struct {
	Text       string     `json:"text"`
	Confidence float64    `json:"confidence"`
	Result     []voskWord `json:"result"`
}

type voskResult struct {
	Partial      string            `json:"partial"`
	Text         string            `json:"text"`
	Result       []voskWord        `json:"result"`
	Alternatives []voskAlternative `json:"alternatives"`
}

// parsePartial decodes a {"partial": ...} payload.
func parsePartial(data []byte) (Result, error) {
	var raw voskResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("decode partial result: %w", err)
	}
	return Result{Text: strings.TrimSpace(raw.Partial), Partial: true}, nil
}

// parseFinal decodes a {"text": ...} payload, including the optional
// word-level "result" list and the max-alternatives variant. With
// alternatives enabled the highest-confidence hypothesis wins.
func parseFinal(data []byte) (Result, error) {
	var raw voskResult
	if err := json.Unmarshal(data, &raw); err != nil {
		return Result{}, fmt.Errorf("decode final result: %w", err)
	}

	if len(raw.Alternatives) > 0 {
		best := raw.Alternatives[0]
		for _, alt := range raw.Alternatives[1:] {
			if alt.Confidence > best.Confidence {
				best = alt
			}
		}
		return Result{
			Text:       strings.TrimSpace(best.Text),
			Confidence: best.Confidence,
			Words:      convertWords(best.Result),
		}, nil
	}

	res := Result{
		Text:  strings.TrimSpace(raw.Text),
		Words: convertWords(raw.Result),
	}
	if len(res.Words) > 0 {
		var sum float64
		for _, w := range res.Words {
			sum += w.Confidence
		}
		res.Confidence = sum / float64(len(res.Words))
	}
	return res, nil
}

func convertWords(in []voskWord) []Word {
	if len(in) == 0 {
		return nil
	}
	out := make([]Word, 0, len(in))
	for _, w := range in {
		out = append(out, Word{Text: w.Word, Start: w.Start, End: w.End, Confidence: w.Conf})
	}
	return out
}
