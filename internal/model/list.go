package model

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
)

// listEntry mirrors one record of the model-list.json index published
// alongside the model archives.
type listEntry struct {
	Lang     string `json:"lang"`
	LangText string `json:"lang_text"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Obsolete string `json:"obsolete"`
	SizeText string `json:"size_text"`
	URL      string `json:"url"`
}

// Built-in language aliases so resolution keeps working when the index is
// unreachable. Small models, matching what the upstream loader picks.
var builtinAliases = map[string]string{
	"en-us": "vosk-model-small-en-us-0.15",
	"en-in": "vosk-model-small-en-in-0.4",
	"cy":    "vosk-model-small-cy-0.22",
	"br":    "vosk-model-br-0.8",
	"fr":    "vosk-model-small-fr-0.22",
	"de":    "vosk-model-small-de-0.15",
	"nl":    "vosk-model-small-nl-0.22",
	"es":    "vosk-model-small-es-0.42",
	"pt":    "vosk-model-small-pt-0.3",
	"it":    "vosk-model-small-it-0.22",
	"ru":    "vosk-model-small-ru-0.22",
	"uk":    "vosk-model-small-uk-v3-small",
	"tr":    "vosk-model-small-tr-0.3",
	"cn":    "vosk-model-small-cn-0.22",
	"ja":    "vosk-model-small-ja-0.22",
	"hi":    "vosk-model-small-hi-0.22",
}

// parseModelList picks the preferred (small, current) model per language.
func parseModelList(data []byte) (map[string]string, error) {
	var entries []listEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode model list: %w", err)
	}

	aliases := make(map[string]string)
	for _, e := range entries {
		if e.Obsolete == "true" || e.Lang == "" || e.Name == "" {
			continue
		}
		if _, ok := aliases[e.Lang]; ok && e.Type != "small" {
			continue
		}
		if e.Type == "small" || aliases[e.Lang] == "" {
			aliases[e.Lang] = e.Name
		}
	}
	if len(aliases) == 0 {
		return nil, fmt.Errorf("model list contains no usable entries")
	}
	return aliases, nil
}

// fetchModelList downloads and parses the remote index.
func (m *Manager) fetchModelList(ctx context.Context) (map[string]string, error) {
	url := m.baseURL + "/model-list.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build model list request: %w", err)
	}
	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch model list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch model list: unexpected status %s", resp.Status)
	}

	data, err := readAll(resp.Body, 4<<20)
	if err != nil {
		return nil, fmt.Errorf("read model list: %w", err)
	}
	return parseModelList(data)
}

// Languages returns the language names resolvable offline, sorted.
func Languages() []string {
	langs := make([]string, 0, len(builtinAliases))
	for lang := range builtinAliases {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}
