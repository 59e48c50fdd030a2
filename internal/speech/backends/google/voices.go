package google

import (
	"context"
	"sort"
	"strings"

	"github.com/talkbridge/talkbridge/internal/speech/backends/restutil"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
)

type voicesResponse struct {
	Voices []struct {
		Name          string   `json:"name"`
		LanguageCodes []string `json:"languageCodes"`
		SSMLGender    string   `json:"ssmlGender"`
	} `json:"voices"`
}

// Voices returns the cached voice catalog, fetching it on first use.
func (g *Synthesizer) Voices(ctx context.Context) []engine.Voice {
	g.ensureVoices(ctx)
	return g.voices
}

func (g *Synthesizer) ensureVoices(ctx context.Context) {
	g.voicesOnce.Do(func() {
		g.voicesByLang = map[string][]engine.Voice{}

		apiURL := g.endpoint + "/voices?key=" + g.apiKey
		var resp voicesResponse
		if err := restutil.DoJSON(ctx, "GET", apiURL, nil, nil, &resp); err != nil {
			return
		}

		for _, v := range resp.Voices {
			voice := engine.Voice{
				Name:      v.Name,
				Languages: v.LanguageCodes,
				Gender:    v.SSMLGender,
			}
			g.voices = append(g.voices, voice)
			for _, lc := range v.LanguageCodes {
				k := strings.ToLower(strings.TrimSpace(lc))
				if k == "" {
					continue
				}
				g.voicesByLang[k] = append(g.voicesByLang[k], voice)
			}
		}
		sort.Slice(g.voices, func(i, j int) bool { return g.voices[i].Name < g.voices[j].Name })
	})
}

func sortedKeys(m map[string][]engine.Voice) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
