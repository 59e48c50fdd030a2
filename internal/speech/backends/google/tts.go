package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/talkbridge/talkbridge/internal/speech/backends/restutil"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/internal/speech/registry"
)

const (
	defaultTTSEndpoint   = "https://texttospeech.googleapis.com/v1"
	defaultPCMSampleRate = 24000
)

// Wire names for the kiosk encoding aliases.
var encodingNames = map[string]string{
	"mp3":      "MP3",
	"ogg_opus": "OGG_OPUS",
	"ogg":      "OGG_OPUS",
	"linear16": "LINEAR16",
	"wav":      "LINEAR16",
}

func init() {
	registry.TTS.Register("google", func(config map[string]string) (engine.Synthesizer, error) {
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, fmt.Errorf("google API key required (set GOOGLE_API_KEY)")
		}
		endpoint := config["tts_endpoint"]
		if endpoint == "" {
			endpoint = defaultTTSEndpoint
		}
		maxChars := 0
		if raw := config["max_chars"]; raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, fmt.Errorf("invalid max_chars %q: %w", raw, err)
			}
			maxChars = n
		}
		return &Synthesizer{
			apiKey:   apiKey,
			endpoint: strings.TrimRight(endpoint, "/"),
			maxChars: maxChars,
		}, nil
	})
}

type synthesizeRequest struct {
	Input       synthInput       `json:"input"`
	Voice       synthVoice       `json:"voice"`
	AudioConfig synthAudioConfig `json:"audioConfig"`
}

type synthInput struct {
	Text string `json:"text"`
}

type synthVoice struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
}

type synthAudioConfig struct {
	AudioEncoding   string  `json:"audioEncoding"`
	SpeakingRate    float64 `json:"speakingRate"`
	Pitch           float64 `json:"pitch"`
	SampleRateHertz int     `json:"sampleRateHertz,omitempty"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

// Synthesizer renders text through the Text-to-Speech synthesize
// endpoint. The voice catalog is fetched at most once per process; a
// failed fetch degrades to an empty catalog rather than retrying on
// every request.
type Synthesizer struct {
	apiKey   string
	endpoint string
	maxChars int

	voicesOnce   sync.Once
	voices       []engine.Voice
	voicesByLang map[string][]engine.Voice
}

func (g *Synthesizer) Speak(ctx context.Context, req engine.SpeakRequest) (*engine.Synthesis, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, &engine.BadInputError{Reason: "text is required"}
	}
	if g.maxChars > 0 && len([]rune(text)) > g.maxChars {
		return nil, &engine.BadInputError{Reason: fmt.Sprintf("text too long (max %d characters)", g.maxChars)}
	}
	if req.Language == "" {
		return nil, &engine.BadInputError{Reason: "lang is required"}
	}

	encKey := strings.ToLower(strings.TrimSpace(req.Encoding))
	if encKey == "" {
		encKey = "mp3"
	}
	wireEncoding, ok := encodingNames[encKey]
	if !ok {
		return nil, &engine.BadInputError{Reason: "encoding must be one of: mp3, ogg_opus, ogg, linear16, wav"}
	}

	rate := req.SpeakingRate
	if rate <= 0 {
		rate = 1.0
	}
	pitch := req.Pitch
	if pitch < -20 {
		pitch = -20
	}
	if pitch > 20 {
		pitch = 20
	}

	voice, err := g.pickVoice(ctx, req.Language, req.VoiceName)
	if err != nil {
		return nil, err
	}

	audioCfg := synthAudioConfig{
		AudioEncoding: wireEncoding,
		SpeakingRate:  rate,
		Pitch:         pitch,
	}

	sampleRate := 0
	if wireEncoding == "LINEAR16" {
		sampleRate = defaultPCMSampleRate
		if req.SampleRateHertz >= 8000 && req.SampleRateHertz <= 48000 {
			sampleRate = req.SampleRateHertz
		}
		audioCfg.SampleRateHertz = sampleRate
	}

	body := synthesizeRequest{
		Input:       synthInput{Text: text},
		Voice:       voice,
		AudioConfig: audioCfg,
	}

	apiURL := g.endpoint + "/text:synthesize?key=" + g.apiKey

	var resp synthesizeResponse
	if err := restutil.DoJSON(ctx, "POST", apiURL, nil, body, &resp); err != nil {
		return nil, fmt.Errorf("google tts: %w", err)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("google tts: decode audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("google tts: no audio returned")
	}

	return &engine.Synthesis{
		Audio:           audio,
		Encoding:        encKey,
		SampleRateHertz: sampleRate,
		Channels:        1,
	}, nil
}

// pickVoice resolves the voice selection for a locale. An explicit name
// passes through untouched. Otherwise the catalog is consulted: exact
// locale match first, then any voice sharing the base language. When
// the catalog could not be fetched the bare locale is sent and the
// vendor picks a default.
func (g *Synthesizer) pickVoice(ctx context.Context, locale, name string) (synthVoice, error) {
	if name != "" {
		return synthVoice{LanguageCode: locale, Name: name}, nil
	}

	g.ensureVoices(ctx)

	if len(g.voicesByLang) == 0 {
		return synthVoice{LanguageCode: locale}, nil
	}

	low := strings.ToLower(locale)
	candidates := g.voicesByLang[low]
	chosenLang := locale

	if len(candidates) == 0 {
		base, _, _ := strings.Cut(low, "-")
		for _, lang := range sortedKeys(g.voicesByLang) {
			if lang == base || strings.HasPrefix(lang, base+"-") {
				candidates = g.voicesByLang[lang]
				chosenLang = lang
				break
			}
		}
	}

	if len(candidates) == 0 {
		return synthVoice{}, &engine.BadInputError{Reason: fmt.Sprintf("text-to-speech not supported for language %q", locale)}
	}

	v := candidates[0]
	langCode := chosenLang
	if len(v.Languages) > 0 && !containsFold(v.Languages, langCode) {
		langCode = v.Languages[0]
	}
	return synthVoice{LanguageCode: langCode, Name: v.Name}, nil
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if strings.EqualFold(s, want) {
			return true
		}
	}
	return false
}
