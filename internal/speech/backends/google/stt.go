// Package google implements speech recognition and synthesis on the
// Google Cloud Speech REST APIs, authenticated with an API key.
package google

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/talkbridge/talkbridge/internal/speech/backends/restutil"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/internal/speech/registry"
)

const defaultSpeechEndpoint = "https://speech.googleapis.com/v1"

func init() {
	registry.STT.Register("google", func(config map[string]string) (engine.Transcriber, error) {
		apiKey := config["api_key"]
		if apiKey == "" {
			return nil, fmt.Errorf("google API key required (set GOOGLE_API_KEY)")
		}
		endpoint := config["stt_endpoint"]
		if endpoint == "" {
			endpoint = defaultSpeechEndpoint
		}
		return &Recognizer{
			apiKey:   apiKey,
			model:    config["stt_model"],
			endpoint: strings.TrimRight(endpoint, "/"),
		}, nil
	})
}

type recognizeRequest struct {
	Config recognizeConfig `json:"config"`
	Audio  recognizeAudio  `json:"audio"`
}

type recognizeConfig struct {
	Encoding          string `json:"encoding"`
	SampleRateHertz   int    `json:"sampleRateHertz"`
	LanguageCode      string `json:"languageCode"`
	AudioChannelCount int    `json:"audioChannelCount,omitempty"`
	EnablePunctuation bool   `json:"enableAutomaticPunctuation"`
	Model             string `json:"model,omitempty"`
}

type recognizeAudio struct {
	Content string `json:"content"`
}

type recognizeResponse struct {
	Results []struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"results"`
}

// Recognizer transcribes PCM16 utterances through the Speech-to-Text
// recognize endpoint.
type Recognizer struct {
	apiKey   string
	model    string
	endpoint string
}

func (g *Recognizer) Transcribe(ctx context.Context, req engine.TranscribeRequest) (*engine.Transcript, error) {
	if len(req.PCM) == 0 {
		return nil, &engine.BadInputError{Reason: "empty audio"}
	}
	if req.Language == "" {
		return nil, &engine.BadInputError{Reason: "lang is required"}
	}

	apiURL := g.endpoint + "/speech:recognize?key=" + g.apiKey

	body := recognizeRequest{
		Config: recognizeConfig{
			Encoding:          "LINEAR16",
			SampleRateHertz:   req.SampleRateHertz,
			LanguageCode:      req.Language,
			AudioChannelCount: req.Channels,
			EnablePunctuation: true,
			Model:             g.model,
		},
		Audio: recognizeAudio{
			Content: base64.StdEncoding.EncodeToString(req.PCM),
		},
	}

	var resp recognizeResponse
	if err := restutil.DoJSON(ctx, "POST", apiURL, nil, body, &resp); err != nil {
		return nil, fmt.Errorf("google stt: %w", err)
	}

	var parts []string
	var confidence float64
	for _, r := range resp.Results {
		if len(r.Alternatives) == 0 {
			continue
		}
		alt := r.Alternatives[0]
		if t := strings.TrimSpace(alt.Transcript); t != "" {
			parts = append(parts, t)
		}
		if confidence == 0 && alt.Confidence > 0 {
			confidence = alt.Confidence
		}
	}

	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return nil, engine.ErrNoSpeech
	}

	return &engine.Transcript{
		Text:       text,
		Confidence: confidence,
		Language:   req.Language,
		Provider:   "google",
	}, nil
}
