package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/talkbridge/talkbridge/internal/audio"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/pkg/events"
)

const wavSampleRate = 24000

type transcriptOut struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence,omitempty"`
	Language   string  `json:"language,omitempty"`
	Provider   string  `json:"provider"`
}

func (h *Handler) transcribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	maxBytes := int64(h.cfg.STTMaxAudioBytes)
	if maxBytes > 0 {
		// Leave headroom for the multipart framing around the capped file.
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(64<<10))
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		writeDetail(w, http.StatusBadRequest, "expected multipart form with an audio file")
		return
	}

	file, _, err := r.FormFile("audio")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "unreadable audio upload")
		return
	}
	if len(raw) == 0 {
		writeDetail(w, http.StatusBadRequest, "Empty audio upload")
		return
	}
	if maxBytes > 0 && int64(len(raw)) > maxBytes {
		writeDetail(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("Audio too large (%d bytes). Max is %d.", len(raw), maxBytes))
		return
	}

	wav, err := audio.Decode(raw)
	if err != nil {
		h.writeOpError(ctx, w, "stt", err)
		return
	}

	locale := h.langs.STTLocale(r.FormValue("lang"))

	var result *engine.Transcript
	err = h.dispatch(ctx, func(ctx context.Context) error {
		var terr error
		result, terr = h.stt.Transcribe(ctx, engine.TranscribeRequest{
			PCM:             wav.PCM,
			SampleRateHertz: wav.SampleRate,
			Channels:        wav.Channels,
			Language:        locale,
		})
		return terr
	})
	if err != nil {
		h.writeOpError(ctx, w, "stt", err)
		return
	}

	h.pub.Emit(ctx, events.SpeechTranscribed, "", &events.SpeechTranscribedData{
		Language:   result.Language,
		Provider:   result.Provider,
		Confidence: result.Confidence,
		Characters: len(result.Text),
	})

	writeJSON(w, http.StatusOK, transcriptOut{
		Text:       result.Text,
		Confidence: result.Confidence,
		Language:   result.Language,
		Provider:   result.Provider,
	})
}

type synthesizeIn struct {
	Text         string  `json:"text"`
	Lang         string  `json:"lang"`
	Encoding     string  `json:"encoding"`
	SpeakingRate float64 `json:"speaking_rate"`
	Pitch        float64 `json:"pitch"`
	VoiceName    string  `json:"voice_name"`
}

func (h *Handler) synthesize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in synthesizeIn
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(in.Text) == "" {
		writeDetail(w, http.StatusBadRequest, "Text is required")
		return
	}
	if h.cfg.TTSMaxChars > 0 && len([]rune(in.Text)) > h.cfg.TTSMaxChars {
		writeDetail(w, http.StatusBadRequest,
			fmt.Sprintf("Text too long (max %d characters)", h.cfg.TTSMaxChars))
		return
	}
	if strings.TrimSpace(in.Lang) == "" {
		writeDetail(w, http.StatusBadRequest, "lang is required")
		return
	}

	enc := strings.ToLower(strings.TrimSpace(in.Encoding))
	if enc == "" {
		enc = "mp3"
	}

	locale := h.langs.TTSLocale(in.Lang)

	req := engine.SpeakRequest{
		Text:         in.Text,
		Language:     locale,
		Encoding:     enc,
		SpeakingRate: in.SpeakingRate,
		Pitch:        in.Pitch,
		VoiceName:    in.VoiceName,
	}
	if enc == "wav" || enc == "linear16" {
		req.SampleRateHertz = wavSampleRate
	}

	var syn *engine.Synthesis
	err := h.dispatch(ctx, func(ctx context.Context) error {
		var serr error
		syn, serr = h.tts.Speak(ctx, req)
		return serr
	})
	if err != nil {
		h.writeOpError(ctx, w, "tts", err)
		return
	}

	body := syn.Audio
	var mediaType, filename string
	switch enc {
	case "wav", "linear16":
		rate := syn.SampleRateHertz
		if rate <= 0 {
			rate = wavSampleRate
		}
		channels := syn.Channels
		if channels <= 0 {
			channels = 1
		}
		body = audio.Encode(syn.Audio, rate, channels)
		mediaType, filename = "audio/wav", "tts.wav"
	case "mp3":
		mediaType, filename = "audio/mpeg", "tts.mp3"
	case "ogg_opus", "ogg":
		mediaType, filename = "audio/ogg; codecs=opus", "tts.ogg"
	default:
		mediaType, filename = "application/octet-stream", "tts.bin"
	}

	h.pub.Emit(ctx, events.SpeechSynthesized, "", &events.SpeechSynthesizedData{
		Language:   locale,
		Encoding:   enc,
		Characters: len([]rune(in.Text)),
		AudioBytes: len(body),
	})

	w.Header().Set("Content-Type", mediaType)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename))
	w.Header().Set("X-Audio-Content-Type", mediaType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) listVoices(w http.ResponseWriter, r *http.Request) {
	voices := h.tts.Voices(r.Context())
	if voices == nil {
		voices = []engine.Voice{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"voices": voices})
}

type translateIn struct {
	Text     string `json:"text"`
	From     string `json:"from"`
	FromLang string `json:"from_lang"`
	To       string `json:"to"`
	ToLang   string `json:"to_lang"`
}

func (h *Handler) translate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in translateIn
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&in); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	text := strings.TrimSpace(in.Text)
	if text == "" {
		writeDetail(w, http.StatusBadRequest, "Text is required")
		return
	}

	from := strings.TrimSpace(in.From)
	if from == "" {
		from = strings.TrimSpace(in.FromLang)
	}
	if from == "" {
		from = "auto"
	}
	to := strings.TrimSpace(in.To)
	if to == "" {
		to = strings.TrimSpace(in.ToLang)
	}
	if to == "" {
		writeDetail(w, http.StatusBadRequest, "to_lang is required")
		return
	}

	fromIsAuto := from == "" || strings.EqualFold(from, "auto") || strings.EqualFold(from, "detect")
	if !fromIsAuto && strings.EqualFold(from, to) {
		writeDetail(w, http.StatusBadRequest, "From and To languages cannot be the same")
		return
	}
	if fromIsAuto {
		from = ""
	}

	var translated string
	err := h.dispatch(ctx, func(ctx context.Context) error {
		var terr error
		translated, terr = h.translator.Translate(ctx, text, from, to)
		return terr
	})
	if err != nil {
		h.writeTranslateError(ctx, w, err)
		return
	}

	h.pub.Emit(ctx, events.TextTranslated, "", &events.TextTranslatedData{
		From:       from,
		To:         to,
		Characters: len([]rune(text)),
	})

	writeJSON(w, http.StatusOK, map[string]string{"translatedText": translated})
}
