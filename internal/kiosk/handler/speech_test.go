package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/talkbridge/talkbridge/config"
	"github.com/talkbridge/talkbridge/internal/audio"
	"github.com/talkbridge/talkbridge/internal/speech/backends/restutil"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
)

func wavUpload(t *testing.T, wav []byte, lang string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("audio", "clip.wav")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(wav)
	if lang != "" {
		mw.WriteField("lang", lang)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/stt", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestTranscribeEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)

	pcm := make([]byte, 3200)
	wav := audio.Encode(pcm, 16000, 1)

	rec := e.do(wavUpload(t, wav, "en"), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	var out transcriptOut
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Text != "hello" || out.Provider != "google" {
		t.Errorf("out = %+v", out)
	}

	got := e.stt.gotReq
	if got.Language != "en-US" {
		t.Errorf("language = %q, want mapped locale", got.Language)
	}
	if got.SampleRateHertz != 16000 || got.Channels != 1 {
		t.Errorf("audio params = %+v", got)
	}
	if len(got.PCM) != len(pcm) {
		t.Errorf("pcm = %d bytes, want %d", len(got.PCM), len(pcm))
	}
}

func TestTranscribeRejectsNonWav(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(wavUpload(t, []byte("not a wav at all"), "en"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestTranscribeSizeCap(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.KioskConfig) {
		cfg.STTMaxAudioBytes = 1000
	})

	wav := audio.Encode(make([]byte, 2000), 16000, 1)
	rec := e.do(wavUpload(t, wav, "en"), nil)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
	}
}

func TestTranscribeNoSpeechIs400(t *testing.T) {
	e := newTestEnv(t, nil)
	e.stt.err = engine.ErrNoSpeech

	wav := audio.Encode(make([]byte, 320), 16000, 1)
	rec := e.do(wavUpload(t, wav, "en"), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := detailOf(rec); got != "No speech detected" {
		t.Errorf("detail = %q", got)
	}
}

func TestTranscribeVendorFailureIs502(t *testing.T) {
	e := newTestEnv(t, nil)
	e.stt.err = &restutil.HTTPError{Status: 500, Body: "vendor down"}

	wav := audio.Encode(make([]byte, 320), 16000, 1)
	rec := e.do(wavUpload(t, wav, "en"), nil)
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d", rec.Code)
	}
}

func ttsRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/tts", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestSynthesizeMP3(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(ttsRequest(`{"text":"hello","lang":"en","encoding":"mp3"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if got := rec.Header().Get("Content-Type"); got != "audio/mpeg" {
		t.Errorf("content-type = %q", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("cache-control = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "tts.mp3") {
		t.Errorf("disposition = %q", got)
	}
	if got := rec.Header().Get("X-Audio-Content-Type"); got != "audio/mpeg" {
		t.Errorf("x-audio-content-type = %q", got)
	}
	if rec.Body.String() != "mp3data" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if e.tts.gotReq.Language != "en-US" {
		t.Errorf("language = %q", e.tts.gotReq.Language)
	}
}

func TestSynthesizeWavWrapsPCM(t *testing.T) {
	e := newTestEnv(t, nil)
	pcm := []byte{1, 2, 3, 4, 5, 6}
	e.tts.result = &engine.Synthesis{Audio: pcm, Encoding: "wav", SampleRateHertz: 24000, Channels: 1}

	rec := e.do(ttsRequest(`{"text":"hi","lang":"en","encoding":"wav"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	if got := rec.Header().Get("Content-Type"); got != "audio/wav" {
		t.Errorf("content-type = %q", got)
	}
	if e.tts.gotReq.SampleRateHertz != 24000 {
		t.Errorf("requested sample rate = %d", e.tts.gotReq.SampleRateHertz)
	}

	decoded, err := audio.Decode(rec.Body.Bytes())
	if err != nil {
		t.Fatalf("response is not valid WAV: %v", err)
	}
	if decoded.SampleRate != 24000 || decoded.Channels != 1 {
		t.Errorf("wav params = %d Hz %d ch", decoded.SampleRate, decoded.Channels)
	}
	if !bytes.Equal(decoded.PCM, pcm) {
		t.Error("wav payload differs from synthesized pcm")
	}
}

func TestSynthesizeValidation(t *testing.T) {
	e := newTestEnv(t, func(cfg *config.KioskConfig) {
		cfg.TTSMaxChars = 5
	})

	cases := []struct {
		name string
		body string
	}{
		{"empty text", `{"text":"  ","lang":"en"}`},
		{"missing lang", `{"text":"hi"}`},
		{"too long", `{"text":"much too long","lang":"en"}`},
		{"bad json", `{`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := e.do(ttsRequest(c.body), nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, body = %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestListVoices(t *testing.T) {
	e := newTestEnv(t, nil)
	e.tts.voices = []engine.Voice{{Name: "en-US-Neural2-A", Languages: []string{"en-US"}}}

	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/tts/voices", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "en-US-Neural2-A") {
		t.Errorf("body = %s", rec.Body)
	}

	// Empty catalog serializes as an array, not null.
	e.tts.voices = nil
	rec = e.do(httptest.NewRequest(http.MethodGet, "/api/tts/voices", nil), nil)
	if got := strings.TrimSpace(rec.Body.String()); got != `{"voices":[]}` {
		t.Errorf("body = %q", got)
	}
}

func translateRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/translate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestTranslateEndpoint(t *testing.T) {
	e := newTestEnv(t, nil)

	rec := e.do(translateRequest(`{"text":"hello","from":"en","to":"es"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"translatedText":"hola"}` {
		t.Errorf("body = %q", got)
	}
	if e.tr.gotFrom != "en" || e.tr.gotTo != "es" {
		t.Errorf("from/to = %q/%q", e.tr.gotFrom, e.tr.gotTo)
	}

	// Alias field names work too.
	rec = e.do(translateRequest(`{"text":"hello","from_lang":"auto","to_lang":"fr"}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("alias status = %d", rec.Code)
	}
	if e.tr.gotFrom != "" {
		t.Errorf("auto should omit from, got %q", e.tr.gotFrom)
	}
	if e.tr.gotTo != "fr" {
		t.Errorf("to = %q", e.tr.gotTo)
	}
}

func TestTranslateValidation(t *testing.T) {
	e := newTestEnv(t, nil)

	cases := []struct {
		name   string
		body   string
		detail string
	}{
		{"no text", `{"from":"en","to":"es"}`, "Text is required"},
		{"no target", `{"text":"hi","from":"en"}`, "to_lang is required"},
		{"same language", `{"text":"hi","from":"es","to":"ES"}`, "From and To languages cannot be the same"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec := e.do(translateRequest(c.body), nil)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d", rec.Code)
			}
			if got := detailOf(rec); got != c.detail {
				t.Errorf("detail = %q, want %q", got, c.detail)
			}
		})
	}
}

func TestTranslateStatusMapping(t *testing.T) {
	cases := []struct {
		vendor int
		want   int
	}{
		{429, http.StatusTooManyRequests},
		{401, http.StatusForbidden},
		{403, http.StatusForbidden},
		{400, http.StatusBadRequest},
		{404, http.StatusBadRequest},
		{500, http.StatusBadGateway},
		{503, http.StatusBadGateway},
	}
	for _, c := range cases {
		e := newTestEnv(t, nil)
		e.tr.err = &restutil.HTTPError{Status: c.vendor, Body: "x"}

		rec := e.do(translateRequest(`{"text":"hi","from":"en","to":"es"}`), nil)
		if rec.Code != c.want {
			t.Errorf("vendor %d: status = %d, want %d", c.vendor, rec.Code, c.want)
		}
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t, nil)
	rec := e.do(httptest.NewRequest(http.MethodGet, "/api/health", nil), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"ok":true}` {
		t.Errorf("body = %q", got)
	}
}
