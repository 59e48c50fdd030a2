package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/talkbridge/talkbridge/config"
	"github.com/talkbridge/talkbridge/internal/auth"
	"github.com/talkbridge/talkbridge/internal/session"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/internal/store"
)

// fakeStore is an in-memory UserStore.
type fakeStore struct {
	mu      sync.Mutex
	users   map[string]*store.User
	history map[string]json.RawMessage
	nextID  int
	fail    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]*store.User{},
		history: map[string]json.RawMessage{},
	}
}

func (f *fakeStore) UpsertUser(_ context.Context, subject, email, name, picture string) (*store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if u, ok := f.users[subject]; ok {
		if email != "" {
			u.Email = email
		}
		if name != "" {
			u.Name = name
		}
		if picture != "" {
			u.Picture = picture
		}
		return u, nil
	}
	f.nextID++
	u := &store.User{Subject: subject, Email: email, Name: name, Picture: picture}
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	f.users[subject] = u
	return u, nil
}

func (f *fakeStore) LoadHistory(_ context.Context, userID string) (json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	if h, ok := f.history[userID]; ok {
		return h, nil
	}
	return json.RawMessage("[]"), nil
}

func (f *fakeStore) SaveHistory(_ context.Context, userID string, entries json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.history[userID] = json.RawMessage(store.NormalizeEntries(entries))
	return nil
}

type fakeTranscriber struct {
	result *engine.Transcript
	err    error
	gotReq engine.TranscribeRequest
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req engine.TranscribeRequest) (*engine.Transcript, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeSynthesizer struct {
	result *engine.Synthesis
	voices []engine.Voice
	err    error
	gotReq engine.SpeakRequest
}

func (f *fakeSynthesizer) Speak(_ context.Context, req engine.SpeakRequest) (*engine.Synthesis, error) {
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSynthesizer) Voices(context.Context) []engine.Voice { return f.voices }

type fakeTranslator struct {
	result  string
	err     error
	gotFrom string
	gotTo   string
}

func (f *fakeTranslator) Translate(_ context.Context, _, from, to string) (string, error) {
	f.gotFrom, f.gotTo = from, to
	if f.err != nil {
		return "", f.err
	}
	return f.result, nil
}

type env struct {
	handler http.Handler
	h       *Handler
	store   *fakeStore
	stt     *fakeTranscriber
	tts     *fakeSynthesizer
	tr      *fakeTranslator
	cfg     *config.KioskConfig
}

func newTestEnv(t interface{ Fatalf(string, ...any) }, mutate func(*config.KioskConfig)) *env {
	cfg := &config.KioskConfig{
		FrontendURL:      "https://kiosk.example.com",
		STTMaxAudioBytes: 2000000,
		TTSMaxChars:      5000,
		AllowedOrigins:   "*",
	}
	if mutate != nil {
		mutate(cfg)
	}

	sessions, err := session.NewManager("test-secret", session.Options{MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("session manager: %v", err)
	}

	flow := &auth.Flow{
		Credentials: &auth.Resolver{ClientID: "cid", ClientSecret: "csecret"},
		RedirectURI: "https://backend.example.com/api/auth/callback",
		Scopes:      []string{"openid", "email", "profile"},
	}

	st := newFakeStore()
	stt := &fakeTranscriber{result: &engine.Transcript{Text: "hello", Confidence: 0.9, Language: "en-US", Provider: "google"}}
	tts := &fakeSynthesizer{result: &engine.Synthesis{Audio: []byte("mp3data"), Encoding: "mp3"}}
	tr := &fakeTranslator{result: "hola"}

	h := New(Options{
		Config:     cfg,
		Flow:       flow,
		Sessions:   sessions,
		Users:      st,
		STT:        stt,
		TTS:        tts,
		Translator: tr,
		Timeout:    5 * time.Second,
	})

	return &env{handler: h.Routes(), h: h, store: st, stt: stt, tts: tts, tr: tr, cfg: cfg}
}

// withOAuthStubs points the flow at stub token and userinfo servers.
func (e *env) withOAuthStubs(tokenURL, userinfoURL string) {
	e.h.flow.Endpoint = oauth2.Endpoint{
		AuthURL:  "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL: tokenURL,
	}
	e.h.flow.UserinfoURL = userinfoURL
}

func (e *env) do(req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func detailOf(rec *httptest.ResponseRecorder) string {
	var body struct {
		Detail string `json:"detail"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return body.Detail
}
