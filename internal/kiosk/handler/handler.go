// Package handler is the HTTP surface of the kiosk backend: Google
// sign-in, per-user history, and the speech and translation endpoints
// the kiosk frontend calls.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pitabwire/frame/workerpool"

	"github.com/talkbridge/talkbridge/config"
	"github.com/talkbridge/talkbridge/internal/auth"
	"github.com/talkbridge/talkbridge/internal/session"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
	"github.com/talkbridge/talkbridge/internal/speech/langmap"
	"github.com/talkbridge/talkbridge/internal/store"
	"github.com/talkbridge/talkbridge/pkg/events"
)

const defaultDispatchTimeout = 12 * time.Second

// UserStore is the persistence surface the handler needs.
type UserStore interface {
	UpsertUser(ctx context.Context, subject, email, name, picture string) (*store.User, error)
	LoadHistory(ctx context.Context, userID string) (json.RawMessage, error)
	SaveHistory(ctx context.Context, userID string, entries json.RawMessage) error
}

// Handler serves the kiosk API.
type Handler struct {
	cfg        *config.KioskConfig
	flow       *auth.Flow
	sessions   *session.Manager
	users      UserStore
	stt        engine.Transcriber
	tts        engine.Synthesizer
	translator engine.Translator
	langs      *langmap.Mapper
	pool       workerpool.WorkerPool
	pub        *events.Publisher
	timeout    time.Duration
}

// Options carries the handler's collaborators.
type Options struct {
	Config     *config.KioskConfig
	Flow       *auth.Flow
	Sessions   *session.Manager
	Users      UserStore
	STT        engine.Transcriber
	TTS        engine.Synthesizer
	Translator engine.Translator
	Langs      *langmap.Mapper
	Pool       workerpool.WorkerPool
	Publisher  *events.Publisher
	Timeout    time.Duration
}

// New creates the kiosk handler.
func New(opts Options) *Handler {
	if opts.Langs == nil {
		opts.Langs = langmap.New()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultDispatchTimeout
	}
	return &Handler{
		cfg:        opts.Config,
		flow:       opts.Flow,
		sessions:   opts.Sessions,
		users:      opts.Users,
		stt:        opts.STT,
		tts:        opts.TTS,
		translator: opts.Translator,
		langs:      opts.Langs,
		pool:       opts.Pool,
		pub:        opts.Publisher,
		timeout:    opts.Timeout,
	}
}

// Routes builds the kiosk API mux with CORS applied.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/auth/login", h.login)
	mux.HandleFunc("GET /api/auth/callback", h.callback)
	mux.HandleFunc("GET /api/auth/me", h.me)
	mux.HandleFunc("POST /api/auth/logout", h.logout)

	mux.HandleFunc("GET /api/history", h.getHistory)
	mux.HandleFunc("PUT /api/history", h.putHistory)

	mux.HandleFunc("POST /api/stt", h.transcribe)
	mux.HandleFunc("POST /api/tts", h.synthesize)
	mux.HandleFunc("GET /api/tts/voices", h.listVoices)
	mux.HandleFunc("POST /api/translate", h.translate)

	mux.HandleFunc("GET /api/health", h.health)

	return h.cors(mux)
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// dispatch runs vendor-facing work on the worker pool with a bounded
// timeout. When no pool is wired (tests, degraded startup) the work
// runs inline under the same deadline.
func (h *Handler) dispatch(ctx context.Context, op func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan error, 1)
	task := func() {
		done <- op(ctx)
	}

	if h.pool == nil || h.pool.Submit(ctx, task) != nil {
		task()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
