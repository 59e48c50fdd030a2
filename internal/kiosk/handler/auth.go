package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/pitabwire/util"

	"github.com/talkbridge/talkbridge/internal/auth"
	"github.com/talkbridge/talkbridge/internal/session"
	"github.com/talkbridge/talkbridge/pkg/events"
)

const defaultNext = "/kiosk.html"

// maxHistoryBody bounds PUT /api/history payloads.
const maxHistoryBody = 1 << 20

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	next := auth.SafeNext(r.URL.Query().Get("next"), h.cfg.FrontendURL)
	if next == "" {
		next = defaultNext
	}

	state, verifier, authorizeURL, err := h.flow.BuildAuthorizeURL(ctx)
	if err != nil {
		h.writeOpError(ctx, w, "login", err)
		return
	}

	s := h.sessions.Load(r)
	s.OAuth = &session.PendingAuth{State: state, Verifier: verifier, Next: next}
	if err := h.sessions.Save(w, s); err != nil {
		h.writeOpError(ctx, w, "login", err)
		return
	}

	http.Redirect(w, r, authorizeURL, http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s := h.sessions.Load(r)
	pending := s.PopPendingAuth()

	var storedState, storedVerifier, next string
	if pending != nil {
		storedState = pending.State
		storedVerifier = pending.Verifier
		next = pending.Next
	}

	// The one-time fields are spent no matter how the callback ends, so
	// the cleared session goes back to the browser on every path.
	persist := func() {
		if err := h.sessions.Save(w, s); err != nil {
			util.Log(ctx).WithError(err).Error("callback: persist session")
		}
	}

	identity, err := h.flow.HandleCallback(ctx, r.URL.Query(), storedState, storedVerifier)
	if err != nil {
		persist()
		h.writeOpError(ctx, w, "callback", err)
		return
	}

	user, err := h.users.UpsertUser(ctx, identity.Subject, identity.Email, identity.Name, identity.Picture)
	if err != nil {
		persist()
		h.writeOpError(ctx, w, "callback", err)
		return
	}

	s.User = &session.Profile{
		ID:      user.ID,
		Subject: user.Subject,
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Picture,
	}
	persist()

	h.pub.Emit(ctx, events.UserSignedIn, user.ID, &events.UserSignedInData{
		Subject: user.Subject,
		Email:   user.Email,
	})

	if next == "" {
		next = defaultNext
	}
	frontend := strings.TrimRight(strings.TrimSpace(h.cfg.FrontendURL), "/")

	switch {
	case strings.HasPrefix(next, "/") && frontend != "":
		http.Redirect(w, r, frontend+next, http.StatusFound)
	case frontend != "" && strings.HasPrefix(next, frontend):
		http.Redirect(w, r, next, http.StatusFound)
	default:
		// No frontend configured: hand the profile back directly.
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "user": s.User})
	}
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Load(r)
	// Never 401: an anonymous kiosk session is a normal state.
	writeJSON(w, http.StatusOK, map[string]any{"user": s.User})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	s := h.sessions.Load(r)
	if s.User != nil {
		h.pub.Emit(r.Context(), events.UserSignedOut, s.User.ID, nil)
	}
	h.sessions.Clear(w)
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) requireUser(w http.ResponseWriter, r *http.Request) *session.Profile {
	s := h.sessions.Load(r)
	if s.User == nil {
		writeDetail(w, http.StatusUnauthorized, "Not signed in")
		return nil
	}
	return s.User
}

func (h *Handler) getHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := h.requireUser(w, r)
	if user == nil {
		return
	}

	history, err := h.users.LoadHistory(ctx, user.ID)
	if err != nil {
		h.writeOpError(ctx, w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"history": json.RawMessage(history)})
}

func (h *Handler) putHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user := h.requireUser(w, r)
	if user == nil {
		return
	}

	raw, err := io.ReadAll(io.LimitReader(r.Body, maxHistoryBody))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "unreadable request body")
		return
	}

	// Accept either {"history": [...]} or a bare array; anything else
	// normalizes to the empty array downstream.
	entries := json.RawMessage(raw)
	var wrapper struct {
		History json.RawMessage `json:"history"`
	}
	if err := json.Unmarshal(raw, &wrapper); err == nil && wrapper.History != nil {
		entries = wrapper.History
	}

	if err := h.users.SaveHistory(ctx, user.ID, entries); err != nil {
		h.writeOpError(ctx, w, "history", err)
		return
	}

	h.pub.Emit(ctx, events.HistorySaved, user.ID, &events.HistorySavedData{Bytes: len(entries)})
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
