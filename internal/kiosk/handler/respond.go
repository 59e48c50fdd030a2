package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pitabwire/util"

	"github.com/talkbridge/talkbridge/internal/audio"
	"github.com/talkbridge/talkbridge/internal/auth"
	"github.com/talkbridge/talkbridge/internal/speech/backends/restutil"
	"github.com/talkbridge/talkbridge/internal/speech/engine"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// writeOpError maps domain errors to HTTP statuses. Configuration
// problems are ours (500); protocol, provider, input and format errors
// are the caller's or the sign-in round-trip's (400); vendor failures
// surface as 502.
func (h *Handler) writeOpError(ctx context.Context, w http.ResponseWriter, op string, err error) {
	var (
		configErr     *auth.ConfigError
		protocolErr   *auth.ProtocolError
		providerErr   *auth.ProviderError
		oauthErr      *auth.OAuthError
		formatErr     *audio.FormatError
		badInput      *engine.BadInputError
		notConfigured *engine.NotConfiguredError
		httpErr       *restutil.HTTPError
	)

	status := http.StatusInternalServerError
	detail := op + " failed"

	switch {
	case errors.As(err, &configErr):
		status, detail = http.StatusInternalServerError, configErr.Error()
	case errors.As(err, &protocolErr):
		status, detail = http.StatusBadRequest, protocolErr.Error()
	case errors.As(err, &providerErr):
		status, detail = http.StatusBadRequest, providerErr.Error()
	case errors.As(err, &oauthErr):
		status, detail = http.StatusBadRequest, oauthErr.Error()
	case errors.As(err, &formatErr):
		status, detail = http.StatusBadRequest, formatErr.Error()
	case errors.As(err, &badInput):
		status, detail = http.StatusBadRequest, badInput.Error()
	case errors.Is(err, engine.ErrNoSpeech):
		status, detail = http.StatusBadRequest, "No speech detected"
	case errors.As(err, &notConfigured):
		status, detail = http.StatusBadGateway, notConfigured.Error()
	case errors.As(err, &httpErr):
		status, detail = http.StatusBadGateway, op+" vendor error"
	case errors.Is(err, context.DeadlineExceeded):
		status, detail = http.StatusGatewayTimeout, op+" timed out"
	}

	util.Log(ctx).WithError(err).Error(op + " request failed")
	writeDetail(w, status, detail)
}

// writeTranslateError applies the translator-specific status mapping:
// vendor throttling and authorization failures pass through in a form
// the kiosk can show, everything else folds into 400/502.
func (h *Handler) writeTranslateError(ctx context.Context, w http.ResponseWriter, err error) {
	var httpErr *restutil.HTTPError
	if errors.As(err, &httpErr) {
		util.Log(ctx).WithError(err).Error("translate request failed")
		switch {
		case httpErr.Status == http.StatusTooManyRequests:
			writeDetail(w, http.StatusTooManyRequests, "Quota exceeded. Try again later.")
		case httpErr.Status == http.StatusUnauthorized || httpErr.Status == http.StatusForbidden:
			writeDetail(w, http.StatusForbidden, "Translator key/region not authorized.")
		case httpErr.Status >= 400 && httpErr.Status < 500:
			writeDetail(w, http.StatusBadRequest, "Bad request to translator service.")
		default:
			writeDetail(w, http.StatusBadGateway, "Translator service error.")
		}
		return
	}
	h.writeOpError(ctx, w, "translate", err)
}
