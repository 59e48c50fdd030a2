// Package session keeps per-browser state in a signed, optionally encrypted
// cookie. The state is a fixed struct rather than a free-form map so the
// one-time OAuth fields have exactly one place to live and one way to be
// erased.
package session

import (
	"net/http"
	"time"
)

// Profile is the signed-in user as stored in the session cookie.
type Profile struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// PendingAuth holds the one-time OAuth fields between the login redirect and
// the callback. Consumed exactly once via State.PopPendingAuth.
type PendingAuth struct {
	State    string `json:"state"`
	Verifier string `json:"verifier"`
	Next     string `json:"next,omitempty"`
}

// State is everything a browser session carries.
type State struct {
	User  *Profile     `json:"user,omitempty"`
	OAuth *PendingAuth `json:"oauth,omitempty"`
}

// PopPendingAuth returns the one-time OAuth fields and clears them from the
// state. Callers must persist the state afterwards on every exit path so a
// replayed callback finds nothing to match against.
func (s *State) PopPendingAuth() *PendingAuth {
	p := s.OAuth
	s.OAuth = nil
	return p
}

// Options configure the session cookie attributes.
type Options struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	SameSite   http.SameSite
	Domain     string
	Path       string
	Encrypt    bool
}

// Manager loads and stores session state on HTTP exchanges.
type Manager struct {
	codec *codec
	opts  Options
}

// NewManager creates a session manager signing with the given secret.
func NewManager(secret string, opts Options) (*Manager, error) {
	if opts.CookieName == "" {
		opts.CookieName = "tb_session"
	}
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.SameSite == 0 {
		opts.SameSite = http.SameSiteLaxMode
	}

	c, err := newCodec(secret, opts.Encrypt, opts.MaxAge)
	if err != nil {
		return nil, err
	}
	return &Manager{codec: c, opts: opts}, nil
}

// Load returns the session state from the request cookie. A missing,
// tampered, or expired cookie yields a fresh empty state, never an error.
func (m *Manager) Load(r *http.Request) *State {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil || cookie.Value == "" {
		return &State{}
	}
	state, err := m.codec.decode(cookie.Value)
	if err != nil {
		return &State{}
	}
	return state
}

// Save writes the state back as a session cookie.
func (m *Manager) Save(w http.ResponseWriter, s *State) error {
	value, err := m.codec.encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(value, int(m.opts.MaxAge.Seconds())))
	return nil
}

// Clear expires the session cookie.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, m.cookie("", -1))
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    value,
		MaxAge:   maxAge,
		Path:     m.opts.Path,
		Domain:   m.opts.Domain,
		Secure:   m.opts.Secure,
		HttpOnly: true,
		SameSite: m.opts.SameSite,
	}
}

// ParseSameSite maps the configured mode name to its http constant.
func ParseSameSite(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
