package config

import (
	"strings"

	"github.com/pitabwire/frame/config"
)

// KioskConfig holds configuration for the kiosk backend service.
type KioskConfig struct {
	config.ConfigurationDefault

	// Public URLs. BaseURL is this backend's externally reachable origin;
	// FrontendURL is where the browser is sent back after sign-in.
	BaseURL     string `envDefault:""             env:"BASE_URL"`
	FrontendURL string `envDefault:""             env:"FRONTEND_URL"`

	// Google OAuth. Client id/secret may instead come from a downloaded
	// client-secrets JSON file, resolved by internal/auth.
	OAuthClientID     string `envDefault:""                   env:"GOOGLE_OAUTH_CLIENT_ID"`
	OAuthClientSecret string `envDefault:""                   env:"GOOGLE_OAUTH_CLIENT_SECRET"`
	OAuthScopes       string `envDefault:"openid,email,profile" env:"GOOGLE_OAUTH_SCOPES"`
	OAuthRedirectPath string `envDefault:"/api/auth/callback" env:"GOOGLE_OAUTH_REDIRECT_PATH"`
	OAuthSecretsFile  string `envDefault:""                   env:"GOOGLE_OAUTH_CLIENT_SECRETS_FILE"`
	KeysDir           string `envDefault:"./keys"             env:"KEYS_DIR"`

	// Session cookie.
	SessionSecret       string `envDefault:""           env:"SESSION_SECRET"`
	SessionCookieName   string `envDefault:"tb_session" env:"SESSION_COOKIE_NAME"`
	SessionMaxAgeSec    int    `envDefault:"604800"     env:"SESSION_MAX_AGE_SECONDS"`
	SessionCookieSecure bool   `envDefault:"false"      env:"SESSION_COOKIE_SECURE"`
	SessionSameSite     string `envDefault:""           env:"SESSION_COOKIE_SAMESITE"`
	SessionCookieDomain string `envDefault:""           env:"SESSION_COOKIE_DOMAIN"`
	SessionCookiePath   string `envDefault:"/"          env:"SESSION_COOKIE_PATH"`

	// CORS.
	AllowedOrigins string `envDefault:"*" env:"ALLOWED_ORIGINS"`

	// Speech vendors.
	STTBackend       string `envDefault:"google"       env:"STT_BACKEND"`
	TTSBackend       string `envDefault:"google"       env:"TTS_BACKEND"`
	GoogleAPIKey     string `envDefault:""             env:"GOOGLE_API_KEY"`
	GoogleSTTModel   string `envDefault:"latest_short" env:"GOOGLE_STT_MODEL"`
	STTMaxAudioBytes int    `envDefault:"2000000"      env:"GOOGLE_STT_MAX_AUDIO_BYTES"`
	TTSMaxChars      int    `envDefault:"5000"         env:"GOOGLE_TTS_MAX_CHARS"`
	LangMapFile      string `envDefault:""             env:"LANG_MAP_FILE"`

	// Translation vendor.
	TranslateBackend    string `envDefault:"microsoft" env:"TRANSLATE_BACKEND"`
	MSTranslatorKey     string `envDefault:""          env:"MICROSOFT_TRANSLATOR_KEY"`
	MSTranslatorRegion  string `envDefault:""          env:"MICROSOFT_TRANSLATOR_REGION"`
	MSTranslatorBaseURL string `envDefault:"https://api.cognitive.microsofttranslator.com" env:"MICROSOFT_TRANSLATOR_ENDPOINT"`
}

// RedirectURI combines the public base URL with the fixed callback path.
// Empty when BaseURL is not configured.
func (c *KioskConfig) RedirectURI() string {
	base := strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	path := strings.TrimSpace(c.OAuthRedirectPath)
	if base == "" || path == "" {
		return ""
	}
	return base + path
}

// Scopes returns the configured OAuth scopes as a list.
func (c *KioskConfig) Scopes() []string {
	var out []string
	for _, s := range strings.Split(c.OAuthScopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return []string{"openid", "email", "profile"}
	}
	return out
}

// CORSOrigins returns the allowed origins list. A single "*" entry (or an
// empty setting) means any origin, which disables credentialed CORS.
func (c *KioskConfig) CORSOrigins() []string {
	raw := strings.TrimSpace(c.AllowedOrigins)
	if raw == "" || raw == "*" {
		return []string{"*"}
	}
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			if o == "*" {
				return []string{"*"}
			}
			out = append(out, strings.TrimRight(o, "/"))
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

// SameSite normalizes the configured SameSite mode, defaulting to "none"
// for secure cookies (cross-site kiosk frontends) and "lax" otherwise.
func (c *KioskConfig) SameSite() string {
	switch strings.ToLower(strings.TrimSpace(c.SessionSameSite)) {
	case "lax":
		return "lax"
	case "strict":
		return "strict"
	case "none":
		return "none"
	}
	if c.SessionCookieSecure {
		return "none"
	}
	return "lax"
}
