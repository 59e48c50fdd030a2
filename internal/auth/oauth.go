// Package auth drives the authorization-code-with-PKCE sign-in flow against
// Google's identity endpoints and resolves the OAuth client configuration.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleUserinfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

	// RFC 7636 bounds for the PKCE code verifier.
	verifierMinLen = 43
	verifierMaxLen = 128

	defaultTimeout = 12 * time.Second
)

// Identity is the profile extracted from the provider's userinfo endpoint.
// Subject is the provider's stable unique id; the rest are empty-safe.
type Identity struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

// Flow performs the three-step PKCE authorization-code exchange.
// The zero endpoint values target Google; tests override them.
type Flow struct {
	Credentials *Resolver
	RedirectURI string
	Scopes      []string

	Endpoint    oauth2.Endpoint
	UserinfoURL string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

func (f *Flow) endpoint() oauth2.Endpoint {
	if f.Endpoint.AuthURL == "" && f.Endpoint.TokenURL == "" {
		return google.Endpoint
	}
	return f.Endpoint
}

func (f *Flow) userinfoURL() string {
	if f.UserinfoURL == "" {
		return googleUserinfoURL
	}
	return f.UserinfoURL
}

func (f *Flow) timeout() time.Duration {
	if f.Timeout <= 0 {
		return defaultTimeout
	}
	return f.Timeout
}

func (f *Flow) httpClient() *http.Client {
	if f.HTTPClient != nil {
		return f.HTTPClient
	}
	return &http.Client{Timeout: f.timeout()}
}

func (f *Flow) scopes() []string {
	if len(f.Scopes) == 0 {
		return []string{"openid", "email", "profile"}
	}
	return f.Scopes
}

func (f *Flow) oauthConfig(clientID, clientSecret string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     f.endpoint(),
		RedirectURL:  f.RedirectURI,
		Scopes:       f.scopes(),
	}
}

// BuildAuthorizeURL generates a fresh state token and PKCE verifier and
// returns them with the provider authorization URL. The caller stores state
// and verifier in the session before redirecting the user agent.
func (f *Flow) BuildAuthorizeURL(ctx context.Context) (state, verifier, authorizeURL string, err error) {
	clientID, clientSecret, err := f.Credentials.Resolve(ctx)
	if err != nil {
		return "", "", "", err
	}
	if strings.TrimSpace(f.RedirectURI) == "" {
		return "", "", "", &ConfigError{Reason: "redirect URI is empty; set BASE_URL so the callback becomes <BASE_URL>/api/auth/callback"}
	}

	state, err = randomToken(24)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	verifier, err = newVerifier()
	if err != nil {
		return "", "", "", fmt.Errorf("generate verifier: %w", err)
	}

	conf := f.oauthConfig(clientID, clientSecret)
	authorizeURL = conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("access_type", "online"),
		oauth2.SetAuthURLParam("include_granted_scopes", "true"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return state, verifier, authorizeURL, nil
}

// HandleCallback validates the provider redirect and exchanges the code for
// the user's identity. Single pass, no retries: validation happens strictly
// before any network call, and a state mismatch of any kind (including an
// already-consumed stored state) fails the same way.
func (f *Flow) HandleCallback(ctx context.Context, query url.Values, storedState, storedVerifier string) (*Identity, error) {
	if e := query.Get("error"); e != "" {
		return nil, &ProviderError{Code: e, Description: query.Get("error_description")}
	}

	code := strings.TrimSpace(query.Get("code"))
	state := strings.TrimSpace(query.Get("state"))
	storedState = strings.TrimSpace(storedState)
	storedVerifier = strings.TrimSpace(storedVerifier)

	if code == "" || state == "" || storedState == "" || storedVerifier == "" {
		return nil, errInvalidState()
	}
	if state != storedState {
		return nil, errInvalidState()
	}

	clientID, clientSecret, err := f.Credentials.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(f.RedirectURI) == "" {
		return nil, &ConfigError{Reason: "redirect URI is empty"}
	}

	token, err := f.exchange(ctx, clientID, clientSecret, code, storedVerifier)
	if err != nil {
		return nil, err
	}

	identity, err := f.fetchUserinfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}
	return identity, nil
}

func (f *Flow) exchange(ctx context.Context, clientID, clientSecret, code, verifier string) (*oauth2.Token, error) {
	conf := f.oauthConfig(clientID, clientSecret)

	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient())
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	token, err := conf.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			return nil, &OAuthError{Op: "token exchange", Description: providerMessage(re), Err: err}
		}
		return nil, &OAuthError{Op: "token exchange", Err: err}
	}
	if strings.TrimSpace(token.AccessToken) == "" {
		return nil, &OAuthError{Op: "token exchange", Description: "no access_token in response"}
	}
	return token, nil
}

func (f *Flow) fetchUserinfo(ctx context.Context, accessToken string) (*Identity, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userinfoURL(), nil)
	if err != nil {
		return nil, &OAuthError{Op: "userinfo", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.httpClient().Do(req)
	if err != nil {
		return nil, &OAuthError{Op: "userinfo", Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &OAuthError{Op: "userinfo", Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body)}
	}

	var info struct {
		Sub     string `json:"sub"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &OAuthError{Op: "userinfo", Err: err}
	}

	subject := strings.TrimSpace(info.Sub)
	if subject == "" {
		return nil, &OAuthError{Op: "userinfo", Description: "missing subject"}
	}

	return &Identity{
		Subject: subject,
		Email:   strings.ToLower(strings.TrimSpace(info.Email)),
		Name:    strings.TrimSpace(info.Name),
		Picture: strings.TrimSpace(info.Picture),
	}, nil
}

// providerMessage extracts the most descriptive message the provider gave.
func providerMessage(re *oauth2.RetrieveError) string {
	if d := strings.TrimSpace(re.ErrorDescription); d != "" {
		return d
	}
	if c := strings.TrimSpace(re.ErrorCode); c != "" {
		return c
	}
	return strings.TrimSpace(string(re.Body))
}

// randomToken returns n bytes of cryptographic randomness, URL-safe encoded.
func randomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// newVerifier produces a PKCE code verifier within the RFC 7636 length
// bounds: 64 random bytes encode to 86 chars, padded or truncated if a future
// encoding change lands outside [43,128].
func newVerifier() (string, error) {
	v, err := randomToken(64)
	if err != nil {
		return "", err
	}
	if len(v) > verifierMaxLen {
		v = v[:verifierMaxLen]
	}
	for len(v) < verifierMinLen {
		more, err := randomToken(64)
		if err != nil {
			return "", err
		}
		v = v + more
		if len(v) > verifierMaxLen {
			v = v[:verifierMaxLen]
		}
	}
	return v, nil
}
