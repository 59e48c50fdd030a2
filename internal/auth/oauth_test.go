package auth

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func testFlow(tokenURL, userinfoURL string) *Flow {
	return &Flow{
		Credentials: &Resolver{ClientID: "client-1", ClientSecret: "secret-1"},
		RedirectURI: "https://backend.example/api/auth/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  "https://idp.example/authorize",
			TokenURL: tokenURL,
		},
		UserinfoURL: userinfoURL,
	}
}

func TestBuildAuthorizeURL(t *testing.T) {
	flow := testFlow("https://idp.example/token", "")

	state, verifier, authorizeURL, err := flow.BuildAuthorizeURL(context.Background())
	if err != nil {
		t.Fatalf("BuildAuthorizeURL: %v", err)
	}

	if state == "" {
		t.Error("state should not be empty")
	}
	if len(verifier) < 43 || len(verifier) > 128 {
		t.Errorf("verifier length = %d, want [43,128]", len(verifier))
	}

	u, err := url.Parse(authorizeURL)
	if err != nil {
		t.Fatalf("parse authorize URL: %v", err)
	}
	q := u.Query()

	if q.Get("state") != state {
		t.Errorf("state param = %q, want %q", q.Get("state"), state)
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q", q.Get("response_type"))
	}
	if q.Get("client_id") != "client-1" {
		t.Errorf("client_id = %q", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != flow.RedirectURI {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("scope") != "openid email profile" {
		t.Errorf("scope = %q", q.Get("scope"))
	}
	if q.Get("code_challenge_method") != "S256" {
		t.Errorf("code_challenge_method = %q", q.Get("code_challenge_method"))
	}
	if q.Get("prompt") != "select_account" {
		t.Errorf("prompt = %q", q.Get("prompt"))
	}
	if q.Get("access_type") != "online" {
		t.Errorf("access_type = %q", q.Get("access_type"))
	}

	sum := sha256.Sum256([]byte(verifier))
	wantChallenge := base64.RawURLEncoding.EncodeToString(sum[:])
	if q.Get("code_challenge") != wantChallenge {
		t.Errorf("code_challenge = %q, want sha256 of the returned verifier", q.Get("code_challenge"))
	}
}

func TestBuildAuthorizeURLFreshness(t *testing.T) {
	flow := testFlow("https://idp.example/token", "")

	s1, v1, _, err := flow.BuildAuthorizeURL(context.Background())
	if err != nil {
		t.Fatalf("BuildAuthorizeURL: %v", err)
	}
	s2, v2, _, err := flow.BuildAuthorizeURL(context.Background())
	if err != nil {
		t.Fatalf("BuildAuthorizeURL: %v", err)
	}
	if s1 == s2 {
		t.Error("two states should differ")
	}
	if v1 == v2 {
		t.Error("two verifiers should differ")
	}
}

func TestBuildAuthorizeURLMissingConfig(t *testing.T) {
	flow := &Flow{
		Credentials: &Resolver{},
		RedirectURI: "https://backend.example/cb",
	}
	_, _, _, err := flow.BuildAuthorizeURL(context.Background())
	var ce *ConfigError
	if !errors.As(err, &ce) {
		t.Errorf("missing credentials: err = %v, want ConfigError", err)
	}

	flow = &Flow{
		Credentials: &Resolver{ClientID: "id", ClientSecret: "sec"},
	}
	_, _, _, err = flow.BuildAuthorizeURL(context.Background())
	if !errors.As(err, &ce) {
		t.Errorf("missing redirect URI: err = %v, want ConfigError", err)
	}
}

func TestNewVerifierBounds(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, err := newVerifier()
		if err != nil {
			t.Fatalf("newVerifier: %v", err)
		}
		if len(v) < 43 || len(v) > 128 {
			t.Fatalf("verifier length = %d, want [43,128]", len(v))
		}
		for _, c := range v {
			if !strings.ContainsRune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_", c) {
				t.Fatalf("verifier contains non URL-safe rune %q", c)
			}
		}
	}
}

func TestHandleCallbackStateValidation(t *testing.T) {
	flow := testFlow("https://idp.example/token", "")

	cases := []struct {
		name           string
		query          url.Values
		storedState    string
		storedVerifier string
	}{
		{
			name:           "state differs by one character",
			query:          url.Values{"code": {"c"}, "state": {"abcdeX"}},
			storedState:    "abcdef",
			storedVerifier: "v",
		},
		{
			name:           "stored state empty (expired or replayed)",
			query:          url.Values{"code": {"c"}, "state": {"abcdef"}},
			storedState:    "",
			storedVerifier: "v",
		},
		{
			name:           "missing code",
			query:          url.Values{"state": {"abcdef"}},
			storedState:    "abcdef",
			storedVerifier: "v",
		},
		{
			name:           "missing state param",
			query:          url.Values{"code": {"c"}},
			storedState:    "abcdef",
			storedVerifier: "v",
		},
		{
			name:           "missing verifier despite matching state",
			query:          url.Values{"code": {"c"}, "state": {"abcdef"}},
			storedState:    "abcdef",
			storedVerifier: "",
		},
	}

	for _, tc := range cases {
		_, err := flow.HandleCallback(context.Background(), tc.query, tc.storedState, tc.storedVerifier)
		var pe *ProtocolError
		if !errors.As(err, &pe) {
			t.Errorf("%s: err = %v, want ProtocolError", tc.name, err)
			continue
		}
		if pe.Reason != "invalid state" {
			t.Errorf("%s: reason = %q, want %q", tc.name, pe.Reason, "invalid state")
		}
	}
}

func TestHandleCallbackProviderError(t *testing.T) {
	flow := testFlow("https://idp.example/token", "")

	query := url.Values{
		"error":             {"access_denied"},
		"error_description": {"User denied access"},
	}
	_, err := flow.HandleCallback(context.Background(), query, "s", "v")
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if !strings.Contains(pe.Error(), "User denied access") {
		t.Errorf("error message %q should carry the provider description", pe.Error())
	}
}

func TestHandleCallbackSuccess(t *testing.T) {
	var gotVerifier, gotCode string

	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse token form: %v", err)
			}
			gotCode = r.PostForm.Get("code")
			gotVerifier = r.PostForm.Get("code_verifier")
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": "tok123",
				"token_type":   "Bearer",
				"expires_in":   3600,
			})
		case "/userinfo":
			if got := r.Header.Get("Authorization"); got != "Bearer tok123" {
				t.Errorf("userinfo Authorization = %q", got)
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"sub":   "abc",
				"email": "A@B.com",
				"name":  "Kiosk User",
			})
		default:
			http.NotFound(w, r)
		}
	}))
	defer idp.Close()

	flow := testFlow(idp.URL+"/token", idp.URL+"/userinfo")

	query := url.Values{"code": {"code-1"}, "state": {"state-1"}}
	identity, err := flow.HandleCallback(context.Background(), query, "state-1", "verifier-1")
	if err != nil {
		t.Fatalf("HandleCallback: %v", err)
	}

	if identity.Subject != "abc" {
		t.Errorf("Subject = %q, want abc", identity.Subject)
	}
	if identity.Email != "a@b.com" {
		t.Errorf("Email = %q, want normalized a@b.com", identity.Email)
	}
	if gotCode != "code-1" {
		t.Errorf("token request code = %q", gotCode)
	}
	if gotVerifier != "verifier-1" {
		t.Errorf("token request code_verifier = %q", gotVerifier)
	}
}

func TestHandleCallbackExchangeFailure(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "Code was already redeemed",
		})
	}))
	defer idp.Close()

	flow := testFlow(idp.URL, "")

	query := url.Values{"code": {"c"}, "state": {"s"}}
	_, err := flow.HandleCallback(context.Background(), query, "s", "v")
	var oe *OAuthError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want OAuthError", err)
	}
	if !strings.Contains(oe.Error(), "Code was already redeemed") {
		t.Errorf("error %q should carry the provider description", oe.Error())
	}
}

func TestHandleCallbackEmptyAccessToken(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": ""})
	}))
	defer idp.Close()

	flow := testFlow(idp.URL, "")

	_, err := flow.HandleCallback(context.Background(), url.Values{"code": {"c"}, "state": {"s"}}, "s", "v")
	var oe *OAuthError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want OAuthError", err)
	}
}

func TestHandleCallbackMissingSubject(t *testing.T) {
	idp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/token":
			json.NewEncoder(w).Encode(map[string]string{"access_token": "tok"})
		default:
			json.NewEncoder(w).Encode(map[string]string{"email": "a@b.com"})
		}
	}))
	defer idp.Close()

	flow := testFlow(idp.URL+"/token", idp.URL+"/userinfo")

	_, err := flow.HandleCallback(context.Background(), url.Values{"code": {"c"}, "state": {"s"}}, "s", "v")
	var oe *OAuthError
	if !errors.As(err, &oe) {
		t.Fatalf("err = %v, want OAuthError", err)
	}
	if !strings.Contains(oe.Error(), "missing subject") {
		t.Errorf("error = %q, want missing subject", oe.Error())
	}
}
