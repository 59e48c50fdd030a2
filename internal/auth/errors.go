package auth

import "fmt"

// ConfigError means static OAuth configuration (client credentials or the
// redirect URI) could not be resolved. Not retryable.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "oauth config: " + e.Reason
}

// ProtocolError means the callback failed local validation: missing code,
// missing or mismatched state, or a consumed/expired verifier. The flow must
// restart from login.
type ProtocolError struct {
	Reason string
}

func (e *ProtocolError) Error() string {
	return "oauth: " + e.Reason
}

// errInvalidState covers every local validation failure uniformly so the
// response does not reveal which check tripped.
func errInvalidState() error {
	return &ProtocolError{Reason: "invalid state"}
}

// ProviderError means the identity provider reported an explicit error
// parameter on the callback.
type ProviderError struct {
	Code        string
	Description string
}

func (e *ProviderError) Error() string {
	if e.Description != "" {
		return "oauth provider: " + e.Description
	}
	return "oauth provider: " + e.Code
}

// OAuthError means the token exchange or userinfo fetch failed, either on the
// wire or with an invalid payload. Description carries the provider's own
// error text when one was returned; token material is never included.
type OAuthError struct {
	Op          string
	Description string
	Err         error
}

func (e *OAuthError) Error() string {
	switch {
	case e.Description != "":
		return fmt.Sprintf("oauth %s: %s", e.Op, e.Description)
	case e.Err != nil:
		return fmt.Sprintf("oauth %s: %v", e.Op, e.Err)
	}
	return "oauth " + e.Op + " failed"
}

func (e *OAuthError) Unwrap() error {
	return e.Err
}
