package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var errBadCookie = errors.New("session: cookie failed verification")

// codec serializes session state into a tamper-evident cookie value:
// JSON payload, optionally AES-GCM encrypted, base64url encoded, then
// HMAC-SHA256 signed. The signing key is derived from the configured
// session secret so any secret length works.
type codec struct {
	signKey []byte
	aead    cipher.AEAD
	maxAge  time.Duration
}

type envelope struct {
	State     State `json:"s"`
	ExpiresAt int64 `json:"exp"`
}

func newCodec(secret string, encrypt bool, maxAge time.Duration) (*codec, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("session: secret is required")
	}

	signKey := sha256.Sum256([]byte("sign:" + secret))
	c := &codec{signKey: signKey[:], maxAge: maxAge}

	if encrypt {
		encKey := sha256.Sum256([]byte("encrypt:" + secret))
		block, err := aes.NewCipher(encKey[:])
		if err != nil {
			return nil, fmt.Errorf("session: init cipher: %w", err)
		}
		c.aead, err = cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("session: init gcm: %w", err)
		}
	}
	return c, nil
}

func (c *codec) encode(s *State) (string, error) {
	env := envelope{State: *s}
	if c.maxAge > 0 {
		env.ExpiresAt = time.Now().Add(c.maxAge).Unix()
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("session: marshal: %w", err)
	}

	if c.aead != nil {
		nonce := make([]byte, c.aead.NonceSize())
		if _, err := rand.Read(nonce); err != nil {
			return "", err
		}
		raw = c.aead.Seal(nonce, nonce, raw, nil)
	}

	payload := base64.RawURLEncoding.EncodeToString(raw)
	return payload + "." + c.sign(payload), nil
}

func (c *codec) decode(value string) (*State, error) {
	payload, sig, ok := strings.Cut(value, ".")
	if !ok {
		return nil, errBadCookie
	}
	if !hmac.Equal([]byte(c.sign(payload)), []byte(sig)) {
		return nil, errBadCookie
	}

	raw, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, errBadCookie
	}

	if c.aead != nil {
		ns := c.aead.NonceSize()
		if len(raw) < ns {
			return nil, errBadCookie
		}
		raw, err = c.aead.Open(nil, raw[:ns], raw[ns:], nil)
		if err != nil {
			return nil, errBadCookie
		}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, errBadCookie
	}
	if env.ExpiresAt > 0 && time.Now().Unix() > env.ExpiresAt {
		return nil, errBadCookie
	}

	state := env.State
	return &state, nil
}

func (c *codec) sign(payload string) string {
	mac := hmac.New(sha256.New, c.signKey)
	mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
