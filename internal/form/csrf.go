// internal/form/csrf.go
//
// Intake – Forms subsystem: stateless CSRF tokens.
//
// Context
//   Every rendered form embeds a hidden `csrf_token`, and every POST that
//   mutates a session must echo it back.  Tokens are stateless and bound to
//   the form session that requested them:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(key, session|nonce|unixMicro) )
//
//   •  nonce – 16 random bytes.
//   •  unixMicro – issue time, 8 bytes, big-endian.
//   •  HMAC – keyed with the configured secret, so a token minted for one
//      session never verifies for another.
//
//   Verification checks the signature in constant time and rejects tokens
//   older than MaxAge or issued more than a minute in the future.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"
)

const (
	nonceBytes = 16
	tokenBytes = nonceBytes + 8 + sha256.Size

	// DefaultTokenMaxAge bounds how long a rendered form stays postable.
	DefaultTokenMaxAge = 2 * time.Hour
)

// Tokens issues and verifies CSRF tokens.  Safe for concurrent use.
type Tokens struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewTokens returns a token service.  key must hold at least 32 bytes; when
// it is empty a random key is generated, which invalidates outstanding forms
// on restart.
func NewTokens(key []byte, maxAge time.Duration) (*Tokens, error) {
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
	}
	if len(key) < 32 {
		return nil, errors.New("csrf key must be at least 32 bytes")
	}
	if maxAge <= 0 {
		maxAge = DefaultTokenMaxAge
	}
	return &Tokens{key: key, maxAge: maxAge, now: time.Now}, nil
}

// Generate mints a token bound to sessionID.
func (t *Tokens) Generate(sessionID string) (string, error) {
	nonce := make([]byte, nonceBytes)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(t.now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, t.sign(sessionID, nonce, ts)...)
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Verify reports whether tok was minted for sessionID and is still fresh.
func (t *Tokens) Verify(sessionID, tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}
	nonce := raw[:nonceBytes]
	ts := raw[nonceBytes : nonceBytes+8]
	sig := raw[nonceBytes+8:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(ts)))
	now := t.now()
	if now.Sub(issued) > t.maxAge || issued.Sub(now) > time.Minute {
		return false
	}
	return hmac.Equal(sig, t.sign(sessionID, nonce, ts))
}

func (t *Tokens) sign(sessionID string, nonce, ts []byte) []byte {
	mac := hmac.New(sha256.New, t.key)
	mac.Write([]byte(sessionID))
	mac.Write(nonce)
	mac.Write(ts)
	return mac.Sum(nil)
}
