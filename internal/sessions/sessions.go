// Package sessions manages the browser session identity.
//
// A session is entirely client-held: a sealed cookie carrying the
// authenticated username plus a transient CSRF slot per identity provider,
// used only while an OAuth linking handshake is in flight. Nothing is stored
// server-side; trust lasts until the seal expires, is cleared, or fails to
// verify.
package sessions

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie the sealed session travels in.
const CookieName = "identity"

// Session is the decoded session state. The zero value is the anonymous
// session.
type Session struct {
	Username string
	CSRF     map[string]string
}

// Authenticated reports whether the session carries a logged-in user.
func (s Session) Authenticated() bool { return s.Username != "" }

// SetCSRF records the in-flight CSRF token for a provider, replacing any
// previous handshake for that provider.
func (s *Session) SetCSRF(provider, token string) {
	if s.CSRF == nil {
		s.CSRF = map[string]string{}
	}
	s.CSRF[provider] = token
}

// TakeCSRF returns and removes the stored CSRF token for a provider; a
// handshake token is single-use.
func (s *Session) TakeCSRF(provider string) (string, bool) {
	token, ok := s.CSRF[provider]
	if ok {
		delete(s.CSRF, provider)
	}
	return token, ok
}

type sessionClaims struct {
	CSRF map[string]string `json:"csrf,omitempty"`
	jwt.RegisteredClaims
}

// Manager seals and unseals sessions with an HMAC secret held by the server.
// The secret and lifetime are injected at startup; nothing here reads
// process-global state.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Encode seals the session into a compact token suitable for a cookie value.
func (m *Manager) Encode(s Session) (string, error) {
	now := m.now().UTC()
	claims := sessionClaims{
		CSRF: s.CSRF,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   s.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

// Decode unseals a cookie value. Tampered, expired, or otherwise unreadable
// tokens all come back as the anonymous session; decoding never errors
// toward the caller.
func (m *Manager) Decode(raw string) Session {
	if raw == "" {
		return Session{}
	}
	claims := &sessionClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return m.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return m.now() }),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return Session{}
	}
	return Session{Username: claims.Subject, CSRF: claims.CSRF}
}

// TTL returns the session lifetime, used for the cookie max-age.
func (m *Manager) TTL() time.Duration { return m.ttl }
