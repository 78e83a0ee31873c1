// Package tokens issues and validates the signed bearer tokens used by the
// REST API. Tokens are self-contained: no server-side state, no revocation;
// an issued token stays valid until its natural expiry.
package tokens

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AOSC-Dev/pakreq-web/internal/apperr"
)

// ErrUnauthorized is the single validation failure surfaced to callers.
// Expired, not-yet-valid and bad-signature tokens are deliberately
// indistinguishable.
var ErrUnauthorized = apperr.New(apperr.Unauthorized, errors.New("invalid bearer token"))

// Issuer signs and validates bearer tokens with a server-held symmetric
// secret. The clock is injectable for expiry tests.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer constructs an Issuer with the given signing secret and token
// lifetime (24h in production).
func NewIssuer(secret string, ttl time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// WithClock overrides the time source; test use only.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// Issue signs a token for the verified username: {sub, iat, nbf, exp=iat+ttl}.
func (i *Issuer) Issue(username string) (string, error) {
	now := i.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Validate verifies signature and validity window and returns the subject.
// Every failure mode maps to ErrUnauthorized.
func (i *Issuer) Validate(raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return i.now() }),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid || claims.Subject == "" {
		return "", ErrUnauthorized
	}
	return claims.Subject, nil
}
