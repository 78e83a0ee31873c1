package oauth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/AOSC-Dev/pakreq-web/internal/apperr"
	"github.com/AOSC-Dev/pakreq-web/pkg/logger"
)

// Provider key-set document: RSA public key components keyed by kid.
type jwkEntry struct {
	Kid string `json:"kid"`
	N   string `json:"n"`
	E   string `json:"e"`
}

type jwkSet struct {
	Keys []jwkEntry `json:"keys"`
}

// Validator checks identity tokens returned by the provider against its
// published key set and extracts the packed external subject.
//
// The signature algorithm is pinned to RS256; the token's own header is never
// trusted to pick one. A kid absent from the key set fails before any
// signature work.
type Validator struct {
	jwkURL string
	client *http.Client
	cache  KeyCache
}

func NewValidator(jwkURL string, client *http.Client, cache KeyCache) *Validator {
	if client == nil {
		client = http.DefaultClient
	}
	if cache == nil {
		cache = NopKeyCache{}
	}
	return &Validator{jwkURL: jwkURL, client: client, cache: cache}
}

// Validate verifies raw and returns the decoded external subject.
func (v *Validator) Validate(ctx context.Context, raw string) (string, error) {
	kid, err := headerKid(raw)
	if err != nil {
		return "", err
	}

	key, err := v.lookupKey(ctx, kid)
	if err != nil {
		return "", err
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (interface{}, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
	)
	if err != nil || !token.Valid {
		return "", apperr.New(apperr.Unauthorized, fmt.Errorf("token verification failed: %w", err))
	}
	if claims.Subject == "" {
		return "", apperr.New(apperr.BadRequest, errors.New("token has no subject claim"))
	}
	logger.Debugf("identity token verified (kid=%s)", kid)

	return DecodeSubject(claims.Subject)
}

// headerKid reads the signing key id from the unverified token header.
func headerKid(raw string) (string, error) {
	parser := jwt.NewParser()
	token, _, err := parser.ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return "", apperr.New(apperr.BadRequest, err)
	}
	kid, ok := token.Header["kid"].(string)
	if !ok || kid == "" {
		return "", apperr.New(apperr.BadRequest, errors.New("kid is missing from header"))
	}
	return kid, nil
}

// lookupKey resolves kid against the provider key set, refetching once past
// the cache when the kid is unknown (key rotation may not be reflected yet).
func (v *Validator) lookupKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	doc, cached := v.cache.Get(ctx, v.jwkURL)
	if !cached {
		var err error
		if doc, err = v.fetchKeys(ctx); err != nil {
			return nil, err
		}
	}

	key, found, err := findKey(doc, kid)
	if err != nil {
		return nil, err
	}
	if !found && cached {
		v.cache.Invalidate(ctx, v.jwkURL)
		if doc, err = v.fetchKeys(ctx); err != nil {
			return nil, err
		}
		key, found, err = findKey(doc, kid)
		if err != nil {
			return nil, err
		}
	}
	if !found {
		return nil, apperr.New(apperr.Unauthorized, fmt.Errorf("no key matches kid %q", kid))
	}
	return key, nil
}

func (v *Validator) fetchKeys(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.jwkURL, nil)
	if err != nil {
		return nil, apperr.New(apperr.Internal, err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, fmt.Errorf("key-set fetch failed: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, apperr.New(apperr.Unauthorized, fmt.Errorf("key-set endpoint returned %d", resp.StatusCode))
	}
	doc, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperr.New(apperr.Unauthorized, fmt.Errorf("key-set read failed: %w", err))
	}
	v.cache.Set(ctx, v.jwkURL, doc)
	return doc, nil
}

func findKey(doc []byte, kid string) (*rsa.PublicKey, bool, error) {
	var set jwkSet
	if err := json.Unmarshal(doc, &set); err != nil {
		return nil, false, apperr.New(apperr.Unauthorized, fmt.Errorf("malformed key set: %w", err))
	}
	for _, k := range set.Keys {
		if k.Kid == kid {
			key, err := rsaKey(k)
			if err != nil {
				return nil, false, apperr.New(apperr.Unauthorized, err)
			}
			return key, true, nil
		}
	}
	return nil, false, nil
}

// rsaKey rebuilds an RSA public key from base64url modulus and exponent.
func rsaKey(entry jwkEntry) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(entry.N)
	if err != nil {
		return nil, fmt.Errorf("bad modulus: %w", err)
	}
	eb, err := base64.RawURLEncoding.DecodeString(entry.E)
	if err != nil {
		return nil, fmt.Errorf("bad exponent: %w", err)
	}
	e := 0
	for _, b := range eb {
		e = e<<8 | int(b)
	}
	if e <= 1 {
		return nil, errors.New("bad exponent value")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}
