// Package oauth drives the CSRF-bound authorization-code flow that links an
// external identity to an existing local account, and validates the identity
// tokens the provider returns.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/AOSC-Dev/pakreq-web/internal/apperr"
	"github.com/AOSC-Dev/pakreq-web/internal/config"
)

// Flow is the three-phase controller for one provider: build the
// authorization redirect, exchange the callback code, validate the returned
// identity token down to a stable external subject.
type Flow struct {
	provider  string
	conf      *oauth2.Config
	validator *Validator
	client    *http.Client
	timeout   time.Duration
}

// NewFlow wires a provider configuration to its token validator. All
// endpoints and credentials come from injected configuration.
func NewFlow(cfg config.OAuthConfig, validator *Validator) *Flow {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Flow{
		provider: cfg.Provider,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"profile", "openid"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		validator: validator,
		client:    &http.Client{Timeout: timeout},
		timeout:   timeout,
	}
}

// Provider returns the provider tag stored with link rows.
func (f *Flow) Provider() string { return f.provider }

// Begin produces the provider authorization URL and the random CSRF state
// bound to this handshake. The caller stores the state in the session before
// redirecting.
func (f *Flow) Begin() (authURL, state string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", apperr.New(apperr.Internal, err)
	}
	state = hex.EncodeToString(b)
	return f.conf.AuthCodeURL(state), state, nil
}

// Exchange trades the callback code for a token at the provider and validates
// the identity token it carries, returning the external subject. Provider
// rejections and timeouts both surface as unauthorized: they signal a
// provider-side trust failure, not a server bug.
func (f *Flow) Exchange(ctx context.Context, code string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)

	token, err := f.conf.Exchange(ctx, code)
	if err != nil {
		return "", apperr.New(apperr.Unauthorized, fmt.Errorf("code exchange failed: %w", err))
	}
	// The provider issues its identity assertion as the access token itself.
	return f.validator.Validate(ctx, token.AccessToken)
}
