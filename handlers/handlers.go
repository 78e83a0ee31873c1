// Package handlers is the HTTP boundary. Handlers translate between the wire
// (forms, headers, cookies, JSON) and the auth core, and map taxonomy errors
// to responses; no protocol or crypto logic lives here.
package handlers

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/AOSC-Dev/pakreq-web/internal/apperr"
	"github.com/AOSC-Dev/pakreq-web/internal/config"
	"github.com/AOSC-Dev/pakreq-web/internal/db"
	"github.com/AOSC-Dev/pakreq-web/internal/models"
	"github.com/AOSC-Dev/pakreq-web/internal/oauth"
	"github.com/AOSC-Dev/pakreq-web/internal/password"
	"github.com/AOSC-Dev/pakreq-web/internal/sessions"
	"github.com/AOSC-Dev/pakreq-web/internal/tokens"
	"github.com/AOSC-Dev/pakreq-web/internal/workers"
	"github.com/AOSC-Dev/pakreq-web/pkg/middleware"
)

// Store is the credential/request store surface the handlers need. *db.Store
// satisfies it; tests use fakes.
type Store interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListOauthLinks(ctx context.Context, username string) ([]models.OauthLink, error)
	UpsertOauthLink(ctx context.Context, link models.OauthLink) error
	DeleteOauthLink(ctx context.Context, userID int64, provider string) error
	UpdatePasswordHash(ctx context.Context, username, hash string) error
	GetOpenRequests(ctx context.Context) ([]models.Request, error)
	GetRequestDetail(ctx context.Context, id int64) (*models.RequestDetail, error)
	CloseRequest(ctx context.Context, id int64, reject bool) error
	Ping(ctx context.Context) error
}

// Handler holds dependencies
type Handler struct {
	cfg      *config.Config
	store    Store
	engine   *password.Engine
	sessions *sessions.Manager
	issuer   *tokens.Issuer
	flow     *oauth.Flow
	pool     *workers.Pool
}

func New(cfg *config.Config, store Store, engine *password.Engine,
	sm *sessions.Manager, issuer *tokens.Issuer, flow *oauth.Flow, pool *workers.Pool) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    store,
		engine:   engine,
		sessions: sm,
		issuer:   issuer,
		flow:     flow,
		pool:     pool,
	}
}

// Register mounts all routes. loginLimiter, when non-nil, guards the REST
// login entry point.
func (h *Handler) Register(r *gin.Engine, loginLimiter gin.HandlerFunc) {
	r.GET("/", h.Index)
	r.HEAD("/", h.Ping)
	r.GET("/detail/:id", h.Detail)

	r.GET("/login", h.LoginPage)
	r.POST("/login", h.LoginForm)
	r.GET("/logout", h.Logout)
	r.GET("/account", h.AccountPage)
	r.POST("/account", h.AccountForm)

	r.GET("/oauth/:provider/new", h.OauthNew)
	r.GET("/oauth/:provider", h.OauthCallback)
	r.POST("/oauth/:provider/delete", h.OauthUnlink)

	api := r.Group("/api")
	if loginLimiter != nil {
		api.GET("/login", loginLimiter, h.APILogin)
	} else {
		api.GET("/login", h.APILogin)
	}
	api.GET("/requests", h.APIRequests)
	api.GET("/request/:id", h.APIRequestDetail)
	api.POST("/request/:id/close", middleware.BearerAuth(h.issuer), h.APICloseRequest)

	r.NoRoute(h.NotFound)
}

// session decodes the sealed identity cookie; any failure yields the
// anonymous session.
func (h *Handler) session(c *gin.Context) sessions.Session {
	raw, err := c.Cookie(sessions.CookieName)
	if err != nil {
		return sessions.Session{}
	}
	return h.sessions.Decode(raw)
}

// saveSession re-seals the session into the cookie.
func (h *Handler) saveSession(c *gin.Context, s sessions.Session) error {
	sealed, err := h.sessions.Encode(s)
	if err != nil {
		return apperr.New(apperr.Internal, err)
	}
	c.SetCookie(sessions.CookieName, sealed, int(h.sessions.TTL().Seconds()), "/", "", false, true)
	return nil
}

func (h *Handler) clearSession(c *gin.Context) {
	c.SetCookie(sessions.CookieName, "", -1, "/", "", false, true)
}

// checkPassword verifies the plaintext against the stored hash, failing
// closed: unknown usernames, password-less accounts and malformed stored
// hashes all come back as not verified, never as a distinguishable error.
// The Argon2 work runs on the bounded worker pool.
func (h *Handler) checkPassword(ctx context.Context, username, plaintext string) (bool, error) {
	user, err := h.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return false, nil
		}
		return false, apperr.New(apperr.Internal, err)
	}
	if user.PasswordHash == nil {
		return false, nil
	}
	return h.pool.RunBool(ctx, func() (bool, error) {
		ok, err := h.engine.Verify(user.ID, plaintext, *user.PasswordHash)
		if err != nil {
			return false, nil
		}
		return ok, nil
	})
}

// hashPassword computes a fresh hash for the user's new password on the
// worker pool.
func (h *Handler) hashPassword(ctx context.Context, username, plaintext string) (string, error) {
	user, err := h.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return "", apperr.New(apperr.BadRequest, err)
		}
		return "", apperr.New(apperr.Internal, err)
	}
	return h.pool.RunString(ctx, func() (string, error) {
		return h.engine.Hash(user.ID, plaintext)
	})
}
