package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/AOSC-Dev/pakreq-web/internal/apperr"
	"github.com/AOSC-Dev/pakreq-web/internal/db"
	"github.com/AOSC-Dev/pakreq-web/internal/models"
	"github.com/AOSC-Dev/pakreq-web/pkg/logger"
	"github.com/AOSC-Dev/pakreq-web/pkg/metrics"
)

type oauthCallback struct {
	Code  string `form:"code" binding:"required"`
	State string `form:"state" binding:"required"`
}

// linkTag is the provider tag stored on link rows ("AOSC" for provider
// "aosc"), matching what the companion bot expects to find.
func linkTag(provider string) string { return strings.ToUpper(provider) }

// knownProvider rejects paths for providers this deployment is not
// configured for.
func (h *Handler) knownProvider(c *gin.Context) (string, bool) {
	provider := c.Param("provider")
	if provider != h.flow.Provider() {
		c.String(http.StatusBadRequest, "Bad Request")
		return "", false
	}
	return provider, true
}

// OauthNew starts the linking handshake: random CSRF state into the session,
// then redirect to the provider's authorization URL. Linking attaches an
// identity to an existing account, so an authenticated session is required.
func (h *Handler) OauthNew(c *gin.Context) {
	provider, ok := h.knownProvider(c)
	if !ok {
		return
	}
	sess := h.session(c)
	if !sess.Authenticated() {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	authURL, state, err := h.flow.Begin()
	if err != nil {
		logger.Errorf("oauth new: %v", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	sess.SetCSRF(provider, state)
	if err := h.saveSession(c, sess); err != nil {
		logger.Errorf("oauth new: seal session: %v", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	c.Redirect(http.StatusFound, authURL)
}

// OauthCallback completes the handshake: CSRF check against the session,
// code exchange at the provider, subject extraction, link upsert.
func (h *Handler) OauthCallback(c *gin.Context) {
	provider, ok := h.knownProvider(c)
	if !ok {
		return
	}
	sess := h.session(c)
	if !sess.Authenticated() {
		// No session, no exchange: the code is never presented upstream.
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	var query oauthCallback
	if err := c.ShouldBindQuery(&query); err != nil {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	csrf, ok := sess.TakeCSRF(provider)
	// The handshake token is single-use: reseal the session without it
	// before anything else can fail.
	if err := h.saveSession(c, sess); err != nil {
		logger.Errorf("oauth callback: seal session: %v", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if !ok || csrf != query.State {
		logger.Warnf("oauth callback: CSRF token mismatch for %q", sess.Username)
		metrics.OauthLinks.WithLabelValues(provider, "csrf_mismatch").Inc()
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	subject, err := h.flow.Exchange(c.Request.Context(), query.Code)
	if err != nil {
		logger.Warnf("oauth callback: exchange/validation failed for %q: %v", sess.Username, err)
		metrics.OauthLinks.WithLabelValues(provider, "failure").Inc()
		switch apperr.KindOf(err) {
		case apperr.BadRequest:
			c.String(http.StatusBadRequest, "Bad Request")
		default:
			c.String(http.StatusUnauthorized, "Not Authorized")
		}
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), sess.Username)
	if err != nil {
		logger.Errorf("oauth callback: lookup %q: %v", sess.Username, err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	link := models.OauthLink{UserID: user.ID, Provider: linkTag(provider), Subject: &subject}
	if err := h.store.UpsertOauthLink(c.Request.Context(), link); err != nil {
		logger.Errorf("oauth callback: persist link for %q: %v", sess.Username, err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	logger.Infof("oauth account linked: %s -> %s", sess.Username, linkTag(provider))
	metrics.OauthLinks.WithLabelValues(provider, "success").Inc()
	c.Redirect(http.StatusFound, "/account")
}

// OauthUnlink removes the user's link for the provider; removing a link that
// does not exist succeeds.
func (h *Handler) OauthUnlink(c *gin.Context) {
	provider, ok := h.knownProvider(c)
	if !ok {
		return
	}
	sess := h.session(c)
	if !sess.Authenticated() {
		c.String(http.StatusBadRequest, "Bad Request")
		return
	}

	user, err := h.store.GetUserByUsername(c.Request.Context(), sess.Username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.String(http.StatusBadRequest, "Bad Request")
			return
		}
		logger.Errorf("oauth unlink: lookup %q: %v", sess.Username, err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	if err := h.store.DeleteOauthLink(c.Request.Context(), user.ID, linkTag(provider)); err != nil {
		logger.Errorf("oauth unlink: delete link for %q: %v", sess.Username, err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	metrics.OauthLinks.WithLabelValues(provider, "unlink").Inc()
	c.Redirect(http.StatusFound, "/account")
}
