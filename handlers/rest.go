package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AOSC-Dev/pakreq-web/internal/db"
	"github.com/AOSC-Dev/pakreq-web/pkg/logger"
	"github.com/AOSC-Dev/pakreq-web/pkg/metrics"
	"github.com/AOSC-Dev/pakreq-web/pkg/middleware"
)

// Fixed REST error bodies; every failure kind maps to exactly one of these.
var (
	badRequestBody    = gin.H{"success": false, "message": "Bad Request"}
	internalErrBody   = gin.H{"success": false, "message": "Internal error"}
	notAuthorizedBody = gin.H{"success": false, "message": "Not authorized"}
)

// APIRequests lists open package requests as JSON.
func (h *Handler) APIRequests(c *gin.Context) {
	requests, err := h.store.GetOpenRequests(c.Request.Context())
	if err != nil {
		logger.Errorf("api requests: %v", err)
		c.JSON(http.StatusInternalServerError, internalErrBody)
		return
	}
	c.JSON(http.StatusOK, requests)
}

// APIRequestDetail returns one request with resolved usernames.
func (h *Handler) APIRequestDetail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, badRequestBody)
		return
	}
	detail, err := h.store.GetRequestDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusBadRequest, badRequestBody)
			return
		}
		logger.Errorf("api request detail: %v", err)
		c.JSON(http.StatusInternalServerError, internalErrBody)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// APILogin is the stateless REST login: credentials travel in two custom
// headers, success yields a signed bearer token. The cookie session is
// never consulted or set here.
func (h *Handler) APILogin(c *gin.Context) {
	username := c.GetHeader("x-username")
	pwd := c.GetHeader("x-password")
	if username == "" || pwd == "" {
		c.JSON(http.StatusUnauthorized, notAuthorizedBody)
		return
	}

	ok, err := h.checkPassword(c.Request.Context(), username, pwd)
	if err != nil {
		logger.Errorf("api login: password check for %q: %v", username, err)
		metrics.Logins.WithLabelValues("api", "failure").Inc()
		c.JSON(http.StatusInternalServerError, internalErrBody)
		return
	}
	if !ok {
		metrics.Logins.WithLabelValues("api", "failure").Inc()
		c.JSON(http.StatusUnauthorized, notAuthorizedBody)
		return
	}

	// Signing is cheap but runs on the pool anyway; one threading model for
	// all crypto work.
	token, err := h.pool.RunString(c.Request.Context(), func() (string, error) {
		return h.issuer.Issue(username)
	})
	if err != nil {
		logger.Errorf("api login: issue token for %q: %v", username, err)
		c.JSON(http.StatusBadRequest, badRequestBody)
		return
	}
	metrics.Logins.WithLabelValues("api", "success").Inc()
	metrics.TokensIssued.Inc()
	c.JSON(http.StatusOK, gin.H{"success": true, "token": token})
}

// APICloseRequest marks a request DONE (or REJECTED with ?reject=true).
// Requires a valid bearer token belonging to an administrator.
func (h *Handler) APICloseRequest(c *gin.Context) {
	username := c.GetString(middleware.UsernameKey)
	user, err := h.store.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, notAuthorizedBody)
			return
		}
		logger.Errorf("api close: lookup %q: %v", username, err)
		c.JSON(http.StatusInternalServerError, internalErrBody)
		return
	}
	if !user.Admin {
		c.JSON(http.StatusUnauthorized, notAuthorizedBody)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, badRequestBody)
		return
	}
	reject := c.Query("reject") == "true" || c.Query("reject") == "1"
	if err := h.store.CloseRequest(c.Request.Context(), id, reject); err != nil {
		logger.Errorf("api close: request %d: %v", id, err)
		c.JSON(http.StatusInternalServerError, internalErrBody)
		return
	}
	logger.Infof("request %d closed by %s (reject=%t)", id, username, reject)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
