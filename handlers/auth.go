package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AOSC-Dev/pakreq-web/internal/sessions"
	"github.com/AOSC-Dev/pakreq-web/pkg/logger"
	"github.com/AOSC-Dev/pakreq-web/pkg/metrics"
)

type loginForm struct {
	User string `form:"user" binding:"required"`
	Pwd  string `form:"pwd" binding:"required"`
}

type accountForm struct {
	CurrentPassword string `form:"cpwd" binding:"required"`
	NewPassword     string `form:"npwd" binding:"required"`
	RepeatPassword  string `form:"cnpwd" binding:"required"`
}

type loginPage struct {
	BaseURL string
	Msg     string
}

type accountPage struct {
	BaseURL        string
	BannerSubtitle string
	Msg            string
	Provider       string
	Links          interface{}
}

// LoginPage renders the login form, or sends authenticated sessions straight
// to the account panel.
func (h *Handler) LoginPage(c *gin.Context) {
	if h.session(c).Authenticated() {
		c.Redirect(http.StatusFound, "/account")
		return
	}
	renderHTML(c, http.StatusOK, "login.html.tmpl", loginPage{BaseURL: h.cfg.Server.BaseURL})
}

// LoginForm verifies the posted credentials and establishes the session.
// Every failure, including store faults, re-renders with the same generic
// message.
func (h *Handler) LoginForm(c *gin.Context) {
	var form loginForm
	fail := func() {
		metrics.Logins.WithLabelValues("web", "failure").Inc()
		renderHTML(c, http.StatusUnauthorized, "login.html.tmpl",
			loginPage{BaseURL: h.cfg.Server.BaseURL, Msg: "Invalid credentials"})
	}
	if err := c.ShouldBind(&form); err != nil {
		fail()
		return
	}

	ok, err := h.checkPassword(c.Request.Context(), form.User, form.Pwd)
	if err != nil {
		logger.Errorf("login: password check for %q: %v", form.User, err)
		fail()
		return
	}
	if !ok {
		fail()
		return
	}

	if err := h.saveSession(c, sessions.Session{Username: form.User}); err != nil {
		logger.Errorf("login: seal session: %v", err)
		fail()
		return
	}
	metrics.Logins.WithLabelValues("web", "success").Inc()
	c.Redirect(http.StatusFound, "/account")
}

// Logout clears the session unconditionally; already-anonymous sessions pass
// through unchanged.
func (h *Handler) Logout(c *gin.Context) {
	h.clearSession(c)
	c.Redirect(http.StatusFound, "/")
}

// AccountPage renders the account panel with the user's linked providers.
func (h *Handler) AccountPage(c *gin.Context) {
	sess := h.session(c)
	if !sess.Authenticated() {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	h.renderAccount(c, http.StatusOK, sess.Username, "Settings for "+sess.Username, "")
}

// AccountForm changes the account password.
func (h *Handler) AccountForm(c *gin.Context) {
	sess := h.session(c)
	if !sess.Authenticated() {
		c.Redirect(http.StatusFound, "/login")
		return
	}
	subtitle := "Settings for " + sess.Username

	var form accountForm
	if err := c.ShouldBind(&form); err != nil {
		h.renderAccount(c, http.StatusOK, sess.Username, subtitle, "All password fields are required!")
		return
	}
	if form.NewPassword != form.RepeatPassword {
		h.renderAccount(c, http.StatusOK, sess.Username, subtitle, "New password and Confirm new password mismatch!")
		return
	}

	ok, err := h.checkPassword(c.Request.Context(), sess.Username, form.CurrentPassword)
	if err != nil {
		logger.Errorf("account: password check for %q: %v", sess.Username, err)
		h.renderAccount(c, http.StatusUnauthorized, sess.Username, subtitle, "Current password is incorrect!")
		return
	}
	if !ok {
		h.renderAccount(c, http.StatusUnauthorized, sess.Username, subtitle, "Current password is incorrect!")
		return
	}

	hash, err := h.hashPassword(c.Request.Context(), sess.Username, form.NewPassword)
	if err != nil {
		logger.Errorf("account: hash new password for %q: %v", sess.Username, err)
		h.renderAccount(c, http.StatusInternalServerError, sess.Username, subtitle, "Internal error, please try again later.")
		return
	}
	if err := h.store.UpdatePasswordHash(c.Request.Context(), sess.Username, hash); err != nil {
		logger.Errorf("account: persist new hash for %q: %v", sess.Username, err)
		h.renderAccount(c, http.StatusInternalServerError, sess.Username, subtitle, "Internal error, please try again later.")
		return
	}
	h.renderAccount(c, http.StatusOK, sess.Username, "Settings", "Password changed successfully")
}

func (h *Handler) renderAccount(c *gin.Context, status int, username, subtitle, msg string) {
	links, err := h.store.ListOauthLinks(c.Request.Context(), username)
	if err != nil {
		logger.Errorf("account: list oauth links for %q: %v", username, err)
	}
	renderHTML(c, status, "account.html.tmpl", accountPage{
		BaseURL:        h.cfg.Server.BaseURL,
		BannerSubtitle: subtitle,
		Msg:            msg,
		Provider:       h.flow.Provider(),
		Links:          links,
	})
}
