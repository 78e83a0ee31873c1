package handlers

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AOSC-Dev/pakreq-web/internal/models"
	"github.com/AOSC-Dev/pakreq-web/internal/sessions"
)

func TestLoginPageAnonymous(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)

	w := env.do(getRequest("/login"))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="user"`)
}

func TestLoginPageAuthenticatedRedirects(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	cookie := env.sessionCookie(t, sessions.Session{Username: "alice"})

	w := env.do(getRequest("/login", cookie))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/account", w.Header().Get("Location"))
}

func TestLoginFormSuccess(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	env.addUser(t, 1, "alice", "hunter2", false)

	w := env.do(formRequest("/login", url.Values{"user": {"alice"}, "pwd": {"hunter2"}}))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/account", w.Header().Get("Location"))

	sess, ok := responseSession(t, env, w)
	require.True(t, ok)
	assert.Equal(t, "alice", sess.Username)
}

func TestLoginFormWrongPassword(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	env.addUser(t, 1, "alice", "hunter2", false)

	w := env.do(formRequest("/login", url.Values{"user": {"alice"}, "pwd": {"wrong"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")

	_, ok := responseSession(t, env, w)
	assert.False(t, ok)
}

func TestLoginFormUnknownUser(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)

	w := env.do(formRequest("/login", url.Values{"user": {"nobody"}, "pwd": {"pw"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}

func TestLoginFormPasswordlessAccount(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	env.addUser(t, 1, "alice", "", false)

	w := env.do(formRequest("/login", url.Values{"user": {"alice"}, "pwd": {"anything"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}

func TestLoginFormStoreFailureLooksLikeBadCredentials(t *testing.T) {
	store := newFakeStore()
	store.failUsers = true
	env := newTestEnv(t, store, nil)

	w := env.do(formRequest("/login", url.Values{"user": {"alice"}, "pwd": {"pw"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Invalid credentials")
}

func TestLoginFormMissingFields(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)

	w := env.do(formRequest("/login", url.Values{"user": {"alice"}}))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutClearsSession(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	cookie := env.sessionCookie(t, sessions.Session{Username: "alice"})

	w := env.do(getRequest("/logout", cookie))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	for _, c := range w.Result().Cookies() {
		if c.Name == sessions.CookieName {
			assert.Empty(t, c.Value)
			assert.Negative(t, c.MaxAge)
		}
	}
}

func TestAccountPageRequiresSession(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)

	w := env.do(getRequest("/account"))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestAccountPageShowsLinks(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	env.addUser(t, 1, "alice", "hunter2", false)
	subject := "bob"
	env.store.links = append(env.store.links,
		models.OauthLink{UserID: 1, Provider: "AOSC", Subject: &subject})

	cookie := env.sessionCookie(t, sessions.Session{Username: "alice"})
	w := env.do(getRequest("/account", cookie))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Settings for alice")
	assert.Contains(t, body, "AOSC")
}

func TestAccountFormChangesPassword(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	env.addUser(t, 1, "alice", "old-password", false)
	cookie := env.sessionCookie(t, sessions.Session{Username: "alice"})

	w := env.do(formRequest("/account", url.Values{
		"cpwd":  {"old-password"},
		"npwd":  {"new-password"},
		"cnpwd": {"new-password"},
	}, cookie))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Password changed successfully")

	hash, ok := env.store.updatedHashes["alice"]
	require.True(t, ok)
	verified, err := env.engine.Verify(1, "new-password", hash)
	require.NoError(t, err)
	assert.True(t, verified)
}

func TestAccountFormMismatchedConfirmation(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	env.addUser(t, 1, "alice", "old-password", false)
	cookie := env.sessionCookie(t, sessions.Session{Username: "alice"})

	w := env.do(formRequest("/account", url.Values{
		"cpwd":  {"old-password"},
		"npwd":  {"new-password"},
		"cnpwd": {"different"},
	}, cookie))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "New password and Confirm new password mismatch!")
	assert.Empty(t, env.store.updatedHashes)
}

func TestAccountFormWrongCurrentPassword(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	env.addUser(t, 1, "alice", "old-password", false)
	cookie := env.sessionCookie(t, sessions.Session{Username: "alice"})

	w := env.do(formRequest("/account", url.Values{
		"cpwd":  {"wrong"},
		"npwd":  {"new-password"},
		"cnpwd": {"new-password"},
	}, cookie))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Current password is incorrect!")
	assert.Empty(t, env.store.updatedHashes)
}

func TestAccountFormRequiresSession(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)

	w := env.do(formRequest("/account", url.Values{
		"cpwd":  {"a"},
		"npwd":  {"b"},
		"cnpwd": {"b"},
	}))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}

func TestTamperedCookieIsAnonymous(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)
	cookie := env.sessionCookie(t, sessions.Session{Username: "alice"})
	cookie.Value = cookie.Value[:len(cookie.Value)-2] + "xx"

	w := env.do(getRequest("/account", cookie))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
}
