package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/AOSC-Dev/pakreq-web/internal/config"
	"github.com/AOSC-Dev/pakreq-web/internal/db"
	"github.com/AOSC-Dev/pakreq-web/internal/models"
	"github.com/AOSC-Dev/pakreq-web/internal/oauth"
	"github.com/AOSC-Dev/pakreq-web/internal/password"
	"github.com/AOSC-Dev/pakreq-web/internal/sessions"
	"github.com/AOSC-Dev/pakreq-web/internal/tokens"
	"github.com/AOSC-Dev/pakreq-web/internal/workers"
)

var errStore = errors.New("store unavailable")

type closeCall struct {
	ID     int64
	Reject bool
}

// fakeStore is an in-memory Store with per-method failure switches.
type fakeStore struct {
	users    map[string]*models.User
	links    []models.OauthLink
	requests []models.Request
	details  map[int64]*models.RequestDetail

	upserted      []models.OauthLink
	deletedLinks  []string
	updatedHashes map[string]string
	closed        []closeCall

	failUsers    bool
	failRequests bool
	failPing     bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]*models.User{},
		details:       map[int64]*models.RequestDetail{},
		updatedHashes: map[string]string{},
	}
}

func (s *fakeStore) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	if s.failUsers {
		return nil, errStore
	}
	u, ok := s.users[username]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *fakeStore) ListOauthLinks(_ context.Context, username string) ([]models.OauthLink, error) {
	u, ok := s.users[username]
	if !ok {
		return nil, nil
	}
	var out []models.OauthLink
	for _, l := range s.links {
		if l.UserID == u.ID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertOauthLink(_ context.Context, link models.OauthLink) error {
	s.upserted = append(s.upserted, link)
	for i, l := range s.links {
		if l.UserID == link.UserID && l.Provider == link.Provider {
			s.links[i] = link
			return nil
		}
	}
	s.links = append(s.links, link)
	return nil
}

func (s *fakeStore) DeleteOauthLink(_ context.Context, userID int64, provider string) error {
	s.deletedLinks = append(s.deletedLinks, provider)
	out := s.links[:0]
	for _, l := range s.links {
		if l.UserID != userID || l.Provider != provider {
			out = append(out, l)
		}
	}
	s.links = out
	return nil
}

func (s *fakeStore) UpdatePasswordHash(_ context.Context, username, hash string) error {
	s.updatedHashes[username] = hash
	if u, ok := s.users[username]; ok {
		u.PasswordHash = &hash
	}
	return nil
}

func (s *fakeStore) GetOpenRequests(_ context.Context) ([]models.Request, error) {
	if s.failRequests {
		return nil, errStore
	}
	return s.requests, nil
}

func (s *fakeStore) GetRequestDetail(_ context.Context, id int64) (*models.RequestDetail, error) {
	if s.failRequests {
		return nil, errStore
	}
	d, ok := s.details[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return d, nil
}

func (s *fakeStore) CloseRequest(_ context.Context, id int64, reject bool) error {
	s.closed = append(s.closed, closeCall{ID: id, Reject: reject})
	return nil
}

func (s *fakeStore) Ping(context.Context) error {
	if s.failPing {
		return errStore
	}
	return nil
}

// fastEngine keeps Argon2 cheap in tests; verification semantics are
// parameter-independent.
func fastEngine() *password.Engine {
	return &password.Engine{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

type testEnv struct {
	router   *gin.Engine
	store    *fakeStore
	engine   *password.Engine
	sessions *sessions.Manager
	issuer   *tokens.Issuer
}

// newTestEnv wires a Handler onto a fresh router. flow may be nil for tests
// that never reach the provider.
func newTestEnv(t *testing.T, store *fakeStore, flow *oauth.Flow) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.OAuth.Provider = "aosc"
	if flow == nil {
		flow = oauth.NewFlow(config.OAuthConfig{
			Provider: "aosc",
			AuthURL:  "https://idp.example/authorize",
			TokenURL: "https://idp.example/token",
		}, nil)
	}

	env := &testEnv{
		store:    store,
		engine:   fastEngine(),
		sessions: sessions.NewManager("session-secret", time.Hour),
		issuer:   tokens.NewIssuer("jwt-secret", time.Hour),
	}
	h := New(cfg, store, env.engine, env.sessions, env.issuer, flow, workers.NewPool(2))

	env.router = gin.New()
	h.Register(env.router, nil)
	return env
}

// addUser registers a user with the given password (empty for a
// password-less account).
func (e *testEnv) addUser(t *testing.T, id int64, username, pwd string, admin bool) {
	t.Helper()
	u := &models.User{ID: id, Username: username, Admin: admin}
	if pwd != "" {
		hash, err := e.engine.Hash(id, pwd)
		require.NoError(t, err)
		u.PasswordHash = &hash
	}
	e.store.users[username] = u
}

func (e *testEnv) sessionCookie(t *testing.T, s sessions.Session) *http.Cookie {
	t.Helper()
	sealed, err := e.sessions.Encode(s)
	require.NoError(t, err)
	return &http.Cookie{Name: sessions.CookieName, Value: sealed}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func formRequest(path string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func getRequest(path string, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// responseSession decodes the sealed session the response set, if any.
func responseSession(t *testing.T, e *testEnv, w *httptest.ResponseRecorder) (sessions.Session, bool) {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == sessions.CookieName {
			return e.sessions.Decode(c.Value), true
		}
	}
	return sessions.Session{}, false
}
