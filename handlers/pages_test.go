package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AOSC-Dev/pakreq-web/internal/models"
)

func TestIndexListsOpenRequests(t *testing.T) {
	store := newFakeStore()
	store.requests = []models.Request{
		{ID: 1, Status: models.StatusOpen, Type: "PAKREQ", Name: "neovim", PubDate: time.Now()},
		{ID: 2, Status: models.StatusOpen, Type: "UPDREQ", Name: "htop", PubDate: time.Now()},
	}
	env := newTestEnv(t, store, nil)

	w := env.do(getRequest("/"))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "2 pending requests in total")
	assert.Contains(t, body, "neovim")
	assert.Contains(t, body, "htop")
}

func TestPing(t *testing.T) {
	store := newFakeStore()
	env := newTestEnv(t, store, nil)

	req := httptest.NewRequest(http.MethodHead, "/", nil)
	assert.Equal(t, http.StatusNoContent, env.do(req).Code)

	store.failPing = true
	req = httptest.NewRequest(http.MethodHead, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, env.do(req).Code)
}

func TestDetailPage(t *testing.T) {
	store := newFakeStore()
	requester := "alice"
	store.details[7] = &models.RequestDetail{
		ID:        7,
		Status:    models.StatusOpen,
		Type:      "PAKREQ",
		Name:      "neovim",
		PubDate:   time.Now(),
		Requester: &requester,
	}
	env := newTestEnv(t, store, nil)

	w := env.do(getRequest("/detail/7"))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "neovim")
	assert.Contains(t, body, "alice")
	// missing packager renders as a dash, not an empty cell
	assert.Contains(t, body, "&mdash;")
}

func TestDetailPageNotFound(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)

	for _, path := range []string{"/detail/99", "/detail/abc"} {
		w := env.do(getRequest(path))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	env := newTestEnv(t, newFakeStore(), nil)

	w := env.do(getRequest("/no/such/page"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
