package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AOSC-Dev/pakreq-web/internal/db"
	"github.com/AOSC-Dev/pakreq-web/internal/models"
	"github.com/AOSC-Dev/pakreq-web/pkg/logger"
)

type indexPage struct {
	BaseURL        string
	BannerSubtitle string
	Requests       []models.Request
}

type detailPage struct {
	BaseURL string
	Title   string
	Request *models.RequestDetail
}

// Index lists all open package requests.
func (h *Handler) Index(c *gin.Context) {
	requests, err := h.store.GetOpenRequests(c.Request.Context())
	if err != nil {
		logger.Errorf("index: %v", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	renderHTML(c, http.StatusOK, "index.html.tmpl", indexPage{
		BaseURL:        h.cfg.Server.BaseURL,
		BannerSubtitle: fmt.Sprintf("%d pending requests in total", len(requests)),
		Requests:       requests,
	})
}

// Ping answers HEAD / with 204 while the store is reachable.
func (h *Handler) Ping(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

// Detail renders a single request.
func (h *Handler) Detail(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		h.NotFound(c)
		return
	}
	detail, err := h.store.GetRequestDetail(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.NotFound(c)
			return
		}
		logger.Errorf("detail %d: %v", id, err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}
	renderHTML(c, http.StatusOK, "detail.html.tmpl", detailPage{
		BaseURL: h.cfg.Server.BaseURL,
		Title:   fmt.Sprintf("%s - AOSC OS Package Requests", detail.Name),
		Request: detail,
	})
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(c *gin.Context) {
	renderHTML(c, http.StatusNotFound, "notfound.html.tmpl", nil)
}
