package handlers

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AOSC-Dev/pakreq-web/pkg/logger"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.tmpl"))

// renderHTML writes a page; rendering failures degrade to a plain 500 body.
func renderHTML(c *gin.Context, status int, name string, data interface{}) {
	c.Status(status)
	c.Header("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplates.ExecuteTemplate(c.Writer, name, data); err != nil {
		logger.Errorf("render %s: %v", name, err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
	}
}
