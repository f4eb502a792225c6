package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/trogers1052/adx-service/internal/models"
	"github.com/trogers1052/adx-service/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type indexPage struct {
	ErrorMessage string
}

type resultPage struct {
	Summary   models.ChartSummary
	ChartHTML string
}

// renderPage buffers the whole page before writing the status
func renderPage(w http.ResponseWriter, status int, name string, data any) {
	var buf bytes.Buffer
	if err := pageTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("Failed to render page", logger.String("template", name), logger.ErrorField(err))
		http.Error(w, fmt.Sprintf("failed to render %s", name), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func renderIndex(w http.ResponseWriter, message string) {
	renderPage(w, http.StatusOK, "index.html", indexPage{ErrorMessage: message})
}
