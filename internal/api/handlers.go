package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/trogers1052/adx-service/internal/analysis"
	"github.com/trogers1052/adx-service/internal/chart"
	"github.com/trogers1052/adx-service/internal/database"
	"github.com/trogers1052/adx-service/internal/export"
	"github.com/trogers1052/adx-service/internal/models"
	"github.com/trogers1052/adx-service/internal/session"
	"github.com/trogers1052/adx-service/pkg/logger"
)

const (
	uploadField      = "csv_file"
	defaultListLimit = 20
	maxListLimit     = 100
)

// AnalysisRepository reads and deletes stored analyses
type AnalysisRepository interface {
	GetAnalysis(ctx context.Context, id string) (*models.Analysis, error)
	GetAnalysisRows(ctx context.Context, id string) ([]models.ADXRow, error)
	ListRecentAnalyses(ctx context.Context, limit int) ([]*models.Analysis, error)
	DeleteAnalysis(ctx context.Context, id string) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	svc            *analysis.Service
	repo           AnalysisRepository
	maxUploadBytes int64
	sessionTTL     time.Duration
}

// NewHandler creates a new Handler. repo may be nil, in which case the
// stored-analysis routes are not registered.
func NewHandler(svc *analysis.Service, repo AnalysisRepository, maxUploadBytes int64, sessionTTL time.Duration) *Handler {
	return &Handler{
		svc:            svc,
		repo:           repo,
		maxUploadBytes: maxUploadBytes,
		sessionTTL:     sessionTTL,
	}
}

// Index handles GET /
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	renderIndex(w, "")
}

// RedirectToIndex handles GET /result, which only accepts uploads
func (h *Handler) RedirectToIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusFound)
}

// Result handles POST /result
func (h *Handler) Result(w http.ResponseWriter, r *http.Request) {
	file, err := h.uploadedFile(w, r)
	if err != nil {
		logger.Warn("Upload rejected", logger.ErrorField(err))
		renderIndex(w, userMessage(err))
		return
	}
	defer file.Close()

	res, err := h.svc.Analyze(r.Context(), analysis.SourceUpload, file)
	if err != nil {
		logger.Warn("Upload rejected",
			logger.String("reason", analysis.Reason(err)),
			logger.ErrorField(err),
		)
		renderIndex(w, userMessage(err))
		return
	}

	chartHTML, err := chart.RenderString(res.Chart, res.Summary)
	if err != nil {
		logger.Error("Failed to render chart", logger.ErrorField(err))
		renderIndex(w, msgUnprocessable)
		return
	}

	sessionID := session.EnsureID(w, r, h.sessionTTL)
	if err := h.svc.SaveSession(r.Context(), sessionID, res); err != nil {
		logger.Error("Failed to cache result", logger.ErrorField(err))
	}

	renderPage(w, http.StatusOK, "result.html", resultPage{
		Summary:   res.Summary,
		ChartHTML: chartHTML,
	})
}

// Download handles GET /download
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := session.IDFromRequest(r)
	if !ok {
		renderIndex(w, msgNoOutput)
		return
	}

	snap, err := h.svc.LoadSession(r.Context(), sessionID)
	if errors.Is(err, session.ErrNotFound) {
		renderIndex(w, msgNoOutput)
		return
	}
	if err != nil {
		logger.Error("Failed to load cached result", logger.ErrorField(err))
		renderIndex(w, msgNoOutput)
		return
	}

	writeExport(w, export.FormatXLSX, snap)
}

// ComputeADX handles POST /api/v1/adx. The body is either a multipart form
// with a csv_file part or the raw CSV.
func (h *Handler) ComputeADX(w http.ResponseWriter, r *http.Request) {
	period, err := queryInt(r, "period", 0)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "period must be an integer")
		return
	}

	var body io.Reader
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, err := h.uploadedFile(w, r)
		if err != nil {
			respondWithError(w, statusFor(err), userMessage(err))
			return
		}
		defer file.Close()
		body = file
	} else {
		body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}

	res, err := h.svc.Analyze(r.Context(), analysis.SourceAPI, body, analysis.WithPeriod(period))
	if err != nil {
		message := userMessage(err)
		if errors.Is(err, analysis.ErrInvalidPeriod) {
			message = err.Error()
		}
		respondWithError(w, statusFor(err), message)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"analysis": res.Analysis,
		"summary":  res.Summary,
		"chart":    res.Chart,
		"table":    res.Snapshot(),
	})
}

// ListAnalyses handles GET /api/v1/analyses
func (h *Handler) ListAnalyses(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultListLimit)
	if err != nil || limit < 1 {
		respondWithError(w, http.StatusBadRequest, "limit must be a positive integer")
		return
	}
	limit = min(limit, maxListLimit)

	analyses, err := h.repo.ListRecentAnalyses(r.Context(), limit)
	if err != nil {
		logger.Error("Failed to list analyses", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if analyses == nil {
		analyses = []*models.Analysis{}
	}

	respondWithJSON(w, http.StatusOK, analyses)
}

// GetAnalysis handles GET /api/v1/analyses/{id}
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	a, err := h.repo.GetAnalysis(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	rows, err := h.repo.GetAnalysisRows(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{
		"analysis": a,
		"rows":     rows,
	})
}

// ExportAnalysis handles GET /api/v1/analyses/{id}/export?format=xlsx|csv
func (h *Handler) ExportAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.repo.GetAnalysis(r.Context(), id); err != nil {
		h.respondRepoError(w, err)
		return
	}

	rows, err := h.repo.GetAnalysisRows(r.Context(), id)
	if err != nil {
		h.respondRepoError(w, err)
		return
	}

	writeExport(w, format, models.NewTableSnapshot(rows))
}

// DeleteAnalysis handles DELETE /api/v1/analyses/{id}
func (h *Handler) DeleteAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := analysisID(w, r)
	if !ok {
		return
	}

	if err := h.repo.DeleteAnalysis(r.Context(), id); err != nil {
		h.respondRepoError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) uploadedFile(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	file, _, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, errNoFile
	}
	if err != nil {
		return nil, err
	}
	return file, nil
}

// analysisID reads the {id} route variable. Ids that are not UUIDs cannot
// name a stored analysis and get a 404.
func analysisID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, "analysis not found")
		return "", false
	}
	return id.String(), true
}

func (h *Handler) respondRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, database.ErrNotFound) {
		respondWithError(w, http.StatusNotFound, "analysis not found")
		return
	}
	logger.Error("Repository error", logger.ErrorField(err))
	respondWithError(w, http.StatusInternalServerError, "internal error")
}

func writeExport(w http.ResponseWriter, format export.Format, snap *models.TableSnapshot) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, snap); err != nil {
		logger.Error("Failed to export table", logger.ErrorField(err))
		respondWithError(w, http.StatusInternalServerError, "failed to export table")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+format.Filename()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]any{
		"error": message,
		"code":  code,
	})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
