package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/user/backlink-service/internal/delivery/http/request"
	"github.com/user/backlink-service/internal/delivery/http/response"
	"github.com/user/backlink-service/internal/entity"
	"github.com/user/backlink-service/internal/provider"
	"github.com/user/backlink-service/internal/usecase"
)

type Handler struct {
	scans    usecase.ScanOrchestrator
	provider provider.Provider
}

func NewHandler(scans usecase.ScanOrchestrator, metricsProvider provider.Provider) *Handler {
	return &Handler{
		scans:    scans,
		provider: metricsProvider,
	}
}

func (h *Handler) HandleCreateScan(w http.ResponseWriter, r *http.Request) {
	var req request.CreateScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	scan, err := h.scans.CreateScan(r.Context(), req.ProjectID, req.RequestedBy, req.RootDomain, req.URLs)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidRootDomain),
			errors.Is(err, usecase.ErrNoValidURLs):
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, usecase.ErrTooManyURLs):
			h.writeJSONError(w, err.Error(), http.StatusUnprocessableEntity)
		default:
			slog.Error("Failed to create scan", "project_id", req.ProjectID, "error", err)
			h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		}
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.FromScan(scan))
}

func (h *Handler) HandleGetScan(w http.ResponseWriter, r *http.Request) {
	scanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	scan, err := h.scans.FindScan(r.Context(), scanID)
	if err != nil {
		h.writeScanError(w, scanID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromScan(scan))
}

func (h *Handler) HandleCancelScan(w http.ResponseWriter, r *http.Request) {
	scanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	scan, err := h.scans.CancelScan(r.Context(), scanID)
	if err != nil {
		h.writeScanError(w, scanID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromScan(scan))
}

func (h *Handler) HandleGetScanResults(w http.ResponseWriter, r *http.Request) {
	scanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	filters := entity.ResultFilters{
		FetchStatus: r.URL.Query().Get("fetch_status"),
		LinkType:    r.URL.Query().Get("link_type"),
		Search:      r.URL.Query().Get("search"),
		Sort:        r.URL.Query().Get("sort"),
	}

	results, err := h.scans.Results(r.Context(), scanID, filters)
	if err != nil {
		h.writeScanError(w, scanID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromResults(results))
}

func (h *Handler) HandleGetScanTrend(w http.ResponseWriter, r *http.Request) {
	scanID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	trend, err := h.scans.TrendAgainstPrevious(r.Context(), scanID)
	if err != nil {
		h.writeScanError(w, scanID, err)
		return
	}
	h.writeJSON(w, http.StatusOK, trend)
}

func (h *Handler) HandleListProjectScans(w http.ResponseWriter, r *http.Request) {
	projectID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, _ = strconv.Atoi(raw)
	}

	scans, err := h.scans.ListScansByProject(r.Context(), projectID, limit)
	if err != nil {
		slog.Error("Failed to list scans", "project_id", projectID, "error", err)
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.FromScans(scans))
}

func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"provider": h.provider.Healthcheck(),
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		h.writeJSONError(w, "Invalid "+name+" path parameter", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) writeScanError(w http.ResponseWriter, scanID int64, err error) {
	if errors.Is(err, usecase.ErrScanNotFound) {
		h.writeJSONError(w, "Scan not found", http.StatusNotFound)
		return
	}
	slog.Error("Scan request failed", "scan_id", scanID, "error", err)
	h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Failed to write JSON response", "error", err)
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
