package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/fortuna/crease/internal/backfill"
)

// BackfillHandler proxies API calls to the backfill service.
type BackfillHandler struct {
	service *backfill.Service
}

// NewBackfillHandler wires the REST layer to the backfill service.
func NewBackfillHandler(service *backfill.Service) *BackfillHandler {
	return &BackfillHandler{service: service}
}

type apiBackfillRequest struct {
	Path   string   `json:"path"`
	Paths  []string `json:"paths"`
	DryRun bool     `json:"dry_run"`
}

// HandleBackfillRequest handles POST /api/v1/backfill
func (h *BackfillHandler) HandleBackfillRequest(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Backfill is not configured", nil)
		return
	}

	var req apiBackfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	backfillReq := backfill.Request{DryRun: req.DryRun}
	backfillReq.Paths = append(backfillReq.Paths, req.Paths...)
	if req.Path != "" {
		backfillReq.Paths = append(backfillReq.Paths, req.Path)
	}

	job, err := h.service.Enqueue(r.Context(), backfillReq)
	switch {
	case errors.Is(err, backfill.ErrPathOutsideRoot):
		respondError(w, http.StatusForbidden, "Path is outside the data directory", err)
		return
	case errors.Is(err, backfill.ErrNoDataDir):
		respondError(w, http.StatusServiceUnavailable, "Backfill data directory is not configured", err)
		return
	case err != nil:
		respondError(w, http.StatusBadRequest, "Failed to enqueue backfill job", err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"job": job,
	})
}

// HandleBackfillStatus handles GET /api/v1/backfill/status
func (h *BackfillHandler) HandleBackfillStatus(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Backfill is not configured", nil)
		return
	}

	summary, err := h.service.GetStatus(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch status", err)
		return
	}

	respondJSON(w, http.StatusOK, buildStatusPayload(summary))
}

// HandleBackfillJob handles GET /api/v1/backfill/jobs/{jobID}
func (h *BackfillHandler) HandleBackfillJob(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondError(w, http.StatusServiceUnavailable, "Backfill is not configured", nil)
		return
	}

	job, err := h.service.GetJob(r.Context(), mux.Vars(r)["jobID"])
	if errors.Is(err, backfill.ErrJobNotFound) {
		respondError(w, http.StatusNotFound, "Job not found", err)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch job", err)
		return
	}

	respondJSON(w, http.StatusOK, job)
}

func buildStatusPayload(summary *backfill.StatusSummary) map[string]interface{} {
	response := map[string]interface{}{
		"status":  "idle",
		"message": "No active jobs",
		"history": summary.History,
		"events":  summary.Events,
	}
	if summary.History == nil {
		response["history"] = []*backfill.Job{}
	}
	if summary.Events == nil {
		response["events"] = []*backfill.Event{}
	}

	if summary.ActiveJob != nil {
		response["status"] = summary.ActiveJob.Status
		if summary.ActiveJob.StatusMessage != "" {
			response["message"] = summary.ActiveJob.StatusMessage
		}
		response["active_job"] = summary.ActiveJob
	}
	return response
}
