package handlers

import (
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/scopeline/scopeline/internal/api"
	"github.com/scopeline/scopeline/internal/database"
	"github.com/scopeline/scopeline/internal/estimate"
	"github.com/scopeline/scopeline/internal/generation"
	"github.com/scopeline/scopeline/internal/notify"
	"github.com/scopeline/scopeline/internal/services"
)

// APIHandler handles API endpoints for the estimating UI
type APIHandler struct {
	db              *gorm.DB
	pipelineService *services.PipelineService
	runService      *services.RunService
	extractor       *generation.ScopeExtractor
	eventsHub       *EventsHub
	ids             estimate.IDGenerator
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(db *gorm.DB, pipelineService *services.PipelineService, runService *services.RunService, extractor *generation.ScopeExtractor, eventsHub *EventsHub, ids estimate.IDGenerator) *APIHandler {
	return &APIHandler{
		db:              db,
		pipelineService: pipelineService,
		runService:      runService,
		extractor:       extractor,
		eventsHub:       eventsHub,
		ids:             ids,
	}
}

// SetupRoutes sets up all API routes
func (h *APIHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/runs", h.handleRuns)
	mux.HandleFunc("/api/extract", h.handleExtract)
	mux.HandleFunc("/api/runs/", h.handleRunByUUID)
	mux.HandleFunc("/api/settings/pipeline", h.handlePipelineSettings)
	mux.HandleFunc("/api/settings/slack", h.handleSlackSettings)
}

// handleRuns handles POST /api/runs (process a scope) and GET /api/runs
func (h *APIHandler) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.processRun(w, r)
	case http.MethodGet:
		h.listRuns(w, r)
	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// processRun runs the post-processing pipeline on a submitted scope
func (h *APIHandler) processRun(w http.ResponseWriter, r *http.Request) {
	var req api.ProcessRunRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	rooms := api.RoomsFromPayload(req.Rooms, h.ids)
	params := estimate.JobParams{
		Severity: req.Severity,
		Context:  estimate.JobContext(req.Context),
		LossType: req.LossType,
		JobType:  estimate.JobType(req.JobType),
	}

	run, result, err := h.pipelineService.Process(req.Label, rooms, params, nil)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to process estimate")
		return
	}

	if h.eventsHub != nil {
		h.eventsHub.BroadcastRunCompleted(run)
	}
	h.notifySlack(run, result)

	api.RespondJSON(w, http.StatusCreated, run)
}

// handleExtract handles POST /api/extract: pulls a scope out of a walkthrough
// transcript, then runs the pipeline on it. Extraction failures degrade to an
// empty scope with warnings rather than an error response.
func (h *APIHandler) handleExtract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.extractor == nil {
		api.RespondError(w, http.StatusServiceUnavailable, "Scope extraction is not configured")
		return
	}

	var req api.ExtractRunRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if fieldErrors := api.Validate(req); fieldErrors != nil {
		api.RespondValidationError(w, fieldErrors)
		return
	}

	rooms, extractWarnings := h.extractor.Extract(r.Context(), req.Transcript)
	params := estimate.JobParams{
		Severity: req.Severity,
		Context:  estimate.JobContext(req.Context),
		LossType: req.LossType,
		JobType:  estimate.JobType(req.JobType),
	}

	run, result, err := h.pipelineService.Process(req.Label, rooms, params, extractWarnings)
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to process estimate")
		return
	}

	if h.eventsHub != nil {
		h.eventsHub.BroadcastRunCompleted(run)
	}
	h.notifySlack(run, result)

	api.RespondJSON(w, http.StatusCreated, run)
}

// notifySlack posts the run summary when the integration is active
func (h *APIHandler) notifySlack(run *database.EstimateRun, result *estimate.Result) {
	settings, err := database.GetOrCreateSlackSettings(h.db)
	if err != nil {
		return
	}
	notifier := notify.NewFromSettings(settings)
	if notifier != nil {
		go notifier.PostRunSummary(run, result)
	}
}

// listRuns handles GET /api/runs with pagination
func (h *APIHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	p := api.ParsePagination(r)

	runs, total, err := h.runService.ListRuns(p.PerPage, p.Offset())
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	api.RespondJSON(w, http.StatusOK, api.RunListResponse{
		Runs:       api.RunsToListItems(runs),
		Total:      total,
		Page:       p.Page,
		PerPage:    p.PerPage,
		TotalPages: p.TotalPages(total),
	})
}

// handleRunByUUID handles GET /api/runs/{uuid} and GET /api/runs/{uuid}/merges
func (h *APIHandler) handleRunByUUID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	segments := splitPath(strings.TrimPrefix(r.URL.Path, "/api/runs/"))
	if len(segments) == 0 {
		api.RespondError(w, http.StatusBadRequest, "Run UUID is required")
		return
	}

	run, err := h.runService.GetRunByUUID(segments[0])
	if err == gorm.ErrRecordNotFound {
		api.RespondError(w, http.StatusNotFound, "Run not found")
		return
	}
	if err != nil {
		api.RespondError(w, http.StatusInternalServerError, "Failed to load run")
		return
	}

	if len(segments) == 2 && segments[1] == "merges" {
		merges, err := h.runService.GetRunMerges(run.ID)
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load merge records")
			return
		}
		api.RespondJSON(w, http.StatusOK, merges)
		return
	}

	api.RespondJSON(w, http.StatusOK, run)
}

// handlePipelineSettings handles GET and PUT /api/settings/pipeline
func (h *APIHandler) handlePipelineSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := database.GetOrCreatePipelineSettings(h.db)
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		api.RespondJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		var req api.UpdatePipelineSettingsRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
		if fieldErrors := api.Validate(req); fieldErrors != nil {
			api.RespondValidationError(w, fieldErrors)
			return
		}
		if req.ReviewThreshold > req.MergeThreshold {
			api.RespondValidationError(w, map[string]string{
				"review_threshold": "must not exceed merge_threshold",
			})
			return
		}

		settings, err := database.GetOrCreatePipelineSettings(h.db)
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		settings.MergeThreshold = req.MergeThreshold
		settings.ReviewThreshold = req.ReviewThreshold
		settings.MaxMergePasses = req.MaxMergePasses
		if err := database.UpdatePipelineSettings(h.db, settings); err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		api.RespondJSON(w, http.StatusOK, settings)

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleSlackSettings handles GET and PUT /api/settings/slack
func (h *APIHandler) handleSlackSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		settings, err := database.GetOrCreateSlackSettings(h.db)
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		api.RespondJSON(w, http.StatusOK, settings)

	case http.MethodPut:
		var req api.UpdateSlackSettingsRequest
		if err := api.DecodeJSON(r, &req); err != nil {
			api.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}

		settings, err := database.GetOrCreateSlackSettings(h.db)
		if err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to load settings")
			return
		}
		settings.BotToken = req.BotToken
		settings.WarningsChannel = req.WarningsChannel
		settings.Enabled = req.Enabled
		if err := database.UpdateSlackSettings(h.db, settings); err != nil {
			api.RespondError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
		api.RespondJSON(w, http.StatusOK, settings)

	default:
		api.RespondError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// splitPath splits a URL path into non-empty segments
func splitPath(path string) []string {
	parts := strings.Split(path, "/")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			segments = append(segments, p)
		}
	}
	return segments
}
