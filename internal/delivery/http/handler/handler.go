package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/user/coffee-ingest/internal/delivery/http/request"
	"github.com/user/coffee-ingest/internal/delivery/http/response"
	"github.com/user/coffee-ingest/internal/entity"
	"github.com/user/coffee-ingest/internal/usecase"
	artifactvalidator "github.com/user/coffee-ingest/internal/validator"
)

const (
	maxBodyBytes  = 32 << 20
	healthTimeout = 2 * time.Second
)

// Processor is the part of the pipeline the HTTP layer drives.
type Processor interface {
	ProcessBatch(ctx context.Context, b usecase.Batch) *usecase.BatchResult
	Validate(raw []byte) artifactvalidator.Outcome
	Stats() usecase.ComponentStats
}

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type Handler struct {
	pipeline      Processor
	ingestManager usecase.IngestManager
	checks        map[string]HealthCheck
	validate      *validator.Validate
	logger        *zap.Logger
}

// NewHandler creates the API handler. ingestManager may be nil when no queue
// is configured; the ingest endpoints then answer 503.
func NewHandler(pipeline Processor, ingestManager usecase.IngestManager, checks map[string]HealthCheck, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		pipeline:      pipeline,
		ingestManager: ingestManager,
		checks:        checks,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		logger:        logger.With(zap.String("component", "http_handler")),
	}
}

// HandleSubmitBatch runs the pipeline synchronously over inline artifacts.
func (h *Handler) HandleSubmitBatch(w http.ResponseWriter, r *http.Request) {
	var req request.SubmitBatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	items := make([][]byte, len(req.Artifacts))
	for i, a := range req.Artifacts {
		items[i] = a
	}
	result := h.pipeline.ProcessBatch(r.Context(), usecase.Batch{
		RoasterID:    req.RoasterID,
		Platform:     req.Platform,
		MetadataOnly: req.MetadataOnly,
		Force:        req.Force,
		Items:        items,
	})

	h.writeJSON(w, http.StatusOK, response.BatchResponse{
		RunID:   result.RunID,
		Results: result.Results,
		Stats:   result.Stats,
	})
}

// HandleSubmitIngest queues stored artifacts for the background worker.
func (h *Handler) HandleSubmitIngest(w http.ResponseWriter, r *http.Request) {
	if h.ingestManager == nil {
		h.writeJSONError(w, "Ingest queue is not configured", http.StatusServiceUnavailable)
		return
	}
	var req request.SubmitIngestRequest
	if !h.decode(w, r, &req) {
		return
	}

	jobID, err := h.ingestManager.Submit(r.Context(), &entity.IngestJob{
		RoasterID:    req.RoasterID,
		Platform:     req.Platform,
		Filenames:    req.Filenames,
		MetadataOnly: req.MetadataOnly,
		Force:        req.Force,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrInvalidJob) {
			h.writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("failed to submit ingest job", zap.String("roaster_id", req.RoasterID), zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusAccepted, response.SubmitIngestResponse{
		Status:  "success",
		Message: "Artifacts queued for ingestion",
		JobID:   jobID,
	})
}

func (h *Handler) HandleGetQueueSize(w http.ResponseWriter, r *http.Request) {
	if h.ingestManager == nil {
		h.writeJSONError(w, "Ingest queue is not configured", http.StatusServiceUnavailable)
		return
	}
	size, err := h.ingestManager.QueueSize(r.Context())
	if err != nil {
		h.logger.Error("failed to read queue size", zap.Error(err))
		h.writeJSONError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, response.QueueSizeResponse{Size: size})
}

// HandleValidate validates one artifact without mapping or persisting it.
// Invalid artifacts still answer 200; the verdict is in the body.
func (h *Handler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusOK, h.pipeline.Validate(raw))
}

func (h *Handler) HandleGetStats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.pipeline.Stats())
}

// HandleHealthCheck pings every configured dependency and answers 503 if any
// of them is down.
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := response.HealthResponse{Status: "ok"}
	if len(h.checks) > 0 {
		resp.Dependencies = make(map[string]string, len(h.checks))
	}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Error("health check failed", zap.String("dependency", name), zap.Error(err))
			resp.Dependencies[name] = "unhealthy"
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[name] = "healthy"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			h.writeJSONError(w, "Invalid field: "+verrs[0].Field(), http.StatusBadRequest)
			return false
		}
		h.writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write JSON response", zap.Error(err))
	}
}

func (h *Handler) writeJSONError(w http.ResponseWriter, message string, status int) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
