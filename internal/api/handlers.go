package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/platformops/faultline/internal/aggregator"
	"github.com/platformops/faultline/internal/models"
)

// Service is the boundary surface the HTTP layer forwards to.
type Service interface {
	AggregateError(ctx context.Context, raw map[string]any, meta aggregator.Metadata) bool
	AggregateBatch(ctx context.Context, rawBatch []map[string]any) bool
	Status(ctx context.Context) (models.CorrelationStatus, error)
	ResolveCorrelation(ctx context.Context, id string) error
}

// Handler exposes the thin HTTP adapter over the aggregator. The decision
// logic all lives behind Service; this layer only decodes, forwards, and
// shapes responses.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler constructs the HTTP handler set.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Routes registers all endpoints on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/errors", h.handleIngest)
	mux.HandleFunc("POST /api/v1/errors/batch", h.handleIngestBatch)
	mux.HandleFunc("GET /api/v1/correlations/status", h.handleStatus)
	mux.HandleFunc("POST /api/v1/correlations/{id}/resolve", h.handleResolve)
	mux.HandleFunc("GET /healthz", h.handleHealth)
	return mux
}

type ingestRequest struct {
	Error         map[string]any    `json:"error"`
	Context       map[string]string `json:"context,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
}

type ingestResponse struct {
	Accepted bool `json:"accepted"`
}

func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	accepted := h.service.AggregateError(r.Context(), req.Error, aggregator.Metadata{
		Context:       req.Context,
		CorrelationID: req.CorrelationID,
		RequestID:     req.RequestID,
		UserID:        req.UserID,
	})
	writeJSON(w, http.StatusAccepted, ingestResponse{Accepted: accepted})
}

type batchRequest struct {
	Errors []map[string]any `json:"errors"`
}

func (h *Handler) handleIngestBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	accepted := h.service.AggregateBatch(r.Context(), req.Errors)
	writeJSON(w, http.StatusAccepted, ingestResponse{Accepted: accepted})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context())
	if err != nil {
		h.logger.Error("status aggregation failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "status unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "correlation id required"})
		return
	}
	if err := h.service.ResolveCorrelation(r.Context(), id); err != nil {
		h.logger.Warn("resolve failed", slog.String("correlation_id", id), slog.Any("error", err))
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "correlation not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
