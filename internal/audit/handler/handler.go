// Package handler exposes the audit service over HTTP. All JSON shaping and
// status-code mapping happens here; the service below it deals only in typed
// requests and coded errors.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"audittrail/internal/audit/models"
	"audittrail/internal/audit/query"
	"audittrail/internal/platform/middleware"
	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/httputil"
	"audittrail/pkg/requestcontext"
)

// Service defines the audit operations the handler depends on.
type Service interface {
	Record(ctx context.Context, req *models.CreateEventRequest) (models.Event, error)
	GetByID(ctx context.Context, id int64) (models.Event, error)
	Query(ctx context.Context, filter query.Filter) ([]models.Event, error)
	GetByService(ctx context.Context, service string, limit int) ([]models.Event, error)
	GetByEntity(ctx context.Context, entityID, entityType string) ([]models.Event, error)
	DeleteByID(ctx context.Context, id int64) error
	Prune(ctx context.Context, days int) (int64, error)
}

// Handler wires audit endpoints to the audit service.
type Handler struct {
	service    Service
	logger     *slog.Logger
	adminToken string
}

// New constructs an audit handler. adminToken gates the destructive
// endpoints (prune, delete-by-id); empty disables them entirely.
func New(service Service, logger *slog.Logger, adminToken string) *Handler {
	return &Handler{service: service, logger: logger, adminToken: adminToken}
}

// Register mounts the audit routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/audit/events", h.handleRecord)
	r.Get("/audit/events", h.handleList)
	r.Get("/audit/events/{id}", h.handleGetByID)
	r.Get("/audit/services/{service}/events", h.handleListByService)
	r.Get("/audit/entities/{entityId}/events", h.handleListByEntity)

	// Deleting ledger entries is privileged: retention and administrative
	// removal sit behind the admin token.
	r.Group(func(admin chi.Router) {
		admin.Use(middleware.RequireAdmin(h.adminToken, h.logger))
		admin.Delete("/audit/events/{id}", h.handleDeleteByID)
		admin.Delete("/audit/retention", h.handlePrune)
	})
}

// listEnvelope is the list-response shape: a count plus the page of events.
type listEnvelope struct {
	Count  int            `json:"count"`
	Events []models.Event `json:"events"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req models.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "undecodable create event request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	// Fill request-origin metadata from the connection when the caller did
	// not supply its own.
	if req.IPAddress == "" {
		req.IPAddress = requestcontext.ClientIP(ctx)
	}
	if req.UserAgent == "" {
		req.UserAgent = requestcontext.UserAgent(ctx)
	}

	event, err := h.service.Record(ctx, &req)
	if err != nil {
		h.writeServiceError(w, r, "failed to record audit event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, event)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.service.Query(r.Context(), filter)
	if err != nil {
		h.writeServiceError(w, r, "failed to list audit events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listEnvelope{Count: len(events), Events: events})
}

func (h *Handler) handleGetByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	event, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, "failed to load audit event", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, event)
}

func (h *Handler) handleListByService(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n == 0 {
			httputil.WriteError(w, dErrors.Newf(dErrors.CodeValidation,
				"limit must be between 1 and %d", query.MaxLimit).WithFields("limit"))
			return
		}
		limit = n
	}

	events, err := h.service.GetByService(r.Context(), chi.URLParam(r, "service"), limit)
	if err != nil {
		h.writeServiceError(w, r, "failed to list audit events by service", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listEnvelope{Count: len(events), Events: events})
}

func (h *Handler) handleListByEntity(w http.ResponseWriter, r *http.Request) {
	entityID := chi.URLParam(r, "entityId")
	entityType := r.URL.Query().Get("entityType")

	events, err := h.service.GetByEntity(r.Context(), entityID, entityType)
	if err != nil {
		h.writeServiceError(w, r, "failed to list audit events by entity", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listEnvelope{Count: len(events), Events: events})
}

func (h *Handler) handleDeleteByID(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.DeleteByID(r.Context(), id); err != nil {
		h.writeServiceError(w, r, "failed to delete audit event", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handlePrune(w http.ResponseWriter, r *http.Request) {
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation,
			"days must be a positive integer").WithFields("days"))
		return
	}

	removed, err := h.service.Prune(r.Context(), days)
	if err != nil {
		h.writeServiceError(w, r, "failed to prune audit events", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]int64{"removed": removed})
}

// writeServiceError logs infrastructure failures and renders the error. The
// status mapping lives in httputil; this only decides log severity.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.HasCode(err, dErrors.CodeInternal) || dErrors.HasCode(err, dErrors.CodeUnavailable) {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, dErrors.New(dErrors.CodeValidation, "id must be a positive integer").WithFields("id")
	}
	return id, nil
}

// filterFromQuery maps list query parameters onto the query filter. Field
// validation itself happens in the query package.
func filterFromQuery(r *http.Request) (query.Filter, error) {
	params := r.URL.Query()
	filter := query.Filter{
		Service:    params.Get("service"),
		Action:     params.Get("action"),
		LogLevel:   params.Get("logLevel"),
		UserID:     params.Get("userId"),
		EntityID:   params.Get("entityId"),
		EntityType: params.Get("entityType"),
		StartDate:  params.Get("startDate"),
		EndDate:    params.Get("endDate"),
	}

	// An explicit zero is out of range, not "use the default": the filter's
	// zero value already means absent, so it must be rejected here.
	if raw := params.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n == 0 {
			return query.Filter{}, dErrors.New(dErrors.CodeValidation,
				"page must be 1 or greater").WithFields("page")
		}
		filter.Page = n
	}
	if raw := params.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n == 0 {
			return query.Filter{}, dErrors.Newf(dErrors.CodeValidation,
				"limit must be between 1 and %d", query.MaxLimit).WithFields("limit")
		}
		filter.Limit = n
	}
	return filter, nil
}
