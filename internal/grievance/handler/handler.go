package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"civicchain/internal/grievance/models"
	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/platform/httputil"
	"civicchain/pkg/requestcontext"
)

// Service is the lifecycle engine as seen by HTTP.
type Service interface {
	Create(ctx context.Context, req *models.CreateRequest) (*models.Grievance, error)
	Get(ctx context.Context, grievanceID id.GrievanceID) (*models.Grievance, error)
	SetStatus(ctx context.Context, grievanceID id.GrievanceID, req *models.SetStatusRequest) (*models.Grievance, error)
	BulkSetStatus(ctx context.Context, req *models.BulkStatusRequest) (*models.BulkResult, error)
	List(ctx context.Context, filter models.ListFilter) (*models.Page, error)
	Aggregate(ctx context.Context) (*models.Aggregate, error)
}

type Handler struct {
	grievances Service
	logger     *slog.Logger
}

func New(grievances Service, logger *slog.Logger) *Handler {
	return &Handler{grievances: grievances, logger: logger}
}

func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/grievances", h.HandleList)
	r.Get("/grievances/{id}", h.HandleGet)
	r.Get("/aggregate", h.HandleAggregate)
}

// RegisterAuthenticated mounts citizen routes; the caller installs the
// token middleware.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/grievances", h.HandleCreate)
	r.Get("/accounts/me/grievances", h.HandleListMine)
}

// RegisterAdmin mounts operator routes; the caller installs the admin
// session middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Patch("/grievances/{id}/status", h.HandleSetStatus)
	r.Post("/grievances/bulk-status", h.HandleBulkSetStatus)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	g, err := h.grievances.Create(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "grievance creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, toGrievanceResponse(g))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	grievanceID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	g, err := h.grievances.Get(r.Context(), grievanceID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toGrievanceResponse(g))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.list(w, r, filter)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID := requestcontext.AccountID(ctx)
	if accountID.IsNil() {
		h.logger.ErrorContext(ctx, "account missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	filter, err := parseListFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.Owner = accountID
	h.list(w, r, filter)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter models.ListFilter) {
	page, err := h.grievances.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListResponse(page))
}

func (h *Handler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	grievanceID, ok := h.pathID(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.SetStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	g, err := h.grievances.SetStatus(ctx, grievanceID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "status update failed",
			"request_id", requestID,
			"grievance_id", grievanceID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toGrievanceResponse(g))
}

func (h *Handler) HandleBulkSetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.BulkStatusRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.grievances.BulkSetStatus(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if len(result.Failed) > 0 {
		h.logger.InfoContext(ctx, "bulk status update partially failed",
			"request_id", requestID,
			"updated", len(result.Updated),
			"failed", len(result.Failed),
		)
	}
	httputil.WriteJSON(w, http.StatusOK, toBulkResponse(result))
}

func (h *Handler) HandleAggregate(w http.ResponseWriter, r *http.Request) {
	agg, err := h.grievances.Aggregate(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAggregateResponse(agg))
}

// pathID parses the {id} URL parameter. A malformed id cannot name an
// existing grievance, so it is reported as not found.
func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (id.GrievanceID, bool) {
	raw := chi.URLParam(r, "id")
	grievanceID, err := id.ParseGrievanceID(raw)
	if err != nil {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "grievance %s not found", strings.TrimSpace(raw)))
		return "", false
	}
	return grievanceID, true
}

func parseListFilter(q url.Values) (models.ListFilter, error) {
	filter := models.ListFilter{
		Region:     strings.TrimSpace(q.Get("region")),
		Status:     models.Status(strings.ToLower(strings.TrimSpace(q.Get("status")))),
		Department: strings.TrimSpace(q.Get("department")),
	}
	var err error
	if filter.Page, err = positiveQueryInt(q, "page"); err != nil {
		return filter, err
	}
	if filter.Limit, err = positiveQueryInt(q, "limit"); err != nil {
		return filter, err
	}
	return filter, nil
}

func positiveQueryInt(q url.Values, key string) (int, error) {
	raw := strings.TrimSpace(q.Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.Newf(dErrors.CodeValidation, "%s must be a positive integer", key)
	}
	return n, nil
}
