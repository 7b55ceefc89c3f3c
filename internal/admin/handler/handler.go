package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civicchain/internal/admin/models"
	"civicchain/internal/admin/service"
	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/platform/httputil"
	"civicchain/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, req *models.LoginRequest) (*models.Session, error)
	Status(ctx context.Context, sessionID id.AdminSessionID) (*service.Status, error)
	Extend(ctx context.Context, sessionID id.AdminSessionID) (*service.Status, error)
	Revoke(ctx context.Context, sessionID id.AdminSessionID) error
}

type Handler struct {
	sessions Service
	logger   *slog.Logger
}

func New(sessions Service, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, logger: logger}
}

// RegisterPublic mounts the operator login route.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/admin/sessions", h.HandleLogin)
}

// RegisterAuthenticated mounts routes behind the admin session middleware.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/admin/sessions/current", h.HandleStatus)
	r.Post("/admin/sessions/current/extend", h.HandleExtend)
	r.Delete("/admin/sessions/current", h.HandleRevoke)
}

type SessionResponse struct {
	SessionID    string    `json:"session_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	Device       string    `json:"device,omitempty"`
	RememberMe   bool      `json:"remember_me"`
	CreatedAt    time.Time `json:"created_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	ExpiresIn    int64     `json:"expires_in"`
	ExpiringSoon bool      `json:"expiring_soon"`
}

func toSessionResponse(s *models.Session, remaining time.Duration, expiringSoon bool) *SessionResponse {
	return &SessionResponse{
		SessionID:    s.ID.String(),
		Email:        s.Email,
		Name:         s.Name,
		Device:       s.Device,
		RememberMe:   s.RememberMe,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		ExpiresIn:    int64(remaining / time.Second),
		ExpiringSoon: expiringSoon,
	}
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	session, err := h.sessions.Login(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "admin login rejected",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	remaining := session.Remaining(requestcontext.Now(ctx))
	httputil.WriteJSON(w, http.StatusCreated, toSessionResponse(session, remaining, false))
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	status, err := h.sessions.Status(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(status.Session, status.Remaining, status.ExpiringSoon))
}

func (h *Handler) HandleExtend(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	status, err := h.sessions.Extend(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSessionResponse(status.Session, status.Remaining, status.ExpiringSoon))
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.currentSession(w, r)
	if !ok {
		return
	}
	if err := h.sessions.Revoke(r.Context(), sessionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) (id.AdminSessionID, bool) {
	ctx := r.Context()
	sessionID := requestcontext.AdminSessionID(ctx)
	if sessionID.IsNil() {
		h.logger.ErrorContext(ctx, "admin session missing from context despite middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin session required"))
		return id.AdminSessionID{}, false
	}
	return sessionID, true
}
