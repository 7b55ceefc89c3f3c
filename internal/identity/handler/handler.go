package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civicchain/internal/identity/models"
	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/platform/httputil"
	"civicchain/pkg/requestcontext"
)

// Service is the credential store as seen by HTTP.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Account, error)
	Authenticate(ctx context.Context, req *models.LoginRequest) (*models.Account, error)
	BindIdentity(ctx context.Context, accountID id.AccountID, req *models.BindIdentityRequest) (*models.Account, error)
	Get(ctx context.Context, accountID id.AccountID) (*models.Account, error)
}

// TokenIssuer mints citizen bearer tokens.
type TokenIssuer interface {
	IssueToken(ctx context.Context, accountID id.AccountID, email string) (string, time.Time, error)
}

type Handler struct {
	accounts Service
	tokens   TokenIssuer
	logger   *slog.Logger
}

func New(accounts Service, tokens TokenIssuer, logger *slog.Logger) *Handler {
	return &Handler{accounts: accounts, tokens: tokens, logger: logger}
}

// RegisterPublic mounts the unauthenticated account routes.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/accounts", h.HandleRegister)
	r.Post("/sessions", h.HandleLogin)
}

// RegisterAuthenticated mounts routes that need a citizen token; the caller
// installs the auth middleware.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Get("/accounts/me", h.HandleMe)
	r.Post("/accounts/me/identity-binding", h.HandleBindIdentity)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.accounts.Register(ctx, req)
	if err != nil {
		h.logger.WarnContext(ctx, "account registration failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.writeSession(w, r, http.StatusCreated, account)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.accounts.Authenticate(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.writeSession(w, r, http.StatusOK, account)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	account, err := h.accounts.Get(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) HandleBindIdentity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	accountID, ok := h.requireAccount(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.BindIdentityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.accounts.BindIdentity(ctx, accountID, req)
	if err != nil {
		h.logger.WarnContext(ctx, "identity binding failed",
			"request_id", requestID,
			"account_id", accountID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) writeSession(w http.ResponseWriter, r *http.Request, status int, account *models.Account) {
	ctx := r.Context()
	token, expiresAt, err := h.tokens.IssueToken(ctx, account.ID, account.Email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue citizen token",
			"request_id", requestcontext.RequestID(ctx),
			"account_id", account.ID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to issue token"))
		return
	}

	httputil.WriteJSON(w, status, &SessionResponse{
		Account:     toAccountResponse(account),
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(expiresAt.Sub(requestcontext.Now(ctx)).Seconds()),
		ExpiresAt:   expiresAt,
	})
}

func (h *Handler) requireAccount(w http.ResponseWriter, r *http.Request) (id.AccountID, bool) {
	ctx := r.Context()
	accountID := requestcontext.AccountID(ctx)
	if accountID.IsNil() {
		h.logger.ErrorContext(ctx, "account missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.AccountID{}, false
	}
	return accountID, true
}
