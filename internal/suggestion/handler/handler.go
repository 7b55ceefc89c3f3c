package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civicchain/internal/suggestion/models"
	"civicchain/pkg/platform/httputil"
	"civicchain/pkg/requestcontext"
)

type Service interface {
	Suggest(ctx context.Context, text string) *models.SuggestResponse
}

type Handler struct {
	suggestions Service
	logger      *slog.Logger
}

func New(suggestions Service, logger *slog.Logger) *Handler {
	return &Handler{suggestions: suggestions, logger: logger}
}

// RegisterAuthenticated mounts the suggestion route behind citizen auth.
func (h *Handler) RegisterAuthenticated(r chi.Router) {
	r.Post("/suggestions", h.HandleSuggest)
}

func (h *Handler) HandleSuggest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SuggestRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.suggestions.Suggest(ctx, req.Text))
}
