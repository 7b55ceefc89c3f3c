package handler

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicchain/internal/suggestion/models"
	"civicchain/internal/suggestion/service"
	"civicchain/pkg/testutil"
)

func TestHandleSuggest(t *testing.T) {
	r := chi.NewRouter()
	New(service.New(), slog.Default()).RegisterAuthenticated(r)

	rr := testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/suggestions",
		map[string]string{"text": "The bus stop roof collapsed"}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	got := testutil.UnmarshalResponse[models.SuggestResponse](t, rr)
	assert.Equal(t, "roads-transport", got.Department.Department)
	assert.Equal(t, "medium", got.Priority.Priority)
	assert.Equal(t, models.SourceFallback, got.Priority.Source)

	rr = testutil.DoRequest(r, testutil.NewJSONRequest(t, http.MethodPost, "/suggestions",
		map[string]string{"text": "   "}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
