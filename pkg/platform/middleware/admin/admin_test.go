package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	id "civicchain/pkg/domain"
	dErrors "civicchain/pkg/domain-errors"
	"civicchain/pkg/requestcontext"
)

type stubValidator struct {
	info *SessionInfo
	err  error
}

func (s stubValidator) ValidateSession(context.Context, id.AdminSessionID) (*SessionInfo, error) {
	return s.info, s.err
}

func TestRequireAdminSession(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	sessionID := id.NewAdminSessionID()

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, sessionID, requestcontext.AdminSessionID(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	serve := func(header string, v SessionValidator) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/grievances/GRV-2025-000001/status", nil)
		req = req.WithContext(requestcontext.WithTime(req.Context(), now))
		if header != "" {
			req.Header.Set(SessionHeader, header)
		}
		w := httptest.NewRecorder()
		RequireAdminSession(v, logger)(next).ServeHTTP(w, req)
		return w
	}

	t.Run("missing header is unauthorized", func(t *testing.T) {
		w := serve("", stubValidator{})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("expired session is unauthorized", func(t *testing.T) {
		w := serve(sessionID.String(), stubValidator{err: dErrors.New(dErrors.CodeUnauthorized, "admin session expired")})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		w := serve(sessionID.String(), stubValidator{err: errors.New("redis down")})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("live session sets remaining seconds", func(t *testing.T) {
		w := serve(sessionID.String(), stubValidator{info: &SessionInfo{
			SessionID: sessionID,
			ExpiresAt: now.Add(20 * time.Minute),
		}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "1200", w.Header().Get(ExpiresInHeader))
		assert.Empty(t, w.Header().Get(WarningHeader))
	})

	t.Run("expiring session sets warning", func(t *testing.T) {
		w := serve(sessionID.String(), stubValidator{info: &SessionInfo{
			SessionID:    sessionID,
			ExpiresAt:    now.Add(4 * time.Minute),
			ExpiringSoon: true,
		}})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "240", w.Header().Get(ExpiresInHeader))
		assert.Equal(t, "expiring", w.Header().Get(WarningHeader))
	})
}
