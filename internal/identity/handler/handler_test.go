package handler

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicchain/internal/identity/service"
	"civicchain/internal/identity/store/account"
	id "civicchain/pkg/domain"
	"civicchain/pkg/testutil"
)

type stubIssuer struct{}

func (stubIssuer) IssueToken(ctx context.Context, accountID id.AccountID, _ string) (string, time.Time, error) {
	return "token-" + accountID.String(), time.Now().Add(7 * 24 * time.Hour), nil
}

func newRouter(t *testing.T) (chi.Router, *account.InMemory) {
	t.Helper()
	store := account.NewInMemory()
	svc, err := service.New(store)
	require.NoError(t, err)

	h := New(svc, stubIssuer{}, slog.Default())
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterAuthenticated(r)
	return r, store
}

func registerBody() map[string]any {
	return map[string]any{
		"email":         "Asha@Example.com",
		"password":      "correct-horse",
		"full_name":     "Asha Rao",
		"date_of_birth": "1990-05-17",
		"phone":         "+919876543210",
		"address": map[string]string{
			"line1": "12 MG Road", "city": "Bengaluru", "state": "KA", "pincode": "560001",
		},
	}
}

func TestRegisterAndLogin(t *testing.T) {
	router, _ := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/accounts", registerBody()))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.NotContains(t, rr.Body.String(), "credential_hash")
	assert.NotContains(t, rr.Body.String(), "$2a$")

	created := testutil.UnmarshalResponse[SessionResponse](t, rr)
	assert.Equal(t, "asha@example.com", created.Account.Email)
	assert.Equal(t, "Bearer", created.TokenType)
	assert.NotEmpty(t, created.AccessToken)
	assert.False(t, created.Account.Verified)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/accounts", registerBody()))
	testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/sessions",
		map[string]string{"email": "asha@example.com", "password": "correct-horse"}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	loggedIn := testutil.UnmarshalResponse[SessionResponse](t, rr)
	assert.NotNil(t, loggedIn.Account.LastLogin)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/sessions",
		map[string]string{"email": "asha@example.com", "password": "wrong-horse"}))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func TestRegisterValidation(t *testing.T) {
	router, _ := newRouter(t)

	body := registerBody()
	body["date_of_birth"] = "17/05/1990"
	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/accounts", body))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(router, testutil.NewRequestWithBody(t, http.MethodPost, "/accounts", "{not json"))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestMeAndIdentityBinding(t *testing.T) {
	router, _ := newRouter(t)

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/accounts", registerBody()))
	require.Equal(t, http.StatusCreated, rr.Code)
	first := testutil.UnmarshalResponse[SessionResponse](t, rr).Account
	firstID, err := id.ParseAccountID(first.ID)
	require.NoError(t, err)

	other := registerBody()
	other["email"] = "ravi@example.com"
	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/accounts", other))
	require.Equal(t, http.StatusCreated, rr.Code)
	secondID, err := id.ParseAccountID(testutil.UnmarshalResponse[SessionResponse](t, rr).Account.ID)
	require.NoError(t, err)

	t.Run("me requires an account in context", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/me", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("me returns the account", func(t *testing.T) {
		req := testutil.WithAccount(testutil.NewJSONRequest(t, http.MethodGet, "/accounts/me", nil), firstID, first.Email)
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code)
		me := testutil.UnmarshalResponse[AccountResponse](t, rr)
		assert.Equal(t, "1990-05-17", me.Profile.DateOfBirth)
	})

	bind := map[string]any{
		"fingerprint": "nullifier-123",
		"attributes": map[string]any{
			"age_over_18": true, "state": "KA", "pincode": "560001",
			"signal_hash": "0xabc", "proof_timestamp": "2026-03-01T10:00:00Z",
		},
	}

	t.Run("bind marks the account verified without exposing the fingerprint", func(t *testing.T) {
		req := testutil.WithAccount(testutil.NewJSONRequest(t, http.MethodPost, "/accounts/me/identity-binding", bind), firstID, "")
		rr := testutil.DoRequest(router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.NotContains(t, rr.Body.String(), "nullifier-123")
		assert.True(t, testutil.UnmarshalResponse[AccountResponse](t, rr).Verified)
	})

	t.Run("same identity on another account is a conflict", func(t *testing.T) {
		req := testutil.WithAccount(testutil.NewJSONRequest(t, http.MethodPost, "/accounts/me/identity-binding", bind), secondID, "")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "conflict")
	})
}
