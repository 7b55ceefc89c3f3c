package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminadapters "civicchain/internal/admin/adapters"
	adminhandler "civicchain/internal/admin/handler"
	adminservice "civicchain/internal/admin/service"
	"civicchain/internal/admin/store/lockout"
	"civicchain/internal/admin/store/session"
	grievanceadapters "civicchain/internal/grievance/adapters"
	grievancehandler "civicchain/internal/grievance/handler"
	grievanceservice "civicchain/internal/grievance/service"
	grievancestore "civicchain/internal/grievance/store/grievance"
	identityhandler "civicchain/internal/identity/handler"
	identityservice "civicchain/internal/identity/service"
	"civicchain/internal/identity/store/account"
	jwttoken "civicchain/internal/jwt_token"
	"civicchain/internal/platform/config"
	platformmetrics "civicchain/internal/platform/metrics"
	suggestionhandler "civicchain/internal/suggestion/handler"
	suggestionservice "civicchain/internal/suggestion/service"
	adminmw "civicchain/pkg/platform/middleware/admin"
	"civicchain/pkg/platform/secrets"
	"civicchain/pkg/testutil"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRouter(t *testing.T, clock *testClock, health *Health) http.Handler {
	t.Helper()
	logger := slog.Default()
	cfg := config.Default()

	hash, err := secrets.Hash("operator-secret")
	require.NoError(t, err)
	cfg.Admin.Operators = config.Operators{{Email: "ops@example.gov", PasswordHash: hash, Name: "Ops"}}

	accounts, err := identityservice.New(account.NewInMemory())
	require.NoError(t, err)
	tokens := jwttoken.NewJWTService("router-test-signing-key-0123456789", "civicchain", jwttoken.WithClock(clock.Now))

	admins, err := adminservice.New(session.NewInMemory(), lockout.NewInMemory(), cfg.Admin)
	require.NoError(t, err)

	suggestions := suggestionservice.New()
	grievances, err := grievanceservice.New(grievancestore.NewInMemory(), cfg.Grievance,
		grievanceservice.WithSuggester(grievanceadapters.NewSuggestionAdapter(suggestions)),
		grievanceservice.WithAccountCounter(accounts),
	)
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	return NewRouter(Dependencies{
		Logger:           logger,
		TokenValidator:   jwttoken.NewJWTServiceAdapter(tokens),
		SessionValidator: adminadapters.NewSessionValidatorAdapter(admins),
		Identity:         identityhandler.New(accounts, tokens, logger),
		Admin:            adminhandler.New(admins, logger),
		Grievances:       grievancehandler.New(grievances, logger),
		Suggestions:      suggestionhandler.New(suggestions, logger),
		Health:           health,
		HTTPMetrics:      platformmetrics.NewHTTPMetrics(reg),
		MetricsHandler:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSOrigins:      []string{"*"},
		Clock:            clock.Now,
	})
}

func bearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func operator(req *http.Request, sessionID string) *http.Request {
	req.Header.Set(adminmw.SessionHeader, sessionID)
	return req
}

func TestGrievanceLifecycleScenario(t *testing.T) {
	clock := &testClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
	router := newTestRouter(t, clock, nil)

	var (
		token       string
		adminID     string
		grievanceID string
	)

	testutil.Given(t, "a registered citizen alice@example.com", func(t *testing.T) {
		rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/accounts", map[string]any{
			"email":         "alice@example.com",
			"password":      "wonderland",
			"full_name":     "Alice Liddell",
			"date_of_birth": "1992-07-04",
			"phone":         "+919812345678",
			"address":       map[string]string{"line1": "1 Rabbit Lane", "city": "Panaji", "state": "GA", "pincode": "403001"},
		}))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		token = testutil.UnmarshalResponse[identityhandler.SessionResponse](t, rr).AccessToken
		require.NotEmpty(t, token)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/admin/sessions",
			map[string]string{"email": "ops@example.gov", "password": "operator-secret"}))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		adminID = testutil.UnmarshalResponse[adminhandler.SessionResponse](t, rr).SessionID
	})

	testutil.When(t, "she raises grievance G1 without a department", func(t *testing.T) {
		rr := testutil.DoRequest(router, bearer(testutil.NewJSONRequest(t, http.MethodPost, "/grievances", map[string]any{
			"description": "No water supply in ward 7 for three days",
			"region":      "Goa",
			"reporter":    map[string]string{"name": "Alice Liddell"},
		}), token))
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		g := testutil.UnmarshalResponse[grievancehandler.GrievanceResponse](t, rr)
		grievanceID = g.GrievanceID

		testutil.Then(t, "it is raised with one timeline entry and a suggested department", func(t *testing.T) {
			assert.Equal(t, "raised", g.Status)
			assert.Len(t, g.Timeline, 1)
			assert.Equal(t, "water-supply", g.Department)
			assert.Equal(t, "medium", g.Priority)
			assert.Equal(t, "alice@example.com", g.Reporter.Email)
		})
	})

	testutil.When(t, "an operator moves G1 to in_progress", func(t *testing.T) {
		rr := testutil.DoRequest(router, operator(testutil.NewJSONRequest(t, http.MethodPatch,
			"/grievances/"+grievanceID+"/status", map[string]string{"status": "in_progress"}), adminID))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		g := testutil.UnmarshalResponse[grievancehandler.GrievanceResponse](t, rr)

		testutil.Then(t, "the timeline has two entries", func(t *testing.T) {
			assert.Equal(t, "in_progress", g.Status)
			assert.Len(t, g.Timeline, 2)
		})
	})

	testutil.When(t, "the operator resolves G1 with a note", func(t *testing.T) {
		clock.Advance(10 * time.Minute)
		rr := testutil.DoRequest(router, operator(testutil.NewJSONRequest(t, http.MethodPatch,
			"/grievances/"+grievanceID+"/status", map[string]string{"status": "resolved", "note": "fixed"}), adminID))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		g := testutil.UnmarshalResponse[grievancehandler.GrievanceResponse](t, rr)

		testutil.Then(t, "the timeline has three entries ending with the note", func(t *testing.T) {
			assert.Equal(t, "resolved", g.Status)
			require.Len(t, g.Timeline, 3)
			assert.Equal(t, "fixed", g.Timeline[2].Note)
			assert.Equal(t, "1200", rr.Header().Get(adminmw.ExpiresInHeader))
		})
	})

	testutil.Then(t, "her own listing and the aggregate include G1", func(t *testing.T) {
		rr := testutil.DoRequest(router, bearer(testutil.NewJSONRequest(t, http.MethodGet, "/accounts/me/grievances", nil), token))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 1, testutil.UnmarshalResponse[grievancehandler.ListResponse](t, rr).Total)

		rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodGet, "/aggregate", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		agg := testutil.UnmarshalResponse[grievancehandler.AggregateResponse](t, rr)
		assert.Equal(t, 1, agg.TotalAccounts)
		assert.Equal(t, map[string]int{"resolved": 1}, agg.TotalByStatus)
	})

	testutil.When(t, "the operator session runs past 30 minutes", func(t *testing.T) {
		clock.Advance(21 * time.Minute)
		rr := testutil.DoRequest(router, operator(testutil.NewJSONRequest(t, http.MethodPatch,
			"/grievances/"+grievanceID+"/status", map[string]string{"status": "raised"}), adminID))

		testutil.Then(t, "privileged requests are rejected", func(t *testing.T) {
			testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
		})
	})
}

func TestRouteGuards(t *testing.T) {
	clock := &testClock{now: time.Now()}
	router := newTestRouter(t, clock, nil)

	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{"create needs a citizen token", http.MethodPost, "/grievances", http.StatusUnauthorized},
		{"suggestions need a citizen token", http.MethodPost, "/suggestions", http.StatusUnauthorized},
		{"status change needs an admin session", http.MethodPatch, "/grievances/GRV-2026-000001/status", http.StatusUnauthorized},
		{"bulk change needs an admin session", http.MethodPost, "/grievances/bulk-status", http.StatusUnauthorized},
		{"session status needs an admin session", http.MethodGet, "/admin/sessions/current", http.StatusUnauthorized},
		{"listing is public", http.MethodGet, "/grievances", http.StatusOK},
		{"aggregate is public", http.MethodGet, "/aggregate", http.StatusOK},
		{"metrics are exposed", http.MethodGet, "/metrics", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}

	t.Run("a citizen token is not an admin session", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/grievances/bulk-status", map[string]any{"ids": []string{"x"}, "status": "resolved"})
		req = bearer(req, "anything")
		rr := testutil.DoRequest(router, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestHealth(t *testing.T) {
	clock := &testClock{now: time.Now()}

	t.Run("all checks pass", func(t *testing.T) {
		health := NewHealth(slog.Default()).Add("postgres", func(context.Context) error { return nil })
		rr := testutil.DoRequest(newTestRouter(t, clock, health), testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		body := testutil.UnmarshalResponse[HealthResponse](t, rr)
		assert.Equal(t, "ok", body.Status)
		assert.Equal(t, "ok", body.Checks["postgres"])
	})

	t.Run("a failing check degrades", func(t *testing.T) {
		health := NewHealth(slog.Default()).
			Add("postgres", func(context.Context) error { return nil }).
			Add("redis", func(context.Context) error { return errors.New("connection refused") })
		rr := testutil.DoRequest(newTestRouter(t, clock, health), testutil.NewJSONRequest(t, http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusServiceUnavailable, rr.Code)
		body := testutil.UnmarshalResponse[HealthResponse](t, rr)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "unavailable", body.Checks["redis"])
	})
}
