package handler

import (
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civicchain/internal/grievance/service"
	store "civicchain/internal/grievance/store/grievance"
	"civicchain/internal/platform/config"
	id "civicchain/pkg/domain"
	"civicchain/pkg/testutil"
)

type fixture struct {
	router  chi.Router
	citizen id.AccountID
	admin   id.AdminSessionID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	svc, err := service.New(store.NewInMemory(), config.Default().Grievance)
	require.NoError(t, err)

	h := New(svc, slog.Default())
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.RegisterAuthenticated(r)
	h.RegisterAdmin(r)
	return &fixture{router: r, citizen: id.NewAccountID(), admin: id.NewAdminSessionID()}
}

func (f *fixture) asCitizen(req *http.Request) *http.Request {
	return testutil.WithAccount(req, f.citizen, "alice@example.com")
}

func (f *fixture) asAdmin(req *http.Request) *http.Request {
	return testutil.WithAdminSession(req, f.admin, "ops@example.gov")
}

func (f *fixture) create(t *testing.T, region string) *GrievanceResponse {
	t.Helper()
	rr := testutil.DoRequest(f.router, f.asCitizen(testutil.NewJSONRequest(t, http.MethodPost, "/grievances", map[string]any{
		"description": "Open manhole near the school gate",
		"department":  "municipal-services",
		"region":      region,
		"priority":    "urgent",
		"reporter":    map[string]string{"name": "Alice"},
	})))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.UnmarshalResponse[GrievanceResponse](t, rr)
}

func TestCreateAndGet(t *testing.T) {
	f := newFixture(t)
	created := f.create(t, "Goa")
	assert.Equal(t, "raised", created.Status)
	assert.Len(t, created.Timeline, 1)
	assert.Equal(t, "alice@example.com", created.Reporter.Email)

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/grievances/"+created.GrievanceID, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	got := testutil.UnmarshalResponse[GrievanceResponse](t, rr)
	assert.Equal(t, created.GrievanceID, got.GrievanceID)

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/grievances/GRV-2025-999999", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/grievances/garbage", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	rr := testutil.DoRequest(f.router, f.asCitizen(testutil.NewJSONRequest(t, http.MethodPost, "/grievances", map[string]any{
		"department": "electricity",
		"region":     "Goa",
		"reporter":   map[string]string{"name": "Alice"},
	})))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(f.router, f.asCitizen(testutil.NewRequestWithBody(t, http.MethodPost, "/grievances", "{")))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
}

func TestSetStatusAndBulk(t *testing.T) {
	f := newFixture(t)
	first := f.create(t, "Goa")
	second := f.create(t, "Goa")

	rr := testutil.DoRequest(f.router, f.asAdmin(testutil.NewJSONRequest(t, http.MethodPatch,
		"/grievances/"+first.GrievanceID+"/status", map[string]string{"status": "in_progress"})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := testutil.UnmarshalResponse[GrievanceResponse](t, rr)
	assert.Equal(t, "in_progress", updated.Status)
	assert.Equal(t, "Status updated to in_progress", updated.Timeline[1].Note)

	rr = testutil.DoRequest(f.router, f.asAdmin(testutil.NewJSONRequest(t, http.MethodPatch,
		"/grievances/"+first.GrievanceID+"/status", map[string]string{"status": "closed"})))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(f.router, f.asAdmin(testutil.NewJSONRequest(t, http.MethodPost, "/grievances/bulk-status", map[string]any{
		"ids":    []string{first.GrievanceID, "GRV-2025-999999", second.GrievanceID},
		"status": "resolved",
		"note":   "cleared in drive",
	})))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	bulk := testutil.UnmarshalResponse[BulkResponse](t, rr)
	assert.Equal(t, []string{first.GrievanceID, second.GrievanceID}, bulk.Updated)
	assert.Equal(t, []BulkFailureResponse{{GrievanceID: "GRV-2025-999999", Reason: "grievance not found"}}, bulk.Failed)
}

func TestListAndAggregate(t *testing.T) {
	f := newFixture(t)
	f.create(t, "Goa")
	f.create(t, "Assam")
	f.create(t, "Goa")

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/grievances?region=goa&limit=1&page=2", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	list := testutil.UnmarshalResponse[ListResponse](t, rr)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, 2, list.Page)
	assert.Len(t, list.Items, 1)

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/grievances?page=0", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/grievances?page=288230376151711745&limit=50", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")

	rr = testutil.DoRequest(f.router, f.asCitizen(testutil.NewJSONRequest(t, http.MethodGet, "/accounts/me/grievances", nil)))
	require.Equal(t, http.StatusOK, rr.Code)
	mine := testutil.UnmarshalResponse[ListResponse](t, rr)
	assert.Equal(t, 3, mine.Total)

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/accounts/me/grievances", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/aggregate", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	agg := testutil.UnmarshalResponse[AggregateResponse](t, rr)
	assert.Equal(t, 3, agg.TotalGrievances)
	assert.Equal(t, map[string]int{"Goa": 2, "Assam": 1}, agg.TotalByRegion)
	assert.Equal(t, map[string]int{"raised": 3}, agg.TotalByStatus)
}
