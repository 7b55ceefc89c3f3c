// Package httptransport assembles the module handlers into one chi router
// with the shared middleware stack.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	adminhandler "civicchain/internal/admin/handler"
	grievancehandler "civicchain/internal/grievance/handler"
	identityhandler "civicchain/internal/identity/handler"
	platformmetrics "civicchain/internal/platform/metrics"
	suggestionhandler "civicchain/internal/suggestion/handler"
	adminmw "civicchain/pkg/platform/middleware/admin"
	authmw "civicchain/pkg/platform/middleware/auth"
	"civicchain/pkg/platform/middleware/metadata"
	"civicchain/pkg/platform/middleware/requesttime"
)

type Dependencies struct {
	Logger           *slog.Logger
	TokenValidator   authmw.TokenValidator
	SessionValidator adminmw.SessionValidator

	Identity    *identityhandler.Handler
	Admin       *adminhandler.Handler
	Grievances  *grievancehandler.Handler
	Suggestions *suggestionhandler.Handler

	Health         *Health
	HTTPMetrics    *platformmetrics.HTTPMetrics
	MetricsHandler http.Handler
	CORSOrigins    []string

	// Clock pins the request time; nil means time.Now.
	Clock func() time.Time
}

func NewRouter(deps Dependencies) http.Handler {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.MiddlewareWithClock(clock))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", adminmw.SessionHeader},
		ExposedHeaders: []string{adminmw.ExpiresInHeader, adminmw.WarningHeader, middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	if deps.HTTPMetrics != nil {
		r.Use(deps.HTTPMetrics.Middleware)
	}

	if deps.Health != nil {
		r.Get("/health", deps.Health.Handle)
	}
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	deps.Identity.RegisterPublic(r)
	deps.Admin.RegisterPublic(r)
	deps.Grievances.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireAuth(deps.TokenValidator, deps.Logger))
		deps.Identity.RegisterAuthenticated(r)
		deps.Grievances.RegisterAuthenticated(r)
		deps.Suggestions.RegisterAuthenticated(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(adminmw.RequireAdminSession(deps.SessionValidator, deps.Logger))
		deps.Admin.RegisterAuthenticated(r)
		deps.Grievances.RegisterAdmin(r)
	})

	return r
}
