package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"civicchain/pkg/platform/httputil"
)

// CheckFunc reports whether one dependency is reachable.
type CheckFunc func(ctx context.Context) error

// Health serves /health from a set of named dependency checks.
type Health struct {
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  *slog.Logger
}

func NewHealth(logger *slog.Logger) *Health {
	return &Health{checks: map[string]CheckFunc{}, timeout: 2 * time.Second, logger: logger}
}

// Add registers a check. Unconfigured dependencies are simply not added.
func (h *Health) Add(name string, check CheckFunc) *Health {
	h.checks[name] = check
	return h
}

type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (h *Health) Handle(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "check", name, "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}
