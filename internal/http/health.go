package httpapi

import (
	"context"
	"net/http"
	"time"
)

// Health GET /health：逐项检查依赖，任一失败返回 503
func (h *PortalHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.checks))
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[c.Name] = "ok"
	}

	if status != http.StatusOK {
		writeJSON(w, status, FailWith(ResultError, "unhealthy", checks))
		return
	}
	writeJSON(w, status, Ok(checks))
}
