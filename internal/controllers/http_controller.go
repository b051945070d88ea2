package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const healthTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HTTPController struct {
	Checks  []HealthCheck
	Metrics http.Handler
	Logger  *zap.Logger
}

func NewHTTPController(metrics http.Handler, logger *zap.Logger, checks ...HealthCheck) *HTTPController {
	return &HTTPController{Checks: checks, Metrics: metrics, Logger: logger}
}

func (c *HTTPController) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", c.HealthCheck)
	if c.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", c.Metrics)
	}
	return r
}

func (c *HTTPController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	failed := map[string]string{}
	for _, check := range c.Checks {
		if err := check.Check(ctx); err != nil {
			failed[check.Name] = err.Error()
		}
	}

	if len(failed) == 0 {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "OK")
		return
	}

	c.Logger.Warn("health check failed", zap.Any("failed", failed))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	if err := json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "unavailable",
		"failed": failed,
	}); err != nil {
		c.Logger.Error("failed to encode health response", zap.Error(err))
	}
}
