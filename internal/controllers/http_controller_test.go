package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bbr/taskbot/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okCheck(name string) HealthCheck {
	return HealthCheck{Name: name, Check: func(context.Context) error { return nil }}
}

func TestHTTPController_Health(t *testing.T) {
	t.Run("reports OK when every dependency answers", func(t *testing.T) {
		ctrl := NewHTTPController(nil, zap.NewNop(), okCheck("postgres"), okCheck("redis"))

		w := httptest.NewRecorder()
		ctrl.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "OK\n", w.Body.String())
	})

	t.Run("names the failing dependency", func(t *testing.T) {
		redisDown := HealthCheck{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }}
		ctrl := NewHTTPController(nil, zap.NewNop(), okCheck("postgres"), redisDown)

		w := httptest.NewRecorder()
		ctrl.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp struct {
			Status string            `json:"status"`
			Failed map[string]string `json:"failed"`
		}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "unavailable", resp.Status)
		assert.Equal(t, map[string]string{"redis": "connection refused"}, resp.Failed)
	})

	t.Run("checks run with a deadline", func(t *testing.T) {
		var hasDeadline bool
		check := HealthCheck{Name: "postgres", Check: func(ctx context.Context) error {
			_, hasDeadline = ctx.Deadline()
			return nil
		}}
		ctrl := NewHTTPController(nil, zap.NewNop(), check)

		w := httptest.NewRecorder()
		ctrl.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.True(t, hasDeadline)
	})
}

func TestHTTPController_Metrics(t *testing.T) {
	m := metrics.New()
	m.IncRateLimited()
	ctrl := NewHTTPController(m.Handler(), zap.NewNop())

	w := httptest.NewRecorder()
	ctrl.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "taskbot_rate_limited_total 1")

	w = httptest.NewRecorder()
	ctrl.Routes().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
