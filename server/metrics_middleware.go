package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/metrics"
)

// MetricsMiddleware records HTTP request metrics for Prometheus
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			metrics.HTTPRequestsInFlight.Inc()
			defer metrics.HTTPRequestsInFlight.Dec()

			start := time.Now()
			err := next(c)
			duration := time.Since(start).Seconds()

			status := c.Response().Status
			var httpErr *echo.HTTPError
			if err != nil && errors.As(err, &httpErr) {
				status = httpErr.Code
			} else if err != nil {
				status = http.StatusInternalServerError
			}

			// Route pattern, not the raw URL, to bound label cardinality
			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			statusStr := strconv.Itoa(status)
			metrics.HTTPRequestDuration.WithLabelValues(c.Request().Method, path, statusStr).Observe(duration)
			metrics.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, statusStr).Inc()
			if status >= http.StatusInternalServerError {
				metrics.ErrorsByType.WithLabelValues("http_5xx").Inc()
			}

			return err
		}
	}
}
