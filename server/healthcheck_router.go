package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/labstack/echo/v4"
)

func HealthCheckRoute(catalog StationCatalog) func(c echo.Context) error {
	return func(c echo.Context) error {
		// Healthy only after the first successful catalog fetch
		if !catalog.Ready() {
			return c.String(http.StatusServiceUnavailable, "Service starting up - station catalog not loaded yet")
		}

		// Smoke test the map page so template and data problems fail the check
		if err := testRoute(c.Echo(), "/", "Flood Monitoring"); err != nil {
			return c.String(http.StatusServiceUnavailable,
				fmt.Sprintf("Healthcheck failed - map route error: %v", err))
		}

		return c.String(http.StatusOK, "OK")
	}
}

// testRoute performs an internal HTTP request to verify a route can render successfully
func testRoute(e *echo.Echo, path string, expectedContent string) error {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()

	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		return fmt.Errorf("returned status %d instead of 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "<!DOCTYPE") {
		return fmt.Errorf("response is not valid HTML (missing DOCTYPE)")
	}
	if !strings.Contains(body, expectedContent) {
		return fmt.Errorf("response missing expected content '%s'", expectedContent)
	}
	if strings.Contains(body, "Failed to fetch stations") {
		return fmt.Errorf("map rendered without stations")
	}

	return nil
}
