package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/metrics"
)

const defaultMaxAge = 30 * time.Second

// CacheConfig describes what a response's ETag is derived from
type CacheConfig struct {
	// Components make up the ETag. A component with a string ETag field (such
	// as *store.Snapshot) contributes that field; anything else is hashed with
	// StableJSONHash.
	Components []interface{}

	// MaxAge is how long shared caches may serve the response without
	// revalidating. Zero means 30s.
	MaxAge time.Duration

	// DevMode disables caching when true
	DevMode bool
}

// SetCacheHeaders sets cache headers and the ETag for the response and
// reports whether the request's If-None-Match already matches, in which case
// the caller should answer 304. Content-Type must already be set.
func SetCacheHeaders(c echo.Context, config CacheConfig) (string, bool, error) {
	header := c.Response().Header()
	if header.Get("Content-Type") == "" {
		return "", false, errors.New("Content-Type must be set before calling SetCacheHeaders")
	}

	format := "html"
	if strings.HasSuffix(c.Request().URL.Path, ".json") {
		format = "json"
	}
	etag := buildCompositeETag(config.Components, format)

	if config.DevMode {
		setNoStore(c)
		return etag, false, nil
	}

	maxAge := config.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	seconds := int(maxAge / time.Second)
	header.Set("Cache-Control", fmt.Sprintf("public, max-age=%d, stale-while-revalidate=%d, must-revalidate", seconds, 2*seconds))
	header.Set("ETag", etag)
	header.Set("Vary", "Accept")

	if c.Request().Header.Get("If-None-Match") == etag {
		metrics.CacheHits.WithLabelValues(c.Path()).Inc()
		return etag, true, nil
	}
	return etag, false, nil
}

// setNoStore marks a response as uncacheable, used for dev mode and for
// responses carrying an upstream warning
func setNoStore(c echo.Context) {
	header := c.Response().Header()
	header.Set("Cache-Control", "no-cache, no-store, must-revalidate, private")
	header.Set("Pragma", "no-cache")
	header.Set("Expires", "0")
}

// notModified answers a conditional request whose ETag matched
func notModified(c echo.Context) error {
	return c.NoContent(http.StatusNotModified)
}

// buildCompositeETag joins the build version, each component's hash and the
// response format
func buildCompositeETag(components []interface{}, format string) string {
	parts := []string{GetVersionString()}

	for _, component := range components {
		if component == nil {
			continue
		}

		hash := etagField(component)
		if hash == "" {
			var err error
			if hash, err = StableJSONHash(component); err != nil {
				continue
			}
		}
		if hash = strings.Trim(hash, "\""); hash != "" {
			parts = append(parts, hash)
		}
	}

	parts = append(parts, format)
	return "\"" + strings.Join(parts, "-") + "\""
}

// etagField returns the ETag string field of a struct or struct pointer
func etagField(component interface{}) string {
	v := reflect.ValueOf(component)
	if v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return ""
	}

	field := v.FieldByName("ETag")
	if !field.IsValid() || field.Kind() != reflect.String {
		return ""
	}
	return field.String()
}
