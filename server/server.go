package server

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"sync/atomic"
	"time"

	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stefanpenner/flood-live/logger"
	"github.com/stefanpenner/flood-live/store"
)

// StationCatalog supplies the normalized station list
type StationCatalog interface {
	Fetch(ctx context.Context) (*store.Snapshot, error)
	Ready() bool
}

// ReadingSource supplies a station's recent readings
type ReadingSource interface {
	Fetch(ctx context.Context, stationID string, limit int) ([]store.Reading, error)
}

// ServerConfig holds everything Start needs
type ServerConfig struct {
	Catalog  StationCatalog
	Readings ReadingSource

	StaticFS   fs.FS
	TemplateFS fs.FS
	// TemplateDir is the on-disk directory behind TemplateFS. When set in dev
	// mode, templates are reparsed whenever a file in it changes.
	TemplateDir string

	DevMode       bool
	SentryEnabled bool
	ReadingsLimit int
}

var (
	// LogWriter receives request log lines when the TUI owns stdout
	LogWriter func(string)
	// RequestCounter and ErrorCounter, when set, count served requests and
	// 5xx responses for the TUI
	RequestCounter *int64
	ErrorCounter   *int64
)

// Start builds the echo app. It does not listen.
func Start(config ServerConfig) (*echo.Echo, error) {
	if config.Catalog == nil || config.Readings == nil {
		return nil, fmt.Errorf("server: catalog and readings are required")
	}
	if config.ReadingsLimit <= 0 {
		config.ReadingsLimit = store.DefaultReadingsLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	renderer, err := NewTemplateRenderer(config.TemplateFS)
	if err != nil {
		return nil, err
	}
	if config.DevMode && config.TemplateDir != "" {
		if err := renderer.Watch(config.TemplateDir); err != nil {
			logger.Warn("Template hot reload disabled: %v", err)
		}
	}
	e.Renderer = renderer

	e.Use(middleware.Recover())
	if config.SentryEnabled {
		e.Use(sentryecho.New(sentryecho.Options{
			Repanic: true,
			Timeout: 2 * time.Second,
		}))
	}
	e.Use(versionHeader)
	e.Use(MetricsMiddleware())
	e.Use(requestLogger())

	e.GET("/", IndexRoute(config))
	e.GET("/stations.json", StationsRoute(config.Catalog, config.DevMode))
	e.GET("/readings.json", ReadingsRoute(config.Catalog, config.Readings, config.ReadingsLimit))
	e.GET("/healthcheck", HealthCheckRoute(config.Catalog))
	e.GET("/_/version", VersionRoute(config.Catalog))
	e.GET("/_/metrics", echo.WrapHandler(promhttp.Handler()))

	if config.StaticFS != nil {
		e.StaticFS("/s", config.StaticFS)
	}

	return e, nil
}

func versionHeader(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("X-Version", GetVersionString())
		return next(c)
	}
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if RequestCounter != nil {
				atomic.AddInt64(RequestCounter, 1)
			}

			if v.Status >= http.StatusInternalServerError {
				if ErrorCounter != nil {
					atomic.AddInt64(ErrorCounter, 1)
				}
				LogError(v.Status, v.Method, c.Path(), v.URI, v.RemoteIP, v.UserAgent, v.Latency, v.Error)
			}

			if LogWriter != nil {
				LogWriter(fmt.Sprintf("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency.Round(time.Millisecond)))
				return nil
			}

			logger.HTTPLogger().Info("request",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency.Round(time.Microsecond),
			)
			return nil
		},
	})
}
