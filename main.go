// Package main is the entry point for the flood.live station monitor
package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/stefanpenner/flood-live/floodapi"
	filesystem "github.com/stefanpenner/flood-live/fs"
	"github.com/stefanpenner/flood-live/logger"
	"github.com/stefanpenner/flood-live/metrics"
	"github.com/stefanpenner/flood-live/server"
	"github.com/stefanpenner/flood-live/store"
	"github.com/stefanpenner/flood-live/ui"
)

const (
	defaultPort              = "3000"
	defaultUpstreamRateLimit = 5.0
	upstreamBurst            = 10
)

type Config struct {
	Port          string
	DevMode       bool
	UpstreamURL   string
	CatalogTTL    time.Duration
	FetchTimeout  time.Duration
	ReadingsLimit int
	RateLimit     float64
	ErrorLogDir   string
}

func isDevMode() bool {
	return os.Getenv("DEV_MODE") == "1" || os.Getenv("DEV_MODE") == "true"
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			return f
		}
	}
	return fallback
}

func loadConfig() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	upstream := os.Getenv("FLOOD_API_BASE_URL")
	if upstream == "" {
		upstream = floodapi.DefaultBaseURL
	}

	return Config{
		Port:          port,
		DevMode:       isDevMode(),
		UpstreamURL:   upstream,
		CatalogTTL:    envDuration("CATALOG_TTL", store.DefaultCatalogTTL),
		FetchTimeout:  envDuration("FETCH_TIMEOUT", floodapi.DefaultTimeout),
		ReadingsLimit: envInt("READINGS_LIMIT", store.DefaultReadingsLimit),
		RateLimit:     envFloat("UPSTREAM_RATE_LIMIT", defaultUpstreamRateLimit),
		ErrorLogDir:   os.Getenv("ERROR_LOG_DIR"),
	}
}

// getBaseDir returns the directory containing the binary or working directory in dev mode
func getBaseDir() (string, error) {
	if isDevMode() {
		return os.Getwd()
	}

	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	exeDir := filepath.Dir(exe)

	// Container deployment ships templates next to the binary
	if _, err := os.Stat(filepath.Join(exeDir, "templates")); err == nil {
		return exeDir, nil
	}

	return os.Getwd()
}

// loadFilesystem returns subdir of the base directory and its path on disk
func loadFilesystem(subdir string) (fs.FS, string, error) {
	baseDir, err := getBaseDir()
	if err != nil {
		return nil, "", fmt.Errorf("failed to get base directory: %w", err)
	}

	path := filepath.Join(baseDir, subdir)
	return os.DirFS(path), path, nil
}

// initSentry initializes Sentry if DSN is provided and not in dev mode
// Returns true if Sentry was initialized
func initSentry(devMode bool) bool {
	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" || devMode {
		return false
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      "production",
		Release:          server.Version,
		EnableTracing:    true,
		TracesSampleRate: 1.0,
		AttachStacktrace: true,
	})
	if err != nil {
		log.Fatalf("sentry.Init: %s", err)
	}

	logger.SetSentryCaptureException(func(err error) interface{} {
		return sentry.CaptureException(err)
	})

	return true
}

func printHelp() {
	fmt.Println("flood.live station monitor")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  flood-live        Start the web server (default)")
	fmt.Println("  flood-live help   Show this help message")
	fmt.Println("")
	fmt.Println("Environment (also read from .env):")
	fmt.Println("  PORT, DEV_MODE, FLOOD_API_BASE_URL, CATALOG_TTL, FETCH_TIMEOUT,")
	fmt.Println("  READINGS_LIMIT, UPSTREAM_RATE_LIMIT, ERROR_LOG_DIR, SENTRY_DSN")
}

// statsTracker turns catalog refreshes into HUD stats
type statsTracker struct {
	mu               sync.Mutex
	requests         *int64
	errors           *int64
	refreshes        int
	failures         int
	lastRequestCount int64
	lastCheckTime    time.Time
	last             ui.Stats
}

func (t *statsTracker) onRefresh(summary logger.CatalogSummary, status store.CatalogStatus) ui.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	currentReqs := atomic.LoadInt64(t.requests)
	elapsed := time.Since(t.lastCheckTime).Seconds()
	reqPerSec := 0.0
	if elapsed > 0 {
		reqPerSec = float64(currentReqs-t.lastRequestCount) / elapsed
	}
	t.lastRequestCount = currentReqs
	t.lastCheckTime = time.Now()

	stats := t.last
	stats.CatalogDuration = summary.Duration
	stats.RequestsTotal = int(currentReqs)
	stats.RequestsPerSec = reqPerSec
	errs := atomic.LoadInt64(t.errors)
	stats.ErrorCount = int(errs)
	stats.ErrorRate = metrics.CalculateErrorRate(float64(currentReqs), float64(errs), 0, 0).ErrorRate
	stats.MemoryUsageMB = metrics.RecordMemoryUsage()
	stats.GoroutineCount = runtime.NumGoroutine()

	if summary.Err != nil {
		t.failures++
		stats.CatalogError = summary.Err.Error()
		stats.CatalogFailures = t.failures
	} else {
		t.refreshes++
		stats.Stations = summary.Labelled
		stats.Mapped = summary.Mapped
		stats.Duplicates = summary.Duplicates
		stats.LastCatalogFetch = status.FetchedAt
		stats.CatalogExpires = status.Expires
		stats.CatalogError = ""
		stats.CatalogRefreshes = t.refreshes
	}

	t.last = stats
	return stats
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("ignoring .env: %v", err)
	}

	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	config := loadConfig()

	// Initialize Sentry early, before any other operations
	sentryEnabled := initSentry(config.DevMode)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	staticFS, _, err := loadFilesystem("static")
	if err != nil {
		logger.Fatal(err, "failed to load static files: %v", err)
	}

	tmplFS, tmplDir, err := loadFilesystem("templates")
	if err != nil {
		logger.Fatal(err, "failed to load templates: %v", err)
	}

	// Initialize TUI with HUD (before any logging)
	hasUI := ui.Initialize(server.Version, config.Port, config.UpstreamURL, config.CatalogTTL)
	if hasUI {
		logger.SetUIMode(true)
		logger.Log = ui.AddLog
	} else {
		logger.PrintBanner(server.Version, server.BuildTime, config.UpstreamURL)
	}

	if config.DevMode {
		logger.Info("🔥 DEV MODE: Hot reload enabled - files served from disk")
		if !hasUI {
			_ = filesystem.Print(os.Stdout, "templates", tmplFS)
			_ = filesystem.Print(os.Stdout, "static", staticFS)
		}
	}

	if err := server.InitErrorLogger(config.ErrorLogDir); err != nil {
		logger.Warn("Error log disabled: %v", err)
	} else {
		logger.Muted("Logging 5xx responses to %s", server.GetErrorLogPath())
	}

	client := floodapi.NewClient(config.UpstreamURL,
		floodapi.WithTimeout(config.FetchTimeout),
		floodapi.WithRateLimit(config.RateLimit, upstreamBurst),
	)
	catalog := store.NewCatalog(client,
		store.WithTTL(config.CatalogTTL),
		store.WithFetchTimeout(config.FetchTimeout),
	)
	readings := store.NewReadings(client, store.WithReadingsTimeout(config.FetchTimeout))

	var requestCount int64
	var errorCount int64
	tracker := &statsTracker{requests: &requestCount, errors: &errorCount, lastCheckTime: time.Now()}

	catalog.SetRefreshCallback(func(summary logger.CatalogSummary) {
		stats := tracker.onRefresh(summary, catalog.Status())
		if hasUI {
			ui.UpdateStats(stats)
		}
	})

	if hasUI {
		server.LogWriter = ui.AddLog
	}
	server.RequestCounter = &requestCount
	server.ErrorCounter = &errorCount
	app, err := server.Start(server.ServerConfig{
		Catalog:       catalog,
		Readings:      readings,
		StaticFS:      staticFS,
		TemplateFS:    tmplFS,
		TemplateDir:   tmplDir,
		DevMode:       config.DevMode,
		SentryEnabled: sentryEnabled,
		ReadingsLimit: config.ReadingsLimit,
	})
	if err != nil {
		logger.Fatal(err)
	}

	// Warm the catalog so the first page view and the healthcheck don't wait
	logger.Info("Fetching station catalog...")
	go func() {
		_, _ = catalog.Fetch(ctx)
	}()

	if !hasUI {
		logger.ServerInfo{
			Port:          config.Port,
			UpstreamURL:   client.BaseURL(),
			CatalogTTL:    config.CatalogTTL,
			ReadingsLimit: config.ReadingsLimit,
		}.Print()
	}

	logger.Success("Server listening on http://localhost:%s", config.Port)
	if hasUI {
		logger.Info("Press Ctrl+C or 'q' to stop")
		ui.SetReady()
	} else {
		logger.Info("Press Ctrl+C to stop")
	}

	go func() {
		if err := app.Start(":" + config.Port); err != nil && err != http.ErrServerClosed {
			logger.Error(err, "Server error: %v", err)
			sigChan <- syscall.SIGTERM
		}
	}()

	<-sigChan
	cancel()

	logger.Info("Shutting down gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Error(err, "error during shutdown: %v", err)
	}
	ui.Shutdown()
	_ = server.CloseErrorLogger()

	sentry.Flush(2 * time.Second)

	logger.Success("Goodbye!")
	fmt.Println()
}
