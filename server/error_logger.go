package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/floodapi"
)

// ErrorLogEntry is one line of the error log: a 5xx response, or an upstream
// failure that was answered with a warning. Upstream is the status the flood
// API returned, zero for transport failures.
type ErrorLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Status    int       `json:"status"`
	Method    string    `json:"method"`
	Route     string    `json:"route"`
	URL       string    `json:"url"`
	Station   string    `json:"station,omitempty"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Duration  string    `json:"duration"`
	Error     string    `json:"error,omitempty"`
	Upstream  int       `json:"upstream_status,omitempty"`
}

var (
	errorLogFile   *os.File
	errorLogMutex  sync.Mutex
	errorLogPath   string
	errorLogWriter *json.Encoder
)

// InitErrorLogger opens the JSONL error log in logDir, the temp dir when empty
func InitErrorLogger(logDir string) error {
	errorLogMutex.Lock()
	defer errorLogMutex.Unlock()

	if logDir == "" {
		logDir = os.TempDir()
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	errorLogPath = filepath.Join(logDir, "flood-live-errors.jsonl")

	file, err := os.OpenFile(errorLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open error log file: %w", err)
	}

	errorLogFile = file
	errorLogWriter = json.NewEncoder(file)

	return nil
}

// LogError appends a failed request to the error log. It is a no-op until
// InitErrorLogger succeeds.
func LogError(status int, method, route, rawURL, ip, userAgent string, duration time.Duration, err error) {
	errorLogMutex.Lock()
	defer errorLogMutex.Unlock()

	if errorLogWriter == nil {
		return
	}

	entry := ErrorLogEntry{
		Timestamp: time.Now(),
		Status:    status,
		Method:    method,
		Route:     route,
		URL:       rawURL,
		IP:        ip,
		UserAgent: userAgent,
		Duration:  duration.String(),
	}

	if u, parseErr := url.Parse(rawURL); parseErr == nil {
		entry.Station = u.Query().Get("station")
	}
	if err != nil {
		entry.Error = err.Error()
		var fetchErr *floodapi.FetchError
		if errors.As(err, &fetchErr) {
			entry.Upstream = fetchErr.StatusCode
		}
	}

	_ = errorLogWriter.Encode(entry)
	_ = errorLogFile.Sync()
}

// LogUpstreamFailure records a fetch error that a handler turned into an
// advisory warning. The response itself is still a 200.
func LogUpstreamFailure(c echo.Context, err error) {
	req := c.Request()
	LogError(http.StatusOK, req.Method, c.Path(), req.RequestURI, c.RealIP(), req.UserAgent(), 0, err)
}

// GetErrorLogPath returns the path to the error log file
func GetErrorLogPath() string {
	errorLogMutex.Lock()
	defer errorLogMutex.Unlock()
	return errorLogPath
}

// CloseErrorLogger closes the error log file
func CloseErrorLogger() error {
	errorLogMutex.Lock()
	defer errorLogMutex.Unlock()

	if errorLogFile != nil {
		err := errorLogFile.Close()
		errorLogFile = nil
		errorLogWriter = nil
		return err
	}
	return nil
}
