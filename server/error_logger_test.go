package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stefanpenner/flood-live/floodapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readErrorLog(t *testing.T, dir string) []ErrorLogEntry {
	t.Helper()

	data, err := os.ReadFile(filepath.Join(dir, "flood-live-errors.jsonl"))
	require.NoError(t, err)

	var entries []ErrorLogEntry
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if line == "" {
			continue
		}
		var entry ErrorLogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &entry))
		entries = append(entries, entry)
	}
	return entries
}

func TestLogUpstreamFailure(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, InitErrorLogger(dir))
	t.Cleanup(func() { _ = CloseErrorLogger() })

	srv, catalog, readings := setupTestServer(t)

	readings.err = &floodapi.FetchError{Endpoint: "readings", StatusCode: http.StatusInternalServerError}
	rec := get(srv, "/readings.json?station=Cambridge")
	require.Equal(t, http.StatusOK, rec.Code)

	catalog.err = &floodapi.FetchError{Endpoint: "stations", Err: errors.New("connection refused")}
	rec = get(srv, "/")
	require.Equal(t, http.StatusOK, rec.Code)

	entries := readErrorLog(t, dir)
	require.Len(t, entries, 2)

	assert.Equal(t, http.StatusOK, entries[0].Status)
	assert.Equal(t, "/readings.json", entries[0].Route)
	assert.Equal(t, "Cambridge", entries[0].Station)
	assert.Equal(t, http.StatusInternalServerError, entries[0].Upstream)
	assert.Contains(t, entries[0].Error, "upstream returned status 500")

	assert.Equal(t, "/", entries[1].Route)
	assert.Zero(t, entries[1].Upstream, "transport failures carry no upstream status")
	assert.Contains(t, entries[1].Error, "connection refused")
}

func TestLogError_NoopBeforeInit(t *testing.T) {
	require.NoError(t, CloseErrorLogger())
	assert.NotPanics(t, func() {
		LogError(http.StatusBadGateway, http.MethodGet, "/", "/", "127.0.0.1", "test", 0, errors.New("boom"))
	})
}
