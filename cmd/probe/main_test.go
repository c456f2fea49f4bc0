package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeUpstream(t *testing.T, stationsStatus int) *httptest.Server {
	t.Helper()

	recent := time.Now().UTC().Add(-time.Hour)
	older := recent.Add(-30 * time.Minute)
	stale := recent.Add(-48 * time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/id/stations":
			if stationsStatus != http.StatusOK {
				w.WriteHeader(stationsStatus)
				return
			}
			_, _ = w.Write([]byte(`{"items":[
				{"@id":"E1","label":"Cambridge","lat":52.2,"long":0.12},
				{"@id":"E2","label":"Ely","lat":52.4,"long":0.26},
				{"@id":"E3","label":"Ely","lat":52.41,"long":0.27}
			]}`))
		case strings.HasSuffix(r.URL.Path, "/E1/readings"):
			fmt.Fprintf(w, `{"items":[
				{"dateTime":%q,"value":0.412,"measure":"http://x/id/measures/E1-level-stage-i-15_min-mASD"},
				{"dateTime":%q,"value":0.398,"measure":"http://x/id/measures/E1-level-stage-i-15_min-mASD"},
				{"dateTime":%q,"value":1.75,"measure":"http://x/id/measures/E1-flow--Mean-15_min-m3_s"},
				{"dateTime":%q,"value":9.9,"measure":"http://x/id/measures/E1-flow--Mean-15_min-m3_s"}
			]}`,
				recent.Format(time.RFC3339), older.Format(time.RFC3339),
				recent.Format(time.RFC3339), stale.Format(time.RFC3339))
		default:
			_, _ = w.Write([]byte(`{"items":[]}`))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Catalog(t *testing.T) {
	upstream := fakeUpstream(t, http.StatusOK)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-base", upstream.URL}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Stations:")
	assert.Contains(t, text, "Mapped:")
	assert.Contains(t, text, "Duplicate labels:")
	assert.Contains(t, text, "Ely")
	assert.NotContains(t, text, "readings (last 24h)")
}

func TestRun_StationReadings(t *testing.T) {
	upstream := fakeUpstream(t, http.StatusOK)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-base", upstream.URL, "-station", "Cambridge"}, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "Cambridge readings (last 24h)")
	assert.Contains(t, text, "Showing 3 readings")
	assert.Contains(t, text, "E1-level-stage-i-15_min-mASD")
	assert.Contains(t, text, "E1-flow--Mean-15_min-m3_s")
	assert.Contains(t, text, "0.412")
	assert.Contains(t, text, "1.75")
	assert.NotContains(t, text, "9.9", "readings older than 24h are dropped")
}

func TestRun_NoReadings(t *testing.T) {
	upstream := fakeUpstream(t, http.StatusOK)

	var out bytes.Buffer
	err := run(context.Background(), []string{"-base", upstream.URL, "-station", "Ely"}, &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "There are no readings available for this station.")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		args    []string
		wantErr string
	}{
		{name: "upstream failure", status: http.StatusInternalServerError, wantErr: "fetch stations"},
		{name: "unknown station", status: http.StatusOK, args: []string{"-station", "Nowhere"}, wantErr: `unknown station "Nowhere"`},
		{name: "bad flag", status: http.StatusOK, args: []string{"-limit", "lots"}, wantErr: "invalid value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upstream := fakeUpstream(t, tt.status)

			var out bytes.Buffer
			err := run(context.Background(), append([]string{"-base", upstream.URL}, tt.args...), &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRun_Help(t *testing.T) {
	var out bytes.Buffer
	err := run(context.Background(), []string{"-h"}, &out)
	assert.ErrorIs(t, err, flag.ErrHelp)
	assert.Contains(t, out.String(), "-station")
}
