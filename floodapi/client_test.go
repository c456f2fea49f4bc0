package floodapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_FetchStations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/id/stations", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[
			{"@id":"http://x/id/stations/1","label":["A","B"],"lat":[52.1],"long":[0.1]},
			{"@id":"http://x/id/stations/2","label":"Cam","lat":52.2,"long":"0.12"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	stations, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.JSONEq(t, `"http://x/id/stations/1"`, string(stations[0].ID))
	assert.JSONEq(t, `["A","B"]`, string(stations[0].Label))
	assert.JSONEq(t, `[52.1]`, string(stations[0].Lat))
	assert.JSONEq(t, `"Cam"`, string(stations[1].Label))
	assert.JSONEq(t, `"0.12"`, string(stations[1].Long))
}

func TestClient_FetchStations_ConditionalRequest(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		if n > 1 {
			assert.Equal(t, `"v1"`, r.Header.Get("If-None-Match"))
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"items":[{"@id":"s1","label":"One","lat":1,"long":2}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	first, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, second, "304 should replay the cached body")
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestClient_FetchReadings(t *testing.T) {
	var gotQuery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/id/stations/E1/readings", r.URL.Path)
		assert.Empty(t, r.Header.Get("If-None-Match"))
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"items":[{"dateTime":"2024-01-01T00:00:00Z","value":1.2,"measure":"http://x/id/measures/E1-level-stage-i-15_min-m"}]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	readings, err := client.FetchReadings(context.Background(), server.URL+"/id/stations/E1", 300)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "_sorted&_limit=300", gotQuery)
	assert.JSONEq(t, `"2024-01-01T00:00:00Z"`, string(readings[0].DateTime))
	assert.JSONEq(t, `1.2`, string(readings[0].Value))

	// Bare references resolve against the base URL
	_, err = client.FetchReadings(context.Background(), "E1", 10)
	require.NoError(t, err)
	assert.Equal(t, "_sorted&_limit=10", gotQuery)
}

func TestClient_FetchReadings_EmptyStation(t *testing.T) {
	client := NewClient("http://127.0.0.1:0")

	_, err := client.FetchReadings(context.Background(), "", 300)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, "readings", fetchErr.Endpoint)
}

func TestClient_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"not found", http.StatusNotFound},
		{"bad gateway", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(server.URL)
			readings, err := client.FetchReadings(context.Background(), "E1", 300)

			assert.Nil(t, readings)
			var fetchErr *FetchError
			require.ErrorAs(t, err, &fetchErr)
			assert.Equal(t, tt.status, fetchErr.StatusCode)
			assert.Contains(t, err.Error(), "status")
		})
	}
}

func TestClient_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items": [`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	_, err := client.FetchStations(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "decode")
}

func TestClient_OddRecordsDoNotFailEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/id/stations" {
			w.Write([]byte(`{"items":[
				{"@id":42,"label":"Numeric id","lat":52.1,"long":0.1},
				{"@id":"http://x/id/stations/2","label":"Cam","lat":52.2,"long":0.12}
			]}`))
			return
		}
		w.Write([]byte(`{"items":[
			{"dateTime":1704067200,"value":0.4,"measure":"m/a"},
			{"dateTime":"2024-01-01T00:15:00Z","value":0.5,"measure":"m/a"}
		]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	stations, err := client.FetchStations(context.Background())
	require.NoError(t, err)
	require.Len(t, stations, 2)
	assert.Equal(t, "42", string(stations[0].ID))

	readings, err := client.FetchReadings(context.Background(), "E1", 10)
	require.NoError(t, err)
	require.Len(t, readings, 2)
	assert.Equal(t, "1704067200", string(readings[0].DateTime))
}

func TestClient_EmptyItems(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	readings, err := client.FetchReadings(context.Background(), "E1", 300)
	require.NoError(t, err)
	assert.Empty(t, readings)
}

func TestClient_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithTimeout(20*time.Millisecond))
	_, err := client.FetchStations(context.Background())

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Zero(t, fetchErr.StatusCode)
}

func TestClient_BreakerOpensAfterRepeatedFailures(t *testing.T) {
	var requests int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	for i := 0; i < 6; i++ {
		_, err := client.FetchStations(context.Background())
		require.Error(t, err)
	}

	_, err := client.FetchStations(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.Equal(t, int32(6), atomic.LoadInt32(&requests), "open breaker should not reach upstream")
}

func TestClient_AbandonedRequestsDoNotOpenBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(200 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL)

	for i := 0; i < 8; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		_, err := client.FetchReadings(ctx, "E1", 10)
		cancel()
		require.Error(t, err)
		assert.False(t, errors.Is(err, gobreaker.ErrOpenState), "attempt %d hit an open breaker", i)
	}

	_, err := client.FetchStations(context.Background())
	assert.NoError(t, err)

	_, err = client.FetchReadings(context.Background(), "E1", 10)
	assert.NoError(t, err)
}

func TestClient_ReadingsFailuresDoNotBlockStations(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/id/stations" {
			w.Write([]byte(`{"items":[]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL)

	for i := 0; i < 6; i++ {
		_, err := client.FetchReadings(context.Background(), "E1", 10)
		require.Error(t, err)
	}
	_, err := client.FetchReadings(context.Background(), "E1", 10)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))

	_, err = client.FetchStations(context.Background())
	assert.NoError(t, err)
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRateLimit(0.001, 1))

	_, err := client.FetchStations(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = client.FetchStations(ctx)
	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.Contains(t, err.Error(), "rate limit")
}

func TestClient_StationURL(t *testing.T) {
	client := NewClient("https://example.test/flood-monitoring/")

	assert.Equal(t, "https://example.test/flood-monitoring", client.BaseURL())
	assert.Equal(t, "https://example.test/flood-monitoring/id/stations/E1", client.StationURL("E1"))
	assert.Equal(t, "http://other/id/stations/E2", client.StationURL("http://other/id/stations/E2/"))
}
