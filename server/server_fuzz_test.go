package server

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func fuzzServer(f *testing.F) *http.Server {
	f.Helper()

	app, err := Start(ServerConfig{
		Catalog:       &fakeCatalog{snap: testSnapshot(), ready: true},
		Readings:      &fakeReadings{readings: testReadings()},
		TemplateFS:    testTemplates,
		DevMode:       false,
		SentryEnabled: false,
	})
	if err != nil {
		f.Fatal(err)
	}
	return &http.Server{Handler: app}
}

func checkResponse(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code < 100 || rec.Code >= 600 {
		t.Errorf("Invalid HTTP status code: %d", rec.Code)
	}
	if rec.Code >= http.StatusInternalServerError {
		t.Errorf("Server error %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Version") == "" {
		t.Error("missing X-Version header")
	}
}

// FuzzIndexRoute drives the page route with arbitrary view parameters. Any
// combination must render a page, never an error.
func FuzzIndexRoute(f *testing.F) {
	f.Add("detail", "Cambridge", "true", "E1-flow--Mean-15_min-m3_s")
	f.Add("detail", "A,B", "false", "")
	f.Add("map", "", "", "")
	f.Add("", "../../../etc/passwd", "TRUE", "x")
	f.Add("detail", "<script>alert('xss')</script>", "true", "\"></select>")
	f.Add(string([]byte{0x00, 0x01}), string([]byte{0xff}), "", "")

	srv := fuzzServer(f)

	f.Fuzz(func(t *testing.T, v, station, embedded, measureType string) {
		q := url.Values{}
		q.Set("view", v)
		q.Set("station", station)
		q.Set("embedded", embedded)
		q.Set("type", measureType)

		req := httptest.NewRequest(http.MethodGet, "/?"+q.Encode(), nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)

		checkResponse(t, rec)
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "<script>alert") {
			t.Error("unescaped station label in page")
		}
	})
}

// FuzzReadingsRoute checks the JSON endpoint answers arbitrary station labels
// with 200, 400 or 404
func FuzzReadingsRoute(f *testing.F) {
	f.Add("Cambridge")
	f.Add("")
	f.Add("A,B")
	f.Add("%2e%2e%2f")
	f.Add("'; DROP TABLE stations;--")
	f.Add("a" + string(make([]byte, 10000)))

	srv := fuzzServer(f)

	f.Fuzz(func(t *testing.T, station string) {
		req := httptest.NewRequest(http.MethodGet, "/readings.json?station="+url.QueryEscape(station), nil)
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, req)

		checkResponse(t, rec)
		switch rec.Code {
		case http.StatusOK, http.StatusBadRequest, http.StatusNotFound:
		default:
			t.Errorf("unexpected status %d for station %q", rec.Code, station)
		}
	})
}
