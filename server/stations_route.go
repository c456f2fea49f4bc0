package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/store"
)

// StationsData is the /stations.json payload
type StationsData struct {
	LabelToID       map[string]string `json:"labelToId"`
	Labels          []string          `json:"labels"`
	Stations        []store.Station   `json:"stations"`
	DuplicateLabels []string          `json:"duplicateLabels,omitempty"`
	FetchedAt       *time.Time        `json:"fetchedAt,omitempty"`
	Warning         string            `json:"warning,omitempty"`
}

// StationsRoute serves the station catalog as JSON. An optional bbox query
// parameter ("minLong,minLat,maxLong,maxLat") narrows the mapped stations;
// labelToId is always complete.
func StationsRoute(catalog StationCatalog, devMode bool) func(c echo.Context) error {
	return func(c echo.Context) error {
		var bounds *store.Bounds
		if raw := c.QueryParam("bbox"); raw != "" {
			b, err := store.ParseBounds(raw)
			if err != nil {
				return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid bbox: " + err.Error()})
			}
			bounds = &b
		}

		snap, err := catalog.Fetch(c.Request().Context())
		if snap == nil {
			snap = store.NewSnapshot()
		}

		data := StationsData{
			LabelToID:       snap.LabelToID,
			Labels:          snap.Labels,
			Stations:        snap.Stations,
			DuplicateLabels: snap.DuplicateLabels,
		}
		if bounds != nil {
			data.Stations = snap.StationsInBounds(*bounds)
		}
		data.Stations = SortStations(data.Stations)

		if err != nil {
			data.Warning = "Failed to fetch stations: " + err.Error()
			LogUpstreamFailure(c, err)
			setNoStore(c)
			return c.JSON(http.StatusOK, data)
		}
		if !snap.FetchedAt.IsZero() {
			fetchedAt := snap.FetchedAt.UTC()
			data.FetchedAt = &fetchedAt
		}

		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSONCharsetUTF8)
		c.Response().Header().Set("X-Content-Type-Options", "nosniff")
		_, match, err := SetCacheHeaders(c, CacheConfig{
			Components: []interface{}{snap, bounds},
			MaxAge:     5 * time.Minute,
			DevMode:    devMode,
		})
		if err != nil {
			return err
		}
		if match {
			return notModified(c)
		}

		return c.JSON(http.StatusOK, data)
	}
}
