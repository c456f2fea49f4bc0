package server

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/store"
)

// ReadingsData is the /readings.json payload
type ReadingsData struct {
	Station      string          `json:"station"`
	StationID    string          `json:"stationId"`
	MeasureTypes []string        `json:"measureTypes"`
	Readings     []store.Reading `json:"readings"`
	Warning      string          `json:"warning,omitempty"`
}

// ReadingsRoute serves a station's last 24 hours of readings, looked up by
// label. The optional type parameter keeps one measure type; measureTypes
// always lists every type seen.
func ReadingsRoute(catalog StationCatalog, readings ReadingSource, limit int) func(c echo.Context) error {
	return func(c echo.Context) error {
		label := c.QueryParam("station")
		if label == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "station is required"})
		}

		ctx := c.Request().Context()
		snap, err := catalog.Fetch(ctx)
		if err != nil {
			LogUpstreamFailure(c, err)
			setNoStore(c)
			return c.JSON(http.StatusOK, ReadingsData{
				Station:      label,
				MeasureTypes: []string{},
				Readings:     []store.Reading{},
				Warning:      "Failed to fetch stations: " + err.Error(),
			})
		}

		id, ok := snap.Lookup(label)
		if !ok {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown station: " + label})
		}

		data := ReadingsData{Station: label, StationID: id}
		all, err := readings.Fetch(ctx, id, limit)
		if all == nil {
			all = []store.Reading{}
		}
		data.MeasureTypes = store.MeasureTypes(all)
		data.Readings = store.FilterByMeasureType(all, c.QueryParam("type"))

		if err != nil {
			data.Warning = "Failed to fetch readings: " + err.Error()
			LogUpstreamFailure(c, err)
		}
		setNoStore(c)
		return c.JSON(http.StatusOK, data)
	}
}
