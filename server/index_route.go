package server

import (
	"net/http"
	"slices"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/stefanpenner/flood-live/metrics"
	"github.com/stefanpenner/flood-live/store"
	"github.com/stefanpenner/flood-live/view"
)

const (
	mapCenterLat  = 52.205276
	mapCenterLong = 0.119167
	mapZoom       = 10

	apiDocsURL = "https://environment.data.gov.uk/flood-monitoring/doc/reference"

	noReadingsNotice = "There are no readings available for this station."
)

// MapView is the map centre and zoom
type MapView struct {
	Lat  float64 `json:"lat"`
	Long float64 `json:"long"`
	Zoom int     `json:"zoom"`
}

// PageData is what map.html.tmpl and detail.html.tmpl render
type PageData struct {
	Title   string
	State   view.State
	Labels  []string
	Warning string
	DocsURL string

	// map
	Map     MapView
	Markers []Marker

	// detail
	ReadingCount int
	MeasureTypes []string
	SelectedType string
	Points       []ChartPoint
	Notice       string
}

// Marker is a mapped station plus the link its popup opens
type Marker struct {
	store.Station
	URL string `json:"url"`
}

func markers(stations []store.Station) []Marker {
	out := make([]Marker, 0, len(stations))
	for _, s := range stations {
		out = append(out, Marker{Station: s, URL: view.DetailURL(s.Label)})
	}
	return out
}

// MultipleTypes reports whether the station reported more than one measure
// type in the window
func (p PageData) MultipleTypes() bool {
	return len(p.MeasureTypes) > 1
}

// IndexRoute renders the map or the detail page depending on the query
func IndexRoute(config ServerConfig) func(c echo.Context) error {
	return func(c echo.Context) error {
		ctx := c.Request().Context()

		snap, err := config.Catalog.Fetch(ctx)
		if snap == nil {
			snap = store.NewSnapshot()
		}
		data := PageData{
			Title:   "UK Flood Monitoring Stations",
			Labels:  snap.Labels,
			DocsURL: apiDocsURL,
			Map:     MapView{Lat: mapCenterLat, Long: mapCenterLong, Zoom: mapZoom},
		}
		if err != nil {
			data.Warning = "Failed to fetch stations: " + err.Error()
			LogUpstreamFailure(c, err)
		}

		data.State = view.Derive(view.FromQuery(c.QueryParams()), snap.LabelToID)
		metrics.PageViewsTotal.WithLabelValues(data.State.Kind.String(), strconv.FormatBool(data.State.Embedded)).Inc()

		page := "map.html.tmpl"
		components := []interface{}{snap, data.State}

		if data.State.Kind == view.Detail {
			page = "detail.html.tmpl"
			data.Title = data.State.Station + " Readings"

			readings, err := config.Readings.Fetch(ctx, data.State.StationID, config.ReadingsLimit)
			if err != nil {
				data.Warning = "Failed to fetch readings: " + err.Error()
				LogUpstreamFailure(c, err)
			}
			populateDetail(&data, readings)
			// Everything the detail panel shows, not just the plotted series
			components = append(components, struct {
				Count    int
				Types    []string
				Selected string
				Points   []ChartPoint
			}{data.ReadingCount, data.MeasureTypes, data.SelectedType, data.Points})
		} else {
			data.Markers = markers(SortStations(snap.Stations))
		}

		c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
		if data.Warning != "" {
			setNoStore(c)
			return c.Render(http.StatusOK, page, data)
		}

		_, match, err := SetCacheHeaders(c, CacheConfig{
			Components: components,
			DevMode:    config.DevMode,
		})
		if err != nil {
			return err
		}
		if match {
			return notModified(c)
		}

		return c.Render(http.StatusOK, page, data)
	}
}

// populateDetail fills the detail fields. With several measure types the
// chart shows one of them: the requested type when the station has it,
// otherwise the first one seen.
func populateDetail(data *PageData, readings []store.Reading) {
	data.ReadingCount = len(readings)
	if len(readings) == 0 {
		data.Notice = noReadingsNotice
		data.Points = []ChartPoint{}
		return
	}

	data.MeasureTypes = store.MeasureTypes(readings)
	plotted := readings
	if len(data.MeasureTypes) > 1 {
		data.SelectedType = data.MeasureTypes[0]
		if slices.Contains(data.MeasureTypes, data.State.MeasureType) {
			data.SelectedType = data.State.MeasureType
		}
		plotted = store.FilterByMeasureType(readings, data.SelectedType)
	}
	data.Points = ChartPoints(plotted)
}
