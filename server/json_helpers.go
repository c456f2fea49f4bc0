package server

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/stefanpenner/flood-live/store"
)

// StableJSONHash hashes the JSON encoding of v. Callers sort slices first
// when their order is not meaningful.
func StableJSONHash(v interface{}) (string, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	hash := xxhash.Sum64(jsonData)
	return "\"" + strconv.FormatUint(hash, 10) + "\"", nil
}

// SortStations orders stations by geohash so nearby stations sit together,
// then by label and id for stability
func SortStations(stations []store.Station) []store.Station {
	sorted := make([]store.Station, len(stations))
	copy(sorted, stations)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Geohash != b.Geohash {
			return a.Geohash < b.Geohash
		}
		if a.Label != b.Label {
			return a.Label < b.Label
		}
		return a.ID < b.ID
	})
	return sorted
}

// ChartPoint is one reading as plotted by the detail page
type ChartPoint struct {
	T string  `json:"t"`
	V float64 `json:"v"`
}

// ChartPoints converts readings into plot points, keeping their order
func ChartPoints(readings []store.Reading) []ChartPoint {
	points := make([]ChartPoint, 0, len(readings))
	for _, r := range readings {
		points = append(points, ChartPoint{T: r.DateTime.UTC().Format(time.RFC3339), V: r.Value})
	}
	return points
}
