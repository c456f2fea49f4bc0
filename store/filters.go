package store

import (
	"fmt"
	"strconv"
	"strings"
)

// MeasureTypes returns the distinct measure types of readings in first-seen
// order
func MeasureTypes(readings []Reading) []string {
	seen := make(map[string]bool)
	types := []string{}
	for _, r := range readings {
		if !seen[r.MeasureType] {
			seen[r.MeasureType] = true
			types = append(types, r.MeasureType)
		}
	}
	return types
}

// FilterByMeasureType keeps the readings of one measure type. An empty
// measureType keeps everything.
func FilterByMeasureType(readings []Reading, measureType string) []Reading {
	if measureType == "" {
		return readings
	}
	filtered := make([]Reading, 0, len(readings))
	for _, r := range readings {
		if r.MeasureType == measureType {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// Bounds is a lat/long bounding box
type Bounds struct {
	MinLat  float64
	MinLong float64
	MaxLat  float64
	MaxLong float64
}

// ParseBounds parses "minLong,minLat,maxLong,maxLat", the order Leaflet's
// toBBoxString produces
func ParseBounds(s string) (Bounds, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Bounds{}, fmt.Errorf("bbox needs 4 comma separated values, got %d", len(parts))
	}

	var vals [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return Bounds{}, fmt.Errorf("bbox value %d: %w", i, err)
		}
		vals[i] = v
	}

	b := Bounds{MinLong: vals[0], MinLat: vals[1], MaxLong: vals[2], MaxLat: vals[3]}
	if b.MinLat > b.MaxLat || b.MinLong > b.MaxLong {
		return Bounds{}, fmt.Errorf("bbox minimum exceeds maximum")
	}
	if b.MinLat < -90 || b.MaxLat > 90 || b.MinLong < -180 || b.MaxLong > 180 {
		return Bounds{}, fmt.Errorf("bbox outside valid coordinates")
	}
	return b, nil
}

// Contains reports whether a station lies inside the box, edges included
func (b Bounds) Contains(s Station) bool {
	return s.Lat >= b.MinLat && s.Lat <= b.MaxLat &&
		s.Long >= b.MinLong && s.Long <= b.MaxLong
}

// StationsInBounds returns the mapped stations inside b
func (s *Snapshot) StationsInBounds(b Bounds) []Station {
	if s == nil {
		return []Station{}
	}
	inside := make([]Station, 0, len(s.Stations))
	for _, st := range s.Stations {
		if b.Contains(st) {
			inside = append(inside, st)
		}
	}
	return inside
}
