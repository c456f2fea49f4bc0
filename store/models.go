package store

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mitchellh/hashstructure"
)

// Station is a monitoring station that can be placed on the map
type Station struct {
	Label   string  `json:"label"`
	ID      string  `json:"id"`
	Lat     float64 `json:"lat"`
	Long    float64 `json:"long"`
	Geohash string  `json:"geohash"`
}

// Reading is a single timestamped measurement of a station
type Reading struct {
	StationID   string    `json:"stationId"`
	DateTime    time.Time `json:"dateTime"`
	Value       float64   `json:"value"`
	MeasureType string    `json:"measureType"`
}

// Snapshot is a normalized station catalog.
//
// Snapshots are shared between concurrent readers once published by the
// Catalog, so consumers treat them as deep frozen.
type Snapshot struct {
	// LabelToID maps display label to the upstream station URI. A label that
	// appears twice upstream keeps the later record's id.
	LabelToID map[string]string `json:"labelToId"`
	// Labels lists LabelToID's keys in first-seen upstream order
	Labels []string `json:"labels"`
	// Stations holds every labelled record whose coordinates normalized
	Stations []Station `json:"stations"`
	// DuplicateLabels lists labels that more than one upstream record used
	DuplicateLabels []string  `json:"duplicateLabels,omitempty"`
	FetchedAt       time.Time `json:"fetchedAt"`
	ETag            string    `json:"-"`
}

// NewSnapshot returns an empty snapshot
func NewSnapshot() *Snapshot {
	return &Snapshot{
		LabelToID: map[string]string{},
		Labels:    []string{},
		Stations:  []Station{},
	}
}

// Lookup returns the station id for a label
func (s *Snapshot) Lookup(label string) (string, bool) {
	if s == nil {
		return "", false
	}
	id, ok := s.LabelToID[label]
	return id, ok
}

// Empty reports whether the snapshot holds no stations at all
func (s *Snapshot) Empty() bool {
	return s == nil || len(s.LabelToID) == 0
}

func (s *Snapshot) setETag() error {
	hash, err := hashstructure.Hash(struct {
		LabelToID map[string]string
		Stations  []Station
	}{s.LabelToID, s.Stations}, nil)
	if err != nil {
		return fmt.Errorf("hash snapshot: %w", err)
	}
	s.ETag = "\"" + strconv.FormatUint(hash, 10) + "\""
	return nil
}
