package store

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/stefanpenner/flood-live/floodapi"
	"github.com/stefanpenner/flood-live/logger"
	"github.com/stefanpenner/flood-live/metrics"
)

const (
	DefaultReadingsLimit = 300
	ReadingsWindow       = 24 * time.Hour

	unknownMeasureType = "unknown"
)

// ReadingSource fetches raw readings for one station
type ReadingSource interface {
	FetchReadings(ctx context.Context, stationID string, limit int) ([]floodapi.Reading, error)
}

// Readings fetches and normalizes station readings. Nothing is cached:
// every call goes upstream.
type Readings struct {
	source  ReadingSource
	window  time.Duration
	timeout time.Duration
	now     func() time.Time
}

// ReadingsOption configures Readings
type ReadingsOption func(*Readings)

// WithReadingsClock replaces time.Now, for tests
func WithReadingsClock(now func() time.Time) ReadingsOption {
	return func(r *Readings) {
		r.now = now
	}
}

// WithReadingsTimeout bounds a single upstream fetch
func WithReadingsTimeout(d time.Duration) ReadingsOption {
	return func(r *Readings) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// NewReadings creates a readings fetcher backed by source
func NewReadings(source ReadingSource, opts ...ReadingsOption) *Readings {
	r := &Readings{
		source:  source,
		window:  ReadingsWindow,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch returns the readings of stationID taken within the trailing 24 hours
// as of the call, sorted ascending by time. limit caps how many of the most
// recent readings are requested upstream; zero or less means 300.
//
// The window is measured against the current time, not the newest reading,
// so a station with stale data legitimately yields nothing. The result is
// never nil; on error it is empty and the error is meant as an advisory.
func (r *Readings) Fetch(ctx context.Context, stationID string, limit int) ([]Reading, error) {
	readings := []Reading{}

	if strings.TrimSpace(stationID) == "" {
		return readings, ErrInvalidStation
	}
	if limit <= 0 {
		limit = DefaultReadingsLimit
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.source.FetchReadings(ctx, stationID, limit)
	if err != nil {
		metrics.ReadingsFetchTotal.WithLabelValues("error").Inc()
		logger.Error(err, "Failed to fetch readings for %s: %v", stationID, err)
		return readings, err
	}

	if len(raw) == 0 {
		metrics.ReadingsFetchTotal.WithLabelValues("empty").Inc()
		metrics.ReadingsReturned.Observe(0)
		return readings, nil
	}

	for _, rec := range raw {
		reading, err := normalizeReading(stationID, rec)
		if err != nil {
			logger.Muted("Skipping reading of %s: %v", stationID, err)
			continue
		}
		readings = append(readings, reading)
	}

	slices.SortStableFunc(readings, func(a, b Reading) int {
		return a.DateTime.Compare(b.DateTime)
	})

	cutoff := r.now().UTC().Add(-r.window)
	readings = slices.DeleteFunc(readings, func(reading Reading) bool {
		return reading.DateTime.Before(cutoff)
	})

	if len(readings) == 0 {
		metrics.ReadingsFetchTotal.WithLabelValues("empty").Inc()
	} else {
		metrics.ReadingsFetchTotal.WithLabelValues("ok").Inc()
	}
	metrics.ReadingsReturned.Observe(float64(len(readings)))

	return readings, nil
}

func normalizeReading(stationID string, rec floodapi.Reading) (Reading, error) {
	dateTime, ok := CoerceString(rec.DateTime)
	if !ok {
		metrics.RecordsDroppedTotal.WithLabelValues("bad_timestamp").Inc()
		return Reading{}, fmt.Errorf("dateTime is not a string: %s", truncate(rec.DateTime))
	}
	ts, err := ParseTimestamp(dateTime)
	if err != nil {
		metrics.RecordsDroppedTotal.WithLabelValues("bad_timestamp").Inc()
		return Reading{}, err
	}

	value, err := CoerceFloat(rec.Value)
	if err != nil {
		metrics.RecordsDroppedTotal.WithLabelValues("bad_value").Inc()
		return Reading{}, fmt.Errorf("value at %s: %w", dateTime, err)
	}

	return Reading{
		StationID:   stationID,
		DateTime:    ts,
		Value:       value,
		MeasureType: MeasureType(rec.Measure),
	}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses an upstream dateTime into a UTC instant. Timestamps
// without a zone are taken as UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// MeasureType derives the measure type from a reading's measure reference:
// the last path segment of the URI, or "unknown" when the field is absent or
// not a string.
func MeasureType(raw json.RawMessage) string {
	ref, ok := CoerceString(raw)
	if !ok {
		return unknownMeasureType
	}
	return ref[strings.LastIndex(ref, "/")+1:]
}
