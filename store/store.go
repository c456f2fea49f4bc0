package store

import (
	"context"
	"sync"
	"time"

	"github.com/mmcloughlin/geohash"
	"github.com/stefanpenner/flood-live/floodapi"
	"github.com/stefanpenner/flood-live/logger"
	"github.com/stefanpenner/flood-live/metrics"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultCatalogTTL = time.Hour
	DefaultTimeout    = 10 * time.Second

	geohashPrecision = 7
	catalogFlightKey = "stations"
)

// StationSource fetches raw station records
type StationSource interface {
	FetchStations(ctx context.Context) ([]floodapi.Station, error)
}

// Catalog owns the station list and its time-bounded cache.
//
// Concurrency model:
//   - a published Snapshot is never mutated; a refresh builds a new one and
//     swaps the pointer under mu
//   - readers holding an older Snapshot keep a consistent view
//   - refreshes are collapsed through a singleflight group, so an expired
//     cache under concurrent access costs one upstream request
//   - failed refreshes are not cached
type Catalog struct {
	source    StationSource
	ttl       time.Duration
	timeout   time.Duration
	now       func() time.Time
	onRefresh func(logger.CatalogSummary)

	group   singleflight.Group
	mu      sync.RWMutex
	cached  *Snapshot
	lastErr error
}

// CatalogOption configures a Catalog
type CatalogOption func(*Catalog)

// WithTTL sets how long a fetched catalog stays valid
func WithTTL(ttl time.Duration) CatalogOption {
	return func(c *Catalog) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, for tests
func WithClock(now func() time.Time) CatalogOption {
	return func(c *Catalog) {
		c.now = now
	}
}

// WithFetchTimeout bounds a single upstream refresh
func WithFetchTimeout(d time.Duration) CatalogOption {
	return func(c *Catalog) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// NewCatalog creates a station catalog backed by source
func NewCatalog(source StationSource, opts ...CatalogOption) *Catalog {
	c := &Catalog{
		source:  source,
		ttl:     DefaultCatalogTTL,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetRefreshCallback registers a function called after every refresh attempt
func (c *Catalog) SetRefreshCallback(fn func(logger.CatalogSummary)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

// Fetch returns the station catalog, refreshing it from upstream when the
// cached copy is missing or older than the TTL.
//
// The returned snapshot is never nil. On failure it is empty and the error
// (usually a *floodapi.FetchError) is meant to be shown as an advisory.
func (c *Catalog) Fetch(ctx context.Context) (*Snapshot, error) {
	if snap, ok := c.fresh(); ok {
		metrics.CatalogLookupsTotal.WithLabelValues("hit").Inc()
		return snap, nil
	}

	ch := c.group.DoChan(catalogFlightKey, func() (interface{}, error) {
		return c.refresh(ctx)
	})

	select {
	case <-ctx.Done():
		empty := NewSnapshot()
		empty.FetchedAt = c.now()
		return empty, ctx.Err()
	case res := <-ch:
		if res.Shared {
			metrics.CatalogLookupsTotal.WithLabelValues("shared").Inc()
		} else {
			metrics.CatalogLookupsTotal.WithLabelValues("miss").Inc()
		}
		if res.Err != nil {
			empty := NewSnapshot()
			empty.FetchedAt = c.now()
			return empty, res.Err
		}
		return res.Val.(*Snapshot), nil
	}
}

// Ready reports whether a catalog has been fetched successfully
func (c *Catalog) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cached != nil
}

// Invalidate drops the cached catalog so the next Fetch goes upstream
func (c *Catalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = nil
}

// CatalogStatus summarizes the cache for status displays
type CatalogStatus struct {
	Labelled  int
	Mapped    int
	FetchedAt time.Time
	Expires   time.Time
	LastError error
}

// Status returns the current cache state without touching upstream
func (c *Catalog) Status() CatalogStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := CatalogStatus{LastError: c.lastErr}
	if c.cached != nil {
		status.Labelled = len(c.cached.LabelToID)
		status.Mapped = len(c.cached.Stations)
		status.FetchedAt = c.cached.FetchedAt
		status.Expires = c.cached.FetchedAt.Add(c.ttl)
	}
	return status
}

func (c *Catalog) fresh() (*Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.cached == nil {
		return nil, false
	}
	if c.now().Sub(c.cached.FetchedAt) >= c.ttl {
		return nil, false
	}
	return c.cached, true
}

func (c *Catalog) refresh(ctx context.Context) (*Snapshot, error) {
	// Another flight may have refreshed between our miss and this call
	if snap, ok := c.fresh(); ok {
		return snap, nil
	}

	// Shared by every caller of the flight, so no single caller's
	// cancellation may abort it
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.source.FetchStations(fetchCtx)
	if err != nil {
		metrics.CatalogRefreshTotal.WithLabelValues("error").Inc()
		logger.Error(err, "Failed to fetch stations: %v", err)

		c.mu.Lock()
		c.lastErr = err
		callback := c.onRefresh
		c.mu.Unlock()

		summary := logger.CatalogSummary{Duration: time.Since(start), Err: err}
		summary.Print()
		if callback != nil {
			callback(summary)
		}
		return nil, err
	}

	snap, stats := NormalizeStations(raw)
	snap.FetchedAt = c.now()
	if err := snap.setETag(); err != nil {
		logger.Warn("Catalog ETag unavailable: %v", err)
	}

	c.mu.Lock()
	c.cached = snap
	c.lastErr = nil
	callback := c.onRefresh
	c.mu.Unlock()

	metrics.CatalogRefreshTotal.WithLabelValues("success").Inc()
	metrics.CatalogStations.WithLabelValues("labelled").Set(float64(len(snap.LabelToID)))
	metrics.CatalogStations.WithLabelValues("mapped").Set(float64(len(snap.Stations)))
	metrics.CatalogStations.WithLabelValues("duplicate_labels").Set(float64(len(snap.DuplicateLabels)))
	metrics.CatalogLastSuccessTimestamp.Set(float64(snap.FetchedAt.Unix()))

	if len(snap.DuplicateLabels) > 0 {
		logger.Warn("%d station labels are shared by several stations; the last one wins", len(snap.DuplicateLabels))
	}

	summary := logger.CatalogSummary{
		Duration:   time.Since(start),
		Records:    stats.Records,
		Labelled:   len(snap.LabelToID),
		Mapped:     len(snap.Stations),
		Discarded:  stats.Discarded,
		Duplicates: len(snap.DuplicateLabels),
	}
	summary.Print()
	if callback != nil {
		callback(summary)
	}

	return snap, nil
}

// NormalizeStats counts what normalization kept and dropped
type NormalizeStats struct {
	Records          int
	Discarded        int
	CoordinateErrors int
}

// NormalizeStations turns raw upstream records into a Snapshot.
//
// A record enters LabelToID when its label and id are both non-empty, and
// enters Stations when it additionally has two valid coordinates.
func NormalizeStations(records []floodapi.Station) (*Snapshot, NormalizeStats) {
	snap := NewSnapshot()
	stats := NormalizeStats{Records: len(records)}
	seen := make(map[string]int)

	for _, rec := range records {
		label, ok := CoerceScalar(rec.Label, JoinList)
		if !ok || label == "" {
			stats.Discarded++
			metrics.RecordsDroppedTotal.WithLabelValues("empty_label").Inc()
			continue
		}
		id, ok := CoerceString(rec.ID)
		if !ok || id == "" {
			stats.Discarded++
			metrics.RecordsDroppedTotal.WithLabelValues("missing_id").Inc()
			continue
		}

		if _, exists := snap.LabelToID[label]; !exists {
			snap.Labels = append(snap.Labels, label)
		}
		snap.LabelToID[label] = id
		seen[label]++
		if seen[label] == 2 {
			snap.DuplicateLabels = append(snap.DuplicateLabels, label)
		}

		station, err := normalizeCoordinates(label, id, rec)
		if err != nil {
			stats.CoordinateErrors++
			metrics.RecordsDroppedTotal.WithLabelValues("bad_coordinates").Inc()
			logger.Muted("%v", err)
			continue
		}
		if station != nil {
			snap.Stations = append(snap.Stations, *station)
		}
	}

	return snap, stats
}

// normalizeCoordinates returns nil without error for a station that simply
// has no coordinates
func normalizeCoordinates(label, id string, rec floodapi.Station) (*Station, error) {
	if isAbsent(rec.Lat) || isAbsent(rec.Long) {
		return nil, nil
	}

	lat, err := CoerceFloat(rec.Lat)
	if err != nil {
		return nil, &CoordinateParseError{Label: label, Field: "lat", Err: err}
	}
	long, err := CoerceFloat(rec.Long)
	if err != nil {
		return nil, &CoordinateParseError{Label: label, Field: "long", Err: err}
	}

	return &Station{
		Label:   label,
		ID:      id,
		Lat:     lat,
		Long:    long,
		Geohash: geohash.EncodeWithPrecision(lat, long, geohashPrecision),
	}, nil
}

func isAbsent(raw []byte) bool {
	s := string(raw)
	return s == "" || s == "null"
}
