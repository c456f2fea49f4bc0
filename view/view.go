// Package view decides which page a request renders
package view

import (
	"net/url"
)

// Kind is the page being rendered
type Kind int

const (
	Map Kind = iota
	Detail
)

func (k Kind) String() string {
	if k == Detail {
		return "detail"
	}
	return "map"
}

// Params are the raw request parameters that select a view
type Params struct {
	View        string
	Station     string
	Embedded    string
	MeasureType string
}

// FromQuery reads Params from URL query values. Only the first value of a
// repeated key counts.
func FromQuery(q url.Values) Params {
	return Params{
		View:        q.Get("view"),
		Station:     q.Get("station"),
		Embedded:    q.Get("embedded"),
		MeasureType: q.Get("type"),
	}
}

// State is the resolved view
type State struct {
	Kind        Kind
	Station     string
	StationID   string
	Embedded    bool
	MeasureType string
}

// Derive resolves params against the catalog's label index.
//
// Detail is chosen only for view=detail with a station label the catalog
// knows; anything else, unknown view values included, renders the map.
// Embedded is set only by the literal "true".
func Derive(p Params, labelToID map[string]string) State {
	s := State{
		Kind:     Map,
		Embedded: p.Embedded == "true",
	}

	if p.View != "detail" || p.Station == "" {
		return s
	}
	id, ok := labelToID[p.Station]
	if !ok {
		return s
	}

	s.Kind = Detail
	s.Station = p.Station
	s.StationID = id
	s.MeasureType = p.MeasureType
	return s
}

// Query rebuilds the canonical query values for s
func (s State) Query() url.Values {
	q := url.Values{}
	if s.Kind == Detail {
		q.Set("view", "detail")
		q.Set("station", s.Station)
		if s.MeasureType != "" {
			q.Set("type", s.MeasureType)
		}
	}
	if s.Embedded {
		q.Set("embedded", "true")
	}
	return q
}

// URL returns a root-relative link to s
func (s State) URL() string {
	q := s.Query()
	if len(q) == 0 {
		return "/"
	}
	return "/?" + q.Encode()
}

// DetailURL links to the embedded detail view of a station, the target of
// map marker popups
func DetailURL(label string) string {
	return State{Kind: Detail, Station: label, Embedded: true}.URL()
}

// WithMeasureType returns a copy of s selecting measureType
func (s State) WithMeasureType(measureType string) State {
	s.MeasureType = measureType
	return s
}
