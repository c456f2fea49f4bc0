package floodapi

import "encoding/json"

// Station is a raw record from the stations endpoint. label, lat and long
// come back either as scalars or as lists, so every field is kept undecoded
// and normalized by the store package. One odd record then cannot fail the
// whole envelope.
type Station struct {
	ID    json.RawMessage `json:"@id"`
	Label json.RawMessage `json:"label"`
	Lat   json.RawMessage `json:"lat"`
	Long  json.RawMessage `json:"long"`
}

// Reading is a raw record from a station's readings endpoint
type Reading struct {
	DateTime json.RawMessage `json:"dateTime"`
	Value    json.RawMessage `json:"value"`
	Measure  json.RawMessage `json:"measure"`
}
