package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ListPolicy decides how a list-valued upstream field collapses to a scalar.
//
// The flood-monitoring API returns label, lat and long either as a scalar or,
// for stations with several co-located measures, as a list of scalars.
type ListPolicy int

const (
	// JoinList joins every element with a comma. Used for labels.
	JoinList ListPolicy = iota
	// FirstElement keeps only the first element. Used for coordinates.
	FirstElement
)

// CoerceScalar collapses a raw JSON value to its scalar text.
//
//   - strings are unquoted, numbers keep their literal text
//   - lists collapse according to policy; an empty list has no scalar
//   - null, absent values, booleans, objects and nested lists have no scalar
//
// ok is false whenever no scalar could be produced.
func CoerceScalar(raw json.RawMessage, policy ListPolicy) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return scalarText(raw)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || len(items) == 0 {
		return "", false
	}

	if policy == FirstElement {
		return scalarText(items[0])
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := scalarText(item)
		if !ok {
			return "", false
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ","), true
}

// CoerceFloat collapses a raw JSON value with the FirstElement policy and
// parses it as a finite float. Numeric strings are accepted.
func CoerceFloat(raw json.RawMessage) (float64, error) {
	s, ok := CoerceScalar(raw, FirstElement)
	if !ok {
		return 0, fmt.Errorf("no scalar in %s", truncate(raw))
	}

	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q: %w", s, err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value %q", s)
	}
	return f, nil
}

// CoerceString returns the value of a JSON string. Anything else, numbers
// included, has no string.
func CoerceString(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", false
	}
	return scalarText(raw)
}

func scalarText(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return "", false
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return s, true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", false
		}
		return n.String(), true
	default:
		return "", false
	}
}

func truncate(raw json.RawMessage) string {
	const max = 64
	if len(raw) == 0 {
		return "<absent>"
	}
	if len(raw) > max {
		return string(raw[:max]) + "…"
	}
	return string(raw)
}
