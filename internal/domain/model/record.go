// Package model contains domain models passed between layers.
package model

import (
	"maps"
	"time"
)

// Collection names served by the API.
const (
	Sports    = "sports"
	Leagues   = "leagues"
	Fixtures  = "fixtures"
	Teams     = "teams"
	Players   = "players"
	FanStats  = "fan_stats"
	FieldID   = "id"
	FieldDate = "date"
)

// Collections lists every known collection in catalog order.
var Collections = []string{Sports, Leagues, Fixtures, Teams, Players, FanStats} //nolint:gochecknoglobals // read-only catalog

// Record is one schemaless document. It always carries an "id" key once stored.
type Record map[string]any

// ID returns the record id, or "" when absent or not a string.
func (r Record) ID() string {
	return r.String(FieldID)
}

// String returns field k when it holds a string.
func (r Record) String(k string) string {
	s, _ := r[k].(string)
	return s
}

// Clone returns a shallow copy so callers cannot mutate stored documents.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return maps.Clone(r)
}

// LiveEvent is one synthetic play-by-play event pushed to live subscribers.
type LiveEvent struct {
	Sport     string    `json:"sport"`
	Event     string    `json:"event"`
	Timestamp time.Time `json:"timestamp"`
	Details   string    `json:"details"`
}
