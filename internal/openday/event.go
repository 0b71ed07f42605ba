// Package openday defines the open-day event model and the parsing helpers
// that recover dates, time ranges and event categories from the Dutch-language
// listing text.
package openday

import (
	"fmt"
	"time"
)

// Source identifies the listing this pipeline ingests. It is the first half
// of every event's persistence key.
const Source = "schoolkeuze020"

// Event is one parsed open-day occurrence. Events are rebuilt from source
// text every run; identity across runs is carried by SourceID alone.
type Event struct {
	Source   string `json:"source"`
	SourceID string `json:"source_id"`

	SchoolName string `json:"school_name"`
	// SchoolID is the matched school directory id, or empty when no match
	// cleared the confidence threshold. Unmatched events are still persisted.
	SchoolID string `json:"school_id,omitempty"`

	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`

	LocationText string `json:"location_text,omitempty"`
	InfoURL      string `json:"info_url,omitempty"`
	Notes        string `json:"notes,omitempty"`

	EventType       Type   `json:"event_type"`
	SchoolYearLabel string `json:"school_year_label"`

	LastSyncedAt time.Time `json:"last_synced_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`

	IsActive bool `json:"is_active"`
	// MissingSince is set (non-zero) exactly when IsActive is false. Both
	// fields change only through the store's reconciliation sweeps.
	MissingSince time.Time `json:"missing_since,omitzero"`
}

// SourceID derives the stable identity key for an event. Two runs that
// observe the same school, date, time window and category produce the same
// key regardless of how the surrounding description text changed.
func SourceID(d Date, canonicalKey string, tr TimeRange, typ Type) string {
	return fmt.Sprintf("%04d-%02d-%02d|%s|%s-%s|%s",
		d.Year, d.Month, d.Day, canonicalKey, tr.Start, tr.End, typ)
}
