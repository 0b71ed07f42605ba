// Package pipeline orchestrates one ingestion run: fetch the listing, slice
// it into event blocks, parse and classify each block, resolve school
// identities, and merge the result into the event store.
//
// A run is single-pass and stateless: everything it knows comes from the
// fetched text and the directory snapshot read at the start. Re-running with
// unchanged source text produces no net change, which makes re-invocation
// the recovery path for any failure.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mijnschoolkeuze/opendagen-sync/internal/htmltext"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/logx"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/matcher"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/openday"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/scanner"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/storage"
)

// sampleLimit caps the matched/unmatched name samples in the run summary.
const sampleLimit = 10

// Directory reads the school directory. Read fresh every run.
type Directory interface {
	ListSchools(ctx context.Context) ([]matcher.School, error)
}

// Sink merges a run's events into persisted storage.
type Sink interface {
	Sync(ctx context.Context, yearLabel string, now time.Time, events []openday.Event) (storage.SyncResult, error)
}

// Runner wires the pipeline stages together.
type Runner struct {
	Fetcher   Fetcher
	Directory Directory
	Sink      Sink
	Matcher   matcher.Config

	// Now supplies the run timestamp; nil means time.Now. Tests pin it.
	Now func() time.Time
}

// Summary is the operator-facing result of one run.
type Summary struct {
	SchoolYearLabel string    `json:"school_year_label"`
	FetchedAt       time.Time `json:"fetched_at"`

	Parsed      int `json:"parsed"`
	Matched     int `json:"matched"`
	Deactivated int `json:"deactivated"`
	Reactivated int `json:"reactivated"`

	// Small samples for manual review; unmatched names are the usual
	// starting point for extending the alias table.
	SampleMatched   []string `json:"sample_matched,omitempty"`
	SampleUnmatched []string `json:"sample_unmatched,omitempty"`
}

// Run executes one ingestion pass scoped to the given school-year label.
//
// Directory read, fetch and persistence failures are fatal and abort the run
// with nothing persisted. Per-event parse anomalies and unmatched school
// names are data-quality outcomes, not errors: the former skip the block,
// the latter persist with an empty school id.
func (r *Runner) Run(ctx context.Context, yearLabel string) (*Summary, error) {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}

	schools, err := r.Directory.ListSchools(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading school directory: %w", err)
	}
	idx := matcher.NewIndex(schools, r.Matcher)

	markup, err := r.Fetcher.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching listing: %w", err)
	}

	batch := r.assemble(markup, yearLabel, now, idx)

	res, err := r.Sink.Sync(ctx, yearLabel, now, batch)
	if err != nil {
		return nil, fmt.Errorf("persisting events: %w", err)
	}

	summary := &Summary{
		SchoolYearLabel: yearLabel,
		FetchedAt:       now.UTC(),
		Parsed:          len(batch),
		Deactivated:     res.Deactivated,
		Reactivated:     res.Reactivated,
	}
	for _, ev := range batch {
		if ev.SchoolID != "" {
			summary.Matched++
			if len(summary.SampleMatched) < sampleLimit {
				summary.SampleMatched = append(summary.SampleMatched, ev.SchoolName)
			}
		} else if len(summary.SampleUnmatched) < sampleLimit {
			summary.SampleUnmatched = append(summary.SampleUnmatched, ev.SchoolName)
		}
	}

	logx.Info("sync complete", logx.Fields{
		"year":        yearLabel,
		"parsed":      summary.Parsed,
		"matched":     summary.Matched,
		"deactivated": summary.Deactivated,
		"reactivated": summary.Reactivated,
	})
	return summary, nil
}

// assemble turns raw markup into the deduplicated, matched event batch for
// this run. Within a run, two events with the same identity key collapse to
// the later one (a repeated heading in the source is the same event); the
// batch keeps first-seen order.
func (r *Runner) assemble(markup, yearLabel string, now time.Time, idx *matcher.Index) []openday.Event {
	text := htmltext.Normalize(markup)
	blocks, stats := scanner.Scan(htmltext.Lines(text))

	if stats.NoDate > 0 || stats.NoTitle > 0 || stats.NoTime > 0 {
		logx.Debug("scanner skipped blocks", logx.Fields{
			"no_date":  stats.NoDate,
			"no_title": stats.NoTitle,
			"no_time":  stats.NoTime,
		})
	}

	byKey := make(map[string]int)
	var batch []openday.Event

	for _, block := range blocks {
		name := matcher.StripURLLabel(block.SchoolName)
		desc := block.DescriptionLine()
		typ := openday.Classify(desc)

		infoURL, ok := htmltext.FirstURL(strings.Join(block.Lines, " "))
		if !ok {
			infoURL = urlNearName(markup, name)
		}

		schoolID, tier, matched := idx.Match(name, infoURL)
		if !matched {
			logx.Debug("no school match", logx.Fields{"school_name": name})
		} else if tier == matcher.TierFuzzy {
			logx.Debug("fuzzy school match", logx.Fields{"school_name": name, "school_id": schoolID})
		}

		ev := openday.Event{
			Source:          openday.Source,
			SourceID:        openday.SourceID(block.Date, idx.QueryKey(name), block.TimeRange, typ),
			SchoolName:      name,
			SchoolID:        schoolID,
			StartsAt:        block.Date.At(block.TimeRange.Start),
			EndsAt:          block.Date.At(block.TimeRange.End),
			LocationText:    block.LocationLine(),
			InfoURL:         infoURL,
			Notes:           desc,
			EventType:       typ,
			SchoolYearLabel: yearLabel,
			LastSyncedAt:    now,
			LastSeenAt:      now,
			IsActive:        true,
		}

		if i, seen := byKey[ev.SourceID]; seen {
			batch[i] = ev
			continue
		}
		byKey[ev.SourceID] = len(batch)
		batch = append(batch, ev)
	}

	return batch
}

// urlNearName recovers an info URL from the raw markup around the first
// occurrence of the school name, for events whose block text carried none.
func urlNearName(markup, name string) string {
	if name == "" {
		return ""
	}
	i := strings.Index(strings.ToLower(markup), strings.ToLower(name))
	if i < 0 {
		return ""
	}
	u, _ := htmltext.FirstURLNear(markup, i)
	return u
}
