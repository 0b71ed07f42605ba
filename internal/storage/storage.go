// Package storage persists open-day events and the school directory in
// sqlite.
//
// The event store is merge-only: Sync upserts on (source, source_id) and
// then reconciles presence per school year: rows not touched by the run are
// deactivated, touched rows that were marked missing are reactivated. Rows
// are never deleted. All three steps run in one transaction, so a failed run
// leaves the previous state intact.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/mijnschoolkeuze/opendagen-sync/internal/matcher"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/openday"
)

// timeLayout is the column format for timestamps. RFC3339 in UTC keeps the
// string width fixed, so the sweeps' last_seen_at comparisons order
// correctly as text.
const timeLayout = time.RFC3339

// Store wraps the sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	for _, stmt := range strings.Split(migrationsSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ListSchools returns every directory row. The matcher index is rebuilt from
// this on every run, so newly added schools are matchable immediately.
func (s *Store) ListSchools(ctx context.Context) ([]matcher.School, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, IFNULL(website_url, '') FROM schools ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing schools: %w", err)
	}
	defer rows.Close()

	var schools []matcher.School
	for rows.Next() {
		var sc matcher.School
		if err := rows.Scan(&sc.ID, &sc.Name, &sc.WebsiteURL); err != nil {
			return nil, fmt.Errorf("scanning school: %w", err)
		}
		schools = append(schools, sc)
	}
	return schools, rows.Err()
}

// SeedSchools inserts or updates directory rows. The directory is owned by
// the school-sync collaborator; this entry point exists for it and for tests.
func (s *Store) SeedSchools(ctx context.Context, schools []matcher.School) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning seed transaction: %w", err)
	}
	defer tx.Rollback()

	for _, sc := range schools {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schools (id, name, website_url) VALUES (?, ?, NULLIF(?, ''))
			 ON CONFLICT (id) DO UPDATE SET
				name = excluded.name,
				website_url = excluded.website_url`,
			sc.ID, sc.Name, sc.WebsiteURL)
		if err != nil {
			return fmt.Errorf("seeding school %s: %w", sc.ID, err)
		}
	}
	return tx.Commit()
}

// SyncResult reports what one merge did to the store.
type SyncResult struct {
	Upserted    int
	Deactivated int
	Reactivated int
}

// Sync merges one run's events into the store and reconciles lifecycle state
// for the given school year, all within a single transaction:
//
//  1. Upsert each event on (source, source_id), refreshing every parsed
//     field and marking it seen now.
//  2. Deactivate active rows for the year whose last_seen_at predates now
//     (absent from this run).
//  3. Reactivate rows seen now that still carry a missing_since (reappeared).
//
// The order guarantees an event present in this run is never left inactive
// and an absent one is never left active. Errors name the failing step.
func (s *Store) Sync(ctx context.Context, yearLabel string, now time.Time, events []openday.Event) (SyncResult, error) {
	var res SyncResult
	nowStr := now.UTC().Format(timeLayout)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return res, fmt.Errorf("beginning sync transaction: %w", err)
	}
	defer tx.Rollback()

	for _, ev := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO open_days (
				source, source_id, school_name, school_id,
				starts_at, ends_at, location_text, info_url, notes,
				event_type, school_year_label,
				last_synced_at, last_seen_at, is_active, missing_since
			) VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, 1, NULL)
			ON CONFLICT (source, source_id) DO UPDATE SET
				school_name = excluded.school_name,
				school_id = excluded.school_id,
				starts_at = excluded.starts_at,
				ends_at = excluded.ends_at,
				location_text = excluded.location_text,
				info_url = excluded.info_url,
				notes = excluded.notes,
				event_type = excluded.event_type,
				school_year_label = excluded.school_year_label,
				last_synced_at = excluded.last_synced_at,
				last_seen_at = excluded.last_seen_at,
				is_active = 1,
				missing_since = NULL`,
			ev.Source, ev.SourceID, ev.SchoolName, ev.SchoolID,
			ev.StartsAt.Format(timeLayout), ev.EndsAt.Format(timeLayout),
			ev.LocationText, ev.InfoURL, ev.Notes,
			string(ev.EventType), yearLabel,
			nowStr, nowStr)
		if err != nil {
			return res, fmt.Errorf("upsert failed for %s: %w", ev.SourceID, err)
		}
		res.Upserted++
	}

	deact, err := tx.ExecContext(ctx, `
		UPDATE open_days
		SET is_active = 0, missing_since = ?
		WHERE school_year_label = ? AND is_active = 1 AND last_seen_at < ?`,
		nowStr, yearLabel, nowStr)
	if err != nil {
		return res, fmt.Errorf("deactivation sweep failed: %w", err)
	}
	n, _ := deact.RowsAffected()
	res.Deactivated = int(n)

	react, err := tx.ExecContext(ctx, `
		UPDATE open_days
		SET is_active = 1, missing_since = NULL
		WHERE school_year_label = ? AND last_seen_at = ? AND missing_since IS NOT NULL`,
		yearLabel, nowStr)
	if err != nil {
		return res, fmt.Errorf("reactivation sweep failed: %w", err)
	}
	n, _ = react.RowsAffected()
	res.Reactivated = int(n)

	if err := tx.Commit(); err != nil {
		return res, fmt.Errorf("committing sync: %w", err)
	}
	return res, nil
}

const eventColumns = `source, source_id, school_name, IFNULL(school_id, ''),
	starts_at, ends_at, IFNULL(location_text, ''), IFNULL(info_url, ''), IFNULL(notes, ''),
	event_type, school_year_label, last_synced_at, last_seen_at, is_active, IFNULL(missing_since, '')`

// ActiveEvents returns the active events for a school year, ordered by start
// time.
func (s *Store) ActiveEvents(ctx context.Context, yearLabel string) ([]openday.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM open_days
		 WHERE school_year_label = ? AND is_active = 1
		 ORDER BY starts_at, source_id`, yearLabel)
	if err != nil {
		return nil, fmt.Errorf("querying active events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// AllEvents returns every row for a school year regardless of lifecycle
// state, ordered by start time.
func (s *Store) AllEvents(ctx context.Context, yearLabel string) ([]openday.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM open_days
		 WHERE school_year_label = ?
		 ORDER BY starts_at, source_id`, yearLabel)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// EventBySourceID looks up one event by its merge key.
func (s *Store) EventBySourceID(ctx context.Context, source, sourceID string) (openday.Event, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM open_days WHERE source = ? AND source_id = ?`,
		source, sourceID)
	ev, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return openday.Event{}, fmt.Errorf("event not found: %s|%s", source, sourceID)
	}
	return ev, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(r rowScanner) (openday.Event, error) {
	var (
		ev                                               openday.Event
		startsAt, endsAt, syncedAt, seenAt, missingSince string
		eventType                                        string
		isActive                                         int
	)
	err := r.Scan(
		&ev.Source, &ev.SourceID, &ev.SchoolName, &ev.SchoolID,
		&startsAt, &endsAt, &ev.LocationText, &ev.InfoURL, &ev.Notes,
		&eventType, &ev.SchoolYearLabel, &syncedAt, &seenAt, &isActive, &missingSince)
	if err != nil {
		return ev, err
	}

	ev.EventType = openday.Type(eventType)
	ev.IsActive = isActive != 0
	if ev.StartsAt, err = time.Parse(timeLayout, startsAt); err != nil {
		return ev, fmt.Errorf("parsing starts_at: %w", err)
	}
	if ev.EndsAt, err = time.Parse(timeLayout, endsAt); err != nil {
		return ev, fmt.Errorf("parsing ends_at: %w", err)
	}
	if ev.LastSyncedAt, err = time.Parse(timeLayout, syncedAt); err != nil {
		return ev, fmt.Errorf("parsing last_synced_at: %w", err)
	}
	if ev.LastSeenAt, err = time.Parse(timeLayout, seenAt); err != nil {
		return ev, fmt.Errorf("parsing last_seen_at: %w", err)
	}
	if missingSince != "" {
		if ev.MissingSince, err = time.Parse(timeLayout, missingSince); err != nil {
			return ev, fmt.Errorf("parsing missing_since: %w", err)
		}
	}
	return ev, nil
}

func scanEvents(rows *sql.Rows) ([]openday.Event, error) {
	var events []openday.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
