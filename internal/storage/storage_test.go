package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mijnschoolkeuze/opendagen-sync/internal/matcher"
	"github.com/mijnschoolkeuze/opendagen-sync/internal/openday"
)

const testYear = "2025/26"

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testEvent(sourceID, schoolName string) openday.Event {
	starts := time.Date(2026, time.January, 15, 10, 0, 0, 0, openday.LocalOffset)
	return openday.Event{
		Source:          openday.Source,
		SourceID:        sourceID,
		SchoolName:      schoolName,
		StartsAt:        starts,
		EndsAt:          starts.Add(4 * time.Hour),
		EventType:       openday.TypeOpenDay,
		SchoolYearLabel: testYear,
		IsActive:        true,
	}
}

func TestSeedAndListSchools(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	schools := []matcher.School{
		{ID: "s2", Name: "Tweede Lyceum", WebsiteURL: "https://tweedelyceum.nl"},
		{ID: "s1", Name: "Voorbeeld College"},
	}
	if err := store.SeedSchools(ctx, schools); err != nil {
		t.Fatalf("SeedSchools: %v", err)
	}

	got, err := store.ListSchools(ctx)
	if err != nil {
		t.Fatalf("ListSchools: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 schools, got %d", len(got))
	}
	if got[0].ID != "s1" || got[1].ID != "s2" {
		t.Errorf("schools not ordered by id: %v", got)
	}
	if got[0].WebsiteURL != "" {
		t.Errorf("missing website should scan as empty, got %q", got[0].WebsiteURL)
	}

	// Re-seeding the same id updates in place.
	if err := store.SeedSchools(ctx, []matcher.School{{ID: "s1", Name: "Voorbeeld College Nieuw"}}); err != nil {
		t.Fatalf("SeedSchools update: %v", err)
	}
	got, _ = store.ListSchools(ctx)
	if len(got) != 2 || got[0].Name != "Voorbeeld College Nieuw" {
		t.Errorf("re-seed did not update in place: %v", got)
	}
}

func TestSyncInsertThenUpdate(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	t0 := time.Date(2025, time.November, 1, 8, 0, 0, 0, time.UTC)

	ev := testEvent("2026-01-15|voorbeeld|10:00-14:00|open_day", "Voorbeeld College")
	ev.Notes = "open dag, kom langs"
	ev.SchoolID = "s1"

	res, err := store.Sync(ctx, testYear, t0, []openday.Event{ev})
	if err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if res.Upserted != 1 || res.Deactivated != 0 || res.Reactivated != 0 {
		t.Errorf("first Sync result = %+v", res)
	}

	stored, err := store.EventBySourceID(ctx, ev.Source, ev.SourceID)
	if err != nil {
		t.Fatalf("EventBySourceID: %v", err)
	}
	if stored.SchoolName != ev.SchoolName || stored.SchoolID != "s1" || stored.Notes != ev.Notes {
		t.Errorf("stored event fields differ: %+v", stored)
	}
	if !stored.StartsAt.Equal(ev.StartsAt) || !stored.EndsAt.Equal(ev.EndsAt) {
		t.Errorf("stored times differ: %v - %v", stored.StartsAt, stored.EndsAt)
	}
	if !stored.IsActive || !stored.MissingSince.IsZero() {
		t.Errorf("fresh event should be active with no missing_since: %+v", stored)
	}

	// A later run observing the same identity updates the row in place.
	ev.Notes = "open dag met rondleiding"
	t1 := t0.Add(24 * time.Hour)
	if _, err := store.Sync(ctx, testYear, t1, []openday.Event{ev}); err != nil {
		t.Fatalf("second Sync: %v", err)
	}

	all, err := store.AllEvents(ctx, testYear)
	if err != nil {
		t.Fatalf("AllEvents: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 row after re-sync, got %d", len(all))
	}
	if all[0].Notes != "open dag met rondleiding" {
		t.Errorf("update did not refresh notes: %q", all[0].Notes)
	}
	if !all[0].LastSeenAt.Equal(t1) {
		t.Errorf("last_seen_at = %v, want %v", all[0].LastSeenAt, t1)
	}
}

func TestSyncLifecycle(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	a := testEvent("a|10:00-14:00|open_day", "School A")
	b := testEvent("b|10:00-14:00|open_day", "School B")

	t0 := time.Date(2025, time.November, 1, 8, 0, 0, 0, time.UTC)
	t1 := t0.Add(24 * time.Hour)
	t2 := t1.Add(24 * time.Hour)

	// Run 1 observes both.
	if _, err := store.Sync(ctx, testYear, t0, []openday.Event{a, b}); err != nil {
		t.Fatalf("run 1: %v", err)
	}

	// Run 2 observes only A: B goes missing.
	res, err := store.Sync(ctx, testYear, t1, []openday.Event{a})
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if res.Deactivated != 1 {
		t.Errorf("run 2 deactivated = %d, want 1", res.Deactivated)
	}

	bRow, _ := store.EventBySourceID(ctx, b.Source, b.SourceID)
	if bRow.IsActive || bRow.MissingSince.IsZero() {
		t.Fatalf("B should be inactive with missing_since set: %+v", bRow)
	}

	// Run 3 observes only B: A deactivates, B reactivates.
	res, err = store.Sync(ctx, testYear, t2, []openday.Event{b})
	if err != nil {
		t.Fatalf("run 3: %v", err)
	}
	if res.Deactivated != 1 || res.Reactivated != 1 {
		t.Errorf("run 3 result = %+v, want 1 deactivated and 1 reactivated", res)
	}

	aRow, _ := store.EventBySourceID(ctx, a.Source, a.SourceID)
	if aRow.IsActive {
		t.Errorf("A should be inactive after run 3")
	}
	if !aRow.MissingSince.Equal(t2) {
		t.Errorf("A missing_since = %v, want %v", aRow.MissingSince, t2)
	}

	bRow, _ = store.EventBySourceID(ctx, b.Source, b.SourceID)
	if !bRow.IsActive || !bRow.MissingSince.IsZero() {
		t.Errorf("B should be active again with missing_since cleared: %+v", bRow)
	}

	active, err := store.ActiveEvents(ctx, testYear)
	if err != nil {
		t.Fatalf("ActiveEvents: %v", err)
	}
	if len(active) != 1 || active[0].SourceID != b.SourceID {
		t.Errorf("active events = %v, want only B", active)
	}
}

func TestSyncIdempotent(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	events := []openday.Event{
		testEvent("a|10:00-14:00|open_day", "School A"),
		testEvent("b|19:00-21:00|open_evening", "School B"),
	}

	t0 := time.Date(2025, time.November, 1, 8, 0, 0, 0, time.UTC)
	if _, err := store.Sync(ctx, testYear, t0, events); err != nil {
		t.Fatalf("run 1: %v", err)
	}
	first, _ := store.AllEvents(ctx, testYear)

	res, err := store.Sync(ctx, testYear, t0.Add(time.Hour), events)
	if err != nil {
		t.Fatalf("run 2: %v", err)
	}
	if res.Deactivated != 0 || res.Reactivated != 0 {
		t.Errorf("identical re-run should not sweep anything: %+v", res)
	}

	second, _ := store.AllEvents(ctx, testYear)
	if len(second) != len(first) {
		t.Fatalf("row count changed: %d -> %d", len(first), len(second))
	}
	for i := range first {
		// Only the sync bookkeeping may move between identical runs.
		a, b := first[i], second[i]
		contentChanged := a.SourceID != b.SourceID ||
			a.SchoolName != b.SchoolName ||
			a.SchoolID != b.SchoolID ||
			a.LocationText != b.LocationText ||
			a.InfoURL != b.InfoURL ||
			a.Notes != b.Notes ||
			a.EventType != b.EventType ||
			a.IsActive != b.IsActive ||
			!a.StartsAt.Equal(b.StartsAt) ||
			!a.EndsAt.Equal(b.EndsAt) ||
			!a.MissingSince.Equal(b.MissingSince)
		if contentChanged {
			t.Errorf("row %d changed on identical re-run:\n%+v\n%+v", i, a, b)
		}
	}
}

func TestSyncScopedToYearLabel(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	t0 := time.Date(2025, time.November, 1, 8, 0, 0, 0, time.UTC)

	lastYear := testEvent("vorig|10:00-14:00|open_day", "Vorig Jaar College")
	lastYear.SchoolYearLabel = "2024/25"
	if _, err := store.Sync(ctx, "2024/25", t0, []openday.Event{lastYear}); err != nil {
		t.Fatalf("seeding previous year: %v", err)
	}

	// A run for the current year must not touch previous-year rows.
	res, err := store.Sync(ctx, testYear, t0.Add(time.Hour), []openday.Event{
		testEvent("huidig|10:00-14:00|open_day", "Huidig College"),
	})
	if err != nil {
		t.Fatalf("current year run: %v", err)
	}
	if res.Deactivated != 0 {
		t.Errorf("run deactivated %d rows from another year", res.Deactivated)
	}

	old, _ := store.EventBySourceID(ctx, lastYear.Source, lastYear.SourceID)
	if !old.IsActive {
		t.Errorf("previous-year event should remain active")
	}
}

func TestSyncEmptyRunDeactivatesYear(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	t0 := time.Date(2025, time.November, 1, 8, 0, 0, 0, time.UTC)

	if _, err := store.Sync(ctx, testYear, t0, []openday.Event{
		testEvent("a|10:00-14:00|open_day", "School A"),
	}); err != nil {
		t.Fatalf("run 1: %v", err)
	}

	res, err := store.Sync(ctx, testYear, t0.Add(time.Hour), nil)
	if err != nil {
		t.Fatalf("empty run: %v", err)
	}
	if res.Upserted != 0 || res.Deactivated != 1 {
		t.Errorf("empty run result = %+v, want 1 deactivation", res)
	}

	active, _ := store.ActiveEvents(ctx, testYear)
	if len(active) != 0 {
		t.Errorf("expected no active events, got %d", len(active))
	}
}
