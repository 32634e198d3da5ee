package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	logx "aircheck/pkg/logx"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(Config{Path: filepath.Join(t.TempDir(), "aircheck.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testShow() *Show {
	return &Show{
		Station:         "WXRT",
		Name:            "Morning Drive",
		Type:            ShowScheduled,
		StreamURL:       "http://example.com/stream.mp3",
		ScheduleText:    "every weekday at 8:00 AM",
		CronExpr:        "0 8 * * 1-5",
		ScheduleDesc:    "Weekdays at 8:00 AM",
		DurationMinutes: 120,
		Active:          true,
		TTLValue:        7,
		TTLType:         TTLDays,
	}
}

func TestShowRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatalf("CreateShow: %v", err)
	}

	got, err := st.GetShow(ctx, id)
	if err != nil {
		t.Fatalf("GetShow: %v", err)
	}
	if got.Name != "Morning Drive" || got.CronExpr != "0 8 * * 1-5" || !got.Active {
		t.Fatalf("unexpected show: %+v", got)
	}
	if got.TTLType != TTLDays || got.TTLValue != 7 {
		t.Fatalf("ttl = %d %s, want 7 days", got.TTLValue, got.TTLType)
	}

	got.Name = "Evening Drive"
	got.Active = false
	if err := st.UpdateShow(ctx, got); err != nil {
		t.Fatalf("UpdateShow: %v", err)
	}
	again, err := st.GetShow(ctx, id)
	if err != nil {
		t.Fatalf("GetShow after update: %v", err)
	}
	if again.Name != "Evening Drive" || again.Active {
		t.Fatalf("update not persisted: %+v", again)
	}
}

func TestGetShowNotFound(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	if _, err := st.GetShow(context.Background(), 999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateShowValidation(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	sh := testShow()
	sh.Name = "  "
	if _, err := st.CreateShow(ctx, sh); err == nil {
		t.Fatal("expected error for blank name")
	}

	sh = testShow()
	sh.DurationMinutes = 0
	if _, err := st.CreateShow(ctx, sh); err == nil {
		t.Fatal("expected error for zero duration")
	}

	sh = testShow()
	sh.TTLType = TTLType("eons")
	if _, err := st.CreateShow(ctx, sh); err == nil {
		t.Fatal("expected error for bad ttl type")
	}
}

func TestListActiveScheduledShows(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	active := testShow()
	activeID, err := st.CreateShow(ctx, active)
	if err != nil {
		t.Fatal(err)
	}

	inactive := testShow()
	inactive.Name = "Night Owl"
	inactive.Active = false
	if _, err := st.CreateShow(ctx, inactive); err != nil {
		t.Fatal(err)
	}

	// Playlist show with leftover schedule text from a type change; must
	// still be excluded.
	playlist := testShow()
	playlist.Name = "Archive Mix"
	playlist.Type = ShowPlaylist
	if _, err := st.CreateShow(ctx, playlist); err != nil {
		t.Fatal(err)
	}

	shows, err := st.ListActiveScheduledShows(ctx)
	if err != nil {
		t.Fatalf("ListActiveScheduledShows: %v", err)
	}
	if len(shows) != 1 || shows[0].ID != activeID {
		t.Fatalf("shows = %+v, want just %d", shows, activeID)
	}
}

func TestSetShowScheduleAndActive(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	id, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatal(err)
	}
	if err := st.SetShowSchedule(ctx, id, "saturdays at noon", "0 12 * * 6", "Saturday at 12:00 PM"); err != nil {
		t.Fatalf("SetShowSchedule: %v", err)
	}
	if err := st.SetShowActive(ctx, id, false); err != nil {
		t.Fatalf("SetShowActive: %v", err)
	}
	got, err := st.GetShow(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.CronExpr != "0 12 * * 6" || got.ScheduleText != "saturdays at noon" || got.Active {
		t.Fatalf("unexpected show: %+v", got)
	}

	if err := st.SetShowSchedule(ctx, 999, "x", "y", "z"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRecordingRoundTrip(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	showID, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatal(err)
	}

	recordedAt := time.Date(2025, time.April, 7, 8, 0, 0, 0, time.UTC)
	expires := recordedAt.AddDate(0, 0, 7)
	id, err := st.CreateRecording(ctx, &Recording{
		ShowID:          showID,
		RecordedAt:      recordedAt,
		DurationSeconds: 7200,
		Source:          SourceCaptured,
		FilePath:        "/tmp/wxrt-morning.mp3",
		ExpiresAt:       &expires,
	})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	got, err := st.GetRecording(ctx, id)
	if err != nil {
		t.Fatalf("GetRecording: %v", err)
	}
	if !got.RecordedAt.Equal(recordedAt) || got.ExpiresAt == nil || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected recording: %+v", got)
	}
	if got.HasOverride() {
		t.Fatal("recording should have no override")
	}

	byShow, err := st.ListRecordingsByShow(ctx, showID)
	if err != nil {
		t.Fatal(err)
	}
	if len(byShow) != 1 {
		t.Fatalf("recordings = %d, want 1", len(byShow))
	}
}

func TestListExpiredRecordings(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	showID, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	mk := func(name string, expires *time.Time) int64 {
		t.Helper()
		id, err := st.CreateRecording(ctx, &Recording{
			ShowID:     showID,
			RecordedAt: now.AddDate(0, 0, -10),
			Source:     SourceCaptured,
			FilePath:   "/tmp/" + name,
			ExpiresAt:  expires,
		})
		if err != nil {
			t.Fatal(err)
		}
		return id
	}

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	expiredID := mk("expired.mp3", &past)
	mk("future.mp3", &future)
	mk("indefinite.mp3", nil)

	got, err := st.ListExpiredRecordings(ctx, now, 0)
	if err != nil {
		t.Fatalf("ListExpiredRecordings: %v", err)
	}
	if len(got) != 1 || got[0].ID != expiredID {
		t.Fatalf("expired = %+v, want just %d", got, expiredID)
	}
}

func TestListExpiredRecordingsWholeSecondExpiry(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	showID, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatal(err)
	}

	// A whole-second expiry must be selected by a fractional "now" later in
	// the same second; instants are compared numerically, not as strings.
	expires := time.Now().UTC().Truncate(time.Second)
	id, err := st.CreateRecording(ctx, &Recording{
		ShowID:     showID,
		RecordedAt: expires.AddDate(0, 0, -7),
		Source:     SourceCaptured,
		FilePath:   "/tmp/on-the-second.mp3",
		ExpiresAt:  &expires,
	})
	if err != nil {
		t.Fatal(err)
	}

	got, err := st.ListExpiredRecordings(ctx, expires.Add(500*time.Millisecond), 0)
	if err != nil {
		t.Fatalf("ListExpiredRecordings: %v", err)
	}
	if len(got) != 1 || got[0].ID != id {
		t.Fatalf("expired = %+v, want just %d", got, id)
	}
}

func TestUpdateShowTTLSkipsOverrides(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	showID, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatal(err)
	}

	recordedAt := time.Date(2025, time.May, 1, 8, 0, 0, 0, time.UTC)
	oldExpiry := recordedAt.AddDate(0, 0, 7)
	plainID, err := st.CreateRecording(ctx, &Recording{
		ShowID:     showID,
		RecordedAt: recordedAt,
		Source:     SourceCaptured,
		FilePath:   "/tmp/plain.mp3",
		ExpiresAt:  &oldExpiry,
	})
	if err != nil {
		t.Fatal(err)
	}

	ovType := TTLMonths
	ovValue := 6
	ovExpiry := recordedAt.AddDate(0, 6, 0)
	overrideID, err := st.CreateRecording(ctx, &Recording{
		ShowID:           showID,
		RecordedAt:       recordedAt,
		Source:           SourceUploaded,
		FilePath:         "/tmp/keeper.mp3",
		TTLOverrideType:  &ovType,
		TTLOverrideValue: &ovValue,
		ExpiresAt:        &ovExpiry,
	})
	if err != nil {
		t.Fatal(err)
	}

	newExpiry := recordedAt.AddDate(0, 0, 30)
	n, err := st.UpdateShowTTL(ctx, showID, 30, TTLDays, func(at time.Time) *time.Time {
		e := at.AddDate(0, 0, 30)
		return &e
	})
	if err != nil {
		t.Fatalf("UpdateShowTTL: %v", err)
	}
	if n != 1 {
		t.Fatalf("recomputed = %d, want 1", n)
	}

	plain, err := st.GetRecording(ctx, plainID)
	if err != nil {
		t.Fatal(err)
	}
	if plain.ExpiresAt == nil || !plain.ExpiresAt.Equal(newExpiry) {
		t.Fatalf("plain expiry = %v, want %v", plain.ExpiresAt, newExpiry)
	}

	override, err := st.GetRecording(ctx, overrideID)
	if err != nil {
		t.Fatal(err)
	}
	if override.ExpiresAt == nil || !override.ExpiresAt.Equal(ovExpiry) {
		t.Fatalf("override expiry changed: %v", override.ExpiresAt)
	}

	sh, err := st.GetShow(ctx, showID)
	if err != nil {
		t.Fatal(err)
	}
	if sh.TTLValue != 30 || sh.TTLType != TTLDays {
		t.Fatalf("show policy = %d %s, want 30 days", sh.TTLValue, sh.TTLType)
	}
}

func TestUpdateShowTTLIndefiniteClearsExpiry(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	showID, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatal(err)
	}
	recordedAt := time.Now().UTC().AddDate(0, 0, -1)
	expiry := recordedAt.AddDate(0, 0, 7)
	recID, err := st.CreateRecording(ctx, &Recording{
		ShowID:     showID,
		RecordedAt: recordedAt,
		Source:     SourceCaptured,
		FilePath:   "/tmp/forever.mp3",
		ExpiresAt:  &expiry,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := st.UpdateShowTTL(ctx, showID, 0, TTLIndefinite, func(time.Time) *time.Time {
		return nil
	}); err != nil {
		t.Fatalf("UpdateShowTTL: %v", err)
	}

	rec, err := st.GetRecording(ctx, recID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.ExpiresAt != nil {
		t.Fatalf("expiry = %v, want nil", rec.ExpiresAt)
	}
}

func TestDeleteShowCascades(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ctx := context.Background()

	showID, err := st.CreateShow(ctx, testShow())
	if err != nil {
		t.Fatal(err)
	}
	recID, err := st.CreateRecording(ctx, &Recording{
		ShowID:     showID,
		RecordedAt: time.Now().UTC(),
		Source:     SourceCaptured,
		FilePath:   "/tmp/x.mp3",
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := st.DeleteShow(ctx, showID); err != nil {
		t.Fatalf("DeleteShow: %v", err)
	}
	if _, err := st.GetRecording(ctx, recID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound after cascade", err)
	}
}
