package retention

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"aircheck/internal/store"
	logx "aircheck/pkg/logx"
)

type fakeStore struct {
	expired []store.Recording
	listErr error

	deleted    []int64
	deleteErr  map[int64]error
	ttlCalls   int
	ttlShowID  int64
	ttlValue   int
	ttlType    store.TTLType
	ttlCompute func(time.Time) *time.Time
}

func (f *fakeStore) ListExpiredRecordings(ctx context.Context, now time.Time, limit int) ([]store.Recording, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.expired, nil
}

func (f *fakeStore) DeleteRecording(ctx context.Context, id int64) error {
	if err := f.deleteErr[id]; err != nil {
		return err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeStore) UpdateShowTTL(ctx context.Context, showID int64, value int, ttlType store.TTLType, computeExpiry func(time.Time) *time.Time) (int, error) {
	f.ttlCalls++
	f.ttlShowID = showID
	f.ttlValue = value
	f.ttlType = ttlType
	f.ttlCompute = computeExpiry
	return 3, nil
}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestSweepOnceDeletesFileFirst(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	f1 := touch(t, dir, "a.mp3")
	f2 := touch(t, dir, "b.mp3")

	db := &fakeStore{expired: []store.Recording{
		{ID: 1, ShowID: 10, FilePath: f1},
		{ID: 2, ShowID: 10, FilePath: f2},
	}}
	s := New(Config{Enabled: true}, db, nil, nil, logx.Nop())

	deleted, skipped, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if deleted != 2 || skipped != 0 {
		t.Fatalf("deleted=%d skipped=%d, want 2/0", deleted, skipped)
	}
	for _, p := range []string{f1, f2} {
		if _, err := os.Stat(p); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("file %s still exists", p)
		}
	}
	if len(db.deleted) != 2 {
		t.Fatalf("rows deleted = %v, want both", db.deleted)
	}
}

func TestSweepOnceMissingFileCountsAsRemoved(t *testing.T) {
	t.Parallel()
	db := &fakeStore{expired: []store.Recording{
		{ID: 7, ShowID: 1, FilePath: filepath.Join(t.TempDir(), "gone.mp3")},
	}}
	s := New(Config{Enabled: true}, db, nil, nil, logx.Nop())

	deleted, skipped, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if deleted != 1 || skipped != 0 {
		t.Fatalf("deleted=%d skipped=%d, want 1/0", deleted, skipped)
	}
}

func TestSweepOnceKeepsRowWhenFileRemovalFails(t *testing.T) {
	t.Parallel()
	// A non-empty directory makes os.Remove fail without needing permission
	// tricks, which don't hold up when tests run as root.
	dir := t.TempDir()
	stubborn := filepath.Join(dir, "subdir")
	if err := os.Mkdir(stubborn, 0o755); err != nil {
		t.Fatal(err)
	}
	touch(t, stubborn, "inner.mp3")

	ok := touch(t, dir, "ok.mp3")
	db := &fakeStore{expired: []store.Recording{
		{ID: 1, ShowID: 1, FilePath: stubborn},
		{ID: 2, ShowID: 1, FilePath: ok},
	}}
	s := New(Config{Enabled: true}, db, nil, nil, logx.Nop())

	deleted, skipped, err := s.SweepOnce(context.Background())
	if err != nil {
		t.Fatalf("SweepOnce: %v", err)
	}
	if deleted != 1 || skipped != 1 {
		t.Fatalf("deleted=%d skipped=%d, want 1/1", deleted, skipped)
	}
	if len(db.deleted) != 1 || db.deleted[0] != 2 {
		t.Fatalf("rows deleted = %v, want [2] only", db.deleted)
	}
}

func TestSweepOnceListError(t *testing.T) {
	t.Parallel()
	db := &fakeStore{listErr: errors.New("db locked")}
	s := New(Config{Enabled: true}, db, nil, nil, logx.Nop())
	if _, _, err := s.SweepOnce(context.Background()); err == nil {
		t.Fatal("expected error when listing fails")
	}
}

func TestUpdateShowTTLValidatesBeforeWriting(t *testing.T) {
	t.Parallel()
	db := &fakeStore{}
	s := New(Config{Enabled: true}, db, nil, nil, logx.Nop())

	if _, err := s.UpdateShowTTL(context.Background(), 1, 0, store.TTLDays); err == nil {
		t.Fatal("expected validation error")
	}
	if db.ttlCalls != 0 {
		t.Fatal("store touched despite invalid policy")
	}

	n, err := s.UpdateShowTTL(context.Background(), 1, 14, store.TTLDays)
	if err != nil {
		t.Fatalf("UpdateShowTTL: %v", err)
	}
	if n != 3 {
		t.Fatalf("recomputed = %d, want 3", n)
	}
	if db.ttlType != store.TTLDays || db.ttlValue != 14 {
		t.Fatalf("persisted policy = %d %s", db.ttlValue, db.ttlType)
	}

	// The expiry closure carries the new policy.
	base := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	got := db.ttlCompute(base)
	if got == nil || !got.Equal(base.AddDate(0, 0, 14)) {
		t.Fatalf("computeExpiry = %v, want %v", got, base.AddDate(0, 0, 14))
	}
}
