package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"aircheck/internal/eventbus"
	"aircheck/internal/metrics"
	"aircheck/internal/store"
	logx "aircheck/pkg/logx"
)

// Config controls the retention sweeper.
type Config struct {
	Enabled    bool
	Interval   time.Duration // default 1h
	BatchLimit int           // max recordings considered per cycle
}

// Store is the slice of persistence the sweeper needs.
type Store interface {
	UpdateShowTTL(ctx context.Context, showID int64, value int, ttlType store.TTLType, computeExpiry func(recordedAt time.Time) *time.Time) (int, error)
	ListExpiredRecordings(ctx context.Context, now time.Time, limit int) ([]store.Recording, error)
	DeleteRecording(ctx context.Context, id int64) error
}

// SweepEvent is the bus payload for sweep cycles.
type SweepEvent struct {
	Deleted int
	Skipped int
	Took    time.Duration
	Error   string
}

// Service periodically deletes recordings whose expiry has passed. It runs
// on its own cadence, independent of the recording scheduler.
type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config

	db  Store
	bus eventbus.Bus
	met *metrics.Metrics

	stopCh   chan struct{}
	stopDone chan struct{}
}

func New(cfg Config, db Store, bus eventbus.Bus, met *metrics.Metrics, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, db: db, bus: bus, met: met, log: log}
}

func (s *Service) Enabled() bool {
	s.mu.Lock()
	en := s.cfg.Enabled
	s.mu.Unlock()
	return en
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.stopCh != nil {
		s.mu.Unlock()
		return
	}
	s.stopCh = make(chan struct{})
	s.stopDone = make(chan struct{})
	stopCh := s.stopCh
	stopDone := s.stopDone
	interval := s.cfg.Interval
	s.mu.Unlock()

	if interval <= 0 {
		interval = time.Hour
	}

	go func() {
		defer close(stopDone)
		// One pass right away so a restart doesn't defer overdue deletions
		// by a whole interval.
		s.runCycle(ctx)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-t.C:
				s.runCycle(ctx)
			}
		}
	}()
	s.log.Info("sweeper started", logx.Duration("interval", interval))
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	stopCh := s.stopCh
	stopDone := s.stopDone
	s.stopCh = nil
	s.stopDone = nil
	s.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	select {
	case <-stopDone:
	case <-ctx.Done():
	}
	s.log.Info("sweeper stopped")
}

func (s *Service) runCycle(ctx context.Context) {
	deleted, skipped, err := s.SweepOnce(ctx)
	if err != nil {
		s.log.Error("sweep cycle failed", logx.Err(err))
	}
	_ = deleted
	_ = skipped
}

// SweepOnce evaluates every expired recording once. A recording is deleted
// file-first: if the backing file cannot be removed the database row stays,
// and the recording is retried next cycle. It returns how many recordings
// were deleted and how many were skipped this cycle.
func (s *Service) SweepOnce(ctx context.Context) (deleted, skipped int, err error) {
	start := time.Now()
	s.mu.Lock()
	limit := s.cfg.BatchLimit
	s.mu.Unlock()

	recs, err := s.db.ListExpiredRecordings(ctx, time.Now(), limit)
	if err != nil {
		if s.bus != nil {
			s.bus.Publish(eventbus.Event{Type: eventbus.TypeSweepError, Data: SweepEvent{Error: err.Error()}})
		}
		return 0, 0, fmt.Errorf("list expired: %w", err)
	}

	for _, r := range recs {
		if err := removeFile(r.FilePath); err != nil {
			// Keep the row: a dangling-but-tracked row beats an unreachable
			// file nothing points at.
			skipped++
			if s.met != nil {
				s.met.SweepErrors.Inc()
			}
			s.log.Warn("sweep: file removal failed; keeping row",
				logx.Int64("recording", r.ID),
				logx.Int64("show", r.ShowID),
				logx.String("file", r.FilePath),
				logx.Err(err))
			continue
		}
		if err := s.db.DeleteRecording(ctx, r.ID); err != nil {
			skipped++
			if s.met != nil {
				s.met.SweepErrors.Inc()
			}
			s.log.Warn("sweep: row delete failed",
				logx.Int64("recording", r.ID), logx.Err(err))
			continue
		}
		deleted++
		if s.met != nil {
			s.met.RecordingsSwept.Inc()
		}
		s.log.Debug("recording swept",
			logx.Int64("recording", r.ID),
			logx.Int64("show", r.ShowID),
			logx.Time("expired", derefTime(r.ExpiresAt)))
	}

	took := time.Since(start)
	if s.met != nil {
		s.met.SweepDuration.Observe(took.Seconds())
	}
	if s.bus != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.TypeSweepCompleted, Data: SweepEvent{
			Deleted: deleted, Skipped: skipped, Took: took,
		}})
	}
	if deleted > 0 || skipped > 0 {
		s.log.Info("sweep complete",
			logx.Int("deleted", deleted),
			logx.Int("skipped", skipped),
			logx.Duration("took", took))
	}
	return deleted, skipped, nil
}

// UpdateShowTTL persists a show's new default policy and recomputes the
// expiry of every recording without a per-recording override. The policy is
// validated before anything is written, so a bad value leaves prior
// expirations untouched. It returns the number of recordings updated.
func (s *Service) UpdateShowTTL(ctx context.Context, showID int64, value int, ttlType store.TTLType) (int, error) {
	if err := ValidatePolicy(ttlType, value); err != nil {
		return 0, err
	}
	n, err := s.db.UpdateShowTTL(ctx, showID, value, ttlType, func(recordedAt time.Time) *time.Time {
		return ExpiresAt(recordedAt, ttlType, value)
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("show ttl updated",
		logx.Int64("show", showID),
		logx.String("type", string(ttlType)),
		logx.Int("value", value),
		logx.Int("recomputed", n))
	return n, nil
}

func removeFile(path string) error {
	err := os.Remove(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		// Already gone counts as removed; the row is safe to drop.
		return nil
	}
	return err
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
