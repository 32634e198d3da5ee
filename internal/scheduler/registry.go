package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"aircheck/internal/store"
	logx "aircheck/pkg/logx"
)

// Register reads the show's persisted state and installs (or overwrites) its
// cron job. A playlist show, an inactive show, or a show without a compiled
// expression yields no job and a nil error; any stale registration for it is
// removed so the live set can never disagree with the row. Calling Register
// twice with unchanged show state produces no observable difference.
func (s *Service) Register(ctx context.Context, showID int64) error {
	sh, err := s.db.GetShow(ctx, showID)
	if err != nil {
		return fmt.Errorf("load show %d: %w", showID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Upsert by show id: drop any previous registration first.
	s.removeLocked(showID)

	if !eligible(sh) {
		s.log.Debug("show not schedulable; no job",
			logx.Int64("show", sh.ID),
			logx.String("type", string(sh.Type)),
			logx.Bool("active", sh.Active),
			logx.Bool("compiled", sh.CronExpr != ""))
		return nil
	}

	j := &job{
		showID:    sh.ID,
		station:   sh.Station,
		show:      sh.Name,
		streamURL: sh.StreamURL,
		spec:      sh.CronExpr,
		duration:  time.Duration(sh.DurationMinutes) * time.Minute,
	}
	if s.c != nil {
		if err := s.addJobLocked(j); err != nil {
			return fmt.Errorf("register show %d: %w", showID, err)
		}
	}
	// Scheduler not started yet: keep the job and install it on Start().
	s.jobs[showID] = j
	s.updateGaugeLocked()

	s.log.Debug("job registered",
		logx.Int64("show", sh.ID),
		logx.String("station", sh.Station),
		logx.String("name", sh.Name),
		logx.String("spec", sh.CronExpr),
		logx.Duration("duration", j.duration))
	return nil
}

// Unregister removes any live job for the show. It reports whether a job was
// removed; absence is not an error.
func (s *Service) Unregister(showID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.removeLocked(showID)
	if removed {
		s.updateGaugeLocked()
		s.log.Debug("job unregistered", logx.Int64("show", showID))
	}
	return removed
}

// Reconcile makes the live job set match the show's persisted state:
// unregister, then register. The editing surface calls this after every show
// create, update, or status toggle. Registration bookkeeping for one show is
// serialized by the registry mutex; when two edits race, the last completed
// reconcile wins.
func (s *Service) Reconcile(ctx context.Context, showID int64) error {
	s.Unregister(showID)
	return s.Register(ctx, showID)
}

// ResyncAll rebuilds the full live job set from persisted shows. Called once
// at startup; the registry carries no in-memory state across restarts.
// Individual registration failures are logged and skipped so one malformed
// expression cannot keep the rest of the shows unscheduled.
func (s *Service) ResyncAll(ctx context.Context) error {
	shows, err := s.db.ListActiveScheduledShows(ctx)
	if err != nil {
		return fmt.Errorf("list active shows: %w", err)
	}
	ok := 0
	for _, sh := range shows {
		if err := s.Register(ctx, sh.ID); err != nil {
			s.log.Error("resync: register failed", logx.Int64("show", sh.ID), logx.Err(err))
			continue
		}
		ok++
	}
	s.log.Info("resync complete", logx.Int("registered", ok), logx.Int("shows", len(shows)))
	return nil
}

func eligible(sh *store.Show) bool {
	return sh.Type == store.ShowScheduled && sh.Active && sh.CronExpr != ""
}

// addJobLocked installs the cron entry. Call with s.mu held.
func (s *Service) addJobLocked(j *job) error {
	eid, err := s.c.AddFunc(j.spec, func() {
		// Every firing is an independent run; a still-running capture for a
		// previous occurrence never suppresses the next one.
		s.enqueue(run{
			id:        uuid.NewString(),
			showID:    j.showID,
			station:   j.station,
			show:      j.show,
			streamURL: j.streamURL,
			duration:  j.duration,
			firedAt:   time.Now(),
		})
	})
	if err != nil {
		return err
	}
	j.entryID = eid
	return nil
}

// removeLocked drops the show's registration from cron and the job map.
// Call with s.mu held.
func (s *Service) removeLocked(showID int64) bool {
	j, ok := s.jobs[showID]
	if !ok {
		return false
	}
	if s.c != nil && j.entryID != 0 {
		s.c.Remove(j.entryID)
	}
	delete(s.jobs, showID)
	return true
}

func (s *Service) updateGaugeLocked() {
	if s.met != nil {
		s.met.RegisteredJobs.Set(float64(len(s.jobs)))
	}
}
