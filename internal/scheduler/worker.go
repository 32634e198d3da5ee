package scheduler

import (
	"context"
	"runtime/debug"
	"time"

	"aircheck/internal/capture"
	"aircheck/internal/eventbus"
	"aircheck/internal/retention"
	"aircheck/internal/store"
	logx "aircheck/pkg/logx"
)

func (s *Service) enqueue(r run) {
	s.mu.Lock()
	q := s.queue
	ctx := s.runCtx
	s.mu.Unlock()
	if q == nil || ctx == nil {
		s.log.Debug("scheduler not running; dropping run", logx.Int64("show", r.showID))
		return
	}
	select {
	case q <- r:
		// ok
	default:
		// Handoff buffer momentarily full (top-of-the-hour burst). Start the
		// capture directly: a firing is never dropped because others fired at
		// the same instant.
		s.spawn(ctx, r)
	}
}

func (s *Service) worker(ctx context.Context, stopCh <-chan struct{}, queue <-chan run) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		default:
		}

		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case r := <-queue:
			// Captures run for their full show duration, so each firing gets
			// its own goroutine. The dispatcher never bounds how many run at
			// once; simultaneous shows must not record each other's slots.
			s.spawn(ctx, r)
		}
	}
}

// spawn starts one capture goroutine, tracked by the worker WaitGroup so
// Stop() waits for in-flight captures.
func (s *Service) spawn(ctx context.Context, r run) {
	s.workerWG.Add(1)
	go func() {
		defer s.workerWG.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.log.Error("panic in capture run",
					logx.String("run", r.id),
					logx.Int64("show", r.showID),
					logx.Any("panic", rec),
					logx.String("stack", string(debug.Stack())))
			}
		}()
		s.execOne(ctx, r)
	}()
}

// execOne performs one bounded capture and, on success, finalizes the
// recording row. The next occurrence is computed by cron from the expression
// alone; nothing here feeds back into fire-time computation.
func (s *Service) execOne(ctx context.Context, r run) {
	start := time.Now()
	if s.met != nil {
		s.met.CapturesStarted.WithLabelValues(r.station).Inc()
	}
	s.publish(eventbus.TypeCaptureStarted, RunEvent{
		RunID: r.id, ShowID: r.showID, Station: r.station, Show: r.show, Started: start,
	})

	runCtx, cancel := context.WithTimeout(ctx, r.duration)
	res, err := s.runner.Capture(runCtx, capture.Request{
		RunID:     r.id,
		ShowID:    r.showID,
		Station:   r.station,
		ShowName:  r.show,
		StreamURL: r.streamURL,
		Dir:       s.cfg.RecordingsDir,
	})
	cancel()

	item := HistoryItem{
		RunID:   r.id,
		ShowID:  r.showID,
		Show:    r.show,
		Started: start,
	}

	if err == nil {
		err = s.finalize(ctx, r, res)
	}

	item.Duration = time.Since(start)
	item.File = res.FilePath
	if err != nil {
		item.Error = err.Error()
		if s.met != nil {
			s.met.CapturesFailed.WithLabelValues(r.station).Inc()
		}
		s.log.Warn("capture failed",
			logx.String("run", r.id),
			logx.Int64("show", r.showID),
			logx.String("name", r.show),
			logx.Duration("dur", item.Duration),
			logx.Err(err))
		s.publish(eventbus.TypeCaptureFailed, RunEvent{
			RunID: r.id, ShowID: r.showID, Station: r.station, Show: r.show,
			Started: start, Duration: item.Duration, Error: err.Error(),
		})
	} else {
		if s.met != nil {
			s.met.CapturesCompleted.WithLabelValues(r.station).Inc()
		}
		s.log.Info("capture completed",
			logx.String("run", r.id),
			logx.Int64("show", r.showID),
			logx.String("name", r.show),
			logx.String("file", res.FilePath),
			logx.Duration("dur", item.Duration))
		s.publish(eventbus.TypeCaptureCompleted, RunEvent{
			RunID: r.id, ShowID: r.showID, Station: r.station, Show: r.show,
			Started: start, Duration: item.Duration, File: res.FilePath,
		})
	}

	s.hmu.Lock()
	defer s.hmu.Unlock()
	s.history = append(s.history, item)
	historySize := s.historySize()
	if len(s.history) > historySize {
		s.history = s.history[len(s.history)-historySize:]
	}
}

// finalize inserts the recording row for a finished capture. The expiry is
// computed from the show's retention policy as persisted at completion time,
// so a TTL edit racing a capture settles on the newer policy.
func (s *Service) finalize(ctx context.Context, r run, res capture.Result) error {
	sh, err := s.db.GetShow(ctx, r.showID)
	if err != nil {
		return err
	}
	rec := &store.Recording{
		ShowID:          r.showID,
		RecordedAt:      res.Started,
		DurationSeconds: int(res.Duration.Seconds()),
		Source:          store.SourceCaptured,
		FilePath:        res.FilePath,
		ExpiresAt:       retention.ExpiresAt(res.Started, sh.TTLType, sh.TTLValue),
	}
	_, err = s.db.CreateRecording(ctx, rec)
	return err
}

func (s *Service) historySize() int {
	s.mu.Lock()
	n := s.cfg.HistorySize
	s.mu.Unlock()
	// A zero/negative history size would grow without bound on a long-running
	// daemon; cap it.
	if n <= 0 {
		n = 200
	}
	return n
}
