package scheduler

import "sort"

// Snapshot returns a point-in-time view of the live job set and recent runs.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	enabled := s.cfg.Enabled
	tz := s.cfg.Timezone
	workers := s.cfg.Workers
	c := s.c
	loc := s.loc
	queueLen := 0
	if s.queue != nil {
		queueLen = len(s.queue)
	}
	jobs := make([]*job, 0, len(s.jobs))
	for _, j := range s.jobs {
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	if tz == "" && loc != nil {
		tz = loc.String()
	}

	sort.Slice(jobs, func(i, k int) bool { return jobs[i].showID < jobs[k].showID })
	items := make([]JobInfo, 0, len(jobs))
	for _, j := range jobs {
		it := JobInfo{
			ShowID:   j.showID,
			Station:  j.station,
			Show:     j.show,
			Spec:     j.spec,
			Duration: j.duration,
		}
		if c != nil && j.entryID != 0 {
			e := c.Entry(j.entryID)
			it.Next = e.Next
			it.Prev = e.Prev
		}
		items = append(items, it)
	}

	s.hmu.Lock()
	hist := make([]HistoryItem, len(s.history))
	copy(hist, s.history)
	s.hmu.Unlock()

	return Snapshot{
		Enabled:  enabled,
		Timezone: tz,
		Workers:  workers,
		QueueLen: queueLen,
		Jobs:     items,
		History:  hist,
	}
}
