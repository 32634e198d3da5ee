package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"aircheck/internal/capture"
	"aircheck/internal/eventbus"
	"aircheck/internal/metrics"
	"aircheck/internal/store"
	logx "aircheck/pkg/logx"
)

// Config controls the recording scheduler service.
type Config struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	HistorySize   int
	Timezone      string // IANA TZ, e.g. "Europe/Vienna"
	RecordingsDir string
}

// Store is the slice of persistence the scheduler consults. The live job set
// is always derived from it, never from scheduler memory across restarts.
type Store interface {
	GetShow(ctx context.Context, id int64) (*store.Show, error)
	ListActiveScheduledShows(ctx context.Context) ([]store.Show, error)
	CreateRecording(ctx context.Context, r *store.Recording) (int64, error)
}

// job is one live cron registration, keyed 1:1 by show id.
type job struct {
	showID    int64
	station   string
	show      string
	streamURL string
	spec      string
	duration  time.Duration
	entryID   cron.EntryID
}

// run is one fired occurrence. Runs are independent by show id and fire
// instant; they are never coalesced with a previous still-running capture.
type run struct {
	id        string
	showID    int64
	station   string
	show      string
	streamURL string
	duration  time.Duration
	firedAt   time.Time
}

// RunEvent is the bus payload for capture lifecycle events.
type RunEvent struct {
	RunID    string
	ShowID   int64
	Station  string
	Show     string
	Started  time.Time
	Duration time.Duration
	File     string
	Error    string
}

type HistoryItem struct {
	RunID    string
	ShowID   int64
	Show     string
	Started  time.Time
	Duration time.Duration
	File     string
	Error    string
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config
	loc *time.Location

	db     Store
	runner capture.Runner
	bus    eventbus.Bus
	met    *metrics.Metrics

	parser cron.Parser
	c      *cron.Cron
	jobs   map[int64]*job

	queue  chan run
	stopCh chan struct{}
	// stopDone is non-nil while a Stop() is in progress; it is closed when workers fully exit.
	stopDone  chan struct{}
	runCtx    context.Context
	runCancel context.CancelFunc
	workerWG  sync.WaitGroup

	hmu     sync.Mutex
	history []HistoryItem
}

// JobInfo describes one live registration for introspection.
type JobInfo struct {
	ShowID   int64
	Station  string
	Show     string
	Spec     string
	Duration time.Duration
	Next     time.Time
	Prev     time.Time
}

type Snapshot struct {
	Enabled  bool
	Timezone string
	Workers  int
	QueueLen int
	Jobs     []JobInfo
	History  []HistoryItem
}
