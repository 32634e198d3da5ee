package store

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// Config configures the SQLite store.
type Config struct {
	Path        string
	BusyTimeout time.Duration // 0 means default
}

// ShowType distinguishes recorder-driven shows from upload-only ones.
type ShowType string

const (
	ShowScheduled ShowType = "scheduled"
	ShowPlaylist  ShowType = "playlist"
)

// TTLType is the unit of a retention policy.
type TTLType string

const (
	TTLDays       TTLType = "days"
	TTLWeeks      TTLType = "weeks"
	TTLMonths     TTLType = "months"
	TTLIndefinite TTLType = "indefinite"
)

func (t TTLType) Valid() bool {
	switch t {
	case TTLDays, TTLWeeks, TTLMonths, TTLIndefinite:
		return true
	}
	return false
}

// SourceType records how a recording came to exist.
type SourceType string

const (
	SourceCaptured SourceType = "captured"
	SourceUploaded SourceType = "uploaded"
)

// Show is a recurring recording definition.
//
// CronExpr and ScheduleDesc are derived from ScheduleText by the schedule
// compiler and are never hand-edited. A scheduled show with Active=true must
// carry a non-empty CronExpr; playlist shows are exempt from scheduling
// entirely.
type Show struct {
	ID      int64
	Station string
	Name    string
	Type    ShowType

	StreamURL string

	ScheduleText string
	CronExpr     string
	ScheduleDesc string

	DurationMinutes int
	Active          bool

	// Default retention policy for recordings this show produces.
	TTLValue int
	TTLType  TTLType

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Recording is one produced capture (or upload).
//
// ExpiresAt is derived: nil means the recording never expires. It is
// recomputed whenever the owning show's policy changes, unless the recording
// carries its own TTL override.
type Recording struct {
	ID     int64
	ShowID int64

	RecordedAt      time.Time
	DurationSeconds int
	Source          SourceType
	FilePath        string

	TTLOverrideType  *TTLType
	TTLOverrideValue *int

	ExpiresAt *time.Time

	CreatedAt time.Time
}

// HasOverride reports whether the recording carries a per-recording policy.
func (r *Recording) HasOverride() bool { return r.TTLOverrideType != nil }
