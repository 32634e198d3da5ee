package capture

import (
	"context"
	"time"
)

// Request describes one bounded capture of a show's stream.
//
// The deadline on the context passed to Capture bounds the run; the runner
// is expected to stop cleanly when it expires.
type Request struct {
	RunID    string
	ShowID   int64
	Station  string
	ShowName string

	StreamURL string
	Dir       string
}

// Result reports a finished capture.
type Result struct {
	FilePath string
	Started  time.Time
	Duration time.Duration
	Bytes    int64
}

// Runner connects to a stream and writes an audio file for a bounded
// duration. Implementations run to the context deadline and treat reaching
// it as normal completion, not an error.
type Runner interface {
	Capture(ctx context.Context, req Request) (Result, error)
}
