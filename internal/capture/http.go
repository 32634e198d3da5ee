package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	logx "aircheck/pkg/logx"
)

// HTTPRunner captures an HTTP(S) audio stream to a local file. It copies the
// response body until the request context's deadline fires, then finalizes
// the file. Anything fancier (ICY metadata, transcoding, stream resumption)
// lives outside this engine.
type HTTPRunner struct {
	client *http.Client
	log    logx.Logger
}

func NewHTTPRunner(log logx.Logger) *HTTPRunner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &HTTPRunner{
		// No overall client timeout: the per-run context bounds the copy.
		client: &http.Client{Timeout: 0},
		log:    log,
	}
}

func (r *HTTPRunner) Capture(ctx context.Context, req Request) (Result, error) {
	started := time.Now()
	if strings.TrimSpace(req.StreamURL) == "" {
		return Result{}, errors.New("stream url is empty")
	}
	if err := os.MkdirAll(req.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("capture dir: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.StreamURL, nil)
	if err != nil {
		return Result{}, err
	}
	resp, err := r.client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("connect %s: %w", req.StreamURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("stream returned %s", resp.Status)
	}

	path := filepath.Join(req.Dir, fileName(req, started))
	f, err := os.Create(path)
	if err != nil {
		return Result{}, err
	}

	n, copyErr := io.Copy(f, resp.Body)
	closeErr := f.Close()

	// Hitting the deadline is the normal way a bounded capture ends.
	if copyErr != nil && !errors.Is(copyErr, context.DeadlineExceeded) && !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		_ = os.Remove(path)
		return Result{}, fmt.Errorf("stream copy: %w", copyErr)
	}
	if closeErr != nil {
		return Result{}, closeErr
	}
	if n == 0 {
		_ = os.Remove(path)
		return Result{}, errors.New("stream produced no data")
	}

	r.log.Debug("capture finished",
		logx.String("run", req.RunID),
		logx.Int64("bytes", n),
		logx.Duration("took", time.Since(started)))

	return Result{
		FilePath: path,
		Started:  started,
		Duration: time.Since(started),
		Bytes:    n,
	}, nil
}

func fileName(req Request, started time.Time) string {
	base := slug(req.Station) + "-" + slug(req.ShowName)
	if base == "-" {
		base = fmt.Sprintf("show-%d", req.ShowID)
	}
	return fmt.Sprintf("%s-%s.mp3", base, started.Format("20060102-1504"))
}

// slug keeps file names portable: lowercase ascii letters, digits and dashes.
func slug(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return b.String()
}
