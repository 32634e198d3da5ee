package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	logx "aircheck/pkg/logx"
)

//go:embed migrations.sql
var migrationsFS embed.FS

const timeFormat = time.RFC3339Nano

// Store is the SQLite-backed persistence layer for shows and recordings.
// It is safe for concurrent use; SQLite prefers a single writer, so the
// connection pool is capped at one.
type Store struct {
	db  *sql.DB
	log logx.Logger
}

func Open(cfg Config, log logx.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &Store{db: db, log: log}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")
	_, _ = db.Exec("PRAGMA foreign_keys = ON")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ---- Shows ----

func validateShow(sh *Show) error {
	if strings.TrimSpace(sh.Name) == "" {
		return errors.New("show name is required")
	}
	if sh.Type != ShowScheduled && sh.Type != ShowPlaylist {
		return fmt.Errorf("invalid show type %q", sh.Type)
	}
	if sh.DurationMinutes < 1 || sh.DurationMinutes > 1440 {
		return fmt.Errorf("duration %d out of range 1..1440 minutes", sh.DurationMinutes)
	}
	if !sh.TTLType.Valid() {
		return fmt.Errorf("invalid ttl type %q", sh.TTLType)
	}
	return nil
}

func (s *Store) CreateShow(ctx context.Context, sh *Show) (int64, error) {
	if err := validateShow(sh); err != nil {
		return 0, err
	}
	now := time.Now().UTC()
	sh.CreatedAt = now
	sh.UpdatedAt = now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO shows(station, name, show_type, stream_url, schedule_text, cron_expr, schedule_desc,
		                   duration_minutes, active, ttl_value, ttl_type, created_at, updated_at)
		 VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		sh.Station, sh.Name, string(sh.Type), sh.StreamURL, sh.ScheduleText, sh.CronExpr, sh.ScheduleDesc,
		sh.DurationMinutes, boolInt(sh.Active), sh.TTLValue, string(sh.TTLType),
		now.Format(timeFormat), now.Format(timeFormat),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	sh.ID = id
	return id, nil
}

func (s *Store) UpdateShow(ctx context.Context, sh *Show) error {
	if sh.ID == 0 {
		return errors.New("show id required")
	}
	if err := validateShow(sh); err != nil {
		return err
	}
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE shows SET station=?, name=?, show_type=?, stream_url=?, schedule_text=?, cron_expr=?,
		        schedule_desc=?, duration_minutes=?, active=?, ttl_value=?, ttl_type=?, updated_at=?
		 WHERE id=?`,
		sh.Station, sh.Name, string(sh.Type), sh.StreamURL, sh.ScheduleText, sh.CronExpr,
		sh.ScheduleDesc, sh.DurationMinutes, boolInt(sh.Active), sh.TTLValue, string(sh.TTLType),
		now.Format(timeFormat), sh.ID,
	)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// SetShowSchedule persists a freshly compiled schedule in one statement so a
// failed compile can never leave cron_expr and schedule_text out of step.
func (s *Store) SetShowSchedule(ctx context.Context, id int64, text, cronExpr, desc string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shows SET schedule_text=?, cron_expr=?, schedule_desc=?, updated_at=? WHERE id=?`,
		text, cronExpr, desc, time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *Store) SetShowActive(ctx context.Context, id int64, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE shows SET active=?, updated_at=? WHERE id=?`,
		boolInt(active), time.Now().UTC().Format(timeFormat), id,
	)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

func (s *Store) GetShow(ctx context.Context, id int64) (*Show, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+showCols+` FROM shows WHERE id=?`, id)
	return scanShow(row)
}

func (s *Store) ListShows(ctx context.Context) ([]Show, error) {
	return s.queryShows(ctx, `SELECT `+showCols+` FROM shows ORDER BY station, name`)
}

// ListActiveScheduledShows returns every show the scheduler should hold a
// live job for. Playlist shows are excluded even if they carry leftover
// schedule text from a type change.
func (s *Store) ListActiveScheduledShows(ctx context.Context) ([]Show, error) {
	return s.queryShows(ctx,
		`SELECT `+showCols+` FROM shows WHERE active=1 AND show_type=? ORDER BY id`,
		string(ShowScheduled))
}

func (s *Store) DeleteShow(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM shows WHERE id=?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// ---- Recordings ----

func (s *Store) CreateRecording(ctx context.Context, r *Recording) (int64, error) {
	if r.ShowID == 0 {
		return 0, errors.New("recording show id required")
	}
	if strings.TrimSpace(r.FilePath) == "" {
		return 0, errors.New("recording file path required")
	}
	if r.Source != SourceCaptured && r.Source != SourceUploaded {
		return 0, fmt.Errorf("invalid source type %q", r.Source)
	}
	if r.TTLOverrideType != nil && !r.TTLOverrideType.Valid() {
		return 0, fmt.Errorf("invalid ttl override type %q", *r.TTLOverrideType)
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO recordings(show_id, recorded_at, duration_seconds, source_type, file_path,
		                        ttl_override_type, ttl_override_value, expires_at, created_at)
		 VALUES(?,?,?,?,?,?,?,?,?)`,
		r.ShowID, r.RecordedAt.UTC().Format(timeFormat), r.DurationSeconds, string(r.Source), r.FilePath,
		nullTTLType(r.TTLOverrideType), nullInt(r.TTLOverrideValue), nullMilli(r.ExpiresAt),
		now.Format(timeFormat),
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	r.ID = id
	return id, nil
}

func (s *Store) GetRecording(ctx context.Context, id int64) (*Recording, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recCols+` FROM recordings WHERE id=?`, id)
	return scanRecording(row)
}

func (s *Store) ListRecordingsByShow(ctx context.Context, showID int64) ([]Recording, error) {
	return s.queryRecordings(ctx,
		`SELECT `+recCols+` FROM recordings WHERE show_id=? ORDER BY recorded_at DESC`, showID)
}

// ListExpiredRecordings selects recordings whose computed expiry has passed.
// Rows with a NULL expires_at (indefinite policy) are never returned.
func (s *Store) ListExpiredRecordings(ctx context.Context, now time.Time, limit int) ([]Recording, error) {
	if limit <= 0 {
		limit = 500
	}
	return s.queryRecordings(ctx,
		`SELECT `+recCols+` FROM recordings
		 WHERE expires_at IS NOT NULL AND expires_at < ?
		 ORDER BY expires_at LIMIT ?`,
		now.UnixMilli(), limit)
}

func (s *Store) DeleteRecording(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM recordings WHERE id=?`, id)
	if err != nil {
		return err
	}
	return mustAffect(res)
}

// UpdateShowTTL persists the show's new default policy and recomputes
// expires_at for every recording of the show without a per-recording
// override, in one transaction. computeExpiry maps a recording's start
// instant to its new expiry (nil = never). It returns the number of
// recordings whose expiry was rewritten.
func (s *Store) UpdateShowTTL(ctx context.Context, showID int64, value int, ttlType TTLType, computeExpiry func(recordedAt time.Time) *time.Time) (int, error) {
	if !ttlType.Valid() {
		return 0, fmt.Errorf("invalid ttl type %q", ttlType)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE shows SET ttl_value=?, ttl_type=?, updated_at=? WHERE id=?`,
		value, string(ttlType), time.Now().UTC().Format(timeFormat), showID)
	if err != nil {
		return 0, err
	}
	if err := mustAffect(res); err != nil {
		return 0, err
	}

	rows, err := tx.QueryContext(ctx,
		`SELECT id, recorded_at FROM recordings WHERE show_id=? AND ttl_override_type IS NULL`, showID)
	if err != nil {
		return 0, err
	}
	type rec struct {
		id         int64
		recordedAt time.Time
	}
	var recs []rec
	for rows.Next() {
		var r rec
		var at string
		if err := rows.Scan(&r.id, &at); err != nil {
			_ = rows.Close()
			return 0, err
		}
		r.recordedAt, err = time.Parse(timeFormat, at)
		if err != nil {
			_ = rows.Close()
			return 0, err
		}
		recs = append(recs, r)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, err
	}
	_ = rows.Close()

	updated := 0
	for _, r := range recs {
		if _, err := tx.ExecContext(ctx,
			`UPDATE recordings SET expires_at=? WHERE id=?`,
			nullMilli(computeExpiry(r.recordedAt)), r.id); err != nil {
			return 0, err
		}
		updated++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

// ---- scanning helpers ----

const showCols = `id, station, name, show_type, stream_url, schedule_text, cron_expr, schedule_desc,
	duration_minutes, active, ttl_value, ttl_type, created_at, updated_at`

const recCols = `id, show_id, recorded_at, duration_seconds, source_type, file_path,
	ttl_override_type, ttl_override_value, expires_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanShow(row rowScanner) (*Show, error) {
	var sh Show
	var typ, ttlType, createdAt, updatedAt string
	var active int
	err := row.Scan(&sh.ID, &sh.Station, &sh.Name, &typ, &sh.StreamURL, &sh.ScheduleText,
		&sh.CronExpr, &sh.ScheduleDesc, &sh.DurationMinutes, &active, &sh.TTLValue, &ttlType,
		&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sh.Type = ShowType(typ)
	sh.TTLType = TTLType(ttlType)
	sh.Active = active != 0
	if sh.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, err
	}
	if sh.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, err
	}
	return &sh, nil
}

func scanRecording(row rowScanner) (*Recording, error) {
	var r Recording
	var src, recordedAt, createdAt string
	var ovType sql.NullString
	var ovValue sql.NullInt64
	var expiresAt sql.NullInt64
	err := row.Scan(&r.ID, &r.ShowID, &recordedAt, &r.DurationSeconds, &src, &r.FilePath,
		&ovType, &ovValue, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Source = SourceType(src)
	if r.RecordedAt, err = time.Parse(timeFormat, recordedAt); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, err
	}
	if ovType.Valid {
		t := TTLType(ovType.String)
		r.TTLOverrideType = &t
	}
	if ovValue.Valid {
		v := int(ovValue.Int64)
		r.TTLOverrideValue = &v
	}
	if expiresAt.Valid {
		at := time.UnixMilli(expiresAt.Int64).UTC()
		r.ExpiresAt = &at
	}
	return &r, nil
}

func (s *Store) queryShows(ctx context.Context, q string, args ...any) ([]Show, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Show
	for rows.Next() {
		sh, err := scanShow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

func (s *Store) queryRecordings(ctx context.Context, q string, args ...any) ([]Recording, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Recording
	for rows.Next() {
		r, err := scanRecording(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// nullMilli stores an expiry as Unix milliseconds so the sweep query
// compares instants numerically instead of lexically.
func nullMilli(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UnixMilli()
}

func nullInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTTLType(t *TTLType) any {
	if t == nil {
		return nil
	}
	return string(*t)
}
