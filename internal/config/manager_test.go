package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

const validYAML = `
logging:
  level: debug
storage:
  path: /var/lib/aircheck/aircheck.db
  busy_timeout: 5s
capture:
  dir: /var/lib/aircheck/recordings
scheduler:
  workers: 2
  timezone: America/Chicago
retention:
  interval: 30m
  batch_limit: 100
`

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q", cfg.Logging.Level)
	}
	if cfg.Scheduler.Workers != 2 || cfg.Scheduler.Timezone != "America/Chicago" {
		t.Fatalf("scheduler = %+v", cfg.Scheduler)
	}
	if cfg.Retention.Interval != "30m" || cfg.Retention.BatchLimit != 100 {
		t.Fatalf("retention = %+v", cfg.Retention)
	}
	if !BoolOr(cfg.Scheduler.Enabled, true) {
		t.Fatal("omitted scheduler.enabled should default true")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json",
		`{"storage":{"path":"/tmp/a.db"},"capture":{"dir":"/tmp/recs"}}`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Storage.Path != "/tmp/a.db" {
		t.Fatalf("storage.path = %q", cfg.Storage.Path)
	}
}

func TestParseRejectsUnknownField(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML+"\nsurprise: true\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestParseRejectsBadDuration(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json",
		`{"storage":{"path":"/tmp/a.db","busy_timeout":"soon"},"capture":{"dir":"/tmp/recs"}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unparseable duration")
	}
}

func TestParseRequiresPaths(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json", `{"capture":{"dir":"/tmp/recs"}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for missing storage.path")
	}

	m = NewManager(writeConfig(t, "config.json", `{"storage":{"path":"/tmp/a.db"}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for missing capture.dir")
	}
}

func TestParseNotifyValidation(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.json",
		`{"storage":{"path":"/tmp/a.db"},"capture":{"dir":"/tmp/recs"},"notify":{"enabled":true}}`))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for enabled notify without token")
	}
}

func TestLoadCommitsSnapshot(t *testing.T) {
	t.Parallel()
	m := NewManager(writeConfig(t, "config.yaml", validYAML))
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got == nil || got.Logging.Level != "debug" {
		t.Fatalf("Get = %+v", got)
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationOrDefault("x", "", 42)
	if err != nil || d != 42 {
		t.Fatalf("got %v, %v", d, err)
	}
	d, err = ParseDurationOrDefault("x", "90s", 0)
	if err != nil || d.Seconds() != 90 {
		t.Fatalf("got %v, %v", d, err)
	}
	if _, err = ParseDurationOrDefault("x", "bogus", 0); err == nil {
		t.Fatal("expected error")
	}
}
