package config

import "strings"

// Config is the whole daemon configuration.
//
// Durations are Go duration strings ("30s", "1h"). Pointer booleans
// distinguish "omitted" (use the default) from an explicit false.
type Config struct {
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
	Capture   CaptureConfig   `json:"capture"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Retention RetentionConfig `json:"retention"`

	Notify *NotifyConfig `json:"notify,omitempty"`
	Obs    *ObsConfig    `json:"observability,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

type StorageConfig struct {
	// Path of the SQLite database file.
	Path string `json:"path"`
	// BusyTimeout is a Go duration string; empty means the driver default.
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

type CaptureConfig struct {
	// Dir is where finished recordings are written.
	Dir string `json:"dir"`
}

// SchedulerConfig controls the recording scheduler.
//
// Defaults (when fields are omitted/zero):
//   - enabled: true
//   - workers: 4
//   - queue_size: 64
//   - history_size: 200
//   - timezone: process-local
type SchedulerConfig struct {
	Enabled     *bool  `json:"enabled,omitempty"`
	Workers     int    `json:"workers,omitempty"`
	QueueSize   int    `json:"queue_size,omitempty"`
	HistorySize int    `json:"history_size,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
}

// RetentionConfig controls the retention sweeper.
//
// Defaults: enabled, interval "1h", batch_limit 500.
type RetentionConfig struct {
	Enabled    *bool  `json:"enabled,omitempty"`
	Interval   string `json:"interval,omitempty"`
	BatchLimit int    `json:"batch_limit,omitempty"`
}

// NotifyConfig controls optional Telegram alerts for capture failures and
// sweep errors. If the section is omitted, notifications are off.
type NotifyConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty"`
	ChatID     int64  `json:"chat_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// ObsConfig controls the observability HTTP server (/healthz, /metrics,
// optional pprof). Bind to loopback unless you know better.
type ObsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"`
	Pprof   bool   `json:"pprof,omitempty"`
}

// Validate checks fields that can't be verified by decoding alone.
func (c *Config) Validate() error {
	if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("retention.interval", c.Retention.Interval); err != nil {
		return err
	}
	if strings.TrimSpace(c.Storage.Path) == "" {
		return fieldError("storage.path", "required")
	}
	if strings.TrimSpace(c.Capture.Dir) == "" {
		return fieldError("capture.dir", "required")
	}
	if c.Notify != nil && c.Notify.Enabled {
		if strings.TrimSpace(c.Notify.Token) == "" {
			return fieldError("notify.token", "required when notify is enabled")
		}
		if c.Notify.ChatID == 0 {
			return fieldError("notify.chat_id", "required when notify is enabled")
		}
	}
	return nil
}

// BoolOr resolves an optional boolean.
func BoolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}
