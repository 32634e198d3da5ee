package app

import (
	"time"

	"aircheck/internal/config"
	"aircheck/internal/notify"
	"aircheck/internal/observability/obs"
	"aircheck/internal/retention"
	"aircheck/internal/scheduler"
	"aircheck/internal/store"
	logx "aircheck/pkg/logx"
)

// The config package stays free of service imports, so the section-to-service
// translation lives here.

func loggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: config.BoolOr(cfg.Logging.Console, true),
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func storageConfig(cfg *config.Config) store.Config {
	// Validate already checked the duration string.
	busy, _ := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
	return store.Config{
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}
}

func schedulerConfig(cfg *config.Config) scheduler.Config {
	return scheduler.Config{
		Enabled:       config.BoolOr(cfg.Scheduler.Enabled, true),
		Workers:       cfg.Scheduler.Workers,
		QueueSize:     cfg.Scheduler.QueueSize,
		HistorySize:   cfg.Scheduler.HistorySize,
		Timezone:      cfg.Scheduler.Timezone,
		RecordingsDir: cfg.Capture.Dir,
	}
}

func retentionConfig(cfg *config.Config) retention.Config {
	interval, _ := config.ParseDurationOrDefault("retention.interval", cfg.Retention.Interval, time.Hour)
	return retention.Config{
		Enabled:    config.BoolOr(cfg.Retention.Enabled, true),
		Interval:   interval,
		BatchLimit: cfg.Retention.BatchLimit,
	}
}

func notifyConfig(cfg *config.Config) notify.Config {
	if cfg.Notify == nil {
		return notify.Config{}
	}
	return notify.Config{
		Enabled:    cfg.Notify.Enabled,
		Token:      cfg.Notify.Token,
		ChatID:     cfg.Notify.ChatID,
		RatePerSec: cfg.Notify.RatePerSec,
	}
}

func obsConfig(cfg *config.Config) obs.Config {
	if cfg.Obs == nil {
		return obs.Config{}
	}
	return obs.Config{
		Enabled: cfg.Obs.Enabled,
		Addr:    cfg.Obs.Addr,
		Pprof:   cfg.Obs.Pprof,
	}
}
