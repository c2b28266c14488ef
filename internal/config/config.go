// Package config loads the three process-local streamer tunables
// (cache_memory_budget, per_frame_upload_budget, worker_count) from an INI
// file, matching the teacher pack's own config-loading idiom
// (machsix/hugo_gallery's LoadConfig) rather than hand-rolled flag parsing.
package config

import (
	"time"

	"gopkg.in/ini.v1"

	"github.com/halvardh/streamview/internal/sysmem"
)

// Config is the loaded [streamer] section, already converted into the units
// internal/streamer.Config expects.
type Config struct {
	// CacheMemoryBudget in bytes. 0 after Load means the file left
	// cache_memory_budget_mb unset or 0; ResolveCacheMemoryBudget fills it
	// in from system RAM.
	CacheMemoryBudget int64

	// PerFrameUploadBudget as a duration. 0 means "use the streamer
	// package's default".
	PerFrameUploadBudget time.Duration

	// WorkerCount. 0 means "derive from available cores".
	WorkerCount int
}

// Load reads the [streamer] section of an INI file at path:
//
//	[streamer]
//	cache_memory_budget_mb = 512
//	per_frame_upload_budget_ms = 5
//	worker_count = 0
func Load(path string) (Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return Config{}, err
	}

	section := file.Section("streamer")
	budgetMB := section.Key("cache_memory_budget_mb").MustInt64(0)
	uploadMS := section.Key("per_frame_upload_budget_ms").MustInt64(0)
	workers := section.Key("worker_count").MustInt(0)

	return Config{
		CacheMemoryBudget:    budgetMB * 1024 * 1024,
		PerFrameUploadBudget: time.Duration(uploadMS) * time.Millisecond,
		WorkerCount:          workers,
	}, nil
}

// ResolveCacheMemoryBudget returns cfg.CacheMemoryBudget as-is if the config
// file set a positive value, otherwise derives one from available system
// RAM via internal/sysmem, falling back to fixedDefault if RAM detection
// also fails.
func ResolveCacheMemoryBudget(cfg Config, fixedDefault int64, verbose bool) int64 {
	if cfg.CacheMemoryBudget > 0 {
		return cfg.CacheMemoryBudget
	}
	if auto := sysmem.AutoBudget(sysmem.DefaultMemoryPressurePercent, verbose); auto > 0 {
		return auto
	}
	return fixedDefault
}
