// config_loader.go: Configuration loading and dynamic runtime control
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package clio

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// validateFilePath checks if a file path is safe to use
func validateFilePath(filename string) error {
	if filename == "" {
		return fmt.Errorf("empty file path")
	}
	if strings.Contains(filepath.Clean(filename), "..") {
		return fmt.Errorf("path contains directory traversal: %s", filename)
	}
	return nil
}

// fileConfig is the JSON shape of a clio config file. Capacity and the
// timestamp mode only apply at creation; "enabled" and "disable_limit"
// are the runtime-mutable knobs the dynamic watcher re-applies on every
// change.
type fileConfig struct {
	Capacity         uint32 `json:"capacity"`
	DisableRing      bool   `json:"disable_ring"`
	DisableLimit     uint64 `json:"disable_limit"`
	CoarseTimestamps bool   `json:"coarse_timestamps"`
	ClockDelta       string `json:"clock_delta"`
	Enabled          *bool  `json:"enabled"`
}

// LoadConfigFromJSON loads a Log configuration from a JSON file.
func LoadConfigFromJSON(filename string) (*Config, error) {
	fc, err := loadFileConfig(filename)
	if err != nil {
		return nil, err
	}

	config := &Config{
		Capacity:         fc.Capacity,
		DisableRing:      fc.DisableRing,
		DisableLimit:     fc.DisableLimit,
		CoarseTimestamps: fc.CoarseTimestamps,
	}
	config.ClockDelta, err = ParseClockDeltaPolicy(fc.ClockDelta)
	if err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return config, nil
}

func loadFileConfig(filename string) (*fileConfig, error) {
	if err := validateFilePath(filename); err != nil {
		return nil, fmt.Errorf("invalid file path: %w", err)
	}

	data, err := os.ReadFile(filename) // #nosec G304 -- Path validation implemented above
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse JSON config: %w", err)
	}
	return &fc, nil
}

// applyRuntime pushes the runtime-mutable knobs onto a live Log. The
// disable limit is the Log's one atomically-mutable field, so this is
// safe against a concurrent emitter.
func (fc *fileConfig) applyRuntime(l *Log) {
	if fc.Enabled != nil && !*fc.Enabled {
		l.Disable()
		return
	}
	if fc.DisableLimit != 0 {
		l.SetDisableLimit(fc.DisableLimit)
		return
	}
	l.Enable()
}

// DynamicConfigWatcher hot-applies config changes to a live Log using
// Argus. Tracing can be switched on and off, or capped, by editing the
// watched file — no restart of the traced process, no interaction with
// the emitting thread beyond one atomic store.
type DynamicConfigWatcher struct {
	configPath string
	log        *Log
	watcher    *argus.Watcher
	enabled    int32
	mu         sync.Mutex
}

// NewDynamicConfigWatcher creates a watcher that re-applies the
// runtime-mutable knobs of the JSON config at configPath to l whenever
// the file changes.
//
// Example usage:
//
//	log, _ := clio.New(cfg)
//	watcher, err := clio.NewDynamicConfigWatcher("trace.json", log)
//	if err != nil {
//	    return err
//	}
//	defer watcher.Stop()
//	if err := watcher.Start(); err != nil {
//	    return err
//	}
func NewDynamicConfigWatcher(configPath string, l *Log) (*DynamicConfigWatcher, error) {
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("config file does not exist: %w", err)
	}

	config := argus.Config{
		PollInterval:         2 * time.Second,
		OptimizationStrategy: argus.OptimizationAuto,

		Audit: argus.AuditConfig{
			Enabled:       true,
			OutputFile:    "clio-config-audit.jsonl",
			MinLevel:      argus.AuditInfo,
			BufferSize:    1000,
			FlushInterval: 5 * time.Second,
		},

		ErrorHandler: func(err error, path string) {
			handleError(WrapWatcherError(err, path))
		},
	}

	return &DynamicConfigWatcher{
		configPath: configPath,
		log:        l,
		watcher:    argus.New(*config.WithDefaults()),
	}, nil
}

// Start loads the current config and begins watching for changes.
func (w *DynamicConfigWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if atomic.LoadInt32(&w.enabled) != 0 {
		return fmt.Errorf("watcher is already started")
	}

	// Apply the initial state; a broken file at startup is not fatal,
	// the log keeps its current knobs.
	if fc, err := loadFileConfig(w.configPath); err == nil {
		fc.applyRuntime(w.log)
	}

	if err := w.watcher.Watch(w.configPath, func(event argus.ChangeEvent) {
		fc, err := loadFileConfig(event.Path)
		if err != nil {
			handleError(WrapWatcherError(err, event.Path))
			return
		}
		fc.applyRuntime(w.log)
	}); err != nil {
		return fmt.Errorf("failed to setup file watcher: %w", err)
	}

	if err := w.watcher.Start(); err != nil {
		return fmt.Errorf("failed to start file watcher: %w", err)
	}
	atomic.StoreInt32(&w.enabled, 1)
	return nil
}

// Stop stops watching the configuration file.
func (w *DynamicConfigWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if atomic.LoadInt32(&w.enabled) == 0 {
		return nil
	}
	atomic.StoreInt32(&w.enabled, 0)
	return w.watcher.Stop()
}

// IsRunning reports whether the watcher is active.
func (w *DynamicConfigWatcher) IsRunning() bool {
	return atomic.LoadInt32(&w.enabled) != 0
}
