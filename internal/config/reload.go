// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const reloadDebounce = 500 * time.Millisecond

// ConfigHolder owns the live configuration. Readers call Get; the file
// watcher and SIGHUP both funnel into Reload, which swaps the value only when
// the new file validates.
type ConfigHolder struct {
	mu      sync.RWMutex
	current AppConfig

	loader *Loader
	path   string
	logger zerolog.Logger

	listenersMu sync.Mutex
	listeners   []chan<- AppConfig

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
}

// NewConfigHolder wraps initial. path may be empty for ENV-only setups, in
// which case StartWatcher does nothing.
func NewConfigHolder(initial AppConfig, loader *Loader, path string) *ConfigHolder {
	return &ConfigHolder{
		current: initial,
		loader:  loader,
		path:    path,
		logger:  xglog.WithComponent("config"),
	}
}

// Get returns the active configuration.
func (h *ConfigHolder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload re-runs the loader. On failure the active configuration is kept.
func (h *ConfigHolder) Reload(_ context.Context) error {
	next, err := h.loader.Load()
	if err != nil {
		h.logger.Error().Err(err).Str(xglog.FieldEvent, "config.reload_failed").Msg("keeping previous configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	prev := h.current
	h.current = next
	h.mu.Unlock()

	h.reportChanges(prev, next)
	h.broadcast(next)
	h.logger.Info().Str(xglog.FieldEvent, "config.reloaded").Msg("configuration reloaded")
	return nil
}

// StartWatcher reloads after the config file changes. The parent directory is
// watched so that atomic replacements (write to temp, rename over) are seen.
func (h *ConfigHolder) StartWatcher(ctx context.Context) error {
	if h.path == "" {
		h.logger.Debug().Str(xglog.FieldEvent, "config.watcher_disabled").Msg("no config file to watch")
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(h.path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(h.path), err)
	}
	h.watcher = w

	h.logger.Info().Str(xglog.FieldEvent, "config.watcher_started").Str(xglog.FieldPath, h.path).Msg("watching config file")

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.watch(ctx, w)
	}()
	return nil
}

func (h *ConfigHolder) watch(ctx context.Context, w *fsnotify.Watcher) {
	target := filepath.Clean(h.path)
	var pending *time.Timer
	defer func() {
		if pending != nil {
			pending.Stop()
		}
		_ = w.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create|fsnotify.Rename) {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(reloadDebounce, func() {
				_ = h.Reload(ctx)
			})
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			h.logger.Warn().Err(err).Str(xglog.FieldEvent, "config.watcher_error").Msg("config watcher error")
		}
	}
}

// Stop ends the watcher goroutine. Safe to call when StartWatcher was a no-op.
func (h *ConfigHolder) Stop() {
	if h.watcher != nil {
		_ = h.watcher.Close()
	}
	h.wg.Wait()
}

// RegisterListener subscribes ch to reloads. Sends never block; a full
// channel misses that reload. The caller owns ch.
func (h *ConfigHolder) RegisterListener(ch chan<- AppConfig) {
	h.listenersMu.Lock()
	h.listeners = append(h.listeners, ch)
	h.listenersMu.Unlock()
}

func (h *ConfigHolder) broadcast(cfg AppConfig) {
	h.listenersMu.Lock()
	defer h.listenersMu.Unlock()
	for _, ch := range h.listeners {
		select {
		case ch <- cfg:
		default:
			h.logger.Warn().Str(xglog.FieldEvent, "config.listener_skip").Msg("reload listener not ready")
		}
	}
}

// reportChanges logs the log level (applied live) and every section that only
// takes effect after a restart.
func (h *ConfigHolder) reportChanges(prev, next AppConfig) {
	if prev.LogLevel != next.LogLevel {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.log_level_changed").
			Str("old", prev.LogLevel).
			Str("new", next.LogLevel).
			Msg("log level changed")
	}
	restart := map[string]bool{
		"service":    prev.Service != next.Service,
		"connection": prev.Connection != next.Connection,
		"dtvkit":     prev.DTVKit != next.DTVKit,
		"platform":   prev.Platform != next.Platform,
		"api":        prev.API != next.API,
		"metrics":    prev.Metrics != next.Metrics,
		"telemetry":  prev.Telemetry != next.Telemetry,
	}
	for section, changed := range restart {
		if changed {
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.restart_required").
				Str("section", section).
				Msg("setting changes take effect after restart")
		}
	}
}
