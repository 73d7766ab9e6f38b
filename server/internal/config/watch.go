package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay coalesces the truncate and write events of one save.
const settleDelay = 100 * time.Millisecond

// Watch calls onChange with the reloaded Config whenever path is saved.
// Only container threshold and ttl are applied live by the server; other
// changes need a restart and are logged as such. Invalid files are skipped.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	prev, err := Load(path)
	if err != nil {
		prev = defaults()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: new watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(path), err)
	}
	target := filepath.Clean(path)

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) == target && (ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				settle = time.After(settleDelay)
			}

		case <-settle:
			settle = nil
			next, err := Load(target)
			if err != nil {
				slog.Error("config: reload rejected", "path", target, "err", err)
				continue
			}
			if needsRestart(prev, next) {
				slog.Warn("config: ports, auth, sweep_period or stream interval changed; restart to apply", "path", target)
			}
			prev = next
			onChange(next)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

// needsRestart reports changes the running server cannot apply in place.
func needsRestart(prev, next *Config) bool {
	a, b := prev.Server, next.Server
	return a.GRPCPort != b.GRPCPort || a.HTTPPort != b.HTTPPort || a.Auth != b.Auth ||
		a.Container.SweepPeriod != b.Container.SweepPeriod || a.Stream.Interval != b.Stream.Interval
}
