// Package watch reruns a job whenever new symbols show up in a symbol cache.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDelay is the quiet period after the last cache change before the
// job runs. Debuggers download symbols in bursts.
const DefaultDelay = 2 * time.Second

// Config contains watcher configuration
type Config struct {
	// Dir is the symbol cache directory.
	Dir string
	// Ext is the symbol extension that triggers a run.
	Ext string
	// Delay is the debounce delay. Defaults to DefaultDelay.
	Delay time.Duration
	// Logger receives watcher events.
	Logger zerolog.Logger
}

// Job is run once at start and after every batch of cache changes. Runs never
// overlap.
type Job func(ctx context.Context) error

// Run watches cfg.Dir until ctx is done. A failing job is logged and the
// watch goes on. No job is running once Run has returned.
func Run(ctx context.Context, cfg Config, job Job) error {
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", cfg.Dir, err)
	}

	var (
		mu      sync.Mutex
		stopped bool
	)
	run := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped || ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil {
			cfg.Logger.Error().Err(err).Msg("Resolution failed")
		}
	}

	run()

	d := NewDebouncer(cfg.Delay)
	defer func() {
		d.Cancel()
		// A job started by the debouncer finishes before Run returns and
		// timers firing later find the watch stopped.
		mu.Lock()
		stopped = true
		mu.Unlock()
	}()

	cfg.Logger.Info().Str("dir", cfg.Dir).Msg("Watching symbol cache")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !relevant(ev, cfg.Ext) {
				continue
			}
			cfg.Logger.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("Symbol cache changed")
			d.Trigger(run)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			cfg.Logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}

// relevant reports whether ev adds or removes a symbol.
func relevant(ev fsnotify.Event, ext string) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
		return false
	}
	return strings.EqualFold(filepath.Ext(ev.Name), ext)
}
