package internal

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/perthro/internal/search"
	pkgconfig "github.com/starford/perthro/pkg/config"
)

// watchConfig watches the config file and applies search-tuning changes
// (currently the fuzzy candidate limit) without a restart. Editors often
// replace files via rename, so the parent directory is watched and
// events are debounced before reloading.
func watchConfig(ctx context.Context, path string, engine *search.Engine, logger *slog.Logger) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warn("config watch: init failed", slog.String("error", err.Error()))
		return
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		logger.Warn("config watch: add failed", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	logger.Info("config watch: started", slog.String("path", path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("config watch: stopped")
			return

		case <-reloadCh:
			cfg := NewDefaultConfig()
			if err := pkgconfig.Load(path, cfg); err != nil {
				logger.Warn("config watch: reload failed", slog.String("error", err.Error()))
				continue
			}
			engine.SetCandidateLimit(cfg.Search.CandidateLimit)
			logger.Info("config watch: search tuning applied",
				slog.Int("candidate_limit", cfg.Search.CandidateLimit))

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Error("config watch: error", slog.String("error", watchErr.Error()))
		}
	}
}
