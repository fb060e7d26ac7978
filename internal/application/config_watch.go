package application

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/ahrav/go-judicatura/internal/ports"
)

// configDebounce collapses the burst of events a single save produces.
const configDebounce = 100 * time.Millisecond

// Watch reloads the loader's file whenever it is written or recreated and
// passes each valid result to callback as a *Config. Invalid edits are
// logged and skipped. config must be a *Config; it is not modified.
// The returned stop function is idempotent and waits for the watcher to exit.
func (l *ConfigLoader) Watch(ctx context.Context, config any, callback func(any)) (func(), error) {
	if _, ok := config.(*Config); !ok {
		return nil, fmt.Errorf("unsupported config type %T", config)
	}
	if l.path == "" {
		return nil, ports.NewConfigError("", fmt.Errorf("watching requires a config file"))
	}
	if callback == nil {
		return nil, fmt.Errorf("callback cannot be nil")
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	// Editors often save by renaming a temp file over the original, so the
	// directory is watched rather than the file.
	if err := w.Add(filepath.Dir(l.path)); err != nil {
		_ = w.Close()
		return nil, ports.NewConfigError(l.path, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go l.watchLoop(ctx, w, callback, done)

	var once sync.Once
	stop := func() {
		once.Do(func() {
			cancel()
			<-done
			_ = w.Close()
		})
	}
	return stop, nil
}

func (l *ConfigLoader) watchLoop(ctx context.Context, w *fsnotify.Watcher, callback func(any), done chan<- struct{}) {
	defer close(done)

	name := filepath.Clean(l.path)
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != name || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(configDebounce)
			} else {
				timer.Reset(configDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			cfg, err := l.LoadFile()
			if err != nil {
				l.logger.Warn("ignoring invalid config change", zap.String("path", l.path), zap.Error(err))
				continue
			}
			l.logger.Info("config reloaded", zap.String("path", l.path))
			callback(&cfg)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			l.logger.Warn("config watcher error", zap.String("path", l.path), zap.Error(err))
		}
	}
}
