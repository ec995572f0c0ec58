package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// debounceDelay coalesces the burst of events an editor save produces.
const debounceDelay = 200 * time.Millisecond

// Watcher re-reads the config file when it changes and applies the settings
// that can change at runtime. Only the log level is applied live; every
// other field takes effect on restart.
type Watcher struct {
	path      string
	level     zap.AtomicLevel
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	mu        sync.Mutex
	callbacks []func(*Config)
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewWatcher starts watching cfg.ConfigFile. The directory is watched rather
// than the file so that editors that replace the file are still seen.
func NewWatcher(cfg *Config, level zap.AtomicLevel, logger *zap.Logger) (*Watcher, error) {
	if cfg.ConfigFile == "" {
		return nil, fmt.Errorf("no config file to watch")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(filepath.Dir(cfg.ConfigFile)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.ConfigFile, err)
	}

	w := &Watcher{
		path:    filepath.Clean(cfg.ConfigFile),
		level:   level,
		logger:  logger,
		watcher: fsWatcher,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("Configuration hot reloading enabled", zap.String("file", w.path))
	return w, nil
}

// OnChange registers a callback run after every successful reload
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Stop ends the watch loop and releases the file watcher
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
}

func (w *Watcher) watchLoop() {
	defer close(w.doneCh)
	defer w.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	next := Default()
	if err := next.loadFile(w.path); err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}
	next.loadEnvironmentVariables()
	if err := next.Validate(); err != nil {
		w.logger.Error("Reloaded configuration is invalid", zap.Error(err))
		return
	}

	if level, err := zapcore.ParseLevel(next.LogLevel); err == nil {
		if level != w.level.Level() {
			w.level.SetLevel(level)
			w.logger.Info("Log level changed", zap.String("level", level.String()))
		}
	} else {
		w.logger.Warn("Ignoring invalid log level", zap.String("level", next.LogLevel))
	}

	w.mu.Lock()
	callbacks := append([]func(*Config){}, w.callbacks...)
	w.mu.Unlock()

	for _, fn := range callbacks {
		fn(next)
	}
}
