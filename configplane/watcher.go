package configplane

import (
	"context"
	"crypto/sha256"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Watcher polls a FileStore's backing file for changes and triggers a
// reload when the content actually changes (mtime alone can flap without
// content changing on some filesystems). Polling over fsnotify matches
// both the teacher's own config.FileWatcher and a second pack repo's
// config watcher, neither of which actually imports fsnotify despite one
// mentioning it in a comment.
type Watcher struct {
	mu           sync.Mutex
	store        *FileStore
	path         string
	pollInterval time.Duration
	onReload     func()
	lastModTime  time.Time
	lastHash     [sha256.Size]byte
	logger       *zap.Logger
}

// NewWatcher builds a watcher over store's backing file. onReload is
// called after every successful reload (nil is fine).
func NewWatcher(store *FileStore, path string, pollInterval time.Duration, onReload func(), logger *zap.Logger) *Watcher {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	w := &Watcher{
		store:        store,
		path:         path,
		pollInterval: pollInterval,
		onReload:     onReload,
		logger:       logger.With(zap.String("component", "configplane_watcher")),
	}
	if info, err := os.Stat(path); err == nil {
		w.lastModTime = info.ModTime()
	}
	if data, err := os.ReadFile(path); err == nil {
		w.lastHash = sha256.Sum256(data)
	}
	return w
}

// Run polls until ctx is cancelled. Intended to be launched in its own
// goroutine by the caller.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watcher) check() {
	info, err := os.Stat(w.path)
	if err != nil {
		w.logger.Warn("cannot stat config file", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.lastModTime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("cannot read config file", zap.String("path", w.path), zap.Error(err))
		return
	}
	hash := sha256.Sum256(data)

	w.mu.Lock()
	if hash == w.lastHash {
		w.lastModTime = info.ModTime()
		w.mu.Unlock()
		return
	}
	w.lastModTime = info.ModTime()
	w.lastHash = hash
	w.mu.Unlock()

	if err := w.store.Reload(); err != nil {
		w.logger.Error("config reload failed, keeping previous document", zap.Error(err))
		return
	}

	w.logger.Info("config file reloaded", zap.String("path", w.path))
	if w.onReload != nil {
		w.onReload()
	}
}
