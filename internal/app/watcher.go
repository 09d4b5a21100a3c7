package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// InstructionsWatcher polls an instructions file and reports its content
// whenever the modification time moves forward.
type InstructionsWatcher struct {
	path          string
	baseline      time.Time
	checkInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	done          chan struct{}
	onChange      func(text string)
	logger        *slog.Logger
}

// NewInstructionsWatcher creates a watcher for path. The current content is
// the baseline; only later edits are reported.
func NewInstructionsWatcher(path string, checkInterval time.Duration, logger *slog.Logger) (*InstructionsWatcher, error) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat instructions: %w", err)
	}
	if checkInterval <= 0 {
		checkInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &InstructionsWatcher{
		path:          path,
		baseline:      info.ModTime(),
		checkInterval: checkInterval,
		logger:        logger,
	}, nil
}

// OnChange sets the callback. It is called from the watcher goroutine.
func (w *InstructionsWatcher) OnChange(fn func(text string)) {
	w.onChange = fn
}

// Path returns the watched file.
func (w *InstructionsWatcher) Path() string { return w.path }

// Start begins watching in a background goroutine.
func (w *InstructionsWatcher) Start() {
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	w.stopOnce = sync.Once{}
	go w.watchLoop()
}

// Stop stops the watcher and waits for it to exit. Safe to call twice.
func (w *InstructionsWatcher) Stop() {
	if w.stopCh == nil {
		return
	}
	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.done
}

func (w *InstructionsWatcher) watchLoop() {
	defer close(w.done)
	defer recoverLog(w.logger, "instructions watcher")
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			text, changed, err := w.check()
			if err != nil {
				w.logger.Warn("instructions reload failed", "path", w.path, "error", err)
				continue
			}
			if changed && w.onChange != nil {
				w.onChange(text)
			}
		}
	}
}

// check reads the file when it is newer than the baseline and moves the
// baseline forward.
func (w *InstructionsWatcher) check() (string, bool, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return "", false, err
	}
	if !info.ModTime().After(w.baseline) {
		return "", false, nil
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return "", false, err
	}
	w.baseline = info.ModTime()
	w.logger.Info("instructions file changed", "path", w.path, "bytes", len(data))
	return string(data), true, nil
}
