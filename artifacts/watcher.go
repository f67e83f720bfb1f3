package artifacts

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	defaultDebounce = 250 * time.Millisecond
	retireDelay     = 30 * time.Second
)

// Watcher reloads the bundle when an artifact file is written, replaced or
// created. Readers always get a complete bundle; the previous one is closed
// after a grace period so in-flight predictions can finish.
type Watcher struct {
	settings Settings
	logger   *zap.Logger
	watcher  *fsnotify.Watcher
	current  atomic.Pointer[Bundle]
	targets  map[string]bool
	debounce time.Duration
	reloads  atomic.Int64

	mu       sync.Mutex
	onReload []func(*Bundle)
}

// NewWatcher loads the initial bundle and starts watching the directories
// holding the artifacts. Directories are watched rather than files so an
// artifact that does not exist yet is picked up once it appears.
func NewWatcher(s Settings, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		settings: s,
		logger:   logger,
		watcher:  fw,
		targets:  make(map[string]bool),
		debounce: defaultDebounce,
	}
	dirs := make(map[string]bool)
	for _, path := range []string{s.ScalerPath, s.ModelPath} {
		abs, err := filepath.Abs(path)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, err
		}
	}
	w.current.Store(Load(s, logger))
	return w, nil
}

func (w *Watcher) Current() *Bundle {
	return w.current.Load()
}

// Reloads counts completed reloads, not counting the initial load.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Close stops watching. Run closes the watcher itself when it returns.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// OnReload registers fn to run after each reload with the new bundle.
func (w *Watcher) OnReload(fn func(*Bundle)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Run processes file events until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("artifact changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("artifact watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return w.targets[abs]
}

func (w *Watcher) reload() {
	next := Load(w.settings, w.logger)
	prev := w.current.Swap(next)
	w.reloads.Add(1)
	if err := next.Ready(); err != nil {
		w.logger.Warn("artifacts reloaded with prediction disabled", zap.Error(err))
	} else {
		w.logger.Info("artifacts reloaded")
	}

	w.mu.Lock()
	callbacks := append([]func(*Bundle){}, w.onReload...)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(next)
	}

	if prev != nil {
		time.AfterFunc(retireDelay, func() {
			if err := prev.Close(); err != nil {
				w.logger.Warn("closing retired artifacts", zap.Error(err))
			}
		})
	}
}
