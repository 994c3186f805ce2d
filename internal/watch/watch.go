package watch

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const defaultDebounce = 500 * time.Millisecond

type Config struct {
	// Debounce is the quiet period after the last event on a file before
	// subscribers are notified.
	Debounce time.Duration
	Log      logrus.FieldLogger
}

// Watcher turns file system events into per-file change notifications.
// Parent directories are watched so that files replaced through a rename
// keep being tracked.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      logrus.FieldLogger

	mu      sync.Mutex
	subs    map[string][]chan struct{}
	dirs    map[string]struct{}
	pending map[string]*time.Timer

	stop chan struct{}
	done chan struct{}
}

func New(cfg Config) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = defaultDebounce
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}

	w := &Watcher{
		watcher:  fw,
		debounce: cfg.Debounce,
		log:      cfg.Log,
		subs:     map[string][]chan struct{}{},
		dirs:     map[string]struct{}{},
		pending:  map[string]*time.Timer{},
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Subscribe returns a channel receiving a value whenever path changes.
// Notifications coalesce: a slow reader sees at most one pending change.
func (w *Watcher) Subscribe(path string) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(abs)

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.dirs[dir]; !ok {
		if err := w.watcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		w.dirs[dir] = struct{}{}
		w.log.WithField("dir", dir).Debug("watching directory")
	}

	ch := make(chan struct{}, 1)
	w.subs[abs] = append(w.subs[abs], ch)
	return ch, nil
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("file watcher error")
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) schedule(name string) {
	abs, err := filepath.Abs(name)
	if err != nil {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.subs[abs]; !ok {
		return
	}
	if timer, ok := w.pending[abs]; ok {
		timer.Reset(w.debounce)
		return
	}
	w.pending[abs] = time.AfterFunc(w.debounce, func() { w.notify(abs) })
}

func (w *Watcher) notify(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	subs := append([]chan struct{}(nil), w.subs[path]...)
	w.mu.Unlock()

	w.log.WithField("file", path).Info("configuration file changed")
	for _, ch := range subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (w *Watcher) Close() error {
	close(w.stop)
	err := w.watcher.Close()
	<-w.done

	w.mu.Lock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	return err
}
