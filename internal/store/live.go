package store

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Live holds the current snapshot of a reloadable set. Readers always see a
// complete snapshot; reloads replace it wholesale.
type Live[T any] struct {
	name     string
	load     func() (T, error)
	current  atomic.Pointer[T]
	log      logrus.FieldLogger
	onReload func(name string, err error)
}

// NewLive loads the first snapshot and fails if it cannot be built.
func NewLive[T any](name string, load func() (T, error), log logrus.FieldLogger) (*Live[T], error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &Live[T]{name: name, load: load, log: log.WithField("set", name)}
	value, err := load()
	if err != nil {
		return nil, err
	}
	l.current.Store(&value)
	return l, nil
}

// Static wraps a fixed value, mostly useful in tests and dry runs.
func Static[T any](name string, value T) *Live[T] {
	l := &Live[T]{
		name: name,
		load: func() (T, error) { return value, nil },
		log:  logrus.StandardLogger().WithField("set", name),
	}
	l.current.Store(&value)
	return l
}

func (l *Live[T]) Name() string {
	return l.name
}

func (l *Live[T]) Get() T {
	return *l.current.Load()
}

// OnReload registers a hook called after every reload attempt.
func (l *Live[T]) OnReload(fn func(name string, err error)) {
	l.onReload = fn
}

// Reload rebuilds the snapshot. On failure the previous snapshot stays.
func (l *Live[T]) Reload() error {
	value, err := l.load()
	if l.onReload != nil {
		l.onReload(l.name, err)
	}
	if err != nil {
		l.log.WithError(err).Error("reload failed, keeping previous configuration")
		return err
	}
	l.current.Store(&value)
	l.log.Info("configuration reloaded")
	return nil
}

// Follow reloads on every notification until ctx is done or changes closes.
func (l *Live[T]) Follow(ctx context.Context, changes <-chan struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				return
			}
			_ = l.Reload()
		}
	}
}
