package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/angelmondragon/cinepass/pkg/logger"
)

// ErrClosed is returned by writes issued after Close.
var ErrClosed = errors.New("storage: write-behind store closed")

type pendingOp struct {
	value   []byte
	deleted bool
	// ifExists marks a Replace whose key was not known to exist when queued.
	ifExists bool
}

// WriteBehind acknowledges writes immediately and applies them to the
// wrapped store from a single background goroutine. Each key holds at most
// one pending operation; a newer write replaces an older unapplied one.
// Reads observe pending and in-flight writes before falling back to the
// wrapped store.
type WriteBehind struct {
	next Store
	logg *logger.Logger

	mu       sync.Mutex
	pending  map[string]pendingOp
	inflight map[string]pendingOp
	drained  chan struct{}
	closed   bool

	wake chan struct{}
	stop chan struct{}
	done chan struct{}
}

func NewWriteBehind(next Store, logg *logger.Logger) (*WriteBehind, error) {
	if next == nil {
		return nil, errors.New("backing store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	w := &WriteBehind{
		next:    next,
		logg:    logg,
		pending: make(map[string]pendingOp),
		drained: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *WriteBehind) Load(ctx context.Context, key string) ([]byte, error) {
	w.mu.Lock()
	op, ok := w.pending[key]
	if !ok {
		op, ok = w.inflight[key]
	}
	w.mu.Unlock()
	if !ok {
		return w.next.Load(ctx, key)
	}
	if op.deleted {
		return nil, ErrNotFound
	}
	if op.ifExists {
		if _, err := w.next.Load(ctx, key); err != nil {
			return nil, err
		}
	}
	return cloneBytes(op.value), nil
}

func (w *WriteBehind) Save(_ context.Context, key string, value []byte) error {
	return w.enqueue(key, pendingOp{value: cloneBytes(value)})
}

// Replace queues a conditional overwrite. A queued delete wins. Otherwise
// the wrapped store is consulted and the write is applied with the wrapped
// store's Replace, so a delete landing in between still holds.
func (w *WriteBehind) Replace(ctx context.Context, key string, value []byte) (bool, error) {
	value = cloneBytes(value)

	w.mu.Lock()
	decided, exists, err := w.queueReplaceLocked(key, value)
	w.mu.Unlock()
	if err != nil || decided {
		if exists {
			w.signal()
		}
		return exists, err
	}

	if _, err := w.next.Load(ctx, key); err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	w.mu.Lock()
	decided, exists, err = w.queueReplaceLocked(key, value)
	if err == nil && !decided {
		w.pending[key] = pendingOp{value: value, ifExists: true}
		exists = true
	}
	w.mu.Unlock()
	if exists {
		w.signal()
	}
	return exists, err
}

// queueReplaceLocked settles a Replace from queued state alone when it can.
func (w *WriteBehind) queueReplaceLocked(key string, value []byte) (decided, exists bool, err error) {
	if w.closed {
		return true, false, ErrClosed
	}
	if op, ok := w.pending[key]; ok {
		if op.deleted {
			return true, false, nil
		}
		w.pending[key] = pendingOp{value: value, ifExists: op.ifExists}
		return true, true, nil
	}
	if op, ok := w.inflight[key]; ok {
		if op.deleted {
			return true, false, nil
		}
		if !op.ifExists {
			w.pending[key] = pendingOp{value: value, ifExists: true}
			return true, true, nil
		}
	}
	return false, false, nil
}

func (w *WriteBehind) Delete(_ context.Context, key string) error {
	return w.enqueue(key, pendingOp{deleted: true})
}

func (w *WriteBehind) enqueue(key string, op pendingOp) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrClosed
	}
	w.pending[key] = op
	w.mu.Unlock()
	w.signal()
	return nil
}

func (w *WriteBehind) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every write acknowledged so far has been applied.
func (w *WriteBehind) Flush(ctx context.Context) error {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 && w.inflight == nil {
			w.mu.Unlock()
			return nil
		}
		ch := w.drained
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Close stops accepting writes, drains what is pending and stops the worker.
func (w *WriteBehind) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.stop)
	}
	w.mu.Unlock()

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *WriteBehind) run() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *WriteBehind) drain() {
	for {
		w.mu.Lock()
		if len(w.pending) == 0 {
			ch := w.drained
			w.drained = make(chan struct{})
			w.mu.Unlock()
			close(ch)
			return
		}
		batch := w.pending
		w.pending = make(map[string]pendingOp)
		w.inflight = batch
		w.mu.Unlock()

		for key, op := range batch {
			w.apply(key, op)
		}

		w.mu.Lock()
		w.inflight = nil
		w.mu.Unlock()
	}
}

func (w *WriteBehind) apply(key string, op pendingOp) {
	ctx := context.Background()
	var err error
	switch {
	case op.deleted:
		err = w.next.Delete(ctx, key)
	case op.ifExists:
		_, err = w.next.Replace(ctx, key, op.value)
	default:
		err = w.next.Save(ctx, key, op.value)
	}
	if err != nil {
		w.logg.Error(w.logg.WithField(ctx, "storage_key", key), "write-behind apply failed", err)
	}
}
