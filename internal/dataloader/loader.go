// Package dataloader coalesces single-key lookups into batched fetches.
//
// A Loader collects the keys requested through Load and LoadMany and hands the
// distinct set to its batch function on Dispatch, or lazily the first time a
// returned Thunk is forced. Results are cached for the lifetime of the Loader,
// so a Loader is meant to live exactly as long as one request. Loaders are not
// safe for concurrent use.
package dataloader

import (
	"context"
	"time"
)

// BatchFunc fetches the values for a set of distinct keys. Keys missing from
// the returned map resolve to the zero value of V.
type BatchFunc[K comparable, V any] func(ctx context.Context, keys []K) (map[K]V, error)

// Thunk yields the value of a Load once it is forced.
type Thunk[V any] func() (V, error)

// BatchInfo describes one call of a batch function.
type BatchInfo struct {
	Loader   string
	Keys     int
	Duration time.Duration
	Err      error
}

type Config[K comparable, V any] struct {
	// Name identifies the loader in BatchInfo.
	Name string
	// Fetch is required.
	Fetch BatchFunc[K, V]
	// MaxBatchSize bounds the number of keys per Fetch call. Zero means
	// unlimited.
	MaxBatchSize int
	// OnBatch, when set, is called after every Fetch call.
	OnBatch func(ctx context.Context, info BatchInfo)
}

type entry[K comparable, V any] struct {
	key   K
	done  bool
	value V
	err   error
}

type Loader[K comparable, V any] struct {
	cfg     Config[K, V]
	cache   map[K]*entry[K, V]
	pending []*entry[K, V]
}

func New[K comparable, V any](cfg Config[K, V]) *Loader[K, V] {
	if cfg.Fetch == nil {
		panic("dataloader: Config.Fetch is required")
	}
	return &Loader[K, V]{cfg: cfg, cache: make(map[K]*entry[K, V])}
}

func (l *Loader[K, V]) Name() string { return l.cfg.Name }

// Pending returns the number of keys waiting for the next Dispatch.
func (l *Loader[K, V]) Pending() int { return len(l.pending) }

// Load schedules key and returns a Thunk for its value. Keys already cached or
// pending are not scheduled again.
func (l *Loader[K, V]) Load(ctx context.Context, key K) Thunk[V] {
	e, ok := l.cache[key]
	if !ok {
		e = &entry[K, V]{key: key}
		l.cache[key] = e
		l.pending = append(l.pending, e)
	}
	return func() (V, error) {
		if !e.done {
			l.Dispatch(ctx)
		}
		return e.value, e.err
	}
}

// LoadMany schedules every key and returns a Thunk for their values in input
// order. The first error encountered fails the whole list.
func (l *Loader[K, V]) LoadMany(ctx context.Context, keys []K) Thunk[[]V] {
	thunks := make([]Thunk[V], len(keys))
	for i, key := range keys {
		thunks[i] = l.Load(ctx, key)
	}
	return func() ([]V, error) {
		out := make([]V, len(thunks))
		for i, thunk := range thunks {
			v, err := thunk()
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}
}

// Prime stores value for key. A pending load of key is completed with value and
// leaves the queue. A key that is already resolved keeps its value.
func (l *Loader[K, V]) Prime(key K, value V) {
	e, ok := l.cache[key]
	if !ok {
		l.cache[key] = &entry[K, V]{key: key, done: true, value: value}
		return
	}
	if e.done {
		return
	}
	e.done, e.value = true, value
	for i, p := range l.pending {
		if p == e {
			l.pending = append(l.pending[:i:i], l.pending[i+1:]...)
			break
		}
	}
}

// Clear forgets key. Thunks already handed out still resolve.
func (l *Loader[K, V]) Clear(key K) {
	delete(l.cache, key)
}

// ClearAll forgets every cached key.
func (l *Loader[K, V]) ClearAll() {
	l.cache = make(map[K]*entry[K, V])
}

// Dispatch fetches every pending key, in batches of at most MaxBatchSize keys
// ordered by first request.
func (l *Loader[K, V]) Dispatch(ctx context.Context) {
	for len(l.pending) > 0 {
		batch := l.pending
		if n := l.cfg.MaxBatchSize; n > 0 && len(batch) > n {
			batch = batch[:n]
		}
		l.pending = l.pending[len(batch):]
		l.fetch(ctx, batch)
	}
	l.pending = nil
}

func (l *Loader[K, V]) fetch(ctx context.Context, batch []*entry[K, V]) {
	keys := make([]K, 0, len(batch))
	seen := make(map[K]struct{}, len(batch))
	for _, e := range batch {
		if _, dup := seen[e.key]; dup {
			continue
		}
		seen[e.key] = struct{}{}
		keys = append(keys, e.key)
	}

	start := time.Now()
	values, err := l.cfg.Fetch(ctx, keys)
	if l.cfg.OnBatch != nil {
		l.cfg.OnBatch(ctx, BatchInfo{Loader: l.cfg.Name, Keys: len(keys), Duration: time.Since(start), Err: err})
	}

	for _, e := range batch {
		e.done = true
		if err != nil {
			e.err = err
			if l.cache[e.key] == e {
				delete(l.cache, e.key)
			}
			continue
		}
		e.value = values[e.key]
	}
}
