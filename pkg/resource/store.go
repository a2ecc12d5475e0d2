// Package resource holds mock resource state: an in-memory key/value
// map with per-key mutual exclusion and an optional durable save hook.
//
// Keys are request paths. An item lives under its concrete path
// ("/pets/1"); a collection is a JSON array under the path with the
// trailing identifier stripped ("/pets").
package resource

import (
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fauxapi/fauxd/pkg/logging"
	"github.com/fauxapi/fauxd/pkg/persist"
)

// saveDebounce batches bursts of mutations into one durable write.
const saveDebounce = 500 * time.Millisecond

// Store is the resource state container. All methods are safe for
// concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[string]any

	// tombstones remembers keys removed by Delete so callers can tell a
	// deleted item apart from one that never existed. A subsequent Set
	// on the key revives it. Tombstones are process-local; they are not
	// part of the durable snapshot.
	tombstones map[string]struct{}

	// keyLocks serializes read-modify-write sequences per collection.
	// Entries are created on demand and never removed; the key space is
	// bounded by the number of declared collections, which is small for
	// mock workloads.
	lockMu   sync.Mutex
	keyLocks map[string]*sync.Mutex

	saver  persist.Saver
	logger *slog.Logger

	dirty      atomic.Bool
	saveFailed atomic.Bool
	saveCh     chan struct{}
	closeCh    chan struct{}
	closedCh   chan struct{}
	closeOnce  sync.Once
}

// Option configures a Store.
type Option func(*Store)

// WithSaver attaches a durable save hook. Saves run off the request
// path; a failing saver degrades the store to memory-only.
func WithSaver(s persist.Saver) Option {
	return func(st *Store) { st.saver = s }
}

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// NewStore creates an empty store and starts its save loop when a
// saver is attached.
func NewStore(opts ...Option) *Store {
	st := &Store{
		data:       make(map[string]any),
		tombstones: make(map[string]struct{}),
		keyLocks:   make(map[string]*sync.Mutex),
		logger:     logging.Nop(),
		saveCh:     make(chan struct{}, 1),
		closeCh:    make(chan struct{}),
		closedCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(st)
	}
	if st.saver != nil {
		go st.saveLoop()
	} else {
		close(st.closedCh)
	}
	return st
}

// Open loads the last durable snapshot into memory. A missing snapshot
// is not an error; a corrupt one is, so the operator can decide whether
// to delete it.
func (st *Store) Open() error {
	if st.saver == nil {
		return nil
	}
	state, err := st.saver.Load()
	if err != nil {
		return err
	}
	st.mu.Lock()
	st.data = state
	if st.data == nil {
		st.data = make(map[string]any)
	}
	st.mu.Unlock()
	st.logger.Info("state loaded", "keys", len(state))
	return nil
}

// Do runs fn while holding the named key's lock, serializing compound
// read-modify-write sequences against that key.
func (st *Store) Do(key string, fn func()) {
	lock := st.keyLock(key)
	lock.Lock()
	defer lock.Unlock()
	fn()
}

func (st *Store) keyLock(key string) *sync.Mutex {
	st.lockMu.Lock()
	defer st.lockMu.Unlock()
	if l, ok := st.keyLocks[key]; ok {
		return l
	}
	l := &sync.Mutex{}
	st.keyLocks[key] = l
	return l
}

// Get returns the value stored under key.
func (st *Store) Get(key string) (any, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	v, ok := st.data[key]
	return v, ok
}

// Set stores a value under key and queues a durable flush. Setting a
// key clears any tombstone left by an earlier Delete.
func (st *Store) Set(key string, value any) {
	st.mu.Lock()
	st.data[key] = value
	delete(st.tombstones, key)
	st.mu.Unlock()
	st.markDirty()
}

// Delete removes key and leaves a tombstone so WasDeleted can tell the
// key apart from one never written. It reports whether the key existed.
func (st *Store) Delete(key string) bool {
	st.mu.Lock()
	_, existed := st.data[key]
	delete(st.data, key)
	if existed {
		st.tombstones[key] = struct{}{}
	}
	st.mu.Unlock()
	if existed {
		st.markDirty()
	}
	return existed
}

// WasDeleted reports whether key was removed by Delete and has not been
// set since.
func (st *Store) WasDeleted(key string) bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, ok := st.tombstones[key]
	return ok
}

// GetCollection returns the array stored under key. ok is false when
// the key is absent or does not hold an array.
func (st *Store) GetCollection(key string) ([]any, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	items, ok := st.data[key].([]any)
	return items, ok
}

// AppendToCollection appends value to the array under key, creating
// the array if needed.
func (st *Store) AppendToCollection(key string, value any) {
	st.mu.Lock()
	items, _ := st.data[key].([]any)
	st.data[key] = append(items, value)
	st.mu.Unlock()
	st.markDirty()
}

// RemoveFromCollection removes every element of the array under key
// whose field matches value. It reports whether anything was removed.
func (st *Store) RemoveFromCollection(key, field string, value any) bool {
	st.mu.Lock()
	items, ok := st.data[key].([]any)
	if !ok {
		st.mu.Unlock()
		return false
	}
	kept := items[:0:0]
	removed := false
	for _, item := range items {
		if obj, isObj := item.(map[string]any); isObj && equalLoose(obj[field], value) {
			removed = true
			continue
		}
		kept = append(kept, item)
	}
	if removed {
		st.data[key] = kept
	}
	st.mu.Unlock()
	if removed {
		st.markDirty()
	}
	return removed
}

// Snapshot returns a shallow copy of the full state map.
func (st *Store) Snapshot() map[string]any {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make(map[string]any, len(st.data))
	for k, v := range st.data {
		out[k] = v
	}
	return out
}

// Len returns the number of stored keys.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.data)
}

// Reset drops all state, including tombstones, and queues a durable
// flush of the empty map.
func (st *Store) Reset() {
	st.mu.Lock()
	st.data = make(map[string]any)
	st.tombstones = make(map[string]struct{})
	st.mu.Unlock()
	st.markDirty()
}

// Close stops the save loop, flushing once more if there are unsaved
// mutations.
func (st *Store) Close() error {
	if st.saver == nil {
		return nil
	}
	st.closeOnce.Do(func() {
		close(st.closeCh)
	})
	<-st.closedCh
	if st.dirty.Load() {
		return st.saver.Save(st.Snapshot())
	}
	return nil
}

func (st *Store) markDirty() {
	st.dirty.Store(true)
	if st.saver == nil {
		return
	}
	select {
	case st.saveCh <- struct{}{}:
	default:
	}
}

// saveLoop debounces save requests so a burst of mutations produces one
// write. Failures are logged once per outage and do not affect the
// in-memory state.
func (st *Store) saveLoop() {
	defer close(st.closedCh)
	for {
		select {
		case <-st.closeCh:
			return
		case <-st.saveCh:
		}

		timer := time.NewTimer(saveDebounce)
		select {
		case <-st.closeCh:
			timer.Stop()
			return
		case <-timer.C:
		}

		st.dirty.Store(false)
		if err := st.saver.Save(st.Snapshot()); err != nil {
			st.dirty.Store(true)
			if !st.saveFailed.Swap(true) {
				st.logger.Error("state save failed, continuing in memory only", "error", err)
			}
			continue
		}
		if st.saveFailed.Swap(false) {
			st.logger.Info("state save recovered")
		}
	}
}

// equalLoose compares identifier values across the types JSON decoding
// can produce: "1", 1, and 1.0 all refer to the same id.
func equalLoose(a, b any) bool {
	if a == b {
		return true
	}
	return idString(a) != "" && idString(a) == idString(b)
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10)
		}
		return ""
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return ""
	}
}
