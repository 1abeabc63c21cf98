package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultDebounce = 250 * time.Millisecond
	writeTimeout    = 5 * time.Second
)

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Queue persists the single player-state record behind a debounce: each
// QueueSave cancels the write scheduled by the previous one.
type Queue struct {
	open     Opener
	debounce time.Duration
	after    afterFunc

	mu         sync.Mutex
	store      Store
	pending    timer
	generation uint64
	disposed   bool
}

func NewQueue(open Opener, debounce time.Duration) *Queue {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Queue{
		open:     open,
		debounce: debounce,
		after:    realAfterFunc,
	}
}

// Initialize opens the backing store. A failure leaves the queue unusable.
func (q *Queue) Initialize(ctx context.Context) error {
	if q.open == nil {
		return fmt.Errorf("initialize storage: %w", ErrNotInitialized)
	}
	store, err := q.open(ctx)
	if err != nil {
		return fmt.Errorf("initialize storage: %w", err)
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.store != nil {
		_ = q.store.Close()
	}
	q.store = store
	q.disposed = false
	return nil
}

// Load reads the saved record directly. It returns nil, nil when nothing has
// been saved yet.
func (q *Queue) Load(ctx context.Context) (*PlayerState, error) {
	store, err := q.currentStore()
	if err != nil {
		return nil, err
	}
	raw, ok, err := store.GetItem(ctx, PlayerStateKey)
	if err != nil {
		return nil, fmt.Errorf("load player state: %w", err)
	}
	if !ok {
		return nil, nil
	}
	state, err := decodePlayerState(raw)
	if err != nil {
		return nil, err
	}
	return &state, nil
}

// QueueSave schedules state to be written once the debounce window passes
// without another call.
func (q *Queue) QueueSave(state PlayerState) {
	payload, err := encodePlayerState(state)

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.disposed || q.store == nil {
		return
	}
	// A newer save always cancels the older one, even if it cannot be written.
	if q.pending != nil {
		q.pending.Stop()
		q.pending = nil
	}
	q.generation++
	gen := q.generation
	if err != nil {
		slog.Error("Failed to encode player state", "error", err)
		return
	}
	q.pending = q.after(q.debounce, func() {
		q.flush(gen, payload)
	})
}

func (q *Queue) flush(gen uint64, payload []byte) {
	q.mu.Lock()
	if q.disposed || gen != q.generation {
		q.mu.Unlock()
		return
	}
	q.pending = nil
	store := q.store
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := store.SetItem(ctx, PlayerStateKey, payload); err != nil {
		slog.Error("Failed to persist player state", "error", err)
		return
	}
	slog.Debug("Persisted player state", "bytes", len(payload))
}

// Pending reports whether a write is scheduled and has not fired yet.
func (q *Queue) Pending() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending != nil
}

// Dispose abandons any scheduled write and closes the store.
func (q *Queue) Dispose() error {
	q.mu.Lock()
	if q.disposed {
		q.mu.Unlock()
		return nil
	}
	q.disposed = true
	if q.pending != nil {
		q.pending.Stop()
		q.pending = nil
	}
	store := q.store
	q.store = nil
	q.mu.Unlock()

	if store == nil {
		return nil
	}
	return store.Close()
}

func (q *Queue) currentStore() (Store, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.disposed {
		return nil, ErrClosed
	}
	if q.store == nil {
		return nil, ErrNotInitialized
	}
	return q.store, nil
}
