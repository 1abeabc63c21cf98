package persistence

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasActive := !t.stopped
	t.stopped = true
	return wasActive
}

// manualClock 手动触发 debounce 定时器
type manualClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
	delays []time.Duration
}

func (c *manualClock) after(d time.Duration, fn func()) timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: fn}
	c.timers = append(c.timers, t)
	c.delays = append(c.delays, d)
	return t
}

// fireAll 运行所有未被取消的定时器
func (c *manualClock) fireAll() int {
	c.mu.Lock()
	timers := append([]*fakeTimer(nil), c.timers...)
	c.mu.Unlock()
	fired := 0
	for _, t := range timers {
		if t.stopped {
			continue
		}
		t.stopped = true
		t.fn()
		fired++
	}
	return fired
}

// countingStore 记录写入次数，可以注入错误
type countingStore struct {
	*MemoryStore
	mu       sync.Mutex
	writes   int
	setErr   error
	closeCnt int
}

func (s *countingStore) SetItem(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.writes++
	err := s.setErr
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.MemoryStore.SetItem(ctx, key, value)
}

func (s *countingStore) Close() error {
	s.mu.Lock()
	s.closeCnt++
	s.mu.Unlock()
	return s.MemoryStore.Close()
}

func newTestQueue(t *testing.T) (*Queue, *countingStore, *manualClock) {
	t.Helper()
	store := &countingStore{MemoryStore: NewMemoryStore()}
	clock := &manualClock{}
	q := NewQueue(func(context.Context) (Store, error) { return store, nil }, 0)
	q.after = clock.after
	if err := q.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return q, store, clock
}

func stateAt(x float64) PlayerState {
	return PlayerState{
		Position: mgl64.Vec3{x, 1.7, -x},
		Rotation: Rotation{Yaw: x / 10, Pitch: -0.25},
	}
}

func TestQueue_DefaultDebounce(t *testing.T) {
	q, _, clock := newTestQueue(t)
	q.QueueSave(stateAt(1))
	if len(clock.delays) != 1 || clock.delays[0] != DefaultDebounce {
		t.Fatalf("delays = %v, want [%v]", clock.delays, DefaultDebounce)
	}
}

func TestQueue_LoadBeforeAnySave(t *testing.T) {
	q, _, _ := newTestQueue(t)
	got, err := q.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got != nil {
		t.Fatalf("Load() = %+v, want nil", got)
	}
}

func TestQueue_RoundTrip(t *testing.T) {
	q, _, clock := newTestQueue(t)
	want := stateAt(3.5)
	q.QueueSave(want)
	if !q.Pending() {
		t.Fatal("save should be pending before the debounce fires")
	}
	clock.fireAll()
	if q.Pending() {
		t.Fatal("save still pending after firing")
	}

	got, err := q.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got == nil || *got != want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestQueue_Coalesces(t *testing.T) {
	q, store, clock := newTestQueue(t)
	for i := 1; i <= 10; i++ {
		q.QueueSave(stateAt(float64(i)))
	}
	if n := clock.fireAll(); n != 1 {
		t.Fatalf("fired timers = %d, want 1", n)
	}
	if store.writes != 1 {
		t.Fatalf("writes = %d, want 1", store.writes)
	}

	got, err := q.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if want := stateAt(10); *got != want {
		t.Fatalf("Load() = %+v, want last queued %+v", *got, want)
	}
}

func TestQueue_StaleTimerIgnored(t *testing.T) {
	q, store, clock := newTestQueue(t)
	q.QueueSave(stateAt(1))
	first := clock.timers[0]
	q.QueueSave(stateAt(2))

	// 第一个定时器已经在回调中时被取消，回调仍然不能写入旧值
	first.fn()
	if store.writes != 0 {
		t.Fatalf("writes = %d after stale callback, want 0", store.writes)
	}
	clock.fireAll()
	got, _ := q.Load(context.Background())
	if want := stateAt(2); got == nil || *got != want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestQueue_UnencodableStateCancelsPending(t *testing.T) {
	q, store, clock := newTestQueue(t)
	q.QueueSave(stateAt(1))
	q.QueueSave(PlayerState{Position: mgl64.Vec3{math.NaN(), 0, 0}})

	if q.Pending() {
		t.Fatal("Pending() = true after an unencodable save")
	}
	clock.fireAll()
	if store.writes != 0 {
		t.Fatalf("writes = %d, want 0", store.writes)
	}
	got, err := q.Load(context.Background())
	if err != nil || got != nil {
		t.Fatalf("Load() = %+v, %v, want nothing saved", got, err)
	}
}

func TestQueue_WriteFailureNotRetried(t *testing.T) {
	q, store, clock := newTestQueue(t)
	store.setErr = errors.New("quota exceeded")

	q.QueueSave(stateAt(1))
	clock.fireAll()
	if store.writes != 1 {
		t.Fatalf("writes = %d, want 1", store.writes)
	}
	if n := clock.fireAll(); n != 0 {
		t.Fatalf("retry timers fired = %d, want 0", n)
	}

	// 之后的保存照常进行
	store.setErr = nil
	q.QueueSave(stateAt(2))
	clock.fireAll()
	got, err := q.Load(context.Background())
	if err != nil || got == nil || *got != stateAt(2) {
		t.Fatalf("Load() = %+v, %v, want %+v", got, err, stateAt(2))
	}
}

func TestQueue_DisposeAbandonsPendingWrite(t *testing.T) {
	q, store, clock := newTestQueue(t)
	q.QueueSave(stateAt(1))
	first := clock.timers[0]

	if err := q.Dispose(); err != nil {
		t.Fatalf("Dispose() error = %v", err)
	}
	if err := q.Dispose(); err != nil {
		t.Fatalf("second Dispose() error = %v", err)
	}
	if !first.stopped {
		t.Fatal("pending timer not stopped by Dispose")
	}
	first.fn()
	if store.writes != 0 {
		t.Fatalf("writes = %d after dispose, want 0", store.writes)
	}
	if store.closeCnt != 1 {
		t.Fatalf("store closed %d times, want 1", store.closeCnt)
	}

	q.QueueSave(stateAt(2))
	if len(clock.timers) != 1 {
		t.Fatal("QueueSave after Dispose armed a timer")
	}
	if _, err := q.Load(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("Load() after Dispose error = %v, want ErrClosed", err)
	}
}

func TestQueue_NotInitialized(t *testing.T) {
	clock := &manualClock{}
	q := NewQueue(MemoryOpener(NewMemoryStore()), time.Second)
	q.after = clock.after

	if _, err := q.Load(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Load() error = %v, want ErrNotInitialized", err)
	}
	q.QueueSave(stateAt(1))
	if len(clock.timers) != 0 {
		t.Fatal("QueueSave before Initialize armed a timer")
	}
}

func TestQueue_InitializeFailure(t *testing.T) {
	boom := errors.New("storage unavailable")
	q := NewQueue(func(context.Context) (Store, error) { return nil, boom }, 0)

	err := q.Initialize(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Initialize() error = %v, want %v", err, boom)
	}
	if _, err := q.Load(context.Background()); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("Load() error = %v, want ErrNotInitialized", err)
	}

	if err := NewQueue(nil, 0).Initialize(context.Background()); err == nil {
		t.Fatal("Initialize() with nil opener should fail")
	}
}

func TestQueue_ReinitializeAfterDispose(t *testing.T) {
	mem := NewMemoryStore()
	clock := &manualClock{}
	q := NewQueue(MemoryOpener(mem), 0)
	q.after = clock.after
	ctx := context.Background()

	if err := q.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	q.QueueSave(stateAt(4))
	clock.fireAll()
	_ = q.Dispose()

	if err := q.Initialize(ctx); err != nil {
		t.Fatalf("second Initialize() error = %v", err)
	}
	got, err := q.Load(ctx)
	if err != nil || got == nil || *got != stateAt(4) {
		t.Fatalf("Load() = %+v, %v, want %+v", got, err, stateAt(4))
	}
}

func TestDecodePlayerState(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{"完整记录", `{"position":{"x":1,"y":2,"z":3},"rotation":{"yaw":0.5,"pitch":-0.1}}`, ""},
		{"非 JSON", `not json`, "decode"},
		{"缺少 rotation", `{"position":{"x":1,"y":2,"z":3}}`, "validate"},
		{"坐标是字符串", `{"position":{"x":"1","y":2,"z":3},"rotation":{"yaw":0,"pitch":0}}`, "validate"},
		{"缺少 z", `{"position":{"x":1,"y":2},"rotation":{"yaw":0,"pitch":0}}`, "validate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodePlayerState([]byte(tt.raw))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("decodePlayerState() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("decodePlayerState() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestQueue_LoadRejectsCorruptRecord(t *testing.T) {
	mem := NewMemoryStore()
	ctx := context.Background()
	if err := mem.SetItem(ctx, PlayerStateKey, []byte(`{"position":[1,2,3]}`)); err != nil {
		t.Fatalf("SetItem() error = %v", err)
	}
	q := NewQueue(MemoryOpener(mem), 0)
	if err := q.Initialize(ctx); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if got, err := q.Load(ctx); err == nil {
		t.Fatalf("Load() = %+v, want schema error", got)
	}
}

func TestEncodePlayerState_WireShape(t *testing.T) {
	raw, err := encodePlayerState(PlayerState{
		Position: mgl64.Vec3{1, 2, 3},
		Rotation: Rotation{Yaw: 0.5, Pitch: -0.25},
	})
	if err != nil {
		t.Fatalf("encodePlayerState() error = %v", err)
	}
	want := `{"position":{"x":1,"y":2,"z":3},"rotation":{"yaw":0.5,"pitch":-0.25}}`
	if string(raw) != want {
		t.Fatalf("encoded = %s, want %s", raw, want)
	}
}
