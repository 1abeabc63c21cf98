package controls

import (
	"errors"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/lagoon/internal/event"
	"github.com/Versifine/lagoon/internal/physics"
)

var ErrNoCapture = errors.New("pointer capture is not available")

type LockState int

const (
	Unlocked LockState = iota
	Locked
	LockError
)

func (s LockState) String() string {
	switch s {
	case Unlocked:
		return "unlocked"
	case Locked:
		return "locked"
	case LockError:
		return "error"
	default:
		return "unknown"
	}
}

// PointerCapture is the host facility that grabs and releases the pointer.
// Completion is reported back on the input bus as EventLockAcquired,
// EventLockReleased or EventLockFailed.
type PointerCapture interface {
	RequestCapture()
	ReleaseCapture()
}

type Orientation struct {
	Yaw   float64
	Pitch float64
}

type Pose struct {
	Position mgl64.Vec3
	Orientation
}

type Options struct {
	Spawn       mgl64.Vec3
	Sensitivity float64
}

const lockChangeEvent = "lock.change"

type Controller struct {
	capture     PointerCapture
	lockEvents  *event.Bus
	subs        []event.Subscription
	body        physics.Body
	movement    physics.MovementState
	look        Orientation
	recorded    Orientation
	state       LockState
	pending     bool
	sensitivity float64
	disposed    bool
}

// New subscribes the controller to key, pointer, click and capture events on
// input. Host events must be published from the same goroutine that calls
// Tick.
func New(input *event.Bus, capture PointerCapture, opts Options) *Controller {
	sens := opts.Sensitivity
	if sens <= 0 {
		sens = 1
	}
	spawn := opts.Spawn
	if spawn[1] < physics.EyeHeight {
		spawn[1] = physics.EyeHeight
	}

	c := &Controller{
		capture:     capture,
		lockEvents:  event.NewBus(),
		body:        physics.Body{Position: spawn},
		sensitivity: sens,
	}
	if input != nil {
		c.subs = append(c.subs,
			input.Subscribe(event.EventKeyDown, func(raw any) {
				if evt, ok := raw.(event.KeyEvent); ok {
					c.HandleKey(evt.Code, true)
				}
			}),
			input.Subscribe(event.EventKeyUp, func(raw any) {
				if evt, ok := raw.(event.KeyEvent); ok {
					c.HandleKey(evt.Code, false)
				}
			}),
			input.Subscribe(event.EventPointerDelta, func(raw any) {
				if evt, ok := raw.(event.PointerEvent); ok {
					c.HandlePointerDelta(evt.X, evt.Y)
				}
			}),
			input.Subscribe(event.EventClick, func(any) {
				if c.state != Locked {
					c.RequestLock()
				}
			}),
			input.Subscribe(event.EventLockAcquired, func(any) { c.handleLockAcquired() }),
			input.Subscribe(event.EventLockReleased, func(any) { c.handleLockReleased() }),
			input.Subscribe(event.EventLockFailed, func(raw any) {
				var err error
				if evt, ok := raw.(event.LockFailure); ok {
					err = evt.Err
				}
				c.handleLockFailed(err)
			}),
		)
	}
	return c
}

// HandleKey updates the held directions; Space jumps on key-down when grounded.
func (c *Controller) HandleKey(code string, down bool) {
	if c == nil || c.disposed {
		return
	}
	if dir, ok := keyDirections[code]; ok {
		applyDirection(&c.movement, dir, down)
		return
	}
	if code == KeyJump && down {
		c.body.Jump()
	}
}

// HandlePointerDelta turns the camera while the pointer is captured.
func (c *Controller) HandlePointerDelta(dx, dy float64) {
	if c == nil || c.disposed || c.state != Locked {
		return
	}
	c.look.Yaw -= dx * physics.PointerSpeed * c.sensitivity
	c.look.Pitch = physics.ClampPitch(c.look.Pitch - dy*physics.PointerSpeed*c.sensitivity)
}

func (c *Controller) Tick(dt float64) {
	if c == nil || c.disposed || c.state != Locked {
		return
	}
	physics.Step(&c.body, c.movement, c.look.Yaw, dt)
	c.recorded = c.look
}

// Orientation returns the yaw/pitch recorded by the last tick or restore.
func (c *Controller) Orientation() Orientation {
	return c.recorded
}

// SetOrientation restores a saved orientation without running physics.
func (c *Controller) SetOrientation(yaw, pitch float64) {
	c.look = Orientation{Yaw: yaw, Pitch: physics.ClampPitch(pitch)}
	c.recorded = c.look
}

func (c *Controller) SetPosition(pos mgl64.Vec3) {
	c.body.Position = pos
}

// Pose is the live camera pose.
func (c *Controller) Pose() Pose {
	return Pose{Position: c.body.Position, Orientation: c.look}
}

func (c *Controller) ViewPose() (mgl64.Vec3, float64, float64) {
	return c.body.Position, c.look.Yaw, c.look.Pitch
}

func (c *Controller) Body() physics.Body {
	return c.body
}

func (c *Controller) Movement() physics.MovementState {
	return c.movement
}

func (c *Controller) LockState() LockState {
	return c.state
}

// LockPending reports whether a lock request is waiting for the host.
func (c *Controller) LockPending() bool {
	return c.pending
}

func (c *Controller) RequestLock() {
	if c == nil || c.disposed || c.state == Locked || c.pending {
		return
	}
	if c.capture == nil {
		c.handleLockFailed(ErrNoCapture)
		return
	}
	c.pending = true
	c.capture.RequestCapture()
}

func (c *Controller) RequestUnlock() {
	if c == nil || c.disposed || c.state != Locked || c.capture == nil {
		return
	}
	c.capture.ReleaseCapture()
}

// OnLockChange registers a handler for Locked, Unlocked and LockError
// transitions. LockError should be presented like Unlocked.
func (c *Controller) OnLockChange(handler func(LockState)) event.Subscription {
	if c == nil || handler == nil {
		return event.Subscription{}
	}
	return c.lockEvents.Subscribe(lockChangeEvent, func(raw any) {
		if s, ok := raw.(LockState); ok {
			handler(s)
		}
	})
}

func (c *Controller) handleLockAcquired() {
	if c.disposed || (c.state == Locked && !c.pending) {
		return
	}
	c.pending = false
	c.transition(Locked)
}

func (c *Controller) handleLockReleased() {
	if c.disposed || (c.state != Locked && !c.pending) {
		return
	}
	c.pending = false
	c.transition(Unlocked)
}

func (c *Controller) handleLockFailed(err error) {
	if c.disposed {
		return
	}
	c.pending = false
	slog.Warn("Pointer lock failed", "error", err)
	c.transition(LockError)
}

func (c *Controller) transition(next LockState) {
	prev := c.state
	c.state = next
	slog.Debug("Pointer lock state changed", "from", prev, "to", next)
	c.lockEvents.Publish(lockChangeEvent, next)
}

// Dispose drops input subscriptions and lock subscribers and releases a held
// capture. Safe to call more than once.
func (c *Controller) Dispose() {
	if c == nil || c.disposed {
		return
	}
	for _, sub := range c.subs {
		sub.Unsubscribe()
	}
	c.subs = nil
	if (c.state == Locked || c.pending) && c.capture != nil {
		c.capture.ReleaseCapture()
	}
	c.state = Unlocked
	c.pending = false
	c.movement = physics.MovementState{}
	c.disposed = true
	c.lockEvents = event.NewBus()
}
