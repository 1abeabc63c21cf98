package event

const (
	EventKeyDown      = "input.key_down"
	EventKeyUp        = "input.key_up"
	EventPointerMove  = "input.pointer_move"
	EventPointerDelta = "input.pointer_delta"
	EventClick        = "input.click"

	// Pointer-capture signals produced by the host.
	EventLockAcquired = "lock.acquired"
	EventLockReleased = "lock.released"
	EventLockFailed   = "lock.failed"
)

// KeyEvent carries a physical key code such as "KeyW", "ArrowUp" or "Space".
type KeyEvent struct {
	Code string
}

// PointerEvent carries client coordinates for moves and raw deltas for
// captured pointer motion.
type PointerEvent struct {
	X float64
	Y float64
}

type LockFailure struct {
	Err error
}
