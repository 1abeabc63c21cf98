package physics

const (
	// MoveSpeed is injected into horizontal velocity every tick a direction is held.
	MoveSpeed    = 8.0
	Gravity      = 30.0
	JumpVelocity = 8.0
	DampRate     = 10.0

	// EyeHeight is the floor the camera never sinks below.
	EyeHeight = 1.7

	PointerSpeed = 0.002
	MaxPitch     = 1.5707963267948966 // pi/2
	MinPitch     = -MaxPitch

	directionEpsilon = 1e-12
)
