package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MovementState holds the held movement directions sampled once per tick.
type MovementState struct {
	Forward  bool
	Backward bool
	Left     bool
	Right    bool
}

func (m MovementState) Any() bool {
	return m.Forward || m.Backward || m.Left || m.Right
}

// Body is the kinematic state of the first-person camera.
type Body struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	CanJump  bool
}

// Jump adds JumpVelocity to the vertical speed when grounded and reports
// whether it did.
func (b *Body) Jump() bool {
	if b == nil || !b.CanJump {
		return false
	}
	b.Velocity[1] += JumpVelocity
	b.CanJump = false
	return true
}

// Step integrates one tick of movement. Horizontal motion is relative to yaw
// (radians, rotation about +Y, zero looking down -Z).
func Step(b *Body, move MovementState, yaw, dt float64) {
	if b == nil {
		return
	}
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}

	damp := DampRate * dt
	if damp > 1 {
		damp = 1
	}
	b.Velocity[0] -= b.Velocity[0] * damp
	b.Velocity[2] -= b.Velocity[2] * damp

	dx, dz := desiredMoveVector(move)
	if move.Forward || move.Backward {
		b.Velocity[2] -= dz * MoveSpeed
	}
	if move.Left || move.Right {
		b.Velocity[0] -= dx * MoveSpeed
	}

	b.Velocity[1] -= Gravity * dt

	right, forward := HorizontalAxes(yaw)
	b.Position = b.Position.
		Add(right.Mul(-b.Velocity[0] * dt)).
		Add(forward.Mul(-b.Velocity[2] * dt))

	b.Position[1] += b.Velocity[1] * dt

	if b.Position[1] < EyeHeight {
		b.Velocity[1] = 0
		b.Position[1] = EyeHeight
		b.CanJump = true
	}
}

// HorizontalAxes returns the camera's right and forward vectors projected on
// the ground plane.
func HorizontalAxes(yaw float64) (mgl64.Vec3, mgl64.Vec3) {
	rot := mgl64.Rotate3DY(yaw)
	right := rot.Mul3x1(mgl64.Vec3{1, 0, 0})
	forward := rot.Mul3x1(mgl64.Vec3{0, 0, -1})
	return right, forward
}

func desiredMoveVector(move MovementState) (float64, float64) {
	var dz float64
	if move.Forward {
		dz += 1
	}
	if move.Backward {
		dz -= 1
	}

	var dx float64
	if move.Right {
		dx += 1
	}
	if move.Left {
		dx -= 1
	}

	length := math.Sqrt(dx*dx + dz*dz)
	if length < directionEpsilon {
		return 0, 0
	}
	return dx / length, dz / length
}

// ClampPitch keeps pitch inside [MinPitch, MaxPitch].
func ClampPitch(pitch float64) float64 {
	if pitch < MinPitch {
		return MinPitch
	}
	if pitch > MaxPitch {
		return MaxPitch
	}
	return pitch
}
