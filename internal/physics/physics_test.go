package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const frameDT = 1.0 / 60.0

func approxEqual(t *testing.T, got, want, tol float64, field string) {
	t.Helper()
	if math.Abs(got-want) > tol {
		t.Fatalf("%s = %.8f, want %.8f (tol=%.8f)", field, got, want, tol)
	}
}

func groundedBody() *Body {
	return &Body{Position: mgl64.Vec3{0, EyeHeight, 5}, CanJump: true}
}

func TestStep_FreeFallOneTick(t *testing.T) {
	b := &Body{Position: mgl64.Vec3{0, 10, 0}}

	Step(b, MovementState{}, 0, frameDT)

	approxEqual(t, b.Velocity.Y(), -Gravity*frameDT, 1e-12, "velocity.y")
	approxEqual(t, b.Position.Y(), 10-Gravity*frameDT*frameDT, 1e-12, "position.y")
	if b.CanJump {
		t.Fatalf("canJump = true, want false while airborne")
	}
}

func TestStep_FloorClampSetsCanJump(t *testing.T) {
	b := &Body{Position: mgl64.Vec3{0, EyeHeight + 0.01, 0}, Velocity: mgl64.Vec3{0, -5, 0}}

	Step(b, MovementState{}, 0, frameDT)

	approxEqual(t, b.Position.Y(), EyeHeight, 0, "position.y")
	approxEqual(t, b.Velocity.Y(), 0, 0, "velocity.y")
	if !b.CanJump {
		t.Fatalf("canJump = false, want true after floor clamp")
	}
}

func TestStep_HugeDeltaNeverSinksBelowFloor(t *testing.T) {
	tests := []struct {
		name string
		dt   float64
	}{
		{"一帧", frameDT},
		{"一秒", 1},
		{"一小时", 3600},
		{"极大值", 1e12},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Body{Position: mgl64.Vec3{0, 50, 0}, Velocity: mgl64.Vec3{3, 20, -4}}
			Step(b, MovementState{Forward: true, Left: true}, 0.3, tt.dt)
			if b.Position.Y() < EyeHeight {
				t.Fatalf("position.y = %.6f, want >= %.1f", b.Position.Y(), EyeHeight)
			}
		})
	}
}

func TestStep_InvalidDeltaTreatedAsZero(t *testing.T) {
	for _, dt := range []float64{-1, math.NaN()} {
		b := groundedBody()
		before := b.Position
		Step(b, MovementState{}, 0, dt)
		if b.Position != before {
			t.Fatalf("dt=%v moved body from %v to %v", dt, before, b.Position)
		}
	}
}

func TestJump_OnlyWhenGrounded(t *testing.T) {
	b := groundedBody()
	if !b.Jump() {
		t.Fatal("first jump from the ground should succeed")
	}
	approxEqual(t, b.Velocity.Y(), JumpVelocity, 0, "velocity.y")
	if b.CanJump {
		t.Fatal("canJump should be cleared by the jump")
	}
	if b.Jump() {
		t.Fatal("second jump while airborne should be ignored")
	}
	approxEqual(t, b.Velocity.Y(), JumpVelocity, 0, "velocity.y")

	// Stays airborne until the floor clamp fires again.
	landed := false
	for i := 0; i < 120; i++ {
		Step(b, MovementState{}, 0, frameDT)
		if b.CanJump {
			landed = true
			break
		}
		if b.Jump() {
			t.Fatalf("tick %d: jump succeeded while airborne", i)
		}
	}
	if !landed {
		t.Fatal("body never landed")
	}
}

func TestStep_VelocityDecaysWithoutReversal(t *testing.T) {
	b := groundedBody()
	b.Velocity = mgl64.Vec3{-30, 0, 25}

	prevX, prevZ := b.Velocity.X(), b.Velocity.Z()
	for i := 0; i < 600; i++ {
		Step(b, MovementState{}, 0, frameDT)
		x, z := b.Velocity.X(), b.Velocity.Z()
		if x > 0 || z < 0 {
			t.Fatalf("tick %d: velocity reversed sign: x=%.6f z=%.6f", i, x, z)
		}
		if math.Abs(x) > math.Abs(prevX) || math.Abs(z) > math.Abs(prevZ) {
			t.Fatalf("tick %d: velocity grew: x=%.6f z=%.6f", i, x, z)
		}
		prevX, prevZ = x, z
	}
	if math.Abs(prevX) > 1e-6 || math.Abs(prevZ) > 1e-6 {
		t.Fatalf("velocity did not decay: x=%.8f z=%.8f", prevX, prevZ)
	}
}

func TestStep_OversizedDeltaStopsInsteadOfReversing(t *testing.T) {
	b := groundedBody()
	b.Velocity = mgl64.Vec3{5, 0, 5}
	Step(b, MovementState{}, 0, 0.5)
	approxEqual(t, b.Velocity.X(), 0, 0, "velocity.x")
	approxEqual(t, b.Velocity.Z(), 0, 0, "velocity.z")
}

func TestStep_ForwardApproachesSteadyState(t *testing.T) {
	b := groundedBody()
	steady := MoveSpeed / (DampRate * frameDT)

	for i := 0; i < 60; i++ {
		Step(b, MovementState{Forward: true}, 0, frameDT)
		speed := math.Hypot(b.Velocity.X(), b.Velocity.Z())
		if speed > steady+1e-9 {
			t.Fatalf("tick %d: speed %.9f exceeds steady state %.9f", i, speed, steady)
		}
	}
	speed := math.Hypot(b.Velocity.X(), b.Velocity.Z())
	if speed < steady*0.99 {
		t.Fatalf("speed after 1s = %.6f, want close to %.6f", speed, steady)
	}
	// Forward at yaw 0 is -Z.
	if b.Position.Z() >= 5 {
		t.Fatalf("position.z = %.6f, want < 5", b.Position.Z())
	}
	approxEqual(t, b.Position.X(), 0, 1e-9, "position.x")
}

func TestStep_MovementIsYawRelative(t *testing.T) {
	tests := []struct {
		name  string
		yaw   float64
		move  MovementState
		wantX float64
		wantZ float64
	}{
		{"正前方", 0, MovementState{Forward: true}, 0, -1},
		{"左转90度前进", math.Pi / 2, MovementState{Forward: true}, -1, 0},
		{"向右平移", 0, MovementState{Right: true}, 1, 0},
		{"向左平移", 0, MovementState{Left: true}, -1, 0},
		{"后退", 0, MovementState{Backward: true}, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := groundedBody()
			start := b.Position
			Step(b, tt.move, tt.yaw, frameDT)
			delta := b.Position.Sub(start)
			dir := mgl64.Vec3{delta.X(), 0, delta.Z()}.Normalize()
			approxEqual(t, dir.X(), tt.wantX, 1e-9, "dir.x")
			approxEqual(t, dir.Z(), tt.wantZ, 1e-9, "dir.z")
		})
	}
}

func TestDesiredMoveVector(t *testing.T) {
	tests := []struct {
		name   string
		move   MovementState
		wantDX float64
		wantDZ float64
	}{
		{"无输入", MovementState{}, 0, 0},
		{"前后抵消", MovementState{Forward: true, Backward: true}, 0, 0},
		{"斜向归一化", MovementState{Forward: true, Right: true}, math.Sqrt2 / 2, math.Sqrt2 / 2},
		{"左", MovementState{Left: true}, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dx, dz := desiredMoveVector(tt.move)
			approxEqual(t, dx, tt.wantDX, 1e-12, "dx")
			approxEqual(t, dz, tt.wantDZ, 1e-12, "dz")
		})
	}
}

func TestClampPitch(t *testing.T) {
	approxEqual(t, ClampPitch(3), MaxPitch, 0, "pitch")
	approxEqual(t, ClampPitch(-3), MinPitch, 0, "pitch")
	approxEqual(t, ClampPitch(0.25), 0.25, 0, "pitch")
}
