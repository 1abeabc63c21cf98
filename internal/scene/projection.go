package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Projection describes a perspective camera. FOV is vertical, in degrees.
type Projection struct {
	FOV    float64
	Aspect float64
}

func DefaultProjection() Projection {
	return Projection{FOV: 60, Aspect: 1}
}

// Ray returns the ray from eye through the normalized device point
// (ndcX, ndcY), both in [-1, 1], for a camera rotated by yaw then pitch.
func (p Projection) Ray(eye mgl64.Vec3, yaw, pitch, ndcX, ndcY float64) Ray {
	fov := p.FOV
	if fov <= 0 || fov >= 180 {
		fov = 60
	}
	aspect := p.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	tanHalf := math.Tan(mgl64.DegToRad(fov) / 2)
	local := mgl64.Vec3{ndcX * tanHalf * aspect, ndcY * tanHalf, -1}
	return Ray{Origin: eye, Direction: orientation(yaw, pitch).Mul3x1(local).Normalize()}
}

// ViewDirection is the camera's forward vector.
func ViewDirection(yaw, pitch float64) mgl64.Vec3 {
	return orientation(yaw, pitch).Mul3x1(mgl64.Vec3{0, 0, -1})
}

func orientation(yaw, pitch float64) mgl64.Mat3 {
	return mgl64.Rotate3DY(yaw).Mul3(mgl64.Rotate3DX(pitch))
}
