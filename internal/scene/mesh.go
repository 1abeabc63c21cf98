package scene

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const triangleEpsilon = 1e-9

type Triangle [3]mgl64.Vec3

// Mesh is a world-space triangle soup. Faces are hit from both sides.
type Mesh struct {
	id        string
	triangles []Triangle
	children  []Node
}

func NewMesh(id string, triangles []Triangle, children ...Node) *Mesh {
	m := &Mesh{id: id, triangles: append([]Triangle(nil), triangles...)}
	for _, c := range children {
		if c != nil {
			m.children = append(m.children, c)
		}
	}
	return m
}

// NewBox builds an axis-aligned box spanning min..max.
func NewBox(id string, min, max mgl64.Vec3) *Mesh {
	c := [8]mgl64.Vec3{
		{min[0], min[1], min[2]},
		{max[0], min[1], min[2]},
		{max[0], max[1], min[2]},
		{min[0], max[1], min[2]},
		{min[0], min[1], max[2]},
		{max[0], min[1], max[2]},
		{max[0], max[1], max[2]},
		{min[0], max[1], max[2]},
	}
	faces := [6][4]int{
		{0, 1, 2, 3}, // -z
		{5, 4, 7, 6}, // +z
		{4, 0, 3, 7}, // -x
		{1, 5, 6, 2}, // +x
		{3, 2, 6, 7}, // +y
		{4, 5, 1, 0}, // -y
	}
	tris := make([]Triangle, 0, 12)
	for _, f := range faces {
		tris = append(tris,
			Triangle{c[f[0]], c[f[1]], c[f[2]]},
			Triangle{c[f[0]], c[f[2]], c[f[3]]},
		)
	}
	return NewMesh(id, tris)
}

func (m *Mesh) ID() string {
	return m.id
}

func (m *Mesh) Children() []Node {
	out := make([]Node, len(m.children))
	copy(out, m.children)
	return out
}

func (m *Mesh) Triangles() []Triangle {
	return append([]Triangle(nil), m.triangles...)
}

func (m *Mesh) IntersectRay(ray Ray) []Intersection {
	dirLen := ray.Direction.Len()
	if len(m.triangles) == 0 || dirLen < triangleEpsilon {
		return nil
	}
	var hits []Intersection
	for _, tri := range m.triangles {
		t, ok := intersectTriangle(ray, tri)
		if !ok {
			continue
		}
		hits = append(hits, Intersection{
			Node:     m,
			Distance: t * dirLen,
			Point:    ray.At(t),
		})
	}
	return hits
}

// intersectTriangle is Möller–Trumbore; t is in units of ray.Direction.
func intersectTriangle(ray Ray, tri Triangle) (float64, bool) {
	e1 := tri[1].Sub(tri[0])
	e2 := tri[2].Sub(tri[0])
	p := ray.Direction.Cross(e2)
	det := e1.Dot(p)
	if math.Abs(det) < triangleEpsilon {
		return 0, false
	}
	inv := 1 / det
	s := ray.Origin.Sub(tri[0])
	u := s.Dot(p) * inv
	if u < 0 || u > 1 {
		return 0, false
	}
	q := s.Cross(e1)
	v := ray.Direction.Dot(q) * inv
	if v < 0 || u+v > 1 {
		return 0, false
	}
	t := e2.Dot(q) * inv
	if t < triangleEpsilon {
		return 0, false
	}
	return t, true
}
