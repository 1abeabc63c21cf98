// Package scene holds the traversable node graph the interaction layer casts
// rays into. Nodes are owned by whoever loads them; the rest of the system
// only keeps references.
package scene

import "github.com/go-gl/mathgl/mgl64"

type Node interface {
	ID() string
	Children() []Node
	// IntersectRay tests the node's own geometry only, not its children.
	IntersectRay(ray Ray) []Intersection
}

type Intersection struct {
	Node     Node
	Distance float64
	Point    mgl64.Vec3
}

type Ray struct {
	Origin    mgl64.Vec3
	Direction mgl64.Vec3
}

func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

// Group is a node without geometry.
type Group struct {
	id       string
	children []Node
}

func NewGroup(id string, children ...Node) *Group {
	g := &Group{id: id}
	g.Add(children...)
	return g
}

func (g *Group) ID() string {
	return g.id
}

func (g *Group) Children() []Node {
	out := make([]Node, len(g.children))
	copy(out, g.children)
	return out
}

func (g *Group) Add(nodes ...Node) {
	for _, n := range nodes {
		if n != nil {
			g.children = append(g.children, n)
		}
	}
}

// Remove detaches the first direct child with the given id.
func (g *Group) Remove(id string) bool {
	for i, n := range g.children {
		if n.ID() != id {
			continue
		}
		g.children = append(g.children[:i:i], g.children[i+1:]...)
		return true
	}
	return false
}

func (g *Group) IntersectRay(Ray) []Intersection {
	return nil
}
