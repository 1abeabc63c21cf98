package scene

import (
	"math"
	"sort"
)

const maxTraversalDepth = 64

// Raycaster collects intersections between Near and Far, nearest first.
type Raycaster struct {
	Near float64
	Far  float64
}

func NewRaycaster(far float64) Raycaster {
	if far <= 0 {
		far = math.Inf(1)
	}
	return Raycaster{Near: 0, Far: far}
}

func (rc Raycaster) Intersect(ray Ray, nodes []Node, recursive bool) []Intersection {
	var hits []Intersection
	for _, n := range nodes {
		hits = rc.collect(ray, n, recursive, 0, hits)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	return hits
}

// Nearest returns the closest hit, if any.
func (rc Raycaster) Nearest(ray Ray, nodes []Node, recursive bool) (Intersection, bool) {
	hits := rc.Intersect(ray, nodes, recursive)
	if len(hits) == 0 {
		return Intersection{}, false
	}
	return hits[0], true
}

func (rc Raycaster) collect(ray Ray, n Node, recursive bool, depth int, hits []Intersection) []Intersection {
	if n == nil || depth > maxTraversalDepth {
		return hits
	}
	for _, hit := range n.IntersectRay(ray) {
		if hit.Distance < rc.Near || hit.Distance > rc.Far {
			continue
		}
		hits = append(hits, hit)
	}
	if !recursive {
		return hits
	}
	for _, child := range n.Children() {
		hits = rc.collect(ray, child, recursive, depth+1, hits)
	}
	return hits
}
