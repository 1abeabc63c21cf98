package interaction

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/lagoon/internal/event"
	"github.com/Versifine/lagoon/internal/scene"
)

// Viewer supplies the camera pose rays are cast from.
type Viewer interface {
	ViewPose() (eye mgl64.Vec3, yaw, pitch float64)
}

type Handler func(hit scene.Intersection)

type Options struct {
	Projection scene.Projection

	// MaxDistance caps hits; zero means unlimited.
	MaxDistance float64
	Width       float64
	Height      float64
}

// Resolver tracks what is under the pointer and delivers clicks on it.
type Resolver struct {
	viewer     Viewer
	root       scene.Node
	projection scene.Projection
	raycaster  scene.Raycaster
	width      float64
	height     float64
	pointer    mgl64.Vec2
	groups     map[string][]scene.Node
	order      []string
	handlers   []Handler
	hover      *scene.Intersection
	subs       []event.Subscription
	disposed   bool
}

// New subscribes to pointer-move and click events on input. root is the
// fallback candidate set when no group is registered.
func New(input *event.Bus, viewer Viewer, root scene.Node, opts Options) *Resolver {
	proj := opts.Projection
	if proj.FOV <= 0 {
		proj = scene.DefaultProjection()
	}
	r := &Resolver{
		viewer:     viewer,
		root:       root,
		projection: proj,
		raycaster:  scene.NewRaycaster(opts.MaxDistance),
		groups:     make(map[string][]scene.Node),
	}
	r.SetViewport(opts.Width, opts.Height)
	if input != nil {
		r.subs = append(r.subs,
			input.Subscribe(event.EventPointerMove, func(raw any) {
				if evt, ok := raw.(event.PointerEvent); ok {
					r.HandlePointerMove(evt.X, evt.Y)
				}
			}),
			input.Subscribe(event.EventClick, func(any) { r.HandleClick() }),
		)
	}
	return r
}

// RegisterGroup replaces whatever was registered under key.
func (r *Resolver) RegisterGroup(key string, nodes []scene.Node) {
	if _, ok := r.groups[key]; !ok {
		r.order = append(r.order, key)
	}
	r.groups[key] = append([]scene.Node(nil), nodes...)
}

func (r *Resolver) OnInteract(handler Handler) {
	if handler != nil {
		r.handlers = append(r.handlers, handler)
	}
}

// SetViewport updates the client area used to normalize pointer coordinates.
func (r *Resolver) SetViewport(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	r.width = width
	r.height = height
	r.projection.Aspect = width / height
}

func (r *Resolver) HandlePointerMove(clientX, clientY float64) {
	if r.disposed || r.width <= 0 || r.height <= 0 {
		return
	}
	r.pointer = mgl64.Vec2{
		(clientX/r.width)*2 - 1,
		-(clientY/r.height)*2 + 1,
	}
}

// Pointer returns the stored pointer in normalized device coordinates.
func (r *Resolver) Pointer() mgl64.Vec2 {
	return r.pointer
}

// Tick recomputes the hover state from the current camera pose.
func (r *Resolver) Tick() {
	r.hover = nil
	if r.disposed || r.viewer == nil {
		return
	}
	eye, yaw, pitch := r.viewer.ViewPose()
	ray := r.projection.Ray(eye, yaw, pitch, r.pointer.X(), r.pointer.Y())
	if hit, ok := r.raycaster.Nearest(ray, r.candidates(), true); ok {
		r.hover = &hit
	}
}

func (r *Resolver) candidates() []scene.Node {
	var nodes []scene.Node
	for _, key := range r.order {
		nodes = append(nodes, r.groups[key]...)
	}
	if len(nodes) > 0 {
		return nodes
	}
	if r.root == nil {
		return nil
	}
	return r.root.Children()
}

func (r *Resolver) Hover() (scene.Intersection, bool) {
	if r.hover == nil {
		return scene.Intersection{}, false
	}
	return *r.hover, true
}

// HandleClick passes the hit from the last Tick to every handler, in
// registration order.
func (r *Resolver) HandleClick() {
	if r.disposed || r.hover == nil {
		return
	}
	hit := *r.hover
	for _, h := range r.handlers {
		h(hit)
	}
}

func (r *Resolver) Dispose() {
	if r.disposed {
		return
	}
	for _, sub := range r.subs {
		sub.Unsubscribe()
	}
	r.subs = nil
	r.hover = nil
	r.disposed = true
}
