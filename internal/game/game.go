// Package game wires the motion controller, the interaction resolver and the
// save queue into one per-frame update. Hosts publish input on Input() and
// call Frame from the same goroutine.
package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/Versifine/lagoon/internal/assets"
	"github.com/Versifine/lagoon/internal/config"
	"github.com/Versifine/lagoon/internal/controls"
	"github.com/Versifine/lagoon/internal/event"
	"github.com/Versifine/lagoon/internal/interaction"
	"github.com/Versifine/lagoon/internal/logger"
	"github.com/Versifine/lagoon/internal/persistence"
	"github.com/Versifine/lagoon/internal/physics"
	"github.com/Versifine/lagoon/internal/scene"
)

const DefaultGroup = "default"

// SaveQueue is the part of persistence.Queue the game needs.
type SaveQueue interface {
	Load(ctx context.Context) (*persistence.PlayerState, error)
	QueueSave(state persistence.PlayerState)
	Dispose() error
}

type Game struct {
	cfg        *config.Config
	input      *event.Bus
	root       *scene.Group
	controller *controls.Controller
	resolver   *interaction.Resolver
	loader     *assets.Loader
	saves      SaveQueue
	lockSubs   []event.Subscription
	started    bool
	disposed   bool
	log        *slog.Logger
}

// New builds the game around cfg. saves may be nil, in which case nothing is
// loaded or persisted.
func New(cfg *config.Config, capture controls.PointerCapture, saves SaveQueue) *Game {
	if cfg == nil {
		cfg = config.Default()
	}
	input := event.NewBus()
	root := scene.NewGroup("scene")

	g := &Game{
		cfg:    cfg,
		input:  input,
		root:   root,
		loader: assets.NewLoader(root),
		saves:  saves,
		log:    logger.Component("game"),
	}
	g.controller = controls.New(input, capture, controls.Options{
		Spawn:       mgl64.Vec3(cfg.Player.Spawn),
		Sensitivity: cfg.Player.MouseSensitivity,
	})
	w, h := float64(cfg.Window.Width), float64(cfg.Window.Height)
	g.resolver = interaction.New(input, g.controller, root, interaction.Options{
		Projection:  scene.Projection{FOV: cfg.Camera.FOV},
		MaxDistance: cfg.Camera.MaxDistance,
		Width:       w,
		Height:      h,
	})
	return g
}

// Input is the bus hosts publish key, pointer and capture events on.
func (g *Game) Input() *event.Bus {
	return g.input
}

// Start loads the island and restores the saved pose. Later calls are no-ops.
func (g *Game) Start(ctx context.Context) error {
	if g.disposed {
		return fmt.Errorf("start: game disposed")
	}
	if g.started {
		return nil
	}
	groups, err := g.loader.LoadIslandChunks(ctx, g.cfg.World.Chunks)
	if err != nil {
		return fmt.Errorf("load environment: %w", err)
	}
	nodes := make([]scene.Node, len(groups))
	for i, grp := range groups {
		nodes[i] = grp
	}
	g.resolver.RegisterGroup(DefaultGroup, nodes)

	if g.saves != nil {
		state, err := g.saves.Load(ctx)
		switch {
		case err != nil:
			g.log.Warn("Saved player state unreadable, using spawn", "error", err)
		case state != nil:
			g.controller.SetPosition(state.Position)
			g.controller.SetOrientation(state.Rotation.Yaw, state.Rotation.Pitch)
			g.log.Info("Restored player state", "position", state.Position, "yaw", state.Rotation.Yaw)
		}
	}
	g.started = true
	return nil
}

// Engage starts the game if needed and asks for pointer lock.
func (g *Game) Engage(ctx context.Context) error {
	if err := g.Start(ctx); err != nil {
		return err
	}
	g.controller.RequestLock()
	return nil
}

// Frame advances one frame. It does nothing until Start has completed.
func (g *Game) Frame(dt float64) {
	if !g.started || g.disposed {
		return
	}
	g.controller.Tick(dt)
	g.resolver.Tick()
	if g.saves != nil {
		g.saves.QueueSave(g.captureState())
	}
}

func (g *Game) captureState() persistence.PlayerState {
	o := g.controller.Orientation()
	return persistence.PlayerState{
		Position: g.controller.Pose().Position,
		Rotation: persistence.Rotation{Yaw: o.Yaw, Pitch: o.Pitch},
	}
}

// OnPointerLockChange calls onLock when the pointer is captured and onUnlock
// when it is released or capture fails.
func (g *Game) OnPointerLockChange(onLock, onUnlock func()) {
	sub := g.controller.OnLockChange(func(s controls.LockState) {
		switch s {
		case controls.Locked:
			if onLock != nil {
				onLock()
			}
		default:
			if onUnlock != nil {
				onUnlock()
			}
		}
	})
	g.lockSubs = append(g.lockSubs, sub)
}

func (g *Game) OnInteract(handler interaction.Handler) {
	g.resolver.OnInteract(handler)
}

func (g *Game) Resize(width, height int) {
	g.resolver.SetViewport(float64(width), float64(height))
}

func (g *Game) Pose() controls.Pose {
	return g.controller.Pose()
}

func (g *Game) Body() physics.Body {
	return g.controller.Body()
}

func (g *Game) Hover() (scene.Intersection, bool) {
	return g.resolver.Hover()
}

func (g *Game) LockState() controls.LockState {
	return g.controller.LockState()
}

func (g *Game) RequestUnlock() {
	g.controller.RequestUnlock()
}

// Chunks lists the loaded island pieces.
func (g *Game) Chunks() []assets.Chunk {
	return g.loader.LoadedMeshes()
}

func (g *Game) Teleport(pos mgl64.Vec3) {
	g.controller.SetPosition(pos)
}

func (g *Game) Look(yaw, pitch float64) {
	g.controller.SetOrientation(yaw, pitch)
}

// Dispose tears everything down. A pending save is abandoned.
func (g *Game) Dispose() {
	if g.disposed {
		return
	}
	g.disposed = true
	for _, sub := range g.lockSubs {
		sub.Unsubscribe()
	}
	g.lockSubs = nil
	g.controller.Dispose()
	g.resolver.Dispose()
	if g.saves != nil {
		if err := g.saves.Dispose(); err != nil {
			g.log.Warn("Closing save store failed", "error", err)
		}
	}
}
