// Package window is the desktop host: an ebiten window whose captured
// cursor plays the pointer-lock role, with a top-down debug view of the
// island.
package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"

	"github.com/Versifine/lagoon/internal/assets"
	"github.com/Versifine/lagoon/internal/config"
	"github.com/Versifine/lagoon/internal/controls"
	"github.com/Versifine/lagoon/internal/event"
	"github.com/Versifine/lagoon/internal/logger"
	"github.com/Versifine/lagoon/internal/physics"
	"github.com/Versifine/lagoon/internal/scene"
)

const (
	// captureBudget is how many updates a capture request may stay
	// unconfirmed before it is reported as failed.
	captureBudget = 30
	overlayFade   = float32(0.35)
)

var ErrCaptureTimeout = errors.New("cursor capture was not granted")

// Game is what the window drives.
type Game interface {
	Input() *event.Bus
	Frame(dt float64)
	Resize(width, height int)
	Pose() controls.Pose
	Body() physics.Body
	Hover() (scene.Intersection, bool)
	LockState() controls.LockState
	Chunks() []assets.Chunk
	OnPointerLockChange(onLock, onUnlock func())
}

type cursorDriver struct {
	set func(ebiten.CursorModeType)
	get func() ebiten.CursorModeType
}

var ebitenCursor = cursorDriver{set: ebiten.SetCursorMode, get: ebiten.CursorMode}

type Host struct {
	cfg    config.WindowConfig
	tickHz int
	cursor cursorDriver
	log    *slog.Logger

	ctx     context.Context
	game    Game
	bus     *event.Bus
	width   int
	height  int
	request captureRequest
	waited  int
	// captured means the controller has been told the lock was acquired.
	captured    bool
	lastX       int
	lastY       int
	havePointer bool
	overlay     *gween.Tween
	overlayA    float32
}

type captureRequest int

const (
	captureNone captureRequest = iota
	captureAcquire
	captureRelease
)

func New(cfg config.WindowConfig, tickHz int) *Host {
	return &Host{
		cfg:      cfg,
		tickHz:   tickHz,
		cursor:   ebitenCursor,
		width:    cfg.Width,
		height:   cfg.Height,
		overlayA: 1,
		log:      logger.Component("window"),
	}
}

// RequestCapture grabs the cursor. The result is reported from Update.
func (h *Host) RequestCapture() {
	h.request = captureAcquire
	h.waited = 0
	h.cursor.set(ebiten.CursorModeCaptured)
}

func (h *Host) ReleaseCapture() {
	h.request = captureRelease
	h.cursor.set(ebiten.CursorModeVisible)
}

func (h *Host) attach(ctx context.Context, g Game) {
	h.ctx = ctx
	h.game = g
	h.bus = g.Input()
	g.OnPointerLockChange(
		func() { h.fadeOverlay(0) },
		func() { h.fadeOverlay(1) },
	)
	g.Resize(h.width, h.height)
}

// Run opens the window and blocks until it is closed or ctx ends.
func (h *Host) Run(ctx context.Context, g Game) error {
	if g == nil {
		return fmt.Errorf("window game is nil")
	}
	h.attach(ctx, g)

	ebiten.SetWindowSize(h.cfg.Width, h.cfg.Height)
	ebiten.SetWindowTitle(h.cfg.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	if h.tickHz > 0 {
		ebiten.SetTPS(h.tickHz)
	}
	if err := ebiten.RunGame(h); err != nil && !errors.Is(err, ebiten.Termination) {
		return fmt.Errorf("run window: %w", err)
	}
	return nil
}

func (h *Host) Update() error {
	if h.ctx != nil && h.ctx.Err() != nil {
		return ebiten.Termination
	}
	if ebiten.IsKeyPressed(ebiten.KeyControl) && inpututil.IsKeyJustPressed(ebiten.KeyQ) {
		return ebiten.Termination
	}

	h.answerCapture()
	h.publishKeys()
	h.publishPointer()

	dt := 1.0 / float64(ebiten.TPS())
	h.game.Frame(dt)
	h.updateOverlay(float32(dt))
	return nil
}

func (h *Host) answerCapture() {
	mode := h.cursor.get()
	switch h.request {
	case captureAcquire:
		if mode == ebiten.CursorModeCaptured {
			h.request = captureNone
			h.captured = true
			h.havePointer = false
			h.bus.Publish(event.EventLockAcquired, nil)
			return
		}
		h.waited++
		if h.waited >= captureBudget {
			h.request = captureNone
			h.cursor.set(ebiten.CursorModeVisible)
			h.log.Warn("Cursor capture timed out", "frames", h.waited)
			h.bus.Publish(event.EventLockFailed, event.LockFailure{Err: ErrCaptureTimeout})
		}
		return
	case captureRelease:
		h.request = captureNone
		h.release()
		return
	}

	// The platform can drop the capture on its own (focus loss, browser Esc).
	if h.captured && mode != ebiten.CursorModeCaptured {
		h.release()
	}
}

func (h *Host) release() {
	if h.request == captureAcquire {
		// Esc before the capture was granted cancels the request.
		h.request = captureNone
		h.cursor.set(ebiten.CursorModeVisible)
		h.bus.Publish(event.EventLockReleased, nil)
		return
	}
	if !h.captured {
		return
	}
	h.captured = false
	h.havePointer = false
	h.bus.Publish(event.EventLockReleased, nil)
}

func (h *Host) publishKeys() {
	if (h.captured || h.request == captureAcquire) && inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		h.cursor.set(ebiten.CursorModeVisible)
		h.release()
	}
	for _, k := range keyCodes {
		if inpututil.IsKeyJustPressed(k.key) {
			h.bus.Publish(event.EventKeyDown, event.KeyEvent{Code: k.code})
		}
		if inpututil.IsKeyJustReleased(k.key) {
			h.bus.Publish(event.EventKeyUp, event.KeyEvent{Code: k.code})
		}
	}
}

func (h *Host) publishPointer() {
	x, y := ebiten.CursorPosition()
	if h.captured {
		if h.havePointer && (x != h.lastX || y != h.lastY) {
			h.bus.Publish(event.EventPointerDelta, event.PointerEvent{
				X: float64(x - h.lastX),
				Y: float64(y - h.lastY),
			})
		}
		// A captured pointer always aims through the crosshair.
		h.bus.Publish(event.EventPointerMove, event.PointerEvent{
			X: float64(h.width) / 2,
			Y: float64(h.height) / 2,
		})
	} else if !h.havePointer || x != h.lastX || y != h.lastY {
		h.bus.Publish(event.EventPointerMove, event.PointerEvent{X: float64(x), Y: float64(y)})
	}
	h.lastX, h.lastY = x, y
	h.havePointer = true

	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		h.bus.Publish(event.EventClick, nil)
	}
}

func (h *Host) fadeOverlay(to float32) {
	h.overlay = gween.New(h.overlayA, to, overlayFade, ease.OutQuad)
}

func (h *Host) updateOverlay(dt float32) {
	if h.overlay == nil {
		return
	}
	alpha, done := h.overlay.Update(dt)
	h.overlayA = alpha
	if done {
		h.overlay = nil
	}
}

func (h *Host) Layout(outsideWidth, outsideHeight int) (int, int) {
	if outsideWidth > 0 && outsideHeight > 0 && (outsideWidth != h.width || outsideHeight != h.height) {
		h.width, h.height = outsideWidth, outsideHeight
		if h.game != nil {
			h.game.Resize(h.width, h.height)
		}
	}
	return h.width, h.height
}
