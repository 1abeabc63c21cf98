package window

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/Versifine/lagoon/internal/assets"
	"github.com/Versifine/lagoon/internal/physics"
)

const pixelsPerMetre = 8.0

var (
	colorOcean    = color.RGBA{0x1b, 0x6f, 0x8f, 0xff}
	colorSand     = color.RGBA{0xe8, 0xd5, 0x9e, 0xff}
	colorHovered  = color.RGBA{0xff, 0xb3, 0x47, 0xff}
	colorPlayer   = color.RGBA{0xd6, 0x2f, 0x2f, 0xff}
	colorHeading  = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorOverlay  = color.RGBA{0x00, 0x00, 0x00, 0xff}
	colorOutlines = color.RGBA{0x8a, 0x70, 0x3e, 0xff}
)

// mapView projects the world's XZ plane onto the screen, centred on the
// player with north (-Z) up.
type mapView struct {
	centre mgl64.Vec3
	width  float64
	height float64
	scale  float64
}

func (m mapView) toScreen(p mgl64.Vec3) (float32, float32) {
	x := m.width/2 + (p.X()-m.centre.X())*m.scale
	y := m.height/2 + (p.Z()-m.centre.Z())*m.scale
	return float32(x), float32(y)
}

func (h *Host) Draw(screen *ebiten.Image) {
	screen.Fill(colorOcean)
	if h.game == nil {
		return
	}

	pose := h.game.Pose()
	view := mapView{centre: pose.Position, width: float64(h.width), height: float64(h.height), scale: pixelsPerMetre}
	hovered := ""
	if hit, ok := h.game.Hover(); ok {
		hovered = hit.Node.ID()
	}
	for _, ch := range h.game.Chunks() {
		drawChunk(screen, view, ch, chunkHovered(ch, hovered))
	}

	px, py := view.toScreen(pose.Position)
	_, forward := physics.HorizontalAxes(pose.Yaw)
	hx, hy := view.toScreen(pose.Position.Add(forward.Mul(2)))
	vector.StrokeLine(screen, px, py, hx, hy, 2, colorHeading, true)
	vector.DrawFilledCircle(screen, px, py, 4, colorPlayer, true)

	cx, cy := float32(h.width)/2, float32(h.height)/2
	vector.StrokeLine(screen, cx-6, cy, cx+6, cy, 1, colorHeading, false)
	vector.StrokeLine(screen, cx, cy-6, cx, cy+6, 1, colorHeading, false)

	ebitenutil.DebugPrint(screen, h.statusText())
	h.drawOverlay(screen)
}

func drawChunk(screen *ebiten.Image, view mapView, ch assets.Chunk, hovered bool) {
	x0, y0 := view.toScreen(ch.Min)
	x1, y1 := view.toScreen(ch.Max)
	fill := colorSand
	if hovered {
		fill = colorHovered
	}
	vector.DrawFilledRect(screen, x0, y0, x1-x0, y1-y0, fill, false)
	vector.StrokeRect(screen, x0, y0, x1-x0, y1-y0, 1, colorOutlines, false)
}

// chunkHovered reports whether the hovered node id belongs to ch.
func chunkHovered(ch assets.Chunk, hoveredID string) bool {
	return hoveredID != "" && (hoveredID == ch.Name || strings.HasPrefix(hoveredID, ch.Name+"/"))
}

func (h *Host) statusText() string {
	pose := h.game.Pose()
	body := h.game.Body()
	hover := "-"
	if hit, ok := h.game.Hover(); ok {
		hover = fmt.Sprintf("%s @ %.1fm", hit.Node.ID(), hit.Distance)
	}
	return fmt.Sprintf(
		"lock: %s\npos: %.2f %.2f %.2f\nyaw: %.2f pitch: %.2f\nvel: %.2f %.2f %.2f\nhover: %s\nTPS: %.0f",
		h.game.LockState(),
		pose.Position.X(), pose.Position.Y(), pose.Position.Z(),
		pose.Yaw, pose.Pitch,
		body.Velocity.X(), body.Velocity.Y(), body.Velocity.Z(),
		hover,
		ebiten.ActualTPS(),
	)
}

func (h *Host) drawOverlay(screen *ebiten.Image) {
	if h.overlayA <= 0.01 {
		return
	}
	c := colorOverlay
	c.A = uint8(160 * clamp01(h.overlayA))
	vector.DrawFilledRect(screen, 0, 0, float32(h.width), float32(h.height), c, false)
	if h.overlayA > 0.5 {
		ebitenutil.DebugPrintAt(screen, "Click to explore the lagoon (Esc releases, Ctrl+Q quits)", h.width/2-170, h.height/2+16)
	}
}

func clamp01(v float32) float32 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
