package window

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Versifine/lagoon/internal/controls"
)

type keyCode struct {
	key  ebiten.Key
	code string
}

// keyCodes maps the ebiten keys the controller understands to their
// KeyboardEvent.code names.
var keyCodes = []keyCode{
	{ebiten.KeyW, "KeyW"},
	{ebiten.KeyA, "KeyA"},
	{ebiten.KeyS, "KeyS"},
	{ebiten.KeyD, "KeyD"},
	{ebiten.KeyArrowUp, "ArrowUp"},
	{ebiten.KeyArrowDown, "ArrowDown"},
	{ebiten.KeyArrowLeft, "ArrowLeft"},
	{ebiten.KeyArrowRight, "ArrowRight"},
	{ebiten.KeySpace, controls.KeyJump},
}
