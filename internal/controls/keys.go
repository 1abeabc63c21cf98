package controls

import "github.com/Versifine/lagoon/internal/physics"

const KeyJump = "Space"

type direction int

const (
	dirForward direction = iota + 1
	dirBackward
	dirLeft
	dirRight
)

// keyDirections is matched on exact code identity.
var keyDirections = map[string]direction{
	"KeyW":       dirForward,
	"ArrowUp":    dirForward,
	"KeyS":       dirBackward,
	"ArrowDown":  dirBackward,
	"KeyA":       dirLeft,
	"ArrowLeft":  dirLeft,
	"KeyD":       dirRight,
	"ArrowRight": dirRight,
}

func applyDirection(m *physics.MovementState, dir direction, down bool) {
	switch dir {
	case dirForward:
		m.Forward = down
	case dirBackward:
		m.Backward = down
	case dirLeft:
		m.Left = down
	case dirRight:
		m.Right = down
	}
}

// IsMovementKey reports whether code drives one of the four directions.
func IsMovementKey(code string) bool {
	_, ok := keyDirections[code]
	return ok
}
