package console

import (
	"bufio"

	"github.com/Versifine/lagoon/internal/controls"
)

const (
	codeEnter     = "Enter"
	codeEscape    = "Escape"
	codeBackspace = "Backspace"
	codeCtrlC     = "CtrlC"
)

// key is one decoded press. code follows the browser KeyboardEvent.code
// names where the controller cares; ch is the raw byte, 0 for sequences.
type key struct {
	code string
	ch   byte
}

var opposite = map[string][]string{
	"KeyW":       {"KeyS", "ArrowDown"},
	"ArrowUp":    {"KeyS", "ArrowDown"},
	"KeyS":       {"KeyW", "ArrowUp"},
	"ArrowDown":  {"KeyW", "ArrowUp"},
	"KeyA":       {"KeyD", "ArrowRight"},
	"ArrowLeft":  {"KeyD", "ArrowRight"},
	"KeyD":       {"KeyA", "ArrowLeft"},
	"ArrowRight": {"KeyA", "ArrowLeft"},
}

// readKey decodes the next press. A lone ESC with nothing buffered behind it
// is the Escape key; ESC [ X and ESC O X are arrows.
func readKey(r *bufio.Reader) (key, error) {
	b, err := r.ReadByte()
	if err != nil {
		return key{}, err
	}
	switch b {
	case 3:
		return key{code: codeCtrlC, ch: b}, nil
	case 13, 10:
		return key{code: codeEnter, ch: b}, nil
	case 8, 127:
		return key{code: codeBackspace, ch: b}, nil
	case ' ':
		return key{code: controls.KeyJump, ch: b}, nil
	case 'w', 'W':
		return key{code: "KeyW", ch: b}, nil
	case 'a', 'A':
		return key{code: "KeyA", ch: b}, nil
	case 's', 'S':
		return key{code: "KeyS", ch: b}, nil
	case 'd', 'D':
		return key{code: "KeyD", ch: b}, nil
	case 27:
		return readEscape(r), nil
	}
	return key{ch: b}, nil
}

func readEscape(r *bufio.Reader) key {
	esc := key{code: codeEscape, ch: 27}
	if r.Buffered() == 0 {
		return esc
	}
	next, err := r.Peek(1)
	if err != nil || (next[0] != '[' && next[0] != 'O') {
		return esc
	}
	if r.Buffered() < 2 {
		return esc
	}
	seq, err := r.Peek(2)
	if err != nil {
		return esc
	}
	code := ""
	switch seq[1] {
	case 'A':
		code = "ArrowUp"
	case 'B':
		code = "ArrowDown"
	case 'C':
		code = "ArrowRight"
	case 'D':
		code = "ArrowLeft"
	default:
		return esc
	}
	_, _ = r.Discard(2)
	return key{code: code}
}
