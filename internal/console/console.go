// Package console is the raw-terminal host. It turns key presses into input
// events, plays the pointer-capture role and drives the frame loop.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"golang.org/x/term"

	"github.com/Versifine/lagoon/internal/controls"
	"github.com/Versifine/lagoon/internal/event"
	"github.com/Versifine/lagoon/internal/logger"
	"github.com/Versifine/lagoon/internal/physics"
	"github.com/Versifine/lagoon/internal/scene"
)

const (
	defaultTickInterval = time.Second / 60
	defaultMovePulse    = 180 * time.Millisecond
	defaultLookStep     = 40.0 // pointer units per key press
)

var ErrNotTerminal = errors.New("stdin is not a terminal")

// Game is what the console drives.
type Game interface {
	Input() *event.Bus
	Engage(ctx context.Context) error
	Frame(dt float64)
	Pose() controls.Pose
	Body() physics.Body
	Hover() (scene.Intersection, bool)
	LockState() controls.LockState
	RequestUnlock()
	Teleport(pos mgl64.Vec3)
	Look(yaw, pitch float64)
}

type captureRequest int

const (
	captureNone captureRequest = iota
	captureAcquire
	captureRelease
)

// Console must only be touched from the goroutine running Run. The
// controller calls RequestCapture/ReleaseCapture from event handlers, which
// the console publishes on that same goroutine.
type Console struct {
	tickInterval time.Duration
	movePulse    time.Duration
	lookStep     float64
	out          io.Writer
	isTerminal   func() bool
	log          *slog.Logger

	game        Game
	bus         *event.Bus
	held        map[string]time.Time
	captured    bool
	request     captureRequest
	commandMode bool
	commandBuf  []byte
	statusWidth int
	quit        bool
}

func New(tickHz int) *Console {
	interval := defaultTickInterval
	if tickHz > 0 {
		interval = time.Second / time.Duration(tickHz)
	}
	return &Console{
		tickInterval: interval,
		movePulse:    defaultMovePulse,
		lookStep:     defaultLookStep,
		out:          os.Stdout,
		isTerminal:   func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		held:         make(map[string]time.Time),
		log:          logger.Component("console"),
	}
}

// RequestCapture is answered on the next tick.
func (c *Console) RequestCapture() {
	c.request = captureAcquire
}

func (c *Console) ReleaseCapture() {
	c.request = captureRelease
}

func (c *Console) attach(g Game) {
	c.game = g
	c.bus = g.Input()
}

// Run puts the terminal in raw mode and loops until ctx ends, the user quits
// or stdin fails.
func (c *Console) Run(ctx context.Context, g Game) error {
	if c == nil {
		return fmt.Errorf("console is nil")
	}
	if g == nil {
		return fmt.Errorf("console game is nil")
	}
	if !c.isTerminal() {
		return ErrNotTerminal
	}

	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("set terminal raw mode: %w", err)
	}
	defer func() {
		_ = term.Restore(fd, oldState)
		fmt.Fprint(c.out, "\r\n")
	}()

	c.attach(g)
	fmt.Fprint(c.out, "[lagoon] terminal host started (Enter to engage, :help for commands)\r\n")
	c.renderStatusLine()

	keys := make(chan key, 16)
	readErr := make(chan error, 1)
	go readLoop(ctx, bufio.NewReader(os.Stdin), keys, readErr)

	ticker := time.NewTicker(c.tickInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read console input: %w", err)
		case k := <-keys:
			c.handleKey(ctx, k, time.Now())
		case now := <-ticker.C:
			c.tick(now, now.Sub(last).Seconds())
			last = now
		}
		if c.quit {
			return nil
		}
	}
}

func readLoop(ctx context.Context, r *bufio.Reader, keys chan<- key, errs chan<- error) {
	for {
		k, err := readKey(r)
		if err != nil {
			errs <- err
			return
		}
		select {
		case keys <- k:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Console) tick(now time.Time, dt float64) {
	c.answerCapture()
	c.releaseExpired(now)
	c.game.Frame(dt)
	c.renderStatusLine()
}

func (c *Console) answerCapture() {
	req := c.request
	c.request = captureNone
	switch req {
	case captureAcquire:
		if c.captured {
			return
		}
		if !c.isTerminal() {
			c.log.Warn("Pointer capture refused", "error", ErrNotTerminal)
			c.bus.Publish(event.EventLockFailed, event.LockFailure{Err: ErrNotTerminal})
			return
		}
		c.captured = true
		c.bus.Publish(event.EventLockAcquired, nil)
	case captureRelease:
		c.release()
	}
}

func (c *Console) release() {
	c.releaseAll()
	if c.request == captureAcquire {
		// Esc before the capture was granted cancels the request.
		c.request = captureNone
		c.bus.Publish(event.EventLockReleased, nil)
		return
	}
	if !c.captured {
		return
	}
	c.captured = false
	c.bus.Publish(event.EventLockReleased, nil)
}

func (c *Console) handleKey(ctx context.Context, k key, now time.Time) {
	if c.commandMode {
		c.handleCommandKey(ctx, k)
		return
	}

	switch k.code {
	case codeCtrlC:
		c.log.Debug("Quit requested from keyboard")
		c.quit = true
		return
	case codeEscape:
		c.release()
	case codeEnter:
		c.bus.Publish(event.EventClick, nil)
	case controls.KeyJump:
		c.bus.Publish(event.EventKeyDown, event.KeyEvent{Code: controls.KeyJump})
		c.bus.Publish(event.EventKeyUp, event.KeyEvent{Code: controls.KeyJump})
	default:
		if controls.IsMovementKey(k.code) {
			c.pulse(k.code, now)
			break
		}
		switch k.ch {
		case ':':
			c.enterCommandMode()
			return
		case 'j', 'J':
			c.look(-c.lookStep, 0)
		case 'l', 'L':
			c.look(c.lookStep, 0)
		case 'i', 'I':
			c.look(0, -c.lookStep)
		case 'k', 'K':
			c.look(0, c.lookStep)
		}
	}
	c.renderStatusLine()
}

func (c *Console) look(dx, dy float64) {
	c.bus.Publish(event.EventPointerDelta, event.PointerEvent{X: dx, Y: dy})
}

// pulse holds code down for movePulse. A press releases the opposite key.
func (c *Console) pulse(code string, now time.Time) {
	if opp, ok := opposite[code]; ok {
		for _, o := range opp {
			c.keyUp(o)
		}
	}
	if _, held := c.held[code]; !held {
		c.bus.Publish(event.EventKeyDown, event.KeyEvent{Code: code})
	}
	c.held[code] = now.Add(c.movePulse)
}

func (c *Console) keyUp(code string) {
	if _, held := c.held[code]; !held {
		return
	}
	delete(c.held, code)
	c.bus.Publish(event.EventKeyUp, event.KeyEvent{Code: code})
}

func (c *Console) releaseExpired(now time.Time) {
	for code, until := range c.held {
		if !now.Before(until) {
			c.keyUp(code)
		}
	}
}

func (c *Console) releaseAll() {
	for code := range c.held {
		c.keyUp(code)
	}
}

func (c *Console) enterCommandMode() {
	c.commandMode = true
	c.commandBuf = c.commandBuf[:0]
	fmt.Fprint(c.out, "\r\n:")
}

func (c *Console) handleCommandKey(ctx context.Context, k key) {
	switch k.code {
	case codeEnter:
		cmd := strings.TrimSpace(string(c.commandBuf))
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		fmt.Fprint(c.out, "\r\n")
		if cmd != "" {
			c.executeCommand(ctx, cmd)
		}
		c.renderStatusLine()
	case codeEscape, codeCtrlC:
		c.commandMode = false
		c.commandBuf = c.commandBuf[:0]
		fmt.Fprint(c.out, "\r\n[lagoon] command cancelled\r\n")
		c.renderStatusLine()
	case codeBackspace:
		if len(c.commandBuf) > 0 {
			c.commandBuf = c.commandBuf[:len(c.commandBuf)-1]
		}
		fmt.Fprintf(c.out, "\r:%s \r:%s", c.commandBuf, c.commandBuf)
	default:
		if k.ch < 32 || k.ch > 126 {
			return
		}
		c.commandBuf = append(c.commandBuf, k.ch)
		fmt.Fprintf(c.out, "\r:%s", c.commandBuf)
	}
}

func (c *Console) executeCommand(ctx context.Context, cmd string) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return
	}

	switch parts[0] {
	case "help":
		c.printHelp()
	case "state":
		pose := c.game.Pose()
		b := c.game.Body()
		fmt.Fprintf(c.out, "[lagoon] lock=%s pos=(%.3f,%.3f,%.3f) vel=(%.3f,%.3f,%.3f) yaw=%.3f pitch=%.3f canJump=%t\r\n",
			c.game.LockState(),
			pose.Position.X(), pose.Position.Y(), pose.Position.Z(),
			b.Velocity.X(), b.Velocity.Y(), b.Velocity.Z(),
			pose.Yaw, pose.Pitch, b.CanJump,
		)
	case "hover":
		hit, ok := c.game.Hover()
		if !ok {
			fmt.Fprint(c.out, "[lagoon] hover: nothing\r\n")
			return
		}
		fmt.Fprintf(c.out, "[lagoon] hover: %s at %.2f (%.2f,%.2f,%.2f)\r\n",
			hit.Node.ID(), hit.Distance, hit.Point.X(), hit.Point.Y(), hit.Point.Z())
	case "tp":
		v, ok := parseFloats(parts[1:], 3)
		if !ok {
			fmt.Fprint(c.out, "[lagoon] usage: :tp <x> <y> <z>\r\n")
			return
		}
		c.game.Teleport(mgl64.Vec3{v[0], v[1], v[2]})
		fmt.Fprintf(c.out, "[lagoon] teleported to (%.3f, %.3f, %.3f)\r\n", v[0], v[1], v[2])
	case "look":
		v, ok := parseFloats(parts[1:], 2)
		if !ok {
			fmt.Fprint(c.out, "[lagoon] usage: :look <yaw> <pitch> (radians)\r\n")
			return
		}
		c.game.Look(v[0], v[1])
		fmt.Fprintf(c.out, "[lagoon] look yaw=%.3f pitch=%.3f\r\n", v[0], v[1])
	case "lock":
		if err := c.game.Engage(ctx); err != nil {
			fmt.Fprintf(c.out, "[lagoon] engage failed: %v\r\n", err)
		}
	case "unlock":
		c.game.RequestUnlock()
	case "quit", "q":
		c.quit = true
	default:
		fmt.Fprintf(c.out, "[lagoon] unknown command: %s\r\n", parts[0])
	}
}

func parseFloats(args []string, n int) ([]float64, bool) {
	if len(args) != n {
		return nil, false
	}
	out := make([]float64, n)
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

func (c *Console) printHelp() {
	fmt.Fprint(c.out, "[lagoon] keys:\r\n")
	fmt.Fprint(c.out, "  Enter: click (engages when unlocked)\r\n")
	fmt.Fprint(c.out, "  Esc: release the pointer\r\n")
	fmt.Fprint(c.out, "  W/A/S/D, arrows: pulse movement (~180ms)\r\n")
	fmt.Fprint(c.out, "  Space: jump\r\n")
	fmt.Fprint(c.out, "  I/J/K/L: look up/left/down/right\r\n")
	fmt.Fprint(c.out, "  Ctrl-C: quit\r\n")
	fmt.Fprint(c.out, "[lagoon] commands:\r\n")
	fmt.Fprint(c.out, "  :state\r\n")
	fmt.Fprint(c.out, "  :hover\r\n")
	fmt.Fprint(c.out, "  :tp <x> <y> <z>\r\n")
	fmt.Fprint(c.out, "  :look <yaw> <pitch>\r\n")
	fmt.Fprint(c.out, "  :lock / :unlock\r\n")
	fmt.Fprint(c.out, "  :quit\r\n")
}

func (c *Console) renderStatusLine() {
	if c.commandMode || c.game == nil {
		return
	}
	line := c.statusLine()
	padding := ""
	if c.statusWidth > len(line) {
		padding = strings.Repeat(" ", c.statusWidth-len(line))
	}
	fmt.Fprintf(c.out, "\r%s%s", line, padding)
	if len(line) > c.statusWidth {
		c.statusWidth = len(line)
	}
}

func (c *Console) statusLine() string {
	pose := c.game.Pose()
	hover := "-"
	if hit, ok := c.game.Hover(); ok {
		hover = fmt.Sprintf("%s@%.1f", hit.Node.ID(), hit.Distance)
	}
	return fmt.Sprintf(
		"[%s | %s | YAW:%.2f PIT:%.2f | X:%.2f Y:%.2f Z:%.2f | hover:%s]",
		c.game.LockState(),
		heldLabel(c.held),
		pose.Yaw, pose.Pitch,
		pose.Position.X(), pose.Position.Y(), pose.Position.Z(),
		hover,
	)
}

func heldLabel(held map[string]time.Time) string {
	labels := [4]byte{'-', '-', '-', '-'}
	for code := range held {
		switch code {
		case "KeyW", "ArrowUp":
			labels[0] = 'W'
		case "KeyA", "ArrowLeft":
			labels[1] = 'A'
		case "KeyS", "ArrowDown":
			labels[2] = 'S'
		case "KeyD", "ArrowRight":
			labels[3] = 'D'
		}
	}
	return string(labels[:])
}
