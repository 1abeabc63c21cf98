package window

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/Versifine/lagoon/internal/assets"
	"github.com/Versifine/lagoon/internal/config"
	"github.com/Versifine/lagoon/internal/event"
)

// fakeCursor 模拟平台的光标捕获；grant 为 false 时请求永远不生效
type fakeCursor struct {
	mode  ebiten.CursorModeType
	grant bool
}

func (f *fakeCursor) driver() cursorDriver {
	return cursorDriver{
		set: func(m ebiten.CursorModeType) {
			if m == ebiten.CursorModeCaptured && !f.grant {
				return
			}
			f.mode = m
		},
		get: func() ebiten.CursorModeType { return f.mode },
	}
}

func newTestHost(t *testing.T, grant bool) (*Host, *fakeCursor, *[]any) {
	t.Helper()
	cursor := &fakeCursor{mode: ebiten.CursorModeVisible, grant: grant}
	h := New(config.Default().Window, 60)
	h.cursor = cursor.driver()
	h.bus = event.NewBus()

	var got []any
	for _, name := range []string{event.EventLockAcquired, event.EventLockReleased, event.EventLockFailed} {
		name := name
		h.bus.Subscribe(name, func(raw any) {
			if raw == nil {
				raw = name
			}
			got = append(got, raw)
		})
	}
	return h, cursor, &got
}

func TestCapture_Granted(t *testing.T) {
	h, cursor, got := newTestHost(t, true)

	h.RequestCapture()
	if len(*got) != 0 {
		t.Fatal("capture must be confirmed from Update, not synchronously")
	}
	h.answerCapture()
	if len(*got) != 1 || (*got)[0] != event.EventLockAcquired || !h.captured {
		t.Fatalf("events = %v captured=%v", *got, h.captured)
	}

	h.ReleaseCapture()
	h.answerCapture()
	if cursor.mode != ebiten.CursorModeVisible {
		t.Fatalf("cursor mode = %v, want visible", cursor.mode)
	}
	if len(*got) != 2 || (*got)[1] != event.EventLockReleased || h.captured {
		t.Fatalf("events = %v captured=%v", *got, h.captured)
	}
}

func TestCapture_Timeout(t *testing.T) {
	h, _, got := newTestHost(t, false)
	h.RequestCapture()
	for i := 0; i < captureBudget-1; i++ {
		h.answerCapture()
	}
	if len(*got) != 0 {
		t.Fatalf("failed too early: %v", *got)
	}
	h.answerCapture()
	if len(*got) != 1 {
		t.Fatalf("events = %v, want one failure", *got)
	}
	failure, ok := (*got)[0].(event.LockFailure)
	if !ok || !errors.Is(failure.Err, ErrCaptureTimeout) {
		t.Fatalf("event = %#v, want capture timeout", (*got)[0])
	}
}

func TestCapture_LostByPlatform(t *testing.T) {
	h, cursor, got := newTestHost(t, true)
	h.RequestCapture()
	h.answerCapture()

	// 失去焦点等情况下平台自己放开了光标
	cursor.mode = ebiten.CursorModeVisible
	h.answerCapture()
	if len(*got) != 2 || (*got)[1] != event.EventLockReleased {
		t.Fatalf("events = %v, want acquired then released", *got)
	}
	h.answerCapture()
	if len(*got) != 2 {
		t.Fatalf("release reported twice: %v", *got)
	}
}

func TestCapture_CancelledBeforeGrant(t *testing.T) {
	h, cursor, got := newTestHost(t, false)
	h.RequestCapture()
	h.release()
	if len(*got) != 1 || (*got)[0] != event.EventLockReleased {
		t.Fatalf("events = %v, want released", *got)
	}
	if cursor.mode != ebiten.CursorModeVisible {
		t.Fatalf("cursor mode = %v, want visible", cursor.mode)
	}
	for i := 0; i < captureBudget; i++ {
		h.answerCapture()
	}
	if len(*got) != 1 {
		t.Fatalf("cancelled request still reported: %v", *got)
	}
}

func TestOverlayFade(t *testing.T) {
	h := New(config.Default().Window, 60)
	if h.overlayA != 1 {
		t.Fatalf("initial overlay alpha = %v, want 1", h.overlayA)
	}
	h.fadeOverlay(0)
	for i := 0; i < 60 && h.overlay != nil; i++ {
		h.updateOverlay(1.0 / 60)
	}
	if h.overlay != nil || h.overlayA > 0.001 {
		t.Fatalf("overlay alpha = %v after fade, want 0", h.overlayA)
	}
}

func TestMapView(t *testing.T) {
	view := mapView{centre: mgl64.Vec3{10, 1.7, -5}, width: 800, height: 600, scale: 8}
	tests := []struct {
		name   string
		p      mgl64.Vec3
		wx, wy float32
	}{
		{"玩家在中心", mgl64.Vec3{10, 0, -5}, 400, 300},
		{"东边", mgl64.Vec3{11, 0, -5}, 408, 300},
		{"北边在上", mgl64.Vec3{10, 0, -6}, 400, 292},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := view.toScreen(tt.p)
			if x != tt.wx || y != tt.wy {
				t.Fatalf("toScreen(%v) = (%v, %v), want (%v, %v)", tt.p, x, y, tt.wx, tt.wy)
			}
		})
	}
}

func TestChunkHovered(t *testing.T) {
	ch := assets.Chunk{Name: "reef"}
	tests := []struct {
		id   string
		want bool
	}{
		{"reef/ground", true},
		{"reef", true},
		{"reefwall/ground", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := chunkHovered(ch, tt.id); got != tt.want {
			t.Errorf("chunkHovered(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
