package reel

import "testing"

func TestSurfaceDescriptor_Empty(t *testing.T) {
	if !(SurfaceDescriptor{}).Empty() {
		t.Error("expected zero descriptor to be empty")
	}
	if !(SurfaceDescriptor{Width: 10}).Empty() {
		t.Error("expected zero height to be empty")
	}
	if (SurfaceDescriptor{Width: 1, Height: 1}).Empty() {
		t.Error("expected 1x1 not to be empty")
	}
}

func TestSurfaceManager_SyncToViewport(t *testing.T) {
	sm := NewSurfaceManager()

	if !sm.SyncToViewport(1280, 720) {
		t.Fatal("expected first sync to change the surface")
	}
	if got := sm.Surface(); got.Width != 1280 || got.Height != 720 {
		t.Errorf("expected 1280x720, got %+v", got)
	}

	if sm.SyncToViewport(1280, 720) {
		t.Error("expected repeated sync to be a no-op")
	}
	if sm.Resizes() != 1 {
		t.Errorf("expected 1 resize, got %d", sm.Resizes())
	}

	if !sm.SyncToViewport(800, 600) {
		t.Error("expected new size to change the surface")
	}
	if sm.Resizes() != 2 {
		t.Errorf("expected 2 resizes, got %d", sm.Resizes())
	}
}

func TestSurfaceManager_ZeroAndNegative(t *testing.T) {
	sm := NewSurfaceManager()
	sm.SyncToViewport(640, 480)

	sm.SyncToViewport(0, 480)
	if !sm.Surface().Empty() {
		t.Error("expected zero-width surface to be empty")
	}

	sm.SyncToViewport(-5, -5)
	if got := sm.Surface(); got.Width != 0 || got.Height != 0 {
		t.Errorf("expected negative sizes to clamp to 0, got %+v", got)
	}
}
