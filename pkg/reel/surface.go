package reel

import "sync"

// SurfaceDescriptor は描画面のピクセルサイズ
type SurfaceDescriptor struct {
	Width  int
	Height int
}

// Empty は幅または高さが0以下かどうかを返す
func (sd SurfaceDescriptor) Empty() bool {
	return sd.Width <= 0 || sd.Height <= 0
}

// Resize はビューポートサイズへの遷移を計算する純粋関数
// サイズが変わらない場合はchanged=falseを返す
func (sd SurfaceDescriptor) Resize(width, height int) (SurfaceDescriptor, bool) {
	next := SurfaceDescriptor{Width: width, Height: height}
	return next, next != sd
}

// SurfaceManager は描画面のサイズをビューポートに同期させる
// 記述子を所有するのはSurfaceManagerのみ。Compositorは描画ごとに読み取る
type SurfaceManager struct {
	mu      sync.RWMutex
	surface SurfaceDescriptor
	resizes int
}

// NewSurfaceManager は新しいSurfaceManagerを作成する
func NewSurfaceManager() *SurfaceManager {
	return &SurfaceManager{}
}

// SyncToViewport は描画面をビューポートの現在のピクセルサイズに合わせる
// 同じサイズでの再呼び出しは記述子を変更しない
func (sm *SurfaceManager) SyncToViewport(width, height int) bool {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	next, changed := sm.surface.Resize(width, height)
	if changed {
		sm.surface = next
		sm.resizes++
	}
	return changed
}

// Surface は現在の記述子を返す
func (sm *SurfaceManager) Surface() SurfaceDescriptor {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.surface
}

// Resizes は実際にサイズが変わった回数を返す
func (sm *SurfaceManager) Resizes() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.resizes
}
