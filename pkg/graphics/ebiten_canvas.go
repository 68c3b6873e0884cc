package graphics

import (
	"image/color"
	"log/slog"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/colorm"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"golang.org/x/image/font/basicfont"

	"github.com/zurustar/scanreel/pkg/reel"
)

// TextureCache はデコード済みビットマップとGPUテクスチャの対応を保持する
// 同じビットマップは一度だけアップロードされる
type TextureCache struct {
	mu       sync.Mutex
	textures map[*reel.Bitmap]*ebiten.Image
	uploads  int
}

// NewTextureCache は新しいTextureCacheを作成する
func NewTextureCache() *TextureCache {
	return &TextureCache{textures: make(map[*reel.Bitmap]*ebiten.Image)}
}

// Get はビットマップに対応するテクスチャを返す（未登録ならアップロードする）
func (tc *TextureCache) Get(bmp *reel.Bitmap) *ebiten.Image {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if img, ok := tc.textures[bmp]; ok {
		return img
	}
	img := ebiten.NewImageFromImage(bmp.Image)
	tc.textures[bmp] = img
	tc.uploads++
	return img
}

// Len はキャッシュ済みテクスチャ数を返す
func (tc *TextureCache) Len() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return len(tc.textures)
}

// Uploads はアップロード回数を返す
func (tc *TextureCache) Uploads() int {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	return tc.uploads
}

// Dispose はすべてのテクスチャを解放する
func (tc *TextureCache) Dispose() {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	for bmp, img := range tc.textures {
		img.Deallocate()
		delete(tc.textures, bmp)
	}
}

// EbitenCanvas はEbitengineのスクリーン画像に描画するキャンバス
// Drawのたびに Bind でスクリーンを差し替えて使う
type EbitenCanvas struct {
	screen   *ebiten.Image
	textures *TextureCache
	face     text.Face
	tone     reel.Tone
	log      *slog.Logger
}

// NewEbitenCanvas は新しいEbitenCanvasを作成する
func NewEbitenCanvas(textures *TextureCache, log *slog.Logger) *EbitenCanvas {
	if textures == nil {
		textures = NewTextureCache()
	}
	if log == nil {
		log = slog.Default()
	}
	return &EbitenCanvas{
		textures: textures,
		face:     text.NewGoXFace(basicfont.Face7x13),
		tone:     reel.IdentityTone,
		log:      log,
	}
}

// Bind は描画先のスクリーンを設定する
func (ec *EbitenCanvas) Bind(screen *ebiten.Image) {
	ec.screen = screen
}

// Textures はテクスチャキャッシュを返す
func (ec *EbitenCanvas) Textures() *TextureCache {
	return ec.textures
}

// SetFilter は以降のDrawBitmapに適用するトーン補正を設定する
func (ec *EbitenCanvas) SetFilter(tone reel.Tone) {
	ec.tone = tone
}

// DrawBitmap はビットマップを拡大・平行移動して描画する
func (ec *EbitenCanvas) DrawBitmap(bmp *reel.Bitmap, fit reel.Fit) {
	if ec.screen == nil || bmp == nil || bmp.Image == nil {
		return
	}
	tex := ec.textures.Get(bmp)

	var cm colorm.ColorM
	if !ec.tone.Identity() {
		scale, offset := ec.tone.Linear()
		cm.Scale(scale, scale, scale, 1)
		cm.Translate(offset, offset, offset, 0)
	}

	op := &colorm.DrawImageOptions{}
	op.GeoM.Scale(fit.Scale, fit.Scale)
	op.GeoM.Translate(fit.OffsetX, fit.OffsetY)
	op.Filter = ebiten.FilterLinear
	colorm.DrawImage(ec.screen, tex, cm, op)
}

// FillRect は矩形を塗りつぶす
func (ec *EbitenCanvas) FillRect(x, y, w, h float64, clr color.Color) {
	if ec.screen == nil {
		return
	}
	vector.FillRect(ec.screen, float32(x), float32(y), float32(w), float32(h), clr, false)
}

// StrokeLine は直線を描画する
func (ec *EbitenCanvas) StrokeLine(x0, y0, x1, y1, width float64, clr color.Color) {
	if ec.screen == nil {
		return
	}
	vector.StrokeLine(ec.screen, float32(x0), float32(y0), float32(x1), float32(y1), float32(width), clr, true)
}

// DrawText はyを垂直方向の中心としてテキストを描画する
func (ec *EbitenCanvas) DrawText(s string, x, y float64, clr color.Color) {
	if ec.screen == nil {
		return
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(clr)
	op.LayoutOptions.SecondaryAlign = text.AlignCenter
	text.Draw(ec.screen, s, ec.face, op)
}
