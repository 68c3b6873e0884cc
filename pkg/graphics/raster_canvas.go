package graphics

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"

	"github.com/zurustar/scanreel/pkg/reel"
)

// RasterCanvas はメモリ上のRGBA画像に描画するソフトウェアキャンバス
// ヘッドレスモードではGPUを使わずにこのキャンバスへ合成する
type RasterCanvas struct {
	img  *image.RGBA
	tone reel.Tone
	face font.Face
}

// NewRasterCanvas は新しいRasterCanvasを作成する
func NewRasterCanvas(width, height int) *RasterCanvas {
	return &RasterCanvas{
		img:  image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0))),
		tone: reel.IdentityTone,
		face: basicfont.Face7x13,
	}
}

// Image は描画結果を返す
func (rc *RasterCanvas) Image() *image.RGBA {
	return rc.img
}

// Resize はキャンバスのサイズを変更する
// 重なる領域の内容は保持される
func (rc *RasterCanvas) Resize(width, height int) {
	b := rc.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return
	}
	next := image.NewRGBA(image.Rect(0, 0, max(width, 0), max(height, 0)))
	draw.Draw(next, next.Bounds(), rc.img, image.Point{}, draw.Src)
	rc.img = next
}

// SetFilter は以降のDrawBitmapに適用するトーン補正を設定する
func (rc *RasterCanvas) SetFilter(tone reel.Tone) {
	rc.tone = tone
}

// DrawBitmap はビットマップをバイリニア補間で拡大・平行移動して描画する
func (rc *RasterCanvas) DrawBitmap(bmp *reel.Bitmap, fit reel.Fit) {
	if bmp == nil || bmp.Image == nil {
		return
	}
	src := bmp.Image
	sb := src.Bounds()

	// 変換はソース座標系で指定するため、ソースの原点のずれを打ち消す
	s2d := f64.Aff3{
		fit.Scale, 0, fit.OffsetX - fit.Scale*float64(sb.Min.X),
		0, fit.Scale, fit.OffsetY - fit.Scale*float64(sb.Min.Y),
	}

	if rc.tone.Identity() {
		draw.ApproxBiLinear.Transform(rc.img, s2d, src, sb, draw.Over, nil)
		return
	}

	layer := image.NewRGBA(rc.img.Bounds())
	draw.ApproxBiLinear.Transform(layer, s2d, src, sb, draw.Src, nil)
	applyTone(layer, rc.tone)
	draw.Draw(rc.img, rc.img.Bounds(), layer, image.Point{}, draw.Over)
}

// applyTone は乗算済みアルファのRGBA画像にトーン補正を適用する
func applyTone(img *image.RGBA, tone reel.Tone) {
	var lut [256]uint8
	for i := range lut {
		lut[i] = uint8(math.Round(tone.Apply(float64(i)/255) * 255))
	}

	pix := img.Pix
	for i := 0; i+3 < len(pix); i += 4 {
		a := pix[i+3]
		switch a {
		case 0:
			continue
		case 0xff:
			pix[i] = lut[pix[i]]
			pix[i+1] = lut[pix[i+1]]
			pix[i+2] = lut[pix[i+2]]
		default:
			for c := 0; c < 3; c++ {
				straight := uint32(pix[i+c]) * 0xff / uint32(a)
				pix[i+c] = uint8(uint32(lut[min(straight, 0xff)]) * uint32(a) / 0xff)
			}
		}
	}
}

// FillRect は矩形をアルファ合成で塗りつぶす
func (rc *RasterCanvas) FillRect(x, y, w, h float64, clr color.Color) {
	r := image.Rect(
		int(math.Floor(x)), int(math.Floor(y)),
		int(math.Ceil(x+w)), int(math.Ceil(y+h)),
	).Intersect(rc.img.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(rc.img, r, image.NewUniform(clr), image.Point{}, draw.Over)
}

// StrokeLine は直線を描画する
// 水平・垂直線は矩形として、それ以外は幅分の点を打って描く
func (rc *RasterCanvas) StrokeLine(x0, y0, x1, y1, width float64, clr color.Color) {
	if width <= 0 {
		return
	}
	half := width / 2
	switch {
	case y0 == y1:
		rc.FillRect(math.Min(x0, x1), y0-half, math.Abs(x1-x0), width, clr)
	case x0 == x1:
		rc.FillRect(x0-half, math.Min(y0, y1), width, math.Abs(y1-y0), clr)
	default:
		dx, dy := x1-x0, y1-y0
		steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
		for i := 0; i <= steps; i++ {
			t := float64(i) / float64(steps)
			rc.FillRect(x0+dx*t-half, y0+dy*t-half, width, width, clr)
		}
	}
}

// DrawText はyを垂直方向の中心としてテキストを描画する
func (rc *RasterCanvas) DrawText(s string, x, y float64, clr color.Color) {
	m := rc.face.Metrics()
	// ベースライン = 中心 + (ascent - descent) / 2
	baseline := fixed.I(int(math.Round(y))) + (m.Ascent-m.Descent)/2
	d := &font.Drawer{
		Dst:  rc.img,
		Src:  image.NewUniform(clr),
		Face: rc.face,
		Dot:  fixed.Point26_6{X: fixed.I(int(math.Round(x))), Y: baseline},
	}
	d.DrawString(s)
}

// WritePNG は描画結果をPNGとして書き出す
func (rc *RasterCanvas) WritePNG(w io.Writer) error {
	return png.Encode(w, rc.img)
}

// SavePNG は描画結果をPNGファイルとして保存する
func (rc *RasterCanvas) SavePNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := rc.WritePNG(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
