package reel

import (
	"image/color"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Canvas は描画面が提供する2Dプリミティブ
// 実装: graphics.EbitenCanvas（GPU）、graphics.RasterCanvas（ソフトウェア）、graphics.RecordingCanvas（記録のみ）
type Canvas interface {
	// SetFilter は以降のDrawBitmapに適用するトーン補正を設定する
	SetFilter(tone Tone)
	// DrawBitmap はビットマップをfitの変換で描画する
	DrawBitmap(bmp *Bitmap, fit Fit)
	FillRect(x, y, w, h float64, clr color.Color)
	StrokeLine(x0, y0, x1, y1, width float64, clr color.Color)
	DrawText(s string, x, y float64, clr color.Color)
}

// RandSource は装飾マーカー用の乱数源
// *rand.Rand（math/rand/v2）がそのまま使える
type RandSource interface {
	IntN(n int) int
	Float64() float64
}

// Fit は拡大率と描画オフセット
type Fit struct {
	Scale   float64
	OffsetX float64
	OffsetY float64
}

// CoverFit はビットマップ(bw,bh)で描画面(sw,sh)を隙間なく覆う拡大率と中央寄せオフセットを求める
// 長い方の軸ははみ出した分が切り取られる（レターボックスなし）
func CoverFit(bw, bh, sw, sh int) Fit {
	if bw <= 0 || bh <= 0 {
		return Fit{Scale: 1}
	}
	scale := math.Max(float64(sw)/float64(bw), float64(sh)/float64(bh))
	return Fit{
		Scale:   scale,
		OffsetX: float64(sw)/2 - float64(bw)*scale/2,
		OffsetY: float64(sh)/2 - float64(bh)*scale/2,
	}
}

// Tone はコントラスト→明るさの順に適用するトーン補正
type Tone struct {
	Contrast   float64
	Brightness float64
}

// IdentityTone は補正なし
var IdentityTone = Tone{Contrast: 1, Brightness: 1}

// Identity は補正なしかどうかを返す
func (t Tone) Identity() bool {
	return t.Contrast == 1 && t.Brightness == 1
}

// Linear は補正を1次式 out = in*scale + offset（チャネル値0〜1）として返す
func (t Tone) Linear() (scale, offset float64) {
	return t.Contrast * t.Brightness, (0.5 - 0.5*t.Contrast) * t.Brightness
}

// Apply は0〜1のチャネル値に補正を適用する
func (t Tone) Apply(v float64) float64 {
	s, o := t.Linear()
	v = v*s + o
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Style は合成のパラメータ
type Style struct {
	Tone         Tone
	DimColor     color.Color
	GridStep     int
	GridColor    color.Color
	ScanSpeed    float64 // ピクセル/秒
	ScanColor    color.Color
	ScanWidth    float64
	MarkerCount  int
	MarkerLength float64
	MarkerColor  color.Color
	LabelColor   color.Color
	LabelMax     int // ラベル数値の上限（排他的）
}

var accentColor = color.NRGBA{0x00, 0xd4, 0xaa, 0xff}

// DefaultStyle はデフォルトの合成パラメータを返す
func DefaultStyle() Style {
	return Style{
		Tone:         Tone{Contrast: 1.2, Brightness: 0.9},
		DimColor:     color.NRGBA{0, 0, 0, 0x80},
		GridStep:     60,
		GridColor:    color.NRGBA{0x00, 0xd4, 0xaa, 0x14},
		ScanSpeed:    100,
		ScanColor:    color.NRGBA{0x00, 0xd4, 0xaa, 0x99},
		ScanWidth:    2,
		MarkerCount:  3,
		MarkerLength: 24,
		MarkerColor:  accentColor,
		LabelColor:   accentColor,
		LabelMax:     10000,
	}
}

// Compositor はフレームと装飾を描画面に合成する
type Compositor struct {
	style   Style
	rng     RandSource
	printer *message.Printer
	log     *slog.Logger
}

// CompositorOption は Compositor のオプションを設定する関数型
type CompositorOption func(*Compositor)

// WithRand は装飾マーカー用の乱数源を設定する
func WithRand(rng RandSource) CompositorOption {
	return func(c *Compositor) {
		c.rng = rng
	}
}

// WithStyle は合成パラメータを設定する
func WithStyle(style Style) CompositorOption {
	return func(c *Compositor) {
		c.style = style
	}
}

// WithLanguage はラベル書式の言語を設定する
func WithLanguage(tag language.Tag) CompositorOption {
	return func(c *Compositor) {
		c.printer = message.NewPrinter(tag)
	}
}

// WithCompositorLogger はロガーを設定する
func WithCompositorLogger(log *slog.Logger) CompositorOption {
	return func(c *Compositor) {
		c.log = log
	}
}

// NewCompositor は新しいCompositorを作成する
func NewCompositor(opts ...CompositorOption) *Compositor {
	c := &Compositor{
		style:   DefaultStyle(),
		printer: message.NewPrinter(language.English),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0))
	}
	return c
}

// Style は合成パラメータを返す
func (c *Compositor) Style() Style { return c.style }

// Draw は1フレーム分を合成する
// フレーム画像が欠けている場合は画像の描画（拡大・トーン補正）だけを省略し、
// 減光・グリッド・走査線・マーカーは常に描画する。画像を描いた場合にtrueを返す
func (c *Compositor) Draw(cv Canvas, surface SurfaceDescriptor, frame int, rs *ResourceSet, now time.Time) bool {
	if surface.Empty() {
		return false
	}

	drew := false
	if bmp := rs.Bitmap(frame); bmp != nil {
		fit := CoverFit(bmp.Width(), bmp.Height(), surface.Width, surface.Height)
		cv.SetFilter(c.style.Tone)
		cv.DrawBitmap(bmp, fit)
		cv.SetFilter(IdentityTone)
		drew = true
	} else {
		c.log.Debug("Compositor: frame bitmap missing, skipping", "frame", frame)
	}

	w, h := float64(surface.Width), float64(surface.Height)
	cv.FillRect(0, 0, w, h, c.style.DimColor)
	c.drawGrid(cv, surface)
	c.drawScanLine(cv, surface, now)
	c.drawMarkers(cv, surface)

	return drew
}

// DrawPlaceholder は読み込み中の待機画面を描画する
func (c *Compositor) DrawPlaceholder(cv Canvas, surface SurfaceDescriptor, settled, total int, now time.Time) {
	if surface.Empty() {
		return
	}
	w, h := float64(surface.Width), float64(surface.Height)

	cv.FillRect(0, 0, w, h, color.NRGBA{0x0a, 0x0f, 0x1a, 0xff})
	c.drawGrid(cv, surface)
	c.drawScanLine(cv, surface, now)

	barW := w * 0.4
	barX := (w - barW) / 2
	barY := h/2 + 12
	cv.FillRect(barX, barY, barW, 4, color.NRGBA{0x00, 0xd4, 0xaa, 0x33})
	if total > 0 {
		cv.FillRect(barX, barY, barW*float64(settled)/float64(total), 4, accentColor)
	}
	cv.DrawText(c.printer.Sprintf("INITIALIZING %d / %d", settled, total), barX, barY-20, c.style.LabelColor)
}

func (c *Compositor) drawGrid(cv Canvas, surface SurfaceDescriptor) {
	step := c.style.GridStep
	if step <= 0 {
		return
	}
	w, h := float64(surface.Width), float64(surface.Height)
	for x := 0; x < surface.Width; x += step {
		cv.StrokeLine(float64(x), 0, float64(x), h, 1, c.style.GridColor)
	}
	for y := 0; y < surface.Height; y += step {
		cv.StrokeLine(0, float64(y), w, float64(y), 1, c.style.GridColor)
	}
}

// ScanLineY は時刻nowにおける走査線のY座標を返す
func ScanLineY(now time.Time, speed float64, height int) float64 {
	if height <= 0 {
		return 0
	}
	pos := float64(now.UnixMilli()) * speed / 1000
	return math.Mod(pos, float64(height))
}

func (c *Compositor) drawScanLine(cv Canvas, surface SurfaceDescriptor, now time.Time) {
	y := ScanLineY(now, c.style.ScanSpeed, surface.Height)
	cv.StrokeLine(0, y, float64(surface.Width), y, c.style.ScanWidth, c.style.ScanColor)
}

// drawMarkers は描画のたびに位置とラベルを引き直す
func (c *Compositor) drawMarkers(cv Canvas, surface SurfaceDescriptor) {
	w, h := float64(surface.Width), float64(surface.Height)
	labelMax := max(c.style.LabelMax, 1)
	for i := 0; i < c.style.MarkerCount; i++ {
		x := c.rng.Float64() * w
		y := c.rng.Float64() * h
		label := c.printer.Sprintf("ROI %d", c.rng.IntN(labelMax))

		cv.StrokeLine(x, y, x+c.style.MarkerLength, y, 1, c.style.MarkerColor)
		cv.DrawText(label, x+c.style.MarkerLength+4, y, c.style.LabelColor)
	}
}
