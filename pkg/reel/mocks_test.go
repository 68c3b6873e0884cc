package reel

import (
	"image"
	"image/color"
	"io"
	"log/slog"
)

// canvasOp はfakeCanvasが記録する1件の描画操作
type canvasOp struct {
	name  string
	index int // DrawBitmapのみ
	fit   Fit
	tone  Tone
	text  string
}

// fakeCanvas は描画操作を記録するだけのCanvas
type fakeCanvas struct {
	tone Tone
	ops  []canvasOp
}

func newFakeCanvas() *fakeCanvas {
	return &fakeCanvas{tone: IdentityTone}
}

func (fc *fakeCanvas) SetFilter(tone Tone) {
	fc.tone = tone
	fc.ops = append(fc.ops, canvasOp{name: "SetFilter", tone: tone})
}

func (fc *fakeCanvas) DrawBitmap(bmp *Bitmap, fit Fit) {
	fc.ops = append(fc.ops, canvasOp{name: "DrawBitmap", index: bmp.Index, fit: fit, tone: fc.tone})
}

func (fc *fakeCanvas) FillRect(x, y, w, h float64, clr color.Color) {
	fc.ops = append(fc.ops, canvasOp{name: "FillRect"})
}

func (fc *fakeCanvas) StrokeLine(x0, y0, x1, y1, width float64, clr color.Color) {
	fc.ops = append(fc.ops, canvasOp{name: "StrokeLine"})
}

func (fc *fakeCanvas) DrawText(s string, x, y float64, clr color.Color) {
	fc.ops = append(fc.ops, canvasOp{name: "DrawText", text: s})
}

func (fc *fakeCanvas) count(name string) int {
	n := 0
	for _, op := range fc.ops {
		if op.name == name {
			n++
		}
	}
	return n
}

func (fc *fakeCanvas) bitmaps() []canvasOp {
	var out []canvasOp
	for _, op := range fc.ops {
		if op.name == "DrawBitmap" {
			out = append(out, op)
		}
	}
	return out
}

func (fc *fakeCanvas) texts() []string {
	var out []string
	for _, op := range fc.ops {
		if op.name == "DrawText" {
			out = append(out, op.text)
		}
	}
	return out
}

func (fc *fakeCanvas) reset() {
	fc.ops = nil
}

// seqRand は決まった値を順に返す乱数源
type seqRand struct {
	ints   []int
	floats []float64
	i, f   int
}

func (r *seqRand) IntN(n int) int {
	v := r.ints[r.i%len(r.ints)] % n
	r.i++
	return v
}

func (r *seqRand) Float64() float64 {
	v := r.floats[r.f%len(r.floats)]
	r.f++
	return v
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testImage(w, h int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}
