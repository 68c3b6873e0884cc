package source

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/zurustar/scanreel/pkg/reel"
)

// SyntheticFetcher は素材なしで動かすための手続き生成フレームを返す
// 中央の暗い病変状の楕円がフレーム番号に応じて脈動する
type SyntheticFetcher struct {
	Width   int
	Height  int
	Frames  int                  // 周期（0のときは60）
	Pattern string               // フレーム名テンプレート（空のときはreel.DefaultPattern）
	Delay   time.Duration        // 読み込み遅延の模擬
	Fail    func(index int) bool // trueを返した番号は読み込み失敗にする
}

// Fetch はテンプレートでnameからフレーム番号を読み取り、その番号の画像を生成する
func (s *SyntheticFetcher) Fetch(ctx context.Context, name string) (image.Image, error) {
	pattern := s.Pattern
	if pattern == "" {
		pattern = reel.DefaultPattern
	}
	index, ok := reel.ParseFrameName(pattern, name)
	if !ok {
		return nil, fmt.Errorf("%w: %q does not match pattern %q", ErrFrameNotFound, name, pattern)
	}

	if s.Delay > 0 {
		timer := time.NewTimer(s.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if s.Fail != nil && s.Fail(index) {
		return nil, fmt.Errorf("%w: synthetic failure for frame %d", ErrFrameNotFound, index)
	}
	return s.render(index), nil
}

func (s *SyntheticFetcher) render(index int) image.Image {
	w, h := s.Width, s.Height
	if w <= 0 {
		w = 320
	}
	if h <= 0 {
		h = 240
	}
	period := s.Frames
	if period <= 0 {
		period = 60
	}

	phase := 2 * math.Pi * float64(index%period) / float64(period)
	radius := 0.28 + 0.04*math.Sin(phase)
	cx, cy := float64(w)/2, float64(h)/2
	norm := math.Min(float64(w), float64(h))

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dx := (float64(x) - cx) / norm
			dy := (float64(y) - cy) / norm * 1.3
			d := math.Sqrt(dx*dx+dy*dy) / radius

			// 肌色の下地に病変の濃淡を重ねる
			t := 1 - math.Min(d, 1)
			t = t * t
			r := 0.86 - 0.55*t
			g := 0.67 - 0.50*t
			b := 0.58 - 0.42*t
			img.Set(x, y, color.RGBA{
				R: uint8(r * 255),
				G: uint8(g * 255),
				B: uint8(b * 255),
				A: 0xff,
			})
		}
	}
	return img
}
