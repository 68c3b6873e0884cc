// Package reel はイントロ用フレームシーケンスの先読み・再生・合成エンジンを提供する
package reel

import (
	"fmt"
	"regexp"
	"image"
	"strings"
)

// DefaultPattern はフレーム名のデフォルトテンプレート（3桁ゼロ埋め）
const DefaultPattern = "frame_%03d.jpg"

// SettleState はリソース記述子の状態を表す
type SettleState int

const (
	StatePending SettleState = iota // 読み込み中
	StateOK                         // 読み込み成功
	StateFailed                     // 読み込み失敗（穴として扱う）
)

// String は状態名を返す
func (s SettleState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateOK:
		return "ok"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("SettleState(%d)", int(s))
}

// Bitmap は読み込み済みのフレーム画像
type Bitmap struct {
	Index int
	Image image.Image
}

// Width は画像の幅を返す
func (b *Bitmap) Width() int { return b.Image.Bounds().Dx() }

// Height は画像の高さを返す
func (b *Bitmap) Height() int { return b.Image.Bounds().Dy() }

// Descriptor は1フレーム分のリソース記述子
type Descriptor struct {
	Index  int
	Name   string
	State  SettleState
	Bitmap *Bitmap // 失敗時はnil
	Err    error
}

// ResourceSet はN個のリソース記述子の順序付き集合
// Nは生成時に固定され、以後変化しない
type ResourceSet struct {
	descriptors []Descriptor
	settled     int
	ready       bool
}

// FrameName はテンプレートにフレーム番号を適用した名前を返す
func FrameName(pattern string, index int) string {
	return fmt.Sprintf(pattern, index)
}

var widthVerb = regexp.MustCompile(`%0?[0-9]*d`)

// ParseFrameName はFrameNameの逆変換で、nameからフレーム番号を取り出す
// テンプレートで生成し直して一致しない名前はfalseを返す
func ParseFrameName(pattern, name string) (int, bool) {
	// 幅指定があると桁あふれした番号を読めないため、幅を外して読む
	var index int
	scan := widthVerb.ReplaceAllString(pattern, "%d")
	if n, err := fmt.Sscanf(name, scan, &index); err != nil || n != 1 || index < 0 {
		return 0, false
	}
	if FrameName(pattern, index) != name {
		return 0, false
	}
	return index, true
}

// ValidatePattern はテンプレートが整数1個を受け取る書式であることを確認する
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: empty pattern", ErrInvalidPattern)
	}
	name := fmt.Sprintf(pattern, 7)
	if strings.Contains(name, "%!") || name == pattern {
		return fmt.Errorf("%w: %q must contain exactly one integer verb", ErrInvalidPattern, pattern)
	}
	return nil
}

// NewResourceSet はN個のPending記述子を持つResourceSetを作成する
func NewResourceSet(count int, pattern string) (*ResourceSet, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameCount, count)
	}
	if err := ValidatePattern(pattern); err != nil {
		return nil, err
	}

	rs := &ResourceSet{descriptors: make([]Descriptor, count)}
	for i := range rs.descriptors {
		rs.descriptors[i] = Descriptor{
			Index: i,
			Name:  FrameName(pattern, i),
			State: StatePending,
		}
	}
	return rs, nil
}

// Len はフレーム数Nを返す
func (rs *ResourceSet) Len() int { return len(rs.descriptors) }

// Name はindex番目のリソース名を返す
func (rs *ResourceSet) Name(index int) string { return rs.descriptors[index].Name }

// Descriptor はindex番目の記述子のコピーを返す
func (rs *ResourceSet) Descriptor(index int) Descriptor { return rs.descriptors[index] }

// SettledCount は決着済み（成功・失敗の両方）の数を返す
func (rs *ResourceSet) SettledCount() int { return rs.settled }

// FailedCount は失敗した記述子の数を返す
func (rs *ResourceSet) FailedCount() int {
	n := 0
	for _, d := range rs.descriptors {
		if d.State == StateFailed {
			n++
		}
	}
	return n
}

// Ready はすべての記述子が決着済みかどうかを返す
func (rs *ResourceSet) Ready() bool { return rs.ready }

// Progress は決着率（0.0〜1.0）を返す
func (rs *ResourceSet) Progress() float64 {
	return float64(rs.settled) / float64(len(rs.descriptors))
}

// Bitmap はindex番目の画像を返す。失敗・未決着・範囲外はnil
func (rs *ResourceSet) Bitmap(index int) *Bitmap {
	if index < 0 || index >= len(rs.descriptors) {
		return nil
	}
	return rs.descriptors[index].Bitmap
}

// Settle はindex番目の記述子を決着させる
// 戻り値 becameReady はこの決着でLoading→Readyへ遷移した場合のみtrue（1回限り）
// 既に決着済みの記述子への再決着は無視する
func (rs *ResourceSet) Settle(index int, img image.Image, err error) (becameReady bool, applied bool) {
	if index < 0 || index >= len(rs.descriptors) {
		return false, false
	}
	d := &rs.descriptors[index]
	if d.State != StatePending {
		return false, false
	}

	if err != nil || img == nil {
		d.State = StateFailed
		d.Err = err
	} else {
		d.State = StateOK
		d.Bitmap = &Bitmap{Index: index, Image: img}
	}
	rs.settled++

	if rs.settled == len(rs.descriptors) && !rs.ready {
		rs.ready = true
		return true, true
	}
	return false, true
}
