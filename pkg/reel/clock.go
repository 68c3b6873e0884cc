package reel

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultFPS はデフォルトの再生フレームレート
const DefaultFPS = 12.0

// FrameInterval はフレームレートから1フレームの最小間隔を求める
func FrameInterval(fps float64) time.Duration {
	return time.Duration(float64(time.Second) / fps)
}

// PlaybackState は再生位置
// Frameは常に[0, N)に収まる
type PlaybackState struct {
	Frame       int
	LastAdvance time.Time
}

// Advance は1ティック分の遷移を計算する純粋関数
// 前回の進行からinterval以上経過していれば1フレームだけ進める（複数間隔分経過していても1つ）
// 基準時刻は境界ちょうどに進めるため、ティックの遅れは積み重ならない。
// 2間隔以上遅れていた場合は取りこぼしたフレームを捨て、基準をnowに合わせ直す
func (ps PlaybackState) Advance(now time.Time, interval time.Duration, frames int) (PlaybackState, bool) {
	lag := now.Sub(ps.LastAdvance)
	if lag < interval {
		return ps, false
	}
	anchor := ps.LastAdvance.Add(interval)
	if lag >= 2*interval {
		anchor = now
	}
	return PlaybackState{
		Frame:       (ps.Frame + 1) % frames,
		LastAdvance: anchor,
	}, true
}

// Clock はホストの描画ティックから離散フレーム番号を進めるスケジューラ
//
// Start/Stopのたびに世代番号が増える。ティックは購読時の世代を持ち回り、
// 現在の世代と一致しない場合は何もしない。Stopが返った後は、
// 既に発行済みのティックであってもフレームは進まない。
type Clock struct {
	interval time.Duration
	frames   int

	mu         sync.Mutex
	state      PlaybackState
	generation uint64
	running    bool
	advances   uint64
	ticks      uint64
}

// NewClock は新しいClockを作成する
func NewClock(fps float64, frames int) (*Clock, error) {
	if math.IsNaN(fps) || fps <= 0 || fps > 240 {
		return nil, fmt.Errorf("%w: %v (must be in (0, 240])", ErrInvalidFPS, fps)
	}
	if frames < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFrameCount, frames)
	}
	return &Clock{
		interval: FrameInterval(fps),
		frames:   frames,
	}, nil
}

// Interval はフレーム間隔を返す
func (c *Clock) Interval() time.Duration { return c.interval }

// Start は再生を開始し、この再生セッションの世代番号を返す
// 再生位置はフレーム0、基準時刻はnowにリセットされる
func (c *Clock) Start(now time.Time) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.running = true
	c.state = PlaybackState{Frame: 0, LastAdvance: now}
	return c.generation
}

// Stop は再生を停止する。以後、古い世代のティックはすべて無視される
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	c.running = false
}

// Tick はホストの描画機会ごとに呼び出される
// フレームが進んだ場合にtrueを返す
func (c *Clock) Tick(generation uint64, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || generation != c.generation {
		return false
	}
	c.ticks++

	next, advanced := c.state.Advance(now, c.interval, c.frames)
	if advanced {
		c.state = next
		c.advances++
	}
	return advanced
}

// Running は再生中かどうかを返す
func (c *Clock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Generation は現在の世代番号を返す
func (c *Clock) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// State は現在の再生位置を返す
func (c *Clock) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Frame は現在のフレーム番号を返す
func (c *Clock) Frame() int {
	return c.State().Frame
}

// Stats はティック数と進行数を返す
func (c *Clock) Stats() (ticks, advances uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks, c.advances
}
