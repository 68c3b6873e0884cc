package reel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultFrameCount はデフォルトのフレーム数
const DefaultFrameCount = 60

// Config はエンジンの設定
type Config struct {
	Frames  int     // フレーム数N（生成後は固定）
	FPS     float64 // 目標再生レート
	Pattern string  // フレーム名テンプレート
}

// DefaultConfig はデフォルト設定を返す
func DefaultConfig() Config {
	return Config{
		Frames:  DefaultFrameCount,
		FPS:     DefaultFPS,
		Pattern: DefaultPattern,
	}
}

// Validate は設定を検証する
func (c Config) Validate() error {
	if c.Frames < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidFrameCount, c.Frames)
	}
	if c.FPS <= 0 || c.FPS > 240 {
		return fmt.Errorf("%w: %v (must be in (0, 240])", ErrInvalidFPS, c.FPS)
	}
	return ValidatePattern(c.Pattern)
}

// Subscription はMountが返す購読トークン
// ホストはティック・描画のたびにこれを渡す。Unmount後のトークンは無効になる
type Subscription struct {
	generation uint64
	session    string
}

// Generation は購読の世代番号を返す
func (s Subscription) Generation() uint64 { return s.generation }

// Session はログ相関用のセッションIDを返す
func (s Subscription) Session() string { return s.session }

// Engine はResourceSet・PlaybackState・SurfaceDescriptorを所有するフレーム再生エンジン
//
// OnSettle/OnTick/Draw/Pumpはホストの協調スレッド（ゲームループ）からのみ呼び出す。
// 読み込みゴルーチンの結果はPumpでこのスレッドに戻してから適用される。
// Unmountだけは任意のゴルーチンから呼び出せる。
type Engine struct {
	cfg        Config
	log        *slog.Logger
	loader     *Loader
	compositor *Compositor
	clock      *Clock
	surfaces   *SurfaceManager

	generation atomic.Uint64
	mounted    atomic.Bool

	resources   *ResourceSet
	settlements <-chan Settlement
	started     bool
	playGen     uint64
	entered     bool
	readyAt     time.Time
	mountedAt   time.Time
	frameDraws  uint64
	holeDraws   uint64

	onReady func()
	onEnter func()
}

// Option は Engine のオプションを設定する関数型
type Option func(*Engine)

// WithLogger はロガーを設定する
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		e.log = log
	}
}

// WithCompositor はCompositorを差し替える
func WithCompositor(c *Compositor) Option {
	return func(e *Engine) {
		e.compositor = c
	}
}

// WithReadyHook は準備完了シグナル発火時のコールバックを設定する
func WithReadyHook(fn func()) Option {
	return func(e *Engine) {
		e.onReady = fn
	}
}

// WithEnterHook はEnterトリガー発火時のコールバックを設定する
func WithEnterHook(fn func()) Option {
	return func(e *Engine) {
		e.onEnter = fn
	}
}

// NewEngine は新しいEngineを作成する
func NewEngine(cfg Config, fetcher Fetcher, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, ErrNoFetcher
	}

	clock, err := NewClock(cfg.FPS, cfg.Frames)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		log:      slog.Default(),
		clock:    clock,
		surfaces: NewSurfaceManager(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.compositor == nil {
		e.compositor = NewCompositor(WithCompositorLogger(e.log))
	}
	e.loader = NewLoader(fetcher, e.log)

	e.log.Info("Engine initialized",
		"frames", cfg.Frames,
		"fps", cfg.FPS,
		"frameInterval", clock.Interval(),
		"pattern", cfg.Pattern)

	return e, nil
}

// Config は設定を返す
func (e *Engine) Config() Config { return e.cfg }

// Mount はN個の読み込みを開始し、購読トークンを返す
// 再マウントする場合は先にUnmountする必要がある
func (e *Engine) Mount(ctx context.Context) (Subscription, error) {
	if !e.mounted.CompareAndSwap(false, true) {
		return Subscription{}, ErrAlreadyMounted
	}

	rs, err := NewResourceSet(e.cfg.Frames, e.cfg.Pattern)
	if err != nil {
		e.mounted.Store(false)
		return Subscription{}, err
	}

	gen := e.generation.Add(1)
	session := uuid.NewString()
	e.resources = rs
	e.started = false
	e.entered = false
	e.readyAt = time.Time{}
	e.mountedAt = time.Now()
	e.frameDraws = 0
	e.holeDraws = 0
	e.settlements = e.loader.Start(ctx, gen, rs)

	e.log.Info("Engine mounted", "generation", gen, "session", session)
	return Subscription{generation: gen, session: session}, nil
}

// Unmount はエンジンを停止する
// 以後、古いトークンでのティック・描画と、未決着の読み込み結果はすべて無視される
func (e *Engine) Unmount() {
	if !e.mounted.CompareAndSwap(true, false) {
		return
	}
	gen := e.generation.Add(1)
	e.clock.Stop()
	e.log.Info("Engine unmounted", "generation", gen)
}

// Live はトークンが現在の世代のものかどうかを返す
func (e *Engine) Live(sub Subscription) bool {
	return e.mounted.Load() && sub.generation == e.generation.Load()
}

// Pump は届いている読み込み結果をすべて取り出して適用する（ブロックしない）
// 適用した件数を返す
func (e *Engine) Pump(sub Subscription) int {
	if !e.Live(sub) || e.settlements == nil {
		return 0
	}

	applied := 0
	for {
		select {
		case s, ok := <-e.settlements:
			if !ok {
				e.settlements = nil
				return applied
			}
			if e.OnSettle(s) {
				applied++
			}
		default:
			return applied
		}
	}
}

// OnSettle は1件の読み込み結果を適用する
// 現在の世代でない結果は何もせずfalseを返す
func (e *Engine) OnSettle(s Settlement) bool {
	if !e.mounted.Load() || s.Generation != e.generation.Load() || e.resources == nil {
		e.log.Debug("Engine: discarding stale settlement", "index", s.Index, "generation", s.Generation)
		return false
	}

	becameReady, applied := e.resources.Settle(s.Index, s.Image, s.Err)
	if !applied {
		return false
	}

	e.log.Debug("Engine: frame settled", "index", s.Index, "progress", e.resources.Progress())

	if s.Err != nil {
		var loadErr *LoadError
		if errors.As(s.Err, &loadErr) {
			e.log.Warn("Engine: frame load failed", "index", loadErr.Index, "name", loadErr.Name, "error", loadErr.Err)
		} else {
			e.log.Warn("Engine: frame load failed", "index", s.Index, "name", s.Name, "error", s.Err)
		}
	}

	if becameReady {
		e.readyAt = time.Now()
		failed := e.resources.FailedCount()
		e.log.Info("Engine: all frames settled",
			"frames", e.resources.Len(),
			"failed", failed)
		if failed == e.resources.Len() {
			e.log.Warn("Engine: every frame failed to load, playback will be blank")
		}
		if e.onReady != nil {
			e.onReady()
		}
	}
	return true
}

// OnTick はホストの描画機会ごとに呼び出される
// 準備完了後の最初のティックで再生を開始し、以後はClockに委ねる
// フレームが進んだ場合にtrueを返す
func (e *Engine) OnTick(sub Subscription, now time.Time) bool {
	if !e.Live(sub) || e.resources == nil || !e.resources.Ready() {
		return false
	}
	if !e.started {
		e.started = true
		e.playGen = e.clock.Start(now)
		if !e.Live(sub) {
			// 開始と同時にUnmountされた
			e.clock.Stop()
			return false
		}
		e.log.Info("Engine: playback started", "generation", e.playGen)
		return false
	}
	return e.clock.Tick(e.playGen, now)
}

// OnResize はビューポートのリサイズ通知を適用する
// Unmount後（古いトークン）の通知は無視する
func (e *Engine) OnResize(sub Subscription, width, height int) bool {
	if !e.Live(sub) {
		return false
	}
	changed := e.surfaces.SyncToViewport(width, height)
	if changed {
		e.log.Debug("Engine: surface resized", "width", width, "height", height)
	}
	return changed
}

// Draw は現在の状態をcvに描画する
// 読み込み中は待機画面、準備完了後は現在フレームを合成する
func (e *Engine) Draw(sub Subscription, cv Canvas, now time.Time) {
	if !e.Live(sub) || e.resources == nil {
		return
	}
	surface := e.surfaces.Surface()
	if surface.Empty() {
		// 描画面が確定するまでは描画も集計もしない
		return
	}
	if !e.resources.Ready() {
		e.compositor.DrawPlaceholder(cv, surface, e.resources.SettledCount(), e.resources.Len(), now)
		return
	}
	if e.compositor.Draw(cv, surface, e.clock.Frame(), e.resources, now) {
		e.frameDraws++
	} else {
		e.holeDraws++
	}
}

// Enter は準備完了後に一度だけEnterトリガーを発火させる
func (e *Engine) Enter(sub Subscription) bool {
	if !e.Live(sub) || !e.Ready() || e.entered {
		return false
	}
	e.entered = true
	e.log.Info("Engine: enter triggered", "frame", e.Frame())
	if e.onEnter != nil {
		e.onEnter()
	}
	return true
}

// Ready は準備完了シグナルが発火済みかどうかを返す
func (e *Engine) Ready() bool {
	return e.resources != nil && e.resources.Ready()
}

// Progress は決着済み数と総数を返す
func (e *Engine) Progress() (settled, total int) {
	if e.resources == nil {
		return 0, e.cfg.Frames
	}
	return e.resources.SettledCount(), e.resources.Len()
}

// Frame は現在のフレーム番号を返す
func (e *Engine) Frame() int { return e.clock.Frame() }

// Resources は現在のResourceSetを返す
func (e *Engine) Resources() *ResourceSet { return e.resources }

// Surface は現在の描画面記述子を返す
func (e *Engine) Surface() SurfaceDescriptor { return e.surfaces.Surface() }

// Clock は再生クロックを返す
func (e *Engine) Clock() *Clock { return e.clock }

// WaitLoads は開始済みの読み込みがすべて完了するまで待つ
func (e *Engine) WaitLoads() { e.loader.Wait() }

// Stats はエンジンの統計情報を返す
func (e *Engine) Stats() Stats {
	ticks, advances := e.clock.Stats()
	st := Stats{
		Frames:     e.cfg.Frames,
		Ticks:      ticks,
		Advances:   advances,
		FrameDraws: e.frameDraws,
		HoleDraws:  e.holeDraws,
	}
	if e.resources != nil {
		st.Settled = e.resources.SettledCount()
		st.Failed = e.resources.FailedCount()
	}
	if !e.readyAt.IsZero() && !e.mountedAt.IsZero() {
		st.LoadTime = e.readyAt.Sub(e.mountedAt)
	}
	return st
}
