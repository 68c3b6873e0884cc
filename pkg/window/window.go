// Package window はreelエンジンをEbitengineのゲームループ、またはヘッドレスの実時間ループで駆動する
package window

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/zurustar/scanreel/pkg/graphics"
	"github.com/zurustar/scanreel/pkg/reel"
)

// ExitReason はループが終了した理由
type ExitReason int

const (
	ExitNone     ExitReason = iota // 実行中
	ExitEscape                     // Escキー
	ExitEnter                      // 準備完了後のEnterトリガー
	ExitLoops                      // 指定ループ数の再生完了
	ExitTimeout                    // タイムアウト
	ExitCanceled                   // コンテキストのキャンセル
)

// String は終了理由の名前を返す
func (r ExitReason) String() string {
	switch r {
	case ExitNone:
		return "none"
	case ExitEscape:
		return "escape"
	case ExitEnter:
		return "enter"
	case ExitLoops:
		return "loops"
	case ExitTimeout:
		return "timeout"
	case ExitCanceled:
		return "canceled"
	}
	return fmt.Sprintf("ExitReason(%d)", int(r))
}

// Result はループの実行結果
type Result struct {
	Reason     ExitReason
	Cycles     int        // 最後のフレームから0に戻った回数
	Written    int        // 書き出したPNGの枚数（ヘッドレスのみ）
	Operations int        // 記録した描画操作の数（トレースモードのみ）
	Stats      reel.Stats // 終了時点のエンジン統計
}

// Options はループの設定
type Options struct {
	Title   string        // ウィンドウタイトル
	Width   int           // 初期ウィンドウサイズ、またはヘッドレス描画面のサイズ
	Height  int           //
	Timeout time.Duration // 0は無制限
	Loops   int           // 0は無制限
	OutDir  string        // ヘッドレスでのPNG出力先（空なら書き出さない）
	Trace   bool          // ヘッドレスで画素を描かず描画操作だけを記録・ログ出力する
	Log     *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Log == nil {
		return slog.Default()
	}
	return o.Log
}

// cycleCounter はフレームが最後から0へ戻った回数を数える
type cycleCounter struct {
	loops  int
	cycles int
}

// observe は進行後のフレーム番号を受け取り、指定ループ数に達したらtrueを返す
func (cc *cycleCounter) observe(frame int) bool {
	if frame != 0 {
		return false
	}
	cc.cycles++
	return cc.loops > 0 && cc.cycles >= cc.loops
}

// advance は進行後の周回処理をまとめる。1周ごとに統計をDebugで出す
func (cc *cycleCounter) advance(engine *reel.Engine, log *slog.Logger) bool {
	frame := engine.Frame()
	done := cc.observe(frame)
	if frame == 0 {
		log.Debug("Cycle completed", "cycle", cc.cycles, "stats", engine.Stats().Compact())
	}
	return done
}

// monitorScale は現在のモニタのデバイススケールを返す
func monitorScale() float64 {
	if m := ebiten.Monitor(); m != nil {
		if s := m.DeviceScaleFactor(); s > 0 {
			return s
		}
	}
	return 1
}

// Game はEbitengineのゲームインターフェースを実装する
type Game struct {
	engine    *reel.Engine
	sub       reel.Subscription
	canvas    *graphics.EbitenCanvas
	timeout   time.Duration // タイムアウト時間
	startTime time.Time     // 開始時刻
	counter   cycleCounter
	reason    ExitReason
	now       func() time.Time
	scale     func() float64 // デバイススケール（HiDPIでは1より大きい）
	log       *slog.Logger
	mu        sync.RWMutex
}

// NewGame Gameを作成
func NewGame(engine *reel.Engine, sub reel.Subscription, opts Options) *Game {
	log := opts.logger()
	return &Game{
		engine:    engine,
		sub:       sub,
		canvas:    graphics.NewEbitenCanvas(graphics.NewTextureCache(), log),
		timeout:   opts.Timeout,
		startTime: time.Now(),
		counter:   cycleCounter{loops: opts.Loops},
		now:       time.Now,
		scale:     monitorScale,
		log:       log,
	}
}

// Update ゲームロジックの更新（Ebitengineが毎フレーム呼び出す）
func (g *Game) Update() error {
	// Escキー（1回だけ反応）
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return g.finish(ExitEscape)
	}
	// Enterキーは準備完了後のみ有効
	if inpututil.IsKeyJustPressed(ebiten.KeyEnter) && g.engine.Enter(g.sub) {
		return g.finish(ExitEnter)
	}
	return g.step(g.now())
}

// step は入力処理を除いた1ティック分の処理
func (g *Game) step(now time.Time) error {
	// タイムアウトチェック
	if g.timeout > 0 && now.Sub(g.startTime) >= g.timeout {
		return g.finish(ExitTimeout)
	}

	// 読み込み結果をこのスレッドで適用してから時計を進める
	g.engine.Pump(g.sub)
	if g.engine.OnTick(g.sub, now) && g.counter.advance(g.engine, g.log) {
		return g.finish(ExitLoops)
	}
	return nil
}

func (g *Game) finish(reason ExitReason) error {
	g.mu.Lock()
	g.reason = reason
	g.mu.Unlock()
	g.log.Info("Window: closing", "reason", reason)
	return ebiten.Termination
}

// Draw 画面描画（Ebitengineが毎フレーム呼び出す）
// 画面は毎フレームクリアされないため、欠けたフレームでは直前の内容が残る
func (g *Game) Draw(screen *ebiten.Image) {
	g.canvas.Bind(screen)
	g.engine.Draw(g.sub, g.canvas, g.now())
}

// Layout 画面サイズを返す（LayoutFを実装しているためEbitengineからは呼ばれない）
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	w, h := g.LayoutF(float64(outsideWidth), float64(outsideHeight))
	return int(w), int(h)
}

// LayoutF 画面サイズを返す
// 描画面はウィンドウの実ピクセルサイズ（論理サイズ×デバイススケール）に合わせる
func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	scale := g.scale()
	w := math.Ceil(outsideWidth * scale)
	h := math.Ceil(outsideHeight * scale)
	g.engine.OnResize(g.sub, int(w), int(h))
	return w, h
}

// Reason は終了理由を返す
func (g *Game) Reason() ExitReason {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.reason
}

// Result は実行結果を返す
func (g *Game) Result() Result {
	return Result{
		Reason: g.Reason(),
		Cycles: g.counter.cycles,
		Stats:  g.engine.Stats(),
	}
}

// Run GUIモードでウィンドウを実行
func Run(engine *reel.Engine, sub reel.Subscription, opts Options) (Result, error) {
	game := NewGame(engine, sub, opts)
	textures := game.canvas.Textures()
	defer func() {
		game.log.Info("Window: releasing textures", "textures", textures.Len(), "uploads", textures.Uploads())
		textures.Dispose()
	}()

	// ウィンドウ設定
	ebiten.SetWindowSize(opts.Width, opts.Height)
	ebiten.SetWindowTitle(opts.Title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetScreenClearedEveryFrame(false)

	// ゲームを実行
	if err := ebiten.RunGame(game); err != nil && !errors.Is(err, ebiten.Termination) {
		return game.Result(), fmt.Errorf("failed to run game: %w", err)
	}

	return game.Result(), nil
}
