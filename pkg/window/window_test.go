package window

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/zurustar/scanreel/pkg/reel"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newMountedEngine はすべてのフレームが読み込み済みのエンジンを返す
func newMountedEngine(t *testing.T, frames int, fps float64) (*reel.Engine, reel.Subscription) {
	t.Helper()
	fetcher := reel.FetcherFunc(func(ctx context.Context, name string) (image.Image, error) {
		return image.NewRGBA(image.Rect(0, 0, 16, 12)), nil
	})
	e, err := reel.NewEngine(reel.Config{Frames: frames, FPS: fps, Pattern: reel.DefaultPattern}, fetcher,
		reel.WithLogger(testLogger()),
		reel.WithCompositor(reel.NewCompositor(
			reel.WithRand(rand.New(rand.NewPCG(1, 2))),
			reel.WithCompositorLogger(testLogger()),
		)),
	)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	sub, err := e.Mount(context.Background())
	if err != nil {
		t.Fatalf("Mount failed: %v", err)
	}
	e.WaitLoads()
	return e, sub
}

func TestExitReason_String(t *testing.T) {
	tests := map[ExitReason]string{
		ExitNone:       "none",
		ExitEscape:     "escape",
		ExitEnter:      "enter",
		ExitLoops:      "loops",
		ExitTimeout:    "timeout",
		ExitCanceled:   "canceled",
		ExitReason(42): "ExitReason(42)",
	}
	for reason, want := range tests {
		if got := reason.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestCycleCounter(t *testing.T) {
	cc := cycleCounter{loops: 2}
	frames := []int{1, 2, 0, 1, 2}
	for _, f := range frames {
		if cc.observe(f) {
			t.Fatalf("expected no stop before the second wrap (frame %d)", f)
		}
	}
	if !cc.observe(0) {
		t.Error("expected stop at the second wrap")
	}
	if cc.cycles != 2 {
		t.Errorf("expected 2 cycles, got %d", cc.cycles)
	}

	unlimited := cycleCounter{}
	for i := 0; i < 10; i++ {
		if unlimited.observe(0) {
			t.Fatal("expected unlimited loops never to stop")
		}
	}
}

func TestNewGame(t *testing.T) {
	e, sub := newMountedEngine(t, 2, 12)
	game := NewGame(e, sub, Options{Timeout: 10 * time.Second, Loops: 3, Log: testLogger()})

	if game == nil {
		t.Fatal("NewGame returned nil")
	}
	if game.timeout != 10*time.Second {
		t.Errorf("expected timeout 10s, got %v", game.timeout)
	}
	if game.counter.loops != 3 {
		t.Errorf("expected loops 3, got %d", game.counter.loops)
	}
	if game.Reason() != ExitNone {
		t.Errorf("expected no exit reason, got %v", game.Reason())
	}
}

func TestGame_Layout(t *testing.T) {
	e, sub := newMountedEngine(t, 1, 12)
	game := NewGame(e, sub, Options{Log: testLogger()})
	game.scale = func() float64 { return 1 }

	w, h := game.Layout(1280, 720)
	if w != 1280 || h != 720 {
		t.Errorf("expected 1280x720, got %dx%d", w, h)
	}
	if s := e.Surface(); s.Width != 1280 || s.Height != 720 {
		t.Errorf("expected engine surface to follow the window, got %+v", s)
	}
}

// HiDPIでは描画面を論理サイズではなく実ピクセルサイズに合わせる
func TestGame_LayoutFDevicePixels(t *testing.T) {
	e, sub := newMountedEngine(t, 1, 12)
	game := NewGame(e, sub, Options{Log: testLogger()})
	game.scale = func() float64 { return 2 }

	w, h := game.LayoutF(640, 360.5)
	if w != 1280 || h != 721 {
		t.Errorf("expected 1280x721, got %vx%v", w, h)
	}
	if s := e.Surface(); s.Width != 1280 || s.Height != 721 {
		t.Errorf("expected surface in device pixels, got %+v", s)
	}

	// Unmount後のリサイズ通知は描画面を変えない
	e.Unmount()
	game.LayoutF(320, 200)
	if s := e.Surface(); s.Width != 1280 || s.Height != 721 {
		t.Errorf("expected surface to stay after unmount, got %+v", s)
	}
}

func TestGame_StepTimeout(t *testing.T) {
	e, sub := newMountedEngine(t, 1, 12)
	game := NewGame(e, sub, Options{Timeout: time.Second, Log: testLogger()})

	err := game.step(game.startTime.Add(2 * time.Second))
	if !errors.Is(err, ebiten.Termination) {
		t.Fatalf("expected ebiten.Termination, got %v", err)
	}
	if game.Reason() != ExitTimeout {
		t.Errorf("expected timeout reason, got %v", game.Reason())
	}
}

func TestGame_StepPlaysAndStopsAfterLoops(t *testing.T) {
	e, sub := newMountedEngine(t, 2, 10)
	game := NewGame(e, sub, Options{Loops: 1, Log: testLogger()})
	interval := e.Clock().Interval()

	// 最初のティックで読み込み結果を適用し、再生を開始する
	if err := game.step(epoch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !e.Ready() || !e.Clock().Running() {
		t.Fatal("expected playback to start on the first tick")
	}

	if err := game.step(epoch.Add(interval)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Frame() != 1 {
		t.Errorf("expected frame 1, got %d", e.Frame())
	}

	err := game.step(epoch.Add(2 * interval))
	if !errors.Is(err, ebiten.Termination) {
		t.Fatalf("expected termination after one loop, got %v", err)
	}
	if r := game.Result(); r.Reason != ExitLoops || r.Cycles != 1 {
		t.Errorf("unexpected result: %+v", r)
	}
}

func TestRunHeadless_Loops(t *testing.T) {
	e, sub := newMountedEngine(t, 3, 120)
	out := filepath.Join(t.TempDir(), "frames")

	result, err := RunHeadless(context.Background(), e, sub, Options{
		Width:   64,
		Height:  48,
		Loops:   2,
		Timeout: 10 * time.Second,
		OutDir:  out,
		Log:     testLogger(),
	})
	if err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}

	if result.Reason != ExitLoops {
		t.Errorf("expected loops reason, got %v", result.Reason)
	}
	if result.Cycles != 2 {
		t.Errorf("expected 2 cycles, got %d", result.Cycles)
	}
	// 開始時の1枚 + 2周目の最後の折り返しを除く5回の進行
	if result.Written != 6 {
		t.Errorf("expected 6 frames written, got %d", result.Written)
	}
	entries, err := os.ReadDir(out)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != result.Written {
		t.Errorf("expected %d files, got %d", result.Written, len(entries))
	}
	if result.Stats.Advances != 6 {
		t.Errorf("expected 6 advances, got %d", result.Stats.Advances)
	}
	if result.Stats.FrameDraws != 6 {
		t.Errorf("expected 6 frame draws, got %d", result.Stats.FrameDraws)
	}
}

// トレースモードは画素を描かずに合成の描画操作だけを数える
func TestRunHeadless_Trace(t *testing.T) {
	e, sub := newMountedEngine(t, 3, 120)
	out := filepath.Join(t.TempDir(), "frames")

	result, err := RunHeadless(context.Background(), e, sub, Options{
		Width:   120,
		Height:  60,
		Loops:   1,
		Timeout: 10 * time.Second,
		OutDir:  out,
		Trace:   true,
		Log:     testLogger(),
	})
	if err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}
	if result.Reason != ExitLoops {
		t.Errorf("expected loops reason, got %v", result.Reason)
	}
	if result.Written != 0 {
		t.Errorf("expected no PNG in trace mode, got %d", result.Written)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("expected no output directory in trace mode, got %v", err)
	}

	// 開始時 + 2回の進行 = 3回の合成
	// 1回あたり: フィルタ2 + 画像1 + 減光1 + グリッド3 + 走査線1 + マーカー3×(線+ラベル)
	const perFrame = 2 + 1 + 1 + 3 + 1 + 3*2
	if result.Stats.FrameDraws != 3 {
		t.Errorf("expected 3 frame draws, got %d", result.Stats.FrameDraws)
	}
	if result.Operations != 3*perFrame {
		t.Errorf("expected %d operations, got %d", 3*perFrame, result.Operations)
	}
}

func TestRunHeadless_Timeout(t *testing.T) {
	e, sub := newMountedEngine(t, 2, 12)

	start := time.Now()
	result, err := RunHeadless(context.Background(), e, sub, Options{
		Width:   32,
		Height:  32,
		Timeout: 100 * time.Millisecond,
		Log:     testLogger(),
	})
	if err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}
	if result.Reason != ExitTimeout {
		t.Errorf("expected timeout reason, got %v", result.Reason)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("expected to stop shortly after the timeout, took %v", elapsed)
	}
	if result.Written != 0 {
		t.Errorf("expected nothing written without an output directory, got %d", result.Written)
	}
}

func TestRunHeadless_Canceled(t *testing.T) {
	e, sub := newMountedEngine(t, 2, 12)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := RunHeadless(ctx, e, sub, Options{Width: 32, Height: 32, Log: testLogger()})
	if err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}
	if result.Reason != ExitCanceled {
		t.Errorf("expected canceled reason, got %v", result.Reason)
	}
}

func TestRunHeadless_Unmounted(t *testing.T) {
	e, sub := newMountedEngine(t, 2, 12)
	e.Unmount()

	result, err := RunHeadless(context.Background(), e, sub, Options{
		Width:   32,
		Height:  32,
		Timeout: 5 * time.Second,
		Log:     testLogger(),
	})
	if err != nil {
		t.Fatalf("RunHeadless failed: %v", err)
	}
	if result.Reason != ExitCanceled {
		t.Errorf("expected canceled reason after unmount, got %v", result.Reason)
	}
}
