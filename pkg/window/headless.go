package window

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/zurustar/scanreel/pkg/graphics"
	"github.com/zurustar/scanreel/pkg/reel"
)

// HeadlessTickRate はヘッドレスループのティック頻度（ディスプレイのリフレッシュレート相当）
const HeadlessTickRate = 60

// RunHeadless ヘッドレスモードでエンジンを実時間で駆動する
// ソフトウェアラスタのキャンバスに合成し、OutDirが指定されていれば
// 再生開始時と各フレームの進行時にPNGを書き出す
// Traceのときは画素を描かず、合成の描画操作を記録してDebugログに出す（PNGは書き出さない）
// 指定ループ数の再生完了、タイムアウト、ctxのキャンセルのいずれかで終了する
func RunHeadless(ctx context.Context, engine *reel.Engine, sub reel.Subscription, opts Options) (Result, error) {
	log := opts.logger()

	if opts.OutDir != "" && !opts.Trace {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return Result{}, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// タイムアウト処理用のコンテキスト
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	var (
		canvas   reel.Canvas
		raster   *graphics.RasterCanvas
		recorder *graphics.RecordingCanvas
	)
	if opts.Trace {
		recorder = graphics.NewRecordingCanvas(opts.Width, opts.Height,
			graphics.WithRecordingLogger(log),
			graphics.WithLogOperations(true))
		canvas = recorder
	} else {
		raster = graphics.NewRasterCanvas(opts.Width, opts.Height)
		canvas = raster
	}
	engine.OnResize(sub, opts.Width, opts.Height)

	ticker := time.NewTicker(time.Second / HeadlessTickRate)
	defer ticker.Stop()

	result := Result{}
	counter := cycleCounter{loops: opts.Loops}

	render := func(now time.Time) error {
		engine.Draw(sub, canvas, now)
		if recorder != nil {
			ops := recorder.GetOperationCount("")
			result.Operations += ops
			log.Debug("Headless: frame traced",
				"frame", engine.Frame(),
				"operations", ops,
				"bitmaps", recorder.GetOperationCount("DrawBitmap"),
				"texts", recorder.GetOperationCount("DrawText"))
			recorder.ClearOperationHistory()
			return nil
		}
		if opts.OutDir == "" {
			return nil
		}
		path := filepath.Join(opts.OutDir, fmt.Sprintf("frame_%05d.png", result.Written))
		if err := raster.SavePNG(path); err != nil {
			return err
		}
		result.Written++
		log.Debug("Headless: frame written", "path", path, "frame", engine.Frame())
		return nil
	}

	log.Info("Headless: loop started",
		"width", opts.Width,
		"height", opts.Height,
		"loops", opts.Loops,
		"timeout", opts.Timeout,
		"trace", opts.Trace)

	for {
		select {
		case <-ctx.Done():
			result.Reason = ExitCanceled
			if opts.Timeout > 0 && ctx.Err() == context.DeadlineExceeded {
				result.Reason = ExitTimeout
			}
			return finishHeadless(engine, result, counter), nil

		case now := <-ticker.C:
			if !engine.Live(sub) {
				result.Reason = ExitCanceled
				return finishHeadless(engine, result, counter), nil
			}

			engine.Pump(sub)
			wasRunning := engine.Clock().Running()
			advanced := engine.OnTick(sub, now)

			if advanced && counter.advance(engine, log) {
				// 準備完了後のEnterトリガーを発火させて終了
				engine.Enter(sub)
				result.Reason = ExitLoops
				return finishHeadless(engine, result, counter), nil
			}

			started := !wasRunning && engine.Clock().Running()
			if advanced || started {
				if err := render(now); err != nil {
					return finishHeadless(engine, result, counter), err
				}
			}
		}
	}
}

func finishHeadless(engine *reel.Engine, result Result, counter cycleCounter) Result {
	result.Cycles = counter.cycles
	result.Stats = engine.Stats()
	return result
}
