// Package graphics はreelの合成結果を受け取る描画キャンバス（GPU・ソフトウェア・記録専用）を提供する
package graphics

import (
	"fmt"
	"image/color"
	"log/slog"
	"sync"

	"github.com/zurustar/scanreel/pkg/reel"
)

// OperationRecord は描画操作の記録を表す
type OperationRecord struct {
	Operation string
	Args      map[string]any
}

// RecordingCanvas は描画操作を記録するだけのキャンバス
// ヘッドレスのトレースモードで合成の内容をログに出すのに使う
type RecordingCanvas struct {
	width  int
	height int

	log              *slog.Logger
	logOperations    bool // 描画操作をログに記録するかどうか
	operationHistory []OperationRecord
	tone             reel.Tone
	mu               sync.RWMutex
}

// RecordingOption は RecordingCanvas のオプションを設定する関数型
type RecordingOption func(*RecordingCanvas)

// WithRecordingLogger はロガーを設定する
func WithRecordingLogger(log *slog.Logger) RecordingOption {
	return func(rc *RecordingCanvas) {
		rc.log = log
	}
}

// WithLogOperations は描画操作のログ記録を有効/無効にする
func WithLogOperations(enabled bool) RecordingOption {
	return func(rc *RecordingCanvas) {
		rc.logOperations = enabled
	}
}

// NewRecordingCanvas は新しいRecordingCanvasを作成する
func NewRecordingCanvas(width, height int, opts ...RecordingOption) *RecordingCanvas {
	rc := &RecordingCanvas{
		width:            width,
		height:           height,
		log:              slog.Default(),
		operationHistory: make([]OperationRecord, 0),
		tone:             reel.IdentityTone,
	}
	for _, opt := range opts {
		opt(rc)
	}
	return rc
}

// Size はキャンバスのサイズを返す
func (rc *RecordingCanvas) Size() (int, int) {
	return rc.width, rc.height
}

// record は描画操作を履歴に追加する
func (rc *RecordingCanvas) record(operation string, args ...any) {
	if rc.logOperations {
		rc.log.Debug(fmt.Sprintf("[Headless] %s", operation), args...)
	}

	record := OperationRecord{
		Operation: operation,
		Args:      make(map[string]any),
	}
	// argsをkey-valueペアとして解析
	for i := 0; i < len(args)-1; i += 2 {
		if key, ok := args[i].(string); ok {
			record.Args[key] = args[i+1]
		}
	}
	rc.mu.Lock()
	rc.operationHistory = append(rc.operationHistory, record)
	rc.mu.Unlock()
}

// SetFilter はトーン補正を記録する
func (rc *RecordingCanvas) SetFilter(tone reel.Tone) {
	rc.tone = tone
	rc.record("SetFilter", "contrast", tone.Contrast, "brightness", tone.Brightness)
}

// DrawBitmap はビットマップ描画を記録する
func (rc *RecordingCanvas) DrawBitmap(bmp *reel.Bitmap, fit reel.Fit) {
	rc.record("DrawBitmap",
		"index", bmp.Index,
		"scale", fit.Scale,
		"offsetX", fit.OffsetX,
		"offsetY", fit.OffsetY,
		"contrast", rc.tone.Contrast,
		"brightness", rc.tone.Brightness)
}

// FillRect は矩形塗りつぶしを記録する
func (rc *RecordingCanvas) FillRect(x, y, w, h float64, clr color.Color) {
	rc.record("FillRect", "x", x, "y", y, "w", w, "h", h, "color", clr)
}

// StrokeLine は直線描画を記録する
func (rc *RecordingCanvas) StrokeLine(x0, y0, x1, y1, width float64, clr color.Color) {
	rc.record("StrokeLine", "x0", x0, "y0", y0, "x1", x1, "y1", y1, "width", width, "color", clr)
}

// DrawText はテキスト描画を記録する
func (rc *RecordingCanvas) DrawText(s string, x, y float64, clr color.Color) {
	rc.record("DrawText", "text", s, "x", x, "y", y, "color", clr)
}

// GetOperationHistory は操作履歴を返す
func (rc *RecordingCanvas) GetOperationHistory() []OperationRecord {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	// コピーを返す
	result := make([]OperationRecord, len(rc.operationHistory))
	copy(result, rc.operationHistory)
	return result
}

// ClearOperationHistory は操作履歴をクリアする
func (rc *RecordingCanvas) ClearOperationHistory() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.operationHistory = make([]OperationRecord, 0)
}

// GetOperationCount は指定した操作の件数を返す（空文字列なら全件）
func (rc *RecordingCanvas) GetOperationCount(operation string) int {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	if operation == "" {
		return len(rc.operationHistory)
	}
	n := 0
	for _, r := range rc.operationHistory {
		if r.Operation == operation {
			n++
		}
	}
	return n
}
