package reel

import (
	"fmt"
	"strings"
	"time"
)

// Stats はエンジンの統計情報を保持する
type Stats struct {
	Frames     int           `json:"frames"`      // フレーム数N
	Settled    int           `json:"settled"`     // 決着済み数
	Failed     int           `json:"failed"`      // 読み込み失敗数
	LoadTime   time.Duration `json:"load_time"`   // マウントから準備完了まで
	Ticks      uint64        `json:"ticks"`       // 再生中に受け取ったティック数
	Advances   uint64        `json:"advances"`    // フレームが進んだ回数
	FrameDraws uint64        `json:"frame_draws"` // 画像を描画した回数
	HoleDraws  uint64        `json:"hole_draws"`  // 画像が欠けていて省略した回数
}

// String はStatsの文字列表現を返す
func (st Stats) String() string {
	var sb strings.Builder
	sb.WriteString("=== Reel Statistics ===\n")
	sb.WriteString(fmt.Sprintf("Frames:      %d\n", st.Frames))
	sb.WriteString(fmt.Sprintf("Settled:     %d (failed %d)\n", st.Settled, st.Failed))
	sb.WriteString(fmt.Sprintf("Load time:   %v\n", st.LoadTime))
	sb.WriteString(fmt.Sprintf("Ticks:       %d\n", st.Ticks))
	sb.WriteString(fmt.Sprintf("Advances:    %d\n", st.Advances))
	sb.WriteString(fmt.Sprintf("Frame draws: %d\n", st.FrameDraws))
	sb.WriteString(fmt.Sprintf("Hole draws:  %d\n", st.HoleDraws))
	sb.WriteString("=======================\n")
	return sb.String()
}

// Compact はStatsのコンパクトな文字列表現を返す
// デバッグオーバーレイ表示用
func (st Stats) Compact() string {
	return fmt.Sprintf("Frames:%d/%d (fail:%d) Adv:%d Ticks:%d",
		st.Settled, st.Frames, st.Failed, st.Advances, st.Ticks)
}
