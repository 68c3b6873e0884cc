// Package cli はscanreelのコマンドライン引数と環境変数を解析する
package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"

	"github.com/zurustar/scanreel/pkg/logger"
	"github.com/zurustar/scanreel/pkg/reel"
)

// ヘッドレスモードの描画面のデフォルトサイズ
const (
	DefaultWidth  = 640
	DefaultHeight = 480
)

// DefaultLanguage はラベルの数値書式のデフォルト言語
const DefaultLanguage = "en"

// ErrConflictingSources は複数のフレーム取得元が指定された場合のエラー
var ErrConflictingSources = errors.New("conflicting frame sources")

// Config はコマンドライン引数から解析された設定を保持する
type Config struct {
	FramesDir  string        // フレーム画像のディレクトリ（位置引数）
	Frames     int           // フレーム数（0はディレクトリから自動検出）
	FPS        float64       // 再生フレームレート
	Pattern    string        // フレーム名テンプレート
	URL        string        // フレーム取得元のベースURL
	Synthetic  bool          // 合成フレームを使用する
	Seed       uint64        // 装飾マーカーの乱数シード（0は時刻から）
	Width      int           // ヘッドレス描画面の幅
	Height     int           // ヘッドレス描画面の高さ
	OutDir     string        // ヘッドレスモードでのPNG出力先
	Loops      int           // 再生するループ数（0は無制限）
	ConfigFile string        // YAML設定ファイルのパス
	Timeout    time.Duration // タイムアウト時間（0は無制限）
	LogLevel   string        // ログレベル（debug, info, warn, error）
	Headless   bool          // ヘッドレスモード
	Trace      bool          // 描画操作のトレース（ヘッドレスのみ）
	Language   string        // ラベルの数値書式の言語（BCP 47）
	ShowHelp   bool          // ヘルプ表示フラグ

	set map[string]bool // フラグまたは環境変数で明示的に指定された項目
}

// IsSet は項目がフラグまたは環境変数で明示的に指定されたかどうかを返す
// 設定ファイルの値はこれがfalseの項目にだけ適用される
func (c *Config) IsSet(name string) bool {
	return c.set[name]
}

// 短縮形から正式名への対応
var aliases = map[string]string{
	"t": "timeout",
	"l": "log-level",
	"h": "help",
	"o": "out",
}

// 値を取らないフラグ
var boolFlags = map[string]bool{
	"h":         true,
	"help":      true,
	"headless":  true,
	"synthetic": true,
	"trace":     true,
}

// ParseArgs コマンドライン引数を解析してConfigを返す
func ParseArgs(args []string) (*Config, error) {
	// 引数を並べ替え：フラグを前に、位置引数を後ろに
	reorderedArgs := reorderArgs(args)

	fs := flag.NewFlagSet("scanreel", flag.ContinueOnError)

	config := &Config{set: make(map[string]bool)}

	var timeoutSec int
	var size string
	fs.IntVar(&config.Frames, "frames", 0, "フレーム数（0はディレクトリから自動検出）")
	fs.Float64Var(&config.FPS, "fps", reel.DefaultFPS, "再生フレームレート")
	fs.StringVar(&config.Pattern, "pattern", reel.DefaultPattern, "フレーム名テンプレート")
	fs.StringVar(&config.URL, "url", "", "フレーム取得元のベースURL")
	fs.BoolVar(&config.Synthetic, "synthetic", false, "合成フレームを使用")
	fs.Uint64Var(&config.Seed, "seed", 0, "装飾マーカーの乱数シード")
	fs.StringVar(&size, "size", fmt.Sprintf("%dx%d", DefaultWidth, DefaultHeight), "ヘッドレス描画面のサイズ（WxH）")
	fs.StringVar(&config.OutDir, "out", "", "PNG出力先ディレクトリ")
	fs.StringVar(&config.OutDir, "o", "", "PNG出力先ディレクトリ（短縮形）")
	fs.IntVar(&config.Loops, "loops", 0, "再生するループ数（0は無制限）")
	fs.StringVar(&config.ConfigFile, "config", "", "YAML設定ファイル")
	fs.IntVar(&timeoutSec, "timeout", 0, "タイムアウト時間（秒）")
	fs.IntVar(&timeoutSec, "t", 0, "タイムアウト時間（秒）（短縮形）")
	fs.StringVar(&config.LogLevel, "log-level", "info", "ログレベル（debug, info, warn, error）")
	fs.StringVar(&config.LogLevel, "l", "info", "ログレベル（短縮形）")
	fs.BoolVar(&config.Headless, "headless", false, "ヘッドレスモード")
	fs.BoolVar(&config.Trace, "trace", false, "描画操作をトレース（ヘッドレス）")
	fs.StringVar(&config.Language, "lang", DefaultLanguage, "ラベルの数値書式の言語")
	fs.BoolVar(&config.ShowHelp, "help", false, "ヘルプを表示")
	fs.BoolVar(&config.ShowHelp, "h", false, "ヘルプを表示（短縮形）")

	if err := fs.Parse(reorderedArgs); err != nil {
		return nil, err
	}

	fs.Visit(func(f *flag.Flag) {
		name := f.Name
		if long, ok := aliases[name]; ok {
			name = long
		}
		config.set[name] = true
	})

	// 環境変数からの設定（コマンドラインフラグが優先）
	if !config.set["headless"] {
		if headlessEnv := os.Getenv("HEADLESS"); headlessEnv != "" {
			config.Headless = headlessEnv == "1" || strings.ToLower(headlessEnv) == "true"
			config.set["headless"] = true
		}
	}

	if !config.set["timeout"] {
		if timeoutEnv := os.Getenv("TIMEOUT"); timeoutEnv != "" {
			if t, err := strconv.Atoi(timeoutEnv); err == nil && t > 0 {
				timeoutSec = t
				config.set["timeout"] = true
			}
		}
	}

	if !config.set["log-level"] {
		if logLevelEnv := os.Getenv("LOG_LEVEL"); logLevelEnv != "" {
			config.LogLevel = strings.ToLower(logLevelEnv)
			config.set["log-level"] = true
		}
	}

	if !config.set["fps"] {
		if fpsEnv := os.Getenv("SCANREEL_FPS"); fpsEnv != "" {
			fps, err := strconv.ParseFloat(fpsEnv, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid SCANREEL_FPS %q: %w", fpsEnv, err)
			}
			config.FPS = fps
			config.set["fps"] = true
		}
	}

	// タイムアウトの検証
	if timeoutSec < 0 {
		return nil, fmt.Errorf("timeout must be non-negative, got %d", timeoutSec)
	}
	config.Timeout = time.Duration(timeoutSec) * time.Second

	// ログレベルの検証
	if _, err := logger.ParseLevel(config.LogLevel); err != nil || config.LogLevel == "" {
		return nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", config.LogLevel)
	}

	if _, err := language.Parse(config.Language); err != nil {
		return nil, fmt.Errorf("invalid language %q: %w", config.Language, err)
	}

	if config.Frames < 0 {
		return nil, fmt.Errorf("frames must be non-negative, got %d", config.Frames)
	}
	if config.Loops < 0 {
		return nil, fmt.Errorf("loops must be non-negative, got %d", config.Loops)
	}

	w, h, err := ParseSize(size)
	if err != nil {
		return nil, err
	}
	config.Width, config.Height = w, h

	// 位置引数（フレーム画像のディレクトリ）
	if fs.NArg() > 0 {
		config.FramesDir = fs.Arg(0)
	}

	sources := 0
	for _, used := range []bool{config.FramesDir != "", config.URL != "", config.Synthetic} {
		if used {
			sources++
		}
	}
	if sources > 1 {
		return nil, fmt.Errorf("%w: choose one of frames-dir, -url, -synthetic", ErrConflictingSources)
	}

	return config, nil
}

// ParseSize は "WxH" 形式のサイズを解析する
func ParseSize(s string) (int, int, error) {
	ws, hs, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid size %q (expected WxH)", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: width and height must be positive", s)
	}
	return w, h, nil
}

// reorderArgs 引数を並べ替えて、フラグを前に、位置引数を後ろに配置する
func reorderArgs(args []string) []string {
	var flags []string
	var positional []string

	for i := 0; i < len(args); i++ {
		arg := args[i]

		// フラグかどうかを判定（-または--で始まる）
		if len(arg) > 0 && arg[0] == '-' {
			flags = append(flags, arg)

			name := strings.TrimLeft(arg, "-")
			// -fps=24 のように値が含まれている場合と、値を取らないフラグ
			if strings.Contains(name, "=") || boolFlags[name] {
				continue
			}
			// 次の引数を値として扱う（-t 5 のような場合）
			if i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			// 位置引数
			positional = append(positional, arg)
		}
	}

	// フラグを前に、位置引数を後ろに配置
	return append(flags, positional...)
}

// PrintHelp ヘルプメッセージを表示
func PrintHelp() {
	fmt.Fprintf(os.Stdout, `scanreel - intro frame sequence player

Usage:
  scanreel [options] [frames-dir]

Arguments:
  frames-dir    フレーム画像のディレクトリ（省略時は合成フレームを使用）

Options:
  --frames <n>                フレーム数（デフォルト: ディレクトリから自動検出、なければ %d）
  --fps <rate>                再生フレームレート（デフォルト: %g）
  --pattern <fmt>             フレーム名テンプレート（デフォルト: %s）
  --url <base>                フレームをHTTPで取得するベースURL
  --synthetic                 合成フレームを使用
  --seed <n>                  装飾マーカーの乱数シード（デフォルト: 時刻）
  --size <WxH>                ヘッドレス描画面のサイズ（デフォルト: %dx%d）
  -o, --out <dir>             ヘッドレスモードで各フレームをPNGとして保存
  --loops <n>                 再生するループ数（デフォルト: 無制限）
  --config <file>             YAML設定ファイル
  -t, --timeout <seconds>     指定秒数後にプログラムを終了（デフォルト: 無制限）
  -l, --log-level <level>     ログレベル: debug, info, warn, error（デフォルト: info）
  --headless                  ヘッドレスモード（GUIなし）
  --trace                     画素を描かずに描画操作をログに記録（ヘッドレスを含む）
  --lang <tag>                ラベルの数値書式の言語（デフォルト: %s）
  -h, --help                  このヘルプを表示

Environment Variables:
  HEADLESS=1                  ヘッドレスモードを有効化
  TIMEOUT=<seconds>           タイムアウト時間（秒）
  LOG_LEVEL=<level>           ログレベル
  SCANREEL_FPS=<rate>         再生フレームレート

Keys:
  Enter                       準備完了後にイントロを終了
  Esc                         終了

Examples:
  scanreel ./frames                         ディレクトリのframe_000.jpg...を再生
  scanreel --url https://cdn.example/intro  HTTPでフレームを取得
  scanreel --headless --synthetic --loops 2 -o ./out
  scanreel --config scanreel.yaml
`, reel.DefaultFrameCount, reel.DefaultFPS, reel.DefaultPattern, DefaultWidth, DefaultHeight, DefaultLanguage)
}
