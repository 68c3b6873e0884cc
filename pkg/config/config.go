// Package config はscanreelのYAML設定ファイルを読み込む
//
// 優先順位はフラグ > 環境変数 > 設定ファイル > デフォルト値。
// 設定ファイルの値は、フラグと環境変数のどちらでも指定されなかった項目にだけ適用される。
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/zurustar/scanreel/pkg/cli"
)

// ErrInvalidConfig は設定ファイルの内容が不正な場合のエラー
var ErrInvalidConfig = errors.New("invalid configuration")

// File は設定ファイルの内容
// ポインタ型の項目は未指定とゼロ値を区別するため
type File struct {
	FramesDir string         `yaml:"frames_dir"`
	Frames    *int           `yaml:"frames" validate:"omitempty,gte=0"`
	FPS       *float64       `yaml:"fps" validate:"omitempty,gt=0,lte=240"`
	Pattern   string         `yaml:"pattern" validate:"omitempty,contains=%"`
	URL       string         `yaml:"url" validate:"omitempty,url"`
	Synthetic *bool          `yaml:"synthetic"`
	Seed      *uint64        `yaml:"seed"`
	Size      string         `yaml:"size"`
	Out       string         `yaml:"out"`
	Loops     *int           `yaml:"loops" validate:"omitempty,gte=0"`
	Timeout   *time.Duration `yaml:"timeout" validate:"omitempty,gte=0s"`
	LogLevel  string         `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Headless  *bool          `yaml:"headless"`
	Trace     *bool          `yaml:"trace"`
	Language  string         `yaml:"language" validate:"omitempty,bcp47_language_tag"`
}

var validate = validator.New()

// Load は設定ファイルを読み込んで検証する
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse はYAMLを解析して検証する
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate は設定値を検証する
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if f.Size != "" {
		if _, _, err := cli.ParseSize(f.Size); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	sources := 0
	for _, used := range []bool{f.FramesDir != "", f.URL != "", f.Synthetic != nil && *f.Synthetic} {
		if used {
			sources++
		}
	}
	if sources > 1 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, cli.ErrConflictingSources)
	}
	return nil
}

// Apply は明示的に指定されていない項目に設定ファイルの値を適用する
func (f *File) Apply(c *cli.Config) {
	// フレーム取得元はまとめて扱う（コマンドラインで1つでも指定されていれば上書きしない）
	if c.FramesDir == "" && c.URL == "" && !c.Synthetic {
		c.FramesDir = f.FramesDir
		c.URL = f.URL
		if f.Synthetic != nil {
			c.Synthetic = *f.Synthetic
		}
	}

	if f.Frames != nil && !c.IsSet("frames") {
		c.Frames = *f.Frames
	}
	if f.FPS != nil && !c.IsSet("fps") {
		c.FPS = *f.FPS
	}
	if f.Pattern != "" && !c.IsSet("pattern") {
		c.Pattern = f.Pattern
	}
	if f.Seed != nil && !c.IsSet("seed") {
		c.Seed = *f.Seed
	}
	if f.Size != "" && !c.IsSet("size") {
		// Validateで検証済み
		c.Width, c.Height, _ = cli.ParseSize(f.Size)
	}
	if f.Out != "" && !c.IsSet("out") {
		c.OutDir = f.Out
	}
	if f.Loops != nil && !c.IsSet("loops") {
		c.Loops = *f.Loops
	}
	if f.Timeout != nil && !c.IsSet("timeout") {
		c.Timeout = *f.Timeout
	}
	if f.LogLevel != "" && !c.IsSet("log-level") {
		c.LogLevel = f.LogLevel
	}
	if f.Headless != nil && !c.IsSet("headless") {
		c.Headless = *f.Headless
	}
	if f.Trace != nil && !c.IsSet("trace") {
		c.Trace = *f.Trace
	}
	if f.Language != "" && !c.IsSet("lang") {
		c.Language = f.Language
	}
}
