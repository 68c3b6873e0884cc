package app

import (
	"errors"
	"fmt"
	"os"

	"github.com/zurustar/scanreel/pkg/fileutil"
	"github.com/zurustar/scanreel/pkg/reel"
	"github.com/zurustar/scanreel/pkg/source"
)

// MaxAutoFrames は自動検出するフレーム数の上限
const MaxAutoFrames = 10000

// ErrNoFrames はディレクトリにフレームが1枚も見つからない場合のエラー
var ErrNoFrames = errors.New("no frames found")

// SourceKind はフレーム取得元の種類
type SourceKind int

const (
	SourceSynthetic SourceKind = iota // 手続き生成
	SourceDirectory                   // ローカルディレクトリ
	SourceEmbedded                    // 埋め込みファイルシステム
	SourceHTTP                        // HTTPサーバー
)

// String は取得元の名前を返す
func (k SourceKind) String() string {
	switch k {
	case SourceSynthetic:
		return "synthetic"
	case SourceDirectory:
		return "directory"
	case SourceEmbedded:
		return "embedded"
	case SourceHTTP:
		return "http"
	}
	return fmt.Sprintf("SourceKind(%d)", int(k))
}

// FrameSource は解決済みのフレーム取得元
type FrameSource struct {
	Kind     SourceKind
	Location string // ディレクトリのパスまたはベースURL
	Frames   int    // フレーム数N
	Fetcher  reel.Fetcher
}

// resolveSource はフレームの取得元を次の優先順位で決める
// 1. URL指定
// 2. ディレクトリ指定
// 3. 埋め込みファイルシステム（フレーム0が含まれている場合）
// 4. 合成フレーム
func (app *Application) resolveSource() (*FrameSource, error) {
	c := app.config

	switch {
	case c.URL != "":
		opts := []source.HTTPOption{source.WithHTTPLogger(app.log)}
		if app.httpClient != nil {
			opts = append(opts, source.WithHTTPClient(app.httpClient))
		}
		fetcher, err := source.NewHTTPFetcher(c.URL, opts...)
		if err != nil {
			return nil, err
		}
		return &FrameSource{
			Kind:     SourceHTTP,
			Location: c.URL,
			Frames:   app.frameCount(0),
			Fetcher:  fetcher,
		}, nil

	case c.FramesDir != "":
		info, err := os.Stat(c.FramesDir)
		if err != nil {
			return nil, fmt.Errorf("frames directory: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("frames directory: %s is not a directory", c.FramesDir)
		}
		return app.fsSource(SourceDirectory, fileutil.NewRealFS(c.FramesDir))

	case c.Synthetic:
		return app.syntheticSource(), nil
	}

	if app.embedFS != nil {
		efs := fileutil.NewEmbedFS(app.embedFS, ".")
		if efs.Exists(reel.FrameName(c.Pattern, 0)) {
			return app.fsSource(SourceEmbedded, efs)
		}
		app.log.Debug("Embedded frames not found, using synthetic frames", "pattern", c.Pattern)
	}

	return app.syntheticSource(), nil
}

func (app *Application) fsSource(kind SourceKind, fsys fileutil.FileSystem) (*FrameSource, error) {
	location := fsys.Location()
	detected := 0
	if app.config.Frames == 0 {
		detected = fileutil.CountSequence(fsys, func(i int) string {
			return reel.FrameName(app.config.Pattern, i)
		}, MaxAutoFrames)
		if detected == 0 {
			return nil, fmt.Errorf("%w in %s (pattern %q)", ErrNoFrames, location, app.config.Pattern)
		}
		app.log.Info("Frame count detected", "frames", detected, "location", location)
	}
	return &FrameSource{
		Kind:     kind,
		Location: location,
		Frames:   app.frameCount(detected),
		Fetcher:  source.NewFSFetcher(fsys, app.log),
	}, nil
}

func (app *Application) syntheticSource() *FrameSource {
	frames := app.frameCount(0)
	return &FrameSource{
		Kind:     SourceSynthetic,
		Location: "synthetic",
		Frames:   frames,
		Fetcher:  &source.SyntheticFetcher{Frames: frames, Pattern: app.config.Pattern},
	}
}

// frameCount は明示指定、自動検出、デフォルトの順にフレーム数を決める
func (app *Application) frameCount(detected int) int {
	if app.config.Frames > 0 {
		return app.config.Frames
	}
	if detected > 0 {
		return detected
	}
	return reel.DefaultFrameCount
}
