// Package app はscanreelのアプリケーション全体の流れを管理する
package app

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"os"

	"golang.org/x/text/language"

	"github.com/zurustar/scanreel/pkg/cli"
	"github.com/zurustar/scanreel/pkg/config"
	"github.com/zurustar/scanreel/pkg/logger"
	"github.com/zurustar/scanreel/pkg/reel"
	"github.com/zurustar/scanreel/pkg/window"
)

// WindowTitle はGUIモードのウィンドウタイトル
const WindowTitle = "scanreel"

// Application はアプリケーションのメインロジックを管理する
type Application struct {
	config     *cli.Config
	log        *slog.Logger
	embedFS    fs.FS
	stdout     io.Writer
	httpClient *http.Client
	source     *FrameSource
	result     window.Result
}

// Option は Application のオプションを設定する関数型
type Option func(*Application)

// WithEmbeddedFrames は埋め込みフレームのファイルシステムを設定する
func WithEmbeddedFrames(fsys fs.FS) Option {
	return func(app *Application) {
		app.embedFS = fsys
	}
}

// WithStdout はサマリーの出力先を設定する
func WithStdout(w io.Writer) Option {
	return func(app *Application) {
		app.stdout = w
	}
}

// WithHTTPClient はHTTP取得に使うクライアントを設定する
func WithHTTPClient(client *http.Client) Option {
	return func(app *Application) {
		app.httpClient = client
	}
}

// New Applicationを作成
func New(opts ...Option) *Application {
	app := &Application{
		stdout: os.Stdout,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(app)
	}
	return app
}

// Run アプリケーションを実行
func (app *Application) Run(args []string) error {
	// 1. コマンドライン引数の解析
	if err := app.parseArgs(args); err != nil {
		return fmt.Errorf("failed to parse args: %w", err)
	}

	if app.config.ShowHelp {
		cli.PrintHelp()
		return nil
	}

	// 2. 設定ファイルの読み込み（フラグと環境変数が優先）
	if err := app.loadConfigFile(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 3. ロガーの初期化
	if err := app.initLogger(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	app.log.Info("Application started")

	// 4. フレーム取得元の決定
	src, err := app.resolveSource()
	if err != nil {
		return fmt.Errorf("failed to resolve frame source: %w", err)
	}
	app.source = src
	app.log.Info("Frame source resolved",
		"kind", src.Kind,
		"location", src.Location,
		"frames", src.Frames,
		"pattern", app.config.Pattern)

	// 5. エンジンの作成とマウント
	engine, err := app.newEngine(src)
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	sub, err := engine.Mount(context.Background())
	if err != nil {
		return fmt.Errorf("failed to mount engine: %w", err)
	}
	defer engine.Unmount()

	// 6. 再生
	if err := app.play(engine, sub); err != nil {
		return fmt.Errorf("failed to play: %w", err)
	}

	app.log.Info("Application terminated normally", "reason", app.result.Reason)
	return nil
}

// parseArgs コマンドライン引数を解析
func (app *Application) parseArgs(args []string) error {
	cfg, err := cli.ParseArgs(args)
	if err != nil {
		return err
	}
	app.config = cfg
	return nil
}

// loadConfigFile 設定ファイルが指定されていれば読み込んで適用する
func (app *Application) loadConfigFile() error {
	if app.config.ConfigFile == "" {
		return nil
	}
	file, err := config.Load(app.config.ConfigFile)
	if err != nil {
		return err
	}
	file.Apply(app.config)
	return nil
}

// initLogger ロガーを初期化
func (app *Application) initLogger() error {
	if err := logger.InitLogger(app.config.LogLevel); err != nil {
		return err
	}
	app.log = logger.GetLogger()
	return nil
}

// newEngine 取得元に合わせてエンジンを作成する
func (app *Application) newEngine(src *FrameSource) (*reel.Engine, error) {
	compositorOpts := []reel.CompositorOption{reel.WithCompositorLogger(app.log)}
	if app.config.Language != "" {
		tag, err := language.Parse(app.config.Language)
		if err != nil {
			return nil, fmt.Errorf("invalid language %q: %w", app.config.Language, err)
		}
		compositorOpts = append(compositorOpts, reel.WithLanguage(tag))
	}
	if app.config.Seed != 0 {
		compositorOpts = append(compositorOpts,
			reel.WithRand(rand.New(rand.NewPCG(app.config.Seed, app.config.Seed))))
	}

	cfg := reel.Config{
		Frames:  src.Frames,
		FPS:     app.config.FPS,
		Pattern: app.config.Pattern,
	}
	return reel.NewEngine(cfg, src.Fetcher,
		reel.WithLogger(app.log),
		reel.WithCompositor(reel.NewCompositor(compositorOpts...)),
		reel.WithReadyHook(func() {
			app.log.Info("Intro ready")
		}),
		reel.WithEnterHook(func() {
			app.log.Info("Intro entered")
		}),
	)
}

// play ヘッドレスまたはGUIで再生する
func (app *Application) play(engine *reel.Engine, sub reel.Subscription) error {
	opts := window.Options{
		Title:   WindowTitle,
		Width:   app.config.Width,
		Height:  app.config.Height,
		Timeout: app.config.Timeout,
		Loops:   app.config.Loops,
		OutDir:  app.config.OutDir,
		Trace:   app.config.Trace,
		Log:     app.log.With("session", sub.Session()),
	}

	// トレースはヘッドレスでのみ行う
	if app.config.Trace && !app.config.Headless {
		app.config.Headless = true
		app.log.Info("Trace mode implies headless mode")
	}

	if !app.config.Headless {
		result, err := window.Run(engine, sub, opts)
		app.result = result
		return err
	}

	// ヘッドレスモードで終了条件がなければ1周で終える
	if opts.Loops == 0 && opts.Timeout == 0 {
		opts.Loops = 1
		app.log.Info("Headless mode without loops or timeout: playing one loop")
	}

	result, err := window.RunHeadless(context.Background(), engine, sub, opts)
	app.result = result
	if err != nil {
		return err
	}

	app.printSummary()
	return nil
}

// printSummary ヘッドレス実行のサマリーを出力する
func (app *Application) printSummary() {
	fmt.Fprintf(app.stdout, "Source:      %s (%s)\n", app.source.Kind, app.source.Location)
	fmt.Fprintf(app.stdout, "Exit reason: %s\n", app.result.Reason)
	fmt.Fprintf(app.stdout, "Cycles:      %d\n", app.result.Cycles)
	if app.config.Trace {
		fmt.Fprintf(app.stdout, "Operations:  %d\n", app.result.Operations)
	} else if app.config.OutDir != "" {
		fmt.Fprintf(app.stdout, "Written:     %d PNG to %s\n", app.result.Written, app.config.OutDir)
	}
	fmt.Fprint(app.stdout, app.result.Stats.String())
}

// Result は最後の実行結果を返す
func (app *Application) Result() window.Result {
	return app.result
}
