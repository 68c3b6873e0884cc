package reel

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"time"
)

// Fetcher は名前から1枚の画像を取得・デコードする
// 実装はゴルーチンから並行に呼び出される
type Fetcher interface {
	Fetch(ctx context.Context, name string) (image.Image, error)
}

// FetcherFunc は関数をFetcherとして扱うアダプタ
type FetcherFunc func(ctx context.Context, name string) (image.Image, error)

// Fetch はf(ctx, name)を呼び出す
func (f FetcherFunc) Fetch(ctx context.Context, name string) (image.Image, error) {
	return f(ctx, name)
}

// Settlement は1つの読み込み操作の終端結果
// Generationは読み込みを開始したエンジン世代で、古い世代の結果は適用されない
type Settlement struct {
	Generation uint64
	Index      int
	Name       string
	Image      image.Image
	Err        error
	Elapsed    time.Duration
}

// Loader はN個の非同期読み込みを発行する
// 読み込みは開始後キャンセルされず、必ず最後まで実行される
type Loader struct {
	fetcher Fetcher
	log     *slog.Logger
	wg      sync.WaitGroup
}

// NewLoader は新しいLoaderを作成する
func NewLoader(fetcher Fetcher, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{fetcher: fetcher, log: log}
}

// Start はrsの全記述子について読み込みを開始し、決着を受け取るチャネルを返す
// チャネルはN件バッファされるため、受信側がいなくなっても読み込みゴルーチンはブロックしない
// 全件送信後にチャネルはクローズされる
func (l *Loader) Start(ctx context.Context, generation uint64, rs *ResourceSet) <-chan Settlement {
	n := rs.Len()
	out := make(chan Settlement, n)

	// 呼び出し元のキャンセルは読み込みに伝播させない
	loadCtx := context.WithoutCancel(ctx)

	var batch sync.WaitGroup
	batch.Add(n)
	l.wg.Add(n)
	for i := 0; i < n; i++ {
		name := rs.Name(i)
		go func(index int, name string) {
			defer l.wg.Done()
			defer batch.Done()

			start := time.Now()
			img, err := l.fetcher.Fetch(loadCtx, name)
			if err != nil {
				err = &LoadError{Index: index, Name: name, Err: err}
			}
			l.log.Debug("Loader: fetch finished", "index", index, "name", name, "ok", err == nil)

			out <- Settlement{
				Generation: generation,
				Index:      index,
				Name:       name,
				Image:      img,
				Err:        err,
				Elapsed:    time.Since(start),
			}
		}(i, name)
	}

	go func() {
		batch.Wait()
		close(out)
	}()

	l.log.Info("Loader: started", "count", n, "generation", generation)
	return out
}

// Wait は開始済みのすべての読み込みが完了するまで待つ
func (l *Loader) Wait() {
	l.wg.Wait()
}
