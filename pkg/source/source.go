// Package source provides frame fetchers for the reel loader: local or
// embedded directories, HTTP servers and procedurally generated frames.
package source

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // GIF デコーダを登録
	_ "image/jpeg" // JPEG デコーダを登録
	_ "image/png"  // PNG デコーダを登録
	"io"
	"log/slog"

	_ "golang.org/x/image/bmp"  // BMP デコーダを登録
	_ "golang.org/x/image/tiff" // TIFF デコーダを登録
	_ "golang.org/x/image/webp" // WebP デコーダを登録

	"github.com/zurustar/scanreel/pkg/fileutil"
)

var (
	// ErrFrameNotFound はフレームファイルが見つからない場合のエラー
	ErrFrameNotFound = errors.New("frame not found")

	// ErrDecode は画像のデコードに失敗した場合のエラー
	ErrDecode = errors.New("failed to decode frame")
)

// Decode は登録済みのデコーダで画像をデコードする
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return img, format, nil
}

// FSFetcher はFileSystemからフレームを読み込む
type FSFetcher struct {
	fsys fileutil.FileSystem
	log  *slog.Logger
}

// NewFSFetcher は新しいFSFetcherを作成する
func NewFSFetcher(fsys fileutil.FileSystem, log *slog.Logger) *FSFetcher {
	if log == nil {
		log = slog.Default()
	}
	return &FSFetcher{fsys: fsys, log: log}
}

// Fetch はnameのファイルを開いてデコードする
func (f *FSFetcher) Fetch(ctx context.Context, name string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := f.fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFrameNotFound, name, err)
	}
	defer file.Close()

	img, format, err := Decode(file)
	if err != nil {
		return nil, err
	}

	f.log.Debug("FSFetcher: decoded frame",
		"name", name,
		"format", format,
		"width", img.Bounds().Dx(),
		"height", img.Bounds().Dy())
	return img, nil
}
