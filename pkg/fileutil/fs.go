package fileutil

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileSystem はフレームの置き場所（ディレクトリまたは埋め込みFS）を抽象化する
// 名前の大文字小文字は区別しない
type FileSystem interface {
	Open(name string) (fs.File, error)
	// Exists はnameが通常ファイルとして存在するかどうかを返す
	Exists(name string) bool
	// Location はログ用の場所の説明を返す
	Location() string
}

// RealFS はディスク上のディレクトリからフレームを開く
type RealFS struct {
	dir string
}

// NewRealFS はdirを基点とするRealFSを作成する
func NewRealFS(dir string) *RealFS {
	return &RealFS{dir: dir}
}

func (r *RealFS) Open(name string) (fs.File, error) {
	p, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

func (r *RealFS) Exists(name string) bool {
	p, err := r.lookup(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func (r *RealFS) Location() string { return r.dir }

func (r *RealFS) lookup(name string) (string, error) {
	p := name
	if !filepath.IsAbs(name) {
		p = filepath.Join(r.dir, trimRoot(name))
	}
	if _, err := os.Stat(p); err == nil {
		return p, nil
	}
	return FindFileCaseInsensitive(filepath.Dir(p), filepath.Base(p))
}

// EmbedFS は任意のfs.FS（embed.FS、fstest.MapFSなど）のサブディレクトリからフレームを開く
type EmbedFS struct {
	fsys fs.FS
	root string
}

// NewEmbedFS はfsysのrootを基点とするEmbedFSを作成する
func NewEmbedFS(fsys fs.FS, root string) *EmbedFS {
	root = strings.Trim(filepath.ToSlash(root), "/")
	if root == "" {
		root = "."
	}
	return &EmbedFS{fsys: fsys, root: root}
}

func (e *EmbedFS) Open(name string) (fs.File, error) {
	p, err := e.lookup(name)
	if err != nil {
		return nil, err
	}
	return e.fsys.Open(p)
}

func (e *EmbedFS) Exists(name string) bool {
	p, err := e.lookup(name)
	if err != nil {
		return false
	}
	info, err := fs.Stat(e.fsys, p)
	return err == nil && info.Mode().IsRegular()
}

func (e *EmbedFS) Location() string { return "embedded:" + e.root }

func (e *EmbedFS) lookup(name string) (string, error) {
	// fs.FSのパス区切りは常に "/"
	p := path.Join(e.root, filepath.ToSlash(trimRoot(name)))
	if !fs.ValidPath(p) {
		return "", &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	if _, err := fs.Stat(e.fsys, p); err == nil {
		return p, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	return FindFileCaseInsensitiveFS(e.fsys, path.Dir(p), path.Base(p))
}

func trimRoot(name string) string {
	return strings.TrimLeft(name, `/\`)
}
