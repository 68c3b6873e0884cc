package reel

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFrameCount はフレーム数が1未満の場合のエラー
	ErrInvalidFrameCount = errors.New("invalid frame count")

	// ErrInvalidFPS はフレームレートが範囲外の場合のエラー
	ErrInvalidFPS = errors.New("invalid fps")

	// ErrInvalidPattern はフレーム名テンプレートが不正な場合のエラー
	ErrInvalidPattern = errors.New("invalid frame name pattern")

	// ErrNoFetcher はフェッチャーが設定されていない場合のエラー
	ErrNoFetcher = errors.New("no frame fetcher configured")

	// ErrAlreadyMounted はマウント済みのエンジンを再マウントした場合のエラー
	ErrAlreadyMounted = errors.New("engine already mounted")
)

// LoadError は1フレームの読み込み失敗（ResourceLoadFailure）
type LoadError struct {
	Index int
	Name  string
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load frame %d (%s): %v", e.Index, e.Name, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
