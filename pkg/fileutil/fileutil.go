// Package fileutil provides file system utility functions for frame sources.
package fileutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FindFileCaseInsensitive searches for a file with the given name in the specified directory.
// The search is case-insensitive, so "FRAME_001.JPG" resolves to "frame_001.jpg".
//
// Parameters:
//   - dir: The directory to search in
//   - filename: The filename to search for (case-insensitive)
//
// Returns:
//   - string: The actual path to the file if found
//   - error: Error if the file is not found or if there's an I/O error
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	if name, ok := matchEntry(entries, filename); ok {
		return filepath.Join(dir, name), nil
	}
	return "", fmt.Errorf("%w: %s (searched in %s)", fs.ErrNotExist, filename, dir)
}

// FindFileCaseInsensitiveFS is FindFileCaseInsensitive for an fs.FS (embed.FS, os.DirFS, fstest.MapFS).
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("failed to read directory %s: %w", dir, err)
	}

	if name, ok := matchEntry(entries, filename); ok {
		if dir == "." || dir == "" {
			return name, nil
		}
		// fs.FS uses forward slashes
		return dir + "/" + name, nil
	}
	return "", fmt.Errorf("%w: %s (searched in %s)", fs.ErrNotExist, filename, dir)
}

func matchEntry(entries []fs.DirEntry, filename string) (string, bool) {
	searchName := strings.ToLower(filename)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(entry.Name()) == searchName {
			return entry.Name(), true
		}
	}
	return "", false
}

// CountSequence はnameFor(0), nameFor(1), ... が連続して存在する数を数える
// 最初に見つからなかった番号で打ち切る。limitは上限（0以下は無制限）
func CountSequence(fsys FileSystem, nameFor func(int) string, limit int) int {
	n := 0
	for limit <= 0 || n < limit {
		if !fsys.Exists(nameFor(n)) {
			break
		}
		n++
	}
	return n
}
