package utils

import (
	"io"
	"os"
	"path/filepath"
	"sort"
)

func CopyFile(src, dst string) error {
	Logf("copy: %s -> %s", src, dst)
	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func FileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

func EnsureDir(path string) error {
	if path == "" || path == "." {
		return nil
	}
	return os.MkdirAll(path, 0o755)
}

// RemoveGlob deletes every file matching pattern and returns how many were removed.
func RemoveGlob(pattern string) (int, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range matches {
		if err := os.Remove(path); err != nil {
			Warn("remove failed", "path", path, "err", err)
			continue
		}
		removed++
	}
	return removed, nil
}

// SortedGlob is filepath.Glob with a stable lexical order.
func SortedGlob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}
