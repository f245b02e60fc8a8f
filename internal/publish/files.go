package publish

import (
	"fmt"
	"os"
	"path/filepath"
)

// PickLatestVideo returns the most recently modified mp4 in dir.
func PickLatestVideo(dir string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.mp4"))
	if err != nil {
		return "", err
	}
	var (
		latest string
		newest int64
	)
	for _, path := range matches {
		st, err := os.Stat(path)
		if err != nil || st.IsDir() {
			continue
		}
		if mod := st.ModTime().UnixNano(); latest == "" || mod > newest {
			latest, newest = path, mod
		}
	}
	if latest == "" {
		return "", fmt.Errorf("no mp4 files in %s", dir)
	}
	return latest, nil
}
