package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/assert/v2"
)

func TestShellJoin(t *testing.T) {
	got := ShellJoin("ffmpeg", "-i", "it's.png", "")
	assert.Equal(t, `'ffmpeg' '-i' 'it'"'"'s.png' ''`, got)
}

func TestPromptFrom(t *testing.T) {
	var out strings.Builder
	got, err := PromptFrom(strings.NewReader("  abc123  \n"), &out, "Enter video ID")
	assert.Equal(t, nil, err)
	assert.Equal(t, "abc123", got)
	assert.Equal(t, "Enter video ID: ", out.String())
}

func TestPromptFromWithoutTrailingNewline(t *testing.T) {
	var out strings.Builder
	got, err := PromptFrom(strings.NewReader("xyz"), &out, "id")
	assert.Equal(t, nil, err)
	assert.Equal(t, "xyz", got)
}

func TestRemoveGlobAndSortedGlob(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.png", "keep.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	matches, err := SortedGlob(filepath.Join(dir, "*.png"))
	assert.Equal(t, nil, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png")}, matches)

	removed, err := RemoveGlob(filepath.Join(dir, "*.png"))
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, true, FileExists(filepath.Join(dir, "keep.txt")))
	assert.Equal(t, false, FileExists(filepath.Join(dir, "a.png")))
}

func TestSHA256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err := SHA256File(path)
	assert.Equal(t, nil, err)
	assert.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
}
