package video

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

func testAssembler(run Runner) *Assembler {
	a := NewAssembler("ffmpeg")
	a.Run = run
	a.Now = func() time.Time { return time.Date(2025, 7, 17, 9, 30, 5, 0, time.UTC) }
	return a
}

func TestClipCommand(t *testing.T) {
	a := testAssembler(nil)
	assert.Equal(t,
		`'ffmpeg' '-y' '-loop' '1' '-i' 'card.png' '-t' '4' '-vf' 'zoompan=z='"'"'min(zoom+0.001,1.05)'"'"':d=100:s=1080x1920' '-c:v' 'libx264' '-pix_fmt' 'yuv420p' 'out.mp4'`,
		a.ClipCommand("card.png", "out.mp4", 4))
}

func TestMusicCommand(t *testing.T) {
	cmd := testAssembler(nil).MusicCommand("in.mp4", "bgm.mp3", "out.mp4", 22)
	assert.Equal(t, true, strings.Contains(cmd, `'[1:a]volume=0.4,afade=t=in:st=0:d=1,afade=t=out:st=21:d=1[a]'`))
	assert.Equal(t, true, strings.Contains(cmd, `'-stream_loop' '-1' '-i' 'bgm.mp3'`))
	assert.Equal(t, true, strings.HasSuffix(cmd, `'-shortest' 'out.mp4'`))
}

func TestConcatList(t *testing.T) {
	list, err := ConcatList([]string{"/tmp/a.mp4", "/tmp/it's.mp4"})
	assert.Equal(t, nil, err)
	assert.Equal(t, "file '/tmp/a.mp4'\nfile '/tmp/it'\\''s.mp4'\n", list)
}

func TestParseDuration(t *testing.T) {
	got, err := ParseDuration("  Duration: 00:01:02.50, start: 0.000000, bitrate: 1 kb/s")
	assert.Equal(t, nil, err)
	assert.Equal(t, 62.5, got)

	_, err = ParseDuration("no banner")
	assert.NotEqual(t, nil, err)
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, "ou_stock_parody_final_20250717_093005.mp4", OutputName(time.Date(2025, 7, 17, 9, 30, 5, 0, time.UTC)))
}

func touch(t *testing.T, path string) string {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAssembleSkipsFailedClipsAndCopiesWithoutMusic(t *testing.T) {
	dir := t.TempDir()
	cards := []string{touch(t, filepath.Join(dir, "c1.png")), touch(t, filepath.Join(dir, "c2.png"))}
	var commands []string
	run := func(ctx context.Context, command string) (string, error) {
		commands = append(commands, command)
		if strings.Contains(command, "c2.png") {
			return "", errors.New("encode failed")
		}
		if strings.Contains(command, "concat") {
			fields := strings.Fields(command)
			out := strings.Trim(fields[len(fields)-1], "'")
			return "", os.WriteFile(out, []byte("merged"), 0o644)
		}
		return "", nil
	}
	outDir := filepath.Join(dir, "parody_video")
	final, err := testAssembler(run).Assemble(context.Background(), Plan{
		IntroImage: filepath.Join(dir, "missing_intro.png"),
		Cards:      cards,
		BGM:        filepath.Join(dir, "missing.mp3"),
		OutputDir:  outDir,
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, filepath.Join(outDir, "ou_stock_parody_final_20250717_093005.mp4"), final)
	assert.Equal(t, 3, len(commands))

	data, err := os.ReadFile(final)
	assert.Equal(t, nil, err)
	assert.Equal(t, "merged", string(data))

	_, err = os.Stat(filepath.Join(outDir, "single_clips"))
	assert.Equal(t, true, os.IsNotExist(err))
}

func TestAssembleFailsWithoutClips(t *testing.T) {
	dir := t.TempDir()
	run := func(ctx context.Context, command string) (string, error) { return "", errors.New("no ffmpeg") }
	_, err := testAssembler(run).Assemble(context.Background(), Plan{
		Cards:     []string{touch(t, filepath.Join(dir, "c1.png"))},
		OutputDir: dir,
	})
	assert.Equal(t, true, errors.Is(err, ErrNoClips))
}

func TestAssembleStampsClipsAndOutputOnce(t *testing.T) {
	dir := t.TempDir()
	var merged string
	run := func(ctx context.Context, command string) (string, error) {
		if strings.Contains(command, "concat") {
			fields := strings.Fields(command)
			merged = strings.Trim(fields[len(fields)-1], "'")
			return "", os.WriteFile(merged, []byte("merged"), 0o644)
		}
		return "", nil
	}
	a := testAssembler(run)
	tick := time.Date(2025, 7, 17, 9, 59, 59, 0, time.UTC)
	a.Now = func() time.Time {
		now := tick
		tick = tick.Add(time.Second)
		return now
	}

	final, err := a.Assemble(context.Background(), Plan{
		Cards:     []string{touch(t, filepath.Join(dir, "c1.png"))},
		OutputDir: dir,
	})
	assert.Equal(t, nil, err)
	assert.Equal(t, "merged_parody_20250717_095959.mp4", filepath.Base(merged))
	assert.Equal(t, filepath.Join(dir, "ou_stock_parody_final_20250717_095959.mp4"), final)
}
