// Package video turns rendered cards into one vertical mp4 with ffmpeg.
package video

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"stock-parody/manager-go/internal/utils"
)

const (
	DefaultWidth         = 1080
	DefaultHeight        = 1920
	DefaultFPS           = 25
	DefaultIntroDuration = 2
	DefaultCardDuration  = 4

	outputPrefix = "ou_stock_parody_final_"
	stampLayout  = "20060102_150405"
)

var ErrNoClips = errors.New("no video clips were produced")

type Runner func(ctx context.Context, command string) (string, error)

type Assembler struct {
	FFmpeg string
	Width  int
	Height int
	FPS    int
	Run    Runner
	Now    func() time.Time
}

func NewAssembler(ffmpeg string) *Assembler {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Assembler{
		FFmpeg: ffmpeg,
		Width:  DefaultWidth,
		Height: DefaultHeight,
		FPS:    DefaultFPS,
		Run:    utils.RunCommandContext,
		Now:    time.Now,
	}
}

// Plan lists the inputs of one assembly. Durations are in whole seconds.
type Plan struct {
	IntroImage    string
	IntroDuration int
	Cards         []string
	CardDuration  int
	BGM           string
	OutputDir     string
}

// Assemble renders one clip per image, concatenates them and lays the music under
// the result. It returns the final video path.
func (a *Assembler) Assemble(ctx context.Context, plan Plan) (string, error) {
	logger := utils.Stage("video")
	if len(plan.Cards) == 0 {
		return "", fmt.Errorf("no card images to assemble")
	}
	now := a.Now()
	stamp := now.Format(stampLayout)
	clipDir := filepath.Join(plan.OutputDir, "single_clips")
	if err := utils.EnsureDir(clipDir); err != nil {
		return "", err
	}
	defer os.RemoveAll(clipDir)

	var clips []string
	total := 0
	if plan.IntroImage != "" && utils.FileExists(plan.IntroImage) {
		dur := positive(plan.IntroDuration, DefaultIntroDuration)
		out := filepath.Join(clipDir, fmt.Sprintf("intro_clip_%s.mp4", stamp))
		if _, err := a.Run(ctx, a.ClipCommand(plan.IntroImage, out, dur)); err != nil {
			logger.Error("intro clip failed", "err", err)
		} else {
			clips = append(clips, out)
			total += dur
		}
	} else {
		logger.Warn("intro image missing, skipping intro", "path", plan.IntroImage)
	}

	cardDur := positive(plan.CardDuration, DefaultCardDuration)
	for i, img := range plan.Cards {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		out := filepath.Join(clipDir, fmt.Sprintf("card_%02d_%s.mp4", i+1, stamp))
		if _, err := a.Run(ctx, a.ClipCommand(img, out, cardDur)); err != nil {
			logger.Error("card clip failed", "index", i+1, "image", img, "err", err)
			continue
		}
		logger.Info("card clip ready", "index", i+1, "total", len(plan.Cards))
		clips = append(clips, out)
		total += cardDur
	}
	if len(clips) == 0 {
		return "", ErrNoClips
	}

	list, err := ConcatList(clips)
	if err != nil {
		return "", err
	}
	listPath := filepath.Join(clipDir, "video_list.txt")
	if err := os.WriteFile(listPath, []byte(list), 0o644); err != nil {
		return "", err
	}
	merged := filepath.Join(clipDir, fmt.Sprintf("merged_parody_%s.mp4", stamp))
	if _, err := a.Run(ctx, a.ConcatCommand(listPath, merged)); err != nil {
		return "", fmt.Errorf("concat clips: %w", err)
	}

	final := filepath.Join(plan.OutputDir, OutputName(now))
	if plan.BGM != "" && utils.FileExists(plan.BGM) {
		if _, err := a.Run(ctx, a.MusicCommand(merged, plan.BGM, final, total)); err != nil {
			return "", fmt.Errorf("add background music: %w", err)
		}
	} else {
		logger.Warn("background music missing, keeping silent video", "path", plan.BGM)
		if err := utils.CopyFile(merged, final); err != nil {
			return "", err
		}
	}
	logger.Info("video ready", "path", final, "clips", len(clips), "seconds", total)
	return final, nil
}

func (a *Assembler) ClipCommand(img, out string, seconds int) string {
	filter := fmt.Sprintf("zoompan=z='min(zoom+0.001,1.05)':d=%d:s=%dx%d", seconds*a.fps(), a.Width, a.Height)
	return utils.ShellJoin(a.FFmpeg, "-y", "-loop", "1", "-i", img,
		"-t", strconv.Itoa(seconds),
		"-vf", filter,
		"-c:v", "libx264", "-pix_fmt", "yuv420p", out)
}

func (a *Assembler) ConcatCommand(listPath, out string) string {
	return utils.ShellJoin(a.FFmpeg, "-y", "-f", "concat", "-safe", "0", "-i", listPath, "-c", "copy", out)
}

// MusicCommand loops bgm under video with a one second fade at both ends.
func (a *Assembler) MusicCommand(video, bgm, out string, totalSeconds int) string {
	fadeOut := totalSeconds - 1
	if fadeOut < 0 {
		fadeOut = 0
	}
	filter := fmt.Sprintf("[1:a]volume=0.4,afade=t=in:st=0:d=1,afade=t=out:st=%d:d=1[a]", fadeOut)
	return utils.ShellJoin(a.FFmpeg, "-y", "-i", video,
		"-stream_loop", "-1", "-i", bgm,
		"-filter_complex", filter,
		"-map", "0:v", "-map", "[a]",
		"-c:v", "copy", "-c:a", "aac", "-b:a", "192k",
		"-shortest", out)
}

// ConcatList builds the input file of ffmpeg's concat demuxer with absolute paths.
func ConcatList(paths []string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return "", err
		}
		b.WriteString("file '")
		b.WriteString(strings.ReplaceAll(abs, "'", `'\''`))
		b.WriteString("'\n")
	}
	return b.String(), nil
}

func OutputName(t time.Time) string {
	return outputPrefix + t.Format(stampLayout) + ".mp4"
}

var durationPattern = regexp.MustCompile(`Duration: (\d+):(\d+):(\d+\.\d+)`)

// ParseDuration reads the seconds from ffmpeg's "Duration: HH:MM:SS.ss" banner.
func ParseDuration(output string) (float64, error) {
	matches := durationPattern.FindStringSubmatch(output)
	if len(matches) < 4 {
		return 0, errors.New("duration not found")
	}
	hours, _ := strconv.Atoi(matches[1])
	minutes, _ := strconv.Atoi(matches[2])
	seconds, _ := strconv.ParseFloat(matches[3], 64)
	return float64(hours*3600+minutes*60) + seconds, nil
}

func (a *Assembler) MediaDuration(ctx context.Context, path string) (float64, error) {
	// ffmpeg exits non-zero without an output file; the banner is still printed.
	output, _ := a.Run(ctx, utils.ShellJoin(a.FFmpeg, "-i", path)+" 2>&1 | grep Duration")
	return ParseDuration(output)
}

func (a *Assembler) fps() int {
	return positive(a.FPS, DefaultFPS)
}

func positive(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
