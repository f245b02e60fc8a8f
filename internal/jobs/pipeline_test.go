package jobs

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-playground/assert/v2"

	"stock-parody/manager-go/internal/config"
)

type fakeStep struct {
	err  error
	runs []JobOptions
}

func (f *fakeStep) Run(ctx context.Context, jctx JobContext, opts JobOptions) error {
	f.runs = append(f.runs, opts)
	return f.err
}

func TestPipelineStopsAtFirstFailure(t *testing.T) {
	collect, cards, video := &fakeStep{}, &fakeStep{err: errors.New("font missing")}, &fakeStep{}
	job := PipelineJob{Steps: []Step{
		{Name: "collect", Job: collect},
		{Name: "cards", Job: cards},
		{Name: "video", Job: video},
	}}

	err := job.Run(context.Background(), JobContext{Config: config.Config{BaseOutputFolder: t.TempDir()}}, JobOptions{RunID: "run-1"})
	assert.Equal(t, "cards: font missing", err.Error())
	assert.Equal(t, 1, len(collect.runs))
	assert.Equal(t, 1, len(cards.runs))
	assert.Equal(t, 0, len(video.runs))
	assert.Equal(t, "run-1", cards.runs[0].RunID)
}

func TestPipelineSharesGeneratedRunID(t *testing.T) {
	first, second := &fakeStep{}, &fakeStep{}
	job := PipelineJob{Steps: []Step{{Name: "a", Job: first}, {Name: "b", Job: second}}}

	err := job.Run(context.Background(), JobContext{Config: config.Config{BaseOutputFolder: t.TempDir()}}, JobOptions{})
	assert.Equal(t, nil, err)
	assert.NotEqual(t, "", first.runs[0].RunID)
	assert.Equal(t, first.runs[0].RunID, second.runs[0].RunID)
}

func TestPipelineRemovesOldVideos(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, "parody_video")
	assert.Equal(t, nil, os.MkdirAll(filepath.Join(dir, "old"), 0o755))
	for _, name := range []string{"a.mp4", "old/b.MP4", "keep.txt"} {
		assert.Equal(t, nil, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	err := PipelineJob{}.Run(context.Background(), JobContext{Config: config.Config{BaseOutputFolder: base}}, JobOptions{})
	assert.Equal(t, nil, err)

	left, _ := filepath.Glob(filepath.Join(dir, "*"))
	assert.Equal(t, []string{filepath.Join(dir, "keep.txt"), filepath.Join(dir, "old")}, left)
}

func TestNewPipelineJobSteps(t *testing.T) {
	names := func(p PipelineJob) []string {
		var out []string
		for _, s := range p.Steps {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{"collect", "cards", "video"}, names(NewPipelineJob(false, true)))
	assert.Equal(t, []string{"collect", "cards", "video", "youtube"}, names(NewPipelineJob(true, false)))
	assert.Equal(t, []string{"collect", "cards", "video", "youtube", "drive"}, names(NewPipelineJob(true, true)))
}
