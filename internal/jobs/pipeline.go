package jobs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"stock-parody/manager-go/internal/utils"
)

// Runner is one stage of the pipeline.
type Runner interface {
	Run(ctx context.Context, jctx JobContext, opts JobOptions) error
}

type Step struct {
	Name string
	Job  Runner
}

// PipelineJob runs every stage in-process for a single run id, stopping at the
// first failure. Queues are bypassed.
type PipelineJob struct {
	Steps []Step
}

func NewPipelineJob(upload bool, webhook bool) PipelineJob {
	steps := []Step{
		{Name: "collect", Job: NewCollectJob()},
		{Name: "cards", Job: NewRenderCardsJob()},
		{Name: "video", Job: NewAssembleVideoJob()},
	}
	if upload {
		steps = append(steps, Step{Name: "youtube", Job: NewUploadYouTubeJob()})
		if webhook {
			steps = append(steps, Step{Name: "drive", Job: NewUploadDriveJob()})
		}
	}
	return PipelineJob{Steps: steps}
}

func (j PipelineJob) Run(ctx context.Context, jctx JobContext, opts JobOptions) error {
	logger := utils.Stage("pipeline")
	removed, err := removeVideos(videoDir(jctx.Config))
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Info("old videos removed", "count", removed)
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	local := jctx
	local.Queue = nil
	stepOpts := JobOptions{RunID: runID, DryRun: opts.DryRun}

	for i, step := range j.Steps {
		start := time.Now()
		logger.Info("step start", "step", step.Name, "n", i+1, "total", len(j.Steps), "run_id", runID)
		if err := step.Job.Run(ctx, local, stepOpts); err != nil {
			return fmt.Errorf("%s: %w", step.Name, err)
		}
		logger.Info("step done", "step", step.Name, "dur", time.Since(start).Truncate(time.Millisecond).String())
		if opts.DryRun && step.Name == "collect" {
			logger.Info("dry run, stopping after collect")
			return nil
		}
	}
	logger.Info("pipeline finished", "run_id", runID)
	return nil
}

// removeVideos deletes every .mp4 below dir. A missing dir is not an error.
func removeVideos(dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".mp4") {
			return nil
		}
		if err := os.Remove(path); err != nil {
			return err
		}
		count++
		return nil
	})
	return count, err
}
