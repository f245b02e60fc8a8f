package jobs

import (
	"context"
	"fmt"
	"path/filepath"

	"stock-parody/manager-go/internal/db"
	"stock-parody/manager-go/internal/queue"
	"stock-parody/manager-go/internal/utils"
	"stock-parody/manager-go/internal/video"
)

type AssembleVideoJob struct {
	BaseJob
	Assembler *video.Assembler
}

func NewAssembleVideoJob() AssembleVideoJob {
	return AssembleVideoJob{
		BaseJob: BaseJob{
			QueueInput:  queue.Cards,
			QueueOutput: queue.Video,
		},
	}
}

func (j AssembleVideoJob) Run(ctx context.Context, jctx JobContext, opts JobOptions) error {
	if opts.Queue {
		return j.RunQueue(ctx, jctx, opts, func(ctx context.Context, runID string, hostname string) error {
			return j.process(ctx, jctx, runID)
		})
	}
	return j.process(ctx, jctx, resolveRunID(ctx, jctx, opts.RunID))
}

func (j AssembleVideoJob) process(ctx context.Context, jctx JobContext, runID string) error {
	logger := utils.Stage("video")
	cfg := jctx.Config
	cards, err := utils.SortedGlob(filepath.Join(cardDir(cfg), "*.png"))
	if err != nil {
		return err
	}
	if len(cards) == 0 {
		return fmt.Errorf("no card images in %s", cardDir(cfg))
	}

	assembler := j.Assembler
	if assembler == nil {
		assembler = video.NewAssembler(cfg.FFmpegPath)
	}
	final, err := assembler.Assemble(ctx, video.Plan{
		IntroImage:    cfg.IntroImage,
		IntroDuration: cfg.IntroDuration,
		Cards:         cards,
		CardDuration:  cfg.CardDuration,
		BGM:           cfg.BGMPath,
		OutputDir:     videoDir(cfg),
	})
	if err != nil {
		setStatus(ctx, jctx, runID, db.StatusFailed)
		return err
	}

	meta := map[string]any{"video": final}
	if seconds, err := assembler.MediaDuration(ctx, final); err == nil {
		meta["duration"] = seconds
		logger.Info("video duration", "seconds", seconds)
	} else {
		logger.Debug("duration lookup failed", "err", err)
	}
	setStatus(ctx, jctx, runID, db.StatusVideo)
	mergeMeta(ctx, jctx, runID, meta)
	return j.handoff(jctx, runID)
}
