package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"stock-parody/manager-go/internal/db"
	"stock-parody/manager-go/internal/publish"
	"stock-parody/manager-go/internal/queue"
	"stock-parody/manager-go/internal/utils"
)

// VideoUploader is implemented by *publish.YouTube.
type VideoUploader interface {
	Upload(ctx context.Context, path string, meta publish.Metadata) (string, error)
}

type UploadYouTubeJob struct {
	BaseJob
	Uploader VideoUploader
	Now      func() time.Time
	// Prompt asks for a manually uploaded video id in --info mode.
	Prompt func(message string) (string, error)
}

func NewUploadYouTubeJob() UploadYouTubeJob {
	return UploadYouTubeJob{
		BaseJob: BaseJob{
			QueueInput:  queue.Video,
			QueueOutput: queue.Uploaded,
		},
		Now:    time.Now,
		Prompt: utils.Prompt,
	}
}

func (j UploadYouTubeJob) Run(ctx context.Context, jctx JobContext, opts JobOptions) error {
	if opts.Queue {
		return j.RunQueue(ctx, jctx, opts, func(ctx context.Context, runID string, hostname string) error {
			return j.process(ctx, jctx, runID, opts.Info)
		})
	}
	return j.process(ctx, jctx, resolveRunID(ctx, jctx, opts.RunID), opts.Info)
}

func (j UploadYouTubeJob) metadata(jctx JobContext) (publish.Metadata, error) {
	cfg := jctx.Config
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	meta, err := publish.LoadMetadata(cfg.YouTubeMetadataFile, publish.NewTemplateData(now().In(location(cfg)), cfg.Disclaimer))
	if err != nil {
		return publish.Metadata{}, err
	}
	if cfg.YouTubePrivacy != "" {
		meta.Privacy = cfg.YouTubePrivacy
	}
	if cfg.YouTubeCategory != "" {
		meta.CategoryID = cfg.YouTubeCategory
	}
	return meta, nil
}

func (j UploadYouTubeJob) process(ctx context.Context, jctx JobContext, runID string, info bool) error {
	logger := utils.Stage("youtube")
	cfg := jctx.Config
	path, err := publish.PickLatestVideo(videoDir(cfg))
	if err != nil {
		return err
	}
	meta, err := j.metadata(jctx)
	if err != nil {
		return err
	}
	logger.Info("upload candidate", "run_id", runID, "file", path)

	var videoID string
	if info {
		fmt.Printf("File: %s\nTitle: %s\nDescription:\n%s\n", path, meta.Title, meta.Description)
		fmt.Printf("Category: %s\nTags: %v\nPrivacy status: %s\n", meta.CategoryID, meta.Tags, meta.Privacy)
		input, err := j.Prompt("Enter video ID or URL")
		if err != nil {
			return err
		}
		videoID = publish.ExtractYouTubeID(input)
		if videoID == "" {
			return errors.New("invalid YouTube video ID or URL")
		}
	} else {
		uploader, err := j.uploader(ctx, jctx)
		if err != nil {
			return err
		}
		if videoID, err = uploader.Upload(ctx, path, meta); err != nil {
			setStatus(ctx, jctx, runID, db.StatusFailed)
			return err
		}
	}

	logger.Info("video uploaded", "video_id", videoID, "studio", publish.StudioURL(videoID))
	setStatus(ctx, jctx, runID, db.StatusUploaded)
	runMeta := map[string]any{"youtube_video_id": videoID, "video_file": path}
	if sum, err := utils.SHA256File(path); err == nil {
		runMeta["video_sha256"] = sum
	}
	mergeMeta(ctx, jctx, runID, runMeta)
	return j.handoff(jctx, runID)
}

func (j UploadYouTubeJob) uploader(ctx context.Context, jctx JobContext) (VideoUploader, error) {
	if j.Uploader != nil {
		return j.Uploader, nil
	}
	cfg := jctx.Config
	if err := cfg.ValidateUpload(); err != nil {
		return nil, err
	}
	client, err := publish.OAuthClient(ctx, cfg.YouTubeClientSecrets, cfg.YouTubeTokenFile, publish.ScopeYouTubeUpload)
	if err != nil {
		return nil, err
	}
	return publish.NewYouTube(ctx, client)
}
