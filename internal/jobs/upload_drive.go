package jobs

import (
	"context"
	"time"

	"stock-parody/manager-go/internal/publish"
	"stock-parody/manager-go/internal/queue"
	"stock-parody/manager-go/internal/utils"
)

// FileUploader is implemented by *publish.Drive.
type FileUploader interface {
	Upload(ctx context.Context, path string) (string, string, error)
}

type Notifier interface {
	Send(ctx context.Context, payload publish.WebhookPayload) error
}

// UploadDriveJob stores the video on Drive and hands its link to the webhook.
type UploadDriveJob struct {
	BaseJob
	Uploader FileUploader
	Notifier Notifier
	Now      func() time.Time
}

func NewUploadDriveJob() UploadDriveJob {
	return UploadDriveJob{
		BaseJob: BaseJob{QueueInput: queue.Uploaded},
		Now:     time.Now,
	}
}

func (j UploadDriveJob) Run(ctx context.Context, jctx JobContext, opts JobOptions) error {
	if opts.Queue {
		return j.RunQueue(ctx, jctx, opts, func(ctx context.Context, runID string, hostname string) error {
			return j.process(ctx, jctx, runID)
		})
	}
	return j.process(ctx, jctx, resolveRunID(ctx, jctx, opts.RunID))
}

func (j UploadDriveJob) process(ctx context.Context, jctx JobContext, runID string) error {
	logger := utils.Stage("drive")
	cfg := jctx.Config
	path, err := publish.PickLatestVideo(videoDir(cfg))
	if err != nil {
		return err
	}
	uploader, notifier, err := j.clients(ctx, jctx)
	if err != nil {
		return err
	}

	fileID, link, err := uploader.Upload(ctx, path)
	if err != nil {
		return err
	}
	logger.Info("drive upload done", "file_id", fileID, "url", link)

	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	payload := publish.WebhookPayload{
		Title:       now().In(location(cfg)).Format("2006-01-02") + " 자동증권뉴스",
		Description: "AI가 만든 자동증권 패러디 영상",
		VideoURL:    link,
	}
	if err := notifier.Send(ctx, payload); err != nil {
		return err
	}
	mergeMeta(ctx, jctx, runID, map[string]any{"drive_file_id": fileID, "drive_url": link})
	logger.Info("webhook notified", "run_id", runID)
	return nil
}

func (j UploadDriveJob) clients(ctx context.Context, jctx JobContext) (FileUploader, Notifier, error) {
	uploader, notifier := j.Uploader, j.Notifier
	if uploader != nil && notifier != nil {
		return uploader, notifier, nil
	}
	cfg := jctx.Config
	if err := cfg.ValidateDriveUpload(); err != nil {
		return nil, nil, err
	}
	if notifier == nil {
		notifier = publish.NewWebhook(cfg.WebhookURL)
	}
	if uploader == nil {
		client, err := publish.OAuthClient(ctx, cfg.YouTubeClientSecrets, cfg.YouTubeTokenFile, publish.ScopeDriveFile)
		if err != nil {
			return nil, nil, err
		}
		drive, err := publish.NewDrive(ctx, client, cfg.DriveFolderID)
		if err != nil {
			return nil, nil, err
		}
		uploader = drive
	}
	return uploader, notifier, nil
}
