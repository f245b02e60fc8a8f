package publish

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"stock-parody/manager-go/internal/utils"
)

type YouTube struct {
	svc *youtube.Service
}

func NewYouTube(ctx context.Context, client *http.Client, opts ...option.ClientOption) (*YouTube, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube client: %w", err)
	}
	return &YouTube{svc: svc}, nil
}

// Upload sends the video with its snippet and status and returns the new video id.
func (y *YouTube) Upload(ctx context.Context, path string, meta Metadata) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:       meta.Title,
			Description: meta.Description,
			Tags:        meta.Tags,
			CategoryId:  meta.CategoryID,
		},
		Status: &youtube.VideoStatus{PrivacyStatus: meta.Privacy},
	}
	utils.Stage("youtube").Info("uploading video", "file", path, "privacy", meta.Privacy)
	resp, err := y.svc.Videos.Insert([]string{"snippet", "status"}, video).
		Media(f).
		ProgressUpdater(func(current, total int64) {
			utils.Debug("youtube upload progress", "bytes", current, "total", total)
		}).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("youtube insert: %w", err)
	}
	return resp.Id, nil
}

func StudioURL(videoID string) string {
	return "https://studio.youtube.com/video/" + videoID + "/edit"
}

var videoIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{11}$`)

// ExtractYouTubeID accepts a bare id or a watch, short link, embed or shorts URL.
func ExtractYouTubeID(input string) string {
	input = strings.TrimSpace(input)
	if videoIDPattern.MatchString(input) {
		return input
	}

	parsed, err := url.Parse(input)
	if err != nil {
		return ""
	}

	switch parsed.Host {
	case "youtu.be":
		return strings.TrimPrefix(parsed.Path, "/")
	case "www.youtube.com", "youtube.com", "m.youtube.com":
		if strings.HasPrefix(parsed.Path, "/watch") {
			return parsed.Query().Get("v")
		}
		if strings.HasPrefix(parsed.Path, "/embed/") {
			return strings.TrimPrefix(parsed.Path, "/embed/")
		}
		if strings.HasPrefix(parsed.Path, "/shorts/") {
			return strings.TrimPrefix(parsed.Path, "/shorts/")
		}
	}
	return ""
}
