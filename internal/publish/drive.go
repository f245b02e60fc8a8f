package publish

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

type Drive struct {
	svc      *drive.Service
	FolderID string
	// Public grants anyone-with-link read access so the webhook target can fetch the file.
	Public bool
}

func NewDrive(ctx context.Context, client *http.Client, folderID string, opts ...option.ClientOption) (*Drive, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(client)}, opts...)
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive client: %w", err)
	}
	return &Drive{svc: svc, FolderID: folderID, Public: true}, nil
}

// Upload stores the file and returns its id and direct download URL.
func (d *Drive) Upload(ctx context.Context, path string) (string, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", "", err
	}
	defer f.Close()

	file := &drive.File{Name: filepath.Base(path), MimeType: "video/mp4"}
	if d.FolderID != "" {
		file.Parents = []string{d.FolderID}
	}
	created, err := d.svc.Files.Create(file).Media(f).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", "", fmt.Errorf("drive create: %w", err)
	}
	if d.Public {
		perm := &drive.Permission{Type: "anyone", Role: "reader"}
		if _, err := d.svc.Permissions.Create(created.Id, perm).Context(ctx).Do(); err != nil {
			return created.Id, "", fmt.Errorf("drive share: %w", err)
		}
	}
	return created.Id, DownloadURL(created.Id), nil
}

func DownloadURL(fileID string) string {
	return "https://drive.google.com/uc?export=download&id=" + fileID
}
