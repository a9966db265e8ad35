package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"exam-room/internal/domain"
	"exam-room/internal/logger"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const folderMimeType = "application/vnd.google-apps.folder"

// DriveStore keeps blobs as files in named Google Drive folders. Images are
// shared with anyone holding the link so that their URL renders in a browser.
type DriveStore struct {
	svc      *drive.Service
	parentID string

	mu      sync.Mutex
	folders map[string]string
}

var _ domain.BlobStore = (*DriveStore)(nil)

func NewDriveStore(ctx context.Context, parentFolderID string, opts ...option.ClientOption) (*DriveStore, error) {
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveStore{svc: svc, parentID: parentFolderID, folders: make(map[string]string)}, nil
}

func (s *DriveStore) Put(ctx context.Context, folder, name, contentType string, data []byte) (string, error) {
	folderID, err := s.folderID(ctx, folder)
	if err != nil {
		return "", err
	}
	file, err := s.svc.Files.Create(&drive.File{
		Name:     name,
		MimeType: contentType,
		Parents:  []string{folderID},
	}).Media(bytes.NewReader(data)).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	if strings.HasPrefix(contentType, "image/") {
		_, err := s.svc.Permissions.Create(file.Id, &drive.Permission{Type: "anyone", Role: "reader"}).
			Context(ctx).Do()
		if err != nil {
			// The file is stored; only its public link is unavailable.
			logger.Get().Warn("Failed to share uploaded image", zap.String("fileId", file.Id), zap.Error(err))
		}
	}
	return file.Id, nil
}

func (s *DriveStore) Get(ctx context.Context, id string) (*domain.Blob, error) {
	meta, err := s.svc.Files.Get(id).Fields("id", "name", "mimeType").Context(ctx).Do()
	if err != nil {
		return nil, mapDriveError(id, err)
	}
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, mapDriveError(id, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read drive file %s: %w", id, err)
	}
	return &domain.Blob{ID: meta.Id, Name: meta.Name, ContentType: meta.MimeType, Data: data}, nil
}

func (s *DriveStore) URL(id string) string {
	return "https://lh3.googleusercontent.com/d/" + id
}

// folderID finds or creates a folder by name under the configured parent.
func (s *DriveStore) folderID(ctx context.Context, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.folders[name]; ok {
		return id, nil
	}

	q := fmt.Sprintf("name = '%s' and mimeType = '%s' and trashed = false",
		strings.ReplaceAll(name, "'", `\'`), folderMimeType)
	if s.parentID != "" {
		q += fmt.Sprintf(" and '%s' in parents", s.parentID)
	}
	list, err := s.svc.Files.List().Q(q).Fields("files(id)").PageSize(1).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to look up folder %s: %w", name, err)
	}
	if len(list.Files) > 0 {
		s.folders[name] = list.Files[0].Id
		return list.Files[0].Id, nil
	}

	folder := &drive.File{Name: name, MimeType: folderMimeType}
	if s.parentID != "" {
		folder.Parents = []string{s.parentID}
	}
	created, err := s.svc.Files.Create(folder).Fields("id").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create folder %s: %w", name, err)
	}
	s.folders[name] = created.Id
	return created.Id, nil
}

func mapDriveError(id string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %s", domain.ErrBlobNotFound, id)
	}
	return fmt.Errorf("failed to fetch drive file %s: %w", id, err)
}
