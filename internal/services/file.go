package services

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/guardpost/apiserver/internal/auth"
	"github.com/guardpost/apiserver/internal/storage"
	"github.com/guardpost/apiserver/internal/validation"
	"github.com/guardpost/apiserver/types"
	"go.uber.org/zap"
)

// FileRepository persists upload metadata.
type FileRepository interface {
	Get(ctx context.Context, id string) (types.FileUpload, error)
	List(ctx context.Context, filter types.FileFilter, offset, limit int) ([]types.FileUpload, int, error)
	Create(ctx context.Context, file types.FileUpload) (types.FileUpload, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStore is the subset of *storage.Storage used for uploads.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Upload describes an incoming file attached to an entity.
type Upload struct {
	EntityType  string
	EntityID    string
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// SharedLink is a time-limited download URL path.
type SharedLink struct {
	Path      string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// FileService stores uploads in object storage and their metadata in the
// entity store.
type FileService struct {
	repo     FileRepository
	objects  ObjectStore
	links    *LinkSigner
	activity *ActivityService
	logger   *zap.Logger
}

func NewFileService(repo FileRepository, objects ObjectStore, links *LinkSigner, activity *ActivityService, logger *zap.Logger) *FileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		repo:     repo,
		objects:  objects,
		links:    links,
		activity: activity,
		logger:   logger,
	}
}

func (s *FileService) List(ctx context.Context, filter types.FileFilter, offset, limit int) ([]types.FileUpload, int, error) {
	return s.repo.List(ctx, filter, offset, clampLimit(limit))
}

func (s *FileService) Get(ctx context.Context, id string) (types.FileUpload, error) {
	return s.repo.Get(ctx, id)
}

// Upload writes the object first and then the metadata row. If the row is
// rejected the object is removed again.
func (s *FileService) Upload(ctx context.Context, up Upload) (types.FileUpload, error) {
	file := types.FileUpload{
		ID:          uuid.NewString(),
		EntityType:  up.EntityType,
		EntityID:    up.EntityID,
		Filename:    strings.TrimSpace(up.Filename),
		ContentType: up.ContentType,
		SizeBytes:   up.Size,
	}
	if file.ContentType == "" {
		file.ContentType = "application/octet-stream"
	}
	if identity, ok := auth.IdentityFromContext(ctx); ok {
		file.UploadedBy = &identity.ID
	}
	if err := validation.Struct(file); err != nil {
		return types.FileUpload{}, err
	}
	file.ObjectKey = storage.ObjectKey(file.EntityType, file.EntityID, file.Filename)

	if err := s.objects.Put(ctx, file.ObjectKey, up.Body, up.Size, file.ContentType); err != nil {
		return types.FileUpload{}, fmt.Errorf("store object: %w", err)
	}

	created, err := s.repo.Create(ctx, file)
	if err != nil {
		if delErr := s.objects.Delete(context.WithoutCancel(ctx), file.ObjectKey); delErr != nil {
			s.logger.Warn("remove orphaned object", zap.String("key", file.ObjectKey), zap.Error(delErr))
		}
		return types.FileUpload{}, err
	}
	s.activity.Record(ctx, "upload", file.EntityType, file.EntityID, created.Filename)
	return created, nil
}

// Open returns the metadata and content of a file. The caller closes the
// reader.
func (s *FileService) Open(ctx context.Context, id string) (types.FileUpload, io.ReadCloser, error) {
	file, err := s.repo.Get(ctx, id)
	if err != nil {
		return types.FileUpload{}, nil, err
	}
	body, err := s.objects.Get(ctx, file.ObjectKey)
	if err != nil {
		return types.FileUpload{}, nil, err
	}
	return file, body, nil
}

// Delete removes the metadata row, then the object.
func (s *FileService) Delete(ctx context.Context, id string) error {
	file, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.objects.Delete(ctx, file.ObjectKey); err != nil {
		s.logger.Warn("delete object", zap.String("key", file.ObjectKey), zap.Error(err))
	}
	s.activity.Record(ctx, "delete", "file_upload", id, file.Filename)
	return nil
}

// Link issues a shared download link for an existing file.
func (s *FileService) Link(ctx context.Context, id string) (SharedLink, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return SharedLink{}, err
	}
	token, expires, err := s.links.Issue(id)
	if err != nil {
		return SharedLink{}, err
	}
	return SharedLink{Path: "/files/shared/" + token, ExpiresAt: expires}, nil
}

// OpenShared resolves a shared link token to the file content.
func (s *FileService) OpenShared(ctx context.Context, token string) (types.FileUpload, io.ReadCloser, error) {
	id, err := s.links.Parse(token)
	if err != nil {
		return types.FileUpload{}, nil, err
	}
	return s.Open(ctx, id)
}

var _ ObjectStore = (*storage.Storage)(nil)
