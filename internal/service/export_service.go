package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskkeeper/internal/domain"
	"taskkeeper/internal/repository"
	"taskkeeper/internal/storage"
)

// ErrExportDisabled is returned when no export bucket is configured.
var ErrExportDisabled = errors.New("task export storage is not configured")

const exportLinkTTL = 15 * time.Minute

// Export describes a stored snapshot of one user's tasks.
type Export struct {
	Key       string
	Location  string
	URL       string
	Count     int
	CreatedAt time.Time
}

// ExportService writes and lists per-user task snapshots in object storage.
type ExportService interface {
	Export(ctx context.Context, owner *domain.User) (*Export, error)
	ListExports(ctx context.Context, owner *domain.User) ([]storage.ObjectInfo, error)
	DeleteExports(ctx context.Context, owner *domain.User) error
}

type exportService struct {
	tasks repository.TaskRepository
	store storage.Service
	opts  storage.UploadOptions
	now   func() time.Time
}

// NewExportService builds an ExportService. A nil store or an empty bucket
// yields a service whose methods all return ErrExportDisabled.
func NewExportService(tasks repository.TaskRepository, store storage.Service, opts storage.UploadOptions) ExportService {
	return &exportService{
		tasks: tasks,
		store: store,
		opts:  opts,
		now:   time.Now,
	}
}

type exportDocument struct {
	Username   string       `json:"username"`
	ExportedAt time.Time    `json:"exported_at"`
	Tasks      []exportTask `json:"tasks"`
}

type exportTask struct {
	ID          int64             `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      domain.TaskStatus `json:"status"`
	Priority    int               `json:"priority"`
	CreatedAt   time.Time         `json:"created_at"`
}

func (s *exportService) Export(ctx context.Context, owner *domain.User) (*Export, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	if err := requireOwner(owner); err != nil {
		return nil, err
	}

	tasks, err := s.tasks.List(ctx, owner.ID, repository.TaskFilter{})
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	doc := exportDocument{
		Username:   owner.Username,
		ExportedAt: now,
		Tasks:      make([]exportTask, len(tasks)),
	}
	for i, task := range tasks {
		doc.Tasks[i] = exportTask{
			ID:          task.ID,
			Title:       task.Title,
			Description: task.Description,
			Status:      task.Status,
			Priority:    task.Priority,
			CreatedAt:   task.CreatedAt,
		}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}

	key := path.Join(s.ownerPrefix(owner), fmt.Sprintf("%s-%s.json", now.Format("20060102T150405Z"), uuid.NewString()))
	location, err := s.store.PutObject(ctx, s.opts.Bucket, key, bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, err
	}

	export := &Export{
		Key:       key,
		Location:  location,
		Count:     len(tasks),
		CreatedAt: now,
	}
	// the snapshot is already stored; a missing link is not worth failing over
	if url, err := s.store.GetObjectURL(ctx, s.opts.Bucket, key, exportLinkTTL); err == nil {
		export.URL = url
	}
	return export, nil
}

func (s *exportService) ListExports(ctx context.Context, owner *domain.User) ([]storage.ObjectInfo, error) {
	if err := s.enabled(); err != nil {
		return nil, err
	}
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	objects, err := s.store.ListObjects(ctx, s.opts.Bucket, s.ownerPrefix(owner)+"/")
	if err != nil {
		return nil, err
	}
	if objects == nil {
		objects = []storage.ObjectInfo{}
	}
	return objects, nil
}

func (s *exportService) DeleteExports(ctx context.Context, owner *domain.User) error {
	if err := s.enabled(); err != nil {
		return err
	}
	if err := requireOwner(owner); err != nil {
		return err
	}
	return s.store.DeletePrefix(ctx, s.opts.Bucket, s.ownerPrefix(owner)+"/")
}

func (s *exportService) enabled() error {
	if s.store == nil || strings.TrimSpace(s.opts.Bucket) == "" {
		return ErrExportDisabled
	}
	return nil
}

// ownerPrefix keys exports by user id so renames or odd characters in
// usernames cannot collide.
func (s *exportService) ownerPrefix(owner *domain.User) string {
	prefix := strings.Trim(s.opts.KeyPrefix, "/")
	return path.Join(prefix, fmt.Sprintf("user-%d", owner.ID))
}
