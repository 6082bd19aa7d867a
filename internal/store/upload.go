package store

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/api"
	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

type documentUploader interface {
	UploadDocument(ctx context.Context, file io.Reader, size int64, filename string, fields map[string]string, progress api.ProgressFunc) (*models.Document, error)
}

// UploadManager queues files and pushes them through the
// pending → uploading → completed|error lifecycle. Items are processed
// sequentially so a large batch doesn't flood the backend; completed items
// are pruned automatically after a short delay.
type UploadManager struct {
	api    documentUploader
	logger *zap.Logger

	maxFileSize    int64
	allowedMIMEs   map[string]struct{}
	categories     []string
	autoClearDelay time.Duration
	previewLimit   int64

	mu    sync.Mutex
	items []*models.UploadItem
}

// UploadManagerParams groups constructor dependencies.
type UploadManagerParams struct {
	API              documentUploader
	Logger           *zap.Logger
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	Categories       []string
	AutoClearDelay   time.Duration
}

// NewUploadManager constructs an empty upload queue.
func NewUploadManager(params UploadManagerParams) *UploadManager {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	allowed := make(map[string]struct{}, len(params.AllowedMIMEs))
	for _, m := range params.AllowedMIMEs {
		allowed[m] = struct{}{}
	}
	maxSize := params.MaxFileSizeBytes
	if maxSize <= 0 {
		maxSize = 50 * 1024 * 1024
	}
	delay := params.AutoClearDelay
	if delay <= 0 {
		delay = 3 * time.Second
	}
	categories := params.Categories
	if len(categories) == 0 {
		categories = []string{"Administrative"}
	}
	return &UploadManager{
		api:            params.API,
		logger:         logger,
		maxFileSize:    maxSize,
		allowedMIMEs:   allowed,
		categories:     categories,
		autoClearDelay: delay,
		previewLimit:   5 * 1024 * 1024,
	}
}

// Add queues a file. Metadata defaults come from the session (department) and
// the first configured category; image files get an asynchronous preview that
// never blocks the upload.
func (m *UploadManager) Add(path string, session *models.Session) (*models.UploadItem, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is not readable")
	}
	if info.IsDir() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "directories cannot be uploaded")
	}
	if info.Size() > m.maxFileSize {
		return nil, appErrors.Clone(appErrors.ErrFileTooLarge, fmt.Sprintf("%s exceeds the %d byte limit", info.Name(), m.maxFileSize))
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if idx := strings.Index(mimeType, ";"); idx >= 0 {
		mimeType = mimeType[:idx]
	}
	if len(m.allowedMIMEs) > 0 {
		if _, ok := m.allowedMIMEs[mimeType]; !ok {
			return nil, appErrors.Clone(appErrors.ErrUnsupportedMedia, fmt.Sprintf("%q is not an accepted file type", mimeType))
		}
	}

	name := info.Name()
	item := &models.UploadItem{
		ID:       uuid.NewString(),
		Path:     path,
		FileName: name,
		Size:     info.Size(),
		MIMEType: mimeType,
		Status:   models.UploadPending,
		Metadata: models.DocumentMetadata{
			Title:    strings.TrimSuffix(name, filepath.Ext(name)),
			Category: m.categories[0],
		},
	}
	if session != nil {
		item.Metadata.Department = session.User.Department
	}

	m.mu.Lock()
	m.items = append(m.items, item)
	m.mu.Unlock()

	if strings.HasPrefix(mimeType, "image/") {
		go m.generatePreview(item.ID, path, mimeType)
	}

	snapshot := *item
	return &snapshot, nil
}

// SetMetadata replaces the metadata of a queued item.
func (m *UploadManager) SetMetadata(id string, metadata models.DocumentMetadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			if item.Status != models.UploadPending {
				return appErrors.Clone(appErrors.ErrConflict, "item is no longer editable")
			}
			item.Metadata = metadata
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "upload item not found")
}

// Remove dismisses an item regardless of its status.
func (m *UploadManager) Remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.ID == id {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return
		}
	}
}

// Items returns a snapshot of the queue.
func (m *UploadManager) Items() []models.UploadItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.UploadItem, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out
}

// Run uploads every pending item in order and returns the batch summary.
// Failures mark the individual item and never abort the run.
func (m *UploadManager) Run(ctx context.Context) models.UploadSummary {
	summary := models.UploadSummary{}
	for {
		item := m.nextPending()
		if item == nil {
			break
		}
		if err := m.uploadOne(ctx, item.ID); err != nil {
			summary.Failed++
			m.logger.Warn("upload failed",
				zap.String("file", item.FileName),
				zap.Error(err),
			)
			continue
		}
		summary.Succeeded++
	}
	m.logger.Info("upload batch finished",
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
	)
	return summary
}

func (m *UploadManager) nextPending() *models.UploadItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.Status == models.UploadPending {
			snapshot := *item
			return &snapshot
		}
	}
	return nil
}

func (m *UploadManager) uploadOne(ctx context.Context, id string) error {
	m.transition(id, models.UploadUploading, 0, "")

	item := m.find(id)
	if item == nil {
		return appErrors.Clone(appErrors.ErrNotFound, "upload item vanished")
	}

	file, err := os.Open(item.Path)
	if err != nil {
		m.transition(id, models.UploadError, 0, "file is not readable")
		return err
	}
	defer file.Close()

	fields := map[string]string{
		"title":      item.Metadata.Title,
		"category":   item.Metadata.Category,
		"department": item.Metadata.Department,
		"keywords":   strings.Join(item.Metadata.Keywords, ","),
		"tags":       strings.Join(item.Metadata.Tags, ","),
	}
	if item.Metadata.IsPublic {
		fields["is_public"] = "true"
	}

	doc, err := m.api.UploadDocument(ctx, file, item.Size, item.FileName, fields, func(percent int) {
		m.setProgress(id, percent)
	})
	if err != nil {
		m.transition(id, models.UploadError, 0, appErrors.FromError(err).Message)
		return err
	}

	m.complete(id, doc)
	time.AfterFunc(m.autoClearDelay, func() { m.pruneCompleted(id) })
	return nil
}

func (m *UploadManager) find(id string) *models.UploadItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			snapshot := *item
			return &snapshot
		}
	}
	return nil
}

func (m *UploadManager) transition(id string, status models.UploadStatus, progress int, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			item.Status = status
			item.Progress = progress
			item.Error = message
			return
		}
	}
}

// setProgress only ever raises the value, so the bar never moves backwards.
func (m *UploadManager) setProgress(id string, percent int) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			if item.Status == models.UploadUploading && percent > item.Progress {
				item.Progress = percent
			}
			return
		}
	}
}

func (m *UploadManager) complete(id string, doc *models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			item.Status = models.UploadCompleted
			item.Progress = 100
			item.Error = ""
			item.Document = doc
			return
		}
	}
}

// pruneCompleted removes the item only if it is still completed; an item the
// user already dismissed or re-queued is left alone.
func (m *UploadManager) pruneCompleted(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.items {
		if item.ID == id && item.Status == models.UploadCompleted {
			m.items = append(m.items[:i], m.items[i+1:]...)
			return
		}
	}
}

func (m *UploadManager) generatePreview(id, path, mimeType string) {
	info, err := os.Stat(path)
	if err != nil || info.Size() > m.previewLimit {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		m.logger.Debug("preview generation failed", zap.String("path", path), zap.Error(err))
		return
	}
	preview := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range m.items {
		if item.ID == id {
			item.Preview = preview
			return
		}
	}
}
