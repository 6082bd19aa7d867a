package store

import (
	"context"
	"io"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

type documentsAPI interface {
	ListDocuments(ctx context.Context, params map[string]string) ([]models.Document, *models.Pagination, error)
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	StarDocument(ctx context.Context, id string, starred bool) (*models.Document, error)
	DownloadDocument(ctx context.Context, id string, w io.Writer) (string, error)
}

// DocumentStore caches the document collection with the same replacement and
// identity-merge contract as the user store, plus debounced search.
type DocumentStore struct {
	api      documentsAPI
	logger   *zap.Logger
	now      func() time.Time
	debounce *Debouncer

	mu            sync.Mutex
	items         []models.Document
	pagination    models.Pagination
	filters       map[string]string
	searchQuery   string
	lastFetchedAt time.Time
	generation    uint64
}

// DocumentStoreParams groups constructor dependencies.
type DocumentStoreParams struct {
	API              documentsAPI
	Logger           *zap.Logger
	DebounceInterval time.Duration
}

// NewDocumentStore constructs a DocumentStore with an empty collection.
func NewDocumentStore(params DocumentStoreParams) *DocumentStore {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DocumentStore{
		api:        params.API,
		logger:     logger,
		now:        time.Now,
		debounce:   NewDebouncer(params.DebounceInterval),
		pagination: models.Pagination{Page: 1, Limit: 20},
		filters:    map[string]string{},
	}
}

// Fetch loads a collection page, replacing the cached items wholesale.
func (s *DocumentStore) Fetch(ctx context.Context, options map[string]string) ([]models.Document, error) {
	params, generation := s.requestParams(options, s.SearchQuery())
	docs, pagination, err := s.api.ListDocuments(ctx, params)
	if err != nil {
		return nil, err
	}
	s.apply(docs, pagination, generation)
	return docs, nil
}

// Search fetches immediately for an explicit submit (enter key, CLI call).
func (s *DocumentStore) Search(ctx context.Context, query string) ([]models.Document, error) {
	s.mu.Lock()
	s.searchQuery = query
	s.pagination.Page = 1
	s.generation++
	s.mu.Unlock()
	return s.Fetch(ctx, nil)
}

// SearchDebounced schedules a search after the quiet interval; only the last
// query within the window triggers a request. done receives the outcome and
// may be nil.
func (s *DocumentStore) SearchDebounced(ctx context.Context, query string, done func([]models.Document, error)) {
	s.mu.Lock()
	s.searchQuery = query
	s.pagination.Page = 1
	s.generation++
	s.mu.Unlock()

	s.debounce.Do(func() {
		docs, err := s.Fetch(ctx, nil)
		if done != nil {
			done(docs, err)
		}
	})
}

// SetFilters replaces the filter map and resets the page to 1.
func (s *DocumentStore) SetFilters(filters map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = map[string]string{}
	for key, value := range filters {
		if value != "" {
			s.filters[key] = value
		}
	}
	s.pagination.Page = 1
	s.generation++
}

// SetPage moves to the given page; values below 1 clamp to 1.
func (s *DocumentStore) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Page = page
	s.generation++
}

// Get fetches one document without touching the cached collection.
func (s *DocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.api.GetDocument(ctx, id)
}

// ToggleStar flips the starred flag server-side and merges the result.
func (s *DocumentStore) ToggleStar(ctx context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	var current *models.Document
	for i := range s.items {
		if s.items[i].ID == id {
			current = &s.items[i]
			break
		}
	}
	if current == nil {
		s.mu.Unlock()
		return nil, appErrors.Clone(appErrors.ErrNotFound, "document is not in the loaded collection")
	}
	starred := !current.Starred
	s.mu.Unlock()

	doc, err := s.api.StarDocument(ctx, id, starred)
	if err != nil {
		return nil, err
	}
	s.mergeDocument(*doc)
	return doc, nil
}

// Delete removes a document from the backend and the cached collection.
func (s *DocumentStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteDocument(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if s.pagination.Total > 0 {
				s.pagination.Total--
			}
			break
		}
	}
	s.mu.Unlock()
	return nil
}

// Download streams the document content into w, returning the file name.
func (s *DocumentStore) Download(ctx context.Context, id string, w io.Writer) (string, error) {
	return s.api.DownloadDocument(ctx, id, w)
}

// Documents returns a copy of the cached collection.
func (s *DocumentStore) Documents() []models.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Document, len(s.items))
	copy(out, s.items)
	return out
}

// Pagination returns the current pagination metadata.
func (s *DocumentStore) Pagination() models.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// SearchQuery returns the tracked search term.
func (s *DocumentStore) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchQuery
}

// LastFetchedAt reports when the collection was last replaced.
func (s *DocumentStore) LastFetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetchedAt
}

func (s *DocumentStore) requestParams(options map[string]string, query string) (map[string]string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	params := map[string]string{
		"page":  strconv.Itoa(s.pagination.Page),
		"limit": strconv.Itoa(s.pagination.Limit),
	}
	for key, value := range s.filters {
		params[key] = value
	}
	if query != "" {
		params["search"] = query
	}
	for key, value := range options {
		params[key] = value
	}
	return params, s.generation
}

func (s *DocumentStore) apply(docs []models.Document, pagination *models.Pagination, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		s.logger.Debug("discarding stale document list response")
		return
	}
	s.items = docs
	if pagination != nil {
		s.pagination = *pagination
		if s.pagination.Page < 1 {
			s.pagination.Page = 1
		}
	}
	s.lastFetchedAt = s.now()
}

func (s *DocumentStore) mergeDocument(doc models.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == doc.ID {
			s.items[i] = doc
			return
		}
	}
}
