package store

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

type mockDocumentsAPI struct {
	mu sync.Mutex

	listDocs       []models.Document
	listPagination *models.Pagination
	listErr        error
	listParams     []map[string]string

	starredCalls []bool
	deleteErr    error
}

func (m *mockDocumentsAPI) ListDocuments(ctx context.Context, params map[string]string) ([]models.Document, *models.Pagination, error) {
	m.mu.Lock()
	m.listParams = append(m.listParams, params)
	m.mu.Unlock()
	if m.listErr != nil {
		return nil, nil, m.listErr
	}
	return m.listDocs, m.listPagination, nil
}

func (m *mockDocumentsAPI) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	for _, doc := range m.listDocs {
		if doc.ID == id {
			return &doc, nil
		}
	}
	return nil, appErrors.ErrNotFound
}

func (m *mockDocumentsAPI) DeleteDocument(ctx context.Context, id string) error {
	return m.deleteErr
}

func (m *mockDocumentsAPI) StarDocument(ctx context.Context, id string, starred bool) (*models.Document, error) {
	m.mu.Lock()
	m.starredCalls = append(m.starredCalls, starred)
	m.mu.Unlock()
	return &models.Document{ID: id, Starred: starred}, nil
}

func (m *mockDocumentsAPI) DownloadDocument(ctx context.Context, id string, w io.Writer) (string, error) {
	_, err := w.Write([]byte("content"))
	return "file.pdf", err
}

func (m *mockDocumentsAPI) listCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listParams)
}

func (m *mockDocumentsAPI) lastListParams() map[string]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.listParams) == 0 {
		return nil
	}
	return m.listParams[len(m.listParams)-1]
}

func seedDocs() []models.Document {
	return []models.Document{
		{ID: "d1", Title: "Council Minutes", Starred: false},
		{ID: "d2", Title: "Land Grants", Starred: true},
	}
}

func newTestDocumentStore(api *mockDocumentsAPI, debounce time.Duration) *DocumentStore {
	return NewDocumentStore(DocumentStoreParams{API: api, DebounceInterval: debounce})
}

func TestDocumentFetchAndFilters(t *testing.T) {
	api := &mockDocumentsAPI{
		listDocs:       seedDocs(),
		listPagination: &models.Pagination{Page: 1, Limit: 20, Total: 2, Pages: 1},
	}
	s := newTestDocumentStore(api, 0)
	s.SetPage(2)
	s.SetFilters(map[string]string{"category": "Legal", "starred": ""})

	docs, err := s.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	params := api.lastListParams()
	assert.Equal(t, "1", params["page"])
	assert.Equal(t, "Legal", params["category"])
	_, hasStarred := params["starred"]
	assert.False(t, hasStarred)
}

func TestSearchDebouncedCoalescesKeystrokes(t *testing.T) {
	api := &mockDocumentsAPI{listDocs: seedDocs()}
	s := newTestDocumentStore(api, 30*time.Millisecond)

	results := make(chan []models.Document, 1)
	s.SearchDebounced(context.Background(), "c", nil)
	s.SearchDebounced(context.Background(), "co", nil)
	s.SearchDebounced(context.Background(), "council", func(docs []models.Document, err error) {
		require.NoError(t, err)
		results <- docs
	})

	select {
	case docs := <-results:
		assert.Len(t, docs, 2)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced search never fired")
	}

	assert.Equal(t, 1, api.listCount(), "only the last keystroke may hit the wire")
	assert.Equal(t, "council", api.lastListParams()["search"])
	assert.Equal(t, "council", s.SearchQuery())
}

func TestSearchImmediateBypassesDebounce(t *testing.T) {
	api := &mockDocumentsAPI{listDocs: seedDocs()}
	s := newTestDocumentStore(api, time.Hour)

	docs, err := s.Search(context.Background(), "land")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
	assert.Equal(t, 1, api.listCount())
	assert.Equal(t, "land", api.lastListParams()["search"])
}

func TestToggleStarFlipsCurrentValue(t *testing.T) {
	api := &mockDocumentsAPI{listDocs: seedDocs()}
	s := newTestDocumentStore(api, 0)
	_, err := s.Fetch(context.Background(), nil)
	require.NoError(t, err)

	doc, err := s.ToggleStar(context.Background(), "d1")
	require.NoError(t, err)
	assert.True(t, doc.Starred)

	doc, err = s.ToggleStar(context.Background(), "d2")
	require.NoError(t, err)
	assert.False(t, doc.Starred)

	assert.Equal(t, []bool{true, false}, api.starredCalls)

	docs := s.Documents()
	assert.True(t, docs[0].Starred)
	assert.False(t, docs[1].Starred)
}

func TestToggleStarUnknownDocument(t *testing.T) {
	api := &mockDocumentsAPI{listDocs: seedDocs()}
	s := newTestDocumentStore(api, 0)

	_, err := s.ToggleStar(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, api.starredCalls, "no request for documents outside the collection")
}

func TestDocumentDeleteUpdatesCollection(t *testing.T) {
	api := &mockDocumentsAPI{
		listDocs:       seedDocs(),
		listPagination: &models.Pagination{Page: 1, Limit: 20, Total: 2, Pages: 1},
	}
	s := newTestDocumentStore(api, 0)
	_, err := s.Fetch(context.Background(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "d1"))
	docs := s.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, "d2", docs[0].ID)
	assert.Equal(t, 1, s.Pagination().Total)
}

func TestStaleDocumentResponseIsDiscarded(t *testing.T) {
	api := &mockDocumentsAPI{listDocs: seedDocs()}
	s := newTestDocumentStore(api, 0)

	params, generation := s.requestParams(nil, "")
	_ = params

	// A newer intent lands before the old response is applied.
	s.SetFilters(map[string]string{"category": "Legal"})
	s.apply(seedDocs(), nil, generation)

	assert.Empty(t, s.Documents())
}

func TestDebouncerStopCancelsPendingCall(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var fired int32
	var mu sync.Mutex

	d.Do(func() {
		mu.Lock()
		fired++
		mu.Unlock()
	})
	d.Stop()

	time.Sleep(80 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Zero(t, fired)
}
