package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/models"
)

type usersAPI interface {
	ListUsers(ctx context.Context, params map[string]string) ([]models.User, *models.Pagination, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, payload map[string]interface{}) (*models.User, error)
	UpdateUser(ctx context.Context, id string, payload map[string]interface{}) (*models.User, error)
	DeleteUser(ctx context.Context, id string) error
	UserStats(ctx context.Context) (*models.UserStats, error)
}

// UserStore caches the user collection plus a selection set for bulk actions.
// The collection is only ever replaced wholesale by a fetch; individual CRUD
// results are merged by identity so a concurrent refresh can't corrupt rows.
type UserStore struct {
	api    usersAPI
	logger *zap.Logger
	now    func() time.Time

	mu            sync.Mutex
	items         []models.User
	pagination    models.Pagination
	filters       map[string]string
	searchQuery   string
	lastFetchedAt time.Time
	selection     map[string]struct{}
	generation    uint64

	stats          *models.UserStats
	statsFetchedAt time.Time
	statsPolicy    StalenessPolicy
}

// UserStoreParams groups constructor dependencies.
type UserStoreParams struct {
	API      usersAPI
	Logger   *zap.Logger
	StatsTTL time.Duration
}

// NewUserStore constructs a UserStore with an empty collection.
func NewUserStore(params UserStoreParams) *UserStore {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserStore{
		api:         params.API,
		logger:      logger,
		now:         time.Now,
		pagination:  models.Pagination{Page: 1, Limit: 20},
		filters:     map[string]string{},
		selection:   map[string]struct{}{},
		statsPolicy: NewStalenessPolicy(params.StatsTTL),
	}
}

// Fetch loads a collection page. Options are merged over the stored
// pagination and filters; empty values never reach the wire. The response
// replaces the collection wholesale, but only when no newer fetch intent has
// been recorded in the meantime.
func (s *UserStore) Fetch(ctx context.Context, options map[string]string) ([]models.User, error) {
	params, generation := s.requestParams(options, "")
	users, pagination, err := s.api.ListUsers(ctx, params)
	if err != nil {
		return nil, err
	}
	s.apply(users, pagination, generation)
	return users, nil
}

// Search behaves like Fetch against the search-augmented listing, tracking
// the query separately from the filter map.
func (s *UserStore) Search(ctx context.Context, query string, options map[string]string) ([]models.User, error) {
	s.mu.Lock()
	s.searchQuery = query
	s.pagination.Page = 1
	s.generation++
	s.mu.Unlock()

	params, generation := s.requestParams(options, query)
	users, pagination, err := s.api.ListUsers(ctx, params)
	if err != nil {
		return nil, err
	}
	s.apply(users, pagination, generation)
	return users, nil
}

// SetFilters replaces the filter map and resets the page to 1.
func (s *UserStore) SetFilters(filters map[string]string) {
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
func (s *UserStore) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pagination.Page = page
	s.generation++
}

// Get fetches a single user without touching the cached collection.
func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	return s.api.GetUser(ctx, id)
}

// Create adds an account and prepends it to the cached collection.
func (s *UserStore) Create(ctx context.Context, payload map[string]interface{}) (*models.User, error) {
	user, err := s.api.CreateUser(ctx, payload)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.items = append([]models.User{*user}, s.items...)
	s.pagination.Total++
	s.mu.Unlock()
	return user, nil
}

// Update modifies an account and merges the result into the collection by
// identity match.
func (s *UserStore) Update(ctx context.Context, id string, payload map[string]interface{}) (*models.User, error) {
	user, err := s.api.UpdateUser(ctx, id, payload)
	if err != nil {
		return nil, err
	}
	s.mergeUser(*user)
	return user, nil
}

// Delete removes an account from the backend and the cached collection.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteUser(ctx, id); err != nil {
		return err
	}
	s.removeUser(id)
	return nil
}

// BulkUpdate applies the payload to every ID with one concurrent request per
// ID. Successes are merged individually as they land; after all requests
// settle, the selection is cleared for the IDs that succeeded and the first
// error (if any) is returned. There is no rollback.
func (s *UserStore) BulkUpdate(ctx context.Context, ids []string, payload map[string]interface{}) error {
	return s.bulk(ids, func(id string) error {
		user, err := s.api.UpdateUser(ctx, id, payload)
		if err != nil {
			return err
		}
		s.mergeUser(*user)
		return nil
	})
}

// BulkDelete removes every ID with one concurrent request per ID, with the
// same settlement contract as BulkUpdate.
func (s *UserStore) BulkDelete(ctx context.Context, ids []string) error {
	return s.bulk(ids, func(id string) error {
		if err := s.api.DeleteUser(ctx, id); err != nil {
			return err
		}
		s.removeUser(id)
		return nil
	})
}

func (s *UserStore) bulk(ids []string, op func(id string) error) error {
	type result struct {
		index int
		id    string
		err   error
	}

	results := make([]result, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(index int, id string) {
			defer wg.Done()
			results[index] = result{index: index, id: id, err: op(id)}
		}(i, id)
	}
	wg.Wait()

	var firstErr error
	s.mu.Lock()
	for _, r := range results {
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		delete(s.selection, r.id)
	}
	s.mu.Unlock()
	return firstErr
}

// Stats returns the cached aggregate counts, refreshing when stale or forced.
func (s *UserStore) Stats(ctx context.Context, forceRefresh bool) (*models.UserStats, error) {
	s.mu.Lock()
	if !forceRefresh && s.stats != nil && !s.statsPolicy.IsStale(s.statsFetchedAt) {
		cached := *s.stats
		s.mu.Unlock()
		return &cached, nil
	}
	s.mu.Unlock()

	stats, err := s.api.UserStats(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.stats = stats
	s.statsFetchedAt = s.now()
	s.mu.Unlock()
	return stats, nil
}

// Select marks an ID for bulk action. Selecting an unknown or already
// selected ID is a no-op, which keeps the set a subset of the collection.
func (s *UserStore) Select(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.items {
		if user.ID == id {
			s.selection[id] = struct{}{}
			return
		}
	}
}

// Deselect removes an ID from the selection.
func (s *UserStore) Deselect(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.selection, id)
}

// SelectAll recomputes the selection from the live collection.
func (s *UserStore) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = make(map[string]struct{}, len(s.items))
	for _, user := range s.items {
		s.selection[user.ID] = struct{}{}
	}
}

// ClearSelection empties the selection set.
func (s *UserStore) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection = map[string]struct{}{}
}

// Selected returns the selected IDs in stable order.
func (s *UserStore) Selected() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.selection))
	for id := range s.selection {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Users returns a copy of the cached collection.
func (s *UserStore) Users() []models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.User, len(s.items))
	copy(out, s.items)
	return out
}

// Pagination returns the current pagination metadata.
func (s *UserStore) Pagination() models.Pagination {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pagination
}

// LastFetchedAt reports when the collection was last replaced.
func (s *UserStore) LastFetchedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastFetchedAt
}

// SearchQuery returns the tracked search term.
func (s *UserStore) SearchQuery() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searchQuery
}

func (s *UserStore) requestParams(options map[string]string, query string) (map[string]string, uint64) {
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

// apply replaces the collection, unless a newer fetch intent (filter, page or
// search change) was recorded while this response was in flight.
func (s *UserStore) apply(users []models.User, pagination *models.Pagination, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		s.logger.Debug("discarding stale user list response")
		return
	}
	s.items = users
	if pagination != nil {
		s.pagination = *pagination
		if s.pagination.Page < 1 {
			s.pagination.Page = 1
		}
	}
	s.lastFetchedAt = s.now()

	present := make(map[string]struct{}, len(users))
	for _, user := range users {
		present[user.ID] = struct{}{}
	}
	for id := range s.selection {
		if _, ok := present[id]; !ok {
			delete(s.selection, id)
		}
	}
}

func (s *UserStore) mergeUser(user models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == user.ID {
			s.items[i] = user
			return
		}
	}
}

func (s *UserStore) removeUser(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			if s.pagination.Total > 0 {
				s.pagination.Total--
			}
			break
		}
	}
	delete(s.selection, id)
}
