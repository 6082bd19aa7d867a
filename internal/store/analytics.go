package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/models"
)

type analyticsAPI interface {
	DashboardAnalytics(ctx context.Context) (*models.DashboardAnalytics, error)
	DetailedAnalytics(ctx context.Context, timeRange string) (*models.DetailedAnalytics, error)
	UserAnalytics(ctx context.Context) (*models.UserAnalytics, error)
	SystemHealth(ctx context.Context) (*models.SystemHealth, error)
	ActivityLog(ctx context.Context, page, limit int) (*models.ActivityLog, error)
}

// DefaultDetailedRange is used when no range has been requested yet.
const DefaultDetailedRange = "7d"

// AnalyticsStore caches every analytics facet with an independent freshness
// mark. Only the dashboard facet has an automatic staleness window; the other
// facets refresh on demand.
type AnalyticsStore struct {
	api    analyticsAPI
	logger *zap.Logger
	now    func() time.Time
	policy StalenessPolicy

	mu         sync.Mutex
	snapshot   models.AnalyticsSnapshot
	lastRange  string
	refreshing bool
}

// AnalyticsStoreParams groups constructor dependencies.
type AnalyticsStoreParams struct {
	API          analyticsAPI
	Logger       *zap.Logger
	DashboardTTL time.Duration
}

// NewAnalyticsStore constructs an AnalyticsStore with an empty snapshot.
func NewAnalyticsStore(params AnalyticsStoreParams) *AnalyticsStore {
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AnalyticsStore{
		api:       params.API,
		logger:    logger,
		now:       time.Now,
		lastRange: DefaultDetailedRange,
	}
	s.policy = NewStalenessPolicy(params.DashboardTTL)
	s.policy.Now = func() time.Time { return s.now() }
	return s
}

// FetchDashboard returns the dashboard snapshot. Unless forceRefresh is set,
// a cached snapshot younger than the staleness window is served without a
// network request.
func (s *AnalyticsStore) FetchDashboard(ctx context.Context, forceRefresh bool) (*models.DashboardAnalytics, error) {
	s.mu.Lock()
	if !forceRefresh && s.snapshot.Dashboard != nil && !s.policy.IsStale(s.snapshot.DashboardUpdated) {
		cached := *s.snapshot.Dashboard
		s.mu.Unlock()
		return &cached, nil
	}
	s.mu.Unlock()

	dashboard, err := s.api.DashboardAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshot.Dashboard = dashboard
	s.snapshot.DashboardUpdated = s.now()
	s.mu.Unlock()
	return dashboard, nil
}

// DashboardStale reports whether the cached dashboard has aged out; callers
// render it as a "data may be stale" hint, not an error.
func (s *AnalyticsStore) DashboardStale() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.policy.IsStale(s.snapshot.DashboardUpdated)
}

// FetchDetailed loads range-scoped series and remembers the range for
// subsequent refreshes.
func (s *AnalyticsStore) FetchDetailed(ctx context.Context, timeRange string) (*models.DetailedAnalytics, error) {
	if timeRange == "" {
		timeRange = DefaultDetailedRange
	}
	detailed, err := s.api.DetailedAnalytics(ctx, timeRange)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshot.Detailed = detailed
	s.snapshot.DetailedUpdated = s.now()
	s.lastRange = timeRange
	s.mu.Unlock()
	return detailed, nil
}

// FetchUserAnalytics loads account activity aggregates.
func (s *AnalyticsStore) FetchUserAnalytics(ctx context.Context) (*models.UserAnalytics, error) {
	users, err := s.api.UserAnalytics(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshot.Users = users
	s.snapshot.UsersUpdated = s.now()
	s.mu.Unlock()
	return users, nil
}

// FetchSystemHealth loads backend liveness indicators.
func (s *AnalyticsStore) FetchSystemHealth(ctx context.Context) (*models.SystemHealth, error) {
	health, err := s.api.SystemHealth(ctx)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshot.Health = health
	s.snapshot.HealthUpdated = s.now()
	s.mu.Unlock()
	return health, nil
}

// FetchActivity loads one page of the platform-wide activity feed.
func (s *AnalyticsStore) FetchActivity(ctx context.Context, page, limit int) (*models.ActivityLog, error) {
	activity, err := s.api.ActivityLog(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.snapshot.Activity = activity
	s.snapshot.ActivityUpdated = s.now()
	s.mu.Unlock()
	return activity, nil
}

// RefreshAll refetches every facet concurrently under a single loading flag.
// Individual failures are logged, not surfaced, so one broken facet doesn't
// block the rest.
func (s *AnalyticsStore) RefreshAll(ctx context.Context) models.AnalyticsSnapshot {
	s.mu.Lock()
	timeRange := s.lastRange
	s.refreshing = true
	s.mu.Unlock()

	var wg sync.WaitGroup
	facets := []struct {
		name string
		run  func() error
	}{
		{"dashboard", func() error { _, err := s.FetchDashboard(ctx, true); return err }},
		{"detailed", func() error { _, err := s.FetchDetailed(ctx, timeRange); return err }},
		{"users", func() error { _, err := s.FetchUserAnalytics(ctx); return err }},
		{"health", func() error { _, err := s.FetchSystemHealth(ctx); return err }},
		{"activity", func() error { _, err := s.FetchActivity(ctx, 1, 20); return err }},
	}
	for _, facet := range facets {
		wg.Add(1)
		go func(name string, run func() error) {
			defer wg.Done()
			if err := run(); err != nil {
				s.logger.Warn("analytics facet refresh failed", zap.String("facet", name), zap.Error(err))
			}
		}(facet.name, facet.run)
	}
	wg.Wait()

	s.mu.Lock()
	s.refreshing = false
	snapshot := s.snapshot
	s.mu.Unlock()
	return snapshot
}

// Refreshing reports whether a RefreshAll run is in flight.
func (s *AnalyticsStore) Refreshing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshing
}

// Snapshot returns the current facet collection.
func (s *AnalyticsStore) Snapshot() models.AnalyticsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// TimeAgo renders the age of a timestamp against the store clock.
func (s *AnalyticsStore) TimeAgo(t time.Time) string {
	return FormatTimeAgo(t, s.now())
}

// FormatTimeAgo buckets an age into the fixed labels the views rely on:
// under a minute is "Just now", then minutes, then hours, then days, with
// exactly 24 hours rendering as "1 day ago".
func FormatTimeAgo(t, now time.Time) string {
	delta := now.Sub(t)
	switch {
	case delta < time.Minute:
		return "Just now"
	case delta < time.Hour:
		return pluralize(int(delta.Minutes()), "minute")
	case delta < 24*time.Hour:
		return pluralize(int(delta.Hours()), "hour")
	default:
		return pluralize(int(delta.Hours()/24), "day")
	}
}

func pluralize(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
