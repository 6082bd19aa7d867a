package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

type mockAnalyticsAPI struct {
	mu sync.Mutex

	dashboard    *models.DashboardAnalytics
	dashboardErr error
	detailed     *models.DetailedAnalytics
	detailedErr  error
	users        *models.UserAnalytics
	health       *models.SystemHealth
	activity     *models.ActivityLog

	dashboardCalls int
	detailedRanges []string
}

func (m *mockAnalyticsAPI) DashboardAnalytics(ctx context.Context) (*models.DashboardAnalytics, error) {
	m.mu.Lock()
	m.dashboardCalls++
	m.mu.Unlock()
	if m.dashboardErr != nil {
		return nil, m.dashboardErr
	}
	return m.dashboard, nil
}

func (m *mockAnalyticsAPI) DetailedAnalytics(ctx context.Context, timeRange string) (*models.DetailedAnalytics, error) {
	m.mu.Lock()
	m.detailedRanges = append(m.detailedRanges, timeRange)
	m.mu.Unlock()
	if m.detailedErr != nil {
		return nil, m.detailedErr
	}
	return m.detailed, nil
}

func (m *mockAnalyticsAPI) UserAnalytics(ctx context.Context) (*models.UserAnalytics, error) {
	return m.users, nil
}

func (m *mockAnalyticsAPI) SystemHealth(ctx context.Context) (*models.SystemHealth, error) {
	return m.health, nil
}

func (m *mockAnalyticsAPI) ActivityLog(ctx context.Context, page, limit int) (*models.ActivityLog, error) {
	return m.activity, nil
}

func newTestAnalyticsStore(api *mockAnalyticsAPI) (*AnalyticsStore, *time.Time) {
	s := NewAnalyticsStore(AnalyticsStoreParams{API: api, DashboardTTL: 5 * time.Minute})
	current := time.Now()
	s.now = func() time.Time { return current }
	return s, &current
}

func TestDashboardServedFromCacheWithinTTL(t *testing.T) {
	api := &mockAnalyticsAPI{dashboard: &models.DashboardAnalytics{TotalDocuments: 3}}
	s, _ := newTestAnalyticsStore(api)
	ctx := context.Background()

	_, err := s.FetchDashboard(ctx, false)
	require.NoError(t, err)
	_, err = s.FetchDashboard(ctx, false)
	require.NoError(t, err)

	assert.Equal(t, 1, api.dashboardCalls)
	assert.False(t, s.DashboardStale())
}

func TestDashboardRefetchedWhenStale(t *testing.T) {
	api := &mockAnalyticsAPI{dashboard: &models.DashboardAnalytics{}}
	s, clock := newTestAnalyticsStore(api)
	ctx := context.Background()

	_, err := s.FetchDashboard(ctx, false)
	require.NoError(t, err)

	*clock = clock.Add(5 * time.Minute)
	assert.True(t, s.DashboardStale())

	_, err = s.FetchDashboard(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 2, api.dashboardCalls)
}

func TestDashboardForceBypassesCache(t *testing.T) {
	api := &mockAnalyticsAPI{dashboard: &models.DashboardAnalytics{}}
	s, _ := newTestAnalyticsStore(api)
	ctx := context.Background()

	_, err := s.FetchDashboard(ctx, false)
	require.NoError(t, err)
	_, err = s.FetchDashboard(ctx, true)
	require.NoError(t, err)

	assert.Equal(t, 2, api.dashboardCalls)
}

func TestEmptyCacheIsAlwaysStale(t *testing.T) {
	api := &mockAnalyticsAPI{dashboard: &models.DashboardAnalytics{}}
	s, _ := newTestAnalyticsStore(api)

	assert.True(t, s.DashboardStale())
}

func TestFetchDetailedRemembersRange(t *testing.T) {
	api := &mockAnalyticsAPI{
		dashboard: &models.DashboardAnalytics{},
		detailed:  &models.DetailedAnalytics{Range: "30d"},
		users:     &models.UserAnalytics{},
		health:    &models.SystemHealth{},
		activity:  &models.ActivityLog{},
	}
	s, _ := newTestAnalyticsStore(api)
	ctx := context.Background()

	_, err := s.FetchDetailed(ctx, "30d")
	require.NoError(t, err)

	s.RefreshAll(ctx)

	api.mu.Lock()
	defer api.mu.Unlock()
	assert.Equal(t, "30d", api.detailedRanges[len(api.detailedRanges)-1])
}

func TestRefreshAllSwallowsFacetFailures(t *testing.T) {
	api := &mockAnalyticsAPI{
		dashboardErr: appErrors.ErrNetwork,
		detailed:     &models.DetailedAnalytics{Range: "7d"},
		users:        &models.UserAnalytics{ActiveToday: 2},
		health:       &models.SystemHealth{Status: "healthy"},
		activity:     &models.ActivityLog{},
	}
	s, _ := newTestAnalyticsStore(api)

	snapshot := s.RefreshAll(context.Background())

	assert.Nil(t, snapshot.Dashboard, "failed facets stay empty")
	require.NotNil(t, snapshot.Users)
	assert.Equal(t, 2, snapshot.Users.ActiveToday)
	assert.NotNil(t, snapshot.Health)
	assert.NotNil(t, snapshot.Detailed)
	assert.NotNil(t, snapshot.Activity)
	assert.False(t, s.Refreshing())
}

func TestEachFacetKeepsItsOwnFreshnessMark(t *testing.T) {
	api := &mockAnalyticsAPI{
		dashboard: &models.DashboardAnalytics{},
		health:    &models.SystemHealth{},
	}
	s, clock := newTestAnalyticsStore(api)
	ctx := context.Background()

	_, err := s.FetchDashboard(ctx, false)
	require.NoError(t, err)
	first := *clock

	*clock = clock.Add(2 * time.Minute)
	_, err = s.FetchSystemHealth(ctx)
	require.NoError(t, err)

	snapshot := s.Snapshot()
	assert.Equal(t, first, snapshot.DashboardUpdated)
	assert.Equal(t, first.Add(2*time.Minute), snapshot.HealthUpdated)
	assert.True(t, snapshot.DetailedUpdated.IsZero())
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		age  time.Duration
		want string
	}{
		{"zero", 0, "Just now"},
		{"under a minute", 59 * time.Second, "Just now"},
		{"one minute", time.Minute, "1 minute ago"},
		{"many minutes", 5 * time.Minute, "5 minutes ago"},
		{"just under an hour", 59*time.Minute + 59*time.Second, "59 minutes ago"},
		{"one hour", time.Hour, "1 hour ago"},
		{"many hours", 23 * time.Hour, "23 hours ago"},
		{"one day", 24 * time.Hour, "1 day ago"},
		{"three days", 72 * time.Hour, "3 days ago"},
		{"partial day rounds down", 25 * time.Hour, "1 day ago"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatTimeAgo(now.Add(-tt.age), now))
		})
	}
}

func TestTimeAgoUsesStoreClock(t *testing.T) {
	s, clock := newTestAnalyticsStore(&mockAnalyticsAPI{})
	stamp := clock.Add(-90 * time.Second)
	assert.Equal(t, "1 minute ago", s.TimeAgo(stamp))
}
