package api

import (
	"context"
	"strconv"

	"github.com/kumbo-archives/archives-client/internal/models"
)

// DashboardAnalytics fetches the headline dashboard snapshot.
func (c *Client) DashboardAnalytics(ctx context.Context) (*models.DashboardAnalytics, error) {
	out := &models.DashboardAnalytics{}
	if _, err := c.Get(ctx, "/analytics/dashboard", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DetailedAnalytics fetches range-scoped series (7d, 30d, 90d, 1y).
func (c *Client) DetailedAnalytics(ctx context.Context, timeRange string) (*models.DetailedAnalytics, error) {
	out := &models.DetailedAnalytics{}
	if _, err := c.Get(ctx, "/analytics/detailed", Query(map[string]string{"range": timeRange}), out); err != nil {
		return nil, err
	}
	return out, nil
}

// UserAnalytics fetches account activity aggregates.
func (c *Client) UserAnalytics(ctx context.Context) (*models.UserAnalytics, error) {
	out := &models.UserAnalytics{}
	if _, err := c.Get(ctx, "/analytics/users", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SystemHealth fetches backend liveness indicators.
func (c *Client) SystemHealth(ctx context.Context) (*models.SystemHealth, error) {
	out := &models.SystemHealth{}
	if _, err := c.Get(ctx, "/analytics/health", nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ActivityLog fetches a page of the platform-wide activity feed.
func (c *Client) ActivityLog(ctx context.Context, page, limit int) (*models.ActivityLog, error) {
	params := map[string]string{}
	if page > 0 {
		params["page"] = strconv.Itoa(page)
	}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	var entries []models.ActivityEntry
	pagination, err := c.Get(ctx, "/analytics/activity", Query(params), &entries)
	if err != nil {
		return nil, err
	}
	return &models.ActivityLog{Entries: entries, Pagination: pagination}, nil
}
