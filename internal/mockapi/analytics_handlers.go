package mockapi

import (
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

func (s *Server) dashboardAnalytics(c *gin.Context) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	out := models.DashboardAnalytics{
		TotalDocuments: len(s.state.documents),
		TotalUsers:     len(s.state.users),
		UploadsToday:   s.state.uploadsToday,
		SearchesToday:  s.state.searchesToday,
		ByCategory:     map[string]int{},
		ByDepartment:   map[string]int{},
	}

	docs := make([]models.Document, 0, len(s.state.documents))
	for _, doc := range s.state.documents {
		out.StorageUsed += doc.FileSize
		out.ByCategory[doc.Category]++
		if doc.Department != "" {
			out.ByDepartment[doc.Department]++
		}
		docs = append(docs, *doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].CreatedAt.After(docs[j].CreatedAt) })
	if len(docs) > 5 {
		docs = docs[:5]
	}
	out.RecentDocuments = docs

	respond(c, 200, out, nil)
}

func rangeDays(timeRange string) (int, bool) {
	switch timeRange {
	case "", "7d":
		return 7, true
	case "30d":
		return 30, true
	case "90d":
		return 90, true
	case "1y":
		return 365, true
	}
	return 0, false
}

func (s *Server) detailedAnalytics(c *gin.Context) {
	timeRange := c.DefaultQuery("range", "7d")
	days, ok := rangeDays(timeRange)
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "range must be one of 7d, 30d, 90d, 1y"))
		return
	}

	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	out := models.DetailedAnalytics{Range: timeRange}

	since := time.Now().AddDate(0, 0, -days)
	uploads := map[string]int{}
	categories := map[string]int{}
	uploaders := map[string]int{}
	for _, doc := range s.state.documents {
		if doc.CreatedAt.Before(since) {
			continue
		}
		uploads[doc.CreatedAt.Format("2006-01-02")]++
		categories[doc.Category]++
		uploaders[doc.UploadedBy]++
	}
	out.UploadsByDay = toSeries(uploads)

	searches := map[string]int{}
	for _, entry := range s.state.activity {
		if entry.Action == "document_search" && !entry.Timestamp.Before(since) {
			searches[entry.Timestamp.Format("2006-01-02")]++
		}
	}
	out.SearchesByDay = toSeries(searches)

	for category, count := range categories {
		out.TopCategories = append(out.TopCategories, models.CategoryCount{Category: category, Count: count})
	}
	sort.Slice(out.TopCategories, func(i, j int) bool { return out.TopCategories[i].Count > out.TopCategories[j].Count })

	for userID, count := range uploaders {
		name := ""
		if user, ok := s.state.users[userID]; ok {
			name = user.FullName
		}
		out.TopUploaders = append(out.TopUploaders, models.UploaderCount{UserID: userID, FullName: name, Count: count})
	}
	sort.Slice(out.TopUploaders, func(i, j int) bool { return out.TopUploaders[i].Count > out.TopUploaders[j].Count })

	respond(c, 200, out, nil)
}

func toSeries(byDay map[string]int) []models.TimeSeriesBin {
	out := make([]models.TimeSeriesBin, 0, len(byDay))
	for date, count := range byDay {
		out = append(out, models.TimeSeriesBin{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func (s *Server) userAnalytics(c *gin.Context) {
	s.state.mu.RLock()
	defer s.state.mu.RUnlock()

	now := time.Now()
	out := models.UserAnalytics{RoleBreakdown: map[string]int{}}
	for _, user := range s.state.users {
		out.RoleBreakdown[string(user.Role)]++
		if user.LastLogin != nil {
			if now.Sub(*user.LastLogin) < 24*time.Hour {
				out.ActiveToday++
			}
			if now.Sub(*user.LastLogin) < 7*24*time.Hour {
				out.ActiveWeek++
			}
		}
		if user.CreatedAt.Year() == now.Year() && user.CreatedAt.Month() == now.Month() {
			out.NewThisMonth++
		}
	}

	logins := map[string]int{}
	for _, entry := range s.state.activity {
		if entry.Action == "login" {
			logins[entry.Timestamp.Format("2006-01-02")]++
		}
	}
	out.LoginsByDay = toSeries(logins)

	respond(c, 200, out, nil)
}

func (s *Server) systemHealth(c *gin.Context) {
	s.state.mu.RLock()
	var used int64
	for _, doc := range s.state.documents {
		used += doc.FileSize
	}
	started := s.state.startedAt
	s.state.mu.RUnlock()

	out := models.SystemHealth{
		Status:         "healthy",
		UptimeSeconds:  int64(time.Since(started).Seconds()),
		StorageUsedPct: float64(used) / float64(maxUploadBytes) * 100,
		APILatencyMS:   1.5,
		QueueDepth:     0,
	}
	respond(c, 200, out, nil)
}

func (s *Server) activityLog(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	s.state.mu.RLock()
	entries := make([]models.ActivityEntry, len(s.state.activity))
	copy(entries, s.state.activity)
	s.state.mu.RUnlock()

	start, end, pagination := paginate(len(entries), page, limit)
	respond(c, 200, entries[start:end], pagination)
}
