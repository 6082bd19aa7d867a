package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kumbo-archives/archives-client/internal/models"
)

func TestDashboardDatasetOrdersCategories(t *testing.T) {
	b := NewBuilder()
	dataset, err := b.Dashboard(&models.DashboardAnalytics{
		TotalDocuments: 10,
		TotalUsers:     3,
		ByCategory:     map[string]int{"Legal": 2, "Administrative": 5, "Historical": 3},
	})
	require.NoError(t, err)

	raw, err := b.Render(dataset, FormatCSV, "")
	require.NoError(t, err)
	csv := string(raw)

	assert.Contains(t, csv, "Metric,Value")
	assert.Contains(t, csv, "Total documents,10")

	// Category rows are alphabetical so repeated exports diff cleanly.
	admin := strings.Index(csv, "Documents: Administrative")
	historical := strings.Index(csv, "Documents: Historical")
	legal := strings.Index(csv, "Documents: Legal")
	require.NotEqual(t, -1, admin)
	assert.Less(t, admin, historical)
	assert.Less(t, historical, legal)
}

func TestDashboardDatasetRequiresData(t *testing.T) {
	_, err := NewBuilder().Dashboard(nil)
	assert.Error(t, err)
}

func TestDetailedDatasetAlignsSeriesByDate(t *testing.T) {
	b := NewBuilder()
	dataset, err := b.Detailed(&models.DetailedAnalytics{
		UploadsByDay: []models.TimeSeriesBin{
			{Date: "2026-08-28", Count: 4},
			{Date: "2026-08-29", Count: 1},
		},
		SearchesByDay: []models.TimeSeriesBin{
			{Date: "2026-08-28", Count: 9},
		},
	})
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 2)
	assert.Equal(t, "9", dataset.Rows[0]["Searches"])
	assert.Equal(t, "0", dataset.Rows[1]["Searches"], "missing dates render as zero")
}

func TestActivityDataset(t *testing.T) {
	b := NewBuilder()
	stamp := time.Date(2026, 8, 30, 9, 30, 0, 0, time.UTC)
	dataset, err := b.Activity(&models.ActivityLog{
		Entries: []models.ActivityEntry{
			{UserID: "u1", Action: "login", Resource: "auth", Timestamp: stamp},
		},
	})
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)
	assert.Equal(t, "2026-08-30 09:30:00", dataset.Rows[0]["Timestamp"])
}

func TestRenderPDF(t *testing.T) {
	b := NewBuilder()
	dataset, err := b.Dashboard(&models.DashboardAnalytics{TotalDocuments: 1})
	require.NoError(t, err)

	raw, err := b.Render(dataset, FormatPDF, "Kumbo Archives Dashboard")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(raw), "%PDF"))
}

func TestRenderRejectsUnknownFormat(t *testing.T) {
	b := NewBuilder()
	dataset, err := b.Dashboard(&models.DashboardAnalytics{})
	require.NoError(t, err)

	_, err = b.Render(dataset, Format("xlsx"), "")
	assert.Error(t, err)
}
