package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
	"github.com/kumbo-archives/archives-client/pkg/export"
)

// Format selects the rendered output type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// Builder flattens analytics snapshots into tabular datasets and renders
// them with the shared exporters.
type Builder struct {
	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewBuilder constructs a Builder.
func NewBuilder() *Builder {
	return &Builder{csv: export.NewCSVExporter(), pdf: export.NewPDFExporter()}
}

// Dashboard tabulates the headline snapshot by category.
func (b *Builder) Dashboard(d *models.DashboardAnalytics) (export.Dataset, error) {
	if d == nil {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "no dashboard data loaded")
	}
	data := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: []map[string]string{
			{"Metric": "Total documents", "Value": strconv.Itoa(d.TotalDocuments)},
			{"Metric": "Total users", "Value": strconv.Itoa(d.TotalUsers)},
			{"Metric": "Uploads today", "Value": strconv.Itoa(d.UploadsToday)},
			{"Metric": "Searches today", "Value": strconv.Itoa(d.SearchesToday)},
			{"Metric": "Storage used (bytes)", "Value": strconv.FormatInt(d.StorageUsed, 10)},
		},
	}
	for _, category := range sortedKeys(d.ByCategory) {
		data.Rows = append(data.Rows, map[string]string{
			"Metric": fmt.Sprintf("Documents: %s", category),
			"Value":  strconv.Itoa(d.ByCategory[category]),
		})
	}
	return data, nil
}

// Detailed tabulates the range-scoped daily series.
func (b *Builder) Detailed(d *models.DetailedAnalytics) (export.Dataset, error) {
	if d == nil {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "no detailed data loaded")
	}
	searches := make(map[string]int, len(d.SearchesByDay))
	for _, bin := range d.SearchesByDay {
		searches[bin.Date] = bin.Count
	}
	data := export.Dataset{Headers: []string{"Date", "Uploads", "Searches"}}
	for _, bin := range d.UploadsByDay {
		data.Rows = append(data.Rows, map[string]string{
			"Date":     bin.Date,
			"Uploads":  strconv.Itoa(bin.Count),
			"Searches": strconv.Itoa(searches[bin.Date]),
		})
	}
	return data, nil
}

// Activity tabulates the platform-wide activity feed.
func (b *Builder) Activity(log *models.ActivityLog) (export.Dataset, error) {
	if log == nil {
		return export.Dataset{}, appErrors.Clone(appErrors.ErrValidation, "no activity data loaded")
	}
	data := export.Dataset{Headers: []string{"Timestamp", "User", "Action", "Resource"}}
	for _, entry := range log.Entries {
		data.Rows = append(data.Rows, map[string]string{
			"Timestamp": entry.Timestamp.Format("2006-01-02 15:04:05"),
			"User":      entry.UserID,
			"Action":    entry.Action,
			"Resource":  entry.Resource,
		})
	}
	return data, nil
}

// Render produces bytes in the requested format.
func (b *Builder) Render(data export.Dataset, format Format, title string) ([]byte, error) {
	switch format {
	case FormatCSV:
		return b.csv.Render(data)
	case FormatPDF:
		return b.pdf.Render(data, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown report format %q", format))
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
