package models

// UploadStatus tracks an item through the upload lifecycle.
type UploadStatus string

const (
	UploadPending   UploadStatus = "pending"
	UploadUploading UploadStatus = "uploading"
	UploadCompleted UploadStatus = "completed"
	UploadError     UploadStatus = "error"
)

// UploadItem is one queued file. Progress is 100 exactly when the status is
// completed; a failed item resets progress to 0 and carries the error text.
type UploadItem struct {
	ID       string           `json:"id"`
	Path     string           `json:"path"`
	FileName string           `json:"file_name"`
	Size     int64            `json:"size"`
	MIMEType string           `json:"mime_type"`
	Metadata DocumentMetadata `json:"metadata"`
	Status   UploadStatus     `json:"status"`
	Progress int              `json:"progress"`
	Error    string           `json:"error,omitempty"`
	Preview  string           `json:"preview,omitempty"`
	Document *Document        `json:"document,omitempty"`
}

// UploadSummary counts the outcome of one sequential upload run.
type UploadSummary struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}
