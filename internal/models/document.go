package models

import "time"

// Document is the archived item's metadata; file content is fetched separately.
type Document struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Category   string    `json:"category"`
	Department string    `json:"department"`
	Keywords   []string  `json:"keywords"`
	Tags       []string  `json:"tags"`
	IsPublic   bool      `json:"is_public"`
	FileName   string    `json:"file_name"`
	FileSize   int64     `json:"file_size"`
	MIMEType   string    `json:"mime_type"`
	UploadedBy string    `json:"uploaded_by"`
	Starred    bool      `json:"starred"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DocumentFilter captures filtering criteria for listing documents.
type DocumentFilter struct {
	Category   string
	Department string
	Starred    string
	Search     string
	Page       int
	Limit      int
	SortBy     string
	SortOrder  string
}

// DocumentMetadata is supplied by the uploader alongside the file.
type DocumentMetadata struct {
	Title      string   `json:"title" validate:"required"`
	Category   string   `json:"category" validate:"required"`
	Department string   `json:"department" validate:"required"`
	Keywords   []string `json:"keywords,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	IsPublic   bool     `json:"is_public"`
}
