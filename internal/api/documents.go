package api

import (
	"context"
	"io"

	"github.com/kumbo-archives/archives-client/internal/models"
)

// ListDocuments fetches a document page.
func (c *Client) ListDocuments(ctx context.Context, params map[string]string) ([]models.Document, *models.Pagination, error) {
	var docs []models.Document
	pagination, err := c.Get(ctx, "/documents", Query(params), &docs)
	if err != nil {
		return nil, nil, err
	}
	return docs, pagination, nil
}

// GetDocument fetches one document's metadata.
func (c *Client) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	out := &models.Document{}
	if _, err := c.Get(ctx, "/documents/"+id, nil, out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadDocument sends the file with its metadata as multipart form fields.
func (c *Client) UploadDocument(ctx context.Context, file io.Reader, size int64, filename string, fields map[string]string, progress ProgressFunc) (*models.Document, error) {
	out := &models.Document{}
	if err := c.Upload(ctx, "/documents", file, size, filename, fields, progress, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	return c.Delete(ctx, "/documents/"+id)
}

// StarDocument toggles the starred flag and returns the updated record.
func (c *Client) StarDocument(ctx context.Context, id string, starred bool) (*models.Document, error) {
	out := &models.Document{}
	if _, err := c.Put(ctx, "/documents/"+id+"/star", map[string]bool{"starred": starred}, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DownloadDocument streams the document content into w and returns the
// resolved file name.
func (c *Client) DownloadDocument(ctx context.Context, id string, w io.Writer) (string, error) {
	return c.Download(ctx, "/documents/"+id+"/download", nil, w, "")
}
