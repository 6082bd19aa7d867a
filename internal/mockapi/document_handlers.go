package mockapi

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

// maxUploadBytes matches the SDK's default upload ceiling.
const maxUploadBytes = 50 << 20

func (s *Server) listDocuments(c *gin.Context) {
	category := c.Query("category")
	department := c.Query("department")
	starred := c.Query("starred")
	search := strings.ToLower(c.Query("search"))
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	s.state.mu.Lock()
	if search != "" {
		s.state.searchesToday++
		s.state.recordActivity(currentUser(c).ID, "document_search", "documents", search)
	}
	matched := make([]models.Document, 0, len(s.state.documents))
	for _, doc := range s.state.documents {
		if category != "" && doc.Category != category {
			continue
		}
		if department != "" && doc.Department != department {
			continue
		}
		if starred != "" {
			want, err := strconv.ParseBool(starred)
			if err == nil && doc.Starred != want {
				continue
			}
		}
		if search != "" && !matchesDocument(doc, search) {
			continue
		}
		matched = append(matched, *doc)
	}
	s.state.mu.Unlock()

	sortedDocuments(matched, c.Query("sort_by"), c.Query("sort_order"))
	start, end, pagination := paginate(len(matched), page, limit)
	respond(c, 200, matched[start:end], pagination)
}

func matchesDocument(doc *models.Document, search string) bool {
	if strings.Contains(strings.ToLower(doc.Title), search) {
		return true
	}
	for _, kw := range doc.Keywords {
		if strings.Contains(strings.ToLower(kw), search) {
			return true
		}
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}
	return false
}

func (s *Server) getDocument(c *gin.Context) {
	s.state.mu.RLock()
	doc, ok := s.state.documents[c.Param("id")]
	s.state.mu.RUnlock()
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "document not found"))
		return
	}
	respond(c, 200, doc, nil)
}

func (s *Server) uploadDocument(c *gin.Context) {
	if err := c.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "expected a multipart upload"))
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "file field is required"))
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		fail(c, appErrors.ErrFileTooLarge)
		return
	}

	meta := models.DocumentMetadata{
		Title:      c.PostForm("title"),
		Category:   c.PostForm("category"),
		Department: c.PostForm("department"),
		IsPublic:   strings.EqualFold(c.PostForm("is_public"), "true"),
	}
	if raw := c.PostForm("keywords"); raw != "" {
		meta.Keywords = splitList(raw)
	}
	if raw := c.PostForm("tags"); raw != "" {
		meta.Tags = splitList(raw)
	}
	if err := s.validator.Struct(meta); err != nil {
		fail(c, validationError(err, "title, category and department are required"))
		return
	}

	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		fail(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	if len(content) > maxUploadBytes {
		fail(c, appErrors.ErrFileTooLarge)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(header.Filename))
	}

	uploader := currentUser(c)
	now := time.Now()
	doc := &models.Document{
		ID:         uuid.NewString(),
		Title:      meta.Title,
		Category:   meta.Category,
		Department: meta.Department,
		Keywords:   meta.Keywords,
		Tags:       meta.Tags,
		IsPublic:   meta.IsPublic,
		FileName:   filepath.Base(header.Filename),
		FileSize:   int64(len(content)),
		MIMEType:   mimeType,
		UploadedBy: uploader.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.state.mu.Lock()
	s.state.documents[doc.ID] = doc
	s.state.contents[doc.ID] = content
	s.state.uploadsToday++
	s.state.recordActivity(uploader.ID, "document_upload", "documents", doc.Title)
	s.state.mu.Unlock()

	created(c, doc)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func (s *Server) deleteDocument(c *gin.Context) {
	id := c.Param("id")
	caller := currentUser(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	doc, ok := s.state.documents[id]
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "document not found"))
		return
	}
	if caller.Role == models.RoleResearcher && doc.UploadedBy != caller.ID {
		fail(c, appErrors.Clone(appErrors.ErrForbidden, "cannot delete another user's document"))
		return
	}
	delete(s.state.documents, id)
	delete(s.state.contents, id)
	s.state.recordActivity(caller.ID, "document_delete", "documents", doc.Title)

	noContent(c)
}

func (s *Server) starDocument(c *gin.Context) {
	var req struct {
		Starred bool `json:"starred"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, appErrors.Clone(appErrors.ErrValidation, "starred flag is required"))
		return
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	doc, ok := s.state.documents[c.Param("id")]
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "document not found"))
		return
	}
	doc.Starred = req.Starred
	doc.UpdatedAt = time.Now()

	respond(c, 200, doc, nil)
}

func (s *Server) downloadDocument(c *gin.Context) {
	id := c.Param("id")

	s.state.mu.RLock()
	doc, ok := s.state.documents[id]
	content := s.state.contents[id]
	s.state.mu.RUnlock()
	if !ok {
		fail(c, appErrors.Clone(appErrors.ErrNotFound, "document not found"))
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", doc.FileName))
	c.Header("Content-Length", strconv.Itoa(len(content)))
	contentType := doc.MIMEType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(http.StatusOK, contentType, content)
}
