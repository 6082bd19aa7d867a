package api

import (
	"context"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

// ProgressFunc receives upload progress as an integer percentage 0-100.
type ProgressFunc func(percent int)

// Upload streams a file as a multipart form. The content type is taken from
// the multipart writer so the boundary is always correct. Extra form fields
// accompany the file part; empty values are skipped.
func (c *Client) Upload(ctx context.Context, apiPath string, file io.Reader, size int64, filename string, fields map[string]string, progress ProgressFunc, out interface{}) error {
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		defer pw.Close()
		for key, value := range fields {
			if key == "" || value == "" {
				continue
			}
			if err := writer.WriteField(key, value); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		src := file
		if progress != nil && size > 0 {
			src = &progressReader{r: file, total: size, report: progress}
		}
		if _, err := io.Copy(part, src); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(writer.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(apiPath, nil), pr)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build upload request")
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.authorize(req)

	env, _, err := c.send(req)
	if err != nil {
		return err
	}
	if err := env.Bind(out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decode upload response")
	}
	return nil
}

// Download streams a binary response into w and returns the file name. The
// name comes from suggestedName when given, then the Content-Disposition
// header, then the request path.
func (c *Client) Download(ctx context.Context, apiPath string, query url.Values, w io.Writer, suggestedName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(apiPath, query), nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build download request")
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "download failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.fireUnauthorized()
		return "", appErrors.Clone(appErrors.ErrSessionExpired, "")
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", appErrors.FromStatus(resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	name := suggestedName
	if name == "" {
		name = filenameFromDisposition(resp.Header.Get("Content-Disposition"))
	}
	if name == "" {
		name = path.Base(req.URL.Path)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "stream download")
	}
	return name, nil
}

func filenameFromDisposition(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(params["filename"])
}

// progressReader reports whole-percent progress as bytes pass through. The
// reported value never decreases and is capped at 100.
type progressReader struct {
	r      io.Reader
	total  int64
	loaded int64
	last   int
	report ProgressFunc
}

func (p *progressReader) Read(buf []byte) (int, error) {
	n, err := p.r.Read(buf)
	if n > 0 {
		p.loaded += int64(n)
		percent := int(p.loaded * 100 / p.total)
		if percent > 100 {
			percent = 100
		}
		if percent > p.last {
			p.last = percent
			p.report(percent)
		}
	}
	return n, err
}
