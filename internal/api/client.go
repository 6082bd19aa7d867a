package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kumbo-archives/archives-client/internal/dto"
	"github.com/kumbo-archives/archives-client/internal/models"
	appErrors "github.com/kumbo-archives/archives-client/pkg/errors"
)

// Client is the single chokepoint for backend calls. It attaches the bearer
// token, normalises every response through the envelope contract, and fires
// the unauthorized hook at most once per session when a 401 arrives.
type Client struct {
	baseURL    *url.URL
	prefix     string
	httpClient *http.Client
	logger     *zap.Logger
	verbose    bool

	tokenSource    func() string
	onUnauthorized func()
	unauthorized   atomic.Bool
}

// Options groups Client constructor dependencies.
type Options struct {
	BaseURL        string
	Prefix         string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *zap.Logger
	Verbose        bool
	TokenSource    func() string
	OnUnauthorized func()
}

// New constructs a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api: base URL is required")
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base URL: %w", err)
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	return &Client{
		baseURL:        base,
		prefix:         strings.TrimRight(prefix, "/"),
		httpClient:     httpClient,
		logger:         logger,
		verbose:        opts.Verbose,
		tokenSource:    opts.TokenSource,
		onUnauthorized: opts.OnUnauthorized,
	}, nil
}

// RearmUnauthorized re-enables the one-shot 401 hook. Call it after a new
// session is established.
func (c *Client) RearmUnauthorized() {
	c.unauthorized.Store(false)
}

// Query builds request parameters, dropping keys whose value is empty so they
// never reach the wire.
func Query(params map[string]string) url.Values {
	values := url.Values{}
	for key, value := range params {
		if key == "" || value == "" {
			continue
		}
		values.Set(key, value)
	}
	return values
}

// Get issues a GET request and binds the envelope data into out.
func (c *Client) Get(ctx context.Context, path string, query url.Values, out interface{}) (*models.Pagination, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body, out interface{}) (*models.Pagination, error) {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body, out interface{}) (*models.Pagination, error) {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) error {
	_, err := c.do(ctx, http.MethodDelete, path, nil, nil, nil)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) (*models.Pagination, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	env, _, err := c.send(req)
	if err != nil {
		return nil, err
	}
	if err := env.Bind(out); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "decode response")
	}
	return env.Pagination, nil
}

// send executes the request and funnels the response through the envelope
// normalisation. It owns the 401 and 400 contracts.
func (c *Client) send(req *http.Request) (*dto.Envelope, int, error) {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "request failed")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, appErrors.Wrap(err, appErrors.ErrNetwork.Code, appErrors.ErrNetwork.Status, "read response body")
	}

	if c.verbose {
		c.logger.Debug("api_request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.Duration("latency", time.Since(start)),
		)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		c.fireUnauthorized()
		env, decodeErr := dto.Decode(raw)
		if decodeErr != nil {
			return nil, resp.StatusCode, appErrors.Clone(appErrors.ErrSessionExpired, "")
		}
		appErr := env.Err(resp.StatusCode)
		appErr.Code = appErrors.ErrSessionExpired.Code
		return nil, resp.StatusCode, appErr
	}

	env, decodeErr := dto.Decode(raw)
	if resp.StatusCode >= http.StatusBadRequest {
		if decodeErr != nil {
			return nil, resp.StatusCode, appErrors.FromStatus(resp.StatusCode, http.StatusText(resp.StatusCode))
		}
		return nil, resp.StatusCode, env.Err(resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, resp.StatusCode, appErrors.Wrap(decodeErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "malformed response")
	}
	return env, resp.StatusCode, nil
}

// fireUnauthorized runs the logout hook exactly once, even when several
// in-flight requests all come back 401.
func (c *Client) fireUnauthorized() {
	if c.onUnauthorized == nil {
		return
	}
	if c.unauthorized.CompareAndSwap(false, true) {
		c.onUnauthorized()
	}
}

func (c *Client) authorize(req *http.Request) {
	if c.tokenSource == nil {
		return
	}
	if token := c.tokenSource(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

func (c *Client) endpoint(path string, query url.Values) string {
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + c.prefix + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}
