// Package powerbi is a thin client for the Power BI REST API. It covers
// the workspace, app, report and admin endpoints pbicli exposes, speaks
// the API's OData query dialect, and maps HTTP failures onto a small
// error taxonomy commands can branch on.
package powerbi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the Power BI REST API for the caller's organization.
	DefaultBaseURL = "https://api.powerbi.com/v1.0/myorg"
	// EnvAPIURL overrides the API base URL, mainly for tests and sovereign
	// clouds.
	EnvAPIURL = "PBICLI_API_URL"

	requestTimeout = 30 * time.Second

	// maxErrorBodyBytes bounds how much of an error response is kept for
	// diagnostics.
	maxErrorBodyBytes = 4096
)

// TokenSource yields a bearer token for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the Power BI REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     zerolog.Logger
}

// Options configures NewClient. The zero value is usable.
type Options struct {
	// BaseURL overrides the API root. Empty falls back to PBICLI_API_URL,
	// then DefaultBaseURL.
	BaseURL string
	// HTTPClient overrides the underlying transport, mainly for tests.
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// NewClient creates a Power BI API client that authenticates every request
// through tokens.
func NewClient(tokens TokenSource, opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = os.Getenv(EnvAPIURL)
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		tokens:     tokens,
		logger:     opts.Logger,
	}
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// get performs a GET against path, applying query when non-nil, and
// decodes the JSON response into out.
func (c *Client) get(ctx context.Context, path string, query *Query, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, path, query)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := json.NewDecoder(body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// do issues the request and returns the response body on success. The
// caller owns closing the body. HTTP failures are translated by
// translateStatus.
func (c *Client) do(ctx context.Context, method, path string, query *Query) (io.ReadCloser, error) {
	url := c.baseURL + path
	if encoded := query.encode(); encoded != "" {
		url += "?" + encoded
	}
	return c.doURL(ctx, method, url, path)
}

// doURL is do for a fully-formed URL. The admin APIs page through
// absolute continuation URIs, which bypass base URL joining.
func (c *Client) doURL(ctx context.Context, method, url, path string) (io.ReadCloser, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request %s %s: %w", method, path, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("api request")

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		return nil, translateStatus(method, path, resp)
	}

	return resp.Body, nil
}

// translateStatus maps an error response onto the client's error taxonomy.
func translateStatus(method, path string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s %s: HTTP %d: %w", method, path, resp.StatusCode, ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	default:
		return &APIError{
			StatusCode: resp.StatusCode,
			Method:     method,
			Path:       path,
			Body:       strings.TrimSpace(string(body)),
		}
	}
}
