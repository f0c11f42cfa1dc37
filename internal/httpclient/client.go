// Package httpclient wraps http.Client with the request and error
// conventions of the task API.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// HttpClientWrapper wraps http.Client with JSON API functionality
type HttpClientWrapper interface {
	// DoJSON sends in (when not nil) as a JSON body and decodes the JSON
	// response into out (when not nil).
	DoJSON(ctx context.Context, method, url string, header http.Header, in, out any) (http.Header, error)
	// DoRaw sends body as-is and returns the raw response body.
	DoRaw(ctx context.Context, method, url, contentType string, body io.Reader) ([]byte, http.Header, error)
	// DoDELETE sends a DELETE request with an optional If-Match header.
	DoDELETE(ctx context.Context, url string, etag string) error
}

type httpClientWrapper struct {
	client  *http.Client
	baseURL url.URL
	logger  *slog.Logger
}

// StatusError is returned for responses outside the 2xx range. Message
// carries the "error" field of a JSON error body when there is one.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// resolveURL resolves a URL string against the base URL
func (c *httpClientWrapper) resolveURL(urlStr string) (*url.URL, error) {
	ref, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL %q: %w", urlStr, err)
	}
	return c.baseURL.ResolveReference(ref), nil
}

// NewHttpClientWrapper creates a new client wrapper with logging
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpClientWrapper{client: client, baseURL: baseURL, logger: logger}, nil
}

func (c *httpClientWrapper) newRequest(ctx context.Context, method, urlStr string, body io.Reader) (*http.Request, error) {
	resolvedURL, err := c.resolveURL(urlStr)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "url", urlStr, "error", err)
		return nil, err
	}

	c.logger.Debug("resolved URL", "url", resolvedURL.String())

	req, err := http.NewRequestWithContext(ctx, method, resolvedURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	return req, nil
}

// checkStatus turns a non-2xx response into a *StatusError.
func (c *httpClientWrapper) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	c.logger.Debug("unexpected status code",
		"status_code", resp.StatusCode,
		"status", resp.Status)

	statusErr := &StatusError{StatusCode: resp.StatusCode}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return statusErr
	}

	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		statusErr.Message = body.Error
	} else {
		statusErr.Message = strings.TrimSpace(string(data))
	}
	return statusErr
}
