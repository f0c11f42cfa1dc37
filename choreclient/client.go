// Package choreclient is a Go client for the chored HTTP API.
package choreclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cyp0633/chorecal/internal/httpclient"
	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/recurrence"
)

var (
	ErrNotFound           = errors.New("task not found")
	ErrBadRequest         = errors.New("bad request")
	ErrConflict           = errors.New("task conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrUnauthorized       = errors.New("unauthorized")
)

// Client talks to a chored server.
type Client struct {
	http   httpclient.HttpClientWrapper
	logger *slog.Logger
}

type options struct {
	httpClient *http.Client
	header     string
	secret     string
	logger     *slog.Logger
}

// Option represents a configuration option for the Client
type Option func(*options)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithSecret sends secret in header on every request.
func WithSecret(header, secret string) Option {
	return func(o *options) {
		o.header = header
		o.secret = secret
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	if base.Path == "" || base.Path[len(base.Path)-1] != '/' {
		base.Path += "/"
	}

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	if o.secret != "" {
		wrapped := *hc
		wrapped.Transport = httpclient.NewSecretHeaderTransport(o.header, o.secret, hc.Transport, o.logger)
		hc = &wrapped
	}

	wrapper, err := httpclient.NewHttpClientWrapper(hc, *base, o.logger)
	if err != nil {
		return nil, err
	}
	return &Client{http: wrapper, logger: o.logger}, nil
}

// apiError maps a status error onto the package sentinels.
func apiError(err error) error {
	var statusErr *httpclient.StatusError
	if !errors.As(err, &statusErr) {
		return err
	}

	var sentinel error
	switch statusErr.StatusCode {
	case http.StatusNotFound:
		sentinel = ErrNotFound
	case http.StatusBadRequest:
		sentinel = ErrBadRequest
	case http.StatusConflict:
		sentinel = ErrConflict
	case http.StatusPreconditionFailed:
		sentinel = ErrPreconditionFailed
	case http.StatusUnauthorized:
		sentinel = ErrUnauthorized
	default:
		return err
	}
	if statusErr.Message == "" {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, statusErr.Message)
}

func taskPath(id string, parts ...string) string {
	p := "tasks/" + url.PathEscape(id)
	for _, part := range parts {
		p += "/" + part
	}
	return p
}

// ListOptions filters List results.
type ListOptions struct {
	Overdue  bool
	Category string
	Assignee string
}

func (o ListOptions) query() string {
	q := url.Values{}
	if o.Overdue {
		q.Set("overdue", strconv.FormatBool(true))
	}
	if o.Category != "" {
		q.Set("category", o.Category)
	}
	if o.Assignee != "" {
		q.Set("assignee", o.Assignee)
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

// List returns the tasks matching opts.
func (c *Client) List(ctx context.Context, opts ListOptions) ([]*model.Task, error) {
	var tasks []*model.Task
	if _, err := c.http.DoJSON(ctx, http.MethodGet, "tasks"+opts.query(), nil, nil, &tasks); err != nil {
		return nil, apiError(err)
	}
	return tasks, nil
}

// Get returns one task.
func (c *Client) Get(ctx context.Context, id string) (*model.Task, error) {
	var t model.Task
	if _, err := c.http.DoJSON(ctx, http.MethodGet, taskPath(id), nil, nil, &t); err != nil {
		return nil, apiError(err)
	}
	return &t, nil
}

// Create stores a new task and returns it with its seeded due date.
func (c *Client) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	var created model.Task
	if _, err := c.http.DoJSON(ctx, http.MethodPost, "tasks", nil, t, &created); err != nil {
		return nil, apiError(err)
	}
	return &created, nil
}

// Update replaces the editable fields of a task. A non-empty etag is sent
// as If-Match.
func (c *Client) Update(ctx context.Context, id, etag string, t *model.Task) (*model.Task, error) {
	header := http.Header{}
	if etag != "" {
		header.Set("If-Match", etag)
	}
	var updated model.Task
	if _, err := c.http.DoJSON(ctx, http.MethodPut, taskPath(id), header, t, &updated); err != nil {
		return nil, apiError(err)
	}
	return &updated, nil
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id string) error {
	return apiError(c.http.DoDELETE(ctx, taskPath(id), ""))
}

// CompleteOptions describes one completion. Zero values let the server
// pick the instant and the author.
type CompleteOptions struct {
	At     time.Time
	Author string
}

type completeRequest struct {
	At *time.Time `json:"at,omitempty"`
}

// Complete records a completion and returns the task with its new due date.
func (c *Client) Complete(ctx context.Context, id string, opts CompleteOptions) (*model.Task, error) {
	header := http.Header{}
	if opts.Author != "" {
		header.Set("X-Author", opts.Author)
	}
	var body completeRequest
	if !opts.At.IsZero() {
		body.At = &opts.At
	}

	var updated model.Task
	if _, err := c.http.DoJSON(ctx, http.MethodPost, taskPath(id, "complete"), header, body, &updated); err != nil {
		return nil, apiError(err)
	}
	return &updated, nil
}

type occurrencesResponse struct {
	Occurrences []time.Time `json:"occurrences"`
}

// Occurrences projects the occurrences of a task in [from, to).
func (c *Client) Occurrences(ctx context.Context, id string, from, to recurrence.Date) ([]time.Time, error) {
	q := url.Values{}
	q.Set("from", from.String())
	q.Set("to", to.String())

	var resp occurrencesResponse
	if _, err := c.http.DoJSON(ctx, http.MethodGet, taskPath(id, "occurrences")+"?"+q.Encode(), nil, nil, &resp); err != nil {
		return nil, apiError(err)
	}
	return resp.Occurrences, nil
}

// Export downloads every task as an iCalendar document.
func (c *Client) Export(ctx context.Context) ([]byte, error) {
	data, _, err := c.http.DoRaw(ctx, http.MethodGet, "calendar.ics", "", nil)
	if err != nil {
		return nil, apiError(err)
	}
	return data, nil
}

// Import uploads an iCalendar document and returns the imported tasks.
func (c *Client) Import(ctx context.Context, r io.Reader) ([]*model.Task, error) {
	data, _, err := c.http.DoRaw(ctx, http.MethodPost, "tasks/import", "text/calendar; charset=utf-8", r)
	if err != nil {
		return nil, apiError(err)
	}
	var tasks []*model.Task
	if err := decodeJSON(data, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Health checks that the server is up.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.http.DoJSON(ctx, http.MethodGet, "healthz", nil, nil, nil)
	return apiError(err)
}

func decodeJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}
