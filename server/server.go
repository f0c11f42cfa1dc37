package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/cyp0633/chorecal/server/auth"
	"github.com/cyp0633/chorecal/task"
)

const (
	// HTTP headers
	headerContentType = "Content-Type"
	headerETag        = "ETag"
	headerIfMatch     = "If-Match"
	headerLocation    = "Location"
	headerAllow       = "Allow"

	// HeaderAuthor names the completion author.
	HeaderAuthor = "X-Author"

	// MIME types
	mimeTypeJSON     = "application/json"
	mimeTypeCalendar = "text/calendar; charset=utf-8"

	// maxBodySize bounds request bodies, imported calendars included.
	maxBodySize = 4 << 20
)

type options struct {
	logger        *slog.Logger
	authenticator auth.Authenticator
	authHeader    string
}

// Option represents a configuration option for the API handler
type Option func(*options)

// WithLogger sets the request logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithAuthenticator requires every request except the health check to carry
// a secret accepted by a, in the given header.
func WithAuthenticator(a auth.Authenticator, header string) Option {
	return func(o *options) {
		o.authenticator = a
		o.authHeader = header
	}
}

// New builds the HTTP handler for the task API.
func New(svc *task.Service, opts ...Option) (http.Handler, error) {
	if svc == nil {
		return nil, fmt.Errorf("task service is required")
	}

	o := options{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	var h http.Handler = NewRouter(svc, o.logger)
	if o.authenticator != nil {
		health := (&ResourcePath{Type: ResourceTypeHealth}).String()
		h = auth.Middleware(o.authenticator, o.authHeader, health)(h)
	}
	return h, nil
}
