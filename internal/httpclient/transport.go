package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// SecretHeaderTransport implements http.RoundTripper and adds a shared
// secret header to outgoing requests.
type SecretHeaderTransport struct {
	Header    string
	Secret    string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewSecretHeaderTransport creates a new SecretHeaderTransport with the
// given header and secret and optional underlying transport. If transport is
// nil, http.DefaultTransport will be used.
func NewSecretHeaderTransport(header, secret string, transport http.RoundTripper, logger *slog.Logger) *SecretHeaderTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &SecretHeaderTransport{
		Header:    header,
		Secret:    secret,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds the secret
// header to a copy of the request and delegates to the underlying transport.
func (t *SecretHeaderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Log request details
	reqBody := ""
	if req.Body != nil && req.Body != http.NoBody {
		bodyBytes, err := io.ReadAll(req.Body)
		if err == nil {
			reqBody = string(bodyBytes)
			req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Reset the body
		}
	}

	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"body", reqBody)

	if t.Header == "" {
		return nil, errors.New("secret header name cannot be empty")
	}
	if t.Secret == "" {
		return nil, errors.New("secret cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	// RoundTrippers must not modify the caller's request
	authed := req.Clone(req.Context())
	authed.Header.Set(t.Header, t.Secret)
	resp, err := t.Transport.RoundTrip(authed)

	if err == nil && resp != nil {
		// Log response details
		respBody := ""
		if resp.Body != nil {
			bodyBytes, err := io.ReadAll(resp.Body)
			if err == nil {
				respBody = string(bodyBytes)
				resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Reset the body
			}
		}

		t.Logger.Debug("incoming response",
			"status", resp.Status,
			"body", respBody)
	}

	return resp, err
}
