package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

func (c *httpClientWrapper) DoJSON(ctx context.Context, method, urlStr string, header http.Header, in, out any) (http.Header, error) {
	c.logger.Debug("starting JSON request",
		"method", method,
		"url", urlStr)

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := c.newRequest(ctx, method, urlStr, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "status", resp.Status)

	if err := c.checkStatus(resp); err != nil {
		return resp.Header, err
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.Header, fmt.Errorf("failed to decode response body: %w", err)
		}
	}

	c.logger.Debug("JSON request complete",
		"method", method,
		"status", resp.Status)
	return resp.Header, nil
}

func (c *httpClientWrapper) DoRaw(ctx context.Context, method, urlStr, contentType string, body io.Reader) ([]byte, http.Header, error) {
	c.logger.Debug("starting raw request",
		"method", method,
		"url", urlStr,
		"content_type", contentType)

	req, err := c.newRequest(ctx, method, urlStr, body)
	if err != nil {
		return nil, nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, nil, fmt.Errorf("failed to send %s request: %w", method, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "status", resp.Status)

	if err := c.checkStatus(resp); err != nil {
		return nil, resp.Header, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.Header, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.Header, nil
}
