// Package httpclient is a small typed wrapper around net/http for the
// backend REST API: base URL joining, bearer token attachment and
// normalized status errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// RequestTimeout bounds every attempt so a hung request can't pin a
// caller's in-flight latch forever.
const RequestTimeout = 15 * time.Second

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
	ErrRateLimited  = errors.New("rate limited")
)

// StatusError is the normalized form of every non-2xx response.
type StatusError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
}

func (e *StatusError) Is(target error) bool {
	switch e.Status {
	case http.StatusUnauthorized:
		return target == ErrUnauthorized
	case http.StatusNotFound:
		return target == ErrNotFound
	case http.StatusTooManyRequests:
		return target == ErrRateLimited
	}
	return false
}

// Status returns the HTTP status carried by err, or 0 if err is not a
// StatusError (transport failures, decode failures).
func Status(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Client issues requests against one backend. The token source is
// consulted per request so login/logout take effect immediately.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      func() string
}

func New(baseURL string, token func() string) *Client {
	if token == nil {
		token = func() string { return "" }
	}
	return &Client{
		httpClient: &http.Client{Timeout: RequestTimeout},
		baseURL:    baseURL,
		token:      token,
	}
}

func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, body any) ([]byte, error) {
	target := c.baseURL + endpoint
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("couldn't encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("couldn't build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("couldn't read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			Status:  resp.StatusCode,
			Message: errorMessage(resp.StatusCode, raw),
			Body:    raw,
		}
	}

	return raw, nil
}

// errorMessage pulls a human-readable message out of an error body.
// The backend uses several shapes depending on the framework layer
// that produced the error.
func errorMessage(status int, body []byte) string {
	var shape struct {
		Error   string `json:"error"`
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &shape); err == nil {
		switch {
		case shape.Error != "":
			return shape.Error
		case shape.Detail != "":
			return shape.Detail
		case shape.Message != "":
			return shape.Message
		}
	}
	return http.StatusText(status)
}

func decode[T any](raw []byte) (T, error) {
	var out T
	if len(raw) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("couldn't decode response: %w", err)
	}
	return out, nil
}

// GetResource fetches endpoint and decodes the body into T.
func GetResource[T any](ctx context.Context, c *Client, endpoint string, params url.Values) (T, error) {
	raw, err := c.do(ctx, http.MethodGet, endpoint, params, nil)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

// PostResource posts body to endpoint and decodes the response into T.
func PostResource[T any](ctx context.Context, c *Client, endpoint string, body any) (T, error) {
	raw, err := c.do(ctx, http.MethodPost, endpoint, nil, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

// PatchResource patches endpoint with body and decodes the response into T.
func PatchResource[T any](ctx context.Context, c *Client, endpoint string, body any) (T, error) {
	raw, err := c.do(ctx, http.MethodPatch, endpoint, nil, body)
	if err != nil {
		var zero T
		return zero, err
	}
	return decode[T](raw)
}

// Delete issues a DELETE and discards any response body.
func Delete(ctx context.Context, c *Client, endpoint string) error {
	_, err := c.do(ctx, http.MethodDelete, endpoint, nil, nil)
	return err
}
