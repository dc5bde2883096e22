// Package client is the client-side data layer for the Code Capsule API.
//
// It has two halves:
//   - Client speaks HTTP: one method per endpoint, wire format in and out
//     (code is base64).
//   - Library holds the decoded collection in memory and derives the views a
//     front-end needs (tag list, search + tag filter). Every mutation goes through
//     the API and then re-fetches, so the in-memory copy is always what the
//     server last reported.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/code-capsule/internal/model"
)

// DefaultTimeout bounds each API call when no timeout is configured.
const DefaultTimeout = 10 * time.Second

// APIError is a non-2xx response. Message is the server's "error" field, or the
// HTTP status text if the body carried none.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// CreateRequest is the POST /code body. Code must already be encoded.
type CreateRequest struct {
	Code        string   `json:"code"`
	Description string   `json:"description"`
	Language    string   `json:"language"`
	Tags        []string `json:"tags"`
}

// UpdateRequest is the PATCH /code body. Empty fields are left unchanged by the
// server, so they are omitted.
type UpdateRequest struct {
	ID          string   `json:"id"`
	Code        string   `json:"code,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type tagsRequest struct {
	ID        string          `json:"id"`
	Tags      []string        `json:"tags"`
	Operation model.Operation `json:"operation"`
}

type listResponse struct {
	Codes []model.Snippet `json:"codes"`
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field"`
}

// Client calls the API. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
}

// New creates a Client for the server at baseURL (e.g. "http://localhost:4000").
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// List fetches snippets, all of them when tags is empty. Codes stay encoded.
func (c *Client) List(ctx context.Context, tags []string) ([]model.Snippet, error) {
	query := url.Values{}
	if len(tags) > 0 {
		query.Set("tags", strings.Join(tags, ","))
	}

	var out listResponse
	if err := c.do(ctx, http.MethodGet, "/code", query, nil, &out); err != nil {
		return nil, err
	}
	if out.Codes == nil {
		out.Codes = []model.Snippet{}
	}
	return out.Codes, nil
}

func (c *Client) Create(ctx context.Context, req CreateRequest) (*model.Snippet, error) {
	var out model.Snippet
	if err := c.do(ctx, http.MethodPost, "/code", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Update(ctx context.Context, req UpdateRequest) (*model.Snippet, error) {
	var out model.Snippet
	if err := c.do(ctx, http.MethodPatch, "/code", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTags adds or removes tags on one snippet.
func (c *Client) UpdateTags(ctx context.Context, id string, tags []string, op model.Operation) (*model.Snippet, error) {
	var out model.Snippet
	req := tagsRequest{ID: id, Tags: tags, Operation: op}
	if err := c.do(ctx, http.MethodPatch, "/tags", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/code", url.Values{"id": {id}}, nil, nil)
}

// do sends one request. body (if non-nil) is sent as JSON; a 2xx response body is
// decoded into out (if non-nil). Anything else becomes an *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var e errorResponse
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Field = e.Field
		}
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}
