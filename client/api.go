// Package client is a typed HTTP client for the media and settings endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"webplayer/types"
)

// APIError is returned for any non-2xx response
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// API talks to a running server
type API struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures an API
type Option func(*API)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(a *API) { a.httpClient = c }
}

// New creates an API for the server at baseURL (e.g. http://localhost:8080)
func New(baseURL string, opts ...Option) *API {
	a := &API{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// List fetches the listing of the directory at path ("" or "/" for the root)
func (a *API) List(ctx context.Context, path string) (types.DirectoryListing, error) {
	endpoint := a.baseURL + "/api/media"
	if path != "" && path != "/" {
		endpoint += "?path=" + url.QueryEscape(path)
	}

	var listing types.DirectoryListing
	if err := a.do(ctx, http.MethodGet, endpoint, nil, &listing); err != nil {
		return types.DirectoryListing{}, err
	}
	if listing.Directories == nil {
		listing.Directories = []string{}
	}
	if listing.Files == nil {
		listing.Files = []string{}
	}
	return listing, nil
}

// MediaURL returns the streaming URL of a relative media path, escaping each segment
func (a *API) MediaURL(rel string) string {
	segments := strings.Split(strings.TrimLeft(rel, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return a.baseURL + "/media/" + strings.Join(segments, "/")
}

// LoadSettings fetches the stored settings
func (a *API) LoadSettings(ctx context.Context) (map[string]any, error) {
	var settings map[string]any
	if err := a.do(ctx, http.MethodGet, a.baseURL+"/api/config", nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SaveSettings merges partial into the stored settings and returns the result
func (a *API) SaveSettings(ctx context.Context, partial map[string]any) (map[string]any, error) {
	body, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	var settings map[string]any
	if err := a.do(ctx, http.MethodPut, a.baseURL+"/api/config", body, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (a *API) do(ctx context.Context, method, endpoint string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody types.ErrorResponse
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(data, &errBody) == nil && errBody.Error != "" {
			apiErr.Message = errBody.Error
			apiErr.Details = errBody.Details
		}
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
