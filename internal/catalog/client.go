// Package catalog fetches the list of valid breed names from the external
// breed catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"spycats/pkg/domain"
)

// DefaultBaseURL is The Cat API.
const DefaultBaseURL = "https://api.thecatapi.com"

const defaultTimeout = 5 * time.Second

// Client lists every breed name known to the catalog.
type Client interface {
	FetchBreedNames(ctx context.Context) ([]string, error)
}

// HTTPClient queries The Cat API breeds endpoint.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithAPIKey sends the key in the x-api-key header.
func WithAPIKey(key string) HTTPOption {
	return func(c *HTTPClient) { c.apiKey = strings.TrimSpace(key) }
}

// WithTimeout bounds the single catalog request.
func WithTimeout(d time.Duration) HTTPOption {
	return func(c *HTTPClient) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying transport client.
func WithHTTPClient(hc *http.Client) HTTPOption {
	return func(c *HTTPClient) {
		if hc != nil {
			c.http = hc
		}
	}
}

// NewHTTPClient builds a catalog client rooted at baseURL (DefaultBaseURL when empty).
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &HTTPClient{baseURL: baseURL, http: &http.Client{Timeout: defaultTimeout}}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type breedRecord struct {
	Name string `json:"name"`
}

// FetchBreedNames performs one GET /v1/breeds. Transport failures and non-200
// responses are reported as domain.ErrExternalService.
func (c *HTTPClient) FetchBreedNames(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/breeds", nil)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalService, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.WrapError(domain.ErrExternalService, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.WrapError(domain.ErrExternalService, fmt.Errorf("catalog status %d", resp.StatusCode))
	}
	var records []breedRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, domain.WrapError(domain.ErrExternalService, fmt.Errorf("decode catalog: %w", err))
	}
	names := make([]string, 0, len(records))
	for _, r := range records {
		if r.Name != "" {
			names = append(names, r.Name)
		}
	}
	return names, nil
}

// Static serves a fixed list of names.
type Static []string

// NewStatic parses a comma separated list of names.
func NewStatic(list string) Static {
	var out Static
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// FetchBreedNames implements Client.
func (s Static) FetchBreedNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.WrapError(domain.ErrExternalService, err)
	}
	return append([]string(nil), s...), nil
}

// Func adapts a function into a Client.
type Func func(ctx context.Context) ([]string, error)

// FetchBreedNames implements Client.
func (f Func) FetchBreedNames(ctx context.Context) ([]string, error) { return f(ctx) }
