package ens

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/layer-3/minigate/ports"
)

// HTTPResolver resolves display names and avatars for addresses through an
// ENS metadata HTTP API.
type HTTPResolver struct {
	endpoint string
	client   *http.Client
}

// NewHTTPResolver creates a resolver client for the given endpoint.
func NewHTTPResolver(endpoint string) ports.NameResolver {
	return &HTTPResolver{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup returns the resolved name and avatar, or empty strings when the
// address has no reverse record.
func (r *HTTPResolver) Lookup(ctx context.Context, address string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		r.endpoint+"/"+url.PathEscape(address), nil)
	if err != nil {
		return "", "", fmt.Errorf("build resolver request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("query name resolver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("name resolver returned status %d", resp.StatusCode)
	}

	var body struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("decode resolver response: %w", err)
	}
	return body.Name, body.Avatar, nil
}
