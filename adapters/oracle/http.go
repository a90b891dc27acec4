package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/layer-3/minigate/ports"
)

// HTTPOracle queries a personhood attestation service over HTTP.
type HTTPOracle struct {
	endpoint string
	client   *http.Client
}

// NewHTTPOracle creates an oracle client for the given endpoint.
func NewHTTPOracle(endpoint string) ports.PersonhoodOracle {
	return &HTTPOracle{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// IsVerified reports whether the attestation service considers the address
// bound to a unique human.
func (o *HTTPOracle) IsVerified(ctx context.Context, address string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		o.endpoint+"/"+url.PathEscape(address), nil)
	if err != nil {
		return false, fmt.Errorf("build oracle request: %w", err)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("query personhood oracle: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("personhood oracle returned status %d", resp.StatusCode)
	}

	var body struct {
		Verified bool `json:"verified"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, fmt.Errorf("decode oracle response: %w", err)
	}
	return body.Verified, nil
}

// Static is an oracle returning a fixed answer, used when a deployment does
// not track personhood and in tests.
type Static bool

// IsVerified returns the fixed answer.
func (s Static) IsVerified(ctx context.Context, address string) (bool, error) {
	return bool(s), nil
}
