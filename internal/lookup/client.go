// Package lookup fetches character profiles from a Raider.IO-compatible
// remote service.
package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mcoot/guildbot/internal/model"
)

// Client looks up a single character on one server
type Client interface {
	// Lookup returns model.ErrCharacterNotFound when the service has no such
	// character, and a model.ErrTransient wrap when it could not be asked.
	Lookup(ctx context.Context, server, name string) (*model.CharacterProfile, error)
}

// Config holds remote lookup settings
type Config struct {
	BaseURL string
	Region  string
	Timeout time.Duration
}

// DefaultConfig returns the public Raider.IO endpoint for the Korean region
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://raider.io",
		Region:  "kr",
		Timeout: 10 * time.Second,
	}
}

// HTTPClient is the net/http implementation of Client
type HTTPClient struct {
	baseURL    string
	region     string
	httpClient *http.Client
}

// NewHTTPClient creates a new lookup client
func NewHTTPClient(cfg Config) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		region:  cfg.Region,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Ensure HTTPClient implements the interface
var _ Client = (*HTTPClient)(nil)

func (c *HTTPClient) Lookup(ctx context.Context, server, name string) (*model.CharacterProfile, error) {
	query := url.Values{}
	query.Set("region", c.region)
	query.Set("realm", server)
	query.Set("name", name)
	endpoint := c.baseURL + "/api/v1/characters/profile?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.Transient("lookup request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.Transient("lookup read", err)
	}

	switch {
	case isNotFoundStatus(resp.StatusCode):
		// the remote answers 400 for unknown characters as well as 404
		return nil, model.ErrCharacterNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, model.Transient("lookup", fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var profile model.CharacterProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	// a 200 without identity fields is treated like a miss
	if profile.Name == "" || profile.Server == "" {
		return nil, model.ErrCharacterNotFound
	}
	if profile.Region == "" {
		profile.Region = c.region
	}
	return &profile, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// isNotFoundStatus reports whether a status means the character does not
// exist. Throttling and timeouts stay retryable.
func isNotFoundStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return false
	}
	return code >= 400 && code < 500
}
