package cloudapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"nimbus/pkg/cloud"
	"nimbus/pkg/logging"
)

const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultProviderCacheTTL is the default TTL for cached OAuth provider
	// data. The cache refreshes periodically in case the server
	// configuration changes.
	DefaultProviderCacheTTL = 30 * time.Minute

	// maxErrorBodyBytes limits how much of an error response body is kept
	// for diagnostics.
	maxErrorBodyBytes = 2048
)

// API paths on the cloud frontend.
const (
	providerDataPath = "/api/oauth/provider"
	refreshPath      = "/api/oauth/refresh"
	userInfoPath     = "/api/user"
	userLicensesPath = "/api/user/licenses"
)

// providerCacheEntry holds cached provider data with its timestamp.
type providerCacheEntry struct {
	data      *cloud.OAuthProviderData
	fetchedAt time.Time
}

// Client talks to the cloud REST API for operations that do not require an
// authenticated user: provider-data discovery and refresh-token exchange.
// Authenticated operations live on UserAPI.
type Client struct {
	frontendURL string
	httpClient  *http.Client

	providerMu    sync.RWMutex
	providerCache *providerCacheEntry
	providerTTL   time.Duration

	// singleflight group to deduplicate concurrent provider-data fetches
	providerGroup singleflight.Group
}

// ClientOption configures the cloud API client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithProviderCacheTTL sets the provider-data cache TTL.
func WithProviderCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		c.providerTTL = ttl
	}
}

// NewClient creates a client bound to the given frontend URL.
func NewClient(frontendURL string, opts ...ClientOption) *Client {
	c := &Client{
		frontendURL: cloud.NormalizeFrontendURL(frontendURL),
		httpClient:  &http.Client{Timeout: DefaultHTTPTimeout},
		providerTTL: DefaultProviderCacheTTL,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// FrontendURL returns the normalized frontend URL this client is bound to.
func (c *Client) FrontendURL() string {
	return c.frontendURL
}

// GetOAuthProviderData fetches the OAuth provider metadata advertised by the
// cloud frontend. Results are cached with a TTL and concurrent fetches are
// deduplicated.
func (c *Client) GetOAuthProviderData(ctx context.Context) (*cloud.OAuthProviderData, error) {
	// Check cache first with read lock
	c.providerMu.RLock()
	if entry := c.providerCache; entry != nil {
		if time.Since(entry.fetchedAt) < c.providerTTL {
			c.providerMu.RUnlock()
			return entry.data, nil
		}
	}
	c.providerMu.RUnlock()

	// Use singleflight to deduplicate concurrent fetches
	result, err, _ := c.providerGroup.Do(c.frontendURL, func() (interface{}, error) {
		// Double-check cache after acquiring singleflight lock
		c.providerMu.RLock()
		if entry := c.providerCache; entry != nil {
			if time.Since(entry.fetchedAt) < c.providerTTL {
				c.providerMu.RUnlock()
				return entry.data, nil
			}
		}
		c.providerMu.RUnlock()

		var data cloud.OAuthProviderData
		if err := c.getJSON(ctx, c.frontendURL+providerDataPath, "", &data); err != nil {
			return nil, err
		}

		c.providerMu.Lock()
		c.providerCache = &providerCacheEntry{data: &data, fetchedAt: time.Now()}
		c.providerMu.Unlock()

		logging.Debug("CloudAPI", "Fetched OAuth provider data from %s", c.frontendURL)
		return &data, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*cloud.OAuthProviderData), nil
}

// refreshResponse is the wire shape of a refresh-token exchange.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// GetNewCredentialsFromRefreshCode exchanges a refresh token for fresh
// Credentials. The returned Credentials may lack a usable access token if
// the server response did not include one.
func (c *Client) GetNewCredentialsFromRefreshCode(ctx context.Context, refreshToken string) (cloud.Credentials, error) {
	body := fmt.Sprintf(`{"refresh_token":%q}`, refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.frontendURL+refreshPath, strings.NewReader(body))
	if err != nil {
		return cloud.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cloud.Credentials{}, fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return cloud.Credentials{}, fmt.Errorf("%w: %v", ErrOffline, err)
	}

	if resp.StatusCode != http.StatusOK {
		return cloud.Credentials{}, &ResponseError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBodyBytes),
		}
	}

	var tokenResp refreshResponse
	if err := json.Unmarshal(data, &tokenResp); err != nil {
		return cloud.Credentials{}, fmt.Errorf("failed to decode refresh response: %w", err)
	}

	var expiry time.Time
	if tokenResp.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	// Servers that rotate refresh tokens return a new one; otherwise the
	// consumed token stays valid and is carried forward.
	newRefresh := tokenResp.RefreshToken
	if newRefresh == "" {
		newRefresh = refreshToken
	}

	return cloud.NewCredentials(tokenResp.AccessToken, expiry, newRefresh), nil
}

// getJSON performs an authenticated (or anonymous, when token is empty) GET
// request and decodes the JSON response into out.
func (c *Client) getJSON(ctx context.Context, url, token string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrOffline, err)
	}

	if resp.StatusCode != http.StatusOK {
		return &ResponseError{
			StatusCode: resp.StatusCode,
			Body:       truncate(string(data), maxErrorBodyBytes),
		}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", url, err)
	}

	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
