package browserauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"nimbus/pkg/cloud"
	"nimbus/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for the code-exchange request.
const DefaultHTTPTimeout = 30 * time.Second

// CallbackTimeout is how long to wait for the user to finish in the browser.
const CallbackTimeout = 10 * time.Minute

// ErrCancelled is returned when the flow was abandoned via Cancel.
var ErrCancelled = errors.New("authorization flow cancelled")

// Request describes one browser authorization attempt.
type Request struct {
	// CallbackPort is the local port for the redirect listener. Zero means
	// DefaultCallbackPort.
	CallbackPort int

	// Provider holds the OAuth endpoints and client identity advertised by
	// the cloud frontend.
	Provider cloud.OAuthProviderData
}

// Service runs browser-based OAuth authorization flows: it opens a locally
// bound redirect listener, launches the system browser, and exchanges the
// returned authorization code for Credentials. One flow at a time.
type Service struct {
	httpClient *http.Client

	// openBrowser is swappable in tests.
	openBrowser func(string) error

	mu     sync.Mutex
	cancel context.CancelFunc
}

// ServiceOption configures the Service.
type ServiceOption func(*Service)

// WithHTTPClient sets a custom HTTP client for the code exchange.
func WithHTTPClient(httpClient *http.Client) ServiceOption {
	return func(s *Service) {
		s.httpClient = httpClient
	}
}

// WithBrowserOpener replaces the system-browser launcher.
func WithBrowserOpener(open func(string) error) ServiceOption {
	return func(s *Service) {
		s.openBrowser = open
	}
}

// NewService creates a browser authorization service.
func NewService(opts ...ServiceOption) *Service {
	s := &Service{
		httpClient:  &http.Client{Timeout: DefaultHTTPTimeout},
		openBrowser: OpenBrowser,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Authenticate runs one complete authorization flow and returns the obtained
// Credentials. It blocks until the browser redirect arrives, the flow is
// cancelled, or the context is done.
func (s *Service) Authenticate(ctx context.Context, req Request) (cloud.Credentials, error) {
	flowCtx, cancel := context.WithTimeout(ctx, CallbackTimeout)
	defer cancel()

	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return cloud.Credentials{}, errors.New("authorization flow already in progress")
	}
	s.cancel = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.cancel = nil
		s.mu.Unlock()
	}()

	pkce, err := GeneratePKCE()
	if err != nil {
		return cloud.Credentials{}, err
	}

	state, err := GenerateState()
	if err != nil {
		return cloud.Credentials{}, err
	}

	callbackServer := NewCallbackServer(req.CallbackPort)
	redirectURI, err := callbackServer.Start(flowCtx)
	if err != nil {
		return cloud.Credentials{}, err
	}
	defer callbackServer.Stop()

	authURL, err := buildAuthorizationURL(req.Provider, redirectURI, state, pkce)
	if err != nil {
		return cloud.Credentials{}, err
	}

	if err := s.openBrowser(authURL); err != nil {
		return cloud.Credentials{}, err
	}

	logging.Debug("BrowserAuth", "Waiting for OAuth redirect on %s", redirectURI)

	result, err := callbackServer.WaitForCallback(flowCtx)
	if err != nil {
		if flowCtx.Err() != nil && ctx.Err() == nil {
			// Our own cancel fired, not the caller's context.
			return cloud.Credentials{}, ErrCancelled
		}
		return cloud.Credentials{}, fmt.Errorf("callback failed: %w", err)
	}

	// State verification prevents CSRF on the localhost listener.
	if result.State != state {
		logging.Warn("BrowserAuth", "OAuth state mismatch detected, rejecting callback")
		return cloud.Credentials{}, errors.New("state mismatch - possible CSRF attack")
	}

	if result.IsError() {
		if result.ErrorDescription != "" {
			return cloud.Credentials{}, fmt.Errorf("authorization failed: %s - %s", result.Error, result.ErrorDescription)
		}
		return cloud.Credentials{}, fmt.Errorf("authorization failed: %s", result.Error)
	}

	creds, err := s.exchangeCode(ctx, req.Provider, result.Code, redirectURI, pkce)
	if err != nil {
		return cloud.Credentials{}, fmt.Errorf("token exchange failed: %w", err)
	}

	logging.Info("BrowserAuth", "OAuth authorization successful")
	return creds, nil
}

// Cancel abandons the in-progress flow, if any. The blocked Authenticate
// call returns ErrCancelled.
func (s *Service) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// buildAuthorizationURL constructs the OAuth authorization URL.
func buildAuthorizationURL(provider cloud.OAuthProviderData, redirectURI, state string, pkce *PKCEChallenge) (string, error) {
	authURL, err := url.Parse(provider.AuthURL)
	if err != nil {
		return "", err
	}

	scopes := provider.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "profile", "email", "offline_access"}
	}

	params := url.Values{
		"response_type":         {"code"},
		"client_id":             {provider.ClientID},
		"redirect_uri":          {redirectURI},
		"state":                 {state},
		"code_challenge":        {pkce.CodeChallenge},
		"code_challenge_method": {pkce.CodeChallengeMethod},
		"scope":                 {strings.Join(scopes, " ")},
	}

	authURL.RawQuery = params.Encode()
	return authURL.String(), nil
}

// exchangeCode exchanges an authorization code for Credentials.
func (s *Service) exchangeCode(ctx context.Context, provider cloud.OAuthProviderData, code, redirectURI string, pkce *PKCEChallenge) (cloud.Credentials, error) {
	data := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {redirectURI},
		"code_verifier": {pkce.CodeVerifier},
		"client_id":     {provider.ClientID},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, provider.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return cloud.Credentials{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return cloud.Credentials{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return cloud.Credentials{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return cloud.Credentials{}, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken  string `json:"access_token"`
		ExpiresIn    int    `json:"expires_in"`
		RefreshToken string `json:"refresh_token"`
	}

	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return cloud.Credentials{}, err
	}

	var expiry time.Time
	if tokenResp.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}

	return cloud.NewCredentials(tokenResp.AccessToken, expiry, tokenResp.RefreshToken), nil
}
