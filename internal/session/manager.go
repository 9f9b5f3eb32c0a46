package session

import (
	"context"
	"sync"
	"time"

	"nimbus/internal/browserauth"
	"nimbus/internal/cloudapi"
	"nimbus/pkg/cloud"
)

// DefaultAuthorizationExpirationTimeout bounds how long an authorization
// attempt may wait for license acceptance before giving up.
const DefaultAuthorizationExpirationTimeout = 10 * time.Minute

// Authenticator runs a browser OAuth flow. *browserauth.Service is the
// production implementation.
type Authenticator interface {
	// Authenticate blocks until the flow completes, is cancelled, or ctx is
	// done, and returns the obtained credentials.
	Authenticate(ctx context.Context, req browserauth.Request) (cloud.Credentials, error)

	// Cancel abandons the in-progress flow, if any.
	Cancel()
}

// TokenPersistence stores the session's refresh token across restarts.
// *tokenstore.Store is the production implementation.
type TokenPersistence interface {
	Save(refreshToken string) error
	Clear() error
	Load() (string, error)
}

// TokenWatcher reports external removal of the persisted refresh token.
// *tokenstore.Watcher is the production implementation.
type TokenWatcher interface {
	Start(onRemoved func()) error
	Stop()
}

// Settings is the host configuration the session machine needs.
type Settings struct {
	// FrontendURL is the default cloud frontend. A self-hosted URL passed to
	// Authorize overrides it for that session.
	FrontendURL string

	// CallbackPort is the local port for the OAuth redirect listener.
	CallbackPort int

	// AuthorizationExpirationTimeout bounds the license-acceptance wait.
	// Zero means DefaultAuthorizationExpirationTimeout.
	AuthorizationExpirationTimeout time.Duration

	// LicenseAgreementCallback gates authorization on license acceptance.
	LicenseAgreementCallback bool
}

// Manager owns the session state machine and the collaborators shared by all
// states. The host creates one Manager per IDE instance.
type Manager struct {
	frontendURL          string
	callbackPort         int
	authorizationTimeout time.Duration
	licenseGate          bool

	// licenseCheckBaseDelay is the initial interval of the license polling
	// timer.
	licenseCheckBaseDelay time.Duration

	states     *StateManager
	newClient  func(frontendURL string) *cloudapi.Client
	auth       Authenticator
	tokens     TokenPersistence
	newWatcher func() TokenWatcher
}

// Option configures the Manager.
type Option func(*Manager)

// WithAuthenticator replaces the browser authenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(m *Manager) {
		m.auth = a
	}
}

// WithClientFactory replaces how cloud API clients are constructed from a
// frontend URL.
func WithClientFactory(f func(frontendURL string) *cloudapi.Client) Option {
	return func(m *Manager) {
		m.newClient = f
	}
}

// WithTokenPersistence replaces the refresh-token store. The default keeps
// the token in memory only.
func WithTokenPersistence(p TokenPersistence) Option {
	return func(m *Manager) {
		m.tokens = p
	}
}

// WithTokenWatcherFactory installs a factory for watchers that detect
// external removal of the persisted token. Each Authorized session gets its
// own watcher.
func WithTokenWatcherFactory(f func() TokenWatcher) Option {
	return func(m *Manager) {
		m.newWatcher = f
	}
}

// NewManager creates a session manager in the NotAuthorized state.
func NewManager(settings Settings, opts ...Option) *Manager {
	m := &Manager{
		frontendURL:           cloud.NormalizeFrontendURL(settings.FrontendURL),
		callbackPort:          settings.CallbackPort,
		authorizationTimeout:  settings.AuthorizationExpirationTimeout,
		licenseGate:           settings.LicenseAgreementCallback,
		licenseCheckBaseDelay: time.Second,
		newClient: func(frontendURL string) *cloudapi.Client {
			return cloudapi.NewClient(frontendURL)
		},
		auth:   browserauth.NewService(),
		tokens: &memoryTokenStore{},
	}
	if m.authorizationTimeout <= 0 {
		m.authorizationTimeout = DefaultAuthorizationExpirationTimeout
	}

	for _, opt := range opts {
		opt(m)
	}

	m.states = NewStateManager(&NotAuthorized{manager: m})
	return m
}

// States returns the state manager, e.g. for observer registration.
func (m *Manager) States() *StateManager {
	return m.states
}

// Current returns the current session state.
func (m *Manager) Current() UserState {
	return m.states.Current()
}

// Restore resumes a previous session from the persisted refresh token. It
// returns nil when no token is stored or the session already left the
// NotAuthorized state. The restored session has no user info until the first
// authenticated request; the initial AcquireAccessToken call performs the
// refresh.
func (m *Manager) Restore() (*Authorized, error) {
	refreshToken, err := m.tokens.Load()
	if err != nil {
		return nil, err
	}
	if refreshToken == "" {
		return nil, nil
	}

	current, ok := m.states.Current().(*NotAuthorized)
	if !ok {
		return nil, nil
	}

	client := m.newClient(current.targetFrontendURL(""))
	authorized := newAuthorized(m, client, cloud.UserInfo{}, cloud.RefreshOnlyCredentials(refreshToken))
	if m.states.ChangeState(current, authorized) == nil {
		return nil, nil
	}
	authorized.start()
	return authorized, nil
}

// memoryTokenStore is the default TokenPersistence: the refresh token lives
// only for the lifetime of the process.
type memoryTokenStore struct {
	mu    sync.Mutex
	token string
}

func (s *memoryTokenStore) Save(refreshToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = refreshToken
	return nil
}

func (s *memoryTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	return nil
}

func (s *memoryTokenStore) Load() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}
