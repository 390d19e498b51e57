package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const (
	// RefreshWindow is how long before expiry a token is considered due for refresh.
	RefreshWindow = 5 * time.Minute

	// StateTTL bounds how long an issued OAuth state token stays redeemable.
	StateTTL = 10 * time.Minute

	// DefaultAuthorizeURL is Linear's OAuth authorization endpoint.
	DefaultAuthorizeURL = "https://linear.app/oauth/authorize"

	// DefaultTokenURL is Linear's OAuth token endpoint.
	DefaultTokenURL = "https://api.linear.app/oauth/token"
)

// OAuthScopes are requested on every authorization URL.
var OAuthScopes = []string{"read", "write", "issues:create", "offline_access"}

// neverExpires is the expiry recorded for static keys.
var neverExpires = time.Date(9999, time.December, 31, 23, 59, 59, 0, time.UTC)

// CredentialKind selects how the session authenticates.
type CredentialKind int

const (
	// StaticKeyCredential uses a personal API key that never expires.
	StaticKeyCredential CredentialKind = iota + 1
	// OAuthCredential uses the authorization-code and refresh-token grants.
	OAuthCredential
)

// String returns the string representation of CredentialKind.
func (k CredentialKind) String() string {
	switch k {
	case StaticKeyCredential:
		return "api"
	case OAuthCredential:
		return "oauth"
	default:
		return "none"
	}
}

// Credential is either a static key or an OAuth client registration.
type Credential struct {
	Kind         CredentialKind
	APIKey       string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// StaticKey returns a static API key credential.
func StaticKey(apiKey string) Credential {
	return Credential{Kind: StaticKeyCredential, APIKey: apiKey}
}

// OAuth returns an OAuth client credential.
func OAuth(clientID, clientSecret, redirectURI string) Credential {
	return Credential{
		Kind:         OAuthCredential,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURI:  redirectURI,
	}
}

// validate reports every missing field of the credential.
func (c Credential) validate() error {
	var missing []string
	switch c.Kind {
	case StaticKeyCredential:
		if c.APIKey == "" {
			missing = append(missing, "apiKey")
		}
	case OAuthCredential:
		if c.ClientID == "" {
			missing = append(missing, "clientId")
		}
		if c.ClientSecret == "" {
			missing = append(missing, "clientSecret")
		}
		if c.RedirectURI == "" {
			missing = append(missing, "redirectUri")
		}
	default:
		return fmt.Errorf("%w: unsupported credential kind %d", ErrInvalidConfig, c.Kind)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing required %s parameters: %s",
			ErrInvalidConfig, c.Kind, strings.Join(missing, ", "))
	}
	return nil
}

// TokenState is the access material of the active credential.
type TokenState struct {
	AccessKey    string
	RefreshToken string
	ExpiresAt    time.Time
}

// SessionStatus is a secret-free snapshot of the session.
type SessionStatus struct {
	Kind          string     `json:"kind"`
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	NeedsRefresh  bool       `json:"needsRefresh"`
	PendingStates int        `json:"pendingStates"`
}

// CredentialManager owns the session's credential, token state and the
// transport derived from it. At most one credential is active at a time.
//
// The mutex only guards the fields; it does not serialize refresh against
// in-flight calls. A call that already captured a transport keeps using it.
type CredentialManager struct {
	mu            sync.RWMutex
	credential    *Credential
	token         *TokenState
	transport     Transport
	pendingStates map[string]time.Time

	authorizeURL string
	tokenURL     string
	httpClient   *http.Client
	newTransport TransportFactory
	now          func() time.Time
	logger       zerolog.Logger
}

// CredentialOption configures a CredentialManager.
type CredentialOption func(*CredentialManager)

// WithOAuthEndpoints overrides the authorization and token endpoints.
func WithOAuthEndpoints(authorizeURL, tokenURL string) CredentialOption {
	return func(m *CredentialManager) {
		if authorizeURL != "" {
			m.authorizeURL = authorizeURL
		}
		if tokenURL != "" {
			m.tokenURL = tokenURL
		}
	}
}

// WithHTTPClient sets the base HTTP client used for token exchange and as
// the underlying client of every transport.
func WithHTTPClient(client *http.Client) CredentialOption {
	return func(m *CredentialManager) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) CredentialOption {
	return func(m *CredentialManager) {
		if now != nil {
			m.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) CredentialOption {
	return func(m *CredentialManager) {
		m.logger = logger
	}
}

// NewCredentialManager creates a credential manager with no active credential.
// newTransport is called with an authenticated HTTP client every time the
// access key changes.
func NewCredentialManager(newTransport TransportFactory, opts ...CredentialOption) *CredentialManager {
	m := &CredentialManager{
		pendingStates: make(map[string]time.Time),
		authorizeURL:  DefaultAuthorizeURL,
		tokenURL:      DefaultTokenURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		newTransport:  newTransport,
		now:           time.Now,
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize replaces the active credential and clears all token state.
// A static key is usable immediately; an OAuth credential needs a code
// exchange first. Upstream is not contacted.
func (m *CredentialManager) Initialize(cred Credential) error {
	if err := cred.validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	c := cred
	m.credential = &c
	m.token = nil
	m.transport = nil
	m.pendingStates = make(map[string]time.Time)

	if cred.Kind == StaticKeyCredential {
		m.token = &TokenState{
			AccessKey: cred.APIKey,
			ExpiresAt: neverExpires,
		}
		m.transport = m.newTransport(m.staticKeyClient(cred.APIKey))
	}

	m.logger.Info().Str("credential", cred.Kind.String()).Msg("credential initialized")
	return nil
}

// AuthorizationURL builds the URL a user visits to grant access. Each call
// issues a fresh state token, which is returned alongside the URL.
func (m *CredentialManager) AuthorizationURL() (string, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.credential == nil || m.credential.Kind != OAuthCredential {
		return "", "", fmt.Errorf("%w: OAuth config not initialized", ErrNotInitialized)
	}

	now := m.now()
	for s, issued := range m.pendingStates {
		if now.Sub(issued) > StateTTL {
			delete(m.pendingStates, s)
		}
	}
	state := uuid.NewString()
	m.pendingStates[state] = now

	authURL := m.oauthConfig(*m.credential).AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("scope", strings.Join(OAuthScopes, ",")),
		oauth2.SetAuthURLParam("actor", "application"),
	)
	return authURL, state, nil
}

// ExchangeCode redeems an authorization code. When state is non-empty it
// must match an outstanding state issued by AuthorizationURL. On failure the
// existing token state is left untouched.
func (m *CredentialManager) ExchangeCode(ctx context.Context, code, state string) error {
	m.mu.Lock()
	if m.credential == nil || m.credential.Kind != OAuthCredential {
		m.mu.Unlock()
		return fmt.Errorf("%w: OAuth config not initialized", ErrNotInitialized)
	}
	if state != "" {
		issued, ok := m.pendingStates[state]
		if !ok || m.now().Sub(issued) > StateTTL {
			m.mu.Unlock()
			return &ParamsError{
				Tool:   "linear_auth_callback",
				Fields: []string{"state"},
				Reason: "does not match an outstanding authorization request",
			}
		}
		delete(m.pendingStates, state)
	} else {
		m.logger.Warn().Msg("authorization callback without state; skipping state validation")
	}
	cred := m.credential
	m.mu.Unlock()

	tok, err := m.oauthConfig(*cred).Exchange(m.tokenContext(ctx), code,
		oauth2.SetAuthURLParam("access_type", "offline"))
	if err != nil {
		return tokenError("authorization_code", err)
	}
	return m.install(cred, tok)
}

// Refresh redeems the stored refresh token for a new access token.
func (m *CredentialManager) Refresh(ctx context.Context) error {
	m.mu.RLock()
	if m.credential == nil || m.credential.Kind != OAuthCredential || m.token == nil || m.token.RefreshToken == "" {
		m.mu.RUnlock()
		return fmt.Errorf("%w: OAuth not initialized or no refresh token available", ErrNotInitialized)
	}
	cred := m.credential
	refreshToken := m.token.RefreshToken
	m.mu.RUnlock()

	src := m.oauthConfig(*cred).TokenSource(m.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return tokenError("refresh_token", err)
	}
	return m.install(cred, tok)
}

// NeedsRefresh reports whether an OAuth token is within RefreshWindow of
// expiring. It never triggers a refresh itself.
func (m *CredentialManager) NeedsRefresh() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.credential == nil || m.credential.Kind != OAuthCredential || m.token == nil {
		return false
	}
	return !m.now().Before(m.token.ExpiresAt.Add(-RefreshWindow))
}

// IsAuthenticated reports whether token state and a transport both exist.
func (m *CredentialManager) IsAuthenticated() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.token != nil && m.transport != nil
}

// CurrentTransport returns the transport bound to the current access key.
func (m *CredentialManager) CurrentTransport() (Transport, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.transport == nil {
		return nil, fmt.Errorf("%w: Linear client not initialized", ErrNotAuthenticated)
	}
	return m.transport, nil
}

// Status returns a snapshot of the session without secrets.
func (m *CredentialManager) Status() SessionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	st := SessionStatus{
		Kind:          "none",
		Authenticated: m.token != nil && m.transport != nil,
		PendingStates: len(m.pendingStates),
	}
	if m.credential != nil {
		st.Kind = m.credential.Kind.String()
	}
	if m.token != nil && m.token.ExpiresAt != neverExpires {
		expiresAt := m.token.ExpiresAt
		st.ExpiresAt = &expiresAt
		st.NeedsRefresh = m.credential.Kind == OAuthCredential &&
			!m.now().Before(m.token.ExpiresAt.Add(-RefreshWindow))
	}
	return st
}

// install replaces the token state and rebuilds the transport.
func (m *CredentialManager) install(cred *Credential, tok *oauth2.Token) error {
	expiresAt := m.expiry(tok)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.credential != cred {
		return fmt.Errorf("%w: credential was replaced during token exchange", ErrNotInitialized)
	}
	m.token = &TokenState{
		AccessKey:    tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}
	m.transport = m.newTransport(m.bearerClient(tok.AccessToken))

	m.logger.Info().Time("expires_at", expiresAt).Msg("oauth tokens installed")
	return nil
}

// expiry computes now + expires_in with the manager's clock. Tokens that
// report no lifetime never expire.
func (m *CredentialManager) expiry(tok *oauth2.Token) time.Time {
	var seconds float64
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		seconds = v
	case int64:
		seconds = float64(v)
	case json.Number:
		seconds, _ = v.Float64()
	case string:
		seconds, _ = strconv.ParseFloat(v, 64)
	}
	if seconds > 0 {
		return m.now().Add(time.Duration(seconds * float64(time.Second)))
	}
	if !tok.Expiry.IsZero() {
		return tok.Expiry
	}
	return neverExpires
}

func (m *CredentialManager) oauthConfig(cred Credential) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RedirectURL:  cred.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:   m.authorizeURL,
			TokenURL:  m.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// tokenContext makes the oauth2 package use our HTTP client, with the JSON
// Accept header Linear's token endpoint expects.
func (m *CredentialManager) tokenContext(ctx context.Context) context.Context {
	client := &http.Client{
		Timeout: m.httpClient.Timeout,
		Transport: &headerTransport{
			base:   baseTransport(m.httpClient),
			header: "Accept",
			value:  "application/json",
		},
	}
	return context.WithValue(ctx, oauth2.HTTPClient, client)
}

// staticKeyClient sends the personal API key as-is in the Authorization header.
func (m *CredentialManager) staticKeyClient(apiKey string) *http.Client {
	return &http.Client{
		Timeout: m.httpClient.Timeout,
		Transport: &headerTransport{
			base:   baseTransport(m.httpClient),
			header: "Authorization",
			value:  apiKey,
		},
	}
}

// bearerClient sends an OAuth access token as a bearer token.
func (m *CredentialManager) bearerClient(accessToken string) *http.Client {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, m.httpClient)
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: accessToken,
		TokenType:   "Bearer",
	}))
	client.Timeout = m.httpClient.Timeout
	return client
}

func baseTransport(client *http.Client) http.RoundTripper {
	if client.Transport != nil {
		return client.Transport
	}
	return http.DefaultTransport
}

// tokenError converts an oauth2 failure into a TokenExchangeError.
func tokenError(grant string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := ""
		if re.Response != nil {
			status = re.Response.Status
		}
		return &TokenExchangeError{Grant: grant, Status: status, Body: string(re.Body)}
	}
	return &TokenExchangeError{Grant: grant, Err: err}
}

// headerTransport is an http.RoundTripper that sets one header on every request.
type headerTransport struct {
	base   http.RoundTripper
	header string
	value  string
}

// RoundTrip implements http.RoundTripper by adding the header to a clone of the request.
func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clonedReq := req.Clone(req.Context())
	clonedReq.Header.Set(t.header, t.value)
	return t.base.RoundTrip(clonedReq)
}
