// Package session owns the user-facing session lifecycle: login, logout,
// profile refresh and the pre-expiry warning. It is the only component
// that mutates the credential store in response to user actions, and the
// component that tears the session down when the API client reports an
// unrecoverable authentication failure.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/edulytics/edulytics-client/internal/api"
	"github.com/edulytics/edulytics-client/internal/cache"
	"github.com/edulytics/edulytics-client/internal/config"
	"github.com/edulytics/edulytics-client/internal/credential"
	"github.com/rs/zerolog/log"
)

// Notifier is the UI-level message sink. The session layer reports
// outcomes through it but does not render anything itself.
type Notifier interface {
	Success(message string)
	Error(message string)
	Info(message string)
}

// Navigator is the UI-level navigation sink, used to send the user back
// to the login entry point when the session becomes invalid.
type Navigator interface {
	NavigateToLogin()
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
func (nopNotifier) Info(string)    {}

type nopNavigator struct{}

func (nopNavigator) NavigateToLogin() {}

// Result is the value-style outcome of a session operation. Session
// operations never panic and never surface raw errors to the UI; every
// failure is a Result with an Error message.
type Result struct {
	Success bool
	User    credential.UserProfile
	Error   string
}

func failure(message string) Result {
	return Result{Error: message}
}

// Manager coordinates the credential store, the response cache and the
// API client for user-facing session operations.
type Manager struct {
	client   *api.Client
	creds    credential.Store
	cache    *cache.ResponseCache
	notifier Notifier
	nav      Navigator

	sessionDuration time.Duration
	warningWindow   time.Duration
	now             func() time.Time

	// redirected latches after an authentication-failure redirect so a
	// burst of failing requests produces exactly one navigation. It is
	// re-armed by the next successful login.
	mu         sync.Mutex
	redirected bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithNotifier sets the UI message sink.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		m.notifier = n
	}
}

// WithNavigator sets the UI navigation sink.
func WithNavigator(n Navigator) Option {
	return func(m *Manager) {
		m.nav = n
	}
}

// WithClock overrides the manager's time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager wires a session manager to its collaborators and registers
// it as the client's authentication-failure handler.
func NewManager(cfg config.SessionConfig, client *api.Client, creds credential.Store, respCache *cache.ResponseCache, opts ...Option) *Manager {
	m := &Manager{
		client:          client,
		creds:           creds,
		cache:           respCache,
		notifier:        nopNotifier{},
		nav:             nopNavigator{},
		sessionDuration: time.Duration(cfg.DurationHours) * time.Hour,
		warningWindow:   time.Duration(cfg.WarningWindowMinutes) * time.Minute,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(m)
	}

	client.SetAuthFailureHandler(m.handleAuthFailure)

	return m
}

// Login authenticates against the backend and persists the credential.
// Failures are returned as values; the store is never mutated on a
// failed login.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	if strings.TrimSpace(email) == "" || password == "" {
		return failure("email and password are required")
	}

	resp, err := m.client.Login(ctx, email, password)
	if err != nil {
		return failureFromError(err)
	}

	// some backend failures arrive as HTTP 200 without a token
	if resp.AccessToken == "" {
		detail := resp.Detail
		if detail == "" {
			detail = "login failed"
		}
		return failure(detail)
	}

	cred := credential.Credential{
		Token:   resp.AccessToken,
		User:    resp.User,
		LoginAt: m.now(),
	}
	if err := m.creds.Set(cred); err != nil {
		log.Warn().Err(err).Msg("could not persist credential")
		return failure("could not persist session")
	}

	// a fresh session re-arms the one-shot auth-failure redirect
	m.mu.Lock()
	m.redirected = false
	m.mu.Unlock()

	log.Info().Str("user", resp.User.Email).Str("role", resp.User.Role).Msg("login succeeded")

	return Result{Success: true, User: resp.User}
}

// Logout notifies the backend and unconditionally clears local session
// state. A failing backend call is logged and never blocks the local
// teardown.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.client.Logout(ctx); err != nil {
		log.Warn().Err(err).Msg("backend logout failed, continuing with local teardown")
	}

	m.teardown()
	log.Info().Msg("session ended")
}

// RefreshUser fetches the profile afresh and merges it into the stored
// one field by field, preserving stored values the backend omitted.
func (m *Manager) RefreshUser(ctx context.Context) Result {
	cred, ok := m.creds.Get()
	if !ok {
		return failure("no active session")
	}

	fresh, err := m.client.CurrentUser(ctx)
	if err != nil {
		return failureFromError(err)
	}

	cred.User = cred.User.Merge(fresh)
	if err := m.creds.Set(cred); err != nil {
		log.Warn().Err(err).Msg("could not persist refreshed profile")
		return failure("could not persist session")
	}

	return Result{Success: true, User: cred.User}
}

// CurrentUser returns the stored profile, if a session is present.
func (m *Manager) CurrentUser() (credential.UserProfile, bool) {
	cred, ok := m.creds.Get()
	if !ok {
		return credential.UserProfile{}, false
	}
	return cred.User, true
}

// IsSessionExpiring reports whether the session is inside the pre-expiry
// warning window: close enough to the 24-hour limit to warn the user,
// but not yet past it. Once the session has actually expired this
// returns false; expiry is handled by the auth-failure path, not here.
func (m *Manager) IsSessionExpiring(now time.Time) bool {
	cred, ok := m.creds.Get()
	if !ok {
		return false
	}

	remaining := cred.LoginAt.Add(m.sessionDuration).Sub(now)
	return remaining >= 0 && remaining <= m.warningWindow
}

// handleAuthFailure tears down local session state and sends the user to
// the login entry point. The redirect fires at most once per
// authenticated period, however many concurrent requests fail.
func (m *Manager) handleAuthFailure() {
	m.mu.Lock()
	if m.redirected {
		m.mu.Unlock()
		return
	}
	m.redirected = true
	m.mu.Unlock()

	m.teardown()

	m.notifier.Error("Your session has expired. Please sign in again.")
	m.nav.NavigateToLogin()
}

func (m *Manager) teardown() {
	if err := m.creds.Clear(); err != nil {
		log.Warn().Err(err).Msg("could not clear credential store")
	}
	if m.cache != nil {
		m.cache.InvalidateAll()
	}
}

// failureFromError maps the client's error taxonomy onto user-facing
// result messages.
func failureFromError(err error) Result {
	var httpErr *api.HTTPError
	if errors.As(err, &httpErr) {
		return failure(httpErr.Detail)
	}

	var authErr *api.AuthenticationError
	if errors.As(err, &authErr) {
		if authErr.Detail != "" {
			return failure(authErr.Detail)
		}
		return failure("authentication failed")
	}

	var timeoutErr *api.TimeoutError
	if errors.As(err, &timeoutErr) {
		return failure("the server took too long to respond")
	}

	var validationErr *api.ValidationError
	if errors.As(err, &validationErr) {
		return failure(validationErr.Message)
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return failure("could not reach the server")
	}

	return failure(err.Error())
}
