package session

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"meterpay/internal/backend"
	recharge "meterpay/internal/recharge/domain"
)

var (
	// ErrInvalidCredentials is returned when the backend rejects a login.
	ErrInvalidCredentials = errors.New("session: invalid credentials")
	// ErrNotLoggedIn is returned for operations that need an active session.
	ErrNotLoggedIn = errors.New("session: not logged in")
	// ErrPasswordMismatch is returned when the new password and its confirmation differ.
	ErrPasswordMismatch = errors.New("session: password confirmation mismatch")
	// ErrPasswordRejected is returned when the backend refuses a password change.
	ErrPasswordRejected = errors.New("session: password change rejected")
)

// Backend is the subset of the account backend the session needs.
type Backend interface {
	Login(ctx context.Context, userID, password string) (backend.LoginResult, error)
	ChangePassword(ctx context.Context, req backend.ChangePasswordRequest) (backend.ChangePasswordResult, error)
	SiteTelemetry(ctx context.Context, siteID string) (backend.SiteTelemetry, error)
}

// TokenIssuer mints bearer tokens for logged-in users.
type TokenIssuer interface {
	IssueSessionToken(accountID, sessionID string, ttl time.Duration) (string, error)
}

// LogoutHook runs after a user logs out, e.g. to drop in-flight recharge state.
type LogoutHook func(accountID string)

// User is the logged-in account.
type User struct {
	ID                     string    `json:"id"`
	Email                  string    `json:"email,omitempty"`
	SiteID                 string    `json:"site_id,omitempty"`
	PasswordChangeRequired bool      `json:"password_change_required"`
	LoggedInAt             time.Time `json:"logged_in_at"`
}

// LoginOutcome is what a successful login hands back.
type LoginOutcome struct {
	User    User   `json:"user"`
	Token   string `json:"token"`
	Message string `json:"message,omitempty"`
}

// Manager holds the explicit session state of every logged-in account.
// It is created once at startup and passed to whoever needs the current user.
type Manager struct {
	backend  Backend
	tokens   TokenIssuer
	ttl      time.Duration
	logger   *log.Logger
	onLogout []LogoutHook

	mu       sync.RWMutex
	users    map[string]User
	sessions map[string]string // account id -> jti of its live login
}

// Option configures the manager.
type Option func(*Manager)

// WithTokenTTL sets the bearer token lifetime.
func WithTokenTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithLogoutHook registers a hook run after logout.
func WithLogoutHook(hook LogoutHook) Option {
	return func(m *Manager) {
		if hook != nil {
			m.onLogout = append(m.onLogout, hook)
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager constructs a session manager.
func NewManager(b Backend, tokens TokenIssuer, opts ...Option) (*Manager, error) {
	if b == nil {
		return nil, errors.New("session: nil backend")
	}
	if tokens == nil {
		return nil, errors.New("session: nil token issuer")
	}
	m := &Manager{
		backend:  b,
		tokens:   tokens,
		ttl:      12 * time.Hour,
		logger:   log.Default(),
		users:    make(map[string]User),
		sessions: make(map[string]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Login checks credentials against the backend and opens a session.
// siteID may be empty when the account id doubles as the site id.
func (m *Manager) Login(ctx context.Context, userID, password, siteID string) (LoginOutcome, error) {
	userID = strings.TrimSpace(userID)
	result, err := m.backend.Login(ctx, userID, password)
	if err != nil {
		return LoginOutcome{}, err
	}
	if !result.Success {
		m.logger.Printf("session: login rejected user=%s", userID)
		return LoginOutcome{Message: result.Message}, ErrInvalidCredentials
	}
	sessionID := uuid.NewString()
	token, err := m.tokens.IssueSessionToken(userID, sessionID, m.ttl)
	if err != nil {
		return LoginOutcome{}, err
	}
	if siteID == "" {
		siteID = userID
	}
	user := User{
		ID:                     userID,
		SiteID:                 siteID,
		PasswordChangeRequired: result.RequiresPasswordChange(),
		LoggedInAt:             time.Now().UTC(),
	}
	if strings.Contains(userID, "@") {
		user.Email = userID
	}

	m.mu.Lock()
	m.users[userID] = user
	m.sessions[userID] = sessionID
	m.mu.Unlock()
	m.logger.Printf("session: login user=%s password_change_required=%t", userID, user.PasswordChangeRequired)
	return LoginOutcome{User: user, Token: token, Message: result.Message}, nil
}

// Logout closes the session. Unknown accounts are ignored.
func (m *Manager) Logout(accountID string) {
	m.mu.Lock()
	_, ok := m.users[accountID]
	delete(m.users, accountID)
	delete(m.sessions, accountID)
	m.mu.Unlock()
	if !ok {
		return
	}
	for _, hook := range m.onLogout {
		hook(accountID)
	}
	m.logger.Printf("session: logout user=%s", accountID)
}

// CurrentUser returns the logged-in user for accountID.
func (m *Manager) CurrentUser(accountID string) (User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[accountID]
	return user, ok
}

// Active implements auth.SessionValidator. Only the token of the latest login is live;
// a new login or a logout revokes earlier ones.
func (m *Manager) Active(accountID, sessionID string) bool {
	if sessionID == "" {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	live, ok := m.sessions[accountID]
	return ok && live == sessionID
}

// PasswordChange is the user-facing password change form.
type PasswordChange struct {
	Email           string `json:"email"`
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
	Confirmation    string `json:"new_password_confirmation"`
}

// ChangePassword submits a password change for the logged-in user.
func (m *Manager) ChangePassword(ctx context.Context, accountID string, change PasswordChange) (string, error) {
	user, ok := m.CurrentUser(accountID)
	if !ok {
		return "", ErrNotLoggedIn
	}
	if change.NewPassword == "" || change.NewPassword != change.Confirmation {
		return "", ErrPasswordMismatch
	}
	email := change.Email
	if email == "" {
		email = user.Email
	}
	if email == "" {
		return "", errors.New("session: email required")
	}
	result, err := m.backend.ChangePassword(ctx, backend.ChangePasswordRequest{
		UserEmail:               email,
		CurrentPassword:         change.CurrentPassword,
		NewPassword:             change.NewPassword,
		NewPasswordConfirmation: change.Confirmation,
	})
	if err != nil {
		return "", err
	}
	if !result.Status {
		return result.Message, ErrPasswordRejected
	}

	m.mu.Lock()
	if current, ok := m.users[accountID]; ok {
		current.PasswordChangeRequired = false
		current.Email = email
		m.users[accountID] = current
	}
	m.mu.Unlock()
	return result.Message, nil
}

// Telemetry fetches the live site view for the logged-in user.
func (m *Manager) Telemetry(ctx context.Context, accountID string) (backend.SiteTelemetry, error) {
	user, ok := m.CurrentUser(accountID)
	if !ok {
		return backend.SiteTelemetry{}, ErrNotLoggedIn
	}
	return m.backend.SiteTelemetry(ctx, user.SiteID)
}

// Customer resolves the paying customer for a recharge. Contact fields come from
// site telemetry when it is reachable; the account id alone is enough otherwise.
func (m *Manager) Customer(ctx context.Context, accountID string) (recharge.Customer, error) {
	user, ok := m.CurrentUser(accountID)
	if !ok {
		return recharge.Customer{}, ErrNotLoggedIn
	}
	customer := recharge.Customer{AccountID: user.ID, Email: user.Email}
	telemetry, err := m.backend.SiteTelemetry(ctx, user.SiteID)
	if err != nil {
		m.logger.Printf("session: customer prefill unavailable user=%s: %v", accountID, err)
		return customer, nil
	}
	customer.Name = telemetry.Site.ConsumerName
	customer.Phone = telemetry.Site.Phone
	if customer.Email == "" {
		customer.Email = telemetry.Site.Email
	}
	return customer, nil
}

// ReportSubject returns the site whose consumption the account's reports cover.
func (m *Manager) ReportSubject(_ context.Context, accountID string) (string, error) {
	user, ok := m.CurrentUser(accountID)
	if !ok {
		return "", ErrNotLoggedIn
	}
	return user.SiteID, nil
}
