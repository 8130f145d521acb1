package memory

import (
	"context"
	"errors"
	"sync"

	"meterpay/internal/recharge/application"
	recharge "meterpay/internal/recharge/domain"
)

// SessionRegistry is an in-process registry of open checkout sessions.
// Sessions are never persisted; a restart drops every open checkout.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*application.CheckoutSession
}

// NewSessionRegistry constructs a registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*application.CheckoutSession)}
}

// Save registers a session under its order id.
func (r *SessionRegistry) Save(ctx context.Context, session *application.CheckoutSession) error {
	_ = ctx
	if session == nil {
		return errors.New("session registry: nil session")
	}
	id := session.Order().ID
	if id == "" {
		return errors.New("session registry: empty order id")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[id]; exists {
		return errors.New("session registry: duplicate order id")
	}
	r.sessions[id] = session
	return nil
}

// Get loads a session by order id.
func (r *SessionRegistry) Get(ctx context.Context, orderID string) (*application.CheckoutSession, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	session := r.sessions[orderID]
	if session == nil {
		return nil, recharge.ErrSessionNotFound
	}
	return session, nil
}

// Delete drops a session. Unknown ids are ignored.
func (r *SessionRegistry) Delete(ctx context.Context, orderID string) error {
	_ = ctx
	r.mu.Lock()
	delete(r.sessions, orderID)
	r.mu.Unlock()
	return nil
}

// Len returns the number of open sessions.
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
