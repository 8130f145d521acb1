package application

import (
	"context"
	"sync/atomic"

	recharge "meterpay/internal/recharge/domain"
)

// CheckoutSession is the completion channel of one checkout surface.
// The first of Complete, Dismiss or Expire wins; later signals are rejected.
type CheckoutSession struct {
	order    recharge.PaymentOrder
	resolved atomic.Bool
	done     chan recharge.CheckoutResult
}

// NewCheckoutSession opens a session for order.
func NewCheckoutSession(order recharge.PaymentOrder) *CheckoutSession {
	return &CheckoutSession{
		order: order,
		done:  make(chan recharge.CheckoutResult, 1),
	}
}

// Order returns the order the session was opened for.
func (s *CheckoutSession) Order() recharge.PaymentOrder { return s.order }

// Complete delivers the provider's success payload.
func (s *CheckoutSession) Complete(paymentID string) error {
	if paymentID == "" {
		return recharge.ErrEmptyPaymentID
	}
	return s.resolve(recharge.Success(paymentID, s.order.Principal))
}

// Dismiss delivers a user cancellation.
func (s *CheckoutSession) Dismiss() error {
	return s.resolve(recharge.Cancelled())
}

// Expire closes the session when the bounded wait runs out.
func (s *CheckoutSession) Expire() error {
	return s.resolve(recharge.TimedOut())
}

// Resolved reports whether a signal has been accepted.
func (s *CheckoutSession) Resolved() bool { return s.resolved.Load() }

// Wait blocks until the session resolves or ctx ends.
func (s *CheckoutSession) Wait(ctx context.Context) (recharge.CheckoutResult, error) {
	select {
	case result := <-s.done:
		return result, nil
	case <-ctx.Done():
		return recharge.CheckoutResult{}, ctx.Err()
	}
}

func (s *CheckoutSession) resolve(result recharge.CheckoutResult) error {
	if !s.resolved.CompareAndSwap(false, true) {
		return recharge.ErrAlreadyResolved
	}
	s.done <- result
	return nil
}
