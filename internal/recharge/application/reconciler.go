package application

import (
	"fmt"
	"sync"

	recharge "meterpay/internal/recharge/domain"
)

// Reconciler tracks one customer's checkout from initiation to acknowledgement.
//
//	Idle -> AwaitingResult -> {Succeeded, Cancelled, TimedOut, Failed} -> Idle
type Reconciler struct {
	mu       sync.Mutex
	selector *recharge.Selector
	state    recharge.State
	order    *recharge.PaymentOrder
	notice   *recharge.Notice
}

// NewReconciler constructs a reconciler bound to the customer's selector.
func NewReconciler(selector *recharge.Selector) *Reconciler {
	return &Reconciler{selector: selector, state: recharge.StateIdle}
}

// State returns the current state.
func (r *Reconciler) State() recharge.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Processing is true while a checkout awaits its result.
func (r *Reconciler) Processing() bool {
	return r.State() == recharge.StateAwaitingResult
}

// Order returns the pending order, if any.
func (r *Reconciler) Order() (recharge.PaymentOrder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.order == nil {
		return recharge.PaymentOrder{}, false
	}
	return *r.order, true
}

// Notice returns the outcome notice waiting for acknowledgement.
func (r *Reconciler) Notice() (recharge.Notice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.notice == nil {
		return recharge.Notice{}, false
	}
	return *r.notice, true
}

// Begin moves Idle to AwaitingResult for order.
func (r *Reconciler) Begin(order recharge.PaymentOrder) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recharge.StateIdle {
		return recharge.ErrCheckoutInProgress
	}
	r.state = recharge.StateAwaitingResult
	r.order = &order
	r.notice = nil
	return nil
}

// Resolve consumes the checkout result and moves to a terminal state.
func (r *Reconciler) Resolve(result recharge.CheckoutResult) (recharge.Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recharge.StateAwaitingResult || r.order == nil {
		return recharge.Notice{}, recharge.ErrNotAwaiting
	}

	notice := recharge.Notice{
		CustomerRef: r.order.CustomerRef,
		OrderID:     r.order.ID,
	}
	switch result.Outcome {
	case recharge.OutcomeSuccess:
		r.state = recharge.StateSucceeded
		if r.selector != nil {
			r.selector.Clear()
		}
		notice.Level = recharge.NoticeSuccess
		notice.PaymentID = result.PaymentID
		notice.Amount = result.Amount.Display()
		notice.Message = fmt.Sprintf("Payment of %s %s successful. Payment ID: %s", r.order.Currency, result.Amount.Display(), result.PaymentID)
	case recharge.OutcomeCancelled:
		r.state = recharge.StateCancelled
		notice.Level = recharge.NoticeInfo
		notice.Message = "Payment cancelled"
		notice.Retryable = true
	case recharge.OutcomeTimedOut:
		r.state = recharge.StateTimedOut
		notice.Level = recharge.NoticeError
		notice.Message = "Payment timed out before the checkout reported a result"
		notice.Retryable = true
	default:
		return recharge.Notice{}, fmt.Errorf("reconciler: unknown outcome %q", result.Outcome)
	}
	notice.State = r.state
	r.notice = &notice
	return notice, nil
}

// Fail ends a pending checkout that could not be handed off.
func (r *Reconciler) Fail(cause error) (recharge.Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recharge.StateAwaitingResult || r.order == nil {
		return recharge.Notice{}, recharge.ErrNotAwaiting
	}
	r.state = recharge.StateFailed
	message := "Payment could not be started, please try again"
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	notice := recharge.Notice{
		CustomerRef: r.order.CustomerRef,
		OrderID:     r.order.ID,
		State:       r.state,
		Level:       recharge.NoticeError,
		Message:     message,
		Retryable:   true,
	}
	r.notice = &notice
	return notice, nil
}

// Acknowledge returns a terminal state to Idle and hands back its notice.
func (r *Reconciler) Acknowledge() (recharge.Notice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.state.Terminal() {
		return recharge.Notice{}, recharge.ErrNothingToAcknowledge
	}
	var notice recharge.Notice
	if r.notice != nil {
		notice = *r.notice
	}
	r.state = recharge.StateIdle
	r.order = nil
	r.notice = nil
	return notice, nil
}
