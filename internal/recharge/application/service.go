package application

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"meterpay/internal/observability/metrics"
	recharge "meterpay/internal/recharge/domain"
)

const (
	defaultCheckoutTimeout = 15 * time.Minute
)

// SessionRegistry keeps open checkout sessions addressable by order id.
type SessionRegistry interface {
	Save(ctx context.Context, session *CheckoutSession) error
	Get(ctx context.Context, orderID string) (*CheckoutSession, error)
	Delete(ctx context.Context, orderID string) error
}

// TokenIssuer binds checkout callbacks to one order.
type TokenIssuer interface {
	IssueCheckoutToken(orderID, customerRef string, ttl time.Duration) (string, error)
	ParseCheckoutToken(token string) (orderID, customerRef string, err error)
}

// NoticePublisher fans outcome notices out to listeners.
type NoticePublisher interface {
	Publish(ctx context.Context, notice recharge.Notice)
}

// Checkout is what the caller needs to open the checkout surface.
type Checkout struct {
	Order     recharge.PaymentOrder
	Token     string
	ExpiresAt time.Time
}

// Status is a snapshot of one customer's recharge flow.
type Status struct {
	State      recharge.State
	Processing bool
	Selection  recharge.Selection
	Order      *recharge.PaymentOrder
	Notice     *recharge.Notice
}

// Service runs the recharge flow per customer:
// selection, initiation, checkout handoff, bounded wait and reconciliation.
type Service struct {
	initiator    *Initiator
	registry     SessionRegistry
	tokens       TokenIssuer
	publisher    NoticePublisher
	catalog      recharge.Catalog
	timeout      time.Duration
	handoffDelay time.Duration
	logger       *log.Logger

	mu    sync.Mutex
	flows map[string]*flow
}

type flow struct {
	selector   *recharge.Selector
	reconciler *Reconciler
	session    *CheckoutSession
}

// Option configures the service.
type Option func(*Service)

// WithCatalog sets the preset amounts.
func WithCatalog(catalog recharge.Catalog) Option {
	return func(s *Service) {
		if len(catalog) > 0 {
			s.catalog = catalog
		}
	}
}

// WithCheckoutTimeout bounds how long a checkout may stay open.
func WithCheckoutTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		if timeout > 0 {
			s.timeout = timeout
		}
	}
}

// WithHandoffDelay sets the pause between initiation and handoff.
func WithHandoffDelay(delay time.Duration) Option {
	return func(s *Service) {
		if delay >= 0 {
			s.handoffDelay = delay
		}
	}
}

// WithPublisher sets the notice publisher.
func WithPublisher(publisher NoticePublisher) Option {
	return func(s *Service) {
		if publisher != nil {
			s.publisher = publisher
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService constructs the recharge service.
func NewService(initiator *Initiator, registry SessionRegistry, tokens TokenIssuer, opts ...Option) (*Service, error) {
	if initiator == nil {
		return nil, errors.New("recharge service: nil initiator")
	}
	if registry == nil {
		return nil, errors.New("recharge service: nil session registry")
	}
	if tokens == nil {
		return nil, errors.New("recharge service: nil token issuer")
	}
	s := &Service{
		initiator: initiator,
		registry:  registry,
		tokens:    tokens,
		catalog:   recharge.DefaultCatalog(),
		timeout:   defaultCheckoutTimeout,
		logger:    log.New(log.Writer(), "", log.LstdFlags),
		flows:     make(map[string]*flow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Catalog returns the preset amounts.
func (s *Service) Catalog() recharge.Catalog {
	return append(recharge.Catalog(nil), s.catalog...)
}

// Fees returns the fees applied on top of every principal.
func (s *Service) Fees() recharge.Fees { return s.initiator.Fees() }

// SelectPreset toggles a preset amount.
func (s *Service) SelectPreset(customerRef string, amount recharge.ChargeAmount) (recharge.Selection, error) {
	f, err := s.flow(customerRef)
	if err != nil {
		return recharge.NoSelection(), err
	}
	return f.selector.SelectPreset(amount)
}

// SelectCustom records a free-form entry.
func (s *Service) SelectCustom(customerRef, rawText string) (recharge.Selection, error) {
	f, err := s.flow(customerRef)
	if err != nil {
		return recharge.NoSelection(), err
	}
	return f.selector.SelectCustom(rawText), nil
}

// CommitKeypad commits an entry-pad value within bounds.
func (s *Service) CommitKeypad(customerRef, rawText string) (recharge.Selection, error) {
	f, err := s.flow(customerRef)
	if err != nil {
		return recharge.NoSelection(), err
	}
	return f.selector.CommitKeypad(rawText)
}

// ClearSelection drops the customer's selection.
func (s *Service) ClearSelection(customerRef string) error {
	f, err := s.flow(customerRef)
	if err != nil {
		return err
	}
	f.selector.Clear()
	return nil
}

// Begin initiates a payment for the current selection and opens its checkout session.
// The result is awaited in the background for at most the checkout timeout.
func (s *Service) Begin(ctx context.Context, customer recharge.Customer) (Checkout, error) {
	f, err := s.flow(customer.AccountID)
	if err != nil {
		return Checkout{}, err
	}

	var current *recharge.ChargeAmount
	if amount, ok := f.selector.Current(); ok {
		current = &amount
	}
	order, err := s.initiator.Initiate(current, customer)
	if err != nil {
		metrics.IncCheckoutInitiate(metrics.ResultInvalid)
		return Checkout{}, err
	}
	if err := f.reconciler.Begin(order); err != nil {
		metrics.IncCheckoutInitiate(metrics.ResultError)
		return Checkout{}, err
	}

	session := NewCheckoutSession(order)
	token, err := s.tokens.IssueCheckoutToken(order.ID, order.CustomerRef, s.timeout)
	if err == nil {
		err = s.registry.Save(ctx, session)
	}
	if err != nil {
		s.fail(ctx, f, err)
		metrics.IncCheckoutInitiate(metrics.ResultError)
		return Checkout{}, err
	}

	s.mu.Lock()
	f.session = session
	s.mu.Unlock()

	started := time.Now()
	go s.await(f, session, started)

	if s.handoffDelay > 0 {
		timer := time.NewTimer(s.handoffDelay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			_ = session.Dismiss()
			metrics.IncCheckoutInitiate(metrics.ResultError)
			return Checkout{}, ctx.Err()
		}
	}

	metrics.IncCheckoutInitiate(metrics.ResultSuccess)
	s.logger.Printf("recharge: checkout opened customer=%s order=%s total=%s", order.CustomerRef, order.ID, order.Total)
	return Checkout{Order: order, Token: token, ExpiresAt: started.Add(s.timeout)}, nil
}

// Complete delivers the provider's success callback for the session bound to token.
func (s *Service) Complete(ctx context.Context, token, paymentID string) error {
	session, err := s.sessionForToken(ctx, token)
	if err != nil {
		return err
	}
	if err := session.Complete(paymentID); err != nil {
		if errors.Is(err, recharge.ErrAlreadyResolved) {
			metrics.IncCheckoutLateSignal()
		}
		return err
	}
	return nil
}

// Dismiss delivers the provider's dismissal callback for the session bound to token.
func (s *Service) Dismiss(ctx context.Context, token string) error {
	session, err := s.sessionForToken(ctx, token)
	if err != nil {
		return err
	}
	if err := session.Dismiss(); err != nil {
		if errors.Is(err, recharge.ErrAlreadyResolved) {
			metrics.IncCheckoutLateSignal()
		}
		return err
	}
	return nil
}

// Lookup returns the order behind a checkout token while its session is open.
func (s *Service) Lookup(ctx context.Context, token string) (recharge.PaymentOrder, error) {
	session, err := s.sessionForToken(ctx, token)
	if err != nil {
		return recharge.PaymentOrder{}, err
	}
	if session.Resolved() {
		return recharge.PaymentOrder{}, recharge.ErrAlreadyResolved
	}
	return session.Order(), nil
}

// Cancel closes the customer's open checkout surface from the app side.
func (s *Service) Cancel(customerRef string) error {
	f, err := s.flow(customerRef)
	if err != nil {
		return err
	}
	s.mu.Lock()
	session := f.session
	s.mu.Unlock()
	if session == nil {
		return recharge.ErrNotAwaiting
	}
	return session.Dismiss()
}

// Status returns the customer's flow snapshot.
func (s *Service) Status(customerRef string) (Status, error) {
	f, err := s.flow(customerRef)
	if err != nil {
		return Status{}, err
	}
	status := Status{
		State:      f.reconciler.State(),
		Processing: f.reconciler.Processing(),
		Selection:  f.selector.Selection(),
	}
	if order, ok := f.reconciler.Order(); ok {
		status.Order = &order
	}
	if notice, ok := f.reconciler.Notice(); ok {
		status.Notice = &notice
	}
	return status, nil
}

// Acknowledge dismisses the outcome notice and returns the flow to Idle.
func (s *Service) Acknowledge(customerRef string) (recharge.Notice, error) {
	f, err := s.flow(customerRef)
	if err != nil {
		return recharge.Notice{}, err
	}
	return f.reconciler.Acknowledge()
}

// Forget drops a customer's flow, e.g. on logout. An open checkout is dismissed first.
func (s *Service) Forget(customerRef string) {
	s.mu.Lock()
	var session *CheckoutSession
	if f := s.flows[customerRef]; f != nil {
		session = f.session
	}
	delete(s.flows, customerRef)
	s.mu.Unlock()
	if session != nil {
		_ = session.Dismiss()
	}
}

func (s *Service) await(f *flow, session *CheckoutSession, started time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result, err := session.Wait(ctx)
	if err != nil {
		// Either Expire wins or a signal that raced the deadline is already buffered.
		_ = session.Expire()
		result, _ = session.Wait(context.Background())
	}

	order := session.Order()
	if err := s.registry.Delete(context.Background(), order.ID); err != nil {
		s.logger.Printf("recharge: drop session order=%s error: %v", order.ID, err)
	}
	s.mu.Lock()
	if f.session == session {
		f.session = nil
	}
	s.mu.Unlock()

	notice, err := f.reconciler.Resolve(result)
	if err != nil {
		s.logger.Printf("recharge: reconcile order=%s error: %v", order.ID, err)
		return
	}
	metrics.ObserveCheckoutOutcome(string(result.Outcome), time.Since(started))
	s.logger.Printf("recharge: checkout %s customer=%s order=%s payment=%s", result.Outcome, order.CustomerRef, order.ID, result.PaymentID)
	if s.publisher != nil {
		s.publisher.Publish(context.Background(), notice)
	}
}

func (s *Service) fail(ctx context.Context, f *flow, cause error) {
	notice, err := f.reconciler.Fail(cause)
	if err != nil {
		return
	}
	s.logger.Printf("recharge: checkout handoff failed customer=%s order=%s error: %v", notice.CustomerRef, notice.OrderID, cause)
	if s.publisher != nil {
		s.publisher.Publish(ctx, notice)
	}
}

func (s *Service) sessionForToken(ctx context.Context, token string) (*CheckoutSession, error) {
	orderID, _, err := s.tokens.ParseCheckoutToken(token)
	if err != nil {
		return nil, err
	}
	return s.registry.Get(ctx, orderID)
}

func (s *Service) flow(customerRef string) (*flow, error) {
	if customerRef == "" {
		return nil, errors.New("recharge service: empty customer ref")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.flows[customerRef]
	if f == nil {
		selector := recharge.NewSelector(s.catalog)
		f = &flow{selector: selector, reconciler: NewReconciler(selector)}
		s.flows[customerRef] = f
	}
	return f, nil
}
