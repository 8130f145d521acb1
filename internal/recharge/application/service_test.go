package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	recharge "meterpay/internal/recharge/domain"
)

type stubRegistry struct {
	mu       sync.Mutex
	sessions map[string]*CheckoutSession
	saveErr  error
}

func newStubRegistry() *stubRegistry {
	return &stubRegistry{sessions: make(map[string]*CheckoutSession)}
}

func (r *stubRegistry) Save(_ context.Context, session *CheckoutSession) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.Order().ID] = session
	return nil
}

func (r *stubRegistry) Get(_ context.Context, orderID string) (*CheckoutSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	session := r.sessions[orderID]
	if session == nil {
		return nil, recharge.ErrSessionNotFound
	}
	return session, nil
}

func (r *stubRegistry) Delete(_ context.Context, orderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, orderID)
	return nil
}

type stubTokens struct{}

func (stubTokens) IssueCheckoutToken(orderID, customerRef string, _ time.Duration) (string, error) {
	return "tok|" + orderID + "|" + customerRef, nil
}

func (stubTokens) ParseCheckoutToken(token string) (string, string, error) {
	parts := strings.Split(token, "|")
	if len(parts) != 3 || parts[0] != "tok" {
		return "", "", errors.New("bad token")
	}
	return parts[1], parts[2], nil
}

type chanPublisher struct {
	ch chan recharge.Notice
}

func (p chanPublisher) Publish(_ context.Context, notice recharge.Notice) {
	p.ch <- notice
}

func newTestService(t *testing.T, registry SessionRegistry, opts ...Option) (*Service, chan recharge.Notice) {
	t.Helper()
	initiator, err := NewInitiator(recharge.Fees{ServiceFee: decimal.NewFromInt(10), Tax: decimal.RequireFromString("1.8")})
	if err != nil {
		t.Fatalf("new initiator: %v", err)
	}
	notices := make(chan recharge.Notice, 4)
	opts = append([]Option{WithPublisher(chanPublisher{ch: notices})}, opts...)
	service, err := NewService(initiator, registry, stubTokens{}, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service, notices
}

func waitNotice(t *testing.T, notices chan recharge.Notice) recharge.Notice {
	t.Helper()
	select {
	case notice := <-notices:
		return notice
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for notice")
	}
	return recharge.Notice{}
}

var testCustomer = recharge.Customer{AccountID: "MTR-001", Name: "Asha", Email: "asha@example.com", Phone: "9999999999"}

func TestServiceSuccessFlow(t *testing.T) {
	service, notices := newTestService(t, newStubRegistry())
	ctx := context.Background()

	if _, err := service.SelectPreset("MTR-001", recharge.ChargeAmountFromInt(1000)); err != nil {
		t.Fatalf("select preset: %v", err)
	}
	checkout, err := service.Begin(ctx, testCustomer)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if checkout.Order.Total.String() != "1011.80" {
		t.Fatalf("unexpected total %s", checkout.Order.Total)
	}
	status, _ := service.Status("MTR-001")
	if status.State != recharge.StateAwaitingResult || !status.Processing {
		t.Fatalf("expected awaiting result, got %+v", status)
	}

	if err := service.Complete(ctx, checkout.Token, "pay_abc"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	notice := waitNotice(t, notices)
	if notice.State != recharge.StateSucceeded || notice.PaymentID != "pay_abc" || notice.Amount != "1000" {
		t.Fatalf("unexpected notice %+v", notice)
	}

	status, _ = service.Status("MTR-001")
	if status.Processing || status.Selection.Kind() != recharge.SelectionNone {
		t.Fatalf("expected cleared selection and no processing, got %+v", status)
	}
	if err := service.Dismiss(ctx, checkout.Token); err == nil {
		t.Fatalf("late dismiss should be rejected")
	}
	if _, err := service.Acknowledge("MTR-001"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	status, _ = service.Status("MTR-001")
	if status.State != recharge.StateIdle {
		t.Fatalf("expected idle, got %s", status.State)
	}
}

func TestServiceCancelFlowPreservesSelection(t *testing.T) {
	service, notices := newTestService(t, newStubRegistry())
	ctx := context.Background()

	if _, err := service.CommitKeypad("MTR-001", "750"); err != nil {
		t.Fatalf("commit keypad: %v", err)
	}
	checkout, err := service.Begin(ctx, testCustomer)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := service.Begin(ctx, testCustomer); !errors.Is(err, recharge.ErrCheckoutInProgress) {
		t.Fatalf("expected ErrCheckoutInProgress, got %v", err)
	}
	if err := service.Dismiss(ctx, checkout.Token); err != nil {
		t.Fatalf("dismiss: %v", err)
	}
	notice := waitNotice(t, notices)
	if notice.State != recharge.StateCancelled {
		t.Fatalf("expected cancelled, got %s", notice.State)
	}
	status, _ := service.Status("MTR-001")
	amount, ok := status.Selection.Amount()
	if !ok || amount.String() != "750.00" {
		t.Fatalf("selection not preserved: %+v", status.Selection)
	}
}

func TestServiceCheckoutTimesOut(t *testing.T) {
	service, notices := newTestService(t, newStubRegistry(), WithCheckoutTimeout(20*time.Millisecond))
	if _, err := service.SelectPreset("MTR-001", recharge.ChargeAmountFromInt(500)); err != nil {
		t.Fatalf("select preset: %v", err)
	}
	checkout, err := service.Begin(context.Background(), testCustomer)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	notice := waitNotice(t, notices)
	if notice.State != recharge.StateTimedOut {
		t.Fatalf("expected timed_out, got %s", notice.State)
	}
	if err := service.Complete(context.Background(), checkout.Token, "pay_late"); err == nil {
		t.Fatalf("completion after timeout should be rejected")
	}
}

func TestServiceBeginWithoutSelectionFails(t *testing.T) {
	service, _ := newTestService(t, newStubRegistry())
	_, err := service.Begin(context.Background(), testCustomer)
	if !recharge.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	status, _ := service.Status("MTR-001")
	if status.State != recharge.StateIdle {
		t.Fatalf("validation failure must leave the flow idle, got %s", status.State)
	}
}

func TestServiceHandoffFailureIsRecoverable(t *testing.T) {
	registry := newStubRegistry()
	registry.saveErr = errors.New("registry down")
	service, notices := newTestService(t, registry)
	if _, err := service.SelectPreset("MTR-001", recharge.ChargeAmountFromInt(200)); err != nil {
		t.Fatalf("select preset: %v", err)
	}
	if _, err := service.Begin(context.Background(), testCustomer); err == nil {
		t.Fatalf("expected handoff error")
	}
	notice := waitNotice(t, notices)
	if notice.State != recharge.StateFailed || !notice.Retryable {
		t.Fatalf("unexpected notice %+v", notice)
	}
	if _, err := service.Acknowledge("MTR-001"); err != nil {
		t.Fatalf("acknowledge: %v", err)
	}
	status, _ := service.Status("MTR-001")
	if status.State != recharge.StateIdle || status.Selection.Kind() != recharge.SelectionPreset {
		t.Fatalf("unexpected status after failure %+v", status)
	}
}

func TestServiceCancelFromApp(t *testing.T) {
	service, notices := newTestService(t, newStubRegistry())
	if _, err := service.SelectPreset("MTR-001", recharge.ChargeAmountFromInt(200)); err != nil {
		t.Fatalf("select preset: %v", err)
	}
	if _, err := service.Begin(context.Background(), testCustomer); err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := service.Cancel("MTR-001"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if notice := waitNotice(t, notices); notice.State != recharge.StateCancelled {
		t.Fatalf("expected cancelled, got %s", notice.State)
	}
}
