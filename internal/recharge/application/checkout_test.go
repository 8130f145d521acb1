package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	recharge "meterpay/internal/recharge/domain"
)

func TestCheckoutSessionFirstSignalWins(t *testing.T) {
	session := NewCheckoutSession(recharge.PaymentOrder{ID: "order-1", Principal: recharge.ChargeAmountFromInt(1000)})

	if err := session.Complete("pay_abc"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if err := session.Dismiss(); !errors.Is(err, recharge.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if err := session.Expire(); !errors.Is(err, recharge.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}

	result, err := session.Wait(context.Background())
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	if result.Outcome != recharge.OutcomeSuccess || result.PaymentID != "pay_abc" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Amount.Display() != "1000" {
		t.Fatalf("unexpected amount %s", result.Amount)
	}
}

func TestCheckoutSessionConcurrentSignals(t *testing.T) {
	session := NewCheckoutSession(recharge.PaymentOrder{ID: "order-1"})

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if session.Complete("pay_x") == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
		go func() {
			defer wg.Done()
			if session.Dismiss() == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if accepted != 1 {
		t.Fatalf("expected exactly one accepted signal, got %d", accepted)
	}
	if !session.Resolved() {
		t.Fatalf("expected resolved session")
	}
}

func TestCheckoutSessionRejectsEmptyPaymentID(t *testing.T) {
	session := NewCheckoutSession(recharge.PaymentOrder{ID: "order-1"})
	if err := session.Complete(""); !errors.Is(err, recharge.ErrEmptyPaymentID) {
		t.Fatalf("expected ErrEmptyPaymentID, got %v", err)
	}
	if session.Resolved() {
		t.Fatalf("empty payment id resolved the session")
	}
}

func TestCheckoutSessionWaitHonoursContext(t *testing.T) {
	session := NewCheckoutSession(recharge.PaymentOrder{ID: "order-1"})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := session.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}
