package application

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	recharge "meterpay/internal/recharge/domain"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Initiator validates the selected amount and builds a payment order.
type Initiator struct {
	fees     recharge.Fees
	currency string
	clock    Clock
}

// InitiatorOption configures the initiator.
type InitiatorOption func(*Initiator)

// WithCurrency overrides the order currency.
func WithCurrency(currency string) InitiatorOption {
	return func(i *Initiator) {
		if currency != "" {
			i.currency = strings.ToUpper(currency)
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) InitiatorOption {
	return func(i *Initiator) {
		if clock != nil {
			i.clock = clock
		}
	}
}

// NewInitiator constructs an initiator with the configured fees.
func NewInitiator(fees recharge.Fees, opts ...InitiatorOption) (*Initiator, error) {
	if err := fees.Validate(); err != nil {
		return nil, errors.New("initiator: negative fees")
	}
	i := &Initiator{fees: fees, currency: recharge.CurrencyINR, clock: systemClock{}}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Fees returns the configured fees.
func (i *Initiator) Fees() recharge.Fees { return i.fees }

// Initiate builds the order for current, or fails with a ValidationError.
func (i *Initiator) Initiate(current *recharge.ChargeAmount, customer recharge.Customer) (recharge.PaymentOrder, error) {
	if current == nil || current.Decimal().LessThan(recharge.MinChargeAmount) {
		verr := &recharge.ValidationError{Reason: recharge.ReasonMissingOrBelowMinimum}
		if current != nil {
			verr.Amount = current.String()
		}
		return recharge.PaymentOrder{}, verr
	}
	if current.Decimal().GreaterThan(recharge.MaxChargeAmount) {
		return recharge.PaymentOrder{}, &recharge.ValidationError{Reason: recharge.ReasonAboveMaximum, Amount: current.String()}
	}
	if customer.AccountID == "" {
		return recharge.PaymentOrder{}, errors.New("initiator: empty customer account id")
	}

	return recharge.PaymentOrder{
		ID:          uuid.NewString(),
		Principal:   *current,
		ServiceFee:  recharge.NewChargeAmount(i.fees.ServiceFee),
		Tax:         recharge.NewChargeAmount(i.fees.Tax),
		Total:       i.fees.Total(*current),
		Currency:    i.currency,
		Description: fmt.Sprintf("Meter recharge for %s", customer.AccountID),
		CustomerRef: customer.AccountID,
		Receipt:     newReceipt(),
		Customer:    customer,
		CreatedAt:   i.clock.Now(),
	}, nil
}

func newReceipt() string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return "rcpt_" + hex.EncodeToString(buf)
}
