package recharge

import (
	"time"

	"github.com/shopspring/decimal"
)

// CurrencyINR is the only checkout currency.
const CurrencyINR = "INR"

// Fees are the fixed additive charges applied to every principal.
type Fees struct {
	ServiceFee decimal.Decimal
	Tax        decimal.Decimal
}

// Validate rejects negative fees.
func (f Fees) Validate() error {
	if f.ServiceFee.IsNegative() || f.Tax.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

// Total returns round2(principal + service fee + tax).
func (f Fees) Total(principal ChargeAmount) ChargeAmount {
	return NewChargeAmount(principal.Decimal().Add(f.ServiceFee).Add(f.Tax))
}

// Customer identifies who is paying and pre-fills the checkout form.
type Customer struct {
	AccountID string
	Name      string
	Email     string
	Phone     string
}

// PaymentOrder is the ephemeral descriptor handed to the checkout surface.
// It is discarded once the reconciler consumes the result.
type PaymentOrder struct {
	ID          string
	Principal   ChargeAmount
	ServiceFee  ChargeAmount
	Tax         ChargeAmount
	Total       ChargeAmount
	Currency    string
	Description string
	CustomerRef string
	Receipt     string
	Customer    Customer
	CreatedAt   time.Time
}

// TotalMinorUnits is the payable total in paise, as the provider expects.
func (o PaymentOrder) TotalMinorUnits() int64 { return o.Total.MinorUnits() }
