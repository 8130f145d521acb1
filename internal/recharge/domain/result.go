package recharge

// Outcome names how a checkout session ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeTimedOut  Outcome = "timed_out"
)

// CheckoutResult is the single signal produced by a checkout session.
type CheckoutResult struct {
	Outcome   Outcome
	PaymentID string
	Amount    ChargeAmount
}

// Success is the provider's completion payload.
func Success(paymentID string, amount ChargeAmount) CheckoutResult {
	return CheckoutResult{Outcome: OutcomeSuccess, PaymentID: paymentID, Amount: amount}
}

// Cancelled is a user dismissal of the checkout surface.
func Cancelled() CheckoutResult { return CheckoutResult{Outcome: OutcomeCancelled} }

// TimedOut is produced when no signal arrives within the bounded wait.
func TimedOut() CheckoutResult { return CheckoutResult{Outcome: OutcomeTimedOut} }
