package recharge

// State is a reconciler state.
type State string

const (
	StateIdle           State = "idle"
	StateAwaitingResult State = "awaiting_result"
	StateSucceeded      State = "succeeded"
	StateCancelled      State = "cancelled"
	StateTimedOut       State = "timed_out"
	StateFailed         State = "failed"
)

// Terminal reports whether the state waits for user acknowledgement.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateCancelled, StateTimedOut, StateFailed:
		return true
	default:
		return false
	}
}

// NoticeLevel classifies a user-facing notice.
type NoticeLevel string

const (
	NoticeSuccess NoticeLevel = "success"
	NoticeInfo    NoticeLevel = "info"
	NoticeError   NoticeLevel = "error"
)

// Notice is the dismissible message surfaced after a checkout ends.
type Notice struct {
	CustomerRef string      `json:"customer_ref"`
	OrderID     string      `json:"order_id"`
	State       State       `json:"state"`
	Level       NoticeLevel `json:"level"`
	Message     string      `json:"message"`
	PaymentID   string      `json:"payment_id,omitempty"`
	Amount      string      `json:"amount,omitempty"`
	Retryable   bool        `json:"retryable"`
}
