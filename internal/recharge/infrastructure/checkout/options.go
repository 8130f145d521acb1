package checkout

import (
	"errors"

	recharge "meterpay/internal/recharge/domain"
)

// Prefill carries the contact fields shown pre-filled in the checkout form.
type Prefill struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Contact string `json:"contact,omitempty"`
}

// Theme colors the provider surface.
type Theme struct {
	Color string `json:"color,omitempty"`
}

// Options is the descriptor handed to the provider checkout script.
// Field names follow the provider's client library.
type Options struct {
	Key         string            `json:"key"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Prefill     Prefill           `json:"prefill"`
	Notes       map[string]string `json:"notes,omitempty"`
	Theme       Theme             `json:"theme"`
}

// Merchant is the static part of every checkout descriptor.
type Merchant struct {
	KeyID      string
	Name       string
	ThemeColor string
}

// BuildOptions derives the provider descriptor from an order.
func BuildOptions(merchant Merchant, order recharge.PaymentOrder) (Options, error) {
	if merchant.KeyID == "" {
		return Options{}, errors.New("checkout: empty key id")
	}
	if order.ID == "" {
		return Options{}, errors.New("checkout: empty order id")
	}
	amount := order.TotalMinorUnits()
	if amount <= 0 {
		return Options{}, errors.New("checkout: non-positive amount")
	}
	name := merchant.Name
	if name == "" {
		name = "Energy Meter Recharge"
	}
	return Options{
		Key:         merchant.KeyID,
		Amount:      amount,
		Currency:    order.Currency,
		Name:        name,
		Description: order.Description,
		Prefill: Prefill{
			Name:    order.Customer.Name,
			Email:   order.Customer.Email,
			Contact: order.Customer.Phone,
		},
		Notes: map[string]string{
			"order_id": order.ID,
			"receipt":  order.Receipt,
		},
		Theme: Theme{Color: merchant.ThemeColor},
	}, nil
}
