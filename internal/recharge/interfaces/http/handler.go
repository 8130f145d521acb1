package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"meterpay/internal/auth"
	"meterpay/internal/recharge/application"
	recharge "meterpay/internal/recharge/domain"
	"meterpay/internal/recharge/infrastructure/checkout"
)

// CustomerResolver loads the paying customer for an authenticated account.
type CustomerResolver interface {
	Customer(ctx context.Context, accountID string) (recharge.Customer, error)
}

// Handler serves the recharge API under /api/v1/recharge.
type Handler struct {
	service   *application.Service
	customers CustomerResolver
	logger    *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *application.Service, customers CustomerResolver, logger *log.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("recharge handler: nil service")
	}
	if customers == nil {
		return nil, errors.New("recharge handler: nil customer resolver")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{service: service, customers: customers, logger: logger}, nil
}

// ServeHTTP handles recharge routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/recharge"), "/")
	switch {
	case rest == "" && r.Method == http.MethodGet:
		h.handleOverview(w, accountID)
	case rest == "status" && r.Method == http.MethodGet:
		h.handleStatus(w, accountID)
	case rest == "selection" && r.Method == http.MethodPost:
		h.handleSelection(w, r, accountID)
	case rest == "checkout" && r.Method == http.MethodPost:
		h.handleCheckout(w, r, accountID)
	case rest == "cancel" && r.Method == http.MethodPost:
		if err := h.service.Cancel(accountID); err != nil {
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	case rest == "ack" && r.Method == http.MethodPost:
		notice, err := h.service.Acknowledge(accountID)
		if err != nil {
			respondServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, notice)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type selectionRequest struct {
	Mode   string `json:"mode"`
	Amount string `json:"amount"`
	Text   string `json:"text"`
}

type selectionResponse struct {
	Kind   recharge.SelectionKind `json:"kind"`
	Amount string                 `json:"amount,omitempty"`
}

type orderResponse struct {
	OrderID     string `json:"order_id"`
	Principal   string `json:"principal"`
	ServiceFee  string `json:"service_fee"`
	Tax         string `json:"tax"`
	Total       string `json:"total"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Receipt     string `json:"receipt"`
}

type statusResponse struct {
	State      recharge.State    `json:"state"`
	Processing bool              `json:"processing"`
	Selection  selectionResponse `json:"selection"`
	Order      *orderResponse    `json:"order,omitempty"`
	Notice     *recharge.Notice  `json:"notice,omitempty"`
}

func (h *Handler) handleOverview(w http.ResponseWriter, accountID string) {
	status, err := h.service.Status(accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	presets := make([]string, 0, len(h.service.Catalog()))
	for _, amount := range h.service.Catalog() {
		presets = append(presets, amount.Display())
	}
	fees := h.service.Fees()
	writeJSON(w, http.StatusOK, map[string]any{
		"presets":     presets,
		"min_amount":  recharge.MinChargeAmount.String(),
		"max_amount":  recharge.MaxChargeAmount.String(),
		"service_fee": fees.ServiceFee.StringFixed(2),
		"tax":         fees.Tax.StringFixed(2),
		"currency":    recharge.CurrencyINR,
		"status":      toStatusResponse(status),
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, accountID string) {
	status, err := h.service.Status(accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toStatusResponse(status))
}

func (h *Handler) handleSelection(w http.ResponseWriter, r *http.Request, accountID string) {
	var req selectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	var (
		selection recharge.Selection
		err       error
	)
	switch req.Mode {
	case "preset":
		amount, parseErr := decimal.NewFromString(req.Amount)
		if parseErr != nil {
			http.Error(w, "amount must be numeric", http.StatusBadRequest)
			return
		}
		selection, err = h.service.SelectPreset(accountID, recharge.NewChargeAmount(amount))
	case "custom":
		selection, err = h.service.SelectCustom(accountID, req.Text)
	case "keypad":
		selection, err = h.service.CommitKeypad(accountID, req.Text)
	case "clear":
		err = h.service.ClearSelection(accountID)
		selection = recharge.NoSelection()
	default:
		http.Error(w, "mode must be preset, custom, keypad or clear", http.StatusBadRequest)
		return
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSelectionResponse(selection))
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request, accountID string) {
	customer, err := h.customers.Customer(r.Context(), accountID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	started, err := h.service.Begin(r.Context(), customer)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"order":        toOrderResponse(started.Order),
		"checkout_url": "/checkout/" + started.Token,
		"expires_at":   started.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// CheckoutHandler serves the embedded checkout page and its callbacks under /checkout/.
// The path token authenticates every request.
type CheckoutHandler struct {
	service  *application.Service
	renderer *checkout.PageRenderer
	merchant checkout.Merchant
	logger   *log.Logger
}

// NewCheckoutHandler constructs a checkout handler.
func NewCheckoutHandler(service *application.Service, renderer *checkout.PageRenderer, merchant checkout.Merchant, logger *log.Logger) (*CheckoutHandler, error) {
	if service == nil {
		return nil, errors.New("checkout handler: nil service")
	}
	if renderer == nil {
		return nil, errors.New("checkout handler: nil renderer")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &CheckoutHandler{service: service, renderer: renderer, merchant: merchant, logger: logger}, nil
}

// ServeHTTP handles GET /checkout/{token}, POST /checkout/{token}/complete and POST /checkout/{token}/dismiss.
func (h *CheckoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/checkout/"), "/")
	parts := strings.Split(rest, "/")
	token := parts[0]
	if token == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.handlePage(w, r, token)
	case len(parts) == 2 && parts[1] == "complete" && r.Method == http.MethodPost:
		h.handleComplete(w, r, token)
	case len(parts) == 2 && parts[1] == "dismiss" && r.Method == http.MethodPost:
		if err := h.service.Dismiss(r.Context(), token); err != nil {
			h.logger.Printf("checkout: dismiss rejected: %v", err)
			respondServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *CheckoutHandler) handlePage(w http.ResponseWriter, r *http.Request, token string) {
	order, err := h.service.Lookup(r.Context(), token)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	options, err := checkout.BuildOptions(h.merchant, order)
	if err != nil {
		http.Error(w, "checkout unavailable", http.StatusInternalServerError)
		return
	}
	base := "/checkout/" + token
	page, err := h.renderer.Render(options, base+"/complete", base+"/dismiss")
	if err != nil {
		http.Error(w, "checkout unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(page)
}

func (h *CheckoutHandler) handleComplete(w http.ResponseWriter, r *http.Request, token string) {
	var req struct {
		PaymentID string `json:"razorpay_payment_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if err := h.service.Complete(r.Context(), token, req.PaymentID); err != nil {
		h.logger.Printf("checkout: completion rejected: %v", err)
		respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toSelectionResponse(selection recharge.Selection) selectionResponse {
	resp := selectionResponse{Kind: selection.Kind()}
	if amount, ok := selection.Amount(); ok {
		resp.Amount = amount.String()
	}
	return resp
}

func toOrderResponse(order recharge.PaymentOrder) orderResponse {
	return orderResponse{
		OrderID:     order.ID,
		Principal:   order.Principal.String(),
		ServiceFee:  order.ServiceFee.String(),
		Tax:         order.Tax.String(),
		Total:       order.Total.String(),
		Currency:    order.Currency,
		Description: order.Description,
		Receipt:     order.Receipt,
	}
}

func toStatusResponse(status application.Status) statusResponse {
	resp := statusResponse{
		State:      status.State,
		Processing: status.Processing,
		Selection:  toSelectionResponse(status.Selection),
		Notice:     status.Notice,
	}
	if status.Order != nil {
		order := toOrderResponse(*status.Order)
		resp.Order = &order
	}
	return resp
}

func respondServiceError(w http.ResponseWriter, err error) {
	var verr *recharge.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "validation", "reason": verr.Reason})
	case errors.Is(err, recharge.ErrUnknownPreset):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, recharge.ErrEmptyPaymentID):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, recharge.ErrSessionNotFound):
		http.Error(w, "checkout not found", http.StatusNotFound)
	case errors.Is(err, recharge.ErrCheckoutInProgress),
		errors.Is(err, recharge.ErrAlreadyResolved),
		errors.Is(err, recharge.ErrNotAwaiting),
		errors.Is(err, recharge.ErrNothingToAcknowledge):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, auth.ErrUnauthorized):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrWrongKind):
		http.Error(w, "invalid checkout token", http.StatusUnauthorized)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
