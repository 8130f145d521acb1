package session

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"meterpay/internal/auth"
	"meterpay/internal/backend"
)

// Handler serves /api/v1/auth/* and /api/v1/site/telemetry.
type Handler struct {
	manager *Manager
	logger  *log.Logger
}

// NewHandler constructs a handler.
func NewHandler(manager *Manager, logger *log.Logger) (*Handler, error) {
	if manager == nil {
		return nil, errors.New("session handler: nil manager")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{manager: manager, logger: logger}, nil
}

// ServeHTTP handles session routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimRight(r.URL.Path, "/")
	switch {
	case path == "/api/v1/auth/login" && r.Method == http.MethodPost:
		h.handleLogin(w, r)
		return
	case path == "/api/v1/auth/logout" && r.Method == http.MethodPost:
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		h.manager.Logout(accountID)
		w.WriteHeader(http.StatusNoContent)
		return
	case path == "/api/v1/auth/me" && r.Method == http.MethodGet:
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		user, found := h.manager.CurrentUser(accountID)
		if !found {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, user)
		return
	case path == "/api/v1/auth/password" && r.Method == http.MethodPost:
		h.handleChangePassword(w, r)
		return
	case path == "/api/v1/site/telemetry" && r.Method == http.MethodGet:
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		telemetry, err := h.manager.Telemetry(r.Context(), accountID)
		if err != nil {
			h.respondError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, telemetry)
		return
	}
	w.WriteHeader(http.StatusNotFound)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID   string `json:"user_id"`
		Password string `json:"password"`
		SiteID   string `json:"site_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	outcome, err := h.manager.Login(r.Context(), req.UserID, req.Password, req.SiteID)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials", "message": outcome.Message})
			return
		}
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	var change PasswordChange
	if err := json.NewDecoder(r.Body).Decode(&change); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	message, err := h.manager.ChangePassword(r.Context(), accountID, change)
	if err != nil {
		if errors.Is(err, ErrPasswordRejected) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"status": false, "message": message})
			return
		}
		h.respondError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "message": message})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, backend.ErrEmptyCredentials), errors.Is(err, ErrPasswordMismatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrNotLoggedIn):
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	case backend.IsNetwork(err):
		h.logger.Printf("session: backend unavailable: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]any{"error": "backend unavailable", "retryable": true})
	default:
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	accountID := auth.AccountIDFromContext(r.Context())
	if accountID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return "", false
	}
	return accountID, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
