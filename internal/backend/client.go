package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meterpay/internal/observability/metrics"
)

const (
	endpointLogin          = "login"
	endpointChangePassword = "change_password"
	endpointSiteTelemetry  = "site_telemetry"
)

// errRejected marks a 4xx reply whose body decoded into the endpoint's result shape.
var errRejected = errors.New("backend: request rejected")

// Client consumes the account backend: login, password change and site telemetry.
type Client struct {
	baseURL string
	client  *http.Client
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.client = client
		}
	}
}

// NewClient constructs a backend client.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("backend: empty base url")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// LoginResult is the login endpoint reply.
type LoginResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// RequiresPasswordChange reports whether the backend forces a password change.
func (r LoginResult) RequiresPasswordChange() bool {
	msg := strings.ToLower(r.Message)
	return strings.Contains(msg, "change") && strings.Contains(msg, "password")
}

// ChangePasswordRequest is the change-password payload.
type ChangePasswordRequest struct {
	UserEmail               string `json:"user_email"`
	CurrentPassword         string `json:"current_password"`
	NewPassword             string `json:"new_password"`
	NewPasswordConfirmation string `json:"new_password_confirmation"`
}

// ChangePasswordResult is the change-password reply.
type ChangePasswordResult struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
}

// Login checks credentials.
func (c *Client) Login(ctx context.Context, userID, password string) (LoginResult, error) {
	if userID == "" || password == "" {
		return LoginResult{}, ErrEmptyCredentials
	}
	body := map[string]string{"user_id": userID, "password": password}
	var resp LoginResult
	if err := c.doJSON(ctx, endpointLogin, http.MethodPost, "/api/login", body, &resp, true); err != nil {
		if errors.Is(err, errRejected) {
			resp.Success = false
			return resp, nil
		}
		return LoginResult{}, err
	}
	return resp, nil
}

// ChangePassword submits a password change.
func (c *Client) ChangePassword(ctx context.Context, req ChangePasswordRequest) (ChangePasswordResult, error) {
	if req.UserEmail == "" {
		return ChangePasswordResult{}, errors.New("backend: empty user email")
	}
	var resp ChangePasswordResult
	if err := c.doJSON(ctx, endpointChangePassword, http.MethodPost, "/api/change-password", req, &resp, true); err != nil {
		if errors.Is(err, errRejected) {
			resp.Status = false
			return resp, nil
		}
		return ChangePasswordResult{}, err
	}
	return resp, nil
}

// SiteTelemetry fetches the live view of one site.
func (c *Client) SiteTelemetry(ctx context.Context, siteID string) (SiteTelemetry, error) {
	if siteID == "" {
		return SiteTelemetry{}, errors.New("backend: empty site id")
	}
	var resp SiteTelemetry
	if err := c.doJSON(ctx, endpointSiteTelemetry, http.MethodGet, "/api/sites/"+url.PathEscape(siteID)+"/telemetry", nil, &resp, false); err != nil {
		return SiteTelemetry{}, err
	}
	return resp, nil
}

// doJSON performs one request. With rejectable set, a 4xx reply whose body decodes into out
// returns errRejected instead of a NetworkError.
func (c *Client) doJSON(ctx context.Context, endpoint, method, path string, body any, out any, rejectable bool) (err error) {
	started := time.Now()
	defer func() {
		result := metrics.ResultSuccess
		switch {
		case errors.Is(err, errRejected):
			result = metrics.ResultInvalid
		case err != nil:
			result = metrics.ResultError
		}
		metrics.ObserveBackendRequest(endpoint, result, time.Since(started))
	}()

	var reqBody *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(payload)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &NetworkError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if rejectable && out != nil && resp.StatusCode >= 400 && resp.StatusCode < 500 {
		if decodeErr := json.NewDecoder(resp.Body).Decode(out); decodeErr == nil {
			return errRejected
		}
	}
	if resp.StatusCode >= 300 {
		return &NetworkError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Endpoint: endpoint, Err: err}
	}
	return nil
}
