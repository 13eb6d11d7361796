package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"rentlink/internal/models"
)

// Client talks to the hosted property-management backend. It is the only
// place that knows the wire shapes; callers get typed results and APIError
// for remote-reported failures.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu          sync.RWMutex
	accessToken string
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SetAccessToken installs the bearer token sent on authenticated calls.
// An empty token reverts the client to anonymous.
func (c *Client) SetAccessToken(token string) {
	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()
}

type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsTransportError reports whether err is a failure to reach the backend at
// all, as opposed to a response the backend chose to send.
func IsTransportError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	return !errors.As(err, &apiErr)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	c.mu.RLock()
	token := c.accessToken
	c.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err != nil || apiErr.Code == "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Code:       "unknown_error",
				Message:    string(respBody),
			}
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}

// ValidateInvite asks the backend whether a token is currently acceptable
// and what it unlocks. Side-effect-free and callable anonymously; it never
// consumes the token.
func (c *Client) ValidateInvite(ctx context.Context, token string) (*ValidateResponse, error) {
	var result ValidateResponse
	err := c.do(ctx, http.MethodPost, "/v1/invites/validate", ValidateRequest{Token: token}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AcceptInvite consumes the token and links the signed-in tenant to the
// target property. Safe to repeat for an already-accepted token; the backend
// answers already_linked instead of erroring.
func (c *Client) AcceptInvite(ctx context.Context, token string) (*AcceptResponse, error) {
	var result AcceptResponse
	err := c.do(ctx, http.MethodPost, "/v1/invites/accept", AcceptRequest{Token: token}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// AcceptInviteNewAccount is the atomic variant for accounts without a tenant
// profile: the backend creates the profile and the link as one unit.
func (c *Client) AcceptInviteNewAccount(ctx context.Context, token, displayName string) (*AcceptResponse, error) {
	var result AcceptResponse
	err := c.do(ctx, http.MethodPost, "/v1/invites/accept_new", AcceptNewAccountRequest{
		Token:       token,
		DisplayName: displayName,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// LinkedProperties lists the properties the signed-in tenant is linked to.
func (c *Client) LinkedProperties(ctx context.Context) ([]models.PropertyPreview, error) {
	var result []models.PropertyPreview
	err := c.do(ctx, http.MethodGet, "/v1/tenant/properties", nil, &result)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExchangeLegacyPropertyID resolves an old-style property-ID invite into a
// current invite token. Compatibility shim for links issued before tokens.
func (c *Client) ExchangeLegacyPropertyID(ctx context.Context, propertyID string) (string, error) {
	var result LegacyExchangeResponse
	path := "/v1/invites/legacy_exchange?property_id=" + url.QueryEscape(propertyID)
	err := c.do(ctx, http.MethodGet, path, nil, &result)
	if err != nil {
		return "", err
	}
	if result.Token == "" {
		return "", &APIError{StatusCode: http.StatusNotFound, Code: "not_found", Message: "no invite for property"}
	}
	return result.Token, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*AuthResponse, error) {
	var result AuthResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/login", AuthRequest{Email: email, Password: password}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (*AuthResponse, error) {
	var result AuthResponse
	err := c.do(ctx, http.MethodPost, "/v1/auth/signup", AuthRequest{
		Email:       email,
		Password:    password,
		DisplayName: displayName,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}
