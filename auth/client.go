// Package auth signs users in against the hosted auth provider using a phone
// number and a numeric PIN, and keeps the resulting session on disk.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"sahabat/chatapi"
)

// refreshMargin is how long before expiry a token is refreshed proactively.
const refreshMargin = 60 * time.Second

// Client talks to the auth provider's REST endpoints (GoTrue wire format).
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	store      *Store

	mu      sync.Mutex
	session *Session
}

// NewClient creates an auth client and loads any persisted session.
func NewClient(baseURL, anonKey string, store *Store) (*Client, error) {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		anonKey:    anonKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		store:      store,
	}

	if store != nil {
		session, err := store.Load()
		if err != nil {
			return nil, err
		}
		c.session = session
	}
	return c, nil
}

// tokenResponse is the auth server's session payload.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	User         User   `json:"user"`
}

func (r *tokenResponse) toSession() *Session {
	expiresAt := r.ExpiresAt
	if expiresAt == 0 && r.ExpiresIn > 0 {
		expiresAt = time.Now().Unix() + r.ExpiresIn
	}
	return &Session{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    expiresAt,
		User:         r.User,
	}
}

// authError is the auth server's error payload. Older and newer server
// versions use different field names, so all are tried.
type authError struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e *authError) text() string {
	if e.ErrorDescription != "" {
		return e.ErrorDescription
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// SignIn exchanges a phone number and PIN for a session.
func (c *Client) SignIn(ctx context.Context, phone, pin string) (*Session, error) {
	body := map[string]string{
		"phone":    NormalizePhone(phone),
		"password": pin,
	}

	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=password", body, &resp); err != nil {
		return nil, err
	}
	return c.adoptSession(&resp)
}

// SendOTP asks the auth server to send an SMS code to the phone number.
func (c *Client) SendOTP(ctx context.Context, phone string) error {
	body := map[string]string{"phone": NormalizePhone(phone)}
	return c.post(ctx, "/auth/v1/otp", body, nil)
}

// VerifyOTP confirms the SMS code. On success the server opens a session for
// the (possibly new) user.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*Session, error) {
	body := map[string]string{
		"phone": NormalizePhone(phone),
		"token": code,
		"type":  "sms",
	}

	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/verify", body, &resp); err != nil {
		return nil, err
	}
	return c.adoptSession(&resp)
}

// SignUp creates a new user with a phone number and PIN. The server may
// return a session directly, or an unconfirmed user when phone confirmation
// is enabled server-side.
func (c *Client) SignUp(ctx context.Context, phone, pin string) (*Session, error) {
	body := map[string]string{
		"phone":    NormalizePhone(phone),
		"password": pin,
	}

	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/signup", body, &resp); err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, fmt.Errorf("account created but phone confirmation is pending; disable confirmation on the auth server or verify the code first")
	}
	return c.adoptSession(&resp)
}

// SetPin updates the signed-in user's PIN.
func (c *Client) SetPin(ctx context.Context, pin string) error {
	token, err := c.Token()
	if err != nil {
		return err
	}
	body := map[string]string{"password": pin}
	return c.do(ctx, "PUT", "/auth/v1/user", token, body, nil)
}

// UpdateMetadata merges key/value pairs into the signed-in user's metadata.
func (c *Client) UpdateMetadata(ctx context.Context, metadata map[string]interface{}) error {
	token, err := c.Token()
	if err != nil {
		return err
	}
	body := map[string]interface{}{"data": metadata}
	return c.do(ctx, "PUT", "/auth/v1/user", token, body, nil)
}

// SignOut revokes the session server-side and clears it locally. The local
// session is cleared even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	session := c.session
	c.session = nil
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			return err
		}
	}

	if session == nil {
		return nil
	}
	if err := c.do(ctx, "POST", "/auth/v1/logout", session.AccessToken, nil, nil); err != nil {
		return fmt.Errorf("session cleared locally, server revocation failed: %w", err)
	}
	return nil
}

// CurrentSession returns the active session, or nil.
func (c *Client) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	copied := *c.session
	return &copied
}

// Token returns a valid access token, refreshing the session when it is
// about to expire. Implements the chat transport's TokenProvider.
func (c *Client) Token() (string, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil {
		return "", chatapi.ErrNotAuthenticated
	}

	if session.Expired(refreshMargin) && session.RefreshToken != "" {
		refreshed, err := c.Refresh(context.Background())
		if err != nil {
			return "", fmt.Errorf("failed to refresh session: %w", err)
		}
		return refreshed.AccessToken, nil
	}
	return session.AccessToken, nil
}

// Refresh exchanges the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()

	if session == nil || session.RefreshToken == "" {
		return nil, chatapi.ErrNotAuthenticated
	}

	body := map[string]string{"refresh_token": session.RefreshToken}
	var resp tokenResponse
	if err := c.post(ctx, "/auth/v1/token?grant_type=refresh_token", body, &resp); err != nil {
		return nil, err
	}
	return c.adoptSession(&resp)
}

func (c *Client) adoptSession(resp *tokenResponse) (*Session, error) {
	session := resp.toSession()

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Save(session); err != nil {
			return nil, err
		}
	}
	return session, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, "POST", path, "", body, out)
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("auth server error: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var authErr authError
		if json.Unmarshal(respBody, &authErr) == nil && authErr.text() != "" {
			return fmt.Errorf("auth server returned status %d: %s", resp.StatusCode, authErr.text())
		}
		return fmt.Errorf("auth server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// NormalizePhone converts a locally formatted Indonesian number into E.164.
// A leading 0 or bare 8... is rewritten with the +62 country code; numbers
// that already carry a + are kept as-is.
func NormalizePhone(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' || r == '+' {
			digits.WriteRune(r)
		}
	}
	p := digits.String()

	switch {
	case p == "":
		return ""
	case strings.HasPrefix(p, "+"):
		return p
	case strings.HasPrefix(p, "62"):
		return "+" + p
	case strings.HasPrefix(p, "0"):
		return "+62" + p[1:]
	default:
		return "+62" + p
	}
}
