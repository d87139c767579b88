// Package gotrue talks to a hosted GoTrue (Supabase Auth) REST API.
package gotrue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cyberauditpro/cyberaudit/core"
	"github.com/cyberauditpro/cyberaudit/ports"
	"github.com/golang-jwt/jwt/v5"
)

// Client implements ports.IdentityBackend against /auth/v1
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	now     func() time.Time
}

var _ ports.IdentityBackend = (*Client)(nil)

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient creates a client for the project at baseURL authenticated with
// the public anon key
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type userResponse struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	CreatedAt        time.Time      `json:"created_at"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

type sessionResponse struct {
	AccessToken  string        `json:"access_token"`
	TokenType    string        `json:"token_type"`
	ExpiresIn    int64         `json:"expires_in"`
	ExpiresAt    int64         `json:"expires_at"`
	RefreshToken string        `json:"refresh_token"`
	User         *userResponse `json:"user"`
}

// signUpResponse is a session when the project auto-confirms, a bare user otherwise
type signUpResponse struct {
	sessionResponse
	userResponse
}

type errorResponse struct {
	Code             json.RawMessage `json:"code"`
	ErrorCode        string          `json:"error_code"`
	Msg              string          `json:"msg"`
	Message          string          `json:"message"`
	Error            string          `json:"error"`
	ErrorDescription string          `json:"error_description"`
}

// SignUp registers a new email/password identity
func (c *Client) SignUp(ctx context.Context, email, password string, opts core.SignUpOptions) (*core.SignUpResult, error) {
	query := url.Values{}
	if opts.RedirectTo != "" {
		query.Set("redirect_to", opts.RedirectTo)
	}

	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(opts.Data) > 0 {
		body["data"] = opts.Data
	}

	var resp signUpResponse
	if err := c.do(ctx, http.MethodPost, "/signup", query, body, "", &resp); err != nil {
		return nil, err
	}

	if resp.AccessToken != "" {
		session := c.toSession(&resp.sessionResponse)
		return &core.SignUpResult{User: session.User, Session: session}, nil
	}
	return &core.SignUpResult{User: toUser(&resp.userResponse)}, nil
}

// SignInWithPassword exchanges a credential for a session
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*core.Session, error) {
	var resp sessionResponse
	query := url.Values{"grant_type": {"password"}}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/token", query, body, "", &resp); err != nil {
		return nil, err
	}
	return c.toSession(&resp), nil
}

// RefreshSession rotates the tokens of a session
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*core.Session, error) {
	var resp sessionResponse
	query := url.Values{"grant_type": {"refresh_token"}}
	body := map[string]string{"refresh_token": refreshToken}
	if err := c.do(ctx, http.MethodPost, "/token", query, body, "", &resp); err != nil {
		return nil, err
	}
	return c.toSession(&resp), nil
}

// SignOut revokes the session owning accessToken
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil, accessToken, nil)
}

// GetUser returns the identity behind accessToken
func (c *Client) GetUser(ctx context.Context, accessToken string) (*core.User, error) {
	var resp userResponse
	if err := c.do(ctx, http.MethodGet, "/user", nil, nil, accessToken, &resp); err != nil {
		return nil, err
	}
	return toUser(&resp), nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, bearer string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, raw)
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, raw []byte) error {
	backendErr := &core.BackendError{Status: status}

	var resp errorResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		backendErr.Message = strings.TrimSpace(string(raw))
		if backendErr.Message == "" {
			backendErr.Message = http.StatusText(status)
		}
		return backendErr
	}

	backendErr.Code = resp.ErrorCode
	if backendErr.Code == "" {
		// Older deployments put the string code in "code"
		var code string
		if json.Unmarshal(resp.Code, &code) == nil {
			backendErr.Code = code
		}
	}
	for _, msg := range []string{resp.Msg, resp.Message, resp.ErrorDescription, resp.Error} {
		if msg != "" {
			backendErr.Message = msg
			break
		}
	}
	if backendErr.Message == "" {
		backendErr.Message = http.StatusText(status)
	}
	return backendErr
}

func (c *Client) toSession(resp *sessionResponse) *core.Session {
	session := &core.Session{
		ID:           sessionIDFromToken(resp.AccessToken),
		AccessToken:  resp.AccessToken,
		RefreshToken: resp.RefreshToken,
		TokenType:    resp.TokenType,
		User:         toUser(resp.User),
	}
	switch {
	case resp.ExpiresAt > 0:
		session.ExpiresAt = time.Unix(resp.ExpiresAt, 0)
	case resp.ExpiresIn > 0:
		session.ExpiresAt = c.now().Add(time.Duration(resp.ExpiresIn) * time.Second)
	}
	return session
}

func toUser(resp *userResponse) *core.User {
	if resp == nil {
		return nil
	}
	user := &core.User{
		ID:          resp.ID,
		Email:       resp.Email,
		Metadata:    resp.UserMetadata,
		ConfirmedAt: resp.EmailConfirmedAt,
		CreatedAt:   resp.CreatedAt,
	}
	if name, ok := resp.UserMetadata[core.MetadataFullName].(string); ok {
		user.FullName = name
	}
	return user
}

// sessionIDFromToken reads the session_id claim without verifying the token;
// verification happens wherever the token is presented.
func sessionIDFromToken(token string) string {
	if token == "" {
		return ""
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return ""
	}
	if id, ok := claims["session_id"].(string); ok {
		return id
	}
	if id, ok := claims["jti"].(string); ok {
		return id
	}
	return ""
}
