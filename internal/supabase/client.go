// Package supabase is a small client for the Supabase Auth REST API.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNotConfigured = errors.New("supabase client not configured")

// Error is a non-2xx answer from the auth API.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("supabase: status %d: %s", e.Status, e.Message)
}

type Config struct {
	URL        string
	APIKey     string
	HTTPClient *http.Client
}

type AuthClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewAuthClient(cfg Config) *AuthClient {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &AuthClient{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}
}

type User struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Phone            string         `json:"phone"`
	Role             string         `json:"role"`
	EmailConfirmedAt string         `json:"email_confirmed_at"`
	CreatedAt        string         `json:"created_at"`
	AppMetadata      map[string]any `json:"app_metadata"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	User         *User  `json:"user"`
}

// SignUpResult covers both shapes the signup endpoint returns: a session
// when email confirmation is off, or the bare user when it is on.
type SignUpResult struct {
	User    *User
	Session *Session
}

func (a *AuthClient) SignUp(ctx context.Context, email, password string, metadata map[string]any) (*SignUpResult, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
	}
	if len(metadata) > 0 {
		body["data"] = metadata
	}

	raw, err := a.post(ctx, "/auth/v1/signup", body)
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal signup response: %w", err)
	}

	if sess.User != nil {
		return &SignUpResult{User: sess.User, Session: &sess}, nil
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("unmarshal signup user: %w", err)
	}
	if u.ID == "" {
		return nil, &Error{Status: http.StatusBadGateway, Message: "signup returned no user"}
	}

	return &SignUpResult{User: &u}, nil
}

func (a *AuthClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	raw, err := a.post(ctx, "/auth/v1/token?grant_type=password", map[string]any{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal token response: %w", err)
	}
	return &sess, nil
}

// GetUser resolves an access token to its user via the auth server.
func (a *AuthClient) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if a.baseURL == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	a.setHeaders(req)
	req.Header.Set("Authorization", "Bearer "+accessToken)

	raw, err := a.do(req)
	if err != nil {
		return nil, err
	}

	var u User
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (a *AuthClient) post(ctx context.Context, path string, body any) ([]byte, error) {
	if a.baseURL == "" {
		return nil, ErrNotConfigured
	}

	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	a.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	return a.do(req)
}

func (a *AuthClient) setHeaders(req *http.Request) {
	req.Header.Set("apikey", a.apiKey)
	req.Header.Set("Authorization", "Bearer "+a.apiKey)
	req.Header.Set("Accept", "application/json")
}

func (a *AuthClient) do(req *http.Request) ([]byte, error) {
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &Error{Status: resp.StatusCode, Message: errorMessage(body, resp.StatusCode)}
	}

	return body, nil
}

// auth errors come back as {msg}, {message}, {error_description} or {error}
func errorMessage(body []byte, status int) string {
	var e struct {
		Msg              string `json:"msg"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
		Error            string `json:"error"`
	}

	if json.Unmarshal(body, &e) == nil {
		for _, m := range []string{e.Msg, e.Message, e.ErrorDescription, e.Error} {
			if m != "" {
				return m
			}
		}
	}

	return http.StatusText(status)
}
