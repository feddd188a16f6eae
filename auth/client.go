// Package auth validates bearer credentials against the hosted identity
// provider. Every check is remote; no token validity is cached locally.
package auth

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"
)

// Session mirrors the identity provider's session payload returned on
// signup/signin.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// Client wraps the identity provider's API for the handful of operations the
// service needs.
type Client struct {
	api gotrue.Client
}

// NewClientFromEnv initializes a client from SUPABASE_URL and
// SUPABASE_SERVICE_KEY.
func NewClientFromEnv() (*Client, error) {
	baseURL := strings.TrimSpace(os.Getenv("SUPABASE_URL"))
	serviceKey := strings.TrimSpace(os.Getenv("SUPABASE_SERVICE_KEY"))
	if baseURL == "" || serviceKey == "" {
		return nil, errors.New("SUPABASE_URL and SUPABASE_SERVICE_KEY must be set")
	}
	return NewClient(baseURL, serviceKey), nil
}

// NewClient builds a client for the auth endpoint rooted at baseURL.
func NewClient(baseURL, apiKey string) *Client {
	api := gotrue.New(projectRef(baseURL), apiKey).
		WithCustomGoTrueURL(strings.TrimRight(baseURL, "/") + "/auth/v1")
	return &Client{api: api}
}

// SignUp registers a new user and returns the principal plus the session the
// provider opened for it.
func (c *Client) SignUp(email, password string) (*Principal, *Session, error) {
	resp, err := c.api.Signup(types.SignupRequest{
		Email:    email,
		Password: password,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("signup rejected: %w", err)
	}

	principal := &Principal{ID: resp.ID.String(), Email: resp.Email}
	session := &Session{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		RefreshToken: resp.RefreshToken,
	}
	return principal, session, nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(email, password string) (*Principal, *Session, error) {
	resp, err := c.api.SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, nil, fmt.Errorf("signin rejected: %w", err)
	}

	principal := &Principal{ID: resp.User.ID.String(), Email: resp.User.Email}
	session := &Session{
		AccessToken:  resp.AccessToken,
		TokenType:    resp.TokenType,
		ExpiresIn:    resp.ExpiresIn,
		RefreshToken: resp.RefreshToken,
	}
	return principal, session, nil
}

// SignOut revokes the session behind the given access token.
func (c *Client) SignOut(token string) error {
	return c.api.WithToken(token).Logout()
}

// UserFromToken resolves an access token to its principal by asking the
// provider. Called on every protected request.
func (c *Client) UserFromToken(token string) (*Principal, error) {
	resp, err := c.api.WithToken(token).GetUser()
	if err != nil {
		return nil, err
	}
	p := &Principal{ID: resp.ID.String(), Email: resp.Email}
	if p.ID == "" {
		return nil, errors.New("token resolved to empty user id")
	}
	return p, nil
}

// projectRef extracts the <ref> from https://<ref>.supabase.co; for any other
// host the custom URL override makes the reference irrelevant.
func projectRef(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "local"
	}
	host, _, _ := strings.Cut(u.Hostname(), ".")
	if host == "" {
		return "local"
	}
	return host
}

// AuthDisabled reports whether auth should be skipped for local development.
func AuthDisabled() bool {
	if strings.EqualFold(os.Getenv("AUTH_DISABLED"), "true") {
		if !strings.EqualFold(os.Getenv("ENV"), "production") {
			log.Print("auth disabled via AUTH_DISABLED for local development")
			return true
		}
	}
	return false
}
