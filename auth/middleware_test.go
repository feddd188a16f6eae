// Package auth tests bearer middleware behavior against a fake identity
// provider.
package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func newProtectedRouter(client *Client) *gin.Engine {
	router := gin.New()
	router.Use(Middleware(client, MiddlewareConfig{}))
	router.GET("/protected", func(c *gin.Context) {
		principal, ok := PrincipalFromContext(c.Request.Context())
		if !ok || principal.ID == "" {
			c.Status(http.StatusUnauthorized)
			return
		}
		c.Status(http.StatusOK)
	})
	return router
}

const testUserID = "7f3c1e08-52d5-4f2e-9c44-2d53cbb10a10"

// newTestIdentity serves the provider's /user endpoint, accepting only
// validToken.
func newTestIdentity(t *testing.T, validToken string) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+validToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"code":401,"msg":"invalid JWT"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    testUserID,
			"aud":   "authenticated",
			"email": "user@example.com",
		})
	}))
	t.Cleanup(server.Close)

	return NewClient(server.URL, "test-service-key")
}

func TestMiddlewareMissingToken(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	client := newTestIdentity(t, "good-token")

	router := newProtectedRouter(client)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMiddlewareMalformedHeader(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	client := newTestIdentity(t, "good-token")

	router := newProtectedRouter(client)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Token abc")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMiddlewareInvalidToken(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	client := newTestIdentity(t, "good-token")

	router := newProtectedRouter(client)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestMiddlewareValidToken(t *testing.T) {
	t.Setenv("AUTH_DISABLED", "false")
	client := newTestIdentity(t, "good-token")

	router := newProtectedRouter(client)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", resp.Code, resp.Body.String())
	}
}

func TestUserFromToken(t *testing.T) {
	client := newTestIdentity(t, "good-token")

	principal, err := client.UserFromToken("good-token")
	if err != nil {
		t.Fatalf("UserFromToken error: %v", err)
	}
	if principal.ID != testUserID || principal.Email != "user@example.com" {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	if _, err := client.UserFromToken("bad-token"); err == nil {
		t.Fatalf("expected error for rejected token")
	}
}

func TestExtractBearerToken(t *testing.T) {
	token, ok := ExtractBearerToken("Bearer abc")
	if !ok || token != "abc" {
		t.Fatalf("expected token")
	}
	if _, ok := ExtractBearerToken("Bearer"); ok {
		t.Fatalf("expected invalid header")
	}
	if _, ok := ExtractBearerToken("Token abc"); ok {
		t.Fatalf("expected invalid scheme")
	}
	if _, ok := ExtractBearerToken(""); ok {
		t.Fatalf("expected empty header to be invalid")
	}
}

func TestPrincipalFromContext(t *testing.T) {
	p := &Principal{ID: uuid.NewString()}
	ctx := WithPrincipal(context.Background(), p)
	got, ok := PrincipalFromContext(ctx)
	if !ok || got.ID != p.ID {
		t.Fatalf("expected principal from context")
	}
}

func TestProjectRef(t *testing.T) {
	if got := projectRef("https://abcdefgh.supabase.co"); got != "abcdefgh" {
		t.Fatalf("projectRef = %q", got)
	}
	if got := projectRef("http://localhost:54321"); got != "localhost" {
		t.Fatalf("projectRef = %q", got)
	}
}
