package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"parkometr/internal/auth"
	"parkometr/internal/domain"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.Use(mw...)
	r.GET("/x", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": CurrentUserID(c), "request_id": GetRequestID(c)})
	})
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDKeepsCallerValue(t *testing.T) {
	r := newEngine()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "abc-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("X-Request-ID") != "abc-1" {
		t.Fatalf("expected caller request id, got %q", w.Header().Get("X-Request-ID"))
	}

	w = do(r, "")
	if len(w.Header().Get("X-Request-ID")) != 36 {
		t.Fatalf("expected generated uuid, got %q", w.Header().Get("X-Request-ID"))
	}
}

func TestAuthenticateAndRequireRoles(t *testing.T) {
	tokens := auth.Tokens{Secret: []byte("s3cret"), TTL: time.Hour}
	r := newEngine(Authenticate(tokens), RequireRoles(domain.RoleAdmin))

	if w := do(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}
	if w := do(r, "Bearer nonsense"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}

	op, _ := tokens.Issue(2, domain.RoleOperator, time.Now())
	if w := do(r, "Bearer "+op); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for operator, got %d", w.Code)
	}

	admin, _ := tokens.Issue(1, domain.RoleAdmin, time.Now())
	if w := do(r, "Bearer "+admin); w.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRequireRolesWithoutAuthenticate(t *testing.T) {
	r := newEngine(RequireRoles(domain.RoleAdmin))
	if w := do(r, ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestOptionalAuthenticate(t *testing.T) {
	tokens := auth.Tokens{Secret: []byte("s3cret"), TTL: time.Hour}
	r := newEngine(OptionalAuthenticate(tokens))

	w := do(r, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user_id":0`) {
		t.Fatalf("anonymous request should pass without a user, got %d %s", w.Code, w.Body.String())
	}
	if w := do(r, "Bearer nonsense"); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with bad token, got %d", w.Code)
	}
	op, _ := tokens.Issue(7, domain.RoleOperator, time.Now())
	w = do(r, "Bearer "+op)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"user_id":7`) {
		t.Fatalf("expected token user 7, got %d %s", w.Code, w.Body.String())
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewIPRateLimiter(2)
	r := newEngine(rl.Limit())

	for i := 0; i < 2; i++ {
		if w := do(r, ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	w := do(r, "")
	if w.Code != http.StatusTooManyRequests || w.Header().Get("Retry-After") == "" {
		t.Fatalf("expected 429 with Retry-After, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("another IP should have its own budget, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS([]string{"http://dashboard.local"}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent || w.Header().Get("Access-Control-Allow-Origin") != "http://dashboard.local" {
		t.Fatalf("unexpected preflight response %d %v", w.Code, w.Header())
	}
}
