package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rogerio-castellano/warehouse-ledger/internal/auth"
	rl "github.com/rogerio-castellano/warehouse-ledger/internal/http/rate_limiter"
	"github.com/rogerio-castellano/warehouse-ledger/internal/models"
)

func echoActor(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(GetClaims(r).Username))
}

func bearer(t *testing.T, user models.User) string {
	t.Helper()
	token, err := auth.GenerateToken(user)
	if err != nil {
		t.Fatalf("could not generate token: %v", err)
	}
	return "Bearer " + token
}

func TestAuthMiddleware(t *testing.T) {
	auth.SetSecret("middleware-secret")
	admin := bearer(t, models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	seller := bearer(t, models.User{ID: 2, Username: "seller", Role: models.RoleSeller})

	open := AuthMiddleware(http.HandlerFunc(echoActor))
	adminOnly := AuthMiddleware(RequireAdmin(http.HandlerFunc(echoActor)))

	tests := []struct {
		name       string
		handler    http.Handler
		header     string
		wantStatus int
		wantBody   string
	}{
		{"no token", open, "", http.StatusUnauthorized, ""},
		{"not a bearer", open, "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", open, "Bearer not.a.jwt", http.StatusUnauthorized, ""},
		{"seller", open, seller, http.StatusOK, "seller"},
		{"seller on admin route", adminOnly, seller, http.StatusForbidden, ""},
		{"admin on admin route", adminOnly, admin, http.StatusOK, "admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Errorf("expected actor %q, got %q", tt.wantBody, w.Body.String())
			}
		})
	}
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	auth.SetSecret("first-secret")
	token := bearer(t, models.User{ID: 1, Username: "admin", Role: models.RoleAdmin})
	auth.SetSecret("second-secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", token)
	w := httptest.NewRecorder()
	AuthMiddleware(http.HandlerFunc(echoActor)).ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a token signed with another key, got %d", w.Code)
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	rl.Configure(1, 2)
	t.Cleanup(func() {
		rl.Configure(10, 20)
		rl.CleanupAllVisitors()
	})

	h := RateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 2; i++ {
		if code := call("203.0.113.7:4000"); code != http.StatusNoContent {
			t.Fatalf("request %d within the burst: expected 204, got %d", i+1, code)
		}
	}
	if code := call("203.0.113.7:4001"); code != http.StatusTooManyRequests {
		t.Errorf("expected 429 once the burst is spent, got %d", code)
	}
	if code := call("203.0.113.8:4000"); code != http.StatusNoContent {
		t.Errorf("another client must have its own limiter, got %d", code)
	}
}
