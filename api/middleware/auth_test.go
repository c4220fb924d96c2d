package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgauth "github.com/threadleaf/threadleaf-backend/pkg/auth"
	"github.com/threadleaf/threadleaf-backend/pkg/config"
	"github.com/threadleaf/threadleaf-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "threadleaf",
		ExpirationMinutes: 60,
	}
}

func mintToken(t *testing.T, cfg config.JWTConfig, role enums.Role) (uuid.UUID, string) {
	t.Helper()
	userID := uuid.New()
	token, err := pkgauth.MintAccessToken(cfg, time.Now(), pkgauth.AccessTokenPayload{UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return userID, token
}

func TestAuthSeedsContext(t *testing.T) {
	cfg := testJWTConfig()
	userID, token := mintToken(t, cfg, enums.RoleUser)

	var gotUser, gotRole string
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 got %d", resp.Code)
	}
	if gotUser != userID.String() {
		t.Fatalf("expected user %s in context, got %q", userID, gotUser)
	}
	if gotRole != string(enums.RoleUser) {
		t.Fatalf("expected role USER, got %q", gotRole)
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	cfg := testJWTConfig()
	handler := Auth(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing header, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d", resp.Code)
	}

	otherIssuer := cfg
	otherIssuer.Issuer = "someone-else"
	_, token := mintToken(t, otherIssuer, enums.RoleUser)
	req = httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong issuer, got %d", resp.Code)
	}
}

func TestRequireAdmin(t *testing.T) {
	cfg := testJWTConfig()

	chain := func(token string) *httptest.ResponseRecorder {
		handler := Auth(cfg, nil)(RequireAdmin(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})))
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp
	}

	_, userToken := mintToken(t, cfg, enums.RoleUser)
	if resp := chain(userToken); resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for USER role, got %d", resp.Code)
	}

	_, adminToken := mintToken(t, cfg, enums.RoleAdmin)
	if resp := chain(adminToken); resp.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for ADMIN role, got %d", resp.Code)
	}
}
