package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testConfig(t *testing.T) *JWTAuthConfig {
	hash, err := HashPassword("correct-password")
	if err != nil {
		t.Fatalf("Failed to hash password: %v", err)
	}
	return &JWTAuthConfig{
		Enabled:           true,
		AdminUsername:     "admin",
		AdminPasswordHash: hash,
		JWTSecret:         "test-secret",
		JWTExpiryHours:    24,
		SkipPaths:         []string{"/health", "/auth/*"},
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if hash == "secret" {
		t.Error("hash should not equal the plaintext password")
	}

	if !CheckPassword("secret", hash) {
		t.Error("correct password should verify")
	}
	if CheckPassword("wrong", hash) {
		t.Error("wrong password should not verify")
	}
}

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))

	token, err := m.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Username != "admin" {
		t.Errorf("username = %q, want %q", claims.Username, "admin")
	}
	if claims.Issuer != "scopeline" {
		t.Errorf("issuer = %q, want %q", claims.Issuer, "scopeline")
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))
	token, err := m.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	other := NewJWTAuthMiddleware(&JWTAuthConfig{JWTSecret: "different-secret", JWTExpiryHours: 24})
	if _, err := other.ValidateToken(token); err == nil {
		t.Error("token signed with a different secret should not validate")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	cfg := testConfig(t)
	cfg.JWTExpiryHours = -1
	m := NewJWTAuthMiddleware(cfg)

	token, err := m.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestValidateCredentials(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))

	if !m.ValidateCredentials("admin", "correct-password") {
		t.Error("valid credentials should be accepted")
	}
	if m.ValidateCredentials("admin", "wrong") {
		t.Error("wrong password should be rejected")
	}
	if m.ValidateCredentials("intruder", "correct-password") {
		t.Error("wrong username should be rejected")
	}
}

func TestWrap_DisabledPassesThrough(t *testing.T) {
	cfg := testConfig(t)
	cfg.Enabled = false
	m := NewJWTAuthMiddleware(cfg)

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("disabled auth should pass through, got %d", w.Code)
	}
}

func TestWrap_SkipPaths(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path string
		want int
	}{
		{"/health", http.StatusOK},
		{"/auth/login", http.StatusOK},
		{"/api/runs", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.want {
				t.Errorf("%s = %d, want %d", tt.path, w.Code, tt.want)
			}
		})
	}
}

func TestWrap_ValidToken(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))
	token, err := m.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	var contextUser string
	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextUser = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("valid token should pass, got %d", w.Code)
	}
	if contextUser != "admin" {
		t.Errorf("context user = %q, want %q", contextUser, "admin")
	}
}

func TestWrap_InvalidToken(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))

	handler := m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing token", ""},
		{"garbage token", "Bearer not-a-token"},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/runs", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Errorf("%s = %d, want %d", tt.name, w.Code, http.StatusUnauthorized)
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("unauthorized response should carry WWW-Authenticate")
			}
		})
	}
}

func TestValidateToken_RejectsUnsignedToken(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))

	claims := UserClaims{
		Username: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			Issuer:    "scopeline",
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("failed to build unsigned token: %v", err)
	}

	if _, err := m.ValidateToken(unsigned); err == nil {
		t.Error("token with alg none should not validate")
	}
}

func TestGetUserFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if user := GetUserFromContext(req.Context()); user != "" {
		t.Errorf("expected empty user, got %q", user)
	}
}

func TestTokenExpiryHorizon(t *testing.T) {
	m := NewJWTAuthMiddleware(testConfig(t))
	token, err := m.GenerateToken("admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 23*time.Hour || remaining > 25*time.Hour {
		t.Errorf("expected roughly 24h expiry, got %v", remaining)
	}
}
