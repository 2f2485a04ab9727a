package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestAuthMiddleware(t *testing.T) {
	valid, err := IssueToken(testSecret, time.Now())
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	expired, _ := IssueToken(testSecret, time.Now().Add(-2*TokenLifetime))
	foreign, _ := IssueToken("another-secret-another-secret!!", time.Now())

	handler := AuthMiddleware(testSecret)(okHandler)

	tests := []struct {
		name     string
		path     string
		cookie   string
		bearer   string
		expected int
	}{
		{"public path", "/api/rounds", "", "", http.StatusOK},
		{"prediction socket", "/ws/predict", "", "", http.StatusOK},
		{"logs without token", "/logs/info", "", "", http.StatusUnauthorized},
		{"logs with cookie", "/logs/info", valid, "", http.StatusOK},
		{"clear with bearer", "/api/rounds/clear", "", valid, http.StatusOK},
		{"expired token", "/logs/error", expired, "", http.StatusUnauthorized},
		{"wrong secret", "/logs/error", foreign, "", http.StatusUnauthorized},
		{"garbage token", "/logs/error", "not-a-jwt", "", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: AuthCookieName, Value: tt.cookie})
			}
			if tt.bearer != "" {
				req.Header.Set("Authorization", "Bearer "+tt.bearer)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, rec.Code)
			}
		})
	}
}

func TestVerifyToken_RejectsOtherAlgorithms(t *testing.T) {
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("Signing failed: %v", err)
	}
	if VerifyToken(testSecret, token) == nil {
		t.Error("HS512 tokens should be rejected")
	}

	claims.Issuer = "someone-else"
	token, _ = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if VerifyToken(testSecret, token) == nil {
		t.Error("Tokens from another issuer should be rejected")
	}
}

func TestCORSMiddleware(t *testing.T) {
	handler := CORSMiddleware([]string{"http://localhost:3000"})(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/api/rounds", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Error("Allowed origin should be echoed")
	}
	if rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("Credentials should be allowed")
	}

	req = httptest.NewRequest(http.MethodGet, "/api/rounds", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("Unknown origin must not be allowed")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Request itself should still be served, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "X-Custom")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Errorf("Preflight should be answered with 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") != "POST" || rec.Header().Get("Access-Control-Allow-Headers") != "X-Custom" {
		t.Errorf("Unexpected preflight headers: %v", rec.Header())
	}
	if rec.Header().Get("Access-Control-Max-Age") != "600" {
		t.Errorf("Expected preflight max age 600, got %q", rec.Header().Get("Access-Control-Max-Age"))
	}

	req = httptest.NewRequest(http.MethodOptions, "/predict", nil)
	req.Header.Set("Origin", "http://evil.example")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" || rec.Header().Get("Access-Control-Allow-Methods") != "" {
		t.Errorf("Preflight from unknown origin must not be allowed: %v", rec.Header())
	}
}

func TestIPRateLimiter(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(1), 2)
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	if !limiter.Allow("10.0.0.1") || !limiter.Allow("10.0.0.1") {
		t.Fatal("Burst should be allowed")
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("Third request in the same instant should be limited")
	}
	if !limiter.Allow("10.0.0.2") {
		t.Error("Other clients have their own budget")
	}

	now = now.Add(time.Second)
	if !limiter.Allow("10.0.0.1") {
		t.Error("Token should be refilled after a second")
	}

	now = now.Add(visitorTTL + time.Second)
	limiter.Allow("10.0.0.3")
	if _, ok := limiter.visitors["10.0.0.2"]; ok {
		t.Error("Idle visitors should be evicted")
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	handler := NewIPRateLimiter(rate.Limit(1), 1).Middleware(okHandler)

	codes := make([]int, 2)
	for i := range codes {
		req := httptest.NewRequest(http.MethodPost, "/predict", nil)
		req.RemoteAddr = "192.0.2.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Errorf("Expected 200 then 429, got %v", codes)
	}
}
