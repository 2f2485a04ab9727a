package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// AuthCookieName holds the admin token.
	AuthCookieName = "rps_admin"
	// TokenLifetime is how long an admin login stays valid.
	TokenLifetime = 30 * 24 * time.Hour
	// TokenIssuer is written into and required from every admin token.
	TokenIssuer = "rpsvision"
)

// ProtectedPrefixes lists the paths that need an admin token.
var ProtectedPrefixes = []string{"/logs/", "/api/rounds/clear"}

// IssueToken signs an admin token with the given secret.
func IssueToken(secret string, now time.Time) (string, error) {
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   "admin",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// VerifyToken checks signature, algorithm, issuer and expiry of an admin token.
func VerifyToken(secret, token string) error {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("invalid admin token: %w", err)
	}
	if !parsed.Valid {
		return fmt.Errorf("invalid admin token")
	}
	return nil
}

// AuthMiddleware sprawdza, czy żądania do chronionych ścieżek mają ważny token administratora
func AuthMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !isProtected(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			token := ""
			if cookie, err := r.Cookie(AuthCookieName); err == nil {
				token = cookie.Value
			} else if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				token = bearer
			}

			if token == "" || VerifyToken(secret, token) != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isProtected(path string) bool {
	for _, prefix := range ProtectedPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}
