package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORSMaxAge is how long browsers may cache a preflight answer, in seconds.
const CORSMaxAge = 600

// CORSMiddleware allows credentialed cross-origin requests from the listed origins with any
// method and header. Preflight requests are answered directly.
func CORSMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"*"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           CORSMaxAge,
	}).Handler
}
