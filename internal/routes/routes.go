package routes

import (
	"net/http"

	"rpsvision/internal/config"
	"rpsvision/internal/handler"
	"rpsvision/internal/logger"
	"rpsvision/internal/middleware"
	"rpsvision/internal/repository"
	"rpsvision/internal/service"

	"golang.org/x/time/rate"
)

// UploadRate and UploadBurst bound POST /predict per client IP.
const (
	UploadRate  = rate.Limit(5)
	UploadBurst = 10
)

// SetupRoutes registers the prediction endpoints, the spectator stream, the round history API,
// log and auth endpoints, and wraps the mux with the CORS and authentication middleware.
func SetupRoutes(manager *service.Manager, cfg *config.Config, log *logger.Logger,
	roundRepo repository.RoundRepository) http.Handler {
	mux := http.NewServeMux()

	uploadLimiter := middleware.NewIPRateLimiter(UploadRate, UploadBurst)

	// Prediction endpoints
	mux.HandleFunc("/ws/predict", handler.PredictWebsocketHandler(manager, log))
	mux.Handle("/predict", uploadLimiter.Middleware(handler.PredictUploadHandler(manager, log)))
	mux.HandleFunc("/healthz", handler.HealthHandler)

	// Spectators
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(manager.GetWebsocketService(), log))
	mux.HandleFunc("/api/share.png", handler.ShareHandler(cfg, log))

	// Round history
	mux.HandleFunc("/api/rounds", handler.GetRoundsHandler(log, roundRepo))
	mux.HandleFunc("/api/rounds/stats", handler.GetRoundStatsHandler(log, roundRepo))
	mux.HandleFunc("/api/rounds/sessions", handler.GetSessionsHandler(log, roundRepo))
	mux.HandleFunc("/api/rounds/snapshot", handler.ViewSnapshotHandler(cfg))
	mux.HandleFunc("/api/rounds/clear", handler.ClearRoundsHandler(cfg, log, roundRepo))

	// Log endpoints
	mux.HandleFunc("/logs/info", handler.ShowLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("/logs/warning", handler.ShowLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("/logs/error", handler.ShowLogsHandler(log, logger.ErrorFile))

	mux.HandleFunc("/logs/info/clear", handler.ClearLogsHandler(log, logger.InfoFile))
	mux.HandleFunc("/logs/warning/clear", handler.ClearLogsHandler(log, logger.WarningFile))
	mux.HandleFunc("/logs/error/clear", handler.ClearLogsHandler(log, logger.ErrorFile))

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Apply middleware
	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	cors := middleware.CORSMiddleware(cfg.AllowedOrigins)
	return cors(auth(mux))
}
