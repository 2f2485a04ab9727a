package handler

import (
	"net/http"
	"strings"

	"rpsvision/internal/config"
	"rpsvision/internal/logger"

	qrcode "github.com/skip2/go-qrcode"
)

// QRCodeSize is the edge length in pixels of the share image.
const QRCodeSize = 256

// SpectatorURL is the websocket address viewers connect to.
func SpectatorURL(publicURL string) string {
	base := strings.TrimSuffix(publicURL, "/")
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/view"
}

// ShareHandler serves a PNG QR code pointing at the spectator stream.
func ShareHandler(cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		png, err := qrcode.Encode(SpectatorURL(cfg.PublicURL), qrcode.Medium, QRCodeSize)
		if err != nil {
			logger.Error("Failed to generate QR code: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-cache")
		w.Write(png)
	}
}
