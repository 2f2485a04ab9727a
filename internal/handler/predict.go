package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"rpsvision/internal/dto"
	"rpsvision/internal/logger"
	"rpsvision/internal/service"
	"rpsvision/internal/service/prediction"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	// ReplyInterval is the minimum spacing between two replies on one prediction socket.
	ReplyInterval = 50 * time.Millisecond
	// MaxUploadSize caps multipart uploads on POST /predict.
	MaxUploadSize = 10 << 20
	// writeWait bounds every websocket write.
	writeWait = 5 * time.Second
)

// PredictWebsocketHandler serves the game client: one JSON {image} frame in, one
// PredictionResponse out, until the client goes away.
func PredictWebsocketHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		session := uuid.NewString()
		ctx, cancel := context.WithCancel(r.Context())
		defer manager.ForgetSession(session)
		defer cancel()
		logger.Info("Player session %s connected from %s", session, r.RemoteAddr)

		limiter := rate.NewLimiter(rate.Every(ReplyInterval), 1)

		for {
			_, data, err := connection.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Player session %s disconnected normally", session)
				} else {
					logger.Error("Player session %s disconnected with error: %v", session, err)
				}
				return
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			resp, err := predictFrame(ctx, manager, session, data)
			if err != nil {
				logger.Error("Prediction failed for session %s: %v", session, err)
				// Best effort, the connection is closed right after.
				writeResponse(connection, dto.ErrorResponse(prediction.MsgDetectorFailed))
				return
			}

			if err := writeResponse(connection, resp); err != nil {
				logger.Error("Error sending prediction to session %s: %v", session, err)
				return
			}
		}
	}
}

func predictFrame(ctx context.Context, manager *service.Manager, session string, data []byte) (dto.PredictionResponse, error) {
	req, err := dto.DecodeRequest(data)
	if err != nil {
		if errors.Is(err, dto.ErrMalformedRequest) {
			return dto.ErrorResponse(prediction.MsgRequestInvalid), nil
		}
		return dto.ErrorResponse(prediction.MsgImageMissing), nil
	}
	return manager.PredictDataURL(ctx, session, req.Image)
}

func writeResponse(connection *websocket.Conn, resp dto.PredictionResponse) error {
	payload, err := dto.Marshal(resp)
	if err != nil {
		return err
	}
	connection.SetWriteDeadline(time.Now().Add(writeWait))
	return connection.WriteMessage(websocket.TextMessage, payload)
}

// PredictUploadHandler handles POST /predict with the frame in the multipart field "file".
func PredictUploadHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
		file, _, err := r.FormFile("file")
		if err != nil {
			writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse(prediction.MsgImageMissing))
			return
		}
		defer file.Close()

		image, err := io.ReadAll(file)
		if err != nil || len(image) == 0 {
			writeJSON(w, logger, http.StatusBadRequest, dto.ErrorResponse(prediction.MsgImageMissing))
			return
		}

		resp, err := manager.PredictUpload(r.Context(), image)
		switch {
		case errors.Is(err, service.ErrQueueFull):
			writeJSON(w, logger, http.StatusServiceUnavailable, dto.ErrorResponse(service.MsgServerBusy))
		case err != nil:
			logger.Error("Upload prediction failed: %v", err)
			writeJSON(w, logger, http.StatusInternalServerError, dto.ErrorResponse(prediction.MsgDetectorFailed))
		default:
			writeJSON(w, logger, http.StatusOK, resp)
		}
	}
}
