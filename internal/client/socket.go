package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"rpsvision/internal/dto"

	"github.com/gorilla/websocket"
)

// MsgSocketError is the only socket failure shown to the player.
const MsgSocketError = "WebSocket connection error."

// ErrSocketClosed is returned when sending on a socket that is not open.
var ErrSocketClosed = errors.New("socket is not open")

const writeWait = 5 * time.Second

// Socket is the client end of the prediction websocket. Sends may come from any goroutine;
// Receive must run in exactly one.
type Socket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	open    atomic.Bool
}

// Dial connects to the prediction endpoint.
func Dial(ctx context.Context, url string) (*Socket, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", url, err)
	}

	s := &Socket{conn: conn}
	s.open.Store(true)
	return s, nil
}

func (s *Socket) IsOpen() bool {
	return s.open.Load()
}

// SendFrame sends {"image": dataURL} as one text frame.
func (s *Socket) SendFrame(dataURL string) error {
	if !s.IsOpen() {
		return ErrSocketClosed
	}

	payload, err := dto.Marshal(dto.PredictionRequest{Image: dataURL})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.open.Store(false)
		return fmt.Errorf("failed to send frame: %w", err)
	}
	return nil
}

// Receive decodes every incoming text frame and hands it to handle, in socket order, until
// the connection fails or ctx is cancelled. A normal close returns nil.
func (s *Socket) Receive(ctx context.Context, handle func(dto.PredictionResponse)) error {
	stop := context.AfterFunc(ctx, func() { s.Close() })
	defer stop()

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.open.Store(false)
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("failed to read prediction: %w", err)
		}

		var resp dto.PredictionResponse
		if err := dto.Unmarshal(data, &resp); err != nil {
			// Nieczytelna ramka jest pomijana, połączenie zostaje
			continue
		}
		handle(resp)
	}
}

// Close sends a close frame and releases the connection. Safe to call more than once.
func (s *Socket) Close() error {
	if !s.open.Swap(false) {
		return s.conn.Close()
	}

	s.writeMu.Lock()
	s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	s.writeMu.Unlock()
	return s.conn.Close()
}
