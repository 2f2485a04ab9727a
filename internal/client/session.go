package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rpsvision/internal/dto"
	"rpsvision/internal/game"
	"rpsvision/internal/logger"
)

// ErrQuit is returned by a Display when the player closes it.
var ErrQuit = errors.New("player quit")

// FrameSource is the webcam.
type FrameSource interface {
	// Read advances to the newest camera frame.
	Read() error
	// LatestJPEG encodes the newest frame; nil before the first frame arrives.
	LatestJPEG() ([]byte, error)
}

// Display draws the newest frame with the scoreboard on top.
type Display interface {
	Render(snapshot game.Snapshot) error
}

// Transport carries frames to the prediction service and results back.
type Transport interface {
	IsOpen() bool
	SendFrame(dataURL string) error
	Receive(ctx context.Context, handle func(dto.PredictionResponse)) error
	Close() error
}

// Session runs one game: it owns the scoreboard and drives the send, receive and render loops.
type Session struct {
	camera     FrameSource
	display    Display
	transport  Transport
	scoreboard *game.Scoreboard
	interval   time.Duration
	frameRate  time.Duration
	logger     *logger.Logger
}

// NewSession wires a session. display may be nil for headless play.
func NewSession(camera FrameSource, display Display, transport Transport, interval time.Duration, logger *logger.Logger) *Session {
	return &Session{
		camera:     camera,
		display:    display,
		transport:  transport,
		scoreboard: game.NewScoreboard(),
		interval:   interval,
		frameRate:  time.Second / DefaultFPS,
		logger:     logger,
	}
}

// Scoreboard exposes the session state.
func (s *Session) Scoreboard() *game.Scoreboard {
	return s.scoreboard
}

// Run plays until ctx is cancelled or the player quits. Headless sessions also end when the
// socket fails, since nothing is left to show.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	received := make(chan error, 1)
	go func() {
		received <- s.receiveLoop(ctx)
	}()

	sendTicker := time.NewTicker(s.interval)
	defer sendTicker.Stop()

	// The device is drained at its frame rate even without a window, otherwise the driver's
	// queue hands stale frames to the send tick.
	captureTicker := time.NewTicker(s.frameRate)
	defer captureTicker.Stop()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop

		case err = <-received:
			received = nil
			if s.display == nil {
				break loop
			}

		case <-sendTicker.C:
			s.sendFrame()

		case <-captureTicker.C:
			if readErr := s.camera.Read(); readErr != nil {
				s.logger.Warning("Failed to read camera frame: %v", readErr)
			}
			if s.display == nil {
				continue
			}
			if renderErr := s.display.Render(s.scoreboard.Snapshot()); renderErr != nil {
				if errors.Is(renderErr, ErrQuit) {
					break loop
				}
				s.logger.Error("Failed to render frame: %v", renderErr)
			}
		}
	}

	cancel()
	s.transport.Close()
	if received != nil {
		if recvErr := <-received; err == nil {
			err = recvErr
		}
	}
	return err
}

func (s *Session) receiveLoop(ctx context.Context) error {
	err := s.transport.Receive(ctx, func(resp dto.PredictionResponse) {
		if round, ok := s.scoreboard.Apply(resp); ok {
			s.logger.Info("Round %d: %s vs %s, %s", round.Number, round.Player1, round.Player2, round.Winner)
		} else if resp.Error != "" {
			s.logger.Warning("Prediction error: %s", resp.Error)
		}
	})
	if err != nil {
		s.logger.Error("Socket failed: %v", err)
		s.scoreboard.SetError(MsgSocketError)
		return fmt.Errorf("%s: %w", MsgSocketError, err)
	}
	return nil
}

// sendFrame skips the tick when the socket is closed or no frame has arrived yet.
func (s *Session) sendFrame() {
	if !s.transport.IsOpen() {
		return
	}

	jpeg, err := s.camera.LatestJPEG()
	if err != nil {
		s.logger.Warning("Failed to encode frame: %v", err)
		return
	}
	if len(jpeg) == 0 {
		return
	}

	if err := s.transport.SendFrame(EncodeDataURL(jpeg)); err != nil {
		s.logger.Error("Failed to send frame: %v", err)
		s.scoreboard.SetError(MsgSocketError)
	}
}
