package capture

import (
	"fmt"
	"image/color"

	"rpsvision/internal/client"
	"rpsvision/internal/game"
	"rpsvision/internal/overlay"

	"gocv.io/x/gocv"
)

var scoreColor = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Window shows the webcam preview with the latest result drawn on it.
type Window struct {
	window *gocv.Window
	camera *Camera
}

func NewWindow(title string, camera *Camera) *Window {
	return &Window{
		window: gocv.NewWindow(title),
		camera: camera,
	}
}

// Render draws one frame. It returns client.ErrQuit once the player presses q or Esc.
func (w *Window) Render(snapshot game.Snapshot) error {
	frame, ok := w.camera.Latest()
	if !ok {
		return w.poll()
	}
	defer frame.Close()

	if err := overlay.DrawResult(&frame, snapshot.Result); err != nil {
		return err
	}
	if err := overlay.DrawLines(&frame, ScoreLines(snapshot), scoreColor); err != nil {
		return err
	}
	if snapshot.Error != "" {
		if err := overlay.DrawLinesAt(&frame, []string{snapshot.Error}, frame.Rows()-15, overlay.ErrorColor); err != nil {
			return err
		}
	}

	w.window.IMShow(frame)
	return w.poll()
}

func (w *Window) poll() error {
	switch w.window.WaitKey(1) {
	case 'q', 27:
		return client.ErrQuit
	}
	return nil
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.window.Close()
}

// ScoreLines is the text overlay for a snapshot.
func ScoreLines(snapshot game.Snapshot) []string {
	lines := []string{
		fmt.Sprintf("Player 1: %d  Player 2: %d", snapshot.Player1Wins, snapshot.Player2Wins),
	}
	if n := len(snapshot.Rounds); n > 0 {
		last := snapshot.Rounds[n-1]
		lines = append(lines, fmt.Sprintf("Round %d: %s vs %s - %s", last.Number, last.Player1, last.Player2, last.Winner))
		lines = append(lines, "Leading: "+snapshot.UltimateWinner)
	}
	return lines
}
