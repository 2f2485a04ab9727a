// Package overlay draws prediction results onto frames, for the server's round snapshots and
// the client's preview window alike.
package overlay

import (
	"fmt"
	"image"
	"image/color"

	"rpsvision/internal/dto"

	"gocv.io/x/gocv"
)

var (
	LeftColor  = color.RGBA{G: 255, A: 255}
	RightColor = color.RGBA{R: 255, A: 255}
	ErrorColor = color.RGBA{R: 255, A: 255}
	labelFill  = color.RGBA{R: 255, G: 255, A: 255}
	labelText  = color.RGBA{A: 255}
)

const labelHeight = 20

// DrawResult draws both player boxes of resp. Missing boxes are skipped.
func DrawResult(mat *gocv.Mat, resp *dto.PredictionResponse) error {
	if resp == nil {
		return nil
	}
	if err := DrawPlayerBox(mat, resp.LeftBox, LeftColor, "Player 1: "+resp.Player1); err != nil {
		return err
	}
	return DrawPlayerBox(mat, resp.RightBox, RightColor, "Player 2: "+resp.Player2)
}

// DrawPlayerBox outlines box in c and puts the label on a yellow strip above it.
// A nil box is a no-op.
func DrawPlayerBox(mat *gocv.Mat, box *dto.Box, c color.RGBA, label string) error {
	if box == nil {
		return nil
	}

	rect := image.Rect(box[0], box[1], box[2], box[3])
	if err := gocv.Rectangle(mat, rect, c, 2); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}

	// Hershey simplex at 0.5 is roughly 9px per glyph.
	strip := image.Rect(box[0], box[1]-labelHeight, box[0]+len(label)*9+10, box[1])
	if err := gocv.Rectangle(mat, strip, labelFill, -1); err != nil {
		return fmt.Errorf("failed to draw label background: %w", err)
	}

	pt := image.Pt(box[0]+5, box[1]-5)
	if err := gocv.PutText(mat, label, pt, gocv.FontHersheySimplex, 0.5, labelText, 1); err != nil {
		return fmt.Errorf("failed to draw text: %w", err)
	}
	return nil
}

// DrawLines writes text lines top-left on the frame, one per row.
func DrawLines(mat *gocv.Mat, lines []string, c color.RGBA) error {
	return DrawLinesAt(mat, lines, 25, c)
}

// DrawLinesAt writes text lines starting at baseline y, one per row.
func DrawLinesAt(mat *gocv.Mat, lines []string, y int, c color.RGBA) error {
	for i, line := range lines {
		pt := image.Pt(10, y+i*25)
		if err := gocv.PutText(mat, line, pt, gocv.FontHersheySimplex, 0.6, c, 2); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}
	return nil
}
