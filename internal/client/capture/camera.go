// Package capture is the OpenCV side of the game client: webcam frames in, preview window out.
package capture

import (
	"errors"
	"fmt"
	"sync"

	"gocv.io/x/gocv"
)

// MsgCameraError prefixes the error shown when the webcam cannot be opened.
const MsgCameraError = "Failed to access webcam"

// ErrNoFrame is returned by Read when the device delivered nothing.
var ErrNoFrame = errors.New("camera returned an empty frame")

// Camera keeps the newest webcam frame. Read and the accessors may be called from
// different goroutines.
type Camera struct {
	capture *gocv.VideoCapture
	frame   gocv.Mat
	hasData bool
	quality int
	mu      sync.Mutex
}

// OpenCamera opens the webcam at device index. The error text is the user-visible message.
func OpenCamera(device, quality int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", MsgCameraError, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%s: device %d could not be opened", MsgCameraError, device)
	}

	return &Camera{
		capture: vc,
		frame:   gocv.NewMat(),
		quality: quality,
	}, nil
}

// Read grabs the next frame from the device.
func (c *Camera) Read() error {
	next := gocv.NewMat()
	if ok := c.capture.Read(&next); !ok || next.Empty() {
		next.Close()
		return ErrNoFrame
	}

	c.mu.Lock()
	c.frame.Close()
	c.frame = next
	c.hasData = true
	c.mu.Unlock()
	return nil
}

// LatestJPEG encodes the newest frame at the configured quality, or returns nil before
// the first frame.
func (c *Camera) LatestJPEG() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasData {
		return nil, nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, c.frame, []int{gocv.IMWriteJpegQuality, c.quality})
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, nil
}

// Latest returns a copy of the newest frame, or false before the first frame. The caller
// closes the copy.
func (c *Camera) Latest() (gocv.Mat, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasData {
		return gocv.Mat{}, false
	}
	return c.frame.Clone(), true
}

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.frame.Close()
	c.hasData = false
	return c.capture.Close()
}
