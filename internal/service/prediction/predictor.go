// Package prediction turns a raw frame into a PredictionResponse: it runs the detector,
// picks the two left-most hands and decides the round.
package prediction

import (
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"

	"rpsvision/internal/dto"
	"rpsvision/internal/game"
)

// Messages sent back to clients. They are part of the wire contract.
const (
	MsgRequestInvalid  = "Request must be a JSON object with an image field."
	MsgImageMissing    = "Image data not found."
	MsgBase64Invalid   = "Image base64 could not be decoded."
	MsgImageInvalid    = "Image could not be decoded (invalid image data)."
	MsgNoHands         = "No hands detected. Please move to a well-lit area."
	MsgTwoHandsMissing = "Two hands could not be detected. Please try a clearer image."
	MsgClassMapping    = "There was a problem with class mapping. Please ensure the model is correct."
	MsgDetectorFailed  = "Prediction failed. Please try again."
)

// ErrInvalidImage is returned by detectors when the frame bytes are not a decodable image.
var ErrInvalidImage = errors.New("invalid image data")

// Detector finds hands in an encoded frame.
type Detector interface {
	Detect(image []byte) ([]dto.DetectionResult, error)
}

// Predictor is not safe for concurrent use when its detector is not.
type Predictor struct {
	detector   Detector
	classNames []string
}

func NewPredictor(detector Detector, classNames []string) *Predictor {
	return &Predictor{
		detector:   detector,
		classNames: classNames,
	}
}

// DecodeDataURL extracts the raw bytes from "data:image/jpeg;base64,<payload>".
// A bare base64 payload is accepted as well.
func DecodeDataURL(dataURL string) ([]byte, error) {
	payload := dataURL
	if idx := strings.Index(dataURL, ","); idx >= 0 {
		payload = dataURL[idx+1:]
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 payload: %w", err)
	}
	return data, nil
}

// PredictDataURL runs Predict on a data URL payload.
func (p *Predictor) PredictDataURL(dataURL string) dto.PredictionResponse {
	if dataURL == "" {
		return dto.ErrorResponse(MsgImageMissing)
	}

	image, err := DecodeDataURL(dataURL)
	if err != nil {
		return dto.ErrorResponse(MsgBase64Invalid)
	}

	return p.Predict(image)
}

// Predict is the shared inference path for websocket and upload requests.
func (p *Predictor) Predict(image []byte) dto.PredictionResponse {
	detections, err := p.detector.Detect(image)
	if err != nil {
		if errors.Is(err, ErrInvalidImage) {
			return dto.ErrorResponse(MsgImageInvalid)
		}
		return dto.ErrorResponse(MsgDetectorFailed)
	}

	if len(detections) == 0 {
		return dto.ErrorResponse(MsgNoHands)
	}

	sorted := make([]dto.DetectionResult, len(detections))
	copy(sorted, detections)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].X1 < sorted[j].X1
	})

	if len(sorted) < 2 {
		return dto.PredictionResponse{
			Error:      MsgTwoHandsMissing,
			Detections: len(sorted),
		}
	}

	left, right := sorted[0], sorted[1]

	player1, ok1 := p.label(left.ClassID)
	player2, ok2 := p.label(right.ClassID)
	if !ok1 || !ok2 {
		return dto.ErrorResponse(MsgClassMapping)
	}

	leftBox := left.Box()
	rightBox := right.Box()

	return dto.PredictionResponse{
		Player1:    player1,
		Player2:    player2,
		Winner:     game.DetermineWinner(player1, player2),
		Detections: len(sorted),
		LeftBox:    &leftBox,
		RightBox:   &rightBox,
	}
}

func (p *Predictor) label(classID int) (string, bool) {
	if classID < 0 || classID >= len(p.classNames) {
		return "", false
	}
	return p.classNames[classID], true
}
