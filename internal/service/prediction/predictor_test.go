package prediction

import (
	"encoding/base64"
	"errors"
	"testing"

	"rpsvision/internal/dto"
)

var classNames = []string{"paper", "rock", "scissors"}

type fakeDetector struct {
	detections []dto.DetectionResult
	err        error
	calls      int
	lastImage  []byte
}

func (f *fakeDetector) Detect(image []byte) ([]dto.DetectionResult, error) {
	f.calls++
	f.lastImage = image
	return f.detections, f.err
}

func hand(classID, x1 int) dto.DetectionResult {
	return dto.DetectionResult{ClassID: classID, Confidence: 0.9, X1: x1, Y1: 10, X2: x1 + 50, Y2: 80}
}

func TestDecodeDataURL(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0x01, 0x02}
	encoded := base64.StdEncoding.EncodeToString(raw)

	tests := []struct {
		name  string
		input string
	}{
		{"data url", "data:image/jpeg;base64," + encoded},
		{"bare payload", encoded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeDataURL(tt.input)
			if err != nil {
				t.Fatalf("DecodeDataURL failed: %v", err)
			}
			if string(got) != string(raw) {
				t.Errorf("Expected %v, got %v", raw, got)
			}
		})
	}

	if _, err := DecodeDataURL("data:image/jpeg;base64,@@not-base64@@"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := DecodeDataURL("data:image/jpeg;base64," + encoded + ",x"); err == nil {
		t.Error("Text after a second comma is part of the payload and must fail to decode")
	}
}

func TestPredict_TwoHands(t *testing.T) {
	det := &fakeDetector{detections: []dto.DetectionResult{
		hand(2, 300), // scissors on the right
		hand(1, 20),  // rock on the left
	}}
	p := NewPredictor(det, classNames)

	resp := p.Predict([]byte("frame"))

	if resp.Error != "" {
		t.Fatalf("Unexpected error: %s", resp.Error)
	}
	if resp.Player1 != "rock" || resp.Player2 != "scissors" {
		t.Errorf("Expected rock vs scissors, got %s vs %s", resp.Player1, resp.Player2)
	}
	if resp.Winner != dto.WinnerPlayer1 {
		t.Errorf("Expected %s, got %s", dto.WinnerPlayer1, resp.Winner)
	}
	if resp.Detections != 2 {
		t.Errorf("Expected 2 detections, got %d", resp.Detections)
	}
	if resp.LeftBox == nil || *resp.LeftBox != (dto.Box{20, 10, 70, 80}) {
		t.Errorf("Unexpected left box: %v", resp.LeftBox)
	}
	if resp.RightBox == nil || *resp.RightBox != (dto.Box{300, 10, 350, 80}) {
		t.Errorf("Unexpected right box: %v", resp.RightBox)
	}
}

func TestPredict_MoreThanTwoHandsUsesLeftMost(t *testing.T) {
	det := &fakeDetector{detections: []dto.DetectionResult{
		hand(0, 500),
		hand(0, 100),
		hand(1, 5),
	}}
	p := NewPredictor(det, classNames)

	resp := p.Predict([]byte("frame"))

	if resp.Player1 != "rock" || resp.Player2 != "paper" {
		t.Errorf("Expected rock vs paper, got %s vs %s", resp.Player1, resp.Player2)
	}
	if resp.Winner != dto.WinnerPlayer2 {
		t.Errorf("Expected %s, got %s", dto.WinnerPlayer2, resp.Winner)
	}
	if resp.Detections != 3 {
		t.Errorf("Expected 3 detections, got %d", resp.Detections)
	}
	if det.detections[0].X1 != 500 {
		t.Error("Predict must not reorder the detector's slice")
	}
}

func TestPredict_Errors(t *testing.T) {
	tests := []struct {
		name       string
		detector   *fakeDetector
		message    string
		detections int
	}{
		{"undecodable image", &fakeDetector{err: ErrInvalidImage}, MsgImageInvalid, 0},
		{"detector failure", &fakeDetector{err: errors.New("forward failed")}, MsgDetectorFailed, 0},
		{"no hands", &fakeDetector{}, MsgNoHands, 0},
		{"single hand", &fakeDetector{detections: []dto.DetectionResult{hand(1, 10)}}, MsgTwoHandsMissing, 1},
		{"unknown class", &fakeDetector{detections: []dto.DetectionResult{hand(1, 10), hand(7, 90)}}, MsgClassMapping, 0},
		{"negative class", &fakeDetector{detections: []dto.DetectionResult{hand(-1, 10), hand(1, 90)}}, MsgClassMapping, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := NewPredictor(tt.detector, classNames).Predict([]byte("frame"))
			if resp.Error != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, resp.Error)
			}
			if resp.Detections != tt.detections {
				t.Errorf("Expected %d detections, got %d", tt.detections, resp.Detections)
			}
			if resp.Winner != "" {
				t.Errorf("Error response should carry no winner, got %s", resp.Winner)
			}
		})
	}
}

func TestPredictDataURL(t *testing.T) {
	det := &fakeDetector{detections: []dto.DetectionResult{hand(0, 10), hand(0, 90)}}
	p := NewPredictor(det, classNames)

	if resp := p.PredictDataURL(""); resp.Error != MsgImageMissing {
		t.Errorf("Expected %q, got %q", MsgImageMissing, resp.Error)
	}
	if resp := p.PredictDataURL("data:image/jpeg;base64,%%%"); resp.Error != MsgBase64Invalid {
		t.Errorf("Expected %q, got %q", MsgBase64Invalid, resp.Error)
	}
	if det.calls != 0 {
		t.Errorf("Detector should not run for malformed payloads, ran %d times", det.calls)
	}

	resp := p.PredictDataURL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("jpeg")))
	if resp.Winner != dto.WinnerDraw {
		t.Errorf("Expected draw, got %+v", resp)
	}
	if string(det.lastImage) != "jpeg" {
		t.Errorf("Detector received %q", det.lastImage)
	}
}
