package ai

import (
	"fmt"
	"image"
	"os"
	"sync"

	"rpsvision/internal/config"
	"rpsvision/internal/dto"
	"rpsvision/internal/logger"
	"rpsvision/internal/overlay"
	"rpsvision/internal/service/prediction"

	"gocv.io/x/gocv"
)

// DetectorService runs a YOLO hand-gesture model exported to ONNX.
// A gocv.Net is not safe for concurrent use, so every worker owns its own service.
type DetectorService struct {
	net          gocv.Net
	ready        bool
	mu           sync.Mutex
	modelPath    string
	inputSize    image.Point
	confidence   float32
	nmsThreshold float32
	logger       *logger.Logger
}

// NewDetectorService creates a detector from the configured model and loads the network.
func NewDetectorService(config *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		modelPath:    config.ModelPath,
		inputSize:    image.Pt(config.InputSize, config.InputSize),
		confidence:   float32(config.Confidence),
		nmsThreshold: float32(config.NMSThreshold),
		logger:       logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}

	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	net := gocv.ReadNet(s.modelPath, "")
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.ready = true
	s.logger.Info("Detection network loaded from %s", s.modelPath)
	return nil
}

// Detect decodes the frame and returns every detection above the confidence threshold
// after non-maximum suppression, in source-frame pixels.
func (s *DetectorService) Detect(imageBytes []byte) ([]dto.DetectionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ready {
		return nil, fmt.Errorf("detection network not initialized")
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", prediction.ErrInvalidImage, err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, prediction.ErrInvalidImage
	}

	blob := gocv.BlobFromImage(mat, 1.0/255.0, s.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")

	output := s.net.Forward("")
	defer output.Close()

	return s.parseOutput(output, mat.Cols(), mat.Rows())
}

// parseOutput reads a [1, 4+classes, anchors] tensor: cx, cy, w, h followed by class scores.
func (s *DetectorService) parseOutput(output gocv.Mat, width, height int) ([]dto.DetectionResult, error) {
	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected output shape %v", dims)
	}

	attributes := dims[1]
	anchors := dims[2]

	reshaped := output.Reshape(1, attributes)
	defer reshaped.Close()

	data, err := reshaped.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output tensor: %w", err)
	}

	scaleX := float32(width) / float32(s.inputSize.X)
	scaleY := float32(height) / float32(s.inputSize.Y)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < anchors; i++ {
		bestScore := float32(0)
		bestClass := 0
		for c := 4; c < attributes; c++ {
			if score := data[c*anchors+i]; score > bestScore {
				bestScore = score
				bestClass = c - 4
			}
		}

		if bestScore < s.confidence {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		x1 := clamp(int((cx-w/2)*scaleX), width)
		y1 := clamp(int((cy-h/2)*scaleY), height)
		x2 := clamp(int((cx+w/2)*scaleX), width)
		y2 := clamp(int((cy+h/2)*scaleY), height)

		boxes = append(boxes, image.Rect(x1, y1, x2, y2))
		scores = append(scores, bestScore)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return []dto.DetectionResult{}, nil
	}

	indices := gocv.NMSBoxes(boxes, scores, s.confidence, s.nmsThreshold)

	results := make([]dto.DetectionResult, 0, len(indices))
	for _, idx := range indices {
		box := boxes[idx]
		results = append(results, dto.DetectionResult{
			ClassID:    classIDs[idx],
			Confidence: float64(scores[idx]),
			X1:         box.Min.X,
			Y1:         box.Min.Y,
			X2:         box.Max.X,
			Y2:         box.Max.Y,
		})
	}

	return results, nil
}

// Annotate draws both player boxes with their labels and re-encodes the frame as JPEG.
func (s *DetectorService) Annotate(img []byte, resp dto.PredictionResponse) ([]byte, error) {
	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %v", err)
	}
	defer mat.Close()

	if err := overlay.DrawResult(&mat, &resp); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		s.logger.Error("Failed to encode image: %v", err)
		return nil, err
	}
	defer buf.Close()
	finalImage := make([]byte, len(buf.GetBytes()))
	copy(finalImage, buf.GetBytes())

	return finalImage, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		s.ready = false
		return s.net.Close()
	}
	return nil
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
