package service

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"rpsvision/internal/config"
	"rpsvision/internal/dto"
	"rpsvision/internal/logger"
	"rpsvision/internal/model"
	"rpsvision/internal/repository"
	"rpsvision/internal/service/prediction"
	"rpsvision/internal/service/storage"
)

var classIDs = map[string]int{"paper": 0, "rock": 1, "scissors": 2}

// scriptedDetector reads "<left>-<right>" gestures straight from the frame bytes.
type scriptedDetector struct {
	gate     chan struct{}
	started  chan struct{}
	annotate int
	mu       sync.Mutex
}

func (d *scriptedDetector) Detect(image []byte) ([]dto.DetectionResult, error) {
	if d.started != nil {
		d.started <- struct{}{}
	}
	if d.gate != nil {
		<-d.gate
	}

	left, right, ok := strings.Cut(string(image), "-")
	if !ok {
		return nil, prediction.ErrInvalidImage
	}
	return []dto.DetectionResult{
		{ClassID: classIDs[right], Confidence: 0.9, X1: 300, Y1: 0, X2: 400, Y2: 100},
		{ClassID: classIDs[left], Confidence: 0.9, X1: 10, Y1: 0, X2: 110, Y2: 100},
	}, nil
}

func (d *scriptedDetector) Annotate(image []byte, resp dto.PredictionResponse) ([]byte, error) {
	d.mu.Lock()
	d.annotate++
	d.mu.Unlock()
	return append([]byte("annotated:"), image...), nil
}

type memoryRoundRepo struct {
	repository.RoundRepository
	mu     sync.Mutex
	rounds []model.Round
}

func (r *memoryRoundRepo) Insert(round *model.Round) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rounds = append(r.rounds, *round)
	return int64(len(r.rounds)), nil
}

func (r *memoryRoundRepo) snapshot() []model.Round {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Round(nil), r.rounds...)
}

func testConfig(t *testing.T, queueSize int) *config.Config {
	return &config.Config{
		ClassNames:        []string{"paper", "rock", "scissors"},
		QueueSize:         queueSize,
		SnapshotDirectory: filepath.Join(t.TempDir(), "snapshots"),
		SnapshotLimit:     10,
		FlushInterval:     30,
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_PredictRecordsRounds(t *testing.T) {
	cfg := testConfig(t, 4)
	log := logger.NewWriter(io.Discard)
	repo := &memoryRoundRepo{}
	buffer := storage.NewBufferService(cfg, log, repo)
	detector := &scriptedDetector{}

	manager := NewManager([]Detector{detector}, buffer, nil, repo, cfg, log)
	defer manager.Stop()

	ctx := context.Background()
	frames := []struct {
		image  string
		winner string
	}{
		{"rock-scissors", dto.WinnerPlayer1},
		{"rock-rock", dto.WinnerDraw},
		{"rock-paper", dto.WinnerPlayer2},
	}
	for _, f := range frames {
		resp, err := manager.Predict(ctx, "s1", []byte(f.image))
		if err != nil {
			t.Fatalf("Predict(%s) failed: %v", f.image, err)
		}
		if resp.Winner != f.winner {
			t.Errorf("Predict(%s) winner = %q, expected %q", f.image, resp.Winner, f.winner)
		}
	}

	waitFor(t, func() bool { return len(repo.snapshot()) == 2 && buffer.Pending() == 2 })

	rounds := repo.snapshot()
	if rounds[0].Number != 1 || rounds[1].Number != 2 {
		t.Errorf("Expected rounds 1 and 2, got %d and %d", rounds[0].Number, rounds[1].Number)
	}
	if rounds[1].Player1 != "rock" || rounds[1].Player2 != "paper" {
		t.Errorf("Unexpected second round: %+v", rounds[1])
	}

	if _, err := manager.Predict(ctx, "s2", []byte("paper-rock")); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	waitFor(t, func() bool { return len(repo.snapshot()) == 3 })
	if n := repo.snapshot()[2].Number; n != 1 {
		t.Errorf("Each session numbers its own rounds, got %d", n)
	}
}

func TestManager_ErrorsAreNotRounds(t *testing.T) {
	cfg := testConfig(t, 4)
	repo := &memoryRoundRepo{}
	manager := NewManager([]Detector{&scriptedDetector{}}, nil, nil, repo, cfg, logger.NewWriter(io.Discard))
	defer manager.Stop()

	resp, err := manager.Predict(context.Background(), "s1", []byte("garbage"))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if resp.Error != prediction.MsgImageInvalid {
		t.Errorf("Expected invalid image error, got %+v", resp)
	}

	time.Sleep(20 * time.Millisecond)
	if len(repo.snapshot()) != 0 {
		t.Error("Error responses must not be recorded")
	}
}

func TestManager_PredictDataURL(t *testing.T) {
	cfg := testConfig(t, 4)
	manager := NewManager([]Detector{&scriptedDetector{}}, nil, nil, nil, cfg, logger.NewWriter(io.Discard))
	defer manager.Stop()

	ctx := context.Background()
	tests := []struct {
		name     string
		payload  string
		expected dto.PredictionResponse
	}{
		{"missing", "", dto.ErrorResponse(prediction.MsgImageMissing)},
		{"bad base64", "data:image/jpeg;base64,***", dto.ErrorResponse(prediction.MsgBase64Invalid)},
		{"valid", "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("scissors-paper")),
			dto.PredictionResponse{Player1: "scissors", Player2: "paper", Winner: dto.WinnerPlayer1, Detections: 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := manager.PredictDataURL(ctx, "s1", tt.payload)
			if err != nil {
				t.Fatalf("PredictDataURL failed: %v", err)
			}
			if resp.Error != tt.expected.Error || resp.Winner != tt.expected.Winner ||
				resp.Player1 != tt.expected.Player1 || resp.Player2 != tt.expected.Player2 {
				t.Errorf("Got %+v, expected %+v", resp, tt.expected)
			}
		})
	}
}

func TestManager_QueueFull(t *testing.T) {
	cfg := testConfig(t, 1)
	detector := &scriptedDetector{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	manager := NewManager([]Detector{detector}, nil, nil, nil, cfg, logger.NewWriter(io.Discard))

	ctx := context.Background()
	results := make(chan error, 2)
	go func() {
		_, err := manager.Predict(ctx, "s1", []byte("rock-paper"))
		results <- err
	}()
	<-detector.started

	go func() {
		_, err := manager.Predict(ctx, "s1", []byte("rock-paper"))
		results <- err
	}()
	waitFor(t, func() bool { return len(manager.processingQueue) == 1 })

	if _, err := manager.Predict(ctx, "s1", []byte("rock-paper")); !errors.Is(err, ErrQueueFull) {
		t.Errorf("Expected ErrQueueFull, got %v", err)
	}

	resp, err := manager.PredictDataURL(ctx, "s1", base64.StdEncoding.EncodeToString([]byte("rock-paper")))
	if err != nil {
		t.Fatalf("PredictDataURL failed: %v", err)
	}
	if resp.Error != MsgServerBusy {
		t.Errorf("Expected busy message, got %+v", resp)
	}

	close(detector.gate)
	for i := 0; i < 2; i++ {
		if err := <-results; err != nil {
			t.Errorf("Queued prediction failed: %v", err)
		}
	}

	manager.Stop()
	if _, err := manager.Predict(ctx, "s1", []byte("rock-paper")); !errors.Is(err, ErrManagerStopped) {
		t.Errorf("Expected ErrManagerStopped, got %v", err)
	}
}

func TestManager_PredictHonoursContext(t *testing.T) {
	cfg := testConfig(t, 2)
	detector := &scriptedDetector{gate: make(chan struct{})}
	manager := NewManager([]Detector{detector}, nil, nil, nil, cfg, logger.NewWriter(io.Discard))
	defer manager.Stop()
	defer close(detector.gate)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := manager.Predict(ctx, "s1", []byte("rock-paper")); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestManager_PredictUploadKeepsNoCounter(t *testing.T) {
	cfg := testConfig(t, 4)
	repo := &memoryRoundRepo{}
	manager := NewManager([]Detector{&scriptedDetector{}}, nil, nil, repo, cfg, logger.NewWriter(io.Discard))
	defer manager.Stop()

	for i := 0; i < 2; i++ {
		resp, err := manager.PredictUpload(context.Background(), []byte("paper-rock"))
		if err != nil {
			t.Fatalf("PredictUpload failed: %v", err)
		}
		if resp.Winner != dto.WinnerPlayer1 {
			t.Errorf("Unexpected response %+v", resp)
		}
	}

	waitFor(t, func() bool { return len(repo.snapshot()) == 2 })
	rounds := repo.snapshot()
	for _, round := range rounds {
		if round.Number != 1 || !strings.HasPrefix(round.SessionID, "upload-") {
			t.Errorf("Upload should be round 1 of its own session, got %+v", round)
		}
	}
	if rounds[0].SessionID == rounds[1].SessionID {
		t.Error("Every upload should get its own session")
	}
	if n := manager.trackedSessions(); n != 0 {
		t.Errorf("Uploads must not leave round counters behind, got %d", n)
	}
}

func TestManager_AbandonedFrameIsNotNumbered(t *testing.T) {
	cfg := testConfig(t, 4)
	repo := &memoryRoundRepo{}
	detector := &scriptedDetector{
		gate:    make(chan struct{}),
		started: make(chan struct{}, 4),
	}
	manager := NewManager([]Detector{detector}, nil, nil, repo, cfg, logger.NewWriter(io.Discard))
	defer manager.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan error, 1)
	go func() {
		_, err := manager.Predict(ctx, "gone", []byte("rock-scissors"))
		results <- err
	}()
	<-detector.started

	cancel()
	if err := <-results; !errors.Is(err, context.Canceled) {
		t.Fatalf("Expected context.Canceled, got %v", err)
	}
	manager.ForgetSession("gone")
	close(detector.gate)

	// One worker: the next reply means the abandoned frame has been fully processed.
	if _, err := manager.Predict(context.Background(), "other", []byte("garbage")); err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if n := manager.trackedSessions(); n != 0 {
		t.Errorf("Abandoned session should hold no counter, got %d", n)
	}
	if len(repo.snapshot()) != 0 {
		t.Error("A result nobody received must not be recorded")
	}
}
