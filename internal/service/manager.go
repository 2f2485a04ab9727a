package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"rpsvision/internal/config"
	"rpsvision/internal/dto"
	"rpsvision/internal/logger"
	"rpsvision/internal/model"
	"rpsvision/internal/repository"
	"rpsvision/internal/service/prediction"
	"rpsvision/internal/service/storage"
	"rpsvision/internal/service/websocket"

	"github.com/google/uuid"
)

// MsgServerBusy answers frames dropped because every worker is busy.
const MsgServerBusy = "Server is busy, frame skipped."

var (
	ErrQueueFull      = errors.New("processing queue full")
	ErrManagerStopped = errors.New("manager stopped")
)

// Detector is a per-worker inference engine that can also draw a result onto a frame.
type Detector interface {
	prediction.Detector
	Annotate(image []byte, resp dto.PredictionResponse) ([]byte, error)
}

type Manager struct {
	bufferService    *storage.BufferService
	detectorServices []Detector
	predictors       []*prediction.Predictor
	websocketService *websocket.HubService
	roundRepo        repository.RoundRepository
	logger           *logger.Logger

	processingQueue chan predictionTask
	roundCounters   map[string]int // Numer ostatniej rundy w każdej sesji
	numWorkers      int

	roundCounterMu sync.Mutex
	stopMu         sync.RWMutex
	stopped        bool
	wg             sync.WaitGroup
}

type predictionTask struct {
	ctx     context.Context
	Image   []byte
	Session string
	oneShot bool // Sesja z jednym zapytaniem, bez licznika rund
	reply   chan dto.PredictionResponse
}

// NewManager starts one processing worker per detector. bufferService, websocketService and
// roundRepo are optional.
func NewManager(detectorServices []Detector, bufferService *storage.BufferService, websocketService *websocket.HubService, roundRepo repository.RoundRepository, config *config.Config, logger *logger.Logger) *Manager {
	manager := &Manager{
		detectorServices: detectorServices,
		bufferService:    bufferService,
		websocketService: websocketService,
		roundRepo:        roundRepo,
		numWorkers:       len(detectorServices),
		processingQueue:  make(chan predictionTask, config.QueueSize),
		roundCounters:    make(map[string]int),
		logger:           logger,
	}

	for _, detector := range detectorServices {
		manager.predictors = append(manager.predictors, prediction.NewPredictor(detector, config.ClassNames))
	}

	for i := 0; i < manager.numWorkers; i++ {
		manager.wg.Add(1)
		go manager.processingWorker(i)
	}

	manager.logger.Info("🎬 Manager started with %d worker(s), queue size %d", manager.numWorkers, config.QueueSize)
	return manager
}

// PredictDataURL decodes a data URL frame and runs it through Predict. Payload problems and
// a full queue are reported inside the response.
func (m *Manager) PredictDataURL(ctx context.Context, session, dataURL string) (dto.PredictionResponse, error) {
	if dataURL == "" {
		return dto.ErrorResponse(prediction.MsgImageMissing), nil
	}

	image, err := prediction.DecodeDataURL(dataURL)
	if err != nil {
		return dto.ErrorResponse(prediction.MsgBase64Invalid), nil
	}

	resp, err := m.Predict(ctx, session, image)
	if errors.Is(err, ErrQueueFull) {
		return dto.ErrorResponse(MsgServerBusy), nil
	}
	return resp, err
}

// Predict queues a frame and waits for its result. It fails fast with ErrQueueFull instead of
// blocking when the workers are saturated.
func (m *Manager) Predict(ctx context.Context, session string, image []byte) (dto.PredictionResponse, error) {
	return m.enqueue(predictionTask{
		ctx:     ctx,
		Image:   image,
		Session: session,
		reply:   make(chan dto.PredictionResponse, 1),
	})
}

// PredictUpload runs a single frame under its own one-off session. A decided result is
// recorded as round 1 of that session and no counter is kept for it.
func (m *Manager) PredictUpload(ctx context.Context, image []byte) (dto.PredictionResponse, error) {
	return m.enqueue(predictionTask{
		ctx:     ctx,
		Image:   image,
		Session: "upload-" + uuid.NewString(),
		oneShot: true,
		reply:   make(chan dto.PredictionResponse, 1),
	})
}

func (m *Manager) enqueue(task predictionTask) (dto.PredictionResponse, error) {
	session := task.Session

	m.stopMu.RLock()
	if m.stopped {
		m.stopMu.RUnlock()
		return dto.PredictionResponse{}, ErrManagerStopped
	}
	select {
	case m.processingQueue <- task:
		m.stopMu.RUnlock()
	default:
		m.stopMu.RUnlock()
		m.logger.Warning("⚠️  Processing queue full for session %s - skipping frame", session)
		return dto.PredictionResponse{}, ErrQueueFull
	}

	select {
	case resp := <-task.reply:
		return resp, nil
	case <-task.ctx.Done():
		return dto.PredictionResponse{}, task.ctx.Err()
	}
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// ForgetSession drops the round counter of a finished session. Cancel the session's context
// first so frames still in the queue are not numbered afterwards.
func (m *Manager) ForgetSession(session string) {
	m.roundCounterMu.Lock()
	delete(m.roundCounters, session)
	m.roundCounterMu.Unlock()
}

// processingWorker przetwarza klatki w osobnym wątku
func (m *Manager) processingWorker(workerID int) {
	defer m.wg.Done()

	m.logger.Info("🔧 Processing worker %d started", workerID)

	for task := range m.processingQueue {
		m.process(task, workerID)
	}

	m.logger.Info("🔧 Processing worker %d stopped", workerID)
}

func (m *Manager) process(task predictionTask, workerID int) {
	resp := m.predictors[workerID].Predict(task.Image)

	// Numer rundy nadawany przed odpowiedzią, żeby kolejność zgadzała się z klientem
	number := 0
	if resp.IsRound() {
		number = m.nextRound(task)
	}
	task.reply <- resp

	m.broadcast(task.Session, resp)

	if number > 0 {
		m.recordRound(task, resp, number, workerID)
	}
}

// nextRound returns 0 when the caller is already gone. The check runs under the counter lock so
// a session forgotten after its context ends cannot get a counter back.
func (m *Manager) nextRound(task predictionTask) int {
	if task.ctx.Err() != nil {
		return 0
	}
	if task.oneShot {
		return 1
	}

	m.roundCounterMu.Lock()
	defer m.roundCounterMu.Unlock()
	if task.ctx.Err() != nil {
		return 0
	}
	m.roundCounters[task.Session]++
	return m.roundCounters[task.Session]
}

// trackedSessions returns how many sessions currently hold a round counter.
func (m *Manager) trackedSessions() int {
	m.roundCounterMu.Lock()
	defer m.roundCounterMu.Unlock()
	return len(m.roundCounters)
}

func (m *Manager) broadcast(session string, resp dto.PredictionResponse) {
	if m.websocketService == nil {
		return
	}

	msg, err := dto.Marshal(dto.SpectatorMessage{Session: session, Result: resp})
	if err != nil {
		m.logger.Error("Failed to encode spectator message: %v", err)
		return
	}
	m.websocketService.Broadcast(msg)
}

func (m *Manager) recordRound(task predictionTask, resp dto.PredictionResponse, number, workerID int) {
	var roundID int64
	if m.roundRepo != nil {
		id, err := m.roundRepo.Insert(&model.Round{
			SessionID:  task.Session,
			Number:     number,
			Player1:    resp.Player1,
			Player2:    resp.Player2,
			Winner:     resp.Winner,
			Detections: resp.Detections,
			CreatedAt:  time.Now().UTC(),
		})
		if err != nil {
			m.logger.Error("Failed to save round %d of session %s: %v", number, task.Session, err)
			return
		}
		roundID = id
	}

	m.logger.Info("🏁 Session %s round %d: %s vs %s, %s", task.Session, number, resp.Player1, resp.Player2, resp.Winner)

	if m.bufferService == nil {
		return
	}

	annotated, err := m.detectorServices[workerID].Annotate(task.Image, resp)
	if err != nil {
		m.logger.Error("Failed to draw round boxes: %v", err)
		annotated = task.Image // Użyj oryginalnego obrazu
	}
	m.bufferService.AddSnapshot(annotated, task.Session, roundID, number, resp.Player1, resp.Player2)
}

// Stop zatrzymuje wszystkie workery
func (m *Manager) Stop() {
	m.stopMu.Lock()
	if m.stopped {
		m.stopMu.Unlock()
		return
	}
	m.stopped = true
	close(m.processingQueue)
	m.stopMu.Unlock()

	m.wg.Wait()
	m.logger.Info("🛑 All processing workers stopped")
}
