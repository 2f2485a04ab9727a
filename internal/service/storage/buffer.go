package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"rpsvision/internal/config"
	"rpsvision/internal/dto"
	"rpsvision/internal/logger"
	"rpsvision/internal/repository"
)

// TimestampFormat is the timestamp layout used at the start of snapshot filenames.
const TimestampFormat = "2006-01-02_15-04-05.000"

// BufferService buffers annotated round frames in memory and periodically flushes them to disk.
type BufferService struct {
	snapshotsDir  string
	limit         int
	flushInterval time.Duration
	snapshots     []dto.BufferedSnapshot
	bufferCount   map[string]int
	mu            sync.Mutex
	logger        *logger.Logger
	roundRepo     repository.RoundRepository
}

// NewBufferService creates a new BufferService with the target directory and logger.
func NewBufferService(config *config.Config, logger *logger.Logger, roundRepo repository.RoundRepository) *BufferService {
	return &BufferService{
		snapshotsDir:  config.SnapshotDirectory,
		limit:         config.SnapshotLimit,
		flushInterval: time.Duration(config.FlushInterval) * time.Second,
		snapshots:     make([]dto.BufferedSnapshot, 0),
		bufferCount:   make(map[string]int),
		logger:        logger,
		roundRepo:     roundRepo,
	}
}

// Run flushes the buffer on every tick until ctx is cancelled, then flushes once more.
func (s *BufferService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.FlushSnapshots()
			return
		case <-ticker.C:
			s.FlushSnapshots()
		}
	}
}

// AddSnapshot appends a round frame to the in-memory buffer. Frames beyond the per-session
// limit are dropped until the next flush.
func (s *BufferService) AddSnapshot(data []byte, session string, roundID int64, number int, player1, player2 string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.bufferCount[session] >= s.limit {
		return false
	}

	s.snapshots = append(s.snapshots, dto.BufferedSnapshot{
		Timestamp: time.Now().Format(TimestampFormat),
		Session:   session,
		RoundID:   roundID,
		Number:    number,
		Player1:   player1,
		Player2:   player2,
		Data:      data,
	})
	s.bufferCount[session]++
	s.logger.Info("Snapshot buffer for session %s: %d/%d", session, s.bufferCount[session], s.limit)
	return true
}

// Pending returns how many snapshots wait for the next flush.
func (s *BufferService) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// FlushSnapshots writes buffered frames to disk, links them to their rounds and resets the buffer.
func (s *BufferService) FlushSnapshots() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.snapshots) == 0 {
		return 0
	}

	if err := os.MkdirAll(s.snapshotsDir, 0755); err != nil {
		s.logger.Error("Error creating directory: %v", err)
		return 0
	}

	savedCount := 0
	for _, snapshot := range s.snapshots {
		filename := SnapshotFilename(snapshot)
		fullpath := filepath.Join(s.snapshotsDir, filename)

		if err := os.WriteFile(fullpath, snapshot.Data, 0644); err != nil {
			s.logger.Error("Error saving snapshot %s: %v", filename, err)
			continue
		}

		if s.roundRepo != nil && snapshot.RoundID > 0 {
			if err := s.roundRepo.AttachSnapshot(snapshot.RoundID, filename); err != nil {
				s.logger.Error("Error linking snapshot %s to round %d: %v", filename, snapshot.RoundID, err)
			}
		}

		savedCount++
	}

	s.logger.Info("Flushed %d snapshots to disk", savedCount)
	s.snapshots = s.snapshots[:0]
	s.bufferCount = make(map[string]int)
	return savedCount
}

// SnapshotFilename builds <timestamp>_<session>_<round>_<p1>-<p2>.jpg.
func SnapshotFilename(snapshot dto.BufferedSnapshot) string {
	return fmt.Sprintf("%s_%s_%d_%s-%s.jpg",
		snapshot.Timestamp, snapshot.Session, snapshot.Number, snapshot.Player1, snapshot.Player2)
}

// SnapshotInfo is what a snapshot filename encodes.
type SnapshotInfo struct {
	Timestamp time.Time
	Session   string
	Number    int
	Player1   string
	Player2   string
}

// ParseFilename reverses SnapshotFilename.
func ParseFilename(filename string) (*SnapshotInfo, error) {
	name, ok := strings.CutSuffix(filepath.Base(filename), ".jpg")
	if !ok {
		return nil, fmt.Errorf("not a snapshot: %s", filename)
	}

	// date_time_session_round_p1-p2
	parts := strings.Split(name, "_")
	if len(parts) != 5 {
		return nil, fmt.Errorf("unexpected snapshot name: %s", filename)
	}

	ts, err := time.ParseInLocation(TimestampFormat, parts[0]+"_"+parts[1], time.Local)
	if err != nil {
		return nil, fmt.Errorf("invalid snapshot timestamp in %s: %w", filename, err)
	}

	number, err := strconv.Atoi(parts[3])
	if err != nil || number < 1 {
		return nil, fmt.Errorf("invalid round number in %s", filename)
	}

	player1, player2, ok := strings.Cut(parts[4], "-")
	if !ok || player1 == "" || player2 == "" {
		return nil, fmt.Errorf("invalid gestures in %s", filename)
	}

	return &SnapshotInfo{
		Timestamp: ts,
		Session:   parts[2],
		Number:    number,
		Player1:   player1,
		Player2:   player2,
	}, nil
}
