package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"rpsvision/internal/config"
	"rpsvision/internal/dto"
	"rpsvision/internal/game"
	"rpsvision/internal/logger"
	"rpsvision/internal/model"
	"rpsvision/internal/repository"
)

// DefaultPageSize is used when the request has no valid "limit".
const DefaultPageSize = 24

// GetRoundsHandler returns a filtered, paginated list of recorded rounds, or a single round
// when "id" is given.
func GetRoundsHandler(logger *logger.Logger, roundRepo repository.RoundRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if id := q.Get("id"); id != "" {
			getRound(w, logger, roundRepo, id)
			return
		}

		gesture := q.Get("gesture")
		if gesture != "" && !game.ValidGesture(gesture) {
			http.Error(w, "Unknown gesture", http.StatusBadRequest)
			return
		}

		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), DefaultPageSize)

		filter := &dto.RoundFilters{
			Session:    q.Get("session"),
			Winner:     q.Get("winner"),
			Gesture:    gesture,
			DateAfter:  parseDate(q.Get("dateAfter")),
			DateBefore: parseDate(q.Get("dateBefore")),
			Limit:      limit,
			Offset:     (page - 1) * limit,
		}

		rounds, err := roundRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying rounds from database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		totalCount, err := roundRepo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting rounds: %v", err)
			totalCount = len(rounds)
		}

		infos := make([]dto.RoundInfo, 0, len(rounds))
		for _, round := range rounds {
			infos = append(infos, roundInfo(round))
		}

		writeJSON(w, logger, http.StatusOK, dto.RoundsData{
			Rounds:      infos,
			Length:      totalCount,
			TotalPages:  (totalCount + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		})
	}
}

func getRound(w http.ResponseWriter, logger *logger.Logger, roundRepo repository.RoundRepository, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid round id", http.StatusBadRequest)
		return
	}

	round, err := roundRepo.GetByID(id)
	if err != nil {
		logger.Error("Error getting round %d: %v", id, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	if round == nil {
		http.Error(w, "Round not found", http.StatusNotFound)
		return
	}
	writeJSON(w, logger, http.StatusOK, roundInfo(*round))
}

func roundInfo(round model.Round) dto.RoundInfo {
	local := round.CreatedAt.Local()
	return dto.RoundInfo{
		ID:         round.ID,
		Session:    round.SessionID,
		Number:     round.Number,
		Player1:    round.Player1,
		Player2:    round.Player2,
		Winner:     round.Winner,
		Detections: round.Detections,
		Snapshot:   round.Snapshot,
		Date:       local,
		TimeOfDay:  local,
	}
}

// GetRoundStatsHandler returns aggregate win and gesture counts.
func GetRoundStatsHandler(logger *logger.Logger, roundRepo repository.RoundRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := roundRepo.GetStats()
		if err != nil {
			logger.Error("Error getting round stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, stats)
	}
}

// GetSessionsHandler returns one summary per recorded session, newest first.
func GetSessionsHandler(logger *logger.Logger, roundRepo repository.RoundRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions, err := roundRepo.GetSessions()
		if err != nil {
			logger.Error("Error getting sessions: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeJSON(w, logger, http.StatusOK, sessions)
	}
}

// ViewSnapshotHandler serves a single snapshot file specified via the "name" query parameter.
func ViewSnapshotHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Query().Get("name")
		if !isValidFilename(name) {
			http.Error(w, "Invalid snapshot name", http.StatusBadRequest)
			return
		}
		filePath := filepath.Join(cfg.SnapshotDirectory, name)
		if _, err := os.Stat(filePath); err != nil {
			http.NotFound(w, r)
			return
		}
		http.ServeFile(w, r, filePath)
	}
}

// ClearRoundsHandler deletes recorded rounds and their snapshots. With a "session" query
// parameter only that session is removed.
func ClearRoundsHandler(cfg *config.Config, logger *logger.Logger, roundRepo repository.RoundRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		session := r.URL.Query().Get("session")
		filter := &dto.RoundFilters{Session: session}
		if session == "" {
			filter = nil
		}

		rounds, err := roundRepo.GetAll(filter)
		if err != nil {
			logger.Error("Error querying rounds to clear: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		for _, round := range rounds {
			if round.Snapshot == "" {
				continue
			}
			filePath := filepath.Join(cfg.SnapshotDirectory, round.Snapshot)
			if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
				logger.Error("Error deleting file %s: %v", round.Snapshot, err)
			}
		}

		if session == "" {
			err = roundRepo.DeleteAll()
		} else {
			err = roundRepo.DeleteBySession(session)
		}
		if err != nil {
			logger.Error("Error clearing database: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		logger.Info("Cleared %d rounds (session filter: %q)", len(rounds), session)
		w.WriteHeader(http.StatusNoContent)
	}
}
