package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"rpsvision/internal/dto"
	"rpsvision/internal/model"

	"github.com/mattn/go-sqlite3"
)

const roundColumns = `id, session_id, number, player1, player2, winner, detections, snapshot, created_at`

// RoundRepository implements repository.RoundRepository for SQLite.
type RoundRepository struct {
	db *DB
}

// NewRoundRepository creates a new SQLite round repository.
func NewRoundRepository(db *DB) *RoundRepository {
	return &RoundRepository{db: db}
}

// Insert adds a new round record to the database.
func (r *RoundRepository) Insert(round *model.Round) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().NamedExec(`
		INSERT INTO rounds (session_id, number, player1, player2, winner, detections, snapshot, created_at)
		VALUES (:session_id, :number, :player1, :player2, :winner, :detections, :snapshot, :created_at)
	`, round)
	if err != nil {
		return 0, fmt.Errorf("failed to insert round: %w", err)
	}

	return result.LastInsertId()
}

// AttachSnapshot stores the snapshot filename of a round.
func (r *RoundRepository) AttachSnapshot(id int64, filename string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`UPDATE rounds SET snapshot = ? WHERE id = ?`, filename, id); err != nil {
		return fmt.Errorf("failed to attach snapshot: %w", err)
	}
	return nil
}

// GetByID retrieves a round by its ID. A missing round is (nil, nil).
func (r *RoundRepository) GetByID(id int64) (*model.Round, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var round model.Round
	err := r.db.Conn().Get(&round, `SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get round: %w", err)
	}
	return &round, nil
}

// GetAll retrieves rounds based on filter criteria, newest first.
func (r *RoundRepository) GetAll(filter *dto.RoundFilters) ([]model.Round, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)
	query := `SELECT ` + roundColumns + ` FROM rounds` + where + ` ORDER BY created_at DESC, id DESC`

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rounds := []model.Round{}
	if err := r.db.Conn().Select(&rounds, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}

	return rounds, nil
}

// GetTotalCount returns the total count of rounds matching the filter.
func (r *RoundRepository) GetTotalCount(filter *dto.RoundFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := buildWhere(filter)

	var count int
	if err := r.db.Conn().Get(&count, `SELECT COUNT(*) FROM rounds`+where, args...); err != nil {
		return 0, fmt.Errorf("failed to count rounds: %w", err)
	}

	return count, nil
}

// GetSessions returns a per-session summary, most recent session first.
func (r *RoundRepository) GetSessions() ([]model.SessionSummary, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	// Aggregates lose the DATETIME column type, so started_at comes back as text.
	var rows []struct {
		SessionID   string `db:"session_id"`
		Rounds      int    `db:"rounds"`
		Player1Wins int    `db:"player1_wins"`
		Player2Wins int    `db:"player2_wins"`
		StartedAt   string `db:"started_at"`
	}
	err := r.db.Conn().Select(&rows, `
		SELECT session_id,
			COUNT(*) AS rounds,
			SUM(CASE WHEN winner LIKE '%Player 1%' THEN 1 ELSE 0 END) AS player1_wins,
			SUM(CASE WHEN winner LIKE '%Player 2%' THEN 1 ELSE 0 END) AS player2_wins,
			MIN(created_at) AS started_at
		FROM rounds
		GROUP BY session_id
		ORDER BY started_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}

	sessions := make([]model.SessionSummary, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, model.SessionSummary{
			SessionID:   row.SessionID,
			Rounds:      row.Rounds,
			Player1Wins: row.Player1Wins,
			Player2Wins: row.Player2Wins,
			StartedAt:   parseTimestamp(row.StartedAt),
		})
	}
	return sessions, nil
}

// GetStats returns statistics about recorded rounds.
func (r *RoundRepository) GetStats() (*model.RoundStats, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	stats := &model.RoundStats{
		GestureCounts: make(map[string]int),
	}

	totals := struct {
		Rounds   int `db:"rounds"`
		Sessions int `db:"sessions"`
		Player1  int `db:"player1_wins"`
		Player2  int `db:"player2_wins"`
	}{}
	err := r.db.Conn().Get(&totals, `
		SELECT COUNT(*) AS rounds,
			COUNT(DISTINCT session_id) AS sessions,
			COALESCE(SUM(CASE WHEN winner LIKE '%Player 1%' THEN 1 ELSE 0 END), 0) AS player1_wins,
			COALESCE(SUM(CASE WHEN winner LIKE '%Player 2%' THEN 1 ELSE 0 END), 0) AS player2_wins
		FROM rounds
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	stats.TotalRounds = totals.Rounds
	stats.TotalSessions = totals.Sessions
	stats.Player1Wins = totals.Player1
	stats.Player2Wins = totals.Player2

	// Every round shows two gestures.
	rows, err := r.db.Conn().Queryx(`
		SELECT gesture, COUNT(*) FROM (
			SELECT player1 AS gesture FROM rounds
			UNION ALL
			SELECT player2 AS gesture FROM rounds
		) GROUP BY gesture
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query gestures: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var gesture string
		var count int
		if err := rows.Scan(&gesture, &count); err != nil {
			return nil, fmt.Errorf("failed to scan gesture: %w", err)
		}
		stats.GestureCounts[gesture] = count
	}

	return stats, rows.Err()
}

// DeleteBySession removes all rounds of a session.
func (r *RoundRepository) DeleteBySession(sessionID string) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM rounds WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to delete rounds: %w", err)
	}
	return nil
}

// DeleteAll removes all rounds.
func (r *RoundRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec(`DELETE FROM rounds`); err != nil {
		return fmt.Errorf("failed to delete rounds: %w", err)
	}
	return nil
}

func parseTimestamp(value string) time.Time {
	value = strings.TrimSuffix(value, "Z")
	for _, layout := range sqlite3.SQLiteTimestampFormats {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}

func buildWhere(filter *dto.RoundFilters) (string, []interface{}) {
	if filter == nil {
		return "", nil
	}

	var clauses []string
	var args []interface{}

	if filter.Session != "" {
		clauses = append(clauses, "session_id = ?")
		args = append(args, filter.Session)
	}

	if filter.Winner != "" {
		clauses = append(clauses, "winner = ?")
		args = append(args, filter.Winner)
	}

	if filter.Gesture != "" {
		clauses = append(clauses, "(player1 = ? OR player2 = ?)")
		args = append(args, filter.Gesture, filter.Gesture)
	}

	if !filter.DateAfter.IsZero() {
		clauses = append(clauses, "DATE(created_at) >= DATE(?)")
		args = append(args, filter.DateAfter.Format("2006-01-02"))
	}

	if !filter.DateBefore.IsZero() {
		clauses = append(clauses, "DATE(created_at) <= DATE(?)")
		args = append(args, filter.DateBefore.Format("2006-01-02"))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
