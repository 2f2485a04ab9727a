package model

import "time"

// Round represents a decided round recorded by the prediction service.
type Round struct {
	ID         int64     `db:"id" json:"id"`
	SessionID  string    `db:"session_id" json:"session"`
	Number     int       `db:"number" json:"number"`
	Player1    string    `db:"player1" json:"player1"`
	Player2    string    `db:"player2" json:"player2"`
	Winner     string    `db:"winner" json:"winner"`
	Detections int       `db:"detections" json:"detections"`
	Snapshot   string    `db:"snapshot" json:"snapshot"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// SessionSummary aggregates the rounds of one websocket session.
type SessionSummary struct {
	SessionID   string    `db:"session_id" json:"session"`
	Rounds      int       `db:"rounds" json:"rounds"`
	Player1Wins int       `db:"player1_wins" json:"player1Wins"`
	Player2Wins int       `db:"player2_wins" json:"player2Wins"`
	StartedAt   time.Time `db:"started_at" json:"startedAt"`
}

// RoundStats contains statistics about recorded rounds.
type RoundStats struct {
	TotalRounds   int            `json:"total_rounds"`
	TotalSessions int            `json:"total_sessions"`
	Player1Wins   int            `json:"player1_wins"`
	Player2Wins   int            `json:"player2_wins"`
	GestureCounts map[string]int `json:"gesture_counts"`
}
