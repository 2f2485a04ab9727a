package dto

import (
	"time"
)

// RoundInfo is a round as returned by the history API.
type RoundInfo struct {
	ID         int64     `json:"id"`
	Session    string    `json:"session"`
	Number     int       `json:"number"`
	Player1    string    `json:"player1"`
	Player2    string    `json:"player2"`
	Winner     string    `json:"winner"`
	Detections int       `json:"detections"`
	Snapshot   string    `json:"snapshot,omitempty"`
	Date       time.Time `json:"date"`
	TimeOfDay  time.Time `json:"timeOfDay"`
}

// MarshalJSON customizes JSON output for RoundInfo to format date and time-of-day.
func (p RoundInfo) MarshalJSON() ([]byte, error) {
	type Alias RoundInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.Date.Format("02-01-2006"),
		TimeOfDay: p.TimeOfDay.Format("15:04:05"),
		Alias:     (Alias)(p),
	})
}
