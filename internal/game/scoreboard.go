package game

import (
	"strings"
	"sync"

	"rpsvision/internal/dto"
)

// Round is a completed, non-drawn outcome.
type Round struct {
	Number  int
	Player1 string
	Player2 string
	Winner  string
}

// Snapshot is a point-in-time copy of the scoreboard.
type Snapshot struct {
	Result         *dto.PredictionResponse
	Error          string
	Rounds         []Round
	Player1Wins    int
	Player2Wins    int
	UltimateWinner string
}

// Scoreboard tracks the latest prediction and the cumulative score of a game session.
// Rounds are only ever appended and counters only ever grow.
type Scoreboard struct {
	mu          sync.RWMutex
	result      *dto.PredictionResponse
	err         string
	rounds      []Round
	player1Wins int
	player2Wins int
}

func NewScoreboard() *Scoreboard {
	return &Scoreboard{}
}

// Apply replaces the latest result and records a round when the response decides one.
// It returns the appended round, if any.
func (s *Scoreboard) Apply(resp dto.PredictionResponse) (Round, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.result = &resp

	if resp.Error != "" {
		s.err = resp.Error
		return Round{}, false
	}
	s.err = ""

	if resp.Winner == "" || resp.Winner == dto.WinnerDraw {
		return Round{}, false
	}

	round := Round{
		Number:  len(s.rounds) + 1,
		Player1: resp.Player1,
		Player2: resp.Player2,
		Winner:  resp.Winner,
	}
	s.rounds = append(s.rounds, round)

	if strings.Contains(resp.Winner, "Player 1") {
		s.player1Wins++
	} else if strings.Contains(resp.Winner, "Player 2") {
		s.player2Wins++
	}

	return round, true
}

// SetError replaces the user-visible error message.
func (s *Scoreboard) SetError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = message
}

func (s *Scoreboard) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{
		Error:          s.err,
		Rounds:         make([]Round, len(s.rounds)),
		Player1Wins:    s.player1Wins,
		Player2Wins:    s.player2Wins,
		UltimateWinner: ultimateWinner(s.player1Wins, s.player2Wins),
	}
	copy(snap.Rounds, s.rounds)
	if s.result != nil {
		result := *s.result
		snap.Result = &result
	}
	return snap
}

func ultimateWinner(player1Wins, player2Wins int) string {
	switch {
	case player1Wins > player2Wins:
		return "Player 1"
	case player2Wins > player1Wins:
		return "Player 2"
	default:
		return "Draw"
	}
}
