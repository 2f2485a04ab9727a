package game

import (
	"testing"

	"rpsvision/internal/dto"
)

func TestBeats(t *testing.T) {
	if Beats(Rock, Paper) {
		t.Errorf("rock should not beat paper")
	}
	if !Beats(Paper, Rock) {
		t.Errorf("paper should beat rock")
	}
	if Beats(Rock, Rock) {
		t.Errorf("rock should not beat itself")
	}
}

func TestDetermineWinner(t *testing.T) {
	tests := []struct {
		p1, p2   string
		expected string
	}{
		{Rock, Scissors, dto.WinnerPlayer1},
		{Paper, Rock, dto.WinnerPlayer1},
		{Scissors, Paper, dto.WinnerPlayer1},
		{Scissors, Rock, dto.WinnerPlayer2},
		{Rock, Paper, dto.WinnerPlayer2},
		{Paper, Scissors, dto.WinnerPlayer2},
		{Rock, Rock, dto.WinnerDraw},
		{"lizard", "lizard", dto.WinnerDraw},
		{"lizard", Rock, dto.WinnerPlayer2},
		{Rock, "lizard", dto.WinnerPlayer2},
	}

	for _, tt := range tests {
		if got := DetermineWinner(tt.p1, tt.p2); got != tt.expected {
			t.Errorf("DetermineWinner(%q, %q) = %q, expected %q", tt.p1, tt.p2, got, tt.expected)
		}
	}
}

func TestValidGesture(t *testing.T) {
	for _, g := range []string{Rock, Paper, Scissors} {
		if !ValidGesture(g) {
			t.Errorf("%s should be valid", g)
		}
	}
	if ValidGesture("spock") {
		t.Error("spock should not be valid")
	}
}

func TestScoreboard_DrawNeverAppendsRound(t *testing.T) {
	s := NewScoreboard()

	if _, ok := s.Apply(dto.PredictionResponse{Player1: Rock, Player2: Rock, Winner: dto.WinnerDraw, Detections: 2}); ok {
		t.Error("Draw should not produce a round")
	}

	snap := s.Snapshot()
	if len(snap.Rounds) != 0 {
		t.Errorf("Expected no rounds, got %d", len(snap.Rounds))
	}
	if snap.Player1Wins != 0 || snap.Player2Wins != 0 {
		t.Errorf("Counters should stay at zero: %+v", snap)
	}
	if snap.Result == nil || snap.Result.Winner != dto.WinnerDraw {
		t.Errorf("Latest result should still be replaced: %+v", snap.Result)
	}
	if snap.UltimateWinner != "Draw" {
		t.Errorf("Expected Draw, got %s", snap.UltimateWinner)
	}
}

func TestScoreboard_RoundsAndCounters(t *testing.T) {
	s := NewScoreboard()

	responses := []dto.PredictionResponse{
		{Player1: Rock, Player2: Scissors, Winner: dto.WinnerPlayer1},
		{Player1: Rock, Player2: Paper, Winner: dto.WinnerPlayer2},
		{Player1: Paper, Player2: Paper, Winner: dto.WinnerDraw},
		{Player1: Paper, Player2: Rock, Winner: dto.WinnerPlayer1},
		{Error: "No hands detected. Please move to a well-lit area."},
	}
	for _, r := range responses {
		s.Apply(r)
	}

	snap := s.Snapshot()
	if len(snap.Rounds) != 3 {
		t.Fatalf("Expected 3 rounds, got %d", len(snap.Rounds))
	}
	for i, round := range snap.Rounds {
		if round.Number != i+1 {
			t.Errorf("Round %d has number %d", i, round.Number)
		}
	}
	if snap.Rounds[1].Player2 != Paper || snap.Rounds[1].Winner != dto.WinnerPlayer2 {
		t.Errorf("Unexpected second round: %+v", snap.Rounds[1])
	}
	if snap.Player1Wins != 2 || snap.Player2Wins != 1 {
		t.Errorf("Expected 2-1, got %d-%d", snap.Player1Wins, snap.Player2Wins)
	}
	if snap.UltimateWinner != "Player 1" {
		t.Errorf("Expected Player 1, got %s", snap.UltimateWinner)
	}
	if snap.Error != "No hands detected. Please move to a well-lit area." {
		t.Errorf("Expected error text, got %q", snap.Error)
	}
}

func TestScoreboard_ErrorClearedBySuccess(t *testing.T) {
	s := NewScoreboard()

	s.SetError("WebSocket connection error.")
	if s.Snapshot().Error == "" {
		t.Fatal("Expected error to be set")
	}

	s.Apply(dto.PredictionResponse{Player1: Rock, Player2: Rock, Winner: dto.WinnerDraw})
	if got := s.Snapshot().Error; got != "" {
		t.Errorf("Successful response should clear the error, got %q", got)
	}
}

func TestScoreboard_ErrorResponseNeverCounts(t *testing.T) {
	s := NewScoreboard()

	round, ok := s.Apply(dto.PredictionResponse{Winner: dto.WinnerPlayer2, Error: "partial"})
	if ok {
		t.Errorf("Error response produced round %+v", round)
	}
	if snap := s.Snapshot(); snap.Player2Wins != 0 {
		t.Errorf("Error response should not count, got %d", snap.Player2Wins)
	}
}

func TestScoreboard_UnrecognisedWinnerLabel(t *testing.T) {
	s := NewScoreboard()

	if _, ok := s.Apply(dto.PredictionResponse{Winner: "Nobody"}); !ok {
		t.Fatal("Non-draw winner should still append a round")
	}
	snap := s.Snapshot()
	if snap.Player1Wins != 0 || snap.Player2Wins != 0 {
		t.Errorf("Unrecognised label should not increment counters: %+v", snap)
	}
}

func TestScoreboard_SnapshotIsCopy(t *testing.T) {
	s := NewScoreboard()
	s.Apply(dto.PredictionResponse{Player1: Rock, Player2: Scissors, Winner: dto.WinnerPlayer1})

	snap := s.Snapshot()
	snap.Rounds[0].Winner = "tampered"
	snap.Result.Player1 = "tampered"

	again := s.Snapshot()
	if again.Rounds[0].Winner != dto.WinnerPlayer1 || again.Result.Player1 != Rock {
		t.Errorf("Snapshot mutation leaked into the scoreboard: %+v", again)
	}
}
