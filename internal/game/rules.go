// Package game holds the rock paper scissors rules and the client-side scoreboard.
package game

import "rpsvision/internal/dto"

const (
	Rock     = "rock"
	Paper    = "paper"
	Scissors = "scissors"
)

// beats maps a gesture to the gesture it defeats.
var beats = map[string]string{
	Rock:     Scissors,
	Paper:    Rock,
	Scissors: Paper,
}

// ValidGesture returns true only if the label is one of the three gestures.
func ValidGesture(label string) bool {
	_, ok := beats[label]
	return ok
}

// Beats returns true if first defeats second.
func Beats(first, second string) bool {
	return beats[first] == second && first != second
}

// DetermineWinner decides a round between the left (player 1) and right (player 2) hand.
// Anything player 1 does not beat, including unknown labels, goes to player 2.
func DetermineWinner(player1, player2 string) string {
	switch {
	case player1 == player2:
		return dto.WinnerDraw
	case Beats(player1, player2):
		return dto.WinnerPlayer1
	default:
		return dto.WinnerPlayer2
	}
}
