package dto

// Winner labels produced by the prediction service.
const (
	WinnerDraw    = "Draw"
	WinnerPlayer1 = "Player 1 Wins"
	WinnerPlayer2 = "Player 2 Wins"
)

// Box is a bounding box as pixel corners: x1, y1, x2, y2.
type Box [4]int

// PredictionRequest is the websocket frame sent by the game client.
type PredictionRequest struct {
	Image string `json:"image" validate:"required"`
}

// PredictionResponse is the result of one inference request. It replaces the previous
// result on the client each time one arrives.
type PredictionResponse struct {
	Player1    string `json:"player1,omitempty"`
	Player2    string `json:"player2,omitempty"`
	Winner     string `json:"winner,omitempty"`
	Detections int    `json:"detections,omitempty"`
	Error      string `json:"error,omitempty"`
	LeftBox    *Box   `json:"left_box,omitempty"`
	RightBox   *Box   `json:"right_box,omitempty"`
}

// ErrorResponse builds a response carrying only an error message.
func ErrorResponse(message string) PredictionResponse {
	return PredictionResponse{Error: message}
}

// IsRound reports whether the response is a decided, error-free round.
func (r PredictionResponse) IsRound() bool {
	return r.Error == "" && r.Winner != "" && r.Winner != WinnerDraw
}

// SpectatorMessage is broadcast to viewers for every prediction.
type SpectatorMessage struct {
	Session string             `json:"session"`
	Result  PredictionResponse `json:"result"`
}
