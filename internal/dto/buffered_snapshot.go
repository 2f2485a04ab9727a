package dto

// BufferedSnapshot holds an annotated round frame before it is flushed to disk.
type BufferedSnapshot struct {
	Timestamp string
	Session   string
	RoundID   int64
	Number    int
	Player1   string
	Player2   string
	Data      []byte
}
