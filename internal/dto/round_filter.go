// RoundFilters describe user-provided filters to narrow the round history.
package dto

import "time"

type RoundFilters struct {
	Session    string
	Winner     string
	Gesture    string
	DateAfter  time.Time
	DateBefore time.Time
	Limit      int
	Offset     int
}
