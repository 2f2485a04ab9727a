// RoundsData is a paginated response payload for the round history.
package dto

type RoundsData struct {
	Rounds      []RoundInfo `json:"rounds"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}
