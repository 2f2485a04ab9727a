package repository

import (
	"rpsvision/internal/dto"
	"rpsvision/internal/model"
)

// RoundRepository defines the interface for round history operations.
type RoundRepository interface {
	// Create operations
	Insert(round *model.Round) (int64, error)
	AttachSnapshot(id int64, filename string) error

	// Read operations
	GetByID(id int64) (*model.Round, error)
	GetAll(filter *dto.RoundFilters) ([]model.Round, error)
	GetTotalCount(filter *dto.RoundFilters) (int, error)
	GetSessions() ([]model.SessionSummary, error)
	GetStats() (*model.RoundStats, error)

	// Delete operations
	DeleteBySession(sessionID string) error
	DeleteAll() error
}
