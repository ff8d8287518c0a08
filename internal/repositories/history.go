package repositories

import (
	"fmt"

	"github.com/desertthunder/spotmix/internal/models"
)

// HistoryRecorder implements tasks.Recorder using [GenerationRepository].
//
// A nil HistoryRecorder records nothing, so callers can leave history disabled without branching.
type HistoryRecorder struct {
	repo *GenerationRepository
}

// NewHistoryRecorder creates a new HistoryRecorder with the given repository
func NewHistoryRecorder(repo *GenerationRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// Record appends g to the history log.
func (h *HistoryRecorder) Record(g *models.Generation) error {
	if h == nil || h.repo == nil {
		return nil
	}
	if err := h.repo.Create(g); err != nil {
		return fmt.Errorf("failed to record generation: %w", err)
	}
	return nil
}

// Recent returns the most recent generations for userID.
func (h *HistoryRecorder) Recent(userID string, limit int) ([]*models.Generation, error) {
	if h == nil || h.repo == nil {
		return []*models.Generation{}, nil
	}
	return h.repo.ListRecent(userID, limit)
}
