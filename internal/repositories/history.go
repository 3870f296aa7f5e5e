package repositories

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/comparecv/internal/models"
)

var ErrHistoryNotFound = errors.New("analysis history not found")

type HistoryRepository interface {
	Create(history *models.AnalysisHistory) error
	FindByID(id uuid.UUID) (*models.AnalysisHistory, error)
	ListByUser(userID string, limit int) ([]models.AnalysisHistory, error)
	FindByIDs(ids []uuid.UUID) ([]models.AnalysisHistory, error)
}

type historyRepository struct {
	db *gorm.DB
}

func NewHistoryRepository(db *gorm.DB) HistoryRepository {
	return &historyRepository{db: db}
}

func (r *historyRepository) Create(history *models.AnalysisHistory) error {
	if history.ID == uuid.Nil {
		history.ID = uuid.New()
	}
	if err := r.db.Create(history).Error; err != nil {
		return fmt.Errorf("failed to create analysis history: %w", err)
	}
	return nil
}

func (r *historyRepository) FindByID(id uuid.UUID) (*models.AnalysisHistory, error) {
	var history models.AnalysisHistory
	if err := r.db.Where("id = ?", id).First(&history).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrHistoryNotFound
		}
		return nil, fmt.Errorf("failed to find analysis history: %w", err)
	}
	return &history, nil
}

// ListByUser returns the newest analyses first.
func (r *historyRepository) ListByUser(userID string, limit int) ([]models.AnalysisHistory, error) {
	var histories []models.AnalysisHistory
	err := r.db.
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&histories).Error

	if err != nil {
		return nil, fmt.Errorf("failed to list analysis history: %w", err)
	}

	return histories, nil
}

func (r *historyRepository) FindByIDs(ids []uuid.UUID) ([]models.AnalysisHistory, error) {
	if len(ids) == 0 {
		return []models.AnalysisHistory{}, nil
	}

	var histories []models.AnalysisHistory
	if err := r.db.Where("id IN ?", ids).Find(&histories).Error; err != nil {
		return nil, fmt.Errorf("failed to find analysis histories: %w", err)
	}

	return histories, nil
}
