package outbox

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/enums"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Insert(tx *gorm.DB, event models.OutboxEvent) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	return tx.Create(&event).Error
}

func (r *Repository) FetchUnpublished(limit int) ([]models.OutboxEvent, error) {
	var rows []models.OutboxEvent
	err := r.db.Where("published_at IS NULL").
		Order("created_at ASC").
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *Repository) MarkPublished(id uuid.UUID) error {
	return r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"published_at": time.Now(),
			"status":       enums.OutboxStatusPublished,
		}).Error
}

func (r *Repository) MarkFailed(id uuid.UUID, cause error, maxAttempts int) error {
	updates := map[string]any{
		"last_error":    cause.Error(),
		"attempt_count": gorm.Expr("attempt_count + 1"),
	}
	err := r.db.Model(&models.OutboxEvent{}).
		Where("id = ?", id).
		Updates(updates).Error
	if err != nil {
		return err
	}
	// Rows past the retry budget are parked so the publisher stops picking them up.
	if maxAttempts > 0 {
		return r.db.Model(&models.OutboxEvent{}).
			Where("id = ? AND attempt_count >= ?", id, maxAttempts).
			Updates(map[string]any{
				"status":       enums.OutboxStatusFailed,
				"published_at": time.Now(),
			}).Error
	}
	return nil
}
