package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
)

// MirrorRepository persists the durable copy of session carts.
type MirrorRepository struct {
	db *gorm.DB
}

// NewMirrorRepository builds the repo bound to the provided GORM DB.
func NewMirrorRepository(db *gorm.DB) *MirrorRepository {
	return &MirrorRepository{db: db}
}

// Upsert writes the absolute quantity for the user/product pair.
func (r *MirrorRepository) Upsert(ctx context.Context, userID, productID uuid.UUID, quantity int) error {
	row := models.CartItem{
		ID:        uuid.New(),
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "product_id"}},
			DoUpdates: clause.Assignments(map[string]any{"quantity": quantity, "updated_at": time.Now()}),
		}).
		Create(&row).Error
}

// ListByUser returns the user's mirror rows.
func (r *MirrorRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CartItem, error) {
	var rows []models.CartItem
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Delete removes one user/product row.
func (r *MirrorRepository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&models.CartItem{}).Error
}

// DeleteProducts removes the rows for the given products.
func (r *MirrorRepository) DeleteProducts(ctx context.Context, userID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND product_id IN ?", userID, productIDs).
		Delete(&models.CartItem{}).Error
}

// DeleteAll clears every row for the user.
func (r *MirrorRepository) DeleteAll(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.CartItem{}).Error
}

// DeleteOlderThan drops mirror rows that have not been touched since the
// cutoff. Used by the cleanup job.
func (r *MirrorRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("updated_at < ?", cutoff).
		Delete(&models.CartItem{})
	return result.RowsAffected, result.Error
}
