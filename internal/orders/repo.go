package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/pagination"
)

// Repository exposes order persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an orders repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreateOrder inserts the order header row.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

// CreateItem inserts one frozen order line.
func (r *Repository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(item).Error
}

// ListByUser returns the user's orders, newest first, without items.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error) {
	var rows []models.Order
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// FindByID loads one order with its items.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// adminRow carries the join result for the admin history view.
type adminRow struct {
	models.Order
	Username string
}

// ListAll returns one cursor page of orders with the purchaser's username,
// newest first. The returned cursor is empty on the last page.
func (r *Repository) ListAll(ctx context.Context, params pagination.Params) ([]models.Order, map[uuid.UUID]string, string, error) {
	normalizedLimit := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, "", err
	}

	query := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("orders.*, users.username AS username").
		Joins("JOIN users ON users.id = orders.user_id")

	if cursor != nil {
		query = query.Where("(orders.created_at < ?) OR (orders.created_at = ? AND orders.id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []adminRow
	err = query.
		Order("orders.created_at DESC").
		Order("orders.id DESC").
		Limit(limitWithBuffer).
		Find(&rows).Error
	if err != nil {
		return nil, nil, "", err
	}

	nextCursor := ""
	if len(rows) > normalizedLimit {
		rows = rows[:normalizedLimit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.Order.CreatedAt,
			ID:        last.Order.ID,
		})
	}

	orders := make([]models.Order, 0, len(rows))
	usernames := make(map[uuid.UUID]string, len(rows))
	for _, row := range rows {
		orders = append(orders, row.Order)
		usernames[row.Order.ID] = row.Username
	}
	return orders, usernames, nextCursor, nil
}

// ExistsForUser reports whether the user has any orders. Used by the admin
// delete guard.
func (r *Repository) ExistsForUser(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count > 0, err
}
