package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmcampos/minimart-backend/pkg/enums"
)

// Order is an immutable record of a completed checkout.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	ReferenceID string            `gorm:"column:reference_id;not null;uniqueIndex"`
	UserID      uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	PaymentMode enums.PaymentMode `gorm:"column:payment_mode;type:text;not null;default:'cash'"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null"`
	Total       decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Items       []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
}
