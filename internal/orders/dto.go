package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jmcampos/minimart-backend/pkg/db/models"
	"github.com/jmcampos/minimart-backend/pkg/enums"
)

// ItemDTO is one frozen order line.
type ItemDTO struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// OrderDTO is the transport shape for a completed order.
type OrderDTO struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	ReferenceID string            `json:"reference_id"`
	PaymentMode enums.PaymentMode `json:"payment_mode"`
	Status      enums.OrderStatus `json:"status"`
	Total       decimal.Decimal   `json:"total"`
	Items       []ItemDTO         `json:"items,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AdminOrderDTO adds the purchaser to the admin history view.
type AdminOrderDTO struct {
	OrderDTO
	Username string `json:"username"`
}

// AdminOrderPage is one cursor page of the admin history view.
type AdminOrderPage struct {
	Orders     []AdminOrderDTO `json:"orders"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func FromModel(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	dto := &OrderDTO{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		ReferenceID: o.ReferenceID,
		PaymentMode: o.PaymentMode,
		Status:      o.Status,
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
	}
	for _, item := range o.Items {
		dto.Items = append(dto.Items, ItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			UnitPrice:   item.UnitPrice,
			Quantity:    item.Quantity,
			Subtotal:    item.Subtotal,
		})
	}
	return dto
}
