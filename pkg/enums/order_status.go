package enums

// OrderStatus tracks the lifecycle of a placed order. Orders are written
// once with StatusCompleted and never mutated afterwards.
type OrderStatus string

const (
	OrderStatusCompleted OrderStatus = "completed"
)

func (s OrderStatus) IsValid() bool {
	return s == OrderStatusCompleted
}
