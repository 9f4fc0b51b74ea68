package enums

// OutboxStatus tracks the publish lifecycle of an outbox event row.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// EventType names a domain event emitted through the outbox.
type EventType string

const (
	EventOrderPlaced EventType = "order.placed"
)

// AggregateType names the entity an outbox event belongs to.
type AggregateType string

const (
	AggregateOrder AggregateType = "order"
)
