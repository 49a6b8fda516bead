package enums

// EventType names the domain events written to the outbox.
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventOrderPaid          EventType = "order.paid"
	EventOrderRefunded      EventType = "order.refunded"
)

// AggregateType names the entity an outbox event belongs to.
type AggregateType string

const (
	AggregateOrder AggregateType = "order"
)
