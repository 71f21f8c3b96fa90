package events

import "time"

// OrderEvent is the minimal order projection published for every committed
// transition, carrying the previous and new values being compared.
type OrderEvent struct {
	EventID               string    `json:"event_id"`
	ProducerID            string    `json:"producer_id,omitempty"`
	EventType             string    `json:"event_type"`
	OrderID               string    `json:"order_id"`
	OrderNumber           string    `json:"order_number"`
	RestaurantID          string    `json:"restaurant_id"`
	Status                string    `json:"status"`
	PreviousStatus        string    `json:"previous_status,omitempty"`
	PaymentStatus         string    `json:"payment_status"`
	PreviousPaymentStatus string    `json:"previous_payment_status,omitempty"`
	Total                 float64   `json:"total"`
	ItemCount             int       `json:"item_count"`
	DeductionFailures     int       `json:"deduction_failures,omitempty"`
	DeductionSkips        int       `json:"deduction_skips,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
}

// Event types
const (
	EventTypeOrderCreated         = "order.created"
	EventTypeOrderUpdated         = "order.updated"
	EventTypeStatusChanged        = "order.status_changed"
	EventTypePaymentStatusChanged = "order.payment_status_changed"
	EventTypeOrderCancelled       = "order.cancelled"
)

// Kafka topics
const (
	TopicOrderEvents = "order-events"
)
