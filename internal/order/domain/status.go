package domain

import "time"

// OrderStatus is the closed set of order lifecycle states
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusDelivered OrderStatus = "delivered"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
	StatusRejected  OrderStatus = "rejected"
)

// stage positions along the fulfillment chain
var statusStage = map[OrderStatus]int{
	StatusPending:   0,
	StatusAccepted:  1,
	StatusPreparing: 2,
	StatusReady:     3,
	StatusDelivered: 4,
	StatusCompleted: 5,
}

// ParseOrderStatus validates a raw status value against the closed enum
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	switch s {
	case StatusPending, StatusAccepted, StatusPreparing, StatusReady,
		StatusDelivered, StatusCompleted, StatusCancelled, StatusRejected:
		return s, nil
	}
	return "", &InvalidStatusError{Value: raw}
}

// Terminal reports whether the status permits no further transitions
func (s OrderStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// CanTransition reports whether from -> to is a legal transition. The chain
// only moves forward; cancelled and rejected are reachable from any
// non-terminal state; a rejected order can only be closed out to cancelled.
func CanTransition(from, to OrderStatus) bool {
	if from.Terminal() || from == to {
		return false
	}
	if from == StatusRejected {
		return to == StatusCancelled
	}
	if to == StatusCancelled || to == StatusRejected {
		return true
	}
	fi, ok := statusStage[from]
	if !ok {
		return false
	}
	ti, ok := statusStage[to]
	if !ok {
		return false
	}
	return ti > fi
}

// PaymentStatus is the parallel, independently-updated payment state
type PaymentStatus string

const (
	PaymentPending           PaymentStatus = "pending"
	PaymentPaid              PaymentStatus = "paid"
	PaymentFailed            PaymentStatus = "failed"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentPending: {PaymentPaid, PaymentFailed},
	PaymentPaid:    {PaymentRefunded, PaymentPartiallyRefunded},
}

// ParsePaymentStatus validates a raw payment status value
func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	s := PaymentStatus(raw)
	switch s {
	case PaymentPending, PaymentPaid, PaymentFailed, PaymentRefunded, PaymentPartiallyRefunded:
		return s, nil
	}
	return "", &InvalidStatusError{Value: raw}
}

// CanTransitionPayment reports whether from → to is a legal payment transition
func CanTransitionPayment(from, to PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Per-item preparation statuses
type PrepStatus string

const (
	PrepPending   PrepStatus = "pending"
	PrepPreparing PrepStatus = "preparing"
	PrepReady     PrepStatus = "ready"
	PrepServed    PrepStatus = "served"
)

// ParsePrepStatus validates a raw preparation status value
func ParsePrepStatus(raw string) (PrepStatus, error) {
	s := PrepStatus(raw)
	switch s {
	case PrepPending, PrepPreparing, PrepReady, PrepServed:
		return s, nil
	}
	return "", &InvalidStatusError{Value: raw}
}

// StatusChange is one append-only status-history entry
type StatusChange struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
	ChangedBy string      `json:"changed_by,omitempty"`
}

// Alert is one append-only operational alert attached to an order
type Alert struct {
	Kind      string    `json:"kind"` // deduction-failed, deduction-skipped
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
