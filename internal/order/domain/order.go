package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// ServiceChargeRate is applied to the item subtotal at checkout and on every
// detail update. Tax is currently always zero.
const ServiceChargeRate = 0.10

// DefaultPrepEstimate is assigned when an order enters preparing with no
// estimate set.
const DefaultPrepEstimate = 20 * time.Minute

// CustomerRef identifies who placed the order: a registered user id or an
// ephemeral guest/device token, exactly one of which must be set.
type CustomerRef struct {
	UserID     string `json:"user_id,omitempty" gorm:"column:customer_user_id;index"`
	GuestToken string `json:"guest_token,omitempty" gorm:"column:customer_guest_token;index"`
}

// Validate enforces the exactly-one-set invariant
func (c CustomerRef) Validate() error {
	if (c.UserID == "") == (c.GuestToken == "") {
		return ErrCustomerIdentity
	}
	return nil
}

// IsGuest reports whether the order belongs to a guest identity
func (c CustomerRef) IsGuest() bool {
	return c.GuestToken != ""
}

// Modifier is one selected option on an order item
type Modifier struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// OrderItem is one ordered line, owned by its order
type OrderItem struct {
	ID            string     `json:"id"`
	CatalogItemID string     `json:"catalog_item_id"`
	Name          string     `json:"name"` // snapshot at checkout
	Quantity      int        `json:"quantity"`
	UnitPrice     float64    `json:"unit_price"`
	Modifiers     []Modifier `json:"modifiers,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	PrepStatus    PrepStatus `json:"prep_status,omitempty"`
}

// LineSubtotal derives the item subtotal from quantity, unit price and
// modifier selections
func (i *OrderItem) LineSubtotal() float64 {
	total := float64(i.Quantity) * i.UnitPrice
	for _, m := range i.Modifiers {
		total += float64(m.Quantity) * m.Price
	}
	return round2(total)
}

// OrderItems is stored as a JSON column on the order aggregate
type OrderItems []OrderItem

func (o OrderItems) Value() (driver.Value, error) {
	return json.Marshal(o)
}

func (o *OrderItems) Scan(value interface{}) error {
	return scanJSON(value, o)
}

// StatusHistory is the append-only status log, stored as a JSON column
type StatusHistory []StatusChange

func (h StatusHistory) Value() (driver.Value, error) {
	return json.Marshal(h)
}

func (h *StatusHistory) Scan(value interface{}) error {
	return scanJSON(value, h)
}

// Alerts is the append-only alert log, stored as a JSON column
type Alerts []Alert

func (a Alerts) Value() (driver.Value, error) {
	return json.Marshal(a)
}

func (a *Alerts) Scan(value interface{}) error {
	return scanJSON(value, a)
}

func scanJSON(value, dest interface{}) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	}
	return fmt.Errorf("unsupported column type %T", value)
}

// Order represents one checkout. Orders are never physically deleted, only
// moved into a terminal status.
type Order struct {
	ID                  string        `json:"id" gorm:"type:uuid;primaryKey"`
	OrderNumber         string        `json:"order_number" gorm:"uniqueIndex;not null"`
	RestaurantID        string        `json:"restaurant_id" gorm:"type:uuid;not null;index"`
	TableID             *string       `json:"table_id,omitempty" gorm:"type:uuid"`
	Customer            CustomerRef   `json:"customer" gorm:"embedded"`
	Items               OrderItems    `json:"items" gorm:"type:jsonb"`
	SpecialInstructions string        `json:"special_instructions,omitempty"`
	Subtotal            float64       `json:"subtotal"`
	Tax                 float64       `json:"tax"`
	Tip                 float64       `json:"tip"`
	ServiceCharge       float64       `json:"service_charge"`
	LoyaltyDiscount     float64       `json:"loyalty_discount"`
	Total               float64       `json:"total"`
	Status              OrderStatus   `json:"status" gorm:"not null;index"`
	PaymentStatus       PaymentStatus `json:"payment_status" gorm:"not null"`
	CancelReason        string        `json:"cancel_reason,omitempty"`
	EstimatedReadyAt    *time.Time    `json:"estimated_ready_at,omitempty"`
	CompletedAt         *time.Time    `json:"completed_at,omitempty"`
	StatusHistory       StatusHistory `json:"status_history" gorm:"type:jsonb"`
	Alerts              Alerts        `json:"alerts,omitempty" gorm:"type:jsonb"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

// TableName specifies the table name
func (Order) TableName() string {
	return "orders"
}

// RecalculateTotals re-derives the monetary breakdown from the item list.
// Invariant: Total = Subtotal + ServiceCharge + Tip - LoyaltyDiscount.
func (o *Order) RecalculateTotals() {
	var subtotal float64
	for i := range o.Items {
		o.Items[i].Subtotal = o.Items[i].LineSubtotal()
		subtotal += o.Items[i].Subtotal
	}
	o.Subtotal = round2(subtotal)
	o.Tax = 0
	o.ServiceCharge = round2(o.Subtotal * ServiceChargeRate)
	o.Total = round2(o.Subtotal + o.ServiceCharge + o.Tip - o.LoyaltyDiscount)
}

// AppendStatusChange appends an entry to the status-history log
func (o *Order) AppendStatusChange(status OrderStatus, note, changedBy string) {
	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    status,
		Timestamp: time.Now(),
		Note:      note,
		ChangedBy: changedBy,
	})
}

// AppendAlert appends an entry to the alert log
func (o *Order) AppendAlert(kind, message string) {
	o.Alerts = append(o.Alerts, Alert{
		Kind:      kind,
		Message:   message,
		Timestamp: time.Now(),
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// OrderRepository defines the contract for order data access. Status and
// payment updates are conditional writes guarded on the previous value so two
// concurrent transitions on the same order cannot both succeed from the same
// starting state.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	FindByRestaurant(ctx context.Context, restaurantID string, limit, offset int) ([]Order, error)
	// TransitionStatus persists the order's new status, history and
	// transition side effects iff the stored status still equals from.
	// Returns ErrTransitionConflict otherwise.
	TransitionStatus(ctx context.Context, order *Order, from OrderStatus) error
	// TransitionPayment persists the new payment status iff the stored
	// payment status still equals from.
	TransitionPayment(ctx context.Context, order *Order, from PaymentStatus) error
	// UpdateDetails persists items, instructions and recomputed totals iff
	// the order is still in a non-terminal status.
	UpdateDetails(ctx context.Context, order *Order) error
	// SaveAlerts persists the alert log only
	SaveAlerts(ctx context.Context, order *Order) error
}
