package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/order/domain"
)

// Notifier is the fan-out triggered after every committed transition
type Notifier interface {
	Notify(ctx context.Context, notification notify.Notification)
}

// OrderItemInput is one line of an incoming checkout or detail patch
type OrderItemInput struct {
	CatalogItemID string            `json:"catalog_item_id"`
	Name          string            `json:"name"`
	Quantity      int               `json:"quantity"`
	UnitPrice     float64           `json:"unit_price"`
	Modifiers     []domain.Modifier `json:"modifiers,omitempty"`
}

// CreateOrderCommand represents the command to create an order
type CreateOrderCommand struct {
	RestaurantID        string
	TableID             *string
	Customer            domain.CustomerRef
	Items               []OrderItemInput
	Tip                 float64
	LoyaltyDiscount     float64
	SpecialInstructions string
	Actor               auth.Actor
}

// CreateOrderHandler handles create order command
type CreateOrderHandler struct {
	repo     domain.OrderRepository
	notifier Notifier
}

// NewCreateOrderHandler creates a new create order handler
func NewCreateOrderHandler(repo domain.OrderRepository, notifier Notifier) *CreateOrderHandler {
	return &CreateOrderHandler{repo: repo, notifier: notifier}
}

// Handle executes the create order command
func (h *CreateOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	if cmd.RestaurantID == "" {
		return nil, fmt.Errorf("restaurant_id is required")
	}
	if err := cmd.Customer.Validate(); err != nil {
		return nil, err
	}
	if len(cmd.Items) == 0 {
		return nil, fmt.Errorf("order must have at least one item")
	}
	for i, item := range cmd.Items {
		if item.CatalogItemID == "" {
			return nil, fmt.Errorf("item %d: catalog_item_id is required", i+1)
		}
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item %d: quantity must be positive", i+1)
		}
	}

	now := time.Now()
	order := &domain.Order{
		ID:                  uuid.New().String(),
		OrderNumber:         newOrderNumber(),
		RestaurantID:        cmd.RestaurantID,
		TableID:             cmd.TableID,
		Customer:            cmd.Customer,
		SpecialInstructions: cmd.SpecialInstructions,
		Tip:                 cmd.Tip,
		LoyaltyDiscount:     cmd.LoyaltyDiscount,
		Status:              domain.StatusPending,
		PaymentStatus:       domain.PaymentPending,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	order.Items = make(domain.OrderItems, len(cmd.Items))
	for i, item := range cmd.Items {
		order.Items[i] = domain.OrderItem{
			ID:            uuid.New().String(),
			CatalogItemID: item.CatalogItemID,
			Name:          item.Name,
			Quantity:      item.Quantity,
			UnitPrice:     item.UnitPrice,
			Modifiers:     item.Modifiers,
			PrepStatus:    domain.PrepPending,
		}
	}
	order.RecalculateTotals()
	order.AppendStatusChange(domain.StatusPending, "order created", cmd.Actor.Label())

	if err := h.repo.Create(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	h.notifier.Notify(ctx, notify.Notification{
		EventType: events.EventTypeOrderCreated,
		Order:     order,
		NewOrder:  true,
	})

	return order, nil
}

func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.New().String()[:8])
}
