package command

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/order/domain"
)

// UpdateDetailsCommand patches the mutable order details. Nil fields are left
// unchanged.
type UpdateDetailsCommand struct {
	OrderID             string
	Items               []OrderItemInput
	SpecialInstructions *string
	Tip                 *float64
	LoyaltyDiscount     *float64
	Actor               auth.Actor
}

// UpdateDetailsHandler handles the bounded details-update path, allowed only
// while the order is non-terminal
type UpdateDetailsHandler struct {
	repo     domain.OrderRepository
	notifier Notifier
}

// NewUpdateDetailsHandler creates a new update details handler
func NewUpdateDetailsHandler(repo domain.OrderRepository, notifier Notifier) *UpdateDetailsHandler {
	return &UpdateDetailsHandler{repo: repo, notifier: notifier}
}

// Handle executes the update, re-deriving the monetary breakdown with the
// same derivation as checkout
func (h *UpdateDetailsHandler) Handle(ctx context.Context, cmd UpdateDetailsCommand) (*domain.Order, error) {
	order, err := h.repo.FindByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if err := checkTenant(cmd.Actor, order.RestaurantID); err != nil {
		return nil, err
	}

	if order.Status.Terminal() {
		return nil, domain.ErrIllegalState
	}

	if cmd.Items != nil {
		if len(cmd.Items) == 0 {
			return nil, fmt.Errorf("order must have at least one item")
		}
		items := make(domain.OrderItems, len(cmd.Items))
		for i, item := range cmd.Items {
			if item.Quantity <= 0 {
				return nil, fmt.Errorf("item %d: quantity must be positive", i+1)
			}
			items[i] = domain.OrderItem{
				ID:            uuid.New().String(),
				CatalogItemID: item.CatalogItemID,
				Name:          item.Name,
				Quantity:      item.Quantity,
				UnitPrice:     item.UnitPrice,
				Modifiers:     item.Modifiers,
				PrepStatus:    domain.PrepPending,
			}
		}
		order.Items = items
	}
	if cmd.SpecialInstructions != nil {
		order.SpecialInstructions = *cmd.SpecialInstructions
	}
	if cmd.Tip != nil {
		order.Tip = *cmd.Tip
	}
	if cmd.LoyaltyDiscount != nil {
		order.LoyaltyDiscount = *cmd.LoyaltyDiscount
	}

	order.RecalculateTotals()

	if err := h.repo.UpdateDetails(ctx, order); err != nil {
		return nil, err
	}

	h.notifier.Notify(ctx, notify.Notification{
		EventType:      events.EventTypeOrderUpdated,
		Order:          order,
		PreviousStatus: order.Status,
	})

	return order, nil
}
