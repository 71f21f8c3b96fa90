package command

import (
	"context"
	"fmt"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/order/domain"
)

// UpdateItemPrepCommand updates the preparation status of one order item
type UpdateItemPrepCommand struct {
	OrderID string
	ItemID  string
	Status  string
	Actor   auth.Actor
}

// UpdateItemPrepHandler handles per-item preparation status updates
type UpdateItemPrepHandler struct {
	repo     domain.OrderRepository
	notifier Notifier
}

// NewUpdateItemPrepHandler creates a new update item prep handler
func NewUpdateItemPrepHandler(repo domain.OrderRepository, notifier Notifier) *UpdateItemPrepHandler {
	return &UpdateItemPrepHandler{repo: repo, notifier: notifier}
}

// Handle executes the item preparation status update
func (h *UpdateItemPrepHandler) Handle(ctx context.Context, cmd UpdateItemPrepCommand) (*domain.Order, error) {
	prep, err := domain.ParsePrepStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

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

	found := false
	for i := range order.Items {
		if order.Items[i].ID == cmd.ItemID {
			order.Items[i].PrepStatus = prep
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("order item %s not found", cmd.ItemID)
	}

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
