package command

import (
	"context"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/order/domain"
)

// UpdatePaymentCommand represents the command to update the payment status
type UpdatePaymentCommand struct {
	OrderID string
	Status  string
	Actor   auth.Actor
}

// UpdatePaymentHandler handles payment status transitions, which run parallel
// to and independent of the order status machine
type UpdatePaymentHandler struct {
	repo     domain.OrderRepository
	notifier Notifier
}

// NewUpdatePaymentHandler creates a new update payment handler
func NewUpdatePaymentHandler(repo domain.OrderRepository, notifier Notifier) *UpdatePaymentHandler {
	return &UpdatePaymentHandler{repo: repo, notifier: notifier}
}

// Handle executes the payment status transition
func (h *UpdatePaymentHandler) Handle(ctx context.Context, cmd UpdatePaymentCommand) (*domain.Order, error) {
	next, err := domain.ParsePaymentStatus(cmd.Status)
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

	from := order.PaymentStatus
	if !domain.CanTransitionPayment(from, next) {
		return nil, &domain.IllegalPaymentTransitionError{From: from, To: next}
	}

	order.PaymentStatus = next

	if err := h.repo.TransitionPayment(ctx, order, from); err != nil {
		return nil, err
	}

	h.notifier.Notify(ctx, notify.Notification{
		EventType:       events.EventTypePaymentStatusChanged,
		Order:           order,
		PreviousStatus:  order.Status,
		PreviousPayment: from,
	})

	return order, nil
}
