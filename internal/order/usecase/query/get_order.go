package query

import (
	"context"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/order/domain"
)

// GetOrderQuery represents the query to fetch one order
type GetOrderQuery struct {
	OrderID string
	Actor   auth.Actor
}

// GetOrderHandler handles get order query
type GetOrderHandler struct {
	repo domain.OrderRepository
}

// NewGetOrderHandler creates a new get order handler
func NewGetOrderHandler(repo domain.OrderRepository) *GetOrderHandler {
	return &GetOrderHandler{repo: repo}
}

// Handle executes the get order query
func (h *GetOrderHandler) Handle(ctx context.Context, q GetOrderQuery) (*domain.Order, error) {
	order, err := h.repo.FindByID(ctx, q.OrderID)
	if err != nil {
		return nil, err
	}

	if q.Actor.Role != auth.RoleSystem && q.Actor.RestaurantID != "" && q.Actor.RestaurantID != order.RestaurantID {
		return nil, domain.ErrTenantMismatch
	}

	return order, nil
}
