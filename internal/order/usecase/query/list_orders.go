package query

import (
	"context"
	"fmt"

	"github.com/tably/resto-core/internal/order/domain"
)

// ListOrdersQuery represents the query to list a restaurant's orders
type ListOrdersQuery struct {
	RestaurantID string
	Limit        int
	Offset       int
}

// ListOrdersHandler handles list orders query
type ListOrdersHandler struct {
	repo domain.OrderRepository
}

// NewListOrdersHandler creates a new list orders handler
func NewListOrdersHandler(repo domain.OrderRepository) *ListOrdersHandler {
	return &ListOrdersHandler{repo: repo}
}

// Handle executes the list orders query
func (h *ListOrdersHandler) Handle(ctx context.Context, q ListOrdersQuery) ([]domain.Order, error) {
	if q.RestaurantID == "" {
		return nil, fmt.Errorf("restaurant_id is required")
	}
	if q.Limit <= 0 {
		q.Limit = 20
	}

	return h.repo.FindByRestaurant(ctx, q.RestaurantID, q.Limit, q.Offset)
}
