package command

import (
	"context"
	"fmt"
	"time"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/inventory/deduction"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/order/domain"
	"github.com/tably/resto-core/pkg/logger"
	"github.com/tably/resto-core/pkg/metrics"
)

// StockDeductor is the deduction engine contract the completion path calls.
// The caller proceeds regardless of the result's success flag.
type StockDeductor interface {
	Deduct(ctx context.Context, restaurantID, orderID string, lines []deduction.Line, actor string) (*deduction.BatchResult, error)
}

// TransitionStatusCommand represents the command to move an order to a new status
type TransitionStatusCommand struct {
	OrderID string
	Status  string
	Reason  string
	Actor   auth.Actor
}

// TransitionResult is the post-transition snapshot plus the inventory outcome
// of a completion, reported for visibility but never rolled back.
type TransitionResult struct {
	Order          *domain.Order          `json:"order"`
	PreviousStatus domain.OrderStatus     `json:"previous_status"`
	Deduction      *deduction.BatchResult `json:"deduction,omitempty"`
}

// TransitionStatusHandler validates and applies status transitions with their
// side effects
type TransitionStatusHandler struct {
	repo     domain.OrderRepository
	deductor StockDeductor
	notifier Notifier
}

// NewTransitionStatusHandler creates a new transition status handler
func NewTransitionStatusHandler(repo domain.OrderRepository, deductor StockDeductor, notifier Notifier) *TransitionStatusHandler {
	return &TransitionStatusHandler{repo: repo, deductor: deductor, notifier: notifier}
}

// Handle executes the transition. Validation failures abort before any
// mutation; deduction failures on completion degrade the inventory outcome
// but never the committed status.
func (h *TransitionStatusHandler) Handle(ctx context.Context, cmd TransitionStatusCommand) (*TransitionResult, error) {
	next, err := domain.ParseOrderStatus(cmd.Status)
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

	from := order.Status
	if !domain.CanTransition(from, next) {
		return nil, &domain.IllegalTransitionError{From: from, To: next}
	}

	order.Status = next
	order.AppendStatusChange(next, cmd.Reason, cmd.Actor.Label())

	if next == domain.StatusCancelled {
		order.CancelReason = cmd.Reason
	}
	if next == domain.StatusPreparing && order.EstimatedReadyAt == nil {
		eta := time.Now().Add(domain.DefaultPrepEstimate)
		order.EstimatedReadyAt = &eta
	}
	if next == domain.StatusCompleted {
		now := time.Now()
		order.CompletedAt = &now
	}

	if err := h.repo.TransitionStatus(ctx, order, from); err != nil {
		return nil, err
	}

	metrics.OrderTransitions.WithLabelValues(string(next)).Inc()

	result := &TransitionResult{Order: order, PreviousStatus: from}

	if next == domain.StatusCompleted {
		result.Deduction = h.deductForOrder(ctx, order, cmd.Actor)
	}

	eventType := events.EventTypeStatusChanged
	if next == domain.StatusCancelled {
		eventType = events.EventTypeOrderCancelled
	}

	h.notifier.Notify(ctx, notify.Notification{
		EventType:      eventType,
		Order:          order,
		PreviousStatus: from,
		Deduction:      result.Deduction,
	})

	return result, nil
}

// deductForOrder invokes the stock deduction engine for the completed order's
// line items. Failures are logged and recorded on the alert log; the order
// stays completed.
func (h *TransitionStatusHandler) deductForOrder(ctx context.Context, order *domain.Order, actor auth.Actor) *deduction.BatchResult {
	lines := make([]deduction.Line, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, deduction.Line{
			CatalogItemID: item.CatalogItemID,
			QuantitySold:  item.Quantity,
		})
	}

	batch, err := h.deductor.Deduct(ctx, order.RestaurantID, order.ID, lines, actor.Label())
	if err != nil {
		logger.Error(ctx).
			Err(err).
			Str("order_id", order.ID).
			Msg("Stock deduction aborted on infrastructure failure")
		order.AppendAlert("deduction-error", err.Error())
	}

	if batch != nil {
		for _, failed := range batch.FailedLines {
			order.AppendAlert("deduction-failed",
				fmt.Sprintf("line %s x%d: %s (%d ingredients short)",
					failed.CatalogItemID, failed.QuantitySold, failed.Reason, len(failed.Shortages)))
		}
		for _, skipped := range batch.SkippedLines {
			order.AppendAlert("deduction-skipped",
				fmt.Sprintf("line %s: %s", skipped.CatalogItemID, skipped.Reason))
		}
	}

	if len(order.Alerts) > 0 {
		if saveErr := h.repo.SaveAlerts(ctx, order); saveErr != nil {
			logger.Error(ctx).
				Err(saveErr).
				Str("order_id", order.ID).
				Msg("Failed to persist deduction alerts")
		}
	}

	return batch
}

func checkTenant(actor auth.Actor, restaurantID string) error {
	if actor.Role == auth.RoleSystem || actor.RestaurantID == "" {
		return nil
	}
	if actor.RestaurantID != restaurantID {
		return domain.ErrTenantMismatch
	}
	return nil
}
