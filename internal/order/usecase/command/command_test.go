package command

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/inventory/deduction"
	invDomain "github.com/tably/resto-core/internal/inventory/domain"
	"github.com/tably/resto-core/internal/notify"
	"github.com/tably/resto-core/internal/notify/events"
	"github.com/tably/resto-core/internal/order/domain"
)

type fakeOrderRepo struct {
	orders        map[string]*domain.Order
	transitionErr error
	alertsSaved   int
}

func newFakeOrderRepo(orders ...*domain.Order) *fakeOrderRepo {
	repo := &fakeOrderRepo{orders: make(map[string]*domain.Order)}
	for _, o := range orders {
		repo.orders[o.ID] = o
	}
	return repo
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, ok := r.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (r *fakeOrderRepo) FindByRestaurant(ctx context.Context, restaurantID string, limit, offset int) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range r.orders {
		if o.RestaurantID == restaurantID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) TransitionStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	if r.transitionErr != nil {
		return r.transitionErr
	}
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) TransitionPayment(ctx context.Context, order *domain.Order, from domain.PaymentStatus) error {
	if r.transitionErr != nil {
		return r.transitionErr
	}
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) UpdateDetails(ctx context.Context, order *domain.Order) error {
	if order.Status.Terminal() {
		return domain.ErrIllegalState
	}
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) SaveAlerts(ctx context.Context, order *domain.Order) error {
	r.alertsSaved++
	return nil
}

type fakeNotifier struct {
	notifications []notify.Notification
}

func (n *fakeNotifier) Notify(ctx context.Context, notification notify.Notification) {
	n.notifications = append(n.notifications, notification)
}

type fakeDeductor struct {
	result *deduction.BatchResult
	err    error
	lines  []deduction.Line
	calls  int
}

func (d *fakeDeductor) Deduct(ctx context.Context, restaurantID, orderID string, lines []deduction.Line, actor string) (*deduction.BatchResult, error) {
	d.calls++
	d.lines = lines
	return d.result, d.err
}

func staffActor(restaurantID string) auth.Actor {
	return auth.Actor{UserID: "staff-1", Role: auth.RoleStaff, RestaurantID: restaurantID}
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:            "o1",
		OrderNumber:   "ORD-TEST0001",
		RestaurantID:  "r1",
		Customer:      domain.CustomerRef{UserID: "u1"},
		Status:        domain.StatusPending,
		PaymentStatus: domain.PaymentPending,
		Items: domain.OrderItems{
			{ID: "li1", CatalogItemID: "pizza", Name: "Margherita", Quantity: 2, UnitPrice: 10.00},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	repo := newFakeOrderRepo()
	notifier := &fakeNotifier{}
	handler := NewCreateOrderHandler(repo, notifier)

	order, err := handler.Handle(context.Background(), CreateOrderCommand{
		RestaurantID: "r1",
		Customer:     domain.CustomerRef{GuestToken: "g1"},
		Items: []OrderItemInput{
			{CatalogItemID: "pizza", Name: "Margherita", Quantity: 2, UnitPrice: 10.00},
		},
		Tip:   2.00,
		Actor: staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.Status != domain.StatusPending {
		t.Errorf("new order status = %s, want pending", order.Status)
	}
	if order.PaymentStatus != domain.PaymentPending {
		t.Errorf("new order payment status = %s, want pending", order.PaymentStatus)
	}
	if order.Subtotal != 20.00 || order.ServiceCharge != 2.00 || order.Total != 24.00 {
		t.Errorf("totals = %v/%v/%v, want 20.00/2.00/24.00", order.Subtotal, order.ServiceCharge, order.Total)
	}
	if len(order.StatusHistory) != 1 || order.StatusHistory[0].Status != domain.StatusPending {
		t.Errorf("expected a single pending history entry, got %+v", order.StatusHistory)
	}
	if order.Items[0].PrepStatus != domain.PrepPending {
		t.Errorf("item prep status = %s, want pending", order.Items[0].PrepStatus)
	}
	if len(order.OrderNumber) == 0 {
		t.Error("order number should be assigned")
	}

	if len(notifier.notifications) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.notifications))
	}
	n := notifier.notifications[0]
	if n.EventType != events.EventTypeOrderCreated || !n.NewOrder {
		t.Errorf("notification = %+v, want order.created with NewOrder", n)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	repo := newFakeOrderRepo()
	handler := NewCreateOrderHandler(repo, &fakeNotifier{})

	tests := []struct {
		name string
		cmd  CreateOrderCommand
	}{
		{"missing restaurant", CreateOrderCommand{
			Customer: domain.CustomerRef{UserID: "u1"},
			Items:    []OrderItemInput{{CatalogItemID: "c1", Quantity: 1}},
		}},
		{"no items", CreateOrderCommand{
			RestaurantID: "r1",
			Customer:     domain.CustomerRef{UserID: "u1"},
		}},
		{"both identities", CreateOrderCommand{
			RestaurantID: "r1",
			Customer:     domain.CustomerRef{UserID: "u1", GuestToken: "g1"},
			Items:        []OrderItemInput{{CatalogItemID: "c1", Quantity: 1}},
		}},
		{"no identity", CreateOrderCommand{
			RestaurantID: "r1",
			Items:        []OrderItemInput{{CatalogItemID: "c1", Quantity: 1}},
		}},
		{"zero quantity", CreateOrderCommand{
			RestaurantID: "r1",
			Customer:     domain.CustomerRef{UserID: "u1"},
			Items:        []OrderItemInput{{CatalogItemID: "c1", Quantity: 0}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := handler.Handle(context.Background(), tt.cmd); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	if len(repo.orders) != 0 {
		t.Errorf("no order should be persisted on validation failure, got %d", len(repo.orders))
	}
}

func TestTransitionStatus(t *testing.T) {
	order := pendingOrder()
	repo := newFakeOrderRepo(order)
	notifier := &fakeNotifier{}
	deductor := &fakeDeductor{result: &deduction.BatchResult{}}
	handler := NewTransitionStatusHandler(repo, deductor, notifier)

	result, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "accepted",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Order.Status != domain.StatusAccepted {
		t.Errorf("status = %s, want accepted", result.Order.Status)
	}
	if result.PreviousStatus != domain.StatusPending {
		t.Errorf("previous status = %s, want pending", result.PreviousStatus)
	}
	if len(result.Order.StatusHistory) != 1 {
		t.Errorf("expected 1 history entry, got %d", len(result.Order.StatusHistory))
	}
	if deductor.calls != 0 {
		t.Error("deduction must not run before completion")
	}
	if len(notifier.notifications) != 1 || notifier.notifications[0].EventType != events.EventTypeStatusChanged {
		t.Errorf("expected one status_changed notification, got %+v", notifier.notifications)
	}
}

func TestTransitionStatusIllegal(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusReady
	repo := newFakeOrderRepo(order)
	notifier := &fakeNotifier{}
	handler := NewTransitionStatusHandler(repo, &fakeDeductor{}, notifier)

	_, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "preparing",
		Actor:   staffActor("r1"),
	})

	var illegal *domain.IllegalTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalTransitionError, got %v", err)
	}
	if illegal.From != domain.StatusReady || illegal.To != domain.StatusPreparing {
		t.Errorf("error carries %s -> %s", illegal.From, illegal.To)
	}
	if len(notifier.notifications) != 0 {
		t.Error("no notification on rejected transition")
	}
}

func TestTransitionStatusTerminalImmutable(t *testing.T) {
	for _, terminal := range []domain.OrderStatus{domain.StatusCompleted, domain.StatusCancelled} {
		order := pendingOrder()
		order.Status = terminal
		handler := NewTransitionStatusHandler(newFakeOrderRepo(order), &fakeDeductor{}, &fakeNotifier{})

		_, err := handler.Handle(context.Background(), TransitionStatusCommand{
			OrderID: "o1",
			Status:  "pending",
			Actor:   staffActor("r1"),
		})

		var illegal *domain.IllegalTransitionError
		if !errors.As(err, &illegal) {
			t.Errorf("transition out of %s: expected IllegalTransitionError, got %v", terminal, err)
		}
	}
}

func TestTransitionStatusConflict(t *testing.T) {
	order := pendingOrder()
	repo := newFakeOrderRepo(order)
	repo.transitionErr = domain.ErrTransitionConflict
	notifier := &fakeNotifier{}
	handler := NewTransitionStatusHandler(repo, &fakeDeductor{}, notifier)

	_, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "accepted",
		Actor:   staffActor("r1"),
	})

	if !errors.Is(err, domain.ErrTransitionConflict) {
		t.Fatalf("expected ErrTransitionConflict, got %v", err)
	}
	if len(notifier.notifications) != 0 {
		t.Error("no notification when the conditional write loses")
	}
}

func TestTransitionStatusPreparingSetsEstimate(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusAccepted
	handler := NewTransitionStatusHandler(newFakeOrderRepo(order), &fakeDeductor{}, &fakeNotifier{})

	before := time.Now()
	result, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "preparing",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Order.EstimatedReadyAt == nil {
		t.Fatal("EstimatedReadyAt should default when entering preparing")
	}
	eta := *result.Order.EstimatedReadyAt
	if eta.Before(before.Add(domain.DefaultPrepEstimate-time.Minute)) ||
		eta.After(before.Add(domain.DefaultPrepEstimate+time.Minute)) {
		t.Errorf("eta %v not near now+%v", eta, domain.DefaultPrepEstimate)
	}
}

func TestTransitionStatusCancelled(t *testing.T) {
	order := pendingOrder()
	notifier := &fakeNotifier{}
	handler := NewTransitionStatusHandler(newFakeOrderRepo(order), &fakeDeductor{}, notifier)

	result, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "cancelled",
		Reason:  "customer left",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Order.CancelReason != "customer left" {
		t.Errorf("cancel reason = %q", result.Order.CancelReason)
	}
	if notifier.notifications[0].EventType != events.EventTypeOrderCancelled {
		t.Errorf("event type = %s, want order.cancelled", notifier.notifications[0].EventType)
	}
}

func TestTransitionStatusCompletionTriggersDeduction(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusDelivered
	deductor := &fakeDeductor{result: &deduction.BatchResult{
		ProcessedLines: []deduction.ProcessedLine{{CatalogItemID: "pizza", QuantitySold: 2}},
	}}
	notifier := &fakeNotifier{}
	handler := NewTransitionStatusHandler(newFakeOrderRepo(order), deductor, notifier)

	result, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "completed",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if deductor.calls != 1 {
		t.Fatalf("deduction calls = %d, want 1", deductor.calls)
	}
	if len(deductor.lines) != 1 || deductor.lines[0].CatalogItemID != "pizza" || deductor.lines[0].QuantitySold != 2 {
		t.Errorf("deduction lines = %+v", deductor.lines)
	}
	if result.Deduction == nil || !result.Deduction.Success() {
		t.Errorf("deduction result missing from transition result")
	}
	if result.Order.CompletedAt == nil {
		t.Error("CompletedAt should be set")
	}
	if len(result.Order.Alerts) != 0 {
		t.Errorf("clean deduction should leave no alerts, got %+v", result.Order.Alerts)
	}
}

func TestTransitionStatusDeductionFailureKeepsOrderCompleted(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusDelivered
	deductor := &fakeDeductor{result: &deduction.BatchResult{
		FailedLines: []deduction.FailedLine{{
			CatalogItemID: "pizza",
			QuantitySold:  2,
			Reason:        "insufficient-stock",
			Shortages:     []invDomain.Shortage{{InventoryItemID: "cheese", Required: 400, Available: 350}},
		}},
		SkippedLines: []deduction.SkippedLine{{CatalogItemID: "soda", Reason: deduction.SkipNoRecipe}},
	}}
	repo := newFakeOrderRepo(order)
	handler := NewTransitionStatusHandler(repo, deductor, &fakeNotifier{})

	result, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "completed",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("deduction failure must not fail the transition: %v", err)
	}

	if result.Order.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", result.Order.Status)
	}
	if len(result.Order.Alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %+v", result.Order.Alerts)
	}
	if result.Order.Alerts[0].Kind != "deduction-failed" || result.Order.Alerts[1].Kind != "deduction-skipped" {
		t.Errorf("alert kinds = %s/%s", result.Order.Alerts[0].Kind, result.Order.Alerts[1].Kind)
	}
	if repo.alertsSaved != 1 {
		t.Errorf("alerts saved %d times, want 1", repo.alertsSaved)
	}
}

func TestTransitionStatusDeductionInfraErrorKeepsOrderCompleted(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusDelivered
	deductor := &fakeDeductor{
		result: &deduction.BatchResult{},
		err:    errors.New("connection reset"),
	}
	handler := NewTransitionStatusHandler(newFakeOrderRepo(order), deductor, &fakeNotifier{})

	result, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "completed",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("infrastructure failure in deduction must not fail the transition: %v", err)
	}
	if result.Order.Status != domain.StatusCompleted {
		t.Errorf("status = %s, want completed", result.Order.Status)
	}
	if len(result.Order.Alerts) != 1 || result.Order.Alerts[0].Kind != "deduction-error" {
		t.Errorf("expected one deduction-error alert, got %+v", result.Order.Alerts)
	}
}

func TestTransitionStatusTenantMismatch(t *testing.T) {
	order := pendingOrder()
	handler := NewTransitionStatusHandler(newFakeOrderRepo(order), &fakeDeductor{}, &fakeNotifier{})

	_, err := handler.Handle(context.Background(), TransitionStatusCommand{
		OrderID: "o1",
		Status:  "accepted",
		Actor:   staffActor("other-restaurant"),
	})
	if !errors.Is(err, domain.ErrTenantMismatch) {
		t.Fatalf("expected ErrTenantMismatch, got %v", err)
	}
}

func TestUpdatePayment(t *testing.T) {
	order := pendingOrder()
	notifier := &fakeNotifier{}
	handler := NewUpdatePaymentHandler(newFakeOrderRepo(order), notifier)

	updated, err := handler.Handle(context.Background(), UpdatePaymentCommand{
		OrderID: "o1",
		Status:  "paid",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.PaymentStatus != domain.PaymentPaid {
		t.Errorf("payment status = %s, want paid", updated.PaymentStatus)
	}
	if notifier.notifications[0].EventType != events.EventTypePaymentStatusChanged {
		t.Errorf("event type = %s", notifier.notifications[0].EventType)
	}

	// refund before payment is illegal
	order2 := pendingOrder()
	order2.ID = "o2"
	handler2 := NewUpdatePaymentHandler(newFakeOrderRepo(order2), &fakeNotifier{})
	_, err = handler2.Handle(context.Background(), UpdatePaymentCommand{
		OrderID: "o2",
		Status:  "refunded",
		Actor:   staffActor("r1"),
	})
	var illegal *domain.IllegalPaymentTransitionError
	if !errors.As(err, &illegal) {
		t.Fatalf("expected IllegalPaymentTransitionError, got %v", err)
	}
}

func TestUpdateDetails(t *testing.T) {
	order := pendingOrder()
	order.Tip = 1.00
	order.RecalculateTotals()
	handler := NewUpdateDetailsHandler(newFakeOrderRepo(order), &fakeNotifier{})

	tip := 5.00
	updated, err := handler.Handle(context.Background(), UpdateDetailsCommand{
		OrderID: "o1",
		Tip:     &tip,
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 20.00 + 2.00 + 5.00 = 27.00
	if updated.Total != 27.00 {
		t.Errorf("Total = %v, want 27.00", updated.Total)
	}
	// untouched fields keep their values
	if len(updated.Items) != 1 || updated.Items[0].CatalogItemID != "pizza" {
		t.Errorf("items should be unchanged, got %+v", updated.Items)
	}
}

func TestUpdateDetailsTerminal(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.StatusCompleted
	handler := NewUpdateDetailsHandler(newFakeOrderRepo(order), &fakeNotifier{})

	tip := 5.00
	_, err := handler.Handle(context.Background(), UpdateDetailsCommand{
		OrderID: "o1",
		Tip:     &tip,
		Actor:   staffActor("r1"),
	})
	if !errors.Is(err, domain.ErrIllegalState) {
		t.Fatalf("expected ErrIllegalState, got %v", err)
	}
}

func TestUpdateItemPrep(t *testing.T) {
	order := pendingOrder()
	handler := NewUpdateItemPrepHandler(newFakeOrderRepo(order), &fakeNotifier{})

	updated, err := handler.Handle(context.Background(), UpdateItemPrepCommand{
		OrderID: "o1",
		ItemID:  "li1",
		Status:  "ready",
		Actor:   staffActor("r1"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Items[0].PrepStatus != domain.PrepReady {
		t.Errorf("prep status = %s, want ready", updated.Items[0].PrepStatus)
	}

	if _, err := handler.Handle(context.Background(), UpdateItemPrepCommand{
		OrderID: "o1",
		ItemID:  "missing",
		Status:  "ready",
		Actor:   staffActor("r1"),
	}); err == nil {
		t.Error("expected error for unknown item id")
	}
}
