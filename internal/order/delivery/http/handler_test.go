package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/tably/resto-core/internal/auth"
	"github.com/tably/resto-core/internal/order/domain"
	"github.com/tably/resto-core/internal/order/usecase/query"
)

type fakeOrderRepo struct {
	orders    map[string]*domain.Order
	listCalls int
}

func (f *fakeOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	f.orders[order.ID] = order
	return nil
}

func (f *fakeOrderRepo) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	order, ok := f.orders[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeOrderRepo) FindByRestaurant(ctx context.Context, restaurantID string, limit, offset int) ([]domain.Order, error) {
	f.listCalls++
	var out []domain.Order
	for _, order := range f.orders {
		if order.RestaurantID == restaurantID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) TransitionStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	return nil
}

func (f *fakeOrderRepo) TransitionPayment(ctx context.Context, order *domain.Order, from domain.PaymentStatus) error {
	return nil
}

func (f *fakeOrderRepo) UpdateDetails(ctx context.Context, order *domain.Order) error {
	return nil
}

func (f *fakeOrderRepo) SaveAlerts(ctx context.Context, order *domain.Order) error {
	return nil
}

func listOrdersAs(t *testing.T, actor auth.Actor, target string) (*httptest.ResponseRecorder, *fakeOrderRepo) {
	t.Helper()

	repo := &fakeOrderRepo{orders: map[string]*domain.Order{
		"o1": {ID: "o1", RestaurantID: "r1", Status: domain.StatusPending},
		"o2": {ID: "o2", RestaurantID: "r2", Status: domain.StatusPending},
	}}
	h := &OrderHandler{listHandler: query.NewListOrdersHandler(repo)}

	req := httptest.NewRequest(http.MethodGet, target, nil)
	req = req.WithContext(auth.WithActor(req.Context(), actor))

	rec := httptest.NewRecorder()
	h.ListOrders(rec, req)
	return rec, repo
}

func TestListOrdersRejectsCrossTenantQuery(t *testing.T) {
	actor := auth.Actor{UserID: "u1", Role: auth.RoleStaff, RestaurantID: "r1"}

	rec, repo := listOrdersAs(t, actor, "/api/orders?restaurant_id=r2")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403; body %s", rec.Code, rec.Body.String())
	}
	if repo.listCalls != 0 {
		t.Errorf("list calls = %d, want 0", repo.listCalls)
	}
}

func TestListOrdersDefaultsToActorRestaurant(t *testing.T) {
	actor := auth.Actor{UserID: "u1", Role: auth.RoleStaff, RestaurantID: "r1"}

	rec, repo := listOrdersAs(t, actor, "/api/orders")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if repo.listCalls != 1 {
		t.Errorf("list calls = %d, want 1", repo.listCalls)
	}
}

func TestListOrdersSystemActorCrossesTenants(t *testing.T) {
	actor := auth.Actor{UserID: "svc-reporting", Role: auth.RoleSystem, RestaurantID: "r1"}

	rec, _ := listOrdersAs(t, actor, "/api/orders?restaurant_id=r2")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
}
