package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/tably/resto-core/internal/order/domain"
)

// GormOrderRepository persists orders and their embedded status/alert logs
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new order repository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.Order{})
}

func (r *GormOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *GormOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *GormOrderRepository) FindByRestaurant(ctx context.Context, restaurantID string, limit, offset int) ([]domain.Order, error) {
	var orders []domain.Order
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ?", restaurantID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&orders).Error
	return orders, err
}

// TransitionStatus is a conditional write: it only lands if the stored status
// still equals from. A zero-row update means a concurrent transition won.
func (r *GormOrderRepository) TransitionStatus(ctx context.Context, order *domain.Order, from domain.OrderStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status = ?", order.ID, from).
		Updates(map[string]interface{}{
			"status":             order.Status,
			"status_history":     order.StatusHistory,
			"cancel_reason":      order.CancelReason,
			"estimated_ready_at": order.EstimatedReadyAt,
			"completed_at":       order.CompletedAt,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTransitionConflict
	}
	return nil
}

// TransitionPayment is the payment-status counterpart of TransitionStatus
func (r *GormOrderRepository) TransitionPayment(ctx context.Context, order *domain.Order, from domain.PaymentStatus) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND payment_status = ?", order.ID, from).
		Updates(map[string]interface{}{
			"payment_status": order.PaymentStatus,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrTransitionConflict
	}
	return nil
}

// UpdateDetails lands only while the order is still non-terminal
func (r *GormOrderRepository) UpdateDetails(ctx context.Context, order *domain.Order) error {
	res := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ? AND status NOT IN ?", order.ID,
			[]domain.OrderStatus{domain.StatusCompleted, domain.StatusCancelled}).
		Updates(map[string]interface{}{
			"items":                order.Items,
			"special_instructions": order.SpecialInstructions,
			"subtotal":             order.Subtotal,
			"tax":                  order.Tax,
			"tip":                  order.Tip,
			"service_charge":       order.ServiceCharge,
			"loyalty_discount":     order.LoyaltyDiscount,
			"total":                order.Total,
			"updated_at":           time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrIllegalState
	}
	return nil
}

func (r *GormOrderRepository) SaveAlerts(ctx context.Context, order *domain.Order) error {
	return r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]interface{}{
			"alerts":     order.Alerts,
			"updated_at": time.Now(),
		}).Error
}
