package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tably/resto-core/internal/inventory/domain"
)

// GormInventoryRepository persists inventory items and their movement ledger
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new inventory repository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

func (r *GormInventoryRepository) AutoMigrate() error {
	return r.db.AutoMigrate(
		&domain.InventoryItem{},
		&domain.StockMovement{},
		&domain.Recipe{},
		&domain.RecipeIngredient{},
	)
}

func (r *GormInventoryRepository) FindByID(ctx context.Context, id string) (*domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := r.db.WithContext(ctx).Where("id = ? AND active = ?", id, true).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrItemNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormInventoryRepository) FindByIDs(ctx context.Context, restaurantID string, ids []string) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND id IN ? AND active = ?", restaurantID, ids, true).
		Find(&items).Error
	return items, err
}

func (r *GormInventoryRepository) FindByRestaurant(ctx context.Context, restaurantID string, limit, offset int) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND active = ?", restaurantID, true).
		Order("name").
		Limit(limit).Offset(offset).
		Find(&items).Error
	return items, err
}

func (r *GormInventoryRepository) FindLowStock(ctx context.Context, restaurantID string) ([]domain.InventoryItem, error) {
	var items []domain.InventoryItem
	err := r.db.WithContext(ctx).
		Where("restaurant_id = ? AND active = ? AND current_stock <= reorder_threshold", restaurantID, true).
		Order("name").
		Find(&items).Error
	return items, err
}

// DeductLine applies every requirement of one order line inside a single
// transaction. All affected rows are locked up front and re-verified under the
// lock, so two orders racing for the same ingredient cannot both pass the
// sufficiency check against a stale balance.
func (r *GormInventoryRepository) DeductLine(ctx context.Context, restaurantID, orderID, actor string, reqs []domain.StockRequirement) ([]domain.IngredientCommit, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.InventoryItemID)
	}

	var commits []domain.IngredientCommit

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []domain.InventoryItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("restaurant_id = ? AND id IN ? AND active = ?", restaurantID, ids, true).
			Find(&items).Error; err != nil {
			return err
		}

		byID := make(map[string]*domain.InventoryItem, len(items))
		for i := range items {
			byID[items[i].ID] = &items[i]
		}

		// Verify every ingredient before deducting any: the line is atomic.
		var shortages []domain.Shortage
		for _, req := range reqs {
			item, ok := byID[req.InventoryItemID]
			if !ok {
				shortages = append(shortages, domain.Shortage{
					InventoryItemID: req.InventoryItemID,
					Name:            req.InventoryItemID,
					Required:        req.Quantity,
					Available:       0,
				})
				continue
			}
			if item.CurrentStock < req.Quantity {
				shortages = append(shortages, domain.Shortage{
					InventoryItemID: item.ID,
					Name:            item.Name,
					Unit:            item.Unit,
					Required:        req.Quantity,
					Available:       item.CurrentStock,
				})
			}
		}
		if len(shortages) > 0 {
			return &domain.InsufficientStockError{Shortages: shortages}
		}

		now := time.Now()
		for _, req := range reqs {
			item := byID[req.InventoryItemID]
			previous := item.CurrentStock
			newBalance := previous - req.Quantity

			res := tx.Model(&domain.InventoryItem{}).
				Where("id = ? AND current_stock >= ?", item.ID, req.Quantity).
				Updates(map[string]interface{}{
					"current_stock": gorm.Expr("current_stock - ?", req.Quantity),
					"updated_at":    now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return &domain.InsufficientStockError{Shortages: []domain.Shortage{{
					InventoryItemID: item.ID,
					Name:            item.Name,
					Unit:            item.Unit,
					Required:        req.Quantity,
					Available:       previous,
				}}}
			}

			movement := &domain.StockMovement{
				ID:              uuid.New().String(),
				InventoryItemID: item.ID,
				RestaurantID:    restaurantID,
				MovementType:    domain.MovementSold,
				Delta:           -req.Quantity,
				PreviousBalance: previous,
				NewBalance:      newBalance,
				UnitCost:        item.AverageCost,
				TotalCost:       req.Quantity * item.AverageCost,
				Reason:          "order fulfillment",
				ReferenceType:   "order",
				ReferenceID:     orderID,
				CreatedBy:       actor,
				CreatedAt:       now,
			}
			if err := tx.Create(movement).Error; err != nil {
				return err
			}

			commits = append(commits, domain.IngredientCommit{
				InventoryItemID: item.ID,
				Name:            item.Name,
				Unit:            item.Unit,
				Deducted:        req.Quantity,
				PreviousBalance: previous,
				NewBalance:      newBalance,
				TotalCost:       movement.TotalCost,
			})
		}

		return nil
	})
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			return nil, insufficient
		}
		return nil, &domain.StorageError{Op: "deduct line", Err: err}
	}

	return commits, nil
}

// Adjust applies a manual stock correction, appending an ADJUSTED movement
// under the same balance invariant as deductions.
func (r *GormInventoryRepository) Adjust(ctx context.Context, itemID, reason, actor string, delta float64) (*domain.StockMovement, error) {
	var movement *domain.StockMovement

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item domain.InventoryItem
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND active = ?", itemID, true).
			First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrItemNotFound
			}
			return err
		}

		previous := item.CurrentStock
		newBalance := previous + delta
		if newBalance < 0 {
			return &domain.InsufficientStockError{Shortages: []domain.Shortage{{
				InventoryItemID: item.ID,
				Name:            item.Name,
				Unit:            item.Unit,
				Required:        -delta,
				Available:       previous,
			}}}
		}

		now := time.Now()
		if err := tx.Model(&domain.InventoryItem{}).
			Where("id = ?", item.ID).
			Updates(map[string]interface{}{
				"current_stock": newBalance,
				"updated_at":    now,
			}).Error; err != nil {
			return err
		}

		movement = &domain.StockMovement{
			ID:              uuid.New().String(),
			InventoryItemID: item.ID,
			RestaurantID:    item.RestaurantID,
			MovementType:    domain.MovementAdjusted,
			Delta:           delta,
			PreviousBalance: previous,
			NewBalance:      newBalance,
			UnitCost:        item.AverageCost,
			TotalCost:       delta * item.AverageCost,
			Reason:          reason,
			CreatedBy:       actor,
			CreatedAt:       now,
		}
		return tx.Create(movement).Error
	})
	if err != nil {
		return nil, err
	}
	return movement, nil
}

func (r *GormInventoryRepository) MovementsByItem(ctx context.Context, itemID string, limit, offset int) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	err := r.db.WithContext(ctx).
		Where("inventory_item_id = ?", itemID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&movements).Error
	return movements, err
}

// GormRecipeRepository reads recipes written by the catalog administration surface
type GormRecipeRepository struct {
	db *gorm.DB
}

// NewGormRecipeRepository creates a new recipe repository
func NewGormRecipeRepository(db *gorm.DB) *GormRecipeRepository {
	return &GormRecipeRepository{db: db}
}

func (r *GormRecipeRepository) FindActive(ctx context.Context, restaurantID, catalogItemID string) (*domain.Recipe, error) {
	var recipe domain.Recipe
	err := r.db.WithContext(ctx).
		Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position")
		}).
		Where("restaurant_id = ? AND catalog_item_id = ? AND active = ?", restaurantID, catalogItemID, true).
		Order("version DESC").
		First(&recipe).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &recipe, nil
}
