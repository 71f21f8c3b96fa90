package domain

import (
	"context"
	"time"
)

// InventoryItem represents one stocked ingredient in a restaurant.
// CurrentStock is a cache over the movement ledger and must always equal the
// sum of the item's movement deltas.
type InventoryItem struct {
	ID               string    `json:"id" gorm:"type:uuid;primaryKey"`
	RestaurantID     string    `json:"restaurant_id" gorm:"type:uuid;not null;index"`
	Name             string    `json:"name" gorm:"not null"`
	Unit             string    `json:"unit" gorm:"not null"` // g, ml, pcs, ...
	CurrentStock     float64   `json:"current_stock" gorm:"not null;default:0"`
	ReorderThreshold float64   `json:"reorder_threshold" gorm:"not null;default:0"`
	AverageCost      float64   `json:"average_cost" gorm:"not null;default:0"`
	Active           bool      `json:"active" gorm:"not null;default:true"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name
func (InventoryItem) TableName() string {
	return "inventory_items"
}

// LowStock reports whether the item is at or below its reorder threshold
func (i *InventoryItem) LowStock() bool {
	return i.CurrentStock <= i.ReorderThreshold
}

// Movement types
const (
	MovementReceived    = "received"
	MovementUsed        = "used"
	MovementWasted      = "wasted"
	MovementAdjusted    = "adjusted"
	MovementSold        = "sold"
	MovementReturned    = "returned"
	MovementTransferred = "transferred"
)

// StockMovement is an immutable ledger entry recording one stock change.
// Invariant: NewBalance = PreviousBalance + Delta.
type StockMovement struct {
	ID              string    `json:"id" gorm:"type:uuid;primaryKey"`
	InventoryItemID string    `json:"inventory_item_id" gorm:"type:uuid;not null;index"`
	RestaurantID    string    `json:"restaurant_id" gorm:"type:uuid;not null;index"`
	MovementType    string    `json:"movement_type" gorm:"not null"`
	Delta           float64   `json:"delta" gorm:"not null"` // signed, negative = out
	PreviousBalance float64   `json:"previous_balance" gorm:"not null"`
	NewBalance      float64   `json:"new_balance" gorm:"not null"`
	UnitCost        float64   `json:"unit_cost"`
	TotalCost       float64   `json:"total_cost"`
	Reason          string    `json:"reason"`
	ReferenceType   string    `json:"reference_type"` // order, purchase_order, waste_entry
	ReferenceID     string    `json:"reference_id" gorm:"index"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name
func (StockMovement) TableName() string {
	return "stock_movements"
}

// RecipeIngredient is one ingredient requirement of a recipe
type RecipeIngredient struct {
	ID                 string  `json:"id" gorm:"type:uuid;primaryKey"`
	RecipeID           string  `json:"recipe_id" gorm:"type:uuid;not null;index"`
	InventoryItemID    string  `json:"inventory_item_id" gorm:"type:uuid;not null"`
	QuantityPerServing float64 `json:"quantity_per_serving" gorm:"not null"`
	Unit               string  `json:"unit"`
	Position           int     `json:"position" gorm:"not null;default:0"`
}

// TableName specifies the table name
func (RecipeIngredient) TableName() string {
	return "recipe_ingredients"
}

// Recipe maps a catalog item to its ingredient requirements. A catalog item
// without an active recipe is a valid state: nothing is tracked for it.
type Recipe struct {
	ID            string             `json:"id" gorm:"type:uuid;primaryKey"`
	RestaurantID  string             `json:"restaurant_id" gorm:"type:uuid;not null;index"`
	CatalogItemID string             `json:"catalog_item_id" gorm:"type:uuid;not null;index"`
	Version       int                `json:"version" gorm:"not null;default:1"`
	ServingSize   float64            `json:"serving_size" gorm:"not null;default:1"`
	Active        bool               `json:"active" gorm:"not null;default:true"`
	Ingredients   []RecipeIngredient `json:"ingredients" gorm:"foreignKey:RecipeID"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
}

// TableName specifies the table name
func (Recipe) TableName() string {
	return "recipes"
}

// StockRequirement is the computed amount of one ingredient a deduction needs
type StockRequirement struct {
	InventoryItemID string
	Quantity        float64
}

// IngredientCommit describes one committed per-ingredient deduction
type IngredientCommit struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Name            string  `json:"name"`
	Unit            string  `json:"unit"`
	Deducted        float64 `json:"deducted"`
	PreviousBalance float64 `json:"previous_balance"`
	NewBalance      float64 `json:"new_balance"`
	TotalCost       float64 `json:"total_cost"`
}

// InventoryRepository defines the contract for inventory data access
type InventoryRepository interface {
	FindByID(ctx context.Context, id string) (*InventoryItem, error)
	FindByIDs(ctx context.Context, restaurantID string, ids []string) ([]InventoryItem, error)
	FindByRestaurant(ctx context.Context, restaurantID string, limit, offset int) ([]InventoryItem, error)
	FindLowStock(ctx context.Context, restaurantID string) ([]InventoryItem, error)
	// DeductLine atomically applies all requirements of one order line:
	// every ingredient is verified sufficient under lock before any is
	// deducted, and one SOLD movement is appended per ingredient. Returns
	// *InsufficientStockError when any ingredient falls short.
	DeductLine(ctx context.Context, restaurantID, orderID, actor string, reqs []StockRequirement) ([]IngredientCommit, error)
	// Adjust applies a manual signed stock correction with an ADJUSTED movement
	Adjust(ctx context.Context, itemID, reason, actor string, delta float64) (*StockMovement, error)
	MovementsByItem(ctx context.Context, itemID string, limit, offset int) ([]StockMovement, error)
}

// RecipeRepository defines the contract for recipe reads. Recipe writes belong
// to the catalog administration surface, not the core.
type RecipeRepository interface {
	FindActive(ctx context.Context, restaurantID, catalogItemID string) (*Recipe, error)
}
