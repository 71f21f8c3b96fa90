package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrItemNotFound is returned when an inventory item id does not resolve
	ErrItemNotFound = errors.New("inventory item not found")
	// ErrRecipeNotFound is returned when no active recipe exists for a catalog item
	ErrRecipeNotFound = errors.New("recipe not found")
)

// Shortage describes one ingredient whose stock does not cover the requirement
type Shortage struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Name            string  `json:"name"`
	Unit            string  `json:"unit"`
	Required        float64 `json:"required"`
	Available       float64 `json:"available"`
}

// InsufficientStockError reports every insufficient ingredient of a line, not
// just the first one found.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortages))
	for _, s := range e.Shortages {
		parts = append(parts, fmt.Sprintf("%s (need %.2f%s, have %.2f%s)", s.Name, s.Required, s.Unit, s.Available, s.Unit))
	}
	return "insufficient stock: " + strings.Join(parts, ", ")
}

// StorageError wraps an infrastructure failure during deduction. Business-rule
// outcomes are never wrapped in it.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
