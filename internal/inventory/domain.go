// Package inventory keeps the account's product list and stock levels.
package inventory

import (
	"fmt"
	"time"

	"github.com/quickinvoice/quickinvoice/internal/platform/httpx"
)

var (
	// ErrItemNotFound indicates the item does not exist for the account.
	ErrItemNotFound = fmt.Errorf("inventory: item not found: %w", httpx.ErrNotFound)
	// ErrDuplicateSKU indicates another item of the account already uses the SKU.
	ErrDuplicateSKU = fmt.Errorf("inventory: sku already in use: %w", httpx.ErrDuplicate)
	// ErrInsufficientStock indicates an adjustment would drive stock below zero.
	ErrInsufficientStock = fmt.Errorf("inventory: insufficient stock: %w", httpx.ErrConflict)
	// ErrInvalidQuantity indicates a zero adjustment.
	ErrInvalidQuantity = fmt.Errorf("inventory: quantity must be non-zero: %w", httpx.ErrValidation)
	// ErrConcurrentUpdate indicates the transaction lost a race on the same row.
	ErrConcurrentUpdate = fmt.Errorf("inventory: concurrent update, retry: %w", httpx.ErrConflict)
)

// Item is one product kept in stock.
type Item struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	SKU         string    `json:"sku,omitempty"`
	Price       float64   `json:"price"`
	Stock       float64   `json:"stock"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Value is the stock valued at the item price.
func (it Item) Value() float64 {
	return it.Stock * it.Price
}

// ItemInput is the body of create and update requests.
type ItemInput struct {
	Name        string  `json:"name" validate:"required"`
	SKU         string  `json:"sku"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       float64 `json:"stock" validate:"gte=0"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
}

// AdjustmentInput moves stock up or down by Qty.
type AdjustmentInput struct {
	Qty  float64 `json:"qty"`
	Note string  `json:"note,omitempty"`
}

// Summary totals the stock list.
type Summary struct {
	Products int     `json:"products"`
	Units    float64 `json:"units"`
	Value    float64 `json:"value"`
}
