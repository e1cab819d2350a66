package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryVariant tracks stock counters per (product, size, color).
// Invariant: 0 <= reserved_qty <= quantity; quantity only drops on
// confirmed sale. Mutated exclusively through guarded single-statement
// updates in the inventory repository.
type InventoryVariant struct {
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	Size        string    `gorm:"column:size;primaryKey"`
	Color       string    `gorm:"column:color;primaryKey"`
	Quantity    int       `gorm:"column:quantity;not null;default:0"`
	ReservedQty int       `gorm:"column:reserved_qty;not null;default:0"`
	SoldQty     int       `gorm:"column:sold_qty;not null;default:0"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// Available returns the sellable count.
func (v InventoryVariant) Available() int {
	return v.Quantity - v.ReservedQty
}
