package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the read-only catalog entry the order core consumes.
// Pricing fields are snapshots owned by the catalog service.
type Product struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SKU            string          `gorm:"column:sku;not null;uniqueIndex"`
	Name           string          `gorm:"column:name;not null"`
	Category       string          `gorm:"column:category;not null"`
	BasePricePaise int64           `gorm:"column:base_price_paise;not null"`
	DiscountPct    int             `gorm:"column:discount_pct;not null;default:0"`
	GSTRate        decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,4);not null;default:0.18"`
	Active         bool            `gorm:"column:active;not null;default:true"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
