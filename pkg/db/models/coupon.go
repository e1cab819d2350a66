package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anaghvyas/trystyle-backend/pkg/enums"
)

// Coupon holds a discount code. Codes are stored uppercased; coupons are
// deactivated, never deleted. used_count mirrors the redemption rows.
type Coupon struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Code            string             `gorm:"column:code;not null;uniqueIndex"`
	DiscountType    enums.DiscountType `gorm:"column:discount_type;not null"`
	DiscountValue   decimal.Decimal    `gorm:"column:discount_value;type:numeric(12,2);not null"`
	MinPurchase     int64              `gorm:"column:min_purchase_paise;not null;default:0"`
	MaxDiscount     *int64             `gorm:"column:max_discount_paise"`
	UsageLimit      *int               `gorm:"column:usage_limit"`
	UsagePerUser    *int               `gorm:"column:usage_per_user"`
	ExpiryDate      time.Time          `gorm:"column:expiry_date;not null"`
	IsActive        bool               `gorm:"column:is_active;not null;default:true"`
	UsedCount       int                `gorm:"column:used_count;not null;default:0"`
	Redemptions     []CouponRedemption `gorm:"foreignKey:CouponID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// CouponRedemption records a single application of a coupon to an order.
// The (coupon_id, order_id) unique index makes apply idempotent per order.
type CouponRedemption struct {
	ID           uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	CouponID     uuid.UUID `gorm:"column:coupon_id;type:uuid;not null;uniqueIndex:uq_coupon_order;index:idx_redemptions_user"`
	UserID       uuid.UUID `gorm:"column:user_id;type:uuid;not null;index:idx_redemptions_user"`
	OrderID      uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_coupon_order"`
	AppliedPaise int64     `gorm:"column:applied_paise;not null"`
	UsedAt       time.Time `gorm:"column:used_at;autoCreateTime"`
}
