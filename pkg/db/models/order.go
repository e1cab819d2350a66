package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	"github.com/anaghvyas/trystyle-backend/pkg/types"
)

// Order is the aggregate root for a placed order. Orders are never hard
// deleted; cancellation and return are statuses, not removals.
type Order struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	Reference      string            `gorm:"column:reference;not null;uniqueIndex"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index;uniqueIndex:uq_orders_idempotency,priority:1"`
	IdempotencyKey *string           `gorm:"column:idempotency_key;uniqueIndex:uq_orders_idempotency,priority:2"`
	Status         enums.OrderStatus `gorm:"column:status;not null;default:'pending';index"`
	Currency       enums.Currency    `gorm:"column:currency;not null;default:'INR'"`

	SubtotalPaise       int64 `gorm:"column:subtotal_paise;not null"`
	DiscountPaise       int64 `gorm:"column:discount_paise;not null;default:0"`
	ShippingPaise       int64 `gorm:"column:shipping_paise;not null;default:0"`
	CGSTPaise           int64 `gorm:"column:cgst_paise;not null;default:0"`
	SGSTPaise           int64 `gorm:"column:sgst_paise;not null;default:0"`
	IGSTPaise           int64 `gorm:"column:igst_paise;not null;default:0"`
	GSTTotalPaise       int64 `gorm:"column:gst_total_paise;not null;default:0"`
	CouponDiscountPaise int64 `gorm:"column:coupon_discount_paise;not null;default:0"`
	TotalPaise          int64 `gorm:"column:total_paise;not null"`

	CouponCode *string `gorm:"column:coupon_code"`

	ShippingAddress types.Address  `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	BillingAddress  *types.Address `gorm:"column:billing_address;type:jsonb;serializer:json"`

	Tracking     TrackingUpdates    `gorm:"column:tracking;type:jsonb;serializer:json"`
	RefundStatus enums.RefundStatus `gorm:"column:refund_status;not null;default:'none'"`

	ReturnRequested   bool                `gorm:"column:return_requested;not null;default:false"`
	ReturnStatus      *enums.ReturnStatus `gorm:"column:return_status"`
	ReturnReason      *string             `gorm:"column:return_reason"`
	ReturnRequestedAt *time.Time          `gorm:"column:return_requested_at"`

	Items         []OrderItem    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	PaymentIntent *PaymentIntent `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	PlacedAt    time.Time  `gorm:"column:placed_at;autoCreateTime"`
	DeliveredAt *time.Time `gorm:"column:delivered_at"`
	CancelledAt *time.Time `gorm:"column:cancelled_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// CanBeCancelled reports whether the shopper may still cancel: only
// before shipment, from pending/confirmed/payment_failed.
func (o Order) CanBeCancelled() bool {
	switch o.Status {
	case enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusPaymentFailed:
		return true
	default:
		return false
	}
}

// CanBeReturned reports whether a return may be requested: delivered,
// inside the window, and not already requested.
func (o Order) CanBeReturned(window time.Duration, now time.Time) bool {
	if o.Status != enums.OrderStatusDelivered || o.ReturnRequested {
		return false
	}
	if o.DeliveredAt == nil {
		return false
	}
	return now.Sub(*o.DeliveredAt) <= window
}

// TrackingUpdate is one entry in the order's tracking history.
type TrackingUpdate struct {
	Status    enums.OrderStatus `json:"status"`
	Message   string            `json:"message"`
	Location  string            `json:"location,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// TrackingUpdates is the ordered jsonb history on the order row.
type TrackingUpdates []TrackingUpdate

// OrderItem snapshots one purchased variant, priced after per-item discount.
type OrderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	Size           string    `gorm:"column:size;not null"`
	Color          string    `gorm:"column:color;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	UnitPricePaise int64     `gorm:"column:unit_price_paise;not null"`
	GSTPaise       int64     `gorm:"column:gst_paise;not null;default:0"`
	TotalPaise     int64     `gorm:"column:total_paise;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
