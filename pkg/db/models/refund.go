package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/pkg/enums"
)

// Refund records a gateway refund issued against an order's payment.
// Refunds do not restock inventory; restocking is a manual follow-up.
type Refund struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	PaymentIntentID uuid.UUID            `gorm:"column:payment_intent_id;type:uuid;not null"`
	Gateway         enums.PaymentGateway `gorm:"column:gateway;not null"`
	GatewayRefundID string               `gorm:"column:gateway_refund_id;not null"`
	AmountPaise     int64                `gorm:"column:amount_paise;not null"`
	Reason          string               `gorm:"column:reason;not null"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
}
