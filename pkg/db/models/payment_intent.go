package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/pkg/enums"
)

// PaymentIntent tracks payment progress for an order. Retrying payment
// supersedes the previous intent; at most one intent per order is live.
type PaymentIntent struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Gateway        enums.PaymentGateway `gorm:"column:gateway;not null"`
	GatewayOrderID string               `gorm:"column:gateway_order_id;not null;index"`
	PaymentID      *string              `gorm:"column:payment_id"`
	Status         enums.PaymentStatus  `gorm:"column:status;not null;default:'created'"`
	AmountPaise    int64                `gorm:"column:amount_paise;not null"`
	Currency       enums.Currency       `gorm:"column:currency;not null"`
	FailureReason  *string              `gorm:"column:failure_reason"`
	CompletedAt    *time.Time           `gorm:"column:completed_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
