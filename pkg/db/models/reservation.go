package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anaghvyas/trystyle-backend/pkg/enums"
)

// Reservation is a timed hold against an inventory variant. A hold ends
// in exactly one terminal state: confirmed, released, or expired.
type Reservation struct {
	ID        uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	UserID    uuid.UUID               `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID uuid.UUID               `gorm:"column:product_id;type:uuid;not null;index:idx_reservations_variant"`
	Size      string                  `gorm:"column:size;not null;index:idx_reservations_variant"`
	Color     string                  `gorm:"column:color;not null;index:idx_reservations_variant"`
	Qty       int                     `gorm:"column:qty;not null"`
	Status    enums.ReservationStatus `gorm:"column:status;not null;default:'reserved';index"`
	ExpiresAt time.Time               `gorm:"column:expires_at;not null;index"`
	OrderID   *uuid.UUID              `gorm:"column:order_id;type:uuid;index"`
	CreatedAt time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
