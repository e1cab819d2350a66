package reservations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
)

// Repository persists reservation rows. Status transitions are conditional
// updates keyed on the current status so concurrent confirm/release/sweep
// paths cannot double-apply.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// CreateBatch inserts the hold rows for one cart.
func (r *Repository) CreateBatch(ctx context.Context, rows []models.Reservation) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindByID loads one reservation.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var row models.Reservation
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// ConfirmMatching flips exactly one active hold for the given user and
// variant to confirmed and attaches the order. Returns false when no
// unexpired hold with the exact quantity exists. The candidate row is
// selected by id first; an UPDATE with a bare LIMIT would flip every
// matching hold.
func (r *Repository) ConfirmMatching(ctx context.Context, userID uuid.UUID, productID uuid.UUID, size, color string, qty int, orderID uuid.UUID, now time.Time) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("user_id = ? AND product_id = ? AND size = ? AND color = ? AND qty = ?",
			userID, productID, size, color, qty).
		Where("status = ? AND expires_at > ?", enums.ReservationStatusReserved, now).
		Order("expires_at").
		Limit(1)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
	}

	var ids []uuid.UUID
	if err := query.Pluck("id", &ids).Error; err != nil {
		return false, err
	}
	if len(ids) == 0 {
		return false, nil
	}

	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", ids[0], enums.ReservationStatusReserved).
		Updates(map[string]any{
			"status":   enums.ReservationStatusConfirmed,
			"order_id": orderID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkReleased flips a hold to released. Returns false when the row already
// left the reserved state.
func (r *Repository) MarkReleased(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ?", id, enums.ReservationStatusReserved).
		Update("status", enums.ReservationStatusReleased)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// MarkExpired flips a past-due hold to expired. Returns false when the row
// was confirmed or released in the meantime.
func (r *Repository) MarkExpired(ctx context.Context, id uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Reservation{}).
		Where("id = ? AND status = ? AND expires_at <= ?", id, enums.ReservationStatusReserved, now).
		Update("status", enums.ReservationStatusExpired)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListActiveForUser returns the user's live holds.
func (r *Repository) ListActiveForUser(ctx context.Context, userID uuid.UUID, now time.Time) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ? AND expires_at > ?", userID, enums.ReservationStatusReserved, now).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListExpired returns past-due holds still in the reserved state, oldest
// first, capped at limit. The sweep job drains this.
func (r *Repository) ListExpired(ctx context.Context, now time.Time, limit int) ([]models.Reservation, error) {
	var rows []models.Reservation
	err := r.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", enums.ReservationStatusReserved, now).
		Order("expires_at").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
