package coupons

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
)

// Repository persists coupons and their redemptions.
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

// FindByCode loads a coupon by its uppercased code.
func (r *Repository) FindByCode(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := r.db.WithContext(ctx).
		First(&coupon, "code = ?", strings.ToUpper(strings.TrimSpace(code))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon not found")
		}
		return nil, err
	}
	return &coupon, nil
}

// CountUserRedemptions returns how many orders of this user already
// redeemed the coupon.
func (r *Repository) CountUserRedemptions(ctx context.Context, couponID, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CouponRedemption{}).
		Where("coupon_id = ? AND user_id = ?", couponID, userID).
		Count(&count).Error
	return count, err
}

// FindRedemption returns the existing redemption for an order, if any.
func (r *Repository) FindRedemption(ctx context.Context, couponID, orderID uuid.UUID) (*models.CouponRedemption, error) {
	var row models.CouponRedemption
	err := r.db.WithContext(ctx).
		First(&row, "coupon_id = ? AND order_id = ?", couponID, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// CreateRedemption inserts the redemption row. The (coupon_id, order_id)
// unique index rejects a double apply for the same order.
func (r *Repository) CreateRedemption(ctx context.Context, row *models.CouponRedemption) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// IncrementUsage bumps used_count, guarded by the global cap so two
// concurrent applies cannot push a coupon past its limit. Returns false
// when the cap is already spent.
func (r *Repository) IncrementUsage(ctx context.Context, couponID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Exec(`
UPDATE coupons
SET used_count = used_count + 1, updated_at = CURRENT_TIMESTAMP
WHERE id = ?
  AND (usage_limit IS NULL OR used_count < usage_limit)`,
		couponID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
