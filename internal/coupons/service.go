package coupons

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/types"
)

// Validation is the result of a read-only coupon check: the bounded
// discount plus a summary of the coupon itself.
type Validation struct {
	CouponID      uuid.UUID          `json:"couponId"`
	Code          string             `json:"code"`
	DiscountType  enums.DiscountType `json:"discountType"`
	DiscountPaise int64              `json:"discountPaise"`
}

// Service validates and applies coupons. Validate never mutates state;
// Apply is idempotent per order.
type Service interface {
	Validate(ctx context.Context, code string, userID uuid.UUID, cartValuePaise int64) (*Validation, error)
	Apply(ctx context.Context, tx *gorm.DB, code string, userID, orderID uuid.UUID, cartValuePaise int64) (*Validation, error)
	ApplyToOrder(ctx context.Context, code string, userID, orderID uuid.UUID, cartValuePaise int64) (*Validation, error)
}

type service struct {
	repo     *Repository
	dbClient *db.Client
}

// NewService constructs the coupon service.
func NewService(repo *Repository, dbClient *db.Client) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("coupon repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient}, nil
}

// Validate runs every eligibility check and returns the bounded discount.
func (s *service) Validate(ctx context.Context, code string, userID uuid.UUID, cartValuePaise int64) (*Validation, error) {
	return s.validate(ctx, s.repo, code, userID, cartValuePaise)
}

func (s *service) validate(ctx context.Context, repo *Repository, code string, userID uuid.UUID, cartValuePaise int64) (*Validation, error) {
	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if !coupon.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidCoupon, "coupon is inactive")
	}
	if coupon.ExpiryDate.Before(time.Now().UTC()) {
		return nil, pkgerrors.New(pkgerrors.CodeCouponExpired, "coupon has expired")
	}
	if cartValuePaise < coupon.MinPurchase {
		return nil, pkgerrors.New(pkgerrors.CodeMinimumNotMet,
			fmt.Sprintf("cart value below minimum purchase of %d paise", coupon.MinPurchase)).
			WithDetails(map[string]any{"minPurchasePaise": coupon.MinPurchase})
	}
	if coupon.UsageLimit != nil && coupon.UsedCount >= *coupon.UsageLimit {
		return nil, pkgerrors.New(pkgerrors.CodeUsageLimitReached, "coupon usage limit reached")
	}
	if coupon.UsagePerUser != nil {
		used, err := repo.CountUserRedemptions(ctx, coupon.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= int64(*coupon.UsagePerUser) {
			return nil, pkgerrors.New(pkgerrors.CodeUsageLimitReached, "coupon usage limit reached for this user")
		}
	}

	return &Validation{
		CouponID:      coupon.ID,
		Code:          coupon.Code,
		DiscountType:  coupon.DiscountType,
		DiscountPaise: discountFor(coupon, cartValuePaise),
	}, nil
}

// Apply re-validates inside the caller's transaction, then records the
// redemption and bumps the usage counter. A repeat call for the same order
// returns the original redemption without counting twice.
// ApplyToOrder runs Apply in its own transaction. When an identical apply
// for the same order wins the insert race, the transaction is already
// aborted, so the winning redemption is read back outside it.
func (s *service) ApplyToOrder(ctx context.Context, code string, userID, orderID uuid.UUID, cartValuePaise int64) (*Validation, error) {
	var result *Validation
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.Apply(ctx, tx, code, userID, orderID, cartValuePaise)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
			return nil, err
		}
		coupon, ferr := s.repo.FindByCode(ctx, code)
		if ferr != nil {
			return nil, err
		}
		existing, ferr := s.repo.FindRedemption(ctx, coupon.ID, orderID)
		if ferr != nil || existing == nil {
			return nil, err
		}
		return &Validation{
			CouponID:      coupon.ID,
			Code:          coupon.Code,
			DiscountType:  coupon.DiscountType,
			DiscountPaise: existing.AppliedPaise,
		}, nil
	}
	return result, nil
}

func (s *service) Apply(ctx context.Context, tx *gorm.DB, code string, userID, orderID uuid.UUID, cartValuePaise int64) (*Validation, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	repo := s.repo.WithTx(tx)

	coupon, err := repo.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	existing, err := repo.FindRedemption(ctx, coupon.ID, orderID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &Validation{
			CouponID:      coupon.ID,
			Code:          coupon.Code,
			DiscountType:  coupon.DiscountType,
			DiscountPaise: existing.AppliedPaise,
		}, nil
	}

	result, err := s.validate(ctx, repo, code, userID, cartValuePaise)
	if err != nil {
		return nil, err
	}

	ok, err := repo.IncrementUsage(ctx, coupon.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUsageLimitReached, "coupon usage limit reached")
	}

	redemption := &models.CouponRedemption{
		ID:           uuid.New(),
		CouponID:     coupon.ID,
		UserID:       userID,
		OrderID:      orderID,
		AppliedPaise: result.DiscountPaise,
	}
	if err := repo.CreateRedemption(ctx, redemption); err != nil {
		// lost a race against an identical apply for this order; no
		// further queries here, the transaction is poisoned after the
		// constraint violation
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "coupon already applied to this order")
		}
		return nil, err
	}
	return result, nil
}

func discountFor(coupon *models.Coupon, cartValuePaise int64) int64 {
	cart := types.DecimalFromPaise(cartValuePaise)

	var raw decimal.Decimal
	switch coupon.DiscountType {
	case enums.DiscountTypePercentage:
		raw = cart.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
	default:
		raw = coupon.DiscountValue
	}

	discount := types.PaiseFromDecimal(types.RoundHalfUp(raw))
	if coupon.MaxDiscount != nil && discount > *coupon.MaxDiscount {
		discount = *coupon.MaxDiscount
	}
	if discount > cartValuePaise {
		discount = cartValuePaise
	}
	return discount
}
