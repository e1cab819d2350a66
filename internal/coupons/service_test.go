package coupons

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	dsn := "file:coupons_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Coupon{}, &models.CouponRedemption{}))

	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)
	return svc, conn
}

type couponOpts struct {
	code         string
	discountType enums.DiscountType
	value        string
	minPurchase  int64
	maxDiscount  *int64
	usageLimit   *int
	usagePerUser *int
	expiry       time.Time
	active       bool
	usedCount    int
}

func seedCoupon(t *testing.T, conn *gorm.DB, opts couponOpts) models.Coupon {
	t.Helper()
	if opts.expiry.IsZero() {
		opts.expiry = time.Now().UTC().Add(24 * time.Hour)
	}
	coupon := models.Coupon{
		ID:            uuid.New(),
		Code:          opts.code,
		DiscountType:  opts.discountType,
		DiscountValue: decimal.RequireFromString(opts.value),
		MinPurchase:   opts.minPurchase,
		MaxDiscount:   opts.maxDiscount,
		UsageLimit:    opts.usageLimit,
		UsagePerUser:  opts.usagePerUser,
		ExpiryDate:    opts.expiry,
		IsActive:      opts.active,
		UsedCount:     opts.usedCount,
	}
	require.NoError(t, conn.Create(&coupon).Error)
	return coupon
}

func intPtr(v int) *int       { return &v }
func int64Ptr(v int64) *int64 { return &v }

func TestValidatePercentageCoupon(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedCoupon(t, conn, couponOpts{
		code: "SAVE10", discountType: enums.DiscountTypePercentage,
		value: "10", active: true,
	})

	// code lookup is case-insensitive via uppercasing
	result, err := svc.Validate(context.Background(), " save10 ", uuid.New(), 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), result.DiscountPaise)
}

func TestValidateCapsAtMaxDiscount(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedCoupon(t, conn, couponOpts{
		code: "BIG50", discountType: enums.DiscountTypePercentage,
		value: "50", maxDiscount: int64Ptr(20000), active: true,
	})

	result, err := svc.Validate(context.Background(), "BIG50", uuid.New(), 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), result.DiscountPaise)
}

func TestValidateFixedCouponNeverExceedsCart(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedCoupon(t, conn, couponOpts{
		code: "FLAT500", discountType: enums.DiscountTypeFixed,
		value: "500", active: true,
	})

	result, err := svc.Validate(context.Background(), "FLAT500", uuid.New(), 30000)
	require.NoError(t, err)
	assert.Equal(t, int64(30000), result.DiscountPaise)
}

func TestValidateFailureModes(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	userID := uuid.New()

	seedCoupon(t, conn, couponOpts{
		code: "INACTIVE", discountType: enums.DiscountTypeFixed, value: "100",
	})
	seedCoupon(t, conn, couponOpts{
		code: "EXPIRED", discountType: enums.DiscountTypeFixed, value: "100",
		active: true, expiry: time.Now().UTC().Add(-time.Hour),
	})
	seedCoupon(t, conn, couponOpts{
		code: "MIN999", discountType: enums.DiscountTypeFixed, value: "100",
		active: true, minPurchase: 99900,
	})
	seedCoupon(t, conn, couponOpts{
		code: "SPENT", discountType: enums.DiscountTypeFixed, value: "100",
		active: true, usageLimit: intPtr(5), usedCount: 5,
	})

	cases := []struct {
		code string
		want pkgerrors.Code
	}{
		{"MISSING", pkgerrors.CodeInvalidCoupon},
		{"INACTIVE", pkgerrors.CodeInvalidCoupon},
		{"EXPIRED", pkgerrors.CodeCouponExpired},
		{"MIN999", pkgerrors.CodeMinimumNotMet},
		{"SPENT", pkgerrors.CodeUsageLimitReached},
	}
	for _, tc := range cases {
		_, err := svc.Validate(context.Background(), tc.code, userID, 50000)
		require.Error(t, err, tc.code)
		assert.True(t, pkgerrors.HasCode(err, tc.want), tc.code)
	}
}

func TestValidatePerUserCap(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	userID := uuid.New()
	coupon := seedCoupon(t, conn, couponOpts{
		code: "ONCE", discountType: enums.DiscountTypeFixed, value: "100",
		active: true, usagePerUser: intPtr(1),
	})

	require.NoError(t, conn.Create(&models.CouponRedemption{
		ID: uuid.New(), CouponID: coupon.ID, UserID: userID, OrderID: uuid.New(), AppliedPaise: 10000,
	}).Error)

	_, err := svc.Validate(context.Background(), "ONCE", userID, 50000)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUsageLimitReached))

	// a different user is unaffected
	_, err = svc.Validate(context.Background(), "ONCE", uuid.New(), 50000)
	require.NoError(t, err)
}

func TestApplyIsIdempotentPerOrder(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	userID := uuid.New()
	orderID := uuid.New()
	coupon := seedCoupon(t, conn, couponOpts{
		code: "SAVE10", discountType: enums.DiscountTypePercentage,
		value: "10", active: true, usageLimit: intPtr(10),
	})

	apply := func() (*Validation, error) {
		var out *Validation
		err := conn.Transaction(func(tx *gorm.DB) error {
			var terr error
			out, terr = svc.Apply(context.Background(), tx, "SAVE10", userID, orderID, 100000)
			return terr
		})
		return out, err
	}

	first, err := apply()
	require.NoError(t, err)
	assert.Equal(t, int64(10000), first.DiscountPaise)

	second, err := apply()
	require.NoError(t, err)
	assert.Equal(t, first.DiscountPaise, second.DiscountPaise)

	var reloaded models.Coupon
	require.NoError(t, conn.First(&reloaded, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)

	var redemptions int64
	require.NoError(t, conn.Model(&models.CouponRedemption{}).
		Where("coupon_id = ?", coupon.ID).Count(&redemptions).Error)
	assert.Equal(t, int64(1), redemptions)
}

func TestApplyToOrderReplaysExistingRedemption(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	userID := uuid.New()
	orderID := uuid.New()
	coupon := seedCoupon(t, conn, couponOpts{
		code: "SAVE10", discountType: enums.DiscountTypePercentage,
		value: "10", active: true, usageLimit: intPtr(10),
	})

	first, err := svc.ApplyToOrder(context.Background(), "SAVE10", userID, orderID, 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), first.DiscountPaise)

	// the replay resolves from the committed redemption, not a second apply
	second, err := svc.ApplyToOrder(context.Background(), "SAVE10", userID, orderID, 100000)
	require.NoError(t, err)
	assert.Equal(t, first.DiscountPaise, second.DiscountPaise)

	var reloaded models.Coupon
	require.NoError(t, conn.First(&reloaded, "id = ?", coupon.ID).Error)
	assert.Equal(t, 1, reloaded.UsedCount)
}

func TestCreateRedemptionDuplicateIsUniqueViolation(t *testing.T) {
	t.Parallel()

	_, conn := newTestService(t)
	repo := NewRepository(conn)
	ctx := context.Background()

	couponID := uuid.New()
	orderID := uuid.New()
	require.NoError(t, repo.CreateRedemption(ctx, &models.CouponRedemption{
		ID: uuid.New(), CouponID: couponID, UserID: uuid.New(),
		OrderID: orderID, AppliedPaise: 5000,
	}))

	// a racing apply for the same order trips the (coupon, order) index
	err := repo.CreateRedemption(ctx, &models.CouponRedemption{
		ID: uuid.New(), CouponID: couponID, UserID: uuid.New(),
		OrderID: orderID, AppliedPaise: 5000,
	})
	require.Error(t, err)
	assert.True(t, db.IsUniqueViolation(err, ""))
}

func TestApplyStopsAtGlobalCap(t *testing.T) {
	t.Parallel()

	svc, conn := newTestService(t)
	seedCoupon(t, conn, couponOpts{
		code: "LAST1", discountType: enums.DiscountTypeFixed, value: "100",
		active: true, usageLimit: intPtr(1),
	})

	err := conn.Transaction(func(tx *gorm.DB) error {
		_, terr := svc.Apply(context.Background(), tx, "LAST1", uuid.New(), uuid.New(), 50000)
		return terr
	})
	require.NoError(t, err)

	err = conn.Transaction(func(tx *gorm.DB) error {
		_, terr := svc.Apply(context.Background(), tx, "LAST1", uuid.New(), uuid.New(), 50000)
		return terr
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeUsageLimitReached))
}
