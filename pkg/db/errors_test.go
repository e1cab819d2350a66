package db

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	pgErr := errors.New(`ERROR: duplicate key value violates unique constraint "idx_orders_idempotency" (SQLSTATE 23505)`)
	sqliteErr := errors.New("UNIQUE constraint failed: coupon_redemptions.coupon_id, coupon_redemptions.order_id")

	assert.True(t, IsUniqueViolation(pgErr, ""))
	assert.True(t, IsUniqueViolation(sqliteErr, ""))
	assert.True(t, IsUniqueViolation(pgErr, "idx_orders_idempotency"))
	assert.False(t, IsUniqueViolation(pgErr, "idx_other_constraint"))

	assert.False(t, IsUniqueViolation(nil, ""))
	assert.False(t, IsUniqueViolation(errors.New("connection refused"), ""))
}
