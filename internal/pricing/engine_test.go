package pricing

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/internal/catalog"
	"github.com/anaghvyas/trystyle-backend/pkg/config"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
)

func testConfig() config.PricingConfig {
	return config.PricingConfig{
		SellerState:           "Maharashtra",
		DefaultGSTRate:        "0.18",
		FreeShippingThreshold: 99900,
		DefaultShippingPaise:  9900,
	}
}

func newTestEngine(t *testing.T) (*Engine, *gorm.DB) {
	t.Helper()
	dsn := "file:pricing_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&models.Product{}))

	engine, err := NewEngine(catalog.NewRepository(conn), testConfig())
	require.NoError(t, err)
	return engine, conn
}

func seedProduct(t *testing.T, conn *gorm.DB, pricePaise int64, discountPct int) models.Product {
	t.Helper()
	p := models.Product{
		ID:             uuid.New(),
		SKU:            "SKU-" + uuid.NewString()[:8],
		Name:           "Linen Kurta",
		Category:       "kurtas",
		BasePricePaise: pricePaise,
		DiscountPct:    discountPct,
		GSTRate:        decimal.RequireFromString("0.18"),
		Active:         true,
	}
	require.NoError(t, conn.Create(&p).Error)
	return p
}

func line(p models.Product, qty int) CartLine {
	return CartLine{ProductID: p.ID, Size: "M", Color: "black", Qty: qty}
}

func TestPriceCartIntraStateSplitsGSTEvenly(t *testing.T) {
	t.Parallel()

	engine, conn := newTestEngine(t)
	p := seedProduct(t, conn, 100000, 0) // ₹1000

	quote, err := engine.PriceCart(context.Background(), []CartLine{line(p, 1)}, "Maharashtra")
	require.NoError(t, err)

	assert.Equal(t, int64(100000), quote.SubtotalPaise)
	assert.Equal(t, int64(0), quote.DiscountPaise)
	assert.Equal(t, int64(0), quote.ShippingPaise) // over the free-shipping threshold
	assert.False(t, quote.IsInterState)
	assert.Equal(t, int64(9000), quote.CGSTPaise)
	assert.Equal(t, int64(9000), quote.SGSTPaise)
	assert.Equal(t, int64(0), quote.IGSTPaise)
	assert.Equal(t, int64(18000), quote.GSTTotalPaise)
	assert.Equal(t, int64(118000), quote.TotalBeforeCouponPaise())
}

func TestPriceCartInterStateUsesIGST(t *testing.T) {
	t.Parallel()

	engine, conn := newTestEngine(t)
	p := seedProduct(t, conn, 100000, 0)

	quote, err := engine.PriceCart(context.Background(), []CartLine{line(p, 1)}, "Karnataka")
	require.NoError(t, err)

	assert.True(t, quote.IsInterState)
	assert.Equal(t, int64(0), quote.CGSTPaise)
	assert.Equal(t, int64(0), quote.SGSTPaise)
	assert.Equal(t, int64(18000), quote.IGSTPaise)
	assert.Equal(t, int64(18000), quote.GSTTotalPaise)
}

func TestPriceCartAppliesItemDiscount(t *testing.T) {
	t.Parallel()

	engine, conn := newTestEngine(t)
	p := seedProduct(t, conn, 50000, 10) // ₹500 at 10% off

	quote, err := engine.PriceCart(context.Background(), []CartLine{line(p, 1)}, "Karnataka")
	require.NoError(t, err)

	assert.Equal(t, int64(50000), quote.SubtotalPaise)
	assert.Equal(t, int64(5000), quote.DiscountPaise)
	assert.Equal(t, int64(45000), quote.NetSubtotalPaise())
	require.Len(t, quote.Lines, 1)
	assert.Equal(t, int64(45000), quote.Lines[0].UnitPricePaise)

	// under the threshold, Karnataka flat rate applies
	assert.Equal(t, int64(5900), quote.ShippingPaise)
	assert.Equal(t, int64(8100), quote.IGSTPaise)
	assert.Equal(t, int64(59000), quote.TotalBeforeCouponPaise())
}

func TestPriceCartUnknownStateFallsBackToDefaultShipping(t *testing.T) {
	t.Parallel()

	engine, conn := newTestEngine(t)
	p := seedProduct(t, conn, 30000, 0)

	quote, err := engine.PriceCart(context.Background(), []CartLine{line(p, 1)}, "Atlantis")
	require.NoError(t, err)
	assert.Equal(t, int64(9900), quote.ShippingPaise)
}

func TestPriceCartRoundsHalfUp(t *testing.T) {
	t.Parallel()

	engine, conn := newTestEngine(t)
	// ₹62.25 * 0.18 = ₹11.2050 -> rounds up to ₹11.21
	p := seedProduct(t, conn, 6225, 0)

	quote, err := engine.PriceCart(context.Background(), []CartLine{line(p, 1)}, "Karnataka")
	require.NoError(t, err)
	assert.Equal(t, int64(1121), quote.IGSTPaise)
}

func TestPriceCartSplitKeepsComponentsEqual(t *testing.T) {
	t.Parallel()

	engine, conn := newTestEngine(t)
	// gst total ₹11.21 is odd; the split must still satisfy cgst == sgst
	// and total == cgst + sgst
	p := seedProduct(t, conn, 6225, 0)

	quote, err := engine.PriceCart(context.Background(), []CartLine{line(p, 1)}, "maharashtra ")
	require.NoError(t, err)
	assert.False(t, quote.IsInterState)
	assert.Equal(t, quote.CGSTPaise, quote.SGSTPaise)
	assert.Equal(t, quote.GSTTotalPaise, quote.CGSTPaise+quote.SGSTPaise)
}

func TestPriceCartRejectsInactiveProduct(t *testing.T) {
	t.Parallel()

	engine, conn := newTestEngine(t)
	p := seedProduct(t, conn, 10000, 0)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", p.ID).Update("active", false).Error)

	_, err := engine.PriceCart(context.Background(), []CartLine{line(p, 1)}, "Delhi")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestPriceCartRejectsEmptyCart(t *testing.T) {
	t.Parallel()

	engine, _ := newTestEngine(t)
	_, err := engine.PriceCart(context.Background(), nil, "Delhi")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
