package pricing

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anaghvyas/trystyle-backend/internal/catalog"
	"github.com/anaghvyas/trystyle-backend/pkg/config"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/types"
)

// CartLine is one variant + quantity to be priced.
type CartLine struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Size      string    `json:"size" validate:"required"`
	Color     string    `json:"color" validate:"required"`
	Qty       int       `json:"qty" validate:"required,gt=0"`
}

// LineQuote is the priced view of one cart line. UnitPricePaise already has
// the product's own discount applied.
type LineQuote struct {
	ProductID      uuid.UUID `json:"productId"`
	SKU            string    `json:"sku"`
	Name           string    `json:"name"`
	Size           string    `json:"size"`
	Color          string    `json:"color"`
	Qty            int       `json:"qty"`
	UnitPricePaise int64     `json:"unitPricePaise"`
	GSTPaise       int64     `json:"gstPaise"`
	TotalPaise     int64     `json:"totalPaise"`
}

// Quote is a full cart pricing breakdown. All amounts are integer paise,
// already rounded half-up at 2 decimal rupees.
type Quote struct {
	Lines         []LineQuote `json:"lines"`
	SubtotalPaise int64       `json:"subtotalPaise"`
	DiscountPaise int64       `json:"discountPaise"`
	ShippingPaise int64       `json:"shippingPaise"`
	CGSTPaise     int64       `json:"cgstPaise"`
	SGSTPaise     int64       `json:"sgstPaise"`
	IGSTPaise     int64       `json:"igstPaise"`
	GSTTotalPaise int64       `json:"gstTotalPaise"`
	IsInterState  bool        `json:"isInterState"`
}

// NetSubtotalPaise is the discounted goods value GST and shipping key off.
func (q Quote) NetSubtotalPaise() int64 {
	return q.SubtotalPaise - q.DiscountPaise
}

// TotalBeforeCouponPaise is everything except the coupon, which the order
// flow applies on top.
func (q Quote) TotalBeforeCouponPaise() int64 {
	return q.NetSubtotalPaise() + q.GSTTotalPaise + q.ShippingPaise
}

// Region-keyed flat shipping for carts under the free-shipping threshold.
// Unlisted states fall back to the configured default.
var shippingByState = map[string]int64{
	"maharashtra": 4900,
	"karnataka":   5900,
	"delhi":       5900,
	"tamil nadu":  6900,
	"west bengal": 7900,
}

// Engine prices carts and splits GST by jurisdiction.
type Engine struct {
	products *catalog.Repository
	cfg      config.PricingConfig
}

// NewEngine constructs the pricing engine.
func NewEngine(products *catalog.Repository, cfg config.PricingConfig) (*Engine, error) {
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if _, err := decimal.NewFromString(cfg.DefaultGSTRate); err != nil {
		return nil, fmt.Errorf("invalid default gst rate %q: %w", cfg.DefaultGSTRate, err)
	}
	return &Engine{products: products, cfg: cfg}, nil
}

// PriceCart prices every line, then computes shipping and the GST split for
// the destination state. Intra-state carts split GST evenly into CGST and
// SGST; inter-state carts carry the full amount as IGST.
func (e *Engine) PriceCart(ctx context.Context, lines []CartLine, destinationState string) (*Quote, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "line qty must be positive")
		}
		ids = append(ids, line.ProductID)
	}

	products, err := e.products.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	defaultRate, _ := decimal.NewFromString(e.cfg.DefaultGSTRate)

	quote := &Quote{Lines: make([]LineQuote, 0, len(lines))}
	subtotal := decimal.Zero
	discount := decimal.Zero
	gstTotal := decimal.Zero

	for _, line := range lines {
		product, ok := products[line.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product %s not found or inactive", line.ProductID))
		}

		qty := decimal.NewFromInt(int64(line.Qty))
		basePrice := types.DecimalFromPaise(product.BasePricePaise)
		unitPrice := types.RoundHalfUp(applyDiscountPct(basePrice, product.DiscountPct))

		lineBase := basePrice.Mul(qty)
		lineTotal := types.RoundHalfUp(unitPrice.Mul(qty))
		lineGST := types.RoundHalfUp(lineTotal.Mul(rateFor(product, defaultRate)))

		subtotal = subtotal.Add(lineBase)
		discount = discount.Add(lineBase.Sub(lineTotal))
		gstTotal = gstTotal.Add(lineGST)

		quote.Lines = append(quote.Lines, LineQuote{
			ProductID:      product.ID,
			SKU:            product.SKU,
			Name:           product.Name,
			Size:           line.Size,
			Color:          line.Color,
			Qty:            line.Qty,
			UnitPricePaise: types.PaiseFromDecimal(unitPrice),
			GSTPaise:       types.PaiseFromDecimal(lineGST),
			TotalPaise:     types.PaiseFromDecimal(lineTotal),
		})
	}

	quote.SubtotalPaise = types.PaiseFromDecimal(types.RoundHalfUp(subtotal))
	quote.DiscountPaise = types.PaiseFromDecimal(types.RoundHalfUp(discount))

	net := subtotal.Sub(discount)
	quote.ShippingPaise = e.shippingFor(net, destinationState)

	quote.IsInterState = !e.isIntraState(destinationState)
	if quote.IsInterState {
		quote.IGSTPaise = types.PaiseFromDecimal(types.RoundHalfUp(gstTotal))
		quote.GSTTotalPaise = quote.IGSTPaise
	} else {
		half := types.RoundHalfUp(gstTotal.Div(decimal.NewFromInt(2)))
		quote.CGSTPaise = types.PaiseFromDecimal(half)
		quote.SGSTPaise = quote.CGSTPaise
		quote.GSTTotalPaise = quote.CGSTPaise + quote.SGSTPaise
	}

	return quote, nil
}

func (e *Engine) shippingFor(netSubtotal decimal.Decimal, destinationState string) int64 {
	if netSubtotal.GreaterThanOrEqual(types.DecimalFromPaise(e.cfg.FreeShippingThreshold)) {
		return 0
	}
	if rate, ok := shippingByState[normalizeState(destinationState)]; ok {
		return rate
	}
	return e.cfg.DefaultShippingPaise
}

func (e *Engine) isIntraState(destinationState string) bool {
	return normalizeState(destinationState) == normalizeState(e.cfg.SellerState)
}

func rateFor(product models.Product, fallback decimal.Decimal) decimal.Decimal {
	if product.GSTRate.IsPositive() {
		return product.GSTRate
	}
	return fallback
}

func applyDiscountPct(price decimal.Decimal, pct int) decimal.Decimal {
	if pct <= 0 {
		return price
	}
	if pct >= 100 {
		return decimal.Zero
	}
	factor := decimal.NewFromInt(int64(100 - pct)).Div(decimal.NewFromInt(100))
	return price.Mul(factor)
}

func normalizeState(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
