package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/internal/catalog"
	"github.com/anaghvyas/trystyle-backend/internal/coupons"
	"github.com/anaghvyas/trystyle-backend/internal/inventory"
	"github.com/anaghvyas/trystyle-backend/internal/notifications"
	"github.com/anaghvyas/trystyle-backend/internal/orders"
	"github.com/anaghvyas/trystyle-backend/internal/pricing"
	"github.com/anaghvyas/trystyle-backend/internal/reservations"
	"github.com/anaghvyas/trystyle-backend/pkg/config"
	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
	"github.com/anaghvyas/trystyle-backend/pkg/types"
)

type stubRazorpay struct {
	orderSeq  int
	refundSeq int
}

func (s *stubRazorpay) CreateOrder(amountPaise int64, currency, receipt string, notes map[string]any) (string, error) {
	s.orderSeq++
	return fmt.Sprintf("order_rzp_%d", s.orderSeq), nil
}

func (s *stubRazorpay) Refund(paymentID string, amountPaise int64, notes map[string]any) (string, error) {
	s.refundSeq++
	return fmt.Sprintf("rfnd_%d", s.refundSeq), nil
}

func (s *stubRazorpay) VerifyPaymentSignature(gatewayOrderID, paymentID, signature string) bool {
	return signature == "valid"
}

func (s *stubRazorpay) VerifyWebhookSignature(body []byte, signature string) bool {
	return signature == "valid"
}

func (s *stubRazorpay) KeyID() string { return "rzp_test_key" }

type stubStripe struct {
	intentSeq int
	refundSeq int
}

func (s *stubStripe) CreateIntent(ctx context.Context, amountPaise int64, currency string, metadata map[string]string) (string, string, error) {
	s.intentSeq++
	return fmt.Sprintf("pi_%d", s.intentSeq), fmt.Sprintf("pi_%d_secret", s.intentSeq), nil
}

func (s *stubStripe) Refund(ctx context.Context, paymentIntentID string, amountPaise int64) (string, error) {
	s.refundSeq++
	return fmt.Sprintf("re_%d", s.refundSeq), nil
}

func (s *stubStripe) ConstructEvent(payload []byte, signature string) (stripe.Event, error) {
	if signature != "valid" {
		return stripe.Event{}, fmt.Errorf("signature mismatch")
	}
	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, err
	}
	return event, nil
}

type fixture struct {
	svc       Service
	ordersSvc orders.Service
	conn      *gorm.DB
	razorpay  *stubRazorpay
	stripeGw  *stubStripe
	userID    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(
		&models.Product{},
		&models.InventoryVariant{},
		&models.Reservation{},
		&models.Coupon{},
		&models.CouponRedemption{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentIntent{},
		&models.Refund{},
		&models.Notification{},
	))

	client := db.NewFromConn(conn)
	logg := logger.New(logger.Options{Level: zerolog.Disabled, Output: io.Discard})
	ledger := inventory.NewRepository(conn)

	reservationSvc, err := reservations.NewService(
		reservations.NewRepository(conn), ledger, client, logg, 10*time.Minute)
	require.NoError(t, err)

	pricer, err := pricing.NewEngine(catalog.NewRepository(conn), config.PricingConfig{
		SellerState:           "Maharashtra",
		DefaultGSTRate:        "0.18",
		FreeShippingThreshold: 99900,
		DefaultShippingPaise:  9900,
	})
	require.NoError(t, err)

	couponSvc, err := coupons.NewService(coupons.NewRepository(conn), client)
	require.NoError(t, err)

	notifySvc, err := notifications.NewService(notifications.NewRepository(conn))
	require.NoError(t, err)

	ordersRepo := orders.NewRepository(conn)
	ordersSvc, err := orders.NewService(ordersRepo, ledger, reservationSvc, pricer,
		couponSvc, notifySvc, client, logg, 7*24*time.Hour)
	require.NoError(t, err)

	razorpayGw := &stubRazorpay{}
	stripeGw := &stubStripe{}
	svc, err := NewService(NewRepository(conn), ordersRepo, ordersSvc,
		razorpayGw, stripeGw, client, logg)
	require.NoError(t, err)

	return &fixture{
		svc:       svc,
		ordersSvc: ordersSvc,
		conn:      conn,
		razorpay:  razorpayGw,
		stripeGw:  stripeGw,
		userID:    uuid.New(),
	}
}

// placeOrder seeds a product and creates a pending order for the fixture user.
func (f *fixture) placeOrder(t *testing.T, currency enums.Currency) *models.Order {
	t.Helper()

	p := models.Product{
		ID:             uuid.New(),
		SKU:            "SKU-" + uuid.NewString()[:8],
		Name:           "Anarkali Kurta",
		Category:       "kurtas",
		BasePricePaise: 50000,
		GSTRate:        decimal.RequireFromString("0.18"),
		Active:         true,
	}
	require.NoError(t, f.conn.Create(&p).Error)
	require.NoError(t, f.conn.Create(&models.InventoryVariant{
		ProductID: p.ID, Size: "M", Color: "blue", Quantity: 10,
	}).Error)

	result, err := f.ordersSvc.Create(context.Background(), f.userID, orders.CreateInput{
		Items: []reservations.CartItem{{ProductID: p.ID, Size: "M", Color: "blue", Qty: 2}},
		ShippingAddress: types.Address{
			Name:       "Asha Rao",
			Line1:      "14 MG Road",
			City:       "Pune",
			State:      "Maharashtra",
			PostalCode: "411001",
			Country:    "IN",
		},
		Currency: currency,
	})
	require.NoError(t, err)
	return result.Order
}

func (f *fixture) loadOrder(t *testing.T, id uuid.UUID) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.conn.First(&order, "id = ?", id).Error)
	return order
}

func (f *fixture) loadIntent(t *testing.T, id uuid.UUID) models.PaymentIntent {
	t.Helper()
	var intent models.PaymentIntent
	require.NoError(t, f.conn.First(&intent, "id = ?", id).Error)
	return intent
}

func capturedWebhook(gatewayOrderID, paymentID string) []byte {
	body, _ := json.Marshal(map[string]any{
		"event": "payment.captured",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":       paymentID,
					"order_id": gatewayOrderID,
				},
			},
		},
	})
	return body
}

func failedWebhook(gatewayOrderID, description string) []byte {
	body, _ := json.Marshal(map[string]any{
		"event": "payment.failed",
		"payload": map[string]any{
			"payment": map[string]any{
				"entity": map[string]any{
					"id":                "pay_failed",
					"order_id":          gatewayOrderID,
					"error_description": description,
				},
			},
		},
	})
	return body
}

func TestCreateIntentRoutesByCurrency(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	inr := f.placeOrder(t, enums.CurrencyINR)
	dto, err := f.svc.CreateIntent(ctx, f.userID, inr.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentGatewayRazorpay, dto.Gateway)
	assert.Equal(t, inr.TotalPaise, dto.AmountPaise)
	assert.Equal(t, "rzp_test_key", dto.KeyID)
	assert.Empty(t, dto.ClientSecret)

	usd := f.placeOrder(t, enums.CurrencyUSD)
	dto, err = f.svc.CreateIntent(ctx, f.userID, usd.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentGatewayStripe, dto.Gateway)
	assert.NotEmpty(t, dto.ClientSecret)
	assert.Empty(t, dto.KeyID)
}

func TestCreateIntentRejectsAmountMismatch(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := f.placeOrder(t, enums.CurrencyINR)

	_, err := f.svc.CreateIntent(context.Background(), f.userID, order.ID, order.TotalPaise-100)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeAmountMismatch))
}

func TestCreateIntentSupersedesPrior(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	first, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)
	second, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, enums.PaymentStatusSuperseded, f.loadIntent(t, first.IntentID).Status)
	assert.Equal(t, enums.PaymentStatusCreated, f.loadIntent(t, second.IntentID).Status)
}

func TestRazorpayWebhookIgnoresSupersededIntent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	first, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)
	second, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)

	// a late capture against the retired intent must not confirm the order
	err = f.svc.HandleRazorpayWebhook(ctx, capturedWebhook(first.GatewayOrderID, "pay_old"), "valid")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.OrderStatusPending, f.loadOrder(t, order.ID).Status)
	assert.Equal(t, enums.PaymentStatusSuperseded, f.loadIntent(t, first.IntentID).Status)

	// the live intent still settles normally
	require.NoError(t, f.svc.HandleRazorpayWebhook(ctx, capturedWebhook(second.GatewayOrderID, "pay_new"), "valid"))
	assert.Equal(t, enums.OrderStatusConfirmed, f.loadOrder(t, order.ID).Status)
}

func TestCreateIntentRequiresAwaitingPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	_, err := f.ordersSvc.ConfirmPayment(ctx, order.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestVerifyClientPaymentConfirmsOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	dto, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)

	confirmed, err := f.svc.VerifyClientPayment(ctx, VerifyInput{
		UserID:         f.userID,
		GatewayOrderID: dto.GatewayOrderID,
		PaymentID:      "pay_abc",
		Signature:      "valid",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, confirmed.Status)

	intent := f.loadIntent(t, dto.IntentID)
	assert.Equal(t, enums.PaymentStatusCompleted, intent.Status)
	require.NotNil(t, intent.PaymentID)
	assert.Equal(t, "pay_abc", *intent.PaymentID)
	require.NotNil(t, intent.CompletedAt)
}

func TestVerifyClientPaymentBadSignatureFailsOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	dto, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.VerifyClientPayment(ctx, VerifyInput{
		UserID:         f.userID,
		GatewayOrderID: dto.GatewayOrderID,
		PaymentID:      "pay_abc",
		Signature:      "forged",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentVerification))

	assert.Equal(t, enums.PaymentStatusFailed, f.loadIntent(t, dto.IntentID).Status)
	assert.Equal(t, enums.OrderStatusPaymentFailed, f.loadOrder(t, order.ID).Status)

	// stock released by the failure path
	var v models.InventoryVariant
	require.NoError(t, f.conn.First(&v).Error)
	assert.Equal(t, 10, v.Quantity)
	assert.Equal(t, 0, v.SoldQty)
}

func TestRazorpayWebhookCapturedIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	dto, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)

	body := capturedWebhook(dto.GatewayOrderID, "pay_xyz")
	require.NoError(t, f.svc.HandleRazorpayWebhook(ctx, body, "valid"))
	assert.Equal(t, enums.OrderStatusConfirmed, f.loadOrder(t, order.ID).Status)

	// redelivery changes nothing
	require.NoError(t, f.svc.HandleRazorpayWebhook(ctx, body, "valid"))
	var v models.InventoryVariant
	require.NoError(t, f.conn.First(&v).Error)
	assert.Equal(t, 8, v.Quantity)
	assert.Equal(t, 2, v.SoldQty)
}

func TestRazorpayWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.svc.HandleRazorpayWebhook(context.Background(), capturedWebhook("order_x", "pay_x"), "forged")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentVerification))
}

func TestRazorpayWebhookFailureReleasesStock(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	dto, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)

	require.NoError(t, f.svc.HandleRazorpayWebhook(ctx,
		failedWebhook(dto.GatewayOrderID, "card declined"), "valid"))

	loaded := f.loadOrder(t, order.ID)
	assert.Equal(t, enums.OrderStatusPaymentFailed, loaded.Status)
	intent := f.loadIntent(t, dto.IntentID)
	assert.Equal(t, enums.PaymentStatusFailed, intent.Status)
	require.NotNil(t, intent.FailureReason)
	assert.Equal(t, "card declined", *intent.FailureReason)

	var v models.InventoryVariant
	require.NoError(t, f.conn.First(&v).Error)
	assert.Equal(t, 10, v.Quantity)
}

func TestRazorpayWebhookIgnoresUnknownEvents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	body, _ := json.Marshal(map[string]any{"event": "settlement.processed"})
	require.NoError(t, f.svc.HandleRazorpayWebhook(context.Background(), body, "valid"))
}

func TestStripeWebhookSucceededConfirmsOrder(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyUSD)

	dto, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)

	raw, _ := json.Marshal(map[string]any{"id": dto.GatewayOrderID})
	body, _ := json.Marshal(map[string]any{
		"type": string(stripe.EventTypePaymentIntentSucceeded),
		"data": map[string]any{"object": json.RawMessage(raw)},
	})

	require.NoError(t, f.svc.HandleStripeWebhook(ctx, body, "valid"))
	assert.Equal(t, enums.OrderStatusConfirmed, f.loadOrder(t, order.ID).Status)
	assert.Equal(t, enums.PaymentStatusCompleted, f.loadIntent(t, dto.IntentID).Status)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	err := f.svc.HandleStripeWebhook(context.Background(), []byte(`{}`), "forged")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodePaymentVerification))
}

func TestRefundTracksPartialAndFull(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	dto, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.VerifyClientPayment(ctx, VerifyInput{
		UserID: f.userID, GatewayOrderID: dto.GatewayOrderID,
		PaymentID: "pay_abc", Signature: "valid",
	})
	require.NoError(t, err)

	stockBefore := func() models.InventoryVariant {
		var v models.InventoryVariant
		require.NoError(t, f.conn.First(&v).Error)
		return v
	}()

	partial, err := f.svc.Refund(ctx, order.ID, 10000, "damaged item")
	require.NoError(t, err)
	assert.Equal(t, int64(10000), partial.AmountPaise)
	loaded := f.loadOrder(t, order.ID)
	assert.Equal(t, enums.RefundStatusPartial, loaded.RefundStatus)

	// zero amount refunds the remaining balance
	full, err := f.svc.Refund(ctx, order.ID, 0, "order lost in transit")
	require.NoError(t, err)
	assert.Equal(t, order.TotalPaise-10000, full.AmountPaise)
	loaded = f.loadOrder(t, order.ID)
	assert.Equal(t, enums.RefundStatusFull, loaded.RefundStatus)

	// a fully refunded order cannot be refunded again
	_, err = f.svc.Refund(ctx, order.ID, 100, "again")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))

	// refunds never restock
	var v models.InventoryVariant
	require.NoError(t, f.conn.First(&v).Error)
	assert.Equal(t, stockBefore.Quantity, v.Quantity)
	assert.Equal(t, stockBefore.SoldQty, v.SoldQty)
}

func TestRefundRequiresCompletedPayment(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	order := f.placeOrder(t, enums.CurrencyINR)

	_, err := f.svc.Refund(context.Background(), order.ID, 1000, "no payment yet")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestRefundRejectsExcessAmount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()
	order := f.placeOrder(t, enums.CurrencyINR)

	dto, err := f.svc.CreateIntent(ctx, f.userID, order.ID, 0)
	require.NoError(t, err)
	_, err = f.svc.VerifyClientPayment(ctx, VerifyInput{
		UserID: f.userID, GatewayOrderID: dto.GatewayOrderID,
		PaymentID: "pay_abc", Signature: "valid",
	})
	require.NoError(t, err)

	_, err = f.svc.Refund(ctx, order.ID, order.TotalPaise+1, "too much")
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}
