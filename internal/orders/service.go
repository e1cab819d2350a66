package orders

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/internal/coupons"
	"github.com/anaghvyas/trystyle-backend/internal/inventory"
	"github.com/anaghvyas/trystyle-backend/internal/pricing"
	"github.com/anaghvyas/trystyle-backend/internal/reservations"
	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
	"github.com/anaghvyas/trystyle-backend/pkg/pagination"
	"github.com/anaghvyas/trystyle-backend/pkg/types"
)

// CreateInput is the validated payload to place an order.
type CreateInput struct {
	Items           []reservations.CartItem
	ShippingAddress types.Address
	BillingAddress  *types.Address
	Currency        enums.Currency
	CouponCode      string
	IdempotencyKey  *string
}

// CreateResult carries the persisted order plus whether this call replayed
// an earlier submission with the same idempotency key.
type CreateResult struct {
	Order    *models.Order
	Replayed bool
}

// ListResult wraps one page of a user's orders.
type ListResult struct {
	Items  []models.Order `json:"items"`
	Cursor string         `json:"cursor"`
}

type notifier interface {
	Record(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind enums.NotificationKind, orderRef string) error
}

// Service owns the order aggregate and its state machine.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CreateResult, error)
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error)
	RequestReturn(ctx context.Context, userID, orderID uuid.UUID, reason, comments string) (*models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, message, location string) (*models.Order, error)

	// payment outcomes, driven by the payments service
	ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error)
}

type service struct {
	repo         *Repository
	ledger       *inventory.Repository
	reservations reservations.Service
	pricer       *pricing.Engine
	coupons      coupons.Service
	notify       notifier
	dbClient     *db.Client
	logg         *logger.Logger
	returnWindow time.Duration
}

// NewService constructs the order service.
func NewService(
	repo *Repository,
	ledger *inventory.Repository,
	reservationSvc reservations.Service,
	pricer *pricing.Engine,
	couponSvc coupons.Service,
	notify notifier,
	dbClient *db.Client,
	logg *logger.Logger,
	returnWindow time.Duration,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if reservationSvc == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	if pricer == nil {
		return nil, fmt.Errorf("pricing engine required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification service required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if returnWindow <= 0 {
		return nil, fmt.Errorf("return window must be positive")
	}
	return &service{
		repo:         repo,
		ledger:       ledger,
		reservations: reservationSvc,
		pricer:       pricer,
		coupons:      couponSvc,
		notify:       notify,
		dbClient:     dbClient,
		logg:         logg,
		returnWindow: returnWindow,
	}, nil
}

// Create places an order: prices the cart, applies the coupon, persists the
// aggregate, and commits inventory, all in one transaction. A duplicate
// (userId, idempotencyKey) submission replays the stored order; the unique
// index closes the race between two identical concurrent submissions.
func (s *service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*CreateResult, error) {
	if err := input.ShippingAddress.Validate(); err != nil {
		return nil, err
	}
	if input.Currency == "" {
		input.Currency = enums.CurrencyINR
	}

	if input.IdempotencyKey != nil {
		existing, err := s.repo.FindByIdempotencyKey(ctx, userID, *input.IdempotencyKey)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &CreateResult{Order: existing, Replayed: true}, nil
		}
	}

	lines := make([]pricing.CartLine, 0, len(input.Items))
	for _, item := range input.Items {
		lines = append(lines, pricing.CartLine{
			ProductID: item.ProductID,
			Size:      item.Size,
			Color:     item.Color,
			Qty:       item.Qty,
		})
	}

	orderID := uuid.New()
	var order *models.Order

	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		quote, err := s.pricer.PriceCart(ctx, lines, input.ShippingAddress.NormalizedState())
		if err != nil {
			return err
		}

		var couponDiscount int64
		var couponCode *string
		if input.CouponCode != "" {
			applied, err := s.coupons.Apply(ctx, tx, input.CouponCode, userID, orderID, quote.NetSubtotalPaise())
			if err != nil {
				return err
			}
			couponDiscount = applied.DiscountPaise
			couponCode = &applied.Code
		}

		now := time.Now().UTC()
		order = &models.Order{
			ID:                  orderID,
			Reference:           newReference(now),
			UserID:              userID,
			IdempotencyKey:      input.IdempotencyKey,
			Status:              enums.OrderStatusPending,
			Currency:            input.Currency,
			SubtotalPaise:       quote.SubtotalPaise,
			DiscountPaise:       quote.DiscountPaise,
			ShippingPaise:       quote.ShippingPaise,
			CGSTPaise:           quote.CGSTPaise,
			SGSTPaise:           quote.SGSTPaise,
			IGSTPaise:           quote.IGSTPaise,
			GSTTotalPaise:       quote.GSTTotalPaise,
			CouponDiscountPaise: couponDiscount,
			TotalPaise:          quote.TotalBeforeCouponPaise() - couponDiscount,
			CouponCode:          couponCode,
			ShippingAddress:     input.ShippingAddress,
			BillingAddress:      input.BillingAddress,
			Tracking: models.TrackingUpdates{{
				Status:    enums.OrderStatusPending,
				Message:   "Order placed, awaiting payment",
				Timestamp: now,
			}},
			PlacedAt: now,
		}
		for _, line := range quote.Lines {
			order.Items = append(order.Items, models.OrderItem{
				ID:             uuid.New(),
				OrderID:        orderID,
				ProductID:      line.ProductID,
				Name:           line.Name,
				Size:           line.Size,
				Color:          line.Color,
				Qty:            line.Qty,
				UnitPricePaise: line.UnitPricePaise,
				GSTPaise:       line.GSTPaise,
				TotalPaise:     line.TotalPaise,
			})
		}

		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			return err
		}

		return s.commitInventory(ctx, tx, userID, orderID, input.Items)
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") && input.IdempotencyKey != nil {
			existing, ferr := s.repo.FindByIdempotencyKey(ctx, userID, *input.IdempotencyKey)
			if ferr == nil && existing != nil {
				return &CreateResult{Order: existing, Replayed: true}, nil
			}
		}
		return nil, err
	}

	s.logg.Info(s.logg.WithOrderRef(ctx, order.Reference), "order created")
	return &CreateResult{Order: order}, nil
}

// commitInventory consumes the user's checkout holds when they cover every
// item; otherwise it deducts stock directly under the same guards. Either
// way the whole cart commits or none of it does. The confirm attempt runs
// in a savepoint so a partially covered cart rolls back its confirmed
// holds before the direct deduction runs.
func (s *service) commitInventory(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, items []reservations.CartItem) error {
	err := tx.Transaction(func(inner *gorm.DB) error {
		return s.reservations.ConfirmForOrder(ctx, inner, userID, orderID, items)
	})
	if err == nil {
		return nil
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeReservationExpired) {
		return err
	}

	// no usable hold set; fall back to order-time deduction
	ledger := s.ledger.WithTx(tx)
	for _, item := range items {
		if err := ledger.SellDirect(ctx, item.Key(), item.Qty); err != nil {
			return err
		}
	}
	return nil
}

// Get loads an order owned by the user.
func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

// List pages through the user's orders.
func (s *service) List(ctx context.Context, userID uuid.UUID, params pagination.Params) (*ListResult, error) {
	rows, next, err := s.repo.ListByUser(ctx, userID, params)
	if err != nil {
		return nil, err
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: rows, Cursor: cursor}, nil
}

// Cancel stops an order before shipment and returns its units to stock.
// Orders in payment_failed already had their inventory released by the
// failure path, so only pending/confirmed cancellations restock.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if !order.CanBeCancelled() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("order in status %q cannot be cancelled", order.Status))
	}

	now := time.Now().UTC()
	message := "Order cancelled"
	if reason != "" {
		message = "Order cancelled: " + reason
	}
	tracking := append(order.Tracking, models.TrackingUpdate{
		Status:    enums.OrderStatusCancelled,
		Message:   message,
		Timestamp: now,
	})

	restock := order.Status == enums.OrderStatusPending || order.Status == enums.OrderStatusConfirmed

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, orderID,
			[]enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusPaymentFailed},
			enums.OrderStatusCancelled, tracking, map[string]any{"cancelled_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer cancellable")
		}
		if restock {
			ledger := s.ledger.WithTx(tx)
			for _, item := range order.Items {
				key := inventory.VariantKey{ProductID: item.ProductID, Size: item.Size, Color: item.Color}
				if err := ledger.UnwindSale(ctx, key, item.Qty); err != nil {
					return err
				}
			}
		}
		return s.notify.Record(ctx, tx, order.UserID, enums.NotificationKindOrderCancelled, order.Reference)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, orderID)
}

// RequestReturn records a return request inside the return window.
func (s *service) RequestReturn(ctx context.Context, userID, orderID uuid.UUID, reason, comments string) (*models.Order, error) {
	order, err := s.Get(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if !order.CanBeReturned(s.returnWindow, now) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not eligible for return")
	}

	fullReason := reason
	if comments != "" {
		fullReason = reason + ": " + comments
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).SetReturnRequest(ctx, orderID, fullReason, now)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return was already requested")
		}
		return s.notify.Record(ctx, tx, order.UserID, enums.NotificationKindReturnReceived, order.Reference)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, orderID)
}

// UpdateStatus advances the order along the state machine (privileged
// operation, used for shipped/delivered/returned progress).
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, message, location string) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", status))
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.CanTransition(status) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot transition order from %q to %q", order.Status, status)).
			WithDetails(map[string]any{"from": order.Status, "to": status})
	}

	now := time.Now().UTC()
	if message == "" {
		message = "Order " + status.String()
	}
	tracking := append(order.Tracking, models.TrackingUpdate{
		Status:    status,
		Message:   message,
		Location:  location,
		Timestamp: now,
	})

	extra := map[string]any{}
	if status == enums.OrderStatusDelivered {
		extra["delivered_at"] = now
	}

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, orderID,
			[]enums.OrderStatus{order.Status}, status, tracking, extra)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		if kind, found := statusNotification(status); found {
			return s.notify.Record(ctx, tx, order.UserID, kind, order.Reference)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, orderID)
}

// ConfirmPayment moves a paid order to confirmed. When the order had
// already failed a payment attempt its inventory was released, so a
// successful retry deducts stock again; running out in the meantime fails
// the confirmation.
func (s *service) ConfirmPayment(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusConfirmed {
		return order, nil // duplicate webhook delivery
	}
	if !order.Status.CanTransition(enums.OrderStatusConfirmed) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot confirm order in status %q", order.Status))
	}

	now := time.Now().UTC()
	tracking := append(order.Tracking, models.TrackingUpdate{
		Status:    enums.OrderStatusConfirmed,
		Message:   "Payment received, order confirmed",
		Timestamp: now,
	})
	rededuct := order.Status == enums.OrderStatusPaymentFailed

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, orderID,
			[]enums.OrderStatus{order.Status}, enums.OrderStatusConfirmed, tracking, nil)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		if rededuct {
			ledger := s.ledger.WithTx(tx)
			for _, item := range order.Items {
				key := inventory.VariantKey{ProductID: item.ProductID, Size: item.Size, Color: item.Color}
				if err := ledger.SellDirect(ctx, key, item.Qty); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// notification failure must not undo the payment confirmation
	if nerr := s.notify.Record(ctx, nil, order.UserID, enums.NotificationKindOrderConfirmed, order.Reference); nerr != nil {
		s.logg.Error(s.logg.WithOrderRef(ctx, order.Reference), "order confirmation notification failed", nerr)
	}
	return s.repo.FindByID(ctx, orderID)
}

// FailPayment records a failed payment attempt and releases the order's
// inventory so other shoppers can buy it. The order stays visible and
// retryable. Repeat deliveries for an already-failed order are a no-op.
func (s *service) FailPayment(ctx context.Context, orderID uuid.UUID, reason string) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status == enums.OrderStatusPaymentFailed {
		return order, nil
	}
	if order.Status != enums.OrderStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot fail payment for order in status %q", order.Status))
	}

	now := time.Now().UTC()
	message := "Payment failed"
	if reason != "" {
		message = "Payment failed: " + reason
	}
	tracking := append(order.Tracking, models.TrackingUpdate{
		Status:    enums.OrderStatusPaymentFailed,
		Message:   message,
		Timestamp: now,
	})

	err = s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).TransitionStatus(ctx, orderID,
			[]enums.OrderStatus{enums.OrderStatusPending}, enums.OrderStatusPaymentFailed, tracking, nil)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order status changed concurrently")
		}
		ledger := s.ledger.WithTx(tx)
		for _, item := range order.Items {
			key := inventory.VariantKey{ProductID: item.ProductID, Size: item.Size, Color: item.Color}
			if err := ledger.UnwindSale(ctx, key, item.Qty); err != nil {
				return err
			}
		}
		return s.notify.Record(ctx, tx, order.UserID, enums.NotificationKindPaymentFailed, order.Reference)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, orderID)
}

func statusNotification(status enums.OrderStatus) (enums.NotificationKind, bool) {
	switch status {
	case enums.OrderStatusShipped:
		return enums.NotificationKindOrderShipped, true
	case enums.OrderStatusDelivered:
		return enums.NotificationKindOrderDelivered, true
	default:
		return "", false
	}
}

// newReference builds a human-referenceable order number like
// TS-240901-4F2A1C.
func newReference(now time.Time) string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("TS-%s-%s", now.Format("060102"), strings.ToUpper(hex.EncodeToString(buf)))
}
