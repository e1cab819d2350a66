package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
)

// Repository persists payment intents and refunds.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	if err := r.db.WithContext(ctx).Create(intent).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	return nil
}

func (r *Repository) FindIntentByID(ctx context.Context, id uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).First(&intent, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find payment intent")
	}
	return &intent, nil
}

// FindIntentByGatewayOrderID resolves the intent a gateway callback refers to.
func (r *Repository) FindIntentByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		First(&intent, "gateway_order_id = ?", gatewayOrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment intent not found").
				WithDetails(map[string]any{"gatewayOrderId": gatewayOrderID})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find payment intent")
	}
	return &intent, nil
}

// FindCompletedIntentByOrder returns the settled intent for an order, if any.
func (r *Repository) FindCompletedIntentByOrder(ctx context.Context, orderID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, enums.PaymentStatusCompleted).
		First(&intent).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find completed intent")
	}
	return &intent, nil
}

// SupersedeOpen marks every non-terminal intent for the order as superseded
// so that at most one intent is live when a new one is issued.
func (r *Repository) SupersedeOpen(ctx context.Context, orderID uuid.UUID) error {
	err := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("order_id = ? AND status IN ?", orderID, []enums.PaymentStatus{
			enums.PaymentStatusCreated,
			enums.PaymentStatusPending,
			enums.PaymentStatusFailed,
		}).
		Update("status", enums.PaymentStatusSuperseded).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede payment intents")
	}
	return nil
}

// MarkCompleted settles an intent. The guard makes duplicate gateway
// callbacks no-ops; the bool reports whether this call did the settling.
func (r *Repository) MarkCompleted(ctx context.Context, intentID uuid.UUID, paymentID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ? AND status IN ?", intentID, []enums.PaymentStatus{
			enums.PaymentStatusCreated,
			enums.PaymentStatusPending,
			enums.PaymentStatusFailed,
		}).
		Updates(map[string]any{
			"status":       enums.PaymentStatusCompleted,
			"payment_id":   paymentID,
			"completed_at": now,
		})
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "complete payment intent")
	}
	return result.RowsAffected > 0, nil
}

// MarkFailed records a gateway failure. Terminal intents are left alone.
func (r *Repository) MarkFailed(ctx context.Context, intentID uuid.UUID, reason string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("id = ? AND status IN ?", intentID, []enums.PaymentStatus{
			enums.PaymentStatusCreated,
			enums.PaymentStatusPending,
		}).
		Updates(map[string]any{
			"status":         enums.PaymentStatusFailed,
			"failure_reason": reason,
		})
	if result.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "fail payment intent")
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) CreateRefund(ctx context.Context, refund *models.Refund) error {
	if err := r.db.WithContext(ctx).Create(refund).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create refund")
	}
	return nil
}

// SumRefunded totals prior refunds for an order.
func (r *Repository) SumRefunded(ctx context.Context, orderID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Refund{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(amount_paise), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum refunds")
	}
	return total, nil
}
