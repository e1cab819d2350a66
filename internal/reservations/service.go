package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/internal/inventory"
	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

// CartItem is one variant + quantity a shopper wants held.
type CartItem struct {
	ProductID uuid.UUID `json:"productId"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Qty       int       `json:"qty"`
}

// Key returns the inventory variant key for the item.
func (i CartItem) Key() inventory.VariantKey {
	return inventory.VariantKey{ProductID: i.ProductID, Size: i.Size, Color: i.Color}
}

// HoldDTO is the API view of a reservation row.
type HoldDTO struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"productId"`
	Size      string    `json:"size"`
	Color     string    `json:"color"`
	Qty       int       `json:"qty"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Service is the single owner of hold lifecycles: every hold it places is
// later confirmed, released, or expired exactly once, and the ledger
// counters move in the same transaction as the status flip.
type Service interface {
	ReserveCart(ctx context.Context, userID uuid.UUID, items []CartItem) ([]HoldDTO, error)
	Confirm(ctx context.Context, userID, orderID uuid.UUID, items []CartItem) error
	ConfirmForOrder(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, items []CartItem) error
	Release(ctx context.Context, userID, reservationID uuid.UUID) error
	ListActive(ctx context.Context, userID uuid.UUID) ([]HoldDTO, error)
	ListExpired(ctx context.Context, limit int) ([]models.Reservation, error)
	ExpireHold(ctx context.Context, row models.Reservation) (bool, error)
}

type service struct {
	repo     *Repository
	ledger   *inventory.Repository
	dbClient *db.Client
	logg     *logger.Logger
	ttl      time.Duration
}

// NewService constructs the reservation service.
func NewService(repo *Repository, ledger *inventory.Repository, dbClient *db.Client, logg *logger.Logger, ttl time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reservation repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("reservation ttl must be positive")
	}
	return &service{repo: repo, ledger: ledger, dbClient: dbClient, logg: logg, ttl: ttl}, nil
}

// ReserveCart places a hold on every item or none of them. Each item's
// availability check and counter bump is a single guarded update, so two
// shoppers racing for the last unit cannot both win. Every item is
// attempted even after a shortage so the error lists the full set of
// unavailable variants.
func (s *service) ReserveCart(ctx context.Context, userID uuid.UUID, items []CartItem) ([]HoldDTO, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	expiresAt := now.Add(s.ttl)

	rows := make([]models.Reservation, 0, len(items))
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ledger := s.ledger.WithTx(tx)
		var unavailable []map[string]any
		for _, item := range items {
			err := ledger.Reserve(ctx, item.Key(), item.Qty)
			if err == nil {
				rows = append(rows, models.Reservation{
					ID:        uuid.New(),
					UserID:    userID,
					ProductID: item.ProductID,
					Size:      item.Size,
					Color:     item.Color,
					Qty:       item.Qty,
					Status:    enums.ReservationStatusReserved,
					ExpiresAt: expiresAt,
				})
				continue
			}
			if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
				return err
			}
			unavailable = append(unavailable, map[string]any{
				"productId": item.ProductID,
				"size":      item.Size,
				"color":     item.Color,
				"requested": item.Qty,
				"available": s.availableFor(ctx, ledger, item),
			})
		}
		if len(unavailable) > 0 {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock,
				fmt.Sprintf("insufficient stock for %d item(s)", len(unavailable))).
				WithDetails(map[string]any{"unavailableItems": unavailable})
		}
		return s.repo.WithTx(tx).CreateBatch(ctx, rows)
	})
	if err != nil {
		return nil, err
	}

	out := make([]HoldDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, holdDTO(row))
	}
	return out, nil
}

// Confirm runs ConfirmForOrder in its own transaction.
func (s *service) Confirm(ctx context.Context, userID, orderID uuid.UUID, items []CartItem) error {
	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ConfirmForOrder(ctx, tx, userID, orderID, items)
	})
}

// ConfirmForOrder consumes the user's active holds for the given items as
// part of the caller's order transaction. A missing or expired hold fails
// the whole confirmation.
func (s *service) ConfirmForOrder(ctx context.Context, tx *gorm.DB, userID, orderID uuid.UUID, items []CartItem) error {
	if tx == nil {
		return fmt.Errorf("transaction required")
	}
	if err := validateItems(items); err != nil {
		return err
	}

	now := time.Now().UTC()
	repo := s.repo.WithTx(tx)
	ledger := s.ledger.WithTx(tx)

	for _, item := range items {
		ok, err := repo.ConfirmMatching(ctx, userID, item.ProductID, item.Size, item.Color, item.Qty, orderID, now)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeReservationExpired,
				fmt.Sprintf("no active hold for variant %s", item.Key())).
				WithDetails(map[string]any{
					"productId": item.ProductID,
					"size":      item.Size,
					"color":     item.Color,
					"qty":       item.Qty,
				})
		}
		if err := ledger.ConfirmSale(ctx, item.Key(), item.Qty); err != nil {
			return err
		}
	}
	return nil
}

// Release drops one of the user's holds and hands the units back. A hold
// that already settled (confirmed, released, or swept) is skipped, so
// releasing a cart's id list tolerates partially stale entries.
func (s *service) Release(ctx context.Context, userID, reservationID uuid.UUID) error {
	row, err := s.repo.FindByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "reservation not found")
		}
		return err
	}
	if row.UserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "reservation belongs to another user")
	}

	return s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).MarkReleased(ctx, row.ID)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		key := inventory.VariantKey{ProductID: row.ProductID, Size: row.Size, Color: row.Color}
		return s.ledger.WithTx(tx).Release(ctx, key, row.Qty)
	})
}

// ListActive returns the user's live holds.
func (s *service) ListActive(ctx context.Context, userID uuid.UUID) ([]HoldDTO, error) {
	rows, err := s.repo.ListActiveForUser(ctx, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	out := make([]HoldDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, holdDTO(row))
	}
	return out, nil
}

// ExpireHold transitions one past-due hold to expired and restores its
// units. Called by the sweep job; returns false when another path already
// settled the row.
func (s *service) ExpireHold(ctx context.Context, row models.Reservation) (bool, error) {
	var swept bool
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.repo.WithTx(tx).MarkExpired(ctx, row.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		swept = true
		key := inventory.VariantKey{ProductID: row.ProductID, Size: row.Size, Color: row.Color}
		return s.ledger.WithTx(tx).Release(ctx, key, row.Qty)
	})
	if err != nil {
		return false, err
	}
	return swept, nil
}

// ListExpired exposes the sweep read path.
func (s *service) ListExpired(ctx context.Context, limit int) ([]models.Reservation, error) {
	return s.repo.ListExpired(ctx, time.Now().UTC(), limit)
}

// availableFor reads the sellable count for the shortage report; a missing
// variant row counts as zero.
func (s *service) availableFor(ctx context.Context, ledger *inventory.Repository, item CartItem) int {
	variant, err := ledger.GetVariant(ctx, item.Key())
	if err != nil {
		return 0
	}
	return variant.Available()
}

func validateItems(items []CartItem) error {
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "item product id is required")
		}
		if item.Size == "" || item.Color == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item size and color are required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item qty must be positive")
		}
	}
	return nil
}

func holdDTO(row models.Reservation) HoldDTO {
	return HoldDTO{
		ID:        row.ID,
		ProductID: row.ProductID,
		Size:      row.Size,
		Color:     row.Color,
		Qty:       row.Qty,
		Status:    row.Status.String(),
		ExpiresAt: row.ExpiresAt,
	}
}
