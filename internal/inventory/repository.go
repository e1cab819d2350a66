package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
)

// VariantKey identifies one (product, size, color) stock row.
type VariantKey struct {
	ProductID uuid.UUID
	Size      string
	Color     string
}

func (k VariantKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ProductID, k.Size, k.Color)
}

// Repository owns every mutation of the stock counters. All mutations are
// guarded single-statement updates so the availability check and the counter
// change land atomically; a zero rows-affected result means the guard failed.
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

// GetVariant loads one stock row.
func (r *Repository) GetVariant(ctx context.Context, key VariantKey) (*models.InventoryVariant, error) {
	var variant models.InventoryVariant
	err := r.db.WithContext(ctx).
		First(&variant, "product_id = ? AND size = ? AND color = ?", key.ProductID, key.Size, key.Color).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory variant not found")
		}
		return nil, err
	}
	return &variant, nil
}

// ListVariants loads all stock rows for a product.
func (r *Repository) ListVariants(ctx context.Context, productID uuid.UUID) ([]models.InventoryVariant, error) {
	var variants []models.InventoryVariant
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("size, color").
		Find(&variants).Error
	if err != nil {
		return nil, err
	}
	return variants, nil
}

// Reserve places a hold on qty units. The guard requires
// quantity - reserved_qty >= qty, so an oversell loses the race instead of
// going negative.
func (r *Repository) Reserve(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "reserve qty must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
UPDATE inventory_variants
SET reserved_qty = reserved_qty + ?, updated_at = CURRENT_TIMESTAMP
WHERE product_id = ? AND size = ? AND color = ?
  AND quantity - reserved_qty >= ?`,
		qty, key.ProductID, key.Size, key.Color, qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for variant %s", key)).
			WithDetails(map[string]any{
				"productId": key.ProductID,
				"size":      key.Size,
				"color":     key.Color,
				"requested": qty,
			})
	}
	return nil
}

// ConfirmSale converts a hold into a sale: quantity and reserved_qty both
// drop by qty, sold_qty grows by qty. The guard requires the hold to still
// be present.
func (r *Repository) ConfirmSale(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "confirm qty must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
UPDATE inventory_variants
SET quantity = quantity - ?, reserved_qty = reserved_qty - ?, sold_qty = sold_qty + ?, updated_at = CURRENT_TIMESTAMP
WHERE product_id = ? AND size = ? AND color = ?
  AND reserved_qty >= ? AND quantity >= ?`,
		qty, qty, qty, key.ProductID, key.Size, key.Color, qty, qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("no matching hold to confirm for variant %s", key))
	}
	return nil
}

// Release drops a hold without selling. The guard keeps reserved_qty from
// going negative when a release races a sweep.
func (r *Repository) Release(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "release qty must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
UPDATE inventory_variants
SET reserved_qty = reserved_qty - ?, updated_at = CURRENT_TIMESTAMP
WHERE product_id = ? AND size = ? AND color = ?
  AND reserved_qty >= ?`,
		qty, key.ProductID, key.Size, key.Color, qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("no matching hold to release for variant %s", key))
	}
	return nil
}

// SellDirect sells without a prior hold (cancel-restore's inverse is not
// needed here; this covers order flows that skip the reservation step).
func (r *Repository) SellDirect(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "sell qty must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
UPDATE inventory_variants
SET quantity = quantity - ?, sold_qty = sold_qty + ?, updated_at = CURRENT_TIMESTAMP
WHERE product_id = ? AND size = ? AND color = ?
  AND quantity - reserved_qty >= ?`,
		qty, qty, key.ProductID, key.Size, key.Color, qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock,
			fmt.Sprintf("insufficient stock for variant %s", key)).
			WithDetails(map[string]any{
				"productId": key.ProductID,
				"size":      key.Size,
				"color":     key.Color,
				"requested": qty,
			})
	}
	return nil
}

// Restock adjusts quantity by delta. Positive deltas add stock, creating
// the row when the variant has never been stocked; negative deltas cover
// manual corrections and are guarded so quantity never drops below the
// outstanding holds.
func (r *Repository) Restock(ctx context.Context, key VariantKey, delta int) error {
	if delta == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restock delta must be non-zero")
	}

	res := r.db.WithContext(ctx).Exec(`
UPDATE inventory_variants
SET quantity = quantity + ?, updated_at = CURRENT_TIMESTAMP
WHERE product_id = ? AND size = ? AND color = ?
  AND quantity + ? >= reserved_qty`,
		delta, key.ProductID, key.Size, key.Color, delta)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if delta > 0 {
			variant := models.InventoryVariant{
				ProductID: key.ProductID,
				Size:      key.Size,
				Color:     key.Color,
				Quantity:  delta,
			}
			return r.db.WithContext(ctx).Create(&variant).Error
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("restock would drop variant %s below its reserved holds", key))
	}
	return nil
}

// UnwindSale reverses a confirmed sale during cancellation: quantity comes
// back and sold_qty drops. Guarded so a double cancel cannot drive sold_qty
// negative.
func (r *Repository) UnwindSale(ctx context.Context, key VariantKey, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "unwind qty must be positive")
	}

	res := r.db.WithContext(ctx).Exec(`
UPDATE inventory_variants
SET quantity = quantity + ?, sold_qty = sold_qty - ?, updated_at = CURRENT_TIMESTAMP
WHERE product_id = ? AND size = ? AND color = ?
  AND sold_qty >= ?`,
		qty, qty, key.ProductID, key.Size, key.Color, qty)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("no matching sale to unwind for variant %s", key))
	}
	return nil
}
