package inventory

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
)

// ItemRequest is one variant + quantity in a multi-item stock operation.
type ItemRequest struct {
	Key VariantKey
	Qty int
}

// Availability is the read-side view of one variant's stock.
type Availability struct {
	ProductID string            `json:"productId"`
	Size      string            `json:"size"`
	Color     string            `json:"color"`
	Quantity  int               `json:"quantity"`
	Reserved  int               `json:"reserved"`
	Available int               `json:"available"`
	Status    enums.StockStatus `json:"status"`
}

// Service exposes stock reads and admin mutations. Checkout flows mutate
// counters through the repository inside their own transactions; this
// service covers the standalone endpoints.
type Service interface {
	GetAvailability(ctx context.Context, key VariantKey) (*Availability, error)
	ListAvailability(ctx context.Context, productID string) ([]Availability, error)
	Restock(ctx context.Context, key VariantKey, delta int) (*Availability, error)
}

type service struct {
	repo         *Repository
	dbClient     *db.Client
	lowThreshold int
}

// NewService constructs the inventory service.
func NewService(repo *Repository, dbClient *db.Client, lowThreshold int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if dbClient == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &service{repo: repo, dbClient: dbClient, lowThreshold: lowThreshold}, nil
}

func (s *service) GetAvailability(ctx context.Context, key VariantKey) (*Availability, error) {
	variant, err := s.repo.GetVariant(ctx, key)
	if err != nil {
		return nil, err
	}
	out := availabilityFor(*variant, s.lowThreshold)
	return &out, nil
}

func (s *service) ListAvailability(ctx context.Context, productID string) ([]Availability, error) {
	id, err := parseProductID(productID)
	if err != nil {
		return nil, err
	}
	variants, err := s.repo.ListVariants(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]Availability, 0, len(variants))
	for _, v := range variants {
		out = append(out, availabilityFor(v, s.lowThreshold))
	}
	return out, nil
}

func (s *service) Restock(ctx context.Context, key VariantKey, delta int) (*Availability, error) {
	err := s.dbClient.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Restock(ctx, key, delta)
	})
	if err != nil {
		return nil, err
	}
	return s.GetAvailability(ctx, key)
}

func availabilityFor(v models.InventoryVariant, lowThreshold int) Availability {
	available := v.Available()
	return Availability{
		ProductID: v.ProductID.String(),
		Size:      v.Size,
		Color:     v.Color,
		Quantity:  v.Quantity,
		Reserved:  v.ReservedQty,
		Available: available,
		Status:    enums.StockStatusFor(available, lowThreshold),
	}
}

func parseProductID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product id")
	}
	return id, nil
}

