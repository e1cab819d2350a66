package inventory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaghvyas/trystyle-backend/pkg/db"
	"github.com/anaghvyas/trystyle-backend/pkg/enums"
	pkgerrors "github.com/anaghvyas/trystyle-backend/pkg/errors"
)

func TestGetAvailabilityExposesCounters(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), 3)
	require.NoError(t, err)

	key := seedVariant(t, conn, 10, 4, 2)

	out, err := svc.GetAvailability(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, key.ProductID.String(), out.ProductID)
	assert.Equal(t, 10, out.Quantity)
	assert.Equal(t, 4, out.Reserved)
	assert.Equal(t, 6, out.Available)
	assert.Equal(t, enums.StockStatusInStock, out.Status)
}

func TestServiceRestockAppliesSignedDelta(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn), 3)
	require.NoError(t, err)
	ctx := context.Background()

	key := seedVariant(t, conn, 10, 2, 0)

	out, err := svc.Restock(ctx, key, -5)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Quantity)
	assert.Equal(t, 2, out.Reserved)
	assert.Equal(t, 3, out.Available)

	_, err = svc.Restock(ctx, key, -4)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}
