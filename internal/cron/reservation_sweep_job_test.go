package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

type fakeHoldSource struct {
	batches   [][]models.Reservation
	calls     int
	failIDs   map[uuid.UUID]error
	settledID uuid.UUID
	expired   []uuid.UUID
}

func (f *fakeHoldSource) ListExpired(_ context.Context, _ int) ([]models.Reservation, error) {
	if f.calls >= len(f.batches) {
		return nil, nil
	}
	batch := f.batches[f.calls]
	f.calls++
	return batch, nil
}

func (f *fakeHoldSource) ExpireHold(_ context.Context, row models.Reservation) (bool, error) {
	if err, ok := f.failIDs[row.ID]; ok {
		return false, err
	}
	if row.ID == f.settledID {
		return false, nil
	}
	f.expired = append(f.expired, row.ID)
	return true, nil
}

func hold(userID uuid.UUID) models.Reservation {
	return models.Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		Qty:       1,
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
}

func TestReservationSweepExpiresAllListedHolds(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	source := &fakeHoldSource{
		batches: [][]models.Reservation{{hold(userID), hold(userID), hold(userID)}},
	}
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "cron-test"}),
		Reservations: source,
	})
	require.NoError(t, err)

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, source.expired, 3)
}

func TestReservationSweepContinuesPastFailures(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	bad := hold(userID)
	good := hold(userID)
	settled := hold(userID)
	source := &fakeHoldSource{
		batches:   [][]models.Reservation{{bad, settled, good}},
		failIDs:   map[uuid.UUID]error{bad.ID: errors.New("deadlock")},
		settledID: settled.ID,
	}
	job, err := NewReservationSweepJob(ReservationSweepJobParams{
		Logger:       logger.New(logger.Options{ServiceName: "cron-test"}),
		Reservations: source,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	// the failure is reported but the other holds are still swept
	assert.Equal(t, []uuid.UUID{good.ID}, source.expired)
}

func TestReservationSweepValidatesParams(t *testing.T) {
	t.Parallel()

	_, err := NewReservationSweepJob(ReservationSweepJobParams{
		Reservations: &fakeHoldSource{},
	})
	require.Error(t, err)

	_, err = NewReservationSweepJob(ReservationSweepJobParams{
		Logger: logger.New(logger.Options{ServiceName: "cron-test"}),
	})
	require.Error(t, err)
}
