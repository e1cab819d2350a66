package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/anaghvyas/trystyle-backend/pkg/db/models"
	"github.com/anaghvyas/trystyle-backend/pkg/logger"
)

const defaultSweepBatchSize = 500

type expiredHoldSource interface {
	ListExpired(ctx context.Context, limit int) ([]models.Reservation, error)
	ExpireHold(ctx context.Context, row models.Reservation) (bool, error)
}

// ReservationSweepJobParams configure the expired-hold sweeper.
type ReservationSweepJobParams struct {
	Logger       *logger.Logger
	Reservations expiredHoldSource
	BatchSize    int
}

// NewReservationSweepJob builds the job that expires past-due stock holds
// and returns their units to availability.
func NewReservationSweepJob(params ReservationSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reservations == nil {
		return nil, fmt.Errorf("reservation service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &reservationSweepJob{
		logg:         params.Logger,
		reservations: params.Reservations,
		batchSize:    batchSize,
	}, nil
}

type reservationSweepJob struct {
	logg         *logger.Logger
	reservations expiredHoldSource
	batchSize    int
}

func (j *reservationSweepJob) Name() string { return "reservation-sweep" }

// Run drains expired holds in batches. Each hold settles independently so a
// conflicting concurrent release never blocks the rest of the batch, and a
// hold that raced to a settled state counts as skipped rather than failed.
func (j *reservationSweepJob) Run(ctx context.Context) error {
	var (
		expired int
		skipped int
		errs    []error
	)

	for {
		rows, err := j.reservations.ListExpired(ctx, j.batchSize)
		if err != nil {
			errs = append(errs, fmt.Errorf("list expired holds: %w", err))
			break
		}
		if len(rows) == 0 {
			break
		}

		progressed := false
		for _, row := range rows {
			swept, err := j.reservations.ExpireHold(ctx, row)
			if err != nil {
				errs = append(errs, fmt.Errorf("expire hold %s: %w", row.ID, err))
				continue
			}
			progressed = true
			if swept {
				expired++
			} else {
				skipped++
			}
		}
		if !progressed || len(rows) < j.batchSize {
			break
		}
	}

	runCtx := j.logg.WithFields(ctx, map[string]any{
		"expired": expired,
		"skipped": skipped,
	})
	j.logg.Info(runCtx, "reservation sweep finished")
	return multierr.Combine(errs...)
}
