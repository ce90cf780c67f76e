package worker

import (
	"context"
	"time"

	"github.com/jwalitptl/dunning-api/internal/repository"
	"github.com/jwalitptl/dunning-api/pkg/logger"
)

// RetentionWorker periodically deletes delivery records that reached a
// terminal state long ago. Campaign rows are kept; they drive the escalation
// ratchet.
type RetentionWorker struct {
	deliveries    repository.DeliveryRepository
	retentionDays int
	sweepInterval time.Duration
	logger        *logger.Logger
}

func NewRetentionWorker(deliveries repository.DeliveryRepository, retentionDays int, sweepInterval time.Duration, logger *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		deliveries:    deliveries,
		retentionDays: retentionDays,
		sweepInterval: sweepInterval,
		logger:        logger,
	}
}

func (w *RetentionWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error(err, "delivery record sweep failed")
			}
		}
	}
}

func (w *RetentionWorker) sweep(ctx context.Context) error {
	cutoff := time.Now().AddDate(0, 0, -w.retentionDays)

	rows, err := w.deliveries.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return err
	}

	w.logger.Info("swept old delivery records", "deleted", rows, "cutoff", cutoff)
	return nil
}
