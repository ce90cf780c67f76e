package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/repository"
	"github.com/jwalitptl/dunning-api/pkg/errors"
	"github.com/jwalitptl/dunning-api/pkg/logger"
	"github.com/jwalitptl/dunning-api/pkg/messaging"
	"github.com/jwalitptl/dunning-api/pkg/metrics"
)

// Tracker owns the per-recipient delivery state machine and campaign
// finalization. Provider callbacks arrive asynchronously and out of order;
// only legal transitions are applied.
type Tracker struct {
	deliveries repository.DeliveryRepository
	campaigns  repository.CampaignRepository
	broker     messaging.Broker
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewTracker(
	deliveries repository.DeliveryRepository,
	campaigns repository.CampaignRepository,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Tracker {
	return &Tracker{
		deliveries: deliveries,
		campaigns:  campaigns,
		broker:     broker,
		logger:     logger,
		metrics:    metrics,
	}
}

func statusForEvent(event string) (model.DeliveryStatus, error) {
	switch event {
	case "delivered":
		return model.DeliveryStatusDelivered, nil
	case "bounced":
		return model.DeliveryStatusBounced, nil
	case "failed":
		return model.DeliveryStatusFailed, nil
	case "opened":
		return model.DeliveryStatusOpened, nil
	case "clicked":
		return model.DeliveryStatusClicked, nil
	}
	return "", errors.NewValidation(fmt.Sprintf("unknown delivery event %q", event), nil)
}

// ApplyCallback processes one provider delivery event.
func (t *Tracker) ApplyCallback(ctx context.Context, event *model.DeliveryEvent) error {
	next, err := statusForEvent(event.Event)
	if err != nil {
		return err
	}

	rec, err := t.deliveries.GetByProviderMessageID(ctx, event.ProviderMessageID)
	if err != nil {
		return err
	}

	if !rec.Status.CanTransition(next) {
		t.metrics.InvalidTransitions.Inc()
		t.logger.Warn("rejected delivery transition",
			"delivery_id", rec.ID.String(),
			"from", string(rec.Status),
			"to", string(next))
		return errors.NewValidation(
			fmt.Sprintf("illegal transition %s -> %s", rec.Status, next), nil)
	}

	at := event.OccurredAt
	if at.IsZero() {
		at = time.Now()
	}
	if err := t.deliveries.UpdateStatus(ctx, rec.ID, next, at); err != nil {
		return err
	}
	t.metrics.DeliveryEvents.WithLabelValues(event.Event).Inc()

	if err := t.broker.Publish(ctx, messaging.ChannelDeliveryUpdated, map[string]interface{}{
		"delivery_id": rec.ID,
		"campaign_id": rec.CampaignID,
		"status":      next,
	}); err != nil {
		t.logger.Error(err, "failed to publish delivery event")
	}

	return t.finalizeIfComplete(ctx, rec.CampaignID)
}

// FinalizeAfterDispatch closes a campaign once the batch loop has exhausted
// its recipients. Recipients still in flight (SENT) do not block completion.
func (t *Tracker) FinalizeAfterDispatch(ctx context.Context, campaignID uuid.UUID) error {
	records, err := t.deliveries.ListByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}
	return t.finalize(ctx, campaignID, records, true)
}

func (t *Tracker) finalizeIfComplete(ctx context.Context, campaignID uuid.UUID) error {
	records, err := t.deliveries.ListByCampaign(ctx, campaignID)
	if err != nil {
		return err
	}

	for _, rec := range records {
		if !rec.Status.Terminal() {
			return nil
		}
	}
	return t.finalize(ctx, campaignID, records, false)
}

func (t *Tracker) finalize(ctx context.Context, campaignID uuid.UUID, records []*model.DeliveryRecord, exhausted bool) error {
	if len(records) == 0 {
		return nil
	}

	allFailed := true
	for _, rec := range records {
		if !rec.Status.Failed() {
			allFailed = false
			break
		}
	}

	status := model.CampaignStatusCompleted
	if allFailed {
		status = model.CampaignStatusFailed
	}

	now := time.Now()
	if err := t.campaigns.UpdateStatus(ctx, campaignID, status, &now); err != nil {
		return err
	}
	t.metrics.CampaignsFinalized.WithLabelValues(string(status)).Inc()
	t.logger.Debug("campaign finalized",
		"campaign_id", campaignID.String(),
		"status", string(status),
		"exhausted", exhausted)
	return nil
}
