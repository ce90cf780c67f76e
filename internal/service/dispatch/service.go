package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dunning-api/internal/email"
	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/reminder"
	"github.com/jwalitptl/dunning-api/internal/repository"
	"github.com/jwalitptl/dunning-api/internal/service/delivery"
	"github.com/jwalitptl/dunning-api/pkg/errors"
	"github.com/jwalitptl/dunning-api/pkg/logger"
	"github.com/jwalitptl/dunning-api/pkg/messaging"
	"github.com/jwalitptl/dunning-api/pkg/metrics"
)

// Config controls batch dispatch throughput.
type Config struct {
	BatchSize   int
	BatchDelay  time.Duration
	SendTimeout time.Duration
}

// Service is the top-level auto-send orchestrator. One RunAutoSendCycle call
// handles one scheduling trigger; concurrent or retried triggers are safe
// because the per-bucket watermark claim is the sole synchronization point.
type Service struct {
	buckets    repository.BucketConfigRepository
	invoices   repository.InvoiceRepository
	customers  repository.CustomerRepository
	tenants    repository.TenantRepository
	campaigns  repository.CampaignRepository
	deliveries repository.DeliveryRepository
	runs       repository.RunRepository
	sender     email.Sender
	tracker    *delivery.Tracker
	broker     messaging.Broker
	priority   *reminder.PriorityEngine
	logger     *logger.Logger
	metrics    *metrics.Metrics
	config     Config
}

func NewService(
	buckets repository.BucketConfigRepository,
	invoices repository.InvoiceRepository,
	customers repository.CustomerRepository,
	tenants repository.TenantRepository,
	campaigns repository.CampaignRepository,
	deliveries repository.DeliveryRepository,
	runs repository.RunRepository,
	sender email.Sender,
	tracker *delivery.Tracker,
	broker messaging.Broker,
	priority *reminder.PriorityEngine,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	config Config,
) *Service {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.BatchDelay <= 0 {
		panic("BatchDelay must be greater than 0")
	}
	if config.SendTimeout <= 0 {
		panic("SendTimeout must be greater than 0")
	}

	return &Service{
		buckets:    buckets,
		invoices:   invoices,
		customers:  customers,
		tenants:    tenants,
		campaigns:  campaigns,
		deliveries: deliveries,
		runs:       runs,
		sender:     sender,
		tracker:    tracker,
		broker:     broker,
		priority:   priority,
		logger:     logger,
		metrics:    metrics,
		config:     config,
	}
}

// RunAutoSendCycle runs one full cycle at the given trigger time. Bucket-level
// failures are recorded on the summary and never abort other buckets.
func (s *Service) RunAutoSendCycle(ctx context.Context, now time.Time) (*model.RunSummary, error) {
	s.metrics.RunsStarted.Inc()
	timer := prometheus.NewTimer(s.metrics.RunDuration)
	defer timer.ObserveDuration()

	summary := &model.RunSummary{
		StartedAt: now,
		Actor:     string(model.ActorFromContext(ctx)),
	}

	configs, err := s.buckets.ListAutoSendEnabled(ctx)
	if err != nil {
		return nil, errors.NewPersistence("list auto-send configs", err)
	}

	for _, cfg := range configs {
		if err := s.processBucket(ctx, cfg, now, summary); err != nil {
			if errors.IsClaimConflict(err) {
				s.metrics.ClaimConflicts.Inc()
				s.logger.Debug("window already claimed",
					"config_id", cfg.ID.String(),
					"bucket", string(cfg.BucketID))
				continue
			}
			summary.AddError(err)
			s.logger.Error(err, "bucket processing failed",
				"config_id", cfg.ID.String(),
				"bucket", string(cfg.BucketID))
		}
	}

	summary.FinishedAt = time.Now()
	if err := s.runs.Create(ctx, summary); err != nil {
		s.logger.Error(err, "failed to record run summary")
	}

	return summary, nil
}

func validateConfig(cfg *model.BucketConfig) error {
	if cfg.SendHour < 0 || cfg.SendHour > 23 {
		return errors.NewValidation(
			fmt.Sprintf("send hour %d out of range for config %s", cfg.SendHour, cfg.ID), nil)
	}
	if len(cfg.SendDays) == 0 {
		return errors.NewValidation(
			fmt.Sprintf("no send days configured for config %s", cfg.ID), nil)
	}
	if !cfg.BucketID.IsValid() {
		return errors.NewValidation(
			fmt.Sprintf("unknown bucket %q for config %s", cfg.BucketID, cfg.ID), nil)
	}
	return nil
}

func (s *Service) processBucket(ctx context.Context, cfg *model.BucketConfig, now time.Time, summary *model.RunSummary) error {
	// Bad configuration is rejected before the claim, never defaulted.
	if err := validateConfig(cfg); err != nil {
		return err
	}

	tenant, err := s.tenants.Get(ctx, cfg.TenantID)
	if err != nil {
		return errors.NewPersistence("get tenant", err)
	}
	loc, err := tenant.Location()
	if err != nil {
		return errors.NewValidation(
			fmt.Sprintf("invalid timezone %q for tenant %s", tenant.Timezone, tenant.ID), err)
	}

	local := now.In(loc)
	if local.Hour() != cfg.SendHour || !cfg.SendDays.Contains(local.Weekday()) {
		return nil
	}

	windowStart := time.Date(local.Year(), local.Month(), local.Day(), local.Hour(), 0, 0, 0, loc)
	if err := s.buckets.Claim(ctx, cfg.ID, now, windowStart); err != nil {
		return err
	}
	s.metrics.BucketsClaimed.Inc()
	summary.BucketsProcessed++

	// From here on the claim is held. A failure leaves the watermark in place;
	// the retry happens at the next natural window (fail closed).
	items, err := s.buildSendList(ctx, tenant, cfg, now, local, summary)
	if err != nil {
		return err
	}

	if len(items) == 0 {
		// An empty cycle still counts as handled for this window.
		s.logger.Debug("no eligible recipients",
			"config_id", cfg.ID.String(),
			"bucket", string(cfg.BucketID))
		return nil
	}

	sent, failed := s.dispatchBatches(ctx, tenant, cfg, items)
	summary.Sent += sent
	summary.Failed += failed

	if err := s.buckets.RecordRunCounts(ctx, cfg.ID, sent, failed); err != nil {
		s.logger.Error(err, "failed to record run counts", "config_id", cfg.ID.String())
	}
	return nil
}

// sendItem pairs a scored, gated candidate with its recipient.
type sendItem struct {
	candidate *model.ConsolidationCandidate
	customer  *model.Customer
}

func (s *Service) buildSendList(
	ctx context.Context,
	tenant *model.Tenant,
	cfg *model.BucketConfig,
	now time.Time,
	local time.Time,
	summary *model.RunSummary,
) ([]*sendItem, error) {
	invoices, err := s.invoices.ListCollectible(ctx, tenant.ID)
	if err != nil {
		return nil, errors.NewPersistence("list invoices", err)
	}

	byCustomer := make(map[uuid.UUID][]*model.Invoice)
	for _, inv := range invoices {
		if reminder.Classify(inv.DueDate, now) == cfg.BucketID {
			byCustomer[inv.CustomerID] = append(byCustomer[inv.CustomerID], inv)
		}
	}

	var items []*sendItem
	for customerID, eligible := range byCustomer {
		customer, err := s.customers.Get(ctx, customerID)
		if err != nil {
			summary.AddError(err)
			s.logger.Error(err, "failed to load customer", "customer_id", customerID.String())
			continue
		}

		since := oldestDueDate(eligible)
		history, err := s.campaigns.History(ctx, tenant.ID, customerID, since)
		if err != nil {
			summary.AddError(err)
			s.logger.Error(err, "failed to load contact history", "customer_id", customerID.String())
			continue
		}

		lastContact := customer.LastContactedAt
		if history.LastContactAt != nil &&
			(lastContact == nil || history.LastContactAt.After(*lastContact)) {
			lastContact = history.LastContactAt
		}

		candidates := reminder.Group(customer, eligible, now)
		for _, candidate := range candidates {
			summary.CandidatesBuilt++
			s.metrics.CandidatesBuilt.Inc()

			s.priority.Evaluate(candidate, history.PriorContacts, history.HighestEscalation)

			gate := reminder.EvaluateGate(reminder.GateInput{
				Now:                    local,
				LastContactedAt:        lastContact,
				MinContactIntervalDays: customer.MinContactIntervalDays,
				BusinessHourStart:      tenant.BusinessHourStart,
				BusinessHourEnd:        tenant.BusinessHourEnd,
				WorkingDays:            tenant.WorkingDays,
			})
			if !gate.Eligible {
				summary.SkippedIneligible++
				s.metrics.GateRejections.WithLabelValues(string(gate.Reason)).Inc()
				s.logger.Debug("candidate gated",
					"customer_id", customerID.String(),
					"reason", string(gate.Reason))
				continue
			}

			items = append(items, &sendItem{candidate: candidate, customer: customer})
		}
	}

	return items, nil
}

func oldestDueDate(invoices []*model.Invoice) time.Time {
	oldest := invoices[0].DueDate
	for _, inv := range invoices[1:] {
		if inv.DueDate.Before(oldest) {
			oldest = inv.DueDate
		}
	}
	return oldest
}

// dispatchBatches sends items in serialized batches with the configured
// inter-batch delay; sends within a batch run concurrently. A recipient
// failure is recorded and never aborts the batch.
func (s *Service) dispatchBatches(ctx context.Context, tenant *model.Tenant, cfg *model.BucketConfig, items []*sendItem) (sent, failed int) {
	actor := model.ActorFromContext(ctx)

	// The limiter starts with one token available; drain it so every
	// inter-batch Wait observes the full configured delay.
	limiter := rate.NewLimiter(rate.Every(s.config.BatchDelay), 1)
	limiter.Reserve()

	for start := 0; start < len(items); start += s.config.BatchSize {
		if start > 0 {
			if err := limiter.Wait(ctx); err != nil {
				s.logger.Error(err, "batch delay interrupted")
				return sent, failed
			}
		}

		end := start + s.config.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		timer := prometheus.NewTimer(s.metrics.BatchSendLatency)

		var mu sync.Mutex
		var wg sync.WaitGroup
		for _, item := range batch {
			wg.Add(1)
			go func(item *sendItem) {
				defer wg.Done()
				if err := s.sendOne(ctx, tenant, cfg, item, actor); err != nil {
					mu.Lock()
					failed++
					mu.Unlock()
					s.metrics.RecipientsFailed.Inc()
					s.logger.Error(err, "send failed",
						"customer_id", item.customer.ID.String())
					return
				}
				mu.Lock()
				sent++
				mu.Unlock()
				s.metrics.RecipientsSent.Inc()
			}(item)
		}
		wg.Wait()
		timer.ObserveDuration()
	}
	return sent, failed
}

func (s *Service) sendOne(ctx context.Context, tenant *model.Tenant, cfg *model.BucketConfig, item *sendItem, actor model.Actor) error {
	candidate := item.candidate

	campaign := &model.ReminderCampaign{
		TenantID:      tenant.ID,
		CustomerID:    candidate.CustomerID,
		BucketID:      cfg.BucketID,
		InvoiceIDs:    model.UUIDList(candidate.InvoiceIDs),
		TotalAmount:   candidate.TotalAmount,
		InvoiceCount:  candidate.InvoiceCount,
		PriorityScore: candidate.PriorityScore,
		Escalation:    candidate.Escalation.String(),
		Reason:        string(candidate.Reason),
		CreatedBy:     string(actor),
	}
	if err := s.campaigns.Create(ctx, campaign); err != nil {
		return errors.NewPersistence("create campaign", err)
	}

	record := &model.DeliveryRecord{
		CampaignID: campaign.ID,
		TenantID:   tenant.ID,
		Recipient:  item.customer.Email,
	}
	if err := s.deliveries.Create(ctx, record); err != nil {
		return errors.NewPersistence("create delivery record", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, s.config.SendTimeout)
	defer cancel()

	messageID, err := s.sender.Send(sendCtx, composeMessage(item))
	if err != nil {
		// A timed-out or failed send is terminal for this run; the invoice
		// stays overdue and is reconsidered next window.
		if markErr := s.deliveries.MarkFailed(ctx, record.ID, err.Error()); markErr != nil {
			s.logger.Error(markErr, "failed to mark delivery failed", "delivery_id", record.ID.String())
		}
		if finErr := s.tracker.FinalizeAfterDispatch(ctx, campaign.ID); finErr != nil {
			s.logger.Error(finErr, "failed to finalize campaign", "campaign_id", campaign.ID.String())
		}
		return err
	}

	// The provider accepted the message. Bookkeeping failures from here on are
	// logged, not returned, so the counts reflect what actually left.
	now := time.Now()
	if err := s.deliveries.MarkSent(ctx, record.ID, messageID, now); err != nil {
		s.logger.Error(err, "failed to mark delivery sent", "delivery_id", record.ID.String())
	}
	if err := s.customers.UpdateLastContacted(ctx, item.customer.ID, now); err != nil {
		s.logger.Error(err, "failed to update last contacted", "customer_id", item.customer.ID.String())
	}
	if err := s.tracker.FinalizeAfterDispatch(ctx, campaign.ID); err != nil {
		s.logger.Error(err, "failed to finalize campaign", "campaign_id", campaign.ID.String())
	}

	if err := s.broker.Publish(ctx, messaging.ChannelCampaignDispatched, map[string]interface{}{
		"campaign_id": campaign.ID,
		"tenant_id":   tenant.ID,
		"customer_id": candidate.CustomerID,
		"escalation":  campaign.Escalation,
		"amount":      campaign.TotalAmount,
	}); err != nil {
		s.logger.Error(err, "failed to publish dispatch event")
	}

	return nil
}

func composeMessage(item *sendItem) *email.Message {
	candidate := item.candidate

	var subject string
	switch candidate.Escalation {
	case model.EscalationFinal:
		subject = fmt.Sprintf("Final notice: %d overdue invoice(s)", candidate.InvoiceCount)
	case model.EscalationUrgent:
		subject = fmt.Sprintf("Urgent: %d overdue invoice(s) require payment", candidate.InvoiceCount)
	case model.EscalationFirm:
		subject = fmt.Sprintf("Reminder: %d invoice(s) past due", candidate.InvoiceCount)
	default:
		subject = fmt.Sprintf("Payment reminder: %d invoice(s) due", candidate.InvoiceCount)
	}

	body := fmt.Sprintf(
		"<p>Dear %s,</p><p>Our records show %d invoice(s) with a total outstanding balance of %.2f, the oldest %d day(s) past due.</p><p>Please arrange payment at your earliest convenience.</p>",
		item.customer.Name,
		candidate.InvoiceCount,
		candidate.TotalAmount,
		candidate.OldestAgeDays,
	)

	return &email.Message{
		To:      item.customer.Email,
		Subject: subject,
		Body:    body,
	}
}
