package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/dunning-api/internal/email"
	"github.com/jwalitptl/dunning-api/internal/model"
	"github.com/jwalitptl/dunning-api/internal/reminder"
	"github.com/jwalitptl/dunning-api/internal/repository"
	"github.com/jwalitptl/dunning-api/internal/service/delivery"
	"github.com/jwalitptl/dunning-api/pkg/errors"
	"github.com/jwalitptl/dunning-api/pkg/logger"
	"github.com/jwalitptl/dunning-api/pkg/metrics"
)

// promauto registers on the global registry; create metrics once per binary.
var testMetrics = metrics.New("dispatch_test")

// Tuesday 10:00 UTC.
var tuesday10 = time.Date(2024, 1, 9, 10, 0, 0, 0, time.UTC)

type fakeBucketRepo struct {
	mu      sync.Mutex
	configs map[uuid.UUID]*model.BucketConfig
}

func newFakeBucketRepo() *fakeBucketRepo {
	return &fakeBucketRepo{configs: make(map[uuid.UUID]*model.BucketConfig)}
}

func (r *fakeBucketRepo) Create(_ context.Context, cfg *model.BucketConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cfg.ID == uuid.Nil {
		cfg.ID = uuid.New()
	}
	r.configs[cfg.ID] = cfg
	return nil
}

func (r *fakeBucketRepo) Get(_ context.Context, id uuid.UUID) (*model.BucketConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok {
		return nil, errors.NewNotFound("bucket config", nil)
	}
	return cfg, nil
}

func (r *fakeBucketRepo) List(_ context.Context, tenantID uuid.UUID) ([]*model.BucketConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.BucketConfig
	for _, cfg := range r.configs {
		if cfg.TenantID == tenantID {
			out = append(out, cfg)
		}
	}
	return out, nil
}

func (r *fakeBucketRepo) Update(_ context.Context, cfg *model.BucketConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.configs[cfg.ID] = cfg
	return nil
}

func (r *fakeBucketRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.configs, id)
	return nil
}

func (r *fakeBucketRepo) ListAutoSendEnabled(_ context.Context) ([]*model.BucketConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.BucketConfig
	for _, cfg := range r.configs {
		if cfg.AutoSendEnabled {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// Claim mirrors the conditional-update semantics of the store: check and
// advance the watermark under one lock.
func (r *fakeBucketRepo) Claim(_ context.Context, id uuid.UUID, now, windowStart time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.configs[id]
	if !ok || !cfg.AutoSendEnabled {
		return errors.NewClaimConflict(id.String())
	}
	if cfg.LastAutoSendAt != nil && !cfg.LastAutoSendAt.Before(windowStart) {
		return errors.NewClaimConflict(id.String())
	}
	stamp := now
	cfg.LastAutoSendAt = &stamp
	cfg.TotalRuns++
	return nil
}

func (r *fakeBucketRepo) RecordRunCounts(_ context.Context, id uuid.UUID, sent, failed int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg := r.configs[id]
	cfg.TotalSent += sent
	cfg.TotalFailed += failed
	return nil
}

type fakeInvoiceRepo struct {
	mu       sync.Mutex
	invoices []*model.Invoice
}

func (r *fakeInvoiceRepo) ListCollectible(_ context.Context, tenantID uuid.UUID) ([]*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && inv.Collectible() {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (r *fakeInvoiceRepo) List(_ context.Context, _ *model.InvoiceFilters) ([]*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices, nil
}

type fakeCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*model.Customer
	contacted map[uuid.UUID]time.Time
}

func newFakeCustomerRepo() *fakeCustomerRepo {
	return &fakeCustomerRepo{
		customers: make(map[uuid.UUID]*model.Customer),
		contacted: make(map[uuid.UUID]time.Time),
	}
}

func (r *fakeCustomerRepo) Get(_ context.Context, id uuid.UUID) (*model.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.customers[id]
	if !ok {
		return nil, errors.NewNotFound("customer", nil)
	}
	return c, nil
}

func (r *fakeCustomerRepo) UpdateLastContacted(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacted[id] = at
	c := r.customers[id]
	stamp := at
	c.LastContactedAt = &stamp
	return nil
}

type fakeTenantRepo struct {
	tenant *model.Tenant
}

func (r *fakeTenantRepo) Get(_ context.Context, id uuid.UUID) (*model.Tenant, error) {
	if r.tenant == nil || r.tenant.ID != id {
		return nil, errors.NewNotFound("tenant", nil)
	}
	return r.tenant, nil
}

type fakeCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[uuid.UUID]*model.ReminderCampaign
}

func newFakeCampaignRepo() *fakeCampaignRepo {
	return &fakeCampaignRepo{campaigns: make(map[uuid.UUID]*model.ReminderCampaign)}
}

func (r *fakeCampaignRepo) Create(_ context.Context, c *model.ReminderCampaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.Status = model.CampaignStatusDispatching
	r.campaigns[c.ID] = c
	return nil
}

func (r *fakeCampaignRepo) Get(_ context.Context, id uuid.UUID) (*model.ReminderCampaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.campaigns[id]
	if !ok {
		return nil, errors.NewNotFound("campaign", nil)
	}
	return c, nil
}

func (r *fakeCampaignRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.CampaignStatus, completedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.campaigns[id]
	c.Status = status
	c.CompletedAt = completedAt
	return nil
}

func (r *fakeCampaignRepo) History(_ context.Context, tenantID, customerID uuid.UUID, since time.Time) (*repository.ContactHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	history := &repository.ContactHistory{}
	for _, c := range r.campaigns {
		if c.TenantID != tenantID || c.CustomerID != customerID {
			continue
		}
		if c.Status == model.CampaignStatusFailed || c.CreatedAt.Before(since) {
			continue
		}
		history.PriorContacts++
		if level := model.ParseEscalationLevel(c.Escalation); level > history.HighestEscalation {
			history.HighestEscalation = level
		}
		at := c.CreatedAt
		if history.LastContactAt == nil || at.After(*history.LastContactAt) {
			history.LastContactAt = &at
		}
	}
	return history, nil
}

func (r *fakeCampaignRepo) all() []*model.ReminderCampaign {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.ReminderCampaign
	for _, c := range r.campaigns {
		out = append(out, c)
	}
	return out
}

type fakeDeliveryRepo struct {
	mu           sync.Mutex
	records      map[uuid.UUID]*model.DeliveryRecord
	failMarkSent bool
}

func newFakeDeliveryRepo() *fakeDeliveryRepo {
	return &fakeDeliveryRepo{records: make(map[uuid.UUID]*model.DeliveryRecord)}
}

func (r *fakeDeliveryRepo) Create(_ context.Context, rec *model.DeliveryRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = uuid.New()
	rec.Status = model.DeliveryStatusQueued
	rec.CreatedAt = time.Now()
	r.records[rec.ID] = rec
	return nil
}

func (r *fakeDeliveryRepo) Get(_ context.Context, id uuid.UUID) (*model.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, errors.NewNotFound("delivery record", nil)
	}
	return rec, nil
}

func (r *fakeDeliveryRepo) GetByProviderMessageID(_ context.Context, providerMessageID string) (*model.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.ProviderMessageID != nil && *rec.ProviderMessageID == providerMessageID {
			return rec, nil
		}
	}
	return nil, errors.NewNotFound("delivery record", nil)
}

func (r *fakeDeliveryRepo) ListByCampaign(_ context.Context, campaignID uuid.UUID) ([]*model.DeliveryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DeliveryRecord
	for _, rec := range r.records {
		if rec.CampaignID == campaignID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (r *fakeDeliveryRepo) MarkSent(_ context.Context, id uuid.UUID, providerMessageID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failMarkSent {
		return errors.NewPersistence("mark delivery sent", fmt.Errorf("connection reset"))
	}
	rec := r.records[id]
	if rec.Status != model.DeliveryStatusQueued {
		return errors.NewNotFound("queued delivery record", nil)
	}
	rec.Status = model.DeliveryStatusSent
	rec.ProviderMessageID = &providerMessageID
	rec.SentAt = &at
	return nil
}

func (r *fakeDeliveryRepo) MarkFailed(_ context.Context, id uuid.UUID, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[id]
	rec.Status = model.DeliveryStatusFailed
	rec.ErrorMessage = &errorMessage
	return nil
}

func (r *fakeDeliveryRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.DeliveryStatus, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.records[id]
	rec.Status = status
	if status == model.DeliveryStatusDelivered {
		rec.DeliveredAt = &at
	}
	return nil
}

func (r *fakeDeliveryRepo) DeleteTerminalBefore(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, rec := range r.records {
		if rec.Status.Terminal() && rec.CreatedAt.Before(before) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *fakeDeliveryRepo) all() []*model.DeliveryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DeliveryRecord
	for _, rec := range r.records {
		out = append(out, rec)
	}
	return out
}

type fakeRunRepo struct {
	mu   sync.Mutex
	runs []*model.RunSummary
}

func (r *fakeRunRepo) Create(_ context.Context, summary *model.RunSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, summary)
	return nil
}

func (r *fakeRunRepo) List(_ context.Context, _ int) ([]*model.RunSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs, nil
}

type fakeSender struct {
	mu         sync.Mutex
	sent       []*email.Message
	failAll    bool
	nextSerial int
}

func (s *fakeSender) Send(_ context.Context, msg *email.Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAll {
		return "", errors.NewTransport(msg.To, fmt.Errorf("smtp unavailable"))
	}
	s.sent = append(s.sent, msg)
	s.nextSerial++
	return fmt.Sprintf("msg-%d", s.nextSerial), nil
}

type fakeBroker struct {
	mu        sync.Mutex
	published []string
}

func (b *fakeBroker) Publish(_ context.Context, channel string, _ interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, channel)
	return nil
}

func (b *fakeBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, nil
}

func (b *fakeBroker) Close() error { return nil }

type fixture struct {
	buckets    *fakeBucketRepo
	invoices   *fakeInvoiceRepo
	customers  *fakeCustomerRepo
	tenants    *fakeTenantRepo
	campaigns  *fakeCampaignRepo
	deliveries *fakeDeliveryRepo
	runs       *fakeRunRepo
	sender     *fakeSender
	broker     *fakeBroker
	tenant     *model.Tenant
	svc        *Service
}

// newFixture wires the service against a tenant in UTC with business hours
// 9-18 and working days Sunday through Thursday.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, Config{
		BatchSize:   10,
		BatchDelay:  time.Millisecond,
		SendTimeout: time.Second,
	})
}

func newFixtureWithConfig(t *testing.T, config Config) *fixture {
	t.Helper()

	tenant := &model.Tenant{
		Name:              "Test Tenant",
		Timezone:          "UTC",
		BusinessHourStart: 9,
		BusinessHourEnd:   18,
		WorkingDays: model.WeekdaySet{
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		},
	}
	tenant.ID = uuid.New()

	f := &fixture{
		buckets:    newFakeBucketRepo(),
		invoices:   &fakeInvoiceRepo{},
		customers:  newFakeCustomerRepo(),
		tenants:    &fakeTenantRepo{tenant: tenant},
		campaigns:  newFakeCampaignRepo(),
		deliveries: newFakeDeliveryRepo(),
		runs:       &fakeRunRepo{},
		sender:     &fakeSender{},
		broker:     &fakeBroker{},
		tenant:     tenant,
	}

	appLogger := &logger.Logger{ZL: zerolog.Nop()}
	tracker := delivery.NewTracker(f.deliveries, f.campaigns, f.broker, appLogger, testMetrics)

	f.svc = NewService(
		f.buckets,
		f.invoices,
		f.customers,
		f.tenants,
		f.campaigns,
		f.deliveries,
		f.runs,
		f.sender,
		tracker,
		f.broker,
		reminder.NewPriorityEngine(nil),
		appLogger,
		testMetrics,
		config,
	)
	return f
}

func (f *fixture) addBucketConfig(bucket model.BucketID, sendHour int) *model.BucketConfig {
	cfg := &model.BucketConfig{
		TenantID:        f.tenant.ID,
		BucketID:        bucket,
		AutoSendEnabled: true,
		TemplateID:      uuid.New(),
		SendHour:        sendHour,
		SendDays:        f.tenant.WorkingDays,
	}
	f.buckets.Create(context.Background(), cfg)
	return cfg
}

func (f *fixture) addCustomer(pref model.ConsolidationPreference) *model.Customer {
	c := &model.Customer{
		TenantID:                f.tenant.ID,
		Name:                    "Acme GmbH",
		Email:                   "billing@acme.test",
		ConsolidationPreference: pref,
	}
	c.ID = uuid.New()
	f.customers.customers[c.ID] = c
	return c
}

func (f *fixture) addInvoice(customerID uuid.UUID, daysOverdue int, amount float64) *model.Invoice {
	inv := &model.Invoice{
		TenantID:           f.tenant.ID,
		CustomerID:         customerID,
		Number:             fmt.Sprintf("INV-%s", uuid.NewString()[:8]),
		Currency:           "EUR",
		OutstandingBalance: amount,
		DueDate:            tuesday10.Add(-time.Duration(daysOverdue) * 24 * time.Hour),
		Status:             model.InvoiceStatusOverdue,
	}
	inv.ID = uuid.New()
	f.invoices.invoices = append(f.invoices.invoices, inv)
	return inv
}

func TestRunAutoSendCycleDispatches(t *testing.T) {
	f := newFixture(t)
	cfg := f.addBucketConfig(model.BucketOverdue1To3, 10)

	consolidating := f.addCustomer(model.ConsolidationAlways)
	f.addInvoice(consolidating.ID, 2, 100)
	f.addInvoice(consolidating.ID, 2, 200)
	f.addInvoice(consolidating.ID, 3, 300)

	solo := f.addCustomer(model.ConsolidationNever)
	f.addInvoice(solo.ID, 2, 500)

	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.BucketsProcessed)
	assert.Equal(t, 2, summary.CandidatesBuilt)
	assert.Equal(t, 2, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	assert.Empty(t, summary.Errors)

	campaigns := f.campaigns.all()
	require.Len(t, campaigns, 2)
	byCustomer := make(map[uuid.UUID]*model.ReminderCampaign)
	for _, c := range campaigns {
		byCustomer[c.CustomerID] = c
	}

	merged := byCustomer[consolidating.ID]
	require.NotNil(t, merged)
	assert.Equal(t, 3, merged.InvoiceCount)
	assert.Equal(t, 600.0, merged.TotalAmount)
	assert.Equal(t, string(model.ReasonConsolidatedMulti), merged.Reason)

	single := byCustomer[solo.ID]
	require.NotNil(t, single)
	assert.Equal(t, 1, single.InvoiceCount)
	assert.Equal(t, string(model.ReasonPreferenceNever), single.Reason)

	// Deliveries were marked sent and campaigns finalized.
	for _, rec := range f.deliveries.all() {
		assert.Equal(t, model.DeliveryStatusSent, rec.Status)
		assert.NotNil(t, rec.ProviderMessageID)
	}
	for _, c := range campaigns {
		assert.Equal(t, model.CampaignStatusCompleted, c.Status)
	}

	// Watermark advanced and last-contacted stamps written.
	got, _ := f.buckets.Get(context.Background(), cfg.ID)
	require.NotNil(t, got.LastAutoSendAt)
	assert.Equal(t, tuesday10, *got.LastAutoSendAt)
	assert.Contains(t, f.customers.contacted, consolidating.ID)
	assert.Contains(t, f.customers.contacted, solo.ID)

	assert.Contains(t, f.broker.published, "reminder.campaign.dispatched")

	runs, _ := f.runs.List(context.Background(), 10)
	require.Len(t, runs, 1)
}

func TestRunSkipsOutsideWindow(t *testing.T) {
	f := newFixture(t)
	cfg := f.addBucketConfig(model.BucketOverdue1To3, 10)
	customer := f.addCustomer(model.ConsolidationAlways)
	f.addInvoice(customer.ID, 2, 100)

	// Friday is not a working day for this tenant.
	friday := time.Date(2024, 1, 12, 10, 0, 0, 0, time.UTC)
	summary, err := f.svc.RunAutoSendCycle(context.Background(), friday)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BucketsProcessed)
	assert.Equal(t, 0, summary.Sent)

	// Wrong hour on a working day.
	summary, err = f.svc.RunAutoSendCycle(context.Background(), tuesday10.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.BucketsProcessed)

	got, _ := f.buckets.Get(context.Background(), cfg.ID)
	assert.Nil(t, got.LastAutoSendAt)
	assert.Empty(t, f.campaigns.all())
}

func TestSecondTriggerSameWindowIsNoOp(t *testing.T) {
	f := newFixture(t)
	f.addBucketConfig(model.BucketOverdue1To3, 10)
	customer := f.addCustomer(model.ConsolidationAlways)
	f.addInvoice(customer.ID, 2, 100)

	first, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sent)

	// A retried trigger inside the same hour loses the claim. That is the
	// normal outcome, not an error.
	second, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10.Add(10*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 0, second.BucketsProcessed)
	assert.Equal(t, 0, second.Sent)
	assert.Empty(t, second.Errors)

	assert.Len(t, f.campaigns.all(), 1)
}

func TestConcurrentTriggersSendOnce(t *testing.T) {
	f := newFixture(t)
	f.addBucketConfig(model.BucketOverdue1To3, 10)
	customer := f.addCustomer(model.ConsolidationAlways)
	f.addInvoice(customer.ID, 2, 100)

	var wg sync.WaitGroup
	results := make([]*model.RunSummary, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.svc.RunAutoSendCycle(context.Background(), tuesday10)
		}(i)
	}
	wg.Wait()
	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	totalSent := results[0].Sent + results[1].Sent
	totalProcessed := results[0].BucketsProcessed + results[1].BucketsProcessed
	assert.Equal(t, 1, totalSent)
	assert.Equal(t, 1, totalProcessed)
	assert.Len(t, f.campaigns.all(), 1)
}

func TestMinContactIntervalGatesCandidate(t *testing.T) {
	f := newFixture(t)
	cfg := f.addBucketConfig(model.BucketOverdue1To3, 10)

	customer := f.addCustomer(model.ConsolidationAlways)
	customer.MinContactIntervalDays = 7
	lastContact := tuesday10.Add(-2 * 24 * time.Hour)
	customer.LastContactedAt = &lastContact
	f.addInvoice(customer.ID, 2, 100)

	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.BucketsProcessed)
	assert.Equal(t, 1, summary.CandidatesBuilt)
	assert.Equal(t, 1, summary.SkippedIneligible)
	assert.Equal(t, 0, summary.Sent)
	assert.Empty(t, f.campaigns.all())

	// The gated cycle still consumed its window.
	got, _ := f.buckets.Get(context.Background(), cfg.ID)
	assert.NotNil(t, got.LastAutoSendAt)
}

func TestEmptyCycleStillConsumesWindow(t *testing.T) {
	f := newFixture(t)
	cfg := f.addBucketConfig(model.BucketOverdue1To3, 10)

	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.BucketsProcessed)
	assert.Equal(t, 0, summary.Sent)

	got, _ := f.buckets.Get(context.Background(), cfg.ID)
	require.NotNil(t, got.LastAutoSendAt)
	assert.Equal(t, tuesday10, *got.LastAutoSendAt)
}

func TestBucketFilterExcludesOtherAges(t *testing.T) {
	f := newFixture(t)
	f.addBucketConfig(model.BucketOverdue1To3, 10)

	customer := f.addCustomer(model.ConsolidationAlways)
	f.addInvoice(customer.ID, 2, 100)
	f.addInvoice(customer.ID, 20, 900) // belongs to overdue_15_30

	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Sent)

	campaigns := f.campaigns.all()
	require.Len(t, campaigns, 1)
	assert.Equal(t, 1, campaigns[0].InvoiceCount)
	assert.Equal(t, 100.0, campaigns[0].TotalAmount)
}

func TestInvalidConfigRecordedWithoutClaiming(t *testing.T) {
	f := newFixture(t)
	cfg := f.addBucketConfig(model.BucketOverdue1To3, 10)
	cfg.SendHour = 25

	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.BucketsProcessed)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "send hour")

	// Rejected before the claim: the watermark is untouched.
	got, _ := f.buckets.Get(context.Background(), cfg.ID)
	assert.Nil(t, got.LastAutoSendAt)
}

func TestSendFailureMarksDeliveryAndCampaign(t *testing.T) {
	f := newFixture(t)
	f.addBucketConfig(model.BucketOverdue1To3, 10)
	customer := f.addCustomer(model.ConsolidationAlways)
	f.addInvoice(customer.ID, 2, 100)
	f.sender.failAll = true

	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Sent)
	assert.Equal(t, 1, summary.Failed)

	records := f.deliveries.all()
	require.Len(t, records, 1)
	assert.Equal(t, model.DeliveryStatusFailed, records[0].Status)
	require.NotNil(t, records[0].ErrorMessage)

	campaigns := f.campaigns.all()
	require.Len(t, campaigns, 1)
	assert.Equal(t, model.CampaignStatusFailed, campaigns[0].Status)

	// No contact stamp for a failed send.
	assert.NotContains(t, f.customers.contacted, customer.ID)
}

func TestBatchDelayAppliesBetweenAllBatches(t *testing.T) {
	const delay = 120 * time.Millisecond
	f := newFixtureWithConfig(t, Config{
		BatchSize:   1,
		BatchDelay:  delay,
		SendTimeout: time.Second,
	})
	f.addBucketConfig(model.BucketOverdue1To3, 10)
	for i := 0; i < 3; i++ {
		customer := f.addCustomer(model.ConsolidationAlways)
		f.addInvoice(customer.ID, 2, 100)
	}

	started := time.Now()
	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	elapsed := time.Since(started)

	require.NoError(t, err)
	assert.Equal(t, 3, summary.Sent)

	// Three single-item batches need two full inter-batch delays, including
	// the one between the first and second batch.
	assert.GreaterOrEqual(t, elapsed, 2*delay, "elapsed %v", elapsed)
}

func TestTransportSuccessCountsSentWhenMarkSentFails(t *testing.T) {
	f := newFixture(t)
	f.addBucketConfig(model.BucketOverdue1To3, 10)
	customer := f.addCustomer(model.ConsolidationAlways)
	f.addInvoice(customer.ID, 2, 100)
	f.deliveries.failMarkSent = true

	summary, err := f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)

	// The provider accepted the message; a bookkeeping failure afterwards
	// must not turn the recipient into a failure.
	assert.Equal(t, 1, summary.Sent)
	assert.Equal(t, 0, summary.Failed)
	require.Len(t, f.sender.sent, 1)
	assert.Contains(t, f.customers.contacted, customer.ID)

	campaigns := f.campaigns.all()
	require.Len(t, campaigns, 1)
	assert.Equal(t, model.CampaignStatusCompleted, campaigns[0].Status)
}

func TestRunRecordsActorFromContext(t *testing.T) {
	f := newFixture(t)

	ctx := model.WithActor(context.Background(), model.Actor("manual"))
	summary, err := f.svc.RunAutoSendCycle(ctx, tuesday10)
	require.NoError(t, err)
	assert.Equal(t, "manual", summary.Actor)

	summary, err = f.svc.RunAutoSendCycle(context.Background(), tuesday10)
	require.NoError(t, err)
	assert.Equal(t, string(model.ActorSystem), summary.Actor)
}
