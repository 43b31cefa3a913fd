package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"adslot-market/internal/database"
	"adslot-market/internal/metrics"
	"adslot-market/internal/models"
	"adslot-market/internal/notify"
	"adslot-market/internal/payments"
	"adslot-market/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "test.db"), logger.Discard)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// fakeIssuer returns a deterministic link per proposal
type fakeIssuer struct {
	mu        sync.Mutex
	requests  []payments.PaymentLinkRequest
	cancelled []string
	err       error
	block     chan struct{}
	// onIssue runs once, during the next link request
	onIssue func()
}

func (f *fakeIssuer) CreatePaymentLink(ctx context.Context, req payments.PaymentLinkRequest) (*payments.PaymentLink, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	err := f.err
	hook := f.onIssue
	f.onIssue = nil
	f.mu.Unlock()

	if hook != nil {
		hook()
	}

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	return &payments.PaymentLink{
		ID:                "cs_" + req.ProposalID.String(),
		URL:               "https://pay.example.com/" + req.ProposalID.String(),
		ExpiresAt:         baseTime.Add(24 * time.Hour),
		MerchantAccountID: req.MerchantAccountID,
	}, nil
}

func (f *fakeIssuer) CancelPaymentLink(_ context.Context, link *payments.PaymentLink) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, link.ID)
	return nil
}

func (f *fakeIssuer) cancelledLinks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancelled...)
}

func (f *fakeIssuer) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

// fakeDispatcher records messages synchronously
type fakeDispatcher struct {
	mu       sync.Mutex
	messages []notify.Message
}

func (f *fakeDispatcher) Dispatch(_ context.Context, msg notify.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeDispatcher) ofKind(kind notify.Kind) []notify.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notify.Message
	for _, m := range f.messages {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

type fakeTokens struct{}

func (fakeTokens) GenerateProposalAccessToken(proposalID uuid.UUID) (string, time.Time, error) {
	return "token-" + proposalID.String(), baseTime.Add(time.Hour), nil
}

type fakeThrottle struct {
	seen map[string]bool
	err  error
}

func (f *fakeThrottle) Allow(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if f.seen[key] {
		return false, nil
	}
	f.seen[key] = true
	return true, nil
}

// clock is a settable time source
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: baseTime}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	db         *gorm.DB
	repo       *repository.Repository
	clock      *clock
	issuer     *fakeIssuer
	dispatcher *fakeDispatcher
	throttle   *fakeThrottle
	metrics    *metrics.Metrics
	slots      *SlotService
	proposals  *ProposalService
	access     *AccessService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	env := &testEnv{
		db:         db,
		repo:       repo,
		clock:      newClock(),
		issuer:     &fakeIssuer{},
		dispatcher: &fakeDispatcher{},
		throttle:   &fakeThrottle{seen: make(map[string]bool)},
		metrics:    metrics.New(prometheus.NewRegistry()),
	}

	log := zap.NewNop()
	env.slots = NewSlotService(repo, repo, env.dispatcher, env.metrics, log, 100)
	env.slots.now = env.clock.Now

	env.proposals = NewProposalService(repo, repo, env.issuer, env.dispatcher, env.metrics, log,
		"https://app.example.com/", 2*time.Second)
	env.proposals.now = env.clock.Now

	env.access = NewAccessService(repo, fakeTokens{}, env.throttle, env.dispatcher, log,
		15*time.Minute, time.Minute)
	env.access.now = env.clock.Now

	return env
}

type owner struct {
	user *models.User
	page *models.Page
}

func (e *testEnv) seedOwner(t *testing.T, withMerchant bool) owner {
	t.Helper()

	user := &models.User{Email: uuid.NewString() + "@owner.example.com", Nickname: "owner"}
	require.NoError(t, e.db.Create(user).Error)

	page := &models.Page{ID: uuid.New(), UserID: user.ID, Slug: uuid.NewString()}
	if withMerchant {
		page.StripeAccountID = stringPtr("acct_" + uuid.NewString()[:8])
	}
	require.NoError(t, e.db.Create(page).Error)

	return owner{user: user, page: page}
}

func (e *testEnv) seedCompanyUser(t *testing.T) (*models.User, *models.Company) {
	t.Helper()

	user := &models.User{Email: uuid.NewString() + "@brand.example.com", Nickname: "brand"}
	require.NoError(t, e.db.Create(user).Error)

	company := &models.Company{ID: uuid.New(), UserID: user.ID, Name: "Acme", Email: "ads@acme.example.com"}
	require.NoError(t, e.db.Create(company).Error)

	return user, company
}

func (e *testEnv) seedSlot(t *testing.T, o owner, priceMin, priceMax int64) *models.Slot {
	t.Helper()

	slot, err := e.slots.CreateSlot(context.Background(), o.user.ID, &models.CreateSlotRequest{
		PageID:       o.page.ID.String(),
		Name:         "Top banner",
		PriceMin:     decimal.NewFromInt(priceMin),
		PriceMax:     decimal.NewFromInt(priceMax),
		DurationDays: 30,
	})
	require.NoError(t, err)
	return slot
}

func testCreative() models.CreativePayload {
	return models.CreativePayload{Creative: models.CardCreative{CreativeFields: models.CreativeFields{
		Title:   "Try Acme",
		LinkURL: "https://acme.example.com",
	}}}
}

func (e *testEnv) seedGuestProposal(t *testing.T, slotID uuid.UUID, price int64) *models.Proposal {
	t.Helper()

	proposal, err := e.proposals.CreateProposal(context.Background(), slotID, 0, &models.CreateProposalRequest{
		ProposedPrice: decimal.NewFromInt(price),
		Content:       testCreative(),
		GuestName:     "Guest",
		GuestEmail:    "guest-" + uuid.NewString()[:8] + "@example.com",
	})
	require.NoError(t, err)
	return proposal
}

func (e *testEnv) reloadSlot(t *testing.T, id uuid.UUID) *models.Slot {
	t.Helper()
	slot, err := e.repo.GetSlotByID(context.Background(), id)
	require.NoError(t, err)
	return slot
}

func (e *testEnv) reloadProposal(t *testing.T, id uuid.UUID) *models.Proposal {
	t.Helper()
	proposal, err := e.repo.GetProposalByID(context.Background(), id)
	require.NoError(t, err)
	return proposal
}

// liveProposalCount counts proposals of a slot in active or in_progress
func (e *testEnv) liveProposalCount(t *testing.T, slotID uuid.UUID) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&models.Proposal{}).
		Where("slot_id = ? AND status IN ?", slotID, models.LiveProposalStatuses).
		Count(&n).Error)
	return n
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var se *ServiceError
	require.True(t, errors.As(err, &se), "expected ServiceError, got %T: %v", err, err)
	require.Equal(t, kind, se.Kind, "unexpected kind for %v", err)
}
