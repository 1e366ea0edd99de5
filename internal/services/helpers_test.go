package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction-marketplace/internal/domain"
	"auction-marketplace/internal/infrastructure/memory"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type capturePublisher struct {
	mu     sync.Mutex
	events []*domain.AuctionEvent
}

func (p *capturePublisher) PublishEvent(ctx context.Context, event *domain.AuctionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) byType(eventType domain.AuctionEventType) []*domain.AuctionEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []*domain.AuctionEvent
	for _, e := range p.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type testEnv struct {
	store   *memory.Store
	clock   *fakeClock
	events  *capturePublisher
	winners *WinnerRecorder
	history *HistoryRecorder
	engine  *BidEngine
	manager *AuctionManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	clock := newFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	events := &capturePublisher{}
	log := logger.NewNop()

	for _, u := range []domain.UserContact{
		{ID: "seller-1", FullName: "Sam Seller", Email: "sam@example.com", Phone: "111"},
		{ID: "alice", FullName: "Alice Archer", Email: "alice@example.com", Phone: "222"},
		{ID: "bob", FullName: "Bob Brook", Email: "bob@example.com", Phone: "333"},
		{ID: "carol", FullName: "Carol Chase", Email: "carol@example.com", Phone: "444"},
	} {
		store.AddUser(u)
	}

	winners := NewWinnerRecorder(store, store, store, nil, events, log)
	history := NewHistoryRecorder(store, store, clock, log)
	engine := NewBidEngine(store, winners, history, events, clock, 5, log)
	manager := NewAuctionManager(store, winners, store, store, nil, events, clock, log)

	return &testEnv{
		store:   store,
		clock:   clock,
		events:  events,
		winners: winners,
		history: history,
		engine:  engine,
		manager: manager,
	}
}

// seedAuction stores an auction that went active an hour ago and runs for
// another hour, then applies the mutators.
func (env *testEnv) seedAuction(t *testing.T, auctionType domain.AuctionType, mutate ...func(*domain.Auction)) *domain.Auction {
	t.Helper()

	now := env.clock.Now()
	a := &domain.Auction{
		ID:                utils.GenerateID("auction"),
		Code:              utils.GenerateID("code"),
		ParticipationCode: utils.GenerateID("join"),
		Title:             "Vintage Camera",
		Description:       "A 1960s rangefinder in working order",
		Category:          "collectibles",
		Currency:          "USD",
		Type:              auctionType,
		StartingPrice:     100,
		CurrentBid:        100,
		BidIncrement:      10,
		StartTime:         now.Add(-time.Hour),
		EndTime:           now.Add(time.Hour),
		Seller:            "seller-1",
		Status:            domain.StatusActive,
		CreatedAt:         now.Add(-2 * time.Hour),
		UpdatedAt:         now.Add(-2 * time.Hour),
	}
	for _, m := range mutate {
		m(a)
	}
	require.NoError(t, env.store.CreateAuction(context.Background(), a))
	return a
}

// failingHistoryRepo rejects every write.
type failingHistoryRepo struct {
	domain.BidHistoryRepository
}

func (r *failingHistoryRepo) AppendParticipated(ctx context.Context, entry domain.ParticipatedBid) error {
	return fmt.Errorf("history store down")
}

func (r *failingHistoryRepo) AppendCreated(ctx context.Context, entry domain.CreatedBid) error {
	return fmt.Errorf("history store down")
}
