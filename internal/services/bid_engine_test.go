package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

func TestPlaceBid_IncrementEnforcement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	_, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 105)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	require.Contains(t, err.Error(), "110.00")

	bid, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.NoError(t, err)
	require.Equal(t, 110.0, bid.Amount)

	stored, err := env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, 110.0, stored.CurrentBid)
	require.Equal(t, "alice", stored.CurrentHighestBidder)
	require.Len(t, stored.Bids, 1)
	require.Equal(t, int64(1), stored.Version)
}

func TestPlaceBid_IncrementBoundary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	_, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 109.99)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = env.engine.PlaceBid(ctx, auction.ID, "alice", 110.00)
	require.NoError(t, err)
}

func TestPlaceBid_Preconditions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	active := env.seedAuction(t, domain.TypeEnglish)
	upcoming := env.seedAuction(t, domain.TypeEnglish, func(a *domain.Auction) {
		a.StartTime = now.Add(time.Hour)
		a.EndTime = now.Add(2 * time.Hour)
		a.Status = domain.StatusUpcoming
	})
	ended := env.seedAuction(t, domain.TypeEnglish, func(a *domain.Auction) {
		a.StartTime = now.Add(-2 * time.Hour)
		a.EndTime = now.Add(-time.Hour)
	})
	deleted := env.seedAuction(t, domain.TypeEnglish, func(a *domain.Auction) {
		a.Status = domain.StatusDeleted
	})

	tests := []struct {
		name      string
		auctionID string
		bidder    string
		amount    float64
		wantErr   error
	}{
		{name: "unknown_auction", auctionID: "auction-missing", bidder: "alice", amount: 110, wantErr: domain.ErrNotFound},
		{name: "upcoming_auction", auctionID: upcoming.ID, bidder: "alice", amount: 110, wantErr: domain.ErrInvalidState},
		{name: "ended_auction", auctionID: ended.ID, bidder: "alice", amount: 110, wantErr: domain.ErrInvalidState},
		{name: "deleted_auction", auctionID: deleted.ID, bidder: "alice", amount: 110, wantErr: domain.ErrInvalidState},
		{name: "seller_self_bid", auctionID: active.ID, bidder: "seller-1", amount: 110, wantErr: domain.ErrInvalidState},
		{name: "non_positive_amount", auctionID: active.ID, bidder: "alice", amount: 0, wantErr: domain.ErrInvalidInput},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.engine.PlaceBid(ctx, tc.auctionID, tc.bidder, tc.amount)
			require.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestPlaceBid_NoDoubleAdmission(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	const bidders = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0

	wg.Add(bidders)
	for i := 0; i < bidders; i++ {
		go func() {
			defer wg.Done()
			// All contenders target the same amount against the same
			// standing bid; at most one can land.
			if _, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 110); err == nil {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, admitted)

	stored, err := env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bids, 1)
	require.Equal(t, int64(1), stored.Version)
	require.Equal(t, 110.0, stored.CurrentBid)
}

func TestPlaceBid_ConcurrentEscalation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	engine := NewBidEngine(env.store, env.winners, env.history, env.events, env.clock, 50, logger.NewNop())

	const bidders = 10
	var wg sync.WaitGroup
	wg.Add(bidders)
	for i := 0; i < bidders; i++ {
		go func() {
			defer wg.Done()
			// Keep raising until one bid lands.
			for {
				a, err := env.store.GetAuction(ctx, auction.ID)
				if err != nil {
					return
				}
				_, err = engine.PlaceBid(ctx, auction.ID, "alice", a.CurrentBid+a.BidIncrement)
				if err == nil {
					return
				}
			}
		}()
	}
	wg.Wait()

	stored, err := env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bids, bidders)
	require.Equal(t, int64(bidders), stored.Version)

	// The ledger is strictly increasing and the auction tracks its tail.
	prev := stored.StartingPrice
	for _, b := range stored.Bids {
		require.Greater(t, b.Amount, prev)
		prev = b.Amount
	}
	require.Equal(t, prev, stored.CurrentBid)
}

type countingLoserRepo struct {
	domain.AuctionRepository
	mu       sync.Mutex
	attempts int
}

func (r *countingLoserRepo) AppendBid(ctx context.Context, auction *domain.Auction, bid domain.Bid, closeAuction bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts++
	return false, nil
}

func TestPlaceBid_ConflictAfterBoundedRetries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	repo := &countingLoserRepo{AuctionRepository: env.store}
	engine := NewBidEngine(repo, env.winners, env.history, env.events, env.clock, 3, logger.NewNop())

	_, err := engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.ErrorIs(t, err, domain.ErrConflict)
	require.Equal(t, 3, repo.attempts)
}

type loseFirstRepo struct {
	domain.AuctionRepository
	mu   sync.Mutex
	lost bool
}

func (r *loseFirstRepo) AppendBid(ctx context.Context, auction *domain.Auction, bid domain.Bid, closeAuction bool) (bool, error) {
	r.mu.Lock()
	first := !r.lost
	r.lost = true
	r.mu.Unlock()
	if first {
		return false, nil
	}
	return r.AuctionRepository.AppendBid(ctx, auction, bid, closeAuction)
}

func TestPlaceBid_RevalidatesAfterLostRace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	repo := &loseFirstRepo{AuctionRepository: env.store}
	engine := NewBidEngine(repo, env.winners, env.history, env.events, env.clock, 3, logger.NewNop())

	bid, err := engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.NoError(t, err)
	require.Equal(t, 110.0, bid.Amount)

	stored, err := env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bids, 1)
}

func TestPlaceBid_DutchClosesOnFirstAcceptedBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeDutch)

	_, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 99)
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	bid, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 100)
	require.NoError(t, err)

	stored, err := env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, bid.Timestamp, stored.EndTime)
	require.Equal(t, domain.StatusEnded, domain.ResolveStatus(stored, env.clock.Now()))

	// The acceptance already recorded the winner.
	winner, err := env.store.GetWinner(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", winner.UserID)
	require.Equal(t, 100.0, winner.Amount)

	_, err = env.engine.PlaceBid(ctx, auction.ID, "bob", 120)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestPlaceBid_SealedMasksBidEvents(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeSealed, func(a *domain.Auction) {
		a.ReservePrice = 400
	})

	_, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 150)
	require.NoError(t, err)

	events := env.events.byType(domain.EventBidAccepted)
	require.Len(t, events, 1)
	require.Equal(t, auction.ID, events[0].AuctionID)
	require.Empty(t, events[0].UserID)
	require.Zero(t, events[0].Amount)
}

func TestPlaceBid_OpenBidEventsCarryDetails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	_, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.NoError(t, err)

	events := env.events.byType(domain.EventBidAccepted)
	require.Len(t, events, 1)
	require.Equal(t, "alice", events[0].UserID)
	require.Equal(t, 110.0, events[0].Amount)
}

func TestPlaceBid_HistoryFailureDoesNotFailBid(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	history := NewHistoryRecorder(&failingHistoryRepo{}, env.store, env.clock, logger.NewNop())
	engine := NewBidEngine(env.store, env.winners, history, env.events, env.clock, 5, logger.NewNop())

	bid, err := engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.NoError(t, err)
	require.NotNil(t, bid)

	stored, err := env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Len(t, stored.Bids, 1)
}

func TestPlaceBid_RecordsBothHistoryViews(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	_, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.NoError(t, err)

	participated, err := env.store.ListParticipatedByBidder(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, participated, 1)
	require.Equal(t, auction.ID, participated[0].AuctionID)
	require.Equal(t, auction.Title, participated[0].AuctionTitle)
	require.Equal(t, "alice@example.com", participated[0].BidderEmail)
	require.Equal(t, 110.0, participated[0].Amount)

	created, err := env.store.ListCreatedBySeller(ctx, "seller-1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, "alice", created[0].Bidder)
}

func TestPlaceBid_LedgerTimestampsNeverGoBackwards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	first, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.NoError(t, err)

	// The wall clock jumps backwards between bids.
	env.clock.Set(first.Timestamp.Add(-10 * time.Minute))

	second, err := env.engine.PlaceBid(ctx, auction.ID, "bob", 120)
	require.NoError(t, err)
	require.False(t, second.Timestamp.Before(first.Timestamp))
}
