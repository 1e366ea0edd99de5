package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

func TestSweep(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	now := env.clock.Now()

	// Went active but still marked upcoming.
	lateStart := env.seedAuction(t, domain.TypeEnglish, func(a *domain.Auction) {
		a.Status = domain.StatusUpcoming
	})
	// Expired with a bid but still marked active.
	expired := env.seedAuction(t, domain.TypeEnglish)
	_, err := env.engine.PlaceBid(ctx, expired.ID, "alice", 110)
	require.NoError(t, err)
	// Far from its end time; the sweep must not touch it.
	current := env.seedAuction(t, domain.TypeEnglish, func(a *domain.Auction) {
		a.EndTime = now.Add(24 * time.Hour)
	})

	env.clock.Advance(2 * time.Hour)

	sweeper := NewExpirySweeper(env.store, env.winners, nil, env.events, nil, "test-instance", env.clock, time.Minute, logger.NewNop())
	sweeper.Sweep(ctx)

	stored, err := env.store.GetAuction(ctx, lateStart.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusEnded, stored.Status) // its end time passed too

	storedExpired, err := env.store.GetAuction(ctx, expired.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusEnded, storedExpired.Status)

	winner, err := env.store.GetWinner(ctx, expired.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", winner.UserID)

	storedCurrent, err := env.store.GetAuction(ctx, current.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, storedCurrent.Status)

	endedEvents := env.events.byType(domain.EventAuctionEnded)
	require.Len(t, endedEvents, 2)

	// Sweeping again finds nothing lagging and records nothing twice.
	sweeper.Sweep(ctx)
	require.Len(t, env.events.byType(domain.EventAuctionEnded), 2)
}

// failOnceWinnerRepo rejects the first insert and then recovers.
type failOnceWinnerRepo struct {
	domain.WinnerRepository
	failed bool
}

func (r *failOnceWinnerRepo) CreateWinner(ctx context.Context, winner *domain.Winner) error {
	if !r.failed {
		r.failed = true
		return fmt.Errorf("winner store down")
	}
	return r.WinnerRepository.CreateWinner(ctx, winner)
}

func TestSweep_RetriesWinnerRecordingAfterTransientFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)
	_, err := env.engine.PlaceBid(ctx, auction.ID, "alice", 110)
	require.NoError(t, err)

	flaky := &failOnceWinnerRepo{WinnerRepository: env.store}
	recorder := NewWinnerRecorder(env.store, flaky, env.store, nil, env.events, logger.NewNop())
	sweeper := NewExpirySweeper(env.store, recorder, nil, env.events, nil, "test-instance", env.clock, time.Minute, logger.NewNop())

	env.clock.Advance(2 * time.Hour)
	sweeper.Sweep(ctx)

	// The failed insert must leave the stored status lagging so the next
	// sweep finds the auction again.
	_, err = env.store.GetWinner(ctx, auction.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	stored, err := env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.NotEqual(t, domain.StatusEnded, stored.Status)
	require.Empty(t, env.events.byType(domain.EventAuctionEnded))

	sweeper.Sweep(ctx)

	winner, err := env.store.GetWinner(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", winner.UserID)
	stored, err = env.store.GetAuction(ctx, auction.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusEnded, stored.Status)
	require.Len(t, env.events.byType(domain.EventAuctionEnded), 1)
}
