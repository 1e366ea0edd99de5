package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

func TestRecordAdmission_ClassifiesFailures(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	auction := env.seedAuction(t, domain.TypeEnglish)

	recorder := NewHistoryRecorder(&failingHistoryRepo{}, env.store, env.clock, logger.NewNop())
	bid := domain.Bid{
		ID:        "bid-history-1",
		AuctionID: auction.ID,
		Bidder:    "alice",
		Amount:    110,
		Timestamp: env.clock.Now(),
	}

	err := recorder.RecordAdmission(ctx, auction, bid)
	require.ErrorIs(t, err, domain.ErrDependencyFailure)

	healthy := NewHistoryRecorder(env.store, env.store, env.clock, logger.NewNop())
	require.NoError(t, healthy.RecordAdmission(ctx, auction, bid))
}
