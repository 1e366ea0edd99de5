package services

import (
	"context"
	"fmt"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// BidEngine validates and admits bids against an auction's pricing state.
// Admission is a compare-and-swap on the auction's version: two bids validated
// against the same state can never both land, and a loser re-validates against
// fresh state before trying again. Bids on different auctions never contend.
type BidEngine struct {
	auctions   domain.AuctionRepository
	winners    *WinnerRecorder
	history    *HistoryRecorder
	events     domain.EventPublisher
	clock      domain.Clock
	maxRetries int
	log        logger.Logger
}

func NewBidEngine(
	auctions domain.AuctionRepository,
	winners *WinnerRecorder,
	history *HistoryRecorder,
	events domain.EventPublisher,
	clock domain.Clock,
	maxRetries int,
	log logger.Logger,
) *BidEngine {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &BidEngine{
		auctions:   auctions,
		winners:    winners,
		history:    history,
		events:     events,
		clock:      clock,
		maxRetries: maxRetries,
		log:        log,
	}
}

// PlaceBid runs the admission checks in a fixed order (first failure wins):
// auction exists, auction is effectively active, bidder is not the seller,
// amount is positive, amount beats the standing bid by the type's rules. On
// success the bid is appended to the ledger and the current bid advances in
// one atomic write; history recording and event publication follow as
// best-effort side effects that cannot fail the bid.
func (e *BidEngine) PlaceBid(ctx context.Context, auctionID, bidderID string, amount float64) (*domain.Bid, error) {
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		auction, err := e.auctions.GetAuction(ctx, auctionID)
		if err != nil {
			return nil, fmt.Errorf("place bid: %w", err)
		}

		now := e.clock.Now()
		if status := domain.ResolveStatus(auction, now); status != domain.StatusActive {
			return nil, fmt.Errorf("place bid: %w: auction %s is %s, not active",
				domain.ErrInvalidState, auctionID, status)
		}
		if bidderID == auction.Seller {
			return nil, fmt.Errorf("place bid: %w: seller cannot bid on own auction", domain.ErrInvalidState)
		}
		if err := auction.ValidateBidAmount(amount); err != nil {
			return nil, fmt.Errorf("place bid: %w", err)
		}

		// Ledger timestamps never go backwards, even if the wall clock does.
		ts := now
		if last := auction.LastBidTimestamp(); ts.Before(last) {
			ts = last
		}

		bid := domain.Bid{
			ID:        utils.GenerateID("bid"),
			AuctionID: auctionID,
			Bidder:    bidderID,
			Amount:    amount,
			Timestamp: ts,
		}

		closeNow := auction.Type.ClosesOnFirstAcceptedBid()
		admitted, err := e.auctions.AppendBid(ctx, auction, bid, closeNow)
		if err != nil {
			return nil, fmt.Errorf("place bid: %w", err)
		}
		if !admitted {
			e.log.Debug("Lost admission race, re-validating",
				"auction_id", auctionID, "bidder", bidderID, "attempt", attempt+1)
			continue
		}

		e.afterAdmission(ctx, auction, bid, closeNow)
		return &bid, nil
	}

	return nil, fmt.Errorf("place bid: %w: concurrent bids on auction %s", domain.ErrConflict, auctionID)
}

// afterAdmission runs the non-authoritative side effects of an admitted bid.
// Failures here degrade to warnings; the bid already stands.
func (e *BidEngine) afterAdmission(ctx context.Context, auction *domain.Auction, bid domain.Bid, closed bool) {
	if err := e.history.RecordAdmission(ctx, auction, bid); err != nil {
		e.log.Warn("Failed to record bid history", "auction_id", auction.ID, "error", err)
	}

	event := &domain.AuctionEvent{
		Type:      domain.EventBidAccepted,
		AuctionID: auction.ID,
		Timestamp: bid.Timestamp,
	}
	// Sealed auctions keep the running price and leader invisible.
	if !auction.Type.HidesRunningPrice() {
		event.UserID = bid.Bidder
		event.Amount = bid.Amount
	}
	if e.events != nil {
		if err := e.events.PublishEvent(ctx, event); err != nil {
			e.log.Warn("Failed to publish bid event", "auction_id", auction.ID, "error", err)
		}
	}

	// A dutch acceptance closes the auction synchronously; any other bid may
	// have raced the end time. Either way the winner path is idempotent.
	now := e.clock.Now()
	if closed || !now.Before(auction.EndTime) {
		updated, err := e.auctions.GetAuction(ctx, auction.ID)
		if err != nil {
			e.log.Warn("Failed to reload auction for winner recording",
				"auction_id", auction.ID, "error", err)
			return
		}
		if _, err := e.winners.RecordIfEnded(ctx, updated, now); err != nil {
			e.log.Warn("Failed to record winner after bid",
				"auction_id", auction.ID, "error", err)
		}
	}
}
