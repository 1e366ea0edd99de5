package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// WinnerRecorder materializes at most one winner per auction. It is invoked
// from every path that can observe an ended auction (post-bid check, read
// refresh, expiry sweep, seller early close) and tolerates all of them racing:
// the idempotence check catches repeats, and the store's unique constraint on
// the auction id catches the rest.
type WinnerRecorder struct {
	auctions domain.AuctionRepository
	winners  domain.WinnerRepository
	users    domain.UserDirectory
	notifier domain.UserNotifier
	events   domain.EventPublisher
	log      logger.Logger
}

func NewWinnerRecorder(
	auctions domain.AuctionRepository,
	winners domain.WinnerRepository,
	users domain.UserDirectory,
	notifier domain.UserNotifier,
	events domain.EventPublisher,
	log logger.Logger,
) *WinnerRecorder {
	return &WinnerRecorder{
		auctions: auctions,
		winners:  winners,
		users:    users,
		notifier: notifier,
		events:   events,
		log:      log,
	}
}

// RecordIfEnded resolves the auction's effective status at now and, if it is
// ended, returns the auction's winner, creating it on first observation. It
// returns (nil, nil) when the auction is not ended, ended with no bids, or
// ended below its type-specific threshold. The ended status is written back
// only once the winner decision is final, so a storage error leaves the row
// lagging and the expiry sweep retries it.
func (r *WinnerRecorder) RecordIfEnded(ctx context.Context, auction *domain.Auction, now time.Time) (*domain.Winner, error) {
	if domain.ResolveStatus(auction, now) != domain.StatusEnded {
		return nil, nil
	}

	existing, err := r.winners.GetWinner(ctx, auction.ID)
	if err == nil {
		r.markEnded(ctx, auction)
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("record winner: %w", err)
	}

	if auction.CurrentHighestBidder == "" {
		// No bids, no winner. Nothing to retry.
		r.markEnded(ctx, auction)
		return nil, nil
	}
	if !auction.CloseConditionMet() {
		r.log.Info("Auction ended below its price threshold, no winner",
			"auction_id", auction.ID, "auction_type", auction.Type, "final_bid", auction.CurrentBid)
		r.markEnded(ctx, auction)
		return nil, nil
	}

	contact, err := r.users.GetContact(ctx, auction.CurrentHighestBidder)
	if err != nil {
		return nil, fmt.Errorf("record winner: snapshot contact for %s: %w", auction.CurrentHighestBidder, err)
	}

	winner := &domain.Winner{
		ID:        utils.GenerateID("winner"),
		AuctionID: auction.ID,
		UserID:    contact.ID,
		FullName:  contact.FullName,
		Email:     contact.Email,
		Phone:     contact.Phone,
		Amount:    auction.CurrentBid,
		WonAt:     now,
	}

	if err := r.winners.CreateWinner(ctx, winner); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			// Another call site won the recording race.
			raced, err := r.winners.GetWinner(ctx, auction.ID)
			if err == nil {
				r.markEnded(ctx, auction)
			}
			return raced, err
		}
		return nil, fmt.Errorf("record winner: %w", err)
	}

	r.log.Info("Winner recorded",
		"auction_id", auction.ID, "user_id", winner.UserID, "amount", winner.Amount)
	r.markEnded(ctx, auction)
	r.announce(ctx, auction, winner)
	return winner, nil
}

// markEnded writes the resolved ended status back onto the record. A failure
// here only costs another sweep pass; the resolver remains authoritative.
func (r *WinnerRecorder) markEnded(ctx context.Context, auction *domain.Auction) {
	if auction.Status == domain.StatusEnded {
		return
	}
	if err := r.auctions.UpdateStatus(ctx, auction.ID, domain.StatusEnded); err != nil {
		r.log.Warn("Failed to write back ended status", "auction_id", auction.ID, "error", err)
	}
}

// announce delivers the winner notification and event. Best-effort: a failed
// delivery is a warning, never a recording failure.
func (r *WinnerRecorder) announce(ctx context.Context, auction *domain.Auction, winner *domain.Winner) {
	if r.notifier != nil {
		msg := map[string]interface{}{
			"type":       "auction_won",
			"auction_id": auction.ID,
			"title":      auction.Title,
			"amount":     winner.Amount,
		}
		if err := r.notifier.NotifyUser(ctx, winner.UserID, msg); err != nil {
			r.log.Warn("Failed to notify winner", "auction_id", auction.ID,
				"user_id", winner.UserID,
				"error", fmt.Errorf("%w: %w", domain.ErrDependencyFailure, err))
		}
	}
	if r.events != nil {
		event := &domain.AuctionEvent{
			Type:      domain.EventWinnerRecorded,
			AuctionID: auction.ID,
			UserID:    winner.UserID,
			Amount:    winner.Amount,
			Timestamp: winner.WonAt,
		}
		if err := r.events.PublishEvent(ctx, event); err != nil {
			r.log.Warn("Failed to publish winner event", "auction_id", auction.ID, "error", err)
		}
	}
}
