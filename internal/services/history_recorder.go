package services

import (
	"context"
	"errors"
	"fmt"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// HistoryRecorder maintains the two derived views of an admitted bid: the
// bidder's "participated" record and the seller's "created" record. The
// authoritative ledger lives on the auction itself; these writes are
// best-effort and a failure classifies as ErrDependencyFailure, never as a
// bid failure.
type HistoryRecorder struct {
	history domain.BidHistoryRepository
	users   domain.UserDirectory
	clock   domain.Clock
	log     logger.Logger
}

func NewHistoryRecorder(history domain.BidHistoryRepository, users domain.UserDirectory,
	clock domain.Clock, log logger.Logger) *HistoryRecorder {
	return &HistoryRecorder{
		history: history,
		users:   users,
		clock:   clock,
		log:     log,
	}
}

// RecordAdmission writes both views for one admitted bid, resolving the
// bidder's email on the way. Failures come back wrapped in
// ErrDependencyFailure so callers can log them without failing the bid.
func (h *HistoryRecorder) RecordAdmission(ctx context.Context, auction *domain.Auction, bid domain.Bid) error {
	email := ""
	if contact, err := h.users.GetContact(ctx, bid.Bidder); err == nil {
		email = contact.Email
	} else {
		h.log.Warn("Failed to resolve bidder email for history",
			"bidder", bid.Bidder, "error", err)
	}

	var errs []error
	if err := h.Record(ctx, bid.Bidder, email, auction.ID, auction.Title, bid.Amount); err != nil {
		errs = append(errs, err)
	}
	if err := h.RecordForSeller(ctx, auction.ID, auction.Seller, bid.Bidder, bid.Amount); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrDependencyFailure, errors.Join(errs...))
	}
	return nil
}

func (h *HistoryRecorder) Record(ctx context.Context, bidderID, bidderEmail, auctionID, auctionTitle string, amount float64) error {
	entry := domain.ParticipatedBid{
		ID:           utils.GenerateID("pbid"),
		Bidder:       bidderID,
		BidderEmail:  bidderEmail,
		AuctionID:    auctionID,
		AuctionTitle: auctionTitle,
		Amount:       amount,
		CreatedAt:    h.clock.Now(),
	}
	if err := h.history.AppendParticipated(ctx, entry); err != nil {
		return fmt.Errorf("append participated bid for %s: %w", bidderID, err)
	}
	return nil
}

func (h *HistoryRecorder) RecordForSeller(ctx context.Context, auctionID, sellerID, bidderID string, amount float64) error {
	entry := domain.CreatedBid{
		ID:        utils.GenerateID("cbid"),
		AuctionID: auctionID,
		Seller:    sellerID,
		Bidder:    bidderID,
		Amount:    amount,
		CreatedAt: h.clock.Now(),
	}
	if err := h.history.AppendCreated(ctx, entry); err != nil {
		return fmt.Errorf("append created bid for seller %s: %w", sellerID, err)
	}
	return nil
}
