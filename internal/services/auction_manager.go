package services

import (
	"context"
	"fmt"
	"time"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
	"auction-marketplace/pkg/utils"
)

// AuctionManager owns the auction lifecycle outside of bid admission:
// creation, seller edits, soft deletion, early close, and the effective-status
// reads that every listing and detail endpoint goes through.
type AuctionManager struct {
	auctions    domain.AuctionRepository
	winners     *WinnerRecorder
	winnerRepo  domain.WinnerRepository
	history     domain.BidHistoryRepository
	statusCache domain.StatusCache
	events      domain.EventPublisher
	clock       domain.Clock
	log         logger.Logger
}

func NewAuctionManager(
	auctions domain.AuctionRepository,
	winners *WinnerRecorder,
	winnerRepo domain.WinnerRepository,
	history domain.BidHistoryRepository,
	statusCache domain.StatusCache,
	events domain.EventPublisher,
	clock domain.Clock,
	log logger.Logger,
) *AuctionManager {
	return &AuctionManager{
		auctions:    auctions,
		winners:     winners,
		winnerRepo:  winnerRepo,
		history:     history,
		statusCache: statusCache,
		events:      events,
		clock:       clock,
		log:         log,
	}
}

type CreateAuctionInput struct {
	Code              string
	ParticipationCode string
	Title             string
	Description       string
	Category          string
	Currency          string
	Type              domain.AuctionType
	StartingPrice     float64
	BidIncrement      float64
	ReservePrice      float64
	MinimumPrice      float64
	StartTime         time.Time
	EndTime           time.Time
}

// UpdateAuctionInput carries the seller-editable fields; nil means unchanged.
type UpdateAuctionInput struct {
	Title         *string
	Description   *string
	Category      *string
	Currency      *string
	Type          *domain.AuctionType
	StartingPrice *float64
	BidIncrement  *float64
	ReservePrice  *float64
	MinimumPrice  *float64
	StartTime     *time.Time
	EndTime       *time.Time
}

func (m *AuctionManager) CreateAuction(ctx context.Context, sellerID string, in CreateAuctionInput) (*domain.Auction, error) {
	now := m.clock.Now()

	if sellerID == "" {
		return nil, fmt.Errorf("create auction: %w: seller is required", domain.ErrInvalidInput)
	}
	if in.Code == "" || in.ParticipationCode == "" || in.Title == "" || in.Category == "" || in.Currency == "" {
		return nil, fmt.Errorf("create auction: %w: code, participation code, title, category and currency are required",
			domain.ErrInvalidInput)
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("create auction: %w: unknown auction type %q", domain.ErrInvalidInput, in.Type)
	}
	if in.StartingPrice <= 0 {
		return nil, fmt.Errorf("create auction: %w: starting price must be positive", domain.ErrInvalidInput)
	}
	if in.BidIncrement <= 0 {
		return nil, fmt.Errorf("create auction: %w: bid increment must be positive", domain.ErrInvalidInput)
	}
	if !in.StartTime.After(now) {
		return nil, fmt.Errorf("create auction: %w: start time must be in the future", domain.ErrInvalidInput)
	}
	if !in.EndTime.After(in.StartTime) {
		return nil, fmt.Errorf("create auction: %w: end time must be after start time", domain.ErrInvalidInput)
	}
	if in.Type == domain.TypeSealed && in.ReservePrice <= 0 {
		return nil, fmt.Errorf("create auction: %w: sealed auctions require a reserve price", domain.ErrInvalidInput)
	}
	if in.Type == domain.TypeReserve && in.MinimumPrice <= 0 {
		return nil, fmt.Errorf("create auction: %w: reserve auctions require a minimum price", domain.ErrInvalidInput)
	}

	auction := &domain.Auction{
		ID:                utils.GenerateID("auction"),
		Code:              in.Code,
		ParticipationCode: in.ParticipationCode,
		Title:             in.Title,
		Description:       in.Description,
		Category:          in.Category,
		Currency:          in.Currency,
		Type:              in.Type,
		StartingPrice:     in.StartingPrice,
		CurrentBid:        in.StartingPrice,
		BidIncrement:      in.BidIncrement,
		StartTime:         in.StartTime,
		EndTime:           in.EndTime,
		Seller:            sellerID,
		Status:            domain.StatusUpcoming,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	switch in.Type {
	case domain.TypeSealed:
		auction.ReservePrice = in.ReservePrice
	case domain.TypeReserve:
		auction.MinimumPrice = in.MinimumPrice
	}

	if err := m.auctions.CreateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("create auction: %w", err)
	}

	m.cacheStatus(ctx, auction.ID, domain.StatusUpcoming)
	m.log.Info("Auction created",
		"auction_id", auction.ID, "code", auction.Code, "auction_type", auction.Type, "seller", sellerID)
	return auction, nil
}

// UpdateAuction applies a full edit. Permitted only to the seller and only
// while the auction is still upcoming.
func (m *AuctionManager) UpdateAuction(ctx context.Context, auctionID, callerID string, in UpdateAuctionInput) (*domain.Auction, error) {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("update auction: %w", err)
	}
	if auction.Seller != callerID {
		return nil, fmt.Errorf("update auction: %w: only the seller may update auction %s",
			domain.ErrNotAuthorized, auctionID)
	}

	now := m.clock.Now()
	if status := domain.ResolveStatus(auction, now); status != domain.StatusUpcoming {
		return nil, fmt.Errorf("update auction: %w: only upcoming auctions can be updated, auction is %s",
			domain.ErrInvalidState, status)
	}

	if in.Title != nil {
		auction.Title = *in.Title
	}
	if in.Description != nil {
		auction.Description = *in.Description
	}
	if in.Category != nil {
		auction.Category = *in.Category
	}
	if in.Currency != nil {
		auction.Currency = *in.Currency
	}
	if in.Type != nil {
		auction.Type = *in.Type
	}
	if in.StartingPrice != nil {
		auction.StartingPrice = *in.StartingPrice
	}
	if in.BidIncrement != nil {
		auction.BidIncrement = *in.BidIncrement
	}
	if in.ReservePrice != nil {
		auction.ReservePrice = *in.ReservePrice
	}
	if in.MinimumPrice != nil {
		auction.MinimumPrice = *in.MinimumPrice
	}
	if in.StartTime != nil {
		auction.StartTime = *in.StartTime
	}
	if in.EndTime != nil {
		auction.EndTime = *in.EndTime
	}

	if !auction.Type.Valid() {
		return nil, fmt.Errorf("update auction: %w: unknown auction type %q", domain.ErrInvalidInput, auction.Type)
	}
	if auction.StartingPrice <= 0 {
		return nil, fmt.Errorf("update auction: %w: starting price must be positive", domain.ErrInvalidInput)
	}
	if auction.BidIncrement <= 0 {
		return nil, fmt.Errorf("update auction: %w: bid increment must be positive", domain.ErrInvalidInput)
	}
	if !auction.EndTime.After(auction.StartTime) {
		return nil, fmt.Errorf("update auction: %w: end time must be after start time", domain.ErrInvalidInput)
	}

	// No bids can exist while upcoming, so the current bid tracks the edit.
	auction.CurrentBid = auction.StartingPrice
	auction.UpdatedAt = now

	if err := m.auctions.UpdateAuction(ctx, auction); err != nil {
		return nil, fmt.Errorf("update auction: %w", err)
	}
	return auction, nil
}

// UpdateEndTime shortens an active auction. If the new end time has already
// passed, the auction ends immediately and the winner path runs.
func (m *AuctionManager) UpdateEndTime(ctx context.Context, auctionID, callerID string, endTime time.Time) (*domain.Auction, error) {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("update end time: %w", err)
	}
	if auction.Seller != callerID {
		return nil, fmt.Errorf("update end time: %w: only the seller may update auction %s",
			domain.ErrNotAuthorized, auctionID)
	}

	now := m.clock.Now()
	if status := domain.ResolveStatus(auction, now); status != domain.StatusActive {
		return nil, fmt.Errorf("update end time: %w: only active auctions can be updated, auction is %s",
			domain.ErrInvalidState, status)
	}
	if !endTime.After(auction.StartTime) {
		return nil, fmt.Errorf("update end time: %w: end time must be after start time", domain.ErrInvalidInput)
	}
	if endTime.After(auction.EndTime) {
		return nil, fmt.Errorf("update end time: %w: active auctions can only be shortened", domain.ErrInvalidInput)
	}

	if err := m.auctions.UpdateEndTime(ctx, auctionID, endTime); err != nil {
		return nil, fmt.Errorf("update end time: %w", err)
	}

	updated, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("update end time: %w", err)
	}
	if _, err := m.winners.RecordIfEnded(ctx, updated, m.clock.Now()); err != nil {
		m.log.Warn("Failed to record winner after end time update", "auction_id", auctionID, "error", err)
	}
	updated.Status = domain.ResolveStatus(updated, m.clock.Now())
	m.cacheStatus(ctx, auctionID, updated.Status)
	return updated, nil
}

// DeleteAuction is a soft status transition: the record stays, bidding and
// edits freeze immediately. Permitted from any non-ended status.
func (m *AuctionManager) DeleteAuction(ctx context.Context, auctionID, callerID string) error {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return fmt.Errorf("delete auction: %w", err)
	}
	if auction.Seller != callerID {
		return fmt.Errorf("delete auction: %w: only the seller may delete auction %s",
			domain.ErrNotAuthorized, auctionID)
	}
	if status := domain.ResolveStatus(auction, m.clock.Now()); status == domain.StatusEnded {
		return fmt.Errorf("delete auction: %w: ended auctions cannot be deleted", domain.ErrInvalidState)
	}

	if err := m.auctions.UpdateStatus(ctx, auctionID, domain.StatusDeleted); err != nil {
		return fmt.Errorf("delete auction: %w", err)
	}
	m.cacheStatus(ctx, auctionID, domain.StatusDeleted)
	m.log.Info("Auction deleted", "auction_id", auctionID, "seller", callerID)
	return nil
}

// EndAuctionNow is the seller's early close: the end time is pulled back to
// now and the same resolution/winner path as natural expiry runs. Calling it
// on an already-ended auction is a no-op returning the existing winner.
func (m *AuctionManager) EndAuctionNow(ctx context.Context, auctionID, callerID string) (*domain.Winner, error) {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("end auction: %w", err)
	}
	if auction.Seller != callerID {
		return nil, fmt.Errorf("end auction: %w: only the seller may end auction %s",
			domain.ErrNotAuthorized, auctionID)
	}

	now := m.clock.Now()
	switch status := domain.ResolveStatus(auction, now); status {
	case domain.StatusEnded:
		winner, err := m.winners.RecordIfEnded(ctx, auction, now)
		if err != nil {
			return nil, fmt.Errorf("end auction: %w", err)
		}
		return winner, nil
	case domain.StatusActive:
		// fall through to the close below
	default:
		return nil, fmt.Errorf("end auction: %w: auction is %s, not active", domain.ErrInvalidState, status)
	}

	if err := m.auctions.UpdateEndTime(ctx, auctionID, now); err != nil {
		return nil, fmt.Errorf("end auction: %w", err)
	}

	updated, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("end auction: %w", err)
	}
	winner, err := m.winners.RecordIfEnded(ctx, updated, now)
	if err != nil {
		return nil, fmt.Errorf("end auction: %w", err)
	}

	m.cacheStatus(ctx, auctionID, domain.StatusEnded)
	m.publishEnded(ctx, auctionID, now)
	m.log.Info("Auction ended early by seller", "auction_id", auctionID, "seller", callerID)
	return winner, nil
}

// GetEffectiveStatus resolves the auction's status against the current time,
// writes the result back as a cache, and lazily records the winner when the
// auction is discovered ended. Terminal statuses are served straight from the
// cache; anything else has to be re-resolved because time alone can advance it.
func (m *AuctionManager) GetEffectiveStatus(ctx context.Context, auctionID string) (domain.AuctionStatus, error) {
	if m.statusCache != nil {
		cached, err := m.statusCache.GetStatus(ctx, auctionID)
		if err == nil && (cached == domain.StatusEnded || cached == domain.StatusDeleted) {
			return cached, nil
		}
	}

	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return "", fmt.Errorf("get status: %w", err)
	}

	now := m.clock.Now()
	status := domain.ResolveStatus(auction, now)
	if status == domain.StatusEnded {
		if _, err := m.winners.RecordIfEnded(ctx, auction, now); err != nil {
			m.log.Warn("Failed to record winner on status read", "auction_id", auctionID, "error", err)
		}
		m.cacheStatus(ctx, auctionID, status)
	} else if status != auction.Status {
		if err := m.auctions.UpdateStatus(ctx, auctionID, status); err != nil {
			m.log.Warn("Failed to write back resolved status", "auction_id", auctionID, "error", err)
		}
		m.cacheStatus(ctx, auctionID, status)
	}
	return status, nil
}

// GetAuction returns the auction with its status refreshed. The winner path
// runs lazily when an ended auction is first observed through a read.
func (m *AuctionManager) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	auction, err := m.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction: %w", err)
	}

	now := m.clock.Now()
	status := domain.ResolveStatus(auction, now)
	if status != auction.Status {
		if status == domain.StatusEnded {
			if _, err := m.winners.RecordIfEnded(ctx, auction, now); err != nil {
				m.log.Warn("Failed to record winner on read", "auction_id", auctionID, "error", err)
			}
		} else if err := m.auctions.UpdateStatus(ctx, auctionID, status); err != nil {
			m.log.Warn("Failed to write back resolved status", "auction_id", auctionID, "error", err)
		}
		m.cacheStatus(ctx, auctionID, status)
	}
	auction.Status = status
	return auction, nil
}

// ListAuctions returns auctions with refreshed statuses. Winners for auctions
// discovered ended are recorded on the way, matching the lazy trigger of the
// detail read.
func (m *AuctionManager) ListAuctions(ctx context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error) {
	auctions, err := m.auctions.ListAuctions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}

	now := m.clock.Now()
	for _, a := range auctions {
		status := domain.ResolveStatus(a, now)
		if status == a.Status {
			continue
		}
		if status == domain.StatusEnded {
			if _, err := m.winners.RecordIfEnded(ctx, a, now); err != nil {
				m.log.Warn("Failed to record winner on list", "auction_id", a.ID, "error", err)
			}
		} else if err := m.auctions.UpdateStatus(ctx, a.ID, status); err != nil {
			m.log.Warn("Failed to write back resolved status", "auction_id", a.ID, "error", err)
		}
		a.Status = status
	}
	return auctions, nil
}

func (m *AuctionManager) GetWinner(ctx context.Context, auctionID string) (*domain.Winner, error) {
	return m.winnerRepo.GetWinner(ctx, auctionID)
}

func (m *AuctionManager) WinnerNotifications(ctx context.Context, userID string) ([]*domain.Winner, error) {
	return m.winnerRepo.ListWinnersByUser(ctx, userID)
}

func (m *AuctionManager) ParticipatedBids(ctx context.Context, bidderID string) ([]*domain.ParticipatedBid, error) {
	return m.history.ListParticipatedByBidder(ctx, bidderID)
}

func (m *AuctionManager) SellerBidHistory(ctx context.Context, sellerID string) ([]*domain.CreatedBid, error) {
	return m.history.ListCreatedBySeller(ctx, sellerID)
}

func (m *AuctionManager) cacheStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) {
	if m.statusCache == nil {
		return
	}
	if err := m.statusCache.SetStatus(ctx, auctionID, status); err != nil {
		m.log.Warn("Failed to cache auction status", "auction_id", auctionID, "error", err)
	}
}

func (m *AuctionManager) publishEnded(ctx context.Context, auctionID string, at time.Time) {
	if m.events == nil {
		return
	}
	event := &domain.AuctionEvent{
		Type:      domain.EventAuctionEnded,
		AuctionID: auctionID,
		Timestamp: at,
	}
	if err := m.events.PublishEvent(ctx, event); err != nil {
		m.log.Warn("Failed to publish auction ended event", "auction_id", auctionID, "error", err)
	}
}
