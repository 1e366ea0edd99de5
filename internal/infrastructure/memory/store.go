package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-marketplace/internal/domain"
)

// Store is a concurrency-safe in-memory implementation of the repository
// interfaces. It backs the test suite and local development; production wiring
// uses the mysql package. Copies cross the boundary in both directions so
// callers can never mutate stored state outside AppendBid.
type Store struct {
	mu           sync.RWMutex
	auctions     map[string]*domain.Auction
	codes        map[string]string // auction code -> auction id
	joinCodes    map[string]string // participation code -> auction id
	winners      map[string]*domain.Winner // auction id -> winner
	participated map[string][]domain.ParticipatedBid
	created      map[string][]domain.CreatedBid
	users        map[string]domain.UserContact
}

func NewStore() *Store {
	return &Store{
		auctions:     make(map[string]*domain.Auction),
		codes:        make(map[string]string),
		joinCodes:    make(map[string]string),
		winners:      make(map[string]*domain.Winner),
		participated: make(map[string][]domain.ParticipatedBid),
		created:      make(map[string][]domain.CreatedBid),
		users:        make(map[string]domain.UserContact),
	}
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	c := *a
	c.Bids = append([]domain.Bid(nil), a.Bids...)
	return &c
}

func (s *Store) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.codes[auction.Code]; taken {
		return fmt.Errorf("create auction: code %s: %w", auction.Code, domain.ErrAlreadyExists)
	}
	if _, taken := s.joinCodes[auction.ParticipationCode]; taken {
		return fmt.Errorf("create auction: participation code %s: %w", auction.ParticipationCode, domain.ErrAlreadyExists)
	}

	s.auctions[auction.ID] = cloneAuction(auction)
	s.codes[auction.Code] = auction.ID
	s.joinCodes[auction.ParticipationCode] = auction.ID
	return nil
}

func (s *Store) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("get auction %s: %w", auctionID, domain.ErrNotFound)
	}
	return cloneAuction(a), nil
}

func (s *Store) ListAuctions(ctx context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Auction
	for _, a := range s.auctions {
		if a.Status == domain.StatusDeleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Category != "" && a.Category != filter.Category {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Seller != "" && a.Seller != filter.Seller {
			continue
		}
		out = append(out, cloneAuction(a))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.auctions[auction.ID]
	if !ok {
		return fmt.Errorf("update auction %s: %w", auction.ID, domain.ErrNotFound)
	}

	stored.Title = auction.Title
	stored.Description = auction.Description
	stored.Category = auction.Category
	stored.Currency = auction.Currency
	stored.Type = auction.Type
	stored.StartingPrice = auction.StartingPrice
	stored.BidIncrement = auction.BidIncrement
	stored.ReservePrice = auction.ReservePrice
	stored.MinimumPrice = auction.MinimumPrice
	stored.StartTime = auction.StartTime
	stored.EndTime = auction.EndTime
	stored.UpdatedAt = auction.UpdatedAt
	if len(stored.Bids) == 0 {
		stored.CurrentBid = auction.StartingPrice
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.auctions[auctionID]
	if !ok {
		return fmt.Errorf("update status for auction %s: %w", auctionID, domain.ErrNotFound)
	}
	stored.Status = status
	return nil
}

func (s *Store) UpdateEndTime(ctx context.Context, auctionID string, endTime time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.auctions[auctionID]
	if !ok {
		return fmt.Errorf("update end time for auction %s: %w", auctionID, domain.ErrNotFound)
	}
	stored.EndTime = endTime
	stored.UpdatedAt = endTime
	return nil
}

func (s *Store) AppendBid(ctx context.Context, auction *domain.Auction, bid domain.Bid, closeAuction bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.auctions[auction.ID]
	if !ok {
		return false, fmt.Errorf("append bid to auction %s: %w", auction.ID, domain.ErrNotFound)
	}
	if stored.Version != auction.Version {
		return false, nil
	}

	stored.Bids = append(stored.Bids, bid)
	stored.CurrentBid = bid.Amount
	stored.CurrentHighestBidder = bid.Bidder
	stored.Version++
	stored.UpdatedAt = bid.Timestamp
	if closeAuction {
		stored.EndTime = bid.Timestamp
	}
	return true, nil
}

func (s *Store) ListStatusLagging(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Auction
	for _, a := range s.auctions {
		if a.Status == domain.StatusDeleted {
			continue
		}
		if domain.ResolveStatus(a, now) != a.Status {
			out = append(out, cloneAuction(a))
		}
	}
	return out, nil
}

func (s *Store) CreateWinner(ctx context.Context, winner *domain.Winner) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.winners[winner.AuctionID]; exists {
		return fmt.Errorf("create winner for auction %s: %w", winner.AuctionID, domain.ErrAlreadyExists)
	}
	w := *winner
	s.winners[winner.AuctionID] = &w
	return nil
}

func (s *Store) GetWinner(ctx context.Context, auctionID string) (*domain.Winner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.winners[auctionID]
	if !ok {
		return nil, fmt.Errorf("get winner for auction %s: %w", auctionID, domain.ErrNotFound)
	}
	c := *w
	return &c, nil
}

func (s *Store) ListWinnersByUser(ctx context.Context, userID string) ([]*domain.Winner, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Winner
	for _, w := range s.winners {
		if w.UserID == userID {
			c := *w
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WonAt.After(out[j].WonAt)
	})
	return out, nil
}

func (s *Store) AppendParticipated(ctx context.Context, entry domain.ParticipatedBid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.participated[entry.Bidder] = append(s.participated[entry.Bidder], entry)
	return nil
}

func (s *Store) AppendCreated(ctx context.Context, entry domain.CreatedBid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.created[entry.Seller] = append(s.created[entry.Seller], entry)
	return nil
}

func (s *Store) ListParticipatedByBidder(ctx context.Context, bidderID string) ([]*domain.ParticipatedBid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.participated[bidderID]
	out := make([]*domain.ParticipatedBid, 0, len(entries))
	for i := range entries {
		e := entries[i]
		out = append(out, &e)
	}
	return out, nil
}

func (s *Store) ListCreatedBySeller(ctx context.Context, sellerID string) ([]*domain.CreatedBid, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.created[sellerID]
	out := make([]*domain.CreatedBid, 0, len(entries))
	for i := range entries {
		e := entries[i]
		out = append(out, &e)
	}
	return out, nil
}

func (s *Store) GetContact(ctx context.Context, userID string) (domain.UserContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return domain.UserContact{}, fmt.Errorf("get contact for user %s: %w", userID, domain.ErrNotFound)
	}
	return u, nil
}

// AddUser seeds a user contact. Intended for tests and local setups.
func (s *Store) AddUser(contact domain.UserContact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[contact.ID] = contact
}
