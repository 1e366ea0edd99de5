package domain

import (
	"fmt"
	"time"
)

type AuctionStatus string

const (
	StatusUpcoming AuctionStatus = "upcoming"
	StatusActive   AuctionStatus = "active"
	StatusEnded    AuctionStatus = "ended"
	StatusDeleted  AuctionStatus = "deleted"
)

func (s AuctionStatus) Valid() bool {
	switch s {
	case StatusUpcoming, StatusActive, StatusEnded, StatusDeleted:
		return true
	}
	return false
}

type AuctionType string

const (
	TypeEnglish AuctionType = "english"
	TypeDutch   AuctionType = "dutch"
	TypeSealed  AuctionType = "sealed"
	TypeReserve AuctionType = "reserve"
)

func (t AuctionType) Valid() bool {
	switch t {
	case TypeEnglish, TypeDutch, TypeSealed, TypeReserve:
		return true
	}
	return false
}

// ClosesOnFirstAcceptedBid reports whether a single admitted bid ends the
// auction immediately instead of waiting for the end time.
func (t AuctionType) ClosesOnFirstAcceptedBid() bool {
	return t == TypeDutch
}

// HidesRunningPrice reports whether the current bid and ledger are withheld
// from other bidders until the auction closes.
func (t AuctionType) HidesRunningPrice() bool {
	return t == TypeSealed
}

// Bid is a single admitted bid. Immutable once recorded.
type Bid struct {
	ID        string    `json:"bid_id"`
	AuctionID string    `json:"auction_id"`
	Bidder    string    `json:"bidder"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Auction is the authoritative record for one auction: metadata, pricing
// state, and the append-only bid ledger. The pricing fields (CurrentBid,
// CurrentHighestBidder, Bids, Version) are the only contended state and may
// only be advanced through AuctionRepository.AppendBid.
type Auction struct {
	ID                   string        `json:"id"`
	Code                 string        `json:"code"`
	ParticipationCode    string        `json:"participation_code"`
	Title                string        `json:"title"`
	Description          string        `json:"description"`
	Category             string        `json:"category"`
	Currency             string        `json:"currency"`
	Type                 AuctionType   `json:"auction_type"`
	StartingPrice        float64       `json:"starting_price"`
	CurrentBid           float64       `json:"current_bid"`
	BidIncrement         float64       `json:"bid_increment"`
	ReservePrice         float64       `json:"reserve_price,omitempty"`
	MinimumPrice         float64       `json:"minimum_price,omitempty"`
	StartTime            time.Time     `json:"start_time"`
	EndTime              time.Time     `json:"end_time"`
	Seller               string        `json:"seller"`
	CurrentHighestBidder string        `json:"current_highest_bidder,omitempty"`
	Status               AuctionStatus `json:"status"`
	Bids                 []Bid         `json:"bids"`
	Version              int64         `json:"-"`
	CreatedAt            time.Time     `json:"created_at"`
	UpdatedAt            time.Time     `json:"updated_at"`
}

// CloseConditionMet reports whether the auction's type-specific threshold
// allows a winner to be recorded at close. English and dutch auctions have no
// threshold; reserve auctions require the minimum price to be reached and
// sealed auctions require the top bid to clear the reserve price.
func (a *Auction) CloseConditionMet() bool {
	switch a.Type {
	case TypeReserve:
		return MoneyCmp(a.CurrentBid, a.MinimumPrice) >= 0
	case TypeSealed:
		return MoneyCmp(a.CurrentBid, a.ReservePrice) >= 0
	default:
		return true
	}
}

// ValidateBidAmount applies the pricing rules for the auction's type against
// the standing bid. Rejections state the exact minimum acceptable amount,
// except for sealed auctions where the standing amount is never revealed.
func (a *Auction) ValidateBidAmount(amount float64) error {
	if amount <= 0 {
		return fmt.Errorf("%w: bid amount must be positive", ErrInvalidInput)
	}
	switch a.Type {
	case TypeDutch:
		// CurrentBid is the standing ask; the first bid meeting it wins.
		if MoneyCmp(amount, a.CurrentBid) < 0 {
			return fmt.Errorf("%w: bid must meet the asking price of %.2f", ErrInvalidInput, a.CurrentBid)
		}
	case TypeSealed:
		// Sealed bids must still beat the standing amount so the ledger stays
		// monotonic, but no increment applies and the rejection stays opaque.
		if MoneyCmp(amount, a.CurrentBid) <= 0 {
			return fmt.Errorf("%w: bid must exceed the current highest sealed bid", ErrInvalidInput)
		}
	default:
		if MoneyCmp(amount, a.CurrentBid) <= 0 {
			return fmt.Errorf("%w: bid must be higher than current bid of %.2f", ErrInvalidInput, a.CurrentBid)
		}
		if !MeetsIncrement(amount, a.CurrentBid, a.BidIncrement) {
			return fmt.Errorf("%w: below minimum increment, next bid must be at least %.2f",
				ErrInvalidInput, MinimumAcceptableBid(a.CurrentBid, a.BidIncrement))
		}
	}
	return nil
}

// LastBidTimestamp returns the timestamp of the most recent ledger entry, or
// the zero time for an empty ledger.
func (a *Auction) LastBidTimestamp() time.Time {
	if len(a.Bids) == 0 {
		return time.Time{}
	}
	return a.Bids[len(a.Bids)-1].Timestamp
}

// Winner is materialized at most once per auction, with the winning bidder's
// contact details denormalized at creation time.
type Winner struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	UserID    string    `json:"user_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Amount    float64   `json:"amount"`
	WonAt     time.Time `json:"won_at"`
}

// UserContact is the slice of the user record the engine needs when
// snapshotting a winner. User management itself lives outside this service.
type UserContact struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// ParticipatedBid is the per-bidder view of an admitted bid, kept as a
// best-effort read optimization alongside the authoritative ledger.
type ParticipatedBid struct {
	ID           string    `json:"id"`
	Bidder       string    `json:"bidder"`
	BidderEmail  string    `json:"bidder_email"`
	AuctionID    string    `json:"auction_id"`
	AuctionTitle string    `json:"auction_title"`
	Amount       float64   `json:"amount"`
	CreatedAt    time.Time `json:"created_at"`
}

// CreatedBid is the per-seller view of the same fact.
type CreatedBid struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	Seller    string    `json:"seller"`
	Bidder    string    `json:"bidder"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
