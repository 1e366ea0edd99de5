package domain

import (
	"context"
	"time"
)

// AuctionFilter narrows ListAuctions. Zero values mean "any". Deleted
// auctions are excluded unless IncludeDeleted is set.
type AuctionFilter struct {
	Category       string
	Status         AuctionStatus
	Seller         string
	IncludeDeleted bool
}

// Repository interfaces
type AuctionRepository interface {
	// CreateAuction persists a new auction. Returns ErrAlreadyExists if the
	// auction code or participation code is taken.
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	ListAuctions(ctx context.Context, filter AuctionFilter) ([]*Auction, error)

	// UpdateAuction rewrites the seller-editable fields. Pricing state is
	// untouched except that CurrentBid follows StartingPrice while the ledger
	// is empty.
	UpdateAuction(ctx context.Context, auction *Auction) error
	UpdateStatus(ctx context.Context, auctionID string, status AuctionStatus) error
	UpdateEndTime(ctx context.Context, auctionID string, endTime time.Time) error

	// AppendBid atomically appends bid to the ledger and advances
	// CurrentBid/CurrentHighestBidder, but only if the stored version still
	// equals auction.Version. Returns false (and no error) when the version
	// moved, i.e. the caller lost the admission race and must re-validate
	// against fresh state. When closeAuction is set the auction's end time is
	// pulled back to the bid timestamp in the same write.
	AppendBid(ctx context.Context, auction *Auction, bid Bid, closeAuction bool) (bool, error)

	// ListStatusLagging returns non-deleted auctions whose stored status no
	// longer matches what ResolveStatus would return at now.
	ListStatusLagging(ctx context.Context, now time.Time) ([]*Auction, error)
}

type WinnerRepository interface {
	// CreateWinner persists a winner. Returns ErrAlreadyExists if one is
	// already recorded for the auction; the unique constraint is the final
	// safety net behind the recorder's idempotence check.
	CreateWinner(ctx context.Context, winner *Winner) error
	GetWinner(ctx context.Context, auctionID string) (*Winner, error)
	ListWinnersByUser(ctx context.Context, userID string) ([]*Winner, error)
}

type BidHistoryRepository interface {
	AppendParticipated(ctx context.Context, entry ParticipatedBid) error
	AppendCreated(ctx context.Context, entry CreatedBid) error
	ListParticipatedByBidder(ctx context.Context, bidderID string) ([]*ParticipatedBid, error)
	ListCreatedBySeller(ctx context.Context, sellerID string) ([]*CreatedBid, error)
}

// UserDirectory resolves user contact details. Account management is owned by
// another service; this is the only slice of it the engine depends on.
type UserDirectory interface {
	GetContact(ctx context.Context, userID string) (UserContact, error)
}

// StatusCache is a write-back cache of resolver output. Readers may trust it
// for terminal statuses only; anything else has to be re-resolved.
type StatusCache interface {
	SetStatus(ctx context.Context, auctionID string, status AuctionStatus) error
	GetStatus(ctx context.Context, auctionID string) (AuctionStatus, error)
}

// LeaderElector arbitrates which instance runs singleton background work such
// as the expiry sweep. Losing an election skips a pass; it never affects
// correctness because the work behind it is idempotent.
type LeaderElector interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// Event interfaces
type EventPublisher interface {
	PublishEvent(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	SubscribeToEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

// UserNotifier delivers a message to one user. Delivery is best-effort;
// failures never roll back the operation that triggered them.
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, auctionID string, conn WebSocketConnection) error
	UnregisterConnection(userID, auctionID string) error
	BroadcastToAuction(auctionID string, message interface{}) error
	NotifyUser(userID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}
