package domain

import "time"

type AuctionEvent struct {
	Type      AuctionEventType `json:"type"`
	AuctionID string           `json:"auction_id"`
	UserID    string           `json:"user_id,omitempty"`
	Amount    float64          `json:"amount,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

type AuctionEventType string

const (
	EventBidAccepted    AuctionEventType = "bid_accepted"
	EventAuctionEnded   AuctionEventType = "auction_ended"
	EventWinnerRecorded AuctionEventType = "winner_recorded"
)
