package domain

import "time"

// Clock supplies the current time. Production code uses RealClock; tests
// inject fixed or advancing clocks.
type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now().UTC()
}

// ResolveStatus computes an auction's effective status from its stored state
// and the given instant. It is the single authority for "is this auction
// active"; the persisted Status field is only a write-back cache of this
// function's output. Deletion is terminal and overrides time.
func ResolveStatus(a *Auction, now time.Time) AuctionStatus {
	if a.Status == StatusDeleted {
		return StatusDeleted
	}
	switch {
	case now.Before(a.StartTime):
		return StatusUpcoming
	case now.Before(a.EndTime):
		return StatusActive
	default:
		return StatusEnded
	}
}
