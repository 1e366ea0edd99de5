package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"auction-marketplace/internal/domain"
	"auction-marketplace/pkg/logger"
)

// ExpirySweeper periodically reconciles stored statuses with the resolver and
// records winners for auctions that expired without anyone reading them. It is
// a safety net behind the lazy refresh-on-read and post-bid paths, not the
// source of truth: a missed sweep only delays the write-back.
type ExpirySweeper struct {
	cron        *cron.Cron
	auctions    domain.AuctionRepository
	winners     *WinnerRecorder
	statusCache domain.StatusCache
	events      domain.EventPublisher
	elector     domain.LeaderElector
	instanceID  string
	clock       domain.Clock
	interval    time.Duration
	log         logger.Logger
}

func NewExpirySweeper(
	auctions domain.AuctionRepository,
	winners *WinnerRecorder,
	statusCache domain.StatusCache,
	events domain.EventPublisher,
	elector domain.LeaderElector,
	instanceID string,
	clock domain.Clock,
	interval time.Duration,
	log logger.Logger,
) *ExpirySweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ExpirySweeper{
		cron:        cron.New(),
		auctions:    auctions,
		winners:     winners,
		statusCache: statusCache,
		events:      events,
		elector:     elector,
		instanceID:  instanceID,
		clock:       clock,
		interval:    interval,
		log:         log,
	}
}

func (s *ExpirySweeper) Start(ctx context.Context) error {
	s.log.Info("Starting auction expiry sweeper", "interval", s.interval.String())

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.Sweep(ctx)
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

func (s *ExpirySweeper) Stop() error {
	s.log.Info("Stopping auction expiry sweeper")
	s.cron.Stop()
	return nil
}

// Sweep runs one reconciliation pass. Exported so an explicit status-refresh
// call site (or a test) can trigger it without waiting for the tick.
func (s *ExpirySweeper) Sweep(ctx context.Context) {
	if s.elector != nil && !s.holdsLeadership(ctx) {
		return
	}

	now := s.clock.Now()

	lagging, err := s.auctions.ListStatusLagging(ctx, now)
	if err != nil {
		s.log.Error("Failed to list auctions for sweep", "error", err)
		return
	}

	for _, a := range lagging {
		effective := domain.ResolveStatus(a, now)
		if effective == domain.StatusEnded {
			// The recorder owns the ended write-back. On failure the stored
			// status keeps lagging and the next sweep picks the row up again.
			if _, err := s.winners.RecordIfEnded(ctx, a, now); err != nil {
				s.log.Error("Failed to record winner during sweep", "auction_id", a.ID, "error", err)
				continue
			}
		} else if err := s.auctions.UpdateStatus(ctx, a.ID, effective); err != nil {
			s.log.Error("Failed to write back status", "auction_id", a.ID, "error", err)
			continue
		}
		if s.statusCache != nil {
			if err := s.statusCache.SetStatus(ctx, a.ID, effective); err != nil {
				s.log.Warn("Failed to cache auction status", "auction_id", a.ID, "error", err)
			}
		}
		s.log.Info("Auction status refreshed",
			"auction_id", a.ID, "from", a.Status, "to", effective)

		if effective != domain.StatusEnded {
			continue
		}
		if s.events != nil {
			event := &domain.AuctionEvent{
				Type:      domain.EventAuctionEnded,
				AuctionID: a.ID,
				Timestamp: now,
			}
			if err := s.events.PublishEvent(ctx, event); err != nil {
				s.log.Warn("Failed to publish auction ended event", "auction_id", a.ID, "error", err)
			}
		}
	}
}

// holdsLeadership reports whether this instance currently owns the sweep,
// claiming it if nobody does.
func (s *ExpirySweeper) holdsLeadership(ctx context.Context) bool {
	lead, err := s.elector.IsLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Warn("Failed to check sweep leadership", "error", err)
		return false
	}
	if lead {
		return true
	}

	became, err := s.elector.BecomeLeader(ctx, s.instanceID)
	if err != nil {
		s.log.Warn("Failed to claim sweep leadership", "error", err)
		return false
	}
	if !became {
		s.log.Debug("Skipping sweep, another instance leads", "instance_id", s.instanceID)
	}
	return became
}
