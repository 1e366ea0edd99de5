package mysql

import (
	"context"
	"database/sql"

	"auction-marketplace/internal/domain"
)

// MySQLHistoryRepository persists the derived bid-history views. Callers treat
// these writes as best-effort; errors surface to the recorder, which logs and
// moves on.
type MySQLHistoryRepository struct {
	db *sql.DB
}

func NewMySQLHistoryRepository(db *sql.DB) *MySQLHistoryRepository {
	return &MySQLHistoryRepository{db: db}
}

func (r *MySQLHistoryRepository) AppendParticipated(ctx context.Context, entry domain.ParticipatedBid) error {
	query := `
        INSERT INTO participated_bids (id, bidder, bidder_email, auction_id, auction_title, amount, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Bidder, entry.BidderEmail, entry.AuctionID,
		entry.AuctionTitle, entry.Amount, entry.CreatedAt)
	return err
}

func (r *MySQLHistoryRepository) AppendCreated(ctx context.Context, entry domain.CreatedBid) error {
	query := `
        INSERT INTO created_bids (id, auction_id, seller, bidder, amount, created_at)
        VALUES (?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.AuctionID, entry.Seller, entry.Bidder,
		entry.Amount, entry.CreatedAt)
	return err
}

func (r *MySQLHistoryRepository) ListParticipatedByBidder(ctx context.Context, bidderID string) ([]*domain.ParticipatedBid, error) {
	query := `
        SELECT id, bidder, bidder_email, auction_id, auction_title, amount, created_at
        FROM participated_bids WHERE bidder = ?
        ORDER BY created_at DESC
    `
	rows, err := r.db.QueryContext(ctx, query, bidderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.ParticipatedBid
	for rows.Next() {
		var e domain.ParticipatedBid
		if err := rows.Scan(&e.ID, &e.Bidder, &e.BidderEmail, &e.AuctionID,
			&e.AuctionTitle, &e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func (r *MySQLHistoryRepository) ListCreatedBySeller(ctx context.Context, sellerID string) ([]*domain.CreatedBid, error) {
	query := `
        SELECT id, auction_id, seller, bidder, amount, created_at
        FROM created_bids WHERE seller = ?
        ORDER BY created_at DESC
    `
	rows, err := r.db.QueryContext(ctx, query, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.CreatedBid
	for rows.Next() {
		var e domain.CreatedBid
		if err := rows.Scan(&e.ID, &e.AuctionID, &e.Seller, &e.Bidder,
			&e.Amount, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
