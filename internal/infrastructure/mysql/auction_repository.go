package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"auction-marketplace/internal/domain"
)

const mysqlErrDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlErrDuplicateEntry
}

type MySQLAuctionRepository struct {
	db *sql.DB
}

func NewMySQLAuctionRepository(db *sql.DB) *MySQLAuctionRepository {
	return &MySQLAuctionRepository{db: db}
}

const auctionColumns = `
	id, code, participation_code, title, description, category, currency,
	auction_type, starting_price, current_bid, bid_increment, reserve_price,
	minimum_price, start_time, end_time, seller, current_highest_bidder,
	status, version, created_at, updated_at`

func scanAuction(row interface{ Scan(...interface{}) error }) (*domain.Auction, error) {
	var a domain.Auction
	var auctionType, status string
	var highestBidder sql.NullString

	err := row.Scan(
		&a.ID, &a.Code, &a.ParticipationCode, &a.Title, &a.Description,
		&a.Category, &a.Currency, &auctionType, &a.StartingPrice, &a.CurrentBid,
		&a.BidIncrement, &a.ReservePrice, &a.MinimumPrice, &a.StartTime,
		&a.EndTime, &a.Seller, &highestBidder, &status, &a.Version,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}

	a.Type = domain.AuctionType(auctionType)
	a.Status = domain.AuctionStatus(status)
	if highestBidder.Valid {
		a.CurrentHighestBidder = highestBidder.String
	}
	return &a, nil
}

func (r *MySQLAuctionRepository) CreateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		auction.ID, auction.Code, auction.ParticipationCode, auction.Title,
		auction.Description, auction.Category, auction.Currency,
		string(auction.Type), auction.StartingPrice, auction.CurrentBid,
		auction.BidIncrement, auction.ReservePrice, auction.MinimumPrice,
		auction.StartTime, auction.EndTime, auction.Seller,
		nullableID(auction.CurrentHighestBidder), string(auction.Status),
		auction.Version, auction.CreatedAt, auction.UpdatedAt)
	if isDuplicate(err) {
		return fmt.Errorf("create auction %s: %w", auction.ID, domain.ErrAlreadyExists)
	}
	return err
}

func (r *MySQLAuctionRepository) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = ?`

	auction, err := scanAuction(r.db.QueryRowContext(ctx, query, auctionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get auction %s: %w", auctionID, domain.ErrNotFound)
		}
		return nil, err
	}

	bids, err := r.loadBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	auction.Bids = bids
	return auction, nil
}

func (r *MySQLAuctionRepository) loadBids(ctx context.Context, auctionID string) ([]domain.Bid, error) {
	query := `
        SELECT id, auction_id, bidder, amount, bid_time
        FROM bids WHERE auction_id = ?
        ORDER BY seq ASC
    `
	rows, err := r.db.QueryContext(ctx, query, auctionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []domain.Bid
	for rows.Next() {
		var b domain.Bid
		if err := rows.Scan(&b.ID, &b.AuctionID, &b.Bidder, &b.Amount, &b.Timestamp); err != nil {
			return nil, err
		}
		bids = append(bids, b)
	}
	return bids, rows.Err()
}

func (r *MySQLAuctionRepository) ListAuctions(ctx context.Context, filter domain.AuctionFilter) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE 1=1`
	var args []interface{}

	if !filter.IncludeDeleted {
		query += ` AND status != ?`
		args = append(args, string(domain.StatusDeleted))
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.Seller != "" {
		query += ` AND seller = ?`
		args = append(args, filter.Seller)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

// UpdateAuction rewrites the seller-editable fields. version counts admitted
// bids, so version = 0 means the ledger is empty and the current bid must
// track the edited starting price.
func (r *MySQLAuctionRepository) UpdateAuction(ctx context.Context, auction *domain.Auction) error {
	query := `
        UPDATE auctions SET
            title = ?, description = ?, category = ?, currency = ?,
            auction_type = ?, starting_price = ?, bid_increment = ?,
            reserve_price = ?, minimum_price = ?, start_time = ?, end_time = ?,
            current_bid = IF(version = 0, ?, current_bid), updated_at = ?
        WHERE id = ?
    `
	res, err := r.db.ExecContext(ctx, query,
		auction.Title, auction.Description, auction.Category, auction.Currency,
		string(auction.Type), auction.StartingPrice, auction.BidIncrement,
		auction.ReservePrice, auction.MinimumPrice, auction.StartTime,
		auction.EndTime, auction.StartingPrice, auction.UpdatedAt, auction.ID)
	if err != nil {
		return err
	}
	return requireRow(res, auction.ID)
}

func (r *MySQLAuctionRepository) UpdateStatus(ctx context.Context, auctionID string, status domain.AuctionStatus) error {
	query := `UPDATE auctions SET status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), auctionID)
	if err != nil {
		return err
	}
	return requireRow(res, auctionID)
}

func (r *MySQLAuctionRepository) UpdateEndTime(ctx context.Context, auctionID string, endTime time.Time) error {
	query := `UPDATE auctions SET end_time = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, endTime, endTime, auctionID)
	if err != nil {
		return err
	}
	return requireRow(res, auctionID)
}

// AppendBid is the admission compare-and-swap: the pricing update only lands
// if the row still carries the version the engine validated against, and the
// ledger insert rides in the same transaction. A lost race is (false, nil).
func (r *MySQLAuctionRepository) AppendBid(ctx context.Context, auction *domain.Auction, bid domain.Bid, closeAuction bool) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	var res sql.Result
	if closeAuction {
		res, err = tx.ExecContext(ctx, `
            UPDATE auctions
            SET current_bid = ?, current_highest_bidder = ?, end_time = ?,
                version = version + 1, updated_at = ?
            WHERE id = ? AND version = ?`,
			bid.Amount, bid.Bidder, bid.Timestamp, bid.Timestamp,
			auction.ID, auction.Version)
	} else {
		res, err = tx.ExecContext(ctx, `
            UPDATE auctions
            SET current_bid = ?, current_highest_bidder = ?,
                version = version + 1, updated_at = ?
            WHERE id = ? AND version = ?`,
			bid.Amount, bid.Bidder, bid.Timestamp,
			auction.ID, auction.Version)
	}
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected == 0 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx, `
        INSERT INTO bids (id, auction_id, bidder, amount, bid_time)
        VALUES (?, ?, ?, ?, ?)`,
		bid.ID, bid.AuctionID, bid.Bidder, bid.Amount, bid.Timestamp)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// ListStatusLagging finds auctions whose cached status fell behind the
// resolver. The pricing summary is enough for reconciliation, so the ledgers
// are not loaded.
func (r *MySQLAuctionRepository) ListStatusLagging(ctx context.Context, now time.Time) ([]*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + `
        FROM auctions
        WHERE status != 'deleted'
          AND status != CASE
              WHEN start_time > ? THEN 'upcoming'
              WHEN end_time > ? THEN 'active'
              ELSE 'ended'
          END
    `
	rows, err := r.db.QueryContext(ctx, query, now, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var auctions []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		auctions = append(auctions, a)
	}
	return auctions, rows.Err()
}

func nullableID(id string) interface{} {
	if id == "" {
		return nil
	}
	return id
}

func requireRow(res sql.Result, auctionID string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("auction %s: %w", auctionID, domain.ErrNotFound)
	}
	return nil
}
