package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auction-marketplace/internal/domain"
)

type MySQLWinnerRepository struct {
	db *sql.DB
}

func NewMySQLWinnerRepository(db *sql.DB) *MySQLWinnerRepository {
	return &MySQLWinnerRepository{db: db}
}

// CreateWinner relies on the unique index on auction_id: if two call sites
// race past the recorder's idempotence check, the second insert comes back as
// ErrAlreadyExists and the caller re-reads the surviving row.
func (r *MySQLWinnerRepository) CreateWinner(ctx context.Context, winner *domain.Winner) error {
	query := `
        INSERT INTO winners (id, auction_id, user_id, full_name, email, phone, amount, won_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.db.ExecContext(ctx, query,
		winner.ID, winner.AuctionID, winner.UserID, winner.FullName,
		winner.Email, winner.Phone, winner.Amount, winner.WonAt)
	if isDuplicate(err) {
		return fmt.Errorf("create winner for auction %s: %w", winner.AuctionID, domain.ErrAlreadyExists)
	}
	return err
}

func (r *MySQLWinnerRepository) GetWinner(ctx context.Context, auctionID string) (*domain.Winner, error) {
	query := `
        SELECT id, auction_id, user_id, full_name, email, phone, amount, won_at
        FROM winners WHERE auction_id = ?
    `
	var w domain.Winner
	err := r.db.QueryRowContext(ctx, query, auctionID).Scan(
		&w.ID, &w.AuctionID, &w.UserID, &w.FullName, &w.Email, &w.Phone,
		&w.Amount, &w.WonAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("get winner for auction %s: %w", auctionID, domain.ErrNotFound)
		}
		return nil, err
	}
	return &w, nil
}

func (r *MySQLWinnerRepository) ListWinnersByUser(ctx context.Context, userID string) ([]*domain.Winner, error) {
	query := `
        SELECT id, auction_id, user_id, full_name, email, phone, amount, won_at
        FROM winners WHERE user_id = ?
        ORDER BY won_at DESC
    `
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var winners []*domain.Winner
	for rows.Next() {
		var w domain.Winner
		if err := rows.Scan(&w.ID, &w.AuctionID, &w.UserID, &w.FullName,
			&w.Email, &w.Phone, &w.Amount, &w.WonAt); err != nil {
			return nil, err
		}
		winners = append(winners, &w)
	}
	return winners, rows.Err()
}
