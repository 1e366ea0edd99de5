package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"auction-marketplace/internal/domain"
)

// MySQLUserDirectory reads contact details from the shared users table owned
// by the account service. This service never writes it.
type MySQLUserDirectory struct {
	db *sql.DB
}

func NewMySQLUserDirectory(db *sql.DB) *MySQLUserDirectory {
	return &MySQLUserDirectory{db: db}
}

func (r *MySQLUserDirectory) GetContact(ctx context.Context, userID string) (domain.UserContact, error) {
	query := `SELECT id, full_name, email, phone FROM users WHERE id = ?`

	var c domain.UserContact
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&c.ID, &c.FullName, &c.Email, &c.Phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.UserContact{}, fmt.Errorf("get contact for user %s: %w", userID, domain.ErrNotFound)
		}
		return domain.UserContact{}, err
	}
	return c, nil
}
