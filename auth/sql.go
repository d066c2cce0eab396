package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"banking-ui/models"
)

// SQLDirectory looks identities up in a users table:
//
//	users(id, username, password_hash, role, card_number, customer_name)
type SQLDirectory struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewSQLDirectory(db *sql.DB, logger *zap.Logger) *SQLDirectory {
	return &SQLDirectory{db: db, logger: logger}
}

const selectUser = `SELECT id, username, password_hash, role, card_number, customer_name
	FROM users WHERE username = ?`

func (d *SQLDirectory) Authenticate(ctx context.Context, username, password string) (models.Principal, error) {
	var (
		id                 int64
		p                  models.Principal
		hash               string
		role               string
		card, customerName sql.NullString
	)
	err := d.db.QueryRowContext(ctx, selectUser, username).Scan(&id, &p.Username, &hash, &role, &card, &customerName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Principal{}, ErrInvalidCredentials
		}
		return models.Principal{}, fmt.Errorf("lookup user %s: %w", username, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return models.Principal{}, ErrInvalidCredentials
	}

	p.ID = strconv.FormatInt(id, 10)
	p.Role = models.Role(role)
	p.CardNumber = card.String
	p.CustomerName = customerName.String
	if err := p.Validate(); err != nil {
		d.logger.Error("users row is not a valid principal",
			zap.String("username", username),
			zap.Error(err))
		return models.Principal{}, fmt.Errorf("user %s: %w", username, err)
	}
	return p, nil
}
