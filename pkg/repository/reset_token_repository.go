package repository

import (
	"database/sql"
	"errors"
	"time"

	"flowroute/pkg/models"
)

var (
	ErrTokenNotFound = errors.New("reset token not found")
	ErrTokenExpired  = errors.New("reset token expired")
)

type ResetTokenRepository interface {
	Create(email, token string, expiresAt time.Time) error
	// Get returns the token record, or ErrTokenExpired when it exists
	// but is past its expiry.
	Get(token string) (models.ResetToken, error)
	Delete(token string) error
	DeleteExpired() (int64, error)
}

type resetTokenRepository struct {
	db *sql.DB
}

func NewResetTokenRepository(db *sql.DB) ResetTokenRepository {
	return &resetTokenRepository{db: db}
}

func (r *resetTokenRepository) Create(email, token string, expiresAt time.Time) error {
	_, err := r.db.Exec(
		`INSERT INTO reset_tokens (email, token, expires_at) VALUES ($1, $2, $3)`,
		email, token, expiresAt,
	)
	return err
}

func (r *resetTokenRepository) Get(token string) (models.ResetToken, error) {
	var rt models.ResetToken
	err := r.db.QueryRow(
		`SELECT id, email, token, expires_at, created_at FROM reset_tokens WHERE token = $1`,
		token,
	).Scan(&rt.ID, &rt.Email, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt)

	if err == sql.ErrNoRows {
		return models.ResetToken{}, ErrTokenNotFound
	}
	if err != nil {
		return models.ResetToken{}, err
	}
	if time.Now().After(rt.ExpiresAt) {
		return models.ResetToken{}, ErrTokenExpired
	}
	return rt, nil
}

func (r *resetTokenRepository) Delete(token string) error {
	_, err := r.db.Exec(`DELETE FROM reset_tokens WHERE token = $1`, token)
	return err
}

func (r *resetTokenRepository) DeleteExpired() (int64, error) {
	res, err := r.db.Exec(`DELETE FROM reset_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
