package repository

import (
	"database/sql"
	"errors"
	"strings"

	"flowroute/pkg/models"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already taken")
)

type UserRepository interface {
	Create(name, email, hashedPassword string) (models.User, error)
	GetByID(id int) (models.User, error)
	GetByEmail(email string) (models.User, error)
	GetCredentials(email string) (models.User, string, error)
	GetPassword(id int) (string, error)
	UpdateProfile(id int, name, email string) (models.User, error)
	UpdatePassword(id int, hashedPassword string) error
	UpdatePasswordByEmail(email, hashedPassword string) error
	UpdateAvatar(id int, avatar string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, uuid, name, email, avatar, created_at`

func (r *userRepository) Create(name, email, hashedPassword string) (models.User, error) {
	var u models.User
	err := r.db.QueryRow(
		`INSERT INTO users (name, email, password) VALUES ($1, $2, $3)
		 RETURNING `+userColumns,
		name, strings.ToLower(email), hashedPassword,
	).Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.Avatar, &u.CreatedAt)

	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return u, nil
}

func (r *userRepository) GetByID(id int) (models.User, error) {
	var u models.User
	err := r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.Avatar, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

func (r *userRepository) GetByEmail(email string) (models.User, error) {
	var u models.User
	err := r.db.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email),
	).Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.Avatar, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, ErrUserNotFound
	}
	return u, err
}

// GetCredentials returns the user together with the stored bcrypt hash
// for login verification.
func (r *userRepository) GetCredentials(email string) (models.User, string, error) {
	var u models.User
	var hash string
	err := r.db.QueryRow(
		`SELECT id, uuid, name, email, avatar, created_at, password
		 FROM users WHERE email = $1`, strings.ToLower(email),
	).Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.Avatar, &u.CreatedAt, &hash)

	if err == sql.ErrNoRows {
		return models.User{}, "", ErrUserNotFound
	}
	return u, hash, err
}

func (r *userRepository) GetPassword(id int) (string, error) {
	var hash string
	err := r.db.QueryRow(`SELECT password FROM users WHERE id = $1`, id).Scan(&hash)
	if err == sql.ErrNoRows {
		return "", ErrUserNotFound
	}
	return hash, err
}

func (r *userRepository) UpdateProfile(id int, name, email string) (models.User, error) {
	// The unique index on email rejects addresses taken by another user.
	var u models.User
	err := r.db.QueryRow(
		`UPDATE users SET name = $1, email = $2 WHERE id = $3
		 RETURNING `+userColumns,
		name, strings.ToLower(email), id,
	).Scan(&u.ID, &u.UUID, &u.Name, &u.Email, &u.Avatar, &u.CreatedAt)

	if err == sql.ErrNoRows {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, err
	}
	return u, nil
}

func (r *userRepository) UpdatePassword(id int, hashedPassword string) error {
	res, err := r.db.Exec(`UPDATE users SET password = $1 WHERE id = $2`, hashedPassword, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdatePasswordByEmail(email, hashedPassword string) error {
	res, err := r.db.Exec(
		`UPDATE users SET password = $1 WHERE email = $2`,
		hashedPassword, strings.ToLower(email),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *userRepository) UpdateAvatar(id int, avatar string) error {
	res, err := r.db.Exec(`UPDATE users SET avatar = $1 WHERE id = $2`, avatar, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrUserNotFound
	}
	return nil
}
