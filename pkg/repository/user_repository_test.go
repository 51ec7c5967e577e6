package repository

import (
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "uuid", "name", "email", "avatar", "created_at"}).
		AddRow(1, "u-uuid", "John Doe", "john@example.com", "/avatars/default.png", time.Now())
}

func TestCreateUserLowercasesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("John Doe", "john@example.com", "hash").
		WillReturnRows(userRows())

	repo := NewUserRepository(db)
	user, err := repo.Create("John Doe", "John@Example.COM", "hash")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if user.ID != 1 || user.Email != "john@example.com" {
		t.Fatalf("unexpected user %+v", user)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	repo := NewUserRepository(db)
	if _, err := repo.Create("John", "john@example.com", "hash"); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, uuid, name, email, avatar, created_at FROM users").
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows([]string{"id", "uuid", "name", "email", "avatar", "created_at"}))

	repo := NewUserRepository(db)
	if _, err := repo.GetByID(99); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestGetCredentialsReturnsHash(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "uuid", "name", "email", "avatar", "created_at", "password"}).
		AddRow(1, "u-uuid", "John Doe", "john@example.com", "/avatars/default.png", time.Now(), "bcrypt-hash")
	mock.ExpectQuery("SELECT id, uuid, name, email, avatar, created_at, password").
		WithArgs("john@example.com").
		WillReturnRows(rows)

	repo := NewUserRepository(db)
	user, hash, err := repo.GetCredentials("john@example.com")
	if err != nil {
		t.Fatalf("get credentials: %v", err)
	}
	if hash != "bcrypt-hash" || user.ID != 1 {
		t.Fatalf("unexpected result user=%+v hash=%s", user, hash)
	}
}

func TestUpdateProfileEmailTaken(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("UPDATE users SET name").
		WillReturnError(errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`))

	repo := NewUserRepository(db)
	if _, err := repo.UpdateProfile(1, "John", "taken@example.com"); err != ErrEmailTaken {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestUpdatePasswordNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	defer db.Close()

	mock.ExpectExec("UPDATE users SET password").
		WithArgs("hash", 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewUserRepository(db)
	if err := repo.UpdatePassword(42, "hash"); err != ErrUserNotFound {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
