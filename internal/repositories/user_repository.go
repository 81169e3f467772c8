package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	intconfig "parkometr/internal/config"
	intdb "parkometr/internal/db"
	"parkometr/internal/domain"
	"parkometr/internal/domain/models"

	"github.com/shopspring/decimal"
)

type UserRepository struct {
	DB *sql.DB
}

func (r UserRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const userColumns = `id, login, password_hash, role, first_name, last_name, balance, created_at`

func scanUser(row rowScanner) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Login, &u.PasswordHash, &u.Role, &u.FirstName, &u.LastName, &u.Balance, &u.CreatedAt)
	return u, err
}

func (r UserRepository) GetByID(ctx context.Context, id int64) (models.User, error) {
	if id <= 0 {
		return models.User{}, domain.ValidationError{Field: "user_id", Msg: "must be a positive integer"}
	}
	db := r.db()
	if db == nil {
		return models.User{}, fmt.Errorf("database not connected")
	}
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (r UserRepository) GetByLogin(ctx context.Context, login string) (models.User, error) {
	db := r.db()
	if db == nil {
		return models.User{}, fmt.Errorf("database not connected")
	}
	u, err := scanUser(db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE login = ?`, strings.TrimSpace(login)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.User{}, domain.NotFoundError{Resource: "user", Err: err}
		}
		return models.User{}, fmt.Errorf("get user by login: %w", err)
	}
	return u, nil
}

func (r UserRepository) List(ctx context.Context) ([]models.User, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	rows, err := db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	out := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return out, fmt.Errorf("scan user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Create inserts a user; a taken login is reported as a conflict.
func (r UserRepository) Create(ctx context.Context, u models.User) (int64, error) {
	db := r.db()
	if db == nil {
		return 0, fmt.Errorf("database not connected")
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO users (login, password_hash, role, first_name, last_name, balance)
		VALUES (?, ?, ?, ?, ?, ?)`,
		u.Login, u.PasswordHash, u.Role, u.FirstName, u.LastName, u.Balance)
	if err != nil {
		if intdb.IsDuplicateKey(err) {
			return 0, domain.ConflictError{Resource: "user", Msg: "login already taken", Err: err}
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return res.LastInsertId()
}

// LockBalance reads the balance and holds the user's row lock until q's transaction ends.
func (r UserRepository) LockBalance(ctx context.Context, q intdb.DBTX, userID int64) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := q.QueryRowContext(ctx, `SELECT balance FROM users WHERE id = ? FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, domain.NotFoundError{Resource: "user", Err: err}
		}
		return decimal.Zero, fmt.Errorf("lock balance of user %d: %w", userID, err)
	}
	return balance, nil
}

// AddBalance applies delta (negative for a debit) to the user's balance.
func (r UserRepository) AddBalance(ctx context.Context, q intdb.DBTX, userID int64, delta decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `UPDATE users SET balance = balance + ? WHERE id = ?`, delta, userID)
	if err != nil {
		return fmt.Errorf("update balance of user %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "user"}
	}
	return nil
}
