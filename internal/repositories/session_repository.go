package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	intconfig "parkometr/internal/config"
	intdb "parkometr/internal/db"
	"parkometr/internal/domain"
	"parkometr/internal/domain/models"

	"github.com/shopspring/decimal"
)

type SessionRepository struct {
	DB *sql.DB
}

func (r SessionRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

const sessionColumns = `ps.id, ps.spot_id, ps.user_id, ps.plate_number, ps.entry_time, ps.exit_time,
		       ps.payment_status, ps.total_cost, ps.payment_token, s.spot_number, s.floor`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (models.ParkingSession, error) {
	var s models.ParkingSession
	var spotNumber sql.NullInt64
	err := row.Scan(
		&s.ID,
		&s.SpotID,
		&s.UserID,
		&s.PlateNumber,
		&s.EntryTime,
		&s.ExitTime,
		&s.PaymentStatus,
		&s.TotalCost,
		&s.PaymentToken,
		&spotNumber,
		&s.Floor,
	)
	s.SpotNumber = int(spotNumber.Int64)
	return s, err
}

func (r SessionRepository) list(ctx context.Context, query string, args ...any) ([]models.ParkingSession, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("database not connected")
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ParkingSession{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return out, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// FindActiveBySpot returns the spot's session with exit_time after now.
// ok is false when the spot is free.
func (r SessionRepository) FindActiveBySpot(ctx context.Context, q intdb.DBTX, spotID int64, now time.Time) (models.ParkingSession, bool, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions ps
		LEFT JOIN spots s ON s.id = ps.spot_id
		WHERE ps.spot_id = ? AND ps.exit_time > ?
		ORDER BY ps.entry_time DESC, ps.id DESC
		LIMIT 1`, spotID, now)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ParkingSession{}, false, nil
		}
		return models.ParkingSession{}, false, fmt.Errorf("find active session on spot %d: %w", spotID, err)
	}
	return s, true, nil
}

// FindSettleableBySpot returns, without locking, the session a billed exit on spotID would settle.
func (r SessionRepository) FindSettleableBySpot(ctx context.Context, q intdb.DBTX, spotID int64, now time.Time) (models.ParkingSession, error) {
	return r.settleable(ctx, q, spotID, now, false)
}

// LockSettleableBySpot locks the session a billed exit on spotID should settle:
// the active one when present, otherwise the most recent expired session still UNPAID.
func (r SessionRepository) LockSettleableBySpot(ctx context.Context, q intdb.DBTX, spotID int64, now time.Time) (models.ParkingSession, error) {
	return r.settleable(ctx, q, spotID, now, true)
}

func (r SessionRepository) settleable(ctx context.Context, q intdb.DBTX, spotID int64, now time.Time, lock bool) (models.ParkingSession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM parking_sessions ps
		LEFT JOIN spots s ON s.id = ps.spot_id
		WHERE ps.spot_id = ? AND (ps.exit_time > ? OR ps.payment_status = ?)
		ORDER BY (ps.exit_time > ?) DESC, ps.entry_time DESC, ps.id DESC
		LIMIT 1`
	if lock {
		query += `
		FOR UPDATE`
	}
	s, err := scanSession(q.QueryRowContext(ctx, query, spotID, now, models.PaymentUnpaid, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ParkingSession{}, domain.NotFoundError{Resource: "active parking session", Err: err}
		}
		return models.ParkingSession{}, fmt.Errorf("find session to settle on spot %d: %w", spotID, err)
	}
	return s, nil
}

// Insert stores a new session and returns its id.
func (r SessionRepository) Insert(ctx context.Context, q intdb.DBTX, s models.NewSession) (int64, error) {
	res, err := q.ExecContext(ctx, `
		INSERT INTO parking_sessions
			(spot_id, user_id, plate_number, payment_token, payment_status, entry_time, exit_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.SpotID, s.UserID, s.PlateNumber, s.PaymentToken, models.PaymentUnpaid, s.EntryTime, s.ExitTime)
	if err != nil {
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert session id: %w", err)
	}
	return id, nil
}

// CloseActiveBySpot ends the spot's active sessions at now without billing.
func (r SessionRepository) CloseActiveBySpot(ctx context.Context, q intdb.DBTX, spotID int64, now time.Time) (int64, error) {
	res, err := q.ExecContext(ctx, `
		UPDATE parking_sessions SET exit_time = ?
		WHERE spot_id = ? AND exit_time > ?`, now, spotID, now)
	if err != nil {
		return 0, fmt.Errorf("close session on spot %d: %w", spotID, err)
	}
	return res.RowsAffected()
}

// MarkPaid closes and settles a session. An expired session keeps its earlier exit_time.
func (r SessionRepository) MarkPaid(ctx context.Context, q intdb.DBTX, sessionID int64, now time.Time, cost decimal.Decimal) error {
	res, err := q.ExecContext(ctx, `
		UPDATE parking_sessions
		SET exit_time = LEAST(exit_time, ?), total_cost = ?, payment_status = ?
		WHERE id = ?`, now, cost, models.PaymentPaid, sessionID)
	if err != nil {
		return fmt.Errorf("settle session %d: %w", sessionID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.NotFoundError{Resource: "parking session"}
	}
	return nil
}

// GetByToken finds the session behind a ticket token.
func (r SessionRepository) GetByToken(ctx context.Context, token string) (models.ParkingSession, error) {
	db := r.db()
	if db == nil {
		return models.ParkingSession{}, fmt.Errorf("database not connected")
	}
	row := db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions ps
		LEFT JOIN spots s ON s.id = ps.spot_id
		WHERE ps.payment_token = ?
		LIMIT 1`, token)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ParkingSession{}, domain.NotFoundError{Resource: "ticket", Err: err}
		}
		return models.ParkingSession{}, fmt.Errorf("get ticket: %w", err)
	}
	return s, nil
}

// HistoryBySpot lists all sessions of a spot, newest first.
func (r SessionRepository) HistoryBySpot(ctx context.Context, spotID int64) ([]models.ParkingSession, error) {
	out, err := r.list(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions ps
		LEFT JOIN spots s ON s.id = ps.spot_id
		WHERE ps.spot_id = ?
		ORDER BY ps.entry_time DESC, ps.id DESC`, spotID)
	if err != nil {
		return nil, fmt.Errorf("spot history %d: %w", spotID, err)
	}
	return out, nil
}

// HistoryByUser lists all sessions of a user, newest first.
func (r SessionRepository) HistoryByUser(ctx context.Context, userID int64) ([]models.ParkingSession, error) {
	out, err := r.list(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions ps
		LEFT JOIN spots s ON s.id = ps.spot_id
		WHERE ps.user_id = ?
		ORDER BY ps.entry_time DESC, ps.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("user history %d: %w", userID, err)
	}
	return out, nil
}

// ActiveByUser lists the user's sessions still active at now.
func (r SessionRepository) ActiveByUser(ctx context.Context, userID int64, now time.Time) ([]models.ParkingSession, error) {
	out, err := r.list(ctx, `
		SELECT `+sessionColumns+`
		FROM parking_sessions ps
		LEFT JOIN spots s ON s.id = ps.spot_id
		WHERE ps.user_id = ? AND ps.exit_time > ?
		ORDER BY ps.entry_time DESC, ps.id DESC`, userID, now)
	if err != nil {
		return nil, fmt.Errorf("active sessions of user %d: %w", userID, err)
	}
	return out, nil
}
