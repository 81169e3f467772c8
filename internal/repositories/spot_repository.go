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
)

type SpotRepository struct {
	DB *sql.DB
}

func (r SpotRepository) db() *sql.DB {
	if r.DB != nil {
		return r.DB
	}
	return intconfig.DB
}

// LockByID fetches a spot and holds its row lock until q's transaction ends.
// Entries on the same spot serialize on this lock.
func (r SpotRepository) LockByID(ctx context.Context, q intdb.DBTX, id int64) (models.Spot, error) {
	if id <= 0 {
		return models.Spot{}, domain.ValidationError{Field: "spot_id", Msg: "must be a positive integer"}
	}
	var s models.Spot
	err := q.QueryRowContext(ctx, `SELECT id, spot_number, floor FROM spots WHERE id = ? FOR UPDATE`, id).Scan(&s.ID, &s.SpotNumber, &s.Floor)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Spot{}, domain.NotFoundError{Resource: "spot", Err: err}
		}
		return models.Spot{}, fmt.Errorf("get spot %d: %w", id, err)
	}
	return s, nil
}

// OccupancyStatus lists every spot with the most recent session still active at now.
func (r SpotRepository) OccupancyStatus(ctx context.Context, now time.Time) ([]models.SpotStatus, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT s.id, s.spot_number, s.floor,
		       ps.plate_number, ps.user_id, ps.entry_time, ps.exit_time
		FROM spots s
		LEFT JOIN parking_sessions ps ON ps.id = (
			SELECT p2.id FROM parking_sessions p2
			WHERE p2.spot_id = s.id AND p2.exit_time > ?
			ORDER BY p2.entry_time DESC, p2.id DESC
			LIMIT 1
		)
		ORDER BY s.floor, s.id`, now)
	if err != nil {
		return nil, fmt.Errorf("query parking status: %w", err)
	}
	defer rows.Close()

	out := []models.SpotStatus{}
	for rows.Next() {
		var st models.SpotStatus
		if err := rows.Scan(&st.SpotID, &st.SpotNumber, &st.Floor, &st.PlateNumber, &st.UserID, &st.StartTime, &st.EndTime); err != nil {
			return out, fmt.Errorf("scan parking status: %w", err)
		}
		st.Status = models.SpotFree
		if st.EndTime.Valid {
			st.Status = models.SpotOccupied
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// DailyUsage counts sessions that started in [from, to) per spot, busiest first.
func (r SpotRepository) DailyUsage(ctx context.Context, from, to time.Time) ([]models.SpotUsage, error) {
	db := r.db()
	if db == nil {
		return nil, fmt.Errorf("database not connected")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT s.spot_number, s.floor, COUNT(ps.id) AS cnt
		FROM spots s
		LEFT JOIN parking_sessions ps
			ON s.id = ps.spot_id
			AND ps.entry_time >= ? AND ps.entry_time < ?
		GROUP BY s.id, s.spot_number, s.floor
		ORDER BY cnt DESC, s.spot_number ASC`, from, to)
	if err != nil {
		return nil, fmt.Errorf("query spot usage: %w", err)
	}
	defer rows.Close()

	out := []models.SpotUsage{}
	for rows.Next() {
		var u models.SpotUsage
		if err := rows.Scan(&u.SpotNumber, &u.Floor, &u.Count); err != nil {
			return out, fmt.Errorf("scan spot usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}
