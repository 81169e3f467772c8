package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intconfig "parkometr/internal/config"
	intdb "parkometr/internal/db"
	"parkometr/internal/domain"
	"parkometr/internal/domain/models"
	"parkometr/internal/repositories"
	"parkometr/internal/utils"

	"github.com/google/uuid"
	"gopkg.in/guregu/null.v4"
)

const (
	// DefaultDurationHours applies when an entry names no duration.
	DefaultDurationHours = 1
	// OpenEndedHours is the client convention for a stay without a fixed end.
	OpenEndedHours = 999
	// MaxDurationHours is a century; now plus this stays inside time.Duration and DATETIME.
	MaxDurationHours = 100 * 365 * 24

	maxPlateLength = 20
)

// LedgerService owns the spot/session ledger: occupancy, entries and exits.
type LedgerService struct {
	DB        *sql.DB
	Spots     repositories.SpotRepository
	Sessions  repositories.SessionRepository
	Now       func() time.Time
	NewToken  func() string
	RequestID string
}

// EntryInput is a vehicle arriving on a spot.
type EntryInput struct {
	SpotID        int64
	PlateNumber   string
	DurationHours int64
	UserID        null.Int
}

// EntryResult describes the session opened by Enter.
type EntryResult struct {
	SessionID int64
	Token     string
	Spot      models.Spot
	EntryTime time.Time
	ExitTime  time.Time
}

func (s LedgerService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s LedgerService) spots() repositories.SpotRepository {
	if s.Spots.DB != nil {
		return s.Spots
	}
	return repositories.SpotRepository{DB: s.db()}
}

func (s LedgerService) sessions() repositories.SessionRepository {
	if s.Sessions.DB != nil {
		return s.Sessions
	}
	return repositories.SessionRepository{DB: s.db()}
}

func (s LedgerService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s LedgerService) token() string {
	if s.NewToken != nil {
		return s.NewToken()
	}
	return uuid.NewString()
}

// Status returns the occupancy snapshot of every spot.
func (s LedgerService) Status(ctx context.Context) (models.OccupancyStatus, error) {
	spots, err := s.spots().OccupancyStatus(ctx, s.now())
	if err != nil {
		return models.OccupancyStatus{}, domain.InternalError{Err: err}
	}
	out := models.OccupancyStatus{Spots: spots}
	out.Summary.Total = len(spots)
	for _, sp := range spots {
		if sp.Status == models.SpotOccupied {
			out.Summary.Occupied++
		}
	}
	out.Summary.Free = out.Summary.Total - out.Summary.Occupied
	return out, nil
}

func (in EntryInput) validate() (EntryInput, error) {
	if in.SpotID <= 0 {
		return in, domain.ValidationError{Field: "spot_id", Msg: "must be a positive integer"}
	}
	in.PlateNumber = utils.NormalizePlate(in.PlateNumber)
	if in.PlateNumber == "" {
		return in, domain.ValidationError{Field: "plate_number", Msg: "is required"}
	}
	if len(in.PlateNumber) > maxPlateLength {
		return in, domain.ValidationError{Field: "plate_number", Msg: fmt.Sprintf("must be at most %d characters", maxPlateLength)}
	}
	if in.DurationHours == 0 {
		in.DurationHours = DefaultDurationHours
	}
	if in.DurationHours < 0 {
		return in, domain.ValidationError{Field: "duration_hours", Msg: "must be a positive integer"}
	}
	if in.DurationHours > MaxDurationHours {
		return in, domain.ValidationError{Field: "duration_hours", Msg: fmt.Sprintf("must be at most %d", MaxDurationHours)}
	}
	if in.UserID.Valid && in.UserID.Int64 <= 0 {
		return in, domain.ValidationError{Field: "user_id", Msg: "must be a positive integer"}
	}
	return in, nil
}

// Enter opens a session on a free spot. The spot row lock taken inside the
// transaction makes concurrent entries on the same spot run one after another,
// so exactly one of them finds the spot free.
func (s LedgerService) Enter(ctx context.Context, in EntryInput) (EntryResult, error) {
	in, err := in.validate()
	if err != nil {
		return EntryResult{}, err
	}

	var res EntryResult
	err = intdb.WithTx(ctx, s.db(), func(tx *sql.Tx) error {
		spot, err := s.spots().LockByID(ctx, tx, in.SpotID)
		if err != nil {
			return err
		}
		now := s.now()
		active, occupied, err := s.sessions().FindActiveBySpot(ctx, tx, spot.ID, now)
		if err != nil {
			return err
		}
		if occupied {
			return domain.ConflictError{
				Resource: "spot",
				Msg:      fmt.Sprintf("spot already occupied until %s", active.ExitTime.Format(time.RFC3339)),
			}
		}

		res = EntryResult{
			Token:     s.token(),
			Spot:      spot,
			EntryTime: now,
			ExitTime:  now.Add(time.Duration(in.DurationHours) * time.Hour),
		}
		id, err := s.sessions().Insert(ctx, tx, models.NewSession{
			SpotID:       spot.ID,
			UserID:       in.UserID,
			PlateNumber:  in.PlateNumber,
			EntryTime:    res.EntryTime,
			ExitTime:     res.ExitTime,
			PaymentToken: res.Token,
		})
		if err != nil {
			if intdb.IsMissingReference(err) {
				return domain.NotFoundError{Resource: "user", Err: err}
			}
			return err
		}
		res.SessionID = id
		return nil
	})
	if err != nil {
		return EntryResult{}, wrapInternal(err)
	}

	utils.LogEvent(s.RequestID, "ledger", "entry",
		fmt.Sprintf("session_id=%d spot_id=%d hours=%d", res.SessionID, res.Spot.ID, in.DurationHours))
	return res, nil
}

// ExitImmediate ends the spot's active session now without touching any balance.
// The session stays UNPAID and can still be settled later.
func (s LedgerService) ExitImmediate(ctx context.Context, spotID int64) error {
	if spotID <= 0 {
		return domain.ValidationError{Field: "spot_id", Msg: "must be a positive integer"}
	}
	db := s.db()
	if db == nil {
		return domain.InternalError{Err: fmt.Errorf("database not connected")}
	}
	n, err := s.sessions().CloseActiveBySpot(ctx, db, spotID, s.now())
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if n == 0 {
		return domain.NotFoundError{Resource: "active parking session"}
	}
	utils.LogEvent(s.RequestID, "ledger", "exit_immediate", fmt.Sprintf("spot_id=%d closed=%d", spotID, n))
	return nil
}

// SpotHistory lists every session of a spot, newest first.
func (s LedgerService) SpotHistory(ctx context.Context, spotID int64) ([]models.ParkingSession, error) {
	if spotID <= 0 {
		return nil, domain.ValidationError{Field: "spot_id", Msg: "must be a positive integer"}
	}
	out, err := s.sessions().HistoryBySpot(ctx, spotID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

// UserHistory lists every session of a user, newest first.
func (s LedgerService) UserHistory(ctx context.Context, userID int64) ([]models.ParkingSession, error) {
	if userID <= 0 {
		return nil, domain.ValidationError{Field: "user_id", Msg: "must be a positive integer"}
	}
	out, err := s.sessions().HistoryByUser(ctx, userID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

// ActiveByUser lists the sessions a user currently holds.
func (s LedgerService) ActiveByUser(ctx context.Context, userID int64) ([]models.ParkingSession, error) {
	if userID <= 0 {
		return nil, domain.ValidationError{Field: "user_id", Msg: "must be a positive integer"}
	}
	out, err := s.sessions().ActiveByUser(ctx, userID, s.now())
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

// wrapInternal keeps typed domain errors and marks everything else internal.
func wrapInternal(err error) error {
	if err == nil {
		return nil
	}
	if domain.KindOf(err) != "" {
		return err
	}
	return domain.InternalError{Err: err}
}
