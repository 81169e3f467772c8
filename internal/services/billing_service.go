package services

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	intconfig "parkometr/internal/config"
	intdb "parkometr/internal/db"
	"parkometr/internal/domain"
	"parkometr/internal/repositories"
	"parkometr/internal/utils"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

// BillingService prices sessions and settles them against user balances.
type BillingService struct {
	DB        *sql.DB
	Sessions  repositories.SessionRepository
	Users     repositories.UserRepository
	Now       func() time.Time
	RequestID string
}

// SettleInput is a billed exit. A missing UserID means the session owner pays;
// a missing Price means the fee is computed from the session's entry time.
type SettleInput struct {
	SpotID int64
	UserID null.Int
	Price  decimal.NullDecimal
}

// Settlement is the outcome of a successful billed exit.
type Settlement struct {
	SessionID int64           `json:"session_id"`
	SpotID    int64           `json:"spot_id"`
	UserID    int64           `json:"user_id"`
	Hours     int64           `json:"hours"`
	TotalCost decimal.Decimal `json:"total_cost"`
	Balance   decimal.Decimal `json:"balance"`
	ExitTime  time.Time       `json:"exit_time"`
}

func (s BillingService) db() *sql.DB {
	if s.DB != nil {
		return s.DB
	}
	return intconfig.DB
}

func (s BillingService) sessions() repositories.SessionRepository {
	if s.Sessions.DB != nil {
		return s.Sessions
	}
	return repositories.SessionRepository{DB: s.db()}
}

func (s BillingService) users() repositories.UserRepository {
	if s.Users.DB != nil {
		return s.Users
	}
	return repositories.UserRepository{DB: s.db()}
}

func (s BillingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Quote previews the fee for a number of hours.
func (s BillingService) Quote(hours int64) (domain.Quote, error) {
	if hours < 0 {
		return domain.Quote{}, domain.ValidationError{Field: "hours", Msg: "must not be negative"}
	}
	return domain.QuoteFor(hours), nil
}

func (in SettleInput) validate() error {
	if in.SpotID <= 0 {
		return domain.ValidationError{Field: "spot_id", Msg: "must be a positive integer"}
	}
	if in.UserID.Valid && in.UserID.Int64 <= 0 {
		return domain.ValidationError{Field: "user_id", Msg: "must be a positive integer"}
	}
	if in.Price.Valid {
		return domain.CheckAmount("price", in.Price.Decimal)
	}
	return nil
}

// Settle closes and pays the spot's session in one transaction. The payer's
// row is locked before the session row, the same order top-ups use.
// When the balance cannot cover the price nothing is written.
func (s BillingService) Settle(ctx context.Context, in SettleInput) (Settlement, error) {
	if err := in.validate(); err != nil {
		return Settlement{}, err
	}
	db := s.db()
	if db == nil {
		return Settlement{}, domain.InternalError{Err: fmt.Errorf("database not connected")}
	}

	payer, err := s.resolvePayer(ctx, db, in)
	if err != nil {
		return Settlement{}, wrapInternal(err)
	}

	var out Settlement
	err = intdb.WithTx(ctx, db, func(tx *sql.Tx) error {
		balance, err := s.users().LockBalance(ctx, tx, payer)
		if err != nil {
			return err
		}
		now := s.now()
		session, err := s.sessions().LockSettleableBySpot(ctx, tx, in.SpotID, now)
		if err != nil {
			return err
		}
		if session.Paid() {
			return domain.ConflictError{Resource: "parking session", Msg: "already settled"}
		}
		if !in.UserID.Valid && session.UserID.Int64 != payer {
			return domain.ConflictError{Resource: "parking session", Msg: "session changed during settlement, retry"}
		}

		end := now
		if session.ExitTime.Before(end) {
			end = session.ExitTime
		}
		hours := domain.HoursBetween(session.EntryTime, end)
		price := domain.Fee(hours)
		if in.Price.Valid {
			price = in.Price.Decimal
		}
		if balance.LessThan(price) {
			return domain.InsufficientFundsError{Balance: balance, Price: price}
		}

		if err := s.sessions().MarkPaid(ctx, tx, session.ID, now, price); err != nil {
			return err
		}
		if err := s.users().AddBalance(ctx, tx, payer, price.Neg()); err != nil {
			return err
		}
		out = Settlement{
			SessionID: session.ID,
			SpotID:    session.SpotID,
			UserID:    payer,
			Hours:     hours,
			TotalCost: price,
			Balance:   balance.Sub(price),
			ExitTime:  end,
		}
		return nil
	})
	if err != nil {
		if domain.IsInsufficientFunds(err) {
			utils.LogEvent(s.RequestID, "billing", "settle_rejected", fmt.Sprintf("spot_id=%d user_id=%d", in.SpotID, payer))
		}
		return Settlement{}, wrapInternal(err)
	}

	utils.LogEvent(s.RequestID, "billing", "settle",
		fmt.Sprintf("session_id=%d user_id=%d total=%s", out.SessionID, out.UserID, utils.FormatPLN(out.TotalCost)))
	return out, nil
}

// resolvePayer returns the explicit payer or, failing that, the owner of the
// session that would be settled. The lookup takes no lock so the user row can
// still be locked first.
func (s BillingService) resolvePayer(ctx context.Context, db *sql.DB, in SettleInput) (int64, error) {
	if in.UserID.Valid {
		return in.UserID.Int64, nil
	}
	session, err := s.sessions().FindSettleableBySpot(ctx, db, in.SpotID, s.now())
	if err != nil {
		return 0, err
	}
	if !session.UserID.Valid {
		return 0, domain.ValidationError{Field: "user_id", Msg: "is required for a session without an owner"}
	}
	return session.UserID.Int64, nil
}
