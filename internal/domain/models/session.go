package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/guregu/null.v4"
)

const (
	PaymentUnpaid = "UNPAID"
	PaymentPaid   = "PAID"
)

// ParkingSession is one occupancy record. It is active while ExitTime is in the future.
type ParkingSession struct {
	ID            int64               `json:"session_id"`
	SpotID        int64               `json:"spot_id"`
	UserID        null.Int            `json:"user_id"`
	PlateNumber   string              `json:"plate_number"`
	EntryTime     time.Time           `json:"entry_time"`
	ExitTime      time.Time           `json:"exit_time"`
	PaymentStatus string              `json:"payment_status"`
	TotalCost     decimal.NullDecimal `json:"total_cost"`
	PaymentToken  string              `json:"payment_token,omitempty"`
	SpotNumber    int                 `json:"spot_number,omitempty"`
	Floor         null.Int            `json:"floor,omitempty"`
}

func (s ParkingSession) ActiveAt(now time.Time) bool {
	return s.ExitTime.After(now)
}

func (s ParkingSession) Paid() bool {
	return s.PaymentStatus == PaymentPaid
}

// NewSession carries the values inserted by an entry.
type NewSession struct {
	SpotID       int64
	UserID       null.Int
	PlateNumber  string
	EntryTime    time.Time
	ExitTime     time.Time
	PaymentToken string
}
