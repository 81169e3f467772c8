package domain

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

const Currency = "PLN"

// Per-hour contribution: hour 1, hour 2, hour 3, then every later hour.
const (
	firstHourRate  = 5
	secondHourRate = 10
	thirdHourRate  = 15
	laterHourRate  = 20
)

// Quote is a computed price preview; it is never stored.
type Quote struct {
	Hours    int64           `json:"hours"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// Price returns the tiered parking fee for a whole number of started hours.
// price(1)=5, price(2)=15, price(3)=30, price(h)=30+20*(h-3) for h>=3.
func Price(hours int64) int64 {
	if hours <= 0 {
		return 0
	}
	var total int64
	for h := int64(1); h <= hours && h <= 3; h++ {
		total += hourRate(h)
	}
	if hours > 3 {
		total += (hours - 3) * laterHourRate
	}
	return total
}

func hourRate(h int64) int64 {
	switch h {
	case 1:
		return firstHourRate
	case 2:
		return secondHourRate
	case 3:
		return thirdHourRate
	default:
		return laterHourRate
	}
}

// HoursBetween counts started hours from entry to now, clamped to 0 for clock skew.
func HoursBetween(entry, now time.Time) int64 {
	d := now.Sub(entry)
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Hours()))
}

// QuoteFor builds the price preview for hours.
func QuoteFor(hours int64) Quote {
	if hours < 0 {
		hours = 0
	}
	return Quote{Hours: hours, Price: Fee(hours), Currency: Currency}
}
