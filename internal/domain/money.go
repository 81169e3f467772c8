package domain

import "github.com/shopspring/decimal"

// MaxAmount is the largest value the DECIMAL(10,2) money columns hold.
var MaxAmount = decimal.New(9999999999, -2)

func init() {
	// Amounts go to the front end as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Fee is Price as a money amount.
func Fee(hours int64) decimal.Decimal {
	return decimal.NewFromInt(Price(hours))
}

// CheckAmount accepts a non-negative amount in whole grosze that fits a money column.
func CheckAmount(field string, amount decimal.Decimal) error {
	switch {
	case amount.IsNegative():
		return ValidationError{Field: field, Msg: "must not be negative"}
	case !amount.Equal(amount.Round(2)):
		return ValidationError{Field: field, Msg: "must have at most 2 decimal places"}
	case amount.GreaterThan(MaxAmount):
		return ValidationError{Field: field, Msg: "must not exceed " + MaxAmount.StringFixed(2)}
	}
	return nil
}
