package handlers

import (
	"math"
	"strconv"
	"strings"

	"parkometr/internal/domain"
)

// parseHours accepts a whole number of hours; fractional input is rounded up
// the same way elapsed time is.
func parseHours(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if h, err := strconv.ParseInt(raw, 10, 64); err == nil {
		if h < 0 {
			return 0, domain.ValidationError{Field: "hours", Msg: "must not be negative"}
		}
		if h > math.MaxInt32 {
			return 0, domain.ValidationError{Field: "hours", Msg: "is too large"}
		}
		return h, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f > math.MaxInt32 {
		return 0, domain.ValidationError{Field: "hours", Msg: "must be a number"}
	}
	if f < 0 {
		return 0, domain.ValidationError{Field: "hours", Msg: "must not be negative"}
	}
	return int64(math.Ceil(f)), nil
}
